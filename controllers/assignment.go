package controllers

import (
	"net/http"

	"ethics-review-api/config"
	"ethics-review-api/models"

	"github.com/gin-gonic/gin"
)

// GetEligibleReviewers lists reviewers that can still be assigned to
// the submission. Already-assigned and conflicted reviewers are
// filtered out.
func GetEligibleReviewers(c *gin.Context) {
	submissionID, ok := paramSubmissionID(c)
	if !ok {
		return
	}

	reviewers, err := svc.Assignments.EligibleReviewers(c.Request.Context(), submissionID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"reviewers": reviewers,
		"total":     len(reviewers),
	})
}

type assignReviewersRequest struct {
	ReviewerIDs []int `json:"reviewer_ids" binding:"required,min=1"`
}

// AssignReviewers assigns the given reviewers in one batch. The batch
// is all-or-nothing; one bad reviewer rejects the whole request.
func AssignReviewers(c *gin.Context) {
	actor, ok := currentPrincipal(c)
	if !ok {
		return
	}
	submissionID, ok := paramSubmissionID(c)
	if !ok {
		return
	}

	var req assignReviewersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reviewer_ids is required"})
		return
	}

	assignments, err := svc.Assignments.Assign(c.Request.Context(), actor, submissionID, req.ReviewerIDs)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":     true,
		"assignments": assignments,
	})
}

// GetMyAssignments lists the calling reviewer's open and completed
// assignments with the submission summary preloaded.
func GetMyAssignments(c *gin.Context) {
	actor, ok := currentPrincipal(c)
	if !ok {
		return
	}

	var assignments []models.ReviewerAssignment
	query := config.DB.Preload("Submission").Preload("Submission.User").
		Where("reviewer_id = ?", actor.UserID).
		Order("assigned_at DESC")
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Find(&assignments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch assignments"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"assignments": assignments,
		"total":       len(assignments),
	})
}
