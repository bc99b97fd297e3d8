package controllers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ethics-review-api/config"
	"ethics-review-api/models"
	"ethics-review-api/services"
	"ethics-review-api/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CreateSubmissionRequest struct {
	Title   string `json:"title" binding:"required"`
	College string `json:"college"`
}

// CreateSubmission performs intake: a new submission owned by the
// calling researcher, in new_submission, with a tracking code.
func CreateSubmission(c *gin.Context) {
	actor, ok := currentPrincipal(c)
	if !ok {
		return
	}

	var req CreateSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sub := models.Submission{
		TrackingCode: newTrackingCode(),
		UserID:       actor.UserID,
		Title:        utils.SanitizeInput(req.Title),
		Status:       models.StatusNewSubmission,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if college := utils.SanitizeInput(req.College); college != "" {
		sub.College = &college
	}

	if err := svc.Store.CreateSubmission(c.Request.Context(), &sub); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create submission"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":    true,
		"submission": sub,
	})
}

// GetSubmissions lists submissions scoped by role: researchers see
// their own, reviewers see those they are assigned to, staff see all.
func GetSubmissions(c *gin.Context) {
	actor, ok := currentPrincipal(c)
	if !ok {
		return
	}

	query := config.DB.Preload("User").Where("deleted_at IS NULL")
	switch actor.RoleID {
	case models.RoleResearcher:
		query = query.Where("user_id = ?", actor.UserID)
	case models.RoleReviewer:
		query = query.Joins("JOIN reviewer_assignments ON reviewer_assignments.submission_id = submissions.submission_id").
			Where("reviewer_assignments.reviewer_id = ?", actor.UserID)
	}

	if status := strings.TrimSpace(c.Query("status")); status != "" {
		if !models.SubmissionStatus(status).Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status filter"})
			return
		}
		query = query.Where("submissions.status = ?", status)
	}

	var submissions []models.Submission
	if err := query.Order("submissions.created_at DESC").Find(&submissions).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch submissions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"submissions": submissions,
		"total":       len(submissions),
	})
}

// GetSubmission returns one submission with its assignments and the
// full status history.
func GetSubmission(c *gin.Context) {
	actor, ok := currentPrincipal(c)
	if !ok {
		return
	}
	submissionID, ok := paramSubmissionID(c)
	if !ok {
		return
	}

	var sub models.Submission
	if err := config.DB.Preload("User").Preload("Assignments").Preload("Assignments.Reviewer").
		Where("submission_id = ? AND deleted_at IS NULL", submissionID).
		First(&sub).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Submission not found"})
		return
	}
	if !canViewSubmission(actor, &sub) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
		return
	}

	var history []models.SubmissionStatusHistory
	if err := config.DB.Where("submission_id = ?", submissionID).
		Order("created_at ASC, history_id ASC").
		Find(&history).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch status history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"submission": sub,
		"history":    history,
	})
}

// SubmitSubmission moves a draft intake into the classification queue.
func SubmitSubmission(c *gin.Context) {
	actor, ok := currentPrincipal(c)
	if !ok {
		return
	}
	submissionID, ok := paramSubmissionID(c)
	if !ok {
		return
	}

	if err := svc.StateMachine.Submit(c.Request.Context(), actor, submissionID); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Submission sent for classification"})
}

// ResubmitSubmission returns a revised submission to the review
// pipeline after the researcher re-uploaded the flagged documents.
func ResubmitSubmission(c *gin.Context) {
	actor, ok := currentPrincipal(c)
	if !ok {
		return
	}
	submissionID, ok := paramSubmissionID(c)
	if !ok {
		return
	}

	if err := svc.StateMachine.Resubmit(c.Request.Context(), actor, submissionID); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Submission resubmitted"})
}

func paramSubmissionID(c *gin.Context) (uint, bool) {
	return paramID(c, "id")
}

func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return uint(id), true
}

// canViewSubmission gates detail reads: owners, assigned reviewers and
// staff.
func canViewSubmission(actor services.Principal, sub *models.Submission) bool {
	switch actor.RoleID {
	case models.RoleStaff:
		return true
	case models.RoleResearcher:
		return sub.UserID == actor.UserID
	case models.RoleReviewer:
		for _, a := range sub.Assignments {
			if a.ReviewerID == actor.UserID {
				return true
			}
		}
	}
	return false
}

func newTrackingCode() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("REC-%d-%s", time.Now().Year(), suffix)
}
