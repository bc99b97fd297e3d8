package controllers

import (
	"net/http"
	"strings"

	"ethics-review-api/services"
	"ethics-review-api/utils"

	"github.com/gin-gonic/gin"
)

type declareConflictRequest struct {
	HasStockOwnership     bool   `json:"has_stock_ownership"`
	HasCompensation       bool   `json:"has_compensation"`
	HasOfficialRole       bool   `json:"has_official_role"`
	HasPriorWork          bool   `json:"has_prior_work"`
	HasStandingIssue      bool   `json:"has_standing_issue"`
	HasSocialRelationship bool   `json:"has_social_relationship"`
	HasOwnershipInterest  bool   `json:"has_ownership_interest"`
	Remarks               string `json:"remarks"`
}

// DeclareConflict records the calling reviewer's declaration form. A
// form with any flag set removes the reviewer and pauses the review.
func DeclareConflict(c *gin.Context) {
	actor, ok := currentPrincipal(c)
	if !ok {
		return
	}
	submissionID, ok := paramSubmissionID(c)
	if !ok {
		return
	}

	var req declareConflictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid declaration payload"})
		return
	}

	input := services.DeclareConflictInput{
		HasStockOwnership:     req.HasStockOwnership,
		HasCompensation:       req.HasCompensation,
		HasOfficialRole:       req.HasOfficialRole,
		HasPriorWork:          req.HasPriorWork,
		HasStandingIssue:      req.HasStandingIssue,
		HasSocialRelationship: req.HasSocialRelationship,
		HasOwnershipInterest:  req.HasOwnershipInterest,
		Remarks:               utils.SanitizeInput(strings.TrimSpace(req.Remarks)),
	}
	form, err := svc.Conflicts.Declare(c.Request.Context(), actor, submissionID, input)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":      true,
		"form":         form,
		"has_conflict": form.HasConflict(),
	})
}

// GetReplacements lists reviewers eligible to fill a vacated slot.
func GetReplacements(c *gin.Context) {
	submissionID, ok := paramSubmissionID(c)
	if !ok {
		return
	}

	reviewers, err := svc.Conflicts.AvailableReplacements(c.Request.Context(), submissionID)
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

type reassignRequest struct {
	ReviewerID int `json:"reviewer_id" binding:"required"`
}

// ReassignReviewer fills one vacated slot. The submission resumes
// review only once every slot is filled again.
func ReassignReviewer(c *gin.Context) {
	actor, ok := currentPrincipal(c)
	if !ok {
		return
	}
	submissionID, ok := paramSubmissionID(c)
	if !ok {
		return
	}

	var req reassignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reviewer_id is required"})
		return
	}

	assignment, err := svc.Conflicts.Reassign(c.Request.Context(), actor, submissionID, req.ReviewerID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":    true,
		"assignment": assignment,
	})
}
