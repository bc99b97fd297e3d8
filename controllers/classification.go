package controllers

import (
	"net/http"
	"strings"

	"ethics-review-api/models"
	"ethics-review-api/utils"

	"github.com/gin-gonic/gin"
)

type classifyRequest struct {
	Classification models.Classification `json:"classification" binding:"required"`
}

// ClassifySubmission records the risk classification. Exempted
// submissions skip the reviewer stage entirely and complete approved.
func ClassifySubmission(c *gin.Context) {
	actor, ok := currentPrincipal(c)
	if !ok {
		return
	}
	submissionID, ok := paramSubmissionID(c)
	if !ok {
		return
	}

	var req classifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "classification is required"})
		return
	}
	if !req.Classification.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "classification must be exempted, expedited or full_review"})
		return
	}

	if err := svc.StateMachine.Classify(c.Request.Context(), actor, submissionID, req.Classification); err != nil {
		respondServiceError(c, err)
		return
	}

	sub, err := svc.Store.GetSubmission(c.Request.Context(), submissionID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"submission": sub,
	})
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// RejectSubmission closes a submission before review begins.
func RejectSubmission(c *gin.Context) {
	actor, ok := currentPrincipal(c)
	if !ok {
		return
	}
	submissionID, ok := paramSubmissionID(c)
	if !ok {
		return
	}

	var req rejectRequest
	_ = c.ShouldBindJSON(&req)
	reason := utils.SanitizeInput(strings.TrimSpace(req.Reason))

	if err := svc.StateMachine.Reject(c.Request.Context(), actor, submissionID, reason); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Submission rejected",
	})
}
