package controllers

import (
	"net/http"
	"strings"

	"ethics-review-api/models"
	"ethics-review-api/services"
	"ethics-review-api/utils"

	"github.com/gin-gonic/gin"
)

type submitReviewRequest struct {
	ProtocolRecommendation       models.Recommendation `json:"protocol_recommendation" binding:"required"`
	ProtocolEthicsRecommendation string                `json:"protocol_ethics_recommendation"`
	ProtocolSuggestions          string                `json:"protocol_suggestions"`
	ICFRecommendation            models.Recommendation `json:"icf_recommendation" binding:"required"`
	ICFEthicsRecommendation      string                `json:"icf_ethics_recommendation"`
	ICFSuggestions               string                `json:"icf_suggestions"`
}

// SubmitReview records the calling reviewer's verdict. When this is the
// last outstanding verdict the submission's outcome is applied in the
// same request.
func SubmitReview(c *gin.Context) {
	actor, ok := currentPrincipal(c)
	if !ok {
		return
	}
	submissionID, ok := paramSubmissionID(c)
	if !ok {
		return
	}

	var req submitReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "protocol_recommendation and icf_recommendation are required"})
		return
	}

	input := services.ReviewInput{
		ProtocolRecommendation:       req.ProtocolRecommendation,
		ProtocolEthicsRecommendation: utils.SanitizeInput(req.ProtocolEthicsRecommendation),
		ProtocolSuggestions:          utils.SanitizeInput(req.ProtocolSuggestions),
		ICFRecommendation:            req.ICFRecommendation,
		ICFEthicsRecommendation:      utils.SanitizeInput(req.ICFEthicsRecommendation),
		ICFSuggestions:               utils.SanitizeInput(req.ICFSuggestions),
	}
	review, err := svc.Consensus.SubmitReview(c.Request.Context(), actor, submissionID, input)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"review":  review,
	})
}

// GetSubmissionReviews lists the submitted verdicts for a submission.
// Verdicts from removed assignments are excluded.
func GetSubmissionReviews(c *gin.Context) {
	actor, ok := currentPrincipal(c)
	if !ok {
		return
	}
	submissionID, ok := paramSubmissionID(c)
	if !ok {
		return
	}
	if actor.RoleID == models.RoleResearcher {
		c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
		return
	}

	reviews, err := svc.Store.ListSubmittedReviews(c.Request.Context(), submissionID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	complete, err := svc.Consensus.IsComplete(c.Request.Context(), submissionID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	resp := gin.H{
		"success":  true,
		"reviews":  reviews,
		"total":    len(reviews),
		"complete": complete,
	}
	if complete {
		if outcome, err := svc.Consensus.ComputeOutcomeChecked(c.Request.Context(), submissionID); err == nil {
			resp["outcome"] = outcome
		}
	}
	c.JSON(http.StatusOK, resp)
}

type reviewReplyRequest struct {
	ReplyText string `json:"reply_text" binding:"required"`
}

// CreateReviewReply appends a follow-up comment to a submitted review.
func CreateReviewReply(c *gin.Context) {
	actor, ok := currentPrincipal(c)
	if !ok {
		return
	}
	reviewID, ok := paramID(c, "reviewId")
	if !ok {
		return
	}

	var req reviewReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reply_text is required"})
		return
	}
	text := utils.SanitizeInput(strings.TrimSpace(req.ReplyText))
	if text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reply_text is required"})
		return
	}

	reply, err := svc.Consensus.Reply(c.Request.Context(), actor, reviewID, text)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"reply":   reply,
	})
}
