package controllers

import (
	"net/http"
	"strings"
	"time"

	"ethics-review-api/models"
	"ethics-review-api/utils"

	"github.com/gin-gonic/gin"
)

type verifyDocumentRequest struct {
	DocumentID uint   `json:"document_id" binding:"required"`
	Accepted   *bool  `json:"accepted" binding:"required"`
	Comment    string `json:"comment"`
}

// VerifyDocument records a staff accept/reject decision for one
// uploaded document. Decisions are append-only, the latest row wins.
func VerifyDocument(c *gin.Context) {
	actor, ok := currentPrincipal(c)
	if !ok {
		return
	}
	submissionID, ok := paramSubmissionID(c)
	if !ok {
		return
	}

	var req verifyDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "document_id and accepted are required"})
		return
	}
	ctx := c.Request.Context()

	docs, err := svc.Store.ListDocuments(ctx, submissionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch documents"})
		return
	}
	var target *models.UploadedDocument
	for i := range docs {
		if docs[i].DocumentID == req.DocumentID {
			target = &docs[i]
			break
		}
	}
	if target == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found in this submission"})
		return
	}

	verification := models.DocumentVerification{
		SubmissionID: submissionID,
		DocumentID:   req.DocumentID,
		VerifiedBy:   actor.UserID,
		IsApproved:   *req.Accepted,
		VerifiedAt:   time.Now(),
	}
	if comment := strings.TrimSpace(req.Comment); comment != "" {
		sanitized := utils.SanitizeInput(comment)
		verification.FeedbackComment = &sanitized
	}
	if err := svc.Store.CreateVerification(ctx, &verification); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save verification"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":      true,
		"verification": verification,
	})
}

type requestRevisionRequest struct {
	DocumentTypes []models.DocumentType `json:"document_types" binding:"required,min=1"`
	Comment       string                `json:"comment" binding:"required"`
}

// RequestRevision sends the submission back to the researcher with
// the flagged document types marked rejected.
func RequestRevision(c *gin.Context) {
	actor, ok := currentPrincipal(c)
	if !ok {
		return
	}
	submissionID, ok := paramSubmissionID(c)
	if !ok {
		return
	}

	var req requestRevisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "document_types and comment are required"})
		return
	}
	for _, dt := range req.DocumentTypes {
		if !dt.Valid() || dt.IsArtifact() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid document type: " + string(dt)})
			return
		}
	}

	comment := utils.SanitizeInput(strings.TrimSpace(req.Comment))
	if err := svc.StateMachine.RequestRevision(c.Request.Context(), actor, submissionID, comment, req.DocumentTypes); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Revision requested",
	})
}
