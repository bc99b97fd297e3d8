package controllers

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"ethics-review-api/config"
	"ethics-review-api/models"
	"ethics-review-api/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const maxUploadBytes = 20 << 20 // 20 MB

// UploadDocument stores one file in the bucket and registers the
// uploaded_documents row. Re-uploading a type during a revision cycle
// adds a new row with a bumped revision count; history is never
// deleted, ordering by upload time determines the current document.
func UploadDocument(c *gin.Context) {
	actor, ok := currentPrincipal(c)
	if !ok {
		return
	}
	submissionID, ok := paramSubmissionID(c)
	if !ok {
		return
	}

	sub, err := svc.Store.GetSubmission(c.Request.Context(), submissionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Submission not found"})
		return
	}
	if actor.RoleID == models.RoleReviewer ||
		(actor.RoleID == models.RoleResearcher && sub.UserID != actor.UserID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
		return
	}
	if sub.Status.Terminal() {
		c.JSON(http.StatusConflict, gin.H{"error": "Submission is closed"})
		return
	}

	docType := models.DocumentType(strings.TrimSpace(c.PostForm("document_type")))
	if !docType.Valid() || docType.IsArtifact() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid document type"})
		return
	}
	// Consolidated documents are prepared by the secretariat only.
	if (docType == models.DocTypeConsolidatedApplication || docType == models.DocTypeConsolidatedReview) &&
		actor.RoleID != models.RoleStaff {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only staff may upload consolidated documents"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File is required"})
		return
	}
	if fileHeader.Size > maxUploadBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File exceeds the 20MB limit"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read file"})
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read file"})
		return
	}

	fileName := filepath.Base(fileHeader.Filename)
	objectName := fmt.Sprintf("submissions/%d/%s/%s_%s", submissionID, docType, uuid.NewString(), fileName)
	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := svc.Storage.Upload(c.Request.Context(), objectName, contentType, data); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store file"})
		return
	}

	var revision int64
	config.DB.Model(&models.UploadedDocument{}).
		Where("submission_id = ? AND document_type = ?", submissionID, docType).
		Count(&revision)

	doc := models.UploadedDocument{
		SubmissionID:  submissionID,
		DocumentType:  docType,
		FileName:      fileName,
		StoragePath:   objectName,
		RevisionCount: int(revision),
		UploadedBy:    actor.UserID,
		UploadedAt:    time.Now(),
	}
	if err := svc.Store.CreateDocument(c.Request.Context(), &doc); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register document"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":  true,
		"document": doc,
	})
}

type documentView struct {
	models.UploadedDocument
	DownloadURL  string                       `json:"download_url,omitempty"`
	Verification *models.DocumentVerification `json:"verification,omitempty"`
}

// GetSubmissionDocuments lists the documents the caller may see in the
// submission's current state. The visible set is computed fresh on
// every read and each entry carries a time-limited presigned URL.
func GetSubmissionDocuments(c *gin.Context) {
	actor, ok := currentPrincipal(c)
	if !ok {
		return
	}
	submissionID, ok := paramSubmissionID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var sub models.Submission
	if err := config.DB.Preload("Assignments").
		Where("submission_id = ? AND deleted_at IS NULL", submissionID).
		First(&sub).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Submission not found"})
		return
	}
	if !canViewSubmission(actor, &sub) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
		return
	}

	docs, err := svc.Store.ListDocuments(ctx, submissionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch documents"})
		return
	}

	visible := services.VisibleDocuments(sub.Status, docs, actor.RoleID)
	views := make([]documentView, 0, len(visible))
	for _, doc := range visible {
		view := documentView{UploadedDocument: doc}

		url, err := svc.Storage.PresignedURL(ctx, doc.StoragePath, 0)
		if err == nil {
			view.DownloadURL = url
		}
		if verification, err := svc.Store.LatestVerification(ctx, doc.DocumentID); err == nil {
			view.Verification = verification
		}
		views = append(views, view)
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"documents": views,
		"total":     len(views),
	})
}

// GetDocumentTypes lists the upload vocabulary for intake forms.
func GetDocumentTypes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"original_types": models.OriginalDocumentTypes(),
		"artifact_types": models.ArtifactDocumentTypes(),
	})
}
