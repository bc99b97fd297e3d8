package models

import (
	"time"
)

// DocumentType is the fixed vocabulary of uploadable document kinds.
type DocumentType string

const (
	// Original intake forms uploaded by the researcher.
	DocTypeApplicationForm     DocumentType = "application_form"
	DocTypeResearchProposal    DocumentType = "research_proposal"
	DocTypeInformedConsentForm DocumentType = "informed_consent_form"
	DocTypeQuestionnaire       DocumentType = "questionnaire"
	DocTypeCurriculumVitae     DocumentType = "curriculum_vitae"
	DocTypeEndorsementLetter   DocumentType = "endorsement_letter"

	// Consolidated documents prepared by the secretariat after intake.
	DocTypeConsolidatedApplication DocumentType = "consolidated_application"
	DocTypeConsolidatedReview      DocumentType = "consolidated_review"

	// Approval artifacts registered once a submission completes review.
	DocTypeCertificateOfApproval DocumentType = "certificate_of_approval"
	DocTypeForm0011              DocumentType = "form_0011"
	DocTypeForm0012              DocumentType = "form_0012"
)

// OriginalDocumentTypes lists the six intake form types in upload order.
func OriginalDocumentTypes() []DocumentType {
	return []DocumentType{
		DocTypeApplicationForm,
		DocTypeResearchProposal,
		DocTypeInformedConsentForm,
		DocTypeQuestionnaire,
		DocTypeCurriculumVitae,
		DocTypeEndorsementLetter,
	}
}

// ArtifactDocumentTypes lists the approval artifacts generated on a
// terminal approved outcome.
func ArtifactDocumentTypes() []DocumentType {
	return []DocumentType{
		DocTypeCertificateOfApproval,
		DocTypeForm0011,
		DocTypeForm0012,
	}
}

func (t DocumentType) Valid() bool {
	return t.IsOriginal() || t.IsArtifact() ||
		t == DocTypeConsolidatedApplication || t == DocTypeConsolidatedReview
}

func (t DocumentType) IsOriginal() bool {
	for _, orig := range OriginalDocumentTypes() {
		if t == orig {
			return true
		}
	}
	return false
}

func (t DocumentType) IsArtifact() bool {
	switch t {
	case DocTypeCertificateOfApproval, DocTypeForm0011, DocTypeForm0012:
		return true
	}
	return false
}

type UploadedDocument struct {
	DocumentID    uint         `gorm:"primaryKey;column:document_id" json:"document_id"`
	SubmissionID  uint         `gorm:"column:submission_id" json:"submission_id"`
	DocumentType  DocumentType `gorm:"column:document_type" json:"document_type"`
	FileName      string       `gorm:"column:file_name" json:"file_name"`
	StoragePath   string       `gorm:"column:storage_path" json:"-"`
	RevisionCount int          `gorm:"column:revision_count" json:"revision_count"`
	UploadedBy    int          `gorm:"column:uploaded_by" json:"uploaded_by"`
	UploadedAt    time.Time    `gorm:"column:uploaded_at" json:"uploaded_at"`

	// Relations
	Verifications []DocumentVerification `gorm:"foreignKey:DocumentID" json:"verifications,omitempty"`
}

func (UploadedDocument) TableName() string {
	return "uploaded_documents"
}

// DocumentVerification is a staff approval/rejection annotation on one
// document. A document may be re-verified across revision cycles; the
// latest row wins for display.
type DocumentVerification struct {
	VerificationID  uint      `gorm:"primaryKey;column:verification_id" json:"verification_id"`
	SubmissionID    uint      `gorm:"column:submission_id" json:"submission_id"`
	DocumentID      uint      `gorm:"column:document_id" json:"document_id"`
	VerifiedBy      int       `gorm:"column:verified_by" json:"verified_by"`
	IsApproved      bool      `gorm:"column:is_approved" json:"is_approved"`
	FeedbackComment *string   `gorm:"column:feedback_comment" json:"feedback_comment,omitempty"`
	VerifiedAt      time.Time `gorm:"column:verified_at" json:"verified_at"`
}

func (DocumentVerification) TableName() string {
	return "document_verifications"
}
