package services

import (
	"testing"
	"time"

	"ethics-review-api/models"
)

func doc(id uint, t models.DocumentType, uploadedAt time.Time) models.UploadedDocument {
	return models.UploadedDocument{DocumentID: id, DocumentType: t, UploadedAt: uploadedAt}
}

func docTypes(docs []models.UploadedDocument) []models.DocumentType {
	out := make([]models.DocumentType, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.DocumentType)
	}
	return out
}

func TestVisibleDocuments(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	fullSet := []models.UploadedDocument{
		doc(1, models.DocTypeApplicationForm, base),
		doc(2, models.DocTypeResearchProposal, base),
		doc(3, models.DocTypeInformedConsentForm, base),
		doc(4, models.DocTypeConsolidatedApplication, base.Add(time.Hour)),
		doc(5, models.DocTypeConsolidatedReview, base.Add(time.Hour)),
		doc(6, models.DocTypeConsolidatedApplication, base.Add(2*time.Hour)),
		doc(7, models.DocTypeCertificateOfApproval, base.Add(3*time.Hour)),
		doc(8, models.DocTypeForm0011, base.Add(3*time.Hour)),
		doc(9, models.DocTypeForm0012, base.Add(3*time.Hour)),
	}

	tests := []struct {
		name    string
		status  models.SubmissionStatus
		docs    []models.UploadedDocument
		roleID  int
		wantIDs []uint
	}{
		{
			name:    "intake state shows originals only",
			status:  models.StatusAwaitingClassification,
			docs:    fullSet,
			roleID:  models.RoleResearcher,
			wantIDs: []uint{1, 2, 3},
		},
		{
			name:    "classified still shows originals",
			status:  models.StatusClassified,
			docs:    fullSet,
			roleID:  models.RoleStaff,
			wantIDs: []uint{1, 2, 3},
		},
		{
			name:    "under review shows latest consolidated application",
			status:  models.StatusUnderReview,
			docs:    fullSet,
			roleID:  models.RoleStaff,
			wantIDs: []uint{6},
		},
		{
			name:    "reviewer sees consolidated review instead",
			status:  models.StatusUnderReview,
			docs:    fullSet,
			roleID:  models.RoleReviewer,
			wantIDs: []uint{5},
		},
		{
			name:   "needs revision without consolidated falls back to originals",
			status: models.StatusNeedsRevision,
			docs: []models.UploadedDocument{
				doc(1, models.DocTypeApplicationForm, base),
				doc(2, models.DocTypeResearchProposal, base),
			},
			roleID:  models.RoleResearcher,
			wantIDs: []uint{1, 2},
		},
		{
			name:    "review complete adds artifacts",
			status:  models.StatusReviewComplete,
			docs:    fullSet,
			roleID:  models.RoleResearcher,
			wantIDs: []uint{6, 7, 8, 9},
		},
		{
			name:    "empty set stays empty",
			status:  models.StatusNewSubmission,
			docs:    nil,
			roleID:  models.RoleResearcher,
			wantIDs: []uint{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := VisibleDocuments(tt.status, tt.docs, tt.roleID)
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("got %d documents %v, want %d %v",
					len(got), docTypes(got), len(tt.wantIDs), tt.wantIDs)
			}
			for i, want := range tt.wantIDs {
				if got[i].DocumentID != want {
					t.Errorf("document[%d] = id %d (%s), want id %d",
						i, got[i].DocumentID, got[i].DocumentType, want)
				}
			}
		})
	}
}

// A later revision cycle adds a newer consolidated document; the
// visible set must switch to it on the next read with no migration.
func TestVisibleDocumentsNewerConsolidatedSupersedes(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	docs := []models.UploadedDocument{
		doc(1, models.DocTypeConsolidatedApplication, base),
	}

	got := VisibleDocuments(models.StatusUnderReview, docs, models.RoleStaff)
	if len(got) != 1 || got[0].DocumentID != 1 {
		t.Fatalf("expected document 1 visible, got %v", docTypes(got))
	}

	docs = append(docs, doc(2, models.DocTypeConsolidatedApplication, base.Add(time.Hour)))
	got = VisibleDocuments(models.StatusUnderReview, docs, models.RoleStaff)
	if len(got) != 1 || got[0].DocumentID != 2 {
		t.Fatalf("expected newer document 2 to supersede, got %v", got)
	}
}
