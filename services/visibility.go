package services

import (
	"ethics-review-api/models"
)

// VisibleDocuments decides which of a submission's documents a viewer
// role may see and download in the submission's current status. It is a
// pure function evaluated fresh on every read: a revision cycle can add
// a newer consolidated document that must supersede the previous one
// without a migration step, so the visible set is never cached.
//
// Early intake states expose the six original form types. Once the
// submission is under review, only the latest consolidated_application
// governs (reviewers see the anonymized consolidated_review instead).
// On review_complete the approval artifacts join the set.
func VisibleDocuments(status models.SubmissionStatus, docs []models.UploadedDocument, roleID int) []models.UploadedDocument {
	switch status {
	case models.StatusNewSubmission, models.StatusAwaitingClassification, models.StatusClassified:
		return originalDocuments(docs)
	}

	consolidatedType := models.DocTypeConsolidatedApplication
	if roleID == models.RoleReviewer {
		consolidatedType = models.DocTypeConsolidatedReview
	}

	visible := make([]models.UploadedDocument, 0, 4)
	if latest := latestDocumentOfType(docs, consolidatedType); latest != nil {
		visible = append(visible, *latest)
	} else {
		// A revision requested before the secretariat consolidated the
		// application leaves no consolidated document; fall back to the
		// originals so the researcher can still revise them.
		visible = originalDocuments(docs)
	}

	if status == models.StatusReviewComplete {
		for _, kind := range models.ArtifactDocumentTypes() {
			if latest := latestDocumentOfType(docs, kind); latest != nil {
				visible = append(visible, *latest)
			}
		}
	}
	return visible
}

func originalDocuments(docs []models.UploadedDocument) []models.UploadedDocument {
	visible := make([]models.UploadedDocument, 0, len(docs))
	for _, d := range docs {
		if d.DocumentType.IsOriginal() {
			visible = append(visible, d)
		}
	}
	return visible
}
