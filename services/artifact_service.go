package services

import (
	"context"
	"fmt"
	"time"

	"ethics-review-api/models"

	"github.com/google/uuid"
)

// ObjectStorage is the narrow contract over the document bucket.
// Documents are addressed by opaque path; reads always go through a
// time-limited presigned URL, never a permanent public one.
type ObjectStorage interface {
	Upload(ctx context.Context, objectName, contentType string, data []byte) error
	PresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error)
}

// ArtifactService generates and registers the certificate/approval-form
// set once a submission reaches the approved terminal outcome.
type ArtifactService struct {
	store     Store
	generator DocumentGenerator
	storage   ObjectStorage
}

func NewArtifactService(store Store, generator DocumentGenerator, storage ObjectStorage) *ArtifactService {
	return &ArtifactService{store: store, generator: generator, storage: storage}
}

// EnsureArtifacts generates every approval artifact the submission does
// not yet have a document row for. Invoking it twice never produces a
// second certificate: existing rows are checked first, which also makes
// the post-failure repair path a plain re-invocation. Runs on the
// caller's locked tx.
func (s *ArtifactService) EnsureArtifacts(ctx context.Context, tx Store, sub *models.Submission, actor Principal) error {
	docs, err := tx.ListDocuments(ctx, sub.SubmissionID)
	if err != nil {
		return err
	}
	existing := make(map[models.DocumentType]bool, 3)
	for _, d := range docs {
		if d.DocumentType.IsArtifact() {
			existing[d.DocumentType] = true
		}
	}

	missing := make([]models.DocumentType, 0, 3)
	for _, kind := range models.ArtifactDocumentTypes() {
		if !existing[kind] {
			missing = append(missing, kind)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	researcher, err := tx.GetUser(ctx, sub.UserID)
	if err != nil {
		return err
	}
	reviews, err := tx.ListSubmittedReviews(ctx, sub.SubmissionID)
	if err != nil {
		return err
	}
	snapshot := ArtifactSnapshot{
		Submission: *sub,
		Researcher: *researcher,
		Reviews:    reviews,
	}

	genErr := &ArtifactGenerationError{SubmissionID: sub.SubmissionID}
	for _, kind := range missing {
		if err := s.generateOne(ctx, tx, sub, actor, kind, snapshot); err != nil {
			genErr.Failed = append(genErr.Failed, kind)
			genErr.Errs = append(genErr.Errs, err)
		}
	}
	if len(genErr.Failed) > 0 {
		return genErr
	}
	return nil
}

func (s *ArtifactService) generateOne(ctx context.Context, tx Store, sub *models.Submission, actor Principal, kind models.DocumentType, snapshot ArtifactSnapshot) error {
	pdf, err := s.generator.Generate(ctx, kind, snapshot)
	if err != nil {
		return err
	}

	objectName := fmt.Sprintf("submissions/%d/artifacts/%s_%s.pdf", sub.SubmissionID, kind, uuid.NewString())
	if err := s.storage.Upload(ctx, objectName, "application/pdf", pdf); err != nil {
		return fmt.Errorf("failed to store %s: %w", kind, err)
	}

	return tx.CreateDocument(ctx, &models.UploadedDocument{
		SubmissionID: sub.SubmissionID,
		DocumentType: kind,
		FileName:     fmt.Sprintf("%s_%s.pdf", kind, sub.TrackingCode),
		StoragePath:  objectName,
		UploadedBy:   actor.UserID,
		UploadedAt:   time.Now(),
	})
}

// Repair regenerates only the artifact kinds still missing after a
// failed generation attempt. The approval decision already committed;
// this is the explicit retry path.
func (s *ArtifactService) Repair(ctx context.Context, actor Principal, submissionID uint) error {
	return s.store.WithSubmissionLock(ctx, submissionID, func(tx Store) error {
		sub, err := tx.GetSubmission(ctx, submissionID)
		if err != nil {
			return err
		}
		if sub.Status != models.StatusReviewComplete {
			return &InvalidTransitionError{SubmissionID: submissionID, Current: sub.Status, Requested: models.StatusReviewComplete}
		}
		return s.EnsureArtifacts(ctx, tx, sub, actor)
	})
}
