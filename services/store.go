package services

import (
	"context"
	"errors"
	"time"

	"ethics-review-api/models"

	"gorm.io/gorm"
)

// Store is the data access surface the workflow services operate on.
// GormStore backs it in production; tests substitute an in-memory fake.
type Store interface {
	// WithSubmissionLock serializes fn against every other workflow
	// operation on the same submission. Locking is scoped per
	// submission id; operations on different submissions never block
	// each other.
	WithSubmissionLock(ctx context.Context, submissionID uint, fn func(tx Store) error) error

	GetSubmission(ctx context.Context, id uint) (*models.Submission, error)
	CreateSubmission(ctx context.Context, s *models.Submission) error
	// UpdateSubmissionStatus performs a compare-and-set on the status
	// column. It reports false when the current status no longer
	// matches from, which callers treat as a stale read or a lost race.
	UpdateSubmissionStatus(ctx context.Context, id uint, from, to models.SubmissionStatus) (bool, error)
	SetClassification(ctx context.Context, id uint, c models.Classification) error
	MarkSubmitted(ctx context.Context, id uint, at time.Time) error
	CreateStatusHistory(ctx context.Context, h *models.SubmissionStatusHistory) error
	// LatestTransitionInto returns the most recent history row whose
	// new_status equals status, or nil when none exists.
	LatestTransitionInto(ctx context.Context, submissionID uint, status models.SubmissionStatus) (*models.SubmissionStatusHistory, error)

	ListDocuments(ctx context.Context, submissionID uint) ([]models.UploadedDocument, error)
	CreateDocument(ctx context.Context, d *models.UploadedDocument) error
	CreateVerification(ctx context.Context, v *models.DocumentVerification) error
	LatestVerification(ctx context.Context, documentID uint) (*models.DocumentVerification, error)

	ListAssignments(ctx context.Context, submissionID uint) ([]models.ReviewerAssignment, error)
	GetAssignment(ctx context.Context, submissionID uint, reviewerID int) (*models.ReviewerAssignment, error)
	CreateAssignments(ctx context.Context, batch []*models.ReviewerAssignment) error
	CompleteAssignment(ctx context.Context, assignmentID uint, at time.Time) error
	// ReopenAssignment returns a completed assignment to pending with a
	// fresh due date; the slot owes a new verdict.
	ReopenAssignment(ctx context.Context, assignmentID uint, due time.Time) error
	DeleteAssignment(ctx context.Context, assignmentID uint) error

	CreateReview(ctx context.Context, r *models.Review) error
	// ListSubmittedReviews returns submitted reviews still bound to an
	// existing assignment; reviews orphaned by a conflict removal are
	// never included.
	ListSubmittedReviews(ctx context.Context, submissionID uint) ([]models.Review, error)
	DeleteReviewsByAssignment(ctx context.Context, assignmentID uint) error
	GetReview(ctx context.Context, reviewID uint) (*models.Review, error)
	CreateReviewReply(ctx context.Context, reply *models.ReviewReply) error

	CreateConflictForm(ctx context.Context, f *models.ConflictOfInterestForm) error
	ListConflictForms(ctx context.Context, submissionID uint) ([]models.ConflictOfInterestForm, error)

	ListReviewers(ctx context.Context) ([]models.User, error)
	GetUser(ctx context.Context, id int) (*models.User, error)

	// ConfigInt resolves a system_config value, falling back to the
	// built-in default when the row is absent.
	ConfigInt(ctx context.Context, key string) (int, error)
	SetConfig(ctx context.Context, key, value string) error

	CreateNotification(ctx context.Context, n *models.Notification) error
}

// GormStore implements Store over the MySQL database.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// DB exposes the underlying handle for controllers that run plain
// listing queries outside the workflow core.
func (s *GormStore) DB() *gorm.DB {
	return s.db
}

func (s *GormStore) GetSubmission(ctx context.Context, id uint) (*models.Submission, error) {
	var sub models.Submission
	err := s.db.WithContext(ctx).
		Where("submission_id = ? AND deleted_at IS NULL", id).
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *GormStore) CreateSubmission(ctx context.Context, sub *models.Submission) error {
	return s.db.WithContext(ctx).Create(sub).Error
}

func (s *GormStore) UpdateSubmissionStatus(ctx context.Context, id uint, from, to models.SubmissionStatus) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.Submission{}).
		Where("submission_id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *GormStore) SetClassification(ctx context.Context, id uint, c models.Classification) error {
	return s.db.WithContext(ctx).Model(&models.Submission{}).
		Where("submission_id = ?", id).
		Updates(map[string]interface{}{
			"classification": c,
			"updated_at":     time.Now(),
		}).Error
}

func (s *GormStore) MarkSubmitted(ctx context.Context, id uint, at time.Time) error {
	return s.db.WithContext(ctx).Model(&models.Submission{}).
		Where("submission_id = ?", id).
		Updates(map[string]interface{}{
			"submitted_at": at,
			"updated_at":   at,
		}).Error
}

func (s *GormStore) CreateStatusHistory(ctx context.Context, h *models.SubmissionStatusHistory) error {
	return s.db.WithContext(ctx).Create(h).Error
}

func (s *GormStore) LatestTransitionInto(ctx context.Context, submissionID uint, status models.SubmissionStatus) (*models.SubmissionStatusHistory, error) {
	var h models.SubmissionStatusHistory
	err := s.db.WithContext(ctx).
		Where("submission_id = ? AND new_status = ?", submissionID, status).
		Order("created_at DESC, history_id DESC").
		First(&h).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (s *GormStore) ListDocuments(ctx context.Context, submissionID uint) ([]models.UploadedDocument, error) {
	var docs []models.UploadedDocument
	err := s.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("uploaded_at ASC, document_id ASC").
		Find(&docs).Error
	return docs, err
}

func (s *GormStore) CreateDocument(ctx context.Context, d *models.UploadedDocument) error {
	return s.db.WithContext(ctx).Create(d).Error
}

func (s *GormStore) CreateVerification(ctx context.Context, v *models.DocumentVerification) error {
	return s.db.WithContext(ctx).Create(v).Error
}

func (s *GormStore) LatestVerification(ctx context.Context, documentID uint) (*models.DocumentVerification, error) {
	var v models.DocumentVerification
	err := s.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("verified_at DESC, verification_id DESC").
		First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *GormStore) ListAssignments(ctx context.Context, submissionID uint) ([]models.ReviewerAssignment, error) {
	var rows []models.ReviewerAssignment
	err := s.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("assigned_at ASC, assignment_id ASC").
		Find(&rows).Error
	return rows, err
}

func (s *GormStore) GetAssignment(ctx context.Context, submissionID uint, reviewerID int) (*models.ReviewerAssignment, error) {
	var row models.ReviewerAssignment
	err := s.db.WithContext(ctx).
		Where("submission_id = ? AND reviewer_id = ?", submissionID, reviewerID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (s *GormStore) CreateAssignments(ctx context.Context, batch []*models.ReviewerAssignment) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, a := range batch {
			if err := tx.Create(a).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *GormStore) CompleteAssignment(ctx context.Context, assignmentID uint, at time.Time) error {
	return s.db.WithContext(ctx).Model(&models.ReviewerAssignment{}).
		Where("assignment_id = ?", assignmentID).
		Updates(map[string]interface{}{
			"status":       models.AssignmentReviewComplete,
			"completed_at": at,
		}).Error
}

func (s *GormStore) ReopenAssignment(ctx context.Context, assignmentID uint, due time.Time) error {
	return s.db.WithContext(ctx).Model(&models.ReviewerAssignment{}).
		Where("assignment_id = ?", assignmentID).
		Updates(map[string]interface{}{
			"status":       models.AssignmentPending,
			"due_date":     due,
			"completed_at": nil,
		}).Error
}

func (s *GormStore) DeleteAssignment(ctx context.Context, assignmentID uint) error {
	return s.db.WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Delete(&models.ReviewerAssignment{}).Error
}

func (s *GormStore) CreateReview(ctx context.Context, r *models.Review) error {
	return s.db.WithContext(ctx).Create(r).Error
}

func (s *GormStore) ListSubmittedReviews(ctx context.Context, submissionID uint) ([]models.Review, error) {
	var rows []models.Review
	err := s.db.WithContext(ctx).
		Joins("JOIN reviewer_assignments ON reviewer_assignments.assignment_id = reviews.assignment_id").
		Where("reviews.submission_id = ? AND reviews.status = ?", submissionID, models.ReviewSubmitted).
		Order("reviews.submitted_at ASC, reviews.review_id ASC").
		Find(&rows).Error
	return rows, err
}

func (s *GormStore) DeleteReviewsByAssignment(ctx context.Context, assignmentID uint) error {
	return s.db.WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Delete(&models.Review{}).Error
}

func (s *GormStore) GetReview(ctx context.Context, reviewID uint) (*models.Review, error) {
	var r models.Review
	err := s.db.WithContext(ctx).
		Where("review_id = ?", reviewID).
		First(&r).Error
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *GormStore) CreateReviewReply(ctx context.Context, reply *models.ReviewReply) error {
	return s.db.WithContext(ctx).Create(reply).Error
}

func (s *GormStore) CreateConflictForm(ctx context.Context, f *models.ConflictOfInterestForm) error {
	return s.db.WithContext(ctx).Create(f).Error
}

func (s *GormStore) ListConflictForms(ctx context.Context, submissionID uint) ([]models.ConflictOfInterestForm, error) {
	var rows []models.ConflictOfInterestForm
	err := s.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("created_at ASC, form_id ASC").
		Find(&rows).Error
	return rows, err
}

func (s *GormStore) ListReviewers(ctx context.Context) ([]models.User, error) {
	var rows []models.User
	err := s.db.WithContext(ctx).
		Where("role_id = ? AND delete_at IS NULL", models.RoleReviewer).
		Order("user_id ASC").
		Find(&rows).Error
	return rows, err
}

func (s *GormStore) GetUser(ctx context.Context, id int) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND delete_at IS NULL", id).
		First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *GormStore) ConfigInt(ctx context.Context, key string) (int, error) {
	var cfg models.SystemConfig
	err := s.db.WithContext(ctx).Where("`key` = ?", key).First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if v, ok := models.ConfigDefault(key); ok {
			return v, nil
		}
		return 0, err
	}
	if err != nil {
		return 0, err
	}
	if v, ok := cfg.IntValue(); ok {
		return v, nil
	}
	if v, ok := models.ConfigDefault(key); ok {
		return v, nil
	}
	return 0, errors.New("malformed config value for " + key)
}

func (s *GormStore) SetConfig(ctx context.Context, key, value string) error {
	cfg := models.SystemConfig{Key: key, Value: value}
	return s.db.WithContext(ctx).Save(&cfg).Error
}

func (s *GormStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	return s.db.WithContext(ctx).Create(n).Error
}
