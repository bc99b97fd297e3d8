package services

import (
	"context"
	"time"

	"ethics-review-api/models"
)

// AssignmentService recruits reviewers for a classified submission
// subject to the classification's configured quota.
type AssignmentService struct {
	store  Store
	sm     *StateMachine
	events EventSink
}

func NewAssignmentService(store Store, sm *StateMachine, events EventSink) *AssignmentService {
	return &AssignmentService{store: store, sm: sm, events: events}
}

// EligibleReviewers returns reviewer principals who may be assigned:
// role reviewer, no active assignment on this submission, no
// true-flagged conflict declaration for it.
func (s *AssignmentService) EligibleReviewers(ctx context.Context, submissionID uint) ([]models.User, error) {
	reviewers, err := s.store.ListReviewers(ctx)
	if err != nil {
		return nil, err
	}
	assigned, conflicted, err := excludedReviewerSets(ctx, s.store, submissionID)
	if err != nil {
		return nil, err
	}

	eligible := make([]models.User, 0, len(reviewers))
	for _, r := range reviewers {
		if assigned[r.UserID] || conflicted[r.UserID] {
			continue
		}
		eligible = append(eligible, r)
	}
	return eligible, nil
}

// Assign creates one pending assignment per reviewer id, all-or-nothing,
// and advances the submission to under_review. Validation failures
// never leave a partial assignment behind.
func (s *AssignmentService) Assign(ctx context.Context, actor Principal, submissionID uint, reviewerIDs []int) ([]models.ReviewerAssignment, error) {
	if len(reviewerIDs) == 0 {
		return nil, ErrQuotaExceeded
	}

	var created []models.ReviewerAssignment
	var events []Event
	err := s.store.WithSubmissionLock(ctx, submissionID, func(tx Store) error {
		sub, err := tx.GetSubmission(ctx, submissionID)
		if err != nil {
			return err
		}
		if sub.Status != models.StatusClassified {
			return &InvalidTransitionError{SubmissionID: submissionID, Current: sub.Status, Requested: models.StatusUnderReview}
		}
		if sub.Classification == nil {
			return &InvalidTransitionError{SubmissionID: submissionID, Current: sub.Status, Requested: models.StatusUnderReview}
		}

		quota, err := tx.ConfigInt(ctx, models.QuotaKeyFor(*sub.Classification))
		if err != nil {
			return err
		}
		if len(reviewerIDs) > quota {
			return ErrQuotaExceeded
		}

		// Re-read exclusions under the lock; a conflict declaration may
		// have landed since the caller fetched eligible reviewers.
		assigned, conflicted, err := excludedReviewerSets(ctx, tx, submissionID)
		if err != nil {
			return err
		}
		seen := make(map[int]bool, len(reviewerIDs))
		for _, id := range reviewerIDs {
			if assigned[id] || seen[id] {
				return ErrAlreadyAssigned
			}
			if conflicted[id] {
				return ErrConflicted
			}
			seen[id] = true
		}
		if len(assigned)+len(reviewerIDs) > quota {
			return ErrQuotaExceeded
		}

		window, err := tx.ConfigInt(ctx, models.ConfigKeyReviewWindowDays)
		if err != nil {
			return err
		}
		window = clampReviewWindow(window)

		now := time.Now()
		batch := make([]*models.ReviewerAssignment, 0, len(reviewerIDs))
		for _, reviewerID := range reviewerIDs {
			batch = append(batch, &models.ReviewerAssignment{
				SubmissionID: submissionID,
				ReviewerID:   reviewerID,
				Status:       models.AssignmentPending,
				AssignedAt:   now,
				DueDate:      now.AddDate(0, 0, window),
			})
		}
		if err := tx.CreateAssignments(ctx, batch); err != nil {
			return err
		}
		if err := s.sm.AdvanceOnAssignment(ctx, tx, actor, sub); err != nil {
			return err
		}

		created = make([]models.ReviewerAssignment, 0, len(batch))
		for _, a := range batch {
			created = append(created, *a)
		}
		events = []Event{{
			Type:         EventAssignmentCreated,
			SubmissionID: submissionID,
			TrackingCode: sub.TrackingCode,
			Recipients:   reviewerIDs,
		}}
		return nil
	})
	if err != nil {
		return nil, err
	}
	publishAll(ctx, s.events, events)
	return created, nil
}

// excludedReviewerSets collects reviewers holding an active assignment
// and reviewers disqualified by a true-flagged conflict form.
func excludedReviewerSets(ctx context.Context, store Store, submissionID uint) (assigned map[int]bool, conflicted map[int]bool, err error) {
	assignments, err := store.ListAssignments(ctx, submissionID)
	if err != nil {
		return nil, nil, err
	}
	forms, err := store.ListConflictForms(ctx, submissionID)
	if err != nil {
		return nil, nil, err
	}

	assigned = make(map[int]bool, len(assignments))
	for _, a := range assignments {
		assigned[a.ReviewerID] = true
	}
	conflicted = make(map[int]bool)
	for i := range forms {
		if forms[i].HasConflict() {
			conflicted[forms[i].ReviewerID] = true
		}
	}
	return assigned, conflicted, nil
}

func clampReviewWindow(days int) int {
	if days < models.MinReviewWindowDays {
		return models.MinReviewWindowDays
	}
	if days > models.MaxReviewWindowDays {
		return models.MaxReviewWindowDays
	}
	return days
}
