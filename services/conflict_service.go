package services

import (
	"context"
	"time"

	"ethics-review-api/models"
)

// DeclareConflictInput mirrors the conflict-of-interest form: a set of
// independent boolean flags plus free-text remarks.
type DeclareConflictInput struct {
	HasStockOwnership     bool
	HasCompensation       bool
	HasOfficialRole       bool
	HasPriorWork          bool
	HasStandingIssue      bool
	HasSocialRelationship bool
	HasOwnershipInterest  bool
	Remarks               string
}

// ConflictService handles reviewer self-declarations and the safe swap
// of a disqualified reviewer without losing already-collected verdicts.
type ConflictService struct {
	store  Store
	sm     *StateMachine
	events EventSink
}

func NewConflictService(store Store, sm *StateMachine, events EventSink) *ConflictService {
	return &ConflictService{store: store, sm: sm, events: events}
}

// Declare persists the reviewer's form regardless of flag values; a
// declaration with all flags false is a valid "no conflict" record and
// is not disqualifying. When any flag is set, resolution runs
// immediately under the same lock.
func (s *ConflictService) Declare(ctx context.Context, actor Principal, submissionID uint, input DeclareConflictInput) (*models.ConflictOfInterestForm, error) {
	form := &models.ConflictOfInterestForm{
		SubmissionID:          submissionID,
		ReviewerID:            actor.UserID,
		HasStockOwnership:     input.HasStockOwnership,
		HasCompensation:       input.HasCompensation,
		HasOfficialRole:       input.HasOfficialRole,
		HasPriorWork:          input.HasPriorWork,
		HasStandingIssue:      input.HasStandingIssue,
		HasSocialRelationship: input.HasSocialRelationship,
		HasOwnershipInterest:  input.HasOwnershipInterest,
		CreatedAt:             time.Now(),
	}
	if input.Remarks != "" {
		form.Remarks = &input.Remarks
	}

	err := s.store.WithSubmissionLock(ctx, submissionID, func(tx Store) error {
		assignment, err := tx.GetAssignment(ctx, submissionID, actor.UserID)
		if err != nil {
			return err
		}
		if assignment == nil {
			return ErrNoActiveAssignment
		}
		if err := tx.CreateConflictForm(ctx, form); err != nil {
			return err
		}
		if !form.HasConflict() {
			return nil
		}
		return s.resolve(ctx, tx, actor, submissionID)
	})
	if err != nil {
		return nil, err
	}
	return form, nil
}

// Resolve re-reads every declaration for the submission and removes the
// assignment of each conflicted reviewer, then parks the submission in
// conflict_of_interest until every vacated slot is refilled.
func (s *ConflictService) Resolve(ctx context.Context, actor Principal, submissionID uint) error {
	return s.store.WithSubmissionLock(ctx, submissionID, func(tx Store) error {
		return s.resolve(ctx, tx, actor, submissionID)
	})
}

// resolve runs on the locked tx. Assignment state is re-read after the
// lock is held, never reused from an earlier fetch.
func (s *ConflictService) resolve(ctx context.Context, tx Store, actor Principal, submissionID uint) error {
	forms, err := tx.ListConflictForms(ctx, submissionID)
	if err != nil {
		return err
	}
	conflicted := make(map[int]bool)
	for i := range forms {
		if forms[i].HasConflict() {
			conflicted[forms[i].ReviewerID] = true
		}
	}
	if len(conflicted) == 0 {
		return nil
	}

	assignments, err := tx.ListAssignments(ctx, submissionID)
	if err != nil {
		return err
	}
	removed := false
	for _, a := range assignments {
		if !conflicted[a.ReviewerID] {
			continue
		}
		// A conflicted reviewer's partial work is never counted: any
		// review bound to the assignment goes with it.
		if err := tx.DeleteReviewsByAssignment(ctx, a.AssignmentID); err != nil {
			return err
		}
		if err := tx.DeleteAssignment(ctx, a.AssignmentID); err != nil {
			return err
		}
		removed = true
	}
	if !removed {
		return nil
	}

	sub, err := tx.GetSubmission(ctx, submissionID)
	if err != nil {
		return err
	}
	if sub.Status == models.StatusConflictOfInterest {
		return nil
	}
	return s.sm.transition(ctx, tx, sub, models.StatusConflictOfInterest, actor,
		strPtr("reviewer conflict of interest declared"))
}

// AvailableReplacements lists reviewers who can fill a vacated slot:
// not the conflicted reviewer(s), not actively assigned, not
// independently conflicted per their own declaration.
func (s *ConflictService) AvailableReplacements(ctx context.Context, submissionID uint) ([]models.User, error) {
	reviewers, err := s.store.ListReviewers(ctx)
	if err != nil {
		return nil, err
	}
	assigned, conflicted, err := excludedReviewerSets(ctx, s.store, submissionID)
	if err != nil {
		return nil, err
	}

	available := make([]models.User, 0, len(reviewers))
	for _, r := range reviewers {
		if assigned[r.UserID] || conflicted[r.UserID] {
			continue
		}
		available = append(available, r)
	}
	return available, nil
}

// Reassign fills one vacated slot with a fresh assignment. The
// replacement does not inherit the original deadline; it gets a full
// review window. Once the quota of active assignments is met again the
// submission returns to under_review.
func (s *ConflictService) Reassign(ctx context.Context, actor Principal, submissionID uint, newReviewerID int) (*models.ReviewerAssignment, error) {
	var created *models.ReviewerAssignment
	var events []Event
	err := s.store.WithSubmissionLock(ctx, submissionID, func(tx Store) error {
		sub, err := tx.GetSubmission(ctx, submissionID)
		if err != nil {
			return err
		}
		if sub.Status != models.StatusConflictOfInterest {
			return &InvalidTransitionError{SubmissionID: submissionID, Current: sub.Status, Requested: models.StatusUnderReview}
		}
		if sub.Classification == nil {
			return &InvalidTransitionError{SubmissionID: submissionID, Current: sub.Status, Requested: models.StatusUnderReview}
		}

		quota, err := tx.ConfigInt(ctx, models.QuotaKeyFor(*sub.Classification))
		if err != nil {
			return err
		}
		assigned, conflicted, err := excludedReviewerSets(ctx, tx, submissionID)
		if err != nil {
			return err
		}
		if len(assigned) >= quota {
			return ErrQuotaExceeded
		}
		if assigned[newReviewerID] {
			return ErrAlreadyAssigned
		}
		if conflicted[newReviewerID] {
			return ErrConflicted
		}

		window, err := tx.ConfigInt(ctx, models.ConfigKeyReviewWindowDays)
		if err != nil {
			return err
		}
		window = clampReviewWindow(window)

		now := time.Now()
		assignment := &models.ReviewerAssignment{
			SubmissionID: submissionID,
			ReviewerID:   newReviewerID,
			Status:       models.AssignmentPending,
			AssignedAt:   now,
			DueDate:      now.AddDate(0, 0, window),
		}
		if err := tx.CreateAssignments(ctx, []*models.ReviewerAssignment{assignment}); err != nil {
			return err
		}
		created = assignment

		// conflict_of_interest is exited only once every slot is filled.
		if len(assigned)+1 == quota {
			if err := s.sm.transition(ctx, tx, sub, models.StatusUnderReview, actor,
				strPtr("conflict resolved, quota restored")); err != nil {
				return err
			}
		}

		events = []Event{{
			Type:         EventAssignmentCreated,
			SubmissionID: submissionID,
			TrackingCode: sub.TrackingCode,
			Recipients:   []int{newReviewerID},
		}}
		return nil
	})
	if err != nil {
		return nil, err
	}
	publishAll(ctx, s.events, events)
	return created, nil
}
