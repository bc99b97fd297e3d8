package services

import (
	"context"
	"errors"
	"time"

	"ethics-review-api/models"
)

// ReviewInput carries one reviewer's verdict payload.
type ReviewInput struct {
	ProtocolRecommendation       models.Recommendation
	ProtocolEthicsRecommendation string
	ProtocolSuggestions          string
	ICFRecommendation            models.Recommendation
	ICFEthicsRecommendation      string
	ICFSuggestions               string
}

// ErrInvalidRecommendation rejects verdicts whose recommendation falls
// outside the fixed vocabulary.
var ErrInvalidRecommendation = errors.New("recommendation value outside the fixed vocabulary")

// ConsensusService accepts one reviewer verdict at a time and collapses
// the full verdict set into the submission's aggregate outcome.
type ConsensusService struct {
	store  Store
	sm     *StateMachine
	events EventSink
}

func NewConsensusService(store Store, sm *StateMachine, events EventSink) *ConsensusService {
	return &ConsensusService{store: store, sm: sm, events: events}
}

// SubmitReview writes the reviewer's verdict, completes the bound
// assignment and, when every required verdict is in, computes the
// aggregate outcome and advances the submission. The completeness check
// and the status transition run under the submission lock so only one
// concurrent caller performs the advance.
func (s *ConsensusService) SubmitReview(ctx context.Context, actor Principal, submissionID uint, input ReviewInput) (*models.Review, error) {
	if !input.ProtocolRecommendation.Valid() || !input.ICFRecommendation.Valid() {
		return nil, ErrInvalidRecommendation
	}

	var review *models.Review
	var events []Event
	err := s.store.WithSubmissionLock(ctx, submissionID, func(tx Store) error {
		assignment, err := tx.GetAssignment(ctx, submissionID, actor.UserID)
		if err != nil {
			return err
		}
		if assignment == nil {
			return ErrNoActiveAssignment
		}
		if assignment.Status == models.AssignmentReviewComplete {
			return ErrDuplicateSubmission
		}

		now := time.Now()
		review = &models.Review{
			SubmissionID:           submissionID,
			ReviewerID:             actor.UserID,
			AssignmentID:           assignment.AssignmentID,
			Status:                 models.ReviewSubmitted,
			SubmittedAt:            &now,
			ProtocolRecommendation: input.ProtocolRecommendation,
			ICFRecommendation:      input.ICFRecommendation,
		}
		if input.ProtocolEthicsRecommendation != "" {
			review.ProtocolEthicsRecommendation = &input.ProtocolEthicsRecommendation
		}
		if input.ProtocolSuggestions != "" {
			review.ProtocolSuggestions = &input.ProtocolSuggestions
		}
		if input.ICFEthicsRecommendation != "" {
			review.ICFEthicsRecommendation = &input.ICFEthicsRecommendation
		}
		if input.ICFSuggestions != "" {
			review.ICFSuggestions = &input.ICFSuggestions
		}
		if err := tx.CreateReview(ctx, review); err != nil {
			return err
		}
		if err := tx.CompleteAssignment(ctx, assignment.AssignmentID, now); err != nil {
			return err
		}

		evs, err := s.tryComplete(ctx, tx, actor, submissionID)
		if err != nil {
			return err
		}
		events = evs
		return nil
	})
	if err != nil {
		return nil, err
	}
	publishAll(ctx, s.events, events)
	return review, nil
}

// tryComplete advances the submission when all verdicts are in. It runs
// on the locked tx. A submission paused in conflict_of_interest is left
// alone: the advance fires once the slot is refilled and the
// replacement submits.
func (s *ConsensusService) tryComplete(ctx context.Context, tx Store, actor Principal, submissionID uint) ([]Event, error) {
	assignments, err := tx.ListAssignments(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if !allComplete(assignments) {
		return nil, nil
	}

	sub, err := tx.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if sub.Status != models.StatusUnderReview {
		return nil, nil
	}

	reviews, err := tx.ListSubmittedReviews(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	outcome := ComputeOutcome(reviews)

	events, err := s.sm.AdvanceOnConsensus(ctx, tx, actor, sub, outcome)
	if err != nil {
		return nil, err
	}
	events = append(events, Event{
		Type:         EventReviewComplete,
		SubmissionID: submissionID,
		TrackingCode: sub.TrackingCode,
		Recipients:   []int{sub.UserID},
	})
	return events, nil
}

// IsComplete reports whether every active assignment for the submission
// has reached review_complete. It is a fresh read over current rows;
// no separate counter exists to drift when slots are added or removed
// mid-cycle. A submission paused in conflict_of_interest is never
// complete: a vacated slot is still waiting for its replacement's
// verdict even though every surviving row is done.
func (s *ConsensusService) IsComplete(ctx context.Context, submissionID uint) (bool, error) {
	sub, err := s.store.GetSubmission(ctx, submissionID)
	if err != nil {
		return false, err
	}
	if sub.Status == models.StatusConflictOfInterest {
		return false, nil
	}
	assignments, err := s.store.ListAssignments(ctx, submissionID)
	if err != nil {
		return false, err
	}
	return allComplete(assignments), nil
}

// ComputeOutcome collapses the submitted verdicts. A single Major
// Revision/s or Disapproved on either section of any review vetoes
// approval; ethics review is conservative by policy.
func ComputeOutcome(reviews []models.Review) Outcome {
	for i := range reviews {
		if reviews[i].BlocksApproval() {
			return OutcomeNeedsRevision
		}
	}
	return OutcomeApproved
}

// ComputeOutcomeChecked is the guarded form exposed to callers outside
// the submit path; it refuses to aggregate a partial verdict set.
func (s *ConsensusService) ComputeOutcomeChecked(ctx context.Context, submissionID uint) (Outcome, error) {
	complete, err := s.IsComplete(ctx, submissionID)
	if err != nil {
		return 0, err
	}
	if !complete {
		return 0, ErrNotComplete
	}
	reviews, err := s.store.ListSubmittedReviews(ctx, submissionID)
	if err != nil {
		return 0, err
	}
	return ComputeOutcome(reviews), nil
}

// Reply appends a threaded follow-up comment to a submitted review.
// Submitted reviews are otherwise immutable.
func (s *ConsensusService) Reply(ctx context.Context, actor Principal, reviewID uint, text string) (*models.ReviewReply, error) {
	review, err := s.store.GetReview(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if review.Status != models.ReviewSubmitted {
		return nil, ErrNoActiveAssignment
	}
	reply := &models.ReviewReply{
		ReviewID:   reviewID,
		ReviewerID: actor.UserID,
		ReplyText:  text,
		CreatedAt:  time.Now(),
	}
	if err := s.store.CreateReviewReply(ctx, reply); err != nil {
		return nil, err
	}
	return reply, nil
}

func allComplete(assignments []models.ReviewerAssignment) bool {
	if len(assignments) == 0 {
		return false
	}
	for _, a := range assignments {
		if a.Status != models.AssignmentReviewComplete {
			return false
		}
	}
	return true
}
