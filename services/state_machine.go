package services

import (
	"context"
	"log"
	"time"

	"ethics-review-api/models"
)

// Principal identifies the acting user. Every core operation takes it
// explicitly; the services never reach into a session layer.
type Principal struct {
	UserID int
	RoleID int
}

// Outcome is the aggregate result of a completed review cycle.
type Outcome int

const (
	OutcomeNeedsRevision Outcome = iota
	OutcomeApproved
)

// legalTransitions is the submission status graph. Status never moves
// backward except into needs_revision (revision loop) and
// conflict_of_interest (pause loop).
var legalTransitions = map[models.SubmissionStatus][]models.SubmissionStatus{
	models.StatusNewSubmission:          {models.StatusAwaitingClassification},
	models.StatusAwaitingClassification: {models.StatusClassified, models.StatusApproved, models.StatusNeedsRevision, models.StatusRejected},
	models.StatusClassified:             {models.StatusUnderReview, models.StatusRejected},
	models.StatusUnderReview:            {models.StatusNeedsRevision, models.StatusApproved, models.StatusConflictOfInterest},
	models.StatusNeedsRevision:          {models.StatusAwaitingClassification, models.StatusUnderReview},
	models.StatusConflictOfInterest:     {models.StatusUnderReview},
	models.StatusApproved:               {models.StatusReviewComplete},
}

// CanTransition reports whether the status graph allows from -> to.
func CanTransition(from, to models.SubmissionStatus) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// StateMachine is the only component permitted to write
// Submission.Status. Every write goes through the compare-and-set in
// the store and leaves a status history row.
type StateMachine struct {
	store     Store
	artifacts *ArtifactService
	events    EventSink
}

func NewStateMachine(store Store, artifacts *ArtifactService, events EventSink) *StateMachine {
	return &StateMachine{store: store, artifacts: artifacts, events: events}
}

// transition validates the edge, CASes the status column and records
// history. ErrStaleRead means the row moved between the caller's read
// and the update; the caller aborts and retries with a fresh read.
func (m *StateMachine) transition(ctx context.Context, tx Store, sub *models.Submission, to models.SubmissionStatus, actor Principal, reason *string) error {
	if !CanTransition(sub.Status, to) {
		return &InvalidTransitionError{SubmissionID: sub.SubmissionID, Current: sub.Status, Requested: to}
	}
	ok, err := tx.UpdateSubmissionStatus(ctx, sub.SubmissionID, sub.Status, to)
	if err != nil {
		return err
	}
	if !ok {
		return ErrStaleRead
	}
	old := sub.Status
	history := &models.SubmissionStatusHistory{
		SubmissionID: sub.SubmissionID,
		OldStatus:    &old,
		NewStatus:    to,
		ChangedBy:    actor.UserID,
		Reason:       reason,
		CreatedAt:    time.Now(),
	}
	if err := tx.CreateStatusHistory(ctx, history); err != nil {
		return err
	}
	sub.Status = to
	return nil
}

// Submit moves a freshly created submission into the classification
// queue. Researcher action; only the owner may submit.
func (m *StateMachine) Submit(ctx context.Context, actor Principal, submissionID uint) error {
	return m.store.WithSubmissionLock(ctx, submissionID, func(tx Store) error {
		sub, err := tx.GetSubmission(ctx, submissionID)
		if err != nil {
			return err
		}
		if actor.RoleID == models.RoleResearcher && sub.UserID != actor.UserID {
			return ErrNotOwner
		}
		if err := m.transition(ctx, tx, sub, models.StatusAwaitingClassification, actor, nil); err != nil {
			return err
		}
		return tx.MarkSubmitted(ctx, submissionID, time.Now())
	})
}

// Classify sets the classification and advances the submission. An
// exempted classification bypasses reviewer assignment entirely and
// lands on the approved terminal path.
func (m *StateMachine) Classify(ctx context.Context, actor Principal, submissionID uint, classification models.Classification) error {
	var events []Event
	err := m.store.WithSubmissionLock(ctx, submissionID, func(tx Store) error {
		sub, err := tx.GetSubmission(ctx, submissionID)
		if err != nil {
			return err
		}
		if sub.Status != models.StatusAwaitingClassification {
			return &InvalidTransitionError{SubmissionID: submissionID, Current: sub.Status, Requested: models.StatusClassified}
		}
		if err := tx.SetClassification(ctx, submissionID, classification); err != nil {
			return err
		}
		sub.Classification = &classification

		if classification == models.ClassificationExempted {
			evs, err := m.completeApproved(ctx, tx, sub, actor, strPtr("exempted classification"))
			if err != nil {
				return err
			}
			events = evs
			return nil
		}
		return m.transition(ctx, tx, sub, models.StatusClassified, actor, nil)
	})
	if err != nil {
		return err
	}
	publishAll(ctx, m.events, events)
	return nil
}

// AdvanceOnAssignment moves a classified submission under review. It
// runs inside the assignment service's lock, on the locked tx.
func (m *StateMachine) AdvanceOnAssignment(ctx context.Context, tx Store, actor Principal, sub *models.Submission) error {
	return m.transition(ctx, tx, sub, models.StatusUnderReview, actor, nil)
}

// AdvanceOnConsensus applies the aggregate outcome once every required
// verdict is in. Runs on the locked tx of the consensus engine. The
// returned events are published by the caller after the lock drops.
func (m *StateMachine) AdvanceOnConsensus(ctx context.Context, tx Store, actor Principal, sub *models.Submission, outcome Outcome) ([]Event, error) {
	switch outcome {
	case OutcomeNeedsRevision:
		reason := strPtr("review consensus: revision required")
		if err := m.transition(ctx, tx, sub, models.StatusNeedsRevision, actor, reason); err != nil {
			return nil, err
		}
		return []Event{{
			Type:         EventRevisionRequested,
			SubmissionID: sub.SubmissionID,
			TrackingCode: sub.TrackingCode,
			Recipients:   []int{sub.UserID},
		}}, nil
	case OutcomeApproved:
		return m.completeApproved(ctx, tx, sub, actor, strPtr("review consensus: approved"))
	}
	return nil, nil
}

// completeApproved runs the approved terminal path: approved, artifact
// generation, review_complete. Artifact failure is logged and left for
// the repair endpoint; the approval decision is authoritative and is
// never rolled back.
func (m *StateMachine) completeApproved(ctx context.Context, tx Store, sub *models.Submission, actor Principal, reason *string) ([]Event, error) {
	if err := m.transition(ctx, tx, sub, models.StatusApproved, actor, reason); err != nil {
		return nil, err
	}
	if err := m.artifacts.EnsureArtifacts(ctx, tx, sub, actor); err != nil {
		log.Printf("submission %d: artifact generation incomplete, repair required: %v", sub.SubmissionID, err)
	}
	if err := m.transition(ctx, tx, sub, models.StatusReviewComplete, actor, nil); err != nil {
		return nil, err
	}
	return []Event{{
		Type:         EventApproved,
		SubmissionID: sub.SubmissionID,
		TrackingCode: sub.TrackingCode,
		Recipients:   []int{sub.UserID},
	}}, nil
}

// RequestRevision is the staff path at verification time, before any
// reviewer is assigned. It flags the latest upload of each named
// document type as rejected and parks the submission in needs_revision.
func (m *StateMachine) RequestRevision(ctx context.Context, actor Principal, submissionID uint, comment string, flaggedTypes []models.DocumentType) error {
	var events []Event
	err := m.store.WithSubmissionLock(ctx, submissionID, func(tx Store) error {
		sub, err := tx.GetSubmission(ctx, submissionID)
		if err != nil {
			return err
		}
		if sub.Status != models.StatusAwaitingClassification {
			return &InvalidTransitionError{SubmissionID: submissionID, Current: sub.Status, Requested: models.StatusNeedsRevision}
		}
		reason := &comment
		if comment == "" {
			reason = nil
		}
		if err := m.transition(ctx, tx, sub, models.StatusNeedsRevision, actor, reason); err != nil {
			return err
		}

		docs, err := tx.ListDocuments(ctx, submissionID)
		if err != nil {
			return err
		}
		now := time.Now()
		for _, docType := range flaggedTypes {
			latest := latestDocumentOfType(docs, docType)
			if latest == nil {
				continue
			}
			verification := &models.DocumentVerification{
				SubmissionID: submissionID,
				DocumentID:   latest.DocumentID,
				VerifiedBy:   actor.UserID,
				IsApproved:   false,
				VerifiedAt:   now,
			}
			if comment != "" {
				verification.FeedbackComment = &comment
			}
			if err := tx.CreateVerification(ctx, verification); err != nil {
				return err
			}
		}

		events = []Event{{
			Type:         EventRevisionRequested,
			SubmissionID: submissionID,
			TrackingCode: sub.TrackingCode,
			Recipients:   []int{sub.UserID},
			Comment:      comment,
		}}
		return nil
	})
	if err != nil {
		return err
	}
	publishAll(ctx, m.events, events)
	return nil
}

// Resubmit returns a revised submission to the state it was in before
// revision was requested. Every document whose latest verification is a
// rejection must have been re-uploaded since. When the revision came
// out of review consensus, the verdicts that forced it are vacated and
// those assignments reopen so the cycle can reach a new outcome;
// approving verdicts stand.
func (m *StateMachine) Resubmit(ctx context.Context, actor Principal, submissionID uint) error {
	var events []Event
	err := m.store.WithSubmissionLock(ctx, submissionID, func(tx Store) error {
		sub, err := tx.GetSubmission(ctx, submissionID)
		if err != nil {
			return err
		}
		if actor.RoleID == models.RoleResearcher && sub.UserID != actor.UserID {
			return ErrNotOwner
		}
		if sub.Status != models.StatusNeedsRevision {
			return &InvalidTransitionError{SubmissionID: submissionID, Current: sub.Status, Requested: models.StatusUnderReview}
		}

		docs, err := tx.ListDocuments(ctx, submissionID)
		if err != nil {
			return err
		}
		for i := range docs {
			doc := &docs[i]
			verification, err := tx.LatestVerification(ctx, doc.DocumentID)
			if err != nil {
				return err
			}
			if verification == nil || verification.IsApproved {
				continue
			}
			if !hasNewerUpload(docs, doc.DocumentType, verification.VerifiedAt) {
				return ErrRevisionIncomplete
			}
		}

		prior := models.StatusAwaitingClassification
		entry, err := tx.LatestTransitionInto(ctx, submissionID, models.StatusNeedsRevision)
		if err != nil {
			return err
		}
		if entry != nil && entry.OldStatus != nil {
			prior = *entry.OldStatus
		}

		if prior == models.StatusUnderReview {
			reopened, err := m.reopenBlockingAssignments(ctx, tx, submissionID)
			if err != nil {
				return err
			}
			if len(reopened) > 0 {
				events = []Event{{
					Type:         EventAssignmentCreated,
					SubmissionID: submissionID,
					TrackingCode: sub.TrackingCode,
					Recipients:   reopened,
				}}
			}
		}
		return m.transition(ctx, tx, sub, prior, actor, strPtr("resubmitted after revision"))
	})
	if err != nil {
		return err
	}
	publishAll(ctx, m.events, events)
	return nil
}

// reopenBlockingAssignments discards each verdict that vetoed approval
// and resets its assignment to pending with a fresh review window. The
// returned reviewer ids get re-notified. Without this a post-consensus
// resubmission would sit in under_review with every assignment already
// complete and no verdict left to change the outcome.
func (m *StateMachine) reopenBlockingAssignments(ctx context.Context, tx Store, submissionID uint) ([]int, error) {
	reviews, err := tx.ListSubmittedReviews(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	window, err := tx.ConfigInt(ctx, models.ConfigKeyReviewWindowDays)
	if err != nil {
		return nil, err
	}
	due := time.Now().AddDate(0, 0, clampReviewWindow(window))

	var reviewers []int
	for i := range reviews {
		if !reviews[i].BlocksApproval() {
			continue
		}
		if err := tx.DeleteReviewsByAssignment(ctx, reviews[i].AssignmentID); err != nil {
			return nil, err
		}
		if err := tx.ReopenAssignment(ctx, reviews[i].AssignmentID, due); err != nil {
			return nil, err
		}
		reviewers = append(reviewers, reviews[i].ReviewerID)
	}
	return reviewers, nil
}

// Reject is the staff terminal rejection, legal before any reviewer is
// recruited.
func (m *StateMachine) Reject(ctx context.Context, actor Principal, submissionID uint, reason string) error {
	return m.store.WithSubmissionLock(ctx, submissionID, func(tx Store) error {
		sub, err := tx.GetSubmission(ctx, submissionID)
		if err != nil {
			return err
		}
		r := &reason
		if reason == "" {
			r = nil
		}
		return m.transition(ctx, tx, sub, models.StatusRejected, actor, r)
	})
}

// latestDocumentOfType picks the newest upload of docType; docs are
// ordered by upload time ascending.
func latestDocumentOfType(docs []models.UploadedDocument, docType models.DocumentType) *models.UploadedDocument {
	var latest *models.UploadedDocument
	for i := range docs {
		if docs[i].DocumentType == docType {
			latest = &docs[i]
		}
	}
	return latest
}

func hasNewerUpload(docs []models.UploadedDocument, docType models.DocumentType, since time.Time) bool {
	for i := range docs {
		if docs[i].DocumentType == docType && docs[i].UploadedAt.After(since) {
			return true
		}
	}
	return false
}

func strPtr(s string) *string {
	return &s
}
