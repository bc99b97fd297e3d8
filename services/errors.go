package services

import (
	"errors"
	"fmt"

	"ethics-review-api/models"
)

// Validation failures returned synchronously to the caller. None of
// them is retried automatically.
var (
	ErrQuotaExceeded       = errors.New("reviewer quota exceeded")
	ErrAlreadyAssigned     = errors.New("reviewer already holds an active assignment")
	ErrConflicted          = errors.New("reviewer has a declared conflict of interest")
	ErrNotComplete         = errors.New("not all reviewer verdicts are in")
	ErrDuplicateSubmission = errors.New("review already submitted for this assignment")
	ErrNoActiveAssignment  = errors.New("no active assignment for this reviewer")
	ErrNotOwner            = errors.New("submission belongs to another researcher")
	ErrSlotUnfilled        = errors.New("assignment slots remain unfilled")
	ErrRevisionIncomplete  = errors.New("flagged documents have not been re-uploaded")
	ErrLockTimeout         = errors.New("timed out waiting for submission lock")

	// ErrStaleRead signals that locked state changed between the
	// caller's read and the lock acquisition; retry with a fresh read.
	ErrStaleRead = errors.New("submission state changed, retry with a fresh read")
)

// InvalidTransitionError rejects a state change that is illegal from
// the submission's current status.
type InvalidTransitionError struct {
	SubmissionID uint
	Current      models.SubmissionStatus
	Requested    models.SubmissionStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("submission %d: invalid transition from %q to %q",
		e.SubmissionID, e.Current, e.Requested)
}

// ArtifactGenerationError reports which approval artifacts could not be
// generated or stored. The approval decision itself is never rolled
// back; the repair endpoint regenerates only the missing kinds.
type ArtifactGenerationError struct {
	SubmissionID uint
	Failed       []models.DocumentType
	Errs         []error
}

func (e *ArtifactGenerationError) Error() string {
	return fmt.Sprintf("submission %d: failed to generate artifacts %v: %v",
		e.SubmissionID, e.Failed, errors.Join(e.Errs...))
}

func (e *ArtifactGenerationError) Unwrap() []error {
	return e.Errs
}
