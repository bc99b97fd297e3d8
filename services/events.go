package services

import (
	"context"
)

// EventType enumerates the workflow events exposed to external
// collaborators. The core never sends email itself; the notifier
// subscribes to these and fans out.
type EventType string

const (
	EventAssignmentCreated EventType = "assignment-created"
	EventRevisionRequested EventType = "revision-requested"
	EventReviewComplete    EventType = "review-complete"
	EventApproved          EventType = "approved"
)

// Event describes one workflow occurrence on one submission.
type Event struct {
	Type         EventType
	SubmissionID uint
	TrackingCode string
	// Recipients are the user ids the event concerns (the researcher
	// for outcome events, the assigned reviewers for assignment events).
	Recipients []int
	Comment    string
}

// EventSink receives workflow events. Publishing is best-effort: a
// failing sink must never affect the workflow transition that emitted
// the event.
type EventSink interface {
	Publish(ctx context.Context, e Event)
}

// NopSink discards events; used in tests and tooling.
type NopSink struct{}

func (NopSink) Publish(context.Context, Event) {}

// publishAll sends collected events after the submission lock has been
// released so notification I/O never runs inside the transaction.
func publishAll(ctx context.Context, sink EventSink, events []Event) {
	if sink == nil {
		return
	}
	for _, e := range events {
		sink.Publish(ctx, e)
	}
}
