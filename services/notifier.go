package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"ethics-review-api/config"
	"ethics-review-api/models"
)

// Notifier subscribes to workflow events and fans each one out to an
// in-app notification row per recipient plus a best-effort email. A
// delivery failure is logged and dropped; it never propagates into the
// workflow transition that emitted the event.
type Notifier struct {
	store Store
}

func NewNotifier(store Store) *Notifier {
	return &Notifier{store: store}
}

func (n *Notifier) Publish(ctx context.Context, e Event) {
	title, message, kind := renderEvent(e)

	for _, userID := range e.Recipients {
		notification := &models.Notification{
			UserID:              userID,
			Title:               title,
			Message:             message,
			Type:                kind,
			RelatedSubmissionID: &e.SubmissionID,
			IsRead:              false,
			CreateAt:            time.Now(),
		}
		if err := n.store.CreateNotification(ctx, notification); err != nil {
			log.Printf("failed to create notification for user %d: %v", userID, err)
			continue
		}

		user, err := n.store.GetUser(ctx, userID)
		if err != nil {
			log.Printf("notification email skipped, user %d not found: %v", userID, err)
			continue
		}
		body := fmt.Sprintf("<p>%s</p><p>%s</p>", title, message)
		if err := config.SendMail([]string{user.Email}, title, body); err != nil {
			log.Printf("failed to email %s about %s: %v", user.Email, e.Type, err)
		}
	}
}

func renderEvent(e Event) (title, message, kind string) {
	switch e.Type {
	case EventAssignmentCreated:
		return "New review assignment",
			fmt.Sprintf("You have been assigned to review submission %s.", e.TrackingCode),
			"info"
	case EventRevisionRequested:
		msg := fmt.Sprintf("Submission %s requires revision.", e.TrackingCode)
		if e.Comment != "" {
			msg = fmt.Sprintf("%s Comment: %s", msg, e.Comment)
		}
		return "Revision requested", msg, "warning"
	case EventReviewComplete:
		return "Review complete",
			fmt.Sprintf("All reviewer verdicts for submission %s are in.", e.TrackingCode),
			"info"
	case EventApproved:
		return "Submission approved",
			fmt.Sprintf("Submission %s has been approved. Your certificate of approval is being issued.", e.TrackingCode),
			"success"
	}
	return string(e.Type), fmt.Sprintf("Update on submission %s.", e.TrackingCode), "info"
}
