package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/palengkehub/vendorpermits/internal/models"
	"github.com/palengkehub/vendorpermits/internal/store"
)

// pushSender is the slice of the FCM client the worker uses.
type pushSender interface {
	Send(ctx context.Context, tokens []string, title, body string, data map[string]string) (int, error)
}

// Worker turns review events into push notifications. Every failure is
// logged and absorbed; the worker never propagates errors back to the
// review flow.
type Worker struct {
	tokens store.DeviceTokenStore
	sender pushSender
}

// NewWorker creates a notification worker.
func NewWorker(tokens store.DeviceTokenStore, sender pushSender) *Worker {
	return &Worker{tokens: tokens, sender: sender}
}

// HandleReviewed delivers the push message for one review event.
func (w *Worker) HandleReviewed(ctx context.Context, event models.ReviewedEvent) {
	logCtx := slog.With("submissionId", event.SubmissionID, "userId", event.UserID, "status", string(event.Status))

	tokens, err := w.tokens.Tokens(ctx, event.UserID)
	if err != nil {
		logCtx.Error("Failed to load device tokens.", "error", err)
		return
	}
	if len(tokens) == 0 {
		logCtx.Info("User has no registered devices; skipping push.")
		return
	}

	title, body := MessageFor(event)
	data := map[string]string{
		"submissionId": event.SubmissionID,
		"status":       string(event.Status),
	}

	sent, err := w.sender.Send(ctx, tokens, title, body, data)
	if err != nil {
		logCtx.Error("Push delivery failed.", "error", err)
		return
	}
	logCtx.Info("Push notification sent.", "devices", len(tokens), "delivered", sent)
}

// MessageFor builds the notification wording for a review outcome. Rejected
// and needs-review messages carry the admin's notes so the user knows what
// to fix.
func MessageFor(event models.ReviewedEvent) (title, body string) {
	switch event.Status {
	case models.StatusApproved:
		return "Document Approved",
			fmt.Sprintf("Your %s submission has been approved.", event.DocumentTitle)
	case models.StatusRejected:
		return "Document Rejected",
			fmt.Sprintf("Your %s submission was rejected. Reason: %s", event.DocumentTitle, event.AdminNotes)
	default:
		return "Document Needs Attention",
			fmt.Sprintf("Your %s submission needs further review: %s", event.DocumentTitle, event.AdminNotes)
	}
}
