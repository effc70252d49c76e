package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/palengkehub/vendorpermits/internal/models"
	"github.com/palengkehub/vendorpermits/internal/store"
)

var (
	ErrEmptyNotes    = errors.New("admin notes must not be empty")
	ErrInvalidStatus = errors.New("status must be approved, rejected or needs_review")
	ErrNotAdmin      = errors.New("admin access required")
)

// ReviewPublisher is the outbound side of the review notification path.
type ReviewPublisher interface {
	PublishReviewed(ctx context.Context, event models.ReviewedEvent) error
}

// ReviewService applies admin review transitions to submissions. A terminal
// transition happens at most once per submission; the notification side
// effect is emitted after the transition commits and can never fail it.
type ReviewService struct {
	users       store.UserStore
	submissions store.SubmissionStore
	publisher   ReviewPublisher
	now         func() time.Time
}

// NewReviewService wires the review state machine. publisher may be nil when
// no event bus is configured.
func NewReviewService(users store.UserStore, submissions store.SubmissionStore, publisher ReviewPublisher) *ReviewService {
	return &ReviewService{
		users:       users,
		submissions: submissions,
		publisher:   publisher,
		now:         time.Now,
	}
}

// Review validates the transition and applies it atomically. Either the full
// state change (status, timestamp, reviewer, notes) commits, or nothing does.
func (s *ReviewService) Review(ctx context.Context, submissionID, reviewerID string, req models.ReviewRequest) (*models.Submission, error) {
	switch req.Status {
	case models.StatusApproved, models.StatusRejected, models.StatusNeedsReview:
	default:
		return nil, ErrInvalidStatus
	}

	notes := strings.TrimSpace(req.AdminNotes)
	if notes == "" {
		return nil, ErrEmptyNotes
	}

	reviewer, err := s.users.Get(ctx, reviewerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotAdmin
		}
		return nil, fmt.Errorf("failed to resolve reviewer: %w", err)
	}
	if !reviewer.IsAdmin() {
		return nil, ErrNotAdmin
	}

	reviewedAt := s.now().UTC()
	sub, err := s.submissions.ApplyReview(ctx, submissionID, store.Review{
		Status:     req.Status,
		AdminNotes: notes,
		ReviewerID: reviewer.ID,
		ReviewedAt: reviewedAt,
	})
	if err != nil {
		return nil, err
	}

	logCtx := slog.With("submissionId", sub.ID, "status", string(sub.Status), "reviewerId", reviewer.ID)
	logCtx.Info("Review transition committed.")

	if s.publisher != nil {
		event := models.ReviewedEvent{
			SubmissionID:  sub.ID,
			UserID:        sub.UserID,
			DocumentTitle: sub.BaseDocumentTitle,
			Status:        sub.Status,
			AdminNotes:    sub.AdminNotes,
			ReviewedAt:    reviewedAt,
		}
		// Fire-and-forget relative to the state change: a publish failure is
		// logged and swallowed.
		if err := s.publisher.PublishReviewed(ctx, event); err != nil {
			logCtx.Error("Failed to publish review event.", "error", err)
		}
	}

	return sub, nil
}
