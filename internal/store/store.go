// Package store defines the persistence contracts for the submission
// pipeline and their Firestore implementations.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/palengkehub/vendorpermits/internal/models"
)

var (
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyReviewed is returned when a review transition is attempted
	// on a submission that already reached a terminal status.
	ErrAlreadyReviewed = errors.New("submission already reviewed")
)

// Review captures one admin review action applied to a submission.
type Review struct {
	Status     models.SubmissionStatus
	AdminNotes string
	ReviewerID string
	ReviewedAt time.Time
}

// SubmissionStore is the persistence contract for submission records.
type SubmissionStore interface {
	Create(ctx context.Context, sub *models.Submission) (string, error)
	Get(ctx context.Context, id string) (*models.Submission, error)
	ListByUser(ctx context.Context, userID string) ([]models.Submission, error)
	ListAll(ctx context.Context) ([]models.Submission, error)
	Delete(ctx context.Context, id string) error
	// ApplyReview atomically applies a review transition. Concurrent
	// reviewers are serialized: the loser observes the committed terminal
	// state and gets ErrAlreadyReviewed.
	ApplyReview(ctx context.Context, id string, review Review) (*models.Submission, error)
}

// UserStore resolves user identities.
type UserStore interface {
	Get(ctx context.Context, id string) (*models.User, error)
}

// BaseDocumentStore resolves reference templates.
type BaseDocumentStore interface {
	Get(ctx context.Context, id string) (*models.BaseDocument, error)
	ListActive(ctx context.Context) ([]models.BaseDocument, error)
}

// DeviceTokenStore resolves a user's registered push endpoints.
type DeviceTokenStore interface {
	Tokens(ctx context.Context, userID string) ([]string, error)
}
