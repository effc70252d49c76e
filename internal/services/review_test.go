package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palengkehub/vendorpermits/internal/models"
	"github.com/palengkehub/vendorpermits/internal/store"
)

type capturingPublisher struct {
	events []models.ReviewedEvent
	err    error
}

func (p *capturingPublisher) PublishReviewed(_ context.Context, event models.ReviewedEvent) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func seedSubmission(t *testing.T, subs *fakeSubmissions) string {
	t.Helper()
	sub := &models.Submission{
		UserID:            "user-1",
		BaseDocumentID:    "base-1",
		BaseDocumentTitle: "Business Permit",
		Filenames:         []string{"a.jpg"},
		FileTypes:         []string{"image/jpeg"},
		OriginalURLs:      []string{"https://storage.test/user_submissions/obj-1.jpg"},
		ProcessedURLs:     []*string{nil},
		Evidence:          []models.Evidence{{}},
		Results:           []models.VerifierResult{{Label: 1, Confidence: 0.95, Reason: "clear match"}},
		Label:             1,
		Confidence:        0.95,
		Status:            models.StatusNeedsReview,
		SubmittedAt:       time.Now().UTC(),
	}
	id, err := subs.Create(context.Background(), sub)
	require.NoError(t, err)
	return id
}

func newReviewFixture() (*fakeSubmissions, *capturingPublisher, *ReviewService) {
	subs := newFakeSubmissions()
	publisher := &capturingPublisher{}
	users := &fakeUsers{users: map[string]*models.User{
		"user-1":  testUser(),
		"admin-1": {ID: "admin-1", Email: "admin@example.com", Role: "admin"},
	}}
	return subs, publisher, NewReviewService(users, subs, publisher)
}

func TestReviewApprove(t *testing.T) {
	subs, publisher, svc := newReviewFixture()
	id := seedSubmission(t, subs)

	sub, err := svc.Review(context.Background(), id, "admin-1", models.ReviewRequest{
		Status:     models.StatusApproved,
		AdminNotes: "All good",
	})
	require.NoError(t, err)

	assert.Equal(t, models.StatusApproved, sub.Status)
	assert.Equal(t, "admin-1", sub.ReviewedBy)
	assert.Equal(t, "All good", sub.AdminNotes)
	require.NotNil(t, sub.ReviewedAt)
	assert.WithinDuration(t, time.Now().UTC(), *sub.ReviewedAt, 5*time.Second)

	require.Len(t, publisher.events, 1)
	event := publisher.events[0]
	assert.Equal(t, id, event.SubmissionID)
	assert.Equal(t, "user-1", event.UserID)
	assert.Equal(t, "Business Permit", event.DocumentTitle)
	assert.Equal(t, models.StatusApproved, event.Status)
}

func TestReviewNotesRequired(t *testing.T) {
	subs, _, svc := newReviewFixture()
	id := seedSubmission(t, subs)

	for _, status := range []models.SubmissionStatus{models.StatusApproved, models.StatusRejected, models.StatusNeedsReview} {
		for _, notes := range []string{"", "   ", "\t\n"} {
			_, err := svc.Review(context.Background(), id, "admin-1", models.ReviewRequest{Status: status, AdminNotes: notes})
			assert.ErrorIs(t, err, ErrEmptyNotes, "status %s notes %q", status, notes)
		}
	}

	// No mutation happened.
	sub, err := subs.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusNeedsReview, sub.Status)
}

func TestReviewInvalidStatus(t *testing.T) {
	subs, _, svc := newReviewFixture()
	id := seedSubmission(t, subs)

	_, err := svc.Review(context.Background(), id, "admin-1", models.ReviewRequest{Status: "pending", AdminNotes: "n"})
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = svc.Review(context.Background(), id, "admin-1", models.ReviewRequest{Status: "banana", AdminNotes: "n"})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestReviewRequiresAdmin(t *testing.T) {
	subs, _, svc := newReviewFixture()
	id := seedSubmission(t, subs)

	_, err := svc.Review(context.Background(), id, "user-1", models.ReviewRequest{Status: models.StatusApproved, AdminNotes: "n"})
	assert.ErrorIs(t, err, ErrNotAdmin)

	_, err = svc.Review(context.Background(), id, "nobody", models.ReviewRequest{Status: models.StatusApproved, AdminNotes: "n"})
	assert.ErrorIs(t, err, ErrNotAdmin)
}

func TestReviewUnknownSubmission(t *testing.T) {
	_, _, svc := newReviewFixture()
	_, err := svc.Review(context.Background(), "missing", "admin-1", models.ReviewRequest{Status: models.StatusApproved, AdminNotes: "n"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestReviewTerminalTransitionHappensOnce(t *testing.T) {
	subs, publisher, svc := newReviewFixture()
	id := seedSubmission(t, subs)

	_, err := svc.Review(context.Background(), id, "admin-1", models.ReviewRequest{Status: models.StatusRejected, AdminNotes: "wrong document"})
	require.NoError(t, err)

	// The second reviewer observes the committed terminal state and errors;
	// the record keeps the first reviewer's outcome.
	_, err = svc.Review(context.Background(), id, "admin-1", models.ReviewRequest{Status: models.StatusApproved, AdminNotes: "looks fine"})
	assert.ErrorIs(t, err, store.ErrAlreadyReviewed)

	sub, err := subs.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, sub.Status)
	assert.Equal(t, "wrong document", sub.AdminNotes)

	assert.Len(t, publisher.events, 1, "no second notification after a lost reviewer race")
}

func TestReviewNeedsReviewStaysReviewable(t *testing.T) {
	subs, _, svc := newReviewFixture()
	id := seedSubmission(t, subs)

	_, err := svc.Review(context.Background(), id, "admin-1", models.ReviewRequest{Status: models.StatusNeedsReview, AdminNotes: "please re-upload page 2"})
	require.NoError(t, err)

	sub, err := svc.Review(context.Background(), id, "admin-1", models.ReviewRequest{Status: models.StatusApproved, AdminNotes: "resolved"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, sub.Status)
}

func TestReviewPublishFailureDoesNotFailTransition(t *testing.T) {
	subs := newFakeSubmissions()
	publisher := &capturingPublisher{err: assert.AnError}
	users := &fakeUsers{users: map[string]*models.User{"admin-1": {ID: "admin-1", Role: "admin"}}}
	svc := NewReviewService(users, subs, publisher)
	id := seedSubmission(t, subs)

	sub, err := svc.Review(context.Background(), id, "admin-1", models.ReviewRequest{Status: models.StatusApproved, AdminNotes: "ok"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, sub.Status)
}
