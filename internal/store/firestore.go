package store

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/palengkehub/vendorpermits/internal/gcp"
	"github.com/palengkehub/vendorpermits/internal/models"
)

// FirestoreSubmissions implements SubmissionStore on a Firestore collection.
type FirestoreSubmissions struct {
	client     *firestore.Client
	collection string
}

// NewFirestoreSubmissions creates a submission store on the default
// collection.
func NewFirestoreSubmissions(client *firestore.Client) *FirestoreSubmissions {
	return &FirestoreSubmissions{client: client, collection: gcp.CollectionSubmissions}
}

func (s *FirestoreSubmissions) Create(ctx context.Context, sub *models.Submission) (string, error) {
	docRef, _, err := s.client.Collection(s.collection).Add(ctx, sub)
	if err != nil {
		return "", fmt.Errorf("failed to create submission record: %w", err)
	}
	sub.ID = docRef.ID
	return docRef.ID, nil
}

func (s *FirestoreSubmissions) Get(ctx context.Context, id string) (*models.Submission, error) {
	snap, err := s.client.Collection(s.collection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get submission %s: %w", id, err)
	}
	var sub models.Submission
	if err := snap.DataTo(&sub); err != nil {
		return nil, fmt.Errorf("failed to decode submission %s: %w", id, err)
	}
	sub.ID = snap.Ref.ID
	return &sub, nil
}

func (s *FirestoreSubmissions) ListByUser(ctx context.Context, userID string) ([]models.Submission, error) {
	iter := s.client.Collection(s.collection).
		Where("userId", "==", userID).
		OrderBy("submittedAt", firestore.Desc).
		Documents(ctx)
	return decodeSubmissions(iter.GetAll())
}

func (s *FirestoreSubmissions) ListAll(ctx context.Context) ([]models.Submission, error) {
	iter := s.client.Collection(s.collection).
		OrderBy("submittedAt", firestore.Desc).
		Documents(ctx)
	return decodeSubmissions(iter.GetAll())
}

func (s *FirestoreSubmissions) Delete(ctx context.Context, id string) error {
	ref := s.client.Collection(s.collection).Doc(id)
	if _, err := ref.Get(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return ErrNotFound
		}
		return fmt.Errorf("failed to look up submission %s: %w", id, err)
	}
	if _, err := ref.Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete submission %s: %w", id, err)
	}
	return nil
}

// ApplyReview runs the status transition inside a Firestore transaction so a
// reviewer race cannot double-apply a terminal state.
func (s *FirestoreSubmissions) ApplyReview(ctx context.Context, id string, review Review) (*models.Submission, error) {
	ref := s.client.Collection(s.collection).Doc(id)
	var updated models.Submission

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return ErrNotFound
			}
			return fmt.Errorf("failed to read submission in transaction: %w", err)
		}
		var sub models.Submission
		if err := snap.DataTo(&sub); err != nil {
			return fmt.Errorf("failed to decode submission in transaction: %w", err)
		}
		if sub.Status.Terminal() {
			return ErrAlreadyReviewed
		}

		if err := tx.Update(ref, []firestore.Update{
			{Path: "status", Value: review.Status},
			{Path: "reviewedAt", Value: review.ReviewedAt},
			{Path: "reviewedBy", Value: review.ReviewerID},
			{Path: "adminNotes", Value: review.AdminNotes},
		}); err != nil {
			return fmt.Errorf("failed to update submission in transaction: %w", err)
		}

		sub.ID = snap.Ref.ID
		sub.Status = review.Status
		reviewedAt := review.ReviewedAt
		sub.ReviewedAt = &reviewedAt
		sub.ReviewedBy = review.ReviewerID
		sub.AdminNotes = review.AdminNotes
		updated = sub
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func decodeSubmissions(snaps []*firestore.DocumentSnapshot, err error) ([]models.Submission, error) {
	if err != nil {
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	subs := make([]models.Submission, 0, len(snaps))
	for _, snap := range snaps {
		var sub models.Submission
		if err := snap.DataTo(&sub); err != nil {
			return nil, fmt.Errorf("failed to decode submission %s: %w", snap.Ref.ID, err)
		}
		sub.ID = snap.Ref.ID
		subs = append(subs, sub)
	}
	return subs, nil
}

// FirestoreUsers implements UserStore.
type FirestoreUsers struct {
	client *firestore.Client
}

func NewFirestoreUsers(client *firestore.Client) *FirestoreUsers {
	return &FirestoreUsers{client: client}
}

func (s *FirestoreUsers) Get(ctx context.Context, id string) (*models.User, error) {
	snap, err := s.client.Collection(gcp.CollectionUsers).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user %s: %w", id, err)
	}
	var user models.User
	if err := snap.DataTo(&user); err != nil {
		return nil, fmt.Errorf("failed to decode user %s: %w", id, err)
	}
	user.ID = snap.Ref.ID
	return &user, nil
}

// FirestoreBaseDocuments implements BaseDocumentStore.
type FirestoreBaseDocuments struct {
	client *firestore.Client
}

func NewFirestoreBaseDocuments(client *firestore.Client) *FirestoreBaseDocuments {
	return &FirestoreBaseDocuments{client: client}
}

func (s *FirestoreBaseDocuments) Get(ctx context.Context, id string) (*models.BaseDocument, error) {
	snap, err := s.client.Collection(gcp.CollectionBaseDocs).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get base document %s: %w", id, err)
	}
	var doc models.BaseDocument
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode base document %s: %w", id, err)
	}
	doc.ID = snap.Ref.ID
	return &doc, nil
}

func (s *FirestoreBaseDocuments) ListActive(ctx context.Context) ([]models.BaseDocument, error) {
	snaps, err := s.client.Collection(gcp.CollectionBaseDocs).
		Where("isActive", "==", true).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to query base documents: %w", err)
	}
	docs := make([]models.BaseDocument, 0, len(snaps))
	for _, snap := range snaps {
		var doc models.BaseDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode base document %s: %w", snap.Ref.ID, err)
		}
		doc.ID = snap.Ref.ID
		docs = append(docs, doc)
	}
	return docs, nil
}

// FirestoreDeviceTokens implements DeviceTokenStore.
type FirestoreDeviceTokens struct {
	client *firestore.Client
}

func NewFirestoreDeviceTokens(client *firestore.Client) *FirestoreDeviceTokens {
	return &FirestoreDeviceTokens{client: client}
}

func (s *FirestoreDeviceTokens) Tokens(ctx context.Context, userID string) ([]string, error) {
	snap, err := s.client.Collection(gcp.CollectionDeviceTokens).Doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get device tokens for user %s: %w", userID, err)
	}
	var tokens models.DeviceTokens
	if err := snap.DataTo(&tokens); err != nil {
		return nil, fmt.Errorf("failed to decode device tokens for user %s: %w", userID, err)
	}
	return tokens.Tokens, nil
}
