package gcp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
)

// Uploader wraps a Cloud Storage bucket with the upload, read and signing
// operations the submission pipeline needs.
type Uploader struct {
	client *storage.Client
	bucket string
}

// NewUploader creates an Uploader bound to a single bucket.
func NewUploader(client *storage.Client, bucket string) (*Uploader, error) {
	if bucket == "" {
		return nil, fmt.Errorf("bucket name must be provided to create an uploader")
	}
	return &Uploader{client: client, bucket: bucket}, nil
}

// Bucket returns the bucket name the uploader writes to.
func (u *Uploader) Bucket() string {
	return u.bucket
}

// Upload writes data under the given folder with a generated unique name and
// returns the object name. Transient failures are retried with exponential
// backoff; the write itself is bounded by a per-attempt timeout.
func (u *Uploader) Upload(ctx context.Context, data []byte, folder, contentType, ext string) (string, error) {
	objectName := fmt.Sprintf("%s/%s%s", folder, uuid.NewString(), ext)

	const maxRetries = 4
	var backoff = 1 * time.Second
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		err := func() error {
			writeCtx, cancel := context.WithTimeout(ctx, time.Second*50)
			defer cancel()

			w := u.client.Bucket(u.bucket).Object(objectName).NewWriter(writeCtx)
			if contentType != "" {
				w.ContentType = contentType
			}
			if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
				_ = w.Close()
				return fmt.Errorf("io.Copy to GCS failed: %w", err)
			}
			if err := w.Close(); err != nil {
				return fmt.Errorf("failed to close GCS writer (finalize upload): %w", err)
			}
			return nil
		}()

		if err == nil {
			return objectName, nil
		}

		lastErr = err
		slog.Warn(
			"Upload failed, will retry.",
			"gcsObject", objectName,
			"attempt", i+1,
			"maxRetries", maxRetries,
			"backoff", backoff.String(),
			"error", err,
		)

		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			slog.Error("Context cancelled during backoff. Aborting retries.", "gcsObject", objectName, "error", ctx.Err())
			return "", ctx.Err()
		}
	}
	slog.Error("Upload failed after all retries.", "gcsObject", objectName, "error", lastErr)
	return "", fmt.Errorf("upload for %s failed after all retries: %w", objectName, lastErr)
}

// Read fetches the full content of an object in the uploader's bucket.
func (u *Uploader) Read(ctx context.Context, objectName string) ([]byte, error) {
	r, err := u.client.Bucket(u.bucket).Object(objectName).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get GCS object reader for gs://%s/%s: %w", u.bucket, objectName, err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read GCS object gs://%s/%s: %w", u.bucket, objectName, err)
	}
	return data, nil
}

// SignedViewURL returns a time-limited HTTPS URL clients can use to view an
// object without holding storage credentials.
func (u *Uploader) SignedViewURL(objectName string, ttl time.Duration) (string, error) {
	url, err := u.client.Bucket(u.bucket).SignedURL(objectName, &storage.SignedURLOptions{
		Method:  "GET",
		Expires: time.Now().Add(ttl),
		Scheme:  storage.SigningSchemeV4,
	})
	if err != nil {
		return "", fmt.Errorf("failed to sign URL for gs://%s/%s: %w", u.bucket, objectName, err)
	}
	return url, nil
}

// PublicURL returns the canonical HTTPS URL of an object. Stored on the
// submission record; clients receive signed URLs instead.
func (u *Uploader) PublicURL(objectName string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", u.bucket, objectName)
}
