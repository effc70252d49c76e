// Package notify carries review outcomes to the user's devices. The review
// transition publishes an event to NATS; a separate worker consumes it and
// performs the push delivery, so notification failures stay isolated from
// the transactional state change.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/palengkehub/vendorpermits/internal/models"
)

// SubjectReviewed is the NATS subject review events are published on.
const SubjectReviewed = "submissions.reviewed"

// Bus wraps a NATS connection for the review event stream.
type Bus struct {
	conn *nats.Conn
}

// NewBus connects to the NATS server at url.
func NewBus(url string) (*Bus, error) {
	conn, err := nats.Connect(url, nats.Name("vendorpermits"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	return &Bus{conn: conn}, nil
}

// PublishReviewed emits one review event. Delivery is at-most-once; the
// caller treats failures as non-fatal.
func (b *Bus) PublishReviewed(_ context.Context, event models.ReviewedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal review event: %w", err)
	}
	if err := b.conn.Publish(SubjectReviewed, payload); err != nil {
		return fmt.Errorf("failed to publish review event: %w", err)
	}
	return nil
}

// SubscribeReviewed invokes handler for each review event until the
// connection closes. Malformed payloads are logged and skipped.
func (b *Bus) SubscribeReviewed(ctx context.Context, handler func(context.Context, models.ReviewedEvent)) (*nats.Subscription, error) {
	sub, err := b.conn.Subscribe(SubjectReviewed, func(msg *nats.Msg) {
		var event models.ReviewedEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			slog.Error("Failed to unmarshal review event.", "error", err, "data", string(msg.Data))
			return
		}
		handler(ctx, event)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", SubjectReviewed, err)
	}
	return sub, nil
}

// Close drains and closes the underlying connection.
func (b *Bus) Close() {
	if b.conn != nil {
		_ = b.conn.Drain()
	}
}
