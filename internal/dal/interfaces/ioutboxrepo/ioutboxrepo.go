package ioutboxrepo

import (
	"context"
	"time"

	"github.com/corray333/backend-labs/shop/internal/service/models/outbox"
)

// IOutboxRepository parks audit publications the broker refused.
type IOutboxRepository interface {
	Enqueue(ctx context.Context, msg outbox.Message) error

	// Due returns up to limit messages with retries left whose next attempt
	// is at or before now, oldest attempt first.
	Due(ctx context.Context, now time.Time, limit int) ([]outbox.Message, error)

	Ack(ctx context.Context, id int64) error

	// Reschedule counts a failed retry and moves the next attempt to at.
	Reschedule(ctx context.Context, id int64, cause string, at time.Time) error
}
