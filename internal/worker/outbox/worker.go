package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/corray333/backend-labs/shop/internal/config"
	"github.com/corray333/backend-labs/shop/internal/dal/interfaces/ioutboxrepo"
	"github.com/streadway/amqp"
)

const maxBackoff = time.Hour

type publisher interface {
	Publish(ctx context.Context, exchange, routingKey string, msg amqp.Publishing) error
}

// Worker redelivers messages parked in the outbox table.
type Worker struct {
	outboxRepo   ioutboxrepo.IOutboxRepository
	publisher    publisher
	pollInterval time.Duration
	batchSize    int
	baseBackoff  time.Duration
	log          *slog.Logger
	now          func() time.Time
	stopCh       chan struct{}
}

// option is a function that configures the Worker.
type option func(*Worker)

//goland:noinspection GoExportedFuncWithUnexportedType
func WithLogger(log *slog.Logger) option {
	return func(w *Worker) {
		w.log = log.With("component", "outbox-worker")
	}
}

// NewWorker creates a new outbox worker.
func NewWorker(
	outboxRepo ioutboxrepo.IOutboxRepository,
	pub publisher,
	cfg config.OutboxConfig,
	opts ...option,
) *Worker {
	w := &Worker{
		outboxRepo:   outboxRepo,
		publisher:    pub,
		pollInterval: cfg.PollInterval,
		batchSize:    cfg.BatchSize,
		baseBackoff:  cfg.BaseBackoff,
		log:          slog.Default(),
		now:          time.Now,
		stopCh:       make(chan struct{}),
	}
	if w.pollInterval <= 0 {
		w.pollInterval = 10 * time.Second
	}
	if w.batchSize <= 0 {
		w.batchSize = 100
	}
	if w.baseBackoff <= 0 {
		w.baseBackoff = 30 * time.Second
	}
	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Start processes the outbox every poll interval until ctx is done or Stop is called.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.log.Info("Outbox worker started", "poll_interval", w.pollInterval, "batch_size", w.batchSize)

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Outbox worker shutting down")

			return
		case <-w.stopCh:
			w.log.Info("Outbox worker stopped")

			return
		case <-ticker.C:
			w.processMessages(ctx)
		}
	}
}

// Stop stops the worker.
func (w *Worker) Stop() {
	close(w.stopCh)
}

// backoff doubles the delay with every failed attempt: base, 2×base, 4×base...
func (w *Worker) backoff(retryCount int) time.Duration {
	d := w.baseBackoff
	for range retryCount {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}

	return d
}

// processMessages publishes one batch of due messages.
func (w *Worker) processMessages(ctx context.Context) {
	messages, err := w.outboxRepo.Due(ctx, w.now(), w.batchSize)
	if err != nil {
		w.log.ErrorContext(ctx, "Failed to get pending messages from outbox", "error", err)

		return
	}

	if len(messages) == 0 {
		return
	}

	w.log.InfoContext(ctx, "Processing outbox messages", "count", len(messages))

	for _, msg := range messages {
		err := w.publisher.Publish(ctx, msg.Destination.Exchange, msg.Destination.RoutingKey, amqp.Publishing{
			ContentType:  msg.ContentType,
			DeliveryMode: amqp.Persistent,
			MessageId:    msg.MessageID,
			Timestamp:    w.now(),
			Body:         msg.Payload,
		})
		if err != nil {
			nextRetryAt := w.now().Add(w.backoff(msg.Retries))

			w.log.WarnContext(ctx, "Failed to publish message from outbox, will retry",
				"outbox_id", msg.ID,
				"retry_count", msg.Retries+1,
				"next_retry", nextRetryAt,
				"error", err,
			)

			if err := w.outboxRepo.Reschedule(ctx, msg.ID, err.Error(), nextRetryAt); err != nil {
				w.log.ErrorContext(ctx, "Failed to update retry information", "outbox_id", msg.ID, "error", err)

				continue
			}

			msg.Retries++
			if msg.Exhausted() {
				w.log.ErrorContext(ctx, "Outbox message exhausted its retries",
					"outbox_id", msg.ID,
					"message_id", msg.MessageID,
				)
			}

			continue
		}

		if err := w.outboxRepo.Ack(ctx, msg.ID); err != nil {
			w.log.ErrorContext(ctx, "Failed to delete message from outbox after successful publish",
				"outbox_id", msg.ID,
				"error", err,
			)

			continue
		}

		w.log.InfoContext(ctx, "Message successfully published and removed from outbox", "outbox_id", msg.ID)
	}
}
