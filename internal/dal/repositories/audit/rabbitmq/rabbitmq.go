package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/corray333/backend-labs/shop/internal/service/models/auditlog"
	"github.com/corray333/backend-labs/shop/internal/service/models/outbox"
	"github.com/google/uuid"
	"github.com/streadway/amqp"
	"golang.org/x/sync/errgroup"
)

const contentType = "application/json"

type publisher interface {
	Publish(ctx context.Context, exchange, routingKey string, msg amqp.Publishing) error
}

type outboxStore interface {
	Enqueue(ctx context.Context, msg outbox.Message) error
}

// AuditRabbitMQRepository streams stored audit entries to an exchange.
// A publication that fails is parked in the outbox for the retry worker.
type AuditRabbitMQRepository struct {
	client     publisher
	outbox     outboxStore
	exchange   string
	routingKey string
	queue      string
	maxRetries int
	backoff    time.Duration
	log        *slog.Logger
	now        func() time.Time
}

type option func(*AuditRabbitMQRepository)

// WithOutbox enables the outbox fallback.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithOutbox(store outboxStore, maxRetries int, backoff time.Duration) option {
	return func(r *AuditRabbitMQRepository) {
		r.outbox = store
		r.maxRetries = maxRetries
		r.backoff = backoff
	}
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithLogger(log *slog.Logger) option {
	return func(r *AuditRabbitMQRepository) {
		r.log = log
	}
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithQueue(queue string) option {
	return func(r *AuditRabbitMQRepository) {
		r.queue = queue
	}
}

func NewAuditRabbitMQRepository(
	client publisher,
	exchange, routingKey string,
	opts ...option,
) *AuditRabbitMQRepository {
	r := &AuditRabbitMQRepository{
		client:     client,
		exchange:   exchange,
		routingKey: routingKey,
		maxRetries: 5,
		backoff:    30 * time.Second,
		log:        slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Publish sends every entry as a separate persistent JSON message. Entries
// that cannot be sent are written to the outbox when one is configured, and
// only a failure to do that is reported.
func (r *AuditRabbitMQRepository) Publish(ctx context.Context, entries ...auditlog.Entry) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(3)

	for _, entry := range entries {
		g.Go(func() error {
			body, err := json.Marshal(entry)
			if err != nil {
				return fmt.Errorf("failed to marshal audit entry %d: %w", entry.ID, err)
			}

			msgID := uuid.NewString()
			err = r.client.Publish(gctx, r.exchange, r.routingKey, amqp.Publishing{
				ContentType:  contentType,
				DeliveryMode: amqp.Persistent,
				MessageId:    msgID,
				Timestamp:    r.now(),
				Type:         "audit." + string(entry.Action),
				Body:         body,
			})
			if err == nil {
				return nil
			}

			if r.outbox == nil {
				return fmt.Errorf("failed to publish audit entry %d: %w", entry.ID, err)
			}

			r.log.WarnContext(ctx, "Failed to publish audit entry, saving to outbox",
				"audit_id", entry.ID,
				"error", err,
			)

			dest := outbox.Destination{Exchange: r.exchange, RoutingKey: r.routingKey, Queue: r.queue}
			parked := outbox.New(msgID, dest, body, contentType, r.maxRetries, err, r.now(), r.backoff)
			// The outbox write must not be cancelled by a failed sibling publication.
			if oerr := r.outbox.Enqueue(context.WithoutCancel(ctx), parked); oerr != nil {
				return fmt.Errorf("failed to save audit entry %d to outbox: %w", entry.ID, oerr)
			}

			return nil
		})
	}

	return g.Wait()
}
