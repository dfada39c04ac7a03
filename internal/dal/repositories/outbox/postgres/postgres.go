package postgresrepo

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/shop/internal/dal/postgres"
	"github.com/corray333/backend-labs/shop/internal/service/models/outbox"
	"github.com/jackc/pgx/v5"
)

const table = "outbox"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// writable is every column except the generated id, in insert order.
var writable = []string{
	"message_id",
	"queue_name",
	"exchange_name",
	"routing_key",
	"payload",
	"content_type",
	"retry_count",
	"max_retries",
	"last_error",
	"created_at",
	"updated_at",
	"next_retry_at",
}

// OutboxDal mirrors an outbox row.
type OutboxDal struct {
	ID           int64
	MessageID    string
	QueueName    string
	ExchangeName string
	RoutingKey   string
	Payload      []byte
	ContentType  string
	RetryCount   int
	MaxRetries   int
	LastError    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	NextRetryAt  time.Time
}

func FromModel(m outbox.Message) OutboxDal {
	return OutboxDal{
		ID:           m.ID,
		MessageID:    m.MessageID,
		QueueName:    m.Destination.Queue,
		ExchangeName: m.Destination.Exchange,
		RoutingKey:   m.Destination.RoutingKey,
		Payload:      m.Payload,
		ContentType:  m.ContentType,
		RetryCount:   m.Retries,
		MaxRetries:   m.MaxRetries,
		LastError:    m.LastError,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
		NextRetryAt:  m.NextRetryAt,
	}
}

func (d OutboxDal) ToModel() outbox.Message {
	return outbox.Message{
		ID:        d.ID,
		MessageID: d.MessageID,
		Destination: outbox.Destination{
			Exchange:   d.ExchangeName,
			RoutingKey: d.RoutingKey,
			Queue:      d.QueueName,
		},
		Payload:     d.Payload,
		ContentType: d.ContentType,
		Retries:     d.RetryCount,
		MaxRetries:  d.MaxRetries,
		LastError:   d.LastError,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
		NextRetryAt: d.NextRetryAt,
	}
}

func (d *OutboxDal) values() []any {
	return []any{
		d.MessageID, d.QueueName, d.ExchangeName, d.RoutingKey, d.Payload, d.ContentType,
		d.RetryCount, d.MaxRetries, d.LastError, d.CreatedAt, d.UpdatedAt, d.NextRetryAt,
	}
}

func (d *OutboxDal) fields() []any {
	return []any{
		&d.ID, &d.MessageID, &d.QueueName, &d.ExchangeName, &d.RoutingKey, &d.Payload, &d.ContentType,
		&d.RetryCount, &d.MaxRetries, &d.LastError, &d.CreatedAt, &d.UpdatedAt, &d.NextRetryAt,
	}
}

// OutboxRepository stores refused audit publications in PostgreSQL.
type OutboxRepository struct {
	conn postgres.Conn
}

func NewOutboxRepository(conn postgres.Conn) *OutboxRepository {
	return &OutboxRepository{conn: conn}
}

func enqueueQuery(m outbox.Message) (string, []any, error) {
	d := FromModel(m)

	return psql.Insert(table).
		Columns(writable...).
		Values(d.values()...).
		Suffix("ON CONFLICT (message_id) DO NOTHING").
		ToSql()
}

// Enqueue parks msg. A message id that is already parked is ignored.
func (r *OutboxRepository) Enqueue(ctx context.Context, msg outbox.Message) error {
	query, args, err := enqueueQuery(msg)
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}

	if _, err = r.conn.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to park message %s: %w", msg.MessageID, postgres.MapError(err))
	}

	return nil
}

func dueQuery(now time.Time, limit int) (string, []any, error) {
	return psql.Select(append([]string{"id"}, writable...)...).
		From(table).
		Where(sq.LtOrEq{"next_retry_at": now}).
		Where("retry_count < max_retries").
		OrderBy("next_retry_at ASC").
		Limit(uint64(limit)).
		ToSql()
}

func (r *OutboxRepository) Due(ctx context.Context, now time.Time, limit int) ([]outbox.Message, error) {
	query, args, err := dueQuery(now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query due messages: %w", postgres.MapError(err))
	}

	messages, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (outbox.Message, error) {
		var d OutboxDal
		if err := row.Scan(d.fields()...); err != nil {
			return outbox.Message{}, err
		}

		return d.ToModel(), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan due messages: %w", err)
	}

	return messages, nil
}

func (r *OutboxRepository) Ack(ctx context.Context, id int64) error {
	query, args, err := psql.Delete(table).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete query: %w", err)
	}

	if _, err = r.conn.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to ack message %d: %w", id, postgres.MapError(err))
	}

	return nil
}

func rescheduleQuery(id int64, cause string, at time.Time) (string, []any, error) {
	return psql.Update(table).
		Set("retry_count", sq.Expr("retry_count + 1")).
		Set("last_error", cause).
		Set("next_retry_at", at).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}).
		ToSql()
}

func (r *OutboxRepository) Reschedule(ctx context.Context, id int64, cause string, at time.Time) error {
	query, args, err := rescheduleQuery(id, cause, at)
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	if _, err = r.conn.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to reschedule message %d: %w", id, postgres.MapError(err))
	}

	return nil
}
