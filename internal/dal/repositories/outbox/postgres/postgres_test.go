package postgresrepo

import (
	"errors"
	"testing"
	"time"

	"github.com/corray333/backend-labs/shop/internal/service/models/outbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDueQuery(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	sql, args, err := dueQuery(now, 50)
	require.NoError(t, err)
	assert.Contains(t, sql, "SELECT id, message_id, queue_name")
	assert.Contains(t, sql, "FROM outbox WHERE next_retry_at <= $1 AND retry_count < max_retries")
	assert.Contains(t, sql, "ORDER BY next_retry_at ASC LIMIT 50")
	assert.Equal(t, []any{now}, args)
}

func TestEnqueueQuery(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	dest := outbox.Destination{Exchange: "shop.audit", RoutingKey: "audit.entry.created", Queue: "shop.audit.entries"}
	msg := outbox.New("m-1", dest, []byte(`{}`), "application/json", 5, errors.New("closed"), now, time.Minute)

	sql, args, err := enqueueQuery(msg)
	require.NoError(t, err)
	assert.Contains(t, sql, "INSERT INTO outbox (message_id,queue_name,exchange_name,routing_key")
	assert.Contains(t, sql, "ON CONFLICT (message_id) DO NOTHING")
	require.Len(t, args, len(writable))
	assert.Equal(t, "m-1", args[0])
	assert.Equal(t, "shop.audit.entries", args[1])
	assert.Equal(t, "shop.audit", args[2])
	assert.Equal(t, now.Add(time.Minute), args[11])
}

func TestRescheduleQuery(t *testing.T) {
	at := time.Date(2025, 6, 1, 0, 1, 0, 0, time.UTC)

	sql, args, err := rescheduleQuery(7, "closed", at)
	require.NoError(t, err)
	assert.Equal(t,
		"UPDATE outbox SET retry_count = retry_count + 1, last_error = $1, next_retry_at = $2, updated_at = NOW() WHERE id = $3",
		sql)
	assert.Equal(t, []any{"closed", at, int64(7)}, args)
}

func TestDalRoundTrip(t *testing.T) {
	m := outbox.Message{
		ID:          3,
		MessageID:   "m-3",
		Destination: outbox.Destination{Exchange: "e", RoutingKey: "k", Queue: "q"},
		Retries:     2,
		MaxRetries:  5,
	}

	assert.Equal(t, m, FromModel(m).ToModel())
}
