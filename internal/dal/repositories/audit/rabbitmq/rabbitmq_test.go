package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/corray333/backend-labs/shop/internal/service/models/auditlog"
	"github.com/corray333/backend-labs/shop/internal/service/models/outbox"
	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	mu   sync.Mutex
	fail map[string]bool
	sent []amqp.Publishing
}

func (f *fakePublisher) Publish(_ context.Context, _, _ string, msg amqp.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var e auditlog.Entry
	_ = json.Unmarshal(msg.Body, &e)
	if f.fail[e.Description] {
		return errors.New("channel closed")
	}
	f.sent = append(f.sent, msg)

	return nil
}

type fakeOutbox struct {
	mu   sync.Mutex
	msgs []outbox.Message
	err  error
}

func (f *fakeOutbox) Enqueue(_ context.Context, msg outbox.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msg)

	return nil
}

func TestPublishSendsPersistentJSON(t *testing.T) {
	pub := &fakePublisher{}
	repo := NewAuditRabbitMQRepository(pub, "shop.audit", "audit.entry.created")

	err := repo.Publish(context.Background(),
		auditlog.Entry{ID: 1, Action: auditlog.ActionCreate, Description: "a"},
		auditlog.Entry{ID: 2, Action: auditlog.ActionDelete, Description: "b"},
	)
	require.NoError(t, err)
	require.Len(t, pub.sent, 2)
	for _, msg := range pub.sent {
		assert.Equal(t, "application/json", msg.ContentType)
		assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
		assert.NotEmpty(t, msg.MessageId)
	}
}

func TestPublishFallsBackToOutbox(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	pub := &fakePublisher{fail: map[string]bool{"broken": true}}
	box := &fakeOutbox{}

	repo := NewAuditRabbitMQRepository(pub, "shop.audit", "audit.entry.created",
		WithOutbox(box, 3, time.Minute),
		WithQueue("shop.audit.entries"),
	)
	repo.now = func() time.Time { return now }

	err := repo.Publish(context.Background(),
		auditlog.Entry{ID: 1, Description: "fine"},
		auditlog.Entry{ID: 2, Description: "broken"},
	)
	require.NoError(t, err)
	assert.Len(t, pub.sent, 1)
	require.Len(t, box.msgs, 1)

	msg := box.msgs[0]
	assert.Equal(t, outbox.Destination{
		Exchange:   "shop.audit",
		RoutingKey: "audit.entry.created",
		Queue:      "shop.audit.entries",
	}, msg.Destination)
	assert.Equal(t, 3, msg.MaxRetries)
	assert.Equal(t, now.Add(time.Minute), msg.NextRetryAt)
	assert.Equal(t, "channel closed", msg.LastError)
	assert.NotEmpty(t, msg.MessageID)
}

func TestPublishReportsFailureWithoutOutbox(t *testing.T) {
	pub := &fakePublisher{fail: map[string]bool{"broken": true}}
	repo := NewAuditRabbitMQRepository(pub, "x", "y")

	err := repo.Publish(context.Background(), auditlog.Entry{ID: 5, Description: "broken"})
	require.Error(t, err)
}

func TestPublishReportsOutboxFailure(t *testing.T) {
	pub := &fakePublisher{fail: map[string]bool{"broken": true}}
	box := &fakeOutbox{err: errors.New("db down")}
	repo := NewAuditRabbitMQRepository(pub, "x", "y", WithOutbox(box, 1, time.Second))

	err := repo.Publish(context.Background(), auditlog.Entry{ID: 5, Description: "broken"})
	require.Error(t, err)
}
