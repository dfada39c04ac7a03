package rabbitmq

import (
	"context"
	"testing"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishAfterClose(t *testing.T) {
	c := &Client{closed: true}

	err := c.Publish(context.Background(), "shop.audit", "audit.entry.created", amqp.Publishing{})
	require.ErrorIs(t, err, ErrClosed)
	assert.NoError(t, c.Close())
}

func TestPublishCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := (&Client{}).Publish(ctx, "shop.audit", "audit.entry.created", amqp.Publishing{})
	assert.ErrorIs(t, err, context.Canceled)
}
