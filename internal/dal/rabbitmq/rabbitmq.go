package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/corray333/backend-labs/shop/internal/config"
	"github.com/streadway/amqp"
)

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("rabbitmq client closed")

// Client is a single AMQP connection with one shared publishing channel.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	mu      sync.Mutex
	closed  bool
}

// NewClient dials RabbitMQ and opens a channel.
func NewClient(cfg config.RabbitMQConfig) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		if cerr := conn.Close(); cerr != nil {
			slog.Error("Failed to close a connection", "error", cerr)
		}
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	slog.Info("RabbitMQ connected", "host", cfg.Host, "port", cfg.Port)

	return &Client{
		conn:    conn,
		channel: channel,
	}, nil
}

// MustNewClient creates a new RabbitMQ client.
func MustNewClient(cfg config.RabbitMQConfig) *Client {
	client, err := NewClient(cfg)
	if err != nil {
		panic(err)
	}

	return client
}

// DeclareTopology declares a durable topic exchange and a durable queue bound
// to it with routingKey. Redeclaring an identical topology is a no-op.
func (r *Client) DeclareTopology(exchange, queue, routingKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.channel.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	if _, err := r.channel.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}

	if err := r.channel.QueueBind(queue, routingKey, exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", queue, err)
	}

	return nil
}

// Publish sends one message. Publications on the shared channel are serialized.
func (r *Client) Publish(ctx context.Context, exchange, routingKey string, msg amqp.Publishing) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}

	return r.channel.Publish(exchange, routingKey, false, false, msg)
}

// Close closes the channel and connection. Later publications fail with ErrClosed.
func (r *Client) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	if err := r.channel.Close(); err != nil {
		return fmt.Errorf("failed to close channel: %w", err)
	}

	return r.conn.Close()
}
