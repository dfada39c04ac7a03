package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/corray333/backend-labs/shop/internal/config"
	"github.com/redis/go-redis/v9"
)

// Client represents a Redis client.
type Client struct {
	rdb *redis.Client
}

// RDB returns the underlying go-redis client.
func (c *Client) RDB() *redis.Client {
	return c.rdb
}

// Close closes the connection pool for graceful shutdown.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// NewClient connects to Redis and checks the connection.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	slog.Info("Redis connection established", "addr", cfg.Addr)

	return &Client{rdb: rdb}, nil
}

// MustNewClient creates a new Redis client.
func MustNewClient(ctx context.Context, cfg config.RedisConfig) *Client {
	client, err := NewClient(ctx, cfg)
	if err != nil {
		panic(err)
	}

	return client
}
