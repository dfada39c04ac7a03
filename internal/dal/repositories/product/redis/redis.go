package redisrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/corray333/backend-labs/shop/internal/service/models/product"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "product:"

func key(id int64) string {
	return keyPrefix + strconv.FormatInt(id, 10)
}

// ProductCache keeps JSON copies of single products with a fixed TTL.
type ProductCache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewProductCache(rdb redis.Cmdable, ttl time.Duration) *ProductCache {
	return &ProductCache{
		rdb: rdb,
		ttl: ttl,
	}
}

func (c *ProductCache) Get(ctx context.Context, id int64) (product.Product, bool, error) {
	raw, err := c.rdb.Get(ctx, key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return product.Product{}, false, nil
	}
	if err != nil {
		return product.Product{}, false, fmt.Errorf("failed to get product %d from cache: %w", id, err)
	}

	var p product.Product
	if err := json.Unmarshal(raw, &p); err != nil {
		return product.Product{}, false, fmt.Errorf("failed to decode cached product %d: %w", id, err)
	}

	return p, true, nil
}

func (c *ProductCache) Set(ctx context.Context, p product.Product) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode product %d: %w", p.ID, err)
	}

	if err := c.rdb.Set(ctx, key(p.ID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache product %d: %w", p.ID, err)
	}

	return nil
}

func (c *ProductCache) Invalidate(ctx context.Context, id int64) error {
	if err := c.rdb.Del(ctx, key(id)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate product %d: %w", id, err)
	}

	return nil
}
