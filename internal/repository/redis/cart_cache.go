package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/egannguyen/storefront-core/internal/repository"
	goredis "github.com/redis/go-redis/v9"
)

const cartKeyPrefix = "cart:"

type cartCache struct {
	client *goredis.Client
	ttl    time.Duration
}

// NewCartCache creates a Redis-backed cart snapshot cache. Snapshots expire
// with the session TTL so abandoned carts don't pile up.
func NewCartCache(client *goredis.Client, ttl time.Duration) repository.CartCache {
	return &cartCache{client: client, ttl: ttl}
}

func (c *cartCache) Get(ctx context.Context, cartID string) (*repository.CartSnapshot, error) {
	data, err := c.client.Get(ctx, cartKeyPrefix+cartID).Bytes()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cart snapshot: %w", err)
	}

	var snapshot repository.CartSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cart snapshot: %w", err)
	}
	return &snapshot, nil
}

func (c *cartCache) Set(ctx context.Context, snapshot *repository.CartSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal cart snapshot: %w", err)
	}
	if err := c.client.Set(ctx, cartKeyPrefix+snapshot.CartID, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cart snapshot: %w", err)
	}
	return nil
}

func (c *cartCache) Invalidate(ctx context.Context, cartID string) error {
	if err := c.client.Del(ctx, cartKeyPrefix+cartID).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cart snapshot: %w", err)
	}
	return nil
}
