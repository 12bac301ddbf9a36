// Package pricecache stores the single latest price sample in Redis.
package pricecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"updown_backend/internal/feature/market/domain/entity"
)

// ErrNoPrice is returned when no sample is stored or the stored sample has
// expired because the feed went silent.
var ErrNoPrice = errors.New("no price data available")

// Cache holds the latest PriceSample under a single key with a TTL.
// Redis SET replaces the value atomically, so readers always observe a
// fully written sample; expiry is handled by the key TTL.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
	key string
}

// New creates a price cache. If ttl is 0 it defaults to 5 minutes, and an
// empty key defaults to "price:latest".
func New(rdb *redis.Client, ttl time.Duration, key string) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if key == "" {
		key = "price:latest"
	}
	return &Cache{rdb: rdb, ttl: ttl, key: key}
}

// Set overwrites the stored sample and resets the TTL.
func (c *Cache) Set(ctx context.Context, sample entity.PriceSample) error {
	data, err := json.Marshal(sample)
	if err != nil {
		return fmt.Errorf("failed to marshal price sample: %w", err)
	}
	if err := c.rdb.Set(ctx, c.key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store price sample: %w", err)
	}
	return nil
}

// Get returns the latest sample, or ErrNoPrice when the key is absent or
// expired.
func (c *Cache) Get(ctx context.Context) (entity.PriceSample, error) {
	data, err := c.rdb.Get(ctx, c.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return entity.PriceSample{}, ErrNoPrice
		}
		return entity.PriceSample{}, err
	}

	var sample entity.PriceSample
	if err := json.Unmarshal(data, &sample); err != nil {
		return entity.PriceSample{}, fmt.Errorf("failed to unmarshal price sample: %w", err)
	}
	return sample, nil
}
