// internal/adapters/redis_adapter/cache.go
package redis_a

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ammerola/stocksync/internal/core/ports"
)

// Cache keeps JSON values in redis for the sync server
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

var _ ports.CacheRepository = (*Cache)(nil)

// NewCache creates a cache whose Set uses ttl. Zero means no expiry.
func NewCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *Cache {
	return &Cache{
		client: client,
		ttl:    ttl,
		logger: logger.With(slog.String("component", "cache")),
	}
}

// Get decodes key into dest. A missing key, or a value that no longer decodes
// into dest, is reported as ports.ErrCacheMiss; the stale value is dropped.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return ports.ErrCacheMiss
	case err != nil:
		return c.fail(ctx, "get", key, err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.WarnContext(ctx, "dropping undecodable cache entry",
			slog.String("key", key),
			slog.String("error", err.Error()))
		if err := c.client.Del(ctx, key).Err(); err != nil {
			return c.fail(ctx, "del", key, err)
		}
		return ports.ErrCacheMiss
	}
	return nil
}

// Set stores value under key with the cache's default ttl
func (c *Cache) Set(ctx context.Context, key string, value interface{}) error {
	_, err := c.store(ctx, key, value, c.ttl)
	return err
}

// Delete removes keys. Missing keys are not an error.
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return c.fail(ctx, "del", fmt.Sprint(keys), err)
	}
	c.logger.DebugContext(ctx, "cache invalidated", slog.Any("keys", keys))
	return nil
}

// GetOrSet serves key from the cache or fills it from fetch. When the write
// back fails the fetched value is still returned.
func (c *Cache) GetOrSet(ctx context.Context, key string, dest interface{},
	fetch func() (interface{}, error), ttl time.Duration) error {

	err := c.Get(ctx, key, dest)
	if !errors.Is(err, ports.ErrCacheMiss) {
		return err
	}

	value, err := fetch()
	if err != nil {
		return fmt.Errorf("fetch error: %w", err)
	}

	data, err := c.store(ctx, key, value, ttl)
	if data == nil {
		return err
	}
	if err != nil {
		c.logger.WarnContext(ctx, "serving uncached value", slog.String("key", key))
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("unmarshal error: %w", err)
	}
	return nil
}

// store encodes and writes value. The encoded bytes are returned even when
// the write fails; they are nil only when encoding fails.
func (c *Cache) store(ctx context.Context, key string, value interface{}, ttl time.Duration) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("marshal error: %w", err)
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return data, c.fail(ctx, "set", key, err)
	}
	c.logger.DebugContext(ctx, "cache stored",
		slog.String("key", key),
		slog.Int("bytes", len(data)),
		slog.Duration("ttl", ttl))
	return data, nil
}

func (c *Cache) fail(ctx context.Context, op, key string, err error) error {
	c.logger.ErrorContext(ctx, "redis "+op+" failed",
		slog.String("key", key),
		slog.String("error", err.Error()))
	return fmt.Errorf("redis %s error: %w", op, err)
}
