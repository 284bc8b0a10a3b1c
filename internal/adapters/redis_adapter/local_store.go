// internal/adapters/redis_adapter/local_store.go
package redis_a

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/ammerola/stocksync/internal/core/ports"
)

// DefaultLocalPrefix namespaces local store keys
const DefaultLocalPrefix = "stocksync"

// LocalStore keeps collections in redis under "<prefix>:<key>" with no expiry
type LocalStore struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

var _ ports.LocalStore = (*LocalStore)(nil)

// NewLocalStore creates a redis backed local store
func NewLocalStore(client *redis.Client, prefix string, logger *slog.Logger) *LocalStore {
	if prefix == "" {
		prefix = DefaultLocalPrefix
	}
	return &LocalStore{
		client: client,
		prefix: prefix,
		logger: logger.With(slog.String("component", "redis_local_store")),
	}
}

func (s *LocalStore) key(k string) string {
	return s.prefix + ":" + k
}

// Load decodes the value stored under key into dest
func (s *LocalStore) Load(ctx context.Context, key string, dest interface{}) error {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ports.ErrKeyNotFound
		}
		return fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// Save stores value under key as JSON
func (s *LocalStore) Save(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.client.Set(ctx, s.key(key), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	s.logger.DebugContext(ctx, "key saved",
		slog.String("key", key),
		slog.Int("bytes", len(data)))
	return nil
}

// Clear removes the given keys
func (s *LocalStore) Clear(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.key(k)
	}
	if err := s.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Close closes the underlying client
func (s *LocalStore) Close() error {
	return s.client.Close()
}
