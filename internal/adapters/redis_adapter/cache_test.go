package redis_a_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redis_a "github.com/ammerola/stocksync/internal/adapters/redis_adapter"
	"github.com/ammerola/stocksync/internal/core/domain"
	"github.com/ammerola/stocksync/internal/core/ports"
	"github.com/ammerola/stocksync/test/helpers"
)

func newCache(t *testing.T, ttl time.Duration) (*redis_a.Cache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return redis_a.NewCache(client, ttl, helpers.TestLogger()), mr
}

func TestCache_SetAndGet(t *testing.T) {
	ctx := context.Background()
	cache, _ := newCache(t, 5*time.Minute)

	tests := []struct {
		name  string
		key   string
		value interface{}
	}{
		{
			name:  "string",
			key:   "test:string",
			value: "test value",
		},
		{
			name: "snapshot",
			key:  "sync:snapshot",
			value: ports.Snapshot{
				domain.CollectionInventory: json.RawMessage(`[{"id":"1","quantity":3}]`),
			},
		},
		{
			name: "audit",
			key:  "audit:latest",
			value: domain.StockAudit{
				Reason:    "push:inventory",
				ItemCount: 2,
				LowStock:  []domain.LowStockEntry{{ItemID: "a", Name: "Bolt", Quantity: 1, MinLevel: 5}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, cache.Set(ctx, tt.key, tt.value))

			var got json.RawMessage
			require.NoError(t, cache.Get(ctx, tt.key, &got))

			want, err := json.Marshal(tt.value)
			require.NoError(t, err)
			assert.JSONEq(t, string(want), string(got))
		})
	}
}

func TestCache_Expiry(t *testing.T) {
	ctx := context.Background()

	t.Run("default_ttl_expires", func(t *testing.T) {
		cache, mr := newCache(t, time.Second)
		require.NoError(t, cache.Set(ctx, "audit:latest", "value"))

		mr.FastForward(2 * time.Second)

		var result string
		assert.ErrorIs(t, cache.Get(ctx, "audit:latest", &result), ports.ErrCacheMiss)
	})

	t.Run("zero_ttl_keeps_value", func(t *testing.T) {
		cache, mr := newCache(t, 0)
		require.NoError(t, cache.Set(ctx, "audit:latest", "value"))

		assert.Zero(t, mr.TTL("audit:latest"))
		mr.FastForward(time.Hour)

		var result string
		require.NoError(t, cache.Get(ctx, "audit:latest", &result))
		assert.Equal(t, "value", result)
	})
}

func TestCache_UndecodableEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	cache, mr := newCache(t, time.Minute)

	require.NoError(t, mr.Set("sync:snapshot", `["not","a","map"]`))

	var snap ports.Snapshot
	assert.ErrorIs(t, cache.Get(ctx, "sync:snapshot", &snap), ports.ErrCacheMiss)
	assert.False(t, mr.Exists("sync:snapshot"))
}

func TestCache_Delete(t *testing.T) {
	ctx := context.Background()
	cache, mr := newCache(t, time.Minute)

	keys := []string{"sync:snapshot", "audit:latest", "other"}
	for _, key := range keys {
		require.NoError(t, cache.Set(ctx, key, "value"))
	}

	require.NoError(t, cache.Delete(ctx, keys[:2]...))
	require.NoError(t, cache.Delete(ctx, "never:set"))
	require.NoError(t, cache.Delete(ctx))

	assert.False(t, mr.Exists("sync:snapshot"))
	assert.False(t, mr.Exists("audit:latest"))
	assert.True(t, mr.Exists("other"))
}

func TestCache_GetOrSet(t *testing.T) {
	ctx := context.Background()

	t.Run("fetches_once", func(t *testing.T) {
		cache, mr := newCache(t, 0)

		fetchCount := 0
		fetch := func() (interface{}, error) {
			fetchCount++
			return ports.Snapshot{domain.CollectionInventory: json.RawMessage(`[{"id":"1"}]`)}, nil
		}

		var first ports.Snapshot
		require.NoError(t, cache.GetOrSet(ctx, "sync:snapshot", &first, fetch, time.Minute))
		assert.JSONEq(t, `[{"id":"1"}]`, string(first[domain.CollectionInventory]))
		assert.Equal(t, time.Minute, mr.TTL("sync:snapshot"))

		var second ports.Snapshot
		require.NoError(t, cache.GetOrSet(ctx, "sync:snapshot", &second, fetch, time.Minute))
		assert.Equal(t, first, second)
		assert.Equal(t, 1, fetchCount)
	})

	t.Run("fetch_error", func(t *testing.T) {
		cache, mr := newCache(t, 0)

		var snap ports.Snapshot
		err := cache.GetOrSet(ctx, "sync:snapshot", &snap, func() (interface{}, error) {
			return nil, errors.New("database down")
		}, time.Minute)
		assert.ErrorContains(t, err, "database down")
		assert.False(t, mr.Exists("sync:snapshot"))
	})

	t.Run("redis_down", func(t *testing.T) {
		cache, mr := newCache(t, 0)
		mr.Close()

		var snap ports.Snapshot
		err := cache.GetOrSet(ctx, "sync:snapshot", &snap, func() (interface{}, error) {
			t.Fatal("fetch must not run when the read fails")
			return nil, nil
		}, time.Minute)
		assert.ErrorContains(t, err, "redis get error")
	})
}
