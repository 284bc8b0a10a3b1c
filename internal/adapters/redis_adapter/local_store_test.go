package redis_a_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redis_a "github.com/ammerola/stocksync/internal/adapters/redis_adapter"
	"github.com/ammerola/stocksync/internal/core/domain"
	"github.com/ammerola/stocksync/internal/core/ports"
	"github.com/ammerola/stocksync/test/helpers"
)

func TestLocalStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	store := redis_a.NewLocalStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "", helpers.TestLogger())
	t.Cleanup(func() { store.Close() })

	items := []domain.InventoryItem{{ID: "1", Name: "Bolt", BaseUnit: "Pcs", Quantity: 18}}
	require.NoError(t, store.Save(ctx, "inventory", items))

	assert.True(t, mr.Exists("stocksync:inventory"))
	assert.Zero(t, mr.TTL("stocksync:inventory"), "local keys never expire")

	var loaded []domain.InventoryItem
	require.NoError(t, store.Load(ctx, "inventory", &loaded))
	require.Len(t, loaded, 1)
	assert.Equal(t, 18, loaded[0].Quantity)

	var missing []domain.Supplier
	assert.ErrorIs(t, store.Load(ctx, "suppliers", &missing), ports.ErrKeyNotFound)

	require.NoError(t, store.Save(ctx, domain.SessionKey, domain.User{ID: "u1"}))
	require.NoError(t, store.Clear(ctx, "inventory"))
	assert.False(t, mr.Exists("stocksync:inventory"))
	assert.True(t, mr.Exists("stocksync:"+domain.SessionKey))
}

func TestLocalStore_CorruptValue(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	store := redis_a.NewLocalStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "wh1", helpers.TestLogger())
	t.Cleanup(func() { store.Close() })

	require.NoError(t, mr.Set("wh1:transactions", "{not json"))

	var txs []domain.Transaction
	err := store.Load(ctx, "transactions", &txs)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ports.ErrKeyNotFound)
}

func TestLocalStore_Unavailable(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	store := redis_a.NewLocalStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "", helpers.TestLogger())
	t.Cleanup(func() { store.Close() })
	mr.Close()

	assert.Error(t, store.Save(ctx, "inventory", []domain.InventoryItem{}))
}
