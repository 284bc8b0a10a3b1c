package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ammerola/stocksync/internal/core/domain"
	"github.com/ammerola/stocksync/internal/core/ports"
	"github.com/ammerola/stocksync/test/helpers"
	"github.com/ammerola/stocksync/test/mocks"
)

func TestBuildDataset(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	ds := BuildDataset(7, 40, now)

	require.Len(t, ds.Inventory, len(catalog))
	require.Len(t, ds.Transactions, 40)
	assert.Len(t, ds.Users, 3)

	for i := range ds.Inventory {
		assert.NoError(t, ds.Inventory[i].Validate(), ds.Inventory[i].Name)
		assert.GreaterOrEqual(t, ds.Inventory[i].Quantity, 0)
	}

	opening := make(map[string]int, len(ds.Inventory))
	for _, item := range ds.Inventory {
		opening[item.ID] = 0
	}
	recomputed := domain.RecomputeStock(opening, ds.Transactions)
	for _, item := range ds.Inventory {
		assert.Equal(t, recomputed[item.ID], item.Quantity, item.Name)
	}

	for i := range ds.Transactions {
		assert.NoError(t, ds.Transactions[i].Validate())
	}

	again := BuildDataset(7, 40, now)
	assert.Equal(t, ds.Inventory[0].ID, again.Inventory[0].ID)
	assert.Equal(t, ds.Transactions[39].ID, again.Transactions[39].ID)
}

func TestPushDataset(t *testing.T) {
	ds := BuildDataset(1, 15, time.Now())

	t.Run("pushes_in_order_with_increasing_versions", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mocks.NewMockRemoteStore(ctrl)

		var pushed []domain.Collection
		var last int64
		store.EXPECT().PushCollection(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, c domain.Collection, _ interface{}, version int64) ports.PushResult {
				assert.Greater(t, version, last)
				last = version
				pushed = append(pushed, c)
				return ports.PushResult{Success: true}
			}).Times(7)

		require.NoError(t, pushDataset(context.Background(), store, ds, time.Now(), helpers.TestLogger()))
		assert.Equal(t, domain.CollectionSettings, pushed[0])
		assert.Equal(t, domain.CollectionRejects, pushed[6])
	})

	t.Run("newer_than_client_pushes", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mocks.NewMockRemoteStore(ctrl)

		now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
		stored := map[domain.Collection]int64{}
		for _, c := range domain.AllCollections() {
			stored[c] = domain.VersionAt(now.Add(-time.Minute))
		}
		store.EXPECT().PushCollection(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, c domain.Collection, _ interface{}, version int64) ports.PushResult {
				if version <= stored[c] {
					return ports.PushResult{Message: "stale version"}
				}
				stored[c] = version
				return ports.PushResult{Success: true}
			}).Times(7)

		require.NoError(t, pushDataset(context.Background(), store, ds, now, helpers.TestLogger()))
	})

	t.Run("stops_at_first_failure", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mocks.NewMockRemoteStore(ctrl)
		store.EXPECT().PushCollection(gomock.Any(), domain.CollectionSettings, gomock.Any(), gomock.Any()).
			Return(ports.PushResult{Success: true})
		store.EXPECT().PushCollection(gomock.Any(), domain.CollectionSuppliers, gomock.Any(), gomock.Any()).
			Return(ports.PushResult{Message: "stale version"})

		err := pushDataset(context.Background(), store, ds, time.Now(), helpers.TestLogger())
		assert.ErrorContains(t, err, "suppliers")
	})
}
