package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ammerola/stocksync/internal/core/domain"
	"github.com/ammerola/stocksync/internal/core/ports"
	"github.com/ammerola/stocksync/internal/core/services"
	"github.com/ammerola/stocksync/test/helpers"
	"github.com/ammerola/stocksync/test/mocks"
)

type syncFixture struct {
	repo        *mocks.MockSyncRepository
	cache       *mocks.MockCacheRepository
	attachments *mocks.MockAttachmentStore
	tasks       *mocks.MockTaskEnqueuer
	service     *services.SyncService
}

func newSyncFixture(t *testing.T) *syncFixture {
	ctrl := gomock.NewController(t)
	f := &syncFixture{
		repo:        mocks.NewMockSyncRepository(ctrl),
		cache:       mocks.NewMockCacheRepository(ctrl),
		attachments: mocks.NewMockAttachmentStore(ctrl),
		tasks:       mocks.NewMockTaskEnqueuer(ctrl),
	}
	f.service = services.NewSyncService(f.repo, services.SyncServiceDeps{
		Cache:       f.cache,
		Attachments: f.attachments,
		Tasks:       f.tasks,
	}, helpers.TestLogger())
	return f
}

func TestSyncService_Push(t *testing.T) {
	tests := []struct {
		name    string
		req     ports.PushRequest
		setup   func(f *syncFixture)
		wantErr error
	}{
		{
			name: "inventory_replaced_and_audited",
			req:  ports.PushRequest{Type: "inventory", Data: json.RawMessage(`[{"id":"1"},{"id":"2"}]`), Version: 10},
			setup: func(f *syncFixture) {
				f.repo.EXPECT().ReplaceCollection(gomock.Any(), domain.CollectionInventory, gomock.Len(2), int64(10)).Return(nil)
				f.cache.EXPECT().Delete(gomock.Any(), "sync:snapshot").Return(nil)
				f.tasks.EXPECT().EnqueueStockAudit(gomock.Any(), "push:inventory").Return(nil)
			},
		},
		{
			name: "settings_upserted_without_audit",
			req:  ports.PushRequest{Type: "settings", Data: json.RawMessage(`{"companyName":"ACME"}`), Version: 3},
			setup: func(f *syncFixture) {
				f.repo.EXPECT().UpsertSettings(gomock.Any(), gomock.Len(1), int64(3)).Return(nil)
				f.cache.EXPECT().Delete(gomock.Any(), "sync:snapshot").Return(nil)
			},
		},
		{
			name: "empty_array_clears_collection",
			req:  ports.PushRequest{Type: "suppliers", Data: json.RawMessage(`[]`)},
			setup: func(f *syncFixture) {
				f.repo.EXPECT().ReplaceCollection(gomock.Any(), domain.CollectionSuppliers, gomock.Len(0), int64(0)).Return(nil)
				f.cache.EXPECT().Delete(gomock.Any(), "sync:snapshot").Return(nil)
			},
		},
		{
			name:    "unknown_type",
			req:     ports.PushRequest{Type: "orders", Data: json.RawMessage(`[]`)},
			wantErr: domain.ErrUnknownCollection,
		},
		{
			name:    "local_only_collection",
			req:     ports.PushRequest{Type: "table_prefs", Data: json.RawMessage(`{}`)},
			wantErr: domain.ErrUnknownCollection,
		},
		{
			name:    "array_expected",
			req:     ports.PushRequest{Type: "users", Data: json.RawMessage(`{"id":"u1"}`)},
			wantErr: domain.ErrValidation,
		},
		{
			name:    "missing_data",
			req:     ports.PushRequest{Type: "rejects"},
			wantErr: domain.ErrValidation,
		},
		{
			name: "stale_version",
			req:  ports.PushRequest{Type: "transactions", Data: json.RawMessage(`[]`), Version: 1},
			setup: func(f *syncFixture) {
				f.repo.EXPECT().ReplaceCollection(gomock.Any(), domain.CollectionTransactions, gomock.Any(), int64(1)).
					Return(domain.ErrStaleVersion)
			},
			wantErr: domain.ErrStaleVersion,
		},
		{
			name: "audit_enqueue_failure_is_not_fatal",
			req:  ports.PushRequest{Type: "transactions", Data: json.RawMessage(`[]`), Version: 2},
			setup: func(f *syncFixture) {
				f.repo.EXPECT().ReplaceCollection(gomock.Any(), domain.CollectionTransactions, gomock.Any(), int64(2)).Return(nil)
				f.cache.EXPECT().Delete(gomock.Any(), "sync:snapshot").Return(errors.New("redis down"))
				f.tasks.EXPECT().EnqueueStockAudit(gomock.Any(), "push:transactions").Return(errors.New("queue full"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSyncFixture(t)
			if tt.setup != nil {
				tt.setup(f)
			}

			err := f.service.Push(context.Background(), tt.req)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestSyncService_PushOffloadsInlinePhotos(t *testing.T) {
	f := newSyncFixture(t)
	data := `[
		{"id":"t1","type":"IN","photos":["data:image/png;base64,aGVsbG8=","https://cdn.test/kept.jpg"],"notes":"dock 3"},
		{"id":"t2","type":"OUT"}
	]`

	f.attachments.EXPECT().
		Upload(gomock.Any(), gomock.Any(), "image/png", []byte("hello")).
		DoAndReturn(func(_ context.Context, key, _ string, _ []byte) (string, error) {
			assert.Regexp(t, `^transactions/t1/.+\.png$`, key)
			return "https://bucket.test/" + key, nil
		})
	f.repo.EXPECT().
		ReplaceCollection(gomock.Any(), domain.CollectionTransactions, gomock.Any(), int64(5)).
		DoAndReturn(func(_ context.Context, _ domain.Collection, records []json.RawMessage, _ int64) error {
			require.Len(t, records, 2)
			var tx domain.Transaction
			require.NoError(t, json.Unmarshal(records[0], &tx))
			require.Len(t, tx.Photos, 2)
			assert.Contains(t, tx.Photos[0], "https://bucket.test/transactions/t1/")
			assert.Equal(t, "https://cdn.test/kept.jpg", tx.Photos[1])
			assert.Equal(t, "dock 3", tx.Notes)
			assert.JSONEq(t, `{"id":"t2","type":"OUT"}`, string(records[1]))
			return nil
		})
	f.cache.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(nil)
	f.tasks.EXPECT().EnqueueStockAudit(gomock.Any(), gomock.Any()).Return(nil)

	err := f.service.Push(context.Background(), ports.PushRequest{
		Type: "transactions", Data: json.RawMessage(data), Version: 5,
	})
	require.NoError(t, err)
}

func TestSyncService_Snapshot(t *testing.T) {
	stored := ports.Snapshot{
		domain.CollectionInventory: json.RawMessage(`[{"id":"1"}]`),
		domain.CollectionSettings:  json.RawMessage(`{}`),
	}

	t.Run("cache_miss_loads_database", func(t *testing.T) {
		f := newSyncFixture(t)
		f.repo.EXPECT().LoadAll(gomock.Any()).Return(stored, nil)
		f.cache.EXPECT().
			GetOrSet(gomock.Any(), "sync:snapshot", gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ string, dest interface{}, fetch func() (interface{}, error), _ time.Duration) error {
				v, err := fetch()
				if err != nil {
					return err
				}
				*dest.(*ports.Snapshot) = v.(ports.Snapshot)
				return nil
			})

		snap, err := f.service.Snapshot(context.Background())
		require.NoError(t, err)
		assert.Equal(t, stored, snap)
	})

	t.Run("cache_failure_falls_back", func(t *testing.T) {
		f := newSyncFixture(t)
		f.cache.EXPECT().GetOrSet(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(errors.New("connection refused"))
		f.repo.EXPECT().LoadAll(gomock.Any()).Return(stored, nil)

		snap, err := f.service.Snapshot(context.Background())
		require.NoError(t, err)
		assert.Len(t, snap, 2)
	})

	t.Run("without_cache", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := mocks.NewMockSyncRepository(ctrl)
		repo.EXPECT().LoadAll(gomock.Any()).Return(nil, errors.New("pool closed"))

		service := services.NewSyncService(repo, services.SyncServiceDeps{}, helpers.TestLogger())
		_, err := service.Snapshot(context.Background())
		assert.ErrorContains(t, err, "pool closed")
	})
}

func TestAuditService(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockSyncRepository(ctrl)
	cache := mocks.NewMockCacheRepository(ctrl)
	service := services.NewAuditService(repo, cache, helpers.TestLogger())

	repo.EXPECT().LoadAll(gomock.Any()).Return(ports.Snapshot{
		domain.CollectionInventory: json.RawMessage(`[
			{"id":"a","name":"Bolt","quantity":2,"minLevel":5,"baseUnit":"Pcs","unitPrice":"1.50"},
			{"id":"b","name":"Nut","quantity":7,"minLevel":1,"baseUnit":"Pcs"}
		]`),
		domain.CollectionTransactions: json.RawMessage(`[
			{"id":"t1","date":"2024-01-01","type":"IN","items":[{"itemId":"a","totalBaseQuantity":2}]},
			{"id":"t2","date":"2024-01-02","type":"IN","items":[{"itemId":"b","totalBaseQuantity":7}]}
		]`),
	}, nil)

	var stored domain.StockAudit
	cache.EXPECT().Set(gomock.Any(), services.LatestAuditKey, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, v interface{}) error {
			stored = v.(domain.StockAudit)
			return nil
		})

	audit, err := service.Run(context.Background(), "push:inventory")
	require.NoError(t, err)
	assert.Equal(t, "push:inventory", audit.Reason)
	assert.Equal(t, 2, audit.ItemCount)
	require.Len(t, audit.LowStock, 1)
	assert.Equal(t, "a", audit.LowStock[0].ItemID)
	assert.Empty(t, audit.Drift)
	assert.Equal(t, *audit, stored)

	cache.EXPECT().Get(gomock.Any(), services.LatestAuditKey, gomock.Any()).Return(ports.ErrCacheMiss)
	_, err = service.Latest(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
