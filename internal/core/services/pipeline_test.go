package services_test

import (
	"context"
	"errors"
	"testing"
	"testing/synctest"
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

type pipelineFixture struct {
	store    *helpers.MemoryStore
	remote   *mocks.MockRemoteStore
	monitor  *services.ConnectivityMonitor
	notifier *helpers.RecordingNotifier
	pipeline *services.MutationPipeline
}

func newPipelineFixture(t *testing.T, backend domain.BackendStatus) *pipelineFixture {
	ctrl := gomock.NewController(t)
	f := &pipelineFixture{
		store:    helpers.NewMemoryStore(),
		remote:   mocks.NewMockRemoteStore(ctrl),
		monitor:  services.NewConnectivityMonitor(helpers.TestLogger()),
		notifier: helpers.NewRecordingNotifier(),
	}
	f.monitor.Observe(context.Background(), domain.HealthResult{TransportOnline: true, BackendStatus: backend})
	f.pipeline = services.NewMutationPipeline(context.Background(), f.store, f.monitor, f.notifier,
		1500*time.Millisecond, time.Now, helpers.TestLogger())
	f.pipeline.SetRemote(f.remote)
	return f
}

func TestMutationPipeline_InactiveDropsSubmissions(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		f := newPipelineFixture(t, domain.BackendConnected)

		f.pipeline.Submit(domain.CollectionInventory, []domain.InventoryItem{{ID: "1"}})
		time.Sleep(5 * time.Second)
		synctest.Wait()

		assert.False(t, f.pipeline.Active())
		assert.Zero(t, f.store.SaveCount("inventory"))
	})
}

func TestMutationPipeline_CoalescesToOneSaveAndPush(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		f := newPipelineFixture(t, domain.BackendConnected)
		f.pipeline.Activate()

		first := []domain.InventoryItem{{ID: "1", Quantity: 1}}
		second := []domain.InventoryItem{{ID: "1", Quantity: 2}}
		start := time.Now()

		var pushedAt time.Duration
		f.remote.EXPECT().
			PushCollection(gomock.Any(), domain.CollectionInventory, second, gomock.Any()).
			DoAndReturn(func(context.Context, domain.Collection, any, int64) ports.PushResult {
				pushedAt = time.Since(start)
				return ports.PushResult{Success: true}
			}).
			Times(1)

		f.pipeline.Submit(domain.CollectionInventory, first)
		time.Sleep(500 * time.Millisecond)
		f.pipeline.Submit(domain.CollectionInventory, second)
		time.Sleep(3 * time.Second)
		synctest.Wait()

		assert.Equal(t, 1, f.store.SaveCount("inventory"))
		raw, ok := f.store.Raw("inventory")
		require.True(t, ok)
		assert.Contains(t, string(raw), `"quantity":2`)
		assert.Equal(t, 2000*time.Millisecond, pushedAt)
	})
}

func TestMutationPipeline_SavesLocallyWithoutTrustedRemote(t *testing.T) {
	tests := []struct {
		name    string
		backend domain.BackendStatus
	}{
		{name: "database_disconnected", backend: domain.BackendDisconnected},
		{name: "status_unknown", backend: domain.BackendUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			synctest.Test(t, func(t *testing.T) {
				f := newPipelineFixture(t, tt.backend)
				f.pipeline.Activate()

				f.pipeline.Submit(domain.CollectionSuppliers, []domain.Supplier{{ID: "s1", Name: "ACME"}})
				time.Sleep(2 * time.Second)
				synctest.Wait()

				assert.Equal(t, 1, f.store.SaveCount("suppliers"))
			})
		})
	}
}

func TestMutationPipeline_PushFailureNotifiesAndKeepsLocal(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		f := newPipelineFixture(t, domain.BackendConnected)
		f.pipeline.Activate()

		f.remote.EXPECT().
			PushCollection(gomock.Any(), domain.CollectionUsers, gomock.Any(), gomock.Any()).
			Return(ports.PushResult{Success: false, Message: "stale version"})

		f.pipeline.Submit(domain.CollectionUsers, []domain.User{{ID: "u1"}})
		time.Sleep(2 * time.Second)
		synctest.Wait()

		assert.Equal(t, 1, f.store.SaveCount("users"))
		notes := f.notifier.Notifications()
		require.Len(t, notes, 1)
		assert.Equal(t, ports.LevelError, notes[0].Level)
		assert.Contains(t, notes[0].Message, "stale version")
	})
}

func TestMutationPipeline_LocalSaveFailureStillPushes(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		f := newPipelineFixture(t, domain.BackendConnected)
		f.store.FailSave = errors.New("quota exceeded")
		f.pipeline.Activate()

		f.remote.EXPECT().
			PushCollection(gomock.Any(), domain.CollectionRejects, gomock.Any(), gomock.Any()).
			Return(ports.PushResult{Success: true})

		f.pipeline.Submit(domain.CollectionRejects, []domain.RejectLog{})
		time.Sleep(2 * time.Second)
		synctest.Wait()
	})
}

func TestMutationPipeline_TablePrefsStayLocal(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		f := newPipelineFixture(t, domain.BackendConnected)
		f.pipeline.Activate()

		f.pipeline.Submit(domain.CollectionTablePrefs, domain.TablePreferences{"inventory": {"sku": false}})
		time.Sleep(2 * time.Second)
		synctest.Wait()

		assert.Equal(t, 1, f.store.SaveCount("table_prefs"))
	})
}

func TestMutationPipeline_VersionsIncrease(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		f := newPipelineFixture(t, domain.BackendConnected)
		f.pipeline.Activate()

		var versions []int64
		f.remote.EXPECT().
			PushCollection(gomock.Any(), domain.CollectionTransactions, gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ domain.Collection, _ any, v int64) ports.PushResult {
				versions = append(versions, v)
				return ports.PushResult{Success: true}
			}).
			Times(3)

		start := time.Now()
		for i := 0; i < 3; i++ {
			f.pipeline.Submit(domain.CollectionTransactions, []domain.Transaction{})
			f.pipeline.Flush(context.Background())
		}

		require.Len(t, versions, 3)
		assert.Equal(t, domain.VersionAt(start), versions[0])
		assert.Less(t, versions[0], versions[1])
		assert.Less(t, versions[1], versions[2])
	})
}

func TestMutationPipeline_FlushAndStop(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		f := newPipelineFixture(t, domain.BackendDisconnected)
		f.pipeline.Activate()

		f.pipeline.Submit(domain.CollectionInventory, []domain.InventoryItem{})
		f.pipeline.Submit(domain.CollectionSuppliers, []domain.Supplier{})
		f.pipeline.Flush(context.Background())

		assert.Equal(t, 1, f.store.SaveCount("inventory"))
		assert.Equal(t, 1, f.store.SaveCount("suppliers"))

		f.pipeline.Submit(domain.CollectionInventory, []domain.InventoryItem{})
		f.pipeline.Stop()
		time.Sleep(5 * time.Second)
		synctest.Wait()

		assert.Equal(t, 1, f.store.SaveCount("inventory"))
	})
}
