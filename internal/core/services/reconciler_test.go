package services_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ammerola/stocksync/internal/core/domain"
	"github.com/ammerola/stocksync/internal/core/ports"
	"github.com/ammerola/stocksync/internal/core/services"
	"github.com/ammerola/stocksync/test/helpers"
	"github.com/ammerola/stocksync/test/mocks"
)

func TestReconciler_Sync(t *testing.T) {
	remoteState := &domain.FullState{Inventory: []domain.InventoryItem{{ID: "r1"}}}

	tests := []struct {
		name             string
		setupMocks       func(*mocks.MockRemoteStore)
		wantOutcome      domain.LoadOutcome
		wantConnectivity domain.ConnectivityState
		wantLevels       []ports.Level
		wantMessage      string
		wantRemote       bool
	}{
		{
			name: "transport_unreachable",
			setupMocks: func(m *mocks.MockRemoteStore) {
				m.EXPECT().CheckHealth(gomock.Any()).Return(domain.HealthResult{
					TransportOnline: false, BackendStatus: domain.BackendUnknown, Message: "connection refused",
				})
			},
			wantOutcome:      domain.OutcomeOffline,
			wantConnectivity: domain.ConnectivityOffline,
			wantLevels:       []ports.Level{ports.LevelError},
			wantMessage:      "connection refused",
		},
		{
			name: "database_disconnected_skips_fetch",
			setupMocks: func(m *mocks.MockRemoteStore) {
				m.EXPECT().CheckHealth(gomock.Any()).Return(domain.HealthResult{
					TransportOnline: true, BackendStatus: domain.BackendDisconnected, Message: "db down",
				})
				m.EXPECT().FetchFullState(gomock.Any()).Times(0)
			},
			wantOutcome:      domain.OutcomeDegraded,
			wantConnectivity: domain.ConnectivityDisconnected,
			wantLevels:       []ports.Level{ports.LevelWarning},
			wantMessage:      "database is disconnected",
		},
		{
			name: "healthy_fetch_succeeds",
			setupMocks: func(m *mocks.MockRemoteStore) {
				m.EXPECT().CheckHealth(gomock.Any()).Return(domain.HealthResult{
					TransportOnline: true, BackendStatus: domain.BackendConnected,
				})
				m.EXPECT().FetchFullState(gomock.Any()).Return(remoteState, nil)
			},
			wantOutcome:      domain.OutcomeOnline,
			wantConnectivity: domain.ConnectivityConnected,
			wantLevels:       []ports.Level{ports.LevelSuccess},
			wantRemote:       true,
		},
		{
			name: "healthy_fetch_returns_html",
			setupMocks: func(m *mocks.MockRemoteStore) {
				m.EXPECT().CheckHealth(gomock.Any()).Return(domain.HealthResult{
					TransportOnline: true, BackendStatus: domain.BackendConnected,
				})
				m.EXPECT().FetchFullState(gomock.Any()).
					Return(nil, fmt.Errorf("GET /api/data: %w", ports.ErrMisconfiguredRoute))
			},
			wantOutcome:      domain.OutcomeOffline,
			wantConnectivity: domain.ConnectivityOffline,
			wantLevels:       []ports.Level{ports.LevelError},
			wantMessage:      ports.ErrMisconfiguredRoute.Error(),
		},
		{
			name: "healthy_fetch_fails",
			setupMocks: func(m *mocks.MockRemoteStore) {
				m.EXPECT().CheckHealth(gomock.Any()).Return(domain.HealthResult{
					TransportOnline: true, BackendStatus: domain.BackendConnected,
				})
				m.EXPECT().FetchFullState(gomock.Any()).Return(nil, errors.New("status error: sheet locked"))
			},
			wantOutcome:      domain.OutcomeOffline,
			wantConnectivity: domain.ConnectivityOffline,
			wantLevels:       []ports.Level{ports.LevelError},
			wantMessage:      "sheet locked",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			remote := mocks.NewMockRemoteStore(ctrl)
			remote.EXPECT().Kind().Return(domain.BackendRESTAPI).AnyTimes()
			tt.setupMocks(remote)

			notifier := helpers.NewRecordingNotifier()
			monitor := services.NewConnectivityMonitor(helpers.TestLogger())
			r := services.NewReconciler(helpers.NewMemoryStore(), monitor, notifier, helpers.TestLogger())

			res := r.Sync(context.Background(), remote)

			assert.Equal(t, tt.wantOutcome, res.Outcome)
			assert.Equal(t, tt.wantConnectivity, res.Connectivity)
			assert.Equal(t, tt.wantConnectivity, monitor.State())
			assert.Equal(t, tt.wantLevels, notifier.Levels())
			assert.Contains(t, res.Message, tt.wantMessage)
			assert.Equal(t, tt.wantRemote, res.Remote != nil)
		})
	}
}

func TestReconciler_SyncWithoutRemote(t *testing.T) {
	monitor := services.NewConnectivityMonitor(helpers.TestLogger())
	monitor.Observe(context.Background(), domain.HealthResult{TransportOnline: true, BackendStatus: domain.BackendConnected})
	notifier := helpers.NewRecordingNotifier()
	r := services.NewReconciler(helpers.NewMemoryStore(), monitor, notifier, helpers.TestLogger())

	res := r.Sync(context.Background(), nil)

	assert.Equal(t, domain.OutcomeLocal, res.Outcome)
	assert.Equal(t, domain.ConnectivityUnknown, monitor.State())
	assert.Empty(t, notifier.Notifications())
}

func TestReconciler_LoadLocal(t *testing.T) {
	store := helpers.NewMemoryStore()
	store.Put("inventory", []domain.InventoryItem{{ID: "7", Name: "Bolt", Quantity: 18, BaseUnit: "Pcs"}})
	store.PutRaw("suppliers", []byte(`{not json`))
	store.Put("settings", domain.AppSettings{APIBaseURL: "http://api"})
	store.Put(domain.SessionKey, domain.User{ID: "u1", Username: "ana", Role: domain.RoleAdmin})

	r := services.NewReconciler(store, services.NewConnectivityMonitor(helpers.TestLogger()),
		helpers.NewRecordingNotifier(), helpers.TestLogger())

	state := r.LoadLocal(context.Background())

	require.Len(t, state.Inventory, 1)
	assert.Equal(t, 18, state.Inventory[0].Quantity)
	assert.NotNil(t, state.Suppliers, "corrupt key falls back to an empty collection")
	assert.Empty(t, state.Suppliers)
	assert.NotNil(t, state.Transactions)
	assert.Equal(t, "http://api", state.Settings.APIBaseURL)
	require.NotNil(t, state.CurrentUser)
	assert.Equal(t, "ana", state.CurrentUser.Username)
	assert.Equal(t, domain.PhaseInitializing, state.Phase)
}

func TestReconciler_LoadLocalUnavailableStore(t *testing.T) {
	store := helpers.NewMemoryStore()
	store.FailLoad = errors.New("storage disabled")
	r := services.NewReconciler(store, services.NewConnectivityMonitor(helpers.TestLogger()),
		helpers.NewRecordingNotifier(), helpers.TestLogger())

	state := r.LoadLocal(context.Background())

	assert.Empty(t, state.Inventory)
	assert.Nil(t, state.CurrentUser)
}
