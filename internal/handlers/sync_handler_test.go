// internal/handlers/sync_handler_test.go
package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ammerola/stocksync/internal/core/domain"
	"github.com/ammerola/stocksync/internal/core/ports"
	"github.com/ammerola/stocksync/internal/handlers"
	"github.com/ammerola/stocksync/test/helpers"
	"github.com/ammerola/stocksync/test/mocks"
)

type response struct {
	Status   string          `json:"status"`
	Database string          `json:"database"`
	Message  string          `json:"message"`
	Data     json.RawMessage `json:"data"`
}

func decode(t *testing.T, body []byte) response {
	t.Helper()
	var r response
	require.NoError(t, json.Unmarshal(body, &r))
	return r
}

func TestSyncHandler_Health(t *testing.T) {
	tests := []struct {
		name         string
		pingErr      error
		wantDatabase string
	}{
		{name: "database_connected", wantDatabase: "CONNECTED"},
		{name: "database_down_still_200", pingErr: errors.New("connection refused"), wantDatabase: "DISCONNECTED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			db := mocks.NewMockDatabase(ctrl)
			db.EXPECT().Ping(gomock.Any()).Return(tt.pingErr)

			h := handlers.NewSyncHandler(mocks.NewMockSyncService(ctrl), nil, db, 0, helpers.TestLogger())
			w := httptest.NewRecorder()
			h.Health(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))

			assert.Equal(t, http.StatusOK, w.Code)
			r := decode(t, w.Body.Bytes())
			assert.Equal(t, "ok", r.Status)
			assert.Equal(t, tt.wantDatabase, r.Database)
		})
	}
}

func TestSyncHandler_GetData(t *testing.T) {
	t.Run("returns_snapshot", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		service := mocks.NewMockSyncService(ctrl)
		service.EXPECT().Snapshot(gomock.Any()).Return(ports.Snapshot{
			domain.CollectionInventory: json.RawMessage(`[{"id":"a"}]`),
			domain.CollectionSettings:  json.RawMessage(`{}`),
		}, nil)

		h := handlers.NewSyncHandler(service, nil, mocks.NewMockDatabase(ctrl), 0, helpers.TestLogger())
		w := httptest.NewRecorder()
		h.GetData(w, httptest.NewRequest(http.MethodGet, "/api/data", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		r := decode(t, w.Body.Bytes())
		assert.Equal(t, "success", r.Status)
		assert.JSONEq(t, `{"inventory":[{"id":"a"}],"settings":{}}`, string(r.Data))
	})

	t.Run("service_failure", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		service := mocks.NewMockSyncService(ctrl)
		service.EXPECT().Snapshot(gomock.Any()).Return(nil, errors.New("pool closed"))

		h := handlers.NewSyncHandler(service, nil, mocks.NewMockDatabase(ctrl), 0, helpers.TestLogger())
		w := httptest.NewRecorder()
		h.GetData(w, httptest.NewRequest(http.MethodGet, "/api/data", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "error", decode(t, w.Body.Bytes()).Status)
	})
}

func TestSyncHandler_Sync(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		maxBody        int64
		setupMocks     func(*mocks.MockSyncService)
		expectedStatus int
		expectedMsg    string
	}{
		{
			name: "successfully_syncs_collection",
			body: `{"type":"inventory","data":[{"id":"a"}],"version":5}`,
			setupMocks: func(m *mocks.MockSyncService) {
				m.EXPECT().
					Push(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, req ports.PushRequest) error {
						assert.Equal(t, "inventory", req.Type)
						assert.Equal(t, int64(5), req.Version)
						assert.JSONEq(t, `[{"id":"a"}]`, string(req.Data))
						return nil
					})
			},
			expectedStatus: http.StatusOK,
			expectedMsg:    "inventory synced",
		},
		{
			name: "stale_version_conflict",
			body: `{"type":"users","data":[],"version":1}`,
			setupMocks: func(m *mocks.MockSyncService) {
				m.EXPECT().Push(gomock.Any(), gomock.Any()).
					Return(fmt.Errorf("failed to replace users: %w", domain.ErrStaleVersion))
			},
			expectedStatus: http.StatusConflict,
			expectedMsg:    "stale version",
		},
		{
			name: "unknown_collection",
			body: `{"type":"orders","data":[]}`,
			setupMocks: func(m *mocks.MockSyncService) {
				m.EXPECT().Push(gomock.Any(), gomock.Any()).
					Return(fmt.Errorf("%w: \"orders\"", domain.ErrUnknownCollection))
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "storage_failure",
			body: `{"type":"rejects","data":[]}`,
			setupMocks: func(m *mocks.MockSyncService) {
				m.EXPECT().Push(gomock.Any(), gomock.Any()).Return(errors.New("deadlock detected"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedMsg:    "Failed to store data",
		},
		{
			name:           "invalid_json",
			body:           `{"type":`,
			setupMocks:     func(*mocks.MockSyncService) {},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "Invalid request body",
		},
		{
			name:           "body_too_large",
			body:           `{"type":"inventory","data":[` + strings.Repeat(`{"id":"x"},`, 20) + `{}]}`,
			maxBody:        64,
			setupMocks:     func(*mocks.MockSyncService) {},
			expectedStatus: http.StatusRequestEntityTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			service := mocks.NewMockSyncService(ctrl)
			tt.setupMocks(service)

			h := handlers.NewSyncHandler(service, nil, mocks.NewMockDatabase(ctrl), tt.maxBody, helpers.TestLogger())
			req := httptest.NewRequest(http.MethodPost, "/api/sync", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			h.Sync(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			r := decode(t, w.Body.Bytes())
			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, "success", r.Status)
			} else {
				assert.Equal(t, "error", r.Status)
			}
			if tt.expectedMsg != "" {
				assert.Equal(t, tt.expectedMsg, r.Message)
			}
		})
	}
}

func TestSyncHandler_LatestAudit(t *testing.T) {
	ctrl := gomock.NewController(t)
	audits := mocks.NewMockAuditService(ctrl)
	h := handlers.NewSyncHandler(mocks.NewMockSyncService(ctrl), audits, mocks.NewMockDatabase(ctrl), 0, helpers.TestLogger())

	audits.EXPECT().Latest(gomock.Any()).Return(nil, fmt.Errorf("%w: none", domain.ErrNotFound))
	w := httptest.NewRecorder()
	h.LatestAudit(w, httptest.NewRequest(http.MethodGet, "/api/audit/latest", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	audits.EXPECT().Latest(gomock.Any()).Return(&domain.StockAudit{Reason: "schedule", ItemCount: 3}, nil)
	w = httptest.NewRecorder()
	h.LatestAudit(w, httptest.NewRequest(http.MethodGet, "/api/audit/latest", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	var audit domain.StockAudit
	require.NoError(t, json.Unmarshal(decode(t, w.Body.Bytes()).Data, &audit))
	assert.Equal(t, 3, audit.ItemCount)
}
