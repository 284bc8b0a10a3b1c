package remote

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammerola/stocksync/internal/core/domain"
	"github.com/ammerola/stocksync/internal/core/ports"
	"github.com/ammerola/stocksync/test/helpers"
)

func jsonHandler(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func TestRESTStore_CheckHealth(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantOnline bool
		wantStatus domain.BackendStatus
		wantState  domain.ConnectivityState
	}{
		{
			name:       "connected",
			handler:    jsonHandler(http.StatusOK, `{"status":"ok","database":"CONNECTED"}`),
			wantOnline: true,
			wantStatus: domain.BackendConnected,
			wantState:  domain.ConnectivityConnected,
		},
		{
			name:       "database_down",
			handler:    jsonHandler(http.StatusOK, `{"status":"ok","database":"DISCONNECTED","message":"pool closed"}`),
			wantOnline: true,
			wantStatus: domain.BackendDisconnected,
			wantState:  domain.ConnectivityDisconnected,
		},
		{
			name:       "no_database_flag_uses_status",
			handler:    jsonHandler(http.StatusOK, `{"status":"success"}`),
			wantOnline: true,
			wantStatus: domain.BackendConnected,
			wantState:  domain.ConnectivityConnected,
		},
		{
			name: "html_fallback_page",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				_, _ = io.WriteString(w, "<!doctype html><html></html>")
			},
			wantOnline: true,
			wantStatus: domain.BackendUnknown,
			wantState:  domain.ConnectivityUnknown,
		},
		{
			name:       "gateway_error",
			handler:    func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusBadGateway) },
			wantOnline: true,
			wantStatus: domain.BackendDisconnected,
			wantState:  domain.ConnectivityDisconnected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var path string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				path = r.URL.Path
				tt.handler(w, r)
			}))
			defer srv.Close()

			store := NewRESTStore(srv.URL+"/api/", "", Options{}, helpers.TestLogger())
			res := store.CheckHealth(context.Background())

			assert.Equal(t, "/api/health", path)
			assert.Equal(t, tt.wantOnline, res.TransportOnline)
			assert.Equal(t, tt.wantStatus, res.BackendStatus)
			assert.Equal(t, tt.wantState, domain.Classify(res))
		})
	}
}

func TestRESTStore_TransportFailures(t *testing.T) {
	t.Run("server_gone", func(t *testing.T) {
		srv := httptest.NewServer(jsonHandler(http.StatusOK, `{}`))
		url := srv.URL
		srv.Close()

		store := NewRESTStore(url, "", Options{}, helpers.TestLogger())
		res := store.CheckHealth(context.Background())
		assert.False(t, res.TransportOnline)
		assert.Equal(t, domain.ConnectivityOffline, domain.Classify(res))

		fs, err := store.FetchFullState(context.Background())
		assert.Nil(t, fs)
		assert.ErrorIs(t, err, ports.ErrTransport)
	})

	t.Run("timeout", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()
		defer close(release)

		store := NewRESTStore(srv.URL, "", Options{Timeout: 50 * time.Millisecond}, helpers.TestLogger())
		res := store.CheckHealth(context.Background())
		assert.False(t, res.TransportOnline)
	})
}

func TestRESTStore_FetchFullState(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr error
		check   func(t *testing.T, fs *domain.FullState)
	}{
		{
			name: "partial_payload",
			handler: jsonHandler(http.StatusOK, `{"status":"success","data":{
				"inventory":[{"id":"a","name":"Bolt","quantity":3}],
				"transactions":[],
				"settings":{"companyName":"ACME"}}}`),
			check: func(t *testing.T, fs *domain.FullState) {
				assert.Len(t, fs.Inventory, 1)
				assert.NotNil(t, fs.Transactions)
				assert.Empty(t, fs.Transactions)
				assert.Nil(t, fs.Suppliers)
				assert.False(t, fs.Has(domain.CollectionSuppliers))
				require.NotNil(t, fs.Settings)
				assert.Equal(t, "ACME", fs.Settings.CompanyName)
			},
		},
		{
			name:    "logical_error",
			handler: jsonHandler(http.StatusInternalServerError, `{"status":"error","message":"db timeout"}`),
			wantErr: ports.ErrBackendUnavailable,
		},
		{
			name: "html",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, "  <html><body>index</body></html>")
			},
			wantErr: ports.ErrMisconfiguredRoute,
		},
		{
			name:    "missing_data",
			handler: jsonHandler(http.StatusOK, `{"status":"success"}`),
			wantErr: ports.ErrBadPayload,
		},
		{
			name:    "wrong_shape",
			handler: jsonHandler(http.StatusOK, `{"status":"success","data":{"inventory":{"id":"a"}}}`),
			wantErr: ports.ErrBadPayload,
		},
		{
			name:    "not_json",
			handler: jsonHandler(http.StatusOK, `status=ok`),
			wantErr: ports.ErrBadPayload,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			store := NewRESTStore(srv.URL, "", Options{}, helpers.TestLogger())
			fs, err := store.FetchFullState(context.Background())

			if tt.wantErr != nil {
				assert.Nil(t, fs)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, fs)
		})
	}
}

func TestRESTStore_PushCollection(t *testing.T) {
	var got restSyncRequest
	var apiKey, contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/sync", r.URL.Path)
		apiKey = r.Header.Get(apiKeyHeader)
		contentType = r.Header.Get("Content-Type")
		var body struct {
			Type    string          `json:"type"`
			Data    json.RawMessage `json:"data"`
			Version int64           `json:"version"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		got = restSyncRequest{Type: body.Type, Data: string(body.Data), Version: body.Version}

		w.Header().Set("Content-Type", "application/json")
		if body.Version < 10 {
			w.WriteHeader(http.StatusConflict)
			_, _ = io.WriteString(w, `{"status":"error","message":"stale version"}`)
			return
		}
		_, _ = io.WriteString(w, `{"status":"success"}`)
	}))
	defer srv.Close()

	store := NewRESTStore(srv.URL, "secret", Options{}, helpers.TestLogger())
	suppliers := []domain.Supplier{{ID: "s1", Name: "Acme"}}

	res := store.PushCollection(context.Background(), domain.CollectionSuppliers, suppliers, 42)
	assert.True(t, res.Success)
	assert.Equal(t, "suppliers", got.Type)
	assert.Equal(t, int64(42), got.Version)
	assert.Contains(t, got.Data, `"s1"`)
	assert.Equal(t, "secret", apiKey)
	assert.Equal(t, "application/json", contentType)

	res = store.PushCollection(context.Background(), domain.CollectionSuppliers, suppliers, 3)
	assert.False(t, res.Success)
	assert.Equal(t, "stale version", res.Message)
}

func TestSheetStore(t *testing.T) {
	var lastBody map[string]interface{}
	var lastContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodPost {
			lastContentType = r.Header.Get("Content-Type")
			require.NoError(t, json.NewDecoder(r.Body).Decode(&lastBody))
			_, _ = io.WriteString(w, `{"status":"success"}`)
			return
		}
		assert.Equal(t, "k1", r.URL.Query().Get("key"))
		switch r.URL.Query().Get("action") {
		case "ping":
			_, _ = io.WriteString(w, `{"status":"success","message":"pong"}`)
		case "getData":
			_, _ = io.WriteString(w, `{"status":"success","data":{"users":[{"id":"u1","username":"ana","role":"admin"}]}}`)
		default:
			_, _ = io.WriteString(w, `{"status":"error","message":"unknown action"}`)
		}
	}))
	defer srv.Close()

	store := NewSheetStore(srv.URL+"/exec", "k1", Options{}, helpers.TestLogger())
	ctx := context.Background()

	health := store.CheckHealth(ctx)
	assert.Equal(t, domain.ConnectivityConnected, domain.Classify(health))
	assert.Equal(t, "pong", health.Message)

	fs, err := store.FetchFullState(ctx)
	require.NoError(t, err)
	require.Len(t, fs.Users, 1)
	assert.Equal(t, []domain.Collection{domain.CollectionUsers}, fs.Present())

	res := store.PushCollection(ctx, domain.CollectionRejects, []domain.RejectLog{}, 7)
	assert.True(t, res.Success)
	assert.Equal(t, "text/plain;charset=utf-8", lastContentType)
	assert.Equal(t, "sync", lastBody["action"])
	assert.Equal(t, "rejects", lastBody["type"])
	assert.Equal(t, []interface{}{}, lastBody["data"])
	assert.EqualValues(t, 7, lastBody["version"])
}

func TestSheetStore_ErrorStatusIsDisconnected(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(http.StatusOK, `{"status":"error","message":"sheet locked"}`))
	defer srv.Close()

	store := NewSheetStore(srv.URL, "", Options{}, helpers.TestLogger())
	res := store.CheckHealth(context.Background())
	assert.Equal(t, domain.ConnectivityDisconnected, domain.Classify(res))
	assert.Equal(t, "sheet locked", res.Message)
}

func TestNew(t *testing.T) {
	logger := helpers.TestLogger()
	tests := []struct {
		name string
		ep   domain.RemoteEndpoint
		want domain.BackendKind
	}{
		{name: "unconfigured", ep: domain.RemoteEndpoint{}, want: domain.BackendNone},
		{name: "kind_without_url", ep: domain.RemoteEndpoint{Kind: domain.BackendRESTAPI}, want: domain.BackendNone},
		{name: "restapi", ep: domain.RemoteEndpoint{Kind: domain.BackendRESTAPI, URL: "http://api.local"}, want: domain.BackendRESTAPI},
		{name: "sheetscript", ep: domain.RemoteEndpoint{Kind: domain.BackendSheetScript, URL: "https://script.local/exec"}, want: domain.BackendSheetScript},
	}

	factory := NewFactory(Options{}, logger)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, factory(tt.ep).Kind())
		})
	}

	disabled := Disabled{}
	fs, err := disabled.FetchFullState(context.Background())
	assert.Nil(t, fs)
	assert.ErrorIs(t, err, ports.ErrRemoteDisabled)
	assert.False(t, disabled.PushCollection(context.Background(), domain.CollectionUsers, nil, 1).Success)
}
