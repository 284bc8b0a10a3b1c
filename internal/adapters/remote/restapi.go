// internal/adapters/remote/restapi.go
package remote

import (
	"context"
	"log/slog"
	"strings"

	"github.com/ammerola/stocksync/internal/core/domain"
	"github.com/ammerola/stocksync/internal/core/ports"
)

// RESTStore talks to the REST+SQL backend under <base>/api
type RESTStore struct {
	base   string
	client *httpClient
	logger *slog.Logger
}

var _ ports.RemoteStore = (*RESTStore)(nil)

// NewRESTStore creates a client for the API at baseURL. A trailing "/api"
// segment is accepted and dropped.
func NewRESTStore(baseURL, apiKey string, opts Options, logger *slog.Logger) *RESTStore {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	base = strings.TrimSuffix(base, "/api")

	logger = logger.With(slog.String("component", "remote"), slog.String("backend", string(domain.BackendRESTAPI)))
	return &RESTStore{
		base:   base,
		client: newHTTPClient(opts, apiKey, logger),
		logger: logger,
	}
}

func (s *RESTStore) Kind() domain.BackendKind { return domain.BackendRESTAPI }

// CheckHealth probes GET /api/health. The database flag decides the backend
// status; without it the envelope status is used.
func (s *RESTStore) CheckHealth(ctx context.Context) domain.HealthResult {
	env, err := s.client.get(ctx, s.base+"/api/health")
	if err != nil {
		s.logger.WarnContext(ctx, "health probe failed", slog.String("error", err.Error()))
		return probeFailure(err)
	}

	res := domain.HealthResult{TransportOnline: true, BackendStatus: domain.BackendUnknown, Message: env.Message}
	switch strings.ToUpper(env.Database) {
	case string(domain.BackendConnected):
		res.BackendStatus = domain.BackendConnected
	case string(domain.BackendDisconnected):
		res.BackendStatus = domain.BackendDisconnected
	default:
		switch {
		case env.ok():
			res.BackendStatus = domain.BackendConnected
		case env.Status == statusError:
			res.BackendStatus = domain.BackendDisconnected
		}
	}
	return res
}

// FetchFullState reads GET /api/data
func (s *RESTStore) FetchFullState(ctx context.Context) (*domain.FullState, error) {
	env, err := s.client.get(ctx, s.base+"/api/data")
	if err != nil {
		s.logger.ErrorContext(ctx, "fetch failed", slog.String("error", err.Error()))
		return nil, err
	}
	fs, err := decodeFullState(env)
	if err != nil {
		s.logger.ErrorContext(ctx, "fetch rejected", slog.String("error", err.Error()))
		return nil, err
	}
	return fs, nil
}

type restSyncRequest struct {
	Type    string      `json:"type"`
	Data    interface{} `json:"data"`
	Version int64       `json:"version,omitempty"`
}

// PushCollection posts the whole collection to /api/sync
func (s *RESTStore) PushCollection(ctx context.Context, c domain.Collection, data interface{}, version int64) ports.PushResult {
	env, err := s.client.post(ctx, s.base+"/api/sync", "application/json", restSyncRequest{
		Type:    c.String(),
		Data:    data,
		Version: version,
	})
	res := pushResult(env, err)
	if !res.Success {
		s.logger.WarnContext(ctx, "push failed",
			slog.String("collection", c.String()),
			slog.String("message", res.Message))
	}
	return res
}
