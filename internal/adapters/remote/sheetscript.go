// internal/adapters/remote/sheetscript.go
package remote

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/ammerola/stocksync/internal/core/domain"
	"github.com/ammerola/stocksync/internal/core/ports"
)

// SheetStore talks to a spreadsheet script web app. Actions are selected by
// query parameter on GET and by body field on POST.
type SheetStore struct {
	endpoint string
	apiKey   string
	client   *httpClient
	logger   *slog.Logger
}

var _ ports.RemoteStore = (*SheetStore)(nil)

// NewSheetStore creates a client for the script deployed at scriptURL
func NewSheetStore(scriptURL, apiKey string, opts Options, logger *slog.Logger) *SheetStore {
	logger = logger.With(slog.String("component", "remote"), slog.String("backend", string(domain.BackendSheetScript)))
	return &SheetStore{
		endpoint: strings.TrimSpace(scriptURL),
		apiKey:   apiKey,
		// script deployments cannot read request headers; the key travels in the query
		client: newHTTPClient(opts, "", logger),
		logger: logger,
	}
}

func (s *SheetStore) Kind() domain.BackendKind { return domain.BackendSheetScript }

func (s *SheetStore) actionURL(action string) (string, error) {
	u, err := url.Parse(s.endpoint)
	if err != nil {
		return "", fmt.Errorf("%w: invalid script URL: %v", ports.ErrTransport, err)
	}
	q := u.Query()
	q.Set("action", action)
	if s.apiKey != "" {
		q.Set("key", s.apiKey)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// CheckHealth calls ?action=ping. The spreadsheet is the database, so a
// successful ping means CONNECTED.
func (s *SheetStore) CheckHealth(ctx context.Context) domain.HealthResult {
	target, err := s.actionURL("ping")
	if err != nil {
		return probeFailure(err)
	}
	env, err := s.client.get(ctx, target)
	if err != nil {
		s.logger.WarnContext(ctx, "ping failed", slog.String("error", err.Error()))
		return probeFailure(err)
	}

	res := domain.HealthResult{TransportOnline: true, BackendStatus: domain.BackendUnknown, Message: env.Message}
	switch {
	case env.ok():
		res.BackendStatus = domain.BackendConnected
	case env.Status == statusError:
		res.BackendStatus = domain.BackendDisconnected
	}
	return res
}

// FetchFullState calls ?action=getData
func (s *SheetStore) FetchFullState(ctx context.Context) (*domain.FullState, error) {
	target, err := s.actionURL("getData")
	if err != nil {
		return nil, err
	}
	env, err := s.client.get(ctx, target)
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

type sheetSyncRequest struct {
	Action  string      `json:"action"`
	Type    string      `json:"type"`
	Data    interface{} `json:"data"`
	Version int64       `json:"version,omitempty"`
}

// PushCollection posts {action:"sync"} as text/plain, which script endpoints
// accept without a CORS preflight
func (s *SheetStore) PushCollection(ctx context.Context, c domain.Collection, data interface{}, version int64) ports.PushResult {
	target := s.endpoint
	if s.apiKey != "" {
		var err error
		if target, err = s.actionURL("sync"); err != nil {
			return ports.PushResult{Message: err.Error()}
		}
	}

	env, err := s.client.post(ctx, target, "text/plain;charset=utf-8", sheetSyncRequest{
		Action:  "sync",
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
