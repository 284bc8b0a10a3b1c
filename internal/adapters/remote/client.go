// internal/adapters/remote/client.go
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/ammerola/stocksync/internal/core/domain"
	"github.com/ammerola/stocksync/internal/core/ports"
)

const (
	// DefaultTimeout bounds every remote request
	DefaultTimeout = 8 * time.Second

	maxResponseBytes = 32 << 20
	apiKeyHeader     = "X-API-Key"
)

// Response statuses used by both backend flavors
const (
	statusSuccess = "success"
	statusOK      = "ok"
	statusError   = "error"
)

// envelope is the JSON wrapper every backend response uses
type envelope struct {
	Status   string          `json:"status"`
	Database string          `json:"database,omitempty"`
	Message  string          `json:"message,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
}

func (e envelope) ok() bool {
	return e.Status == statusSuccess || e.Status == statusOK
}

// httpClient performs JSON exchanges and classifies failures into the
// ports.Err* taxonomy
type httpClient struct {
	http   *http.Client
	apiKey string
	logger *slog.Logger
}

func newHTTPClient(opts Options, apiKey string, logger *slog.Logger) *httpClient {
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	return &httpClient{http: client, apiKey: apiKey, logger: logger}
}

func (c *httpClient) get(ctx context.Context, url string) (envelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return envelope{}, fmt.Errorf("%w: build request: %v", ports.ErrTransport, err)
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req)
}

func (c *httpClient) post(ctx context.Context, url, contentType string, body interface{}) (envelope, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return envelope{}, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return envelope{}, fmt.Errorf("%w: build request: %v", ports.ErrTransport, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	return c.do(req)
}

func (c *httpClient) do(req *http.Request) (envelope, error) {
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return envelope{}, fmt.Errorf("%w: %v", ports.ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return envelope{}, fmt.Errorf("%w: read body: %v", ports.ErrTransport, err)
	}

	c.logger.DebugContext(req.Context(), "remote request",
		slog.String("method", req.Method),
		slog.String("path", req.URL.Path),
		slog.Int("status", resp.StatusCode),
		slog.Int("bytes", len(body)),
		slog.Duration("duration", time.Since(start)))

	if isHTML(resp.Header.Get("Content-Type"), body) {
		return envelope{}, ports.ErrMisconfiguredRoute
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return envelope{}, fmt.Errorf("%w: HTTP %d", ports.ErrBackendUnavailable, resp.StatusCode)
		}
		return envelope{}, fmt.Errorf("%w: %v", ports.ErrBadPayload, err)
	}
	if env.Status == "" && resp.StatusCode >= http.StatusBadRequest {
		env.Status = statusError
		if env.Message == "" {
			env.Message = fmt.Sprintf("HTTP %d", resp.StatusCode)
		}
	}
	return env, nil
}

// isHTML reports whether a response is a web page rather than API JSON
func isHTML(contentType string, body []byte) bool {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil && mediaType == "text/html" {
		return true
	}
	trimmed := bytes.TrimSpace(body)
	return len(trimmed) > 0 && trimmed[0] == '<'
}

// probeFailure folds a failed health request into a HealthResult. Only
// transport errors mean offline; a server that answers badly is online.
func probeFailure(err error) domain.HealthResult {
	switch {
	case errors.Is(err, ports.ErrTransport):
		return domain.HealthResult{TransportOnline: false, BackendStatus: domain.BackendUnknown, Message: err.Error()}
	case errors.Is(err, ports.ErrBackendUnavailable):
		return domain.HealthResult{TransportOnline: true, BackendStatus: domain.BackendDisconnected, Message: err.Error()}
	default:
		return domain.HealthResult{TransportOnline: true, BackendStatus: domain.BackendUnknown, Message: err.Error()}
	}
}

// decodeFullState unwraps a data response
func decodeFullState(env envelope) (*domain.FullState, error) {
	if !env.ok() {
		msg := env.Message
		if msg == "" {
			msg = "status " + env.Status
		}
		return nil, fmt.Errorf("%w: %s", ports.ErrBackendUnavailable, msg)
	}
	if len(env.Data) == 0 || bytes.Equal(bytes.TrimSpace(env.Data), []byte("null")) {
		return nil, fmt.Errorf("%w: response has no data", ports.ErrBadPayload)
	}
	var fs domain.FullState
	if err := json.Unmarshal(env.Data, &fs); err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrBadPayload, err)
	}
	return &fs, nil
}

// pushResult folds a push exchange into a PushResult
func pushResult(env envelope, err error) ports.PushResult {
	if err != nil {
		return ports.PushResult{Success: false, Message: err.Error()}
	}
	if !env.ok() {
		msg := env.Message
		if msg == "" {
			msg = "sync rejected by server"
		}
		return ports.PushResult{Success: false, Message: msg}
	}
	return ports.PushResult{Success: true, Message: env.Message}
}
