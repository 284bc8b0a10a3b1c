// internal/adapters/remote/remote.go
package remote

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/ammerola/stocksync/internal/core/domain"
	"github.com/ammerola/stocksync/internal/core/ports"
)

// Options tunes the HTTP transport shared by every flavor
type Options struct {
	// Timeout bounds each request. Zero means DefaultTimeout.
	Timeout time.Duration
	// HTTPClient overrides the default client. Timeout is ignored when set.
	HTTPClient *http.Client
}

// New builds the remote store for an endpoint. An unconfigured endpoint
// yields Disabled.
func New(ep domain.RemoteEndpoint, opts Options, logger *slog.Logger) ports.RemoteStore {
	if !ep.Configured() {
		return Disabled{}
	}
	switch ep.Kind {
	case domain.BackendRESTAPI:
		return NewRESTStore(ep.URL, ep.APIKey, opts, logger)
	case domain.BackendSheetScript:
		return NewSheetStore(ep.URL, ep.APIKey, opts, logger)
	default:
		logger.Warn("unknown backend kind, remote disabled", slog.String("kind", string(ep.Kind)))
		return Disabled{}
	}
}

// NewFactory returns a ports.RemoteFactory bound to opts
func NewFactory(opts Options, logger *slog.Logger) ports.RemoteFactory {
	return func(ep domain.RemoteEndpoint) ports.RemoteStore {
		return New(ep, opts, logger)
	}
}

// Disabled is the remote store used when no URL is configured
type Disabled struct{}

var _ ports.RemoteStore = Disabled{}

func (Disabled) Kind() domain.BackendKind { return domain.BackendNone }

func (Disabled) CheckHealth(context.Context) domain.HealthResult {
	return domain.HealthResult{BackendStatus: domain.BackendUnknown, Message: ports.ErrRemoteDisabled.Error()}
}

func (Disabled) FetchFullState(context.Context) (*domain.FullState, error) {
	return nil, ports.ErrRemoteDisabled
}

func (Disabled) PushCollection(context.Context, domain.Collection, interface{}, int64) ports.PushResult {
	return ports.PushResult{Message: ports.ErrRemoteDisabled.Error()}
}
