// internal/core/ports/remote_store.go
package ports

import (
	"context"
	"errors"

	"github.com/ammerola/stocksync/internal/core/domain"
)

// Remote store error taxonomy. Callers classify with errors.Is.
var (
	// ErrTransport covers DNS, connection and timeout failures
	ErrTransport = errors.New("remote transport failure")
	// ErrBackendUnavailable means the server answered but reported a logical error
	ErrBackendUnavailable = errors.New("remote backend error")
	// ErrMisconfiguredRoute means the server answered with HTML instead of JSON,
	// typically a reverse proxy or SPA fallback swallowing the API route
	ErrMisconfiguredRoute = errors.New("remote returned HTML instead of JSON; check the endpoint URL or proxy routing")
	// ErrBadPayload means the response was JSON but did not match the contract
	ErrBadPayload = errors.New("remote payload malformed")
	// ErrRemoteDisabled is returned when no remote URL is configured
	ErrRemoteDisabled = errors.New("remote store not configured")
)

// PushResult is the outcome of one collection push
type PushResult struct {
	Success bool
	Message string
}

// RemoteStore is one remote backend. Implementations never panic and never
// return transport errors from CheckHealth or PushCollection; failures are
// folded into the result values.
type RemoteStore interface {
	// Kind names the backend flavor
	Kind() domain.BackendKind
	CheckHealth(ctx context.Context) domain.HealthResult
	// FetchFullState returns nil and a classified error on any failure
	FetchFullState(ctx context.Context) (*domain.FullState, error)
	// PushCollection replaces the remote copy of one collection. version is
	// strictly increasing per collection.
	PushCollection(ctx context.Context, collection domain.Collection, data interface{}, version int64) PushResult
}

// RemoteFactory builds the remote store for an endpoint. It is resolved once
// per endpoint change, never per call.
type RemoteFactory func(endpoint domain.RemoteEndpoint) RemoteStore
