// internal/core/services/connectivity.go
package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ammerola/stocksync/internal/core/domain"
)

// ConnectivityStatus is a snapshot of the monitor for display
type ConnectivityStatus struct {
	State     domain.ConnectivityState `json:"state"`
	Trust     domain.TrustLevel        `json:"trust"`
	Badge     string                   `json:"badge"`
	Message   string                   `json:"message,omitempty"`
	CheckedAt time.Time                `json:"checkedAt,omitempty"`
}

// ConnectivityMonitor holds the connectivity state machine. State only moves
// on health probe results, a fetch failure within the same cycle, or a reset
// when the remote endpoint is removed.
type ConnectivityMonitor struct {
	mu          sync.RWMutex
	state       domain.ConnectivityState
	message     string
	checkedAt   time.Time
	subscribers []func(ConnectivityStatus)
	now         func() time.Time
	logger      *slog.Logger
}

// NewConnectivityMonitor starts in UNKNOWN
func NewConnectivityMonitor(logger *slog.Logger) *ConnectivityMonitor {
	return &ConnectivityMonitor{
		state:  domain.ConnectivityUnknown,
		now:    time.Now,
		logger: logger.With(slog.String("component", "connectivity")),
	}
}

// Observe records a health probe result and returns the new state
func (m *ConnectivityMonitor) Observe(ctx context.Context, h domain.HealthResult) domain.ConnectivityState {
	return m.transition(ctx, domain.Classify(h), h.Message)
}

// ObserveFetchFailure drops to OFFLINE after a healthy probe was followed by a
// failed full-state fetch
func (m *ConnectivityMonitor) ObserveFetchFailure(ctx context.Context, message string) domain.ConnectivityState {
	return m.transition(ctx, domain.ConnectivityOffline, message)
}

// Reset returns to UNKNOWN, used when no remote endpoint is configured
func (m *ConnectivityMonitor) Reset(ctx context.Context) {
	m.transition(ctx, domain.ConnectivityUnknown, "")
}

// State returns the current state
func (m *ConnectivityMonitor) State() domain.ConnectivityState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// CanPush reports whether remote pushes are authorised
func (m *ConnectivityMonitor) CanPush() bool {
	return m.State().Trust() == domain.TrustRemote
}

// Status returns a display snapshot
func (m *ConnectivityMonitor) Status() ConnectivityStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.statusLocked()
}

// Subscribe registers fn to be called after every state change
func (m *ConnectivityMonitor) Subscribe(fn func(ConnectivityStatus)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribers = append(m.subscribers, fn)
}

func (m *ConnectivityMonitor) transition(ctx context.Context, next domain.ConnectivityState, message string) domain.ConnectivityState {
	m.mu.Lock()
	prev := m.state
	m.state = next
	m.message = message
	m.checkedAt = m.now()
	status := m.statusLocked()
	subs := make([]func(ConnectivityStatus), len(m.subscribers))
	copy(subs, m.subscribers)
	m.mu.Unlock()

	if prev == next {
		return next
	}

	m.logger.InfoContext(ctx, "connectivity changed",
		slog.String("from", string(prev)),
		slog.String("to", string(next)),
		slog.String("message", message))

	for _, fn := range subs {
		fn(status)
	}
	return next
}

func (m *ConnectivityMonitor) statusLocked() ConnectivityStatus {
	return ConnectivityStatus{
		State:     m.state,
		Trust:     m.state.Trust(),
		Badge:     m.state.Badge(),
		Message:   m.message,
		CheckedAt: m.checkedAt,
	}
}
