// internal/core/services/pipeline.go
package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ammerola/stocksync/internal/core/domain"
	"github.com/ammerola/stocksync/internal/core/ports"
)

// versionClock hands out strictly increasing per-collection push versions
// derived from wall time
type versionClock struct {
	mu   sync.Mutex
	last map[domain.Collection]int64
	now  func() time.Time
}

func newVersionClock(now func() time.Time) *versionClock {
	return &versionClock{last: make(map[domain.Collection]int64), now: now}
}

func (v *versionClock) next(c domain.Collection) int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	n := domain.VersionAt(v.now())
	if n <= v.last[c] {
		n = v.last[c] + 1
	}
	v.last[c] = n
	return n
}

// MutationPipeline persists settled collection values. Every collection has
// its own debounced sink; on settle the value is saved locally and, when the
// remote is trusted, pushed with a fresh version stamp.
type MutationPipeline struct {
	local    ports.LocalStore
	monitor  *ConnectivityMonitor
	notifier ports.Notifier
	logger   *slog.Logger
	versions *versionClock

	active atomic.Bool

	remoteMu sync.RWMutex
	remote   ports.RemoteStore

	sinks map[domain.Collection]*DebouncedSink[any]
}

// NewMutationPipeline builds one sink per collection. The pipeline starts
// inactive; submissions are dropped until Activate.
func NewMutationPipeline(
	ctx context.Context,
	local ports.LocalStore,
	monitor *ConnectivityMonitor,
	notifier ports.Notifier,
	interval time.Duration,
	now func() time.Time,
	logger *slog.Logger,
) *MutationPipeline {
	if now == nil {
		now = time.Now
	}
	p := &MutationPipeline{
		local:    local,
		monitor:  monitor,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "pipeline")),
		versions: newVersionClock(now),
		sinks:    make(map[domain.Collection]*DebouncedSink[any]),
	}
	for _, c := range domain.AllCollections() {
		p.sinks[c] = NewDebouncedSink(ctx, c.String(), interval, func(ctx context.Context, value any) {
			p.settle(ctx, c, value)
		})
	}
	return p
}

// Activate opens the pipeline. It is a one-way latch.
func (p *MutationPipeline) Activate() {
	p.active.Store(true)
}

// Active reports whether submissions are routed to storage
func (p *MutationPipeline) Active() bool {
	return p.active.Load()
}

// SetRemote swaps the remote store used by subsequent pushes
func (p *MutationPipeline) SetRemote(remote ports.RemoteStore) {
	p.remoteMu.Lock()
	defer p.remoteMu.Unlock()
	p.remote = remote
}

func (p *MutationPipeline) currentRemote() ports.RemoteStore {
	p.remoteMu.RLock()
	defer p.remoteMu.RUnlock()
	return p.remote
}

// Submit schedules value as the next settled value of collection c
func (p *MutationPipeline) Submit(c domain.Collection, value any) {
	if !p.active.Load() {
		return
	}
	sink, ok := p.sinks[c]
	if !ok {
		return
	}
	sink.Submit(value)
}

// Flush settles every pending collection immediately under ctx
func (p *MutationPipeline) Flush(ctx context.Context) {
	for _, c := range domain.AllCollections() {
		p.sinks[c].Flush(ctx)
	}
}

// Discard drops every pending value without persisting it
func (p *MutationPipeline) Discard() {
	for _, sink := range p.sinks {
		sink.Discard()
	}
}

// Stop cancels pending timers and rejects further submissions
func (p *MutationPipeline) Stop() {
	for _, sink := range p.sinks {
		sink.Stop()
	}
}

func (p *MutationPipeline) settle(ctx context.Context, c domain.Collection, value any) {
	if err := p.local.Save(ctx, c.String(), value); err != nil {
		p.logger.WarnContext(ctx, "local save failed, continuing in memory",
			slog.String("collection", c.String()),
			slog.String("error", err.Error()))
	}

	if !c.Remote() {
		return
	}

	remote := p.currentRemote()
	if remote == nil || !p.monitor.CanPush() {
		p.logger.DebugContext(ctx, "remote push skipped",
			slog.String("collection", c.String()),
			slog.String("connectivity", string(p.monitor.State())))
		return
	}

	version := p.versions.next(c)
	res := remote.PushCollection(ctx, c, value, version)
	if !res.Success {
		p.logger.ErrorContext(ctx, "remote push failed",
			slog.String("collection", c.String()),
			slog.Int64("version", version),
			slog.String("message", res.Message))
		p.notifier.Notify(ctx, ports.Notification{
			Level:   ports.LevelError,
			Message: fmt.Sprintf("Failed to sync %s: %s", c, res.Message),
		})
		return
	}

	p.logger.DebugContext(ctx, "remote push complete",
		slog.String("collection", c.String()),
		slog.Int64("version", version))
}
