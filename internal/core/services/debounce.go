// internal/core/services/debounce.go
package services

import (
	"context"
	"sync"
	"time"
)

// DefaultDebounceInterval is the quiet period before a collection is persisted
const DefaultDebounceInterval = 1500 * time.Millisecond

// FlushFunc receives the settled value of a debounced burst
type FlushFunc[T any] func(ctx context.Context, value T)

// DebouncedSink coalesces submissions with a trailing-edge debounce. Every
// Submit restarts the quiet period and only the last value of a burst reaches
// the flush function. Flushes of one sink never overlap.
type DebouncedSink[T any] struct {
	name     string
	interval time.Duration
	flush    FlushFunc[T]
	ctx      context.Context

	mu         sync.Mutex
	timer      *time.Timer
	gen        uint64
	pending    T
	hasPending bool
	stopped    bool
	seq        uint64

	flushMu sync.Mutex
	flushed uint64
}

// NewDebouncedSink creates a sink. ctx is handed to timer-driven flushes.
func NewDebouncedSink[T any](ctx context.Context, name string, interval time.Duration, flush FlushFunc[T]) *DebouncedSink[T] {
	if interval <= 0 {
		interval = DefaultDebounceInterval
	}
	return &DebouncedSink[T]{
		name:     name,
		interval: interval,
		flush:    flush,
		ctx:      ctx,
	}
}

// Name returns the sink's identity
func (s *DebouncedSink[T]) Name() string {
	return s.name
}

// Submit replaces the pending value and restarts the quiet period
func (s *DebouncedSink[T]) Submit(value T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}

	s.pending = value
	s.hasPending = true
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
	}
	gen := s.gen
	s.timer = time.AfterFunc(s.interval, func() { s.fire(gen) })
}

// Pending reports whether a value is waiting for its quiet period to end
func (s *DebouncedSink[T]) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasPending
}

// Flush sends the pending value immediately under ctx, if any, and waits
// for it
func (s *DebouncedSink[T]) Flush(ctx context.Context) {
	s.mu.Lock()
	value, seq, ok := s.take()
	s.mu.Unlock()
	if ok {
		s.run(ctx, value, seq)
	}
}

// Discard drops the pending value without flushing it
func (s *DebouncedSink[T]) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.take()
}

// Stop cancels the pending timer and rejects further submissions
func (s *DebouncedSink[T]) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.take()
	s.stopped = true
}

func (s *DebouncedSink[T]) fire(gen uint64) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	value, seq, ok := s.take()
	s.mu.Unlock()
	if ok {
		s.run(s.ctx, value, seq)
	}
}

// take must be called with mu held
func (s *DebouncedSink[T]) take() (T, uint64, bool) {
	var zero T
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
	if !s.hasPending {
		return zero, 0, false
	}
	value := s.pending
	s.pending = zero
	s.hasPending = false
	s.seq++
	return value, s.seq, true
}

// run flushes value unless a newer value already went out
func (s *DebouncedSink[T]) run(ctx context.Context, value T, seq uint64) {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()
	if seq <= s.flushed {
		return
	}
	s.flushed = seq
	s.flush(ctx, value)
}
