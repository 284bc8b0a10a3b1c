// test/helpers/stores.go
package helpers

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/ammerola/stocksync/internal/core/ports"
)

// MemoryStore is an in-memory ports.LocalStore that records writes
type MemoryStore struct {
	mu    sync.Mutex
	data   map[string][]byte
	saves  map[string]int
	closes int

	// FailSave, when set, is returned by every Save
	FailSave error
	// FailLoad, when set, is returned by every Load
	FailLoad error
}

var _ ports.LocalStore = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data:  make(map[string][]byte),
		saves: make(map[string]int),
	}
}

func (m *MemoryStore) Load(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailLoad != nil {
		return m.FailLoad
	}
	raw, ok := m.data[key]
	if !ok {
		return ports.ErrKeyNotFound
	}
	return json.Unmarshal(raw, dest)
}

func (m *MemoryStore) Save(ctx context.Context, key string, value interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSave != nil {
		return m.FailSave
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = raw
	m.saves[key]++
	return nil
}

func (m *MemoryStore) Clear(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closes++
	return nil
}

// Closes reports how many times Close was called
func (m *MemoryStore) Closes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closes
}

// Put seeds key with the JSON encoding of value without counting a save
func (m *MemoryStore) Put(key string, value interface{}) {
	raw, err := json.Marshal(value)
	if err != nil {
		panic(err)
	}
	m.PutRaw(key, raw)
}

// PutRaw seeds key with raw bytes
func (m *MemoryStore) PutRaw(key string, raw []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = raw
}

// Raw returns the stored bytes of key
func (m *MemoryStore) Raw(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.data[key]
	return raw, ok
}

// SaveCount returns how many times key was saved
func (m *MemoryStore) SaveCount(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves[key]
}

// RecordingNotifier is a ports.Notifier that keeps every notification
type RecordingNotifier struct {
	mu    sync.Mutex
	notes []ports.Notification
}

var _ ports.Notifier = (*RecordingNotifier)(nil)

// NewRecordingNotifier returns an empty notifier
func NewRecordingNotifier() *RecordingNotifier {
	return &RecordingNotifier{}
}

func (r *RecordingNotifier) Notify(_ context.Context, n ports.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
}

// Notifications returns a copy of everything received
func (r *RecordingNotifier) Notifications() []ports.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ports.Notification, len(r.notes))
	copy(out, r.notes)
	return out
}

// Levels returns the level of every notification in order
func (r *RecordingNotifier) Levels() []ports.Level {
	var out []ports.Level
	for _, n := range r.Notifications() {
		out = append(out, n.Level)
	}
	return out
}
