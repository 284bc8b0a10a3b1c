// internal/core/ports/local_store.go
package ports

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned by LocalStore.Load when nothing is stored under the key
var ErrKeyNotFound = errors.New("key not found")

// LocalStore is the device-local key-value store holding one JSON document per
// collection. There are no transactional guarantees across keys.
type LocalStore interface {
	// Load decodes the value stored under key into dest
	Load(ctx context.Context, key string, dest interface{}) error
	// Save replaces the value stored under key. A non-nil error is the
	// failure flag; callers continue memory-only.
	Save(ctx context.Context, key string, value interface{}) error
	// Clear removes the given keys. Missing keys are not an error.
	Clear(ctx context.Context, keys ...string) error
	Close() error
}
