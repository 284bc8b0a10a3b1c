// internal/core/services/local_state.go
package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ammerola/stocksync/internal/core/ports"
)

// LoadOr reads key from store and falls back to def on any failure. A missing
// key is silent; corrupt payloads and unavailable storage are logged.
func LoadOr[T any](ctx context.Context, store ports.LocalStore, key string, def T, logger *slog.Logger) T {
	var v T
	err := store.Load(ctx, key, &v)
	if err == nil {
		return v
	}

	if errors.Is(err, ports.ErrKeyNotFound) {
		logger.DebugContext(ctx, "local key not found, using default",
			slog.String("key", key))
	} else {
		logger.WarnContext(ctx, "failed to read local key, using default",
			slog.String("key", key),
			slog.String("error", err.Error()))
	}
	return def
}
