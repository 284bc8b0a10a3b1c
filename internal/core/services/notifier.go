// internal/core/services/notifier.go
package services

import (
	"context"
	"log/slog"

	"github.com/ammerola/stocksync/internal/core/ports"
)

// LogNotifier delivers notifications to the structured log. It is the
// notifier of headless clients.
type LogNotifier struct {
	logger *slog.Logger
}

var _ ports.Notifier = (*LogNotifier)(nil)

// NewLogNotifier creates a notifier writing to logger
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With(slog.String("component", "notifier"))}
}

// Notify logs n at a level matching its severity
func (n *LogNotifier) Notify(ctx context.Context, note ports.Notification) {
	level := slog.LevelInfo
	switch note.Level {
	case ports.LevelWarning:
		level = slog.LevelWarn
	case ports.LevelError:
		level = slog.LevelError
	}
	n.logger.Log(ctx, level, note.Message, slog.String("level", string(note.Level)))
}
