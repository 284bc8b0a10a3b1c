// internal/adapters/queue/asynq.go
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ammerola/stocksync/internal/core/ports"
	"github.com/ammerola/stocksync/internal/workers"
)

// Config controls how tasks are enqueued
type Config struct {
	Queue    string
	MaxRetry int
	// UniqueFor collapses identical audits enqueued within the window
	UniqueFor time.Duration
}

// Enqueuer schedules background tasks on asynq
type Enqueuer struct {
	client *asynq.Client
	cfg    Config
	logger *slog.Logger
}

var _ ports.TaskEnqueuer = (*Enqueuer)(nil)

// NewEnqueuer creates an enqueuer on top of an asynq client
func NewEnqueuer(client *asynq.Client, cfg Config, logger *slog.Logger) *Enqueuer {
	if cfg.Queue == "" {
		cfg.Queue = "default"
	}
	if cfg.MaxRetry <= 0 {
		cfg.MaxRetry = 3
	}
	return &Enqueuer{
		client: client,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "queue")),
	}
}

// EnqueueStockAudit schedules a stock audit. A duplicate of a pending audit is
// not an error.
func (e *Enqueuer) EnqueueStockAudit(ctx context.Context, reason string) error {
	task, err := workers.NewStockAuditTask(reason)
	if err != nil {
		return err
	}

	opts := []asynq.Option{
		asynq.Queue(e.cfg.Queue),
		asynq.MaxRetry(e.cfg.MaxRetry),
		asynq.Retention(24 * time.Hour),
	}
	if e.cfg.UniqueFor > 0 {
		opts = append(opts, asynq.Unique(e.cfg.UniqueFor))
	}

	info, err := e.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		if errors.Is(err, asynq.ErrDuplicateTask) {
			e.logger.DebugContext(ctx, "stock audit already pending", slog.String("reason", reason))
			return nil
		}
		return fmt.Errorf("failed to enqueue stock audit: %w", err)
	}

	e.logger.InfoContext(ctx, "stock audit enqueued",
		slog.String("task_id", info.ID),
		slog.String("queue", info.Queue),
		slog.String("reason", reason))
	return nil
}

// Close closes the asynq client
func (e *Enqueuer) Close() error {
	return e.client.Close()
}
