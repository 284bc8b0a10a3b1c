// internal/core/ports/task_queue.go
package ports

import "context"

// TaskEnqueuer schedules background work for the worker process
type TaskEnqueuer interface {
	EnqueueStockAudit(ctx context.Context, reason string) error
	Close() error
}
