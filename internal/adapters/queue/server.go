// internal/adapters/queue/server.go
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/hibiken/asynq"
)

const (
	retryBase = 5 * time.Second
	retryCap  = 5 * time.Minute
)

// ServerConfig tunes the task server
type ServerConfig struct {
	Concurrency     int
	Queues          map[string]int
	StrictPriority  bool
	ShutdownTimeout time.Duration
}

// NewServer creates an asynq server that logs through slog
func NewServer(redisOpt asynq.RedisConnOpt, cfg ServerConfig, logger *slog.Logger) *asynq.Server {
	logger = logger.With(slog.String("component", "asynq"))
	return asynq.NewServer(redisOpt, asynq.Config{
		Concurrency:     cfg.Concurrency,
		Queues:          cfg.Queues,
		StrictPriority:  cfg.StrictPriority,
		ShutdownTimeout: cfg.ShutdownTimeout,
		RetryDelayFunc:  RetryDelay,
		ErrorHandler:    errorHandler(logger),
		HealthCheckFunc: func(err error) {
			if err != nil {
				logger.Error("worker health check failed", slog.String("error", err.Error()))
			}
		},
		Logger: &slogAdapter{logger: logger},
	})
}

// Periodic is a task enqueued on a cron spec
type Periodic struct {
	Spec  string
	Task  *asynq.Task
	Queue string
}

// NewScheduler registers every entry. It returns nil when there are none.
func NewScheduler(redisOpt asynq.RedisConnOpt, logger *slog.Logger, entries ...Periodic) (*asynq.Scheduler, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	logger = logger.With(slog.String("component", "scheduler"))
	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{
		Logger: &slogAdapter{logger: logger},
		PostEnqueueFunc: func(info *asynq.TaskInfo, err error) {
			if err != nil {
				logger.Error("periodic enqueue failed", slog.String("error", err.Error()))
				return
			}
			logger.Debug("periodic task enqueued",
				slog.String("type", info.Type),
				slog.String("task_id", info.ID))
		},
	})

	for _, e := range entries {
		if _, err := scheduler.Register(e.Spec, e.Task, asynq.Queue(e.Queue)); err != nil {
			return nil, fmt.Errorf("failed to schedule %s at %q: %w", e.Task.Type(), e.Spec, err)
		}
		logger.Info("periodic task registered",
			slog.String("type", e.Task.Type()),
			slog.String("spec", e.Spec))
	}
	return scheduler, nil
}

// RetryDelay doubles from five seconds up to five minutes
func RetryDelay(n int, _ error, _ *asynq.Task) time.Duration {
	if n < 0 {
		n = 0
	}
	if n > 10 {
		return retryCap
	}
	return min(retryBase<<n, retryCap)
}

func errorHandler(logger *slog.Logger) asynq.ErrorHandlerFunc {
	return func(ctx context.Context, task *asynq.Task, err error) {
		retried, _ := asynq.GetRetryCount(ctx)
		maxRetry, _ := asynq.GetMaxRetry(ctx)
		logger.ErrorContext(ctx, "task processing failed",
			slog.String("type", task.Type()),
			slog.Int("retried", retried),
			slog.Int("max_retry", maxRetry),
			slog.Int("payload_bytes", len(task.Payload())),
			slog.String("error", err.Error()))
	}
}

// slogAdapter satisfies asynq.Logger
type slogAdapter struct {
	logger *slog.Logger
}

func (l *slogAdapter) Debug(args ...interface{}) { l.logger.Debug(fmt.Sprint(args...)) }
func (l *slogAdapter) Info(args ...interface{})  { l.logger.Info(fmt.Sprint(args...)) }
func (l *slogAdapter) Warn(args ...interface{})  { l.logger.Warn(fmt.Sprint(args...)) }
func (l *slogAdapter) Error(args ...interface{}) { l.logger.Error(fmt.Sprint(args...)) }

func (l *slogAdapter) Fatal(args ...interface{}) {
	l.logger.Error(fmt.Sprint(args...))
	os.Exit(1)
}
