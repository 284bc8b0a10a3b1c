// cmd/worker/main.go
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/ammerola/stocksync/internal/adapters/db"
	"github.com/ammerola/stocksync/internal/adapters/queue"
	redis_a "github.com/ammerola/stocksync/internal/adapters/redis_adapter"
	"github.com/ammerola/stocksync/internal/core/services"
	"github.com/ammerola/stocksync/internal/pkg/config"
	"github.com/ammerola/stocksync/internal/pkg/logger"
	"github.com/ammerola/stocksync/internal/workers"
)

// attachments younger than this survive the sweep even when unreferenced,
// covering uploads whose transaction push is still in flight
const attachmentGrace = 24 * time.Hour

func main() {
	slogger := logger.SetupLogger("info", "json")

	cfg, err := config.Load(slogger)
	if err != nil {
		slogger.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slogger = logger.NewLogger(logger.Config{
		Level:       cfg.App.LogLevel,
		Format:      cfg.App.LogFormat,
		ServiceName: cfg.App.Name + "-worker",
		Environment: cfg.App.Environment,
	})
	slog.SetDefault(slogger)
	slogger.Info("starting worker",
		slog.String("environment", cfg.App.Environment),
		slog.String("redis_addr", cfg.Asynq.RedisAddr),
		slog.String("audit_queue", cfg.Asynq.AuditQueue))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.NewDatabase(ctx, workerDatabaseConfig(cfg), slogger)
	if err != nil {
		slogger.Error("failed to initialize database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer database.Close()

	redisClient := redis.NewClient(cfg.RedisOptions())
	defer redisClient.Close()

	repo := db.NewSyncRepository(database, slogger)
	audits := services.NewAuditService(repo, redis_a.NewCache(redisClient, cfg.Redis.TTL, slogger), slogger)

	mux := asynq.NewServeMux()
	mux.HandleFunc(workers.TypeStockAudit, workers.NewAuditProcessor(audits, slogger).ProcessAudit)

	var periodic []queue.Periodic
	if cfg.Asynq.AuditSchedule != "" {
		task, err := workers.NewStockAuditTask("schedule")
		if err != nil {
			slogger.Error("failed to build scheduled audit", slog.String("error", err.Error()))
			os.Exit(1)
		}
		periodic = append(periodic, queue.Periodic{Spec: cfg.Asynq.AuditSchedule, Task: task, Queue: cfg.Asynq.AuditQueue})
	}
	// only the disk driver keeps files this process can reach
	if cfg.Attachments.Driver == "disk" {
		sweeper := workers.NewCleanupProcessor(repo, cfg.Attachments.DiskPath, attachmentGrace, slogger)
		mux.HandleFunc(workers.TypeAttachmentCleanup, sweeper.CleanupAttachments)
		periodic = append(periodic, queue.Periodic{Spec: "@daily", Task: workers.NewAttachmentCleanupTask(), Queue: cfg.Asynq.AuditQueue})
	}

	redisOpt := cfg.AsynqRedisOpt()

	scheduler, err := queue.NewScheduler(redisOpt, slogger, periodic...)
	if err != nil {
		slogger.Error("failed to register periodic tasks", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if scheduler != nil {
		if err := scheduler.Start(); err != nil {
			slogger.Error("failed to start scheduler", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer scheduler.Shutdown()
	}

	srv := queue.NewServer(redisOpt, queue.ServerConfig{
		Concurrency:     cfg.Asynq.Concurrency,
		Queues:          cfg.Asynq.Queues,
		StrictPriority:  cfg.Asynq.StrictPriority,
		ShutdownTimeout: cfg.Asynq.ShutdownTimeout,
	}, slogger)
	if err := srv.Start(mux); err != nil {
		slogger.Error("failed to start worker server", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slogger.Info("worker started",
		slog.Int("concurrency", cfg.Asynq.Concurrency),
		slog.Any("queues", cfg.Asynq.Queues),
		slog.Int("periodic_tasks", len(periodic)))

	<-ctx.Done()
	slogger.Info("shutdown signal received")
	srv.Shutdown()
	slogger.Info("worker shutdown complete")
}

// workerDatabaseConfig uses a smaller pool than the API: audits run one at a
// time per worker slot
func workerDatabaseConfig(cfg *config.Config) *db.Config {
	dbConfig := db.ConfigFromSettings(cfg.Database)
	dbConfig.MaxConnections = min(int32(cfg.Asynq.Concurrency)+1, cfg.Database.MaxConnections)
	dbConfig.MinConnections = 1
	return dbConfig
}
