// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/ammerola/stocksync/internal/adapters/db"
	"github.com/ammerola/stocksync/internal/adapters/queue"
	redis_a "github.com/ammerola/stocksync/internal/adapters/redis_adapter"
	"github.com/ammerola/stocksync/internal/adapters/storage"
	"github.com/ammerola/stocksync/internal/core/ports"
	"github.com/ammerola/stocksync/internal/core/services"
	"github.com/ammerola/stocksync/internal/handlers"
	"github.com/ammerola/stocksync/internal/handlers/middleware"
	"github.com/ammerola/stocksync/internal/pkg/config"
	"github.com/ammerola/stocksync/internal/pkg/logger"
)

// Build information injected at compile time
var (
	Version   = "dev"
	BuildTime = "unknown"
	GoVersion = "unknown"
)

// paths reachable without an API key
var publicPaths = []string{"/health", "/ready", "/api/health"}

func main() {
	bootstrap := logger.SetupLogger("info", "json")

	cfg, err := config.Load(bootstrap)
	if err != nil {
		bootstrap.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if cfg.App.Version == "dev" {
		cfg.App.Version = Version
	}

	slogger := logger.NewLogger(logger.Config{
		Level:          cfg.App.LogLevel,
		Format:         cfg.App.LogFormat,
		ServiceName:    cfg.App.Name,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
	})
	slog.SetDefault(slogger)
	slogger.Info("starting sync backend",
		slog.String("environment", cfg.App.Environment),
		slog.String("build_time", BuildTime),
		slog.String("go_version", GoVersion))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if err := run(ctx, cfg, slogger); err != nil {
		slogger.Error("sync backend stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slogger.Info("sync backend stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	dbConfig := db.ConfigFromSettings(cfg.Database)

	if cfg.Database.AutoMigrate {
		err := db.RunMigrationsWithRetry(ctx, &db.MigrationConfig{DatabaseURL: dbConfig.URL()}, logger, 3)
		if err != nil {
			// a developer database is often mid-edit; serve anyway
			if !cfg.IsDevelopment() {
				return fmt.Errorf("migrations: %w", err)
			}
			logger.Warn("continuing without migrations", slog.String("error", err.Error()))
		}
	}

	deps, err := wire(ctx, cfg, dbConfig, logger)
	if err != nil {
		return err
	}
	defer deps.close()

	server := &http.Server{
		Addr:           cfg.GetServerAddress(),
		Handler:        deps.routes(ctx, cfg, logger),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
		ErrorLog:       slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}
	return serve(ctx, server, cfg, logger)
}

// serve blocks until the server fails or ctx ends, then drains connections
func serve(ctx context.Context, server *http.Server, cfg *config.Config, logger *slog.Logger) error {
	errc := make(chan error, 1)
	go func() {
		logger.Info("listening",
			slog.String("address", server.Addr),
			slog.Bool("tls", cfg.Server.TLSEnabled))
		if cfg.Server.TLSEnabled {
			errc <- server.ListenAndServeTLS(cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile)
			return
		}
		errc <- server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		server.Close()
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

type dependencies struct {
	closers   []func()
	sync      *handlers.SyncHandler
	health    *handlers.HealthHandler
	diskFiles string
}

func (d *dependencies) close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

func wire(ctx context.Context, cfg *config.Config, dbConfig *db.Config, logger *slog.Logger) (_ *dependencies, err error) {
	deps := &dependencies{}
	defer func() {
		if err != nil {
			deps.close()
		}
	}()

	database, err := db.NewDatabase(ctx, dbConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	deps.closers = append(deps.closers, database.Close)

	redisClient := redis.NewClient(cfg.RedisOptions())
	deps.closers = append(deps.closers, func() { redisClient.Close() })
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	cache := redis_a.NewCache(redisClient, cfg.Redis.TTL, logger)

	tasks := queue.NewEnqueuer(asynq.NewClient(cfg.AsynqRedisOpt()), queue.Config{
		Queue:     cfg.Asynq.AuditQueue,
		MaxRetry:  cfg.Asynq.RetryMax,
		UniqueFor: cfg.Asynq.AuditUniqueFor,
	}, logger)
	deps.closers = append(deps.closers, func() { tasks.Close() })
	inspector := asynq.NewInspector(cfg.AsynqRedisOpt())
	deps.closers = append(deps.closers, func() { inspector.Close() })

	attachments, err := newAttachmentStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if cfg.Attachments.Driver == "disk" {
		deps.diskFiles = cfg.Attachments.DiskPath
	}

	repo := db.NewSyncRepository(database, logger)
	syncService := services.NewSyncService(repo, services.SyncServiceDeps{
		Cache:       cache,
		Attachments: attachments,
		Tasks:       tasks,
		SnapshotTTL: cfg.Server.SnapshotTTL,
	}, logger)
	audits := services.NewAuditService(repo, cache, logger)

	deps.sync = handlers.NewSyncHandler(syncService, audits, database, cfg.Server.MaxBodyBytes, logger)
	deps.health = handlers.NewHealthHandler(database, redisClient, inspector, cfg, logger)
	return deps, nil
}

// newAttachmentStore returns nil when photo offloading is disabled
func newAttachmentStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (ports.AttachmentStore, error) {
	switch cfg.Attachments.Driver {
	case "s3":
		store, err := storage.NewS3Storage(ctx, &storage.S3Config{
			Region:          cfg.AWS.Region,
			Bucket:          cfg.AWS.S3Bucket,
			AccessKeyID:     cfg.AWS.AccessKeyID,
			SecretAccessKey: cfg.AWS.SecretAccessKey,
			Endpoint:        cfg.AWS.S3Endpoint,
			UsePathStyle:    cfg.AWS.UsePathStyle,
			KeyPrefix:       cfg.AWS.S3KeyPrefix,
			PublicBaseURL:   cfg.AWS.S3PublicURL,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize S3 storage: %w", err)
		}
		return store, nil
	case "disk":
		return storage.NewDiskStorage(cfg.Attachments.DiskPath, cfg.Attachments.BaseURL, logger), nil
	default:
		logger.Info("attachment offloading disabled")
		return nil, nil
	}
}

// routes registers the sync contract and operator endpoints behind the
// middleware stack
func (d *dependencies) routes(ctx context.Context, cfg *config.Config, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", d.health.Health)
	mux.HandleFunc("GET /ready", d.health.Readiness)

	mux.HandleFunc("GET /api/health", d.sync.Health)
	mux.HandleFunc("GET /api/data", d.sync.GetData)
	mux.HandleFunc("POST /api/sync", d.sync.Sync)
	mux.HandleFunc("GET /api/audit/latest", d.sync.LatestAudit)

	if d.diskFiles != "" {
		mux.Handle("GET /files/", http.StripPrefix("/files/", http.FileServer(http.Dir(d.diskFiles))))
	}

	mws := []middleware.Middleware{
		middleware.Recovery(logger),
		middleware.RequestID,
		middleware.Logger(logger),
	}
	if cfg.Security.SecureHeaders {
		mws = append(mws, middleware.SecureHeaders)
	}
	if len(cfg.Security.AllowedOrigins) > 0 {
		mws = append(mws, middleware.CORS(cfg.Security.AllowedOrigins))
	}
	mws = append(mws,
		middleware.RateLimit(ctx, cfg.Security.RateLimitRequests, cfg.Security.RateLimitDuration),
		middleware.APIKey(cfg.Security.APIKeys, publicPaths...),
		middleware.Timeout(cfg.Server.RequestTimeout),
		middleware.Compression,
	)
	return middleware.Chain(mux, mws...)
}
