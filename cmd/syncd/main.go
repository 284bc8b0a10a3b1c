// cmd/syncd/main.go
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ammerola/stocksync/internal/adapters/localstore"
	redis_a "github.com/ammerola/stocksync/internal/adapters/redis_adapter"
	"github.com/ammerola/stocksync/internal/adapters/remote"
	"github.com/ammerola/stocksync/internal/core/domain"
	"github.com/ammerola/stocksync/internal/core/ports"
	"github.com/ammerola/stocksync/internal/core/services"
	"github.com/ammerola/stocksync/internal/pkg/config"
	"github.com/ammerola/stocksync/internal/pkg/logger"
)

// Build information injected at compile time
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	slogger := logger.SetupLogger("info", "text")

	cfg, err := config.Load(slogger)
	if err != nil {
		slogger.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slogger = logger.NewLogger(logger.Config{
		Level:          cfg.App.LogLevel,
		Format:         cfg.App.LogFormat,
		ServiceName:    cfg.App.Name + "-syncd",
		ServiceVersion: Version,
		Environment:    cfg.App.Environment,
	})
	slog.SetDefault(slogger)
	slogger.Info("starting sync agent",
		slog.String("version", Version),
		slog.String("build_time", BuildTime),
		slog.String("local_store", cfg.LocalStore.Driver),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	local, err := openLocalStore(ctx, cfg, slogger)
	if err != nil {
		slogger.Error("failed to open local store", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// the controller owns local from here and closes it in Shutdown
	controller := services.NewController(ctx, local,
		remote.NewFactory(remote.Options{Timeout: cfg.Sync.RequestTimeout}, slogger),
		services.NewLogNotifier(slogger),
		services.ControllerConfig{DebounceInterval: cfg.Sync.DebounceInterval},
		slogger,
	)

	logResult(slogger, "initial load finished", controller.Start(ctx))

	if err := seedEndpoint(ctx, controller, cfg, slogger); err != nil {
		slogger.Warn("failed to apply configured endpoint", slog.String("error", err.Error()))
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	var tick <-chan time.Time
	if cfg.Sync.RefreshInterval > 0 {
		ticker := time.NewTicker(cfg.Sync.RefreshInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for running := true; running; {
		select {
		case <-ctx.Done():
			running = false
		case <-hup:
			logResult(slogger, "manual refresh finished", controller.Refresh(ctx))
		case <-tick:
			logResult(slogger, "scheduled refresh finished", controller.Refresh(ctx))
		}
	}

	slogger.Info("shutting down sync agent, flushing pending writes")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Sync.FlushTimeout)
	defer cancel()
	controller.Shutdown(shutdownCtx)
	slogger.Info("sync agent stopped")
}

func openLocalStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (ports.LocalStore, error) {
	switch cfg.LocalStore.Driver {
	case "redis":
		client := redis.NewClient(cfg.RedisOptions())
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return redis_a.NewLocalStore(client, cfg.LocalStore.Prefix, logger), nil
	default:
		return localstore.OpenSQLite(cfg.LocalStore.Path, cfg.LocalStore.Prefix, logger)
	}
}

// seedEndpoint copies the configured remote into the stored settings when the
// device has never been pointed at a backend
func seedEndpoint(ctx context.Context, c *services.Controller, cfg *config.Config, logger *slog.Logger) error {
	if cfg.Sync.RemoteURL == "" {
		return nil
	}
	settings := c.State().Settings
	if settings.Endpoint().Configured() {
		return nil
	}

	switch domain.BackendKind(cfg.Sync.RemoteKind) {
	case domain.BackendSheetScript:
		settings.BackendKind = domain.BackendSheetScript
		settings.ScriptURL = cfg.Sync.RemoteURL
	default:
		settings.BackendKind = domain.BackendRESTAPI
		settings.APIBaseURL = cfg.Sync.RemoteURL
	}
	settings.APIKey = cfg.Sync.RemoteAPIKey

	res, err := c.UpdateSettings(ctx, settings)
	if err != nil {
		return err
	}
	if res != nil {
		logResult(logger, "configured endpoint loaded", *res)
	}
	return nil
}

func logResult(logger *slog.Logger, msg string, res services.ReconcileResult) {
	logger.Info(msg,
		slog.String("outcome", string(res.Outcome)),
		slog.String("connectivity", string(res.Connectivity)),
		slog.String("message", res.Message))
}
