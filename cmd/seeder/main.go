// cmd/seeder/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/ammerola/stocksync/internal/adapters/remote"
	"github.com/ammerola/stocksync/internal/core/domain"
	"github.com/ammerola/stocksync/internal/core/ports"
	"github.com/ammerola/stocksync/internal/pkg/logger"
)

func main() {
	// Parse flags
	var (
		kind         = flag.String("kind", getEnv("SYNC_REMOTE_KIND", "restapi"), "Backend flavor (restapi, sheetscript)")
		url          = flag.String("url", getEnv("SYNC_REMOTE_URL", "http://localhost:8080"), "Backend base URL or script URL")
		apiKey       = flag.String("api-key", os.Getenv("SYNC_API_KEY"), "API key sent to the backend")
		transactions = flag.Int("transactions", 60, "Number of transactions to generate")
		seedValue    = flag.Uint64("seed", 1, "Random seed for the generated data")
		timeout      = flag.Duration("timeout", 30*time.Second, "Per request timeout")
		logLevel     = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
		dryRun       = flag.Bool("dry-run", false, "Generate and summarize without pushing")
	)
	flag.Parse()

	log := logger.SetupLogger(*logLevel, "text")

	ds := BuildDataset(*seedValue, *transactions, time.Now())
	log.Info("dataset generated",
		slog.Int("inventory", len(ds.Inventory)),
		slog.Int("transactions", len(ds.Transactions)),
		slog.Int("suppliers", len(ds.Suppliers)),
		slog.Int("rejects", len(ds.Rejects)))

	if *dryRun {
		for _, item := range ds.Inventory {
			log.Info("item",
				slog.String("sku", item.SKU),
				slog.String("name", item.Name),
				slog.Int("quantity", item.Quantity),
				slog.String("unit", item.BaseUnit))
		}
		return
	}

	store := remote.New(domain.RemoteEndpoint{
		Kind:   domain.BackendKind(*kind),
		URL:    *url,
		APIKey: *apiKey,
	}, remote.Options{Timeout: *timeout}, log)

	ctx := context.Background()
	health := store.CheckHealth(ctx)
	if state := domain.Classify(health); state != domain.ConnectivityConnected {
		log.Error("backend is not ready",
			slog.String("kind", string(store.Kind())),
			slog.String("state", string(state)),
			slog.String("message", health.Message))
		os.Exit(1)
	}

	if err := pushDataset(ctx, store, ds, time.Now(), log); err != nil {
		log.Error("seeding failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log.Info("seeding complete")
}

// pushDataset pushes every collection with strictly increasing versions
// stamped from now
func pushDataset(ctx context.Context, store ports.RemoteStore, ds Dataset, now time.Time, log *slog.Logger) error {
	version := domain.VersionAt(now)
	for i, b := range ds.Batches() {
		res := store.PushCollection(ctx, b.Collection, b.Data, version+int64(i))
		if !res.Success {
			return fmt.Errorf("failed to push %s: %s", b.Collection, res.Message)
		}
		log.Info("collection pushed", slog.String("collection", b.Collection.String()))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
