// test/helpers/helpers.go
package helpers

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/require"

	"github.com/ammerola/stocksync/internal/adapters/db"
)

const (
	pgImage    = "postgres"
	pgTag      = "16-alpine"
	pgUser     = "stocksync"
	pgPassword = "stocksync"
	pgDatabase = "stocksync_test"
)

// collection store tables, children first
var storeTables = []string{"collection_records", "collection_versions", "app_settings"}

// TestDB is a migrated Postgres running in a throwaway container
type TestDB struct {
	PgxPool  *pgxpool.Pool
	Database *db.Database
	Config   *db.Config
}

// TestLogger logs errors only, or everything under go test -v
func TestLogger() *slog.Logger {
	level := slog.LevelError
	if testing.Verbose() {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

// SetupTestDB starts Postgres with dockertest and applies the embedded
// migrations. It is skipped under -short.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping PostgreSQL container in short mode")
	}

	pool, err := dockertest.NewPool("")
	require.NoError(t, err, "docker is not reachable")
	pool.MaxWait = 90 * time.Second

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: pgImage,
		Tag:        pgTag,
		Env: []string{
			"POSTGRES_USER=" + pgUser,
			"POSTGRES_PASSWORD=" + pgPassword,
			"POSTGRES_DB=" + pgDatabase,
		},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	require.NoError(t, err, "postgres container did not start")
	t.Cleanup(func() {
		if err := pool.Purge(resource); err != nil {
			t.Logf("purge postgres container: %v", err)
		}
	})
	// the container is removed even if cleanup never runs
	_ = resource.Expire(300)

	cfg := &db.Config{
		Host:               "localhost",
		Port:               resource.GetPort("5432/tcp"),
		User:               pgUser,
		Password:           pgPassword,
		Database:           pgDatabase,
		SSLMode:            "disable",
		MaxConnections:     4,
		MinConnections:     1,
		ConnectTimeout:     5 * time.Second,
		StatementCacheMode: "describe",
		EnableQueryLogging: testing.Verbose(),
	}

	ctx := context.Background()
	var database *db.Database
	require.NoError(t, pool.Retry(func() error {
		database, err = db.NewDatabase(ctx, cfg, TestLogger())
		return err
	}), "postgres never accepted connections")
	t.Cleanup(database.Close)

	require.NoError(t, db.RunMigrationsWithRetry(ctx, &db.MigrationConfig{DatabaseURL: cfg.URL()}, TestLogger(), 3))

	return &TestDB{PgxPool: database.Pool(), Database: database, Config: cfg}
}

// TruncateAllTables empties the collection store between tests
func TruncateAllTables(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	for _, table := range storeTables {
		_, err := pool.Exec(context.Background(), "TRUNCATE TABLE "+table+" CASCADE")
		require.NoError(t, err, "truncate %s", table)
	}
}
