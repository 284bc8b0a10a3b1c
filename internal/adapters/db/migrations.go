// internal/adapters/db/migrations.go
package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// MigrationConfig holds migration configuration. The schema ships embedded in
// the binary.
type MigrationConfig struct {
	DatabaseURL      string
	TableName        string
	SchemaName       string
	ForceDirty       bool
	StatementTimeout time.Duration
}

// SchemaStatus compares the applied schema with the embedded one
type SchemaStatus struct {
	Applied uint
	Latest  uint
	Dirty   bool
}

// Pending reports whether embedded migrations have not been applied yet
func (s SchemaStatus) Pending() bool {
	return s.Applied < s.Latest
}

// Migrator applies the collection store schema
type Migrator struct {
	migrate *migrate.Migrate
	config  MigrationConfig
	logger  *slog.Logger
	db      *sql.DB
}

func migrationSource() (source.Driver, error) {
	src, err := iofs.New(embeddedMigrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	return src, nil
}

// LatestVersion returns the highest embedded migration version
func LatestVersion() (uint, error) {
	src, err := migrationSource()
	if err != nil {
		return 0, err
	}
	defer src.Close()

	v, err := src.First()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read first migration: %w", err)
	}
	for {
		next, err := src.Next(v)
		if errors.Is(err, fs.ErrNotExist) {
			return v, nil
		}
		if err != nil {
			return 0, fmt.Errorf("failed to read migration after %d: %w", v, err)
		}
		v = next
	}
}

// NewMigrator connects to the database named by config.DatabaseURL
func NewMigrator(ctx context.Context, config MigrationConfig, logger *slog.Logger) (*Migrator, error) {
	if config.DatabaseURL == "" {
		return nil, errors.New("migration database url is required")
	}
	if config.TableName == "" {
		config.TableName = "schema_migrations"
	}
	if config.SchemaName == "" {
		config.SchemaName = "public"
	}
	if config.StatementTimeout == 0 {
		config.StatementTimeout = 10 * time.Minute
	}

	db, err := sql.Open("pgx", config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{
		MigrationsTable:  config.TableName,
		SchemaName:       config.SchemaName,
		StatementTimeout: config.StatementTimeout,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create postgres driver: %w", err)
	}

	src, err := migrationSource()
	if err != nil {
		db.Close()
		return nil, err
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create migration instance: %w", err)
	}

	return &Migrator{
		migrate: m,
		config:  config,
		logger:  logger.With(slog.String("component", "migrator")),
		db:      db,
	}, nil
}

// Status reads the applied version
func (m *Migrator) Status() (SchemaStatus, error) {
	latest, err := LatestVersion()
	if err != nil {
		return SchemaStatus{}, err
	}

	applied, dirty, err := m.migrate.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return SchemaStatus{}, fmt.Errorf("failed to get current version: %w", err)
	}
	return SchemaStatus{Applied: applied, Latest: latest, Dirty: dirty}, nil
}

// Up applies every pending migration. A dirty schema is an error unless
// ForceDirty is set, in which case the dirty version is marked clean first.
func (m *Migrator) Up(ctx context.Context) error {
	status, err := m.Status()
	if err != nil {
		return err
	}

	if status.Dirty {
		if !m.config.ForceDirty {
			return fmt.Errorf("schema is dirty at version %d", status.Applied)
		}
		m.logger.WarnContext(ctx, "forcing dirty migration",
			slog.Uint64("version", uint64(status.Applied)))
		if err := m.migrate.Force(int(status.Applied)); err != nil {
			return fmt.Errorf("failed to force version: %w", err)
		}
	}

	if !status.Pending() {
		m.logger.InfoContext(ctx, "schema up to date",
			slog.Uint64("version", uint64(status.Applied)))
		return nil
	}

	if err := m.migrate.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	m.logger.InfoContext(ctx, "schema migrated",
		slog.Uint64("from_version", uint64(status.Applied)),
		slog.Uint64("to_version", uint64(status.Latest)))
	return nil
}

// Close releases the migration connection
func (m *Migrator) Close() error {
	sourceErr, dbErr := m.migrate.Close()
	if err := errors.Join(sourceErr, dbErr); err != nil {
		return fmt.Errorf("failed to close migrator: %w", err)
	}
	if err := m.db.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// RunMigrationsWithRetry migrates the schema, retrying with a doubling wait
// while the database is still starting up
func RunMigrationsWithRetry(ctx context.Context, config *MigrationConfig, logger *slog.Logger, attempts int) error {
	if config == nil {
		return errors.New("migration config is required")
	}

	wait := time.Second
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = migrateOnce(ctx, *config, logger)
		if lastErr == nil {
			return nil
		}
		logger.ErrorContext(ctx, "migration attempt failed",
			slog.Int("attempt", attempt),
			slog.String("error", lastErr.Error()))

		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}
	return fmt.Errorf("migrations failed after %d attempts: %w", attempts, lastErr)
}

func migrateOnce(ctx context.Context, config MigrationConfig, logger *slog.Logger) error {
	m, err := NewMigrator(ctx, config, logger)
	if err != nil {
		return err
	}
	upErr := m.Up(ctx)
	return errors.Join(upErr, m.Close())
}
