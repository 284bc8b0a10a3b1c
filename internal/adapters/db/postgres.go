// internal/adapters/db/postgres.go
package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"

	"github.com/ammerola/stocksync/internal/core/ports"
	"github.com/ammerola/stocksync/internal/pkg/config"
)

const (
	applicationName = "stocksync"
	// statements longer than this are cut in query logs
	maxLoggedSQL = 512
)

// Config holds database configuration
type Config struct {
	Host               string
	Port               string
	User               string
	Password           string
	Database           string
	SSLMode            string
	MaxConnections     int32
	MinConnections     int32
	MaxConnLifetime    time.Duration
	MaxConnIdleTime    time.Duration
	HealthCheckPeriod  time.Duration
	ConnectTimeout     time.Duration
	StatementCacheMode string
	EnableQueryLogging bool
	// TxRetries is how many times a transaction is re-run after a
	// serialization failure or deadlock. Zero means 3.
	TxRetries int
}

// ConfigFromSettings maps the loaded database settings onto a pool config
func ConfigFromSettings(s config.DatabaseConfig) *Config {
	return &Config{
		Host:               s.Host,
		Port:               s.Port,
		User:               s.User,
		Password:           s.Password,
		Database:           s.Name,
		SSLMode:            s.SSLMode,
		MaxConnections:     s.MaxConnections,
		MinConnections:     s.MinConnections,
		MaxConnLifetime:    s.MaxConnLifetime,
		MaxConnIdleTime:    s.MaxConnIdleTime,
		HealthCheckPeriod:  s.HealthCheckPeriod,
		ConnectTimeout:     s.ConnectTimeout,
		StatementCacheMode: s.StatementCacheMode,
		EnableQueryLogging: s.EnableQueryLogging,
	}
}

// URL returns the connection string in URL form, as expected by migrate
func (c *Config) URL() string {
	u := url.URL{
		Scheme: "postgresql",
		User:   url.UserPassword(c.User, c.Password),
		Host:   c.Host + ":" + c.Port,
		Path:   "/" + c.Database,
	}
	q := url.Values{}
	q.Set("sslmode", c.SSLMode)
	if c.ConnectTimeout > 0 {
		q.Set("connect_timeout", strconv.Itoa(int(c.ConnectTimeout.Seconds())))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Database is the pgx pool behind the collection store
type Database struct {
	pool      *pgxpool.Pool
	txRetries int
	logger    *slog.Logger
}

var _ ports.Database = (*Database)(nil)

// NewDatabase opens the pool and checks that the server answers
func NewDatabase(ctx context.Context, config *Config, logger *slog.Logger) (*Database, error) {
	if config == nil {
		return nil, errors.New("database config is required")
	}
	logger = logger.With(slog.String("component", "postgres"))

	poolConfig, err := poolConfig(config, logger)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	retries := config.TxRetries
	if retries <= 0 {
		retries = 3
	}

	logger.InfoContext(ctx, "database connection established",
		slog.String("host", config.Host),
		slog.String("database", config.Database),
		slog.Int("max_connections", int(config.MaxConnections)))

	return &Database{pool: pool, txRetries: retries, logger: logger}, nil
}

func poolConfig(config *Config, logger *slog.Logger) (*pgxpool.Config, error) {
	pc, err := pgxpool.ParseConfig(config.URL())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}

	pc.MaxConns = config.MaxConnections
	pc.MinConns = config.MinConnections
	pc.MaxConnLifetime = config.MaxConnLifetime
	pc.MaxConnIdleTime = config.MaxConnIdleTime
	pc.HealthCheckPeriod = config.HealthCheckPeriod

	pc.ConnConfig.RuntimeParams["application_name"] = applicationName
	pc.ConnConfig.DefaultQueryExecMode = execMode(config.StatementCacheMode)

	if config.EnableQueryLogging {
		pc.ConnConfig.Tracer = &tracelog.TraceLog{
			Logger:   &queryLogger{logger: logger.With(slog.String("component", "pgx"))},
			LogLevel: tracelog.LogLevelDebug,
		}
	}
	return pc, nil
}

// execMode maps the configured statement cache mode. PgBouncer in transaction
// mode needs "exec" or "simple".
func execMode(mode string) pgx.QueryExecMode {
	switch mode {
	case "statement":
		return pgx.QueryExecModeCacheStatement
	case "exec":
		return pgx.QueryExecModeExec
	case "simple":
		return pgx.QueryExecModeSimpleProtocol
	default:
		return pgx.QueryExecModeCacheDescribe
	}
}

// Pool returns the underlying pgxpool.Pool
func (db *Database) Pool() *pgxpool.Pool {
	return db.pool
}

// Close closes all database connections
func (db *Database) Close() {
	db.pool.Close()
	db.logger.Info("database connections closed")
}

// Ping verifies database connectivity
func (db *Database) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// Health reports pool usage and how many collections have been pushed, with
// the time of the latest push
func (db *Database) Health(ctx context.Context) map[string]interface{} {
	stats := db.pool.Stat()
	health := map[string]interface{}{
		"status":               "healthy",
		"total_connections":    stats.TotalConns(),
		"idle_connections":     stats.IdleConns(),
		"acquired_connections": stats.AcquiredConns(),
		"max_connections":      stats.MaxConns(),
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	var collections int
	var lastPush *time.Time
	err := db.pool.QueryRow(ctx,
		"SELECT COUNT(*), MAX(updated_at) FROM collection_versions").
		Scan(&collections, &lastPush)
	if err != nil {
		health["status"] = "unhealthy"
		health["error"] = err.Error()
		return health
	}

	health["collections"] = collections
	if lastPush != nil {
		health["last_push"] = lastPush.UTC().Format(time.RFC3339)
	}
	return health
}

// Transaction runs fn inside a transaction. fn is run again from the start
// when postgres aborts it with a serialization failure or a deadlock, so it
// must not have side effects outside tx.
func (db *Database) Transaction(ctx context.Context, fn func(pgx.Tx) error) error {
	var err error
	for attempt := 1; attempt <= db.txRetries; attempt++ {
		err = db.runTx(ctx, fn)
		if err == nil || !retryable(err) {
			return err
		}
		db.logger.WarnContext(ctx, "transaction conflict, retrying",
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()))
	}
	return err
}

func (db *Database) runTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := db.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("tx failed: %v, rollback failed: %w", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// retryable reports serialization_failure (40001) and deadlock_detected (40P01)
func retryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}

// Query executes a query that returns rows
func (db *Database) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	return db.pool.Query(ctx, sql, args...)
}

// QueryRow executes a query that returns at most one row
func (db *Database) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	return db.pool.QueryRow(ctx, sql, args...)
}

// queryLogger routes pgx traces to slog. Bind arguments are dropped: a
// collection push binds every record payload.
type queryLogger struct {
	logger *slog.Logger
}

func (l *queryLogger) Log(ctx context.Context, level tracelog.LogLevel, msg string, data map[string]interface{}) {
	attrs := make([]slog.Attr, 0, len(data))
	for k, v := range data {
		switch k {
		case "args":
			if args, ok := v.([]any); ok {
				attrs = append(attrs, slog.Int("arg_count", len(args)))
			}
		case "sql":
			sql, _ := v.(string)
			if len(sql) > maxLoggedSQL {
				sql = sql[:maxLoggedSQL] + "..."
			}
			attrs = append(attrs, slog.String("sql", sql))
		default:
			attrs = append(attrs, slog.Any(k, v))
		}
	}

	lvl := slog.LevelDebug
	switch level {
	case tracelog.LogLevelError:
		lvl = slog.LevelError
	case tracelog.LogLevelWarn:
		lvl = slog.LevelWarn
	case tracelog.LogLevelInfo:
		lvl = slog.LevelInfo
	}
	l.logger.LogAttrs(ctx, lvl, msg, attrs...)
}
