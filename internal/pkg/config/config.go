// internal/pkg/config/config.go
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
)

// ErrMissingRequiredConfig is returned when a required value is empty or
// still holds a MISSING_ placeholder
var ErrMissingRequiredConfig = errors.New("missing required configuration")

// Config holds all application configuration
type Config struct {
	// Application
	App AppConfig

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Asynq
	Asynq AsynqConfig

	// AWS
	AWS AWSConfig

	// Attachments
	Attachments AttachmentsConfig

	// Security
	Security SecurityConfig

	// Server
	Server ServerConfig

	// Client sync agent
	Sync SyncConfig

	// Device-local store
	LocalStore LocalStoreConfig

	// Secrets
	Secrets SecretsConfig
}

// AppConfig holds application-specific configuration
type AppConfig struct {
	Name        string `validate:"set"`
	Environment string // development, staging, production
	Version     string
	LogLevel    string
	LogFormat   string // json, text
	Debug       bool
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host               string `validate:"set"`
	Port               string `validate:"set"`
	User               string
	Password           string
	Name               string `validate:"set"`
	SSLMode            string
	MaxConnections     int32 `validate:"gtefield=MinConnections"`
	MinConnections     int32
	MaxConnLifetime    time.Duration
	MaxConnIdleTime    time.Duration
	HealthCheckPeriod  time.Duration
	ConnectTimeout     time.Duration
	StatementCacheMode string
	EnableQueryLogging bool
	AutoMigrate        bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host         string
	Port         string
	Password     string
	DB           int
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int `validate:"gt=0"`
	MinIdleConns int
	PoolTimeout  time.Duration
	TTL          time.Duration
}

// AsynqConfig holds Asynq configuration
type AsynqConfig struct {
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	Concurrency     int
	Queues          map[string]int // queue name -> priority
	StrictPriority  bool
	RetryMax        int
	ShutdownTimeout time.Duration
	AuditQueue      string
	AuditUniqueFor  time.Duration
	AuditSchedule   string // cron spec; empty disables the periodic audit
}

// AWSConfig holds AWS configuration
type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	S3Bucket        string
	S3Endpoint      string // For MinIO in development
	UsePathStyle    bool   // For MinIO compatibility
	S3KeyPrefix     string
	S3PublicURL     string
}

// AttachmentsConfig selects where offloaded transaction photos are written
type AttachmentsConfig struct {
	Driver   string `validate:"omitempty,oneof=none disk s3"`
	DiskPath string
	BaseURL  string
}

// SecurityConfig holds security configuration
type SecurityConfig struct {
	RateLimitRequests int `validate:"gt=0"`
	RateLimitDuration time.Duration
	AllowedOrigins    []string
	SecureHeaders     bool
	APIKeys           []string
	RequestIDHeader   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string `validate:"set"`
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	RequestTimeout  time.Duration
	MaxHeaderBytes  int
	MaxBodyBytes    int64 `validate:"gt=0"`
	GracefulTimeout time.Duration
	SnapshotTTL     time.Duration
	TLSEnabled      bool
	TLSCertFile     string
	TLSKeyFile      string
}

// SyncConfig configures the headless client agent. The remote endpoint here
// only seeds settings that have never been saved on the device.
type SyncConfig struct {
	RemoteKind       string `validate:"oneof=restapi sheetscript"`
	RemoteURL        string
	RemoteAPIKey     string
	RequestTimeout   time.Duration
	DebounceInterval time.Duration `validate:"gt=0"`
	RefreshInterval  time.Duration // zero disables periodic refresh
	FlushTimeout     time.Duration
}

// LocalStoreConfig selects the device-local store
type LocalStoreConfig struct {
	Driver string `validate:"oneof=sqlite redis"`
	Path   string `validate:"required_if=Driver sqlite"`
	Prefix string
}

// SecretsConfig selects where secrets are resolved from
type SecretsConfig struct {
	Provider      string `validate:"omitempty,oneof=env aws"`
	AWSSecretName string
}

// Load loads configuration from environment variables
func Load(logger *slog.Logger) (*Config, error) {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	// Load .env file in development
	if env == "development" || env == "local" {
		if err := godotenv.Load(); err != nil {
			logger.Warn("no .env file found, using environment variables",
				slog.String("error", err.Error()))
		} else {
			logger.Info(".env file loaded successfully")
		}
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v, env)

	cfg := &Config{
		App: AppConfig{
			Name:        v.GetString("app.name"),
			Environment: env,
			Version:     v.GetString("app.version"),
			LogLevel:    v.GetString("log.level"),
			LogFormat:   v.GetString("log.format"),
			Debug:       v.GetBool("app.debug"),
		},
		Database: DatabaseConfig{
			Host:               v.GetString("db.host"),
			Port:               v.GetString("db.port"),
			User:               v.GetString("db.user"),
			Password:           v.GetString("db.password"),
			Name:               v.GetString("db.name"),
			SSLMode:            v.GetString("db.ssl_mode"),
			MaxConnections:     v.GetInt32("db.max_connections"),
			MinConnections:     v.GetInt32("db.min_connections"),
			MaxConnLifetime:    v.GetDuration("db.connection_lifetime"),
			MaxConnIdleTime:    v.GetDuration("db.idle_time"),
			HealthCheckPeriod:  v.GetDuration("db.health_check_period"),
			ConnectTimeout:     v.GetDuration("db.connect_timeout"),
			StatementCacheMode: v.GetString("db.statement_cache_mode"),
			EnableQueryLogging: v.GetBool("db.query_logging"),
			AutoMigrate:        v.GetBool("db.auto_migrate"),
		},
		Redis: RedisConfig{
			Host:         v.GetString("redis.host"),
			Port:         v.GetString("redis.port"),
			Password:     v.GetString("redis.password"),
			DB:           v.GetInt("redis.db"),
			MaxRetries:   v.GetInt("redis.max_retries"),
			DialTimeout:  v.GetDuration("redis.dial_timeout"),
			ReadTimeout:  v.GetDuration("redis.read_timeout"),
			WriteTimeout: v.GetDuration("redis.write_timeout"),
			PoolSize:     v.GetInt("redis.pool_size"),
			MinIdleConns: v.GetInt("redis.min_idle_conns"),
			PoolTimeout:  v.GetDuration("redis.pool_timeout"),
			TTL:          v.GetDuration("redis.ttl"),
		},
		Asynq: AsynqConfig{
			RedisAddr:       fmt.Sprintf("%s:%s", v.GetString("redis.host"), v.GetString("redis.port")),
			RedisPassword:   v.GetString("redis.password"),
			RedisDB:         v.GetInt("asynq.redis_db"),
			Concurrency:     v.GetInt("asynq.concurrency"),
			Queues:          parseQueues(v.GetString("asynq.queues")),
			StrictPriority:  v.GetBool("asynq.strict_priority"),
			RetryMax:        v.GetInt("asynq.retry_max"),
			ShutdownTimeout: v.GetDuration("asynq.shutdown_timeout"),
			AuditQueue:      v.GetString("asynq.audit_queue"),
			AuditUniqueFor:  v.GetDuration("asynq.audit_unique_for"),
			AuditSchedule:   v.GetString("asynq.audit_schedule"),
		},
		AWS: AWSConfig{
			Region:          v.GetString("aws.region"),
			AccessKeyID:     v.GetString("aws.access_key_id"),
			SecretAccessKey: v.GetString("aws.secret_access_key"),
			S3Bucket:        v.GetString("aws.s3.bucket"),
			S3Endpoint:      v.GetString("aws.s3.endpoint"),
			UsePathStyle:    v.GetBool("aws.s3.path_style"),
			S3KeyPrefix:     v.GetString("aws.s3.key_prefix"),
			S3PublicURL:     v.GetString("aws.s3.public_url"),
		},
		Attachments: AttachmentsConfig{
			Driver:   strings.ToLower(v.GetString("attachments.driver")),
			DiskPath: v.GetString("attachments.disk_path"),
			BaseURL:  v.GetString("attachments.base_url"),
		},
		Security: SecurityConfig{
			RateLimitRequests: v.GetInt("rate_limit.requests"),
			RateLimitDuration: v.GetDuration("rate_limit.duration"),
			AllowedOrigins:    splitList(v.GetString("allowed_origins")),
			SecureHeaders:     v.GetBool("secure_headers"),
			APIKeys:           splitList(v.GetString("api_keys")),
			RequestIDHeader:   v.GetString("request_id_header"),
		},
		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			Port:            v.GetString("server.port"),
			ReadTimeout:     v.GetDuration("server.read_timeout"),
			WriteTimeout:    v.GetDuration("server.write_timeout"),
			IdleTimeout:     v.GetDuration("server.idle_timeout"),
			RequestTimeout:  v.GetDuration("server.request_timeout"),
			MaxHeaderBytes:  v.GetInt("server.max_header_bytes"),
			MaxBodyBytes:    v.GetInt64("server.max_body_bytes"),
			GracefulTimeout: v.GetDuration("server.graceful_timeout"),
			SnapshotTTL:     v.GetDuration("server.snapshot_ttl"),
			TLSEnabled:      v.GetBool("tls.enabled"),
			TLSCertFile:     v.GetString("tls.cert_file"),
			TLSKeyFile:      v.GetString("tls.key_file"),
		},
		Sync: SyncConfig{
			RemoteKind:       strings.ToLower(v.GetString("sync.remote_kind")),
			RemoteURL:        v.GetString("sync.remote_url"),
			RemoteAPIKey:     v.GetString("sync.api_key"),
			RequestTimeout:   v.GetDuration("sync.request_timeout"),
			DebounceInterval: v.GetDuration("sync.debounce_interval"),
			RefreshInterval:  v.GetDuration("sync.refresh_interval"),
			FlushTimeout:     v.GetDuration("sync.flush_timeout"),
		},
		LocalStore: LocalStoreConfig{
			Driver: strings.ToLower(v.GetString("local_store.driver")),
			Path:   v.GetString("local_store.path"),
			Prefix: v.GetString("local_store.prefix"),
		},
		Secrets: SecretsConfig{
			Provider:      strings.ToLower(v.GetString("secrets.provider")),
			AWSSecretName: v.GetString("secrets.aws_secret_name"),
		},
	}

	if cfg.Secrets.Provider == "aws" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		sm, err := NewAWSSecretsManager(ctx, cfg.AWS.Region, cfg.Secrets.AWSSecretName, logger)
		if err != nil {
			return nil, err
		}
		if err := cfg.ApplySecrets(ctx, sm); err != nil {
			return nil, err
		}
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := (&BasicValidator{}).Validate(c); err != nil {
		return err
	}
	if c.IsProduction() {
		if err := (&ProductionValidator{}).Validate(c); err != nil {
			return err
		}
		return (&SecurityValidator{}).Validate(c)
	}
	return nil
}

// GetDatabaseURL returns the formatted database connection string
func (c *Config) GetDatabaseURL() string {
	return fmt.Sprintf(
		"postgresql://%s:%s@%s:%s/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// GetRedisAddress returns host:port of the Redis server
func (c *Config) GetRedisAddress() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

// RedisOptions builds client options for the cache and the redis local store
func (c *Config) RedisOptions() *redis.Options {
	return &redis.Options{
		Addr:         c.GetRedisAddress(),
		Password:     c.Redis.Password,
		DB:           c.Redis.DB,
		MaxRetries:   c.Redis.MaxRetries,
		DialTimeout:  c.Redis.DialTimeout,
		ReadTimeout:  c.Redis.ReadTimeout,
		WriteTimeout: c.Redis.WriteTimeout,
		PoolSize:     c.Redis.PoolSize,
		MinIdleConns: c.Redis.MinIdleConns,
		PoolTimeout:  c.Redis.PoolTimeout,
	}
}

// AsynqRedisOpt is the task queue connection. It may point at a different
// redis database than the cache.
func (c *Config) AsynqRedisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     c.Asynq.RedisAddr,
		Password: c.Asynq.RedisPassword,
		DB:       c.Asynq.RedisDB,
	}
}

// GetServerAddress returns the formatted server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// IsProduction returns true if running in production
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment returns true if running in development
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development" || c.App.Environment == "local"
}

// Helper functions

func setDefaults(v *viper.Viper, env string) {
	dev := env == "development" || env == "local"

	v.SetDefault("app.name", "stocksync")
	v.SetDefault("app.version", "dev")
	v.SetDefault("app.debug", dev)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", "5432")
	v.SetDefault("db.user", "stocksync")
	v.SetDefault("db.password", "stocksync_dev")
	v.SetDefault("db.name", "stocksync")
	v.SetDefault("db.ssl_mode", "disable")
	v.SetDefault("db.max_connections", 25)
	v.SetDefault("db.min_connections", 5)
	v.SetDefault("db.connection_lifetime", time.Hour)
	v.SetDefault("db.idle_time", 30*time.Minute)
	v.SetDefault("db.health_check_period", time.Minute)
	v.SetDefault("db.connect_timeout", 10*time.Second)
	v.SetDefault("db.statement_cache_mode", "describe")
	v.SetDefault("db.query_logging", dev)
	v.SetDefault("db.auto_migrate", true)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.read_timeout", 3*time.Second)
	v.SetDefault("redis.write_timeout", 3*time.Second)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.pool_timeout", 4*time.Second)
	v.SetDefault("redis.ttl", time.Hour)

	v.SetDefault("asynq.redis_db", 0)
	v.SetDefault("asynq.concurrency", 10)
	v.SetDefault("asynq.queues", "critical:6,default:3,low:1")
	v.SetDefault("asynq.strict_priority", false)
	v.SetDefault("asynq.retry_max", 3)
	v.SetDefault("asynq.shutdown_timeout", 30*time.Second)
	v.SetDefault("asynq.audit_queue", "low")
	v.SetDefault("asynq.audit_unique_for", 30*time.Second)
	v.SetDefault("asynq.audit_schedule", "@every 1h")

	v.SetDefault("aws.region", "us-east-1")
	v.SetDefault("aws.access_key_id", "")
	v.SetDefault("aws.secret_access_key", "")
	v.SetDefault("aws.s3.bucket", "stocksync-attachments")
	v.SetDefault("aws.s3.endpoint", "")
	v.SetDefault("aws.s3.path_style", dev)
	v.SetDefault("aws.s3.key_prefix", "")
	v.SetDefault("aws.s3.public_url", "")

	v.SetDefault("attachments.driver", "none")
	v.SetDefault("attachments.disk_path", "./data/attachments")
	v.SetDefault("attachments.base_url", "")

	v.SetDefault("rate_limit.requests", 100)
	v.SetDefault("rate_limit.duration", time.Minute)
	v.SetDefault("allowed_origins", "*")
	v.SetDefault("secure_headers", env == "production")
	v.SetDefault("api_keys", "")
	v.SetDefault("request_id_header", "X-Request-ID")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.request_timeout", 25*time.Second)
	v.SetDefault("server.max_header_bytes", 1<<20) // 1 MB
	v.SetDefault("server.max_body_bytes", 32<<20)
	v.SetDefault("server.graceful_timeout", 30*time.Second)
	v.SetDefault("server.snapshot_ttl", 5*time.Minute)
	v.SetDefault("tls.enabled", false)
	v.SetDefault("tls.cert_file", "")
	v.SetDefault("tls.key_file", "")

	v.SetDefault("sync.remote_kind", "restapi")
	v.SetDefault("sync.remote_url", "")
	v.SetDefault("sync.api_key", "")
	v.SetDefault("sync.request_timeout", 8*time.Second)
	v.SetDefault("sync.debounce_interval", 1500*time.Millisecond)
	v.SetDefault("sync.refresh_interval", 0)
	v.SetDefault("sync.flush_timeout", 10*time.Second)

	v.SetDefault("local_store.driver", "sqlite")
	v.SetDefault("local_store.path", "./data/stocksync.db")
	v.SetDefault("local_store.prefix", "stocksync")

	v.SetDefault("secrets.provider", "env")
	v.SetDefault("secrets.aws_secret_name", "stocksync/"+env)
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseQueues(queuesStr string) map[string]int {
	queues := make(map[string]int)
	pairs := strings.Split(queuesStr, ",")
	for _, pair := range pairs {
		parts := strings.Split(pair, ":")
		if len(parts) == 2 {
			name := strings.TrimSpace(parts[0])
			priority, err := strconv.Atoi(strings.TrimSpace(parts[1]))
			if err == nil {
				queues[name] = priority
			}
		}
	}
	if len(queues) == 0 {
		queues["default"] = 1
	}
	return queues
}
