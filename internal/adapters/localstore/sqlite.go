// internal/adapters/localstore/sqlite.go
package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ammerola/stocksync/internal/core/ports"
)

// Entry is one persisted key
type Entry struct {
	Key       string `gorm:"primaryKey;size:191"`
	Value     string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

// TableName overrides the gorm default
func (Entry) TableName() string { return "kv_entries" }

// SQLiteStore is a file backed ports.LocalStore with one row per key
type SQLiteStore struct {
	db     *gorm.DB
	prefix string
	logger *slog.Logger
}

var _ ports.LocalStore = (*SQLiteStore)(nil)

// OpenSQLite opens (creating if needed) the database at path and migrates the
// key table. Keys are stored as "<prefix>:<key>" when prefix is set.
func OpenSQLite(path, prefix string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Discard,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite %s: %w", path, err)
	}
	return NewSQLiteStore(db, prefix, logger)
}

// NewSQLiteStore wraps an open gorm database
func NewSQLiteStore(db *gorm.DB, prefix string, logger *slog.Logger) (*SQLiteStore, error) {
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate kv_entries: %w", err)
	}
	return &SQLiteStore{
		db:     db,
		prefix: prefix,
		logger: logger.With(slog.String("component", "sqlite_local_store")),
	}, nil
}

func (s *SQLiteStore) key(k string) string {
	if s.prefix == "" {
		return k
	}
	return s.prefix + ":" + k
}

// Load decodes the value stored under key into dest
func (s *SQLiteStore) Load(ctx context.Context, key string, dest interface{}) error {
	var entry Entry
	err := s.db.WithContext(ctx).Where("key = ?", s.key(key)).Take(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.ErrKeyNotFound
		}
		return fmt.Errorf("sqlite read %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(entry.Value), dest); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// Save upserts the JSON encoding of value under key
func (s *SQLiteStore) Save(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	entry := Entry{Key: s.key(key), Value: string(data), UpdatedAt: time.Now().UTC()}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("sqlite write %s: %w", key, err)
	}

	s.logger.DebugContext(ctx, "key saved",
		slog.String("key", key),
		slog.Int("bytes", len(data)))
	return nil
}

// Clear removes the given keys
func (s *SQLiteStore) Clear(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.key(k)
	}
	if err := s.db.WithContext(ctx).Where("key IN ?", full).Delete(&Entry{}).Error; err != nil {
		return fmt.Errorf("sqlite delete: %w", err)
	}
	return nil
}

// Close closes the underlying connection pool
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
