// internal/adapters/db/sync_repository.go
package db

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/ammerola/stocksync/internal/core/domain"
	"github.com/ammerola/stocksync/internal/core/ports"
)

// insertChunk keeps a multi-row insert well below the 65535 parameter limit
const insertChunk = 500

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// SyncRepository stores collections as ordered JSONB rows
type SyncRepository struct {
	db     ports.Database
	logger *slog.Logger
}

var _ ports.SyncRepository = (*SyncRepository)(nil)

// NewSyncRepository creates a new sync repository
func NewSyncRepository(db ports.Database, logger *slog.Logger) *SyncRepository {
	return &SyncRepository{
		db:     db,
		logger: logger.With(slog.String("repository", "sync")),
	}
}

// LoadAll returns every remote collection. Collections never pushed are
// returned as empty arrays and settings as an empty object.
func (r *SyncRepository) LoadAll(ctx context.Context) (ports.Snapshot, error) {
	query, args, err := psql.Select("collection", "payload").
		From("collection_records").
		OrderBy("collection", "position").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query collections: %w", err)
	}
	defer rows.Close()

	grouped := make(map[domain.Collection][][]byte)
	for rows.Next() {
		var name string
		var payload []byte
		if err := rows.Scan(&name, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		c := domain.Collection(name)
		grouped[c] = append(grouped[c], payload)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}

	snap := make(ports.Snapshot)
	for _, c := range domain.RemoteCollections() {
		if c == domain.CollectionSettings {
			continue
		}
		snap[c] = joinArray(grouped[c])
	}

	settings, err := r.loadSettings(ctx)
	if err != nil {
		return nil, err
	}
	snap[domain.CollectionSettings] = settings

	return snap, nil
}

func (r *SyncRepository) loadSettings(ctx context.Context) (json.RawMessage, error) {
	query, args, err := psql.Select("key", "value").From("app_settings").OrderBy("key").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	settings := make(map[string]json.RawMessage)
	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		settings[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate settings: %w", err)
	}

	raw, err := json.Marshal(settings)
	if err != nil {
		return nil, fmt.Errorf("failed to encode settings: %w", err)
	}
	return raw, nil
}

// ReplaceCollection deletes every record of the collection and inserts the
// new ones in order, inside one transaction. A positive version must be newer
// than the stored one; zero skips the check.
func (r *SyncRepository) ReplaceCollection(ctx context.Context, c domain.Collection, records []json.RawMessage, version int64) error {
	err := r.db.Transaction(ctx, func(tx pgx.Tx) error {
		if err := claimVersion(ctx, tx, c, version); err != nil {
			return err
		}

		query, args, err := psql.Delete("collection_records").
			Where(squirrel.Eq{"collection": c.String()}).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build delete: %w", err)
		}
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to clear %s: %w", c, err)
		}

		for start := 0; start < len(records); start += insertChunk {
			end := min(start+insertChunk, len(records))

			insert := psql.Insert("collection_records").
				Columns("collection", "position", "record_id", "payload")
			for i := start; i < end; i++ {
				insert = insert.Values(c.String(), i, recordID(records[i]), []byte(records[i]))
			}

			query, args, err := insert.ToSql()
			if err != nil {
				return fmt.Errorf("failed to build insert: %w", err)
			}
			if _, err := tx.Exec(ctx, query, args...); err != nil {
				return fmt.Errorf("failed to insert %s records %d-%d: %w", c, start, end, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.logger.DebugContext(ctx, "collection replaced",
		slog.String("collection", c.String()),
		slog.Int("records", len(records)),
		slog.Int64("version", version))
	return nil
}

// UpsertSettings writes each key, leaving keys absent from settings untouched
func (r *SyncRepository) UpsertSettings(ctx context.Context, settings map[string]json.RawMessage, version int64) error {
	return r.db.Transaction(ctx, func(tx pgx.Tx) error {
		if err := claimVersion(ctx, tx, domain.CollectionSettings, version); err != nil {
			return err
		}
		if len(settings) == 0 {
			return nil
		}

		insert := psql.Insert("app_settings").Columns("key", "value", "updated_at")
		for key, value := range settings {
			insert = insert.Values(key, []byte(value), squirrel.Expr("NOW()"))
		}
		query, args, err := insert.
			Suffix("ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at").
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build upsert: %w", err)
		}
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to upsert settings: %w", err)
		}
		return nil
	})
}

// Versions returns the last accepted version per collection
func (r *SyncRepository) Versions(ctx context.Context) (map[domain.Collection]int64, error) {
	query, args, err := psql.Select("collection", "version").From("collection_versions").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query versions: %w", err)
	}
	defer rows.Close()

	versions := make(map[domain.Collection]int64)
	for rows.Next() {
		var name string
		var version int64
		if err := rows.Scan(&name, &version); err != nil {
			return nil, fmt.Errorf("failed to scan version: %w", err)
		}
		versions[domain.Collection(name)] = version
	}
	return versions, rows.Err()
}

// claimVersion locks the version row of c and records version. It fails with
// domain.ErrStaleVersion when a positive version is not newer than the stored one.
func claimVersion(ctx context.Context, tx pgx.Tx, c domain.Collection, version int64) error {
	query, args, err := psql.Insert("collection_versions").
		Columns("collection", "version").
		Values(c.String(), 0).
		Suffix("ON CONFLICT (collection) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build version seed: %w", err)
	}
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to seed version: %w", err)
	}

	query, args, err = psql.Select("version").
		From("collection_versions").
		Where(squirrel.Eq{"collection": c.String()}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build version lock: %w", err)
	}

	var stored int64
	if err := tx.QueryRow(ctx, query, args...).Scan(&stored); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("version row for %s vanished", c)
		}
		return fmt.Errorf("failed to lock version: %w", err)
	}

	if version > 0 && version <= stored {
		return fmt.Errorf("%w: %s has %d, got %d", domain.ErrStaleVersion, c, stored, version)
	}

	update := psql.Update("collection_versions").
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"collection": c.String()})
	if version > 0 {
		update = update.Set("version", version)
	}
	query, args, err = update.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build version update: %w", err)
	}
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update version: %w", err)
	}
	return nil
}

// recordID extracts the "id" field of a record as text, numbers included
func recordID(raw json.RawMessage) string {
	var rec struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(raw, &rec); err != nil || len(rec.ID) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(rec.ID, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(rec.ID))
}

func joinArray(items [][]byte) json.RawMessage {
	if len(items) == 0 {
		return json.RawMessage("[]")
	}
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, item := range items {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(item)
	}
	buf.WriteByte(']')
	return buf.Bytes()
}
