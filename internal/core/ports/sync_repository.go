// internal/core/ports/sync_repository.go
package ports

import (
	"context"
	"encoding/json"

	"github.com/ammerola/stocksync/internal/core/domain"
)

// Snapshot is the stored state of every remote collection as raw JSON.
// List collections are arrays; settings is an object.
type Snapshot map[domain.Collection]json.RawMessage

// SyncRepository is the persistence port of the reference backend
type SyncRepository interface {
	// LoadAll returns every collection, with empty arrays for collections never pushed
	LoadAll(ctx context.Context) (Snapshot, error)
	// ReplaceCollection deletes all records of collection and inserts records in
	// order. It returns domain.ErrStaleVersion when version is not newer than
	// the stored one.
	ReplaceCollection(ctx context.Context, collection domain.Collection, records []json.RawMessage, version int64) error
	// UpsertSettings replaces settings by key
	UpsertSettings(ctx context.Context, settings map[string]json.RawMessage, version int64) error
	// Versions returns the last accepted version per collection
	Versions(ctx context.Context) (map[domain.Collection]int64, error)
}
