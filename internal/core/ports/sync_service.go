// internal/core/ports/sync_service.go
package ports

import (
	"context"
	"encoding/json"

	"github.com/ammerola/stocksync/internal/core/domain"
)

// PushRequest is one POST /api/sync body
type PushRequest struct {
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data"`
	Version int64           `json:"version,omitempty"`
}

// SyncService is the application service port of the reference backend
type SyncService interface {
	Snapshot(ctx context.Context) (Snapshot, error)
	Push(ctx context.Context, req PushRequest) error
}

// AuditService computes and stores stock audits
type AuditService interface {
	Run(ctx context.Context, reason string) (*domain.StockAudit, error)
	Latest(ctx context.Context) (*domain.StockAudit, error)
}
