// internal/core/services/audit.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ammerola/stocksync/internal/core/domain"
	"github.com/ammerola/stocksync/internal/core/ports"
)

// LatestAuditKey is the cache key of the most recent stock audit
const LatestAuditKey = "audit:latest"

// AuditService builds stock audits from the stored collections
type AuditService struct {
	repo   ports.SyncRepository
	cache  ports.CacheRepository
	now    func() time.Time
	logger *slog.Logger
}

var _ ports.AuditService = (*AuditService)(nil)

// NewAuditService creates a new audit service
func NewAuditService(repo ports.SyncRepository, cache ports.CacheRepository, logger *slog.Logger) *AuditService {
	return &AuditService{
		repo:   repo,
		cache:  cache,
		now:    time.Now,
		logger: logger.With(slog.String("service", "audit")),
	}
}

// Run audits the current inventory against the transaction log and stores
// the result as the latest audit
func (s *AuditService) Run(ctx context.Context, reason string) (*domain.StockAudit, error) {
	snap, err := s.repo.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load collections: %w", err)
	}

	var items []domain.InventoryItem
	if err := decodeCollection(snap, domain.CollectionInventory, &items); err != nil {
		return nil, err
	}
	var log []domain.Transaction
	if err := decodeCollection(snap, domain.CollectionTransactions, &log); err != nil {
		return nil, err
	}

	audit := domain.AuditStock(items, log, s.now())
	audit.Reason = reason

	if err := s.cache.Set(ctx, LatestAuditKey, audit); err != nil {
		return nil, fmt.Errorf("failed to store audit: %w", err)
	}

	s.logger.InfoContext(ctx, "stock audit completed",
		slog.String("reason", reason),
		slog.Int("items", audit.ItemCount),
		slog.Int("low_stock", len(audit.LowStock)),
		slog.Int("drift", len(audit.Drift)),
		slog.Int("dangling", len(audit.Dangling)))

	return &audit, nil
}

// Latest returns the most recent audit or domain.ErrNotFound
func (s *AuditService) Latest(ctx context.Context) (*domain.StockAudit, error) {
	var audit domain.StockAudit
	if err := s.cache.Get(ctx, LatestAuditKey, &audit); err != nil {
		if errors.Is(err, ports.ErrCacheMiss) {
			return nil, fmt.Errorf("%w: no audit has run yet", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read audit: %w", err)
	}
	return &audit, nil
}

func decodeCollection(snap ports.Snapshot, c domain.Collection, dest interface{}) error {
	raw, ok := snap[c]
	if !ok || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("failed to decode %s: %w", c, err)
	}
	return nil
}
