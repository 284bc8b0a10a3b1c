// internal/core/services/sync.go
package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ammerola/stocksync/internal/core/domain"
	"github.com/ammerola/stocksync/internal/core/ports"
)

const (
	snapshotCacheKey   = "sync:snapshot"
	defaultSnapshotTTL = 5 * time.Minute
)

// SyncService implements the reference backend of the remote sync contract
type SyncService struct {
	repo        ports.SyncRepository
	cache       ports.CacheRepository
	attachments ports.AttachmentStore
	tasks       ports.TaskEnqueuer
	snapshotTTL time.Duration
	logger      *slog.Logger
}

// Statically assert that *SyncService implements the SyncService interface.
var _ ports.SyncService = (*SyncService)(nil)

// SyncServiceDeps groups the optional collaborators of a SyncService. A nil
// cache, attachment store or task queue disables that feature.
type SyncServiceDeps struct {
	Cache       ports.CacheRepository
	Attachments ports.AttachmentStore
	Tasks       ports.TaskEnqueuer
	SnapshotTTL time.Duration
}

// NewSyncService creates a new sync service
func NewSyncService(repo ports.SyncRepository, deps SyncServiceDeps, logger *slog.Logger) *SyncService {
	ttl := deps.SnapshotTTL
	if ttl <= 0 {
		ttl = defaultSnapshotTTL
	}
	return &SyncService{
		repo:        repo,
		cache:       deps.Cache,
		attachments: deps.Attachments,
		tasks:       deps.Tasks,
		snapshotTTL: ttl,
		logger:      logger.With(slog.String("service", "sync")),
	}
}

// Snapshot returns every remote collection, served from cache when possible
func (s *SyncService) Snapshot(ctx context.Context) (ports.Snapshot, error) {
	if s.cache == nil {
		return s.load(ctx)
	}

	var snap ports.Snapshot
	err := s.cache.GetOrSet(ctx, snapshotCacheKey, &snap, func() (interface{}, error) {
		return s.load(ctx)
	}, s.snapshotTTL)
	if err == nil {
		return snap, nil
	}

	s.logger.WarnContext(ctx, "snapshot cache unavailable, reading database",
		slog.String("error", err.Error()))
	return s.load(ctx)
}

func (s *SyncService) load(ctx context.Context) (ports.Snapshot, error) {
	snap, err := s.repo.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load collections: %w", err)
	}
	return snap, nil
}

// Push replaces one collection. Settings are upserted by key; every other
// collection is replaced wholesale in the pushed order.
func (s *SyncService) Push(ctx context.Context, req ports.PushRequest) error {
	c, err := domain.ParseCollection(req.Type)
	if err != nil {
		return err
	}
	if !c.Remote() {
		return fmt.Errorf("%w: %s is not synced", domain.ErrUnknownCollection, c)
	}

	if c == domain.CollectionSettings {
		var settings map[string]json.RawMessage
		if err := decodeStrict(req.Data, &settings); err != nil {
			return fmt.Errorf("%w: settings must be an object: %v", domain.ErrValidation, err)
		}
		if err := s.repo.UpsertSettings(ctx, settings, req.Version); err != nil {
			return fmt.Errorf("failed to store settings: %w", err)
		}
	} else {
		var records []json.RawMessage
		if err := decodeStrict(req.Data, &records); err != nil {
			return fmt.Errorf("%w: %s must be an array: %v", domain.ErrValidation, c, err)
		}
		if c == domain.CollectionTransactions {
			records = s.offloadPhotos(ctx, records)
		}
		if err := s.repo.ReplaceCollection(ctx, c, records, req.Version); err != nil {
			return fmt.Errorf("failed to replace %s: %w", c, err)
		}
	}

	s.logger.InfoContext(ctx, "collection pushed",
		slog.String("collection", c.String()),
		slog.Int64("version", req.Version),
		slog.Int("bytes", len(req.Data)))

	s.invalidate(ctx)
	if c == domain.CollectionInventory || c == domain.CollectionTransactions {
		s.enqueueAudit(ctx, "push:"+c.String())
	}
	return nil
}

func (s *SyncService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, snapshotCacheKey); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate snapshot cache",
			slog.String("error", err.Error()))
	}
}

func (s *SyncService) enqueueAudit(ctx context.Context, reason string) {
	if s.tasks == nil {
		return
	}
	if err := s.tasks.EnqueueStockAudit(ctx, reason); err != nil {
		s.logger.WarnContext(ctx, "failed to enqueue stock audit",
			slog.String("reason", reason),
			slog.String("error", err.Error()))
	}
}

// offloadPhotos uploads inline data: URL photos of each transaction and
// replaces them with the stored URL. Records that cannot be rewritten are
// kept as pushed.
func (s *SyncService) offloadPhotos(ctx context.Context, records []json.RawMessage) []json.RawMessage {
	if s.attachments == nil {
		return records
	}

	out := make([]json.RawMessage, len(records))
	for i, raw := range records {
		out[i] = raw
		if !bytes.Contains(raw, []byte(`"data:`)) {
			continue
		}

		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			continue
		}
		var photos []string
		if err := json.Unmarshal(fields["photos"], &photos); err != nil || len(photos) == 0 {
			continue
		}
		var txID string
		_ = json.Unmarshal(fields["id"], &txID)

		changed := false
		for j, photo := range photos {
			url, err := s.uploadDataURL(ctx, txID, photo)
			if err != nil {
				s.logger.WarnContext(ctx, "failed to offload transaction photo",
					slog.String("transaction_id", txID),
					slog.String("error", err.Error()))
				continue
			}
			if url != "" {
				photos[j] = url
				changed = true
			}
		}
		if !changed {
			continue
		}

		encoded, err := json.Marshal(photos)
		if err != nil {
			continue
		}
		fields["photos"] = encoded
		if rewritten, err := json.Marshal(fields); err == nil {
			out[i] = rewritten
		}
	}
	return out
}

// uploadDataURL returns "" for values that are not data: URLs
func (s *SyncService) uploadDataURL(ctx context.Context, txID, value string) (string, error) {
	contentType, body, ok, err := parseDataURL(value)
	if !ok || err != nil {
		return "", err
	}

	if txID == "" {
		txID = "unassigned"
	}
	key := fmt.Sprintf("transactions/%s/%s%s", txID, uuid.NewString(), extensionFor(contentType))
	url, err := s.attachments.Upload(ctx, key, contentType, body)
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return url, nil
}

func parseDataURL(value string) (contentType string, body []byte, ok bool, err error) {
	rest, found := strings.CutPrefix(value, "data:")
	if !found {
		return "", nil, false, nil
	}
	meta, payload, found := strings.Cut(rest, ",")
	if !found {
		return "", nil, true, errors.New("malformed data URL")
	}

	contentType, isBase64 := strings.CutSuffix(meta, ";base64")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if !isBase64 {
		return contentType, []byte(payload), true, nil
	}

	body, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, true, fmt.Errorf("invalid base64 payload: %w", err)
	}
	return contentType, body, true, nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	}
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}

func decodeStrict(data json.RawMessage, dest interface{}) error {
	if len(bytes.TrimSpace(data)) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return errors.New("missing data")
	}
	return json.Unmarshal(data, dest)
}
