// internal/workers/cleanup_processor.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ammerola/stocksync/internal/core/domain"
	"github.com/ammerola/stocksync/internal/core/ports"
)

const (
	TypeAttachmentCleanup = "attachments:cleanup"

	attachmentRoot       = "transactions/"
	defaultAttachmentAge = 24 * time.Hour
)

// NewAttachmentCleanupTask builds an attachment cleanup task
func NewAttachmentCleanupTask() *asynq.Task {
	return asynq.NewTask(TypeAttachmentCleanup, nil)
}

// CleanupProcessor removes offloaded photos that no transaction references
// anymore. It only applies to the disk attachment store.
type CleanupProcessor struct {
	repo     ports.SyncRepository
	basePath string
	maxAge   time.Duration
	logger   *slog.Logger
}

// NewCleanupProcessor creates a new cleanup processor. Files younger than
// maxAge are kept so that a push still in flight does not lose its photos.
func NewCleanupProcessor(repo ports.SyncRepository, basePath string, maxAge time.Duration, logger *slog.Logger) *CleanupProcessor {
	if maxAge <= 0 {
		maxAge = defaultAttachmentAge
	}
	return &CleanupProcessor{
		repo:     repo,
		basePath: basePath,
		maxAge:   maxAge,
		logger:   logger.With(slog.String("processor", "cleanup")),
	}
}

// CleanupAttachments deletes unreferenced attachment files
func (p *CleanupProcessor) CleanupAttachments(ctx context.Context, t *asynq.Task) error {
	p.logger.InfoContext(ctx, "cleaning up attachments")

	referenced, err := p.referencedKeys(ctx)
	if err != nil {
		return err
	}

	root := filepath.Join(p.basePath, filepath.FromSlash(attachmentRoot))
	var deletedCount int
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == root {
				return filepath.SkipDir
			}
			return err
		}
		if info.IsDir() || time.Since(info.ModTime()) <= p.maxAge {
			return nil
		}

		rel, err := filepath.Rel(p.basePath, path)
		if err != nil {
			return nil
		}
		if _, ok := referenced[filepath.ToSlash(rel)]; ok {
			return nil
		}

		if err := os.Remove(path); err != nil {
			p.logger.WarnContext(ctx, "failed to delete attachment",
				slog.String("file", path),
				slog.String("error", err.Error()))
		} else {
			deletedCount++
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to walk attachment directory: %w", err)
	}

	p.logger.InfoContext(ctx, "attachments cleaned up",
		slog.Int("referenced", len(referenced)),
		slog.Int("files_deleted", deletedCount))

	return nil
}

// referencedKeys returns the storage keys of every photo in the transaction
// log. A photo URL maps to the key starting at "transactions/".
func (p *CleanupProcessor) referencedKeys(ctx context.Context) (map[string]struct{}, error) {
	snap, err := p.repo.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	var log []domain.Transaction
	if raw := snap[domain.CollectionTransactions]; len(raw) > 0 {
		if err := json.Unmarshal(raw, &log); err != nil {
			return nil, fmt.Errorf("failed to decode transactions: %w", err)
		}
	}

	keys := make(map[string]struct{})
	for _, tx := range log {
		for _, photo := range tx.Photos {
			photo = filepath.ToSlash(photo)
			if i := strings.Index(photo, attachmentRoot); i >= 0 {
				keys[photo[i:]] = struct{}{}
			}
		}
	}
	return keys, nil
}
