// internal/adapters/storage/disk.go
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ammerola/stocksync/internal/core/ports"
)

// DiskStorage stores attachments on the local filesystem. It serves
// development setups without S3.
type DiskStorage struct {
	basePath string
	baseURL  string
	logger   *slog.Logger
}

var _ ports.AttachmentStore = (*DiskStorage)(nil)

// NewDiskStorage creates a filesystem attachment store. Returned URLs are
// baseURL joined with the key, or file paths when baseURL is empty.
func NewDiskStorage(basePath, baseURL string, logger *slog.Logger) *DiskStorage {
	return &DiskStorage{
		basePath: basePath,
		baseURL:  strings.TrimRight(baseURL, "/"),
		logger:   logger.With(slog.String("storage", "disk")),
	}
}

// Upload writes body under basePath/key
func (d *DiskStorage) Upload(ctx context.Context, key, contentType string, body []byte) (string, error) {
	key = objectKey("", key)
	target := filepath.Join(d.basePath, filepath.FromSlash(key))

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(target, body, 0o644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	d.logger.DebugContext(ctx, "file stored",
		slog.String("key", key),
		slog.String("content_type", detectContentType(key, contentType)),
		slog.Int("size", len(body)))

	if d.baseURL == "" {
		return target, nil
	}
	return d.baseURL + "/" + key, nil
}
