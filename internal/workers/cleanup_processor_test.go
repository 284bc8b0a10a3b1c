package workers_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ammerola/stocksync/internal/core/domain"
	"github.com/ammerola/stocksync/internal/core/ports"
	"github.com/ammerola/stocksync/internal/workers"
	"github.com/ammerola/stocksync/test/helpers"
	"github.com/ammerola/stocksync/test/mocks"
)

func writeAttachment(t *testing.T, base, key string, age time.Duration) string {
	t.Helper()
	path := filepath.Join(base, filepath.FromSlash(key))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("img"), 0o644))
	stamp := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(path, stamp, stamp))
	return path
}

func TestCleanupProcessor_CleanupAttachments(t *testing.T) {
	base := t.TempDir()
	kept := writeAttachment(t, base, "transactions/t1/a.png", 48*time.Hour)
	keptAsPath := writeAttachment(t, base, "transactions/t2/b.jpg", 48*time.Hour)
	orphan := writeAttachment(t, base, "transactions/gone/c.png", 48*time.Hour)
	fresh := writeAttachment(t, base, "transactions/new/d.png", time.Minute)

	ctrl := gomock.NewController(t)
	repo := mocks.NewMockSyncRepository(ctrl)
	repo.EXPECT().LoadAll(gomock.Any()).Return(ports.Snapshot{
		domain.CollectionTransactions: json.RawMessage(`[
			{"id":"t1","type":"IN","photos":["https://files.test/transactions/t1/a.png"]},
			{"id":"t2","type":"OUT","photos":["` + filepath.ToSlash(keptAsPath) + `"]}
		]`),
	}, nil)

	p := workers.NewCleanupProcessor(repo, base, 24*time.Hour, helpers.TestLogger())
	require.NoError(t, p.CleanupAttachments(context.Background(), workers.NewAttachmentCleanupTask()))

	assert.FileExists(t, kept)
	assert.FileExists(t, keptAsPath)
	assert.FileExists(t, fresh)
	assert.NoFileExists(t, orphan)
}

func TestCleanupProcessor_MissingDirectory(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockSyncRepository(ctrl)
	repo.EXPECT().LoadAll(gomock.Any()).Return(ports.Snapshot{}, nil)

	p := workers.NewCleanupProcessor(repo, filepath.Join(t.TempDir(), "absent"), 0, helpers.TestLogger())
	assert.NoError(t, p.CleanupAttachments(context.Background(), workers.NewAttachmentCleanupTask()))
}

func TestCleanupProcessor_LoadFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockSyncRepository(ctrl)
	repo.EXPECT().LoadAll(gomock.Any()).Return(nil, errors.New("pool closed"))

	p := workers.NewCleanupProcessor(repo, t.TempDir(), 0, helpers.TestLogger())
	assert.ErrorContains(t, p.CleanupAttachments(context.Background(), workers.NewAttachmentCleanupTask()), "pool closed")
}
