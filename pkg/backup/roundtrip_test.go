//go:build integration

package backup

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goshawk-nvr/goshawk/pkg/registry"
	badgerstore "github.com/goshawk-nvr/goshawk/pkg/registry/badger"
	gormstore "github.com/goshawk-nvr/goshawk/pkg/registry/gorm"
	"github.com/goshawk-nvr/goshawk/pkg/segdir"
)

func newSQLiteStore(t *testing.T, path string) *gormstore.Store {
	t.Helper()
	store, err := gormstore.New(&gormstore.Config{
		Dialect: gormstore.DialectSQLite,
		SQLite:  gormstore.SQLiteConfig{Path: path},
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCreateRestoreSQLite(t *testing.T) {
	ctx := context.Background()
	tmp := t.TempDir()
	store := newSQLiteStore(t, filepath.Join(tmp, "registry.db"))

	dbID, err := store.DatabaseID(ctx)
	require.NoError(t, err)

	dirPath := filepath.Join(tmp, "media")
	row := &registry.Directory{UUID: uuid.New(), Path: dirPath}
	_, err = store.CreateDirectory(ctx, row)
	require.NoError(t, err)
	d, err := segdir.Create(dirPath, dbID, row.UUID, nil)
	require.NoError(t, err)
	require.NoError(t, d.Close())

	archivePath := filepath.Join(tmp, "backup.tar.gz")
	m, err := Create(ctx, store, archivePath)
	require.NoError(t, err)
	assert.Equal(t, dbID.String(), m.DatabaseUUID)
	assert.Equal(t, FormatSQLite, m.Registry.Format)
	assert.Positive(t, m.Registry.Size)
	require.Len(t, m.Directories, 1)
	assert.True(t, m.Directories[0].Sidecar)

	inspected, err := Inspect(archivePath)
	require.NoError(t, err)
	assert.Equal(t, m.DatabaseUUID, inspected.DatabaseUUID)
	require.Len(t, inspected.Directories, 1)

	target := filepath.Join(tmp, "restored.db")
	_, err = Restore(ctx, archivePath, RestoreOptions{TargetPath: target})
	require.NoError(t, err)

	restored := newSQLiteStore(t, target)
	restoredID, err := restored.DatabaseID(ctx)
	require.NoError(t, err)
	assert.Equal(t, dbID, restoredID)

	rows, err := restored.ListDirectories(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, dirPath, rows[0].Path)
}

func TestCreateBacksUpUnreadableDirectory(t *testing.T) {
	ctx := context.Background()
	tmp := t.TempDir()
	store := newSQLiteStore(t, filepath.Join(tmp, "registry.db"))

	// Registered but never initialized on disk, as with a detached disk.
	ghost := &registry.Directory{UUID: uuid.New(), Path: filepath.Join(tmp, "missing")}
	_, err := store.CreateDirectory(ctx, ghost)
	require.NoError(t, err)

	archivePath := filepath.Join(tmp, "backup.tar.gz")
	m, err := Create(ctx, store, archivePath)
	require.NoError(t, err)
	require.Len(t, m.Directories, 1)
	assert.False(t, m.Directories[0].Sidecar)
	assert.FileExists(t, archivePath)
}

func TestCreateRestoreBadger(t *testing.T) {
	ctx := context.Background()
	tmp := t.TempDir()

	store, err := badgerstore.New(filepath.Join(tmp, "registry"))
	require.NoError(t, err)

	dbID, err := store.DatabaseID(ctx)
	require.NoError(t, err)
	row := &registry.Directory{UUID: uuid.New(), Path: filepath.Join(tmp, "media")}
	_, err = store.CreateDirectory(ctx, row)
	require.NoError(t, err)

	archivePath := filepath.Join(tmp, "backup.tar.gz")
	m, err := Create(ctx, store, archivePath)
	require.NoError(t, err)
	assert.Equal(t, FormatBadger, m.Registry.Format)
	require.NoError(t, store.Close())

	target := filepath.Join(tmp, "restored")
	_, err = Restore(ctx, archivePath, RestoreOptions{TargetPath: target})
	require.NoError(t, err)

	// A second restore over the loaded database needs Force.
	_, err = Restore(ctx, archivePath, RestoreOptions{TargetPath: target})
	require.ErrorIs(t, err, ErrTargetExists)

	restored, err := badgerstore.New(target)
	require.NoError(t, err)
	defer restored.Close()

	restoredID, err := restored.DatabaseID(ctx)
	require.NoError(t, err)
	assert.Equal(t, dbID, restoredID)
	rows, err := restored.ListDirectories(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}
