//go:build integration

package archive

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goshawk-nvr/goshawk/pkg/dirmeta"
	"github.com/goshawk-nvr/goshawk/pkg/registry"
	"github.com/goshawk-nvr/goshawk/pkg/segdir"
)

func TestAddDirectoryBeforeOpen(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	a := New(st, nil)
	t.Cleanup(func() { a.Close() })

	path := filepath.Join(t.TempDir(), "segments")
	perms := dirmeta.Permissions{ViewVideo: true}
	row, err := a.AddDirectory(t.Context(), path, perms)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, row.UUID)
	assert.Equal(t, path, row.Path)

	got, err := st.GetDirectory(t.Context(), row.UUID)
	require.NoError(t, err)
	decoded, err := dirmeta.UnmarshalPermissions(got.DefaultPermissions)
	require.NoError(t, err)
	assert.Equal(t, perms, decoded)

	// Not opened yet: the handle exists but no open ran.
	statuses, err := a.Status(t.Context())
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.True(t, statuses[0].Attached)
	assert.Equal(t, segdir.StateEmpty.String(), statuses[0].State)

	// The already-held handle joins the open without relocking.
	report, err := a.Open(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{row.UUID}, report.Attached)
}

func TestAddDirectoryWhileOpen(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	a := New(st, nil)
	t.Cleanup(func() { a.Close() })
	report, err := a.Open(t.Context())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "segments")
	row, err := a.AddDirectory(t.Context(), path, dirmeta.Permissions{})
	require.NoError(t, err)

	// The new directory joined the running open immediately.
	statuses, err := a.Status(t.Context())
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.Equal(t, segdir.StateStable.String(), statuses[0].State)
	require.NotNil(t, statuses[0].LastCompleteOpenID)
	assert.Equal(t, report.Ref.ID, *statuses[0].LastCompleteOpenID)

	got, err := st.GetDirectory(t.Context(), row.UUID)
	require.NoError(t, err)
	require.NotNil(t, got.LastCompleteOpenID)
	assert.Equal(t, report.Ref.ID, *got.LastCompleteOpenID)
}

func TestAddDirectoryDuplicatePath(t *testing.T) {
	t.Parallel()

	a := New(newTestStore(t), nil)
	t.Cleanup(func() { a.Close() })

	path := filepath.Join(t.TempDir(), "segments")
	_, err := a.AddDirectory(t.Context(), path, dirmeta.Permissions{})
	require.NoError(t, err)

	_, err = a.AddDirectory(t.Context(), path, dirmeta.Permissions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, registry.ErrDuplicateDirectory)
}

func TestAddDirectoryRollsBackRegistration(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	a := New(st, nil)
	t.Cleanup(func() { a.Close() })

	// A plain file where the directory should go makes initialization fail
	// after the row was created; the row must not survive.
	path := filepath.Join(t.TempDir(), "segments")
	require.NoError(t, os.WriteFile(path, []byte("in the way"), 0o600))

	_, err := a.AddDirectory(t.Context(), path, dirmeta.Permissions{})
	require.Error(t, err)

	rows, err := st.ListDirectories(t.Context())
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRemoveDirectory(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	a := New(st, nil)
	t.Cleanup(func() { a.Close() })
	_, err := a.Open(t.Context())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "segments")
	row, err := a.AddDirectory(t.Context(), path, dirmeta.Permissions{})
	require.NoError(t, err)

	require.NoError(t, a.RemoveDirectory(t.Context(), row.UUID))

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "directory should be gone from disk")
	_, err = st.GetDirectory(t.Context(), row.UUID)
	assert.ErrorIs(t, err, registry.ErrDirectoryNotFound)

	statuses, err := a.Status(t.Context())
	require.NoError(t, err)
	assert.Empty(t, statuses)
}

func TestRemoveDirectoryRefusesSegments(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	a := New(st, nil)
	t.Cleanup(func() { a.Close() })
	_, err := a.Open(t.Context())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "segments")
	row, err := a.AddDirectory(t.Context(), path, dirmeta.Permissions{})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(path, "00000001.seg"), []byte("frames"), 0o600))

	err = a.RemoveDirectory(t.Context(), row.UUID)
	require.Error(t, err)
	assert.True(t, segdir.IsNotEmpty(err), "refusal reason: %v", err)

	// Nothing was dismantled or deregistered.
	_, serr := os.Stat(path)
	assert.NoError(t, serr)
	_, err = st.GetDirectory(t.Context(), row.UUID)
	assert.NoError(t, err)

	// Draining the segment files unblocks the removal.
	require.NoError(t, os.Remove(filepath.Join(path, "00000001.seg")))
	require.NoError(t, a.RemoveDirectory(t.Context(), row.UUID))
}

func TestRemoveDirectoryUnattached(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	path := filepath.Join(t.TempDir(), "segments")

	a1 := New(st, nil)
	row, err := a1.AddDirectory(t.Context(), path, dirmeta.Permissions{})
	require.NoError(t, err)
	require.NoError(t, a1.Close())

	// A second archive instance picks the directory up from disk.
	a2 := New(st, nil)
	t.Cleanup(func() { a2.Close() })
	require.NoError(t, a2.RemoveDirectory(t.Context(), row.UUID))

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	_, err = st.GetDirectory(t.Context(), row.UUID)
	assert.ErrorIs(t, err, registry.ErrDirectoryNotFound)
}

func TestRemoveDirectoryMissingFromDisk(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	path := filepath.Join(t.TempDir(), "segments")

	a1 := New(st, nil)
	row, err := a1.AddDirectory(t.Context(), path, dirmeta.Permissions{})
	require.NoError(t, err)
	require.NoError(t, a1.Close())
	require.NoError(t, os.RemoveAll(path))

	// Only the registry row is left; removal cleans it up instead of
	// failing on the missing sidecar.
	a2 := New(st, nil)
	t.Cleanup(func() { a2.Close() })
	require.NoError(t, a2.RemoveDirectory(t.Context(), row.UUID))

	_, err = st.GetDirectory(t.Context(), row.UUID)
	assert.ErrorIs(t, err, registry.ErrDirectoryNotFound)
}

func TestRemoveDirectoryUnknown(t *testing.T) {
	t.Parallel()

	a := New(newTestStore(t), nil)
	t.Cleanup(func() { a.Close() })

	err := a.RemoveDirectory(t.Context(), uuid.New())
	require.Error(t, err)
	assert.True(t, errors.Is(err, registry.ErrDirectoryNotFound))
}
