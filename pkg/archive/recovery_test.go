//go:build integration

package archive

import (
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

// crashedDir simulates a crash mid-handshake: a registered directory whose
// sidecar carries an in-progress open, with the handle released as if the
// process died.
func crashedDir(t *testing.T, st registry.Store) (*registry.Directory, *dirmeta.OpenRef) {
	t.Helper()
	dbID, err := st.DatabaseID(t.Context())
	require.NoError(t, err)

	row := &registry.Directory{UUID: uuid.New(), Path: filepath.Join(t.TempDir(), "segments")}
	_, err = st.CreateDirectory(t.Context(), row)
	require.NoError(t, err)

	ref, err := st.AllocateOpen(t.Context())
	require.NoError(t, err)

	d, err := segdir.Create(row.Path, dbID, row.UUID, nil)
	require.NoError(t, err)
	require.NoError(t, d.BeginOpen(*ref))
	require.NoError(t, d.Close())
	return row, ref
}

func TestAttachRetractsUnacknowledgedOpen(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	row, _ := crashedDir(t, st)
	dbID, err := st.DatabaseID(t.Context())
	require.NoError(t, err)

	// The crash hit before the registry completed the open, so nothing was
	// ever written under it and the sidecar rolls back to empty.
	a := New(st, nil)
	t.Cleanup(func() { a.Close() })
	d, err := a.attach(t.Context(), row, dbID)
	require.NoError(t, err)
	defer d.Close()

	assert.Equal(t, segdir.StateEmpty, d.State())
	meta := d.Meta()
	assert.Nil(t, meta.LastCompleteOpen)
	assert.Nil(t, meta.InProgressOpen)
}

func TestAttachFinishesAcknowledgedOpen(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	row, ref := crashedDir(t, st)
	require.NoError(t, st.SetDirectoryLastComplete(t.Context(), row.UUID, ref.ID))
	require.NoError(t, st.CompleteOpen(t.Context(), ref.ID))
	dbID, err := st.DatabaseID(t.Context())
	require.NoError(t, err)

	// The registry committed before the crash; the sidecar promotion that
	// never happened runs now.
	a := New(st, nil)
	t.Cleanup(func() { a.Close() })
	d, err := a.attach(t.Context(), row, dbID)
	require.NoError(t, err)
	defer d.Close()

	assert.Equal(t, segdir.StateStable, d.State())
	meta := d.Meta()
	require.NotNil(t, meta.LastCompleteOpen)
	assert.Equal(t, *ref, *meta.LastCompleteOpen)
}

func TestAttachRetractsToPriorStable(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	path := filepath.Join(t.TempDir(), "segments")

	// One clean open, then an unacknowledged second one.
	a1 := New(st, nil)
	row, err := a1.AddDirectory(t.Context(), path, dirmeta.Permissions{})
	require.NoError(t, err)
	r1, err := a1.Open(t.Context())
	require.NoError(t, err)
	require.NoError(t, a1.Close())

	ref2, err := st.AllocateOpen(t.Context())
	require.NoError(t, err)
	dbID, err := st.DatabaseID(t.Context())
	require.NoError(t, err)
	d, err := segdir.Open(path, nil)
	require.NoError(t, err)
	require.NoError(t, d.Verify(dbID, row.UUID))
	require.NoError(t, d.BeginOpen(*ref2))
	require.NoError(t, d.Close())

	// Retraction lands on the previous resting state, not on empty.
	a2 := New(st, nil)
	t.Cleanup(func() { a2.Close() })
	settled, err := a2.attach(t.Context(), row, dbID)
	require.NoError(t, err)
	defer settled.Close()

	assert.Equal(t, segdir.StateStable, settled.State())
	meta := settled.Meta()
	require.NotNil(t, meta.LastCompleteOpen)
	assert.Equal(t, r1.Ref.ID, meta.LastCompleteOpen.ID)
}

func TestOpenSkipsDirectoryMidTeardown(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	path := filepath.Join(t.TempDir(), "segments")

	a1 := New(st, nil)
	row, err := a1.AddDirectory(t.Context(), path, dirmeta.Permissions{})
	require.NoError(t, err)
	r1, err := a1.Open(t.Context())
	require.NoError(t, err)
	require.NoError(t, a1.Close())

	a2 := New(st, nil)
	_, err = a2.Open(t.Context())
	require.NoError(t, err)
	require.NoError(t, a2.Close())

	// A teardown checkpoint persisted with a genuine prior open reads back
	// as deleting and must not join the next open.
	dbID, err := st.DatabaseID(t.Context())
	require.NoError(t, err)
	d, err := segdir.Open(path, nil)
	require.NoError(t, err)
	require.NoError(t, d.Verify(dbID, row.UUID))
	prior := r1.Ref
	require.NoError(t, d.BeginDelete(&prior))
	require.NoError(t, d.Close())

	a3 := New(st, nil)
	t.Cleanup(func() { a3.Close() })
	report, err := a3.Open(t.Context())
	require.NoError(t, err)
	assert.Empty(t, report.Attached)
	require.Len(t, report.Skipped, 1)
	assert.Contains(t, report.Skipped[0].Err.Error(), "teardown")

	statuses, err := a3.Status(t.Context())
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.True(t, statuses[0].Attached, "the handle stays held so removal can finish")
	assert.Equal(t, segdir.StateDeleting.String(), statuses[0].State)

	// Removal picks the teardown up where it stopped.
	require.NoError(t, a3.RemoveDirectory(t.Context(), row.UUID))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	_, err = st.GetDirectory(t.Context(), row.UUID)
	assert.ErrorIs(t, err, registry.ErrDirectoryNotFound)
}

func TestRemoveDirectorySettlesInterruptedOpen(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	row, _ := crashedDir(t, st)

	// Removal settles the interrupted open before dismantling; a crashed
	// handshake must not wedge the directory in place.
	a := New(st, nil)
	t.Cleanup(func() { a.Close() })
	require.NoError(t, a.RemoveDirectory(t.Context(), row.UUID))

	_, err := os.Stat(row.Path)
	assert.True(t, os.IsNotExist(err))
	_, err = st.GetDirectory(t.Context(), row.UUID)
	assert.ErrorIs(t, err, registry.ErrDirectoryNotFound)
}
