package segdir

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goshawk-nvr/goshawk/pkg/dirmeta"
)

var (
	testDBID  = uuid.MustParse("6c9aa995-a0d6-4a2c-8f5a-3a2f6b2c9d01")
	testDirID = uuid.MustParse("e2b3f5a1-67a3-4b8a-9d2e-1f4c5b6a7d02")
)

func testOpenRef(id uint32) dirmeta.OpenRef {
	// Derive a stable UUID per open so assertions can reconstruct it.
	u := uuid.MustParse("00000000-0000-4000-8000-000000000000")
	u[15] = byte(id)
	return dirmeta.OpenRef{ID: id, UUID: u}
}

func createTestDir(t *testing.T) *Dir {
	t.Helper()
	d, err := Create(filepath.Join(t.TempDir(), "storage"), testDBID, testDirID, nil)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

// advanceTo walks a fresh directory to the requested state.
func advanceTo(t *testing.T, d *Dir, s State) {
	t.Helper()
	switch s {
	case StateEmpty:
	case StateOpening:
		require.NoError(t, d.BeginOpen(testOpenRef(1)))
	case StateStable:
		require.NoError(t, d.BeginOpen(testOpenRef(1)))
		require.NoError(t, d.CompleteOpen())
	case StateDeleting:
		require.NoError(t, d.BeginOpen(testOpenRef(1)))
		require.NoError(t, d.CompleteOpen())
		require.NoError(t, d.BeginDelete(nil))
	}
	require.Equal(t, s, d.State())
}

func TestCreateInitializesSidecar(t *testing.T) {
	t.Parallel()

	d := createTestDir(t)
	assert.Equal(t, StateEmpty, d.State())
	assert.True(t, d.Verified(), "creator wrote the identity itself")

	info, err := os.Stat(metaPath(d.Path()))
	require.NoError(t, err)
	assert.EqualValues(t, dirmeta.BlockSize, info.Size())

	meta, err := readMeta(metaPath(d.Path()))
	require.NoError(t, err)
	assert.Equal(t, testDBID, meta.DatabaseID)
	assert.Equal(t, testDirID, meta.DirectoryID)
	assert.Nil(t, meta.LastCompleteOpen)
	assert.Nil(t, meta.InProgressOpen)
}

func TestCreateRejectsZeroIdentity(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "storage")

	_, err := Create(path, uuid.Nil, testDirID, nil)
	require.Error(t, err)
	var de *DirError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, CodeInvalidArgument, de.Code)

	_, err = Create(path, testDBID, uuid.Nil, nil)
	require.Error(t, err)
	require.ErrorAs(t, err, &de)
	assert.Equal(t, CodeInvalidArgument, de.Code)
}

func TestCreateCollisions(t *testing.T) {
	t.Parallel()

	d := createTestDir(t)

	// While the first handle holds the lock the second attempt cannot even
	// get that far.
	_, err := Create(d.Path(), testDBID, testDirID, nil)
	require.Error(t, err)
	assert.True(t, IsLocked(err), "locked: %v", err)

	require.NoError(t, d.Close())

	// With the lock free the sidecar itself refuses reinitialization.
	_, err = Create(d.Path(), testDBID, testDirID, nil)
	require.Error(t, err)
	assert.True(t, IsAlreadyExists(err), "already initialized: %v", err)
}

func TestOpenUnknownDirectory(t *testing.T) {
	t.Parallel()

	t.Run("NoSuchPath", func(t *testing.T) {
		t.Parallel()
		_, err := Open(filepath.Join(t.TempDir(), "nope"), nil)
		require.Error(t, err)
		assert.True(t, IsNotFound(err))
	})

	t.Run("NoSidecar", func(t *testing.T) {
		t.Parallel()
		path := t.TempDir()
		_, err := Open(path, nil)
		require.Error(t, err)
		assert.True(t, IsNotFound(err), "plain directory is not a storage directory")
	})
}

func TestOpenWhileLocked(t *testing.T) {
	t.Parallel()

	d := createTestDir(t)
	_, err := Open(d.Path(), nil)
	require.Error(t, err)
	assert.True(t, IsLocked(err), "second handle must be refused: %v", err)

	require.NoError(t, d.Close())
	d2, err := Open(d.Path(), nil)
	require.NoError(t, err)
	require.NoError(t, d2.Close())
}

func TestOpenRequiresVerification(t *testing.T) {
	t.Parallel()

	d := createTestDir(t)
	advanceTo(t, d, StateStable)
	require.NoError(t, d.Close())

	d2, err := Open(d.Path(), nil)
	require.NoError(t, err)
	defer d2.Close()

	assert.Equal(t, StateStable, d2.State())
	assert.False(t, d2.Verified())

	err = d2.BeginOpen(testOpenRef(2))
	require.Error(t, err)
	assert.True(t, IsUnverified(err), "transition before verify: %v", err)

	require.NoError(t, d2.Verify(testDBID, testDirID))
	assert.True(t, d2.Verified())
	require.NoError(t, d2.BeginOpen(testOpenRef(2)))
}

func TestVerifyMismatch(t *testing.T) {
	t.Parallel()

	otherDB := uuid.MustParse("11111111-2222-3333-4444-555555555555")
	otherDir := uuid.MustParse("99999999-8888-7777-6666-555555555555")

	t.Run("WrongDirectory", func(t *testing.T) {
		t.Parallel()
		d := createTestDir(t)
		require.NoError(t, d.Close())
		d2, err := Open(d.Path(), nil)
		require.NoError(t, err)
		defer d2.Close()

		err = d2.Verify(testDBID, otherDir)
		require.Error(t, err)
		assert.True(t, IsIdentityMismatch(err))
		assert.False(t, d2.Verified(), "mismatch must not verify the handle")
		assert.True(t, d2.Check(testDBID, otherDir).Authoritative())

		// The sidecar must be left exactly as found.
		meta, err := readMeta(metaPath(d.Path()))
		require.NoError(t, err)
		assert.Equal(t, testDirID, meta.DirectoryID)
	})

	t.Run("WrongDatabase", func(t *testing.T) {
		t.Parallel()
		d := createTestDir(t)
		require.NoError(t, d.Close())
		d2, err := Open(d.Path(), nil)
		require.NoError(t, err)
		defer d2.Close()

		err = d2.Verify(otherDB, testDirID)
		require.Error(t, err)
		assert.True(t, IsIdentityMismatch(err))
		assert.False(t, d2.Verified())

		check := d2.Check(otherDB, testDirID)
		assert.Equal(t, MismatchDatabase, check.Kind)
		assert.False(t, check.Authoritative(), "foreign database is diagnostic, not fatal")
	})
}

func TestLifecycleWalk(t *testing.T) {
	t.Parallel()

	d := createTestDir(t)

	// First open on a fresh directory.
	require.NoError(t, d.BeginOpen(testOpenRef(1)))
	assert.Equal(t, StateOpening, d.State())
	meta := d.Meta()
	assert.Nil(t, meta.LastCompleteOpen)
	require.NotNil(t, meta.InProgressOpen)
	assert.EqualValues(t, 1, meta.InProgressOpen.ID)

	require.NoError(t, d.CompleteOpen())
	assert.Equal(t, StateStable, d.State())
	meta = d.Meta()
	assert.True(t, meta.LastCompleteOpen.Equal(meta.InProgressOpen),
		"a completed open leaves both slots on the same ref")

	// A later open of the same directory.
	require.NoError(t, d.BeginOpen(testOpenRef(2)))
	assert.Equal(t, StateOpening, d.State())
	meta = d.Meta()
	assert.EqualValues(t, 1, meta.LastCompleteOpen.ID)
	assert.EqualValues(t, 2, meta.InProgressOpen.ID)

	require.NoError(t, d.CompleteOpen())
	assert.Equal(t, StateStable, d.State())

	// Teardown: segments are already gone, record the backward checkpoint.
	require.NoError(t, d.BeginDelete(&dirmeta.OpenRef{ID: 1, UUID: testOpenRef(1).UUID}))
	assert.Equal(t, StateDeleting, d.State())
	meta = d.Meta()
	assert.EqualValues(t, 2, meta.LastCompleteOpen.ID)
	assert.EqualValues(t, 1, meta.InProgressOpen.ID)

	require.NoError(t, d.FinishDelete())
	assert.Equal(t, StateEmpty, d.State())
	meta = d.Meta()
	assert.Nil(t, meta.LastCompleteOpen)
	assert.Nil(t, meta.InProgressOpen)

	// Every step above must have been persisted, not just cached.
	onDisk, err := readMeta(metaPath(d.Path()))
	require.NoError(t, err)
	assert.Equal(t, meta, onDisk)
}

func TestLifecycleIllegalTransitions(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		from State
		op   func(*Dir) error
	}{
		{"CompleteOpenFromEmpty", StateEmpty, (*Dir).CompleteOpen},
		{"CompleteOpenFromStable", StateStable, (*Dir).CompleteOpen},
		{"CompleteOpenFromDeleting", StateDeleting, (*Dir).CompleteOpen},
		{"BeginOpenFromOpening", StateOpening, func(d *Dir) error { return d.BeginOpen(testOpenRef(9)) }},
		{"BeginOpenFromDeleting", StateDeleting, func(d *Dir) error { return d.BeginOpen(testOpenRef(9)) }},
		{"StaleBeginOpenFromStable", StateStable, func(d *Dir) error { return d.BeginOpen(testOpenRef(1)) }},
		{"AbandonOpenFromEmpty", StateEmpty, (*Dir).AbandonOpen},
		{"AbandonOpenFromStable", StateStable, (*Dir).AbandonOpen},
		{"BeginDeleteFromEmpty", StateEmpty, func(d *Dir) error { return d.BeginDelete(nil) }},
		{"BeginDeleteFromOpening", StateOpening, func(d *Dir) error { return d.BeginDelete(nil) }},
		{"BeginDeleteWithCurrentOpen", StateStable, func(d *Dir) error {
			ref := testOpenRef(1)
			return d.BeginDelete(&ref)
		}},
		{"FinishDeleteFromStable", StateStable, (*Dir).FinishDelete},
		{"FinishDeleteFromEmpty", StateEmpty, (*Dir).FinishDelete},
		{"DestroyFromStable", StateStable, (*Dir).Destroy},
		{"DestroyFromOpening", StateOpening, (*Dir).Destroy},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			d := createTestDir(t)
			advanceTo(t, d, tc.from)
			before := d.Meta()

			err := tc.op(d)
			require.Error(t, err)
			assert.True(t, IsIllegalTransition(err), "want illegal transition, got: %v", err)

			// A rejected transition must change nothing, in memory or on
			// disk.
			assert.Equal(t, tc.from, d.State())
			assert.Equal(t, before, d.Meta())
			onDisk, rerr := readMeta(metaPath(d.Path()))
			require.NoError(t, rerr)
			assert.Equal(t, before, onDisk)
		})
	}
}

func TestBeginDeleteRequiresDrainedDirectory(t *testing.T) {
	t.Parallel()

	d := createTestDir(t)
	advanceTo(t, d, StateStable)

	seg := filepath.Join(d.Path(), "000001.seg")
	require.NoError(t, os.WriteFile(seg, []byte("frame"), 0o644))

	err := d.BeginDelete(nil)
	require.Error(t, err)
	assert.True(t, IsNotEmpty(err), "segments still present: %v", err)
	assert.Equal(t, StateStable, d.State())

	require.NoError(t, os.Remove(seg))
	require.NoError(t, d.BeginDelete(nil))
	assert.Equal(t, StateDeleting, d.State())
}

func TestBeginDeleteWithoutPriorOpen(t *testing.T) {
	t.Parallel()

	d := createTestDir(t)
	advanceTo(t, d, StateStable)

	require.NoError(t, d.BeginDelete(nil))
	assert.Equal(t, StateDeleting, d.State())

	// With no earlier open to point at, the persisted shape is
	// indistinguishable from an idle stable directory; only the live
	// handle (and the registry's intent) knows a teardown is running.
	onDisk, err := readMeta(metaPath(d.Path()))
	require.NoError(t, err)
	assert.NotNil(t, onDisk.LastCompleteOpen)
	assert.Nil(t, onDisk.InProgressOpen)
	assert.Equal(t, StateStable, stateOf(onDisk))

	require.NoError(t, d.FinishDelete())
	assert.Equal(t, StateEmpty, d.State())
}

func TestAbandonOpen(t *testing.T) {
	t.Parallel()

	t.Run("FirstOpenFallsBackToEmpty", func(t *testing.T) {
		t.Parallel()
		d := createTestDir(t)
		require.NoError(t, d.BeginOpen(testOpenRef(1)))

		require.NoError(t, d.AbandonOpen())
		assert.Equal(t, StateEmpty, d.State())
		meta := d.Meta()
		assert.Nil(t, meta.LastCompleteOpen)
		assert.Nil(t, meta.InProgressOpen)
	})

	t.Run("LaterOpenFallsBackToStable", func(t *testing.T) {
		t.Parallel()
		d := createTestDir(t)
		advanceTo(t, d, StateStable)
		require.NoError(t, d.BeginOpen(testOpenRef(2)))

		require.NoError(t, d.AbandonOpen())
		assert.Equal(t, StateStable, d.State())
		meta := d.Meta()
		assert.EqualValues(t, 1, meta.LastCompleteOpen.ID)
		assert.True(t, meta.InProgressOpen.Equal(meta.LastCompleteOpen))
	})
}

func TestTransitionRollbackOnPersistFailure(t *testing.T) {
	t.Parallel()

	d := createTestDir(t)
	advanceTo(t, d, StateStable)
	before := d.Meta()

	// Swap in a file handle whose sync always fails: the block reaches the
	// page cache but durability is never confirmed.
	real := d.metaF
	d.metaF = &faultyMetaFile{f: real.(*os.File), writeLimit: -1, failSync: true}

	err := d.BeginOpen(testOpenRef(2))
	require.Error(t, err)
	assert.True(t, IsIOError(err))

	// The handle must report the last state known durable.
	assert.Equal(t, StateStable, d.State())
	assert.Equal(t, before, d.Meta())

	// Once the disk recovers, the same transition goes through.
	d.metaF = real
	require.NoError(t, d.BeginOpen(testOpenRef(2)))
	assert.Equal(t, StateOpening, d.State())
}

func TestReloadAfterCrashDuringOpen(t *testing.T) {
	t.Parallel()

	// Simulate a crash between the sidecar rewrite and the registry commit:
	// the in-progress open is persisted but never acknowledged.
	d := createTestDir(t)
	advanceTo(t, d, StateStable)
	require.NoError(t, d.BeginOpen(testOpenRef(2)))
	require.NoError(t, d.Close())

	d2, err := Open(d.Path(), nil)
	require.NoError(t, err)
	defer d2.Close()

	assert.Equal(t, StateOpening, d2.State(), "stale in-progress open must be visible")
	require.NoError(t, d2.Verify(testDBID, testDirID))

	// Recovery retracts the unacknowledged open and the directory is
	// usable again.
	require.NoError(t, d2.AbandonOpen())
	assert.Equal(t, StateStable, d2.State())
	require.NoError(t, d2.BeginOpen(testOpenRef(3)))
	require.NoError(t, d2.CompleteOpen())
}

func TestDestroy(t *testing.T) {
	t.Parallel()

	t.Run("AfterFullTeardown", func(t *testing.T) {
		t.Parallel()
		d := createTestDir(t)
		advanceTo(t, d, StateDeleting)
		require.NoError(t, d.FinishDelete())

		require.NoError(t, d.Destroy())
		_, err := os.Stat(d.Path())
		assert.True(t, os.IsNotExist(err), "directory must be gone")
	})

	t.Run("FreshDirectory", func(t *testing.T) {
		t.Parallel()
		d := createTestDir(t)
		require.NoError(t, d.Destroy())
		_, err := os.Stat(d.Path())
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("RefusedWithSegmentsPresent", func(t *testing.T) {
		t.Parallel()
		d := createTestDir(t)
		seg := filepath.Join(d.Path(), "000001.seg")
		require.NoError(t, os.WriteFile(seg, []byte("frame"), 0o644))

		err := d.Destroy()
		require.Error(t, err)
		assert.True(t, IsNotEmpty(err))
		_, serr := os.Stat(d.Path())
		assert.NoError(t, serr, "refused destroy must leave the directory")
	})
}

func TestCloseReleasesLock(t *testing.T) {
	t.Parallel()

	d := createTestDir(t)
	require.NoError(t, d.Close())
	require.NoError(t, d.Close(), "close is idempotent")

	err := d.BeginOpen(testOpenRef(1))
	require.Error(t, err)
	var de *DirError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, CodeClosed, de.Code)

	d2, err := Open(d.Path(), nil)
	require.NoError(t, err)
	require.NoError(t, d2.Close())
}

func TestConcurrentBeginOpenSerializes(t *testing.T) {
	t.Parallel()

	d := createTestDir(t)

	const workers = 16
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = d.BeginOpen(testOpenRef(uint32(i + 1)))
		}(i)
	}
	wg.Wait()

	won := 0
	for _, err := range errs {
		if err == nil {
			won++
			continue
		}
		assert.True(t, IsIllegalTransition(err), "loser must see an in-flight open: %v", err)
	}
	assert.Equal(t, 1, won, "exactly one BeginOpen may win")
	assert.Equal(t, StateOpening, d.State())
}
