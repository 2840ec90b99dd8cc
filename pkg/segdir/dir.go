// Package segdir manages on-disk storage directories and their metadata
// sidecars.
//
// Every storage directory holds media segment files plus one block-sized
// sidecar named "meta" that records which database the directory belongs
// to and which opens it has seen. The sidecar is rewritten in place (write
// at offset zero, then fsync) so that lifecycle bookkeeping keeps working
// when the disk is full, which for a recorder is the steady state rather
// than the exception.
//
// A Dir is a locked handle on one directory. Lifecycle transitions follow
// persist-then-commit: the new record is made durable first and the
// in-memory state advances only afterwards, so a failed rewrite leaves the
// handle exactly where it was.
package segdir

import (
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goshawk-nvr/goshawk/internal/logger"
	"github.com/goshawk-nvr/goshawk/pkg/dirmeta"
)

// Options configures directory handles.
type Options struct {
	// Metrics receives instrumentation callbacks. Nil disables them.
	Metrics Metrics
}

// Dir is an exclusive handle on one storage directory. All methods are safe
// for concurrent use; transitions are serialized on an internal mutex.
type Dir struct {
	path    string
	dirF    *os.File
	metrics Metrics

	mu       sync.Mutex
	metaF    metaFile
	meta     *dirmeta.DirMeta // last durably persisted record
	state    State
	verified bool
	closed   bool // set by Close and Destroy
}

// Create initializes a fresh storage directory: it creates the directory if
// needed, takes the lock, and persists an identity-only sidecar. The handle
// starts verified since the identity was just written by this process.
func Create(path string, dbID, dirID uuid.UUID, opts *Options) (*Dir, error) {
	if dbID == uuid.Nil {
		return nil, newInvalidArgumentError("create", "database UUID must not be zero")
	}
	if dirID == uuid.Nil {
		return nil, newInvalidArgumentError("create", "directory UUID must not be zero")
	}
	if err := os.MkdirAll(path, 0o750); err != nil {
		return nil, newIOError("create", path, err)
	}
	dirF, err := lockedDirHandle(path)
	if err != nil {
		return nil, err
	}
	meta := &dirmeta.DirMeta{DatabaseID: dbID, DirectoryID: dirID}
	metaF, err := createMeta(dirF, path, meta)
	if err != nil {
		releaseDirHandle(dirF)
		return nil, err
	}
	h := newDir(path, dirF, metaF, meta, opts)
	h.verified = true
	logger.Info("storage directory initialized",
		logger.Path(path),
		logger.DirUUID(dirID.String()),
		logger.DBUUID(dbID.String()))
	return h, nil
}

// Open locks an existing storage directory and loads its sidecar. The handle
// starts unverified: lifecycle transitions are refused until Verify confirms
// the persisted identity.
func Open(path string, opts *Options) (*Dir, error) {
	dirF, err := lockedDirHandle(path)
	if err != nil {
		return nil, err
	}
	metaF, err := openMeta(path)
	if err != nil {
		releaseDirHandle(dirF)
		return nil, err
	}
	meta, err := readMeta(metaPath(path))
	if err != nil {
		metaF.Close()
		releaseDirHandle(dirF)
		return nil, err
	}
	h := newDir(path, dirF, metaF, meta, opts)
	logger.Debug("storage directory opened",
		logger.Path(path),
		logger.DirUUID(meta.DirectoryID.String()),
		logger.State(h.state.String()))
	return h, nil
}

func newDir(path string, dirF *os.File, metaF *os.File, meta *dirmeta.DirMeta, opts *Options) *Dir {
	var m Metrics
	if opts != nil {
		m = opts.Metrics
	}
	return &Dir{
		path: path, dirF: dirF,
		metrics: metricsOrNop(m),
		metaF:   metaF,
		meta:    meta,
		state:   stateOf(meta),
	}
}

func lockedDirHandle(path string) (*os.File, error) {
	dirF, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, newNotFoundError("open", path)
		}
		return nil, newIOError("open", path, err)
	}
	if err := lockDir(dirF); err != nil {
		dirF.Close()
		return nil, err
	}
	return dirF, nil
}

func releaseDirHandle(dirF *os.File) {
	unlockDir(dirF)
	dirF.Close()
}

// Path returns the directory path.
func (d *Dir) Path() string {
	return d.path
}

// State returns the current lifecycle state.
func (d *Dir) State() State {
	d.mu.Lock()
	st := d.state
	d.mu.Unlock()
	return st
}

// Meta returns a copy of the last durably persisted record.
func (d *Dir) Meta() *dirmeta.DirMeta {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.meta.Clone()
}

// Verified reports whether the identity check has passed on this handle.
func (d *Dir) Verified() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.verified
}

// Check compares the persisted identity against the expected one without
// changing the handle.
func (d *Dir) Check(wantDB, wantDir uuid.UUID) IdentityCheck {
	d.mu.Lock()
	defer d.mu.Unlock()
	return CheckIdentity(d.meta, wantDB, wantDir)
}

// Verify compares the persisted identity against the expected one and, on
// success, unlocks lifecycle transitions. Any mismatch leaves the handle
// unverified: the sidecar is never rewritten to make a mismatch go away.
func (d *Dir) Verify(wantDB, wantDir uuid.UUID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return newClosedError("verify", d.path)
	}
	check := CheckIdentity(d.meta, wantDB, wantDir)
	if !check.OK() {
		logger.Warn("storage directory identity mismatch",
			logger.Path(d.path),
			logger.String("kind", check.Kind.String()),
			logger.String("expected", check.Expected.String()),
			logger.String("actual", check.Actual.String()))
		return check.Err("verify", d.path)
	}
	d.verified = true
	return nil
}

// BeginOpen records that the database is about to acknowledge a new open of
// this directory. Legal from Empty and Stable; the open must be strictly
// newer than the last completed one.
func (d *Dir) BeginOpen(ref dirmeta.OpenRef) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.requireTransition("begin_open"); err != nil {
		return err
	}
	if ref.UUID == uuid.Nil {
		return newInvalidArgumentError("begin_open", "open UUID must not be zero")
	}
	if d.state != StateEmpty && d.state != StateStable {
		return newIllegalTransitionError("begin_open", d.path, d.state,
			"an open or a deletion is already in flight")
	}
	if last := d.meta.LastCompleteOpen; last != nil && ref.ID <= last.ID {
		return newIllegalTransitionError("begin_open", d.path, d.state,
			"open "+ref.String()+" is not newer than completed "+last.String())
	}
	next := d.meta.Clone()
	next.InProgressOpen = ref.Clone()
	return d.commit("begin_open", next, StateOpening)
}

// CompleteOpen records that the database has acknowledged the in-flight
// open. Legal only from Opening; in particular a directory can never jump
// from Empty straight to Stable.
func (d *Dir) CompleteOpen() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.requireTransition("complete_open"); err != nil {
		return err
	}
	if d.state != StateOpening {
		return newIllegalTransitionError("complete_open", d.path, d.state,
			"no open is in flight")
	}
	next := d.meta.Clone()
	next.LastCompleteOpen = next.InProgressOpen.Clone()
	return d.commit("complete_open", next, StateStable)
}

// AbandonOpen retracts an in-flight open that the database never
// acknowledged, for example after a crash between the sidecar rewrite and
// the registry commit. The directory returns to its previous resting state.
func (d *Dir) AbandonOpen() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.requireTransition("abandon_open"); err != nil {
		return err
	}
	if d.state != StateOpening {
		return newIllegalTransitionError("abandon_open", d.path, d.state,
			"no open is in flight")
	}
	next := d.meta.Clone()
	to := StateStable
	if next.LastCompleteOpen == nil {
		next.InProgressOpen = nil
		to = StateEmpty
	} else {
		next.InProgressOpen = next.LastCompleteOpen.Clone()
	}
	return d.commit("abandon_open", next, to)
}

// BeginDelete records the intent to dismantle the directory. Legal only
// from Stable, only once every segment file is gone, and only with a prior
// open strictly older than the last completed one (or nil when no earlier
// open exists). Setting the in-progress slot backwards is reserved for this
// transition.
func (d *Dir) BeginDelete(prior *dirmeta.OpenRef) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.requireTransition("begin_delete"); err != nil {
		return err
	}
	if d.state != StateStable {
		return newIllegalTransitionError("begin_delete", d.path, d.state,
			"only a stable directory can be dismantled")
	}
	if prior != nil {
		if prior.UUID == uuid.Nil {
			return newInvalidArgumentError("begin_delete", "prior open UUID must not be zero")
		}
		if last := d.meta.LastCompleteOpen; last != nil && prior.ID >= last.ID {
			return newIllegalTransitionError("begin_delete", d.path, d.state,
				"prior open "+prior.String()+" is not older than completed "+last.String())
		}
	}
	n, err := d.segmentCount()
	if err != nil {
		return err
	}
	if n > 0 {
		return newNotEmptyError("begin_delete", d.path, n)
	}
	next := d.meta.Clone()
	next.InProgressOpen = prior.Clone()
	return d.commit("begin_delete", next, StateDeleting)
}

// FinishDelete completes a teardown: both open slots are cleared and the
// directory reads as Empty, ready for removal or reuse.
func (d *Dir) FinishDelete() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.requireTransition("finish_delete"); err != nil {
		return err
	}
	if d.state != StateDeleting {
		return newIllegalTransitionError("finish_delete", d.path, d.state,
			"no deletion is in flight")
	}
	next := d.meta.Clone()
	next.LastCompleteOpen = nil
	next.InProgressOpen = nil
	return d.commit("finish_delete", next, StateEmpty)
}

// Destroy removes the sidecar and the directory itself. Legal only from
// Empty with no segment files left. The handle is closed afterwards.
func (d *Dir) Destroy() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.requireTransition("destroy"); err != nil {
		return err
	}
	if d.state != StateEmpty {
		return newIllegalTransitionError("destroy", d.path, d.state,
			"only an empty directory can be destroyed")
	}
	n, err := d.segmentCount()
	if err != nil {
		return err
	}
	if n > 0 {
		return newNotEmptyError("destroy", d.path, n)
	}
	d.metaF.Close()
	if err := os.Remove(metaPath(d.path)); err != nil {
		return newIOError("destroy", d.path, err)
	}
	if err := d.dirF.Sync(); err != nil {
		return newIOError("destroy", d.path, err)
	}
	d.closed = true
	releaseDirHandle(d.dirF)
	if err := os.Remove(d.path); err != nil {
		return newIOError("destroy", d.path, err)
	}
	logger.Info("storage directory destroyed", logger.Path(d.path))
	return nil
}

// Close releases the lock and the underlying descriptors. It does not alter
// the persisted record.
func (d *Dir) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	err := d.metaF.Close()
	if uerr := unlockDir(d.dirF); err == nil {
		err = uerr
	}
	if cerr := d.dirF.Close(); err == nil {
		err = cerr
	}
	return err
}

// requireTransition checks the preconditions shared by every lifecycle
// transition. Callers must hold d.mu.
func (d *Dir) requireTransition(op string) error {
	if d.closed {
		return newClosedError(op, d.path)
	}
	if !d.verified {
		return newUnverifiedError(op, d.path)
	}
	return nil
}

// commit persists the next record and only then advances the in-memory
// state. On failure the handle keeps the previous record and state, which
// is the whole point: sidecar and memory never disagree in the direction
// that would invent progress. Callers must hold d.mu.
func (d *Dir) commit(op string, next *dirmeta.DirMeta, to State) error {
	start := time.Now()
	err := rewriteMeta(d.metaF, metaPath(d.path), next)
	d.metrics.ObserveRewrite(time.Since(start), err)
	d.metrics.ObserveTransition(d.state, to, err)
	if err != nil {
		logger.Error("sidecar rewrite failed",
			logger.Path(d.path),
			logger.Operation(op),
			logger.Err(err))
		return err
	}
	from := d.state
	d.meta = next
	d.state = to
	logger.Debug("lifecycle transition committed",
		logger.Path(d.path),
		logger.Operation(op),
		logger.String(logger.KeyOldState, from.String()),
		logger.State(to.String()))
	return nil
}

// segmentCount counts directory entries other than the sidecar. Callers
// must hold d.mu.
func (d *Dir) segmentCount() (int, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return 0, newIOError("scan", d.path, err)
	}
	n := 0
	for _, e := range entries {
		if e.Name() != MetaFilename {
			n++
		}
	}
	return n, nil
}
