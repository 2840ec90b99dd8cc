// Package archive ties the registry and the storage directories together
// into the recorder-side lifecycle.
//
// An Archive holds the registry store plus a locked handle on every
// registered storage directory. Opening the archive runs the open
// handshake: allocate a registry open, stamp it into every healthy
// sidecar, complete it in the registry, and only then promote the
// sidecars to stable. A directory that fails the identity guard is
// reported and skipped; its sidecar is never rewritten to make a
// mismatch go away.
//
// Usage:
//
//	a := archive.New(store, nil)
//	report, err := a.Open(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer a.Close()
package archive

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/goshawk-nvr/goshawk/internal/logger"
	"github.com/goshawk-nvr/goshawk/internal/telemetry"
	"github.com/goshawk-nvr/goshawk/pkg/dirmeta"
	"github.com/goshawk-nvr/goshawk/pkg/registry"
	"github.com/goshawk-nvr/goshawk/pkg/segdir"
)

// Options configures an Archive.
type Options struct {
	// Metrics receives archive-level instrumentation callbacks. Nil
	// disables them.
	Metrics Metrics

	// DirMetrics receives per-directory instrumentation callbacks from the
	// underlying handles. Nil disables them.
	DirMetrics segdir.Metrics
}

// Archive coordinates the registry store and the locked handles on every
// registered storage directory. All methods are safe for concurrent use.
//
// The Archive does not own the store: Close releases the directory locks
// but leaves the store open for the caller.
type Archive struct {
	store   registry.Store
	metrics Metrics
	dirOpts *segdir.Options

	mu     sync.RWMutex
	dbID   uuid.UUID
	open   *dirmeta.OpenRef
	dirs   map[uuid.UUID]*segdir.Dir
	faults map[uuid.UUID]error
	closed bool
}

// New creates an Archive over the given registry store.
func New(store registry.Store, opts *Options) *Archive {
	a := &Archive{
		store:  store,
		dirs:   make(map[uuid.UUID]*segdir.Dir),
		faults: make(map[uuid.UUID]error),
	}
	if opts != nil {
		a.metrics = opts.Metrics
		a.dirOpts = &segdir.Options{Metrics: opts.DirMetrics}
	}
	a.metrics = metricsOrNop(a.metrics)
	return a
}

// Store returns the registry store the archive runs on.
func (a *Archive) Store() registry.Store {
	return a.store
}

// OpenReport summarizes one archive open.
type OpenReport struct {
	// Ref is the registry open this archive now runs under.
	Ref dirmeta.OpenRef

	// Attached lists the directories that completed the handshake.
	Attached []uuid.UUID

	// Skipped lists the directories left out of this open, with the reason.
	Skipped []SkippedDirectory
}

// SkippedDirectory is a registered directory that did not join an open.
type SkippedDirectory struct {
	UUID uuid.UUID
	Path string
	Err  error
}

// Open runs the open handshake across every registered directory.
//
// The ordering is deliberate: sidecars record the in-progress open first,
// then the registry marks the open complete, then the sidecars promote.
// A crash at any point leaves the registry ahead of the sidecars, never
// behind, and the next attach settles the difference. Directories that
// fail to attach or to begin the open are skipped and reported; a failure
// to talk to the registry aborts the whole open and retracts the
// in-progress records, which is safe because nothing has been written
// under the new open yet.
func (a *Archive) Open(ctx context.Context) (*OpenReport, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanArchiveOpen)
	defer span.End()

	report, err := a.doOpen(ctx)
	if err != nil {
		telemetry.RecordError(ctx, err)
		return nil, err
	}
	span.SetAttributes(
		telemetry.OpenID(report.Ref.ID),
		telemetry.AttachedCount(len(report.Attached)),
		telemetry.SkippedCount(len(report.Skipped)),
	)
	return report, nil
}

func (a *Archive) doOpen(ctx context.Context) (*OpenReport, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil, fmt.Errorf("archive is closed")
	}
	if a.open != nil {
		return nil, fmt.Errorf("archive already opened under open %s", a.open)
	}

	dbID, err := a.store.DatabaseID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database identity: %w", err)
	}
	rows, err := a.store.ListDirectories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list registered directories: %w", err)
	}
	ref, err := a.store.AllocateOpen(ctx)
	a.metrics.ObserveOpen(err)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate open: %w", err)
	}

	report := &OpenReport{Ref: *ref}
	dirs := make(map[uuid.UUID]*segdir.Dir, len(rows))
	faults := make(map[uuid.UUID]error)
	skip := func(row *registry.Directory, err error) {
		faults[row.UUID] = err
		report.Skipped = append(report.Skipped, SkippedDirectory{UUID: row.UUID, Path: row.Path, Err: err})
		logger.Warn("storage directory skipped",
			logger.Path(row.Path),
			logger.DirUUID(row.UUID.String()),
			logger.Err(err))
	}

	var began []*segdir.Dir
	var beganRows []*registry.Directory
	for _, row := range rows {
		d, ok := a.dirs[row.UUID]
		if !ok {
			d, err = a.attach(ctx, row, dbID)
			if err != nil {
				a.metrics.ObserveAttach(0, err)
				skip(row, err)
				continue
			}
			a.metrics.ObserveAttach(d.State(), nil)
		}
		dirs[row.UUID] = d
		if d.State() == segdir.StateDeleting {
			skip(row, fmt.Errorf("teardown in progress"))
			continue
		}
		if err := d.BeginOpen(*ref); err != nil {
			skip(row, err)
			continue
		}
		began = append(began, d)
		beganRows = append(beganRows, row)
	}

	// Everything after this point must either finish the handshake or
	// retract it wholesale; a half-acknowledged open helps nobody.
	abort := func(cause error) (*OpenReport, error) {
		for _, d := range began {
			if err := d.AbandonOpen(); err != nil {
				logger.Error("failed to retract in-flight open",
					logger.Path(d.Path()),
					logger.OpenID(ref.ID),
					logger.Err(err))
			}
		}
		for _, d := range dirs {
			a.metrics.ObserveDetach(d.State())
			d.Close()
		}
		a.dirs = make(map[uuid.UUID]*segdir.Dir)
		a.faults = make(map[uuid.UUID]error)
		return nil, cause
	}

	for _, row := range beganRows {
		if err := a.store.SetDirectoryLastComplete(ctx, row.UUID, ref.ID); err != nil {
			return abort(fmt.Errorf("failed to record open %d for directory %s: %w",
				ref.ID, row.UUID, err))
		}
	}
	if err := a.store.CompleteOpen(ctx, ref.ID); err != nil {
		return abort(fmt.Errorf("failed to complete open %d: %w", ref.ID, err))
	}

	for i, d := range began {
		row := beganRows[i]
		if err := d.CompleteOpen(); err != nil {
			// The registry acknowledged the open but this sidecar did not
			// advance. The next attach finishes the promotion.
			skip(row, err)
			continue
		}
		report.Attached = append(report.Attached, row.UUID)
	}

	a.dbID = dbID
	a.open = ref.Clone()
	a.dirs = dirs
	a.faults = faults
	logger.Info("archive opened",
		logger.OpenID(ref.ID),
		logger.DBUUID(dbID.String()),
		logger.Count(len(report.Attached)),
		logger.Int("skipped", len(report.Skipped)))
	return report, nil
}

// attach locks a registered directory, verifies its identity, and settles
// any open a crash interrupted.
func (a *Archive) attach(ctx context.Context, row *registry.Directory, dbID uuid.UUID) (*segdir.Dir, error) {
	ctx, span := telemetry.StartDirSpan(ctx, telemetry.SpanDirAttach, row.UUID.String(),
		telemetry.DirPath(row.Path))
	defer span.End()

	d, err := segdir.Open(row.Path, a.dirOpts)
	if err != nil {
		telemetry.RecordError(ctx, err)
		return nil, err
	}
	if err := d.Verify(dbID, row.UUID); err != nil {
		d.Close()
		telemetry.RecordError(ctx, err)
		return nil, err
	}
	if d.State() == segdir.StateOpening {
		if err := a.settleInterruptedOpen(ctx, d); err != nil {
			d.Close()
			telemetry.RecordError(ctx, err)
			return nil, err
		}
	}
	span.SetAttributes(telemetry.DirState(d.State().String()))
	return d, nil
}

// settleInterruptedOpen resolves a directory found mid-handshake: a crash
// left in_progress_open set without the matching promotion. If the
// registry recorded that open as completed, the promotion finishes here;
// otherwise the open was never acknowledged and is retracted, which loses
// nothing because no data is written under an unacknowledged open.
func (a *Archive) settleInterruptedOpen(ctx context.Context, d *segdir.Dir) error {
	prog := d.Meta().InProgressOpen
	rec, err := a.store.GetOpen(ctx, prog.ID)
	if err != nil && !errors.Is(err, registry.ErrOpenNotFound) {
		return fmt.Errorf("failed to look up interrupted open %s: %w", prog, err)
	}
	if rec != nil && rec.Completed() && rec.UUID == prog.UUID {
		logger.Info("finishing interrupted open",
			logger.Path(d.Path()),
			logger.OpenID(prog.ID))
		return d.CompleteOpen()
	}
	logger.Info("retracting unacknowledged open",
		logger.Path(d.Path()),
		logger.OpenID(prog.ID))
	return d.AbandonOpen()
}

// Close releases every directory lock. The registry store stays open; the
// caller that created it closes it.
func (a *Archive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	var firstErr error
	for _, d := range a.dirs {
		a.metrics.ObserveDetach(d.State())
		if err := d.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.dirs = nil
	a.faults = nil
	a.open = nil
	return firstErr
}
