package archive

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/goshawk-nvr/goshawk/internal/logger"
	"github.com/goshawk-nvr/goshawk/internal/telemetry"
	"github.com/goshawk-nvr/goshawk/pkg/dirmeta"
	"github.com/goshawk-nvr/goshawk/pkg/registry"
	"github.com/goshawk-nvr/goshawk/pkg/segdir"
)

// AddDirectory initializes a storage directory on disk and registers it.
// The registry row is created first so that a crash between the two steps
// leaves a row pointing at a missing directory, which RemoveDirectory
// knows how to clean up; the reverse would leave an orphaned directory the
// registry has no name for. When the archive is already open the new
// directory joins the current open immediately.
func (a *Archive) AddDirectory(ctx context.Context, path string, defaults dirmeta.Permissions) (*registry.Directory, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanArchiveAddDir)
	defer span.End()
	span.SetAttributes(telemetry.DirPath(path))

	row, err := a.addDirectory(ctx, path, defaults)
	if err != nil {
		telemetry.RecordError(ctx, err)
		return nil, err
	}
	span.SetAttributes(telemetry.DirUUID(row.UUID.String()))
	return row, nil
}

func (a *Archive) addDirectory(ctx context.Context, path string, defaults dirmeta.Permissions) (*registry.Directory, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil, fmt.Errorf("archive is closed")
	}
	if path == "" {
		return nil, fmt.Errorf("directory path is required")
	}
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve directory path: %w", err)
	}

	dbID, err := a.databaseID(ctx)
	if err != nil {
		return nil, err
	}
	row := &registry.Directory{
		UUID:               uuid.New(),
		Path:               path,
		DefaultPermissions: defaults.Marshal(),
	}
	if _, err := a.store.CreateDirectory(ctx, row); err != nil {
		return nil, fmt.Errorf("failed to register directory: %w", err)
	}

	d, err := segdir.Create(path, dbID, row.UUID, a.dirOpts)
	a.metrics.ObserveAttach(segdir.StateEmpty, err)
	if err != nil {
		if derr := a.store.DeleteDirectory(ctx, row.UUID); derr != nil {
			logger.Error("failed to roll back directory registration",
				logger.DirUUID(row.UUID.String()),
				logger.Err(derr))
		}
		return nil, err
	}

	if a.open != nil {
		if err := a.joinOpen(ctx, d, row); err != nil {
			// Registered and initialized either way; it joins the next open.
			logger.Warn("directory did not join the current open",
				logger.Path(path),
				logger.DirUUID(row.UUID.String()),
				logger.Err(err))
		}
	}

	a.dirs[row.UUID] = d
	logger.Info("storage directory registered",
		logger.Path(path),
		logger.DirUUID(row.UUID.String()))
	return row, nil
}

// joinOpen runs the per-directory half of the open handshake for a
// directory created after the archive opened. The registry open is already
// complete, so the sidecar promotes as soon as the row records it.
func (a *Archive) joinOpen(ctx context.Context, d *segdir.Dir, row *registry.Directory) error {
	if err := d.BeginOpen(*a.open); err != nil {
		return err
	}
	if err := a.store.SetDirectoryLastComplete(ctx, row.UUID, a.open.ID); err != nil {
		if aerr := d.AbandonOpen(); aerr != nil {
			logger.Error("failed to retract in-flight open",
				logger.Path(d.Path()),
				logger.OpenID(a.open.ID),
				logger.Err(aerr))
		}
		return fmt.Errorf("failed to record open %d: %w", a.open.ID, err)
	}
	return d.CompleteOpen()
}

// RemoveDirectory dismantles a storage directory and deregisters it. The
// directory must hold no segment files; removal refuses otherwise. A
// registered path whose directory is already gone from disk is cleaned up
// registry-side only.
func (a *Archive) RemoveDirectory(ctx context.Context, id uuid.UUID) error {
	ctx, span := telemetry.StartDirSpan(ctx, telemetry.SpanArchiveRemoveDir, id.String())
	defer span.End()

	if err := a.removeDirectory(ctx, id); err != nil {
		telemetry.RecordError(ctx, err)
		return err
	}
	return nil
}

func (a *Archive) removeDirectory(ctx context.Context, id uuid.UUID) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return fmt.Errorf("archive is closed")
	}
	row, err := a.store.GetDirectory(ctx, id)
	if err != nil {
		return err
	}

	d, attached := a.dirs[id]
	if !attached {
		dbID, err := a.databaseID(ctx)
		if err != nil {
			return err
		}
		// attach also settles an open a crash interrupted, so a directory
		// found mid-handshake still dismantles cleanly.
		d, err = a.attach(ctx, row, dbID)
		if err != nil {
			if segdir.IsNotFound(err) {
				logger.Warn("storage directory missing from disk, deregistering",
					logger.Path(row.Path),
					logger.DirUUID(id.String()))
				return a.store.DeleteDirectory(ctx, id)
			}
			a.metrics.ObserveAttach(0, err)
			return err
		}
		a.metrics.ObserveAttach(d.State(), nil)
	}

	if err := a.dismantle(d); err != nil {
		if !attached {
			a.metrics.ObserveDetach(d.State())
			d.Close()
		}
		return err
	}
	a.metrics.ObserveDetach(segdir.StateEmpty)
	delete(a.dirs, id)
	delete(a.faults, id)
	if err := a.store.DeleteDirectory(ctx, id); err != nil {
		return fmt.Errorf("directory dismantled but still registered: %w", err)
	}
	logger.Info("storage directory removed",
		logger.Path(row.Path),
		logger.DirUUID(id.String()))
	return nil
}

// dismantle walks a directory from its current state down to destruction.
// Every step refuses a directory that still holds segment files, so the
// caller never has to pre-check.
func (a *Archive) dismantle(d *segdir.Dir) error {
	if d.State() == segdir.StateStable {
		if err := d.BeginDelete(nil); err != nil {
			return err
		}
	}
	if d.State() == segdir.StateDeleting {
		if err := d.FinishDelete(); err != nil {
			return err
		}
	}
	return d.Destroy()
}

// databaseID returns the registry identity, cached once Open has run.
func (a *Archive) databaseID(ctx context.Context) (uuid.UUID, error) {
	if a.dbID != uuid.Nil {
		return a.dbID, nil
	}
	dbID, err := a.store.DatabaseID(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to resolve database identity: %w", err)
	}
	return dbID, nil
}
