package backup

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/goshawk-nvr/goshawk/internal/logger"
	"github.com/goshawk-nvr/goshawk/internal/telemetry"
	"github.com/goshawk-nvr/goshawk/pkg/registry/badger"
)

// ErrTargetExists reports a restore that would overwrite an existing
// registry without Force.
var ErrTargetExists = errors.New("restore target already exists")

// RestoreOptions configures Restore.
type RestoreOptions struct {
	// TargetPath is where the restored registry lands: the database file
	// for sqlite, the database directory for badger.
	TargetPath string

	// Force overwrites an existing registry at TargetPath.
	Force bool
}

// Restore writes the registry snapshot from a backup back into place. The
// input may be an archive Create produced or a bare SQLite database file;
// anything else is refused. Sidecar entries in an archive are never
// written back into storage directories.
func Restore(ctx context.Context, inputPath string, opts RestoreOptions) (*Manifest, error) {
	ctx, span := telemetry.StartBackupSpan(ctx, telemetry.SpanBackupRestore,
		telemetry.BackupPath(inputPath))
	defer span.End()

	manifest, err := restore(inputPath, opts)
	if err != nil {
		telemetry.RecordError(ctx, err)
		return nil, err
	}
	logger.Info("registry restored",
		logger.String(logger.KeyArchive, inputPath),
		logger.Path(opts.TargetPath))
	return manifest, nil
}

func restore(inputPath string, opts RestoreOptions) (*Manifest, error) {
	if opts.TargetPath == "" {
		return nil, fmt.Errorf("restore target path is required")
	}
	head, err := sniff(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", inputPath, err)
	}
	switch {
	case bytes.HasPrefix(head, gzipMagic):
		return restoreArchive(inputPath, opts)
	case bytes.HasPrefix(head, sqliteMagic):
		f, err := os.Open(inputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", inputPath, err)
		}
		defer f.Close()
		if err := placeSQLite(f, opts.TargetPath, opts.Force); err != nil {
			return nil, err
		}
		return bareManifest(inputPath)
	default:
		return nil, fmt.Errorf("%s is neither a backup archive nor a sqlite database", inputPath)
	}
}

func restoreArchive(inputPath string, opts RestoreOptions) (*Manifest, error) {
	f, err := os.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", inputPath, err)
	}
	defer f.Close()
	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup archive: %w", err)
	}
	defer gz.Close()
	tr := tar.NewReader(gz)

	var manifest *Manifest
	restored := false
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read backup archive: %w", err)
		}
		switch hdr.Name {
		case manifestName:
			if manifest, err = decodeManifest(tr); err != nil {
				return nil, err
			}
		case registrySnapshotName:
			if manifest == nil {
				return nil, fmt.Errorf("malformed backup archive: no manifest before the registry snapshot")
			}
			switch manifest.Registry.Format {
			case FormatSQLite:
				err = placeSQLite(tr, opts.TargetPath, opts.Force)
			case FormatBadger:
				err = placeBadger(tr, opts.TargetPath, opts.Force)
			default:
				err = fmt.Errorf("unknown registry snapshot format %q", manifest.Registry.Format)
			}
			if err != nil {
				return nil, err
			}
			restored = true
		default:
			// Sidecar entries stay in the archive; see the package doc.
		}
	}
	if !restored {
		return nil, fmt.Errorf("malformed backup archive: no registry snapshot")
	}
	return manifest, nil
}

// placeSQLite writes a restored database file next to the target and
// renames it into place, so a crash mid-restore never leaves a torn
// registry under the live name.
func placeSQLite(r io.Reader, target string, force bool) error {
	if _, err := os.Stat(target); err == nil {
		if !force {
			return fmt.Errorf("%w: %s", ErrTargetExists, target)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat restore target: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create restore directory: %w", err)
	}

	tmp := target + ".restore"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create restore file: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			f.Close()
			os.Remove(tmp)
		}
	}()
	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("failed to write restored registry: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync restored registry: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close restored registry: %w", err)
	}

	// A leftover WAL from the overwritten database would be replayed into
	// the restored file on first open; drop it before the rename.
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(target + suffix); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove stale %s file: %w", suffix, err)
		}
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("failed to finalize restored registry: %w", err)
	}
	committed = true
	return syncDir(target)
}

// placeBadger loads a badger stream into a fresh directory at target.
// Loading merges into whatever already lives there, so an existing
// database must be cleared first (requires force) rather than blended
// with.
func placeBadger(r io.Reader, target string, force bool) error {
	if _, err := os.Stat(target); err == nil {
		if !force {
			return fmt.Errorf("%w: %s", ErrTargetExists, target)
		}
		if err := os.RemoveAll(target); err != nil {
			return fmt.Errorf("failed to clear restore target: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat restore target: %w", err)
	}
	return badger.Restore(target, r)
}

// Inspect reads backup metadata without restoring anything. A bare SQLite
// snapshot gets a manifest synthesized from the file itself.
func Inspect(path string) (*Manifest, error) {
	head, err := sniff(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	switch {
	case bytes.HasPrefix(head, gzipMagic):
		return inspectArchive(path)
	case bytes.HasPrefix(head, sqliteMagic):
		return bareManifest(path)
	default:
		return nil, fmt.Errorf("%s is neither a backup archive nor a sqlite database", path)
	}
}

func inspectArchive(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup archive: %w", err)
	}
	defer gz.Close()
	tr := tar.NewReader(gz)

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil, fmt.Errorf("malformed backup archive: no manifest")
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read backup archive: %w", err)
		}
		if hdr.Name == manifestName {
			return decodeManifest(tr)
		}
	}
}

func decodeManifest(r io.Reader) (*Manifest, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxManifestSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}
	if m.Version != manifestVersion {
		return nil, fmt.Errorf("unsupported backup manifest version %d", m.Version)
	}
	return &m, nil
}

func bareManifest(path string) (*Manifest, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return &Manifest{
		Version:   manifestVersion,
		CreatedAt: info.ModTime().UTC(),
		Registry:  RegistryInfo{Format: FormatSQLite, Size: info.Size()},
	}, nil
}
