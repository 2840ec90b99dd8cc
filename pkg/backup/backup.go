// Package backup produces and restores registry backups.
//
// A backup is a tar.gz archive holding a manifest, a consistent snapshot
// of the registry database, and a copy of every readable directory
// sidecar. The snapshot comes from the registry backend itself (VACUUM
// INTO for SQLite, a backup stream for Badger), so backups are taken
// while the recorder runs.
//
// Restore writes the registry snapshot back into place and nothing else.
// Sidecars are archived for inspection only: a directory's sidecar is how
// staleness is detected when the recorder attaches the directory, and
// rewriting it from a backup would disguise exactly what it exists to
// reveal.
package backup

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/goshawk-nvr/goshawk/internal/logger"
	"github.com/goshawk-nvr/goshawk/internal/telemetry"
	"github.com/goshawk-nvr/goshawk/pkg/registry"
	"github.com/goshawk-nvr/goshawk/pkg/segdir"
)

// Registry snapshot formats recorded in the manifest.
const (
	FormatSQLite = "sqlite"
	FormatBadger = "badger"
)

const (
	manifestName         = "manifest.yaml"
	registrySnapshotName = "registry.snapshot"
	sidecarPrefix        = "sidecars/"

	manifestVersion = 1

	// maxManifestSize bounds the manifest read on restore; a manifest is a
	// few KB even with hundreds of directories.
	maxManifestSize = 1 << 20
)

// sqliteMagic is the 16-byte header every SQLite database file starts with.
var sqliteMagic = []byte("SQLite format 3\x00")

// gzipMagic identifies a backup archive.
var gzipMagic = []byte{0x1f, 0x8b}

// Snapshotter is the part of a registry backend that can write a
// consistent copy of itself to a file. Both bundled backends implement it.
type Snapshotter interface {
	Snapshot(ctx context.Context, path string) error
}

// Manifest describes the contents of a backup archive.
type Manifest struct {
	Version      int             `yaml:"version"`
	CreatedAt    time.Time       `yaml:"created_at"`
	DatabaseUUID string          `yaml:"database_uuid"`
	Registry     RegistryInfo    `yaml:"registry"`
	Directories  []DirectoryInfo `yaml:"directories,omitempty"`
}

// RegistryInfo describes the registry snapshot inside an archive.
type RegistryInfo struct {
	Format string `yaml:"format"` // FormatSQLite or FormatBadger
	Size   int64  `yaml:"size"`
}

// DirectoryInfo describes one registered storage directory at backup time.
type DirectoryInfo struct {
	UUID string `yaml:"uuid"`
	Path string `yaml:"path"` // registration path when the backup ran

	// Sidecar reports whether the directory's sidecar made it into the
	// archive. False means the directory was unreadable when the backup
	// ran, typically a detached disk.
	Sidecar bool `yaml:"sidecar"`
}

// Create writes a backup archive to outputPath and returns its manifest.
// The store must implement Snapshotter; PostgreSQL registries refuse and
// are backed up with pg_dump instead.
func Create(ctx context.Context, store registry.Store, outputPath string) (*Manifest, error) {
	ctx, span := telemetry.StartBackupSpan(ctx, telemetry.SpanBackupCreate,
		telemetry.BackupPath(outputPath))
	defer span.End()

	manifest, size, err := create(ctx, store, outputPath)
	if err != nil {
		telemetry.RecordError(ctx, err)
		return nil, err
	}
	span.SetAttributes(telemetry.BackupBytes(size))
	logger.Info("backup created",
		logger.String(logger.KeyArchive, outputPath),
		logger.Count(len(manifest.Directories)),
		logger.BytesWritten(int(size)))
	return manifest, nil
}

func create(ctx context.Context, store registry.Store, outputPath string) (*Manifest, int64, error) {
	snap, ok := store.(Snapshotter)
	if !ok {
		return nil, 0, fmt.Errorf("registry backend does not support snapshots")
	}
	dbID, err := store.DatabaseID(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to resolve database identity: %w", err)
	}
	rows, err := store.ListDirectories(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list directories: %w", err)
	}

	// The snapshot lands next to the output so the later rename stays on
	// one filesystem.
	tmpDir, err := os.MkdirTemp(filepath.Dir(outputPath), ".goshawk-backup-")
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	snapPath := filepath.Join(tmpDir, registrySnapshotName)
	if err := snap.Snapshot(ctx, snapPath); err != nil {
		return nil, 0, err
	}
	format, err := snapshotFormat(snapPath)
	if err != nil {
		return nil, 0, err
	}
	info, err := os.Stat(snapPath)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to stat snapshot: %w", err)
	}

	manifest := &Manifest{
		Version:      manifestVersion,
		CreatedAt:    time.Now().UTC(),
		DatabaseUUID: dbID.String(),
		Registry:     RegistryInfo{Format: format, Size: info.Size()},
	}
	sidecars := make(map[string][]byte, len(rows))
	for _, row := range rows {
		entry := DirectoryInfo{UUID: row.UUID.String(), Path: row.Path}
		data, err := os.ReadFile(filepath.Join(row.Path, segdir.MetaFilename))
		if err != nil {
			logger.Warn("sidecar unreadable, backing up without it",
				logger.Path(row.Path),
				logger.DirUUID(entry.UUID),
				logger.Err(err))
		} else {
			entry.Sidecar = true
			sidecars[entry.UUID] = data
		}
		manifest.Directories = append(manifest.Directories, entry)
	}

	if err := writeArchive(outputPath, manifest, snapPath, sidecars); err != nil {
		return nil, 0, err
	}
	out, err := os.Stat(outputPath)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to stat backup archive: %w", err)
	}
	return manifest, out.Size(), nil
}

// snapshotFormat sniffs a file Snapshotter produced. The two bundled
// backends emit either a SQLite image or a badger stream, so anything
// without the SQLite header is the stream.
func snapshotFormat(path string) (string, error) {
	head, err := sniff(path)
	if err != nil {
		return "", fmt.Errorf("failed to read snapshot header: %w", err)
	}
	if bytes.HasPrefix(head, sqliteMagic) {
		return FormatSQLite, nil
	}
	return FormatBadger, nil
}

// sniff returns up to the first 16 bytes of a file.
func sniff(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	head := make([]byte, len(sqliteMagic))
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}
	return head[:n], nil
}

// writeArchive builds the tar.gz at path via a temp file and rename, so a
// crash mid-write never leaves a truncated archive under the final name.
func writeArchive(path string, m *Manifest, snapPath string, sidecars map[string][]byte) error {
	manifestData, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create backup archive: %w", err)
	}
	renamed := false
	defer func() {
		if !renamed {
			f.Close()
			os.Remove(tmp)
		}
	}()

	gw := gzip.NewWriter(f)
	tw := tar.NewWriter(gw)

	// The manifest goes first; restore reads the archive in one pass and
	// needs it before the snapshot arrives.
	if err := writeEntry(tw, manifestName, m.CreatedAt, manifestData); err != nil {
		return err
	}
	if err := writeFileEntry(tw, registrySnapshotName, m.CreatedAt, snapPath); err != nil {
		return err
	}
	for _, d := range m.Directories {
		if !d.Sidecar {
			continue
		}
		if err := writeEntry(tw, sidecarPrefix+d.UUID, m.CreatedAt, sidecars[d.UUID]); err != nil {
			return err
		}
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("failed to finish backup archive: %w", err)
	}
	if err := gw.Close(); err != nil {
		return fmt.Errorf("failed to finish backup archive: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync backup archive: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close backup archive: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to finalize backup archive: %w", err)
	}
	renamed = true
	// The rename must survive a crash too.
	if err := syncDir(path); err != nil {
		return fmt.Errorf("failed to sync backup directory: %w", err)
	}
	return nil
}

func writeEntry(tw *tar.Writer, name string, mod time.Time, data []byte) error {
	hdr := &tar.Header{
		Name:    name,
		Mode:    0o644,
		Size:    int64(len(data)),
		ModTime: mod,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("failed to write %s header: %w", name, err)
	}
	if _, err := tw.Write(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

func writeFileEntry(tw *tar.Writer, name string, mod time.Time, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	hdr := &tar.Header{
		Name:    name,
		Mode:    0o644,
		Size:    fi.Size(),
		ModTime: mod,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("failed to write %s header: %w", name, err)
	}
	if _, err := io.Copy(tw, f); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

// syncDir makes a directory entry change durable.
func syncDir(path string) error {
	parent, err := os.Open(filepath.Dir(path))
	if err != nil {
		return err
	}
	defer parent.Close()
	return parent.Sync()
}
