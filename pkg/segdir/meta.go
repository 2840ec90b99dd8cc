package segdir

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/goshawk-nvr/goshawk/pkg/dirmeta"
)

// MetaFilename is the name of the metadata sidecar inside every storage
// directory.
const MetaFilename = "meta"

// metaPath returns the sidecar path for a directory.
func metaPath(dir string) string {
	return filepath.Join(dir, MetaFilename)
}

// metaFile is the slice of *os.File the rewriter needs. Tests substitute
// fault-injecting implementations to exercise the crash window.
type metaFile interface {
	io.WriterAt
	Sync() error
	Close() error
}

// rewriteMeta persists a record by overwriting the sidecar in place: one
// block-sized write at offset zero followed by fsync. No temporary file and
// no rename, so the rewrite needs no free space and works on a full disk.
// The record always occupies a single filesystem block, which is what makes
// the in-place overwrite safe: the write never grows the file and never
// spans blocks.
func rewriteMeta(f metaFile, path string, m *dirmeta.DirMeta) error {
	block, err := dirmeta.MarshalBlock(m)
	if err != nil {
		// Encoding failures are reported as-is; nothing touched the disk.
		return err
	}
	if _, err := f.WriteAt(block, 0); err != nil {
		return newIOError("rewrite", path, err)
	}
	if err := f.Sync(); err != nil {
		return newIOError("sync", path, err)
	}
	return nil
}

// readMeta loads and decodes the sidecar. Decode failures keep their
// dirmeta.FormatError identity so callers can distinguish corruption from
// filesystem trouble.
func readMeta(path string) (*dirmeta.DirMeta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, newNotFoundError("read", filepath.Dir(path))
		}
		return nil, newIOError("read", filepath.Dir(path), err)
	}
	m, err := dirmeta.UnmarshalBlock(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// createMeta creates the sidecar with an initial record and makes both the
// file contents and its directory entry durable. The O_EXCL guards against
// initializing a directory twice.
func createMeta(dirF *os.File, dir string, m *dirmeta.DirMeta) (*os.File, error) {
	path := metaPath(dir)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, newAlreadyExistsError("create", dir)
		}
		return nil, newIOError("create", dir, err)
	}
	if err := rewriteMeta(f, path, m); err != nil {
		f.Close()
		os.Remove(path)
		return nil, err
	}
	// The new directory entry must survive a crash too.
	if err := dirF.Sync(); err != nil {
		f.Close()
		return nil, newIOError("sync_dir", dir, err)
	}
	return f, nil
}

// openMeta opens an existing sidecar for rewriting.
func openMeta(dir string) (*os.File, error) {
	path := metaPath(dir)
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, newNotFoundError("open", dir)
		}
		return nil, newIOError("open", dir, err)
	}
	return f, nil
}
