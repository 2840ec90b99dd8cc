//go:build windows

package segdir

import "os"

// Directory locking relies on flock semantics that Windows does not offer
// on directory handles. Storage directories are deployed on Unix hosts.
func lockDir(f *os.File) error {
	return &DirError{
		Code:   CodeInvalidArgument,
		Op:     "flock",
		Path:   f.Name(),
		Detail: "directory locking is not supported on windows",
	}
}

func unlockDir(f *os.File) error {
	return nil
}
