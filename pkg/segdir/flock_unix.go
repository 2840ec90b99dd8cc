//go:build unix

package segdir

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// lockDir takes an exclusive non-blocking flock on the directory. The lock
// rides on the descriptor, so it is released automatically if the process
// dies, and a second handle on the same directory conflicts even within one
// process.
func lockDir(f *os.File) error {
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		if errors.Is(err, unix.EWOULDBLOCK) {
			return newLockedError("flock", f.Name())
		}
		return newIOError("flock", f.Name(), err)
	}
	return nil
}

// unlockDir releases the directory lock.
func unlockDir(f *os.File) error {
	if err := unix.Flock(int(f.Fd()), unix.LOCK_UN); err != nil {
		return newIOError("funlock", f.Name(), err)
	}
	return nil
}
