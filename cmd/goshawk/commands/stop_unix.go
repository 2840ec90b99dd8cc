//go:build !windows

package commands

import (
	"os"
	"syscall"
)

// stopProcess asks the server to exit: SIGTERM normally, SIGKILL when
// force is set.
func stopProcess(proc *os.Process, force bool) error {
	sig := os.Signal(syscall.SIGTERM)
	if force {
		sig = syscall.SIGKILL
	}
	return proc.Signal(sig)
}
