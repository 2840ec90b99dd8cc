//go:build windows

package commands

import (
	"errors"
	"os"
)

// processAlive reports whether pid is running. FindProcess opens a real
// handle on Windows, so its error doubles as the liveness check.
func processAlive(pid int) (*os.Process, bool) {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return nil, false
	}
	return proc, true
}

// daemonize is unavailable on Windows; run attached instead.
func daemonize() error {
	return errors.New("daemon mode is not supported on Windows, use --foreground")
}
