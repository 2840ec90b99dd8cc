//go:build windows

package commands

import "os"

// stopProcess asks the server to exit. Windows has no SIGTERM: graceful
// stop sends os.Interrupt, force uses Kill.
func stopProcess(proc *os.Process, force bool) error {
	if force {
		return proc.Kill()
	}
	return proc.Signal(os.Interrupt)
}
