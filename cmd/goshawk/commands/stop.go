package commands

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var stopPidFile string
var stopTimeout time.Duration
var stopForce bool

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the Goshawk server",
	Long: `Stop a running Goshawk server.

Sends SIGTERM to the process recorded in the PID file and waits for it to
exit. Graceful shutdown completes the current database open, releases every
storage directory lock, and removes the PID file.

Examples:
  # Stop the server started with 'goshawk serve'
  goshawk stop

  # Stop a server using a custom PID file
  goshawk stop --pid-file /var/run/goshawk.pid

  # Kill a server that ignores SIGTERM
  goshawk stop --force`,
	RunE: runStop,
}

func init() {
	stopCmd.Flags().StringVar(&stopPidFile, "pid-file", "", "Path to PID file (default: $XDG_STATE_HOME/goshawk/goshawk.pid)")
	stopCmd.Flags().DurationVar(&stopTimeout, "timeout", 30*time.Second, "How long to wait for the server to exit")
	stopCmd.Flags().BoolVar(&stopForce, "force", false, "Kill the process instead of asking it to exit")
}

func runStop(cmd *cobra.Command, args []string) error {
	pidPath := resolvePidFile(stopPidFile)

	pid, err := parsePidFile(pidPath)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Printf("Goshawk is not running (no PID file at %s)\n", pidPath)
			return nil
		}
		return err
	}

	process, alive := processAlive(pid)
	if !alive {
		// Nothing left to stop, just clean up.
		_ = os.Remove(pidPath)
		fmt.Printf("Goshawk is not running (removed stale PID file %s)\n", pidPath)
		return nil
	}

	if err := stopProcess(process, stopForce); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			_ = os.Remove(pidPath)
			fmt.Println("Goshawk already stopped")
			return nil
		}
		return fmt.Errorf("failed to signal process %d: %w", pid, err)
	}

	if !stopForce {
		fmt.Printf("Stopping Goshawk (PID %d)...\n", pid)
	} else {
		fmt.Printf("Killing Goshawk (PID %d)...\n", pid)
	}

	deadline := time.Now().Add(stopTimeout)
	for time.Now().Before(deadline) {
		if _, running := processAlive(pid); !running {
			// The server removes its own PID file on clean shutdown;
			// clean up in case it was interrupted before it could.
			_ = os.Remove(pidPath)
			fmt.Println("Goshawk stopped")
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}

	return fmt.Errorf("server did not stop within %s (PID %d still running)", stopTimeout, pid)
}
