//go:build !windows

package commands

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"
)

// processAlive reports whether pid exists and accepts signals. Signal 0
// probes without touching the process.
func processAlive(pid int) (*os.Process, bool) {
	proc, err := os.FindProcess(pid)
	if err != nil || proc.Signal(syscall.Signal(0)) != nil {
		return nil, false
	}
	return proc, true
}

// daemonize re-executes the binary detached from the terminal, with
// stdout and stderr appended to the daemon log.
func daemonize() error {
	stateDir := DefaultStateDir()
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return fmt.Errorf("failed to create state dir: %w", err)
	}

	pidPath := resolvePidFile(servePidFile)
	logPath := serveLogFile
	if logPath == "" {
		logPath = DefaultLogFile()
	}

	if pid, err := parsePidFile(pidPath); err == nil {
		if _, alive := processAlive(pid); alive {
			return fmt.Errorf("goshawk is already running (PID %d)\nUse 'goshawk stop' to stop the running instance", pid)
		}
		// Leftover from an unclean exit.
		_ = os.Remove(pidPath)
	} else if !os.IsNotExist(err) {
		_ = os.Remove(pidPath)
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to resolve own executable: %w", err)
	}

	args := []string{"serve", "--foreground", "--pid-file", pidPath}
	if cfgFile := GetConfigFile(); cfgFile != "" {
		args = append(args, "--config", cfgFile)
	}

	logSink, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = logSink.Close() }()

	daemon := exec.Command(exe, args...)
	daemon.Stdout = logSink
	daemon.Stderr = logSink
	// New session so the child survives the terminal.
	daemon.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := daemon.Start(); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	fmt.Printf("Goshawk started in background (PID %d)\n", daemon.Process.Pid)
	fmt.Printf("  PID file: %s\n", pidPath)
	fmt.Printf("  Log file: %s\n", logPath)
	fmt.Println("\nUse 'goshawk stop' to stop the server")
	fmt.Println("Use 'goshawk status' to check server status")
	return nil
}
