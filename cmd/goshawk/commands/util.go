package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goshawk-nvr/goshawk/internal/logger"
	"github.com/goshawk-nvr/goshawk/pkg/config"
)

const stateDirName = "goshawk"

// InitLogger configures the process-wide logger from the loaded config.
func InitLogger(c *config.Config) error {
	if err := logger.Init(logger.Config{
		Level:  c.Logging.Level,
		Format: c.Logging.Format,
		Output: c.Logging.Output,
	}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// DefaultStateDir returns the directory for runtime state such as the
// PID file and the daemon log. XDG_STATE_HOME wins; otherwise
// ~/.local/state. Falls back to the system temp dir when no home
// directory resolves.
func DefaultStateDir() string {
	if base := os.Getenv("XDG_STATE_HOME"); base != "" {
		return filepath.Join(base, stateDirName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return os.TempDir()
	}
	return filepath.Join(home, ".local", "state", stateDirName)
}

// DefaultPidFile returns where the daemon records its PID.
func DefaultPidFile() string {
	return filepath.Join(DefaultStateDir(), stateDirName+".pid")
}

// DefaultLogFile returns where daemon mode sends its log output.
func DefaultLogFile() string {
	return filepath.Join(DefaultStateDir(), stateDirName+".log")
}

// resolvePidFile returns the --pid-file flag value, or the default
// location when the flag was left empty.
func resolvePidFile(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return DefaultPidFile()
}

// parsePidFile reads the PID recorded at pidPath. A missing file surfaces
// as the underlying fs error so callers can distinguish it from garbage
// content.
func parsePidFile(pidPath string) (int, error) {
	data, err := os.ReadFile(pidPath)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid < 1 {
		return 0, fmt.Errorf("invalid PID file %s", pidPath)
	}
	return pid, nil
}
