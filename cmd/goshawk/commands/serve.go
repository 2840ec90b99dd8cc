package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/goshawk-nvr/goshawk/internal/logger"
	"github.com/goshawk-nvr/goshawk/internal/telemetry"
	"github.com/goshawk-nvr/goshawk/pkg/api"
	"github.com/goshawk-nvr/goshawk/pkg/archive"
	"github.com/goshawk-nvr/goshawk/pkg/config"
	"github.com/goshawk-nvr/goshawk/pkg/metrics"

	// Import prometheus metrics to register init() functions
	_ "github.com/goshawk-nvr/goshawk/pkg/metrics/prometheus"
)

var serveForeground bool
var servePidFile string
var serveLogFile string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Goshawk server",
	Long: `Run the Goshawk network video recorder.

The server opens the registry database, attaches every registered storage
directory that passes its identity check, and serves the HTTP API. By
default it detaches and runs as a daemon; --foreground keeps it attached
for debugging or a process supervisor.

Without --config the default location
$XDG_CONFIG_HOME/goshawk/config.yaml is used.

Examples:
  # Run detached
  goshawk serve

  # Run attached to the terminal
  goshawk serve --foreground

  # Explicit configuration file
  goshawk serve --config /etc/goshawk/config.yaml

  # One-off log level override
  GOSHAWK_LOGGING_LEVEL=DEBUG goshawk serve --foreground`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVarP(&serveForeground, "foreground", "f", false, "Run in foreground (default: background/daemon mode)")
	serveCmd.Flags().StringVar(&servePidFile, "pid-file", "", "Path to PID file (default: $XDG_STATE_HOME/goshawk/goshawk.pid)")
	serveCmd.Flags().StringVar(&serveLogFile, "log-file", "", "Path to log file for daemon mode (default: $XDG_STATE_HOME/goshawk/goshawk.log)")
}

func runServe(cmd *cobra.Command, args []string) error {
	// Detached is the default; re-exec and return.
	if !serveForeground {
		return daemonize()
	}

	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "goshawk",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRatio:    cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("failed to start telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(ctx); err != nil {
			logger.Error("telemetry shutdown error", logger.Err(err))
		}
	}()

	profilingShutdown, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "goshawk",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	})
	if err != nil {
		return fmt.Errorf("failed to start profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", logger.Err(err))
		}
	}()

	fmt.Println("Goshawk - Network video recorder")
	logger.Info("Log level", logger.String("level", cfg.Logging.Level), logger.String("format", cfg.Logging.Format))
	logger.Info("Configuration loaded", logger.String("source", getConfigSource(GetConfigFile())))
	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled", logger.String("endpoint", cfg.Telemetry.Endpoint))
	} else {
		logger.Info("Telemetry disabled")
	}
	if telemetry.IsProfilingEnabled() {
		logger.Info("Profiling enabled", logger.String("endpoint", cfg.Telemetry.Profiling.Endpoint))
	} else {
		logger.Info("Profiling disabled")
	}

	// Initialize metrics FIRST so the archive picks up live instruments
	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		metricsServer, err = metrics.NewServer(metrics.ServerConfig{
			Host: cfg.Metrics.Host,
			Port: cfg.Metrics.Port,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}
		logger.Info("Metrics enabled", logger.Int("port", cfg.Metrics.Port))
	} else {
		logger.Info("Metrics collection disabled")
	}

	// Open the registry database
	store, err := cfg.Registry.NewStore()
	if err != nil {
		return fmt.Errorf("failed to open registry: %w", err)
	}
	defer func() { _ = store.Close() }()
	logger.Info("Registry opened", logger.Backend(cfg.Registry.Backend))

	// Open the archive: allocate a database open and attach every
	// registered storage directory that passes its identity check.
	arch := archive.New(store, &archive.Options{
		Metrics:    metrics.NewArchiveMetrics(),
		DirMetrics: metrics.NewDirMetrics(),
	})
	defer func() { _ = arch.Close() }()

	report, err := arch.Open(ctx)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	logger.Info("Archive opened",
		logger.OpenID(report.Ref.ID),
		logger.Count(len(report.Attached)))
	for _, skipped := range report.Skipped {
		logger.Warn("storage directory not attached",
			logger.DirUUID(skipped.UUID.String()),
			logger.Path(skipped.Path),
			logger.Err(skipped.Err))
	}

	// Create the API server (if enabled - defaults to true)
	var apiServer *api.Server
	if cfg.API.IsEnabled() {
		apiServer = api.NewServer(cfg.API, arch, store, api.WithMetrics(metrics.NewAPIMetrics()))
		logger.Info("API server enabled", logger.Int("port", cfg.API.Port))
	} else {
		logger.Info("API server disabled by config")
	}

	// Record our PID so stop and status can find us.
	if servePidFile != "" {
		if err := os.WriteFile(servePidFile, []byte(strconv.Itoa(os.Getpid())), 0644); err != nil {
			return fmt.Errorf("failed to write PID file %s: %w", servePidFile, err)
		}
		defer func() { _ = os.Remove(servePidFile) }()
	}

	// Re-apply the log level when the config file changes on disk
	watchConfigFile(ctx)

	// Start servers in background
	serverDone := make(chan error, 2)
	running := 0
	if apiServer != nil {
		running++
		go func() { serverDone <- apiServer.Start(ctx) }()
	}
	if metricsServer != nil {
		running++
		go func() { serverDone <- metricsServer.Start(ctx) }()
	}

	// Wait for interrupt signal or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Server is running. Press Ctrl+C to stop.")

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("Shutdown signal received, initiating graceful shutdown")
		cancel()

		if err := drainServers(serverDone, running, cfg.ShutdownTimeout); err != nil {
			logger.Error("Server shutdown error", logger.Err(err))
			return err
		}
		logger.Info("Server stopped gracefully")

	case err := <-serverDone:
		signal.Stop(sigChan)
		running--
		cancel()
		if err != nil {
			logger.Error("Server error", logger.Err(err))
			_ = drainServers(serverDone, running, cfg.ShutdownTimeout)
			return err
		}
		if err := drainServers(serverDone, running, cfg.ShutdownTimeout); err != nil {
			logger.Error("Server shutdown error", logger.Err(err))
			return err
		}
		logger.Info("Server stopped")
	}

	return nil
}

// drainServers waits for the remaining server goroutines to finish their
// graceful shutdown, up to the configured timeout.
func drainServers(done <-chan error, n int, timeout time.Duration) error {
	if n <= 0 {
		return nil
	}
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	var firstErr error
	for i := 0; i < n; i++ {
		select {
		case err := <-done:
			if err != nil && firstErr == nil {
				firstErr = err
			}
		case <-deadline.C:
			return fmt.Errorf("shutdown timed out after %s", timeout)
		}
	}
	return firstErr
}

// watchConfigFile re-applies the logging level whenever the config file is
// rewritten, so operators can flip DEBUG on without a restart. Changes to
// anything else still need one; the watcher deliberately touches only the
// log level.
func watchConfigFile(ctx context.Context) {
	p := GetConfigFile()
	if p == "" {
		p = config.DefaultConfigPath()
	}
	if _, err := os.Stat(p); err != nil {
		// Running on defaults with no file to watch.
		return
	}

	go func() {
		err := config.Watch(ctx, p, func(next *config.Config) {
			logger.SetLevel(next.Logging.Level)
			logger.Info("log level applied from config change",
				logger.String("level", next.Logging.Level))
		})
		if err != nil {
			logger.Warn("config watch unavailable", logger.Path(p), logger.Err(err))
		}
	}()
}

// getConfigSource names the file the configuration came from, or
// "defaults" when none was found.
func getConfigSource(configFile string) string {
	if configFile != "" {
		return configFile
	}
	if config.HasDefaultConfig() {
		return config.DefaultConfigPath()
	}
	return "defaults"
}
