package telemetry

import (
	"fmt"
	"runtime"
	"strings"
	"sync/atomic"

	"github.com/grafana/pyroscope-go"
)

// ProfilingConfig configures Pyroscope continuous profiling.
type ProfilingConfig struct {
	// Enabled turns continuous profiling on.
	Enabled bool

	// ServiceName is the application name reported to Pyroscope.
	ServiceName string

	// ServiceVersion is attached as a tag so profiles can be compared
	// across releases.
	ServiceVersion string

	// Endpoint is the Pyroscope server URL.
	Endpoint string

	// ProfileTypes selects the profiles to collect; see profileTypes for
	// the accepted names.
	ProfileTypes []string
}

// profileTypes maps configuration names onto Pyroscope profile types.
var profileTypes = map[string]pyroscope.ProfileType{
	"cpu":            pyroscope.ProfileCPU,
	"alloc_objects":  pyroscope.ProfileAllocObjects,
	"alloc_space":    pyroscope.ProfileAllocSpace,
	"inuse_objects":  pyroscope.ProfileInuseObjects,
	"inuse_space":    pyroscope.ProfileInuseSpace,
	"goroutines":     pyroscope.ProfileGoroutines,
	"mutex_count":    pyroscope.ProfileMutexCount,
	"mutex_duration": pyroscope.ProfileMutexDuration,
	"block_count":    pyroscope.ProfileBlockCount,
	"block_duration": pyroscope.ProfileBlockDuration,
}

// profileSampleRate is handed to the runtime for mutex and block
// sampling when those profiles are requested.
const profileSampleRate = 5

var profilingActive atomic.Bool

// InitProfiling starts the Pyroscope profiler. The returned shutdown
// function stops it; with profiling disabled both are no-ops.
func InitProfiling(cfg ProfilingConfig) (func() error, error) {
	if !cfg.Enabled {
		profilingActive.Store(false)
		stop := func() error { return nil }
		return stop, nil
	}

	types := make([]pyroscope.ProfileType, 0, len(cfg.ProfileTypes))
	for _, name := range cfg.ProfileTypes {
		pt, ok := profileTypes[name]
		if !ok {
			return nil, fmt.Errorf("unknown profile type %q", name)
		}
		types = append(types, pt)

		// Mutex and block profiles stay empty until the runtime samples
		// them.
		switch {
		case strings.HasPrefix(name, "mutex_"):
			runtime.SetMutexProfileFraction(profileSampleRate)
		case strings.HasPrefix(name, "block_"):
			runtime.SetBlockProfileRate(profileSampleRate)
		}
	}

	tags := map[string]string{"version": cfg.ServiceVersion}
	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: cfg.ServiceName,
		ServerAddress:   cfg.Endpoint,
		Tags:            tags,
		ProfileTypes:    types,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start pyroscope profiler: %w", err)
	}
	profilingActive.Store(true)

	stop := func() error {
		profilingActive.Store(false)
		return profiler.Stop()
	}
	return stop, nil
}

// IsProfilingEnabled reports whether the profiler is currently running.
func IsProfilingEnabled() bool { return profilingActive.Load() }
