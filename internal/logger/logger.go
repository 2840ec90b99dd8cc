// Package logger provides structured logging for Goshawk on top of log/slog.
//
// The package keeps a single process-wide logger so that every component
// (directory lifecycle, registry, API, CLI) logs through the same handler.
// Level and format can be changed at runtime, which the serve command uses
// for config hot-reload.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Level orders log severities from debug up.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Config selects the process-wide log level, format, and destination.
type Config struct {
	Level  string // one of DEBUG, INFO, WARN, ERROR
	Format string // "text" or "json"
	Output string // "stdout", "stderr", or a file path
}

// Hot-path level checks read the atomics; everything else is guarded by mu.
var (
	minLevel  atomic.Int32
	logFormat atomic.Value // "text" or "json"

	mu       sync.RWMutex
	root     *slog.Logger
	sink     io.Writer = os.Stdout
	colorize bool      = true
)

func init() {
	minLevel.Store(int32(LevelInfo))
	logFormat.Store("text")

	if f, ok := sink.(*os.File); ok {
		colorize = isTerminal(f.Fd())
	}
	rebuild()
}

var levelNames = map[Level]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
}

var slogLevels = map[Level]slog.Level{
	LevelDebug: slog.LevelDebug,
	LevelInfo:  slog.LevelInfo,
	LevelWarn:  slog.LevelWarn,
	LevelError: slog.LevelError,
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "UNKNOWN"
}

func (l Level) slogLevel() slog.Level {
	if sl, ok := slogLevels[l]; ok {
		return sl
	}
	return slog.LevelInfo
}

// parseLevel maps a level name to its Level, case-insensitively.
func parseLevel(s string) (Level, bool) {
	want := strings.ToUpper(s)
	for l, name := range levelNames {
		if name == want {
			return l, true
		}
	}
	return 0, false
}

// storeLevel records a new minimum level and reports whether the name was
// recognized. Unknown names change nothing.
func storeLevel(name string) bool {
	l, ok := parseLevel(name)
	if ok {
		minLevel.Store(int32(l))
	}
	return ok
}

// storeFormat records "text" or "json" and reports whether the name was one
// of the two.
func storeFormat(name string) bool {
	f := strings.ToLower(name)
	if f != "text" && f != "json" {
		return false
	}
	logFormat.Store(f)
	return true
}

// rebuild swaps in a new slog handler reflecting the current level, format,
// sink, and color settings.
func rebuild() {
	mu.Lock()
	defer mu.Unlock()

	lv := new(slog.LevelVar)
	lv.Set(Level(minLevel.Load()).slogLevel())
	opts := &slog.HandlerOptions{Level: lv}

	if f, _ := logFormat.Load().(string); f == "json" {
		root = slog.New(slog.NewJSONHandler(sink, opts))
	} else {
		root = slog.New(NewTextHandler(sink, opts, colorize))
	}
}

// Init applies cfg to the process-wide logger. Output accepts "stdout",
// "stderr", or a file path; an empty or unknown level or format keeps the
// current setting.
func Init(c Config) error {
	if c.Output != "" {
		w, color, err := resolveOutput(c.Output)
		if err != nil {
			return err
		}
		mu.Lock()
		sink, colorize = w, color
		mu.Unlock()
	}

	storeLevel(c.Level)
	storeFormat(c.Format)
	rebuild()
	return nil
}

// resolveOutput maps an output name to a writer. File outputs open in
// append mode and never get color codes.
func resolveOutput(out string) (io.Writer, bool, error) {
	switch strings.ToLower(out) {
	case "stdout":
		return os.Stdout, isTerminal(os.Stdout.Fd()), nil
	case "stderr":
		return os.Stderr, isTerminal(os.Stderr.Fd()), nil
	}

	f, err := os.OpenFile(out, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, false, fmt.Errorf("failed to open log file %q: %w", out, err)
	}
	return f, false, nil
}

// InitWithWriter points the logger at an arbitrary writer, bypassing the
// output-name resolution. Tests use it to capture log lines in a buffer.
func InitWithWriter(w io.Writer, level, format string, color bool) {
	mu.Lock()
	sink, colorize = w, color
	mu.Unlock()

	storeLevel(level)
	storeFormat(format)
	rebuild()
}

// SetLevel sets the minimum log level. Unknown names are ignored so a bad
// hot-reload value cannot silence the process.
func SetLevel(name string) {
	if storeLevel(name) {
		rebuild()
	}
}

// SetFormat switches between "text" and "json" output. Anything else is
// ignored.
func SetFormat(name string) {
	if storeFormat(name) {
		rebuild()
	}
}

func current() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root
}

// enabled reports whether records at l pass the current level filter. The
// check runs before argument processing so filtered calls stay cheap.
func enabled(l Level) bool {
	return l >= Level(minLevel.Load())
}

// emit is the single funnel for all log records. A nil ctx skips the
// Scope lookup entirely.
func emit(ctx context.Context, l Level, msg string, args []any) {
	if !enabled(l) {
		return
	}
	if ctx != nil {
		args = prependContext(ctx, args)
	}
	current().Log(ctx, l.slogLevel(), msg, args...)
}

// Debug logs at debug level with alternating key/value fields.
func Debug(msg string, args ...any) { emit(nil, LevelDebug, msg, args) }

// Info logs at info level.
func Info(msg string, args ...any) { emit(nil, LevelInfo, msg, args) }

// Warn logs at warn level.
func Warn(msg string, args ...any) { emit(nil, LevelWarn, msg, args) }

// Error logs at error level.
func Error(msg string, args ...any) { emit(nil, LevelError, msg, args) }

// DebugCtx logs at debug level, folding in any Scope fields carried by
// ctx (trace_id, operation, dir_uuid, ...).
func DebugCtx(ctx context.Context, msg string, args ...any) { emit(ctx, LevelDebug, msg, args) }

// InfoCtx logs at info level with Scope fields from ctx.
func InfoCtx(ctx context.Context, msg string, args ...any) { emit(ctx, LevelInfo, msg, args) }

// WarnCtx logs at warn level with Scope fields from ctx.
func WarnCtx(ctx context.Context, msg string, args ...any) { emit(ctx, LevelWarn, msg, args) }

// ErrorCtx logs at error level with Scope fields from ctx.
func ErrorCtx(ctx context.Context, msg string, args ...any) { emit(ctx, LevelError, msg, args) }

// prependContext puts Scope fields first so they lead each record.
func prependContext(ctx context.Context, args []any) []any {
	c := FromContext(ctx)
	if c == nil {
		return args
	}

	fields := make([]any, 0, 10+len(args))
	add := func(key, v string) {
		if v != "" {
			fields = append(fields, key, v)
		}
	}
	add(KeyTraceID, c.TraceID)
	add(KeySpanID, c.SpanID)
	add(KeyRequestID, c.RequestID)
	add(KeyOperation, c.Operation)
	add(KeyDirUUID, c.Directory)

	return append(fields, args...)
}

// With returns a slog.Logger carrying pre-bound attributes.
func With(args ...any) *slog.Logger { return current().With(args...) }

// Duration returns the time elapsed since start in milliseconds.
func Duration(start time.Time) float64 { return time.Since(start).Seconds() * 1000 }
