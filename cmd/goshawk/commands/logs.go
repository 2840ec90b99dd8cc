package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/goshawk-nvr/goshawk/pkg/config"
)

var logsFollow bool
var logsLines int
var logsSince string

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show or follow the server log",
	Long: `Display and optionally follow the Goshawk server logs.

Reads the log file named by 'logging.output' in the configuration. When the
server logs to stdout or stderr, daemon mode redirects that output to the
state-directory log file, which this command falls back to.

Examples:
  # Print the most recent 100 lines (default)
  goshawk logs

  # Print the last 50 lines
  goshawk logs -n 50

  # Stream new entries as they are written
  goshawk logs -f

  # Only entries at or after a timestamp
  goshawk logs --since "2026-01-15T10:00:00Z"`,
	RunE: runLogs,
}

func init() {
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Keep the file open and stream new entries")
	logsCmd.Flags().IntVarP(&logsLines, "lines", "n", 100, "How many trailing lines to print")
	logsCmd.Flags().StringVar(&logsSince, "since", "", "Drop entries before this RFC3339 timestamp")
}

func runLogs(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logPath := cfg.Logging.Output
	if logPath == "stdout" || logPath == "stderr" {
		// Daemon mode captures console output in the state directory.
		logPath = DefaultLogFile()
	}

	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		return fmt.Errorf("log file not found: %s\nThe server may not have started yet, or 'logging.output' points elsewhere", logPath)
	}

	since, err := parseSince(logsSince)
	if err != nil {
		return err
	}

	if !logsFollow {
		return showLogs(logPath, logsLines, since)
	}
	return followLogs(logPath, logsLines, since)
}

// parseSince interprets the --since flag. An empty flag means no cutoff.
func parseSince(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --since value, want RFC3339: %w", err)
	}
	return t, nil
}

// showLogs prints the last n lines of the log file, skipping entries older
// than since.
func showLogs(path string, n int, since time.Time) error {
	if n <= 0 {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	// Ring of the most recent n lines, so memory stays bounded however big
	// the file has grown.
	ring := make([]string, 0, n)
	next := 0

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024) // structured lines get long

	for sc.Scan() {
		line := sc.Text()
		if skipBefore(line, since) {
			continue
		}
		if len(ring) < n {
			ring = append(ring, line)
		} else {
			ring[next] = line
			next = (next + 1) % n
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	for i := range ring {
		fmt.Println(ring[(next+i)%len(ring)])
	}
	return nil
}

// skipBefore reports whether line carries a timestamp older than since.
// Lines without a recognizable timestamp are never skipped.
func skipBefore(line string, since time.Time) bool {
	if since.IsZero() {
		return false
	}
	stamp := lineTimestamp(line)
	return !stamp.IsZero() && stamp.Before(since)
}

// followLogs prints the last initialLines of the file, then tails it until
// interrupted.
func followLogs(path string, initialLines int, since time.Time) error {
	if err := showLogs(path, initialLines, since); err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create log watcher: %w", err)
	}
	defer func() { _ = w.Close() }()

	if err := w.Add(path); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	// Tail from the current end; showLogs already covered the history.
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("failed to seek to log end: %w", err)
	}
	rd := bufio.NewReader(f)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(os.Stderr, "Following %s (Ctrl+C to stop)...\n", path)

	var carry strings.Builder
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op.Has(fsnotify.Write) {
				drainNewLines(rd, &carry)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("log watcher failed: %w", err)
		}
	}
}

// drainNewLines copies newly appended lines to stdout. Data after the last
// newline is held in carry until a later write completes the line.
func drainNewLines(r *bufio.Reader, carry *strings.Builder) {
	for {
		chunk, err := r.ReadString('\n')
		if err != nil {
			carry.WriteString(chunk)
			return
		}
		if carry.Len() > 0 {
			fmt.Print(carry.String())
			carry.Reset()
		}
		fmt.Print(chunk)
	}
}

// lineTimestamp pulls a timestamp out of a log line. Understands RFC3339
// at the start of the line (text format) and the JSON "time" field.
func lineTimestamp(line string) time.Time {
	for _, n := range []int{25, 20} {
		if len(line) < n {
			continue
		}
		if t, err := time.Parse(time.RFC3339, line[:n]); err == nil {
			return t
		}
	}

	const key = `"time":"`
	_, rest, ok := strings.Cut(line, key)
	if !ok {
		return time.Time{}
	}

	end := strings.IndexByte(rest, '"')
	if end < 0 || end > 40 {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, rest[:end]); err == nil {
		return t
	}
	return time.Time{}
}
