// Package timeutil formats timestamps and durations for CLI display.
package timeutil

import (
	"fmt"
	"time"
)

// displayLayout is how tables and detail views render timestamps.
const displayLayout = "Mon Jan 2 15:04:05 2006"

// FormatUptime rewrites a Go duration string ("72h30m15s") into day
// granularity ("3d 0h 30m 15s"). Unparseable input passes through
// unchanged so callers can format whatever the server sent.
func FormatUptime(raw string) string {
	dur, err := time.ParseDuration(raw)
	if err != nil {
		return raw
	}

	total := int64(dur / time.Second)
	d := total / 86400
	h := total % 86400 / 3600
	m := total % 3600 / 60
	s := total % 60

	switch {
	case d > 0:
		return fmt.Sprintf("%dd %dh %dm %ds", d, h, m, s)
	case h > 0:
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

// FormatTime converts an RFC3339 timestamp to local time for display.
// Unparseable input passes through unchanged.
func FormatTime(ts string) string {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return FormatLocal(t)
}

// FormatLocal renders a time value in the local time zone for table output.
func FormatLocal(t time.Time) string { return t.Local().Format(displayLayout) }
