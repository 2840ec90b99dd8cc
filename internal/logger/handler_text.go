package logger

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

// SGR escape sequences for terminal output.
const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiCyan   = "\x1b[36m"
	ansiGray   = "\x1b[90m"
)

// TextHandler renders records as human-readable lines, colored when the
// destination is a terminal. JSON output goes through slog's stock handler
// instead.
type TextHandler struct {
	out  io.Writer
	opts *slog.HandlerOptions

	// mu is shared across clones so derived handlers serialize writes.
	mu *sync.Mutex

	attrs  []slog.Attr
	groups []string
	color  bool
}

// NewTextHandler creates a TextHandler writing to out.
func NewTextHandler(out io.Writer, opts *slog.HandlerOptions, color bool) *TextHandler {
	h := &TextHandler{out: out, opts: opts, mu: new(sync.Mutex), color: color}
	if h.opts == nil {
		h.opts = new(slog.HandlerOptions)
	}
	return h
}

// Enabled implements slog.Handler.
func (h *TextHandler) Enabled(_ context.Context, level slog.Level) bool {
	if l := h.opts.Level; l != nil {
		return level >= l.Level()
	}
	return level >= slog.LevelInfo
}

// Handle implements slog.Handler. The line is assembled in a local buffer;
// only the final write takes the lock.
func (h *TextHandler) Handle(_ context.Context, r slog.Record) error {
	buf := make([]byte, 0, 256)
	buf = append(buf, '[')
	buf = r.Time.AppendFormat(buf, "2006-01-02 15:04:05")
	buf = append(buf, "] ["...)
	buf = h.appendLevel(buf, r.Level)
	buf = append(buf, "] "...)
	buf = append(buf, r.Message...)

	for _, pre := range h.attrs {
		buf = h.appendPair(buf, pre)
	}
	r.Attrs(func(a slog.Attr) bool { buf = h.appendPair(buf, a); return true })

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.out.Write(append(buf, '\n'))
	return err
}

// appendLevel writes the level tag, colored when enabled. Custom levels
// collapse onto the nearest standard one.
func (h *TextHandler) appendLevel(buf []byte, level slog.Level) []byte {
	var name, color string
	switch {
	case level >= slog.LevelError:
		name, color = "ERROR", ansiRed
	case level >= slog.LevelWarn:
		name, color = "WARN", ansiYellow
	case level >= slog.LevelInfo:
		name, color = "INFO", ansiGreen
	default:
		name, color = "DEBUG", ansiGray
	}

	if !h.color {
		return append(buf, name...)
	}
	return append(append(append(buf, color...), name...), ansiReset...)
}

// appendPair appends one " key=value" attribute, applying group prefixes.
func (h *TextHandler) appendPair(buf []byte, attr slog.Attr) []byte {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return buf
	}

	key := attr.Key
	if len(h.groups) > 0 {
		key = strings.Join(h.groups, ".") + "." + key
	}

	buf = append(buf, ' ')
	if h.color {
		buf = append(append(append(buf, ansiCyan...), key...), ansiReset...)
	} else {
		buf = append(buf, key...)
	}
	buf = append(buf, '=')
	return appendValue(buf, attr.Value)
}

// appendValue renders typed values through strconv and leaves the rest to
// slog's stringer. slog normalizes sized ints and uints before this point,
// so the six cases cover every typed kind.
func appendValue(buf []byte, v slog.Value) []byte {
	switch x := v.Any().(type) {
	case int64:
		return strconv.AppendInt(buf, x, 10)
	case uint64:
		return strconv.AppendUint(buf, x, 10)
	case float64:
		return strconv.AppendFloat(buf, x, 'f', 3, 64)
	case bool:
		return strconv.AppendBool(buf, x)
	case time.Duration:
		return append(buf, x.String()...)
	case time.Time:
		return x.AppendFormat(buf, time.RFC3339)
	default:
		// Strings and group values both render sensibly via slog's own
		// stringer.
		return append(buf, v.String()...)
	}
}

// clone copies the handler. The mutex pointer is shared with the parent so
// writes from all derived handlers stay serialized.
func (h *TextHandler) clone() *TextHandler {
	c := *h
	c.attrs = append([]slog.Attr(nil), h.attrs...)
	c.groups = append([]string(nil), h.groups...)
	return &c
}

// WithAttrs returns a new handler with additional attrs.
func (h *TextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	c := h.clone()
	c.attrs = append(c.attrs, attrs...)
	return c
}

// WithGroup returns a new handler that prefixes attr keys with the group name.
func (h *TextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := h.clone()
	c.groups = append(c.groups, name)
	return c
}
