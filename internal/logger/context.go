package logger

import (
	"context"
	"time"
)

// ctxKey keeps the context value private to this package.
type ctxKey struct{}

var scopeKey ctxKey

// Scope holds request-scoped logging context.
type Scope struct {
	TraceID   string    // W3C trace ID, when a span is active
	SpanID    string    // matching span ID
	RequestID string    // HTTP request ID from the API middleware
	Operation string    // what is running: begin_open, rewrite, verify, ...
	Directory string    // UUID of the directory the operation targets
	StartTime time.Time // set by NewScope, read by DurationMs
}

// WithContext returns a child context carrying s.
func WithContext(ctx context.Context, s *Scope) context.Context {
	return context.WithValue(ctx, scopeKey, s)
}

// FromContext returns the Scope carried by ctx, or nil.
func FromContext(ctx context.Context) *Scope {
	if ctx == nil {
		return nil
	}
	s, _ := ctx.Value(scopeKey).(*Scope)
	return s
}

// NewScope creates a Scope for an operation starting now.
func NewScope(op string) *Scope {
	return &Scope{Operation: op, StartTime: time.Now()}
}

// Clone returns a shallow copy; nil stays nil.
func (s *Scope) Clone() *Scope {
	if s == nil {
		return nil
	}
	cp := *s
	return &cp
}

// with clones the scope and applies fn to the copy, so the With* helpers
// never mutate a Scope another goroutine may be reading.
func (s *Scope) with(fn func(*Scope)) *Scope {
	cp := s.Clone()
	if cp != nil {
		fn(cp)
	}
	return cp
}

// WithDirectory returns a copy with the directory UUID set.
func (s *Scope) WithDirectory(dirUUID string) *Scope {
	return s.with(func(c *Scope) { c.Directory = dirUUID })
}

// WithTrace returns a copy with trace identifiers set.
func (s *Scope) WithTrace(tid, sid string) *Scope {
	return s.with(func(c *Scope) {
		c.TraceID = tid
		c.SpanID = sid
	})
}

// WithRequestID returns a copy with the API request ID set.
func (s *Scope) WithRequestID(id string) *Scope {
	return s.with(func(c *Scope) { c.RequestID = id })
}

// DurationMs returns elapsed milliseconds since StartTime, 0 for a nil or
// unstarted scope.
func (s *Scope) DurationMs() float64 {
	if s == nil || s.StartTime.IsZero() {
		return 0
	}
	return time.Since(s.StartTime).Seconds() * 1000
}
