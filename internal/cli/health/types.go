// Package health mirrors the API server's health response envelope for CLI
// probes.
package health

// Response is the JSON envelope the /health endpoints answer with.
type Response struct {
	Status    string `json:"status"` // "healthy" or "unhealthy"
	Timestamp string `json:"timestamp"`
	Data      Data   `json:"data"`
	Error     string `json:"error,omitempty"`
}

// Data carries the union of the liveness fields (service, uptime) and the
// readiness fields (open_id); each probe fills only its own.
type Data struct {
	Service       string `json:"service"`
	StartedAt     string `json:"started_at"`
	Uptime        string `json:"uptime"`
	UptimeSeconds int64  `json:"uptime_sec"`
	OpenID        uint32 `json:"open_id"`
}

// Healthy reports whether the response carries the healthy status.
func (r *Response) Healthy() bool {
	return r.Status == "healthy"
}
