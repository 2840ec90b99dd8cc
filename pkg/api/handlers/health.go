package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/goshawk-nvr/goshawk/pkg/archive"
	"github.com/goshawk-nvr/goshawk/pkg/registry"
)

// probeTimeout bounds the registry healthcheck so a stalled database
// cannot wedge the readiness probe.
const probeTimeout = 5 * time.Second

// HealthHandler answers the unauthenticated probe endpoints: liveness
// (is the process up) and readiness (is the registry database answering
// queries).
type HealthHandler struct {
	store     registry.Store
	archive   *archive.Archive
	startedAt time.Time
}

// NewHealthHandler builds the handler. Either parameter may be nil; the
// probes degrade to unhealthy answers instead of panicking.
func NewHealthHandler(store registry.Store, arch *archive.Archive) *HealthHandler {
	return &HealthHandler{store: store, archive: arch, startedAt: time.Now().UTC()}
}

// Liveness answers GET /health. It reports 200 whenever the HTTP server
// is responsive, which is all a liveness probe should ask.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	up := time.Since(h.startedAt)
	body := map[string]interface{}{
		"service":    "goshawk",
		"started_at": h.startedAt.Format(time.RFC3339),
		"uptime":     up.Round(time.Second).String(),
		"uptime_sec": int64(up.Seconds()),
	}
	writeJSON(w, http.StatusOK, healthyResponse(body))
}

// Readiness answers GET /health/ready.
//
// It reports 200 once the registry database answers queries. The archive
// does not gate readiness: directory listings work from registry rows
// alone, and a directory that failed to attach shows up in its own status
// rather than taking the whole API down.
//
// A missing or unhealthy registry yields 503 Service Unavailable.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("no registry configured"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
	defer cancel()

	if err := h.store.Healthcheck(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("registry unhealthy: "+err.Error()))
		return
	}

	body := map[string]interface{}{}
	if h.archive != nil {
		if ref := h.archive.CurrentOpen(); ref != nil {
			body["open_id"] = ref.ID
		}
	}
	writeJSON(w, http.StatusOK, healthyResponse(body))
}
