package handlers

import (
	"net/http"
	"time"

	"github.com/goshawk-nvr/goshawk/pkg/registry"
)

// OpenHandler handles the read-only database open history endpoints.
type OpenHandler struct {
	store registry.Store
}

// NewOpenHandler creates a new OpenHandler.
func NewOpenHandler(store registry.Store) *OpenHandler {
	return &OpenHandler{store: store}
}

// OpenResponse is one open of the registry database.
type OpenResponse struct {
	ID          uint32     `json:"id"`
	UUID        string     `json:"uuid"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Completed   bool       `json:"completed"`
}

// List handles GET /api/v1/opens.
// Lists every database open in ascending ID order.
func (h *OpenHandler) List(w http.ResponseWriter, r *http.Request) {
	opens, err := h.store.ListOpens(r.Context())
	if err != nil {
		InternalServerError(w, "Failed to list opens")
		return
	}

	response := make([]OpenResponse, len(opens))
	for i, o := range opens {
		response[i] = openToResponse(o)
	}

	WriteJSONOK(w, response)
}

// openToResponse converts a registry.Open to OpenResponse.
func openToResponse(o *registry.Open) OpenResponse {
	return OpenResponse{
		ID:          o.ID,
		UUID:        o.UUID.String(),
		StartedAt:   o.StartedAt,
		CompletedAt: o.CompletedAt,
		Completed:   o.Completed(),
	}
}
