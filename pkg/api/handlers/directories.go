package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/goshawk-nvr/goshawk/pkg/archive"
	"github.com/goshawk-nvr/goshawk/pkg/dirmeta"
	"github.com/goshawk-nvr/goshawk/pkg/registry"
)

// DirectoryHandler handles the read-only storage directory endpoints.
type DirectoryHandler struct {
	archive *archive.Archive
}

// NewDirectoryHandler creates a new DirectoryHandler.
func NewDirectoryHandler(arch *archive.Archive) *DirectoryHandler {
	return &DirectoryHandler{archive: arch}
}

// PermissionFlags mirrors dirmeta.Permissions for JSON responses. The API
// serves the flags verbatim; it never evaluates them.
type PermissionFlags struct {
	ViewVideo         bool `json:"view_video"`
	ReadCameraConfigs bool `json:"read_camera_configs"`
	UpdateSignals     bool `json:"update_signals"`
}

// DirectoryDetail is the response body for a single directory: the listing
// entry plus the registry row fields the listing omits.
type DirectoryDetail struct {
	archive.DirectoryStatus
	DefaultPermissions *PermissionFlags `json:"default_permissions,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
}

// List handles GET /api/v1/directories.
// Lists every registered directory with its live attachment state.
func (h *DirectoryHandler) List(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.archive.Status(r.Context())
	if err != nil {
		InternalServerError(w, "Failed to list directories")
		return
	}

	WriteJSONOK(w, statuses)
}

// Get handles GET /api/v1/directories/{uuid}.
// Returns one directory with its permission defaults and registration time.
func (h *DirectoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "uuid"))
	if err != nil {
		BadRequest(w, "Invalid directory UUID")
		return
	}

	row, err := h.archive.Store().GetDirectory(r.Context(), id)
	if err != nil {
		if errors.Is(err, registry.ErrDirectoryNotFound) {
			NotFound(w, "Directory not found")
			return
		}
		InternalServerError(w, "Failed to load directory")
		return
	}

	detail := DirectoryDetail{
		DirectoryStatus: archive.DirectoryStatus{
			UUID:               row.UUID,
			Path:               row.Path,
			LastCompleteOpenID: row.LastCompleteOpenID,
		},
		CreatedAt: row.CreatedAt,
	}

	// Overlay the live view when the archive tracks this directory.
	statuses, err := h.archive.Status(r.Context())
	if err != nil {
		InternalServerError(w, "Failed to inspect directory state")
		return
	}
	for _, st := range statuses {
		if st.UUID == id {
			detail.DirectoryStatus = st
			break
		}
	}

	// A corrupt permission blob hides the flags but not the directory.
	if perms, err := dirmeta.UnmarshalPermissions(row.DefaultPermissions); err == nil {
		detail.DefaultPermissions = &PermissionFlags{
			ViewVideo:         perms.ViewVideo,
			ReadCameraConfigs: perms.ReadCameraConfigs,
			UpdateSignals:     perms.UpdateSignals,
		}
	}

	WriteJSONOK(w, detail)
}
