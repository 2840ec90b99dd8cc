package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/goshawk-nvr/goshawk/internal/logger"
)

// Response is the envelope for health endpoint replies. Status is
// "healthy" or "unhealthy"; Data carries the probe payload and Error the
// failure detail, each present only when set.
type Response struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// writeJSON encodes data into a buffer before touching the wire, so an
// encoding failure can still produce a clean 500 instead of a torn
// response body.
func writeJSON(w http.ResponseWriter, status int, data any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", logger.Err(err))
		http.Error(w, `{"status":"error","error":"failed to encode response"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func healthyResponse(data any) Response {
	return Response{Status: "healthy", Timestamp: time.Now().UTC(), Data: data}
}

func unhealthyResponse(detail string) Response {
	return Response{Status: "unhealthy", Timestamp: time.Now().UTC(), Error: detail}
}
