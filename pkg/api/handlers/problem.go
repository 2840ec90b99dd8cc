// Package handlers implements the HTTP handlers for the inspection API.
package handlers

import (
	"encoding/json"
	"net/http"
)

// MediaTypeProblemJSON is the media type for RFC 7807 problem responses.
const MediaTypeProblemJSON = "application/problem+json"

// Problem is the RFC 7807 "problem details" body used for every error
// response the API produces.
type Problem struct {
	// Type identifies the problem class. The API only emits the default
	// "about:blank", so the Title carries the meaning.
	Type string `json:"type,omitempty"`

	// Title is a short summary matching the HTTP status text.
	Title string `json:"title"`

	// Status echoes the HTTP status code.
	Status int `json:"status"`

	// Detail explains this particular occurrence.
	Detail string `json:"detail,omitempty"`
}

func writeProblem(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", MediaTypeProblemJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Problem{
		Type: "about:blank", Title: http.StatusText(status),
		Status: status, Detail: detail,
	})
}

// BadRequest writes a 400 problem response.
func BadRequest(w http.ResponseWriter, msg string) {
	writeProblem(w, http.StatusBadRequest, msg)
}

// NotFound writes a 404 problem response.
func NotFound(w http.ResponseWriter, msg string) {
	writeProblem(w, http.StatusNotFound, msg)
}

// InternalServerError writes a 500 problem response.
func InternalServerError(w http.ResponseWriter, msg string) {
	writeProblem(w, http.StatusInternalServerError, msg)
}

// WriteJSON writes v as JSON with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteJSONOK writes v as a 200 OK JSON response.
func WriteJSONOK(w http.ResponseWriter, v any) { WriteJSON(w, http.StatusOK, v) }
