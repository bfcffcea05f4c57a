// Package handler provides HTTP request handlers.
package handler

import (
	"encoding/json"
	"net/http"
)

// Version is reported by the service banner.
const Version = "1.0.0"

// Banner is the body of GET /.
type Banner struct {
	Message string `json:"message"`
	Version string `json:"version"`
}

// Handler serves the endpoints that need no dependencies.
type Handler struct {
	banner Banner
}

// New creates a new Handler instance.
func New() *Handler {
	return &Handler{banner: Banner{Message: "Blog post API", Version: Version}}
}

// Hello returns the service banner.
// GET /
func (h *Handler) Hello(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.banner)
}

// NotFound handles requests no route matched.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "NOT_FOUND", "resource not found", nil)
}

// MethodNotAllowed handles a known path hit with an unsupported method.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already out; nothing useful to do on encode failure
	_ = json.NewEncoder(w).Encode(data)
}
