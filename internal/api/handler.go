// Package api provides HTTP handlers for the guestbook API.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/naicoco/guestbook/internal/narrative"
	"github.com/naicoco/guestbook/internal/store"
)

// Handler provides common handler utilities.
type Handler struct {
	repo    store.Repository
	machine *narrative.Machine
	hub     *Hub
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(repo store.Repository, machine *narrative.Machine, hub *Hub) *Handler {
	return &Handler{repo: repo, machine: machine, hub: hub}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
