// Package handlers provides HTTP handlers for macro snapshot operations.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/stratalpha/stratalpha/internal/modules/macro"
)

// Handler handles macro HTTP requests.
type Handler struct {
	service *macro.Service
	log     zerolog.Logger
}

// NewHandler creates a new macro handler.
func NewHandler(service *macro.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "macro").Logger(),
	}
}

// HandleGetSnapshot handles GET /api/macro/snapshot
func (h *Handler) HandleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	start := r.URL.Query().Get("start")
	end := r.URL.Query().Get("end")

	snapshot, err := h.service.Snapshot(r.Context(), start, end)
	if err != nil {
		h.log.Error().Err(err).Msg("Macro snapshot failed")
		http.Error(w, "Macro snapshot failed", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": snapshot,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
