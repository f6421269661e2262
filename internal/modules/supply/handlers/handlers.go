// Package handlers provides HTTP handlers for supply chain analysis.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/stratalpha/stratalpha/internal/modules/supply"
)

// Handler handles supply chain HTTP requests.
type Handler struct {
	service *supply.Service
	log     zerolog.Logger
}

// NewHandler creates a new supply chain handler.
func NewHandler(service *supply.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "supply").Logger(),
	}
}

// HandleGetMetrics handles GET /api/supply/metrics
func (h *Handler) HandleGetMetrics(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Analyze()
	if err != nil {
		h.log.Error().Err(err).Msg("Supply chain analysis failed")
		http.Error(w, "Supply chain analysis failed", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": result,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleGetChokepoints handles GET /api/supply/chokepoints
func (h *Handler) HandleGetChokepoints(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Analyze()
	if err != nil {
		h.log.Error().Err(err).Msg("Supply chain analysis failed")
		http.Error(w, "Supply chain analysis failed", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"chokepoints": result.Chokepoints,
		},
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
