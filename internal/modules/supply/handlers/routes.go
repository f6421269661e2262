package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all supply chain routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/supply", func(r chi.Router) {
		r.Get("/metrics", h.HandleGetMetrics)
		r.Get("/chokepoints", h.HandleGetChokepoints)
	})
}
