package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all macro routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/macro", func(r chi.Router) {
		r.Get("/snapshot", h.HandleGetSnapshot)
	})
}
