package parks

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes attaches park reference and availability routes under /parks.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Show)
	r.Get("/{id}/availability", h.Availability)
	r.Get("/{id}/calendar", h.Calendar)
}
