package reports

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes attaches reporting routes under /reports.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/dashboard", h.Dashboard)
	r.Get("/revenue", h.Revenue)
	r.Get("/parks", h.Parks)
}
