package permits

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes attaches application routes under /permits.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/applications", h.List)
	r.Post("/applications", h.Create)
	r.Get("/applications/{id}", h.Show)
	r.Post("/applications/{id}/approve", h.Approve)
	r.Post("/applications/{id}/disapprove", h.Disapprove)
	r.Post("/applications/{id}/application-fee", h.RecordApplicationFee)
}
