package invoices

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes attaches invoice routes under /invoices.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Show)
	r.Post("/{id}/paid", h.RecordPayment)
}

// MountApplicationRoutes attaches the issue route under /permits.
func (h *Handler) MountApplicationRoutes(r chi.Router) {
	r.Post("/applications/{id}/invoice", h.Issue)
}
