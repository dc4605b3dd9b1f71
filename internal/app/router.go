package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/parkdesk/parkdesk/internal/invoices"
	"github.com/parkdesk/parkdesk/internal/observability"
	"github.com/parkdesk/parkdesk/internal/parks"
	"github.com/parkdesk/parkdesk/internal/permits"
	"github.com/parkdesk/parkdesk/internal/reports"
	"github.com/parkdesk/parkdesk/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	PermitsHandler  *permits.Handler
	InvoicesHandler *invoices.Handler
	ParksHandler    *parks.Handler
	ReportsHandler  *reports.Handler
	JobHandler      *jobs.Handler
	Metrics         *observability.Metrics
}

// NewRouter constructs the chi.Router with ParkDesk defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	if params.PermitsHandler != nil {
		r.Route("/permits", func(r chi.Router) {
			params.PermitsHandler.MountRoutes(r)
			if params.InvoicesHandler != nil {
				params.InvoicesHandler.MountApplicationRoutes(r)
			}
		})
	}
	if params.InvoicesHandler != nil {
		r.Route("/invoices", params.InvoicesHandler.MountRoutes)
	}
	if params.ParksHandler != nil {
		r.Route("/parks", params.ParksHandler.MountRoutes)
	}
	if params.ReportsHandler != nil {
		r.Route("/reports", params.ReportsHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	return r
}
