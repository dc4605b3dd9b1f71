package reports

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/parkdesk/parkdesk/internal/platform/httpx"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Dashboard(r.Context())
	if err != nil {
		h.logger.Error("dashboard report", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) Revenue(w http.ResponseWriter, r *http.Request) {
	year := time.Now().Year()
	if v := r.URL.Query().Get("year"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 2000 || parsed > 2200 {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid year")
			return
		}
		year = parsed
	}

	buckets, err := h.service.Revenue(r.Context(), year)
	if err != nil {
		h.logger.Error("revenue report", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"year":   year,
		"months": buckets,
	})
}

func (h *Handler) Parks(w http.ResponseWriter, r *http.Request) {
	buckets, err := h.service.ParkBreakdown(r.Context())
	if err != nil {
		h.logger.Error("parks report", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"parks": buckets})
}
