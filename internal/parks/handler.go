package parks

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/parkdesk/parkdesk/internal/platform/httpx"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	parks, err := h.service.ListParks(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"parks": parks})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parkID(w, r)
	if !ok {
		return
	}
	park, err := h.service.GetPark(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, park)
}

// Availability answers whether one date is bookable at the park, reporting
// every blackout reason covering it.
func (h *Handler) Availability(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parkID(w, r)
	if !ok {
		return
	}
	date, err := time.Parse("2006-01-02", r.URL.Query().Get("date"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date must be YYYY-MM-DD")
		return
	}

	result, err := h.service.CheckDate(r.Context(), id, date)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"date":      result.Date.Format("2006-01-02"),
		"available": result.Clear(),
		"conflicts": result.Conflicts,
	})
}

// Calendar returns the per-day conflict grid for one month.
func (h *Handler) Calendar(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parkID(w, r)
	if !ok {
		return
	}
	month, err := time.Parse("2006-01", r.URL.Query().Get("month"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "month must be YYYY-MM")
		return
	}

	days, err := h.service.MonthCalendar(r.Context(), id, month.Year(), month.Month())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"month": month.Format("2006-01"),
		"days":  days,
	})
}

func (h *Handler) parkID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid park id")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInvalidDate), errors.Is(err, ErrInvalidRange):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("parks handler", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
