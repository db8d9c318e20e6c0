package report

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mchalloran/backend-pos/internal/common"
	"github.com/mchalloran/backend-pos/internal/salesday"
)

// Handler exposes the report endpoints.
type Handler struct {
	Svc *Service
}

// DayEOD handles GET /api/v1/reports/day/{salesDayID}. Pass refresh=true to
// bypass the cache.
func (h *Handler) DayEOD(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "salesDayID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid sales day id", nil)
		return
	}
	refresh := r.URL.Query().Get("refresh") == "true"
	out, err := h.Svc.DayEOD(r.Context(), id, refresh)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": out})
}

// LocationRange handles GET /api/v1/reports/location/{locationID}?from=&to=.
func (h *Handler) LocationRange(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "locationID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid location id", nil)
		return
	}
	from, to, err := parseRange(r)
	if err != nil {
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", err.Error(), nil)
		return
	}
	out, err := h.Svc.LocationRange(r.Context(), id, from, to)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": out})
}

// Master handles GET /api/v1/reports/master?from=&to=.
func (h *Handler) Master(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r)
	if err != nil {
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", err.Error(), nil)
		return
	}
	out, err := h.Svc.MasterRange(r.Context(), from, to)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": out})
}

// parseRange reads from/to dates. The window is inclusive of from and
// exclusive of the day after to, so a single-day range is from == to.
func parseRange(r *http.Request) (time.Time, time.Time, error) {
	fromRaw := r.URL.Query().Get("from")
	toRaw := r.URL.Query().Get("to")
	if fromRaw == "" || toRaw == "" {
		return time.Time{}, time.Time{}, errors.New("from and to are required as YYYY-MM-DD")
	}
	from, err := time.Parse("2006-01-02", fromRaw)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("from must be YYYY-MM-DD")
	}
	to, err := time.Parse("2006-01-02", toRaw)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("to must be YYYY-MM-DD")
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, errors.New("to must not precede from")
	}
	return from, to.AddDate(0, 0, 1), nil
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, salesday.ErrNotFound) {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "sales day not found", nil)
		return
	}
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusInternalServerError
		}
		common.JSONError(w, status, appErr.Code, appErr.Message, appErr.Details)
		return
	}
	common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
}
