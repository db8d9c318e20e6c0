package salesday

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mchalloran/backend-pos/internal/common"
	"github.com/mchalloran/backend-pos/internal/money"
)

// Handler exposes the sales day endpoints.
type Handler struct {
	Svc *Service
}

type openPayload struct {
	LocationID   uuid.UUID    `json:"location_id"`
	StartingCash *money.Cents `json:"starting_cash"`
	Note         string       `json:"note"`
}

type submitPayload struct {
	CountedCash money.Cents `json:"counted_cash"`
	Note        string      `json:"note"`
}

// Open handles POST /api/v1/sales-days.
func (h *Handler) Open(w http.ResponseWriter, r *http.Request) {
	var payload openPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json body", nil)
		return
	}
	day, err := h.Svc.Open(r.Context(), payload.LocationID, payload.StartingCash, payload.Note)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": day})
}

// Current handles GET /api/v1/sales-days/current?location_id=...
func (h *Handler) Current(w http.ResponseWriter, r *http.Request) {
	locationID, err := uuid.Parse(r.URL.Query().Get("location_id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid location_id", nil)
		return
	}
	day, err := h.Svc.Current(r.Context(), locationID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": day})
}

// List handles GET /api/v1/sales-days?location_id=...
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	locationID, err := uuid.Parse(r.URL.Query().Get("location_id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid location_id", nil)
		return
	}
	page, perPage := common.ParsePagination(r, 50)
	days, err := h.Svc.List(r.Context(), locationID, perPage, (page-1)*perPage)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": days})
}

// Get handles GET /api/v1/sales-days/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid sales day id", nil)
		return
	}
	day, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": day})
}

// Submit handles POST /api/v1/sales-days/{id}/submit.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid sales day id", nil)
		return
	}
	var payload submitPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json body", nil)
		return
	}
	day, err := h.Svc.Submit(r.Context(), id, payload.CountedCash, payload.Note)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": day})
}

// Lock handles POST /api/v1/sales-days/{id}/lock.
func (h *Handler) Lock(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Svc.Lock)
}

// Reopen handles POST /api/v1/sales-days/{id}/reopen.
func (h *Handler) Reopen(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Svc.Reopen)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id uuid.UUID) (SalesDay, error)) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid sales day id", nil)
		return
	}
	day, err := op(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": day})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
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
