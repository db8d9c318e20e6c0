package deduction

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mchalloran/backend-pos/internal/common"
	"github.com/mchalloran/backend-pos/internal/money"
	"github.com/mchalloran/backend-pos/internal/salesday"
)

// Handler exposes the deduction endpoints.
type Handler struct {
	Svc *Service
}

type createPayload struct {
	Description string      `json:"description"`
	Amount      money.Cents `json:"amount"`
}

// Create handles POST /api/v1/sales-days/{id}/deductions.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	dayID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid sales day id", nil)
		return
	}
	var payload createPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json body", nil)
		return
	}
	d, err := h.Svc.Create(r.Context(), Deduction{
		SalesDayID:  dayID,
		Description: payload.Description,
		Amount:      payload.Amount,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": d})
}

// List handles GET /api/v1/sales-days/{id}/deductions.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	dayID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid sales day id", nil)
		return
	}
	rows, err := h.Svc.List(r.Context(), dayID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rows})
}

// Delete handles DELETE /api/v1/deductions/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid deduction id", nil)
		return
	}
	if err := h.Svc.Delete(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) || errors.Is(err, salesday.ErrNotFound) {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "not found", nil)
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
