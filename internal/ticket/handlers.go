package ticket

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mchalloran/backend-pos/internal/common"
)

// Handler exposes the ticket endpoints.
type Handler struct {
	Svc *Service
}

// Quote handles POST /api/v1/tickets/quote. It evaluates the draft without
// persisting anything so the register can show live totals.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	var draft Draft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json body", nil)
		return
	}
	q, err := h.Svc.QuoteDraft(r.Context(), draft)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": q})
}

// Post handles POST /api/v1/tickets. A draft without a ticket id opens a new
// ticket; with one it appends a transaction to the existing ticket.
func (h *Handler) Post(w http.ResponseWriter, r *http.Request) {
	var draft Draft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json body", nil)
		return
	}
	t, txn, q, err := h.Svc.Post(r.Context(), draft)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": map[string]any{
		"ticket":      t,
		"transaction": txn,
		"change_due":  q.ChangeDue,
	}})
}

// List handles GET /api/v1/tickets.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, 50)
	f := ListFilter{
		OpenOnly: r.URL.Query().Get("open") == "true",
		Limit:    perPage,
		Offset:   (page - 1) * perPage,
	}
	if raw := r.URL.Query().Get("location_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid location_id", nil)
			return
		}
		f.LocationID = &id
	}
	if raw := r.URL.Query().Get("sales_day_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid sales_day_id", nil)
			return
		}
		f.SalesDayID = &id
	}
	tickets, total, err := h.Svc.List(r.Context(), f)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": tickets,
		"pagination": common.Pagination{
			Page:       page,
			PerPage:    perPage,
			TotalItems: total,
		},
	})
}

// Get handles GET /api/v1/tickets/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid ticket id", nil)
		return
	}
	detail, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": detail})
}

// Delete handles DELETE /api/v1/tickets/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid ticket id", nil)
		return
	}
	t, err := h.Svc.Delete(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": t})
}

// Void handles POST /api/v1/tickets/{id}/transactions/{txnID}/void.
func (h *Handler) Void(w http.ResponseWriter, r *http.Request) {
	ticketID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid ticket id", nil)
		return
	}
	txnID, err := uuid.Parse(chi.URLParam(r, "txnID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid transaction id", nil)
		return
	}
	t, txn, err := h.Svc.Void(r.Context(), ticketID, txnID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"ticket":      t,
		"transaction": txn,
	}})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "ticket or transaction not found", nil)
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
