package catalog

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mchalloran/backend-pos/internal/common"
)

// Handler exposes the settings endpoints.
type Handler struct {
	Svc *Service
}

type categoryPayload struct {
	Name       string `json:"name"`
	TaxDefault bool   `json:"tax_default"`
	Active     *bool  `json:"active"`
}

type paymentTypePayload struct {
	Name         string `json:"name"`
	Taxable      bool   `json:"taxable"`
	CountsAsCash bool   `json:"counts_as_cash"`
	Active       *bool  `json:"active"`
}

type locationPayload struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

type taxRatePayload struct {
	RateBps       int64      `json:"rate_bps"`
	EffectiveFrom string     `json:"effective_from"`
	EffectiveTo   *string    `json:"effective_to"`
}

// Categories handles GET /api/v1/settings/categories.
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	includeInactive := r.URL.Query().Get("include_inactive") == "true"
	rows, err := h.Svc.ListCategories(r.Context(), includeInactive)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rows})
}

// CreateCategory handles POST /api/v1/settings/categories.
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var payload categoryPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json body", nil)
		return
	}
	row, err := h.Svc.CreateCategory(r.Context(), payload.Name, payload.TaxDefault)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": row})
}

// UpdateCategory handles PATCH /api/v1/settings/categories/{id}.
func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid category id", nil)
		return
	}
	current, err := h.Svc.Category(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	var payload categoryPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json body", nil)
		return
	}
	if payload.Name != "" {
		current.Name = payload.Name
	}
	current.TaxDefault = payload.TaxDefault
	if payload.Active != nil {
		current.Active = *payload.Active
	}
	row, err := h.Svc.UpdateCategory(r.Context(), current)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": row})
}

// PaymentTypes handles GET /api/v1/settings/payment-types.
func (h *Handler) PaymentTypes(w http.ResponseWriter, r *http.Request) {
	includeInactive := r.URL.Query().Get("include_inactive") == "true"
	rows, err := h.Svc.ListPaymentTypes(r.Context(), includeInactive)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rows})
}

// CreatePaymentType handles POST /api/v1/settings/payment-types.
func (h *Handler) CreatePaymentType(w http.ResponseWriter, r *http.Request) {
	var payload paymentTypePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json body", nil)
		return
	}
	row, err := h.Svc.CreatePaymentType(r.Context(), PaymentType{
		Name:         payload.Name,
		Taxable:      payload.Taxable,
		CountsAsCash: payload.CountsAsCash,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": row})
}

// UpdatePaymentType handles PATCH /api/v1/settings/payment-types/{id}.
func (h *Handler) UpdatePaymentType(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payment type id", nil)
		return
	}
	current, err := h.Svc.PaymentType(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	var payload paymentTypePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json body", nil)
		return
	}
	if payload.Name != "" {
		current.Name = payload.Name
	}
	current.Taxable = payload.Taxable
	current.CountsAsCash = payload.CountsAsCash
	if payload.Active != nil {
		current.Active = *payload.Active
	}
	row, err := h.Svc.UpdatePaymentType(r.Context(), current)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": row})
}

// Locations handles GET /api/v1/settings/locations.
func (h *Handler) Locations(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Svc.ListLocations(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rows})
}

// CreateLocation handles POST /api/v1/settings/locations.
func (h *Handler) CreateLocation(w http.ResponseWriter, r *http.Request) {
	var payload locationPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json body", nil)
		return
	}
	row, err := h.Svc.CreateLocation(r.Context(), payload.Name, payload.Code)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": row})
}

// TaxRates handles GET /api/v1/settings/locations/{id}/tax-rates.
func (h *Handler) TaxRates(w http.ResponseWriter, r *http.Request) {
	locationID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid location id", nil)
		return
	}
	rows, err := h.Svc.ListTaxRates(r.Context(), locationID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rows})
}

// CreateTaxRate handles POST /api/v1/settings/locations/{id}/tax-rates.
func (h *Handler) CreateTaxRate(w http.ResponseWriter, r *http.Request) {
	locationID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid location id", nil)
		return
	}
	var payload taxRatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json body", nil)
		return
	}
	from, err := time.Parse("2006-01-02", payload.EffectiveFrom)
	if err != nil {
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", "effective_from must be YYYY-MM-DD", nil)
		return
	}
	rate := TaxRate{LocationID: locationID, RateBps: payload.RateBps, EffectiveFrom: from}
	if payload.EffectiveTo != nil {
		to, err := time.Parse("2006-01-02", *payload.EffectiveTo)
		if err != nil {
			common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", "effective_to must be YYYY-MM-DD", nil)
			return
		}
		rate.EffectiveTo = &to
	}
	row, err := h.Svc.CreateTaxRate(r.Context(), rate)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": row})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "settings entity not found", nil)
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
