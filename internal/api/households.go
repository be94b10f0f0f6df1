package api

import (
	"encoding/json"
	"net/http"

	"github.com/bher20/ebillmanager/internal/billing"
	"github.com/bher20/ebillmanager/internal/household"
	"github.com/shopspring/decimal"
)

func (h *Handler) createHousehold(w http.ResponseWriter, r *http.Request) {
	var req household.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, &billing.ValidationError{Field: "body", Message: "invalid JSON body"})
		return
	}
	hh, err := h.households.Register(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, hh)
}

func (h *Handler) listHouseholds(w http.ResponseWriter, r *http.Request) {
	list, err := h.households.List(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) quote(w http.ResponseWriter, r *http.Request) {
	units, err := decimal.NewFromString(r.URL.Query().Get("units"))
	if err != nil || units.IsNegative() {
		h.writeError(w, &billing.ValidationError{Field: "units", Message: "units must be a non-negative number"})
		return
	}
	res, err := h.calc.Calculate(units)
	if err != nil {
		h.writeError(w, &billing.ValidationError{Field: "units", Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, res)
}
