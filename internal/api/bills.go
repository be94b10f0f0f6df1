package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/bher20/ebillmanager/internal/billing"
	"github.com/bher20/ebillmanager/internal/render"
	"github.com/bher20/ebillmanager/internal/storage"
)

// createBillRequest accepts either household_id or service_number. Units and
// fine may be JSON numbers or numeric strings. With suggest_fine set and no
// explicit fine, the late fine is applied when the household is overdue.
type createBillRequest struct {
	HouseholdID   string      `json:"household_id"`
	ServiceNumber string      `json:"service_number"`
	Units         json.Number `json:"units"`
	Fine          json.Number `json:"fine"`
	SuggestFine   bool        `json:"suggest_fine"`
	Note          string      `json:"notes"`
}

func (req createBillRequest) ref() billing.HouseholdRef {
	if req.HouseholdID != "" {
		return billing.ByID(req.HouseholdID)
	}
	return billing.ByServiceNumber(req.ServiceNumber)
}

func (h *Handler) createBill(w http.ResponseWriter, r *http.Request) {
	var req createBillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, &billing.ValidationError{Field: "body", Message: "invalid JSON body"})
		return
	}

	fine := req.Fine.String()
	if fine == "" && req.SuggestFine {
		suggested, err := h.engine.SuggestedFine(r.Context(), req.ref())
		if err != nil {
			h.writeError(w, err)
			return
		}
		fine = suggested.String()
	}

	bill, err := h.engine.CreateBill(r.Context(), billing.CreateBillRequest{
		Household: req.ref(),
		Units:     req.Units.String(),
		Fine:      fine,
		Note:      req.Note,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, bill)
}

func (h *Handler) listBills(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := storage.BillFilter{
		HouseholdID:   q.Get("household_id"),
		ServiceNumber: q.Get("service_number"),
		HouseNumber:   q.Get("house_number"),
		Status:        storage.BillStatus(q.Get("status")),
	}
	if f.Status != "" && f.Status != storage.StatusPaid && f.Status != storage.StatusUnpaid {
		h.writeError(w, &billing.ValidationError{Field: "status", Message: "status must be Paid or Unpaid"})
		return
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.writeError(w, &billing.ValidationError{Field: "limit", Message: "limit must be a non-negative integer"})
			return
		}
		f.Limit = n
	}

	bills, err := h.store.ListBills(r.Context(), f)
	if err != nil {
		h.writeError(w, &billing.PersistenceError{Op: "list bills", Err: err})
		return
	}
	if bills == nil {
		bills = []storage.Bill{}
	}
	writeJSON(w, http.StatusOK, bills)
}

func (h *Handler) lookupBill(w http.ResponseWriter, r *http.Request) (*storage.Bill, bool) {
	id := r.PathValue("id")
	bill, err := h.store.GetBill(r.Context(), id)
	if err != nil {
		h.writeError(w, &billing.PersistenceError{Op: "get bill", Err: err})
		return nil, false
	}
	if bill == nil {
		h.writeError(w, &billing.NotFoundError{Kind: "bill", Key: id})
		return nil, false
	}
	return bill, true
}

func (h *Handler) getBill(w http.ResponseWriter, r *http.Request) {
	if bill, ok := h.lookupBill(w, r); ok {
		writeJSON(w, http.StatusOK, bill)
	}
}

func (h *Handler) billPDF(w http.ResponseWriter, r *http.Request) {
	bill, ok := h.lookupBill(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := render.WritePDF(&buf, bill); err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=bill_%s.pdf", bill.ID))
	_, _ = w.Write(buf.Bytes())
}

type payResponse struct {
	ID      string `json:"id"`
	Updated bool   `json:"updated"`
}

// payBill reports updated=false for unknown or already-paid bills; callers
// that need to tell those apart fetch the bill.
func (h *Handler) payBill(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	writeJSON(w, http.StatusOK, payResponse{ID: id, Updated: h.engine.MarkPaid(r.Context(), id)})
}

func (h *Handler) deleteBill(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ok, err := h.store.DeleteBill(r.Context(), id)
	if err != nil {
		h.writeError(w, &billing.PersistenceError{Op: "delete bill", Err: err})
		return
	}
	if !ok {
		h.writeError(w, &billing.NotFoundError{Kind: "bill", Key: id})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
