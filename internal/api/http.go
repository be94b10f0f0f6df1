package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/bher20/ebillmanager/internal/api/docs"
	"github.com/bher20/ebillmanager/internal/auth"
	"github.com/bher20/ebillmanager/internal/billing"
	"github.com/bher20/ebillmanager/internal/household"
	"github.com/bher20/ebillmanager/internal/metrics"
	"github.com/bher20/ebillmanager/internal/storage"
	"github.com/bher20/ebillmanager/internal/tariff"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Deps are the services the HTTP layer fronts. Auth may be nil, which leaves
// every route open.
type Deps struct {
	Engine     *billing.Engine
	Households *household.Service
	Store      storage.Storage
	Calculator *tariff.Calculator
	Auth       *auth.Service
	Logger     *zap.Logger
}

type Handler struct {
	engine     *billing.Engine
	households *household.Service
	store      storage.Storage
	calc       *tariff.Calculator
	log        *zap.Logger
}

// NewMux constructs the HTTP handler, wiring in the billing API, metrics, and
// health endpoints.
func NewMux(d Deps) http.Handler {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	h := &Handler{
		engine:     d.Engine,
		households: d.Households,
		store:      d.Store,
		calc:       d.Calculator,
		log:        log,
	}

	mux := http.NewServeMux()

	// Metrics endpoint.
	mux.Handle("GET /metrics", promhttp.Handler())

	// API documentation.
	mux.Handle("GET /docs/", docs.Handler("/docs/"))

	// Health / readiness / liveness.
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := h.store.Ping(r.Context()); err != nil {
			log.Warn("readyz: db ping failed", zap.Error(err))
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	mux.HandleFunc("GET /livez", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("live"))
	})

	// Wrap a route with metrics and, when auth is configured, a permission check.
	route := func(pattern, name, obj, act string, fn http.HandlerFunc) {
		var handler http.Handler = fn
		if d.Auth != nil {
			handler = d.Auth.RequirePermission(obj, act, handler)
		}
		mux.Handle(pattern, instrument(name, handler))
	}

	route("POST /api/v1/households", "households_create", auth.ObjHouseholds, auth.ActWrite, h.createHousehold)
	route("GET /api/v1/households", "households_list", auth.ObjHouseholds, auth.ActRead, h.listHouseholds)
	route("GET /api/v1/tariff/quote", "tariff_quote", auth.ObjTariff, auth.ActRead, h.quote)
	route("POST /api/v1/bills", "bills_create", auth.ObjBills, auth.ActWrite, h.createBill)
	route("GET /api/v1/bills", "bills_list", auth.ObjBills, auth.ActRead, h.listBills)
	route("GET /api/v1/bills/{id}", "bills_get", auth.ObjBills, auth.ActRead, h.getBill)
	route("GET /api/v1/bills/{id}/pdf", "bills_pdf", auth.ObjBills, auth.ActRead, h.billPDF)
	route("POST /api/v1/bills/{id}/pay", "bills_pay", auth.ObjBills, auth.ActWrite, h.payBill)
	route("DELETE /api/v1/bills/{id}", "bills_delete", auth.ObjBills, auth.ActWrite, h.deleteBill)

	if d.Auth != nil {
		return d.Auth.Middleware(mux)
	}
	return mux
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		metrics.RequestsTotal.WithLabelValues(route).Inc()

		next.ServeHTTP(rec, r)

		metrics.RequestDurationSeconds.WithLabelValues(route).Observe(time.Since(start).Seconds())
		if rec.status >= 400 {
			metrics.RequestErrorsTotal.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		}
	})
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps billing errors onto status codes: validation 400, not
// found 404, anything else 500 with the detail kept in the log.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var (
		ve *billing.ValidationError
		ne *billing.NotFoundError
	)
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: ve.Message, Field: ve.Field})
	case errors.As(err, &ne):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: ne.Error()})
	default:
		h.log.Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}
