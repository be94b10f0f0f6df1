package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bher20/ebillmanager/internal/events"
	"github.com/bher20/ebillmanager/internal/metrics"
	"github.com/bher20/ebillmanager/internal/storage"
	"github.com/bher20/ebillmanager/internal/tariff"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Policy holds the billing constants that sit outside the tariff table.
type Policy struct {
	// GracePeriod is added to the creation time to get the due date.
	GracePeriod time.Duration
	// LateFine is what SuggestedFine returns for a household with an
	// overdue bill.
	LateFine decimal.Decimal
}

// DefaultPolicy returns a 15 day grace period and a 150.00 late fine.
func DefaultPolicy() Policy {
	return Policy{
		GracePeriod: 15 * 24 * time.Hour,
		LateFine:    decimal.NewFromInt(150),
	}
}

// Store is the persistence the engine needs.
type Store interface {
	HouseholdFinder
	FindUnpaidBills(ctx context.Context, householdID string) ([]storage.Bill, error)
	InsertBill(ctx context.Context, b *storage.Bill) (string, error)
	UpdateBillStatus(ctx context.Context, id string, from, to storage.BillStatus, paidAt *time.Time) (int64, error)
}

// CreateBillRequest carries raw caller input; Units and Fine are parsed as
// exact decimals. An empty Fine means no fine.
type CreateBillRequest struct {
	Household HouseholdRef
	Units     string
	Fine      string
	Note      string
}

// Engine creates bills and records payments.
type Engine struct {
	store  Store
	calc   *tariff.Calculator
	policy Policy
	locker Locker
	pub    events.Publisher
	log    *zap.Logger
	now    func() time.Time
}

type Option func(*Engine)

func WithLogger(l *zap.Logger) Option { return func(e *Engine) { e.log = l } }

func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

func WithLocker(l Locker) Option { return func(e *Engine) { e.locker = l } }

func WithPublisher(p events.Publisher) Option { return func(e *Engine) { e.pub = p } }

func NewEngine(store Store, calc *tariff.Calculator, policy Policy, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		calc:   calc,
		policy: policy,
		locker: NewLocalLocker(),
		pub:    events.Nop{},
		log:    zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Policy returns the engine's billing constants.
func (e *Engine) Policy() Policy { return e.policy }

// CreateBill prices the consumption, adds the household's unpaid dues and the
// fine, and writes exactly one new Unpaid bill. Dues aggregation and the
// insert run under the household lock so two bills for the same household
// cannot both miss each other.
func (e *Engine) CreateBill(ctx context.Context, req CreateBillRequest) (*storage.Bill, error) {
	bill, err := e.createBill(ctx, req)
	if err != nil {
		metrics.BillCreateFailuresTotal.WithLabelValues(errorKind(err)).Inc()
		e.log.Warn("create bill failed",
			zap.String("household", req.Household.String()),
			zap.Error(err),
		)
		return nil, err
	}

	metrics.BillsCreatedTotal.WithLabelValues(bill.ConnectionType).Inc()
	metrics.BillTotalAmount.Observe(bill.TotalAmount.InexactFloat64())
	e.log.Info("bill created",
		zap.String("bill_id", bill.ID),
		zap.String("household_id", bill.HouseholdID),
		zap.String("units", bill.Units.String()),
		zap.String("total", bill.TotalAmount.StringFixed(2)),
	)
	e.publish(ctx, events.Event{
		Type:          events.BillCreated,
		BillID:        bill.ID,
		HouseholdID:   bill.HouseholdID,
		ServiceNumber: bill.ServiceNumber,
		TotalAmount:   bill.TotalAmount,
		DueDate:       bill.DueDate,
		OccurredAt:    bill.CreatedAt,
	})
	return bill, nil
}

func (e *Engine) createBill(ctx context.Context, req CreateBillRequest) (*storage.Bill, error) {
	units, err := parseNonNegative(req.Units, false)
	if err != nil {
		return nil, &ValidationError{Field: "units", Message: "units must be a non-negative number"}
	}
	fine, err := parseNonNegative(req.Fine, true)
	if err != nil {
		return nil, &ValidationError{Field: "fine", Message: "fine must be a non-negative number"}
	}

	household, err := ResolveHousehold(ctx, e.store, req.Household)
	if err != nil {
		return nil, err
	}

	priced, err := e.calc.Calculate(units)
	if err != nil {
		return nil, &ValidationError{Field: "units", Message: "units must be a non-negative number"}
	}

	unlock, err := e.locker.LockHousehold(ctx, household.ID)
	if err != nil {
		return nil, &PersistenceError{Op: "lock household", Err: err}
	}
	defer unlock()

	unpaid, err := e.store.FindUnpaidBills(ctx, household.ID)
	if err != nil {
		return nil, &PersistenceError{Op: "find unpaid bills", Err: err}
	}
	previousDues := decimal.Zero
	for _, b := range unpaid {
		previousDues = previousDues.Add(b.TotalAmount)
	}

	total := priced.Amount.Add(fine).Add(previousDues).Round(2)
	if total.IsNegative() || previousDues.IsNegative() {
		return nil, fmt.Errorf("%w: total %s for household %s", ErrInvariant, total, household.ID)
	}

	created := e.now()
	bill := &storage.Bill{
		HouseholdID:          household.ID,
		HouseholdName:        household.Name,
		ServiceNumber:        serviceNumberOf(household),
		HouseNumber:          household.HouseNumber,
		Address:              household.Address,
		Phone:                household.Phone,
		ConnectionType:       connectionTypeOf(household),
		Units:                units,
		CurrentCharge:        priced.Amount,
		FineAmount:           fine,
		PreviousDues:         previousDues.Round(2),
		TotalAmount:          total,
		Breakdown:            priced.Breakdown,
		MinimumChargeApplied: priced.MinimumChargeApplied,
		CreatedAt:            created,
		DueDate:              created.Add(e.policy.GracePeriod),
		Status:               storage.StatusUnpaid,
		Note:                 strings.TrimSpace(req.Note),
	}

	id, err := e.store.InsertBill(ctx, bill)
	if err != nil {
		return nil, &PersistenceError{Op: "insert bill", Err: err}
	}
	bill.ID = id
	return bill, nil
}

// MarkPaid moves an Unpaid bill to Paid and stamps the payment time. It
// reports whether anything changed and never returns an error: unknown ids,
// already-paid bills and storage failures all yield false.
func (e *Engine) MarkPaid(ctx context.Context, billID string) bool {
	if billID == "" {
		return false
	}
	paidAt := e.now()
	n, err := e.store.UpdateBillStatus(ctx, billID, storage.StatusUnpaid, storage.StatusPaid, &paidAt)
	if err != nil {
		e.log.Error("mark bill paid failed", zap.String("bill_id", billID), zap.Error(err))
		return false
	}
	if n == 0 {
		return false
	}

	metrics.BillsPaidTotal.Inc()
	e.log.Info("bill marked paid", zap.String("bill_id", billID))
	e.publish(ctx, events.Event{Type: events.BillPaid, BillID: billID, OccurredAt: paidAt})
	return true
}

// SuggestedFine returns the policy late fine when the household has an
// Unpaid bill past its due date, and zero otherwise. The engine never adds
// it by itself; callers pass it as the request fine.
func (e *Engine) SuggestedFine(ctx context.Context, ref HouseholdRef) (decimal.Decimal, error) {
	household, err := ResolveHousehold(ctx, e.store, ref)
	if err != nil {
		return decimal.Zero, err
	}
	unpaid, err := e.store.FindUnpaidBills(ctx, household.ID)
	if err != nil {
		return decimal.Zero, &PersistenceError{Op: "find unpaid bills", Err: err}
	}
	now := e.now()
	for _, b := range unpaid {
		if b.DueDate.Before(now) {
			return e.policy.LateFine, nil
		}
	}
	return decimal.Zero, nil
}

func (e *Engine) publish(ctx context.Context, ev events.Event) {
	if err := e.pub.Publish(ctx, ev); err != nil {
		e.log.Warn("publish event failed",
			zap.String("type", string(ev.Type)),
			zap.String("bill_id", ev.BillID),
			zap.Error(err),
		)
	}
}

// parseNonNegative parses a decimal amount, rejecting negatives. An empty
// string is zero when allowEmpty is set.
func parseNonNegative(raw string, allowEmpty bool) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if allowEmpty {
			return decimal.Zero, nil
		}
		return decimal.Zero, errors.New("empty")
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() {
		return decimal.Zero, errors.New("negative")
	}
	return d, nil
}

func serviceNumberOf(h *storage.Household) string {
	if h.ServiceNumber != "" {
		return h.ServiceNumber
	}
	if h.HouseNumber != "" {
		return h.HouseNumber
	}
	return "N/A"
}

func connectionTypeOf(h *storage.Household) string {
	if h.ConnectionType == "" {
		return "Household"
	}
	return h.ConnectionType
}

func errorKind(err error) string {
	var (
		ve *ValidationError
		ne *NotFoundError
		pe *PersistenceError
	)
	switch {
	case errors.As(err, &ve):
		return "validation"
	case errors.As(err, &ne):
		return "not_found"
	case errors.As(err, &pe):
		return "persistence"
	case errors.Is(err, ErrInvariant):
		return "invariant"
	default:
		return "other"
	}
}
