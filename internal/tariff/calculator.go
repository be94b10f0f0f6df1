package tariff

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// ErrInvalidInput is returned for negative or non-finite consumption.
var ErrInvalidInput = errors.New("tariff: units must be a finite non-negative number")

// SlabCharge is one line of a bill's slab breakdown.
type SlabCharge struct {
	Label  string          `json:"slab"`
	Units  decimal.Decimal `json:"units"`
	Rate   decimal.Decimal `json:"rate"`
	Amount decimal.Decimal `json:"amount"`
}

// Result is the outcome of pricing a consumption figure.
type Result struct {
	Amount               decimal.Decimal `json:"amount"`
	MinimumChargeApplied bool            `json:"minimum_charge_applied"`
	Breakdown            []SlabCharge    `json:"breakdown"`
}

// Calculator prices consumption against a fixed schedule. It holds a private
// copy of the schedule and is safe for concurrent use.
type Calculator struct {
	schedule Schedule
}

// NewCalculator validates the schedule and returns a Calculator bound to a
// copy of it.
func NewCalculator(s Schedule) (*Calculator, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &Calculator{schedule: s.clone()}, nil
}

// Schedule returns a copy of the table the calculator was built with.
func (c *Calculator) Schedule() Schedule { return c.schedule.clone() }

// Calculate returns the charge for units consumed. Zero consumption is billed
// at the minimum charge; any other amount is the slab walk total, even when
// that total is below the minimum.
func (c *Calculator) Calculate(units decimal.Decimal) (Result, error) {
	if units.IsNegative() {
		return Result{}, ErrInvalidInput
	}
	if units.IsZero() {
		return Result{
			Amount:               c.schedule.MinimumCharge.Round(2),
			MinimumChargeApplied: true,
			Breakdown:            []SlabCharge{},
		}, nil
	}

	total := decimal.Zero
	remaining := units
	offset := decimal.Zero
	breakdown := make([]SlabCharge, 0, len(c.schedule.Slabs))

	for _, sl := range c.schedule.Slabs {
		if !remaining.IsPositive() {
			break
		}

		slabUnits := remaining
		if !sl.Unbounded() {
			slabUnits = decimal.Min(remaining, sl.Width)
		}
		amount := slabUnits.Mul(sl.Rate)
		total = total.Add(amount)

		breakdown = append(breakdown, SlabCharge{
			Label:  slabLabel(offset, sl),
			Units:  slabUnits,
			Rate:   sl.Rate,
			Amount: amount,
		})

		remaining = remaining.Sub(slabUnits)
		if !sl.Unbounded() {
			offset = offset.Add(sl.Width)
		}
	}

	return Result{
		Amount:    total.Round(2),
		Breakdown: breakdown,
	}, nil
}

// CalculateFloat is Calculate for callers holding a float64. NaN and
// infinities are rejected.
func (c *Calculator) CalculateFloat(units float64) (Result, error) {
	if math.IsNaN(units) || math.IsInf(units, 0) || units < 0 {
		return Result{}, ErrInvalidInput
	}
	return c.Calculate(decimal.NewFromFloat(units))
}

func slabLabel(offset decimal.Decimal, sl Slab) string {
	start := offset.Add(decimal.NewFromInt(1))
	if sl.Unbounded() {
		return fmt.Sprintf("%s+", start)
	}
	return fmt.Sprintf("%s-%s", start, offset.Add(sl.Width))
}
