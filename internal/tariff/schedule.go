package tariff

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Slab is one band of the tariff table. A zero Width marks the unbounded
// final slab.
type Slab struct {
	Width decimal.Decimal `json:"width"`
	Rate  decimal.Decimal `json:"rate"`
}

// Unbounded reports whether the slab has no upper limit.
func (s Slab) Unbounded() bool { return s.Width.IsZero() }

// Schedule is the ordered tariff table plus the flat charge billed when
// nothing was consumed.
type Schedule struct {
	Slabs         []Slab          `json:"slabs"`
	MinimumCharge decimal.Decimal `json:"minimum_charge"`
}

// DefaultSchedule returns the standard residential table:
// 1-50 @ 1.50, 51-100 @ 2.50, 101-150 @ 3.50, 151+ @ 4.50, minimum 25.00.
func DefaultSchedule() Schedule {
	return Schedule{
		Slabs: []Slab{
			{Width: decimal.NewFromInt(50), Rate: decimal.RequireFromString("1.5")},
			{Width: decimal.NewFromInt(50), Rate: decimal.RequireFromString("2.5")},
			{Width: decimal.NewFromInt(50), Rate: decimal.RequireFromString("3.5")},
			{Rate: decimal.RequireFromString("4.5")},
		},
		MinimumCharge: decimal.NewFromInt(25),
	}
}

// Validate checks that the schedule can be walked: every bounded slab has a
// positive whole-unit width, only the last slab is unbounded, and no rate is
// negative.
func (s Schedule) Validate() error {
	if len(s.Slabs) == 0 {
		return errors.New("tariff: schedule has no slabs")
	}
	if s.MinimumCharge.IsNegative() {
		return fmt.Errorf("tariff: minimum charge %s is negative", s.MinimumCharge)
	}
	last := len(s.Slabs) - 1
	for i, sl := range s.Slabs {
		if sl.Rate.IsNegative() {
			return fmt.Errorf("tariff: slab %d has negative rate %s", i+1, sl.Rate)
		}
		if i == last {
			if !sl.Unbounded() {
				return fmt.Errorf("tariff: last slab must be unbounded, got width %s", sl.Width)
			}
			continue
		}
		if sl.Unbounded() {
			return fmt.Errorf("tariff: slab %d is unbounded but is not the last slab", i+1)
		}
		if sl.Width.IsNegative() || !sl.Width.IsInteger() {
			return fmt.Errorf("tariff: slab %d width %s must be a positive whole number", i+1, sl.Width)
		}
	}
	return nil
}

func (s Schedule) clone() Schedule {
	out := Schedule{
		Slabs:         make([]Slab, len(s.Slabs)),
		MinimumCharge: s.MinimumCharge,
	}
	copy(out.Slabs, s.Slabs)
	return out
}
