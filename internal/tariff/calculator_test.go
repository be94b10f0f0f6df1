package tariff

import (
	"math"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newDefault(t *testing.T) *Calculator {
	t.Helper()
	c, err := NewCalculator(DefaultSchedule())
	require.NoError(t, err)
	return c
}

func assertDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

func TestCalculate_ZeroUnitsAppliesMinimumCharge(t *testing.T) {
	res, err := newDefault(t).Calculate(decimal.Zero)
	require.NoError(t, err)

	assertDec(t, "25.00", res.Amount)
	assert.True(t, res.MinimumChargeApplied)
	assert.Empty(t, res.Breakdown)
}

func TestCalculate_KnownValues(t *testing.T) {
	c := newDefault(t)

	tests := []struct {
		units  string
		amount string
		labels []string
	}{
		{"50", "75.00", []string{"1-50"}},
		{"150", "375.00", []string{"1-50", "51-100", "101-150"}},
		{"200", "600.00", []string{"1-50", "51-100", "101-150", "151+"}},
		{"1", "1.50", []string{"1-50"}},
		{"75.5", "138.75", []string{"1-50", "51-100"}},
	}

	for _, tc := range tests {
		t.Run(tc.units, func(t *testing.T) {
			res, err := c.Calculate(dec(tc.units))
			require.NoError(t, err)
			assertDec(t, tc.amount, res.Amount)
			assert.False(t, res.MinimumChargeApplied)

			var labels []string
			for _, b := range res.Breakdown {
				labels = append(labels, b.Label)
			}
			assert.Equal(t, tc.labels, labels)
		})
	}
}

func TestCalculate_150BreakdownLines(t *testing.T) {
	res, err := newDefault(t).Calculate(dec("150"))
	require.NoError(t, err)
	require.Len(t, res.Breakdown, 3)

	want := []struct{ label, units, rate, amount string }{
		{"1-50", "50", "1.5", "75"},
		{"51-100", "50", "2.5", "125"},
		{"101-150", "50", "3.5", "175"},
	}
	for i, w := range want {
		got := res.Breakdown[i]
		assert.Equal(t, w.label, got.Label)
		assertDec(t, w.units, got.Units)
		assertDec(t, w.rate, got.Rate)
		assertDec(t, w.amount, got.Amount)
	}
}

func TestCalculate_200AddsUnboundedSlab(t *testing.T) {
	res, err := newDefault(t).Calculate(dec("200"))
	require.NoError(t, err)
	require.Len(t, res.Breakdown, 4)

	last := res.Breakdown[3]
	assert.Equal(t, "151+", last.Label)
	assertDec(t, "50", last.Units)
	assertDec(t, "4.5", last.Rate)
	assertDec(t, "225", last.Amount)
}

func TestCalculate_SmallNonZeroDoesNotApplyMinimum(t *testing.T) {
	res, err := newDefault(t).Calculate(dec("2"))
	require.NoError(t, err)

	assertDec(t, "3.00", res.Amount)
	assert.False(t, res.MinimumChargeApplied)
}

func TestCalculate_NegativeUnitsRejected(t *testing.T) {
	_, err := newDefault(t).Calculate(dec("-5"))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCalculateFloat_RejectsNonFinite(t *testing.T) {
	c := newDefault(t)
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1), -0.5} {
		_, err := c.CalculateFloat(v)
		assert.ErrorIs(t, err, ErrInvalidInput, "input %v", v)
	}

	res, err := c.CalculateFloat(100)
	require.NoError(t, err)
	assertDec(t, "200.00", res.Amount)
}

func TestCalculate_RoundsToCents(t *testing.T) {
	res, err := newDefault(t).Calculate(dec("10.333"))
	require.NoError(t, err)

	// 10.333 * 1.5 = 15.4995
	assertDec(t, "15.50", res.Amount)
	assertDec(t, "15.4995", res.Breakdown[0].Amount)
}

func TestCalculate_IsDeterministic(t *testing.T) {
	c := newDefault(t)
	a, err := c.Calculate(dec("187.25"))
	require.NoError(t, err)
	b, err := c.Calculate(dec("187.25"))
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

// referenceTotal is an independent walk of the same table used to check
// Calculate on random input.
func referenceTotal(s Schedule, units decimal.Decimal) decimal.Decimal {
	if units.IsZero() {
		return s.MinimumCharge
	}
	total := decimal.Zero
	remaining := units
	for _, sl := range s.Slabs {
		if remaining.LessThanOrEqual(decimal.Zero) {
			break
		}
		take := remaining
		if !sl.Unbounded() && sl.Width.LessThan(remaining) {
			take = sl.Width
		}
		total = total.Add(take.Mul(sl.Rate))
		remaining = remaining.Sub(take)
	}
	return total
}

func TestCalculate_MatchesReferenceWalk(t *testing.T) {
	c := newDefault(t)
	s := DefaultSchedule()
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 500; i++ {
		// up to 1000.00 units in hundredths
		units := decimal.New(rng.Int63n(100001), -2)
		res, err := c.Calculate(units)
		require.NoError(t, err)

		want := referenceTotal(s, units).Round(2)
		require.Truef(t, want.Equal(res.Amount), "units=%s want %s got %s", units, want, res.Amount)
		require.Equal(t, units.IsZero(), res.MinimumChargeApplied)
	}
}

func TestNewCalculator_CopiesSchedule(t *testing.T) {
	s := DefaultSchedule()
	c, err := NewCalculator(s)
	require.NoError(t, err)

	s.Slabs[0].Rate = dec("100")

	res, err := c.Calculate(dec("10"))
	require.NoError(t, err)
	assertDec(t, "15.00", res.Amount)
}

func TestNewCalculator_AlternateSchedule(t *testing.T) {
	c, err := NewCalculator(Schedule{
		Slabs: []Slab{
			{Width: dec("100"), Rate: dec("2")},
			{Rate: dec("3")},
		},
		MinimumCharge: dec("10"),
	})
	require.NoError(t, err)

	res, err := c.Calculate(dec("120"))
	require.NoError(t, err)
	assertDec(t, "260.00", res.Amount)
	assert.Equal(t, "101+", res.Breakdown[1].Label)
}

func TestSchedule_Validate(t *testing.T) {
	tests := []struct {
		name string
		s    Schedule
	}{
		{"empty", Schedule{}},
		{"bounded last", Schedule{Slabs: []Slab{{Width: dec("50"), Rate: dec("1")}}}},
		{"unbounded middle", Schedule{Slabs: []Slab{{Rate: dec("1")}, {Rate: dec("2")}}}},
		{"fractional width", Schedule{Slabs: []Slab{{Width: dec("2.5"), Rate: dec("1")}, {Rate: dec("2")}}}},
		{"negative rate", Schedule{Slabs: []Slab{{Rate: dec("-1")}}}},
		{"negative minimum", Schedule{Slabs: []Slab{{Rate: dec("1")}}, MinimumCharge: dec("-1")}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewCalculator(tc.s)
			assert.Error(t, err)
		})
	}
}
