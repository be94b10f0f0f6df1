package tariff

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tariffOrder = `
LT-I DOMESTIC
Energy charges
  First 50 units        Rs. 1.50 per unit
  Next 50 units         Rs. 2.50 per unit
  101 - 150 units       Rs. 3.50/unit
  Above 150 units       Rs. 4.50 per unit
Minimum charge: Rs. 25.00 per month
`

func TestParseScheduleText(t *testing.T) {
	s, err := ParseScheduleText(tariffOrder)
	require.NoError(t, err)
	assert.Equal(t, normalize(DefaultSchedule()).Slabs, normalize(s).Slabs)
	assert.True(t, s.MinimumCharge.Equal(decimal.NewFromInt(25)))
}

func TestParseScheduleText_ZeroBasedRanges(t *testing.T) {
	s, err := ParseScheduleText("0-100 kWh 3 per kWh\n100 to 300 kWh 5 per kWh\nabove 300 kWh 7.25 per kWh")
	require.NoError(t, err)
	require.Len(t, s.Slabs, 3)
	assert.True(t, s.Slabs[0].Width.Equal(decimal.NewFromInt(100)))
	assert.True(t, s.Slabs[1].Width.Equal(decimal.NewFromInt(200)))
	assert.True(t, s.Slabs[2].Unbounded())
	assert.True(t, s.MinimumCharge.IsZero())
}

func TestParseScheduleText_Rejects(t *testing.T) {
	tests := map[string]string{
		"nothing":       "Fixed charge Rs. 40",
		"gap":           "First 50 units Rs 1 per unit\n80 - 100 units Rs 2 per unit\nAbove 100 units Rs 3 per unit",
		"no open slab":  "First 50 units Rs 1 per unit\nNext 50 units Rs 2 per unit",
		"wrong above":   "First 50 units Rs 1 per unit\nAbove 60 units Rs 2 per unit",
		"open not last": "Above 0 units Rs 2 per unit\nFirst 50 units Rs 1 per unit",
	}
	for name, text := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseScheduleText(text)
			assert.Error(t, err)
		})
	}
}

func TestWriteScheduleFile_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "tariff.toml")
	require.NoError(t, WriteScheduleFile(path, DefaultSchedule()))

	got, err := LoadScheduleFile(path)
	require.NoError(t, err)
	assert.Equal(t, normalize(DefaultSchedule()), normalize(got))
}

func TestEncodeSchedule_Invalid(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, EncodeSchedule(&buf, Schedule{}))
	assert.Zero(t, buf.Len())
}

func TestLoadSchedulePDF_MissingFile(t *testing.T) {
	_, err := LoadSchedulePDF(filepath.Join(t.TempDir(), "missing.pdf"))
	assert.ErrorContains(t, err, "open pdf")
}

// normalize rewrites decimals through strings so that equal values compare
// equal regardless of exponent.
func normalize(s Schedule) Schedule {
	out := Schedule{MinimumCharge: decimal.RequireFromString(s.MinimumCharge.String())}
	for _, sl := range s.Slabs {
		out.Slabs = append(out.Slabs, Slab{
			Width: decimal.RequireFromString(sl.Width.String()),
			Rate:  decimal.RequireFromString(sl.Rate.String()),
		})
	}
	return out
}
