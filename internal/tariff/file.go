package tariff

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/shopspring/decimal"
)

// scheduleFile is the on-disk TOML layout. Money is written as strings so
// that no value passes through a float on the way in.
//
//	minimum_charge = "25.00"
//
//	[[slabs]]
//	width = 50
//	rate = "1.50"
//
//	[[slabs]]        # no width: unbounded
//	rate = "4.50"
type scheduleFile struct {
	MinimumCharge string      `toml:"minimum_charge"`
	Slabs         []slabEntry `toml:"slabs"`
}

type slabEntry struct {
	Width int64  `toml:"width"`
	Rate  string `toml:"rate"`
}

// LoadScheduleFile reads a tariff table from a TOML file and validates it.
func LoadScheduleFile(path string) (Schedule, error) {
	var f scheduleFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return Schedule{}, fmt.Errorf("tariff: read %s: %w", path, err)
	}
	return f.schedule()
}

// ParseSchedule decodes a tariff table from TOML text.
func ParseSchedule(data string) (Schedule, error) {
	var f scheduleFile
	if _, err := toml.Decode(data, &f); err != nil {
		return Schedule{}, fmt.Errorf("tariff: decode: %w", err)
	}
	return f.schedule()
}

func (f scheduleFile) schedule() (Schedule, error) {
	var s Schedule
	if f.MinimumCharge != "" {
		minCharge, err := decimal.NewFromString(f.MinimumCharge)
		if err != nil {
			return Schedule{}, fmt.Errorf("tariff: minimum_charge: %w", err)
		}
		s.MinimumCharge = minCharge
	}
	for i, e := range f.Slabs {
		rate, err := decimal.NewFromString(e.Rate)
		if err != nil {
			return Schedule{}, fmt.Errorf("tariff: slab %d rate: %w", i+1, err)
		}
		if e.Width < 0 {
			return Schedule{}, fmt.Errorf("tariff: slab %d width %d is negative", i+1, e.Width)
		}
		s.Slabs = append(s.Slabs, Slab{Width: decimal.NewFromInt(e.Width), Rate: rate})
	}
	if err := s.Validate(); err != nil {
		return Schedule{}, err
	}
	return s, nil
}
