package tariff

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	pdf "github.com/ledongthuc/pdf"
	"github.com/shopspring/decimal"
)

// Slab lines in published tariff orders come in three shapes:
//
//	First 50 units        Rs. 1.50 per unit
//	51 - 100 units        Rs. 2.50/unit
//	Above 150 units       Rs. 4.50 per unit
//
// "Next N units" is accepted wherever "First N units" is.
var (
	rateTail    = `[^0-9]{0,40}?(\d+(?:\.\d+)?)\s*(?:/|per)\s*(?:unit|kwh)`
	firstRe     = regexp.MustCompile(`(?i)\b(first|next)\s+(\d+)\s*(?:units?|kwh)` + rateTail)
	rangeRe     = regexp.MustCompile(`(?i)\b(\d+)\s*(?:-|to)\s*(\d+)\s*(?:units?|kwh)` + rateTail)
	aboveRe     = regexp.MustCompile(`(?i)\b(?:above|over|beyond)\s+(\d+)\s*(?:units?|kwh)` + rateTail)
	minChargeRe = regexp.MustCompile(`(?i)minimum\s+charges?[^0-9]{0,20}?(\d+(?:\.\d+)?)`)
)

type slabMatch struct {
	pos   int
	kind  string
	lo    int64
	hi    int64
	width int64
	rate  string
}

// LoadSchedulePDF extracts the text of a tariff order PDF and parses its
// slab table with ParseScheduleText.
func LoadSchedulePDF(path string) (Schedule, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return Schedule{}, fmt.Errorf("tariff: open pdf: %w", err)
	}
	defer f.Close()

	rc, err := r.GetPlainText()
	if err != nil {
		return Schedule{}, fmt.Errorf("tariff: extract pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, rc); err != nil {
		return Schedule{}, fmt.Errorf("tariff: read pdf text: %w", err)
	}
	return ParseScheduleText(buf.String())
}

// ParseScheduleText picks slab lines and the minimum charge out of free
// text. Slabs must be contiguous and end with an "above" line.
func ParseScheduleText(text string) (Schedule, error) {
	var found []slabMatch
	for _, m := range firstRe.FindAllStringSubmatchIndex(text, -1) {
		found = append(found, slabMatch{
			pos:   m[0],
			kind:  strings.ToLower(text[m[2]:m[3]]),
			width: atoi(text[m[4]:m[5]]),
			rate:  text[m[6]:m[7]],
		})
	}
	for _, m := range rangeRe.FindAllStringSubmatchIndex(text, -1) {
		found = append(found, slabMatch{
			pos:  m[0],
			kind: "range",
			lo:   atoi(text[m[2]:m[3]]),
			hi:   atoi(text[m[4]:m[5]]),
			rate: text[m[6]:m[7]],
		})
	}
	for _, m := range aboveRe.FindAllStringSubmatchIndex(text, -1) {
		found = append(found, slabMatch{
			pos:  m[0],
			kind: "above",
			lo:   atoi(text[m[2]:m[3]]),
			rate: text[m[4]:m[5]],
		})
	}
	if len(found) == 0 {
		return Schedule{}, fmt.Errorf("tariff: no slab lines found")
	}
	sort.Slice(found, func(i, j int) bool { return found[i].pos < found[j].pos })

	var (
		s     Schedule
		upper int64
	)
	for i, m := range found {
		rate, err := decimal.NewFromString(m.rate)
		if err != nil {
			return Schedule{}, fmt.Errorf("tariff: slab %d rate %q: %w", i+1, m.rate, err)
		}
		switch m.kind {
		case "first", "next":
			if m.kind == "first" && upper != 0 {
				return Schedule{}, fmt.Errorf("tariff: slab %d says first but follows %d units", i+1, upper)
			}
			if m.width <= 0 {
				return Schedule{}, fmt.Errorf("tariff: slab %d has no width", i+1)
			}
			s.Slabs = append(s.Slabs, Slab{Width: decimal.NewFromInt(m.width), Rate: rate})
			upper += m.width
		case "range":
			// Orders write both "0-50, 50-100" and "1-50, 51-100".
			if m.lo != upper && m.lo != upper+1 {
				return Schedule{}, fmt.Errorf("tariff: slab %d starts at %d, expected %d", i+1, m.lo, upper+1)
			}
			if m.hi <= upper {
				return Schedule{}, fmt.Errorf("tariff: slab %d ends at %d, not above %d", i+1, m.hi, upper)
			}
			s.Slabs = append(s.Slabs, Slab{Width: decimal.NewFromInt(m.hi - upper), Rate: rate})
			upper = m.hi
		case "above":
			if m.lo != upper {
				return Schedule{}, fmt.Errorf("tariff: open slab starts above %d, expected %d", m.lo, upper)
			}
			if i != len(found)-1 {
				return Schedule{}, fmt.Errorf("tariff: slab lines follow the open slab above %d", m.lo)
			}
			s.Slabs = append(s.Slabs, Slab{Rate: rate})
		}
	}

	if m := minChargeRe.FindStringSubmatch(text); m != nil {
		v, err := decimal.NewFromString(m[1])
		if err != nil {
			return Schedule{}, fmt.Errorf("tariff: minimum charge %q: %w", m[1], err)
		}
		s.MinimumCharge = v
	}
	if err := s.Validate(); err != nil {
		return Schedule{}, err
	}
	return s, nil
}

func atoi(s string) int64 {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	return d.IntPart()
}

// EncodeSchedule writes s in the TOML layout LoadScheduleFile reads.
func EncodeSchedule(w io.Writer, s Schedule) error {
	if err := s.Validate(); err != nil {
		return err
	}
	f := scheduleFile{MinimumCharge: s.MinimumCharge.StringFixed(2)}
	for _, sl := range s.Slabs {
		f.Slabs = append(f.Slabs, slabEntry{Width: sl.Width.IntPart(), Rate: sl.Rate.StringFixed(2)})
	}
	return toml.NewEncoder(w).Encode(f)
}

// WriteScheduleFile encodes s to path through a temp file and rename, so a
// running service never reads a half-written table.
func WriteScheduleFile(path string, s Schedule) error {
	var buf bytes.Buffer
	if err := EncodeSchedule(&buf, s); err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tariff-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, &buf); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
