package tariff

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTariff = `
minimum_charge = "25.00"

[[slabs]]
width = 50
rate = "1.50"

[[slabs]]
width = 50
rate = "2.50"

[[slabs]]
width = 50
rate = "3.50"

[[slabs]]
rate = "4.50"
`

func TestLoadScheduleFile_MatchesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tariff.toml")
	require.NoError(t, os.WriteFile(path, []byte(sampleTariff), 0o644))

	s, err := LoadScheduleFile(path)
	require.NoError(t, err)

	def := DefaultSchedule()
	require.Len(t, s.Slabs, len(def.Slabs))
	for i := range def.Slabs {
		assert.True(t, def.Slabs[i].Width.Equal(s.Slabs[i].Width), "slab %d width", i)
		assert.True(t, def.Slabs[i].Rate.Equal(s.Slabs[i].Rate), "slab %d rate", i)
	}
	assert.True(t, def.MinimumCharge.Equal(s.MinimumCharge))
}

func TestParseSchedule_Errors(t *testing.T) {
	tests := map[string]string{
		"bad toml":        `minimum_charge = `,
		"bad rate":        "[[slabs]]\nrate = \"abc\"\n",
		"negative width":  "[[slabs]]\nwidth = -5\nrate = \"1\"\n[[slabs]]\nrate = \"2\"\n",
		"no unbounded":    "[[slabs]]\nwidth = 5\nrate = \"1\"\n",
		"bad minimum":     "minimum_charge = \"x\"\n[[slabs]]\nrate = \"1\"\n",
		"no slabs at all": `minimum_charge = "1"`,
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseSchedule(data)
			assert.Error(t, err)
		})
	}
}

func TestLoadScheduleFile_Missing(t *testing.T) {
	_, err := LoadScheduleFile(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}
