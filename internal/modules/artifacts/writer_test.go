package artifacts

import (
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratalpha/stratalpha/internal/modules/valuation"
)

func TestWriteSensitivityCSV(t *testing.T) {
	w := NewWriter(t.TempDir(), zerolog.Nop())

	grid := valuation.SensitivityGrid{
		RowLabels: []string{"WACC 6.00%", "WACC 8.00%"},
		ColLabels: []string{"g 2.00%", "g 3.00%"},
		Values: [][]float64{
			{10.5, math.NaN()},
			{8.25, 9.75},
		},
	}

	path, err := w.WriteSensitivityCSV("dcf_sensitivity.csv", grid)
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, []string{"", "g 2.00%", "g 3.00%"}, records[0])
	assert.Equal(t, []string{"WACC 6.00%", "10.5", ""}, records[1])
	assert.Equal(t, []string{"WACC 8.00%", "8.25", "9.75"}, records[2])
}

func TestWriteCompsCSV(t *testing.T) {
	w := NewWriter(t.TempDir(), zerolog.Nop())

	table := valuation.CompsTable{Rows: []valuation.CompsRow{
		{
			Ticker: "NVDA", Price: 100, MarketCap: 1e11, NetDebt: 2e9,
			EnterpriseValue: 1.02e11, PE: 25, EVEBITDA: 12.75, PS: 5,
		},
		{
			Ticker: "GONE", Price: math.NaN(), MarketCap: math.NaN(), NetDebt: 0,
			EnterpriseValue: math.NaN(), PE: math.NaN(), EVEBITDA: math.NaN(), PS: math.NaN(),
		},
	}}

	path, err := w.WriteCompsCSV("comps_table.csv", table)
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "ticker", records[0][0])
	assert.Equal(t, "NVDA", records[1][0])
	assert.Equal(t, "25.00", records[1][5])

	// Unavailable peer rows serialize as empty cells.
	assert.Equal(t, "GONE", records[2][0])
	assert.Equal(t, "", records[2][1])
	assert.Equal(t, "", records[2][5])
}

func TestWriteJSON(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, zerolog.Nop())

	path, err := w.WriteJSON("var_results.json", map[string]map[string]float64{
		"historical": {"var_95": 0.021, "var_99": 0.038},
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "var_results.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"var_95": 0.021`)
}
