// Package macro provides a macro indicator snapshot: latest readings,
// normalized history, and short text commentary.
package macro

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"io/fs"
	"strconv"

	"github.com/stratalpha/stratalpha/pkg/embedded"
)

// Observation is one month of indicator readings. Dates are ISO strings.
type Observation struct {
	Date                    string  `json:"date"`
	CPIYoY                  float64 `json:"cpi_yoy"`
	UnemploymentRate        float64 `json:"unemployment_rate"`
	FedFundsRate            float64 `json:"fed_funds_rate"`
	IndustrialProductionYoY float64 `json:"industrial_production_yoy"`
}

// SeriesProvider supplies indicator history for a date range.
type SeriesProvider interface {
	GetSeries(ctx context.Context, start, end string) ([]Observation, error)
}

// CSVProvider reads indicator history from a CSV file on a filesystem.
// The zero-value path defaults to the bundled sample dataset.
type CSVProvider struct {
	fsys fs.FS
	path string
}

// NewCSVProvider creates a provider over the given filesystem and path.
func NewCSVProvider(fsys fs.FS, path string) *CSVProvider {
	return &CSVProvider{fsys: fsys, path: path}
}

// NewBundledProvider creates a provider over the embedded sample dataset.
func NewBundledProvider() *CSVProvider {
	return &CSVProvider{fsys: embedded.Data, path: embedded.SampleMacroCSV}
}

// GetSeries parses the CSV and returns observations within [start, end].
// Empty bounds are open-ended.
func (p *CSVProvider) GetSeries(ctx context.Context, start, end string) ([]Observation, error) {
	f, err := p.fsys.Open(p.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open macro data %s: %w", p.path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read macro data header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	for _, required := range []string{"date", "cpi_yoy", "unemployment_rate", "fed_funds_rate", "industrial_production_yoy"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("macro data missing column %q", required)
		}
	}

	var series []Observation
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read macro data row: %w", err)
		}

		date := record[col["date"]]
		if start != "" && date < start {
			continue
		}
		if end != "" && date > end {
			continue
		}

		obs := Observation{Date: date}
		fields := []struct {
			name string
			dest *float64
		}{
			{"cpi_yoy", &obs.CPIYoY},
			{"unemployment_rate", &obs.UnemploymentRate},
			{"fed_funds_rate", &obs.FedFundsRate},
			{"industrial_production_yoy", &obs.IndustrialProductionYoY},
		}
		for _, f := range fields {
			v, err := strconv.ParseFloat(record[col[f.name]], 64)
			if err != nil {
				return nil, fmt.Errorf("invalid %s value %q on %s: %w", f.name, record[col[f.name]], date, err)
			}
			*f.dest = v
		}
		series = append(series, obs)
	}
	return series, nil
}
