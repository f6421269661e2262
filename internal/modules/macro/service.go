package macro

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/stratalpha/stratalpha/pkg/formulas"
)

// metricNames are the indicator keys in snapshot metrics and z-score maps.
var metricNames = []string{
	"cpi_yoy",
	"unemployment_rate",
	"fed_funds_rate",
	"industrial_production_yoy",
}

// Snapshot is the aggregate macro output: raw history, the latest reading of
// each indicator, and per-indicator z-score series for comparison plots.
type Snapshot struct {
	Observations []Observation        `json:"observations"`
	Metrics      map[string]float64   `json:"metrics"`
	ZScores      map[string][]float64 `json:"z_scores"`
	Commentary   string               `json:"commentary"`
}

// Service builds macro snapshots from a series provider.
type Service struct {
	provider SeriesProvider
	log      zerolog.Logger
}

// NewService creates a new macro service.
func NewService(provider SeriesProvider, log zerolog.Logger) *Service {
	return &Service{
		provider: provider,
		log:      log.With().Str("component", "macro").Logger(),
	}
}

// Snapshot fetches indicator history and derives the latest metrics,
// normalized series, and commentary.
func (s *Service) Snapshot(ctx context.Context, start, end string) (Snapshot, error) {
	series, err := s.provider.GetSeries(ctx, start, end)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to load macro series: %w", err)
	}
	if len(series) == 0 {
		return Snapshot{}, fmt.Errorf("no macro observations between %q and %q", start, end)
	}

	latest := series[len(series)-1]
	metrics := map[string]float64{
		"cpi_yoy":                   latest.CPIYoY,
		"unemployment_rate":         latest.UnemploymentRate,
		"fed_funds_rate":            latest.FedFundsRate,
		"industrial_production_yoy": latest.IndustrialProductionYoY,
	}

	zscores := make(map[string][]float64, len(metricNames))
	for _, name := range metricNames {
		zscores[name] = zscore(column(series, name))
	}

	s.log.Info().
		Int("observations", len(series)).
		Str("as_of", latest.Date).
		Msg("Macro snapshot built")

	return Snapshot{
		Observations: series,
		Metrics:      metrics,
		ZScores:      zscores,
		Commentary:   Commentary(metrics),
	}, nil
}

func column(series []Observation, name string) []float64 {
	out := make([]float64, len(series))
	for i, obs := range series {
		switch name {
		case "cpi_yoy":
			out[i] = obs.CPIYoY
		case "unemployment_rate":
			out[i] = obs.UnemploymentRate
		case "fed_funds_rate":
			out[i] = obs.FedFundsRate
		case "industrial_production_yoy":
			out[i] = obs.IndustrialProductionYoY
		}
	}
	return out
}

// zscore normalizes a series by its population standard deviation. Constant
// series are only demeaned so they stay finite.
func zscore(values []float64) []float64 {
	mean := formulas.Mean(values)
	std := formulas.PopStdDev(values)

	out := make([]float64, len(values))
	for i, v := range values {
		if std == 0 || math.IsNaN(std) {
			out[i] = v - mean
			continue
		}
		out[i] = (v - mean) / std
	}
	return out
}

// Commentary renders a short qualitative read of the latest metrics.
func Commentary(metrics map[string]float64) string {
	inflation := metrics["cpi_yoy"]
	unemployment := metrics["unemployment_rate"]
	fedFunds := metrics["fed_funds_rate"]
	ip := metrics["industrial_production_yoy"]

	inflationTone := "a moderating trend"
	if inflation > 3.0 {
		inflationTone = "persistent pressures"
	}
	laborTone := "a softening jobs market"
	if unemployment < 4 {
		laborTone = "tight labor conditions"
	}
	policyTone := "accommodative"
	if fedFunds > 4 {
		policyTone = "restrictive"
	}
	outputTone := "contraction risk"
	if ip > 0 {
		outputTone = "expansion in output"
	}

	return fmt.Sprintf(
		"Inflation prints at %.2f%%, suggesting %s. "+
			"Unemployment at %.2f%% signals %s. "+
			"Policy stance remains %s with the Fed Funds Rate at %.2f%%. "+
			"Industrial production YoY of %.2f%% indicates %s.",
		inflation, inflationTone,
		unemployment, laborTone,
		policyTone, fedFunds,
		ip, outputTone,
	)
}
