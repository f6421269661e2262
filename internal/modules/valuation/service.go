package valuation

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/stratalpha/stratalpha/internal/domain"
	"github.com/stratalpha/stratalpha/internal/marketdata"
)

// Request describes a valuation run.
type Request struct {
	Ticker    string             `json:"ticker"`
	Start     string             `json:"start"`
	End       string             `json:"end"`
	Peers     []string           `json:"peers,omitempty"`
	Overrides map[string]float64 `json:"overrides,omitempty"`
	Years     int                `json:"years,omitempty"`
}

// Report is the aggregate output of a valuation run.
type Report struct {
	Ticker                   string              `json:"ticker"`
	Prices                   domain.PriceSeries  `json:"prices"`
	DCF                      DCFResult           `json:"dcf"`
	Comps                    CompsTable          `json:"comps"`
	Percentiles              map[string]*float64 `json:"percentiles"`
	UsedPriceFallback        bool                `json:"used_price_fallback"`
	UsedFundamentalsFallback bool                `json:"used_fundamentals_fallback"`
}

// Service runs the valuation workflow over the market data layer.
type Service struct {
	data *marketdata.Service
	log  zerolog.Logger
}

// NewService creates a new valuation service.
func NewService(data *marketdata.Service, log zerolog.Logger) *Service {
	return &Service{
		data: data,
		log:  log.With().Str("component", "valuation").Logger(),
	}
}

// Run executes the full valuation workflow: price history, baseline DCF
// inputs (with overrides applied), the DCF itself, and the peer comps table.
func (s *Service) Run(ctx context.Context, req Request) (Report, error) {
	years := req.Years
	if years == 0 {
		years = DefaultProjectionYears
	}

	prices, priceFallback, err := s.data.ValuationPrices(ctx, req.Ticker, req.Start, req.End)
	if err != nil {
		return Report{}, err
	}

	fund, fundFallback, err := s.data.Fundamentals(ctx, req.Ticker)
	if err != nil {
		return Report{}, err
	}

	inputs := BaselineInputs(fund, prices.Last())
	if len(req.Overrides) > 0 {
		inputs, err = inputs.Override(req.Overrides)
		if err != nil {
			return Report{}, fmt.Errorf("invalid overrides: %w", err)
		}
	}

	dcf, err := RunDCF(inputs, years)
	if err != nil {
		return Report{}, err
	}

	comps, percentiles, err := s.Comps(ctx, req.Ticker, req.Peers)
	if err != nil {
		return Report{}, err
	}

	s.log.Info().
		Str("ticker", req.Ticker).
		Float64("per_share", dcf.EquityValuePerShare).
		Bool("price_fallback", priceFallback).
		Bool("fundamentals_fallback", fundFallback).
		Msg("Valuation run complete")

	return Report{
		Ticker:                   req.Ticker,
		Prices:                   prices,
		DCF:                      dcf,
		Comps:                    comps,
		Percentiles:              percentiles,
		UsedPriceFallback:        priceFallback,
		UsedFundamentalsFallback: fundFallback,
	}, nil
}

// Comps builds the multiples table and target percentiles. Peers whose
// fundamentals are unavailable keep their row with NaN multiples.
func (s *Service) Comps(ctx context.Context, targetTicker string, peerTickers []string) (CompsTable, map[string]*float64, error) {
	seen := make(map[string]bool)
	fundamentals := make(map[string]domain.Fundamentals)
	for _, t := range append([]string{targetTicker}, peerTickers...) {
		if seen[t] {
			continue
		}
		seen[t] = true

		fund, usedFallback, err := s.data.Fundamentals(ctx, t)
		if err != nil {
			return CompsTable{}, nil, err
		}
		if usedFallback {
			s.log.Warn().Str("ticker", t).Msg("No fundamentals for comps row")
			continue
		}
		fundamentals[t] = fund
	}

	table := BuildCompsTable(targetTicker, peerTickers, fundamentals)
	return table, PeerPercentiles(table, targetTicker), nil
}
