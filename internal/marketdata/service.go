// Package marketdata wraps the raw data providers with fallback semantics:
// when live data is unavailable the analytics keep running on deterministic
// synthetic series, and every result is flagged accordingly.
package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/stratalpha/stratalpha/internal/domain"
)

// Service resolves price series and fundamentals for the analytics engines.
type Service struct {
	prices       domain.PriceProvider
	fundamentals domain.FundamentalsProvider
	log          zerolog.Logger
}

// NewService creates a market data service over the given providers.
func NewService(prices domain.PriceProvider, fundamentals domain.FundamentalsProvider, log zerolog.Logger) *Service {
	return &Service{
		prices:       prices,
		fundamentals: fundamentals,
		log:          log.With().Str("component", "marketdata").Logger(),
	}
}

// ValuationPrices returns a price series suitable for valuation context. The
// second return reports whether a synthetic fallback was substituted.
func (s *Service) ValuationPrices(ctx context.Context, ticker, start, end string) (domain.PriceSeries, bool, error) {
	series, err := s.prices.GetPrices(ctx, ticker, start, end)
	if err != nil {
		if !domain.IsDataUnavailable(err) {
			return domain.PriceSeries{}, false, fmt.Errorf("failed to fetch prices for %s: %w", ticker, err)
		}
		startT, endT, perr := parseRange(start, end)
		if perr != nil {
			return domain.PriceSeries{}, false, perr
		}
		s.log.Warn().Str("ticker", ticker).Msg("Price data unavailable, using synthetic valuation series")
		return SyntheticValuationSeries(ticker, startT, endT), true, nil
	}
	if series.Empty() {
		startT, endT, perr := parseRange(start, end)
		if perr != nil {
			return domain.PriceSeries{}, false, perr
		}
		return SyntheticValuationSeries(ticker, startT, endT), true, nil
	}
	return series, false, nil
}

// RiskPrices returns a price series suitable for return statistics. Series
// with fewer than 100 observations are replaced by a synthetic series long
// enough for stable estimates.
func (s *Service) RiskPrices(ctx context.Context, ticker, start, end string) (domain.PriceSeries, bool, error) {
	startT, endT, perr := parseRange(start, end)
	if perr != nil {
		return domain.PriceSeries{}, false, perr
	}

	series, err := s.prices.GetPrices(ctx, ticker, start, end)
	if err != nil {
		if !domain.IsDataUnavailable(err) {
			return domain.PriceSeries{}, false, fmt.Errorf("failed to fetch prices for %s: %w", ticker, err)
		}
		s.log.Warn().Str("ticker", ticker).Msg("Price data unavailable, using synthetic risk series")
		return SyntheticRiskSeries(ticker, startT, endT), true, nil
	}
	if series.Len() < minRiskObservations {
		s.log.Warn().
			Str("ticker", ticker).
			Int("observations", series.Len()).
			Msg("Price history too thin for risk estimation, using synthetic series")
		return SyntheticRiskSeries(ticker, startT, endT), true, nil
	}
	return series, false, nil
}

// Fundamentals returns company fundamentals, falling back to an empty map so
// callers can apply their documented defaults. The second return reports
// whether the fallback was used.
func (s *Service) Fundamentals(ctx context.Context, ticker string) (domain.Fundamentals, bool, error) {
	fund, err := s.fundamentals.GetFundamentals(ctx, ticker)
	if err != nil {
		if !domain.IsDataUnavailable(err) {
			return nil, false, fmt.Errorf("failed to fetch fundamentals for %s: %w", ticker, err)
		}
		s.log.Warn().Str("ticker", ticker).Msg("Fundamentals unavailable, using baseline defaults")
		return domain.Fundamentals{}, true, nil
	}
	return fund, false, nil
}

func parseRange(start, end string) (time.Time, time.Time, error) {
	startT, err := time.Parse(domain.DateFormat, start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start date %q: %w", start, err)
	}
	endT, err := time.Parse(domain.DateFormat, end)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end date %q: %w", end, err)
	}
	return startT, endT, nil
}

// DefaultRange returns the conventional one-year lookback window ending today.
func DefaultRange(now time.Time) (string, string) {
	end := now.UTC()
	start := end.AddDate(-1, 0, 0)
	return start.Format(domain.DateFormat), end.Format(domain.DateFormat)
}
