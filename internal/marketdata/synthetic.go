package marketdata

import (
	"math"
	"time"

	"github.com/stratalpha/stratalpha/internal/domain"
)

// minRiskObservations is the observation count below which a fetched series
// is considered too thin for risk work and a synthetic series is used instead.
const minRiskObservations = 100

// syntheticDays is the length of a generated series when the requested range
// yields no usable business days.
const syntheticDays = 252

// BusinessDays returns every weekday in [start, end], inclusive.
func BusinessDays(start, end time.Time) []time.Time {
	var days []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			days = append(days, d)
		}
	}
	return days
}

// trailingBusinessDays returns n weekdays ending at end.
func trailingBusinessDays(end time.Time, n int) []time.Time {
	days := make([]time.Time, 0, n)
	for d := end; len(days) < n; d = d.AddDate(0, 0, -1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			days = append(days, d)
		}
	}
	// Collected newest-first, flip to chronological order.
	for i, j := 0, len(days)-1; i < j; i, j = i+1, j-1 {
		days[i], days[j] = days[j], days[i]
	}
	return days
}

// linspace returns n evenly spaced values from lo to hi inclusive.
func linspace(lo, hi float64, n int) []float64 {
	vals := make([]float64, n)
	if n == 1 {
		vals[0] = lo
		return vals
	}
	step := (hi - lo) / float64(n-1)
	for i := range vals {
		vals[i] = lo + float64(i)*step
	}
	return vals
}

// SyntheticValuationSeries builds a deterministic upward price ramp from 100
// to 150 over the business days of [start, end]. Used when live prices are
// unavailable so valuation output stays reproducible.
func SyntheticValuationSeries(ticker string, start, end time.Time) domain.PriceSeries {
	days := BusinessDays(start, end)
	if len(days) == 0 {
		days = trailingBusinessDays(end, syntheticDays)
	}
	return domain.PriceSeries{
		Ticker: ticker,
		Dates:  formatDates(days),
		Prices: linspace(100, 150, len(days)),
	}
}

// SyntheticRiskSeries builds a deterministic ramp from 100 to 120 with a mild
// seasonal wave, long enough for stable return statistics.
func SyntheticRiskSeries(ticker string, start, end time.Time) domain.PriceSeries {
	days := BusinessDays(start, end)
	if len(days) < syntheticDays {
		days = trailingBusinessDays(end, syntheticDays)
	}
	n := len(days)
	ramp := linspace(100, 120, n)
	phase := linspace(0, 3.14, n)
	prices := make([]float64, n)
	for i := range prices {
		prices[i] = ramp[i] + 2*math.Sin(phase[i])
	}
	return domain.PriceSeries{Ticker: ticker, Dates: formatDates(days), Prices: prices}
}

func formatDates(days []time.Time) []string {
	dates := make([]string, len(days))
	for i, d := range days {
		dates[i] = d.Format(domain.DateFormat)
	}
	return dates
}
