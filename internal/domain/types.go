// Package domain holds the shared market data types and provider
// interfaces used across the analysis modules.
package domain

import "math"

// DateFormat is the ISO date layout used for all price series dates.
const DateFormat = "2006-01-02"

// PriceSeries is a time-ordered series of daily closing prices.
type PriceSeries struct {
	Ticker string    `json:"ticker"`
	Dates  []string  `json:"dates"`
	Prices []float64 `json:"prices"`
}

// Len returns the number of observations.
func (s PriceSeries) Len() int {
	return len(s.Prices)
}

// Empty reports whether the series has no observations.
func (s PriceSeries) Empty() bool {
	return len(s.Prices) == 0
}

// Last returns the most recent price, or NaN for an empty series.
func (s PriceSeries) Last() float64 {
	if len(s.Prices) == 0 {
		return math.NaN()
	}
	return s.Prices[len(s.Prices)-1]
}

// Fundamentals is a sparse bag of point-in-time company metrics keyed by
// provider field name (e.g. "totalRevenue", "beta"). A zero value is treated
// as missing: providers report absent metrics as zero often enough that a
// literal zero carries no information.
type Fundamentals map[string]float64

// Lookup returns the value for key, or fallback when the key is absent or
// zero.
func (f Fundamentals) Lookup(key string, fallback float64) float64 {
	if v, ok := f[key]; ok && v != 0 {
		return v
	}
	return fallback
}

// Get returns the value for key and whether it is present and non-zero.
func (f Fundamentals) Get(key string) (float64, bool) {
	v, ok := f[key]
	if !ok || v == 0 {
		return 0, false
	}
	return v, true
}
