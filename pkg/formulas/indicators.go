package formulas

import (
	"math"

	talib "github.com/markcheno/go-talib"
)

// CalculateSMA returns the current simple moving average over the given
// period, or nil when there is insufficient data.
func CalculateSMA(closes []float64, period int) *float64 {
	if len(closes) == 0 || period <= 0 {
		return nil
	}
	if len(closes) < period {
		sma := Mean(closes)
		return &sma
	}

	sma := talib.Sma(closes, period)
	if len(sma) == 0 || math.IsNaN(sma[len(sma)-1]) {
		return nil
	}
	result := sma[len(sma)-1]
	return &result
}

// CalculateRSI returns the current Relative Strength Index over the given
// period, or nil when there is insufficient data. go-talib needs at least
// period+1 observations to produce a value.
func CalculateRSI(closes []float64, period int) *float64 {
	if len(closes) <= period || period <= 0 {
		return nil
	}

	rsi := talib.Rsi(closes, period)
	if len(rsi) == 0 || math.IsNaN(rsi[len(rsi)-1]) {
		return nil
	}
	result := rsi[len(rsi)-1]
	return &result
}

// CalculateEMA returns the current exponential moving average over the given
// period, falling back to the simple mean when there is not enough data for
// a proper EMA.
func CalculateEMA(closes []float64, period int) *float64 {
	if len(closes) == 0 || period <= 0 {
		return nil
	}
	if len(closes) < period {
		sma := Mean(closes)
		return &sma
	}

	ema := talib.Ema(closes, period)
	if len(ema) == 0 || math.IsNaN(ema[len(ema)-1]) {
		return nil
	}
	result := ema[len(ema)-1]
	return &result
}
