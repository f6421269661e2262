package report

import (
	"github.com/stratalpha/stratalpha/internal/domain"
	"github.com/stratalpha/stratalpha/pkg/formulas"
)

// NewTechnicalSnapshot derives trend and momentum indicators from the
// target's price series.
func NewTechnicalSnapshot(series domain.PriceSeries) TechnicalSnapshot {
	return TechnicalSnapshot{
		LastPrice: series.Last(),
		SMA20:     formulas.CalculateSMA(series.Prices, 20),
		EMA12:     formulas.CalculateEMA(series.Prices, 12),
		RSI14:     formulas.CalculateRSI(series.Prices, 14),
	}
}
