package clientdata

import "time"

// Cache TTLs per table. Price history and fundamentals refresh daily;
// macro series move monthly and can live longer.
const (
	TTLPriceHistory = 24 * time.Hour
	TTLFundamentals = 24 * time.Hour
	TTLMacroSeries  = 7 * 24 * time.Hour
)
