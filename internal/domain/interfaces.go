package domain

import "context"

// PriceProvider returns adjusted close price history for a ticker over
// [start, end] (inclusive, YYYY-MM-DD). Empty or partial results are legal;
// a provider that has no data for the ticker returns a
// *DataUnavailableError so callers can substitute fallback data.
type PriceProvider interface {
	GetPrices(ctx context.Context, ticker, start, end string) (PriceSeries, error)
}

// FundamentalsProvider returns point-in-time company fundamentals for a
// ticker. All keys in the returned map are optional. A provider that has no
// data for the ticker returns a *DataUnavailableError.
type FundamentalsProvider interface {
	GetFundamentals(ctx context.Context, ticker string) (Fundamentals, error)
}
