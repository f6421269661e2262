// Package yahoo provides a price history and fundamentals client backed by
// the Yahoo Finance public endpoints, with persistent response caching.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/stratalpha/stratalpha/internal/clientdata"
	"github.com/stratalpha/stratalpha/internal/domain"
)

// Client fetches adjusted close prices and company fundamentals.
// Implements domain.PriceProvider and domain.FundamentalsProvider.
type Client struct {
	baseURL   string
	client    *http.Client
	log       zerolog.Logger
	cacheRepo *clientdata.Repository
}

// NewClient creates a new Yahoo Finance client.
// cacheRepo is optional - if nil, caching is disabled.
func NewClient(cacheRepo *clientdata.Repository, log zerolog.Logger) *Client {
	return &Client{
		baseURL:   "https://query1.finance.yahoo.com",
		client:    &http.Client{Timeout: 15 * time.Second},
		log:       log.With().Str("client", "yahoo").Logger(),
		cacheRepo: cacheRepo,
	}
}

// cachedPrices is the structure stored in the price cache.
type cachedPrices struct {
	Dates  []string  `msgpack:"dates"`
	Prices []float64 `msgpack:"prices"`
}

// chartResponse mirrors the subset of the v8 chart payload we consume.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Adjclose []struct {
					Adjclose []*float64 `json:"adjclose"`
				} `json:"adjclose"`
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// GetPrices fetches daily adjusted close prices for ticker over [start, end].
// Returns *domain.DataUnavailableError when the API has no data, so callers
// can substitute synthetic series without catching broad errors.
func (c *Client) GetPrices(ctx context.Context, ticker, start, end string) (domain.PriceSeries, error) {
	cacheKey := fmt.Sprintf("%s:%s:%s", ticker, start, end)

	if c.cacheRepo != nil {
		var cached cachedPrices
		ok, err := c.cacheRepo.Load("price_history", cacheKey, &cached)
		if err == nil && ok {
			c.log.Debug().Str("ticker", ticker).Msg("Price cache hit")
			return domain.PriceSeries{Ticker: ticker, Dates: cached.Dates, Prices: cached.Prices}, nil
		}
	}

	startTime, err := time.Parse(domain.DateFormat, start)
	if err != nil {
		return domain.PriceSeries{}, fmt.Errorf("invalid start date %q: %w", start, err)
	}
	endTime, err := time.Parse(domain.DateFormat, end)
	if err != nil {
		return domain.PriceSeries{}, fmt.Errorf("invalid end date %q: %w", end, err)
	}

	url := fmt.Sprintf("%s/v8/finance/chart/%s?period1=%d&period2=%d&interval=1d&events=history",
		c.baseURL, ticker, startTime.Unix(), endTime.AddDate(0, 0, 1).Unix())

	var payload chartResponse
	if err := c.getJSON(ctx, url, &payload); err != nil {
		c.log.Warn().Err(err).Str("ticker", ticker).Msg("Price download failed")
		return domain.PriceSeries{}, &domain.DataUnavailableError{Ticker: ticker, Source: "yahoo/chart"}
	}

	if payload.Chart.Error != nil || len(payload.Chart.Result) == 0 {
		return domain.PriceSeries{}, &domain.DataUnavailableError{Ticker: ticker, Source: "yahoo/chart"}
	}

	result := payload.Chart.Result[0]
	closes := c.selectCloses(result.Indicators.Adjclose, result.Indicators.Quote)
	if len(result.Timestamp) == 0 || len(closes) == 0 {
		return domain.PriceSeries{}, &domain.DataUnavailableError{Ticker: ticker, Source: "yahoo/chart"}
	}

	series := domain.PriceSeries{Ticker: ticker}
	for i, ts := range result.Timestamp {
		if i >= len(closes) || closes[i] == nil || math.IsNaN(*closes[i]) {
			continue
		}
		series.Dates = append(series.Dates, time.Unix(ts, 0).UTC().Format(domain.DateFormat))
		series.Prices = append(series.Prices, *closes[i])
	}

	if series.Empty() {
		return domain.PriceSeries{}, &domain.DataUnavailableError{Ticker: ticker, Source: "yahoo/chart"}
	}

	if c.cacheRepo != nil {
		cached := cachedPrices{Dates: series.Dates, Prices: series.Prices}
		if err := c.cacheRepo.Store("price_history", cacheKey, cached, clientdata.TTLPriceHistory); err != nil {
			c.log.Warn().Err(err).Str("ticker", ticker).Msg("Failed to cache price history")
		}
	}

	c.log.Info().
		Str("ticker", ticker).
		Int("observations", series.Len()).
		Msg("Fetched price history")

	return series, nil
}

// selectCloses prefers adjusted closes, falling back to raw closes.
func (c *Client) selectCloses(adjclose []struct {
	Adjclose []*float64 `json:"adjclose"`
}, quote []struct {
	Close []*float64 `json:"close"`
}) []*float64 {
	if len(adjclose) > 0 && len(adjclose[0].Adjclose) > 0 {
		return adjclose[0].Adjclose
	}
	if len(quote) > 0 && len(quote[0].Close) > 0 {
		return quote[0].Close
	}
	return nil
}

// rawValue is Yahoo's {"raw": 1.23, "fmt": "1.23"} number wrapper.
type rawValue struct {
	Raw *float64 `json:"raw"`
}

// quoteSummaryResponse mirrors the subset of the v10 quoteSummary payload we consume.
type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			FinancialData *struct {
				TotalRevenue  rawValue `json:"totalRevenue"`
				RevenueGrowth rawValue `json:"revenueGrowth"`
				EbitdaMargins rawValue `json:"ebitdaMargins"`
				TotalDebt     rawValue `json:"totalDebt"`
				TotalCash     rawValue `json:"totalCash"`
				CurrentPrice  rawValue `json:"currentPrice"`
				Ebitda        rawValue `json:"ebitda"`
			} `json:"financialData"`
			DefaultKeyStatistics *struct {
				Beta              rawValue `json:"beta"`
				SharesOutstanding rawValue `json:"sharesOutstanding"`
				TrailingEps       rawValue `json:"trailingEps"`
			} `json:"defaultKeyStatistics"`
			SummaryDetail *struct {
				MarketCap                rawValue `json:"marketCap"`
				FiveYearAvgDividendYield rawValue `json:"fiveYearAvgDividendYield"`
				Yield                    rawValue `json:"yield"`
			} `json:"summaryDetail"`
		} `json:"result"`
		Error *struct {
			Code string `json:"code"`
		} `json:"error"`
	} `json:"quoteSummary"`
}

// GetFundamentals fetches point-in-time fundamentals for ticker. All keys in
// the returned map are optional; absent metrics are simply not set.
func (c *Client) GetFundamentals(ctx context.Context, ticker string) (domain.Fundamentals, error) {
	if c.cacheRepo != nil {
		var cached map[string]float64
		ok, err := c.cacheRepo.Load("fundamentals", ticker, &cached)
		if err == nil && ok {
			c.log.Debug().Str("ticker", ticker).Msg("Fundamentals cache hit")
			return domain.Fundamentals(cached), nil
		}
	}

	url := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?modules=financialData,defaultKeyStatistics,summaryDetail",
		c.baseURL, ticker)

	var payload quoteSummaryResponse
	if err := c.getJSON(ctx, url, &payload); err != nil {
		c.log.Warn().Err(err).Str("ticker", ticker).Msg("Fundamentals download failed")
		return nil, &domain.DataUnavailableError{Ticker: ticker, Source: "yahoo/quoteSummary"}
	}

	if payload.QuoteSummary.Error != nil || len(payload.QuoteSummary.Result) == 0 {
		return nil, &domain.DataUnavailableError{Ticker: ticker, Source: "yahoo/quoteSummary"}
	}

	result := payload.QuoteSummary.Result[0]
	fund := domain.Fundamentals{}

	if fd := result.FinancialData; fd != nil {
		setIfPresent(fund, "totalRevenue", fd.TotalRevenue)
		setIfPresent(fund, "revenueGrowth", fd.RevenueGrowth)
		setIfPresent(fund, "ebitdaMargins", fd.EbitdaMargins)
		setIfPresent(fund, "totalDebt", fd.TotalDebt)
		setIfPresent(fund, "totalCash", fd.TotalCash)
		setIfPresent(fund, "currentPrice", fd.CurrentPrice)
		setIfPresent(fund, "ebitda", fd.Ebitda)
	}
	if ks := result.DefaultKeyStatistics; ks != nil {
		setIfPresent(fund, "beta", ks.Beta)
		setIfPresent(fund, "sharesOutstanding", ks.SharesOutstanding)
		setIfPresent(fund, "trailingEps", ks.TrailingEps)
	}
	if sd := result.SummaryDetail; sd != nil {
		setIfPresent(fund, "marketCap", sd.MarketCap)
		setIfPresent(fund, "fiveYearAvgDividendYield", sd.FiveYearAvgDividendYield)
		setIfPresent(fund, "yield", sd.Yield)
	}

	if len(fund) == 0 {
		return nil, &domain.DataUnavailableError{Ticker: ticker, Source: "yahoo/quoteSummary"}
	}

	if c.cacheRepo != nil {
		if err := c.cacheRepo.Store("fundamentals", ticker, map[string]float64(fund), clientdata.TTLFundamentals); err != nil {
			c.log.Warn().Err(err).Str("ticker", ticker).Msg("Failed to cache fundamentals")
		}
	}

	c.log.Info().
		Str("ticker", ticker).
		Int("metrics", len(fund)).
		Msg("Fetched fundamentals")

	return fund, nil
}

func setIfPresent(fund domain.Fundamentals, key string, v rawValue) {
	if v.Raw != nil && !math.IsNaN(*v.Raw) {
		fund[key] = *v.Raw
	}
}

// getJSON performs a GET request and decodes the JSON response.
func (c *Client) getJSON(ctx context.Context, url string, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", "stratalpha/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
