package risk

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratalpha/stratalpha/internal/domain"
	"github.com/stratalpha/stratalpha/internal/marketdata"
)

type stubPrices struct {
	series map[string]domain.PriceSeries
}

func (s *stubPrices) GetPrices(ctx context.Context, ticker, start, end string) (domain.PriceSeries, error) {
	if ps, ok := s.series[ticker]; ok {
		return ps, nil
	}
	return domain.PriceSeries{}, &domain.DataUnavailableError{Ticker: ticker, Source: "stub"}
}

type noFundamentals struct{}

func (noFundamentals) GetFundamentals(ctx context.Context, ticker string) (domain.Fundamentals, error) {
	return nil, &domain.DataUnavailableError{Ticker: ticker, Source: "stub"}
}

func newAnalyzer(series map[string]domain.PriceSeries) *Analyzer {
	data := marketdata.NewService(&stubPrices{series: series}, noFundamentals{}, zerolog.Nop())
	return NewAnalyzer(data, zerolog.Nop())
}

func longSeries(ticker string, base float64) domain.PriceSeries {
	end := time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC)
	days := marketdata.BusinessDays(end.AddDate(-2, 0, 0), end)
	s := domain.PriceSeries{Ticker: ticker}
	for i, d := range days {
		s.Dates = append(s.Dates, d.Format(domain.DateFormat))
		s.Prices = append(s.Prices, base+float64(i%7)-3+float64(i)*0.01)
	}
	return s
}

func TestAnalyze(t *testing.T) {
	series := map[string]domain.PriceSeries{
		"NVDA": longSeries("NVDA", 400),
		"TSM":  longSeries("TSM", 100),
		"ASML": longSeries("ASML", 700),
	}
	analyzer := newAnalyzer(series)

	result, err := analyzer.Analyze(context.Background(), Request{
		Ticker:       "NVDA",
		Start:        "2022-06-28",
		End:          "2024-06-28",
		Peers:        []string{"TSM", "ASML"},
		ShockTickers: []string{"TSM", "ASML"},
		ShockPct:     -0.10,
	})
	require.NoError(t, err)

	assert.False(t, result.UsedFallback)
	assert.False(t, result.Thin)
	assert.Equal(t, []string{"NVDA", "TSM", "ASML"}, result.Tickers)

	// Weights: 0.6 target, 0.4 split across two peers, summing to one.
	assert.InDelta(t, 0.6, result.Weights["NVDA"], 1e-12)
	assert.InDelta(t, 0.2, result.Weights["TSM"], 1e-12)
	assert.InDelta(t, 0.2, result.Weights["ASML"], 1e-12)

	// Left-tail VaR is non-negative and monotone in confidence.
	hist := result.VaR["historical"]
	require.NotNil(t, hist)
	assert.GreaterOrEqual(t, hist["var_99"], hist["var_95"])

	varcov := result.VaR["variance_covariance"]
	require.NotNil(t, varcov)
	assert.Greater(t, varcov["var_99"], varcov["var_95"])

	// Expected shortfall reads as a loss magnitude and deepens with
	// confidence: the worst 1% tail averages worse than the worst 5%.
	assert.Greater(t, result.CVaR["cvar_95"], 0.0)
	assert.GreaterOrEqual(t, result.CVaR["cvar_99"], result.CVaR["cvar_95"])

	// Both shocked peers hold 0.2 weight: loss = 0.4 * -0.10.
	assert.InDelta(t, -0.04, result.Stress.PortfolioLoss, 1e-12)
	assert.InDelta(t, -0.10, result.Stress.TickerImpacts["TSM"], 1e-12)
}

func TestAnalyzeFallbackBasket(t *testing.T) {
	analyzer := newAnalyzer(nil)

	result, err := analyzer.Analyze(context.Background(), Request{
		Ticker:       "NVDA",
		Start:        "2023-06-28",
		End:          "2024-06-28",
		Peers:        []string{"TSM"},
		ShockTickers: []string{"TSM"},
		ShockPct:     -0.10,
	})
	require.NoError(t, err)

	assert.True(t, result.UsedFallback)
	assert.GreaterOrEqual(t, result.Observations, 251)

	for _, method := range []string{"historical", "variance_covariance"} {
		for _, level := range []string{"var_95", "var_99"} {
			v := result.VaR[method][level]
			assert.False(t, math.IsNaN(v))
		}
	}
}

func TestAnalyzeDeduplicatesTarget(t *testing.T) {
	analyzer := newAnalyzer(nil)

	result, err := analyzer.Analyze(context.Background(), Request{
		Ticker: "NVDA",
		Start:  "2023-06-28",
		End:    "2024-06-28",
		Peers:  []string{"NVDA", "TSM"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"NVDA", "TSM"}, result.Tickers)
}

func TestPortfolioWeightsNoPeerData(t *testing.T) {
	frame := NewPriceFrame([]domain.PriceSeries{
		{Ticker: "NVDA", Dates: []string{"2024-01-01", "2024-01-02"}, Prices: []float64{100, 101}},
	})

	weights := portfolioWeights("NVDA", []string{"TSM", "ASML"}, frame)
	require.Len(t, weights, 1)
	assert.InDelta(t, 1.0, weights["NVDA"], 1e-12)
}

func TestPortfolioWeightsSkipPeerWithoutReturns(t *testing.T) {
	// TSM has a latest price but only one observation, so it contributes no
	// returns and must not dilute the peer sleeve.
	frame := NewPriceFrame([]domain.PriceSeries{
		{Ticker: "NVDA", Dates: []string{"2024-01-01", "2024-01-02"}, Prices: []float64{100, 101}},
		{Ticker: "TSM", Dates: []string{"2024-01-02"}, Prices: []float64{90}},
		{Ticker: "ASML", Dates: []string{"2024-01-01", "2024-01-02"}, Prices: []float64{700, 707}},
	})
	require.True(t, frame.HasTicker("TSM"))

	weights := portfolioWeights("NVDA", []string{"TSM", "ASML"}, frame)
	require.Len(t, weights, 2)
	assert.InDelta(t, 0.6, weights["NVDA"], 1e-12)
	assert.InDelta(t, 0.4, weights["ASML"], 1e-12)
	assert.NotContains(t, weights, "TSM")
}

func TestStressTestIgnoresUnknownTickers(t *testing.T) {
	frame := frameFixture()
	weights := map[string]float64{"NVDA": 0.6, "AMD": 0.4}

	stress := StressTest(frame, weights, -0.10, []string{"AMD", "ZZZZ"})

	assert.InDelta(t, -0.04, stress.PortfolioLoss, 1e-12)
	require.Len(t, stress.TickerImpacts, 1)
	assert.InDelta(t, -0.10, stress.TickerImpacts["AMD"], 1e-12)
}

func TestStressTestZeroShock(t *testing.T) {
	frame := frameFixture()
	stress := StressTest(frame, map[string]float64{"NVDA": 1.0}, 0, []string{"NVDA"})

	assert.InDelta(t, 0.0, stress.PortfolioLoss, 1e-12)
}
