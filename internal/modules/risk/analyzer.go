package risk

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/stratalpha/stratalpha/internal/domain"
	"github.com/stratalpha/stratalpha/internal/marketdata"
	"github.com/stratalpha/stratalpha/pkg/formulas"
)

// minObservations is the return count below which results are flagged thin.
const minObservations = 250

// targetWeight is the portfolio share of the target ticker; the remainder is
// split evenly across peers with data.
const targetWeight = 0.6

// StressResult describes a deterministic shock applied to selected tickers.
type StressResult struct {
	ShockPct      float64            `json:"shock_pct"`
	PortfolioLoss float64            `json:"portfolio_loss"`
	TickerImpacts map[string]float64 `json:"ticker_impacts"`
}

// Result is the aggregate output of a risk run.
type Result struct {
	Ticker       string                        `json:"ticker"`
	Tickers      []string                      `json:"tickers"`
	Observations int                           `json:"observations"`
	Thin         bool                          `json:"thin"`
	Weights      map[string]float64            `json:"weights"`
	VaR          map[string]map[string]float64 `json:"var"`
	CVaR         map[string]float64            `json:"cvar"`
	Stress       StressResult                  `json:"stress"`
	UsedFallback bool                          `json:"used_fallback"`
}

// Analyzer runs the risk workflow over the market data layer.
type Analyzer struct {
	data *marketdata.Service
	log  zerolog.Logger
}

// NewAnalyzer creates a new risk analyzer.
func NewAnalyzer(data *marketdata.Service, log zerolog.Logger) *Analyzer {
	return &Analyzer{
		data: data,
		log:  log.With().Str("component", "risk").Logger(),
	}
}

// Request describes a risk run.
type Request struct {
	Ticker       string   `json:"ticker"`
	Start        string   `json:"start"`
	End          string   `json:"end"`
	Peers        []string `json:"peers,omitempty"`
	ShockTickers []string `json:"shock_tickers,omitempty"`
	ShockPct     float64  `json:"shock_pct,omitempty"`
}

// Analyze fetches the basket's price histories, computes portfolio VaR at
// the 95 and 99 percent levels by two methods, and applies the stress shock.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (Result, error) {
	tickers := []string{req.Ticker}
	for _, p := range req.Peers {
		if p != req.Ticker {
			tickers = append(tickers, p)
		}
	}

	usedFallback := false
	series := make([]domain.PriceSeries, 0, len(tickers))
	for _, t := range tickers {
		s, fellBack, err := a.data.RiskPrices(ctx, t, req.Start, req.End)
		if err != nil {
			return Result{}, err
		}
		usedFallback = usedFallback || fellBack
		series = append(series, s)
	}

	frame := NewPriceFrame(series)
	returns := frame.Returns()
	weights := portfolioWeights(req.Ticker, tickers[1:], frame)
	portfolio := frame.PortfolioReturns(returns, weights)

	observations := len(portfolio)
	thin := observations < minObservations
	if thin {
		a.log.Warn().
			Str("ticker", req.Ticker).
			Int("observations", observations).
			Msg("Insufficient return history, results may be noisy")
	}

	varResults := map[string]map[string]float64{
		"historical": {
			"var_95": formulas.HistoricalVaR(portfolio, 0.95),
			"var_99": formulas.HistoricalVaR(portfolio, 0.99),
		},
		"variance_covariance": {
			"var_95": formulas.VarianceCovarianceVaR(portfolio, 0.95),
			"var_99": formulas.VarianceCovarianceVaR(portfolio, 0.99),
		},
	}

	// Expected shortfall, negated to read as a loss magnitude like VaR.
	cvarResults := map[string]float64{
		"cvar_95": -formulas.CalculateCVaR(portfolio, 0.95),
		"cvar_99": -formulas.CalculateCVaR(portfolio, 0.99),
	}

	stress := StressTest(frame, weights, req.ShockPct, req.ShockTickers)

	a.log.Info().
		Str("ticker", req.Ticker).
		Int("observations", observations).
		Float64("hist_var_95", varResults["historical"]["var_95"]).
		Float64("stress_loss", stress.PortfolioLoss).
		Bool("fallback", usedFallback).
		Msg("Risk run complete")

	return Result{
		Ticker:       req.Ticker,
		Tickers:      tickers,
		Observations: observations,
		Thin:         thin,
		Weights:      weights,
		VaR:          varResults,
		CVaR:         cvarResults,
		Stress:       stress,
		UsedFallback: usedFallback,
	}, nil
}

// portfolioWeights assigns the target its fixed share and splits the rest
// evenly across peers that contribute at least one return, so the weights
// always sum to one and no weight lands on a ticker absent from the return
// matrix. A basket with no usable peers concentrates fully in the target.
func portfolioWeights(target string, peers []string, frame *PriceFrame) map[string]float64 {
	var withData []string
	for _, p := range peers {
		if frame.HasReturns(p) {
			withData = append(withData, p)
		}
	}

	weights := make(map[string]float64, len(withData)+1)
	if len(withData) == 0 {
		weights[target] = 1.0
		return weights
	}

	weights[target] = targetWeight
	peerWeight := (1 - targetWeight) / float64(len(withData))
	for _, p := range withData {
		weights[p] = peerWeight
	}
	return weights
}

// StressTest shocks the latest prices of the selected tickers by shockPct
// and reports the weighted portfolio loss. Shocked tickers missing from the
// frame are ignored.
func StressTest(frame *PriceFrame, weights map[string]float64, shockPct float64, shockedTickers []string) StressResult {
	impacts := make(map[string]float64)
	for _, t := range shockedTickers {
		if frame.HasTicker(t) {
			impacts[t] = shockPct
		}
	}

	loss := 0.0
	for ticker, w := range weights {
		if change, shocked := impacts[ticker]; shocked {
			loss += w * change
		}
	}

	return StressResult{
		ShockPct:      shockPct,
		PortfolioLoss: loss,
		TickerImpacts: impacts,
	}
}
