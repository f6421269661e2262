package server

import (
	"encoding/json"
	"math"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/stratalpha/stratalpha/internal/analysis"
	"github.com/stratalpha/stratalpha/internal/config"
	"github.com/stratalpha/stratalpha/internal/marketdata"
)

// AnalysisHandlers exposes the full pipeline over HTTP.
type AnalysisHandlers struct {
	orchestrator *analysis.Orchestrator
	cfg          *config.Config
	log          zerolog.Logger
}

// NewAnalysisHandlers creates a new analysis handlers instance.
func NewAnalysisHandlers(orchestrator *analysis.Orchestrator, cfg *config.Config, log zerolog.Logger) *AnalysisHandlers {
	return &AnalysisHandlers{
		orchestrator: orchestrator,
		cfg:          cfg,
		log:          log.With().Str("handler", "analysis").Logger(),
	}
}

// HandleRunAnalysis handles POST /api/analysis/run. It returns a summary of
// the run rather than the full engine outputs; the detailed results land in
// the artifacts and the memo.
func (h *AnalysisHandlers) HandleRunAnalysis(w http.ResponseWriter, r *http.Request) {
	var req analysis.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	h.applyDefaults(&req)

	result, err := h.orchestrator.AnalyzeCompany(r.Context(), req)
	if err != nil {
		h.log.Error().Err(err).Str("ticker", req.Ticker).Msg("Analysis run failed")
		http.Error(w, "Analysis run failed", http.StatusInternalServerError)
		return
	}

	summary := map[string]interface{}{
		"run_id":          result.RunID,
		"ticker":          result.Ticker,
		"market_price":    fnum(latestPrice(result)),
		"dcf_value":       fnum(result.Valuation.DCF.EquityValuePerShare),
		"var_95":          fnum(result.Risk.VaR["historical"]["var_95"]),
		"var_99":          fnum(result.Risk.VaR["historical"]["var_99"]),
		"stress_loss":     fnum(result.Risk.Stress.PortfolioLoss),
		"top_chokepoint":  topChokepoint(result),
		"used_fallback":   result.Valuation.UsedPriceFallback || result.Risk.UsedFallback,
		"artifacts":       result.Artifacts,
		"report_markdown": result.ReportPath,
		"report_html":     result.ReportHTML,
		"elapsed_ms":      result.Elapsed.Milliseconds(),
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": summary,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

func (h *AnalysisHandlers) applyDefaults(req *analysis.Request) {
	if req.Ticker == "" {
		req.Ticker = h.cfg.DefaultTicker
	}
	if len(req.Peers) == 0 {
		req.Peers = h.cfg.PeerTickers
	}
	if len(req.ShockTickers) == 0 {
		req.ShockTickers = h.cfg.ShockTickers
	}
	if req.ShockPct == 0 {
		req.ShockPct = h.cfg.ShockPct
	}
	if req.Start == "" || req.End == "" {
		start, end := marketdata.DefaultRange(time.Now())
		if req.Start == "" {
			req.Start = start
		}
		if req.End == "" {
			req.End = end
		}
	}
}

func latestPrice(result analysis.RunResult) float64 {
	prices := result.Valuation.Prices.Prices
	if len(prices) == 0 {
		return math.NaN()
	}
	return prices[len(prices)-1]
}

func topChokepoint(result analysis.RunResult) string {
	if len(result.Supply.Chokepoints) == 0 {
		return ""
	}
	return result.Supply.Chokepoints[0].Node
}

// fnum converts a float to a JSON-safe pointer: NaN and infinities map to null.
func fnum(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func (h *AnalysisHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
