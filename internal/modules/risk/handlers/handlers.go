// Package handlers provides HTTP handlers for risk analysis operations.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/stratalpha/stratalpha/internal/marketdata"
	"github.com/stratalpha/stratalpha/internal/modules/risk"
)

// Defaults are the config-driven fallbacks for omitted request fields.
type Defaults struct {
	Ticker       string
	Peers        []string
	ShockTickers []string
	ShockPct     float64
}

// Handler handles risk HTTP requests.
type Handler struct {
	analyzer *risk.Analyzer
	defaults Defaults
	log      zerolog.Logger
}

// NewHandler creates a new risk handler.
func NewHandler(analyzer *risk.Analyzer, defaults Defaults, log zerolog.Logger) *Handler {
	return &Handler{
		analyzer: analyzer,
		defaults: defaults,
		log:      log.With().Str("handler", "risk").Logger(),
	}
}

// HandleAnalyze handles POST /api/risk/analyze
func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req risk.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	h.applyDefaults(&req)

	result, err := h.analyzer.Analyze(r.Context(), req)
	if err != nil {
		h.log.Error().Err(err).Str("ticker", req.Ticker).Msg("Risk analysis failed")
		http.Error(w, "Risk analysis failed", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": result,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleGetVaR handles GET /api/risk/var
func (h *Handler) HandleGetVaR(w http.ResponseWriter, r *http.Request) {
	req := risk.Request{Ticker: r.URL.Query().Get("ticker")}
	h.applyDefaults(&req)

	result, err := h.analyzer.Analyze(r.Context(), req)
	if err != nil {
		h.log.Error().Err(err).Str("ticker", req.Ticker).Msg("VaR computation failed")
		http.Error(w, "VaR computation failed", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"ticker":        result.Ticker,
			"var":           result.VaR,
			"observations":  result.Observations,
			"thin":          result.Thin,
			"used_fallback": result.UsedFallback,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleGetStress handles GET /api/risk/stress
func (h *Handler) HandleGetStress(w http.ResponseWriter, r *http.Request) {
	req := risk.Request{Ticker: r.URL.Query().Get("ticker")}
	h.applyDefaults(&req)

	result, err := h.analyzer.Analyze(r.Context(), req)
	if err != nil {
		h.log.Error().Err(err).Str("ticker", req.Ticker).Msg("Stress test failed")
		http.Error(w, "Stress test failed", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"ticker":  result.Ticker,
			"weights": result.Weights,
			"stress":  result.Stress,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

func (h *Handler) applyDefaults(req *risk.Request) {
	if req.Ticker == "" {
		req.Ticker = h.defaults.Ticker
	}
	if len(req.Peers) == 0 {
		req.Peers = h.defaults.Peers
	}
	if len(req.ShockTickers) == 0 {
		req.ShockTickers = h.defaults.ShockTickers
	}
	if req.ShockPct == 0 {
		req.ShockPct = h.defaults.ShockPct
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

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
