// Package handlers provides HTTP handlers for valuation operations.
package handlers

import (
	"encoding/json"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/stratalpha/stratalpha/internal/marketdata"
	"github.com/stratalpha/stratalpha/internal/modules/valuation"
)

// Handler handles valuation HTTP requests.
type Handler struct {
	service       *valuation.Service
	defaultTicker string
	defaultPeers  []string
	log           zerolog.Logger
}

// NewHandler creates a new valuation handler.
func NewHandler(service *valuation.Service, defaultTicker string, defaultPeers []string, log zerolog.Logger) *Handler {
	return &Handler{
		service:       service,
		defaultTicker: defaultTicker,
		defaultPeers:  defaultPeers,
		log:           log.With().Str("handler", "valuation").Logger(),
	}
}

// HandleRunValuation handles POST /api/valuation/run
func (h *Handler) HandleRunValuation(w http.ResponseWriter, r *http.Request) {
	var req valuation.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	h.applyDefaults(&req)

	report, err := h.service.Run(r.Context(), req)
	if err != nil {
		if strings.Contains(err.Error(), "invalid overrides") {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.log.Error().Err(err).Str("ticker", req.Ticker).Msg("Valuation run failed")
		http.Error(w, "Valuation run failed", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": reportResponse(report),
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleGetComps handles GET /api/valuation/comps
func (h *Handler) HandleGetComps(w http.ResponseWriter, r *http.Request) {
	ticker := r.URL.Query().Get("ticker")
	if ticker == "" {
		ticker = h.defaultTicker
	}
	peers := h.defaultPeers
	if raw := r.URL.Query().Get("peers"); raw != "" {
		peers = nil
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(strings.ToUpper(p)); p != "" {
				peers = append(peers, p)
			}
		}
	}

	table, percentiles, err := h.service.Comps(r.Context(), ticker, peers)
	if err != nil {
		h.log.Error().Err(err).Str("ticker", ticker).Msg("Comps build failed")
		http.Error(w, "Comps build failed", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"ticker":      ticker,
			"rows":        compsRows(table),
			"percentiles": percentiles,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

func (h *Handler) applyDefaults(req *valuation.Request) {
	if req.Ticker == "" {
		req.Ticker = h.defaultTicker
	}
	if len(req.Peers) == 0 {
		req.Peers = h.defaultPeers
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

// fnum converts a float to a JSON-safe pointer: NaN and infinities map to null.
func fnum(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func fnums(vs []float64) []*float64 {
	out := make([]*float64, len(vs))
	for i, v := range vs {
		out[i] = fnum(v)
	}
	return out
}

func reportResponse(report valuation.Report) map[string]interface{} {
	grid := report.DCF.Sensitivity
	values := make([][]*float64, len(grid.Values))
	for i, row := range grid.Values {
		values[i] = fnums(row)
	}

	return map[string]interface{}{
		"ticker": report.Ticker,
		"dcf": map[string]interface{}{
			"inputs":                 report.DCF.Inputs,
			"years":                  report.DCF.Years,
			"fcff":                   fnums(report.DCF.FCFF),
			"present_value":          fnums(report.DCF.PresentValue),
			"terminal_value":         fnum(report.DCF.TerminalValue),
			"enterprise_value":       fnum(report.DCF.EnterpriseValue),
			"equity_value":           fnum(report.DCF.EquityValue),
			"equity_value_per_share": fnum(report.DCF.EquityValuePerShare),
			"sensitivity": map[string]interface{}{
				"row_labels": grid.RowLabels,
				"col_labels": grid.ColLabels,
				"values":     values,
			},
		},
		"comps":                      compsRows(report.Comps),
		"percentiles":                report.Percentiles,
		"used_price_fallback":        report.UsedPriceFallback,
		"used_fundamentals_fallback": report.UsedFundamentalsFallback,
	}
}

func compsRows(table valuation.CompsTable) []map[string]interface{} {
	rows := make([]map[string]interface{}, 0, len(table.Rows))
	for _, row := range table.Rows {
		rows = append(rows, map[string]interface{}{
			"ticker":           row.Ticker,
			"price":            fnum(row.Price),
			"market_cap":       fnum(row.MarketCap),
			"net_debt":         fnum(row.NetDebt),
			"enterprise_value": fnum(row.EnterpriseValue),
			"pe":               fnum(row.PE),
			"ev_ebitda":        fnum(row.EVEBITDA),
			"ps":               fnum(row.PS),
		})
	}
	return rows
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
