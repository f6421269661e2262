package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratalpha/stratalpha/internal/domain"
	"github.com/stratalpha/stratalpha/internal/marketdata"
	"github.com/stratalpha/stratalpha/internal/modules/risk"
)

type unavailablePrices struct{}

func (unavailablePrices) GetPrices(ctx context.Context, ticker, start, end string) (domain.PriceSeries, error) {
	return domain.PriceSeries{}, &domain.DataUnavailableError{Ticker: ticker, Source: "test"}
}

type unavailableFundamentals struct{}

func (unavailableFundamentals) GetFundamentals(ctx context.Context, ticker string) (domain.Fundamentals, error) {
	return nil, &domain.DataUnavailableError{Ticker: ticker, Source: "test"}
}

func newTestRouter() http.Handler {
	data := marketdata.NewService(unavailablePrices{}, unavailableFundamentals{}, zerolog.Nop())
	analyzer := risk.NewAnalyzer(data, zerolog.Nop())
	handler := NewHandler(analyzer, Defaults{
		Ticker:       "NVDA",
		Peers:        []string{"TSM", "ASML"},
		ShockTickers: []string{"TSM", "ASML"},
		ShockPct:     -0.10,
	}, zerolog.Nop())

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		handler.RegisterRoutes(r)
	})
	return r
}

func TestHandleAnalyze(t *testing.T) {
	router := newTestRouter()

	body := `{"ticker": "NVDA", "start": "2023-06-28", "end": "2024-06-28"}`
	req := httptest.NewRequest(http.MethodPost, "/api/risk/analyze", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var response struct {
		Data risk.Result `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))

	assert.Equal(t, "NVDA", response.Data.Ticker)
	assert.True(t, response.Data.UsedFallback)
	assert.InDelta(t, 0.6, response.Data.Weights["NVDA"], 1e-12)

	// Defaults fill in the shock scenario: two peers at 0.2 weight each.
	assert.InDelta(t, -0.04, response.Data.Stress.PortfolioLoss, 1e-12)
}

func TestHandleAnalyzeBadBody(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/risk/analyze", strings.NewReader("nope"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleGetVaR(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/risk/var", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var response struct {
		Data struct {
			Ticker string                        `json:"ticker"`
			VaR    map[string]map[string]float64 `json:"var"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))

	assert.Equal(t, "NVDA", response.Data.Ticker)
	require.Contains(t, response.Data.VaR, "historical")
	require.Contains(t, response.Data.VaR, "variance_covariance")
	assert.Contains(t, response.Data.VaR["historical"], "var_95")
	assert.Contains(t, response.Data.VaR["historical"], "var_99")
}

func TestHandleGetStress(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/risk/stress?ticker=AMD", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"shock_pct":-0.1`)
}
