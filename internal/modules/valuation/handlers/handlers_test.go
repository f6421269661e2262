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
	"github.com/stratalpha/stratalpha/internal/modules/valuation"
)

type unavailablePrices struct{}

func (unavailablePrices) GetPrices(ctx context.Context, ticker, start, end string) (domain.PriceSeries, error) {
	return domain.PriceSeries{}, &domain.DataUnavailableError{Ticker: ticker, Source: "test"}
}

type fixedFundamentals struct {
	data map[string]domain.Fundamentals
}

func (f fixedFundamentals) GetFundamentals(ctx context.Context, ticker string) (domain.Fundamentals, error) {
	if fund, ok := f.data[ticker]; ok {
		return fund, nil
	}
	return nil, &domain.DataUnavailableError{Ticker: ticker, Source: "test"}
}

func newTestHandler() *Handler {
	funds := map[string]domain.Fundamentals{
		"NVDA": {
			"currentPrice":      100,
			"sharesOutstanding": 1_000_000_000,
			"marketCap":         100_000_000_000,
			"ebitda":            8_000_000_000,
			"totalRevenue":      20_000_000_000,
			"trailingEps":       4.0,
		},
		"AMD": {
			"currentPrice":      50,
			"sharesOutstanding": 2_000_000_000,
			"marketCap":         100_000_000_000,
			"ebitda":            10_000_000_000,
			"totalRevenue":      25_000_000_000,
			"trailingEps":       2.0,
		},
	}
	data := marketdata.NewService(unavailablePrices{}, fixedFundamentals{data: funds}, zerolog.Nop())
	svc := valuation.NewService(data, zerolog.Nop())
	return NewHandler(svc, "NVDA", []string{"AMD"}, zerolog.Nop())
}

func newTestRouter() http.Handler {
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		newTestHandler().RegisterRoutes(r)
	})
	return r
}

func TestHandleRunValuation(t *testing.T) {
	router := newTestRouter()

	body := `{"ticker": "NVDA", "start": "2024-01-01", "end": "2024-06-28"}`
	req := httptest.NewRequest(http.MethodPost, "/api/valuation/run", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var response struct {
		Data struct {
			Ticker string `json:"ticker"`
			DCF    struct {
				EquityValuePerShare *float64 `json:"equity_value_per_share"`
				Sensitivity         struct {
					RowLabels []string     `json:"row_labels"`
					Values    [][]*float64 `json:"values"`
				} `json:"sensitivity"`
			} `json:"dcf"`
			UsedPriceFallback bool `json:"used_price_fallback"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))

	assert.Equal(t, "NVDA", response.Data.Ticker)
	assert.True(t, response.Data.UsedPriceFallback)
	require.NotNil(t, response.Data.DCF.EquityValuePerShare)
	require.Len(t, response.Data.DCF.Sensitivity.Values, 3)
	assert.Len(t, response.Data.DCF.Sensitivity.RowLabels, 3)
}

func TestHandleRunValuationDefaults(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/valuation/run", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ticker":"NVDA"`)
}

func TestHandleRunValuationBadBody(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/valuation/run", strings.NewReader(`not json`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleRunValuationUnknownOverride(t *testing.T) {
	router := newTestRouter()

	body := `{"ticker": "NVDA", "overrides": {"bogus": 1}}`
	req := httptest.NewRequest(http.MethodPost, "/api/valuation/run", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleGetComps(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/valuation/comps?ticker=NVDA&peers=AMD,TSM", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var response struct {
		Data struct {
			Rows        []map[string]interface{} `json:"rows"`
			Percentiles map[string]*float64      `json:"percentiles"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))

	// Target plus both peers; TSM has no fundamentals so its multiples are null.
	require.Len(t, response.Data.Rows, 3)
	assert.Equal(t, "TSM", response.Data.Rows[2]["ticker"])
	assert.Nil(t, response.Data.Rows[2]["pe"])
	require.NotNil(t, response.Data.Percentiles["pe"])
}
