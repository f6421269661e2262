package yahoo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratalpha/stratalpha/internal/domain"
)

func newTestClient(handler http.Handler) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)
	client := NewClient(nil, zerolog.Nop())
	client.baseURL = server.URL
	return client, server
}

func TestGetPrices(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"chart": {
				"result": [{
					"timestamp": [1704067200, 1704153600, 1704240000],
					"indicators": {
						"adjclose": [{"adjclose": [100.5, null, 102.25]}],
						"quote": [{"close": [100.0, 101.0, 102.0]}]
					}
				}],
				"error": null
			}
		}`))
	}))
	defer server.Close()

	series, err := client.GetPrices(context.Background(), "NVDA", "2024-01-01", "2024-01-03")
	require.NoError(t, err)

	assert.Equal(t, "NVDA", series.Ticker)
	// The null observation is skipped.
	require.Equal(t, 2, series.Len())
	assert.Equal(t, []string{"2024-01-01", "2024-01-03"}, series.Dates)
	assert.Equal(t, []float64{100.5, 102.25}, series.Prices)
}

func TestGetPricesFallsBackToRawClose(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"chart": {
				"result": [{
					"timestamp": [1704067200],
					"indicators": {"quote": [{"close": [99.5]}]}
				}]
			}
		}`))
	}))
	defer server.Close()

	series, err := client.GetPrices(context.Background(), "NVDA", "2024-01-01", "2024-01-02")
	require.NoError(t, err)
	assert.Equal(t, []float64{99.5}, series.Prices)
}

func TestGetPricesUnavailable(t *testing.T) {
	tests := []struct {
		name string
		body string
		code int
	}{
		{
			name: "API error payload",
			body: `{"chart": {"result": null, "error": {"code": "Not Found", "description": "No data found"}}}`,
			code: http.StatusOK,
		},
		{
			name: "empty result",
			body: `{"chart": {"result": []}}`,
			code: http.StatusOK,
		},
		{
			name: "server error",
			body: `oops`,
			code: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := client.GetPrices(context.Background(), "ZZZZ", "2024-01-01", "2024-01-02")
			require.Error(t, err)
			assert.True(t, domain.IsDataUnavailable(err))
		})
	}
}

func TestGetPricesInvalidDates(t *testing.T) {
	client := NewClient(nil, zerolog.Nop())

	_, err := client.GetPrices(context.Background(), "NVDA", "not-a-date", "2024-01-02")
	require.Error(t, err)
	assert.False(t, domain.IsDataUnavailable(err))
}

func TestGetFundamentals(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"quoteSummary": {
				"result": [{
					"financialData": {
						"totalRevenue": {"raw": 60922000000},
						"ebitdaMargins": {"raw": 0.61},
						"totalDebt": {"raw": 11056000000},
						"currentPrice": {"raw": 875.28}
					},
					"defaultKeyStatistics": {
						"beta": {"raw": 1.68},
						"sharesOutstanding": {"raw": 2470000000},
						"trailingEps": {"raw": 11.93}
					},
					"summaryDetail": {
						"marketCap": {"raw": 2160000000000}
					}
				}],
				"error": null
			}
		}`))
	}))
	defer server.Close()

	fund, err := client.GetFundamentals(context.Background(), "NVDA")
	require.NoError(t, err)

	assert.InDelta(t, 60922000000, fund.Lookup("totalRevenue", 0), 1e-6)
	assert.InDelta(t, 1.68, fund.Lookup("beta", 0), 1e-9)
	assert.InDelta(t, 11.93, fund.Lookup("trailingEps", 0), 1e-9)

	// Metrics absent from the payload fall through to the caller default.
	assert.InDelta(t, 0.12, fund.Lookup("revenueGrowth", 0.12), 1e-9)
	_, ok := fund.Get("revenueGrowth")
	assert.False(t, ok)
}

func TestGetFundamentalsUnavailable(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"quoteSummary": {"result": [], "error": {"code": "Not Found"}}}`))
	}))
	defer server.Close()

	_, err := client.GetFundamentals(context.Background(), "ZZZZ")
	require.Error(t, err)
	assert.True(t, domain.IsDataUnavailable(err))
}
