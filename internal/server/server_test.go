package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/stratalpha/stratalpha/internal/analysis"
	"github.com/stratalpha/stratalpha/internal/config"
	"github.com/stratalpha/stratalpha/internal/domain"
	"github.com/stratalpha/stratalpha/internal/events"
	"github.com/stratalpha/stratalpha/internal/marketdata"
	"github.com/stratalpha/stratalpha/internal/modules/artifacts"
	"github.com/stratalpha/stratalpha/internal/modules/macro"
	macrohandlers "github.com/stratalpha/stratalpha/internal/modules/macro/handlers"
	"github.com/stratalpha/stratalpha/internal/modules/report"
	"github.com/stratalpha/stratalpha/internal/modules/risk"
	riskhandlers "github.com/stratalpha/stratalpha/internal/modules/risk/handlers"
	"github.com/stratalpha/stratalpha/internal/modules/supply"
	supplyhandlers "github.com/stratalpha/stratalpha/internal/modules/supply/handlers"
	"github.com/stratalpha/stratalpha/internal/modules/valuation"
	valuationhandlers "github.com/stratalpha/stratalpha/internal/modules/valuation/handlers"
)

type unavailablePrices struct{}

func (unavailablePrices) GetPrices(ctx context.Context, ticker, start, end string) (domain.PriceSeries, error) {
	return domain.PriceSeries{}, &domain.DataUnavailableError{Ticker: ticker, Source: "stub"}
}

type unavailableFundamentals struct{}

func (unavailableFundamentals) GetFundamentals(ctx context.Context, ticker string) (domain.Fundamentals, error) {
	return nil, &domain.DataUnavailableError{Ticker: ticker, Source: "stub"}
}

func newTestServer(t *testing.T) (*Server, *events.Bus) {
	t.Helper()

	dir := t.TempDir()
	log := zerolog.Nop()
	cfg := &config.Config{
		DataDir:       dir,
		ArtifactsDir:  filepath.Join(dir, "artifacts"),
		ReportsDir:    filepath.Join(dir, "reports"),
		Port:          0,
		DevMode:       true,
		DefaultTicker: "NVDA",
		PeerTickers:   []string{"TSM", "ASML"},
		ShockTickers:  []string{"TSM"},
		ShockPct:      -0.10,
	}

	bus := events.NewBus(log)
	data := marketdata.NewService(unavailablePrices{}, unavailableFundamentals{}, log)
	valuationSvc := valuation.NewService(data, log)
	riskAnalyzer := risk.NewAnalyzer(data, log)
	macroSvc := macro.NewService(macro.NewBundledProvider(), log)
	supplySvc := supply.NewService(nil, "", log)
	orchestrator := analysis.NewOrchestrator(
		valuationSvc,
		riskAnalyzer,
		macroSvc,
		supplySvc,
		artifacts.NewWriter(cfg.ArtifactsDir, log),
		report.NewGenerator(cfg.ReportsDir, log),
		bus,
		log,
	)

	srv := New(Config{
		Log:          log,
		Config:       cfg,
		EventBus:     bus,
		Orchestrator: orchestrator,
		ValuationHandlers: valuationhandlers.NewHandler(
			valuationSvc, cfg.DefaultTicker, cfg.PeerTickers, log),
		RiskHandlers: riskhandlers.NewHandler(riskAnalyzer, riskhandlers.Defaults{
			Ticker:       cfg.DefaultTicker,
			Peers:        cfg.PeerTickers,
			ShockTickers: cfg.ShockTickers,
			ShockPct:     cfg.ShockPct,
		}, log),
		MacroHandlers:  macrohandlers.NewHandler(macroSvc, log),
		SupplyHandlers: supplyhandlers.NewHandler(supplySvc, log),
		SystemHandlers: NewSystemHandlers(cfg, nil, log),
	})
	return srv, bus
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestModuleRoutesMounted(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, path := range []string{
		"/api/macro/snapshot",
		"/api/supply/metrics",
		"/api/supply/chokepoints",
		"/api/risk/var",
		"/api/valuation/comps?ticker=NVDA&peers=TSM",
	} {
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestRunAnalysisEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/analysis/run", strings.NewReader(`{}`))
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "NVDA", body.Data["ticker"])
	assert.NotEmpty(t, body.Data["run_id"])
	assert.Equal(t, true, body.Data["used_fallback"])
	assert.NotEmpty(t, body.Data["top_chokepoint"])
}

func TestTriggerWithoutJobRegistered(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/system/jobs/refresh", nil)
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestDiskUsageEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/system/disk", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body, "data_dir_mb")
}

func TestEventsStream(t *testing.T) {
	srv, bus := newTestServer(t)

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/events/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	var hello map[string]interface{}
	require.NoError(t, wsjson.Read(ctx, conn, &hello))
	assert.Equal(t, "connected", hello["type"])

	bus.Emit(events.AnalysisStarted, "analysis", map[string]interface{}{"ticker": "NVDA"})

	var msg map[string]interface{}
	require.NoError(t, wsjson.Read(ctx, conn, &msg))
	assert.Equal(t, string(events.AnalysisStarted), msg["type"])
	assert.Equal(t, "analysis", msg["module"])
}
