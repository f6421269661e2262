// Package analysis orchestrates the full research pipeline: macro snapshot,
// supply chain mapping, valuation, risk, artifacts, and the memo.
package analysis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/stratalpha/stratalpha/internal/events"
	"github.com/stratalpha/stratalpha/internal/modules/artifacts"
	"github.com/stratalpha/stratalpha/internal/modules/macro"
	"github.com/stratalpha/stratalpha/internal/modules/report"
	"github.com/stratalpha/stratalpha/internal/modules/risk"
	"github.com/stratalpha/stratalpha/internal/modules/supply"
	"github.com/stratalpha/stratalpha/internal/modules/valuation"
)

// Request describes a full pipeline run.
type Request struct {
	Ticker       string             `json:"ticker"`
	Start        string             `json:"start"`
	End          string             `json:"end"`
	Peers        []string           `json:"peers,omitempty"`
	ShockTickers []string           `json:"shock_tickers,omitempty"`
	ShockPct     float64            `json:"shock_pct,omitempty"`
	Overrides    map[string]float64 `json:"overrides,omitempty"`
}

// RunResult aggregates all pipeline outputs plus the written file paths.
type RunResult struct {
	RunID      string            `json:"run_id"`
	Ticker     string            `json:"ticker"`
	Valuation  valuation.Report  `json:"valuation"`
	Risk       risk.Result       `json:"risk"`
	Macro      macro.Snapshot    `json:"macro"`
	Supply     supply.Result     `json:"supply"`
	Artifacts  map[string]string `json:"artifacts"`
	ReportPath string            `json:"report_path"`
	ReportHTML string            `json:"report_html"`
	Elapsed    time.Duration     `json:"elapsed"`
}

// Orchestrator wires the analysis engines together.
type Orchestrator struct {
	valuation *valuation.Service
	risk      *risk.Analyzer
	macro     *macro.Service
	supply    *supply.Service
	artifacts *artifacts.Writer
	reports   *report.Generator
	bus       *events.Bus
	log       zerolog.Logger
}

// NewOrchestrator creates a new analysis orchestrator.
func NewOrchestrator(
	valuationSvc *valuation.Service,
	riskAnalyzer *risk.Analyzer,
	macroSvc *macro.Service,
	supplySvc *supply.Service,
	artifactsWriter *artifacts.Writer,
	reportGen *report.Generator,
	bus *events.Bus,
	log zerolog.Logger,
) *Orchestrator {
	return &Orchestrator{
		valuation: valuationSvc,
		risk:      riskAnalyzer,
		macro:     macroSvc,
		supply:    supplySvc,
		artifacts: artifactsWriter,
		reports:   reportGen,
		bus:       bus,
		log:       log.With().Str("component", "analysis").Logger(),
	}
}

// AnalyzeCompany runs the full pipeline for one company. The four engines
// run concurrently; artifacts and the memo are written once all succeed.
func (o *Orchestrator) AnalyzeCompany(ctx context.Context, req Request) (RunResult, error) {
	runID := uuid.New().String()
	started := time.Now()

	o.log.Info().
		Str("run_id", runID).
		Str("ticker", req.Ticker).
		Msg("Starting company analysis")
	o.bus.Emit(events.AnalysisStarted, "analysis", map[string]interface{}{
		"run_id": runID,
		"ticker": req.Ticker,
	})

	var (
		valuationReport valuation.Report
		riskResult      risk.Result
		macroSnapshot   macro.Snapshot
		supplyResult    supply.Result
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		valuationReport, err = o.valuation.Run(gctx, valuation.Request{
			Ticker:    req.Ticker,
			Start:     req.Start,
			End:       req.End,
			Peers:     req.Peers,
			Overrides: req.Overrides,
		})
		return err
	})
	g.Go(func() error {
		var err error
		riskResult, err = o.risk.Analyze(gctx, risk.Request{
			Ticker:       req.Ticker,
			Start:        req.Start,
			End:          req.End,
			Peers:        req.Peers,
			ShockTickers: req.ShockTickers,
			ShockPct:     req.ShockPct,
		})
		return err
	})
	g.Go(func() error {
		var err error
		macroSnapshot, err = o.macro.Snapshot(gctx, "", req.End)
		return err
	})
	g.Go(func() error {
		var err error
		supplyResult, err = o.supply.Analyze()
		return err
	})

	if err := g.Wait(); err != nil {
		o.bus.Emit(events.AnalysisFailed, "analysis", map[string]interface{}{
			"run_id": runID,
			"ticker": req.Ticker,
			"error":  err.Error(),
		})
		return RunResult{}, err
	}

	paths, err := o.writeArtifacts(valuationReport, riskResult)
	if err != nil {
		return RunResult{}, err
	}

	memoPath, htmlPath, err := o.reports.WriteMemo(report.MemoData{
		Ticker:      req.Ticker,
		GeneratedAt: time.Now().UTC(),
		Macro:       macroSnapshot,
		Supply:      supplyResult,
		Valuation:   valuationReport,
		Risk:        riskResult,
		Technical:   report.NewTechnicalSnapshot(valuationReport.Prices),
	})
	if err != nil {
		return RunResult{}, err
	}

	elapsed := time.Since(started)
	o.log.Info().
		Str("run_id", runID).
		Str("ticker", req.Ticker).
		Dur("elapsed", elapsed).
		Msg("Company analysis complete")
	o.bus.Emit(events.AnalysisCompleted, "analysis", map[string]interface{}{
		"run_id":     runID,
		"ticker":     req.Ticker,
		"elapsed_ms": elapsed.Milliseconds(),
		"report":     memoPath,
	})

	return RunResult{
		RunID:      runID,
		Ticker:     req.Ticker,
		Valuation:  valuationReport,
		Risk:       riskResult,
		Macro:      macroSnapshot,
		Supply:     supplyResult,
		Artifacts:  paths,
		ReportPath: memoPath,
		ReportHTML: htmlPath,
		Elapsed:    elapsed,
	}, nil
}

func (o *Orchestrator) writeArtifacts(valuationReport valuation.Report, riskResult risk.Result) (map[string]string, error) {
	paths := make(map[string]string, 4)

	p, err := o.artifacts.WriteSensitivityCSV("dcf_sensitivity.csv", valuationReport.DCF.Sensitivity)
	if err != nil {
		return nil, err
	}
	paths["dcf_sensitivity"] = p

	p, err = o.artifacts.WriteCompsCSV("comps_table.csv", valuationReport.Comps)
	if err != nil {
		return nil, err
	}
	paths["comps_table"] = p

	p, err = o.artifacts.WriteJSON("var_results.json", riskResult.VaR)
	if err != nil {
		return nil, err
	}
	paths["var_results"] = p

	p, err = o.artifacts.WriteJSON("stress_results.json", riskResult.Stress)
	if err != nil {
		return nil, err
	}
	paths["stress_results"] = p

	return paths, nil
}
