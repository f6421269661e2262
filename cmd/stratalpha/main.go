// Package main is the StratAlpha command line interface. It runs the
// analysis engines directly, without the HTTP server, and prints summaries
// to stdout.
package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/stratalpha/stratalpha/internal/analysis"
	"github.com/stratalpha/stratalpha/internal/clientdata"
	"github.com/stratalpha/stratalpha/internal/clients/yahoo"
	"github.com/stratalpha/stratalpha/internal/config"
	"github.com/stratalpha/stratalpha/internal/database"
	"github.com/stratalpha/stratalpha/internal/events"
	"github.com/stratalpha/stratalpha/internal/marketdata"
	"github.com/stratalpha/stratalpha/internal/modules/artifacts"
	"github.com/stratalpha/stratalpha/internal/modules/macro"
	"github.com/stratalpha/stratalpha/internal/modules/report"
	"github.com/stratalpha/stratalpha/internal/modules/risk"
	"github.com/stratalpha/stratalpha/internal/modules/supply"
	"github.com/stratalpha/stratalpha/internal/modules/valuation"
	"github.com/stratalpha/stratalpha/internal/version"
	"github.com/stratalpha/stratalpha/pkg/logger"
)

var cfg *config.Config

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "stratalpha",
	Short: "StratAlpha company analysis: valuation, risk, macro, supply chain",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(macroCmd)
	rootCmd.AddCommand(supplyCmd)
	rootCmd.AddCommand(valuationCmd)
	rootCmd.AddCommand(riskCmd)
	rootCmd.AddCommand(runCmd)
}

// app bundles the wired engines for CLI commands.
type app struct {
	data         *marketdata.Service
	valuation    *valuation.Service
	risk         *risk.Analyzer
	macro        *macro.Service
	supply       *supply.Service
	orchestrator *analysis.Orchestrator
	close        func()
}

func newApp() (*app, error) {
	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: true})

	cacheDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "client_data.db"),
		Profile: database.ProfileCache,
		Name:    "client_data",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	cacheRepo := clientdata.NewRepository(cacheDB.Conn())
	if err := cacheRepo.EnsureSchema(); err != nil {
		cacheDB.Close()
		return nil, fmt.Errorf("failed to initialize cache schema: %w", err)
	}

	yahooClient := yahoo.NewClient(cacheRepo, log)
	data := marketdata.NewService(yahooClient, yahooClient, log)

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
		events.NewBus(log),
		log,
	)

	return &app{
		data:         data,
		valuation:    valuationSvc,
		risk:         riskAnalyzer,
		macro:        macroSvc,
		supply:       supplySvc,
		orchestrator: orchestrator,
		close:        func() { cacheDB.Close() },
	}, nil
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("stratalpha %s\n", version.Version)
	},
}

// --- Macro Command ---

var macroCmd = &cobra.Command{
	Use:   "macro",
	Short: "Print the macro snapshot: latest indicators, z-scores, commentary",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		start, _ := cmd.Flags().GetString("start")
		end, _ := cmd.Flags().GetString("end")

		snapshot, err := a.macro.Snapshot(cmd.Context(), start, end)
		if err != nil {
			return err
		}

		fmt.Println("Macro Snapshot")
		fmt.Printf("  Observations: %d\n", len(snapshot.Observations))
		for name, value := range snapshot.Metrics {
			fmt.Printf("  %-28s %8.2f\n", name, value)
		}
		fmt.Printf("\n%s\n", snapshot.Commentary)
		return nil
	},
}

func init() {
	macroCmd.Flags().String("start", "", "start date (YYYY-MM-DD)")
	macroCmd.Flags().String("end", "", "end date (YYYY-MM-DD)")
}

// --- Supply Command ---

var supplyCmd = &cobra.Command{
	Use:   "supply",
	Short: "Print supply chain centrality metrics and chokepoints",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		result, err := a.supply.Analyze()
		if err != nil {
			return err
		}

		fmt.Printf("Supply Chain Network (%d edges, %d nodes)\n\n", len(result.Edges), len(result.Metrics))
		fmt.Printf("  %-12s %-14s %-10s %12s %10s\n", "Node", "Country", "Role", "Betweenness", "Degree")
		for _, m := range result.Metrics {
			fmt.Printf("  %-12s %-14s %-10s %12.4f %10.2f\n", m.Node, m.Country, m.Role, m.Betweenness, m.Degree)
		}

		fmt.Println("\nChokepoints:")
		for i, m := range result.Chokepoints {
			fmt.Printf("  %d. %s (%s)\n", i+1, m.Node, m.Country)
		}
		return nil
	},
}

// --- Valuation Command ---

var valuationCmd = &cobra.Command{
	Use:   "valuation [ticker]",
	Short: "Run the DCF model and peer comps for a company",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		ticker := tickerArg(args)
		overrides, err := parseOverrides(cmd)
		if err != nil {
			return err
		}
		years, _ := cmd.Flags().GetInt("years")
		start, end := marketdata.DefaultRange(time.Now().UTC())

		rep, err := a.valuation.Run(cmd.Context(), valuation.Request{
			Ticker:    ticker,
			Start:     start,
			End:       end,
			Peers:     cfg.PeerTickers,
			Overrides: overrides,
			Years:     years,
		})
		if err != nil {
			return err
		}

		fmt.Printf("DCF Valuation: %s\n", rep.Ticker)
		fmt.Printf("  Market Price:      %s\n", money(rep.Prices.Last()))
		fmt.Printf("  DCF Value/Share:   %s\n", money(rep.DCF.EquityValuePerShare))
		fmt.Printf("  Enterprise Value:  %s\n", money(rep.DCF.EnterpriseValue))
		fmt.Printf("  WACC:              %s\n", percent(rep.DCF.Inputs.WACC))
		fmt.Printf("  Terminal Growth:   %s\n", percent(rep.DCF.Inputs.TerminalGrowth))
		if rep.UsedPriceFallback || rep.UsedFundamentalsFallback {
			fmt.Println("  (synthetic fallback data in use)")
		}

		grid := rep.DCF.Sensitivity
		fmt.Println("\nSensitivity (value per share):")
		fmt.Printf("  %-12s", "")
		for _, c := range grid.ColLabels {
			fmt.Printf(" %10s", c)
		}
		fmt.Println()
		for i, r := range grid.RowLabels {
			fmt.Printf("  %-12s", r)
			for _, v := range grid.Values[i] {
				fmt.Printf(" %10s", num(v))
			}
			fmt.Println()
		}

		fmt.Println("\nComps:")
		fmt.Printf("  %-8s %10s %12s %8s\n", "Ticker", "P/E", "EV/EBITDA", "P/S")
		for _, row := range rep.Comps.Rows {
			fmt.Printf("  %-8s %10s %12s %8s\n", row.Ticker, num(row.PE), num(row.EVEBITDA), num(row.PS))
		}
		return nil
	},
}

func init() {
	valuationCmd.Flags().Int("years", 0, "projection horizon in years (default 5)")
	valuationCmd.Flags().StringSlice("set", nil, "override a DCF input, e.g. --set growth_rate=0.15")
}

// --- Risk Command ---

var riskCmd = &cobra.Command{
	Use:   "risk [ticker]",
	Short: "Run VaR and the supply chain stress test for a portfolio",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		ticker := tickerArg(args)
		shockPct, _ := cmd.Flags().GetFloat64("shock-pct")
		start, end := marketdata.DefaultRange(time.Now().UTC())

		result, err := a.risk.Analyze(cmd.Context(), risk.Request{
			Ticker:       ticker,
			Start:        start,
			End:          end,
			Peers:        cfg.PeerTickers,
			ShockTickers: cfg.ShockTickers,
			ShockPct:     shockPct,
		})
		if err != nil {
			return err
		}

		fmt.Printf("Risk Analysis: %s (+%d peers, %d observations)\n", result.Ticker, len(result.Tickers)-1, result.Observations)
		if result.Thin {
			fmt.Println("  WARNING: thin history, VaR estimates are unreliable")
		}
		if result.UsedFallback {
			fmt.Println("  (synthetic fallback data in use)")
		}

		fmt.Println("\nWeights:")
		for _, t := range result.Tickers {
			if w, ok := result.Weights[t]; ok {
				fmt.Printf("  %-8s %6.2f%%\n", t, w*100)
			}
		}

		fmt.Println("\nValue at Risk (1-day):")
		for _, method := range []string{"historical", "variance_covariance"} {
			levels := result.VaR[method]
			fmt.Printf("  %-22s var_95=%s  var_99=%s\n", method, percent(levels["var_95"]), percent(levels["var_99"]))
		}
		fmt.Printf("  %-22s cvar_95=%s  cvar_99=%s\n", "expected_shortfall",
			percent(result.CVaR["cvar_95"]), percent(result.CVaR["cvar_99"]))

		fmt.Println("\nStress Test:")
		fmt.Printf("  Shock:          %s on %s\n", percent(result.Stress.ShockPct), strings.Join(cfg.ShockTickers, ", "))
		fmt.Printf("  Portfolio Loss: %s\n", percent(result.Stress.PortfolioLoss))
		return nil
	},
}

func init() {
	riskCmd.Flags().Float64("shock-pct", -0.10, "fractional shock applied to supplier tickers")
}

// --- Run Command (full pipeline) ---

var runCmd = &cobra.Command{
	Use:     "run [ticker]",
	Aliases: []string{"full"},
	Short:   "Run the full pipeline: macro, supply, valuation, risk, memo",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		ticker := tickerArg(args)
		shockPct, _ := cmd.Flags().GetFloat64("shock-pct")
		start, end := marketdata.DefaultRange(time.Now().UTC())

		fmt.Printf("Running full analysis for %s...\n\n", ticker)

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
		defer cancel()

		result, err := a.orchestrator.AnalyzeCompany(ctx, analysis.Request{
			Ticker:       ticker,
			Start:        start,
			End:          end,
			Peers:        cfg.PeerTickers,
			ShockTickers: cfg.ShockTickers,
			ShockPct:     shockPct,
		})
		if err != nil {
			return err
		}

		hist := result.Risk.VaR["historical"]
		top := ""
		if len(result.Supply.Chokepoints) > 0 {
			c := result.Supply.Chokepoints[0]
			top = fmt.Sprintf("%s (%s)", c.Node, c.Country)
		}

		fmt.Printf("Summary: %s\n", result.Ticker)
		fmt.Printf("  %-16s %s\n", "Market Price", money(result.Valuation.Prices.Last()))
		fmt.Printf("  %-16s %s\n", "DCF Value", money(result.Valuation.DCF.EquityValuePerShare))
		fmt.Printf("  %-16s %s\n", "VaR 95%", percent(hist["var_95"]))
		fmt.Printf("  %-16s %s\n", "VaR 99%", percent(hist["var_99"]))
		fmt.Printf("  %-16s %s\n", "Top Chokepoint", top)

		fmt.Println("\nArtifacts:")
		for _, path := range result.Artifacts {
			fmt.Printf("  %s\n", path)
		}
		fmt.Printf("\nMemo: %s\n", result.ReportPath)
		fmt.Printf("      %s\n", result.ReportHTML)
		return nil
	},
}

func init() {
	runCmd.Flags().Float64("shock-pct", -0.10, "fractional shock applied to supplier tickers")
}

// --- Helpers ---

func tickerArg(args []string) string {
	if len(args) > 0 {
		return strings.ToUpper(args[0])
	}
	return cfg.DefaultTicker
}

func parseOverrides(cmd *cobra.Command) (map[string]float64, error) {
	pairs, _ := cmd.Flags().GetStringSlice("set")
	if len(pairs) == 0 {
		return nil, nil
	}

	overrides := make(map[string]float64, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found {
			return nil, fmt.Errorf("invalid override %q, expected key=value", pair)
		}
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid override value %q: %w", pair, err)
		}
		overrides[key] = v
	}
	return overrides, nil
}

func num(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func money(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return "$" + strconv.FormatFloat(v, 'f', 2, 64)
}

func percent(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return strconv.FormatFloat(v*100, 'f', 2, 64) + "%"
}
