// Package report composes the analysis outputs into a Markdown memo and an
// HTML rendering of it.
package report

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/rs/zerolog"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/stratalpha/stratalpha/internal/modules/macro"
	"github.com/stratalpha/stratalpha/internal/modules/risk"
	"github.com/stratalpha/stratalpha/internal/modules/supply"
	"github.com/stratalpha/stratalpha/internal/modules/valuation"
)

// TechnicalSnapshot carries trend and momentum readings of the target's
// price series. Nil fields mean the series was too short.
type TechnicalSnapshot struct {
	LastPrice float64  `json:"last_price"`
	SMA20     *float64 `json:"sma_20"`
	EMA12     *float64 `json:"ema_12"`
	RSI14     *float64 `json:"rsi_14"`
}

// MemoData is everything the memo template needs.
type MemoData struct {
	Ticker      string
	GeneratedAt time.Time
	Macro       macro.Snapshot
	Supply      supply.Result
	Valuation   valuation.Report
	Risk        risk.Result
	Technical   TechnicalSnapshot
}

const memoTemplate = `# {{.Ticker}} Strategic Memo

_Generated {{.GeneratedAt.Format "2006-01-02 15:04"}} UTC_

## Macro Context
- CPI YoY: {{f2 (index .Macro.Metrics "cpi_yoy")}}%
- Unemployment Rate: {{f2 (index .Macro.Metrics "unemployment_rate")}}%
- Fed Funds Rate: {{f2 (index .Macro.Metrics "fed_funds_rate")}}%
- Industrial Production YoY: {{f2 (index .Macro.Metrics "industrial_production_yoy")}}%

{{.Macro.Commentary}}

## Supply Chain Structure
Top chokepoints by betweenness:

| node | country | betweenness |
| --- | --- | --- |
{{- range .Supply.Chokepoints}}
| {{.Node}} | {{.Country}} | {{f4 .Betweenness}} |
{{- end}}

## Valuation Framework
- Market Price: ${{f2 .Valuation.Prices.Last}}
- DCF Intrinsic Value per Share: ${{f2 .Valuation.DCF.EquityValuePerShare}}
- Enterprise Value: {{num .Valuation.DCF.EnterpriseValue}}
- Equity Value: {{num .Valuation.DCF.EquityValue}}
- WACC: {{pct .Valuation.DCF.Inputs.WACC}} / Terminal Growth: {{pct .Valuation.DCF.Inputs.TerminalGrowth}}

Relative comps:

| ticker | price | pe | ev_ebitda | ps |
| --- | --- | --- | --- | --- |
{{- range .Valuation.Comps.Rows}}
| {{.Ticker}} | {{f2 .Price}} | {{f2 .PE}} | {{f2 .EVEBITDA}} | {{f2 .PS}} |
{{- end}}

## Technical Snapshot
- Last Price: ${{f2 .Technical.LastPrice}}
- SMA(20): {{opt .Technical.SMA20}}
- EMA(12): {{opt .Technical.EMA12}}
- RSI(14): {{opt .Technical.RSI14}}

## Risk Diagnostics
- Historical VaR 95%: {{pct (index (index .Risk.VaR "historical") "var_95")}}
- Historical VaR 99%: {{pct (index (index .Risk.VaR "historical") "var_99")}}
- Variance-Covariance VaR 95%: {{pct (index (index .Risk.VaR "variance_covariance") "var_95")}}
- Variance-Covariance VaR 99%: {{pct (index (index .Risk.VaR "variance_covariance") "var_99")}}
- Expected Shortfall 95%: {{pct (index .Risk.CVaR "cvar_95")}}
- Expected Shortfall 99%: {{pct (index .Risk.CVaR "cvar_99")}}

Stress test (concentrated supplier outage proxy):
- Shock applied: {{pct .Risk.Stress.ShockPct}}
- Portfolio loss: {{pct .Risk.Stress.PortfolioLoss}}

## What Matters
1. Macro momentum moderates; watch inflation trend vs. Fed path.
2. Supply chain chokepoints concentrate in a handful of foundry partners.
3. DCF upside hinges on sustaining high reinvestment efficiency.
4. Tail risk dominated by concentrated fab exposure; monitor geopolitical signals.
`

// Generator renders memos into the reports directory.
type Generator struct {
	dir  string
	tmpl *template.Template
	md   goldmark.Markdown
	log  zerolog.Logger
}

// NewGenerator creates a memo generator rooted at dir.
func NewGenerator(dir string, log zerolog.Logger) *Generator {
	tmpl := template.Must(template.New("memo").Funcs(template.FuncMap{
		"f2":  func(v float64) string { return formatFloat(v, 2) },
		"f4":  func(v float64) string { return formatFloat(v, 4) },
		"pct": formatPercent,
		"num": formatNumber,
		"opt": formatOptional,
	}).Parse(memoTemplate))

	return &Generator{
		dir:  dir,
		tmpl: tmpl,
		md:   goldmark.New(goldmark.WithExtensions(extension.GFM)),
		log:  log.With().Str("component", "report").Logger(),
	}
}

// Render produces the memo Markdown.
func (g *Generator) Render(data MemoData) (string, error) {
	var buf bytes.Buffer
	if err := g.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render memo: %w", err)
	}
	return buf.String(), nil
}

// WriteMemo renders the memo and writes both the Markdown source and an HTML
// conversion. Returns the two file paths.
func (g *Generator) WriteMemo(data MemoData) (string, string, error) {
	markdown, err := g.Render(data)
	if err != nil {
		return "", "", err
	}

	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return "", "", fmt.Errorf("failed to create reports dir: %w", err)
	}

	base := strings.ToUpper(data.Ticker) + "_memo"
	mdPath := filepath.Join(g.dir, base+".md")
	if err := os.WriteFile(mdPath, []byte(markdown), 0o644); err != nil {
		return "", "", fmt.Errorf("failed to write memo: %w", err)
	}

	var html bytes.Buffer
	if err := g.md.Convert([]byte(markdown), &html); err != nil {
		return "", "", fmt.Errorf("failed to convert memo to HTML: %w", err)
	}
	htmlPath := filepath.Join(g.dir, base+".html")
	if err := os.WriteFile(htmlPath, html.Bytes(), 0o644); err != nil {
		return "", "", fmt.Errorf("failed to write memo HTML: %w", err)
	}

	g.log.Info().Str("markdown", mdPath).Str("html", htmlPath).Msg("Memo written")
	return mdPath, htmlPath, nil
}

func formatFloat(v float64, prec int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%.*f", prec, v)
}

func formatPercent(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", v*100)
}

// formatNumber renders large values with B/M/K suffixes.
func formatNumber(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	abs := math.Abs(v)
	switch {
	case abs >= 1e9:
		return fmt.Sprintf("%.1fB", v/1e9)
	case abs >= 1e6:
		return fmt.Sprintf("%.1fM", v/1e6)
	case abs >= 1e3:
		return fmt.Sprintf("%.1fK", v/1e3)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}

func formatOptional(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return formatFloat(*v, 2)
}
