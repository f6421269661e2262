// Package valuation implements intrinsic (DCF) and relative (comps)
// valuation for a target company and its peer set.
package valuation

import (
	"fmt"
	"math"

	"github.com/stratalpha/stratalpha/internal/domain"
)

// DCFInputs are the parameters of the simplified FCFF model.
type DCFInputs struct {
	Revenue           float64 `json:"revenue"`
	RevenueGrowth     float64 `json:"revenue_growth"`
	EBITMargin        float64 `json:"ebit_margin"`
	TaxRate           float64 `json:"tax_rate"`
	ReinvestmentRate  float64 `json:"reinvestment_rate"`
	WACC              float64 `json:"wacc"`
	TerminalGrowth    float64 `json:"terminal_growth"`
	SharesOutstanding float64 `json:"shares_outstanding"`
	NetDebt           float64 `json:"net_debt"`
}

// CAPM assumptions used when deriving the baseline cost of equity.
const (
	riskFreeRate = 0.04
	marketReturn = 0.09
)

// BaselineInputs derives DCF inputs from fundamentals, substituting large-cap
// defaults for any metric the provider could not supply. lastPrice is the
// most recent close of the target's price series.
func BaselineInputs(fund domain.Fundamentals, lastPrice float64) DCFInputs {
	revenue := fund.Lookup("totalRevenue", 30_000_000_000)
	revenueGrowth := fund.Lookup("revenueGrowth", 0.12)
	ebitMargin := fund.Lookup("ebitdaMargins", 0.35)
	taxRate := fund.Lookup("effectiveTaxRate", 0.15)
	reinvestmentRate := fund.Lookup("capitalSpendingGrowth", 0.25)
	beta := fund.Lookup("beta", 1.2)
	costOfDebt := fund.Lookup("yield", fund.Lookup("costToRevenue", 0.045))
	shares := fund.Lookup("sharesOutstanding", 2_470_000_000)
	totalDebt := fund.Lookup("totalDebt", 0)
	cash := fund.Lookup("totalCash", 0)
	netDebt := totalDebt - cash
	marketCap := lastPrice * shares

	costOfEquity := riskFreeRate + beta*(marketReturn-riskFreeRate)

	debtShare := math.Max(totalDebt, 0)
	equityShare := math.Max(marketCap, 1)
	totalCapital := debtShare + equityShare

	wacc := costOfEquity
	if totalCapital != 0 {
		wacc = costOfEquity*(equityShare/totalCapital) +
			costOfDebt*(1-taxRate)*(debtShare/totalCapital)
	}

	terminalGrowth := fund.Lookup("fiveYearAvgDividendYield", 0.03)

	return DCFInputs{
		Revenue:           revenue,
		RevenueGrowth:     revenueGrowth,
		EBITMargin:        ebitMargin,
		TaxRate:           taxRate,
		ReinvestmentRate:  reinvestmentRate,
		WACC:              wacc,
		TerminalGrowth:    terminalGrowth,
		SharesOutstanding: shares,
		NetDebt:           netDebt,
	}
}

// Override returns a copy of the inputs with the given fields replaced.
// Keys use the snake_case field names from the JSON encoding.
func (in DCFInputs) Override(overrides map[string]float64) (DCFInputs, error) {
	out := in
	for key, value := range overrides {
		switch key {
		case "revenue":
			out.Revenue = value
		case "revenue_growth":
			out.RevenueGrowth = value
		case "ebit_margin":
			out.EBITMargin = value
		case "tax_rate":
			out.TaxRate = value
		case "reinvestment_rate":
			out.ReinvestmentRate = value
		case "wacc":
			out.WACC = value
		case "terminal_growth":
			out.TerminalGrowth = value
		case "shares_outstanding":
			out.SharesOutstanding = value
		case "net_debt":
			out.NetDebt = value
		default:
			return DCFInputs{}, fmt.Errorf("unknown DCF input %q", key)
		}
	}
	return out, nil
}
