package valuation

import (
	"fmt"
	"math"
)

// DefaultProjectionYears is the explicit forecast horizon of the FCFF model.
const DefaultProjectionYears = 5

// SensitivityGrid is a small WACC-by-terminal-growth grid of per-share values.
// Cells where WACC <= g carry NaN because the Gordon terminal value is
// undefined there.
type SensitivityGrid struct {
	RowLabels []string    `json:"row_labels"`
	ColLabels []string    `json:"col_labels"`
	Values    [][]float64 `json:"values"`
}

// DCFResult holds the full output of a DCF run.
type DCFResult struct {
	Inputs              DCFInputs       `json:"inputs"`
	Years               int             `json:"years"`
	FCFF                []float64       `json:"fcff"`
	PresentValue        []float64       `json:"present_value"`
	TerminalValue       float64         `json:"terminal_value"`
	EnterpriseValue     float64         `json:"enterprise_value"`
	EquityValue         float64         `json:"equity_value"`
	EquityValuePerShare float64         `json:"equity_value_per_share"`
	Sensitivity         SensitivityGrid `json:"sensitivity"`
}

// RunDCF projects free cash flow to the firm over the given horizon,
// discounts it together with a Gordon-growth terminal value, and attaches a
// 3x3 WACC/growth sensitivity grid.
func RunDCF(inputs DCFInputs, years int) (DCFResult, error) {
	if years < 1 {
		return DCFResult{}, fmt.Errorf("projection horizon must be at least 1 year, got %d", years)
	}

	revenue := inputs.Revenue
	fcff := make([]float64, years)
	pv := make([]float64, years)
	for year := 1; year <= years; year++ {
		revenue *= 1 + inputs.RevenueGrowth
		ebit := revenue * inputs.EBITMargin
		nopat := ebit - ebit*inputs.TaxRate
		reinvestment := revenue * inputs.ReinvestmentRate
		fcff[year-1] = nopat - reinvestment
		pv[year-1] = fcff[year-1] / math.Pow(1+inputs.WACC, float64(year))
	}

	finalFCFF := fcff[years-1]
	terminalCashFlow := finalFCFF * (1 + inputs.TerminalGrowth)
	terminalValue := terminalCashFlow / (inputs.WACC - inputs.TerminalGrowth)
	if inputs.WACC <= inputs.TerminalGrowth {
		terminalValue = math.NaN()
	}
	terminalPV := terminalValue / math.Pow(1+inputs.WACC, float64(years))

	pvSum := 0.0
	for _, v := range pv {
		pvSum += v
	}

	enterpriseValue := pvSum + terminalPV
	equityValue := enterpriseValue - inputs.NetDebt
	perShare := equityValue / math.Max(inputs.SharesOutstanding, 1)

	return DCFResult{
		Inputs:              inputs,
		Years:               years,
		FCFF:                fcff,
		PresentValue:        pv,
		TerminalValue:       terminalValue,
		EnterpriseValue:     enterpriseValue,
		EquityValue:         equityValue,
		EquityValuePerShare: perShare,
		Sensitivity:         sensitivityGrid(inputs, fcff, years),
	}, nil
}

// sensitivityGrid revalues the company per share across WACC +/- 2pp and
// terminal growth +/- 1pp. The projected FCFF path is held fixed; only the
// discounting and terminal value are recomputed per cell.
func sensitivityGrid(inputs DCFInputs, fcff []float64, years int) SensitivityGrid {
	waccValues := []float64{
		math.Max(inputs.WACC-0.02, 0.01),
		inputs.WACC,
		inputs.WACC + 0.02,
	}
	growthValues := []float64{
		inputs.TerminalGrowth - 0.01,
		inputs.TerminalGrowth,
		inputs.TerminalGrowth + 0.01,
	}

	grid := SensitivityGrid{
		RowLabels: make([]string, len(waccValues)),
		ColLabels: make([]string, len(growthValues)),
		Values:    make([][]float64, len(waccValues)),
	}
	for i, w := range waccValues {
		grid.RowLabels[i] = fmt.Sprintf("WACC %.2f%%", w*100)
	}
	for j, g := range growthValues {
		grid.ColLabels[j] = fmt.Sprintf("g %.2f%%", g*100)
	}

	finalFCFF := fcff[years-1]
	for i, w := range waccValues {
		grid.Values[i] = make([]float64, len(growthValues))
		for j, g := range growthValues {
			if w <= g {
				grid.Values[i][j] = math.NaN()
				continue
			}
			tv := finalFCFF * (1 + g) / (w - g)
			pvSum := 0.0
			for year := 1; year <= years; year++ {
				pvSum += fcff[year-1] / math.Pow(1+w, float64(year))
			}
			equity := pvSum + tv/math.Pow(1+w, float64(years)) - inputs.NetDebt
			grid.Values[i][j] = equity / math.Max(inputs.SharesOutstanding, 1)
		}
	}
	return grid
}
