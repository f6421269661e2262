// Package risk implements portfolio VaR estimation and deterministic stress
// scenarios over a target-plus-peers basket.
package risk

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/stratalpha/stratalpha/internal/domain"
)

// PriceFrame is a date-aligned price matrix for a set of tickers. Cells with
// no observation hold NaN.
type PriceFrame struct {
	Dates   []string
	Tickers []string
	prices  *mat.Dense
}

// NewPriceFrame aligns the given series on the union of their dates.
// ISO dates sort lexicographically, so plain string sorting keeps the frame
// chronological.
func NewPriceFrame(series []domain.PriceSeries) *PriceFrame {
	dateSet := make(map[string]bool)
	tickers := make([]string, 0, len(series))
	for _, s := range series {
		tickers = append(tickers, s.Ticker)
		for _, d := range s.Dates {
			dateSet[d] = true
		}
	}

	dates := make([]string, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	dateIndex := make(map[string]int, len(dates))
	for i, d := range dates {
		dateIndex[d] = i
	}

	prices := mat.NewDense(max(len(dates), 1), max(len(tickers), 1), nil)
	for i := 0; i < len(dates); i++ {
		for j := 0; j < len(tickers); j++ {
			prices.Set(i, j, math.NaN())
		}
	}
	for j, s := range series {
		for k, d := range s.Dates {
			prices.Set(dateIndex[d], j, s.Prices[k])
		}
	}

	return &PriceFrame{Dates: dates, Tickers: tickers, prices: prices}
}

// Price returns the price cell for a date/ticker index pair.
func (f *PriceFrame) Price(dateIdx, tickerIdx int) float64 {
	return f.prices.At(dateIdx, tickerIdx)
}

// Latest returns the most recent observed price for the ticker, or NaN when
// the column is entirely empty.
func (f *PriceFrame) Latest(ticker string) float64 {
	j := f.tickerIndex(ticker)
	if j < 0 {
		return math.NaN()
	}
	for i := len(f.Dates) - 1; i >= 0; i-- {
		if v := f.prices.At(i, j); !math.IsNaN(v) {
			return v
		}
	}
	return math.NaN()
}

// HasTicker reports whether the ticker column exists and has at least one
// observation.
func (f *PriceFrame) HasTicker(ticker string) bool {
	return !math.IsNaN(f.Latest(ticker))
}

// HasReturns reports whether the ticker contributes at least one computable
// return: two observations on consecutive frame dates with a positive
// earlier price. A column with a single isolated price has a latest price
// but no returns.
func (f *PriceFrame) HasReturns(ticker string) bool {
	j := f.tickerIndex(ticker)
	if j < 0 {
		return false
	}
	for i := 1; i < len(f.Dates); i++ {
		prev := f.prices.At(i-1, j)
		cur := f.prices.At(i, j)
		if !math.IsNaN(prev) && prev > 0 && !math.IsNaN(cur) {
			return true
		}
	}
	return false
}

func (f *PriceFrame) tickerIndex(ticker string) int {
	for j, t := range f.Tickers {
		if t == ticker {
			return j
		}
	}
	return -1
}

// Returns computes simple daily returns per ticker. Dates where no ticker
// has a computable return are dropped entirely; in the remaining rows, cells
// with a missing or non-positive previous price, or a missing current price,
// become 0.0 so a gap in one series never poisons the whole row.
func (f *PriceFrame) Returns() *mat.Dense {
	if len(f.Dates) < 2 || len(f.Tickers) == 0 {
		return nil
	}

	var rows [][]float64
	for i := 1; i < len(f.Dates); i++ {
		row := make([]float64, len(f.Tickers))
		computable := false
		for j := range f.Tickers {
			prev := f.prices.At(i-1, j)
			cur := f.prices.At(i, j)
			if math.IsNaN(prev) || prev <= 0 || math.IsNaN(cur) {
				continue
			}
			row[j] = cur/prev - 1
			computable = true
		}
		if computable {
			rows = append(rows, row)
		}
	}
	if len(rows) == 0 {
		return nil
	}

	returns := mat.NewDense(len(rows), len(f.Tickers), nil)
	for i, row := range rows {
		returns.SetRow(i, row)
	}
	return returns
}

// PortfolioReturns collapses the return matrix into a single weighted series.
// Weights are aligned to the frame's ticker order; absent tickers weigh zero.
func (f *PriceFrame) PortfolioReturns(returns *mat.Dense, weights map[string]float64) []float64 {
	if returns == nil {
		return nil
	}
	rows, _ := returns.Dims()
	w := mat.NewVecDense(len(f.Tickers), nil)
	for j, t := range f.Tickers {
		w.SetVec(j, weights[t])
	}

	var portfolio mat.VecDense
	portfolio.MulVec(returns, w)

	out := make([]float64, rows)
	for i := range out {
		out[i] = portfolio.AtVec(i)
	}
	return out
}
