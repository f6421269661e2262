package valuation

import (
	"math"

	"github.com/stratalpha/stratalpha/internal/domain"
)

// CompsRow is one company's multiples in the comps table. Multiples that
// cannot be computed (missing inputs, non-positive EPS) are NaN.
type CompsRow struct {
	Ticker          string  `json:"ticker"`
	Price           float64 `json:"price"`
	MarketCap       float64 `json:"market_cap"`
	NetDebt         float64 `json:"net_debt"`
	EnterpriseValue float64 `json:"enterprise_value"`
	PE              float64 `json:"pe"`
	EVEBITDA        float64 `json:"ev_ebitda"`
	PS              float64 `json:"ps"`
}

// CompsTable is the cross-sectional multiples table, target row first.
type CompsTable struct {
	Rows []CompsRow `json:"rows"`
}

// compsMetrics are the multiple columns percentiles are computed over.
var compsMetrics = []string{"pe", "ev_ebitda", "ps"}

// BuildCompsTable assembles the multiples table for the target and its peers.
// The ticker list is deduplicated preserving order, target first. Tickers
// missing from fundamentals still get a row, with NaN multiples.
func BuildCompsTable(targetTicker string, peerTickers []string, fundamentals map[string]domain.Fundamentals) CompsTable {
	seen := make(map[string]bool)
	var tickers []string
	for _, t := range append([]string{targetTicker}, peerTickers...) {
		if !seen[t] {
			seen[t] = true
			tickers = append(tickers, t)
		}
	}

	table := CompsTable{Rows: make([]CompsRow, 0, len(tickers))}
	for _, t := range tickers {
		table.Rows = append(table.Rows, buildRow(t, fundamentals[t]))
	}
	return table
}

func buildRow(ticker string, fund domain.Fundamentals) CompsRow {
	nan := math.NaN()
	if fund == nil {
		fund = domain.Fundamentals{}
	}

	price := fund.Lookup("currentPrice", fund.Lookup("regularMarketPrice", nan))
	shares := fund.Lookup("sharesOutstanding", nan)

	marketCap, hasCap := fund.Get("marketCap")
	if !hasCap {
		if !math.IsNaN(price) && !math.IsNaN(shares) {
			marketCap = price * shares
		} else {
			marketCap = nan
		}
	}

	totalDebt := fund.Lookup("totalDebt", 0)
	cash := fund.Lookup("totalCash", 0)
	netDebt := totalDebt - cash

	ev := nan
	if !math.IsNaN(marketCap) {
		ev = marketCap + netDebt
	}

	ebitda := fund.Lookup("ebitda", nan)
	revenue := fund.Lookup("totalRevenue", nan)
	eps := fund.Lookup("trailingEps", nan)

	pe := nan
	if eps > 0 {
		pe = price / eps
	}

	evEbitda := nan
	if ev != 0 && !math.IsNaN(ev) && ebitda != 0 && !math.IsNaN(ebitda) {
		evEbitda = ev / ebitda
	}

	ps := nan
	if price != 0 && revenue != 0 && shares != 0 {
		ps = price / (revenue / shares)
	}

	return CompsRow{
		Ticker:          ticker,
		Price:           price,
		MarketCap:       marketCap,
		NetDebt:         netDebt,
		EnterpriseValue: ev,
		PE:              pe,
		EVEBITDA:        evEbitda,
		PS:              ps,
	}
}

func (r CompsRow) metric(name string) float64 {
	switch name {
	case "pe":
		return r.PE
	case "ev_ebitda":
		return r.EVEBITDA
	case "ps":
		return r.PS
	}
	return math.NaN()
}

// PeerPercentiles computes, for each multiple, the fraction of the table's
// valid values (target included) that lie at or below the target's value.
// A metric maps to nil when the target is absent, its own value is NaN, or
// the column has no valid values.
func PeerPercentiles(table CompsTable, targetTicker string) map[string]*float64 {
	percentiles := make(map[string]*float64, len(compsMetrics))
	for _, m := range compsMetrics {
		percentiles[m] = nil
	}

	var target *CompsRow
	for i := range table.Rows {
		if table.Rows[i].Ticker == targetTicker {
			target = &table.Rows[i]
			break
		}
	}
	if target == nil {
		return percentiles
	}

	for _, m := range compsMetrics {
		targetValue := target.metric(m)
		if math.IsNaN(targetValue) {
			continue
		}

		valid := 0
		atOrBelow := 0
		for _, row := range table.Rows {
			v := row.metric(m)
			if math.IsNaN(v) {
				continue
			}
			valid++
			if v <= targetValue {
				atOrBelow++
			}
		}
		if valid == 0 {
			continue
		}
		pct := float64(atOrBelow) / float64(valid)
		percentiles[m] = &pct
	}
	return percentiles
}
