package formulas

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// HistoricalVaR calculates historical Value-at-Risk at the given confidence
// level: the negative of the (1-confidence) percentile of the return
// distribution, so a 95% VaR reads the 5th percentile. The result is a loss
// magnitude (positive for a losing tail).
func HistoricalVaR(returns []float64, confidence float64) float64 {
	if len(returns) == 0 {
		return 0.0
	}
	return -Percentile(returns, (1-confidence)*100)
}

// VarianceCovarianceVaR calculates parametric (variance-covariance) VaR
// assuming normally distributed returns: -(mean + z(1-confidence) * std),
// where std is the population standard deviation.
func VarianceCovarianceVaR(returns []float64, confidence float64) float64 {
	if len(returns) == 0 {
		return 0.0
	}
	mean := Mean(returns)
	std := PopStdDev(returns)
	z := distuv.UnitNormal.Quantile(1 - confidence)
	return -(mean + z*std)
}

// CalculateCVaR calculates Conditional Value at Risk at the specified
// confidence level: the average of returns in the worst (1-confidence) tail.
func CalculateCVaR(returns []float64, confidence float64) float64 {
	if len(returns) == 0 {
		return 0.0
	}
	if len(returns) == 1 {
		return returns[0]
	}

	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	tailCount := int(math.Ceil(float64(len(sorted)) * (1.0 - confidence)))
	if tailCount == 0 {
		tailCount = 1
	}
	if tailCount > len(sorted) {
		tailCount = len(sorted)
	}

	sum := 0.0
	for _, r := range sorted[:tailCount] {
		sum += r
	}
	return sum / float64(tailCount)
}
