package factor

import (
	"math"

	"quanta/internal/analysis/stat"
)

// RiskMetrics bundles the raw downside estimators for one series.
type RiskMetrics struct {
	Beta              float64 `json:"beta"`
	DownsideDeviation float64 `json:"downside_deviation"`
	MaxDrawdown       float64 `json:"max_drawdown"`
	VaR95             float64 `json:"var_95"`
	VaR99             float64 `json:"var_99"`
}

// ComputeRisk evaluates downside risk, with beta against the optional
// benchmark series (beta defaults to 1 without one).
func ComputeRisk(prices, benchmark []float64) RiskMetrics {
	rets := stat.LogReturns(prices)
	return RiskMetrics{
		Beta:              Beta(prices, benchmark),
		DownsideDeviation: downsideDeviation(rets),
		MaxDrawdown:       MaxDrawdown(prices),
		VaR95:             valueAtRisk(rets, 5),
		VaR99:             valueAtRisk(rets, 1),
	}
}

// Beta is cov(asset, benchmark) / var(benchmark) on log returns aligned to
// the common tail. Missing or degenerate benchmark data defaults to 1.
func Beta(prices, benchmark []float64) float64 {
	assetRets := stat.LogReturns(prices)
	benchRets := stat.LogReturns(benchmark)
	n := len(assetRets)
	if len(benchRets) < n {
		n = len(benchRets)
	}
	if n < 2 {
		return 1
	}
	assetRets = assetRets[len(assetRets)-n:]
	benchRets = benchRets[len(benchRets)-n:]
	variance := stat.Covariance(benchRets, benchRets)
	if variance == 0 {
		return 1
	}
	return stat.Covariance(assetRets, benchRets) / variance
}

// downsideDeviation is the annualized standard deviation of only the
// negative log returns, as a percentage.
func downsideDeviation(rets []float64) float64 {
	var downside []float64
	for _, r := range rets {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	return stat.StdDev(downside) * math.Sqrt(annualizeFactor) * 100
}

// MaxDrawdown is the largest peak-to-trough decline across the whole series,
// as a percentage. A non-decreasing series yields 0.
func MaxDrawdown(prices []float64) float64 {
	if len(prices) == 0 {
		return 0
	}
	peak := prices[0]
	var worst float64
	for _, p := range prices {
		if p > peak {
			peak = p
		}
		if peak > 0 {
			dd := (peak - p) / peak * 100
			if dd > worst {
				worst = dd
			}
		}
	}
	return worst
}

// valueAtRisk is the absolute percentile of the log-return distribution, as
// a percentage (5 → VaR95, 1 → VaR99).
func valueAtRisk(rets []float64, percentile float64) float64 {
	if len(rets) == 0 {
		return 0
	}
	return math.Abs(stat.Percentile(rets, percentile)) * 100
}
