package factor

import (
	"math"

	"quanta/internal/analysis/stat"
)

const (
	zScoreWindow    = 20
	sharpeWindow    = 30
	rsiPeriod       = 14
	rsiZWindow      = 20
	rocLookback     = 10
	annualizeFactor = 365

	// floor for the average loss so a loss-free window cannot divide by zero
	rsiLossEpsilon = 1e-10
)

// MomentumMetrics bundles the raw momentum estimators for one series.
type MomentumMetrics struct {
	ZScore  float64 `json:"z_score"`
	Sharpe  float64 `json:"sharpe"`
	Sortino float64 `json:"sortino"`
	RSI     float64 `json:"rsi"`
	RSIZ    float64 `json:"rsi_z"`
	ROC     float64 `json:"roc"`
}

// ComputeMomentum evaluates the momentum estimators on closing prices.
func ComputeMomentum(prices []float64) MomentumMetrics {
	return MomentumMetrics{
		ZScore:  priceZScore(prices, zScoreWindow),
		Sharpe:  SharpeRatio(prices, sharpeWindow),
		Sortino: SortinoRatio(prices, sharpeWindow),
		RSI:     RSI(prices, rsiPeriod),
		RSIZ:    rsiZScore(prices, rsiPeriod, rsiZWindow),
		ROC:     RateOfChange(prices, rocLookback),
	}
}

func priceZScore(prices []float64, window int) float64 {
	if len(prices) == 0 {
		return 0
	}
	if window > len(prices) {
		window = len(prices)
	}
	tail := prices[len(prices)-window:]
	sd := stat.StdDev(tail)
	if sd == 0 {
		return 0
	}
	return (prices[len(prices)-1] - stat.Mean(tail)) / sd
}

// SharpeRatio is the annualized mean log return over its standard deviation
// for the trailing window; 0 when the deviation vanishes.
func SharpeRatio(prices []float64, window int) float64 {
	rets := tailReturns(prices, window)
	sd := stat.StdDev(rets)
	if sd == 0 {
		return 0
	}
	return stat.Mean(rets) / sd * math.Sqrt(annualizeFactor)
}

// SortinoRatio is the Sharpe variant that penalizes only downside returns.
// With no usable downside it degenerates to 100 for a positive mean return
// and 0 otherwise.
func SortinoRatio(prices []float64, window int) float64 {
	rets := tailReturns(prices, window)
	if len(rets) == 0 {
		return 0
	}
	var downside []float64
	for _, r := range rets {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	sd := stat.StdDev(downside)
	if sd == 0 {
		if stat.Mean(rets) > 0 {
			return 100
		}
		return 0
	}
	return stat.Mean(rets) / sd * math.Sqrt(annualizeFactor)
}

// RSI is the classic simple-average relative strength index: average gain
// over average loss across the trailing period, mapped to [0,100]. The
// average loss is floored at a tiny epsilon. Change-free windows are neutral.
func RSI(prices []float64, period int) float64 {
	return rsiAt(prices, len(prices), period)
}

// rsiAt computes the RSI for the series truncated to the first end prices.
func rsiAt(prices []float64, end, period int) float64 {
	if period <= 0 || end < 2 {
		return 50
	}
	if end > len(prices) {
		end = len(prices)
	}
	start := end - period - 1
	if start < 0 {
		start = 0
	}
	window := prices[start:end]
	var gains, losses float64
	changes := 0
	for i := 1; i < len(window); i++ {
		d := window[i] - window[i-1]
		if d > 0 {
			gains += d
		} else {
			losses -= d
		}
		changes++
	}
	if changes == 0 {
		return 50
	}
	avgGain := gains / float64(changes)
	avgLoss := losses / float64(changes)
	if avgLoss < rsiLossEpsilon {
		avgLoss = rsiLossEpsilon
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// rsiZScore is the z-score of the current RSI against RSI values recomputed
// at each offset within the trailing window. Quadratic in the window size,
// fine at these data lengths.
func rsiZScore(prices []float64, period, window int) float64 {
	if len(prices) < period+2 {
		return 0
	}
	if window > len(prices)-1 {
		window = len(prices) - 1
	}
	history := make([]float64, 0, window)
	for off := 0; off < window; off++ {
		end := len(prices) - off
		if end < 2 {
			break
		}
		history = append(history, rsiAt(prices, end, period))
	}
	sd := stat.StdDev(history)
	if sd == 0 {
		return 0
	}
	current := history[0]
	return (current - stat.Mean(history)) / sd
}

// RateOfChange is the simple percentage change over the lookback.
func RateOfChange(prices []float64, lookback int) float64 {
	if lookback <= 0 || len(prices) <= lookback {
		return 0
	}
	base := prices[len(prices)-1-lookback]
	if base == 0 {
		return 0
	}
	return (prices[len(prices)-1] - base) / base * 100
}

func tailReturns(prices []float64, window int) []float64 {
	rets := stat.LogReturns(prices)
	if len(rets) > window {
		rets = rets[len(rets)-window:]
	}
	return rets
}
