package factor

import (
	"math"

	"quanta/internal/analysis/stat"
)

// Direction classifies the prevailing price direction.
type Direction string

const (
	DirectionUp       Direction = "up"
	DirectionDown     Direction = "down"
	DirectionSideways Direction = "sideways"
)

const (
	slopeWindow      = 20
	hurstMaxLag      = 20
	macdFastPeriod   = 12
	macdSlowPeriod   = 26
	macdSignalPeriod = 9

	// normalized slope beyond ±0.5% counts as a directional move
	directionSlopeGate = 0.5
)

// TrendMetrics bundles the raw trend estimators for one series.
type TrendMetrics struct {
	Slope      float64   `json:"slope"`
	Hurst      float64   `json:"hurst"`
	MACD       float64   `json:"macd"`
	MACDSignal float64   `json:"macd_signal"`
	MACDHist   float64   `json:"macd_hist"`
	Direction  Direction `json:"direction"`
}

// ComputeTrend evaluates slope, Hurst exponent and MACD on closing prices.
func ComputeTrend(prices []float64) TrendMetrics {
	slope := RegressionSlope(prices, slopeWindow)
	macd, signal, hist := MACD(prices)
	return TrendMetrics{
		Slope:      slope,
		Hurst:      HurstExponent(prices),
		MACD:       macd,
		MACDSignal: signal,
		MACDHist:   hist,
		Direction:  classifyDirection(slope),
	}
}

// RegressionSlope fits an OLS line to the last window prices against the bar
// index and returns the slope normalized by the window's mean price, as a
// percentage per bar. Degenerate windows return 0.
func RegressionSlope(prices []float64, window int) float64 {
	if window <= 1 || len(prices) < 2 {
		return 0
	}
	if window > len(prices) {
		window = len(prices)
	}
	tail := prices[len(prices)-window:]
	n := float64(window)
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range tail {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	slope := (n*sumXY - sumX*sumY) / denom
	mean := sumY / n
	if mean == 0 {
		return 0
	}
	return slope / mean * 100
}

// HurstExponent estimates the Hurst exponent of the price series via
// rescaled-range analysis on log returns, regressing ln(R/S) on ln(lag) for
// lags 2..min(hurstMaxLag, n/2). The result is clamped to [0,1]; series too
// short for a regression come back as the neutral 0.5.
func HurstExponent(prices []float64) float64 {
	returns := stat.LogReturns(prices)
	maxLag := len(returns) / 2
	if maxLag > hurstMaxLag {
		maxLag = hurstMaxLag
	}
	if maxLag < 2 {
		return 0.5
	}
	var logLags, logRS []float64
	for lag := 2; lag <= maxLag; lag++ {
		rs := rescaledRange(returns, lag)
		if rs <= 0 {
			continue
		}
		logLags = append(logLags, math.Log(float64(lag)))
		logRS = append(logRS, math.Log(rs))
	}
	if len(logLags) < 2 {
		return 0.5
	}
	h := olsSlope(logLags, logRS)
	if math.IsNaN(h) || math.IsInf(h, 0) {
		return 0.5
	}
	return stat.Clamp(h, 0, 1)
}

// rescaledRange averages R/S over the non-overlapping blocks of the given
// length; blocks with zero dispersion are skipped.
func rescaledRange(returns []float64, lag int) float64 {
	blocks := len(returns) / lag
	if blocks == 0 {
		return 0
	}
	var sum float64
	var count int
	for b := 0; b < blocks; b++ {
		chunk := returns[b*lag : (b+1)*lag]
		s := stat.StdDev(chunk)
		if s == 0 {
			continue
		}
		mean := stat.Mean(chunk)
		var cum, minCum, maxCum float64
		for _, r := range chunk {
			cum += r - mean
			if cum < minCum {
				minCum = cum
			}
			if cum > maxCum {
				maxCum = cum
			}
		}
		sum += (maxCum - minCum) / s
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// MACD returns the last MACD line, signal line and histogram values using the
// shared EMA (12/26 line, 9 signal).
func MACD(prices []float64) (line, signal, hist float64) {
	if len(prices) == 0 {
		return 0, 0, 0
	}
	fast := stat.EMA(prices, macdFastPeriod)
	slow := stat.EMA(prices, macdSlowPeriod)
	macdLine := make([]float64, len(prices))
	for i := range prices {
		macdLine[i] = fast[i] - slow[i]
	}
	signalLine := stat.EMA(macdLine, macdSignalPeriod)
	last := len(prices) - 1
	return macdLine[last], signalLine[last], macdLine[last] - signalLine[last]
}

func classifyDirection(slope float64) Direction {
	switch {
	case slope > directionSlopeGate:
		return DirectionUp
	case slope < -directionSlopeGate:
		return DirectionDown
	default:
		return DirectionSideways
	}
}

func olsSlope(x, y []float64) float64 {
	n := float64(len(x))
	var sumX, sumY, sumXY, sumXX float64
	for i := range x {
		sumX += x[i]
		sumY += y[i]
		sumXY += x[i] * y[i]
		sumXX += x[i] * x[i]
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return math.NaN()
	}
	return (n*sumXY - sumX*sumY) / denom
}
