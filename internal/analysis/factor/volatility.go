package factor

import (
	"math"

	"quanta/internal/analysis/stat"
)

// VolRegime labels the short-vs-long volatility relationship.
type VolRegime string

const (
	VolRegimeHigh   VolRegime = "high"
	VolRegimeNormal VolRegime = "normal"
	VolRegimeLow    VolRegime = "low"
)

const (
	volShortWindow = 30
	volLongWindow  = 365
	atrPeriod      = 14

	volRegimeHighRatio = 1.5
	volRegimeLowRatio  = 0.7
)

// VolatilityMetrics bundles the raw volatility estimators for one series.
type VolatilityMetrics struct {
	Historical  float64   `json:"historical"`
	Parkinson   float64   `json:"parkinson"`
	GarmanKlass float64   `json:"garman_klass"`
	ATR         float64   `json:"atr"`
	Regime      VolRegime `json:"regime"`
}

// ComputeVolatility evaluates close-to-close and range-based volatility.
// Opens/highs/lows must be aligned 1:1 with prices.
func ComputeVolatility(prices, opens, highs, lows []float64) VolatilityMetrics {
	return VolatilityMetrics{
		Historical:  HistoricalVolatility(prices, volShortWindow),
		Parkinson:   ParkinsonVolatility(highs, lows, volShortWindow),
		GarmanKlass: GarmanKlassVolatility(opens, highs, lows, prices, volShortWindow),
		ATR:         ATR(highs, lows, prices, atrPeriod),
		Regime:      volatilityRegime(prices),
	}
}

// HistoricalVolatility is the annualized standard deviation of trailing log
// returns, as a percentage.
func HistoricalVolatility(prices []float64, window int) float64 {
	rets := tailReturns(prices, window)
	return stat.StdDev(rets) * math.Sqrt(annualizeFactor) * 100
}

// ParkinsonVolatility uses only the high/low range: variance is the sum of
// squared log ranges over the window normalized by 4·w·ln2, then annualized.
func ParkinsonVolatility(highs, lows []float64, window int) float64 {
	n := len(highs)
	if n == 0 || len(lows) != n {
		return 0
	}
	if window > n {
		window = n
	}
	var sum float64
	count := 0
	for i := n - window; i < n; i++ {
		if highs[i] <= 0 || lows[i] <= 0 || highs[i] < lows[i] {
			continue
		}
		r := math.Log(highs[i] / lows[i])
		sum += r * r
		count++
	}
	if count == 0 {
		return 0
	}
	variance := sum / (4 * float64(count) * math.Ln2)
	return math.Sqrt(variance*annualizeFactor) * 100
}

// GarmanKlassVolatility combines high/low and open/close log ratios per bar.
func GarmanKlassVolatility(opens, highs, lows, closes []float64, window int) float64 {
	n := len(closes)
	if n == 0 || len(opens) != n || len(highs) != n || len(lows) != n {
		return 0
	}
	if window > n {
		window = n
	}
	var sum float64
	count := 0
	for i := n - window; i < n; i++ {
		if highs[i] <= 0 || lows[i] <= 0 || opens[i] <= 0 || closes[i] <= 0 {
			continue
		}
		hl := math.Log(highs[i] / lows[i])
		co := math.Log(closes[i] / opens[i])
		sum += 0.5*hl*hl - (2*math.Ln2-1)*co*co
		count++
	}
	if count == 0 {
		return 0
	}
	variance := sum / float64(count)
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance*annualizeFactor) * 100
}

// ATR is the simple mean of the true range over the trailing period.
func ATR(highs, lows, closes []float64, period int) float64 {
	n := len(closes)
	if n < 2 || len(highs) != n || len(lows) != n || period <= 0 {
		return 0
	}
	start := n - period
	if start < 1 {
		start = 1
	}
	var sum float64
	count := 0
	for i := start; i < n; i++ {
		tr := highs[i] - lows[i]
		if d := math.Abs(highs[i] - closes[i-1]); d > tr {
			tr = d
		}
		if d := math.Abs(lows[i] - closes[i-1]); d > tr {
			tr = d
		}
		sum += tr
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// volatilityRegime compares the short-window historical volatility to the
// long-window one. Without enough history for the long window the regime is
// Normal rather than a guess.
func volatilityRegime(prices []float64) VolRegime {
	if len(prices) < volLongWindow+1 {
		return VolRegimeNormal
	}
	long := HistoricalVolatility(prices, volLongWindow)
	if long == 0 {
		return VolRegimeNormal
	}
	ratio := HistoricalVolatility(prices, volShortWindow) / long
	switch {
	case ratio > volRegimeHighRatio:
		return VolRegimeHigh
	case ratio < volRegimeLowRatio:
		return VolRegimeLow
	default:
		return VolRegimeNormal
	}
}
