package decision

import (
	"quanta/internal/analysis/factor"
	"quanta/internal/analysis/stat"
)

const (
	buyThreshold  = 65
	sellThreshold = 35

	longTrendPeriod = 200

	bullTrendGate    = 60.0
	bullMomentumGate = 55.0
	bullRiskGate     = 50.0
	bearTrendGate    = 40.0
	bearMomentumGate = 45.0
	bearRiskGate     = 60.0
)

// signalFor is a pure step function of the composite score. Stablecoins are
// forced to HOLD regardless of the score.
func signalFor(composite int, stable bool) Signal {
	if stable {
		return SignalHold
	}
	switch {
	case composite >= buyThreshold:
		return SignalBuy
	case composite <= sellThreshold:
		return SignalSell
	default:
		return SignalHold
	}
}

// classifyRegime derives bull/bear/sideways independently of the composite:
// bull needs the price above its long EMA plus aligned trend, momentum and
// risk; bear is the symmetric opposite; everything else is sideways.
func classifyRegime(prices []float64, trend factor.TrendMetrics, scores FactorScores) Regime {
	if len(prices) == 0 {
		return RegimeSideways
	}
	last := prices[len(prices)-1]
	ref := emaReference(prices, longTrendPeriod)
	switch {
	case last > ref &&
		trend.Direction == factor.DirectionUp &&
		scores.Trend > bullTrendGate &&
		scores.Momentum > bullMomentumGate &&
		scores.Risk < bullRiskGate:
		return RegimeBull
	case last < ref &&
		trend.Direction == factor.DirectionDown &&
		scores.Trend < bearTrendGate &&
		scores.Momentum < bearMomentumGate &&
		scores.Risk > bearRiskGate:
		return RegimeBear
	default:
		return RegimeSideways
	}
}

// emaReference is the long-EMA level the regime check compares against.
// Series shorter than the period cannot seed an EMA, so the whole-series
// mean stands in.
func emaReference(prices []float64, period int) float64 {
	if len(prices) < period {
		return stat.Mean(prices)
	}
	ema := stat.EMA(prices, period)
	return ema[len(ema)-1]
}

// confidenceFor rewards tight agreement between the factor scores and adds a
// bonus when the forecast is emphatic.
func confidenceFor(scores FactorScores, forecastProb float64) float64 {
	spread := stat.StdDev([]float64{
		scores.Trend, scores.Momentum, scores.Volatility,
		scores.Volume, scores.Risk, scores.Sentiment,
	})
	conf := 100 - 2*spread
	if conf < 50 {
		conf = 50
	}
	switch {
	case forecastProb > 70:
		conf += 10
	case forecastProb > 60:
		conf += 5
	}
	return stat.Clamp(conf, 0, 100)
}
