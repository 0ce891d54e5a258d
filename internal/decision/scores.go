package decision

import (
	"math"

	"quanta/internal/analysis/factor"
	"quanta/internal/analysis/stat"
)

// Score tables. Every breakpoint lives here so the curves can be audited and
// unit-tested in isolation from the pipeline.

var trendWeights = struct{ Slope, Hurst, MACD float64 }{0.4, 0.3, 0.3}

const (
	// normalized slope of ±2% maps to the ends of the 0-100 scale
	trendSlopeSpan = 2.0
	// gain applied to the MACD histogram (as % of last price) around 50
	trendMACDGain       = 10.0
	trendDirectionBonus = 10.0
)

var momentumWeights = struct{ Z, Sharpe, Sortino, RSI, RSIZ, ROC float64 }{
	0.20, 0.20, 0.15, 0.15, 0.10, 0.20,
}

const (
	momentumZGain       = 20.0
	momentumSharpeGain  = 10.0
	momentumSortinoGain = 10.0
	momentumRSIZGain    = 20.0
	momentumROCGain     = 2.0
)

// Four-segment volatility curve over the mean annualized estimate (%):
// below volCalmEdge the score climbs out of the flatline penalty, the
// volCalmEdge..volSweetEdge band is the tradeable peak, then two declining
// segments penalize elevated and chaotic volatility.
const (
	volCalmEdge     = 5.0
	volSweetEdge    = 30.0
	volElevatedEdge = 50.0

	volFloorScore    = 30.0
	volPeakScore     = 80.0
	volElevatedSlope = 2.0
	volChaosBase     = 40.0
	volChaosSlope    = 0.6
	volChaosFloor    = 10.0

	volRegimeHighPenalty = -10.0
	volRegimeLowPenalty  = -5.0
	volRegimeNormalBonus = 5.0
)

const (
	volumeZBase    = 25.0
	volumeZGain    = 12.5
	volumeZCap     = 50.0
	volumeMFIScale = 0.5

	volumeStrongAlignedBonus = 10.0
	volumeStrongAgainstMalus = -10.0
	volumeWeakAgainstMalus   = -5.0
)

// Risk sub-score caps and scales; the total reads "higher = riskier".
const (
	riskBetaCap      = 30.0
	riskBetaGain     = 30.0
	riskDownsideCap  = 25.0
	riskDownsideSpan = 50.0
	riskDrawdownCap  = 25.0
	riskDrawdownSpan = 50.0
	riskVaRCap       = 20.0
	riskVaRSpan      = 10.0
)

var compositeWeights = struct {
	Trend, Momentum, Volatility, Volume, Risk, Sentiment float64
}{0.25, 0.25, 0.15, 0.15, 0.10, 0.10}

// cap on the inverted risk benefit so ultra-low-risk assets cannot dominate
const invertedRiskCap = 70.0

// scoreTrend blends slope, Hurst and MACD components, then applies the
// directional bonus.
func scoreTrend(m factor.TrendMetrics, lastPrice float64) float64 {
	slopeComp := stat.Clamp((m.Slope+trendSlopeSpan)/(2*trendSlopeSpan)*100, 0, 100)
	hurstComp := stat.Clamp(m.Hurst*100, 0, 100)
	histPct := 0.0
	if lastPrice != 0 {
		histPct = m.MACDHist / lastPrice * 100
	}
	macdComp := stat.Clamp(50+histPct*trendMACDGain, 0, 100)
	score := trendWeights.Slope*slopeComp + trendWeights.Hurst*hurstComp + trendWeights.MACD*macdComp
	switch m.Direction {
	case factor.DirectionUp:
		score += trendDirectionBonus
	case factor.DirectionDown:
		score -= trendDirectionBonus
	}
	return stat.Clamp(score, 0, 100)
}

func scoreMomentum(m factor.MomentumMetrics) float64 {
	zComp := stat.Clamp(50+m.ZScore*momentumZGain, 0, 100)
	sharpeComp := stat.Clamp(50+m.Sharpe*momentumSharpeGain, 0, 100)
	sortinoComp := stat.Clamp(50+m.Sortino*momentumSortinoGain, 0, 100)
	rsiComp := stat.Clamp(m.RSI, 0, 100)
	rsiZComp := stat.Clamp(50+m.RSIZ*momentumRSIZGain, 0, 100)
	rocComp := stat.Clamp(50+m.ROC*momentumROCGain, 0, 100)
	score := momentumWeights.Z*zComp +
		momentumWeights.Sharpe*sharpeComp +
		momentumWeights.Sortino*sortinoComp +
		momentumWeights.RSI*rsiComp +
		momentumWeights.RSIZ*rsiZComp +
		momentumWeights.ROC*rocComp
	return stat.Clamp(score, 0, 100)
}

// scoreVolatility maps the mean of the three estimates through the
// four-segment curve, then applies the regime adjustment.
func scoreVolatility(m factor.VolatilityMetrics) float64 {
	avg := (m.Historical + m.Parkinson + m.GarmanKlass) / 3
	var score float64
	switch {
	case avg < volCalmEdge:
		score = volFloorScore + avg/volCalmEdge*(volPeakScore-volFloorScore)
	case avg <= volSweetEdge:
		score = volPeakScore
	case avg <= volElevatedEdge:
		score = volPeakScore - (avg-volSweetEdge)*volElevatedSlope
	default:
		score = math.Max(volChaosFloor, volChaosBase-(avg-volElevatedEdge)*volChaosSlope)
	}
	switch m.Regime {
	case factor.VolRegimeHigh:
		score += volRegimeHighPenalty
	case factor.VolRegimeLow:
		score += volRegimeLowPenalty
	default:
		score += volRegimeNormalBonus
	}
	return stat.Clamp(score, 0, 100)
}

func scoreVolume(m factor.VolumeMetrics) float64 {
	zComp := stat.Clamp(volumeZBase+m.ZScore*volumeZGain, 0, volumeZCap)
	mfiComp := stat.Clamp(m.MFI*volumeMFIScale, 0, 50)
	score := zComp + mfiComp
	switch m.Confirmation {
	case factor.ConfirmStrongUp:
		score += volumeStrongAlignedBonus
	case factor.ConfirmStrongDown:
		score += volumeStrongAgainstMalus
	case factor.ConfirmWeakDown:
		score += volumeWeakAgainstMalus
	}
	return stat.Clamp(score, 0, 100)
}

// scoreRisk sums the four capped sub-scores; higher means riskier.
func scoreRisk(m factor.RiskMetrics) float64 {
	betaComp := math.Min(riskBetaCap, math.Abs(m.Beta-1)*riskBetaGain)
	ddComp := math.Min(riskDownsideCap, m.DownsideDeviation/riskDownsideSpan*riskDownsideCap)
	mddComp := math.Min(riskDrawdownCap, m.MaxDrawdown/riskDrawdownSpan*riskDrawdownCap)
	varComp := math.Min(riskVaRCap, m.VaR95/riskVaRSpan*riskVaRCap)
	return stat.Clamp(betaComp+ddComp+mddComp+varComp, 0, 100)
}

// buildScores normalizes every estimator bundle into the six factor scores.
func buildScores(m Metrics, lastPrice, sentiment float64) FactorScores {
	return FactorScores{
		Trend:      scoreTrend(m.Trend, lastPrice),
		Momentum:   scoreMomentum(m.Momentum),
		Volatility: scoreVolatility(m.Volatility),
		Volume:     scoreVolume(m.Volume),
		Risk:       scoreRisk(m.Risk),
		Sentiment:  stat.Clamp(sentiment, 0, 100),
	}
}

// compositeScore is the fixed weighted sum with the stablecoin override.
// Risk enters inverted and capped so low risk helps without dominating.
func compositeScore(s FactorScores, stable bool) int {
	if stable {
		return 50
	}
	invRisk := math.Min(invertedRiskCap, 100-s.Risk)
	raw := compositeWeights.Trend*s.Trend +
		compositeWeights.Momentum*s.Momentum +
		compositeWeights.Volatility*s.Volatility +
		compositeWeights.Volume*s.Volume +
		compositeWeights.Risk*invRisk +
		compositeWeights.Sentiment*s.Sentiment
	return int(stat.Clamp(math.Round(raw), 0, 100))
}
