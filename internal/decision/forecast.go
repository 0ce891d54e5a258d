package decision

import (
	"math"

	"quanta/internal/analysis/factor"
	"quanta/internal/analysis/stat"
)

// Five weighted voters contribute bullish/bearish mass; shares of the total
// possible mass decide the direction. The shape follows the weighted
// bullish/bearish scoring used for divergence signals, with fixed voters
// instead of learned weights.
const (
	trendVoteWeight     = 4.0
	trendVoteHalf       = 2.0
	momentumVoteWeight  = 2.0
	rsiConfirmWeight    = 1.0
	macdVoteWeight      = 1.5
	volumeVoteWeight    = 1.0
	volumeVoteHalf      = 0.5
	hurstVoteWeight     = 1.0
	totalVoteMass       = trendVoteWeight + momentumVoteWeight + rsiConfirmWeight + macdVoteWeight + volumeVoteWeight + hurstVoteWeight
	directionShareGate  = 45.0
	probBoostGain       = 0.6
	probBoostCeiling    = 80.0
	sidewaysProbFloor   = 50.0
	sidewaysProbCeiling = 80.0

	hurstPersistGate = 0.55
	hurstRevertGate  = 0.45

	rsiOverbought = 70.0
	rsiOversold   = 30.0

	srWindow            = 50
	divergenceLookback  = 20
	momentumAlignedGate = 55.0
	momentumCounterGate = 45.0
)

// buildForecast derives the directional call, continuation/reversal scores
// and support/resistance levels from the computed metrics and factor scores.
func buildForecast(prices, highs, lows []float64, m Metrics, scores FactorScores) Forecast {
	var bull, bear float64

	// trend voter, gated by direction and trend score
	switch m.Trend.Direction {
	case factor.DirectionUp:
		if scores.Trend >= bullTrendGate {
			bull += trendVoteWeight
		} else if scores.Trend >= 50 {
			bull += trendVoteHalf
		}
	case factor.DirectionDown:
		if scores.Trend <= bearTrendGate {
			bear += trendVoteWeight
		} else if scores.Trend <= 50 {
			bear += trendVoteHalf
		}
	}

	// momentum voter plus an RSI confirmation bonus inside the healthy bands
	if scores.Momentum > 60 {
		bull += momentumVoteWeight
	} else if scores.Momentum < 40 {
		bear += momentumVoteWeight
	}
	rsi := m.Momentum.RSI
	if rsi > 50 && rsi <= rsiOverbought {
		bull += rsiConfirmWeight
	} else if rsi < 50 && rsi >= rsiOversold {
		bear += rsiConfirmWeight
	}

	// MACD histogram sign
	if m.Trend.MACDHist > 0 {
		bull += macdVoteWeight
	} else if m.Trend.MACDHist < 0 {
		bear += macdVoteWeight
	}

	// volume confirmation
	switch m.Volume.Confirmation {
	case factor.ConfirmStrongUp:
		bull += volumeVoteWeight
	case factor.ConfirmWeakUp:
		bull += volumeVoteHalf
	case factor.ConfirmStrongDown:
		bear += volumeVoteWeight
	case factor.ConfirmWeakDown:
		bear += volumeVoteHalf
	}

	// Hurst: persistence votes with the trend, mean reversion against it
	if m.Trend.Hurst > hurstPersistGate {
		switch m.Trend.Direction {
		case factor.DirectionUp:
			bull += hurstVoteWeight
		case factor.DirectionDown:
			bear += hurstVoteWeight
		}
	} else if m.Trend.Hurst < hurstRevertGate {
		switch m.Trend.Direction {
		case factor.DirectionUp:
			bear += hurstVoteWeight
		case factor.DirectionDown:
			bull += hurstVoteWeight
		}
	}

	bullShare := bull / totalVoteMass * 100
	bearShare := bear / totalVoteMass * 100

	direction := ForecastSideways
	probability := stat.Clamp(100-bullShare-bearShare, sidewaysProbFloor, sidewaysProbCeiling)
	switch {
	case bullShare > directionShareGate && bullShare > bearShare:
		direction = ForecastUp
		probability = bullShare
	case bearShare > directionShareGate && bearShare > bullShare:
		direction = ForecastDown
		probability = bearShare
	}
	if direction != ForecastSideways && probability < 50 {
		margin := math.Abs(bullShare - bearShare)
		probability = math.Min(probBoostCeiling, 50+margin*probBoostGain)
	}

	support, resistance := supportResistance(prices, highs, lows)
	cont, rev := continuationReversal(prices, m, scores)

	f := Forecast{
		Direction:         direction,
		Probability:       math.Round(probability*10) / 10,
		TrendContinuation: cont,
		TrendReversal:     rev,
		Support:           support,
		Resistance:        resistance,
	}
	switch direction {
	case ForecastUp:
		target := resistance
		f.PriceTarget = &target
	case ForecastDown:
		target := support
		f.PriceTarget = &target
	}
	return f
}

// continuationReversal scores 0-100 each from momentum/trend alignment, RSI
// bands, volume behavior and a price divergence check against the trend.
func continuationReversal(prices []float64, m Metrics, scores FactorScores) (cont, rev float64) {
	cont, rev = 50, 50
	dir := m.Trend.Direction

	aligned := (dir == factor.DirectionUp && scores.Momentum > momentumAlignedGate) ||
		(dir == factor.DirectionDown && scores.Momentum < momentumCounterGate)
	counter := (dir == factor.DirectionUp && scores.Momentum < momentumCounterGate) ||
		(dir == factor.DirectionDown && scores.Momentum > momentumAlignedGate)
	if aligned {
		cont += 15
		rev -= 10
	} else if counter {
		rev += 15
		cont -= 10
	}

	rsi := m.Momentum.RSI
	switch {
	case rsi > rsiOverbought || rsi < rsiOversold:
		rev += 20
		cont -= 10
	case rsi >= 40 && rsi <= 60:
		cont += 10
	}

	switch {
	case dir == factor.DirectionUp && m.Volume.Confirmation == factor.ConfirmStrongUp,
		dir == factor.DirectionDown && m.Volume.Confirmation == factor.ConfirmStrongDown:
		cont += 10
	case dir == factor.DirectionUp && m.Volume.Confirmation == factor.ConfirmStrongDown,
		dir == factor.DirectionDown && m.Volume.Confirmation == factor.ConfirmStrongUp:
		rev += 15
		cont -= 5
	}

	// recent price drifting against the prevailing direction
	drift := factor.RateOfChange(prices, divergenceLookback)
	if (dir == factor.DirectionUp && drift < 0) || (dir == factor.DirectionDown && drift > 0) {
		rev += 15
	}

	return stat.Clamp(cont, 0, 100), stat.Clamp(rev, 0, 100)
}

// supportResistance is the min low / max high over the trailing window,
// falling back to closes when range data is degenerate.
func supportResistance(prices, highs, lows []float64) (support, resistance float64) {
	window := srWindow
	if window > len(prices) {
		window = len(prices)
	}
	if window == 0 {
		return 0, 0
	}
	lo := math.Inf(1)
	hi := math.Inf(-1)
	for i := len(prices) - window; i < len(prices); i++ {
		l := prices[i]
		h := prices[i]
		if i < len(lows) && lows[i] > 0 {
			l = lows[i]
		}
		if i < len(highs) && highs[i] > 0 {
			h = highs[i]
		}
		if l < lo {
			lo = l
		}
		if h > hi {
			hi = h
		}
	}
	return lo, hi
}
