package decision

import (
	"errors"
	"fmt"

	"quanta/internal/analysis/factor"
	"quanta/internal/analysis/stat"
)

// Errors fatal to a single run; everything numerically degenerate below this
// boundary recovers to a neutral default instead.
var (
	ErrInsufficientData = errors.New("insufficient data")
	ErrShapeMismatch    = errors.New("series shape mismatch")
)

// MinPricePoints is the hard floor on the input series length.
const MinPricePoints = 30

const defaultSentiment = 50.0

// Analyze runs the full pipeline on one input: raw series → estimator
// metrics → factor scores → composite → signal/regime/forecast. It is a pure
// function of its input; concurrent calls are independent.
func Analyze(in Input) (*Result, error) {
	if len(in.Prices) < MinPricePoints {
		return nil, fmt.Errorf("%w: got %d prices, need at least %d",
			ErrInsufficientData, len(in.Prices), MinPricePoints)
	}
	if len(in.Bars) != len(in.Prices) {
		return nil, fmt.Errorf("%w: %d ohlc bars for %d prices",
			ErrShapeMismatch, len(in.Bars), len(in.Prices))
	}
	if len(in.Volumes) != len(in.Prices) {
		return nil, fmt.Errorf("%w: %d volumes for %d prices",
			ErrShapeMismatch, len(in.Volumes), len(in.Prices))
	}

	opens := make([]float64, len(in.Bars))
	highs := make([]float64, len(in.Bars))
	lows := make([]float64, len(in.Bars))
	for i, b := range in.Bars {
		opens[i] = b.Open
		highs[i] = b.High
		lows[i] = b.Low
	}

	metrics := Metrics{
		Trend:      factor.ComputeTrend(in.Prices),
		Momentum:   factor.ComputeMomentum(in.Prices),
		Volatility: factor.ComputeVolatility(in.Prices, opens, highs, lows),
		Volume:     factor.ComputeVolume(in.Prices, highs, lows, in.Volumes),
		Risk:       factor.ComputeRisk(in.Prices, in.BenchmarkPrices),
	}

	sentiment := defaultSentiment
	if in.Sentiment != nil {
		sentiment = stat.Clamp(*in.Sentiment, 0, 100)
	}

	lastPrice := in.Prices[len(in.Prices)-1]
	stable := IsStablecoin(in.Symbol, lastPrice)
	scores := buildScores(metrics, lastPrice, sentiment)
	composite := compositeScore(scores, stable)
	forecast := buildForecast(in.Prices, highs, lows, metrics, scores)

	return &Result{
		Symbol:     in.Symbol,
		Interval:   in.Interval,
		Scores:     scores,
		Composite:  composite,
		Signal:     signalFor(composite, stable),
		Regime:     classifyRegime(in.Prices, metrics.Trend, scores),
		Confidence: confidenceFor(scores, forecast.Probability),
		Forecast:   forecast,
		Metrics:    metrics,
		Stablecoin: stable,
		LastPrice:  lastPrice,
		Snapshot:   BuildSnapshot(in.Prices, highs, lows, in.Volumes),
	}, nil
}
