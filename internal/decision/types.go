package decision

import "quanta/internal/analysis/factor"

// Signal is the discrete trading signal derived from the composite score.
type Signal string

const (
	SignalBuy  Signal = "BUY"
	SignalSell Signal = "SELL"
	SignalHold Signal = "HOLD"
)

// Regime classifies the broad market state for the asset.
type Regime string

const (
	RegimeBull     Regime = "bull"
	RegimeBear     Regime = "bear"
	RegimeSideways Regime = "sideways"
)

// ForecastDirection is the heuristic short-horizon call.
type ForecastDirection string

const (
	ForecastUp       ForecastDirection = "UP"
	ForecastDown     ForecastDirection = "DOWN"
	ForecastSideways ForecastDirection = "SIDEWAYS"
)

// OHLCBar is one period's bar, positionally aligned with the price series.
type OHLCBar struct {
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// Input carries everything one analysis run consumes.
type Input struct {
	Symbol string `json:"symbol"`
	// Prices are closing prices, strictly time-ascending, at least 30 points.
	Prices []float64 `json:"prices"`
	// Bars and Volumes must align 1:1 with Prices.
	Bars    []OHLCBar `json:"ohlc"`
	Volumes []float64 `json:"volumes"`
	// BenchmarkPrices is optional; beta defaults to 1 without it.
	BenchmarkPrices []float64 `json:"benchmark_prices,omitempty"`
	// Sentiment is a 0-100 scalar; nil means the neutral 50.
	Sentiment *float64 `json:"sentiment_score,omitempty"`
	// Interval is a label only (e.g. 1h/1d); it does not change the math.
	Interval string `json:"interval,omitempty"`
}

// FactorScores are the six normalized 0-100 dimensions. Volatility and risk
// use inverted semantics at the composite stage: calmer is better.
type FactorScores struct {
	Trend      float64 `json:"trend"`
	Momentum   float64 `json:"momentum"`
	Volatility float64 `json:"volatility"`
	Volume     float64 `json:"volume"`
	Risk       float64 `json:"risk"`
	Sentiment  float64 `json:"sentiment"`
}

// Metrics exposes every raw estimator for downstream explanation text.
type Metrics struct {
	Trend      factor.TrendMetrics      `json:"trend"`
	Momentum   factor.MomentumMetrics   `json:"momentum"`
	Volatility factor.VolatilityMetrics `json:"volatility"`
	Volume     factor.VolumeMetrics     `json:"volume"`
	Risk       factor.RiskMetrics       `json:"risk"`
}

// Forecast is a heuristic secondary assessment, not part of the composite.
type Forecast struct {
	Direction         ForecastDirection `json:"direction"`
	Probability       float64           `json:"probability"`
	TrendContinuation float64           `json:"trend_continuation"`
	TrendReversal     float64           `json:"trend_reversal"`
	Support           float64           `json:"support"`
	Resistance        float64           `json:"resistance"`
	PriceTarget       *float64          `json:"price_target,omitempty"`
}

// Result is the fully assembled engine output for one invocation.
type Result struct {
	Symbol     string       `json:"symbol"`
	Interval   string       `json:"interval,omitempty"`
	Scores     FactorScores `json:"scores"`
	Composite  int          `json:"composite"`
	Signal     Signal       `json:"signal"`
	Regime     Regime       `json:"regime"`
	Confidence float64      `json:"confidence"`
	Forecast   Forecast     `json:"forecast"`
	Metrics    Metrics      `json:"metrics"`
	Stablecoin bool         `json:"stablecoin"`
	LastPrice  float64      `json:"last_price"`
	Snapshot   *Snapshot    `json:"snapshot,omitempty"`
}
