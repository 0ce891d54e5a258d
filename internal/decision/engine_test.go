package decision

import (
	"errors"
	"math/rand"
	"reflect"
	"testing"
)

func barsFor(prices []float64, rangePct float64) []OHLCBar {
	bars := make([]OHLCBar, len(prices))
	for i, p := range prices {
		bars[i] = OHLCBar{
			Open:  p * (1 - rangePct/2),
			High:  p * (1 + rangePct),
			Low:   p * (1 - rangePct),
			Close: p,
		}
	}
	return bars
}

func flatVolumes(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func linear(start, end float64, n int) []float64 {
	out := make([]float64, n)
	step := (end - start) / float64(n-1)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

func sawtooth(base, amp float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		if i%2 == 0 {
			out[i] = base + amp
		} else {
			out[i] = base - amp
		}
	}
	return out
}

func randomWalk(seed int64, start float64, n int) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	out[0] = start
	for i := 1; i < n; i++ {
		out[i] = out[i-1] * (1 + (rng.Float64()-0.5)*0.04)
	}
	return out
}

func inputFor(symbol string, prices []float64) Input {
	return Input{
		Symbol:  symbol,
		Prices:  prices,
		Bars:    barsFor(prices, 0.01),
		Volumes: flatVolumes(len(prices), 1000),
	}
}

func TestAnalyzeOutputBounds(t *testing.T) {
	inputs := []Input{
		inputFor("BTCUSDT", linear(100, 150, 60)),
		inputFor("ETHUSDT", linear(150, 100, 60)),
		inputFor("SOLUSDT", sawtooth(100, 3, 60)),
		inputFor("ADAUSDT", randomWalk(42, 50, 120)),
		inputFor("XRPUSDT", randomWalk(7, 2000, 400)),
	}
	for _, in := range inputs {
		res, err := Analyze(in)
		if err != nil {
			t.Fatalf("%s: %v", in.Symbol, err)
		}
		scores := []float64{
			res.Scores.Trend, res.Scores.Momentum, res.Scores.Volatility,
			res.Scores.Volume, res.Scores.Risk, res.Scores.Sentiment,
		}
		for i, s := range scores {
			if s < 0 || s > 100 {
				t.Fatalf("%s: score[%d] = %v outside [0,100]", in.Symbol, i, s)
			}
		}
		if res.Composite < 0 || res.Composite > 100 {
			t.Fatalf("%s: composite = %d", in.Symbol, res.Composite)
		}
		switch res.Signal {
		case SignalBuy, SignalSell, SignalHold:
		default:
			t.Fatalf("%s: signal = %q", in.Symbol, res.Signal)
		}
		switch res.Regime {
		case RegimeBull, RegimeBear, RegimeSideways:
		default:
			t.Fatalf("%s: regime = %q", in.Symbol, res.Regime)
		}
		switch res.Forecast.Direction {
		case ForecastUp, ForecastDown, ForecastSideways:
		default:
			t.Fatalf("%s: forecast direction = %q", in.Symbol, res.Forecast.Direction)
		}
		if res.Confidence < 0 || res.Confidence > 100 {
			t.Fatalf("%s: confidence = %v", in.Symbol, res.Confidence)
		}
		if res.Forecast.TrendContinuation < 0 || res.Forecast.TrendContinuation > 100 ||
			res.Forecast.TrendReversal < 0 || res.Forecast.TrendReversal > 100 {
			t.Fatalf("%s: continuation/reversal out of range: %+v", in.Symbol, res.Forecast)
		}
	}
}

func TestAnalyzeIdempotent(t *testing.T) {
	in := inputFor("BTCUSDT", randomWalk(99, 30000, 200))
	a, err := Analyze(in)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Analyze(in)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatal("identical inputs produced different outputs")
	}
}

func TestAnalyzeValidation(t *testing.T) {
	short := inputFor("BTCUSDT", linear(100, 110, 29))
	if _, err := Analyze(short); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("29 prices: err = %v, want ErrInsufficientData", err)
	}
	in := inputFor("BTCUSDT", linear(100, 110, 30))
	in.Bars = in.Bars[:29]
	if _, err := Analyze(in); !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("mismatched bars: err = %v, want ErrShapeMismatch", err)
	}
	in = inputFor("BTCUSDT", linear(100, 110, 30))
	in.Volumes = in.Volumes[:29]
	if _, err := Analyze(in); !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("mismatched volumes: err = %v, want ErrShapeMismatch", err)
	}
}

func TestStablecoinOverride(t *testing.T) {
	// aggressively bullish series, but the symbol names a stablecoin
	in := inputFor("USDTTRY", linear(100, 200, 80))
	res, err := Analyze(in)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Stablecoin {
		t.Fatal("USDT-prefixed symbol not detected as stablecoin")
	}
	if res.Composite != 50 || res.Signal != SignalHold {
		t.Fatalf("stablecoin result = %d/%s, want 50/HOLD", res.Composite, res.Signal)
	}

	// price proximity alone is sufficient regardless of symbol
	in = inputFor("MYSTERY", linear(0.9, 1.02, 60))
	res, err = Analyze(in)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Stablecoin || res.Composite != 50 || res.Signal != SignalHold {
		t.Fatalf("near-$1 asset = %+v, want stablecoin override", res)
	}
}

func TestFlatStableScenario(t *testing.T) {
	prices := linear(1, 1, 40)
	for _, sentiment := range []float64{0, 50, 100} {
		s := sentiment
		in := inputFor("USDC", prices)
		in.Sentiment = &s
		res, err := Analyze(in)
		if err != nil {
			t.Fatal(err)
		}
		if res.Composite != 50 || res.Signal != SignalHold {
			t.Fatalf("sentiment %v: got %d/%s, want 50/HOLD", sentiment, res.Composite, res.Signal)
		}
	}
}

func TestRisingScenario(t *testing.T) {
	prices := linear(100, 150, 60)
	in := inputFor("BTCUSDT", prices)
	// confirming volume: expanding into the move
	for i := range in.Volumes {
		in.Volumes[i] = 1000 + 10*float64(i)
	}
	res, err := Analyze(in)
	if err != nil {
		t.Fatal(err)
	}
	if res.Metrics.Trend.Direction != "up" {
		t.Fatalf("direction = %v, want up", res.Metrics.Trend.Direction)
	}
	if res.Scores.Trend <= 60 {
		t.Fatalf("trend score = %v, want > 60", res.Scores.Trend)
	}
	if res.Forecast.Direction != ForecastUp {
		t.Fatalf("forecast = %v, want UP", res.Forecast.Direction)
	}
	if res.Signal != SignalBuy {
		t.Fatalf("signal = %v (composite %d), want BUY", res.Signal, res.Composite)
	}
	if res.Forecast.PriceTarget == nil || *res.Forecast.PriceTarget != res.Forecast.Resistance {
		t.Fatalf("price target = %v, want resistance %v", res.Forecast.PriceTarget, res.Forecast.Resistance)
	}
}

func TestSawtoothScenario(t *testing.T) {
	res, err := Analyze(inputFor("DOGEUSDT", sawtooth(100, 3, 60)))
	if err != nil {
		t.Fatal(err)
	}
	if res.Metrics.Trend.Hurst >= 0.5 {
		t.Fatalf("sawtooth hurst = %v, want < 0.5", res.Metrics.Trend.Hurst)
	}
	if res.Regime != RegimeSideways {
		t.Fatalf("regime = %v, want sideways", res.Regime)
	}
}

func TestSignalThresholds(t *testing.T) {
	cases := []struct {
		composite int
		want      Signal
	}{
		{100, SignalBuy}, {65, SignalBuy}, {64, SignalHold},
		{50, SignalHold}, {36, SignalHold}, {35, SignalSell}, {0, SignalSell},
	}
	for _, c := range cases {
		if got := signalFor(c.composite, false); got != c.want {
			t.Fatalf("signalFor(%d) = %v, want %v", c.composite, got, c.want)
		}
		if got := signalFor(c.composite, true); got != SignalHold {
			t.Fatalf("stable signalFor(%d) = %v, want HOLD", c.composite, got)
		}
	}
}

func TestBenchmarkBetaFlowsThrough(t *testing.T) {
	prices := randomWalk(5, 100, 90)
	in := inputFor("ETHUSDT", prices)
	in.BenchmarkPrices = prices
	res, err := Analyze(in)
	if err != nil {
		t.Fatal(err)
	}
	if d := res.Metrics.Risk.Beta - 1; d > 1e-9 || d < -1e-9 {
		t.Fatalf("self-benchmark beta = %v, want 1", res.Metrics.Risk.Beta)
	}
	in.BenchmarkPrices = nil
	res, err = Analyze(in)
	if err != nil {
		t.Fatal(err)
	}
	if res.Metrics.Risk.Beta != 1 {
		t.Fatalf("missing-benchmark beta = %v, want 1", res.Metrics.Risk.Beta)
	}
}
