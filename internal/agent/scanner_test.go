package agent

import (
	"context"
	"fmt"
	"testing"

	"quanta/internal/cache"
	"quanta/internal/config"
	"quanta/internal/market"
	"quanta/internal/store"
)

type fakeSource struct {
	calls   map[string]int
	candles map[string][]market.Candle
}

func newFakeSource() *fakeSource {
	return &fakeSource{calls: make(map[string]int), candles: make(map[string][]market.Candle)}
}

func (f *fakeSource) FetchHistory(_ context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	f.calls[symbol]++
	if c, ok := f.candles[symbol]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("no data for %s %s (limit %d)", symbol, interval, limit)
}

func (f *fakeSource) Subscribe(context.Context, []string, []string, market.SubscribeOptions) (<-chan market.CandleEvent, error) {
	return nil, fmt.Errorf("not supported")
}

func (f *fakeSource) Stats() market.SourceStats { return market.SourceStats{} }
func (f *fakeSource) Close() error              { return nil }

type fakeFunding struct{ rate float64 }

func (f fakeFunding) GetFundingRate(context.Context, string) (float64, error) {
	return f.rate, nil
}

func syntheticCandles(n int, start, step float64) []market.Candle {
	out := make([]market.Candle, n)
	price := start
	for i := range out {
		out[i] = market.Candle{
			OpenTime:  int64(i) * 3_600_000,
			CloseTime: int64(i+1)*3_600_000 - 1,
			Open:      price,
			High:      price + 1,
			Low:       price - 1,
			Close:     price + step,
			Volume:    1000 + float64(i),
		}
		price += step
	}
	return out
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Scan.Symbols = []string{"BTCUSDT"}
	cfg.Scan.BenchmarkSymbol = "ETHUSDT"
	cfg.Scan.HistoryBars = 60
	return cfg
}

func TestAnalyzeSymbolCachesResult(t *testing.T) {
	src := newFakeSource()
	src.candles["BTCUSDT"] = syntheticCandles(60, 100, 0.5)
	src.candles["ETHUSDT"] = syntheticCandles(60, 2000, 1)
	mem := cache.NewMemory()
	sc, err := NewScanner(Params{
		Config: testConfig(),
		Source: src,
		Buffer: store.NewCandleBuffer(500),
		Cache:  mem,
	})
	if err != nil {
		t.Fatalf("NewScanner: %v", err)
	}

	res, err := sc.AnalyzeSymbol(context.Background(), "btcusdt")
	if err != nil {
		t.Fatalf("AnalyzeSymbol: %v", err)
	}
	if res.Symbol != "BTCUSDT" {
		t.Fatalf("symbol = %q, want BTCUSDT", res.Symbol)
	}
	if res.Composite < 0 || res.Composite > 100 {
		t.Fatalf("composite out of range: %d", res.Composite)
	}
	cached, ok := mem.Get("BTCUSDT", sc.cfg.Scan.Interval)
	if !ok {
		t.Fatal("result not cached")
	}
	if cached.Composite != res.Composite {
		t.Fatalf("cached composite = %d, want %d", cached.Composite, res.Composite)
	}
}

func TestAnalyzeSymbolReusesBuffer(t *testing.T) {
	src := newFakeSource()
	src.candles["BTCUSDT"] = syntheticCandles(60, 100, 0.5)
	src.candles["ETHUSDT"] = syntheticCandles(60, 2000, 1)
	sc, err := NewScanner(Params{
		Config: testConfig(),
		Source: src,
		Buffer: store.NewCandleBuffer(500),
	})
	if err != nil {
		t.Fatalf("NewScanner: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := sc.AnalyzeSymbol(context.Background(), "BTCUSDT"); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
	if src.calls["BTCUSDT"] != 1 {
		t.Fatalf("FetchHistory called %d times, want 1", src.calls["BTCUSDT"])
	}
}

func TestAnalyzeSymbolFundingSentiment(t *testing.T) {
	src := newFakeSource()
	src.candles["BTCUSDT"] = syntheticCandles(60, 100, 0.5)
	src.candles["ETHUSDT"] = syntheticCandles(60, 2000, 1)
	// +0.05% 费率 → 50 + 0.0005*50000 = 75
	sc, err := NewScanner(Params{
		Config:  testConfig(),
		Source:  src,
		Buffer:  store.NewCandleBuffer(500),
		Funding: fakeFunding{rate: 0.0005},
	})
	if err != nil {
		t.Fatalf("NewScanner: %v", err)
	}

	res, err := sc.AnalyzeSymbol(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("AnalyzeSymbol: %v", err)
	}
	if res.Scores.Sentiment != 75 {
		t.Fatalf("sentiment score = %v, want 75", res.Scores.Sentiment)
	}
}

func TestAnalyzeSymbolMissingBenchmark(t *testing.T) {
	src := newFakeSource()
	src.candles["BTCUSDT"] = syntheticCandles(60, 100, 0.5)
	sc, err := NewScanner(Params{
		Config: testConfig(),
		Source: src,
		Buffer: store.NewCandleBuffer(500),
	})
	if err != nil {
		t.Fatalf("NewScanner: %v", err)
	}

	res, err := sc.AnalyzeSymbol(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("AnalyzeSymbol: %v", err)
	}
	if res.Metrics.Risk.Beta != 1 {
		t.Fatalf("beta without benchmark = %v, want 1", res.Metrics.Risk.Beta)
	}
}
