package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"quanta/internal/cache"
	"quanta/internal/decision"
)

type stubAnalyzer struct {
	res *decision.Result
	err error
}

func (s stubAnalyzer) AnalyzeSymbol(context.Context, string) (*decision.Result, error) {
	return s.res, s.err
}

func newTestEngine(r *Router) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	r.Register(engine.Group("/api"))
	return engine
}

func seriesPayload(n int, start, step float64) map[string]any {
	prices := make([]float64, n)
	bars := make([]map[string]float64, n)
	volumes := make([]float64, n)
	p := start
	for i := 0; i < n; i++ {
		p += step
		prices[i] = p
		bars[i] = map[string]float64{"open": p - step, "high": p + 1, "low": p - step - 1, "close": p}
		volumes[i] = 1000
	}
	return map[string]any{"symbol": "BTCUSDT", "interval": "1h", "prices": prices, "ohlc": bars, "volumes": volumes}
}

func TestAnalyzeRawSeries(t *testing.T) {
	engine := newTestEngine(NewRouter(nil, nil, nil, "1h"))
	body, _ := json.Marshal(seriesPayload(60, 100, 0.5))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var res decision.Result
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Symbol != "BTCUSDT" {
		t.Fatalf("symbol = %q", res.Symbol)
	}
	if res.Composite < 0 || res.Composite > 100 {
		t.Fatalf("composite out of range: %d", res.Composite)
	}
}

func TestAnalyzeRejectsShortSeries(t *testing.T) {
	engine := newTestEngine(NewRouter(nil, nil, nil, "1h"))
	body, _ := json.Marshal(seriesPayload(10, 100, 0.5))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestAnalyzeRequiresSymbol(t *testing.T) {
	engine := newTestEngine(NewRouter(nil, nil, nil, "1h"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestGetServedFromCache(t *testing.T) {
	mem := cache.NewMemory()
	mem.Set("BTCUSDT", "1h", &decision.Result{Symbol: "BTCUSDT", Composite: 72, Signal: decision.SignalBuy}, time.Minute)
	engine := newTestEngine(NewRouter(nil, mem, nil, "1h"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/analysis/btcusdt", nil)
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var payload struct {
		Source string          `json:"source"`
		Result decision.Result `json:"result"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Source != "cache" {
		t.Fatalf("source = %q, want cache", payload.Source)
	}
	if payload.Result.Composite != 72 {
		t.Fatalf("composite = %d, want 72", payload.Result.Composite)
	}
}

func TestGetFallsBackToLive(t *testing.T) {
	res := &decision.Result{Symbol: "ETHUSDT", Composite: 40, Signal: decision.SignalHold}
	engine := newTestEngine(NewRouter(stubAnalyzer{res: res}, cache.NewMemory(), nil, "1h"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/analysis/ETHUSDT", nil)
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var payload struct {
		Source string `json:"source"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Source != "live" {
		t.Fatalf("source = %q, want live", payload.Source)
	}
}

func TestGetUpstreamFailure(t *testing.T) {
	engine := newTestEngine(NewRouter(stubAnalyzer{err: fmt.Errorf("exchange down")}, nil, nil, "1h"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/analysis/SOLUSDT", nil)
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", w.Code)
	}
}
