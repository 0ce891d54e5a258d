package cache

import (
	"testing"
	"time"

	"quanta/internal/decision"
)

func TestMemoryTTL(t *testing.T) {
	now := time.Unix(1000, 0)
	c := NewMemory()
	c.now = func() time.Time { return now }

	res := &decision.Result{Symbol: "BTCUSDT", Composite: 72}
	c.Set("BTCUSDT", "1h", res, time.Minute)

	got, ok := c.Get("BTCUSDT", "1h")
	if !ok || got.Composite != 72 {
		t.Fatalf("fresh entry missing: %v %v", got, ok)
	}
	if _, ok := c.Get("BTCUSDT", "1d"); ok {
		t.Fatal("interval must be part of the key")
	}

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("BTCUSDT", "1h"); ok {
		t.Fatal("expired entry still served")
	}
}

func TestMemoryIgnoresBadSet(t *testing.T) {
	c := NewMemory()
	c.Set("BTCUSDT", "1h", nil, time.Minute)
	c.Set("BTCUSDT", "1h", &decision.Result{}, 0)
	if _, ok := c.Get("BTCUSDT", "1h"); ok {
		t.Fatal("nil/zero-ttl sets must be ignored")
	}
}
