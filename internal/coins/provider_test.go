package coins

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"
)

func TestNormalizeSymbols(t *testing.T) {
	got, err := NormalizeSymbols([]string{" btc ", "ETHUSDT", "btc", "", "sol"})
	if err != nil {
		t.Fatalf("NormalizeSymbols: %v", err)
	}
	want := []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestNormalizeSymbolsEmpty(t *testing.T) {
	if _, err := NormalizeSymbols(nil); err == nil {
		t.Fatal("expected error for empty list")
	}
	if _, err := NormalizeSymbols([]string{"", "  "}); err == nil {
		t.Fatal("expected error for blank list")
	}
}

func TestHTTPProviderBareArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `["btc","eth"]`)
	}))
	defer srv.Close()

	got, err := NewHTTPProvider(srv.URL).List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"BTCUSDT", "ETHUSDT"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestHTTPProviderObjectForm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"symbols":["SOLUSDT"]}`)
	}))
	defer srv.Close()

	got, err := NewHTTPProvider(srv.URL).List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || got[0] != "SOLUSDT" {
		t.Fatalf("got %v", got)
	}
}

func TestHTTPProviderServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, err := NewHTTPProvider(srv.URL).List(context.Background()); err == nil {
		t.Fatal("expected error on 500")
	}
}

type flakyProvider struct {
	fail  bool
	calls int
	list  []string
}

func (p *flakyProvider) Name() string { return "flaky" }

func (p *flakyProvider) List(context.Context) ([]string, error) {
	p.calls++
	if p.fail {
		return nil, fmt.Errorf("upstream down")
	}
	return p.list, nil
}

func TestCachedProviderRefreshAndFallback(t *testing.T) {
	up := &flakyProvider{list: []string{"BTCUSDT", "ETHUSDT"}}
	p := NewCachedProvider(up, time.Hour, []string{"SOLUSDT"})

	got, err := p.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"BTCUSDT", "ETHUSDT"}) {
		t.Fatalf("got %v", got)
	}

	// 周期内不再访问上游
	if _, err := p.List(context.Background()); err != nil {
		t.Fatalf("cached List: %v", err)
	}
	if up.calls != 1 {
		t.Fatalf("upstream called %d times, want 1", up.calls)
	}
}

func TestCachedProviderKeepsLastGood(t *testing.T) {
	up := &flakyProvider{list: []string{"BTCUSDT"}}
	p := NewCachedProvider(up, 0, []string{"SOLUSDT"})
	// refresh<=0 退化为 1 小时，这里直接构造一个过期状态
	p.refresh = time.Nanosecond

	if _, err := p.List(context.Background()); err != nil {
		t.Fatalf("first List: %v", err)
	}
	up.fail = true
	time.Sleep(time.Millisecond)

	got, err := p.List(context.Background())
	if err != nil {
		t.Fatalf("List after failure: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"BTCUSDT"}) {
		t.Fatalf("got %v, want last good list", got)
	}
	if p.LastError() == nil {
		t.Fatal("LastError should report the refresh failure")
	}
}

func TestCachedProviderFallbackWhenNeverFetched(t *testing.T) {
	up := &flakyProvider{fail: true}
	p := NewCachedProvider(up, time.Nanosecond, []string{"SOLUSDT"})
	time.Sleep(time.Millisecond)

	got, err := p.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"SOLUSDT"}) {
		t.Fatalf("got %v, want fallback", got)
	}
}
