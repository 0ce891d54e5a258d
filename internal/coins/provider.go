package coins

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"quanta/internal/logger"
)

// SymbolProvider 提供一轮扫描使用的币种列表。
type SymbolProvider interface {
	List(ctx context.Context) ([]string, error)
	Name() string
}

// NormalizeSymbols 去重、转大写，并给裸币名补上 USDT 计价后缀。
func NormalizeSymbols(symbols []string) ([]string, error) {
	if len(symbols) == 0 {
		return nil, errors.New("symbol list is empty")
	}
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if !strings.HasSuffix(s, "USDT") {
			s += "USDT"
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil, errors.New("symbol list is empty after normalization")
	}
	return out, nil
}

// StaticProvider 返回配置文件里写死的列表。
type StaticProvider struct{ symbols []string }

func NewStaticProvider(symbols []string) *StaticProvider {
	return &StaticProvider{symbols: symbols}
}

func (p *StaticProvider) Name() string { return "static" }

func (p *StaticProvider) List(_ context.Context) ([]string, error) {
	return NormalizeSymbols(p.symbols)
}

// HTTPProvider 从远端 API 拉取列表，兼容裸数组和 {"symbols": [...]} 两种响应。
type HTTPProvider struct {
	URL    string
	Client *http.Client
}

func NewHTTPProvider(url string) *HTTPProvider {
	return &HTTPProvider{URL: url, Client: &http.Client{Timeout: 10 * time.Second}}
}

func (p *HTTPProvider) Name() string { return "http" }

func (p *HTTPProvider) List(ctx context.Context) ([]string, error) {
	if p.URL == "" {
		return nil, errors.New("symbol API URL not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching symbols: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("HTTP status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	var arr []string
	if err := json.Unmarshal(body, &arr); err == nil {
		return NormalizeSymbols(arr)
	}
	var obj struct {
		Symbols []string `json:"symbols"`
	}
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	return NormalizeSymbols(obj.Symbols)
}

// CachedProvider 包装一个上游 provider，按 refresh 周期刷新；
// 上游失败时沿用上一次结果，从未成功过则退回 fallback。
type CachedProvider struct {
	upstream SymbolProvider
	refresh  time.Duration
	fallback []string

	mu          sync.RWMutex
	targets     []string
	lastFetched time.Time
	lastErr     error
}

func NewCachedProvider(upstream SymbolProvider, refresh time.Duration, fallback []string) *CachedProvider {
	if refresh <= 0 {
		refresh = time.Hour
	}
	normalized, _ := NormalizeSymbols(fallback)
	return &CachedProvider{
		upstream: upstream,
		refresh:  refresh,
		fallback: normalized,
		targets:  normalized,
	}
}

func (p *CachedProvider) Name() string { return "cached:" + p.upstream.Name() }

func (p *CachedProvider) List(ctx context.Context) ([]string, error) {
	p.mu.RLock()
	fresh := time.Since(p.lastFetched) < p.refresh && len(p.targets) > 0
	cached := append([]string(nil), p.targets...)
	p.mu.RUnlock()
	if fresh {
		return cached, nil
	}

	symbols, err := p.upstream.List(ctx)
	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.lastErr = err
		logger.Warnf("[coins] 刷新币种列表失败，沿用旧列表: %v", err)
		if len(p.targets) > 0 {
			return append([]string(nil), p.targets...), nil
		}
		return nil, err
	}
	p.targets = symbols
	p.lastFetched = time.Now()
	p.lastErr = nil
	return append([]string(nil), symbols...), nil
}

// LastError 返回最近一次刷新失败的原因，用于健康检查。
func (p *CachedProvider) LastError() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastErr
}
