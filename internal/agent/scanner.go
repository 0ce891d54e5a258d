package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"quanta/internal/cache"
	"quanta/internal/coins"
	"quanta/internal/config"
	"quanta/internal/decision"
	"quanta/internal/logger"
	"quanta/internal/market"
	"quanta/internal/store"
)

// fundingSentimentGain 把资金费率映射到 0-100 情绪分：
// 50 + rate*gain，再截断。费率 +0.1%（0.001）即打满。
const fundingSentimentGain = 50000

// FundingSource 提供可选的资金费率查询；为 nil 时情绪取中性值。
type FundingSource interface {
	GetFundingRate(ctx context.Context, symbol string) (float64, error)
}

// Params 组装 Scanner 所需的全部依赖。
type Params struct {
	Config  *config.Config
	Source  market.Source
	Buffer  *store.CandleBuffer
	Cache   cache.ResultCache
	Store   *store.SnapshotStore
	Funding FundingSource
	// Symbols 可选；缺省用配置里的静态列表。
	Symbols coins.SymbolProvider
}

// Scanner 周期性拉取行情、跑完整分析流水线，并把结果写入缓存与快照库。
type Scanner struct {
	cfg     *config.Config
	src     market.Source
	buf     *store.CandleBuffer
	cache   cache.ResultCache
	store   *store.SnapshotStore
	funding FundingSource
	syms    coins.SymbolProvider

	mu       sync.Mutex
	lastScan time.Time
}

func NewScanner(p Params) (*Scanner, error) {
	if p.Config == nil || p.Source == nil || p.Buffer == nil {
		return nil, fmt.Errorf("config, source and buffer are required")
	}
	syms := p.Symbols
	if syms == nil {
		syms = coins.NewStaticProvider(p.Config.Scan.Symbols)
	}
	return &Scanner{
		cfg:     p.Config,
		src:     p.Source,
		buf:     p.Buffer,
		cache:   p.Cache,
		store:   p.Store,
		funding: p.Funding,
		syms:    syms,
	}, nil
}

// Run 阻塞执行：先全量预热历史，再按 cadence 周期扫描，直到 ctx 结束。
func (s *Scanner) Run(ctx context.Context) error {
	if err := s.warmup(ctx); err != nil {
		return err
	}
	if s.cfg.Scan.LiveUpdates {
		s.startLiveUpdates(ctx)
	}

	s.scanAll(ctx)
	cadence := time.Duration(s.cfg.Scan.CadenceSeconds) * time.Second
	ticker := time.NewTicker(cadence)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.scanAll(ctx)
		}
	}
}

// warmup 预热全部扫描币种和基准币种的历史 K 线。
func (s *Scanner) warmup(ctx context.Context) error {
	symbols := s.allSymbols(ctx)
	interval := s.cfg.Scan.Interval
	for _, sym := range symbols {
		candles, err := s.src.FetchHistory(ctx, sym, interval, s.cfg.Scan.HistoryBars)
		if err != nil {
			return fmt.Errorf("warmup %s: %w", sym, err)
		}
		s.reportGaps(sym, interval, candles)
		if err := s.buf.Seed(sym, interval, candles); err != nil {
			return fmt.Errorf("warmup %s: %w", sym, err)
		}
		logger.Infof("[agent] 预热完成 %s %s bars=%d", sym, interval, len(candles))
	}
	return nil
}

// reportGaps 只告警不拦截：上游偶发缺根 K 线不影响整体分析。
func (s *Scanner) reportGaps(symbol, interval string, candles []market.Candle) {
	gaps, err := market.CheckContinuity(candles, interval)
	if err != nil {
		logger.Warnf("[agent] %s %s 序列校验失败: %v", symbol, interval, err)
		return
	}
	for _, g := range gaps {
		logger.Warnf("[agent] %s %s 缺 %d 根 K 线: %d..%d", symbol, interval, g.Count, g.From, g.To)
	}
}

// startLiveUpdates 订阅实时 K 线并持续刷新缓冲区。
func (s *Scanner) startLiveUpdates(ctx context.Context) {
	opts := market.SubscribeOptions{
		Buffer: 1024,
		OnConnect: func() {
			logger.Infof("[agent] 行情 WS 已连接")
		},
		OnDisconnect: func(err error) {
			logger.Warnf("[agent] 行情 WS 断线: %v", err)
		},
	}
	stream, err := s.src.Subscribe(ctx, s.allSymbols(ctx), []string{s.cfg.Scan.Interval}, opts)
	if err != nil {
		logger.Warnf("[agent] 实时订阅失败，退化为纯轮询: %v", err)
		return
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-stream:
				if !ok {
					return
				}
				s.buf.Apply(ev.Symbol, ev.Interval, ev.Candle)
			}
		}
	}()
}

// scanAll 并行分析本轮全部币种，单币失败只记日志不拖垮整轮。
func (s *Scanner) scanAll(ctx context.Context) {
	runID := uuid.NewString()
	started := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Scan.Parallelism)
	for _, sym := range s.scanSymbols(ctx) {
		symbol := sym
		g.Go(func() error {
			res, err := s.AnalyzeSymbol(gctx, symbol)
			if err != nil {
				logger.Warnf("[agent] 分析 %s 失败: %v", symbol, err)
				return nil
			}
			if res.Stablecoin {
				logger.Infof("[agent] %s 判定为稳定币，跳过告警", symbol)
			}
			logger.Infof("[agent] %s composite=%d signal=%s regime=%s",
				symbol, res.Composite, res.Signal, res.Regime)
			if s.store != nil {
				if err := s.store.Insert(gctx, runID, res); err != nil {
					logger.Warnf("[agent] 持久化 %s 快照失败: %v", symbol, err)
				}
			}
			return nil
		})
	}
	_ = g.Wait()
	s.mu.Lock()
	s.lastScan = time.Now()
	s.mu.Unlock()
	logger.Infof("[agent] 本轮扫描结束 run=%s 耗时=%s", runID, time.Since(started).Truncate(time.Millisecond))
}

// AnalyzeSymbol 对单个币种跑一次完整分析，结果写入缓存后返回。
// HTTP 层的按需分析也走这里。
func (s *Scanner) AnalyzeSymbol(ctx context.Context, symbol string) (*decision.Result, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	interval := s.cfg.Scan.Interval
	candles, err := s.history(ctx, symbol, interval)
	if err != nil {
		return nil, err
	}
	series := market.Split(candles)

	in := decision.Input{
		Symbol:   symbol,
		Interval: interval,
		Prices:   series.Closes,
		Volumes:  series.Volumes,
		Bars:     toBars(candles),
	}
	if bench := s.cfg.Scan.BenchmarkSymbol; bench != "" && bench != symbol {
		benchCandles, err := s.history(ctx, bench, interval)
		if err != nil {
			logger.Warnf("[agent] 基准 %s 历史不可用，beta 取默认值: %v", bench, err)
		} else {
			in.BenchmarkPrices = market.Split(benchCandles).Closes
		}
	}
	if s.funding != nil {
		if rate, err := s.funding.GetFundingRate(ctx, symbol); err == nil {
			sentiment := clampScore(50 + rate*fundingSentimentGain)
			in.Sentiment = &sentiment
		} else {
			logger.Debugf("[agent] 资金费率不可用 %s: %v", symbol, err)
		}
	}

	res, err := decision.Analyze(in)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		ttl := time.Duration(s.cfg.Cache.TTLSeconds) * time.Second
		s.cache.Set(symbol, interval, res, ttl)
	}
	return res, nil
}

// history 优先读内存缓冲，缓冲不足时回源拉取并补种。
func (s *Scanner) history(ctx context.Context, symbol, interval string) ([]market.Candle, error) {
	want := s.cfg.Scan.HistoryBars
	if s.buf.Len(symbol, interval) >= decision.MinPricePoints {
		return s.buf.Tail(symbol, interval, want), nil
	}
	candles, err := s.src.FetchHistory(ctx, symbol, interval, want)
	if err != nil {
		return nil, fmt.Errorf("fetch history %s %s: %w", symbol, interval, err)
	}
	s.reportGaps(symbol, interval, candles)
	if err := s.buf.Seed(symbol, interval, candles); err != nil {
		return nil, err
	}
	return s.buf.Tail(symbol, interval, want), nil
}

// LastScan 返回最近一轮扫描完成时间，未扫描过时为零值。
func (s *Scanner) LastScan() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastScan
}

// scanSymbols 解析本轮扫描目标，provider 失败时退回静态配置。
func (s *Scanner) scanSymbols(ctx context.Context) []string {
	symbols, err := s.syms.List(ctx)
	if err != nil {
		logger.Warnf("[agent] 解析币种列表失败（%s），退回静态配置: %v", s.syms.Name(), err)
		return s.cfg.Scan.Symbols
	}
	return symbols
}

// allSymbols 在扫描目标之外补上基准币种。
func (s *Scanner) allSymbols(ctx context.Context) []string {
	out := s.scanSymbols(ctx)
	bench := s.cfg.Scan.BenchmarkSymbol
	if bench == "" {
		return out
	}
	for _, sym := range out {
		if sym == bench {
			return out
		}
	}
	return append(append([]string(nil), out...), bench)
}

func toBars(candles []market.Candle) []decision.OHLCBar {
	bars := make([]decision.OHLCBar, len(candles))
	for i, c := range candles {
		bars[i] = decision.OHLCBar{Open: c.Open, High: c.High, Low: c.Low, Close: c.Close}
	}
	return bars
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
