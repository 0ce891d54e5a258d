package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/adshao/go-binance/v2/futures"

	"quanta/internal/logger"
	"quanta/internal/market"
)

const maxHistoryLimit = 1500

// Source 实现了 market.Source，历史数据走官方 SDK，实时数据走合并流 WS。
type Source struct {
	cfg    Config
	client *futures.Client

	mu     sync.Mutex
	ws     *combinedStreamsClient
	cancel context.CancelFunc
}

func New(cfg Config) (*Source, error) {
	final := cfg.withDefaults()
	client := futures.NewClient("", "")
	client.BaseURL = final.RESTBaseURL
	client.HTTPClient = &http.Client{Timeout: final.HTTPTimeout}
	return &Source{cfg: final, client: client}, nil
}

func (s *Source) FetchHistory(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	interval = strings.ToLower(strings.TrimSpace(interval))
	if interval == "" {
		return nil, fmt.Errorf("interval is required")
	}
	logger.Debugf("[binance] 拉取历史 K 线 %s %s limit=%d", symbol, interval, limit)
	klines, err := s.client.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance klines %s %s: %w", symbol, interval, err)
	}
	out := make([]market.Candle, 0, len(klines))
	for _, k := range klines {
		if k == nil {
			continue
		}
		out = append(out, market.Candle{
			OpenTime:  k.OpenTime,
			CloseTime: k.CloseTime,
			Open:      parseFloat(k.Open),
			High:      parseFloat(k.High),
			Low:       parseFloat(k.Low),
			Close:     parseFloat(k.Close),
			Volume:    parseFloat(k.Volume),
			Trades:    k.TradeNum,
		})
	}
	return out, nil
}

func (s *Source) Subscribe(ctx context.Context, symbols, intervals []string, opts market.SubscribeOptions) (<-chan market.CandleEvent, error) {
	if len(symbols) == 0 || len(intervals) == 0 {
		return nil, fmt.Errorf("symbols and intervals are required for subscription")
	}
	batch := opts.BatchSize
	if batch <= 0 {
		batch = s.cfg.WSBatchSize
	}
	ws := newCombinedStreamsClient(s.cfg.WSBaseURL, batch, opts.OnConnect, opts.OnDisconnect)
	if err := ws.Connect(); err != nil {
		return nil, err
	}

	subCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	if s.ws != nil {
		s.ws.Close()
	}
	s.ws = ws
	s.cancel = cancel
	s.mu.Unlock()

	buffer := opts.Buffer
	if buffer <= 0 {
		buffer = 512
	}
	out := make(chan market.CandleEvent, buffer)
	var wg sync.WaitGroup

	nIntervals := normalizeIntervals(intervals)
	for _, sym := range symbols {
		upper := strings.ToUpper(strings.TrimSpace(sym))
		if upper == "" {
			continue
		}
		for _, iv := range nIntervals {
			stream := strings.ToLower(sym) + "@kline_" + iv
			sub := ws.AddSubscriber(stream, 200)
			wg.Add(1)
			go func(symbol, interval string, ch <-chan []byte) {
				defer wg.Done()
				s.forwardStream(subCtx, symbol, interval, ch, out)
			}(upper, iv, sub)
		}
	}
	for _, iv := range nIntervals {
		if err := ws.SubscribeKlines(symbols, iv); err != nil {
			ws.Close()
			cancel()
			return nil, err
		}
	}

	go func() {
		<-subCtx.Done()
		ws.Close()
		wg.Wait()
		close(out)
	}()
	return out, nil
}

func (s *Source) forwardStream(ctx context.Context, symbol, interval string, stream <-chan []byte, out chan<- market.CandleEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-stream:
			if !ok {
				return
			}
			var ev klineEvent
			if err := json.Unmarshal(msg, &ev); err != nil {
				logger.Warnf("[binance] 解码 WS 帧失败: %v", err)
				continue
			}
			c := market.Candle{
				OpenTime:  ev.Kline.StartTime,
				CloseTime: ev.Kline.CloseTime,
				Open:      parseFloat(ev.Kline.Open),
				High:      parseFloat(ev.Kline.High),
				Low:       parseFloat(ev.Kline.Low),
				Close:     parseFloat(ev.Kline.Close),
				Volume:    parseFloat(ev.Kline.Volume),
				Trades:    int64(ev.Kline.Trades),
			}
			event := market.CandleEvent{Symbol: symbol, Interval: interval, Candle: c}
			select {
			case out <- event:
			default:
				logger.Warnf("[binance] 事件通道已满，丢弃 %s %s", symbol, interval)
			}
		}
	}
}

func (s *Source) Stats() market.SourceStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ws == nil {
		return market.SourceStats{}
	}
	return s.ws.Stats()
}

func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.ws != nil {
		s.ws.Close()
		s.ws = nil
	}
	return nil
}

func normalizeIntervals(intervals []string) []string {
	out := make([]string, 0, len(intervals))
	for _, iv := range intervals {
		trimmed := strings.ToLower(strings.TrimSpace(iv))
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}

// klineEvent 对应合并流里 kline 频道的载荷，数值字段原样保留字符串。
type klineEvent struct {
	EventType string `json:"e"`
	EventTime int64  `json:"E"`
	Symbol    string `json:"s"`
	Kline     struct {
		StartTime int64  `json:"t"`
		CloseTime int64  `json:"T"`
		Symbol    string `json:"s"`
		Interval  string `json:"i"`
		Open      string `json:"o"`
		Close     string `json:"c"`
		High      string `json:"h"`
		Low       string `json:"l"`
		Volume    string `json:"v"`
		Trades    int    `json:"n"`
		IsFinal   bool   `json:"x"`
	} `json:"k"`
}
