package store

import (
	"errors"
	"sync"

	"quanta/internal/market"
)

// CandleBuffer 维护每个 symbol+interval 的最近 K 线序列，供扫描循环在
// REST 回填之外叠加 WS 增量更新。
type CandleBuffer struct {
	mu   sync.RWMutex
	data map[string][]market.Candle
	max  int
}

// NewCandleBuffer 创建缓冲区；max 为每个序列保留的最大根数。
func NewCandleBuffer(max int) *CandleBuffer {
	if max <= 0 {
		max = 500
	}
	return &CandleBuffer{data: make(map[string][]market.Candle), max: max}
}

func bufferKey(symbol, interval string) string { return symbol + "@" + interval }

// Seed 全量替换一个序列（REST 回填后调用）。
func (b *CandleBuffer) Seed(symbol, interval string, candles []market.Candle) error {
	if symbol == "" || interval == "" {
		return errors.New("symbol/interval 不能为空")
	}
	dst := make([]market.Candle, len(candles))
	copy(dst, candles)
	if len(dst) > b.max {
		dst = dst[len(dst)-b.max:]
	}
	b.mu.Lock()
	b.data[bufferKey(symbol, interval)] = dst
	b.mu.Unlock()
	return nil
}

// Apply 叠加一根 K 线：同一 OpenTime 覆盖末尾（未收盘更新），否则追加并裁剪。
func (b *CandleBuffer) Apply(symbol, interval string, c market.Candle) {
	if symbol == "" || interval == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	k := bufferKey(symbol, interval)
	cur := b.data[k]
	if n := len(cur); n > 0 && cur[n-1].OpenTime == c.OpenTime {
		cur[n-1] = c
	} else {
		cur = append(cur, c)
		if len(cur) > b.max {
			cur = cur[len(cur)-b.max:]
		}
	}
	b.data[k] = cur
}

// Tail 返回最近 limit 根的拷贝（时间升序）；数据不足时返回现有全部。
func (b *CandleBuffer) Tail(symbol, interval string, limit int) []market.Candle {
	b.mu.RLock()
	defer b.mu.RUnlock()
	cur := b.data[bufferKey(symbol, interval)]
	if limit <= 0 || limit > len(cur) {
		limit = len(cur)
	}
	out := make([]market.Candle, limit)
	copy(out, cur[len(cur)-limit:])
	return out
}

// Len 返回当前序列长度。
func (b *CandleBuffer) Len(symbol, interval string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.data[bufferKey(symbol, interval)])
}
