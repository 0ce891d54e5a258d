package cache

import (
	"sync"
	"time"

	"quanta/internal/decision"
)

// ResultCache 抽象：按 symbol+interval 读写最近一次分析结果。
// 引擎本身无状态，缓存由调用方注入，绝不做成包级全局。
type ResultCache interface {
	Get(symbol, interval string) (*decision.Result, bool)
	Set(symbol, interval string, res *decision.Result, ttl time.Duration)
}

// Memory 内存实现，带 TTL。
type Memory struct {
	mu   sync.RWMutex
	data map[string]entry
	now  func() time.Time
}

type entry struct {
	res     *decision.Result
	expires time.Time
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string]entry), now: time.Now}
}

func key(symbol, interval string) string { return symbol + "@" + interval }

// Get 返回未过期的缓存项；过期项顺手删除。
func (c *Memory) Get(symbol, interval string) (*decision.Result, bool) {
	k := key(symbol, interval)
	c.mu.RLock()
	e, ok := c.data[k]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().After(e.expires) {
		c.mu.Lock()
		if cur, still := c.data[k]; still && c.now().After(cur.expires) {
			delete(c.data, k)
		}
		c.mu.Unlock()
		return nil, false
	}
	return e.res, true
}

func (c *Memory) Set(symbol, interval string, res *decision.Result, ttl time.Duration) {
	if res == nil || ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.data[key(symbol, interval)] = entry{res: res, expires: c.now().Add(ttl)}
	c.mu.Unlock()
}
