package analysis

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"quanta/internal/cache"
	"quanta/internal/decision"
	"quanta/internal/logger"
	"quanta/internal/store"
)

// Analyzer 按需对某个币种跑一次完整分析。
type Analyzer interface {
	AnalyzeSymbol(ctx context.Context, symbol string) (*decision.Result, error)
}

// Router 暴露分析结果的查询与触发接口。
type Router struct {
	analyzer Analyzer
	cache    cache.ResultCache
	store    *store.SnapshotStore
	interval string
}

func NewRouter(analyzer Analyzer, c cache.ResultCache, s *store.SnapshotStore, interval string) *Router {
	return &Router{analyzer: analyzer, cache: c, store: s, interval: interval}
}

func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.POST("/analyze", r.handleAnalyze)
	group.GET("/analysis/:symbol", r.handleGet)
	group.GET("/analysis/:symbol/history", r.handleHistory)
}

// AnalyzeRequest 既支持按 symbol 触发在线分析，也支持直接提交原始序列。
type AnalyzeRequest struct {
	Symbol          string             `json:"symbol"`
	Interval        string             `json:"interval,omitempty"`
	Prices          []float64          `json:"prices,omitempty"`
	Bars            []decision.OHLCBar `json:"ohlc,omitempty"`
	Volumes         []float64          `json:"volumes,omitempty"`
	BenchmarkPrices []float64          `json:"benchmark_prices,omitempty"`
	Sentiment       *float64           `json:"sentiment_score,omitempty"`
}

func (r *Router) handleAnalyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误: " + err.Error()})
		return
	}
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol 不能为空"})
		return
	}

	// 带原始序列时是纯计算，不经过行情源。
	if len(req.Prices) > 0 {
		res, err := decision.Analyze(decision.Input{
			Symbol:          symbol,
			Interval:        strings.ToLower(strings.TrimSpace(req.Interval)),
			Prices:          req.Prices,
			Bars:            req.Bars,
			Volumes:         req.Volumes,
			BenchmarkPrices: req.BenchmarkPrices,
			Sentiment:       req.Sentiment,
		})
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, decision.ErrInsufficientData) || errors.Is(err, decision.ErrShapeMismatch) {
				status = http.StatusBadRequest
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, res)
		return
	}

	if r.analyzer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "在线分析未启用"})
		return
	}
	res, err := r.analyzer.AnalyzeSymbol(c.Request.Context(), symbol)
	if err != nil {
		logger.Warnf("[http] 在线分析 %s 失败: %v", symbol, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

// handleGet 读取顺序：内存缓存 → 快照库 → 在线分析。
func (r *Router) handleGet(c *gin.Context) {
	symbol := strings.ToUpper(strings.TrimSpace(c.Param("symbol")))
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol 不能为空"})
		return
	}
	interval := strings.ToLower(strings.TrimSpace(c.DefaultQuery("interval", r.interval)))

	if r.cache != nil {
		if res, ok := r.cache.Get(symbol, interval); ok {
			c.JSON(http.StatusOK, gin.H{"source": "cache", "result": res})
			return
		}
	}
	if r.store != nil {
		res, err := r.store.Latest(c.Request.Context(), symbol, interval)
		if err != nil {
			logger.Errorf("[http] 读取 %s 快照失败: %v", symbol, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if res != nil {
			c.JSON(http.StatusOK, gin.H{"source": "store", "result": res})
			return
		}
	}
	if r.analyzer != nil {
		res, err := r.analyzer.AnalyzeSymbol(c.Request.Context(), symbol)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"source": "live", "result": res})
		return
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "没有 " + symbol + " 的分析结果"})
}

func (r *Router) handleHistory(c *gin.Context) {
	if r.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "快照库未启用"})
		return
	}
	symbol := strings.ToUpper(strings.TrimSpace(c.Param("symbol")))
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol 不能为空"})
		return
	}
	interval := strings.ToLower(strings.TrimSpace(c.DefaultQuery("interval", r.interval)))
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		limit = 20
	}
	if limit > 200 {
		limit = 200
	}
	rows, err := r.store.Recent(c.Request.Context(), symbol, interval, limit)
	if err != nil {
		logger.Errorf("[http] 读取 %s 历史失败: %v", symbol, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "interval": interval, "rows": rows, "count": len(rows), "at": time.Now().UnixMilli()})
}
