package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"quanta/internal/cache"
	"quanta/internal/logger"
	"quanta/internal/market"
	"quanta/internal/store"
	"quanta/internal/transport/http/analysis"
)

// ScanStatus 暴露扫描器的健康信息。
type ScanStatus interface {
	LastScan() time.Time
}

// SymbolHealth 暴露动态币种列表的刷新状态。
type SymbolHealth interface {
	Name() string
	LastError() error
}

// ServerParams 组装 HTTP 服务所需的依赖。
type ServerParams struct {
	Addr     string
	Interval string
	Analyzer analysis.Analyzer
	Cache    cache.ResultCache
	Store    *store.SnapshotStore
	Source   market.Source
	Scanner  ScanStatus
	Symbols  SymbolHealth
}

// Server 包装 gin 引擎与底层 http.Server。
type Server struct {
	engine *gin.Engine
	srv    *http.Server
}

func NewServer(p ServerParams) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.GET("/healthz", func(c *gin.Context) {
		body := gin.H{"status": "ok", "at": time.Now().UnixMilli()}
		if p.Source != nil {
			body["source"] = p.Source.Stats()
		}
		if p.Scanner != nil {
			if last := p.Scanner.LastScan(); !last.IsZero() {
				body["last_scan"] = last.UnixMilli()
			}
		}
		if p.Symbols != nil {
			symbols := gin.H{"provider": p.Symbols.Name()}
			if err := p.Symbols.LastError(); err != nil {
				symbols["error"] = err.Error()
				body["status"] = "degraded"
			}
			body["symbols"] = symbols
		}
		c.JSON(http.StatusOK, body)
	})

	api := engine.Group("/api")
	analysis.NewRouter(p.Analyzer, p.Cache, p.Store, p.Interval).Register(api)

	return &Server{
		engine: engine,
		srv:    &http.Server{Addr: p.Addr, Handler: engine},
	}
}

// Engine 暴露底层引擎，测试时直接挂到 httptest 上。
func (s *Server) Engine() *gin.Engine { return s.engine }

// Start 阻塞监听；服务被正常关闭时返回 nil。
func (s *Server) Start() error {
	logger.Infof("[http] 监听 %s", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
