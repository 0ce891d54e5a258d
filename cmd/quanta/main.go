package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quanta/internal/agent"
	"quanta/internal/cache"
	"quanta/internal/coins"
	"quanta/internal/config"
	"quanta/internal/gateway/binance"
	"quanta/internal/logger"
	"quanta/internal/report"
	"quanta/internal/store"
	"quanta/internal/transport/http"
)

func main() {
	var (
		configPath = flag.String("config", "", "TOML 配置文件路径，留空使用内置默认值")
		once       = flag.String("once", "", "只分析一个币种并打印结果表格后退出")
		withHTML   = flag.Bool("html", false, "-once 模式下同时生成 HTML 报告")
		withPNG    = flag.Bool("png", false, "-once 模式下把 HTML 报告截图为 PNG（需要本机 Chrome）")
	)
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	logger.SetLevel(cfg.Log.Level)

	if *once != "" {
		if err := runOnce(cfg, *once, *withHTML, *withPNG); err != nil {
			logger.Errorf("分析失败: %v", err)
			os.Exit(1)
		}
		return
	}
	if err := runService(cfg); err != nil {
		logger.Errorf("服务退出: %v", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func newSource(cfg *config.Config) (*binance.Source, error) {
	return binance.New(binance.Config{
		RESTBaseURL: cfg.Binance.RESTBaseURL,
		WSBaseURL:   cfg.Binance.WSBaseURL,
		WSBatchSize: cfg.Binance.WSBatchSize,
		HTTPTimeout: time.Duration(cfg.Binance.TimeoutSeconds) * time.Second,
	})
}

// runOnce 单次分析模式：拉历史、跑引擎、打印表格，不启动任何常驻组件。
func runOnce(cfg *config.Config, symbol string, withHTML, withPNG bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	src, err := newSource(cfg)
	if err != nil {
		return err
	}
	defer src.Close()

	buf := store.NewCandleBuffer(cfg.Scan.HistoryBars * 2)
	sc, err := agent.NewScanner(agent.Params{
		Config:  cfg,
		Source:  src,
		Buffer:  buf,
		Funding: src,
	})
	if err != nil {
		return err
	}
	res, err := sc.AnalyzeSymbol(ctx, symbol)
	if err != nil {
		return err
	}
	fmt.Println(report.RenderTable(res))

	if !withHTML && !withPNG {
		return nil
	}
	candles := buf.Tail(res.Symbol, cfg.Scan.Interval, cfg.Scan.HistoryBars)
	htmlPath, err := report.WriteHTML(cfg.Report.Dir, res, candles)
	if err != nil {
		return err
	}
	logger.Infof("HTML 报告已生成: %s", htmlPath)
	if withPNG {
		pngPath, err := report.SnapshotPNG(ctx, htmlPath)
		if err != nil {
			logger.Warnf("截图失败，保留 HTML: %v", err)
			return nil
		}
		logger.Infof("PNG 快照已生成: %s", pngPath)
	}
	return nil
}

// runService 常驻模式：扫描器 + HTTP 服务，收到信号后优雅退出。
func runService(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	src, err := newSource(cfg)
	if err != nil {
		return err
	}
	defer src.Close()

	snapshots, err := store.OpenSnapshotStore(cfg.DB.Path)
	if err != nil {
		return err
	}
	defer snapshots.Close()

	var provider coins.SymbolProvider
	var symHealth http.SymbolHealth
	if cfg.Scan.SymbolsURL != "" {
		cached := coins.NewCachedProvider(
			coins.NewHTTPProvider(cfg.Scan.SymbolsURL),
			time.Duration(cfg.Scan.SymbolsRefreshSeconds)*time.Second,
			cfg.Scan.Symbols,
		)
		provider = cached
		symHealth = cached
	}

	mem := cache.NewMemory()
	sc, err := agent.NewScanner(agent.Params{
		Config:  cfg,
		Source:  src,
		Buffer:  store.NewCandleBuffer(cfg.Scan.HistoryBars * 2),
		Cache:   mem,
		Store:   snapshots,
		Funding: src,
		Symbols: provider,
	})
	if err != nil {
		return err
	}

	srv := http.NewServer(http.ServerParams{
		Addr:     cfg.Server.Addr,
		Interval: cfg.Scan.Interval,
		Analyzer: sc,
		Cache:    mem,
		Store:    snapshots,
		Source:   src,
		Scanner:  sc,
		Symbols:  symHealth,
	})

	errCh := make(chan error, 2)
	go func() {
		errCh <- srv.Start()
	}()
	go func() {
		errCh <- sc.Run(ctx)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && err != context.Canceled {
			stop()
			shutdown(srv)
			return err
		}
	}
	logger.Infof("收到退出信号，正在关闭")
	shutdown(srv)
	return nil
}

func shutdown(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warnf("HTTP 关闭超时: %v", err)
	}
}
