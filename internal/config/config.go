package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Config 汇总服务运行所需的全部配置，来源为一个 TOML 文件。
type Config struct {
	Server  Server  `toml:"server"`
	Log     Log     `toml:"log"`
	Binance Binance `toml:"binance"`
	Scan    Scan    `toml:"scan"`
	Cache   Cache   `toml:"cache"`
	DB      DB      `toml:"db"`
	Report  Report  `toml:"report"`
}

type Server struct {
	Addr string `toml:"addr"`
}

type Log struct {
	Level string `toml:"level"`
}

type Binance struct {
	RESTBaseURL    string `toml:"rest_base_url"`
	WSBaseURL      string `toml:"ws_base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	WSBatchSize    int    `toml:"ws_batch_size"`
}

type Scan struct {
	Symbols []string `toml:"symbols"`
	// SymbolsURL 非空时从远端 API 拉取扫描列表，静态 symbols 退化为兜底。
	SymbolsURL            string `toml:"symbols_url"`
	SymbolsRefreshSeconds int    `toml:"symbols_refresh_seconds"`

	Interval        string   `toml:"interval"`
	HistoryBars     int      `toml:"history_bars"`
	CadenceSeconds  int      `toml:"cadence_seconds"`
	Parallelism     int      `toml:"parallelism"`
	BenchmarkSymbol string   `toml:"benchmark_symbol"`
	LiveUpdates     bool     `toml:"live_updates"`
}

type Cache struct {
	TTLSeconds int `toml:"ttl_seconds"`
}

type DB struct {
	Path string `toml:"path"`
}

type Report struct {
	Dir string `toml:"dir"`
}

// Load 读取并校验配置；缺省值在这里统一补齐。
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置失败: %w", err)
	}
	var cfg Config
	if err := toml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default 返回一份可直接运行的缺省配置（无配置文件时使用）。
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":9980"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Binance.TimeoutSeconds <= 0 {
		c.Binance.TimeoutSeconds = 15
	}
	if c.Binance.WSBatchSize <= 0 {
		c.Binance.WSBatchSize = 150
	}
	if len(c.Scan.Symbols) == 0 {
		c.Scan.Symbols = []string{"BTCUSDT", "ETHUSDT"}
	}
	if c.Scan.Interval == "" {
		c.Scan.Interval = "1h"
	}
	if c.Scan.HistoryBars <= 0 {
		c.Scan.HistoryBars = 400
	}
	if c.Scan.CadenceSeconds <= 0 {
		c.Scan.CadenceSeconds = 300
	}
	if c.Scan.Parallelism <= 0 {
		c.Scan.Parallelism = 4
	}
	if c.Scan.SymbolsRefreshSeconds <= 0 {
		c.Scan.SymbolsRefreshSeconds = 3600
	}
	if c.Scan.BenchmarkSymbol == "" {
		c.Scan.BenchmarkSymbol = "BTCUSDT"
	}
	if c.Cache.TTLSeconds <= 0 {
		c.Cache.TTLSeconds = 120
	}
	if c.DB.Path == "" {
		c.DB.Path = "quanta.db"
	}
	if c.Report.Dir == "" {
		c.Report.Dir = "reports"
	}
}

func (c *Config) validate() error {
	for _, sym := range c.Scan.Symbols {
		if strings.TrimSpace(sym) == "" {
			return fmt.Errorf("scan.symbols 含空白项")
		}
	}
	if c.Scan.HistoryBars < 30 {
		return fmt.Errorf("scan.history_bars 不可小于 30（引擎下限）")
	}
	return nil
}
