package logger

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// 统一日志出口：各层只依赖 Debugf/Infof/Warnf/Errorf，不直接接触底层实现。

var (
	mu  sync.RWMutex
	log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger().Level(zerolog.InfoLevel)
)

// SetLevel 设置全局日志级别（debug/info/warn/error），其余值回退到 info。
func SetLevel(level string) {
	lvl := zerolog.InfoLevel
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		lvl = zerolog.DebugLevel
	case "warn", "warning":
		lvl = zerolog.WarnLevel
	case "error":
		lvl = zerolog.ErrorLevel
	}
	mu.Lock()
	log = log.Level(lvl)
	mu.Unlock()
}

func Debugf(format string, args ...any) {
	mu.RLock()
	l := log
	mu.RUnlock()
	l.Debug().Msgf(format, args...)
}

func Infof(format string, args ...any) {
	mu.RLock()
	l := log
	mu.RUnlock()
	l.Info().Msgf(format, args...)
}

func Warnf(format string, args ...any) {
	mu.RLock()
	l := log
	mu.RUnlock()
	l.Warn().Msgf(format, args...)
}

func Errorf(format string, args ...any) {
	mu.RLock()
	l := log
	mu.RUnlock()
	l.Error().Msgf(format, args...)
}
