package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// New 建立 root logger, 並設為 zerolog/log 的全域 logger
// level 解析失敗時使用 info
func New(level string, pretty bool) *zerolog.Logger {
	return NewWithWriter(os.Stdout, level, pretty)
}

func NewWithWriter(w io.Writer, level string, pretty bool) *zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	l := zerolog.New(w).Level(lvl).With().Timestamp().Str("service", "storefront").Logger()
	log.Logger = l
	return &l
}

// Nop 給測試使用
func Nop() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}
