package db

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GormLogger 將 gorm 的 log 轉給 zerolog
// 超過 slowThreshold 的 sql 以 warn 記錄, record not found 不視為錯誤
type GormLogger struct {
	log           zerolog.Logger
	slowThreshold time.Duration
}

func NewGormLogger(l *zerolog.Logger, slowThreshold time.Duration) *GormLogger {
	if l == nil {
		nop := zerolog.Nop()
		l = &nop
	}
	return &GormLogger{
		log:           l.With().Str("component", "gorm").Logger(),
		slowThreshold: slowThreshold,
	}
}

func (g *GormLogger) LogMode(level logger.LogLevel) logger.Interface {
	n := *g
	switch level {
	case logger.Silent:
		n.log = g.log.Level(zerolog.Disabled)
	case logger.Error:
		n.log = g.log.Level(zerolog.ErrorLevel)
	case logger.Warn:
		n.log = g.log.Level(zerolog.WarnLevel)
	case logger.Info:
		n.log = g.log.Level(zerolog.InfoLevel)
	}
	return &n
}

func (g *GormLogger) Info(ctx context.Context, msg string, args ...interface{}) {
	g.log.Info().Msgf(msg, args...)
}

func (g *GormLogger) Warn(ctx context.Context, msg string, args ...interface{}) {
	g.log.Warn().Msgf(msg, args...)
}

func (g *GormLogger) Error(ctx context.Context, msg string, args ...interface{}) {
	g.log.Error().Msgf(msg, args...)
}

func (g *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		g.log.Error().Err(err).Dur("elapsed", elapsed).Int64("rows", rows).Str("sql", sql).Msg("sql error")
	case g.slowThreshold > 0 && elapsed > g.slowThreshold:
		sql, rows := fc()
		g.log.Warn().Dur("elapsed", elapsed).Int64("rows", rows).Str("sql", sql).Msg("slow sql")
	default:
		if g.log.GetLevel() <= zerolog.DebugLevel {
			sql, rows := fc()
			g.log.Debug().Dur("elapsed", elapsed).Int64("rows", rows).Str("sql", sql).Msg("sql")
		}
	}
}

var _ logger.Interface = (*GormLogger)(nil)
