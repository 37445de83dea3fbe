package logger

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/agrocoop/agrocoop/internal/config"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

const slowQueryThreshold = 200 * time.Millisecond

// queryLogger bridges gorm's logger interface onto zap. The request-scoped
// logger wins when the context carries one so query lines keep the request id;
// otherwise the injected base logger is used, never the process-global one.
type queryLogger struct {
	base          *zap.Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
}

// NewGormLogger derives the query log level from the application log level:
// debug surfaces every statement, anything else only slow queries and errors.
func NewGormLogger(base *zap.Logger, cfg config.Config) gormlogger.Interface {
	level := gormlogger.Warn
	if strings.EqualFold(strings.TrimSpace(cfg.LogLevel), "debug") {
		level = gormlogger.Info
	}
	return &queryLogger{
		base:          base.Named("gorm"),
		level:         level,
		slowThreshold: slowQueryThreshold,
	}
}

func (l *queryLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *queryLogger) logger(ctx context.Context) *zap.Logger {
	if ctx != nil {
		if scoped, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok && scoped != nil {
			return scoped.Named("gorm")
		}
	}
	return l.base
}

func (l *queryLogger) Info(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Info {
		l.logger(ctx).Sugar().Infof(msg, args...)
	}
}

func (l *queryLogger) Warn(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Warn {
		l.logger(ctx).Sugar().Warnf(msg, args...)
	}
}

func (l *queryLogger) Error(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Error {
		l.logger(ctx).Sugar().Errorf(msg, args...)
	}
}

func (l *queryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	isError := err != nil && !errors.Is(err, gormlogger.ErrRecordNotFound)
	isSlow := l.slowThreshold > 0 && elapsed >= l.slowThreshold
	if !isError && !isSlow && l.level < gormlogger.Info {
		return
	}

	sql, rows := fc()
	fields := []zap.Field{
		zap.String("sql", strings.TrimSpace(sql)),
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
	}

	switch {
	case isError && l.level >= gormlogger.Error:
		l.logger(ctx).Error("query failed", append(fields, zap.Error(err))...)
	case isSlow && l.level >= gormlogger.Warn:
		l.logger(ctx).Warn("slow query", fields...)
	case l.level >= gormlogger.Info:
		l.logger(ctx).Debug("query", fields...)
	}
}

var _ gormlogger.Interface = (*queryLogger)(nil)
