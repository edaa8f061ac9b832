package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/learnhub-backend/internal/platform/logger"
)

const slowQueryThreshold = time.Second

// zapGormLogger routes gorm output through the service logger. Only slow
// queries and errors are logged; not-found is expected and dropped.
type zapGormLogger struct {
	log   *logger.Logger
	level gormLogger.LogLevel
}

func newGormLogger(log *logger.Logger) gormLogger.Interface {
	return &zapGormLogger{log: log.With("component", "gorm"), level: gormLogger.Warn}
}

func (l *zapGormLogger) LogMode(level gormLogger.LogLevel) gormLogger.Interface {
	cp := *l
	cp.level = level
	return &cp
}

func (l *zapGormLogger) Info(_ context.Context, msg string, args ...interface{}) {
	if l.level >= gormLogger.Info {
		l.log.Info(fmt.Sprintf(msg, args...))
	}
}

func (l *zapGormLogger) Warn(_ context.Context, msg string, args ...interface{}) {
	if l.level >= gormLogger.Warn {
		l.log.Warn(fmt.Sprintf(msg, args...))
	}
}

func (l *zapGormLogger) Error(_ context.Context, msg string, args ...interface{}) {
	if l.level >= gormLogger.Error {
		l.log.Error(fmt.Sprintf(msg, args...))
	}
}

func (l *zapGormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormLogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && l.level >= gormLogger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		l.log.Warn("query failed", "error", err, "elapsed_ms", elapsed.Milliseconds(), "rows", rows, "sql", sql)
	case elapsed > slowQueryThreshold && l.level >= gormLogger.Warn:
		sql, rows := fc()
		l.log.Warn("slow query", "elapsed_ms", elapsed.Milliseconds(), "rows", rows, "sql", sql)
	case l.level >= gormLogger.Info:
		sql, rows := fc()
		l.log.Debug("query", "elapsed_ms", elapsed.Milliseconds(), "rows", rows, "sql", sql)
	}
}
