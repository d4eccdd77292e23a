package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	appLog "trustcal/internal/log"
)

// GormLogger routes gorm's logging through the application logger.
type GormLogger struct {
	SlowThreshold time.Duration
	LogLevel      logger.LogLevel
}

func NewGormLogger(slowThreshold time.Duration, level logger.LogLevel) *GormLogger {
	return &GormLogger{SlowThreshold: slowThreshold, LogLevel: level}
}

func (l *GormLogger) LogMode(level logger.LogLevel) logger.Interface {
	n := *l
	n.LogLevel = level
	return &n
}

func (l *GormLogger) Info(_ context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= logger.Info {
		appLog.Info(fmt.Sprintf(msg, data...), "component", "gorm")
	}
}

func (l *GormLogger) Warn(_ context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= logger.Warn {
		appLog.Warn(fmt.Sprintf(msg, data...), "component", "gorm")
	}
}

func (l *GormLogger) Error(_ context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= logger.Error {
		appLog.Error("gorm error", fmt.Errorf(msg, data...), "component", "gorm")
	}
}

// Trace logs failed and slow queries. Record-not-found is expected and
// stays silent.
func (l *GormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.LogLevel <= logger.Silent {
		return
	}
	elapsed := time.Since(begin)

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.LogLevel >= logger.Error:
		sql, rows := fc()
		appLog.Error("query failed", err, "sql", sql, "rows", rows, "elapsed", elapsed)
	case l.SlowThreshold > 0 && elapsed > l.SlowThreshold && l.LogLevel >= logger.Warn:
		sql, rows := fc()
		appLog.Warn("slow query", "sql", sql, "rows", rows, "elapsed", elapsed, "threshold", l.SlowThreshold)
	case l.LogLevel >= logger.Info:
		sql, rows := fc()
		appLog.Debug("query", "sql", sql, "rows", rows, "elapsed", elapsed)
	}
}
