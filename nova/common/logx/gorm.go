package logx

import (
	"context"
	"fmt"
	"strings"
	"time"

	glogger "gorm.io/gorm/logger"
)

var gormExclude = []string{
	"gorm.io/gorm", "gorm.io/driver", "/database/sql", "runtime/", "/logx/",
}

type gormLogger struct {
	level glogger.LogLevel
	slow  time.Duration
}

// NewGormLogger maps a logx level name onto GORM: debug prints SQL, info keeps warnings and slow queries.
func NewGormLogger(level string, slowThreshold time.Duration) glogger.Interface {
	return &gormLogger{level: toGormLevel(level), slow: slowThreshold}
}

func GormLoggerDefault(level string) glogger.Interface {
	return NewGormLogger(level, 500*time.Millisecond)
}

func (l *gormLogger) LogMode(level glogger.LogLevel) glogger.Interface {
	cp := *l
	cp.level = level
	return &cp
}

func (l *gormLogger) Info(_ context.Context, s string, args ...any) {
	if l.level >= glogger.Info {
		writeLines(infoWriter(), Info, findCaller(gormExclude, 1), "gorm", fmt.Sprintf(s, args...))
	}
}

func (l *gormLogger) Warn(_ context.Context, s string, args ...any) {
	if l.level >= glogger.Warn {
		writeLines(infoWriter(), Warn, findCaller(gormExclude, 1), "gorm", fmt.Sprintf(s, args...))
	}
}

func (l *gormLogger) Error(_ context.Context, s string, args ...any) {
	if l.level >= glogger.Error {
		writeLines(errWriter(), Error, findCaller(gormExclude, 1), "gorm", fmt.Sprintf(s, args...))
	}
}

func (l *gormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level == glogger.Silent {
		return
	}
	where := findCaller(gormExclude, 1)
	elapsed := time.Since(begin)
	sql, rows := fc()
	rowStr := "-"
	if rows >= 0 {
		rowStr = fmt.Sprintf("%d", rows)
	}
	ms := float64(elapsed.Microseconds()) / 1000.0
	switch {
	case err != nil && l.level >= glogger.Error:
		writeLines(errWriter(), Error, where, "gorm", fmt.Sprintf("[%.3fms] rows=%s %s | err=%v", ms, rowStr, sql, err))
	case l.slow > 0 && elapsed > l.slow && l.level >= glogger.Warn:
		writeLines(infoWriter(), Warn, where, "gorm", fmt.Sprintf("[SLOW >= %s] [%.3fms] rows=%s %s", l.slow, ms, rowStr, sql))
	case l.level >= glogger.Info:
		writeLines(infoWriter(), Debug, where, "gorm", fmt.Sprintf("[%.3fms] rows=%s %s", ms, rowStr, sql))
	}
}

func toGormLevel(s string) glogger.LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "silent", "off":
		return glogger.Silent
	case "error":
		return glogger.Error
	case "debug", "trace":
		return glogger.Info
	default:
		return glogger.Warn
	}
}
