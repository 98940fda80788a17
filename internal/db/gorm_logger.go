package db

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/arencloud/stackdeck/internal/logging"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// gormLogger forwards gorm output to the structured logger. Raw SQL is never
// logged since slot values carry instance credentials.
type gormLogger struct {
	l     logging.Logger
	level logger.LogLevel
}

func newGormLogger(l logging.Logger, lvl logger.LogLevel) *gormLogger {
	return &gormLogger{l: l.With("component", "gorm"), level: lvl}
}

func (g *gormLogger) LogMode(l logger.LogLevel) logger.Interface {
	return &gormLogger{l: g.l, level: l}
}

func (g *gormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if g.level >= logger.Info {
		g.l.Info("gorm", "msg", msg, "args", data)
	}
}

func (g *gormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if g.level >= logger.Warn {
		g.l.Error("gorm_warn", "msg", msg, "args", data)
	}
}

func (g *gormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if g.level >= logger.Error {
		g.l.Error("gorm_error", "msg", msg, "args", data)
	}
}

// Trace logs each statement as an operation/table summary with duration and rows.
func (g *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if g.level <= logger.Silent {
		return
	}
	sql, rows := fc()
	op, table := summarizeSQL(sql)
	fields := []any{"op", op, "table", table, "rows", rows, "durationMs", float64(time.Since(begin)) / 1e6}
	switch {
	case err != nil && errors.Is(err, gorm.ErrRecordNotFound):
		// empty slots are an expected outcome
		if g.level >= logger.Info {
			g.l.Debug("gorm_sql", append(fields, "notFound", true)...)
		}
	case err != nil:
		if g.level >= logger.Error {
			g.l.Error("gorm_sql", append(fields, "error", err.Error())...)
		}
	case g.level >= logger.Info:
		g.l.Debug("gorm_sql", fields...)
	}
}

// summarizeSQL returns the statement verb and target table, e.g. "SELECT", "settings".
func summarizeSQL(sql string) (op string, table string) {
	q := strings.ToUpper(strings.Join(strings.Fields(sql), " "))
	parts := strings.Fields(q)
	if len(parts) == 0 {
		return "", ""
	}
	op = parts[0]
	s := q
	switch {
	case strings.HasPrefix(s, "UPDATE "):
		s = s[len("UPDATE "):]
	case strings.HasPrefix(s, "INSERT INTO "):
		s = s[len("INSERT INTO "):]
	case strings.HasPrefix(s, "DELETE FROM "):
		s = s[len("DELETE FROM "):]
	default:
		if idx := strings.Index(s, " FROM "); idx >= 0 {
			s = s[idx+6:]
		}
	}
	if ws := strings.Fields(s); len(ws) > 0 {
		table = strings.Trim(ws[0], "`\"")
	}
	return op, strings.ToLower(table)
}
