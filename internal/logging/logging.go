package logging

import (
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Error(msg string, kv ...any)
	Fatal(msg string, kv ...any)
	// With returns a child logger that adds kv to every entry.
	With(kv ...any) Logger
	// Zap exposes the underlying logger for libraries that take *zap.Logger.
	Zap() *zap.Logger
}

// Entry is one captured log line, kept for the recent-logs endpoint.
type Entry struct {
	Time   time.Time      `json:"time"`
	Level  string         `json:"level"`
	Logger string         `json:"logger,omitempty"`
	Msg    string         `json:"msg"`
	Fields map[string]any `json:"fields,omitempty"`
}

type zapLogger struct {
	s *zap.SugaredLogger
}

var (
	bufMu   sync.RWMutex
	recent  = make([]*Entry, 1000)
	nextIdx = 0
	// shared by every logger built through New so the level can be changed at runtime
	level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

// New creates a logger; honors env vars LOG_LEVEL (debug|info|error|fatal), LOG_JSON (true|false).
func New(env string) Logger {
	lvl := os.Getenv("LOG_LEVEL")
	if lvl == "" {
		lvl = "info"
	}
	SetLevel(lvl)
	j := os.Getenv("LOG_JSON") != "false"

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.MessageKey = "msg"
	encCfg.EncodeTime = zapcore.RFC3339TimeEncoder
	var enc zapcore.Encoder
	if j {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}
	core := zapcore.NewTee(
		zapcore.NewCore(enc, zapcore.Lock(os.Stderr), level),
		&ringCore{LevelEnabler: level},
	)
	z := zap.New(core).With(zap.String("env", env))
	return &zapLogger{s: z.Sugar()}
}

// Wrap adapts an existing zap logger; entries still land in the recent buffer
// only when the logger was built by New.
func Wrap(z *zap.Logger) Logger { return &zapLogger{s: z.Sugar()} }

// SetLevel changes the level of every logger built by New.
func SetLevel(lvl string) {
	switch strings.ToLower(lvl) {
	case "debug":
		level.SetLevel(zapcore.DebugLevel)
	case "error":
		level.SetLevel(zapcore.ErrorLevel)
	case "fatal":
		level.SetLevel(zapcore.FatalLevel)
	default:
		level.SetLevel(zapcore.InfoLevel)
	}
}

func GetLevel() string { return level.Level().String() }

func (l *zapLogger) Debug(msg string, kv ...any) { l.s.Debugw(msg, kv...) }
func (l *zapLogger) Info(msg string, kv ...any)  { l.s.Infow(msg, kv...) }
func (l *zapLogger) Error(msg string, kv ...any) { l.s.Errorw(msg, kv...) }
func (l *zapLogger) Fatal(msg string, kv ...any) { l.s.Fatalw(msg, kv...) }
func (l *zapLogger) With(kv ...any) Logger       { return &zapLogger{s: l.s.With(kv...)} }
func (l *zapLogger) Zap() *zap.Logger            { return l.s.Desugar() }

// ringCore captures entries into the package ring buffer.
type ringCore struct {
	zapcore.LevelEnabler
	fields []zapcore.Field
}

func (c *ringCore) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	merged = append(merged, fields...)
	return &ringCore{LevelEnabler: c.LevelEnabler, fields: merged}
}

func (c *ringCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(e.Level) {
		return ce.AddCore(e, c)
	}
	return ce
}

func (c *ringCore) Write(e zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range c.fields {
		f.AddTo(enc)
	}
	for _, f := range fields {
		f.AddTo(enc)
	}
	var fm map[string]any
	if len(enc.Fields) > 0 {
		fm = enc.Fields
	}
	appendBuf(&Entry{Time: e.Time, Level: e.Level.String(), Logger: e.LoggerName, Msg: e.Message, Fields: fm})
	return nil
}

func (c *ringCore) Sync() error { return nil }

func appendBuf(e *Entry) {
	bufMu.Lock()
	defer bufMu.Unlock()
	recent[nextIdx] = e
	nextIdx = (nextIdx + 1) % len(recent)
}

// Recent returns up to n most recent log entries (newest-first).
func Recent(n int) []*Entry {
	bufMu.RLock()
	defer bufMu.RUnlock()
	if n <= 0 || n > len(recent) {
		n = len(recent)
	}
	out := make([]*Entry, 0, n)
	i := (nextIdx - 1 + len(recent)) % len(recent)
	for c := 0; c < len(recent) && len(out) < n; c++ {
		if recent[i] != nil {
			out = append(out, recent[i])
		}
		i = (i - 1 + len(recent)) % len(recent)
	}
	return out
}
