// Package logging provides a config-driven, categorized logger for the
// execution core. Every component gets its own Category so a debugging
// session can isolate "just the router" or "just the coordinator" without
// grepping a single interleaved stream. It wraps go.uber.org/zap rather than
// hand-rolling level filtering and file rotation.
package logging

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category identifies the subsystem emitting a log line.
type Category string

const (
	CategorySignal      Category = "signal"
	CategoryRouter      Category = "router"
	CategoryPlanner     Category = "planner"
	CategoryExecutor    Category = "executor"
	CategoryValidate    Category = "validate"
	CategoryAutofix     Category = "autofix"
	CategoryCoordinator Category = "coordinator"
	CategoryMemory      Category = "memory"
	CategoryEvents      Category = "events"
	CategoryCLI         Category = "cli"
)

// Level mirrors the AGENT_LOG_LEVEL environment variable values.
type Level string

const (
	LevelError Level = "error"
	LevelWarn  Level = "warn"
	LevelInfo  Level = "info"
	LevelDebug Level = "debug"
)

var levelToZap = map[Level]zapcore.Level{
	LevelError: zapcore.ErrorLevel,
	LevelWarn:  zapcore.WarnLevel,
	LevelInfo:  zapcore.InfoLevel,
	LevelDebug: zapcore.DebugLevel,
}

// Logger is a categorized wrapper around a single zap.Logger instance.
type Logger struct {
	mu   sync.RWMutex
	base *zap.Logger
}

var (
	defaultMu sync.RWMutex
	def       *Logger
)

// Init installs the process-wide default Logger. Components obtain their
// category-scoped logger by calling For(category); Init must be called once
// during startup (by cmd/sunwell), never from an init() global per the
// Design Note against module-level global state — callers pass *Logger
// explicitly wherever practical, and this package-level default exists only
// to give library code a safe no-op fallback before Init runs.
func Init(level Level, format string, out *os.File) (*Logger, error) {
	zl, err := build(level, format, out)
	if err != nil {
		return nil, err
	}
	l := &Logger{base: zl}
	defaultMu.Lock()
	def = l
	defaultMu.Unlock()
	return l, nil
}

func build(level Level, format string, out *os.File) (*zap.Logger, error) {
	zlevel, ok := levelToZap[level]
	if !ok {
		zlevel = zapcore.InfoLevel
	}
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	if format == "json" {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		enc = zapcore.NewConsoleEncoder(encCfg)
	}
	if out == nil {
		out = os.Stderr
	}
	core := zapcore.NewCore(enc, zapcore.AddSync(out), zlevel)
	return zap.New(core), nil
}

// Default returns the process-wide Logger, lazily building a stderr/info
// instance if Init has not yet run (keeps package-level helper calls safe in
// tests that never touch config).
func Default() *Logger {
	defaultMu.RLock()
	l := def
	defaultMu.RUnlock()
	if l != nil {
		return l
	}
	zl, _ := build(LevelInfo, "text", os.Stderr)
	return &Logger{base: zl}
}

// For returns a child logger scoped to category.
func (l *Logger) For(category Category) *zap.SugaredLogger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.base.With(zap.String("category", string(category))).Sugar()
}

// Sync flushes any buffered log entries.
func (l *Logger) Sync() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.base.Sync()
}
