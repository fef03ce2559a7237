// Package logging wraps zap with the console+file tee the rest of the
// engine logs through. It exists so stages never import zap directly.
package logging

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Field is a type alias for zap.Field so callers never import zap.
type Field = zap.Field

// Field constructors re-exported for convenience.
var (
	String   = zap.String
	Int      = zap.Int
	Int64    = zap.Int64
	Uint64   = zap.Uint64
	Float64  = zap.Float64
	Bool     = zap.Bool
	Duration = zap.Duration
	Err      = zap.Error
)

// Config controls where and how verbosely the logger writes.
type Config struct {
	LogDir         string
	FileLevel      zapcore.Level
	ConsoleLevel   zapcore.Level
	ConsoleEnabled bool
}

// DefaultConfig returns the engine's default logging configuration:
// info-and-above to the console, debug-and-above to a JSON log file.
func DefaultConfig() *Config {
	return &Config{
		LogDir:         "logs",
		FileLevel:      zapcore.DebugLevel,
		ConsoleLevel:   zapcore.InfoLevel,
		ConsoleEnabled: true,
	}
}

// Logger wraps zap.Logger with the engine's own method set.
type Logger struct {
	zap *zap.Logger
}

// New builds a Logger writing JSON lines to <LogDir>/corpuscat.log and,
// when enabled, human-readable lines to stderr.
func New(cfg *Config) (*Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
		return nil, err
	}

	fileEncCfg := zap.NewProductionEncoderConfig()
	fileEncCfg.TimeKey = "ts"
	fileEncCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	fileEnc := zapcore.NewJSONEncoder(fileEncCfg)

	logPath := filepath.Join(cfg.LogDir, "corpuscat.log")
	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}

	core := zapcore.NewCore(fileEnc, zapcore.AddSync(file), cfg.FileLevel)

	if cfg.ConsoleEnabled {
		consoleEncCfg := zap.NewDevelopmentEncoderConfig()
		consoleEncCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		consoleEncCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		consoleEnc := zapcore.NewConsoleEncoder(consoleEncCfg)
		core = zapcore.NewTee(core, zapcore.NewCore(consoleEnc, zapcore.AddSync(os.Stderr), cfg.ConsoleLevel))
	}

	return &Logger{zap: zap.New(core)}, nil
}

// Nop returns a Logger that discards everything, for tests.
func Nop() *Logger {
	return &Logger{zap: zap.NewNop()}
}

func (l *Logger) Debug(msg string, fields ...Field) { l.zap.Debug(msg, fields...) }
func (l *Logger) Info(msg string, fields ...Field)  { l.zap.Info(msg, fields...) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.zap.Warn(msg, fields...) }
func (l *Logger) Error(msg string, fields ...Field) { l.zap.Error(msg, fields...) }

// Sync flushes buffered log entries.
func (l *Logger) Sync() error { return l.zap.Sync() }

// With returns a child logger carrying additional fields on every entry.
func (l *Logger) With(fields ...Field) *Logger { return &Logger{zap: l.zap.With(fields...)} }
