// Package logger provides structured logging for ctreport.
// It wraps uber-go/zap with a key=value text encoder for terminals and a JSON
// encoder for machine consumption, optionally teeing into a rotated log file.
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Field keys shared across packages
const (
	FieldRunID = "run_id"
	FieldNode  = "node"
	FieldHost  = "host"
	FieldCVE   = "cve_id"
	FieldPath  = "path"
)

var (
	// Global logger instance
	globalLogger *zap.Logger
	once         sync.Once
)

// Config holds the logger configuration
type Config struct {
	// Level is the minimum log level (debug, info, warn, error)
	Level string `yaml:"level"`
	// Format is the output format (json, text)
	Format string `yaml:"format"`
	// File is the log file path (empty for console only)
	File string `yaml:"file"`
	// MaxSize is the maximum size in megabytes of the log file before it gets rotated
	MaxSize int `yaml:"max_size"`
	// MaxAge is the maximum number of days to retain old log files
	MaxAge int `yaml:"max_age"`
	// MaxBackups is the maximum number of old log files to retain
	MaxBackups int `yaml:"max_backups"`
	// Compress determines if the rotated log files should be compressed using gzip
	Compress bool `yaml:"compress"`
}

// Init initializes the global logger with the given configuration.
// This function is safe to call multiple times; only the first call will take effect.
func Init(cfg Config) error {
	var initErr error
	once.Do(func() {
		initErr = initLogger(cfg)
	})
	return initErr
}

func initLogger(cfg Config) error {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 20
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 7
	}
	if cfg.MaxBackups <= 0 {
		cfg.MaxBackups = 3
	}

	var consoleEnc, fileEnc zapcore.Encoder
	if cfg.Format == "json" {
		consoleEnc = zapcore.NewJSONEncoder(jsonEncoderConfig())
		fileEnc = consoleEnc
	} else {
		consoleEnc = newKVConsoleEncoder(textEncoderConfig(bracketColorLevelEncoder))
		fileEnc = newKVConsoleEncoder(textEncoderConfig(bracketLevelEncoder))
	}

	globalLogger = zap.New(buildCore(cfg, level, consoleEnc, fileEnc),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	return nil
}

// buildCore writes to stderr, leaving stdout free for command output.
// With a file configured the entries are teed into a lumberjack-rotated file.
func buildCore(cfg Config, level zapcore.Level, consoleEnc, fileEnc zapcore.Encoder) zapcore.Core {
	consoleCore := zapcore.NewCore(consoleEnc, zapcore.AddSync(os.Stderr), level)
	if cfg.File == "" {
		return consoleCore
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create log directory: %v, using console only\n", err)
		return consoleCore
	}

	fileWriter := zapcore.AddSync(&lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSize,
		MaxAge:     cfg.MaxAge,
		MaxBackups: cfg.MaxBackups,
		Compress:   cfg.Compress,
	})
	return zapcore.NewTee(consoleCore, zapcore.NewCore(fileEnc, fileWriter, level))
}

func textEncoderConfig(levelEncoder zapcore.LevelEncoder) zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:          "time",
		LevelKey:         "level",
		NameKey:          zapcore.OmitKey,
		CallerKey:        zapcore.OmitKey,
		FunctionKey:      zapcore.OmitKey,
		MessageKey:       "msg",
		StacktraceKey:    "stacktrace",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeLevel:      levelEncoder,
		EncodeTime:       bracketTimeEncoder,
		EncodeDuration:   zapcore.StringDurationEncoder,
		EncodeCaller:     zapcore.ShortCallerEncoder,
		ConsoleSeparator: " ",
	}
}

func jsonEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// bracketTimeEncoder formats time with brackets: [15:04:05]
func bracketTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString("[" + t.Format("15:04:05") + "]")
}

// bracketLevelEncoder formats level with brackets: [INFO]
func bracketLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString("[" + level.CapitalString() + "]")
}

// bracketColorLevelEncoder formats level with brackets and ANSI color
func bracketColorLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	var color string
	switch level {
	case zapcore.DebugLevel:
		color = "\x1b[35m"
	case zapcore.InfoLevel:
		color = "\x1b[34m"
	case zapcore.WarnLevel:
		color = "\x1b[33m"
	case zapcore.ErrorLevel, zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		color = "\x1b[31m"
	default:
		color = "\x1b[0m"
	}
	enc.AppendString(color + "[" + level.CapitalString() + "]\x1b[0m")
}

func parseLevel(level string) (zapcore.Level, error) {
	var l zapcore.Level
	err := l.UnmarshalText([]byte(level))
	return l, err
}

// Get returns the global logger instance.
// If the logger hasn't been initialized, it returns a no-op logger.
func Get() *zap.Logger {
	if globalLogger == nil {
		return zap.NewNop()
	}
	return globalLogger
}

// Sugar returns the sugared global logger.
func Sugar() *zap.SugaredLogger {
	return Get().Sugar()
}

// With creates a child logger with additional fields
func With(fields ...zap.Field) *zap.Logger {
	return Get().With(fields...)
}

// Named creates a child logger with the given name
func Named(name string) *zap.Logger {
	return Get().Named(name)
}

// ForRun returns a child logger tagged with the run identifier.
func ForRun(runID string) *zap.Logger {
	return Get().With(zap.String(FieldRunID, runID))
}

// Debug logs a debug message
func Debug(msg string, fields ...zap.Field) {
	Get().WithOptions(zap.AddCallerSkip(1)).Debug(msg, fields...)
}

// Info logs an info message
func Info(msg string, fields ...zap.Field) {
	Get().WithOptions(zap.AddCallerSkip(1)).Info(msg, fields...)
}

// Warn logs a warning message
func Warn(msg string, fields ...zap.Field) {
	Get().WithOptions(zap.AddCallerSkip(1)).Warn(msg, fields...)
}

// Error logs an error message
func Error(msg string, fields ...zap.Field) {
	Get().WithOptions(zap.AddCallerSkip(1)).Error(msg, fields...)
}

// Sync flushes any buffered log entries
func Sync() error {
	if globalLogger != nil {
		return globalLogger.Sync()
	}
	return nil
}
