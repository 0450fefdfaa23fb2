package core

import (
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// LogLevel represents different log levels
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

// String returns the string representation of a log level
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "debug"
	case LogLevelInfo:
		return "info"
	case LogLevelWarn:
		return "warn"
	case LogLevelError:
		return "error"
	default:
		return "unknown"
	}
}

// ParseLogLevel converts a command line level name into a LogLevel
func ParseLogLevel(level string) (LogLevel, error) {
	switch strings.ToLower(level) {
	case "debug":
		return LogLevelDebug, nil
	case "", "info":
		return LogLevelInfo, nil
	case "warn", "warning":
		return LogLevelWarn, nil
	case "error":
		return LogLevelError, nil
	default:
		return LogLevelInfo, fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, level)
	}
}

func (l LogLevel) zerolog() zerolog.Level {
	switch l {
	case LogLevelDebug:
		return zerolog.DebugLevel
	case LogLevelWarn:
		return zerolog.WarnLevel
	case LogLevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Logger provides leveled, printf-style logging on top of zerolog
type Logger struct {
	mu     sync.RWMutex
	level  LogLevel
	logger zerolog.Logger
}

// NewLogger creates a logger writing human readable lines to stderr
func NewLogger(level LogLevel) *Logger {
	console := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.Kitchen,
	}
	return NewLoggerWithWriter(level, console)
}

// NewLoggerWithWriter creates a logger writing to w (JSON lines unless w is a
// zerolog.ConsoleWriter)
func NewLoggerWithWriter(level LogLevel, w io.Writer) *Logger {
	return &Logger{
		level:  level,
		logger: zerolog.New(w).With().Timestamp().Logger().Level(level.zerolog()),
	}
}

// SetLevel sets the minimum log level
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
	l.logger = l.logger.Level(level.zerolog())
}

// Level returns the minimum log level
func (l *Logger) Level() LogLevel {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level
}

func (l *Logger) zl() zerolog.Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.logger
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	zl := l.zl()
	zl.Debug().Msgf(format, args...)
}

// Info logs an info message
func (l *Logger) Info(format string, args ...interface{}) {
	zl := l.zl()
	zl.Info().Msgf(format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	zl := l.zl()
	zl.Warn().Msgf(format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	zl := l.zl()
	zl.Error().Msgf(format, args...)
}

// Namespace returns a zerolog logger tagged with the given namespace. Enabled
// debug namespaces print regardless of the configured log level.
func (l *Logger) Namespace(namespace string) zerolog.Logger {
	return l.zl().Level(zerolog.DebugLevel).With().Str("namespace", namespace).Logger()
}

// DebugFunc is the printf-style debug port handed to plugins
type DebugFunc func(format string, args ...interface{})

// NopDebug discards everything
func NopDebug(string, ...interface{}) {}

// DebugPatterns is the set of enabled debug namespaces, e.g. "sitesmith-*"
type DebugPatterns []string

// Enabled reports whether namespace matches one of the patterns
func (p DebugPatterns) Enabled(namespace string) bool {
	for _, pattern := range p {
		if pattern == "*" || pattern == namespace {
			return true
		}
		if ok, err := path.Match(pattern, namespace); err == nil && ok {
			return true
		}
	}
	return false
}

// ParseDebugPatterns splits a DEBUG style list ("a,b c") into patterns
func ParseDebugPatterns(value string) DebugPatterns {
	fields := strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == ' '
	})
	return DebugPatterns(fields)
}

// Global logger instance
var GlobalLogger = NewLogger(LogLevelInfo)

// Package-level logging functions
func Debug(format string, args ...interface{}) {
	GlobalLogger.Debug(format, args...)
}

func Info(format string, args ...interface{}) {
	GlobalLogger.Info(format, args...)
}

func Warn(format string, args ...interface{}) {
	GlobalLogger.Warn(format, args...)
}

func Error(format string, args ...interface{}) {
	GlobalLogger.Error(format, args...)
}
