package logger

import (
	"io"
	"log"
)

type LogLevel int

const (
	LogLevelNone LogLevel = iota
	LogLevelError
	LogLevelWarning
	LogLevelInfo
	LogLevelDebug
)

// Logger is a leveled wrapper around a standard log.Logger.
type Logger struct {
	logger *log.Logger
	level  LogLevel
	tag    string
}

func NewLogger(base *log.Logger, level LogLevel) *Logger {
	if base == nil {
		base = log.New(io.Discard, "", 0)
	}
	return &Logger{
		logger: base,
		level:  level,
	}
}

// WithTag returns a logger that prefixes every message with [tag].
func (l *Logger) WithTag(tag string) *Logger {
	return &Logger{
		logger: l.logger,
		level:  l.level,
		tag:    tag,
	}
}

func (l *Logger) prefix(level, format string) string {
	out := format
	if level != "" {
		out = level + " " + out
	}
	if l.tag != "" {
		out = "[" + l.tag + "] " + out
	}
	return out
}

func (l *Logger) Debugf(format string, v ...interface{}) {
	if l.level >= LogLevelDebug {
		l.logger.Printf(l.prefix("DEBUG:", format), v...)
	}
}

func (l *Logger) Infof(format string, v ...interface{}) {
	if l.level >= LogLevelInfo {
		l.logger.Printf(l.prefix("", format), v...)
	}
}

func (l *Logger) Warnf(format string, v ...interface{}) {
	if l.level >= LogLevelWarning {
		l.logger.Printf(l.prefix("WARN:", format), v...)
	}
}

func (l *Logger) Errorf(format string, v ...interface{}) {
	if l.level >= LogLevelError {
		l.logger.Printf(l.prefix("ERROR:", format), v...)
	}
}

func (l *Logger) Fatalf(format string, v ...interface{}) {
	l.logger.Fatalf(l.prefix("FATAL:", format), v...)
}
