package logging

import (
	"io"
	"sync"
	"time"
)

// Level orders log severities
type Level int

const (
	// DebugLevel is for voluminous tracing, disabled in production
	DebugLevel Level = iota
	// InfoLevel is the default priority
	InfoLevel
	// WarnLevel flags conditions worth attention but not review
	WarnLevel
	// ErrorLevel flags failures; a healthy service emits none
	ErrorLevel
)

// String returns the level's wire name
func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	}
	return "UNKNOWN"
}

// ParseLevel maps a level name to its Level; unknown names fall back to info
func ParseLevel(s string) Level {
	switch s {
	case "DEBUG", "debug":
		return DebugLevel
	case "INFO", "info":
		return InfoLevel
	case "WARN", "warn", "WARNING", "warning":
		return WarnLevel
	case "ERROR", "error":
		return ErrorLevel
	}
	return InfoLevel
}

// Field is one structured key-value pair attached to a log line
type Field struct {
	Key   string
	Value any
}

// Logger is the structured logging surface the rest of the module consumes
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	// With returns a child logger carrying the given fields on every line
	With(fields ...Field) Logger
	SetLevel(level Level)
	GetLevel() Level
}

// JSONLogger writes one JSON object per line
type JSONLogger struct {
	writer io.Writer
	level  Level
	fields []Field
	mu     sync.Mutex
}

// LogEntry is the serialised shape of one log line
type LogEntry struct {
	Time    string         `json:"time"`
	Level   string         `json:"level"`
	Message string         `json:"msg"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// NopLogger discards everything; handy in tests
type NopLogger struct{}

func (NopLogger) Debug(string, ...Field) {}
func (NopLogger) Info(string, ...Field) {}
func (NopLogger) Warn(string, ...Field) {}
func (NopLogger) Error(string, ...Field) {}
func (n NopLogger) With(...Field) Logger { return n }
func (NopLogger) SetLevel(Level) {}
func (NopLogger) GetLevel() Level { return InfoLevel }

// NewNopLogger returns a logger that drops all output
func NewNopLogger() Logger {
	return NopLogger{}
}

// TimedOperation measures one operation from construction to End
type TimedOperation struct {
	logger Logger
	msg    string
	start  time.Time
	fields []Field
}
