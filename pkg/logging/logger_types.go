package logging

import (
	"io"
	"strings"
	"sync"
	"time"
)

// Level orders log severities; entries below a logger's level are dropped.
type Level int

const (
	DebugLevel Level = iota // per-batch iteration traces
	InfoLevel               // run start and stop
	WarnLevel               // dropped frames, failed sinks
	ErrorLevel              // failed commits, exports and transports
)

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

// ParseLevel reads a LOG_LEVEL style name. Anything unrecognised is info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	}
	return InfoLevel
}

// Field is one key/value in an entry's "fields" object.
type Field struct {
	Key   string
	Value any
}

// Logger is what every component takes; JSONLogger and NopLogger implement it.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) Logger // child that always carries fields
	SetLevel(level Level)
	GetLevel() Level
}

// JSONLogger writes one JSON object per line. Children made by With share
// the writer and the level.
type JSONLogger struct {
	out    *lockedWriter
	level  *levelVar
	fields []Field
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

type levelVar struct {
	mu    sync.RWMutex
	level Level
}

// LogEntry is one encoded line.
type LogEntry struct {
	Time    string         `json:"time"`
	Level   string         `json:"level"`
	Message string         `json:"msg"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// NopLogger discards everything. Engines default to it.
type NopLogger struct{}

func (NopLogger) Debug(string, ...Field) {}
func (NopLogger) Info(string, ...Field)  {}
func (NopLogger) Warn(string, ...Field)  {}
func (NopLogger) Error(string, ...Field) {}
func (n NopLogger) With(...Field) Logger { return n }
func (NopLogger) SetLevel(Level)         {}
func (NopLogger) GetLevel() Level        { return InfoLevel }

func NewNopLogger() Logger {
	return NopLogger{}
}

// TimedOperation logs msg with a latency field when End or EndError is called.
type TimedOperation struct {
	logger Logger
	msg    string
	start  time.Time
	fields []Field
}
