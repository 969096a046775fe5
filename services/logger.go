package services

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"time"
)

// LogLevel is the severity of a log entry
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

var levelRank = map[LogLevel]int{
	LogLevelDebug: 0,
	LogLevelInfo:  1,
	LogLevelWarn:  2,
	LogLevelError: 3,
}

// rank maps a level to its ordering; unknown levels rank as info
func (l LogLevel) rank() int {
	if r, ok := levelRank[l]; ok {
		return r
	}
	return levelRank[LogLevelInfo]
}

// LogField is one key/value pair attached to a log entry
type LogField struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

// LogEntry is the shape of one emitted line
type LogEntry struct {
	Timestamp string                 `json:"timestamp"`
	Level     LogLevel               `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

// Logger is the structured logging surface the services depend on
type Logger interface {
	Debug(msg string, fields ...LogField)
	Info(msg string, fields ...LogField)
	Warn(msg string, fields ...LogField)
	Error(msg string, err error, fields ...LogField)
	With(fields ...LogField) Logger
}

// StructuredLogger writes one JSON object per line. Base fields set via
// With are merged into every entry; per-call fields win on key collision.
type StructuredLogger struct {
	level      LogLevel
	output     io.Writer
	baseFields map[string]interface{}
}

// NewStructuredLogger creates a logger filtering below level; nil output
// means stdout
func NewStructuredLogger(level LogLevel, output io.Writer) *StructuredLogger {
	if output == nil {
		output = os.Stdout
	}
	return &StructuredLogger{
		level:      level,
		output:     output,
		baseFields: make(map[string]interface{}),
	}
}

// NewDefaultLogger creates an info-level logger on stdout
func NewDefaultLogger() *StructuredLogger {
	return NewStructuredLogger(LogLevelInfo, os.Stdout)
}

// Debug logs at debug level
func (l *StructuredLogger) Debug(msg string, fields ...LogField) {
	l.emit(LogLevelDebug, msg, nil, fields)
}

// Info logs at info level
func (l *StructuredLogger) Info(msg string, fields ...LogField) {
	l.emit(LogLevelInfo, msg, nil, fields)
}

// Warn logs at warn level
func (l *StructuredLogger) Warn(msg string, fields ...LogField) {
	l.emit(LogLevelWarn, msg, nil, fields)
}

// Error logs at error level with the error attached
func (l *StructuredLogger) Error(msg string, err error, fields ...LogField) {
	l.emit(LogLevelError, msg, err, fields)
}

// With returns a logger that carries the extra fields on every entry
func (l *StructuredLogger) With(fields ...LogField) Logger {
	merged := make(map[string]interface{}, len(l.baseFields)+len(fields))
	for k, v := range l.baseFields {
		merged[k] = v
	}
	for _, f := range fields {
		merged[f.Key] = f.Value
	}
	return &StructuredLogger{
		level:      l.level,
		output:     l.output,
		baseFields: merged,
	}
}

func (l *StructuredLogger) emit(level LogLevel, msg string, err error, fields []LogField) {
	if level.rank() < l.level.rank() {
		return
	}

	entry := LogEntry{
		Timestamp: time.Now().Format(time.RFC3339),
		Level:     level,
		Message:   msg,
	}
	if len(l.baseFields) > 0 || len(fields) > 0 {
		entry.Fields = make(map[string]interface{}, len(l.baseFields)+len(fields))
		for k, v := range l.baseFields {
			entry.Fields[k] = v
		}
		for _, f := range fields {
			entry.Fields[f.Key] = f.Value
		}
	}
	if err != nil {
		entry.Error = err.Error()
	}

	data, marshalErr := json.Marshal(entry)
	if marshalErr != nil {
		// a field value json.Marshal cannot handle; drop to plain logging
		// rather than lose the message
		log.Printf("[%s] %s (unmarshalable fields: %v)", level, msg, marshalErr)
		return
	}
	fmt.Fprintln(l.output, string(data))
}

// Field creates a log field of any value
func Field(key string, value interface{}) LogField {
	return LogField{Key: key, Value: value}
}

// String field helper
func String(key, value string) LogField {
	return LogField{Key: key, Value: value}
}

// Int field helper
func Int(key string, value int) LogField {
	return LogField{Key: key, Value: value}
}

// Int64 field helper
func Int64(key string, value int64) LogField {
	return LogField{Key: key, Value: value}
}

// Float64 field helper
func Float64(key string, value float64) LogField {
	return LogField{Key: key, Value: value}
}

// Bool field helper
func Bool(key string, value bool) LogField {
	return LogField{Key: key, Value: value}
}

// Duration field helper; rendered as a string like "1.5s"
func Duration(key string, value time.Duration) LogField {
	return LogField{Key: key, Value: value.String()}
}

// ParseLogLevel maps a config string to a level, defaulting to info
func ParseLogLevel(level string) LogLevel {
	switch level {
	case "debug":
		return LogLevelDebug
	case "info":
		return LogLevelInfo
	case "warn", "warning":
		return LogLevelWarn
	case "error":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}
