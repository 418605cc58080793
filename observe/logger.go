package observe

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// LogLevel represents a logging level.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLogLevel parses a string log level. Unknown levels map to info.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

type requestIDKey struct{}

// ContextWithRequestID attaches a request id that every log line written
// with the returned context carries.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request id attached to ctx, if any.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok && id != ""
}

// structuredLogger writes one JSON object per line.
type structuredLogger struct {
	level     LogLevel
	writer    io.Writer
	mu        *sync.Mutex
	baseAttrs map[string]any
}

// NewLogger creates a JSON logger writing to stderr.
func NewLogger(level string) Logger {
	return NewLoggerWithWriter(level, os.Stderr)
}

// NewLoggerWithWriter creates a JSON logger writing to w.
func NewLoggerWithWriter(level string, w io.Writer) Logger {
	return &structuredLogger{
		level:     ParseLogLevel(level),
		writer:    w,
		mu:        &sync.Mutex{},
		baseAttrs: make(map[string]any),
	}
}

// With returns a logger that adds fields to every entry. The returned logger
// shares the writer and its lock.
func (l *structuredLogger) With(fields ...Field) Logger {
	attrs := make(map[string]any, len(l.baseAttrs)+len(fields))
	for k, v := range l.baseAttrs {
		attrs[k] = v
	}
	for _, f := range fields {
		attrs[f.Key] = redact(f)
	}
	return &structuredLogger{
		level:     l.level,
		writer:    l.writer,
		mu:        l.mu,
		baseAttrs: attrs,
	}
}

func (l *structuredLogger) Info(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, LevelInfo, msg, fields)
}

func (l *structuredLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, LevelWarn, msg, fields)
}

func (l *structuredLogger) Error(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, LevelError, msg, fields)
}

func (l *structuredLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, LevelDebug, msg, fields)
}

func (l *structuredLogger) log(ctx context.Context, level LogLevel, msg string, fields []Field) {
	if level < l.level {
		return
	}

	entry := make(map[string]any, len(l.baseAttrs)+len(fields)+4)
	entry["timestamp"] = time.Now().UTC().Format(time.RFC3339Nano)
	entry["level"] = level.String()
	entry["msg"] = msg
	if id, ok := RequestIDFromContext(ctx); ok {
		entry["request_id"] = id
	}

	for k, v := range l.baseAttrs {
		entry[k] = v
	}
	for _, f := range fields {
		entry[f.Key] = redact(f)
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return // Silently drop malformed log entries
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.writer.Write(data)
}

// redactedKeys are field keys whose values never reach the log. Prompts,
// images and audio sent to the model may identify the farmer.
var redactedKeys = map[string]bool{
	"prompt":        true,
	"image":         true,
	"audio":         true,
	"password":      true,
	"secret":        true,
	"token":         true,
	"api_key":       true,
	"authorization": true,
	"credential":    true,
}

func redact(f Field) any {
	if redactedKeys[f.Key] {
		return "[REDACTED]"
	}
	return f.Value
}

// NopLogger returns a Logger that discards everything.
func NopLogger() Logger {
	return noopLogger{}
}

type noopLogger struct{}

func (noopLogger) Info(context.Context, string, ...Field)  {}
func (noopLogger) Warn(context.Context, string, ...Field)  {}
func (noopLogger) Error(context.Context, string, ...Field) {}
func (noopLogger) Debug(context.Context, string, ...Field) {}
func (l noopLogger) With(...Field) Logger                  { return l }

var (
	_ Logger = (*structuredLogger)(nil)
	_ Logger = noopLogger{}
)
