package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

// serviceName tags every log line so api server and usage reporter
// output can be told apart in aggregated logs
const serviceName = "spacefy"

// LogLevel is the minimum severity a logger emits
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// ParseLogLevel maps a configured level name to a LogLevel. Unknown
// names fall back to info.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(s) {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

func (l LogLevel) slogLevel() slog.Level {
	switch l {
	case DebugLevel:
		return slog.LevelDebug
	case WarnLevel:
		return slog.LevelWarn
	case ErrorLevel:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger emits structured JSON log lines over stdlib slog. Fields
// accumulate through the With helpers; request-scoped fields (request
// id, user id, trace ids) travel on the context and are attached by
// FromContext.
type Logger struct {
	s     *slog.Logger
	level LogLevel
}

// NewLogger builds a JSON logger writing to output at the given level
func NewLogger(level LogLevel, output io.Writer) *Logger {
	if output == nil {
		output = os.Stdout
	}
	handler := slog.NewJSONHandler(output, &slog.HandlerOptions{
		Level: level.slogLevel(),
	})
	return &Logger{
		s:     slog.New(handler).With("service", serviceName),
		level: level,
	}
}

// WithField returns a logger that includes the field on every line
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{s: l.s.With(key, value), level: l.level}
}

// WithFields returns a logger that includes all given fields
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return &Logger{s: l.s.With(args...), level: l.level}
}

// WithError attaches the error message as a field. A nil error returns
// the logger unchanged.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.WithField("error", err.Error())
}

func (l *Logger) Debug(message string) { l.s.Debug(message) }
func (l *Logger) Info(message string)  { l.s.Info(message) }
func (l *Logger) Warn(message string)  { l.s.Warn(message) }
func (l *Logger) Error(message string) { l.s.Error(message) }

type loggerCtxKey struct{}
type requestIDCtxKey struct{}
type userIDCtxKey struct{}

// WithLogger stores the request logger on the context
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey{}, logger)
}

// WithRequestID stores the request id on the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDCtxKey{}, requestID)
}

// GetRequestID returns the request id from the context, or ""
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDCtxKey{}).(string)
	return id
}

// WithUserID stores the authenticated user id on the context
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDCtxKey{}, userID)
}

// FromContext returns the request logger with the request id, user id,
// and, when a span is recording, the trace and span ids attached.
// Without a stored logger it falls back to an info-level stdout logger.
func FromContext(ctx context.Context) *Logger {
	logger, ok := ctx.Value(loggerCtxKey{}).(*Logger)
	if !ok {
		logger = NewLogger(InfoLevel, os.Stdout)
	}

	if requestID := GetRequestID(ctx); requestID != "" {
		logger = logger.WithField("request_id", requestID)
	}
	if userID, _ := ctx.Value(userIDCtxKey{}).(string); userID != "" {
		logger = logger.WithField("user_id", userID)
	}
	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		sc := span.SpanContext()
		logger = logger.WithFields(map[string]interface{}{
			"trace_id": sc.TraceID().String(),
			"span_id":  sc.SpanID().String(),
		})
	}

	return logger
}
