package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// defaultLogger is read from every request goroutine, so the lazy init in
// Get must not race with Init.
var (
	defaultLogger atomic.Pointer[slog.Logger]
	initOnce      sync.Once
)

// Init initializes the global logger with the specified level and format
func Init(level, format string) {
	var logLevel slog.Level
	switch strings.ToUpper(level) {
	case "DEBUG":
		logLevel = slog.LevelDebug
	case "INFO":
		logLevel = slog.LevelInfo
	case "WARN":
		logLevel = slog.LevelWarn
	case "ERROR":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	defaultLogger.Store(logger)
	slog.SetDefault(logger)
}

// Get returns the default logger instance
func Get() *slog.Logger {
	if logger := defaultLogger.Load(); logger != nil {
		return logger
	}

	initOnce.Do(func() {
		if defaultLogger.Load() == nil {
			Init("INFO", "json")
		}
	})
	return defaultLogger.Load()
}

// WithContext returns a logger enriched with request-scoped fields
func WithContext(ctx context.Context) *slog.Logger {
	logger := Get()

	if reqID := ctx.Value("request_id"); reqID != nil {
		logger = logger.With("request_id", reqID)
	}

	return logger
}

// WithSaga returns a logger tagged with a saga name and the id of the row it
// operates on, so every step of one saga run can be correlated
func WithSaga(ctx context.Context, saga string, subjectID any) *slog.Logger {
	return WithContext(ctx).With("saga", saga, "subject_id", subjectID)
}

// WithRequestID returns a logger with a request ID attached
func WithRequestID(requestID string) *slog.Logger {
	return Get().With("request_id", requestID)
}

// NewRequestID generates a new UUID for request tracking
func NewRequestID() string {
	return uuid.New().String()
}

// Fatal logs an error message and exits the application
// This is a helper function since slog doesn't have Fatal level
func Fatal(msg string, args ...any) {
	Get().Error(msg, args...)
	os.Exit(1)
}
