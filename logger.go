package minlsh

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with minlsh-specific helpers so operations log
// with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses the default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// LogInsert logs an insert operation.
func (l *Logger) LogInsert(ctx context.Context, key string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "insert failed",
			"key", key,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "insert completed",
			"key", key,
		)
	}
}

// LogQuery logs a query operation.
func (l *Logger) LogQuery(ctx context.Context, candidates int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "query failed",
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "query completed",
			"candidates", candidates,
		)
	}
}

// LogRemove logs a remove operation.
func (l *Logger) LogRemove(ctx context.Context, key string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "remove failed",
			"key", key,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "remove completed",
			"key", key,
		)
	}
}

// LogBulkInsert logs the completion of an insertion session.
func (l *Logger) LogBulkInsert(ctx context.Context, count int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "bulk insert failed",
			"count", count,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "bulk insert completed",
			"count", count,
		)
	}
}

// LogSnapshot logs a snapshot write or load. op is the operation ("write" or
// "load"); name is the blob name, empty for stream snapshots.
func (l *Logger) LogSnapshot(ctx context.Context, op, name string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "snapshot failed",
			"op", op,
			"name", name,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "snapshot completed",
			"op", op,
			"name", name,
		)
	}
}
