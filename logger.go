package lexigo

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with lexigo-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
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
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.DiscardHandler)
}

// WithComponent tags records with the emitting component.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("component", name),
	}
}

// LogFlush logs an indexer commit.
func (l *Logger) LogFlush(ctx context.Context, docs, ops int, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "flush failed",
			"docs", docs,
			"ops", ops,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "flush completed",
		"docs", docs,
		"ops", ops,
		"elapsed", elapsed,
	)
}

// LogQuery logs a searcher query.
func (l *Logger) LogQuery(ctx context.Context, q string, take, total int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "query failed",
			"query", q,
			"take", take,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "query completed",
		"query", q,
		"take", take,
		"total", total,
	)
}

// LogCompaction logs the outcome of a compaction run.
func (l *Logger) LogCompaction(ctx context.Context, purged, passes int, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "compaction failed",
			"purged", purged,
			"passes", passes,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "compaction completed",
		"purged", purged,
		"passes", passes,
		"elapsed", elapsed,
	)
}
