package mxmc

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with mxmc-specific context.
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
	return NewLogger(slog.NewTextHandler(io.Discard, nil))
}

// WithStudy adds a study field to the logger.
func (l *Logger) WithStudy(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("study", name),
	}
}

// WithMethod adds a method field to the logger.
func (l *Logger) WithMethod(method string) *Logger {
	return &Logger{
		Logger: l.Logger.With("method", method),
	}
}

// LogOptimize logs one optimization.
func (l *Logger) LogOptimize(ctx context.Context, targetCost, cost, variance float64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "optimize failed",
			"target_cost", targetCost,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "optimize completed",
		"target_cost", targetCost,
		"cost", cost,
		"variance", variance,
	)
}

// LogSweep logs a completed sweep.
func (l *Logger) LogSweep(ctx context.Context, points, infeasible int, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "sweep failed",
			"points", points,
			"error", err,
		)
		return
	}
	if infeasible > 0 {
		l.WarnContext(ctx, "sweep completed with infeasible budgets",
			"points", points,
			"infeasible", infeasible,
			"duration", duration,
		)
		return
	}
	l.InfoContext(ctx, "sweep completed",
		"points", points,
		"duration", duration,
	)
}

// LogPersist logs an allocation save.
func (l *Logger) LogPersist(ctx context.Context, name string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "persist failed",
			"blob", name,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "allocation persisted",
		"blob", name,
	)
}
