// Package logging wraps log/slog with simulation-clock correlation, the way
// the engine's teacher wraps it with trace/span correlation: every record
// emitted through this package is tagged with the current tick phase and
// simulation time so a log stream reads as a coherent trace of one run.
package logging

import (
	"context"
	"log/slog"
)

// Logger is the correlated logging surface components and managers use.
type Logger interface {
	InfoCtx(ctx context.Context, msg string, attrs ...any)
	WarnCtx(ctx context.Context, msg string, attrs ...any)
	ErrorCtx(ctx context.Context, msg string, attrs ...any)
}

type correlationKey struct{}

// Correlation is attached to a context to tag subsequent log records with
// the tick phase and simulation time active when they were emitted.
type Correlation struct {
	Phase string
	Time  string
}

// WithCorrelation returns a context carrying the given correlation fields.
func WithCorrelation(ctx context.Context, c Correlation) context.Context {
	return context.WithValue(ctx, correlationKey{}, c)
}

func correlationFrom(ctx context.Context) (Correlation, bool) {
	c, ok := ctx.Value(correlationKey{}).(Correlation)
	return c, ok
}

type correlatedLogger struct{ base *slog.Logger }

// New returns a correlated Logger wrapping base (slog.Default() if nil).
func New(base *slog.Logger) Logger {
	if base == nil {
		base = slog.Default()
	}
	return &correlatedLogger{base: base}
}

func (l *correlatedLogger) attrsWith(ctx context.Context, attrs []any) []any {
	if c, ok := correlationFrom(ctx); ok {
		attrs = append(attrs, slog.String("phase", c.Phase), slog.String("sim_time", c.Time))
	}
	return attrs
}

func (l *correlatedLogger) InfoCtx(ctx context.Context, msg string, attrs ...any) {
	l.base.InfoContext(ctx, msg, l.attrsWith(ctx, attrs)...)
}

func (l *correlatedLogger) WarnCtx(ctx context.Context, msg string, attrs ...any) {
	l.base.WarnContext(ctx, msg, l.attrsWith(ctx, attrs)...)
}

func (l *correlatedLogger) ErrorCtx(ctx context.Context, msg string, attrs ...any) {
	l.base.ErrorContext(ctx, msg, l.attrsWith(ctx, attrs)...)
}
