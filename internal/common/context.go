package common

import (
	"context"
	"log/slog"
)

// Context keys for storing values in context
type contextKey string

const (
	ContextKeyRunID  contextKey = "run_id"
	ContextKeyUnit   contextKey = "unit"
	ContextKeyLogger contextKey = "logger"
)

// WithRunID adds the orchestrator run ID to the context
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, ContextKeyRunID, runID)
}

// RunIDFromContext extracts the run ID from context
func RunIDFromContext(ctx context.Context) string {
	if runID, ok := ctx.Value(ContextKeyRunID).(string); ok {
		return runID
	}
	return ""
}

// WithUnit adds the batch unit key (document key or portal page) to the context
func WithUnit(ctx context.Context, unit string) context.Context {
	return context.WithValue(ctx, ContextKeyUnit, unit)
}

// UnitFromContext extracts the batch unit key from context
func UnitFromContext(ctx context.Context) string {
	if unit, ok := ctx.Value(ContextKeyUnit).(string); ok {
		return unit
	}
	return ""
}

// WithLogger stores a request-scoped logger
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ContextKeyLogger, logger)
}

// LoggerFromContext returns the stored logger, falling back to def and then slog.Default().
func LoggerFromContext(ctx context.Context, def *slog.Logger) *slog.Logger {
	if l, ok := ctx.Value(ContextKeyLogger).(*slog.Logger); ok && l != nil {
		return l
	}
	if def != nil {
		return def
	}
	return slog.Default()
}
