// Package logctx carries a run-scoped zerolog logger on context.Context.
//
// The CLI attaches a logger enriched with run_id and min_utility before
// calling into the mining engine; the engine and the writers pull it back
// out with FromContext so every event of a sweep run can be correlated.
//
//	ctx = logctx.WithRun(ctx, runID, 5000)
//	log := logctx.FromContext(ctx)
package logctx

import (
	"context"

	"github.com/eunmann/huimine/pkg/logging"
	"github.com/rs/zerolog"
)

type loggerKey struct{}

// WithLogger returns a new context with the given logger attached.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext extracts the logger from the context. Without one it falls
// back to the process logger configured through pkg/logging.
func FromContext(ctx context.Context) zerolog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerKey{}).(zerolog.Logger); ok {
			return logger
		}
	}
	return *logging.L()
}

// WithField returns a context whose logger has the field added.
func WithField(ctx context.Context, key string, value interface{}) context.Context {
	logger := FromContext(ctx).With().Interface(key, value).Logger()
	return WithLogger(ctx, logger)
}

// WithStr returns a context whose logger has the string field added.
func WithStr(ctx context.Context, key, value string) context.Context {
	logger := FromContext(ctx).With().Str(key, value).Logger()
	return WithLogger(ctx, logger)
}

// WithRun tags the context logger with the identifiers of one mining run.
func WithRun(ctx context.Context, runID string, minUtility float64) context.Context {
	logger := FromContext(ctx).With().
		Str("run_id", runID).
		Float64("min_utility", minUtility).
		Logger()
	return WithLogger(ctx, logger)
}

// Phase returns the context logger with the phase field set.
func Phase(ctx context.Context, phase string) zerolog.Logger {
	return FromContext(ctx).With().Str("phase", phase).Logger()
}
