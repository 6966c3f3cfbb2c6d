// Package logctx carries a zerolog logger in a context.Context.
//
// The CLI attaches the configured logger once; the library reader adds the
// run id, and the inspection commands add the table they walk:
//
//	ctx = logctx.WithLogger(ctx, logctx.NewConfiguredLogger(os.Stderr, debug, human))
//	ctx = logctx.WithRunID(ctx, runID)
//	log := logctx.FromContext(ctx)
package logctx

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type loggerKey struct{}

// fallback is used when a context carries no logger.
var fallback = sync.OnceValue(func() zerolog.Logger {
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
})

// DefaultLogger returns the JSON stderr logger used when a context carries
// none.
func DefaultLogger() zerolog.Logger {
	return fallback()
}

// WithLogger returns a copy of ctx carrying logger. A nil ctx is treated as
// context.Background().
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the logger carried by ctx, or DefaultLogger. It never
// returns a zero-value logger.
func FromContext(ctx context.Context) zerolog.Logger {
	if ctx == nil {
		return DefaultLogger()
	}
	if logger, ok := ctx.Value(loggerKey{}).(zerolog.Logger); ok {
		return logger
	}
	return DefaultLogger()
}

// WithStr returns a copy of ctx whose logger has the string field added.
func WithStr(ctx context.Context, key, value string) context.Context {
	return WithLogger(ctx, FromContext(ctx).With().Str(key, value).Logger())
}

// WithRunID tags the context logger with a snapshot run id.
func WithRunID(ctx context.Context, runID string) context.Context {
	return WithStr(ctx, "run_id", runID)
}

// WithTable tags the context logger with the table being walked.
func WithTable(ctx context.Context, table string) context.Context {
	return WithStr(ctx, "table", table)
}

// WithTrack tags the context logger with a track id.
func WithTrack(ctx context.Context, trackID uint32) context.Context {
	return WithLogger(ctx, FromContext(ctx).With().Uint32("track_id", trackID).Logger())
}

// NewConfiguredLogger builds the CLI logger on w (stderr when nil): JSON by
// default, a console writer when human is set. Debug lowers the level from
// info to debug.
func NewConfiguredLogger(w io.Writer, debug, human bool) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	out := w
	if human {
		out = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
			NoColor:    w != os.Stderr,
		}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
