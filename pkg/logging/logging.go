// Package logging provides progress tracking and structured completion
// events on top of zerolog.
package logging

import (
	"sync/atomic"

	"github.com/rs/zerolog"
)

var prettyMode atomic.Bool

// SetPrettyMode toggles the human-readable companion fields (*_h) that
// completion events add next to raw numbers.
func SetPrettyMode(on bool) {
	prettyMode.Store(on)
}

// IsPrettyMode reports whether human-readable companion fields are enabled.
func IsPrettyMode() bool {
	return prettyMode.Load()
}

// WithPhase returns log with the phase field set.
func WithPhase(log zerolog.Logger, phase string) zerolog.Logger {
	return log.With().Str("phase", phase).Logger()
}
