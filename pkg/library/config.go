// Package library composes the pdb, resolve and anlz packages into one
// immutable snapshot of a Rekordbox export.
package library

import (
	"fmt"
	"runtime"

	"github.com/rs/zerolog"
)

// Config holds configuration for a Reader.
type Config struct {
	// Path is the export.pdb file, the export root (the directory holding
	// PIONEER/), or the PIONEER directory itself.
	Path string
	// Workers bounds the number of tracks whose ANLZ sidecars are decoded
	// concurrently. Default: NumCPU, capped at 16.
	Workers int
	// SkipAnlz disables sidecar decoding and the orphan sidecar scan.
	SkipAnlz bool
	// ProgressEvery is the number of decoded tracks between progress
	// events. Zero disables them.
	ProgressEvery int
	// Logger receives diagnostics. Nil uses the logger carried by the
	// context passed to Run.
	Logger *zerolog.Logger
}

// DefaultConfig returns the default configuration for path.
func DefaultConfig(path string) Config {
	return Config{
		Path:          path,
		Workers:       min(runtime.NumCPU(), 16),
		ProgressEvery: 1000,
	}
}

// Validate checks configuration values and returns an error for invalid settings.
func (c *Config) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("Path is required")
	}
	if c.Workers < 0 {
		return fmt.Errorf("Workers must be non-negative, got %d", c.Workers)
	}
	if c.ProgressEvery < 0 {
		return fmt.Errorf("ProgressEvery must be non-negative, got %d", c.ProgressEvery)
	}
	return nil
}

func (c Config) workers() int {
	if c.Workers <= 0 {
		return DefaultConfig(c.Path).Workers
	}
	return c.Workers
}
