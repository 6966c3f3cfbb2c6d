// Package export writes library snapshots to JSON, SQLite and Parquet files.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/eunmann/rbx-export/pkg/fileutil"
	"github.com/eunmann/rbx-export/pkg/library"
	"github.com/eunmann/rbx-export/pkg/logging"
)

// Format selects an output encoding.
type Format string

const (
	FormatJSON    Format = "json"
	FormatJSONXZ  Format = "json.xz"
	FormatSQLite  Format = "sqlite"
	FormatParquet Format = "parquet"
)

// Formats lists every supported format.
var Formats = []Format{FormatJSON, FormatJSONXZ, FormatSQLite, FormatParquet}

// ParseFormat maps a format name to a Format.
func ParseFormat(name string) (Format, error) {
	for _, f := range Formats {
		if strings.EqualFold(name, string(f)) {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// FormatFromPath infers the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".json.xz"):
		return FormatJSONXZ, nil
	case strings.HasSuffix(lower, ".json"):
		return FormatJSON, nil
	case strings.HasSuffix(lower, ".sqlite"), strings.HasSuffix(lower, ".db"):
		return FormatSQLite, nil
	case strings.HasSuffix(lower, ".parquet"):
		return FormatParquet, nil
	}
	return "", fmt.Errorf("%w: cannot infer from %q", ErrUnknownFormat, filepath.Base(path))
}

// Options configures Write.
type Options struct {
	Format Format
	// Indent pretty-prints JSON output.
	Indent bool
	// TmpDir holds the partial file until it is complete. Default: the
	// output file's directory.
	TmpDir string
	Logger zerolog.Logger
}

// Result describes a written file.
type Result struct {
	Path     string
	Format   Format
	Size     int64
	Duration time.Duration
}

// Write encodes snap to outPath. The file appears only once it is
// complete.
func Write(snap *library.Snapshot, outPath string, opts Options) (Result, error) {
	start := time.Now()
	if opts.Format == "" {
		f, err := FormatFromPath(outPath)
		if err != nil {
			return Result{}, err
		}
		opts.Format = f
	}
	tmpDir := opts.TmpDir
	if tmpDir == "" {
		tmpDir = filepath.Dir(outPath)
	}

	var writeFunc func(tmpPath string) error
	switch opts.Format {
	case FormatJSON, FormatJSONXZ:
		compress := opts.Format == FormatJSONXZ
		writeFunc = func(tmpPath string) error { return WriteJSONFile(tmpPath, snap, compress, opts.Indent) }
	case FormatSQLite:
		writeFunc = func(tmpPath string) error { return WriteSQLite(tmpPath, snap) }
	case FormatParquet:
		writeFunc = func(tmpPath string) error { return WriteParquet(tmpPath, snap) }
	default:
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownFormat, opts.Format)
	}

	if err := fileutil.WriteTmpThenMove(tmpDir, outPath, writeFunc); err != nil {
		return Result{}, fmt.Errorf("write %s: %w", opts.Format, err)
	}

	info, err := os.Stat(outPath)
	if err != nil {
		return Result{}, fmt.Errorf("stat output: %w", err)
	}
	res := Result{Path: outPath, Format: opts.Format, Size: info.Size(), Duration: time.Since(start)}

	logging.FileCreated(opts.Logger, "export", res.Duration).
		Str("path", outPath).
		Str("format", string(opts.Format)).
		Bytes("size", res.Size).
		Count("tracks", int64(len(snap.Tracks))).
		Throughput(res.Size).
		Log("export written")
	return res, nil
}
