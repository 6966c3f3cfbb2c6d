// Package cli implements the command-line interface for rbx-export.
package cli

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"

	"github.com/eunmann/rbx-export/internal/logctx"
	"github.com/eunmann/rbx-export/pkg/library"
	"github.com/eunmann/rbx-export/pkg/logging"
)

// Globals are flags shared by every command.
type Globals struct {
	Debug   bool `help:"Enable debug logging." env:"RBX_DEBUG"`
	Human   bool `help:"Human-readable console logs instead of JSON." env:"RBX_HUMAN_LOGS"`
	Workers int  `help:"ANLZ decode workers (0: one per CPU, up to 16)." env:"RBX_WORKERS" default:"0"`
}

// CLI is the command tree.
type CLI struct {
	Globals

	Dump   DumpCmd   `cmd:"" help:"Decode an export and print the snapshot as JSON."`
	Stats  StatsCmd  `cmd:"" help:"Print library statistics."`
	Tables TablesCmd `cmd:"" help:"List the table directory with page chain diagnostics."`
	Pages  PagesCmd  `cmd:"" help:"List the page headers of one table."`
	Anlz   AnlzCmd   `cmd:"" help:"Decode an ANLZ analysis file."`
	Export ExportCmd `cmd:"" help:"Write a snapshot as JSON, SQLite or Parquet."`
	Fetch  FetchCmd  `cmd:"" help:"Download an export tree from S3."`
}

// runContext is bound into every command's Run method.
type runContext struct {
	ctx     context.Context
	out     io.Writer
	log     zerolog.Logger
	globals *Globals
}

// Run executes the CLI with the given arguments.
func Run(args []string) error {
	return RunWithOutput(context.Background(), args, os.Stdout, os.Stderr)
}

// RunWithOutput executes the CLI writing command output to stdout and logs,
// usage and help to stderr.
func RunWithOutput(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var c CLI
	exited := false
	parser, err := kong.New(&c,
		kong.Name("rbx-export"),
		kong.Description("Read Rekordbox device exports: export.pdb and ANLZ analysis files."),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) { exited = true }),
	)
	if err != nil {
		return err
	}

	kctx, err := parser.Parse(args)
	if exited {
		return nil
	}
	if err != nil {
		var perr *kong.ParseError
		if errors.As(err, &perr) && perr.Context != nil {
			_ = perr.Context.PrintUsage(true)
		}
		return err
	}

	log := logctx.NewConfiguredLogger(stderr, c.Debug, c.Human)
	logging.SetPrettyMode(c.Human)
	ctx = logctx.WithLogger(ctx, log)

	return kctx.Run(&runContext{
		ctx:     ctx,
		out:     stdout,
		log:     log,
		globals: &c.Globals,
	})
}

// readSnapshot decodes the export at path.
func (rc *runContext) readSnapshot(path string, skipAnlz bool) (*library.Snapshot, error) {
	cfg := library.DefaultConfig(path)
	cfg.SkipAnlz = skipAnlz
	if rc.globals.Workers > 0 {
		cfg.Workers = rc.globals.Workers
	}
	cfg.Logger = &rc.log
	return library.New(cfg).Run(rc.ctx)
}
