package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/rs/zerolog"

	"github.com/eunmann/rbx-export/internal/logctx"
	"github.com/eunmann/rbx-export/pkg/anlz"
	"github.com/eunmann/rbx-export/pkg/export"
	"github.com/eunmann/rbx-export/pkg/fileutil"
	"github.com/eunmann/rbx-export/pkg/humanfmt"
	"github.com/eunmann/rbx-export/pkg/pdb"
	"github.com/eunmann/rbx-export/pkg/s3fetch"
)

// DumpCmd prints the decoded library as JSON.
type DumpCmd struct {
	Path     string `arg:"" help:"export.pdb, PIONEER directory or export root." type:"path"`
	Compact  bool   `help:"Single-line JSON."`
	SkipAnlz bool   `name:"skip-anlz" help:"Do not decode ANLZ analysis files."`
}

func (c *DumpCmd) Run(rc *runContext) error {
	snap, err := rc.readSnapshot(c.Path, c.SkipAnlz)
	if err != nil {
		return err
	}
	return export.WriteJSON(rc.out, snap, !c.Compact)
}

// StatsCmd prints a summary of the library.
type StatsCmd struct {
	Path     string `arg:"" help:"export.pdb, PIONEER directory or export root." type:"path"`
	JSON     bool   `name:"json" help:"Print the stats as JSON."`
	SkipAnlz bool   `name:"skip-anlz" help:"Do not decode ANLZ analysis files."`
}

func (c *StatsCmd) Run(rc *runContext) error {
	snap, err := rc.readSnapshot(c.Path, c.SkipAnlz)
	if err != nil {
		return err
	}
	st := snap.Metadata.Stats
	if c.JSON {
		enc := json.NewEncoder(rc.out)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}

	var length uint32
	var minBPM, maxBPM float64
	for i, t := range snap.Tracks {
		length += t.Duration
		bpm := float64(t.Tempo) / 100
		if i == 0 || bpm < minBPM {
			minBPM = bpm
		}
		if bpm > maxBPM {
			maxBPM = bpm
		}
	}

	tw := tabwriter.NewWriter(rc.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "export\t%s\n", snap.Metadata.Source)
	fmt.Fprintf(tw, "pdb size\t%s\n", humanfmt.Bytes(snap.Metadata.PDBSize))
	fmt.Fprintf(tw, "tracks\t%s\n", humanfmt.Count(int64(st.TotalTracks)))
	fmt.Fprintf(tw, "total length\t%s\n", humanfmt.TrackLength(length))
	if len(snap.Tracks) > 0 {
		fmt.Fprintf(tw, "bpm range\t%s - %s\n", humanfmt.BPM(minBPM), humanfmt.BPM(maxBPM))
	}
	fmt.Fprintf(tw, "playlists\t%d (%d valid, %d corrupt)\n", st.TotalPlaylists, st.ValidPlaylists, st.CorruptPlaylists)
	fmt.Fprintf(tw, "history sessions\t%d\n", len(snap.History))
	fmt.Fprintf(tw, "anlz files\t%d\n", st.AnlzFilesProcessed)
	fmt.Fprintf(tw, "orphan sidecars\t%d\n", st.OrphanSidecars)
	fmt.Fprintf(tw, "rows rejected\t%d\n", st.RowsRejected)
	fmt.Fprintf(tw, "processing time\t%s\n", humanfmt.Duration(st.ProcessingTime))
	return tw.Flush()
}

// TablesCmd lists the table directory.
type TablesCmd struct {
	Path string `arg:"" help:"export.pdb, PIONEER directory or export root." type:"path"`
}

func (c *TablesCmd) Run(rc *runContext) error {
	store, err := openStore(c.Path, rc.log)
	if err != nil {
		return err
	}
	defer store.Close()

	h := store.Header()
	fmt.Fprintf(rc.out, "page size %d, %d tables, next unused page %d, sequence %d\n",
		h.PageSize, h.NumTables, h.NextUnusedPage, h.Sequence)

	tw := tabwriter.NewWriter(rc.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TABLE\tTYPE\tFIRST\tLAST\tEMPTY\tPAGES\tROWS\tSTOP")
	for _, e := range store.Tables() {
		pages, rows := 0, 0
		stop, stopPage := store.Walk(e, func(_ uint32, page []byte, _ pdb.PageHeader) bool {
			pages++
			for range pdb.RowsOf(page, 0) {
				rows++
			}
			return true
		})
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%s@%d\n",
			e.Type, uint32(e.Type), e.FirstPage, e.LastPage, e.EmptyCandidate, pages, rows, stop, stopPage)
	}
	return tw.Flush()
}

// PagesCmd lists the page chain of one table.
type PagesCmd struct {
	Path  string `arg:"" help:"export.pdb, PIONEER directory or export root." type:"path"`
	Table string `arg:"" help:"Table name (tracks, artists, playlist_tree, ...)."`
}

func (c *PagesCmd) Run(rc *runContext) error {
	t, ok := pdb.ParseTableType(strings.ToLower(c.Table))
	if !ok {
		return fmt.Errorf("unknown table %q", c.Table)
	}
	log := logctx.FromContext(logctx.WithTable(rc.ctx, t.String()))
	store, err := openStore(c.Path, log)
	if err != nil {
		return err
	}
	defer store.Close()

	entry, ok := store.Table(t)
	if !ok {
		return fmt.Errorf("table %s not in directory: %w", t, pdb.ErrNotFound)
	}

	tw := tabwriter.NewWriter(rc.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PAGE\tNEXT\tKIND\tFLAGS\tROWS\tFREE\tUSED")
	stop, stopPage := store.Walk(entry, func(index uint32, _ []byte, h pdb.PageHeader) bool {
		kind := "index"
		if h.IsDataPage() {
			kind = "data"
		}
		fmt.Fprintf(tw, "%d\t%d\t%s\t0x%02x\t%d\t%d\t%d\n",
			index, h.NextPage, kind, h.Flags, h.NumRows(), h.FreeSize, h.UsedSize)
		return true
	})
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err = fmt.Fprintf(rc.out, "stop: %s at page %d\n", stop, stopPage)
	return err
}

func openStore(path string, log zerolog.Logger) (*pdb.Store, error) {
	pdbPath, _, err := fileutil.LocateExport(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", pdb.ErrNotFound, err)
	}
	return pdb.OpenFile(pdbPath, pdb.Options{Logger: &log})
}

// AnlzCmd decodes one analysis file, merged with its siblings unless
// --single is set.
type AnlzCmd struct {
	Path   string `arg:"" help:"ANLZ file (.DAT, .EXT or .2EX)." type:"existingfile"`
	Single bool   `help:"Decode only this file, without its .DAT/.EXT/.2EX siblings."`
}

type anlzReport struct {
	Path     string         `json:"path"`
	Sections []anlz.Section `json:"sections"`
	Data     *anlz.Data     `json:"data"`
}

func (c *AnlzCmd) Run(rc *runContext) error {
	buf, err := os.ReadFile(c.Path)
	if err != nil {
		return err
	}
	f, err := anlz.ParseFile(buf)
	if err != nil {
		return fmt.Errorf("%s: %w", c.Path, err)
	}

	report := anlzReport{Path: c.Path, Sections: f.Sections}
	if c.Single {
		report.Data = anlz.Decode(f)
	} else {
		dec := anlz.NewDecoder(rc.log)
		report.Data = dec.ParseTrack(filepath.Dir(c.Path), filepath.Base(c.Path))
		rc.log.Debug().Int("files_loaded", dec.FilesLoaded()).Str("path", c.Path).Msg("anlz decoded")
	}

	enc := json.NewEncoder(rc.out)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// ExportCmd writes a snapshot to a file.
type ExportCmd struct {
	Path     string `arg:"" help:"export.pdb, PIONEER directory or export root." type:"path"`
	Out      string `short:"o" required:"" help:"Output file." type:"path"`
	Format   string `short:"f" help:"Output format (json, json.xz, sqlite, parquet). Default: from the output extension."`
	Compact  bool   `help:"Single-line JSON."`
	TmpDir   string `name:"tmp-dir" help:"Directory for the partial file." type:"path"`
	SkipAnlz bool   `name:"skip-anlz" help:"Do not decode ANLZ analysis files."`
}

func (c *ExportCmd) Run(rc *runContext) error {
	opts := export.Options{Indent: !c.Compact, TmpDir: c.TmpDir, Logger: rc.log}
	if c.Format != "" {
		f, err := export.ParseFormat(c.Format)
		if err != nil {
			return err
		}
		opts.Format = f
	} else if _, err := export.FormatFromPath(c.Out); err != nil {
		return err
	}

	snap, err := rc.readSnapshot(c.Path, c.SkipAnlz)
	if err != nil {
		return err
	}
	res, err := export.Write(snap, c.Out, opts)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(rc.out, "wrote %s (%s, %s) in %s\n",
		res.Path, res.Format, humanfmt.Bytes(res.Size), humanfmt.Duration(res.Duration))
	return err
}

// FetchCmd downloads an export tree from S3 and optionally summarizes it.
type FetchCmd struct {
	URI             string `arg:"" help:"s3://bucket/prefix of the export root."`
	Dest            string `short:"d" required:"" help:"Local destination directory." type:"path"`
	Concurrency     int    `help:"Parallel object downloads." default:"4" env:"RBX_FETCH_CONCURRENCY"`
	SkipAnlz        bool   `name:"skip-anlz" help:"Do not fetch ANLZ analysis files."`
	IncludeContents bool   `name:"include-contents" help:"Also fetch objects outside PIONEER/, such as audio files."`
	Stats           bool   `help:"Decode the fetched export and print its stats."`
}

func (c *FetchCmd) Run(rc *runContext) error {
	client, err := s3fetch.NewClient(rc.ctx)
	if err != nil {
		return err
	}
	res, err := s3fetch.NewFetcher(client, s3fetch.FetchConfig{
		URI:             c.URI,
		DestDir:         c.Dest,
		Concurrency:     c.Concurrency,
		SkipAnlz:        c.SkipAnlz,
		IncludeContents: c.IncludeContents,
		Logger:          rc.log,
	}).Fetch(rc.ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(rc.out, "fetched %d files (%s) into %s in %s\n",
		len(res.LocalFiles), humanfmt.Bytes(res.Bytes), res.Root, humanfmt.Duration(res.Duration))
	if !c.Stats {
		return nil
	}
	return (&StatsCmd{Path: res.PDBPath, SkipAnlz: c.SkipAnlz}).Run(rc)
}
