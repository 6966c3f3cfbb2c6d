package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/eunmann/rbx-export/pkg/benchutil"
	"github.com/eunmann/rbx-export/pkg/export"
	"github.com/eunmann/rbx-export/pkg/library"
	"github.com/eunmann/rbx-export/pkg/pdb"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := RunWithOutput(context.Background(), args, &stdout, &stderr)
	return stdout.String(), err
}

func writeExport(t *testing.T) (*benchutil.Export, string) {
	t.Helper()
	exp, root, _ := benchutil.WriteExport(t, benchutil.DefaultConfig(12))
	return exp, root
}

func TestRunNoArgs(t *testing.T) {
	if _, err := run(t); err == nil {
		t.Error("expected error with no command")
	}
}

func TestRunUnknownCommand(t *testing.T) {
	if _, err := run(t, "frobnicate"); err == nil {
		t.Error("expected error for unknown command")
	}
}

func TestRunHelp(t *testing.T) {
	if _, err := run(t, "--help"); err != nil {
		t.Errorf("--help returned %v", err)
	}
}

func TestDump(t *testing.T) {
	_, root := writeExport(t)

	out, err := run(t, "dump", "--compact", root)
	if err != nil {
		t.Fatalf("dump: %v", err)
	}
	var snap library.Snapshot
	if err := json.Unmarshal([]byte(out), &snap); err != nil {
		t.Fatalf("dump output is not JSON: %v", err)
	}
	if len(snap.Tracks) != 12 {
		t.Errorf("got %d tracks, want 12", len(snap.Tracks))
	}
	if strings.Count(strings.TrimSpace(out), "\n") != 0 {
		t.Error("--compact output spans multiple lines")
	}
}

func TestDumpMissingExport(t *testing.T) {
	_, err := run(t, "dump", filepath.Join(t.TempDir(), "nothing"))
	if !errors.Is(err, pdb.ErrNotFound) {
		t.Errorf("dump error = %v, want ErrNotFound", err)
	}
}

func TestStats(t *testing.T) {
	_, root := writeExport(t)

	out, err := run(t, "stats", root)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	for _, want := range []string{"tracks", "12", "bpm range", "playlists", "anlz files", "24"} {
		if !strings.Contains(out, want) {
			t.Errorf("stats output missing %q:\n%s", want, out)
		}
	}
}

func TestStatsJSON(t *testing.T) {
	_, root := writeExport(t)

	out, err := run(t, "--workers=2", "stats", "--json", "--skip-anlz", root)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	var st library.Stats
	if err := json.Unmarshal([]byte(out), &st); err != nil {
		t.Fatalf("stats output is not JSON: %v", err)
	}
	if st.TotalTracks != 12 {
		t.Errorf("TotalTracks = %d, want 12", st.TotalTracks)
	}
	if st.AnlzFilesProcessed != 0 {
		t.Errorf("AnlzFilesProcessed = %d with --skip-anlz", st.AnlzFilesProcessed)
	}
}

func TestTables(t *testing.T) {
	_, root := writeExport(t)

	out, err := run(t, "tables", root)
	if err != nil {
		t.Fatalf("tables: %v", err)
	}
	for _, want := range []string{"TABLE", "tracks", "playlist_tree", "history_entries", "columns"} {
		if !strings.Contains(out, want) {
			t.Errorf("tables output missing %q:\n%s", want, out)
		}
	}
}

func TestPages(t *testing.T) {
	_, root := writeExport(t)

	out, err := run(t, "pages", root, "tracks")
	if err != nil {
		t.Fatalf("pages: %v", err)
	}
	if !strings.Contains(out, "PAGE") || !strings.Contains(out, "data") || !strings.Contains(out, "stop: ") {
		t.Errorf("unexpected pages output:\n%s", out)
	}

	if _, err := run(t, "pages", root, "nope"); err == nil {
		t.Error("expected error for unknown table")
	}
}

func TestAnlz(t *testing.T) {
	exp, root := writeExport(t)
	dat := filepath.Join(root, filepath.FromSlash(strings.TrimPrefix(exp.Tracks[0].AnalyzePath, "/")))

	tests := []struct {
		name     string
		args     []string
		wantCues int
	}{
		{"merged", []string{"anlz", dat}, 2},
		{"single", []string{"anlz", "--single", dat}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, tt.args...)
			if err != nil {
				t.Fatalf("anlz: %v", err)
			}
			var report struct {
				Sections []struct {
					Tag string `json:"tag"`
				} `json:"sections"`
				Data struct {
					BeatGrid  []json.RawMessage `json:"beat_grid"`
					CuePoints []json.RawMessage `json:"cue_points"`
				} `json:"data"`
			}
			if err := json.Unmarshal([]byte(out), &report); err != nil {
				t.Fatalf("anlz output is not JSON: %v", err)
			}
			if len(report.Sections) == 0 {
				t.Error("no sections reported")
			}
			if len(report.Data.BeatGrid) != 8 {
				t.Errorf("beat grid = %d, want 8", len(report.Data.BeatGrid))
			}
			if len(report.Data.CuePoints) != tt.wantCues {
				t.Errorf("cue points = %d, want %d", len(report.Data.CuePoints), tt.wantCues)
			}
		})
	}
}

func TestAnlzNotPMAI(t *testing.T) {
	p := filepath.Join(t.TempDir(), "ANLZ0000.DAT")
	if err := os.WriteFile(p, []byte("not an analysis file at all"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, "anlz", p); err == nil {
		t.Error("expected error for non-PMAI file")
	}
}

func TestExport(t *testing.T) {
	_, root := writeExport(t)
	dir := t.TempDir()

	tests := []struct {
		name string
		args []string
		file string
	}{
		{"sqlite from extension", []string{"-o", filepath.Join(dir, "lib.sqlite")}, "lib.sqlite"},
		{"explicit format", []string{"-o", filepath.Join(dir, "lib.out"), "--format", "json.xz"}, "lib.out"},
		{"parquet", []string{"-o", filepath.Join(dir, "tracks.parquet"), "--skip-anlz"}, "tracks.parquet"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, append([]string{"export", root}, tt.args...)...)
			if err != nil {
				t.Fatalf("export: %v", err)
			}
			if !strings.HasPrefix(out, "wrote ") {
				t.Errorf("unexpected output %q", out)
			}
			info, err := os.Stat(filepath.Join(dir, tt.file))
			if err != nil || info.Size() == 0 {
				t.Errorf("output file missing or empty: %v", err)
			}
		})
	}
}

func TestExportUnknownFormat(t *testing.T) {
	_, root := writeExport(t)
	dir := t.TempDir()

	_, err := run(t, "export", root, "-o", filepath.Join(dir, "lib.txt"))
	if !errors.Is(err, export.ErrUnknownFormat) {
		t.Errorf("export error = %v, want ErrUnknownFormat", err)
	}
	_, err = run(t, "export", root, "-o", filepath.Join(dir, "lib.json"), "-f", "csv")
	if !errors.Is(err, export.ErrUnknownFormat) {
		t.Errorf("export error = %v, want ErrUnknownFormat", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("files left behind: %v", entries)
	}
}

func TestExportRequiresOutput(t *testing.T) {
	_, root := writeExport(t)
	if _, err := run(t, "export", root); err == nil {
		t.Error("expected error without -o")
	}
}

func TestFetchRejectsBadURI(t *testing.T) {
	t.Setenv("AWS_REGION", "us-east-1")
	if _, err := run(t, "fetch", "not-a-uri", "-d", t.TempDir()); err == nil {
		t.Error("expected error for non-s3 URI")
	}
}
