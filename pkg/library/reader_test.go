package library

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/eunmann/rbx-export/pkg/anlz"
	"github.com/eunmann/rbx-export/pkg/benchutil"
	"github.com/eunmann/rbx-export/pkg/pdb"
)

func testConfig(path string) Config {
	log := zerolog.Nop()
	cfg := DefaultConfig(path)
	cfg.Workers = 4
	cfg.Logger = &log
	return cfg
}

func TestRunGeneratedExport(t *testing.T) {
	gen := benchutil.DefaultConfig(40)
	exp, root, _ := benchutil.WriteExport(t, gen)

	r := New(testConfig(root))
	snap, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(snap.Tracks) != len(exp.Tracks) {
		t.Fatalf("got %d tracks, want %d", len(snap.Tracks), len(exp.Tracks))
	}
	for i, tr := range snap.Tracks {
		want := exp.Tracks[i]
		if tr.ID != want.ID {
			t.Fatalf("track %d: id = %d, want %d (page order)", i, tr.ID, want.ID)
		}
		if tr.Genre != exp.Genres[want.GenreID] {
			t.Errorf("track %d: genre = %q, want %q", tr.ID, tr.Genre, exp.Genres[want.GenreID])
		}
		if tr.Artist != exp.Artists[want.ArtistID] {
			t.Errorf("track %d: artist = %q, want %q", tr.ID, tr.Artist, exp.Artists[want.ArtistID])
		}
		if tr.Label != "White Label" {
			t.Errorf("track %d: label = %q", tr.ID, tr.Label)
		}
		if tr.Anlz == nil {
			t.Fatalf("track %d: missing analysis", tr.ID)
		}
		if len(tr.Anlz.BeatGrid) != 8 {
			t.Errorf("track %d: %d beats, want 8", tr.ID, len(tr.Anlz.BeatGrid))
		}
		if tr.Anlz.Waveform == nil || tr.Anlz.Waveform.Kind != anlz.WaveformColor {
			t.Errorf("track %d: waveform = %+v, want color", tr.ID, tr.Anlz.Waveform)
		}
		if len(tr.Anlz.CuePoints) != 2 || tr.Anlz.CuePoints[1].Kind != anlz.CueKindLoop {
			t.Errorf("track %d: cues = %+v", tr.ID, tr.Anlz.CuePoints)
		}
	}

	stats := r.Stats()
	if stats.TotalTracks != 40 {
		t.Errorf("TotalTracks = %d, want 40", stats.TotalTracks)
	}
	if stats.ValidPlaylists != gen.NumPlaylists+1 || stats.CorruptPlaylists != 0 {
		t.Errorf("playlists valid=%d corrupt=%d, want %d/0", stats.ValidPlaylists, stats.CorruptPlaylists, gen.NumPlaylists+1)
	}
	if stats.TotalPlaylists != stats.ValidPlaylists+stats.CorruptPlaylists {
		t.Errorf("TotalPlaylists = %d", stats.TotalPlaylists)
	}
	if stats.AnlzFilesProcessed != 80 {
		t.Errorf("AnlzFilesProcessed = %d, want 80", stats.AnlzFilesProcessed)
	}
	if stats.OrphanSidecars != 0 {
		t.Errorf("OrphanSidecars = %d, want 0", stats.OrphanSidecars)
	}
	if stats.RowsRejected != 0 {
		t.Errorf("RowsRejected = %d, want 0", stats.RowsRejected)
	}
	if stats.ProcessingTime <= 0 || snap.Metadata.Stats != stats {
		t.Errorf("metadata stats = %+v, reader stats = %+v", snap.Metadata.Stats, stats)
	}
}

func TestRunPlaylistsAndHistory(t *testing.T) {
	gen := benchutil.DefaultConfig(30)
	gen.WithAnlz = false
	exp, root, _ := benchutil.WriteExport(t, gen)

	cfg := testConfig(root)
	cfg.SkipAnlz = true
	snap, err := New(cfg).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(snap.Playlists) != gen.NumPlaylists+1 {
		t.Fatalf("got %d playlists, want %d", len(snap.Playlists), gen.NumPlaylists+1)
	}
	folder := snap.Playlists[0]
	if !folder.IsFolder || folder.Name != "Sets" || folder.Depth != 0 || len(folder.TrackIDs) != 0 {
		t.Errorf("first node = %+v, want the Sets folder", folder)
	}
	for i, p := range snap.Playlists[1:] {
		wantName := "Set " + string(rune('1'+i))
		if p.Name != wantName || p.Depth != 1 || p.Path != "Sets/"+wantName {
			t.Errorf("node %d = %+v, want %s at depth 1", i+1, p, wantName)
		}
		if !slices.Equal(p.TrackIDs, exp.Playlists[p.ID]) {
			t.Errorf("playlist %d tracks = %v, want %v", p.ID, p.TrackIDs, exp.Playlists[p.ID])
		}
	}
	if got, ok := snap.Playlist(3); !ok || got.Name != "Set 2" {
		t.Errorf("Playlist(3) = %+v, %v", got, ok)
	}

	if len(snap.History) != 1 || snap.History[0].Name != "HISTORY 001" {
		t.Fatalf("history = %+v", snap.History)
	}
	if want := []uint32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}; !slices.Equal(snap.History[0].TrackIDs, want) {
		t.Errorf("history tracks = %v, want %v", snap.History[0].TrackIDs, want)
	}

	var names []string
	for _, c := range snap.Columns {
		names = append(names, c.Name)
	}
	if want := []string{"GENRE", "ARTIST", "ALBUM"}; !slices.Equal(names, want) {
		t.Errorf("columns = %v, want %v", names, want)
	}
	for _, tr := range snap.Tracks {
		if tr.Anlz != nil {
			t.Fatalf("track %d has analysis with SkipAnlz set", tr.ID)
		}
	}
}

func TestRunMetadata(t *testing.T) {
	_, root, pdbPath := benchutil.WriteExport(t, benchutil.DefaultConfig(5))

	cfg := testConfig(pdbPath)
	cfg.SkipAnlz = true
	snap, err := New(cfg).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	md := snap.Metadata
	if md.Source != pdbPath || md.Root != root {
		t.Errorf("source=%q root=%q, want %q %q", md.Source, md.Root, pdbPath, root)
	}
	if len(md.PDBHash) != 64 || strings.Trim(md.PDBHash, "0123456789abcdef") != "" {
		t.Errorf("PDBHash = %q, want 64 hex chars", md.PDBHash)
	}
	if md.Header.PageSize != benchutil.DefaultPageSize {
		t.Errorf("PageSize = %d", md.Header.PageSize)
	}
	if md.RunID == "" {
		t.Error("RunID is empty")
	}
	if len(md.Tables) != int(md.Header.NumTables) {
		t.Errorf("%d tables listed, header says %d", len(md.Tables), md.Header.NumTables)
	}
	for _, ti := range md.Tables {
		if !ti.Known || ti.Walk == nil {
			t.Errorf("table %s: known=%v walk=%v", ti.Name, ti.Known, ti.Walk)
		}
	}
}

func TestRunSameHashForSameBytes(t *testing.T) {
	gen := benchutil.DefaultConfig(5)
	gen.WithAnlz = false
	_, rootA, _ := benchutil.WriteExport(t, gen)
	_, rootB, _ := benchutil.WriteExport(t, gen)

	var hashes, runIDs []string
	for _, root := range []string{rootA, rootB} {
		cfg := testConfig(root)
		cfg.SkipAnlz = true
		snap, err := New(cfg).Run(context.Background())
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		hashes = append(hashes, snap.Metadata.PDBHash)
		runIDs = append(runIDs, snap.Metadata.RunID)
	}
	if hashes[0] != hashes[1] {
		t.Errorf("hashes differ for identical exports: %v", hashes)
	}
	if runIDs[0] == runIDs[1] {
		t.Errorf("run ids should differ: %v", runIDs)
	}
}

func TestRunMissingExport(t *testing.T) {
	_, err := New(testConfig(filepath.Join(t.TempDir(), "nope"))).Run(context.Background())
	if !errors.Is(err, pdb.ErrNotFound) {
		t.Errorf("Run() error = %v, want ErrNotFound", err)
	}
}

func TestRunHeaderTooSmall(t *testing.T) {
	root := t.TempDir()
	p := filepath.Join(root, filepath.FromSlash(benchutil.PDBRelPath))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, make([]byte, 10), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := New(testConfig(root)).Run(context.Background())
	if !errors.Is(err, pdb.ErrHeaderTooSmall) {
		t.Errorf("Run() error = %v, want ErrHeaderTooSmall", err)
	}
}

func TestRunInvalidConfig(t *testing.T) {
	if _, err := New(Config{}).Run(context.Background()); err == nil {
		t.Error("Run() with empty config should fail")
	}
}

func TestRunOrphanSidecars(t *testing.T) {
	_, root, _ := benchutil.WriteExport(t, benchutil.DefaultConfig(6))
	orphan := filepath.Join(root, "PIONEER", "USBANLZ", "PFFF", "DEADBEEF", "ANLZ0000.DAT")
	if err := os.MkdirAll(filepath.Dir(orphan), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(orphan, benchutil.AnlzFile(), 0o644); err != nil {
		t.Fatal(err)
	}

	r := New(testConfig(root))
	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := r.Stats().OrphanSidecars; got != 1 {
		t.Errorf("OrphanSidecars = %d, want 1", got)
	}
}

func TestRunWorkerCountKeepsOrder(t *testing.T) {
	_, root, _ := benchutil.WriteExport(t, benchutil.DefaultConfig(64))

	var runs [][]uint32
	for _, workers := range []int{1, 8} {
		cfg := testConfig(root)
		cfg.Workers = workers
		snap, err := New(cfg).Run(context.Background())
		if err != nil {
			t.Fatalf("Run(workers=%d) error = %v", workers, err)
		}
		var ids []uint32
		for _, tr := range snap.Tracks {
			ids = append(ids, tr.ID)
			if len(tr.Anlz.CuePoints) == 0 {
				t.Fatalf("workers=%d: track %d has no cues", workers, tr.ID)
			}
			if tr.Anlz.CuePoints[1].TimeMs != uint32(tr.Duration)*250 {
				t.Fatalf("workers=%d: track %d got another track's cues", workers, tr.ID)
			}
		}
		runs = append(runs, ids)
	}
	if !slices.Equal(runs[0], runs[1]) {
		t.Error("track order depends on worker count")
	}
}

func TestRunCancelled(t *testing.T) {
	_, root, _ := benchutil.WriteExport(t, benchutil.DefaultConfig(20))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(testConfig(root)).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestRunStoreCorruptPlaylists(t *testing.T) {
	b := &benchutil.PDB{}
	b.AddTable(benchutil.TablePlaylistTree, [][]byte{
		benchutil.PlaylistTreeRow(1, 0, 0, "Good", false),
		benchutil.PlaylistTreeRow(2, pdb.MaxPlausibleID+5, 0, "Broken", false),
		benchutil.PlaylistTreeRow(3, 99, 0, "Dangling", false),
	})
	store, err := pdb.Open(b.Bytes(), pdb.Options{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	cfg := testConfig("unused")
	cfg.SkipAnlz = true
	r := New(cfg)
	snap, err := r.RunStore(context.Background(), store, "")
	if err != nil {
		t.Fatalf("RunStore() error = %v", err)
	}

	if len(snap.Playlists) != 1 || snap.Playlists[0].Name != "Good" {
		t.Errorf("playlists = %+v, want only Good", snap.Playlists)
	}
	stats := r.Stats()
	if stats.ValidPlaylists != 1 || stats.CorruptPlaylists != 2 || stats.TotalPlaylists != 3 {
		t.Errorf("stats = %+v, want 1 valid, 2 corrupt, 3 total", stats)
	}
	if stats.RowsRejected != 1 {
		t.Errorf("RowsRejected = %d, want 1", stats.RowsRejected)
	}
	if len(snap.Tracks) != 0 || snap.Tracks == nil {
		t.Errorf("tracks = %v, want empty non-nil", snap.Tracks)
	}
}

func TestRunStoreEmptyRootIgnoresWorkingDir(t *testing.T) {
	_, root, pdbPath := benchutil.WriteExport(t, benchutil.DefaultConfig(10))
	t.Chdir(root)

	store, err := pdb.OpenFile(pdbPath, pdb.Options{})
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	defer store.Close()

	r := New(testConfig(root))
	snap, err := r.RunStore(context.Background(), store, "")
	if err != nil {
		t.Fatalf("RunStore() error = %v", err)
	}
	if len(snap.Tracks) != 10 {
		t.Fatalf("got %d tracks, want 10", len(snap.Tracks))
	}
	for _, tr := range snap.Tracks {
		if tr.Anlz != nil {
			t.Fatalf("track %d: analysis attached from the working directory", tr.ID)
		}
	}
	if stats := r.Stats(); stats.AnlzFilesProcessed != 0 || stats.OrphanSidecars != 0 {
		t.Errorf("stats = %+v, want no sidecar activity", stats)
	}
}

func TestTrackByPath(t *testing.T) {
	exp, root, _ := benchutil.WriteExport(t, benchutil.DefaultConfig(12))
	cfg := testConfig(root)
	cfg.SkipAnlz = true
	snap, err := New(cfg).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := exp.Tracks[4]
	extPath := strings.TrimSuffix(want.AnalyzePath, ".DAT") + ".EXT"
	for _, p := range []string{want.FilePath, want.AnalyzePath, extPath, strings.ToLower(extPath)} {
		got, ok := snap.TrackByPath(p)
		if !ok || got.ID != want.ID {
			t.Errorf("TrackByPath(%q) = %v, %v; want track %d", p, got, ok, want.ID)
		}
	}
	if _, ok := snap.TrackByPath("/Contents/missing.mp3"); ok {
		t.Error("TrackByPath found a missing path")
	}
}

func TestStatsBeforeRun(t *testing.T) {
	if got := New(testConfig("x")).Stats(); got != (Stats{}) {
		t.Errorf("Stats() = %+v, want zero", got)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"default", DefaultConfig("/media/usb"), false},
		{"no path", Config{Workers: 1}, true},
		{"negative workers", Config{Path: "x", Workers: -1}, true},
		{"negative progress", Config{Path: "x", ProgressEvery: -1}, true},
		{"zero workers uses default", Config{Path: "x"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
	if w := (Config{Path: "x"}).workers(); w < 1 {
		t.Errorf("workers() = %d, want >= 1", w)
	}
}
