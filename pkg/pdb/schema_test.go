package pdb

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/eunmann/rbx-export/pkg/benchutil"
)

func TestTrackSchemaTempo(t *testing.T) {
	page := pageWithRows(benchutil.TableTracks,
		benchutil.TrackRow(benchutil.TrackSpec{ID: 1, Title: "Fast", Tempo: 12800}),
		benchutil.TrackRow(benchutil.TrackSpec{ID: 2, Title: "Unanalyzed", Tempo: 0}),
		benchutil.TrackRow(benchutil.TrackSpec{ID: 3, Title: "Odd", Tempo: 12450}),
	)
	tracks, errs := decodeRows(page, TrackSchema)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	want := map[uint32]int{1: 128, 2: 0, 3: 125}
	for _, tr := range tracks {
		if tr.BPM != want[tr.ID] {
			t.Errorf("track %d BPM = %d, want %d", tr.ID, tr.BPM, want[tr.ID])
		}
	}
}

func TestTrackSchemaFields(t *testing.T) {
	spec := benchutil.TrackSpec{
		ID:          42,
		Title:       "Strings of Life",
		ArtistID:    3,
		AlbumID:     4,
		GenreID:     5,
		KeyID:       6,
		LabelID:     7,
		ColorID:     2,
		ArtworkID:   8,
		RemixerID:   9,
		Tempo:       12000,
		Duration:    407,
		Bitrate:     320,
		SampleRate:  44100,
		SampleDepth: 16,
		FileSize:    9_800_000,
		TrackNumber: 1,
		DiscNumber:  1,
		PlayCount:   12,
		Year:        1987,
		Rating:      5,
		Filename:    "strings.mp3",
		FilePath:    "/Contents/Rhythim Is Rhythim/strings.mp3",
		AnalyzePath: "/PIONEER/USBANLZ/P02A/0000002A/ANLZ0000.DAT",
		Comment:     "Détroit classic",
		DateAdded:   "2024-03-01",
		ISRC:        "USXYZ8700001",
		MixName:     "Original Mix",
	}
	tracks, errs := decodeRows(pageWithRows(benchutil.TableTracks, benchutil.TrackRow(spec)), TrackSchema)
	if len(errs) != 0 || len(tracks) != 1 {
		t.Fatalf("tracks = %v, errs = %v", tracks, errs)
	}
	got := tracks[0]

	want := Track{
		ID: 42, Title: "Strings of Life", ArtistID: 3, AlbumID: 4, GenreID: 5,
		KeyID: 6, LabelID: 7, ColorID: 2, ArtworkID: 8, RemixerID: 9,
		Tempo: 12000, BPM: 120, Duration: 407, Bitrate: 320, SampleRate: 44100,
		SampleDepth: 16, FileSize: 9_800_000, TrackNumber: 1, DiscNumber: 1,
		PlayCount: 12, Year: 1987, Rating: 5, Subtype: 0x24,
		Filename: "strings.mp3", FilePath: spec.FilePath, AnalyzePath: spec.AnalyzePath,
		Comment: "Détroit classic", DateAdded: "2024-03-01", ISRC: "USXYZ8700001",
		MixName: "Original Mix",
	}
	if got != want {
		t.Errorf("track mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestTrackTitleFallback(t *testing.T) {
	tests := []struct {
		name string
		spec benchutil.TrackSpec
		want string
	}{
		{"title", benchutil.TrackSpec{ID: 1, Title: "T", Filename: "f.mp3"}, "T"},
		{"filename stem", benchutil.TrackSpec{ID: 1, Filename: "song.final.mp3", FilePath: "/x/y.mp3"}, "song.final"},
		{"path base", benchutil.TrackSpec{ID: 1, FilePath: "/Contents/a/b.wav"}, "b.wav"},
		{"nothing", benchutil.TrackSpec{ID: 1}, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tracks, _ := decodeRows(pageWithRows(benchutil.TableTracks, benchutil.TrackRow(tc.spec)), TrackSchema)
			if len(tracks) != 1 {
				t.Fatalf("got %d tracks", len(tracks))
			}
			if tracks[0].Title != tc.want {
				t.Errorf("Title = %q, want %q", tracks[0].Title, tc.want)
			}
		})
	}
}

func TestTrackSchemaTruncatedRow(t *testing.T) {
	page := make([]byte, benchutil.DefaultPageSize)
	row := len(page) - 0x60
	binary.LittleEndian.PutUint16(page[row:], 0x24)
	binary.LittleEndian.PutUint32(page[row+0x48:], 7)

	_, err := TrackSchema.Decode(page, row, HeapStart)
	var rowErr *RowError
	if !errors.As(err, &rowErr) || rowErr.Kind != OutOfBounds {
		t.Fatalf("err = %v, want OutOfBounds", err)
	}
	if !errors.Is(err, ErrRowOutOfBounds) {
		t.Error("errors.Is(err, ErrRowOutOfBounds) = false")
	}
}

func TestRowBeforeHeapRejected(t *testing.T) {
	page := make([]byte, 512)
	_, err := GenreSchema.Decode(page, 8, HeapStart)
	if !errors.Is(err, ErrRowOutOfBounds) {
		t.Errorf("err = %v, want ErrRowOutOfBounds", err)
	}
}

func TestSanityChecks(t *testing.T) {
	ones := make([]byte, 8)
	binary.LittleEndian.PutUint32(ones, 0xFFFFFFFF)

	page := pageWithRows(benchutil.TableGenres,
		benchutil.IDNameRow(0, "zero"),
		benchutil.IDNameRow(MaxPlausibleID+1, "huge"),
		ones,
		benchutil.IDNameRow(MaxPlausibleID, "edge"),
	)
	genres, errs := decodeRows(page, GenreSchema)
	if len(genres) != 1 || genres[0].ID != MaxPlausibleID {
		t.Errorf("genres = %+v, want only the edge id", genres)
	}
	if len(errs) != 3 {
		t.Fatalf("errs = %v, want 3", errs)
	}
	for _, err := range errs {
		if !errors.Is(err, ErrSanityCheck) {
			t.Errorf("err = %v, want ErrSanityCheck", err)
		}
	}
}

func TestArtistSchema(t *testing.T) {
	bad := benchutil.ArtistRow(9, "Bad", false)
	binary.LittleEndian.PutUint16(bad, 0x61)

	page := pageWithRows(benchutil.TableArtists,
		benchutil.ArtistRow(1, "Near", false),
		benchutil.ArtistRow(2, "Far Artist", true),
		bad,
	)
	artists, errs := decodeRows(page, ArtistSchema)
	if len(artists) != 2 {
		t.Fatalf("artists = %+v", artists)
	}
	if artists[0].Name != "Near" || artists[0].Subtype != 0x60 {
		t.Errorf("near = %+v", artists[0])
	}
	if artists[1].Name != "Far Artist" || artists[1].Subtype != 0x64 {
		t.Errorf("far = %+v", artists[1])
	}
	if len(errs) != 1 || !errors.Is(errs[0], ErrUnknownSubtype) {
		t.Errorf("errs = %v, want one ErrUnknownSubtype", errs)
	}
}

func TestAlbumSchema(t *testing.T) {
	page := pageWithRows(benchutil.TableAlbums,
		benchutil.AlbumRow(10, 1, "Near Album", false),
		benchutil.AlbumRow(11, 2, "Far Album", true),
	)
	albums, errs := decodeRows(page, AlbumSchema)
	if len(errs) != 0 {
		t.Fatalf("errs = %v", errs)
	}
	want := []Album{
		{Subtype: 0x80, ID: 10, ArtistID: 1, Name: "Near Album"},
		{Subtype: 0x84, ID: 11, ArtistID: 2, Name: "Far Album"},
	}
	if len(albums) != 2 || albums[0] != want[0] || albums[1] != want[1] {
		t.Errorf("albums = %+v, want %+v", albums, want)
	}
}

func TestSmallTableSchemas(t *testing.T) {
	keys, _ := decodeRows(pageWithRows(benchutil.TableKeys, benchutil.KeyRow(3, "8A")), KeySchema)
	if len(keys) != 1 || keys[0] != (Key{ID: 3, ID2: 3, Name: "8A"}) {
		t.Errorf("keys = %+v", keys)
	}

	colors, _ := decodeRows(pageWithRows(benchutil.TableColors, benchutil.ColorRow(4, "Yellow")), ColorSchema)
	if len(colors) != 1 || colors[0] != (Color{ID: 4, Name: "Yellow"}) {
		t.Errorf("colors = %+v", colors)
	}

	labels, _ := decodeRows(pageWithRows(benchutil.TableLabels, benchutil.IDNameRow(2, "Transmat")), LabelSchema)
	if len(labels) != 1 || labels[0] != (Label{ID: 2, Name: "Transmat"}) {
		t.Errorf("labels = %+v", labels)
	}

	art, _ := decodeRows(pageWithRows(benchutil.TableArtwork, benchutil.IDNameRow(1, "/PIONEER/Artwork/a.jpg")), ArtworkSchema)
	if len(art) != 1 || art[0].Path != "/PIONEER/Artwork/a.jpg" {
		t.Errorf("artwork = %+v", art)
	}

	cols, _ := decodeRows(pageWithRows(benchutil.TableColumns, benchutil.ColumnRow(1, 128, "GENRE")), ColumnSchema)
	if len(cols) != 1 || cols[0] != (Column{ID: 1, Number: 128, Name: "GENRE"}) {
		t.Errorf("columns = %+v", cols)
	}

	hp, _ := decodeRows(pageWithRows(benchutil.TableHistoryPlaylists, benchutil.IDNameRow(1, "HISTORY 001")), HistoryPlaylistSchema)
	if len(hp) != 1 || hp[0].Name != "HISTORY 001" {
		t.Errorf("history playlists = %+v", hp)
	}

	he, _ := decodeRows(pageWithRows(benchutil.TableHistoryEntries, benchutil.HistoryEntryRow(7, 1, 2)), HistoryEntrySchema)
	if len(he) != 1 || he[0] != (HistoryEntry{TrackID: 7, PlaylistID: 1, EntryIndex: 2}) {
		t.Errorf("history entries = %+v", he)
	}
}

func TestPlaylistSchemas(t *testing.T) {
	nodes, errs := decodeRows(pageWithRows(benchutil.TablePlaylistTree,
		benchutil.PlaylistTreeRow(1, 0, 0, "Folder", true),
		benchutil.PlaylistTreeRow(2, 1, 3, "Peak Time", false),
		benchutil.PlaylistTreeRow(3, MaxPlausibleID+5, 0, "Broken", false),
	), PlaylistNodeSchema)
	if len(errs) != 1 {
		t.Errorf("errs = %v, want one implausible parent", errs)
	}
	want := []PlaylistNode{
		{ID: 1, Name: "Folder", IsFolder: true},
		{ID: 2, ParentID: 1, SortOrder: 3, Name: "Peak Time"},
	}
	if len(nodes) != 2 || nodes[0] != want[0] || nodes[1] != want[1] {
		t.Errorf("nodes = %+v, want %+v", nodes, want)
	}

	entries, errs := decodeRows(pageWithRows(benchutil.TablePlaylistEntries,
		benchutil.PlaylistEntryRow(1, 10, 2),
		benchutil.PlaylistEntryRow(2, 0, 2),
	), PlaylistEntrySchema)
	if len(entries) != 1 || entries[0] != (PlaylistEntry{EntryIndex: 1, TrackID: 10, PlaylistID: 2}) {
		t.Errorf("entries = %+v", entries)
	}
	if len(errs) != 1 {
		t.Errorf("errs = %v, want one zero track id", errs)
	}
}

func TestTempoToBPM(t *testing.T) {
	tests := []struct {
		tempo uint32
		want  int
	}{
		{0, 0},
		{12800, 128},
		{12849, 128},
		{12850, 129},
		{17400, 174},
	}
	for _, tc := range tests {
		if got := TempoToBPM(tc.tempo); got != tc.want {
			t.Errorf("TempoToBPM(%d) = %d, want %d", tc.tempo, got, tc.want)
		}
	}
}
