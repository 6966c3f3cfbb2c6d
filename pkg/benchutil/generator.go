package benchutil

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
)

// PDBRelPath is where export.pdb lives under an export root.
const PDBRelPath = "PIONEER/rekordbox/export.pdb"

// GeneratorConfig configures synthetic export generation.
type GeneratorConfig struct {
	// NumTracks is the number of tracks to generate.
	NumTracks int
	// NumArtists, NumAlbums and NumGenres size the dimension tables.
	NumArtists int
	NumAlbums  int
	NumGenres  int
	// NumPlaylists is the number of playlists under a single folder.
	NumPlaylists int
	// TracksPerPlaylist caps each playlist's length.
	TracksPerPlaylist int
	// WithAnlz adds a .DAT and .EXT sidecar per track.
	WithAnlz bool
	// Seed for reproducible generation. 0 = use default seed.
	Seed int64
}

// DefaultConfig returns a reasonable default configuration.
func DefaultConfig(numTracks int) GeneratorConfig {
	return GeneratorConfig{
		NumTracks:         numTracks,
		NumArtists:        max(numTracks/10, 1),
		NumAlbums:         max(numTracks/12, 1),
		NumGenres:         8,
		NumPlaylists:      4,
		TracksPerPlaylist: 25,
		WithAnlz:          true,
		Seed:              BenchmarkSeed,
	}
}

// Export is a generated export tree held in memory.
type Export struct {
	PDB []byte
	// Sidecars maps analyze paths (as stored in track rows) to file bytes.
	Sidecars  map[string][]byte
	Tracks    []TrackSpec
	Genres    map[uint32]string
	Artists   map[uint32]string
	Playlists map[uint32][]uint32
}

// Generator generates synthetic Rekordbox exports.
type Generator struct {
	cfg GeneratorConfig
	rng *rand.Rand
}

// NewGenerator creates a new export generator.
func NewGenerator(cfg GeneratorConfig) *Generator {
	seed := cfg.Seed
	if seed == 0 {
		seed = BenchmarkSeed
	}
	return &Generator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(seed)),
	}
}

var genreNames = []string{"House", "Techno", "Disco", "Drum & Bass", "Ambient", "Électronique", "Garage", "Dub"}

var keyNames = []string{"1A", "2A", "3A", "4A", "5A", "6A", "7A", "8A", "9A", "10A", "11A", "12A"}

var colorNames = []string{"Pink", "Red", "Orange", "Yellow", "Green", "Aqua", "Blue", "Purple"}

// Generate builds the export.
func (g *Generator) Generate() *Export {
	cfg := g.cfg
	exp := &Export{
		Sidecars:  make(map[string][]byte),
		Genres:    make(map[uint32]string),
		Artists:   make(map[uint32]string),
		Playlists: make(map[uint32][]uint32),
	}
	pdb := &PDB{PageSize: DefaultPageSize, Sequence: 1}

	numGenres := max(cfg.NumGenres, 1)
	numArtists := max(cfg.NumArtists, 1)
	numAlbums := max(cfg.NumAlbums, 1)

	tracks := make([][]byte, 0, cfg.NumTracks)
	for i := range cfg.NumTracks {
		id := uint32(i + 1)
		dir := fmt.Sprintf("/PIONEER/USBANLZ/P%03X/%08X", id%0x1000, id)
		t := TrackSpec{
			ID:          id,
			Title:       fmt.Sprintf("Track %d", id),
			ArtistID:    uint32(g.rng.Intn(numArtists) + 1),
			AlbumID:     uint32(g.rng.Intn(numAlbums) + 1),
			GenreID:     uint32(g.rng.Intn(numGenres) + 1),
			KeyID:       uint32(g.rng.Intn(len(keyNames)) + 1),
			ColorID:     uint8(g.rng.Intn(len(colorNames) + 1)),
			LabelID:     1,
			Tempo:       uint32(9000 + g.rng.Intn(8000)),
			Duration:    uint16(180 + g.rng.Intn(300)),
			Bitrate:     320,
			SampleRate:  44100,
			SampleDepth: 16,
			FileSize:    uint32(5_000_000 + g.rng.Intn(10_000_000)),
			TrackNumber: uint32(i%12 + 1),
			Year:        uint16(1990 + g.rng.Intn(35)),
			Rating:      uint8(g.rng.Intn(6)),
			Filename:    fmt.Sprintf("track-%05d.mp3", id),
			FilePath:    fmt.Sprintf("/Contents/Artist %d/track-%05d.mp3", id%50, id),
			AnalyzePath: dir + "/ANLZ0000.DAT",
			DateAdded:   "2024-01-15",
		}
		exp.Tracks = append(exp.Tracks, t)
		tracks = append(tracks, TrackRow(t))
		if cfg.WithAnlz {
			exp.Sidecars[t.AnalyzePath] = g.datFile(t)
			exp.Sidecars[dir+"/ANLZ0000.EXT"] = g.extFile(t)
		}
	}
	pdb.AddTable(TableTracks, tracks)

	var rows [][]byte
	for i := range numGenres {
		id := uint32(i + 1)
		name := genreNames[i%len(genreNames)]
		exp.Genres[id] = name
		rows = append(rows, IDNameRow(id, name))
	}
	pdb.AddTable(TableGenres, rows)

	rows = nil
	for i := range numArtists {
		id := uint32(i + 1)
		name := fmt.Sprintf("Artist %d", id)
		exp.Artists[id] = name
		rows = append(rows, ArtistRow(id, name, i%5 == 4))
	}
	pdb.AddTable(TableArtists, rows)

	rows = nil
	for i := range numAlbums {
		id := uint32(i + 1)
		rows = append(rows, AlbumRow(id, uint32(i%numArtists+1), fmt.Sprintf("Album %d", id), i%7 == 6))
	}
	pdb.AddTable(TableAlbums, rows)

	pdb.AddTable(TableLabels, [][]byte{IDNameRow(1, "White Label")})

	rows = nil
	for i, name := range keyNames {
		rows = append(rows, KeyRow(uint32(i+1), name))
	}
	pdb.AddTable(TableKeys, rows)

	rows = nil
	for i, name := range colorNames {
		rows = append(rows, ColorRow(uint16(i+1), name))
	}
	pdb.AddTable(TableColors, rows)

	const folderID = 1
	tree := [][]byte{PlaylistTreeRow(folderID, 0, 0, "Sets", true)}
	var entries [][]byte
	for p := range cfg.NumPlaylists {
		pid := uint32(p + 2)
		tree = append(tree, PlaylistTreeRow(pid, folderID, uint32(p), fmt.Sprintf("Set %d", p+1), false))
		n := min(cfg.TracksPerPlaylist, cfg.NumTracks)
		for e := range n {
			trackID := uint32(g.rng.Intn(cfg.NumTracks) + 1)
			exp.Playlists[pid] = append(exp.Playlists[pid], trackID)
			entries = append(entries, PlaylistEntryRow(uint32(e+1), trackID, pid))
		}
	}
	pdb.AddTable(TablePlaylistTree, tree)
	pdb.AddTable(TablePlaylistEntries, entries)

	pdb.AddTable(TableHistoryPlaylists, [][]byte{IDNameRow(1, "HISTORY 001")})
	var history [][]byte
	for i := range min(cfg.NumTracks, 10) {
		history = append(history, HistoryEntryRow(uint32(i+1), 1, uint32(i+1)))
	}
	pdb.AddTable(TableHistoryEntries, history)

	pdb.AddTable(TableArtwork, [][]byte{IDNameRow(1, "/PIONEER/Artwork/00001/a1.jpg")})
	pdb.AddTable(TableColumns, [][]byte{
		ColumnRow(1, 128, "GENRE"),
		ColumnRow(2, 129, "ARTIST"),
		ColumnRow(3, 130, "ALBUM"),
	})

	exp.PDB = pdb.Bytes()
	return exp
}

func (g *Generator) datFile(t TrackSpec) []byte {
	beats := make([]BeatSpec, 8)
	for i := range beats {
		beats[i] = BeatSpec{
			Number: uint16(i%4 + 1),
			Tempo:  uint16(t.Tempo),
			TimeMs: uint32(i) * 60000 * 100 / max(t.Tempo, 1),
		}
	}
	preview := make([]byte, 400)
	for i := range preview {
		preview[i] = byte(g.rng.Intn(32)) | byte(g.rng.Intn(8))<<5
	}
	return AnlzFile(
		PQTZSection(beats),
		PWAVSection(preview),
		PCOBSection(1, []CueSpec{{HotCue: 1, Type: 1, TimeMs: 0}}),
	)
}

func (g *Generator) extFile(t TrackSpec) []byte {
	color := make([][6]byte, 200)
	for i := range color {
		for j := range color[i] {
			color[i][j] = byte(g.rng.Intn(256))
		}
	}
	return AnlzFile(
		PWV3Section(make([]byte, 300)),
		PWV5Section(color),
		PCO2Section(1, []CueSpec{
			{HotCue: 1, Type: 1, TimeMs: 0, ColorID: 1, Comment: "Intro"},
			{HotCue: 2, Type: 2, TimeMs: uint32(t.Duration) * 250, LoopTimeMs: uint32(t.Duration)*250 + 4000, ColorID: 3, Comment: "Loop"},
		}),
	)
}

// SidecarPath maps an analyze path stored in a track row to a file under root.
func SidecarPath(root, analyzePath string) string {
	return filepath.Join(root, filepath.FromSlash(strings.TrimPrefix(analyzePath, "/")))
}

// WriteTo writes the export tree under root: export.pdb at PDBRelPath and
// every sidecar at its analyze path.
func (e *Export) WriteTo(root string) (string, error) {
	pdbPath := filepath.Join(root, filepath.FromSlash(PDBRelPath))
	if err := os.MkdirAll(filepath.Dir(pdbPath), 0o755); err != nil {
		return "", fmt.Errorf("create rekordbox dir: %w", err)
	}
	if err := os.WriteFile(pdbPath, e.PDB, 0o644); err != nil {
		return "", fmt.Errorf("write export.pdb: %w", err)
	}
	for p, data := range e.Sidecars {
		dst := SidecarPath(root, p)
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return "", fmt.Errorf("create sidecar dir: %w", err)
		}
		if err := os.WriteFile(dst, data, 0o644); err != nil {
			return "", fmt.Errorf("write sidecar %s: %w", p, err)
		}
	}
	return pdbPath, nil
}
