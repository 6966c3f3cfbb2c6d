package export

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"

	_ "github.com/mattn/go-sqlite3"

	"github.com/eunmann/rbx-export/pkg/library"
)

const sqliteSchema = `
CREATE TABLE tracks (
	id INTEGER PRIMARY KEY,
	title TEXT NOT NULL,
	artist TEXT NOT NULL,
	album TEXT NOT NULL,
	album_artist TEXT NOT NULL,
	genre TEXT NOT NULL,
	key_name TEXT NOT NULL,
	label TEXT NOT NULL,
	color TEXT NOT NULL,
	remixer TEXT NOT NULL,
	composer TEXT NOT NULL,
	artist_id INTEGER NOT NULL,
	album_id INTEGER NOT NULL,
	genre_id INTEGER NOT NULL,
	key_id INTEGER NOT NULL,
	bpm INTEGER NOT NULL,
	tempo INTEGER NOT NULL,
	duration INTEGER NOT NULL,
	bitrate INTEGER NOT NULL,
	sample_rate INTEGER NOT NULL,
	file_size INTEGER NOT NULL,
	year INTEGER NOT NULL,
	rating INTEGER NOT NULL,
	play_count INTEGER NOT NULL,
	date_added TEXT NOT NULL,
	comment TEXT NOT NULL,
	file_path TEXT NOT NULL,
	analyze_path TEXT NOT NULL,
	artwork_path TEXT NOT NULL,
	position INTEGER NOT NULL
);
CREATE TABLE playlists (
	id INTEGER PRIMARY KEY,
	parent_id INTEGER NOT NULL,
	sort_order INTEGER NOT NULL,
	name TEXT NOT NULL,
	is_folder INTEGER NOT NULL,
	depth INTEGER NOT NULL,
	path TEXT NOT NULL,
	position INTEGER NOT NULL
);
CREATE TABLE playlist_tracks (
	playlist_id INTEGER NOT NULL,
	position INTEGER NOT NULL,
	track_id INTEGER NOT NULL,
	PRIMARY KEY (playlist_id, position)
);
CREATE TABLE history (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL
);
CREATE TABLE history_tracks (
	history_id INTEGER NOT NULL,
	position INTEGER NOT NULL,
	track_id INTEGER NOT NULL,
	PRIMARY KEY (history_id, position)
);
CREATE TABLE cue_points (
	track_id INTEGER NOT NULL,
	position INTEGER NOT NULL,
	hot_cue INTEGER,
	kind TEXT NOT NULL,
	time_ms INTEGER NOT NULL,
	loop_time_ms INTEGER,
	color_id INTEGER,
	comment TEXT NOT NULL,
	PRIMARY KEY (track_id, position)
);
CREATE TABLE beat_grids (
	track_id INTEGER PRIMARY KEY,
	beats INTEGER NOT NULL,
	first_beat_ms INTEGER,
	waveform TEXT
);
CREATE TABLE columns (
	id INTEGER PRIMARY KEY,
	number INTEGER NOT NULL,
	name TEXT NOT NULL
);
CREATE TABLE metadata (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE INDEX idx_tracks_file_path ON tracks(file_path);
CREATE INDEX idx_playlist_tracks_track ON playlist_tracks(track_id);
`

// WriteSQLite writes snap to a new SQLite database at path in a single
// transaction.
func WriteSQLite(path string, snap *library.Snapshot) error {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("open sqlite database: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=OFF",
		"PRAGMA synchronous=OFF",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute pragma %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := insertSnapshot(tx, snap); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func insertSnapshot(tx *sql.Tx, snap *library.Snapshot) error {
	trackStmt, err := tx.Prepare(`INSERT OR IGNORE INTO tracks VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare track insert: %w", err)
	}
	defer trackStmt.Close()
	cueStmt, err := tx.Prepare(`INSERT OR IGNORE INTO cue_points VALUES (?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare cue insert: %w", err)
	}
	defer cueStmt.Close()
	beatStmt, err := tx.Prepare(`INSERT OR IGNORE INTO beat_grids VALUES (?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare beat grid insert: %w", err)
	}
	defer beatStmt.Close()

	for i, t := range snap.Tracks {
		_, err := trackStmt.Exec(
			t.ID, t.Title, t.Artist, t.Album, t.AlbumArtist, t.Genre, t.Key, t.Label, t.Color,
			t.Remixer, t.Composer, t.ArtistID, t.AlbumID, t.GenreID, t.KeyID,
			t.BPM, t.Tempo, t.Duration, t.Bitrate, t.SampleRate, t.FileSize, t.Year, t.Rating,
			t.PlayCount, t.DateAdded, t.Comment, t.FilePath, t.AnalyzePath, t.ArtworkPath, i,
		)
		if err != nil {
			return fmt.Errorf("insert track %d: %w", t.ID, err)
		}
		if t.Anlz == nil {
			continue
		}
		for j, c := range t.Anlz.CuePoints {
			if _, err := cueStmt.Exec(t.ID, j, nullable(c.HotCue), string(c.Kind), c.TimeMs, nullable(c.LoopTimeMs), nullable(c.ColorID), c.Comment); err != nil {
				return fmt.Errorf("insert cue for track %d: %w", t.ID, err)
			}
		}
		var firstBeat any
		if len(t.Anlz.BeatGrid) > 0 {
			firstBeat = t.Anlz.BeatGrid[0].TimeMs
		}
		var waveform any
		if t.Anlz.Waveform != nil {
			waveform = string(t.Anlz.Waveform.Kind)
		}
		if _, err := beatStmt.Exec(t.ID, len(t.Anlz.BeatGrid), firstBeat, waveform); err != nil {
			return fmt.Errorf("insert beat grid for track %d: %w", t.ID, err)
		}
	}

	if err := insertPlaylists(tx, snap); err != nil {
		return err
	}

	for _, c := range snap.Columns {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO columns VALUES (?,?,?)`, c.ID, c.Number, c.Name); err != nil {
			return fmt.Errorf("insert column %d: %w", c.ID, err)
		}
	}

	return insertMetadata(tx, snap.Metadata)
}

func insertPlaylists(tx *sql.Tx, snap *library.Snapshot) error {
	memberStmt, err := tx.Prepare(`INSERT INTO playlist_tracks VALUES (?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare playlist track insert: %w", err)
	}
	defer memberStmt.Close()

	for i, p := range snap.Playlists {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO playlists VALUES (?,?,?,?,?,?,?,?)`,
			p.ID, p.ParentID, p.SortOrder, p.Name, p.IsFolder, p.Depth, p.Path, i); err != nil {
			return fmt.Errorf("insert playlist %d: %w", p.ID, err)
		}
		for pos, id := range p.TrackIDs {
			if _, err := memberStmt.Exec(p.ID, pos, id); err != nil {
				return fmt.Errorf("insert playlist %d entry: %w", p.ID, err)
			}
		}
	}

	for _, h := range snap.History {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO history VALUES (?,?)`, h.ID, h.Name); err != nil {
			return fmt.Errorf("insert history %d: %w", h.ID, err)
		}
		for pos, id := range h.TrackIDs {
			if _, err := tx.Exec(`INSERT OR IGNORE INTO history_tracks VALUES (?,?,?)`, h.ID, pos, id); err != nil {
				return fmt.Errorf("insert history %d entry: %w", h.ID, err)
			}
		}
	}
	return nil
}

func insertMetadata(tx *sql.Tx, md library.Metadata) error {
	stats, err := json.Marshal(md.Stats)
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}
	tables, err := json.Marshal(md.Tables)
	if err != nil {
		return fmt.Errorf("marshal tables: %w", err)
	}
	rows := [][2]string{
		{"run_id", md.RunID},
		{"source", md.Source},
		{"pdb_blake3", md.PDBHash},
		{"pdb_size", strconv.FormatInt(md.PDBSize, 10)},
		{"page_size", strconv.FormatUint(uint64(md.Header.PageSize), 10)},
		{"sequence", strconv.FormatUint(uint64(md.Header.Sequence), 10)},
		{"generated_at", md.GeneratedAt.Format("2006-01-02T15:04:05Z07:00")},
		{"stats", string(stats)},
		{"tables", string(tables)},
	}
	for _, kv := range rows {
		if _, err := tx.Exec(`INSERT INTO metadata VALUES (?,?)`, kv[0], kv[1]); err != nil {
			return fmt.Errorf("insert metadata %s: %w", kv[0], err)
		}
	}
	return nil
}

func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
