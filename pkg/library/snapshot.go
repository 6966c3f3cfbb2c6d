package library

import (
	"time"

	"github.com/eunmann/rbx-export/pkg/anlz"
	"github.com/eunmann/rbx-export/pkg/pdb"
	"github.com/eunmann/rbx-export/pkg/resolve"
)

// Track is a denormalized track with its analysis attached. Anlz is nil
// when sidecar decoding was disabled.
type Track struct {
	resolve.Track
	Anlz *anlz.Data `json:"anlz,omitempty"`
}

// Playlist is a node of the playlist tree. Depth is 0 for top-level nodes.
// TrackIDs are ordered by entry index; folders have none.
type Playlist struct {
	ID        uint32   `json:"id"`
	ParentID  uint32   `json:"parent_id"`
	SortOrder uint32   `json:"sort_order"`
	Name      string   `json:"name"`
	IsFolder  bool     `json:"is_folder"`
	Depth     int      `json:"depth"`
	Path      string   `json:"path"`
	TrackIDs  []uint32 `json:"track_ids"`
}

// HistoryPlaylist is a history session with its tracks in play order.
type HistoryPlaylist struct {
	ID       uint32   `json:"id"`
	Name     string   `json:"name"`
	TrackIDs []uint32 `json:"track_ids"`
}

// TableInfo describes one table directory entry and, for decoded tables,
// how its traversal went.
type TableInfo struct {
	Name  string                  `json:"name"`
	Entry pdb.TableDirectoryEntry `json:"entry"`
	Known bool                    `json:"known"`
	Walk  *pdb.Diagnostics        `json:"walk,omitempty"`
}

// Metadata describes where a snapshot came from.
type Metadata struct {
	RunID       string      `json:"run_id"`
	Source      string      `json:"source,omitempty"`
	Root        string      `json:"root,omitempty"`
	PDBSize     int64       `json:"pdb_size"`
	PDBHash     string      `json:"pdb_blake3"`
	Header      pdb.Header  `json:"header"`
	Tables      []TableInfo `json:"tables"`
	GeneratedAt time.Time   `json:"generated_at"`
	Stats       Stats       `json:"stats"`
}

// Stats summarizes one Run.
type Stats struct {
	TotalTracks        int           `json:"total_tracks"`
	TotalPlaylists     int           `json:"total_playlists"`
	ValidPlaylists     int           `json:"valid_playlists"`
	CorruptPlaylists   int           `json:"corrupt_playlists"`
	AnlzFilesProcessed int           `json:"anlz_files_processed"`
	OrphanSidecars     int           `json:"orphan_sidecars"`
	RowsRejected       int           `json:"rows_rejected"`
	ProcessingTime     time.Duration `json:"-"`
	ProcessingSeconds  float64       `json:"processing_time"`
}

// Snapshot is the decoded content of one export. It is not modified after
// Run returns.
type Snapshot struct {
	Tracks    []Track           `json:"tracks"`
	Playlists []Playlist        `json:"playlists"`
	History   []HistoryPlaylist `json:"history"`
	Columns   []pdb.Column      `json:"columns"`
	Metadata  Metadata          `json:"metadata"`

	paths *PathIndex
}

// TrackByPath finds a track by its file path or by the path of one of its
// analysis sidecars, as stored in the database (leading slash, forward
// slashes).
func (s *Snapshot) TrackByPath(path string) (*Track, bool) {
	if s.paths == nil {
		return nil, false
	}
	for _, key := range []string{fileKey(path), anlzKey(path)} {
		if pos, ok := s.paths.Lookup(key); ok {
			return &s.Tracks[pos], true
		}
	}
	return nil, false
}

// Playlist returns the playlist with id.
func (s *Snapshot) Playlist(id uint32) (*Playlist, bool) {
	for i := range s.Playlists {
		if s.Playlists[i].ID == id {
			return &s.Playlists[i], true
		}
	}
	return nil, false
}
