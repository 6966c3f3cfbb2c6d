package pdb

// PlaylistNode is a row of the playlist tree: either a folder or a playlist.
type PlaylistNode struct {
	ID        uint32 `json:"id"`
	ParentID  uint32 `json:"parent_id"`
	SortOrder uint32 `json:"sort_order"`
	Name      string `json:"name"`
	IsFolder  bool   `json:"is_folder"`
}

// PlaylistEntry places a track at a position in a playlist.
type PlaylistEntry struct {
	EntryIndex uint32 `json:"entry_index"`
	TrackID    uint32 `json:"track_id"`
	PlaylistID uint32 `json:"playlist_id"`
}

// HistoryPlaylist is a row of the history playlists table.
type HistoryPlaylist struct {
	ID   uint32 `json:"id"`
	Name string `json:"name"`
}

// HistoryEntry places a track in a history playlist.
type HistoryEntry struct {
	TrackID    uint32 `json:"track_id"`
	PlaylistID uint32 `json:"playlist_id"`
	EntryIndex uint32 `json:"entry_index"`
}

// Column describes one browse column offered by the player.
type Column struct {
	ID     uint32 `json:"id"`
	Number uint32 `json:"number"`
	Name   string `json:"name"`
}

// PlaylistNodeSchema decodes playlist tree rows. Top-level nodes have a
// zero parent, so the leading word may be zero.
var PlaylistNodeSchema = Schema[PlaylistNode]{
	Table:      TablePlaylistTree,
	MinRowSize: 0x15,
	Decode: func(page []byte, row, heapStart int) (PlaylistNode, error) {
		return decodeWith(TablePlaylistTree, page, row, heapStart, func(c *rowCursor) PlaylistNode {
			c.sanity(true)
			n := PlaylistNode{
				ParentID:  c.u32(0x00),
				SortOrder: c.u32(0x08),
				ID:        c.u32(0x0C),
				IsFolder:  c.u32(0x10) != 0,
			}
			c.id("id", n.ID)
			if n.ParentID > MaxPlausibleID {
				c.fail(rowErr(SanityCheckFailed, TablePlaylistTree, row, "implausible parent_id %d", n.ParentID))
			}
			n.Name = c.str(0x14)
			return n
		})
	},
}

// PlaylistEntrySchema decodes playlist membership rows.
var PlaylistEntrySchema = Schema[PlaylistEntry]{
	Table:      TablePlaylistEntries,
	MinRowSize: 12,
	Decode: func(page []byte, row, heapStart int) (PlaylistEntry, error) {
		return decodeWith(TablePlaylistEntries, page, row, heapStart, func(c *rowCursor) PlaylistEntry {
			c.sanity(true)
			e := PlaylistEntry{EntryIndex: c.u32(0), TrackID: c.u32(4), PlaylistID: c.u32(8)}
			c.id("track_id", e.TrackID)
			c.id("playlist_id", e.PlaylistID)
			return e
		})
	},
}

// HistoryPlaylistSchema decodes history playlist rows: id then name.
var HistoryPlaylistSchema = Schema[HistoryPlaylist]{
	Table:      TableHistoryPlaylists,
	MinRowSize: 5,
	Decode: func(page []byte, row, heapStart int) (HistoryPlaylist, error) {
		return decodeWith(TableHistoryPlaylists, page, row, heapStart, func(c *rowCursor) HistoryPlaylist {
			c.sanity(false)
			h := HistoryPlaylist{ID: c.u32(0)}
			c.id("id", h.ID)
			h.Name = c.str(4)
			return h
		})
	},
}

// HistoryEntrySchema decodes history membership rows.
var HistoryEntrySchema = Schema[HistoryEntry]{
	Table:      TableHistoryEntries,
	MinRowSize: 12,
	Decode: func(page []byte, row, heapStart int) (HistoryEntry, error) {
		return decodeWith(TableHistoryEntries, page, row, heapStart, func(c *rowCursor) HistoryEntry {
			c.sanity(false)
			e := HistoryEntry{TrackID: c.u32(0), PlaylistID: c.u32(4), EntryIndex: c.u32(8)}
			c.id("track_id", e.TrackID)
			c.id("playlist_id", e.PlaylistID)
			return e
		})
	},
}

// ColumnSchema decodes browse column rows: u16 id, u16 number, name.
var ColumnSchema = Schema[Column]{
	Table:      TableColumns,
	MinRowSize: 5,
	Decode: func(page []byte, row, heapStart int) (Column, error) {
		return decodeWith(TableColumns, page, row, heapStart, func(c *rowCursor) Column {
			c.sanity(false)
			col := Column{ID: uint32(c.u16(0)), Number: uint32(c.u16(2))}
			c.id("id", col.ID)
			col.Name = stripColumnMarkers(c.str(4))
			return col
		})
	},
}

// stripColumnMarkers drops the U+FFFA/U+FFFB annotation characters that
// wrap column names.
func stripColumnMarkers(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '\uFFFA' || r == '\uFFFB' {
			continue
		}
		out = append(out, r)
	}
	return string(out)
}
