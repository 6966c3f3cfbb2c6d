package pdb

import (
	"encoding/binary"
	"fmt"
)

const (
	// HeaderSize is the size of the fixed file header in bytes.
	HeaderSize = 24
	// TableEntrySize is the size of one table directory entry in bytes.
	TableEntrySize = 16
)

// Header is the fixed header at the start of export.pdb.
type Header struct {
	Signature      uint32 `json:"signature"`
	PageSize       uint32 `json:"page_size"`
	NumTables      uint32 `json:"num_tables"`
	NextUnusedPage uint32 `json:"next_unused_page"`
	Unknown        uint32 `json:"unknown"`
	Sequence       uint32 `json:"sequence"`
}

// DecodeHeader reads a header from a byte slice.
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, ErrHeaderTooSmall
	}
	return Header{
		Signature:      binary.LittleEndian.Uint32(buf[0:4]),
		PageSize:       binary.LittleEndian.Uint32(buf[4:8]),
		NumTables:      binary.LittleEndian.Uint32(buf[8:12]),
		NextUnusedPage: binary.LittleEndian.Uint32(buf[12:16]),
		Unknown:        binary.LittleEndian.Uint32(buf[16:20]),
		Sequence:       binary.LittleEndian.Uint32(buf[20:24]),
	}, nil
}

// TableType identifies the kind of rows stored in a table.
type TableType uint32

const (
	TableTracks           TableType = 0
	TableGenres           TableType = 1
	TableArtists          TableType = 2
	TableAlbums           TableType = 3
	TableLabels           TableType = 4
	TableKeys             TableType = 5
	TableColors           TableType = 6
	TablePlaylistTree     TableType = 7
	TablePlaylistEntries  TableType = 8
	TableHistoryPlaylists TableType = 11
	TableHistoryEntries   TableType = 12
	TableArtwork          TableType = 13
	TableColumns          TableType = 16
	TableHistory          TableType = 19
)

var tableNames = map[TableType]string{
	TableTracks:           "tracks",
	TableGenres:           "genres",
	TableArtists:          "artists",
	TableAlbums:           "albums",
	TableLabels:           "labels",
	TableKeys:             "keys",
	TableColors:           "colors",
	TablePlaylistTree:     "playlist_tree",
	TablePlaylistEntries:  "playlist_entries",
	TableHistoryPlaylists: "history_playlists",
	TableHistoryEntries:   "history_entries",
	TableArtwork:          "artwork",
	TableColumns:          "columns",
	TableHistory:          "history",
}

func (t TableType) String() string {
	if name, ok := tableNames[t]; ok {
		return name
	}
	return fmt.Sprintf("unknown_%d", uint32(t))
}

// Known reports whether t is a table kind this package can decode.
func (t TableType) Known() bool {
	_, ok := tableNames[t]
	return ok
}

// ParseTableType maps a table name as printed by String back to its type.
func ParseTableType(name string) (TableType, bool) {
	for t, n := range tableNames {
		if n == name {
			return t, true
		}
	}
	return 0, false
}

// TableDirectoryEntry locates one table's page chain.
//
// FirstPage may be greater than LastPage in healthy exports; pages are
// linked through each page's NextPage field, not laid out in order.
type TableDirectoryEntry struct {
	Type           TableType `json:"type"`
	EmptyCandidate uint32    `json:"empty_candidate"`
	FirstPage      uint32    `json:"first_page"`
	LastPage       uint32    `json:"last_page"`
}

// decodeTableDirectory reads up to n entries starting right after the header.
// It stops early, without error, when the buffer ends.
func decodeTableDirectory(buf []byte, n uint32) []TableDirectoryEntry {
	entries := make([]TableDirectoryEntry, 0, min(int(n), 64))
	for i := 0; i < int(n); i++ {
		off := HeaderSize + i*TableEntrySize
		if off+TableEntrySize > len(buf) {
			break
		}
		entries = append(entries, TableDirectoryEntry{
			Type:           TableType(binary.LittleEndian.Uint32(buf[off : off+4])),
			EmptyCandidate: binary.LittleEndian.Uint32(buf[off+4 : off+8]),
			FirstPage:      binary.LittleEndian.Uint32(buf[off+8 : off+12]),
			LastPage:       binary.LittleEndian.Uint32(buf[off+12 : off+16]),
		})
	}
	return entries
}
