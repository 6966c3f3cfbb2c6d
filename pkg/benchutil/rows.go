package benchutil

import (
	"encoding/binary"
	"unicode/utf16"
)

// ShortString encodes s in the single-byte short form. s must be at most
// 126 bytes.
func ShortString(s string) []byte {
	if len(s) > 126 {
		panic("benchutil: short string longer than 126 bytes")
	}
	out := make([]byte, 0, len(s)+1)
	out = append(out, byte((len(s)+1)<<1|1))
	return append(out, s...)
}

// LongASCIIString encodes s in the 0x40 long form.
func LongASCIIString(s string) []byte {
	out := make([]byte, 3, len(s)+3)
	out[0] = 0x40
	binary.LittleEndian.PutUint16(out[1:], uint16(len(s)))
	return append(out, s...)
}

// UTF16String encodes s in the 0x90 UTF-16LE long form.
func UTF16String(s string) []byte {
	units := utf16.Encode([]rune(s))
	out := make([]byte, 3+2*len(units))
	out[0] = 0x90
	binary.LittleEndian.PutUint16(out[1:], uint16(len(units)))
	for i, u := range units {
		binary.LittleEndian.PutUint16(out[3+2*i:], u)
	}
	return out
}

// String picks the encoding Rekordbox would: short form for short ASCII,
// UTF-16 otherwise.
func String(s string) []byte {
	if len(s) <= 126 && isASCII(s) {
		return ShortString(s)
	}
	return UTF16String(s)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

type rowBuf struct {
	b []byte
}

func newRow(fixed int) *rowBuf {
	return &rowBuf{b: make([]byte, fixed)}
}

func (r *rowBuf) u8(off int, v uint8)   { r.b[off] = v }
func (r *rowBuf) u16(off int, v uint16) { binary.LittleEndian.PutUint16(r.b[off:], v) }
func (r *rowBuf) u32(off int, v uint32) { binary.LittleEndian.PutUint32(r.b[off:], v) }

// appendString appends an encoded string and returns its row-relative offset.
func (r *rowBuf) appendString(s string) int {
	off := len(r.b)
	r.b = append(r.b, String(s)...)
	return off
}

// IDNameRow encodes the id-then-name layout shared by genres, labels,
// artwork, and history playlists.
func IDNameRow(id uint32, name string) []byte {
	r := newRow(4)
	r.u32(0, id)
	r.appendString(name)
	return r.b
}

// KeyRow encodes a musical key row.
func KeyRow(id uint32, name string) []byte {
	r := newRow(8)
	r.u32(0, id)
	r.u32(4, id)
	r.appendString(name)
	return r.b
}

// ColorRow encodes a color row.
func ColorRow(id uint16, name string) []byte {
	r := newRow(8)
	r.u16(5, id)
	r.appendString(name)
	return r.b
}

// ArtistRow encodes an artist row. far selects the 0x64 subtype with a
// u16 name offset.
func ArtistRow(id uint32, name string, far bool) []byte {
	if far {
		r := newRow(0x0C)
		r.u16(0, 0x64)
		r.u32(4, id)
		r.u8(8, 3)
		r.u16(0x0A, uint16(r.appendString(name)))
		return r.b
	}
	r := newRow(0x0A)
	r.u16(0, 0x60)
	r.u32(4, id)
	r.u8(8, 3)
	r.u8(9, uint8(r.appendString(name)))
	return r.b
}

// AlbumRow encodes an album row. far selects the 0x84 subtype.
func AlbumRow(id, artistID uint32, name string, far bool) []byte {
	if far {
		r := newRow(0x18)
		r.u16(0, 0x84)
		r.u32(8, artistID)
		r.u32(0x0C, id)
		r.u8(0x14, 3)
		r.u16(0x16, uint16(r.appendString(name)))
		return r.b
	}
	r := newRow(0x16)
	r.u16(0, 0x80)
	r.u32(8, artistID)
	r.u32(0x0C, id)
	r.u8(0x14, 3)
	r.u8(0x15, uint8(r.appendString(name)))
	return r.b
}

// PlaylistTreeRow encodes a playlist or folder node.
func PlaylistTreeRow(id, parentID, sortOrder uint32, name string, folder bool) []byte {
	r := newRow(0x14)
	r.u32(0, parentID)
	r.u32(8, sortOrder)
	r.u32(0x0C, id)
	if folder {
		r.u32(0x10, 1)
	}
	r.appendString(name)
	return r.b
}

// PlaylistEntryRow encodes a playlist membership row.
func PlaylistEntryRow(entryIndex, trackID, playlistID uint32) []byte {
	r := newRow(12)
	r.u32(0, entryIndex)
	r.u32(4, trackID)
	r.u32(8, playlistID)
	return r.b
}

// HistoryEntryRow encodes a history membership row.
func HistoryEntryRow(trackID, playlistID, entryIndex uint32) []byte {
	r := newRow(12)
	r.u32(0, trackID)
	r.u32(4, playlistID)
	r.u32(8, entryIndex)
	return r.b
}

// ColumnRow encodes a browse column row with its name wrapped in the
// U+FFFA/U+FFFB markers.
func ColumnRow(id, number uint16, name string) []byte {
	r := newRow(4)
	r.u16(0, id)
	r.u16(2, number)
	r.b = append(r.b, UTF16String("\uFFFA"+name+"\uFFFB")...)
	return r.b
}

// TrackSpec holds the track fields the encoder writes.
type TrackSpec struct {
	ID          uint32
	Title       string
	ArtistID    uint32
	AlbumID     uint32
	GenreID     uint32
	KeyID       uint32
	LabelID     uint32
	ColorID     uint8
	ArtworkID   uint32
	RemixerID   uint32
	Tempo       uint32
	Duration    uint16
	Bitrate     uint32
	SampleRate  uint32
	SampleDepth uint16
	FileSize    uint32
	TrackNumber uint32
	DiscNumber  uint16
	PlayCount   uint16
	Year        uint16
	Rating      uint8
	Filename    string
	FilePath    string
	AnalyzePath string
	Comment     string
	DateAdded   string
	ISRC        string
	MixName     string
}

const (
	trackFixed = 0x5E
	trackSlots = 21
)

// TrackRow encodes a track row: the fixed numeric fields, the 21 string
// offsets, then the strings themselves.
func TrackRow(t TrackSpec) []byte {
	r := newRow(trackFixed + 2*trackSlots)
	r.u16(0x00, 0x24)
	r.u32(0x08, t.SampleRate)
	r.u32(0x10, t.FileSize)
	r.u32(0x1C, t.ArtworkID)
	r.u32(0x20, t.KeyID)
	r.u32(0x28, t.LabelID)
	r.u32(0x2C, t.RemixerID)
	r.u32(0x30, t.Bitrate)
	r.u32(0x34, t.TrackNumber)
	r.u32(0x38, t.Tempo)
	r.u32(0x3C, t.GenreID)
	r.u32(0x40, t.AlbumID)
	r.u32(0x44, t.ArtistID)
	r.u32(0x48, t.ID)
	r.u16(0x4C, t.DiscNumber)
	r.u16(0x4E, t.PlayCount)
	r.u16(0x50, t.Year)
	r.u16(0x52, t.SampleDepth)
	r.u16(0x54, t.Duration)
	r.u8(0x58, t.ColorID)
	r.u8(0x59, t.Rating)

	slots := [trackSlots]string{
		0:  t.ISRC,
		10: t.DateAdded,
		12: t.MixName,
		14: t.AnalyzePath,
		16: t.Comment,
		17: t.Title,
		19: t.Filename,
		20: t.FilePath,
	}
	for i, s := range slots {
		r.u16(trackFixed+2*i, uint16(r.appendString(s)))
	}
	return r.b
}
