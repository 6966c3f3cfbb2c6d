package pdb

// Artist is a row of the artists table.
type Artist struct {
	Subtype uint16 `json:"subtype"`
	ID      uint32 `json:"id"`
	Name    string `json:"name"`
}

// Album is a row of the albums table.
type Album struct {
	Subtype  uint16 `json:"subtype"`
	ID       uint32 `json:"id"`
	ArtistID uint32 `json:"artist_id"`
	Name     string `json:"name"`
}

// Genre is a row of the genres table.
type Genre struct {
	ID   uint32 `json:"id"`
	Name string `json:"name"`
}

// Label is a row of the labels table.
type Label struct {
	ID   uint32 `json:"id"`
	Name string `json:"name"`
}

// Key is a row of the musical keys table.
type Key struct {
	ID   uint32 `json:"id"`
	ID2  uint32 `json:"id2"`
	Name string `json:"name"`
}

// Color is a row of the track color labels table.
type Color struct {
	ID   uint32 `json:"id"`
	Name string `json:"name"`
}

// Artwork is a row of the artwork table.
type Artwork struct {
	ID   uint32 `json:"id"`
	Path string `json:"path"`
}

const (
	artistSubtypeNear = 0x60
	artistSubtypeFar  = 0x64
	albumSubtypeNear  = 0x80
	albumSubtypeFar   = 0x84
)

// ArtistSchema decodes artist rows. Subtype 0x64 rows locate the name
// through a u16 offset instead of the u8 near offset.
var ArtistSchema = Schema[Artist]{
	Table:      TableArtists,
	MinRowSize: 0x0A,
	Decode: func(page []byte, row, heapStart int) (Artist, error) {
		return decodeWith(TableArtists, page, row, heapStart, func(c *rowCursor) Artist {
			c.sanity(false)
			a := Artist{Subtype: c.u16(0x00), ID: c.u32(0x04)}
			c.id("id", a.ID)
			switch a.Subtype {
			case artistSubtypeNear:
				a.Name = c.str(int(c.u8(0x09)))
			case artistSubtypeFar:
				a.Name = c.str(int(c.u16(0x0A)))
			default:
				c.fail(rowErr(UnknownSubtype, TableArtists, row, "subtype 0x%x", a.Subtype))
			}
			return a
		})
	},
}

// AlbumSchema decodes album rows, with the same near/far name split as
// artists.
var AlbumSchema = Schema[Album]{
	Table:      TableAlbums,
	MinRowSize: 0x16,
	Decode: func(page []byte, row, heapStart int) (Album, error) {
		return decodeWith(TableAlbums, page, row, heapStart, func(c *rowCursor) Album {
			c.sanity(false)
			a := Album{Subtype: c.u16(0x00), ArtistID: c.u32(0x08), ID: c.u32(0x0C)}
			c.id("id", a.ID)
			switch a.Subtype {
			case albumSubtypeNear:
				a.Name = c.str(int(c.u8(0x15)))
			case albumSubtypeFar:
				a.Name = c.str(int(c.u16(0x16)))
			default:
				c.fail(rowErr(UnknownSubtype, TableAlbums, row, "subtype 0x%x", a.Subtype))
			}
			return a
		})
	},
}

// GenreSchema decodes genre rows: id then name.
var GenreSchema = Schema[Genre]{
	Table:      TableGenres,
	MinRowSize: 5,
	Decode: func(page []byte, row, heapStart int) (Genre, error) {
		return decodeWith(TableGenres, page, row, heapStart, func(c *rowCursor) Genre {
			c.sanity(false)
			g := Genre{ID: c.u32(0)}
			c.id("id", g.ID)
			g.Name = c.str(4)
			return g
		})
	},
}

// LabelSchema decodes label rows: id then name.
var LabelSchema = Schema[Label]{
	Table:      TableLabels,
	MinRowSize: 5,
	Decode: func(page []byte, row, heapStart int) (Label, error) {
		return decodeWith(TableLabels, page, row, heapStart, func(c *rowCursor) Label {
			c.sanity(false)
			l := Label{ID: c.u32(0)}
			c.id("id", l.ID)
			l.Name = c.str(4)
			return l
		})
	},
}

// KeySchema decodes key rows: id, a second copy of the id, then name.
var KeySchema = Schema[Key]{
	Table:      TableKeys,
	MinRowSize: 9,
	Decode: func(page []byte, row, heapStart int) (Key, error) {
		return decodeWith(TableKeys, page, row, heapStart, func(c *rowCursor) Key {
			c.sanity(false)
			k := Key{ID: c.u32(0), ID2: c.u32(4)}
			c.id("id", k.ID)
			k.Name = c.str(8)
			return k
		})
	},
}

// ColorSchema decodes color rows. The first five bytes are padding, so the
// leading word may be zero.
var ColorSchema = Schema[Color]{
	Table:      TableColors,
	MinRowSize: 9,
	Decode: func(page []byte, row, heapStart int) (Color, error) {
		return decodeWith(TableColors, page, row, heapStart, func(c *rowCursor) Color {
			c.sanity(true)
			col := Color{ID: uint32(c.u16(5))}
			c.id("id", col.ID)
			col.Name = c.str(8)
			return col
		})
	},
}

// ArtworkSchema decodes artwork rows: id then image path.
var ArtworkSchema = Schema[Artwork]{
	Table:      TableArtwork,
	MinRowSize: 5,
	Decode: func(page []byte, row, heapStart int) (Artwork, error) {
		return decodeWith(TableArtwork, page, row, heapStart, func(c *rowCursor) Artwork {
			c.sanity(false)
			a := Artwork{ID: c.u32(0)}
			c.id("id", a.ID)
			a.Path = c.str(4)
			return a
		})
	},
}
