// Package resolve turns the foreign keys of decoded tracks into names.
package resolve

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/eunmann/rbx-export/pkg/pdb"
)

// Kind selects one of the lookup tables.
type Kind uint8

const (
	Genre Kind = iota
	Artist
	Album
	Key
	Color
	Label
	Artwork
)

func (k Kind) String() string {
	switch k {
	case Genre:
		return "genre"
	case Artist:
		return "artist"
	case Album:
		return "album"
	case Key:
		return "key"
	case Color:
		return "color"
	case Label:
		return "label"
	case Artwork:
		return "artwork"
	default:
		return fmt.Sprintf("kind_%d", uint8(k))
	}
}

// Resolver holds id→name maps for every dimension table.
//
// Thread Safety: immutable after Build; safe for concurrent use.
type Resolver struct {
	names       map[Kind]map[uint32]string
	albumArtist map[uint32]uint32
	diagnostics []pdb.Diagnostics
}

// Build decodes every dimension table of store. Missing tables yield empty
// maps. When an id appears twice the first row wins.
func Build(store *pdb.Store, log zerolog.Logger) *Resolver {
	r := &Resolver{
		names:       make(map[Kind]map[uint32]string),
		albumArtist: make(map[uint32]uint32),
	}

	load(r, store, Genre, pdb.GenreSchema, func(g pdb.Genre) (uint32, string) { return g.ID, g.Name })
	load(r, store, Artist, pdb.ArtistSchema, func(a pdb.Artist) (uint32, string) { return a.ID, a.Name })
	load(r, store, Album, pdb.AlbumSchema, func(a pdb.Album) (uint32, string) {
		if _, ok := r.albumArtist[a.ID]; !ok {
			r.albumArtist[a.ID] = a.ArtistID
		}
		return a.ID, a.Name
	})
	load(r, store, Key, pdb.KeySchema, func(k pdb.Key) (uint32, string) { return k.ID, k.Name })
	load(r, store, Color, pdb.ColorSchema, func(c pdb.Color) (uint32, string) { return c.ID, c.Name })
	load(r, store, Label, pdb.LabelSchema, func(l pdb.Label) (uint32, string) { return l.ID, l.Name })
	load(r, store, Artwork, pdb.ArtworkSchema, func(a pdb.Artwork) (uint32, string) { return a.ID, a.Path })

	for _, d := range r.diagnostics {
		log.Debug().
			Stringer("table", d.Table).
			Int("rows", d.RowsDecoded).
			Int("rejected", d.RowsRejected()).
			Str("stop", string(d.Stop)).
			Msg("lookup table loaded")
	}
	return r
}

func load[T any](r *Resolver, s *pdb.Store, kind Kind, schema pdb.Schema[T], entry func(T) (uint32, string)) {
	res := pdb.DecodeTable(s, schema)
	m := make(map[uint32]string, len(res.Records))
	for _, rec := range res.Records {
		id, name := entry(rec)
		if _, dup := m[id]; dup {
			continue
		}
		m[id] = name
	}
	r.names[kind] = m
	r.diagnostics = append(r.diagnostics, res.Diagnostics)
}

// Resolve returns the name for id, or "" when it is unknown.
func (r *Resolver) Resolve(kind Kind, id uint32) string {
	return r.names[kind][id]
}

// Len returns the number of entries loaded for kind.
func (r *Resolver) Len(kind Kind) int {
	return len(r.names[kind])
}

// AlbumArtistID returns the artist recorded on the album row.
func (r *Resolver) AlbumArtistID(albumID uint32) (uint32, bool) {
	id, ok := r.albumArtist[albumID]
	return id, ok
}

// Diagnostics returns the traversal summaries of the lookup tables.
func (r *Resolver) Diagnostics() []pdb.Diagnostics {
	out := make([]pdb.Diagnostics, len(r.diagnostics))
	copy(out, r.diagnostics)
	return out
}
