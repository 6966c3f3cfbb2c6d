package resolve

import "github.com/eunmann/rbx-export/pkg/pdb"

// Track is a decoded track with its foreign keys resolved to names.
// Unknown references resolve to "".
type Track struct {
	pdb.Track

	Artist         string `json:"artist"`
	Album          string `json:"album"`
	AlbumArtist    string `json:"album_artist,omitempty"`
	Genre          string `json:"genre"`
	Key            string `json:"key"`
	Label          string `json:"label"`
	Color          string `json:"color"`
	Composer       string `json:"composer,omitempty"`
	OriginalArtist string `json:"original_artist,omitempty"`
	Remixer        string `json:"remixer,omitempty"`
	ArtworkPath    string `json:"artwork_path,omitempty"`
}

// Denormalize attaches names to t.
func (r *Resolver) Denormalize(t pdb.Track) Track {
	out := Track{
		Track:          t,
		Artist:         r.Resolve(Artist, t.ArtistID),
		Album:          r.Resolve(Album, t.AlbumID),
		Genre:          r.Resolve(Genre, t.GenreID),
		Key:            r.Resolve(Key, t.KeyID),
		Label:          r.Resolve(Label, t.LabelID),
		Color:          r.Resolve(Color, t.ColorID),
		Composer:       r.Resolve(Artist, t.ComposerID),
		OriginalArtist: r.Resolve(Artist, t.OriginalArtistID),
		Remixer:        r.Resolve(Artist, t.RemixerID),
		ArtworkPath:    r.Resolve(Artwork, t.ArtworkID),
	}
	if id, ok := r.AlbumArtistID(t.AlbumID); ok && id != t.ArtistID {
		out.AlbumArtist = r.Resolve(Artist, id)
	}
	return out
}

// DenormalizeAll resolves tracks in order.
func (r *Resolver) DenormalizeAll(tracks []pdb.Track) []Track {
	out := make([]Track, len(tracks))
	for i, t := range tracks {
		out[i] = r.Denormalize(t)
	}
	return out
}
