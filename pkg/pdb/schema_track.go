package pdb

import (
	"math"
	"path"
	"strings"
)

const (
	trackFixedSize   = 0x5E
	trackStringSlots = 21
	trackMinRowSize  = trackFixedSize + 2*trackStringSlots
)

// String slot indices within the track row's string offset table.
const (
	slotISRC        = 0
	slotTexter      = 1
	slotMessage     = 5
	slotKuvoPublic  = 6
	slotAutoload    = 7
	slotDateAdded   = 10
	slotReleaseDate = 11
	slotMixName     = 12
	slotAnalyzePath = 14
	slotAnalyzeDate = 15
	slotComment     = 16
	slotTitle       = 17
	slotFilename    = 19
	slotFilePath    = 20
)

// Track is a row of the tracks table.
type Track struct {
	ID               uint32 `json:"id"`
	Title            string `json:"title"`
	ArtistID         uint32 `json:"artist_id"`
	AlbumID          uint32 `json:"album_id"`
	GenreID          uint32 `json:"genre_id"`
	KeyID            uint32 `json:"key_id"`
	LabelID          uint32 `json:"label_id"`
	ColorID          uint32 `json:"color_id"`
	ArtworkID        uint32 `json:"artwork_id"`
	ComposerID       uint32 `json:"composer_id"`
	OriginalArtistID uint32 `json:"original_artist_id"`
	RemixerID        uint32 `json:"remixer_id"`

	// Tempo is BPM times 100; BPM is Tempo/100 rounded.
	Tempo       uint32 `json:"tempo"`
	BPM         int    `json:"bpm"`
	Duration    uint32 `json:"duration"`
	Bitrate     uint32 `json:"bitrate"`
	SampleRate  uint32 `json:"sample_rate"`
	SampleDepth uint32 `json:"sample_depth"`
	FileSize    uint32 `json:"file_size"`
	TrackNumber uint32 `json:"track_number"`
	DiscNumber  uint32 `json:"disc_number"`
	PlayCount   uint32 `json:"play_count"`
	Year        uint32 `json:"year"`
	Rating      uint32 `json:"rating"`
	Bitmask     uint32 `json:"bitmask"`
	Subtype     uint32 `json:"subtype"`

	ISRC        string `json:"isrc,omitempty"`
	Texter      string `json:"texter,omitempty"`
	Message     string `json:"message,omitempty"`
	KuvoPublic  string `json:"kuvo_public,omitempty"`
	Autoload    string `json:"autoload_hotcues,omitempty"`
	DateAdded   string `json:"date_added,omitempty"`
	ReleaseDate string `json:"release_date,omitempty"`
	MixName     string `json:"mix_name,omitempty"`
	AnalyzePath string `json:"analyze_path,omitempty"`
	AnalyzeDate string `json:"analyze_date,omitempty"`
	Comment     string `json:"comment,omitempty"`
	Filename    string `json:"filename,omitempty"`
	FilePath    string `json:"file_path,omitempty"`
}

// TrackSchema decodes track rows: 0x5E bytes of numeric fields followed
// by 21 u16 string offsets relative to the row start.
var TrackSchema = Schema[Track]{
	Table:      TableTracks,
	MinRowSize: trackMinRowSize,
	Decode:     decodeTrack,
}

func decodeTrack(page []byte, row, heapStart int) (Track, error) {
	return decodeWith(TableTracks, page, row, heapStart, func(c *rowCursor) Track {
		c.sanity(false)
		t := Track{
			Subtype:          uint32(c.u16(0x00)),
			Bitmask:          c.u32(0x04),
			SampleRate:       c.u32(0x08),
			ComposerID:       c.u32(0x0C),
			FileSize:         c.u32(0x10),
			ArtworkID:        c.u32(0x1C),
			KeyID:            c.u32(0x20),
			OriginalArtistID: c.u32(0x24),
			LabelID:          c.u32(0x28),
			RemixerID:        c.u32(0x2C),
			Bitrate:          c.u32(0x30),
			TrackNumber:      c.u32(0x34),
			Tempo:            c.u32(0x38),
			GenreID:          c.u32(0x3C),
			AlbumID:          c.u32(0x40),
			ArtistID:         c.u32(0x44),
			ID:               c.u32(0x48),
			DiscNumber:       uint32(c.u16(0x4C)),
			PlayCount:        uint32(c.u16(0x4E)),
			Year:             uint32(c.u16(0x50)),
			SampleDepth:      uint32(c.u16(0x52)),
			Duration:         uint32(c.u16(0x54)),
			ColorID:          uint32(c.u8(0x58)),
			Rating:           uint32(c.u8(0x59)),
		}
		c.id("id", t.ID)

		var slots [trackStringSlots]string
		for i := range slots {
			ofs := int(c.u16(trackFixedSize + 2*i))
			if ofs != 0 {
				slots[i] = c.str(ofs)
			}
		}

		t.BPM = TempoToBPM(t.Tempo)
		t.ISRC = slots[slotISRC]
		t.Texter = slots[slotTexter]
		t.Message = slots[slotMessage]
		t.KuvoPublic = slots[slotKuvoPublic]
		t.Autoload = slots[slotAutoload]
		t.DateAdded = slots[slotDateAdded]
		t.ReleaseDate = slots[slotReleaseDate]
		t.MixName = slots[slotMixName]
		t.AnalyzePath = slots[slotAnalyzePath]
		t.AnalyzeDate = slots[slotAnalyzeDate]
		t.Comment = slots[slotComment]
		t.Filename = slots[slotFilename]
		t.FilePath = slots[slotFilePath]
		t.Title = trackTitle(slots[slotTitle], t.Filename, t.FilePath)
		return t
	})
}

// TempoToBPM converts the stored tempo (BPM x 100) to whole beats per minute.
func TempoToBPM(tempo uint32) int {
	return int(math.Round(float64(tempo) / 100))
}

// trackTitle falls back to the filename without its extension, then to
// the base name of the file path.
func trackTitle(title, filename, filePath string) string {
	if title != "" {
		return title
	}
	if filename != "" {
		if stem := strings.TrimSuffix(filename, path.Ext(filename)); stem != "" {
			return stem
		}
	}
	if filePath != "" {
		return path.Base(filePath)
	}
	return ""
}
