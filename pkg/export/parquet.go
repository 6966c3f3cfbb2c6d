package export

import (
	"fmt"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/eunmann/rbx-export/pkg/library"
)

// TrackRow is the flat Parquet row for one track.
type TrackRow struct {
	ID          uint32   `parquet:"id"`
	Title       string   `parquet:"title"`
	Artist      string   `parquet:"artist,dict"`
	Album       string   `parquet:"album,dict"`
	AlbumArtist string   `parquet:"album_artist,dict"`
	Genre       string   `parquet:"genre,dict"`
	Key         string   `parquet:"key,dict"`
	Label       string   `parquet:"label,dict"`
	Color       string   `parquet:"color,dict"`
	Remixer     string   `parquet:"remixer,dict"`
	BPM         int32    `parquet:"bpm"`
	Tempo       uint32   `parquet:"tempo"`
	Duration    uint32   `parquet:"duration"`
	Bitrate     uint32   `parquet:"bitrate"`
	SampleRate  uint32   `parquet:"sample_rate"`
	FileSize    uint32   `parquet:"file_size"`
	Year        uint32   `parquet:"year"`
	Rating      uint32   `parquet:"rating"`
	PlayCount   uint32   `parquet:"play_count"`
	DateAdded   string   `parquet:"date_added"`
	Comment     string   `parquet:"comment"`
	FilePath    string   `parquet:"file_path"`
	AnalyzePath string   `parquet:"analyze_path"`
	ArtworkPath string   `parquet:"artwork_path"`
	Beats       int32    `parquet:"beats"`
	CuePoints   int32    `parquet:"cue_points"`
	HotCues     int32    `parquet:"hot_cues"`
	Loops       int32    `parquet:"loops"`
	Waveform    string   `parquet:"waveform,optional"`
	PlaylistIDs []uint32 `parquet:"playlist_ids,list"`
}

// trackRows flattens the snapshot's tracks in track order.
func trackRows(snap *library.Snapshot) []TrackRow {
	memberOf := make(map[uint32][]uint32)
	for _, p := range snap.Playlists {
		seen := make(map[uint32]bool, len(p.TrackIDs))
		for _, id := range p.TrackIDs {
			if !seen[id] {
				seen[id] = true
				memberOf[id] = append(memberOf[id], p.ID)
			}
		}
	}

	rows := make([]TrackRow, len(snap.Tracks))
	for i, t := range snap.Tracks {
		r := TrackRow{
			ID:          t.ID,
			Title:       t.Title,
			Artist:      t.Artist,
			Album:       t.Album,
			AlbumArtist: t.AlbumArtist,
			Genre:       t.Genre,
			Key:         t.Key,
			Label:       t.Label,
			Color:       t.Color,
			Remixer:     t.Remixer,
			BPM:         int32(t.BPM),
			Tempo:       t.Tempo,
			Duration:    t.Duration,
			Bitrate:     t.Bitrate,
			SampleRate:  t.SampleRate,
			FileSize:    t.FileSize,
			Year:        t.Year,
			Rating:      t.Rating,
			PlayCount:   t.PlayCount,
			DateAdded:   t.DateAdded,
			Comment:     t.Comment,
			FilePath:    t.FilePath,
			AnalyzePath: t.AnalyzePath,
			ArtworkPath: t.ArtworkPath,
			PlaylistIDs: memberOf[t.ID],
		}
		if a := t.Anlz; a != nil {
			r.Beats = int32(len(a.BeatGrid))
			r.CuePoints = int32(len(a.CuePoints))
			for _, c := range a.CuePoints {
				if c.HotCue != nil {
					r.HotCues++
				}
				if c.LoopTimeMs != nil {
					r.Loops++
				}
			}
			if a.Waveform != nil {
				r.Waveform = string(a.Waveform.Kind)
			}
		}
		rows[i] = r
	}
	return rows
}

// WriteParquet writes one row per track to path.
func WriteParquet(path string, snap *library.Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create parquet file: %w", err)
	}

	w := parquet.NewGenericWriter[TrackRow](f)
	if _, err := w.Write(trackRows(snap)); err != nil {
		f.Close()
		return fmt.Errorf("write parquet rows: %w", err)
	}
	if err := w.Close(); err != nil {
		f.Close()
		return fmt.Errorf("close parquet writer: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close parquet file: %w", err)
	}
	return nil
}
