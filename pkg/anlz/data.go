package anlz

import (
	"cmp"
	"encoding/binary"
	"slices"

	"golang.org/x/text/encoding/unicode"
)

// Beat is one beat grid entry. Tempo is BPM times 100.
type Beat struct {
	Number uint16 `json:"beat_number"`
	Tempo  uint16 `json:"tempo"`
	TimeMs uint32 `json:"time_ms"`
}

// WaveformSample is one waveform column. Mono samples only set Height and
// Whiteness.
type WaveformSample struct {
	Height    uint8 `json:"height"`
	Whiteness uint8 `json:"whiteness,omitempty"`
	R         uint8 `json:"r,omitempty"`
	G         uint8 `json:"g,omitempty"`
	B         uint8 `json:"b,omitempty"`
}

// WaveformKind names the section a waveform came from.
type WaveformKind string

const (
	WaveformMono  WaveformKind = "mono"
	WaveformColor WaveformKind = "color"
)

// Waveform is a decoded preview or color waveform.
type Waveform struct {
	Kind    WaveformKind     `json:"kind"`
	Samples []WaveformSample `json:"samples"`
}

// CueKind distinguishes single cues from loops.
type CueKind string

const (
	CueKindCue  CueKind = "cue"
	CueKindLoop CueKind = "loop"
)

// CuePoint is a memory cue, hot cue, or loop. HotCue is nil for memory
// cues; LoopTimeMs is set only for loops.
type CuePoint struct {
	HotCue     *int    `json:"hot_cue"`
	Kind       CueKind `json:"kind"`
	TimeMs     uint32  `json:"time_ms"`
	LoopTimeMs *uint32 `json:"loop_time_ms,omitempty"`
	ColorID    *uint8  `json:"color_id,omitempty"`
	Comment    string  `json:"comment,omitempty"`
}

// Data is everything decoded from a track's sidecars.
type Data struct {
	BeatGrid          []Beat     `json:"beat_grid"`
	Waveform          *Waveform  `json:"waveform"`
	CuePoints         []CuePoint `json:"cue_points"`
	HasDetailWaveform bool       `json:"has_detail_waveform"`
	Sections          []string   `json:"sections,omitempty"`
}

// Empty returns the result for a track without usable analysis.
func Empty() *Data {
	return &Data{BeatGrid: []Beat{}, CuePoints: []CuePoint{}}
}

// IsEmpty reports whether no analysis was found.
func (d *Data) IsEmpty() bool {
	return len(d.BeatGrid) == 0 && d.Waveform == nil && len(d.CuePoints) == 0 && !d.HasDetailWaveform
}

// ParseBytes decodes a single sidecar held in memory. Anything that is not
// a PMAI file decodes to Empty.
func ParseBytes(buf []byte) *Data {
	f, err := ParseFile(buf)
	if err != nil {
		return Empty()
	}
	return Decode(f)
}

// Decode merges the sections of files, which are normally the .DAT, .EXT
// and .2EX sidecars of one track. Nil files are skipped. The color
// waveform wins over the mono preview and extended cue lists win over
// legacy ones, whichever file they come from.
func Decode(files ...*File) *Data {
	d := Empty()
	var (
		beatGrid, preview, color []Section
		cues, cuesExt            []Section
	)
	for _, f := range files {
		if f == nil {
			continue
		}
		d.Sections = append(d.Sections, f.Tags()...)
		beatGrid = append(beatGrid, f.Find(TagBeatGrid)...)
		preview = append(preview, f.Find(TagPreview)...)
		color = append(color, f.Find(TagDetailColor)...)
		cues = append(cues, f.Find(TagCueList)...)
		cuesExt = append(cuesExt, f.Find(TagCueListExt)...)
		if f.Has(TagDetailMono) {
			d.HasDetailWaveform = true
		}
	}

	if len(beatGrid) > 0 {
		d.BeatGrid = decodeBeatGrid(beatGrid[0])
	}

	switch {
	case len(color) > 0:
		d.Waveform = &Waveform{Kind: WaveformColor, Samples: decodeColorWaveform(color[0])}
	case len(preview) > 0:
		d.Waveform = &Waveform{Kind: WaveformMono, Samples: decodePreview(preview[0])}
	}

	if len(cuesExt) > 0 {
		for _, s := range cuesExt {
			d.CuePoints = append(d.CuePoints, decodeCueListExt(s)...)
		}
	} else {
		for _, s := range cues {
			d.CuePoints = append(d.CuePoints, decodeCueList(s)...)
		}
	}
	slices.SortStableFunc(d.CuePoints, func(a, b CuePoint) int {
		return cmp.Compare(a.TimeMs, b.TimeMs)
	})
	return d
}

const (
	beatGridCountOffset = 20
	beatGridEntries     = 24
	beatSize            = 8
)

func decodeBeatGrid(s Section) []Beat {
	raw := s.Raw
	if len(raw) < beatGridEntries {
		return []Beat{}
	}
	n := int(binary.BigEndian.Uint32(raw[beatGridCountOffset:]))
	n = min(n, (len(raw)-beatGridEntries)/beatSize)
	beats := make([]Beat, n)
	for i := range beats {
		p := beatGridEntries + i*beatSize
		beats[i] = Beat{
			Number: binary.BigEndian.Uint16(raw[p:]),
			Tempo:  binary.BigEndian.Uint16(raw[p+2:]),
			TimeMs: binary.BigEndian.Uint32(raw[p+4:]),
		}
	}
	return beats
}

const (
	previewLenOffset = 12
	previewSamples   = 20
)

func decodePreview(s Section) []WaveformSample {
	raw := s.Raw
	if len(raw) < previewSamples {
		return []WaveformSample{}
	}
	n := int(binary.BigEndian.Uint32(raw[previewLenOffset:]))
	n = min(n, len(raw)-previewSamples)
	out := make([]WaveformSample, n)
	for i := range out {
		b := raw[previewSamples+i]
		out[i] = WaveformSample{Height: b & 0x1F, Whiteness: b >> 5}
	}
	return out
}

const colorSampleSize = 6

// decodeColorWaveform reads 6-byte samples holding two RGB triples. Each
// band is the brighter of the two halves; height is the brightest band.
func decodeColorWaveform(s Section) []WaveformSample {
	body := s.Body()
	out := make([]WaveformSample, len(body)/colorSampleSize)
	for i := range out {
		p := body[i*colorSampleSize : (i+1)*colorSampleSize]
		r := max(p[0], p[3])
		g := max(p[1], p[4])
		b := max(p[2], p[5])
		out[i] = WaveformSample{Height: max(r, g, b), R: r, G: g, B: b}
	}
	return out
}

const (
	cueListCountOffset = 18
	cueEntrySize       = 56
	cueTypeLoop        = 2
)

func decodeCueList(s Section) []CuePoint {
	raw := s.Raw
	if len(raw) < cueListCountOffset+2 {
		return nil
	}
	n := int(binary.BigEndian.Uint16(raw[cueListCountOffset:]))
	body := s.Body()
	n = min(n, len(body)/cueEntrySize)

	out := make([]CuePoint, 0, n)
	for i := range n {
		e := body[i*cueEntrySize : (i+1)*cueEntrySize]
		if string(e[:4]) != "PCPT" {
			continue
		}
		c := CuePoint{
			HotCue: hotCue(binary.BigEndian.Uint32(e[12:])),
			Kind:   CueKindCue,
			TimeMs: binary.BigEndian.Uint32(e[32:]),
		}
		if e[28] == cueTypeLoop {
			c.Kind = CueKindLoop
			loop := binary.BigEndian.Uint32(e[36:])
			c.LoopTimeMs = &loop
		}
		out = append(out, c)
	}
	return out
}

const (
	cueListExtCountOffset = 16
	cueExtMinEntry        = 28
	cueExtCommentLen      = 40
	cueExtComment         = 44
)

var utf16BE = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)

func decodeCueListExt(s Section) []CuePoint {
	raw := s.Raw
	if len(raw) < cueListExtCountOffset+2 {
		return nil
	}
	n := int(binary.BigEndian.Uint16(raw[cueListExtCountOffset:]))
	body := s.Body()

	var out []CuePoint
	for i := 0; i < n && len(body) >= 12; i++ {
		lenEntry := int(binary.BigEndian.Uint32(body[8:]))
		if lenEntry < cueExtMinEntry || lenEntry > len(body) {
			break
		}
		e := body[:lenEntry]
		body = body[lenEntry:]

		c := CuePoint{
			HotCue: hotCue(binary.BigEndian.Uint32(e[12:])),
			Kind:   CueKindCue,
			TimeMs: binary.BigEndian.Uint32(e[20:]),
		}
		if e[16] == cueTypeLoop {
			c.Kind = CueKindLoop
			loop := binary.BigEndian.Uint32(e[24:])
			c.LoopTimeMs = &loop
		}
		if len(e) > 28 {
			color := e[28]
			c.ColorID = &color
		}
		if len(e) >= cueExtComment {
			lenComment := int(binary.BigEndian.Uint32(e[cueExtCommentLen:]))
			if lenComment > 0 && cueExtComment+lenComment <= len(e) {
				c.Comment = decodeComment(e[cueExtComment : cueExtComment+lenComment])
			}
		}
		out = append(out, c)
	}
	return out
}

func decodeComment(b []byte) string {
	text, err := utf16BE.NewDecoder().Bytes(b)
	if err != nil {
		return ""
	}
	for len(text) > 0 && text[len(text)-1] == 0 {
		text = text[:len(text)-1]
	}
	return string(text)
}

func hotCue(v uint32) *int {
	if v == 0 {
		return nil
	}
	n := int(v)
	return &n
}
