package benchutil

import (
	"encoding/binary"
	"unicode/utf16"
)

// AnlzHeaderLen is the PMAI file header length Rekordbox writes.
const AnlzHeaderLen = 28

// AnlzFile wraps sections in a PMAI file header.
func AnlzFile(sections ...[]byte) []byte {
	total := AnlzHeaderLen
	for _, s := range sections {
		total += len(s)
	}
	out := make([]byte, AnlzHeaderLen, total)
	copy(out, "PMAI")
	binary.BigEndian.PutUint32(out[4:], AnlzHeaderLen)
	binary.BigEndian.PutUint32(out[8:], uint32(total))
	for _, s := range sections {
		out = append(out, s...)
	}
	return out
}

// Section builds a tagged section: the 12-byte common header, extra header
// bytes, then the body.
func Section(tag string, header, body []byte) []byte {
	lenHeader := 12 + len(header)
	out := make([]byte, 12, lenHeader+len(body))
	copy(out, tag)
	binary.BigEndian.PutUint32(out[4:], uint32(lenHeader))
	binary.BigEndian.PutUint32(out[8:], uint32(lenHeader+len(body)))
	out = append(out, header...)
	return append(out, body...)
}

// BeatSpec is one beat grid entry.
type BeatSpec struct {
	Number uint16
	Tempo  uint16
	TimeMs uint32
}

// PQTZSection encodes a beat grid.
func PQTZSection(beats []BeatSpec) []byte {
	header := make([]byte, 12)
	binary.BigEndian.PutUint32(header[4:], 0x80000)
	binary.BigEndian.PutUint32(header[8:], uint32(len(beats)))
	body := make([]byte, 8*len(beats))
	for i, b := range beats {
		binary.BigEndian.PutUint16(body[8*i:], b.Number)
		binary.BigEndian.PutUint16(body[8*i+2:], b.Tempo)
		binary.BigEndian.PutUint32(body[8*i+4:], b.TimeMs)
	}
	return Section("PQTZ", header, body)
}

// PWAVSection encodes a mono preview waveform. Each byte carries height in
// the low five bits and whiteness in the high three.
func PWAVSection(samples []byte) []byte {
	header := make([]byte, 8)
	binary.BigEndian.PutUint32(header[0:], uint32(len(samples)))
	binary.BigEndian.PutUint32(header[4:], 0x10000)
	return Section("PWAV", header, samples)
}

// PWV3Section encodes a mono detail waveform.
func PWV3Section(samples []byte) []byte {
	header := make([]byte, 12)
	binary.BigEndian.PutUint32(header[0:], 1)
	binary.BigEndian.PutUint32(header[4:], uint32(len(samples)))
	binary.BigEndian.PutUint32(header[8:], 0x960000)
	return Section("PWV3", header, samples)
}

// PWV5Section encodes a color waveform of 6-byte samples.
func PWV5Section(samples [][6]byte) []byte {
	header := make([]byte, 12)
	binary.BigEndian.PutUint32(header[0:], 6)
	binary.BigEndian.PutUint32(header[4:], uint32(len(samples)))
	binary.BigEndian.PutUint32(header[8:], 0x960305)
	body := make([]byte, 0, 6*len(samples))
	for _, s := range samples {
		body = append(body, s[:]...)
	}
	return Section("PWV5", header, body)
}

// CueSpec is one cue or loop.
type CueSpec struct {
	HotCue     uint32
	Type       uint8
	TimeMs     uint32
	LoopTimeMs uint32
	ColorID    uint8
	Comment    string
}

// PCOBSection encodes a legacy cue list of 56-byte PCPT entries.
func PCOBSection(listType uint32, cues []CueSpec) []byte {
	header := make([]byte, 12)
	binary.BigEndian.PutUint32(header[0:], listType)
	binary.BigEndian.PutUint16(header[6:], uint16(len(cues)))
	binary.BigEndian.PutUint32(header[8:], 0xFFFFFFFF)

	body := make([]byte, 0, 56*len(cues))
	for _, c := range cues {
		e := make([]byte, 56)
		copy(e, "PCPT")
		binary.BigEndian.PutUint32(e[4:], 0x1C)
		binary.BigEndian.PutUint32(e[8:], 56)
		binary.BigEndian.PutUint32(e[12:], c.HotCue)
		binary.BigEndian.PutUint32(e[20:], 0x10000)
		binary.BigEndian.PutUint16(e[24:], 0xFFFF)
		binary.BigEndian.PutUint16(e[26:], 0xFFFF)
		e[28] = c.Type
		binary.BigEndian.PutUint16(e[30:], 0x3E8)
		binary.BigEndian.PutUint32(e[32:], c.TimeMs)
		binary.BigEndian.PutUint32(e[36:], c.LoopTimeMs)
		body = append(body, e...)
	}
	return Section("PCOB", header, body)
}

// PCO2Section encodes an extended cue list of variable-length PCP2 entries
// with UTF-16BE comments.
func PCO2Section(listType uint32, cues []CueSpec) []byte {
	header := make([]byte, 8)
	binary.BigEndian.PutUint32(header[0:], listType)
	binary.BigEndian.PutUint16(header[4:], uint16(len(cues)))

	var body []byte
	for _, c := range cues {
		comment := utf16BE(c.Comment)
		e := make([]byte, 44, 44+len(comment)+4)
		copy(e, "PCP2")
		binary.BigEndian.PutUint32(e[4:], 0x10)
		binary.BigEndian.PutUint32(e[12:], c.HotCue)
		e[16] = c.Type
		binary.BigEndian.PutUint32(e[20:], c.TimeMs)
		binary.BigEndian.PutUint32(e[24:], c.LoopTimeMs)
		e[28] = c.ColorID
		binary.BigEndian.PutUint32(e[40:], uint32(len(comment)))
		e = append(e, comment...)
		e = append(e, 0, 0, 0, 0)
		binary.BigEndian.PutUint32(e[8:], uint32(len(e)))
		body = append(body, e...)
	}
	return Section("PCO2", header, body)
}

// utf16BE encodes s as NUL-terminated UTF-16BE, or nothing when s is empty.
func utf16BE(s string) []byte {
	if s == "" {
		return nil
	}
	units := utf16.Encode([]rune(s))
	out := make([]byte, 2*len(units)+2)
	for i, u := range units {
		binary.BigEndian.PutUint16(out[2*i:], u)
	}
	return out
}
