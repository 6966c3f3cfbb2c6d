package pdb

import (
	"encoding/binary"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

const (
	longASCIIFlag = 0x40
	utf16Flag     = 0x90
	longHeaderLen = 3
)

// DecodeString decodes a heap string starting at buf[off] and returns the
// text plus the offset just past it.
//
// Three encodings exist, keyed by the leading flags byte:
//   - short: low bit set, total length flags>>1 including the flags byte
//   - 0x40: u16 byte length, then that many single-byte characters
//   - 0x90: u16 character count, then count UTF-16LE code units
//
// Any other flags value, or a length that would run past the buffer,
// yields ("", off+1) so callers can keep going.
func DecodeString(buf []byte, off int) (string, int) {
	fail := off + 1
	if off < 0 || off >= len(buf) {
		return "", fail
	}

	flags := buf[off]
	switch {
	case flags&1 == 1:
		n := int(flags >> 1)
		end := off + n
		if n == 0 || end > len(buf) {
			return "", fail
		}
		return decodeSingleByte(buf[off+1 : end]), end

	case flags == longASCIIFlag:
		if off+longHeaderLen > len(buf) {
			return "", fail
		}
		n := int(binary.LittleEndian.Uint16(buf[off+1:]))
		start := off + longHeaderLen
		end := start + n
		if end > len(buf) {
			return "", fail
		}
		return strings.TrimRight(decodeSingleByte(buf[start:end]), "\x00"), end

	case flags == utf16Flag:
		if off+longHeaderLen > len(buf) {
			return "", fail
		}
		count := int(binary.LittleEndian.Uint16(buf[off+1:]))
		start := off + longHeaderLen
		end := start + count*2
		if end > len(buf) {
			return "", fail
		}
		text, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder().Bytes(buf[start:end])
		if err != nil {
			return "", fail
		}
		return strings.TrimRight(string(text), "\x00"), end
	}

	return "", fail
}

// decodeSingleByte keeps valid UTF-8 as-is and reads anything else as
// ISO-8859-1 so the result is always valid UTF-8.
func decodeSingleByte(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	text, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return strings.ToValidUTF8(string(b), "\uFFFD")
	}
	return string(text)
}
