// Package anlz decodes Pioneer ANLZ analysis sidecars (.DAT, .EXT, .2EX):
// beat grids, preview and color waveforms, and cue lists.
package anlz

import (
	"encoding/binary"
	"fmt"
)

const (
	magic            = "PMAI"
	fileHeaderMin    = 12
	defaultHeaderLen = 28
	sectionHeaderLen = 12
)

// Section tags.
const (
	TagBeatGrid    = "PQTZ"
	TagPreview     = "PWAV"
	TagDetailMono  = "PWV3"
	TagDetailColor = "PWV5"
	TagCueList     = "PCOB"
	TagCueListExt  = "PCO2"
)

// Section is one tagged chunk. Header and Body are views into the file
// buffer.
type Section struct {
	Tag       string `json:"tag"`
	Offset    int    `json:"offset"`
	LenHeader uint32 `json:"len_header"`
	LenTag    uint32 `json:"len_tag"`

	// Raw is the whole section, including the 12-byte common header.
	Raw []byte `json:"-"`
}

// Body returns the bytes after the section's declared header.
func (s Section) Body() []byte {
	if int(s.LenHeader) > len(s.Raw) {
		return nil
	}
	return s.Raw[s.LenHeader:]
}

// File is a parsed ANLZ container.
type File struct {
	LenHeader uint32    `json:"len_header"`
	LenFile   uint32    `json:"len_file"`
	Sections  []Section `json:"sections"`
}

// ParseFile splits buf into sections. Scanning starts at the declared
// header length and stops at the first tag not starting with 'P' or whose
// length is shorter than a section header or overruns buf.
func ParseFile(buf []byte) (*File, error) {
	if len(buf) < fileHeaderMin {
		if len(buf) >= 4 && string(buf[:4]) != magic {
			return nil, ErrBadMagic
		}
		return nil, ErrTooSmall
	}
	if string(buf[:4]) != magic {
		return nil, ErrBadMagic
	}

	f := &File{
		LenHeader: binary.BigEndian.Uint32(buf[4:]),
		LenFile:   binary.BigEndian.Uint32(buf[8:]),
	}
	off := int(f.LenHeader)
	if off == 0 {
		off = defaultHeaderLen
	}

	for off >= 0 && off+sectionHeaderLen <= len(buf) {
		tag := buf[off : off+4]
		if tag[0] != 'P' {
			break
		}
		lenHeader := binary.BigEndian.Uint32(buf[off+4:])
		lenTag := binary.BigEndian.Uint32(buf[off+8:])
		if lenTag < sectionHeaderLen || uint64(off)+uint64(lenTag) > uint64(len(buf)) {
			break
		}
		if lenHeader < sectionHeaderLen || lenHeader > lenTag {
			lenHeader = sectionHeaderLen
		}
		end := off + int(lenTag)
		f.Sections = append(f.Sections, Section{
			Tag:       string(tag),
			Offset:    off,
			LenHeader: lenHeader,
			LenTag:    lenTag,
			Raw:       buf[off:end:end],
		})
		off = end
	}
	return f, nil
}

// Find returns every section with tag, in file order.
func (f *File) Find(tag string) []Section {
	var out []Section
	for _, s := range f.Sections {
		if s.Tag == tag {
			out = append(out, s)
		}
	}
	return out
}

// Has reports whether any section carries tag.
func (f *File) Has(tag string) bool {
	for _, s := range f.Sections {
		if s.Tag == tag {
			return true
		}
	}
	return false
}

// Tags returns the section tags in file order.
func (f *File) Tags() []string {
	out := make([]string, len(f.Sections))
	for i, s := range f.Sections {
		out[i] = s.Tag
	}
	return out
}

func (s Section) String() string {
	return fmt.Sprintf("%s@%d(%d/%d)", s.Tag, s.Offset, s.LenHeader, s.LenTag)
}
