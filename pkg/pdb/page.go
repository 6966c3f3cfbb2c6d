package pdb

import "encoding/binary"

const (
	// HeapStart is the offset of the row heap within every page.
	HeapStart = 0x28

	minPageSize      = 48
	rowGroupSize     = 16
	rowGroupStride   = 0x24
	rowOffsetMask    = 0x1FFF
	rowCountSentinel = 0x1FFF

	// FlagIndexPage marks a page holding index data rather than rows.
	FlagIndexPage = 0x40
)

// PageHeader holds the fixed fields at the start of every page.
type PageHeader struct {
	PageIndex    uint32    `json:"page_index"`
	Type         TableType `json:"type"`
	NextPage     uint32    `json:"next_page"`
	NumRowsSmall uint8     `json:"num_rows_small"`
	Flags        uint8     `json:"flags"`
	FreeSize     uint16    `json:"free_size"`
	UsedSize     uint16    `json:"used_size"`
	NumRowsLarge uint16    `json:"num_rows_large"`
}

// ParsePageHeader decodes the header of a page.
func ParsePageHeader(page []byte) (PageHeader, error) {
	if len(page) < minPageSize {
		return PageHeader{}, ErrPageTooSmall
	}
	return PageHeader{
		PageIndex:    binary.LittleEndian.Uint32(page[0x04:]),
		Type:         TableType(binary.LittleEndian.Uint32(page[0x08:])),
		NextPage:     binary.LittleEndian.Uint32(page[0x0C:]),
		NumRowsSmall: page[0x18],
		Flags:        page[0x1B],
		FreeSize:     binary.LittleEndian.Uint16(page[0x1C:]),
		UsedSize:     binary.LittleEndian.Uint16(page[0x1E:]),
		NumRowsLarge: binary.LittleEndian.Uint16(page[0x22:]),
	}, nil
}

// IsDataPage reports whether the page carries rows.
func (h PageHeader) IsDataPage() bool {
	return h.Flags&FlagIndexPage == 0
}

// NumRows returns the row slot count. The large count wins unless it is
// zero or the 0x1FFF sentinel, in which case the small count is used.
func (h PageHeader) NumRows() int {
	if h.NumRowsLarge == 0 || h.NumRowsLarge == rowCountSentinel {
		return int(h.NumRowsSmall)
	}
	return int(h.NumRowsLarge)
}
