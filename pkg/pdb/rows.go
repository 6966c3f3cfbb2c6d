package pdb

import (
	"encoding/binary"
	"iter"
)

// RowsOf yields the absolute offset of every present row in page.
//
// Slots whose presence bit is clear, whose index entry lies outside the
// page, or whose row would not fit minRowSize bytes are skipped. Index
// pages and pages shorter than the fixed header yield nothing. The
// sequence is derived from the page bytes on every iteration.
func RowsOf(page []byte, minRowSize int) iter.Seq[int] {
	return func(yield func(int) bool) {
		h, err := ParsePageHeader(page)
		if err != nil || !h.IsDataPage() {
			return
		}

		numRows := h.NumRows()
		groups := (numRows + rowGroupSize - 1) / rowGroupSize
		for g := 0; g < groups; g++ {
			base := len(page) - g*rowGroupStride
			flagsPos := base - 4
			if flagsPos < HeapStart {
				return
			}
			present := binary.LittleEndian.Uint16(page[flagsPos:])

			inGroup := min(rowGroupSize, numRows-g*rowGroupSize)
			for r := 0; r < inGroup; r++ {
				if present&(1<<r) == 0 {
					continue
				}
				pos := base - (6 + 2*r)
				if pos < HeapStart || pos+2 > len(page) {
					continue
				}
				row := int(binary.LittleEndian.Uint16(page[pos:])&rowOffsetMask) + HeapStart
				if row+minRowSize > len(page) {
					continue
				}
				if !yield(row) {
					return
				}
			}
		}
	}
}
