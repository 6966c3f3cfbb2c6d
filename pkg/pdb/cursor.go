package pdb

import "encoding/binary"

// rowCursor reads fixed fields relative to a row start with bounds checks.
// The first failed read sticks; later reads return zero values.
type rowCursor struct {
	table TableType
	page  []byte
	row   int
	err   *RowError
}

func newRowCursor(table TableType, page []byte, row, heapStart int) *rowCursor {
	c := &rowCursor{table: table, page: page, row: row}
	if row < heapStart || row >= len(page) {
		c.err = rowErr(OutOfBounds, table, row, "row start outside heap")
	}
	return c
}

func (c *rowCursor) span(off, n int) []byte {
	if c.err != nil {
		return nil
	}
	start := c.row + off
	if off < 0 || start+n > len(c.page) {
		c.err = rowErr(OutOfBounds, c.table, c.row, "field at +0x%x (%d bytes) past page end", off, n)
		return nil
	}
	return c.page[start : start+n]
}

func (c *rowCursor) u8(off int) uint8 {
	if b := c.span(off, 1); b != nil {
		return b[0]
	}
	return 0
}

func (c *rowCursor) u16(off int) uint16 {
	if b := c.span(off, 2); b != nil {
		return binary.LittleEndian.Uint16(b)
	}
	return 0
}

func (c *rowCursor) u32(off int) uint32 {
	if b := c.span(off, 4); b != nil {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

// str decodes the string stored at row+off. An undecodable string is
// empty; it does not fail the row.
func (c *rowCursor) str(off int) string {
	if c.err != nil {
		return ""
	}
	text, _ := DecodeString(c.page, c.row+off)
	return text
}

// sanity rejects rows whose leading word is all ones, and all zeros unless
// the table's leading field may legitimately be zero.
func (c *rowCursor) sanity(allowZero bool) {
	w := c.u32(0)
	if c.err != nil {
		return
	}
	switch {
	case w == 0xFFFFFFFF:
		c.err = rowErr(SanityCheckFailed, c.table, c.row, "leading word is 0xffffffff")
	case w == 0 && !allowZero:
		c.err = rowErr(SanityCheckFailed, c.table, c.row, "leading word is zero")
	}
}

// id validates an identifier field against the plausibility bounds.
func (c *rowCursor) id(name string, v uint32) {
	if c.err != nil {
		return
	}
	if v == 0 || v > MaxPlausibleID {
		c.err = rowErr(SanityCheckFailed, c.table, c.row, "implausible %s %d", name, v)
	}
}

// fail records err unless an earlier error is already set.
func (c *rowCursor) fail(err *RowError) {
	if c.err == nil {
		c.err = err
	}
}

// Err returns the first error, or nil.
func (c *rowCursor) Err() error {
	if c.err == nil {
		return nil
	}
	return c.err
}
