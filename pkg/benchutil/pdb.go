// Package benchutil builds synthetic Rekordbox exports for tests and
// benchmarks: export.pdb page stores, row payloads, and ANLZ sidecars.
package benchutil

import (
	"encoding/binary"
	"fmt"
)

// Page is one synthetic page.
type Page struct {
	Index uint32
	Type  uint32
	Next  uint32
	Flags uint8
	Rows  [][]byte
	// Absent lists row slots whose presence bit is cleared.
	Absent map[int]bool
	// NumRowsSmall and NumRowsLarge override the derived row counts.
	NumRowsSmall *uint8
	NumRowsLarge *uint16
}

// Table is one table directory entry.
type Table struct {
	Type           uint32
	EmptyCandidate uint32
	FirstPage      uint32
	LastPage       uint32
}

// PDB describes a synthetic export.pdb. Page 0 holds the header and the
// table directory.
type PDB struct {
	PageSize uint32
	Sequence uint32
	Tables   []Table
	Pages    []Page
	// NumPages fixes the file length in pages. Zero means one past the
	// highest page used.
	NumPages uint32
	// NumTables overrides the table count written to the header.
	NumTables *uint32

	reserved uint32
}

func (p *PDB) pageSize() int {
	if p.PageSize == 0 {
		return DefaultPageSize
	}
	return int(p.PageSize)
}

// nextIndex returns the first page index not used by any page yet.
func (p *PDB) nextIndex() uint32 {
	next := max(p.reserved, 1)
	for _, pg := range p.Pages {
		next = max(next, pg.Index+1)
	}
	return next
}

// AddTable packs rows into as many linked pages as needed, reserves an
// empty candidate page after them, and appends the directory entry.
func (p *PDB) AddTable(tableType uint32, rows [][]byte) Table {
	ps := p.pageSize()
	var pages []Page
	cur := Page{Type: tableType}
	used := 0
	for _, row := range rows {
		groups := (len(cur.Rows) + 1 + 15) / 16
		if len(cur.Rows) > 0 && HeapStart+align4(used)+len(row) > ps-groups*RowGroupStride {
			pages = append(pages, cur)
			cur = Page{Type: tableType}
			used = 0
		}
		cur.Rows = append(cur.Rows, row)
		used = align4(used) + len(row)
	}
	pages = append(pages, cur)

	first := p.nextIndex()
	for i := range pages {
		pages[i].Index = first + uint32(i)
		pages[i].Next = first + uint32(i) + 1
	}
	empty := first + uint32(len(pages))
	p.Pages = append(p.Pages, pages...)
	p.reserved = empty + 1

	t := Table{Type: tableType, EmptyCandidate: empty, FirstPage: first, LastPage: empty - 1}
	p.Tables = append(p.Tables, t)
	return t
}

// Bytes renders the file.
func (p *PDB) Bytes() []byte {
	ps := p.pageSize()
	numPages := p.NumPages
	if numPages == 0 {
		numPages = p.nextIndex()
	}
	buf := make([]byte, int(numPages)*ps)

	numTables := uint32(len(p.Tables))
	if p.NumTables != nil {
		numTables = *p.NumTables
	}
	le := binary.LittleEndian
	le.PutUint32(buf[4:], uint32(ps))
	le.PutUint32(buf[8:], numTables)
	le.PutUint32(buf[12:], numPages)
	le.PutUint32(buf[20:], p.Sequence)
	for i, t := range p.Tables {
		off := 24 + i*16
		if off+16 > ps {
			panic("benchutil: table directory does not fit in page 0")
		}
		le.PutUint32(buf[off:], t.Type)
		le.PutUint32(buf[off+4:], t.EmptyCandidate)
		le.PutUint32(buf[off+8:], t.FirstPage)
		le.PutUint32(buf[off+12:], t.LastPage)
	}

	for _, pg := range p.Pages {
		if pg.Index == 0 || pg.Index >= numPages {
			panic(fmt.Sprintf("benchutil: page index %d outside 1..%d", pg.Index, numPages-1))
		}
		start := int(pg.Index) * ps
		encodePage(buf[start:start+ps], pg)
	}
	return buf
}

func encodePage(b []byte, pg Page) {
	le := binary.LittleEndian
	ps := len(b)
	n := len(pg.Rows)

	le.PutUint32(b[0x04:], pg.Index)
	le.PutUint32(b[0x08:], pg.Type)
	le.PutUint32(b[0x0C:], pg.Next)
	small := uint8(min(n, 0xFF))
	if pg.NumRowsSmall != nil {
		small = *pg.NumRowsSmall
	}
	large := uint16(n)
	if pg.NumRowsLarge != nil {
		large = *pg.NumRowsLarge
	}
	b[0x18] = small
	b[0x1B] = pg.Flags
	le.PutUint16(b[0x22:], large)

	groups := (n + 15) / 16
	indexStart := ps - groups*RowGroupStride
	heap := HeapStart
	for i, row := range pg.Rows {
		heap = align4(heap)
		if heap+len(row) > indexStart {
			panic(fmt.Sprintf("benchutil: page %d heap overflows row index", pg.Index))
		}
		copy(b[heap:], row)

		g, r := i/16, i%16
		base := ps - g*RowGroupStride
		le.PutUint16(b[base-6-2*r:], uint16(heap-HeapStart))
		if !pg.Absent[i] {
			flags := le.Uint16(b[base-4:])
			le.PutUint16(b[base-4:], flags|1<<r)
		}
		heap += len(row)
	}
	le.PutUint16(b[0x1E:], uint16(heap-HeapStart))
	le.PutUint16(b[0x1C:], uint16(max(indexStart-heap, 0)))
}

func align4(n int) int {
	return (n + 3) &^ 3
}
