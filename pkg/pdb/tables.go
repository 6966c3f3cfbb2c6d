package pdb

import (
	"errors"
	"time"
)

// StopReason explains why a table traversal ended.
type StopReason string

const (
	StopMissingTable   StopReason = "missing_table"
	StopUnreadablePage StopReason = "unreadable_page"
	StopTypeMismatch   StopReason = "type_mismatch"
	StopCycle          StopReason = "cycle"
	StopEmptyCandidate StopReason = "empty_candidate"
	StopEndOfChain     StopReason = "end_of_chain"
	StopCallback       StopReason = "callback"
)

// Diagnostics summarizes one table traversal.
type Diagnostics struct {
	Table          TableType            `json:"table"`
	PagesVisited   int                  `json:"pages_visited"`
	DataPages      int                  `json:"data_pages"`
	RowsSeen       int                  `json:"rows_seen"`
	RowsDecoded    int                  `json:"rows_decoded"`
	Rejected       map[RowErrorKind]int `json:"-"`
	RejectedByKind map[string]int       `json:"rejected,omitempty"`
	Stop           StopReason           `json:"stop"`
	StopPage       uint32               `json:"stop_page"`
	Duration       time.Duration        `json:"duration_ns"`
}

// RowsRejected returns the total number of rejected rows.
func (d Diagnostics) RowsRejected() int {
	n := 0
	for _, c := range d.Rejected {
		n += c
	}
	return n
}

func (d *Diagnostics) reject(kind RowErrorKind) {
	if d.Rejected == nil {
		d.Rejected = make(map[RowErrorKind]int)
		d.RejectedByKind = make(map[string]int)
	}
	d.Rejected[kind]++
	d.RejectedByKind[kind.String()]++
}

// Walk visits the pages of a table by following NextPage links from
// entry.FirstPage. It stops, without error, when a page cannot be read,
// when a page's type differs from the table's, when a link points back to
// a page already visited, when the last page links to the empty
// candidate, when a link points at the header page, or when fn returns
// false.
func (s *Store) Walk(entry TableDirectoryEntry, fn func(index uint32, page []byte, h PageHeader) bool) (StopReason, uint32) {
	visited := make(map[uint32]struct{})
	idx := entry.FirstPage
	for {
		page, ok := s.ReadPage(idx)
		if !ok {
			if idx >= s.PageCount() {
				s.log.Warn().
					Stringer("table", entry.Type).
					Uint32("page", idx).
					Uint32("page_count", s.PageCount()).
					Msg("page link beyond end of file")
			}
			return StopUnreadablePage, idx
		}

		h, err := ParsePageHeader(page)
		if err != nil {
			return StopUnreadablePage, idx
		}
		if h.Type != entry.Type {
			s.log.Debug().
				Stringer("table", entry.Type).
				Stringer("page_type", h.Type).
				Uint32("page", idx).
				Msg("page type mismatch ends table")
			return StopTypeMismatch, idx
		}

		visited[idx] = struct{}{}
		if !fn(idx, page, h) {
			return StopCallback, idx
		}

		next := h.NextPage
		if _, seen := visited[next]; seen {
			s.log.Warn().
				Stringer("table", entry.Type).
				Uint32("page", idx).
				Uint32("next_page", next).
				Msg("page chain cycle detected")
			return StopCycle, next
		}
		if idx == entry.LastPage && next == entry.EmptyCandidate {
			return StopEmptyCandidate, next
		}
		if next == 0 {
			return StopEndOfChain, idx
		}
		idx = next
	}
}

// TableResult holds the records decoded from one table.
type TableResult[T any] struct {
	Records     []T
	Diagnostics Diagnostics
}

// DecodeTable decodes every present row of schema's table in page
// traversal order. Rejected rows are counted and logged at debug level.
func DecodeTable[T any](s *Store, schema Schema[T]) TableResult[T] {
	start := time.Now()
	res := TableResult[T]{Diagnostics: Diagnostics{Table: schema.Table}}
	d := &res.Diagnostics

	entry, ok := s.Table(schema.Table)
	if !ok {
		d.Stop = StopMissingTable
		return res
	}

	log := s.log.With().Stringer("table", schema.Table).Logger()
	d.Stop, d.StopPage = s.Walk(entry, func(index uint32, page []byte, h PageHeader) bool {
		d.PagesVisited++
		if !h.IsDataPage() {
			return true
		}
		d.DataPages++
		for row := range RowsOf(page, schema.MinRowSize) {
			d.RowsSeen++
			rec, err := schema.Decode(page, row, HeapStart)
			if err != nil {
				var rowErr *RowError
				kind := OutOfBounds
				if errors.As(err, &rowErr) {
					kind = rowErr.Kind
				}
				d.reject(kind)
				log.Debug().Err(err).Uint32("page", index).Int("row", row).Msg("row rejected")
				continue
			}
			res.Records = append(res.Records, rec)
			d.RowsDecoded++
		}
		return true
	})
	d.Duration = time.Since(start)
	return res
}
