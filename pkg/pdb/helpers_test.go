package pdb

import (
	"testing"

	"github.com/eunmann/rbx-export/pkg/benchutil"
)

func openBuilt(t *testing.T, b *benchutil.PDB) *Store {
	t.Helper()
	s, err := Open(b.Bytes(), Options{})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return s
}

// pageWithRows renders a single data page of tableType holding rows.
func pageWithRows(tableType uint32, rows ...[]byte) []byte {
	b := &benchutil.PDB{Pages: []benchutil.Page{{Index: 1, Type: tableType, Rows: rows}}}
	data := b.Bytes()
	return data[benchutil.DefaultPageSize : 2*benchutil.DefaultPageSize]
}

// decodeRows decodes every present row of page with schema, returning
// records and errors in slot order.
func decodeRows[T any](page []byte, schema Schema[T]) ([]T, []error) {
	var recs []T
	var errs []error
	for row := range RowsOf(page, schema.MinRowSize) {
		rec, err := schema.Decode(page, row, HeapStart)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		recs = append(recs, rec)
	}
	return recs, errs
}
