package pdb

// MaxPlausibleID is the largest identifier accepted from any table. Larger
// values are treated as corruption.
const MaxPlausibleID = 100000

// Schema decodes one table kind.
type Schema[T any] struct {
	Table TableType
	// MinRowSize is the number of bytes a row needs before decoding starts.
	MinRowSize int
	// Decode reads the row at offset row. heapStart is the page's heap
	// origin; rows starting before it are rejected.
	Decode func(page []byte, row, heapStart int) (T, error)
}

// decodeWith runs fn against a fresh cursor and returns its result or the
// cursor's first error.
func decodeWith[T any](table TableType, page []byte, row, heapStart int, fn func(c *rowCursor) T) (T, error) {
	var zero T
	c := newRowCursor(table, page, row, heapStart)
	v := fn(c)
	if err := c.Err(); err != nil {
		return zero, err
	}
	return v, nil
}
