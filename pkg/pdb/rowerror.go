package pdb

import "fmt"

// RowErrorKind is the closed set of reasons a row can be rejected.
type RowErrorKind uint8

const (
	SanityCheckFailed RowErrorKind = iota + 1
	OutOfBounds
	UnknownSubtype
)

func (k RowErrorKind) String() string {
	switch k {
	case SanityCheckFailed:
		return "sanity_check_failed"
	case OutOfBounds:
		return "out_of_bounds"
	case UnknownSubtype:
		return "unknown_subtype"
	default:
		return fmt.Sprintf("row_error_%d", uint8(k))
	}
}

// RowError reports why a single row was rejected. The page loop always
// continues past it.
type RowError struct {
	Kind   RowErrorKind
	Table  TableType
	Offset int
	Detail string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("%s row at 0x%x: %s: %s", e.Table, e.Offset, e.Kind, e.Detail)
}

// Unwrap maps the kind onto its sentinel so callers can use errors.Is.
func (e *RowError) Unwrap() error {
	switch e.Kind {
	case SanityCheckFailed:
		return ErrSanityCheck
	case OutOfBounds:
		return ErrRowOutOfBounds
	case UnknownSubtype:
		return ErrUnknownSubtype
	default:
		return nil
	}
}

func rowErr(kind RowErrorKind, table TableType, offset int, format string, args ...any) *RowError {
	return &RowError{Kind: kind, Table: table, Offset: offset, Detail: fmt.Sprintf(format, args...)}
}
