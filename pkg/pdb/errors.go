package pdb

import "errors"

var (
	// ErrHeaderTooSmall indicates the buffer cannot hold the 24-byte file header.
	ErrHeaderTooSmall = errors.New("pdb header too small")
	// ErrInvalidPageSize indicates a header declaring a zero page size.
	ErrInvalidPageSize = errors.New("invalid page size")
	// ErrNotFound indicates the export.pdb file does not exist.
	ErrNotFound = errors.New("pdb file not found")
	// ErrPageTooSmall indicates a page shorter than its fixed header.
	ErrPageTooSmall = errors.New("page too small")

	// ErrSanityCheck is wrapped by row errors of kind SanityCheckFailed.
	ErrSanityCheck = errors.New("row sanity check failed")
	// ErrRowOutOfBounds is wrapped by row errors of kind OutOfBounds.
	ErrRowOutOfBounds = errors.New("row field out of bounds")
	// ErrUnknownSubtype is wrapped by row errors of kind UnknownSubtype.
	ErrUnknownSubtype = errors.New("unknown row subtype")
)
