package anlz

import "errors"

var (
	// ErrTooSmall is returned when a buffer cannot hold the PMAI header.
	ErrTooSmall = errors.New("anlz: file too small")

	// ErrBadMagic is returned when a buffer does not start with PMAI.
	ErrBadMagic = errors.New("anlz: missing PMAI magic")
)
