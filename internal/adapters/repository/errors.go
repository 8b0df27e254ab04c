package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound          = errors.New("not found")
	ErrUnsupportedDriver = errors.New("unsupported store driver")
	ErrClosed            = errors.New("store closed")
)
