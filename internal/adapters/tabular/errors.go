package tabular

import "errors"

// Sentinel kinds for tabular errors.
var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrEmptyFile         = errors.New("file has no header row")
)
