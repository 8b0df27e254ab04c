package cli

import "errors"

var (
	ErrUnknownFormat  = errors.New("unknown output format")
	ErrNoInput        = errors.New("no input files")
	ErrFilesWithDB    = errors.New("files and --db are mutually exclusive")
	ErrDBRequired     = errors.New("--db is required")
	ErrBinaryToStdout = errors.New("xlsx output needs --output")
)
