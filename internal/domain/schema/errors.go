package schema

import "errors"

// ErrInvalidSchema is returned when a schema document fails validation.
var ErrInvalidSchema = errors.New("invalid schema")
