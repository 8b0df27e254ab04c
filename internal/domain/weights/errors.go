package weights

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is the kind shared by every normalizer failure.
var ErrInvalidInput = errors.New("invalid input")

// Specific failures; each also matches ErrInvalidInput with errors.Is.
var (
	ErrEmptyWeights     = fmt.Errorf("%w: weights must not be empty", ErrInvalidInput)
	ErrNegativeWeight   = fmt.Errorf("%w: weights must be non-negative", ErrInvalidInput)
	ErrNonFiniteWeight  = fmt.Errorf("%w: weights must be finite", ErrInvalidInput)
	ErrNonPositiveTotal = fmt.Errorf("%w: total weight must be positive", ErrInvalidInput)
)

// Reason returns a short label for a normalizer error, for metrics and API codes.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrEmptyWeights):
		return "empty"
	case errors.Is(err, ErrNegativeWeight):
		return "negative"
	case errors.Is(err, ErrNonFiniteWeight):
		return "non_finite"
	case errors.Is(err, ErrNonPositiveTotal):
		return "non_positive_total"
	default:
		return "unknown"
	}
}
