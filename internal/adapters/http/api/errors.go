package api

import (
	"errors"
	"net/http"

	"github.com/okian/gradelens/internal/adapters/repository"
	"github.com/okian/gradelens/internal/adapters/tabular"
	service "github.com/okian/gradelens/internal/app"
	"github.com/okian/gradelens/internal/domain/mapping"
	"github.com/okian/gradelens/internal/domain/view"
	"github.com/okian/gradelens/internal/domain/weights"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest       = errors.New("bad request")
	ErrMethodNotAllowed = errors.New("method not allowed")
	ErrUnknownRole      = errors.New("unknown role")
)

// OpError ties a failure to the handler operation that produced it.
// It matches both its kind and its cause with errors.Is.
type OpError struct {
	Op   string
	Kind error
	Err  error
}

func (e *OpError) Error() string {
	switch {
	case e.Kind != nil && e.Err != nil:
		return e.Op + ": " + e.Kind.Error() + ": " + e.Err.Error()
	case e.Err != nil:
		return e.Op + ": " + e.Err.Error()
	case e.Kind != nil:
		return e.Op + ": " + e.Kind.Error()
	default:
		return e.Op
	}
}

// Unwrap exposes both kind and cause.
func (e *OpError) Unwrap() []error {
	var out []error
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// NewKind builds an error of the given kind with no underlying cause.
func NewKind(op string, kind error) error {
	return &OpError{Op: op, Kind: kind}
}

// Wrap annotates err with op. A nil err stays nil.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, Err: err}
}

// WrapKind annotates err with op and classifies it as kind.
func WrapKind(op string, kind, err error) error {
	if err == nil {
		return NewKind(op, kind)
	}
	return &OpError{Op: op, Kind: kind, Err: err}
}

// classify maps an error chain to an HTTP status and a stable error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrMethodNotAllowed):
		return http.StatusMethodNotAllowed, "method_not_allowed"
	case errors.Is(err, ErrUnknownRole):
		return http.StatusBadRequest, "unknown_role"
	case errors.Is(err, weights.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_weights"
	case errors.Is(err, mapping.ErrMissingRequired):
		return http.StatusUnprocessableEntity, "missing_required"
	case errors.Is(err, tabular.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType, "unsupported_format"
	case errors.Is(err, tabular.ErrEmptyFile), errors.Is(err, service.ErrEmptyUpload):
		return http.StatusBadRequest, "empty_file"
	case errors.Is(err, service.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, "too_large"
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, view.ErrStudentRequired):
		return http.StatusBadRequest, "student_required"
	case errors.Is(err, service.ErrEmptyComment):
		return http.StatusBadRequest, "empty_comment"
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "not_ready"
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
