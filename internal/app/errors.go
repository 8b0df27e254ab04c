package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotStarted   = errors.New("service not started")
	ErrForbidden    = errors.New("role is not allowed to perform this action")
	ErrEmptyComment = errors.New("comment body is empty")
	ErrEmptyUpload  = errors.New("upload is empty")
	ErrTooLarge     = errors.New("upload exceeds size limit")
)
