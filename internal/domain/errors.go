package domain

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEmail = errors.New("email already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInvalidInput   = errors.New("invalid input")

	// Upload pipeline outcomes.
	ErrUploadFailed       = errors.New("upload failed")
	ErrCatalogWriteFailed = errors.New("catalog write failed")
	ErrIO                 = errors.New("local i/o error")

	// ErrListen is reported to catalog listeners when a snapshot could not be
	// produced. It is logged by subscribers and never surfaced to callers.
	ErrListen = errors.New("catalog listen failed")
)
