// Package errs defines the error kinds returned by the subject registry and
// the attendance ledger. Callers wrap them with fmt.Errorf("%w: ...") and
// match them with errors.Is.
package errs

import "errors"

var (
	// ErrValidation is returned for empty or malformed input.
	ErrValidation = errors.New("invalid input")
	// ErrDuplicate is returned when a subject name is already taken.
	ErrDuplicate = errors.New("already exists")
	// ErrNotFound is returned for operations on a subject that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrStorage is returned when the key-value store fails to persist a change.
	ErrStorage = errors.New("storage failure")
)
