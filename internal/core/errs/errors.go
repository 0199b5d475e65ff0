// Package errs holds the kernel's error taxonomy. Packages wrap these sentinels
// with fmt.Errorf("...: %w", ...) and callers classify with errors.Is.
package errs

import "errors"

var (
	// ErrValidation marks a malformed id, coordinate or request. Such requests
	// are dropped.
	ErrValidation = errors.New("validation failed")
	// ErrResourceExhausted marks a search that found nothing within its bounds.
	ErrResourceExhausted = errors.New("resource exhausted")
	// ErrNotFound marks a reference to an unknown entity.
	ErrNotFound = errors.New("not found")
	// ErrSerialization marks a corrupt cold-store blob.
	ErrSerialization = errors.New("serialization failed")
	// ErrChannelClosed is returned by queue operations after Close.
	ErrChannelClosed = errors.New("channel closed")
)
