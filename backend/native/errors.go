package native

import "errors"

// Package-specific errors.
var (
	// ErrForeignBuffer is returned when a dispatch or buffer operation
	// receives a buffer that was not created by this device.
	ErrForeignBuffer = errors.New("native: buffer not owned by this device")

	// ErrBindingTooSmall is returned when a bound buffer cannot hold
	// the records a dispatch will access.
	ErrBindingTooSmall = errors.New("native: bound buffer too small for dispatch")
)
