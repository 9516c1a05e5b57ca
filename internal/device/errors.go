package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, device.ErrNotFound) {
//	    // handle not found case
//	}
var (
	// ErrNotFound is returned when a device id or full name does not exist.
	ErrNotFound = errors.New("device: not found")

	// ErrInvalidClass is returned when a class value is not recognised.
	ErrInvalidClass = errors.New("device: invalid class")

	// ErrInvalidFullName is returned when a full name is empty.
	ErrInvalidFullName = errors.New("device: invalid full name")
)
