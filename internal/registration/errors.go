package registration

import "errors"

var (
	// ErrInvalidRequest is returned when a registration request is missing
	// required fields or declares an unknown class.
	ErrInvalidRequest = errors.New("registration: invalid request")

	// ErrDirectoryUnavailable is returned when the device directory cannot
	// serve the upsert. No subscription is attempted in that case.
	ErrDirectoryUnavailable = errors.New("registration: device directory unavailable")
)
