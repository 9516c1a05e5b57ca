package coap

import "errors"

var (
	// ErrNotChanged is returned when a Put was answered with anything but
	// the Changed code.
	ErrNotChanged = errors.New("coap: device did not acknowledge change")

	// ErrNoContent is returned when a Get was answered with anything but
	// the Content code.
	ErrNoContent = errors.New("coap: device returned no content")

	// ErrObserveRejected is returned when a device refused an observe
	// request.
	ErrObserveRejected = errors.New("coap: observe rejected")
)
