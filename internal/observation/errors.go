package observation

import "errors"

var (
	// ErrObserveFailed is returned when the transport could not establish
	// an observe relation with the device.
	ErrObserveFailed = errors.New("observation: observe request failed")

	// ErrNotObserved is returned when closing a relation for a device that
	// has none.
	ErrNotObserved = errors.New("observation: no relation for device")

	// ErrNoResource is returned when a device class has no observable
	// resource.
	ErrNoResource = errors.New("observation: no resource for device class")
)
