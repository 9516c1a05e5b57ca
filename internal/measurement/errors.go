package measurement

import "errors"

var (
	// ErrEmptyEnvelope is returned when an envelope carries no records.
	ErrEmptyEnvelope = errors.New("measurement: empty envelope")

	// ErrUnknownDevice is returned when the envelope's base name does not
	// resolve through the identity cache.
	ErrUnknownDevice = errors.New("measurement: unknown device")

	// ErrNoSink is returned when no sink is registered for the device class.
	ErrNoSink = errors.New("measurement: no sink for device class")

	// ErrNotNumeric is returned when a record expected to carry a numeric
	// value carries something else.
	ErrNotNumeric = errors.New("measurement: record value is not numeric")
)
