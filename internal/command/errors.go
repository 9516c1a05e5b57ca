package command

import "errors"

var (
	// ErrCommandRejected is returned when the device did not acknowledge
	// the command. Nothing was changed on either side.
	ErrCommandRejected = errors.New("command: device rejected command")

	// ErrPersistFailed is returned when the directory write failed after a
	// successful device ack and the compensating command restored the
	// device to its previous value.
	ErrPersistFailed = errors.New("command: directory write failed, device restored")

	// ErrStateInconsistent is returned when the directory write failed and
	// the compensating command failed too. The device now holds the new
	// value while the directory holds the old one; no automatic repair is
	// attempted.
	ErrStateInconsistent = errors.New("command: device and directory are inconsistent")

	// ErrWrongClass is returned when a command targets a device class that
	// does not support it.
	ErrWrongClass = errors.New("command: device class does not support this command")

	// ErrNoReading is returned when a real-time read yields no numeric
	// value.
	ErrNoReading = errors.New("command: device returned no reading")
)
