package device

import "time"

// Class identifies the kind of device. The values match the integer the
// device declares in its registration request.
type Class int

// Class constants.
const (
	ClassPowerMeter  Class = 1
	ClassTransformer Class = 2
)

// Valid reports whether the class is a recognised value.
func (c Class) Valid() bool {
	return c == ClassPowerMeter || c == ClassTransformer
}

// String returns a human-readable name for the class.
func (c Class) String() string {
	switch c {
	case ClassPowerMeter:
		return "power_meter"
	case ClassTransformer:
		return "transformer"
	default:
		return "unknown"
	}
}

// DefaultMaxPower returns the max power (kW) assigned to a newly registered
// device of this class. Power meters default to 6 kW; transformers have no
// power cap.
func (c Class) DefaultMaxPower() float64 {
	if c == ClassPowerMeter {
		return 6
	}
	return 0
}

// Identity is a registered device in the directory.
//
// ID and FullName are immutable once assigned. Address is refreshed by the
// registration handler from the transport-observed source address; MaxPower
// and Enabled are mutated by the remote command coordinator.
type Identity struct {
	ID       int64
	FullName string
	Alias    string
	Class    Class
	Address  string
	MaxPower float64
	Enabled  bool

	CreatedAt time.Time
	UpdatedAt time.Time
}
