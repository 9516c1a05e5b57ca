package senml

// scaleFactor is the fixed-point multiplier devices apply to decimal values
// before transmission.
const scaleFactor = 100

// ValueKind identifies which of the mutually exclusive value fields a
// record carries.
type ValueKind int

// ValueKind constants.
const (
	// Absent means the record carries no value, or carried more than one
	// value field (undefined input, rejected rather than guessed at).
	Absent ValueKind = iota

	// Numeric is a scaled integer value from the "v" field.
	Numeric

	// StringValue is a string value from the "sv" field.
	StringValue

	// BoolValue is a boolean value from the "bv" field.
	BoolValue
)

// String returns a human-readable name for the value kind.
func (k ValueKind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case StringValue:
		return "string"
	case BoolValue:
		return "bool"
	default:
		return "absent"
	}
}

// Record is a single reading within an envelope.
//
// Value holds the raw scaled integer for Numeric records; it is NOT divided
// by the fixed-point factor here, keeping the codec a lossless round-trip of
// the wire format.
type Record struct {
	Name      string
	Unit      string
	Kind      ValueKind
	Value     int64
	StringVal string
	BoolVal   bool
	Time      int64
}

// Envelope is a decoded measurement envelope. It is ephemeral: decoded per
// notification and never persisted as-is.
type Envelope struct {
	BaseName string
	BaseTime int64
	BaseUnit string
	Version  int
	Records  []Record
}

// Decimal converts a raw scaled integer to its decimal value.
//
// Example: Decimal(12345) == 123.45
func Decimal(raw int64) float64 {
	return float64(raw) / scaleFactor
}

// Integer converts a raw scaled integer to its integer decimal value,
// discarding any fraction. For scaled wire values that are integer codes,
// like a transformer's operational state.
//
// Example: Integer(200) == 2
func Integer(raw int64) int {
	return int(raw / scaleFactor)
}

// Scale converts a decimal value to the scaled integer the wire format
// expects, rounding to the nearest representable value.
//
// Example: Scale(123.45) == 12345
func Scale(v float64) int64 {
	if v >= 0 {
		return int64(v*scaleFactor + 0.5)
	}
	return int64(v*scaleFactor - 0.5)
}
