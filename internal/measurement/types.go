package measurement

import "time"

// PowerMeasurement is one power draw sample for a power meter, in watts.
type PowerMeasurement struct {
	ID         int64
	DeviceID   int64
	Power      float64
	RecordedAt time.Time
}

// TransformerMeasurement is one electrical snapshot of a transformer.
// State is the operational state reported by the device; -1 means the
// device omitted it from the envelope. Currents are in amperes, voltages
// in volts.
type TransformerMeasurement struct {
	ID         int64
	DeviceID   int64
	State      int
	Ia         float64
	Ib         float64
	Ic         float64
	Va         float64
	Vb         float64
	Vc         float64
	RecordedAt time.Time
}

// HourlyPower is one row of the hourly consumption report: aggregates of
// all power samples recorded within a single clock hour.
type HourlyPower struct {
	Hour    string
	Average float64
	Peak    float64
	Samples int
}

// PowerSummary aggregates a device's entire recorded power history.
type PowerSummary struct {
	Average float64
	Peak    float64
	Samples int
	First   time.Time
	Last    time.Time
}

// StateUnknown is recorded when a transformer envelope carries no state field.
const StateUnknown = -1
