// Package measurement routes decoded telemetry envelopes to per-class
// persistence.
//
// The Dispatcher validates an envelope against the identity cache (unknown
// devices and empty envelopes are dropped, not errors worth retrying) and
// hands it to the sink registered for the device's class. Sinks convert the
// wire format's scaled integers to decimals, append a write-once measurement
// row, and optionally mirror the value to a time-series recorder and an
// event-bus publisher.
package measurement
