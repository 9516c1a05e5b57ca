// Package command drives operator-initiated actuator changes.
//
// A mutating command runs a strict three-step protocol: push the new value
// to the device and wait for the acknowledgment, then write the value to
// the directory, and on a failed write issue one compensating push that
// restores the device's previous value. Compensation is attempted exactly
// once; if it also fails the device and the directory disagree, and that
// is reported as a named inconsistency rather than retried.
package command
