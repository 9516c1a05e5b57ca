// Package observation maintains the server-initiated observe relations that
// feed telemetry into the system.
//
// After a device registers, the Manager opens an observe relation against
// the class-specific resource on the device. Notifications are decoded and
// handed to the envelope dispatcher. A relation moves Pending -> Active on
// a successful subscribe and ends in Cancelled; once cancelled, any
// in-flight notification is dropped rather than dispatched.
package observation
