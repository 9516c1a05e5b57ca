package mqtt

import "fmt"

// Topic prefixes for the SparkGrid event bus.
//
// All event topics use the flat scheme: sparkgrid/{category}/{class}/{device_id}
const (
	// TopicPrefix is the base for all SparkGrid topics.
	TopicPrefix = "sparkgrid"

	// TopicPrefixMeasurements is the base for telemetry topics.
	TopicPrefixMeasurements = "sparkgrid/measurements"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "sparkgrid/system"
)

// Topics provides builders for SparkGrid MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	powerTopic := topics.PowerMeasurement(7)
//	// Returns: "sparkgrid/measurements/power/7"
type Topics struct{}

// PowerMeasurement returns the topic for stored smart-meter readings.
//
// Example: sparkgrid/measurements/power/7
func (Topics) PowerMeasurement(deviceID int64) string {
	return fmt.Sprintf("%s/power/%d", TopicPrefixMeasurements, deviceID)
}

// TransformerMeasurement returns the topic for stored transformer snapshots.
//
// Example: sparkgrid/measurements/transformer/3
func (Topics) TransformerMeasurement(deviceID int64) string {
	return fmt.Sprintf("%s/transformer/%d", TopicPrefixMeasurements, deviceID)
}

// Registration returns the topic for device registration announcements.
//
// Example: sparkgrid/registrations
func (Topics) Registration() string {
	return fmt.Sprintf("%s/registrations", TopicPrefix)
}

// SystemStatus returns the topic for server online/offline status.
//
// This topic carries retained messages and the LWT so subscribers
// always see the grid server's current state.
//
// Example: sparkgrid/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}
