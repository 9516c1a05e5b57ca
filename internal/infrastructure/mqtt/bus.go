package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sparkgrid/grid-core/internal/device"
	"github.com/sparkgrid/grid-core/internal/measurement"
)

// EventBus publishes SparkGrid domain events to the broker.
//
// It satisfies measurement.Publisher and registration.Announcer.
// All publishing is fire-and-forget: failures are logged and never
// propagated back into the ingestion path.
type EventBus struct {
	client publisher
	qos    byte
	topics Topics
	logger Logger
}

// publisher is the slice of Client the bus needs.
type publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// NewEventBus creates an event bus publishing through the given client.
func NewEventBus(client *Client, qos byte) *EventBus {
	return &EventBus{
		client: client,
		qos:    qos,
		logger: noopLogger{},
	}
}

// SetLogger configures publish failure logging.
func (b *EventBus) SetLogger(logger Logger) {
	if logger != nil {
		b.logger = logger
	}
}

// powerEvent is the wire form of a stored smart-meter reading.
type powerEvent struct {
	DeviceID   int64     `json:"device_id"`
	Power      float64   `json:"power_w"`
	RecordedAt time.Time `json:"recorded_at"`
}

// transformerEvent is the wire form of a stored transformer snapshot.
type transformerEvent struct {
	DeviceID   int64     `json:"device_id"`
	State      int       `json:"state"`
	CurrentA   float64   `json:"current_a"`
	CurrentB   float64   `json:"current_b"`
	CurrentC   float64   `json:"current_c"`
	VoltageA   float64   `json:"voltage_a"`
	VoltageB   float64   `json:"voltage_b"`
	VoltageC   float64   `json:"voltage_c"`
	RecordedAt time.Time `json:"recorded_at"`
}

// registrationEvent announces a device joining (or rejoining) the grid.
type registrationEvent struct {
	DeviceID int64  `json:"device_id"`
	FullName string `json:"full_name"`
	Alias    string `json:"alias"`
	Class    string `json:"class"`
	Address  string `json:"address"`
	Enabled  bool   `json:"enabled"`
}

// PublishPower announces a stored smart-meter reading.
func (b *EventBus) PublishPower(m *measurement.PowerMeasurement) {
	b.publish(b.topics.PowerMeasurement(m.DeviceID), powerEvent{
		DeviceID:   m.DeviceID,
		Power:      m.Power,
		RecordedAt: m.RecordedAt,
	})
}

// PublishTransformer announces a stored transformer snapshot.
func (b *EventBus) PublishTransformer(m *measurement.TransformerMeasurement) {
	b.publish(b.topics.TransformerMeasurement(m.DeviceID), transformerEvent{
		DeviceID:   m.DeviceID,
		State:      m.State,
		CurrentA:   m.Ia,
		CurrentB:   m.Ib,
		CurrentC:   m.Ic,
		VoltageA:   m.Va,
		VoltageB:   m.Vb,
		VoltageC:   m.Vc,
		RecordedAt: m.RecordedAt,
	})
}

// AnnounceRegistration announces a device registration.
func (b *EventBus) AnnounceRegistration(identity *device.Identity) {
	b.publish(b.topics.Registration(), registrationEvent{
		DeviceID: identity.ID,
		FullName: identity.FullName,
		Alias:    identity.Alias,
		Class:    identity.Class.String(),
		Address:  identity.Address,
		Enabled:  identity.Enabled,
	})
}

func (b *EventBus) publish(topic string, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("event encode failed", "topic", topic, "error", err)
		return
	}

	if err := b.client.Publish(topic, payload, b.qos, false); err != nil {
		b.logger.Warn("event publish failed", "topic", topic, "error", err)
	}
}
