package measurement

import (
	"context"
	"fmt"

	"github.com/sparkgrid/grid-core/internal/device"
	"github.com/sparkgrid/grid-core/internal/senml"
)

// Logger defines the logging interface used by the Dispatcher.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Sink consumes the records of one envelope for one device.
// Implementations are class-specific: they know which record names carry
// meaning for their device class and how to persist them.
type Sink interface {
	Store(ctx context.Context, deviceID int64, records []senml.Record) error
}

// Dispatcher resolves an envelope's base name through the identity cache
// and hands the records to the sink registered for the device's class.
//
// Dispatch errors are diagnostic: a dropped envelope must never take down
// the observation relation that delivered it, so callers are expected to
// log the error and keep serving.
type Dispatcher struct {
	cache  *device.Cache
	sinks  map[device.Class]Sink
	logger Logger
}

// NewDispatcher creates a dispatcher routing through cache to the given
// class-indexed sinks.
func NewDispatcher(cache *device.Cache, sinks map[device.Class]Sink) *Dispatcher {
	return &Dispatcher{
		cache:  cache,
		sinks:  sinks,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the dispatcher.
func (d *Dispatcher) SetLogger(logger Logger) {
	d.logger = logger
}

// Dispatch routes one decoded envelope. Empty envelopes and envelopes from
// devices absent from the cache are dropped without touching any sink.
func (d *Dispatcher) Dispatch(ctx context.Context, env senml.Envelope) error {
	if len(env.Records) == 0 {
		return ErrEmptyEnvelope
	}

	entry, ok := d.cache.Lookup(env.BaseName)
	if !ok {
		d.logger.Warn("envelope from unregistered device dropped", "base_name", env.BaseName)
		return fmt.Errorf("%w: %s", ErrUnknownDevice, env.BaseName)
	}

	sink, ok := d.sinks[entry.Class]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoSink, entry.Class)
	}

	if err := sink.Store(ctx, entry.ID, env.Records); err != nil {
		return fmt.Errorf("dispatch %s envelope for device %d: %w", entry.Class, entry.ID, err)
	}

	d.logger.Debug("envelope dispatched",
		"base_name", env.BaseName,
		"device_id", entry.ID,
		"class", entry.Class.String(),
		"records", len(env.Records))
	return nil
}
