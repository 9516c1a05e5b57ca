package command

import (
	"context"
	"fmt"

	"github.com/sparkgrid/grid-core/internal/device"
	"github.com/sparkgrid/grid-core/internal/senml"
)

// Logger defines the logging interface used by the Coordinator.
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

// Requester sends confirmable requests to a device. Put succeeds only on
// the device's "changed" acknowledgment; Get succeeds only with content.
type Requester interface {
	Put(ctx context.Context, address, resource string, body []byte) error
	Get(ctx context.Context, address, resource string) ([]byte, error)
}

// Mutable device resources.
const (
	resourceStatus              = "status"
	resourceMaxPower            = "max_power"
	resourceTransformerSettings = "transformer_settings"
	resourcePower               = "power"
)

// Setpoints are the per-phase current and voltage targets pushed to a
// transformer. Values are decimals (amperes and volts).
type Setpoints struct {
	Ia float64 `json:"ia"`
	Ib float64 `json:"ib"`
	Ic float64 `json:"ic"`
	Va float64 `json:"va"`
	Vb float64 `json:"vb"`
	Vc float64 `json:"vc"`
}

// Coordinator executes actuator commands against devices and keeps the
// directory in step with them.
type Coordinator struct {
	repo      device.Repository
	requester Requester
	logger    Logger
}

// NewCoordinator creates a coordinator over the given directory and
// transport requester.
func NewCoordinator(repo device.Repository, requester Requester) *Coordinator {
	return &Coordinator{
		repo:      repo,
		requester: requester,
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger for the coordinator.
func (c *Coordinator) SetLogger(logger Logger) {
	c.logger = logger
}

// SetEnabled toggles a power meter's relay and records the new state.
func (c *Coordinator) SetEnabled(ctx context.Context, deviceID int64, enabled bool) error {
	identity, err := c.repo.GetByID(ctx, deviceID)
	if err != nil {
		return err
	}
	if identity.Class != device.ClassPowerMeter {
		return fmt.Errorf("%w: %s has no status resource", ErrWrongClass, identity.Class)
	}
	if identity.Enabled == enabled {
		return nil
	}

	apply := func(v bool) error {
		body, err := encodeCommand(senml.Record{Name: "status", Kind: senml.BoolValue, BoolVal: v})
		if err != nil {
			return err
		}
		return c.requester.Put(ctx, identity.Address, resourceStatus, body)
	}
	persist := func(v bool) error {
		return c.repo.UpdateEnabled(ctx, deviceID, v)
	}
	return c.run(deviceID, resourceStatus,
		func() error { return apply(enabled) },
		func() error { return persist(enabled) },
		func() error { return apply(identity.Enabled) },
	)
}

// SetMaxPower pushes a new power ceiling (kW) to a power meter and records
// it.
func (c *Coordinator) SetMaxPower(ctx context.Context, deviceID int64, maxPower float64) error {
	if maxPower < 0 {
		return fmt.Errorf("%w: negative max power", ErrCommandRejected)
	}
	identity, err := c.repo.GetByID(ctx, deviceID)
	if err != nil {
		return err
	}
	if identity.Class != device.ClassPowerMeter {
		return fmt.Errorf("%w: %s has no max_power resource", ErrWrongClass, identity.Class)
	}

	// The device expects its ceiling in watts, scaled like every other
	// numeric on the wire: kW x1000 to watts, then x100 fixed point.
	apply := func(v float64) error {
		body, err := encodeCommand(senml.Record{
			Name: "max_power", Kind: senml.Numeric, Value: senml.Scale(v * 1000),
		})
		if err != nil {
			return err
		}
		return c.requester.Put(ctx, identity.Address, resourceMaxPower, body)
	}
	persist := func(v float64) error {
		return c.repo.UpdateMaxPower(ctx, deviceID, v)
	}
	return c.run(deviceID, resourceMaxPower,
		func() error { return apply(maxPower) },
		func() error { return persist(maxPower) },
		func() error { return apply(identity.MaxPower) },
	)
}

// SetTransformerSetpoints pushes per-phase targets to a transformer. The
// directory keeps no mirror of setpoints, so this is a single-step
// command with no persistence and nothing to compensate.
func (c *Coordinator) SetTransformerSetpoints(ctx context.Context, deviceID int64, sp Setpoints) error {
	identity, err := c.repo.GetByID(ctx, deviceID)
	if err != nil {
		return err
	}
	if identity.Class != device.ClassTransformer {
		return fmt.Errorf("%w: %s has no transformer_settings resource", ErrWrongClass, identity.Class)
	}

	body, err := encodeCommand(
		senml.Record{Name: "ia", Kind: senml.Numeric, Value: senml.Scale(sp.Ia)},
		senml.Record{Name: "ib", Kind: senml.Numeric, Value: senml.Scale(sp.Ib)},
		senml.Record{Name: "ic", Kind: senml.Numeric, Value: senml.Scale(sp.Ic)},
		senml.Record{Name: "va", Kind: senml.Numeric, Value: senml.Scale(sp.Va)},
		senml.Record{Name: "vb", Kind: senml.Numeric, Value: senml.Scale(sp.Vb)},
		senml.Record{Name: "vc", Kind: senml.Numeric, Value: senml.Scale(sp.Vc)},
	)
	if err != nil {
		return fmt.Errorf("encode setpoints: %w", err)
	}
	if err := c.requester.Put(ctx, identity.Address, resourceTransformerSettings, body); err != nil {
		return fmt.Errorf("%w: %v", ErrCommandRejected, err)
	}
	c.logger.Info("transformer setpoints applied", "device_id", deviceID)
	return nil
}

// ReadPower fetches a power meter's instantaneous draw in watts.
func (c *Coordinator) ReadPower(ctx context.Context, deviceID int64) (float64, error) {
	identity, err := c.repo.GetByID(ctx, deviceID)
	if err != nil {
		return 0, err
	}
	if identity.Class != device.ClassPowerMeter {
		return 0, fmt.Errorf("%w: %s has no power resource", ErrWrongClass, identity.Class)
	}

	payload, err := c.requester.Get(ctx, identity.Address, resourcePower)
	if err != nil {
		return 0, fmt.Errorf("read power from device %d: %w", deviceID, err)
	}

	env := senml.Decode(payload)
	for _, rec := range env.Records {
		if rec.Kind == senml.Numeric {
			return senml.Decimal(rec.Value), nil
		}
	}
	return 0, fmt.Errorf("%w: device %d", ErrNoReading, deviceID)
}

// encodeCommand builds the measurement-envelope body a device expects on
// its mutable resources. Commands and notifications share one wire format,
// so constrained devices carry a single parser; numeric values must be
// pre-scaled by the caller.
func encodeCommand(records ...senml.Record) ([]byte, error) {
	body, err := senml.Encode(senml.Envelope{Records: records})
	if err != nil {
		return nil, fmt.Errorf("encode command body: %w", err)
	}
	return body, nil
}

// run executes the three-step protocol: apply on the device, persist in
// the directory, and on a failed persist compensate on the device exactly
// once.
func (c *Coordinator) run(deviceID int64, resource string, apply, persist, compensate func() error) error {
	if err := apply(); err != nil {
		return fmt.Errorf("%w: %s on device %d: %v", ErrCommandRejected, resource, deviceID, err)
	}

	perr := persist()
	if perr == nil {
		c.logger.Info("command applied", "device_id", deviceID, "resource", resource)
		return nil
	}

	if cerr := compensate(); cerr != nil {
		c.logger.Error("compensation failed, state inconsistent",
			"device_id", deviceID, "resource", resource,
			"persist_error", perr, "compensate_error", cerr)
		return fmt.Errorf("%w: %s on device %d: persist: %v, compensate: %v",
			ErrStateInconsistent, resource, deviceID, perr, cerr)
	}

	c.logger.Warn("directory write failed, device restored",
		"device_id", deviceID, "resource", resource, "error", perr)
	return fmt.Errorf("%w: %s on device %d: %v", ErrPersistFailed, resource, deviceID, perr)
}
