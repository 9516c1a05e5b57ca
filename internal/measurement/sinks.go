package measurement

import (
	"context"
	"fmt"
	"time"

	"github.com/sparkgrid/grid-core/internal/senml"
)

// Recorder mirrors stored measurements into a time-series backend.
// A nil recorder on a sink disables mirroring.
type Recorder interface {
	RecordPower(deviceID int64, power float64, at time.Time)
	RecordTransformer(m *TransformerMeasurement)
}

// Publisher announces stored measurements on the event bus.
// A nil publisher on a sink disables publishing.
type Publisher interface {
	PublishPower(m *PowerMeasurement)
	PublishTransformer(m *TransformerMeasurement)
}

// Record names a transformer reports in its observation envelopes.
const (
	fieldState    = "state"
	fieldCurrentA = "current_A"
	fieldCurrentB = "current_B"
	fieldCurrentC = "current_C"
	fieldVoltageA = "voltage_A"
	fieldVoltageB = "voltage_B"
	fieldVoltageC = "voltage_C"
)

// PowerSink persists power meter envelopes. A power meter reports a single
// reading per notification, so only the first record is consumed; any
// trailing records are ignored.
type PowerSink struct {
	store     PowerStore
	recorder  Recorder
	publisher Publisher
}

// NewPowerSink creates a sink writing to store. recorder and publisher may
// be nil.
func NewPowerSink(store PowerStore, recorder Recorder, publisher Publisher) *PowerSink {
	return &PowerSink{store: store, recorder: recorder, publisher: publisher}
}

func (s *PowerSink) Store(ctx context.Context, deviceID int64, records []senml.Record) error {
	if len(records) == 0 {
		return ErrEmptyEnvelope
	}

	rec := records[0]
	if rec.Kind != senml.Numeric {
		return fmt.Errorf("%w: %q carries %s", ErrNotNumeric, rec.Name, rec.Kind)
	}

	m := &PowerMeasurement{
		DeviceID: deviceID,
		Power:    senml.Decimal(rec.Value),
	}
	if err := s.store.Insert(ctx, m); err != nil {
		return err
	}

	if s.recorder != nil {
		s.recorder.RecordPower(m.DeviceID, m.Power, m.RecordedAt)
	}
	if s.publisher != nil {
		s.publisher.PublishPower(m)
	}
	return nil
}

// TransformerSink persists transformer envelopes. Records are matched by
// name against the known electrical fields; unknown names and non-numeric
// values are skipped so a partial envelope still produces a row. A missing
// state record is stored as StateUnknown.
type TransformerSink struct {
	store     TransformerStore
	recorder  Recorder
	publisher Publisher
}

// NewTransformerSink creates a sink writing to store. recorder and
// publisher may be nil.
func NewTransformerSink(store TransformerStore, recorder Recorder, publisher Publisher) *TransformerSink {
	return &TransformerSink{store: store, recorder: recorder, publisher: publisher}
}

func (s *TransformerSink) Store(ctx context.Context, deviceID int64, records []senml.Record) error {
	if len(records) == 0 {
		return ErrEmptyEnvelope
	}

	m := &TransformerMeasurement{
		DeviceID: deviceID,
		State:    StateUnknown,
	}
	for _, rec := range records {
		if rec.Kind != senml.Numeric {
			continue
		}
		switch rec.Name {
		case fieldState:
			// State is transmitted scaled like every other value but is
			// an integer code, so the fraction is discarded.
			m.State = senml.Integer(rec.Value)
		case fieldCurrentA:
			m.Ia = senml.Decimal(rec.Value)
		case fieldCurrentB:
			m.Ib = senml.Decimal(rec.Value)
		case fieldCurrentC:
			m.Ic = senml.Decimal(rec.Value)
		case fieldVoltageA:
			m.Va = senml.Decimal(rec.Value)
		case fieldVoltageB:
			m.Vb = senml.Decimal(rec.Value)
		case fieldVoltageC:
			m.Vc = senml.Decimal(rec.Value)
		}
	}

	if err := s.store.Insert(ctx, m); err != nil {
		return err
	}

	if s.recorder != nil {
		s.recorder.RecordTransformer(m)
	}
	if s.publisher != nil {
		s.publisher.PublishTransformer(m)
	}
	return nil
}
