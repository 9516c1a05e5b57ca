package measurement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sparkgrid/grid-core/internal/device"
	"github.com/sparkgrid/grid-core/internal/senml"
)

// memPowerStore collects inserted power measurements.
type memPowerStore struct {
	inserted []PowerMeasurement
	err      error
}

func (s *memPowerStore) Insert(_ context.Context, m *PowerMeasurement) error {
	if s.err != nil {
		return s.err
	}
	m.ID = int64(len(s.inserted) + 1)
	if m.RecordedAt.IsZero() {
		m.RecordedAt = time.Now().UTC()
	}
	s.inserted = append(s.inserted, *m)
	return nil
}

func (s *memPowerStore) ListByDevice(context.Context, int64, int) ([]PowerMeasurement, error) {
	return s.inserted, nil
}

func (s *memPowerStore) HourlyReport(context.Context, int64, time.Time) ([]HourlyPower, error) {
	return nil, nil
}

func (s *memPowerStore) Summary(context.Context, int64) (*PowerSummary, error) {
	return &PowerSummary{}, nil
}

// memTransformerStore collects inserted transformer measurements.
type memTransformerStore struct {
	inserted []TransformerMeasurement
}

func (s *memTransformerStore) Insert(_ context.Context, m *TransformerMeasurement) error {
	m.ID = int64(len(s.inserted) + 1)
	s.inserted = append(s.inserted, *m)
	return nil
}

func (s *memTransformerStore) ListByDevice(context.Context, int64, int) ([]TransformerMeasurement, error) {
	return s.inserted, nil
}

// countingSink records every Store call.
type countingSink struct {
	calls int
}

func (s *countingSink) Store(context.Context, int64, []senml.Record) error {
	s.calls++
	return nil
}

func newTestCache(t *testing.T) *device.Cache {
	t.Helper()
	cache := device.NewCache()
	cache.Insert("house_1", 7, device.ClassPowerMeter)
	cache.Insert("transformer_1", 3, device.ClassTransformer)
	return cache
}

func TestDispatcher_EmptyEnvelopeDropped(t *testing.T) {
	sink := &countingSink{}
	d := NewDispatcher(newTestCache(t), map[device.Class]Sink{
		device.ClassPowerMeter: sink,
	})

	err := d.Dispatch(context.Background(), senml.Envelope{BaseName: "house_1"})
	if !errors.Is(err, ErrEmptyEnvelope) {
		t.Fatalf("expected ErrEmptyEnvelope, got %v", err)
	}
	if sink.calls != 0 {
		t.Errorf("sink invoked %d times for empty envelope", sink.calls)
	}
}

func TestDispatcher_UnknownDeviceDropped(t *testing.T) {
	sink := &countingSink{}
	d := NewDispatcher(newTestCache(t), map[device.Class]Sink{
		device.ClassPowerMeter: sink,
	})

	env := senml.Envelope{
		BaseName: "house_99",
		Records:  []senml.Record{{Name: "power", Kind: senml.Numeric, Value: 100}},
	}
	err := d.Dispatch(context.Background(), env)
	if !errors.Is(err, ErrUnknownDevice) {
		t.Fatalf("expected ErrUnknownDevice, got %v", err)
	}
	if sink.calls != 0 {
		t.Errorf("sink invoked %d times for unknown device", sink.calls)
	}
}

func TestDispatcher_NoSinkForClass(t *testing.T) {
	d := NewDispatcher(newTestCache(t), map[device.Class]Sink{})

	env := senml.Envelope{
		BaseName: "house_1",
		Records:  []senml.Record{{Name: "power", Kind: senml.Numeric, Value: 100}},
	}
	if err := d.Dispatch(context.Background(), env); !errors.Is(err, ErrNoSink) {
		t.Fatalf("expected ErrNoSink, got %v", err)
	}
}

func TestDispatcher_PowerMeterEnvelope(t *testing.T) {
	store := &memPowerStore{}
	d := NewDispatcher(newTestCache(t), map[device.Class]Sink{
		device.ClassPowerMeter: NewPowerSink(store, nil, nil),
	})

	env := senml.Envelope{
		BaseName: "house_1",
		Records:  []senml.Record{{Name: "power", Kind: senml.Numeric, Value: 650000}},
	}
	if err := d.Dispatch(context.Background(), env); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	if len(store.inserted) != 1 {
		t.Fatalf("expected 1 measurement, got %d", len(store.inserted))
	}
	got := store.inserted[0]
	if got.DeviceID != 7 {
		t.Errorf("device id = %d, want 7", got.DeviceID)
	}
	if got.Power != 6500.00 {
		t.Errorf("power = %v, want 6500.00", got.Power)
	}
}

func TestDispatcher_TransformerEnvelope(t *testing.T) {
	store := &memTransformerStore{}
	d := NewDispatcher(newTestCache(t), map[device.Class]Sink{
		device.ClassTransformer: NewTransformerSink(store, nil, nil),
	})

	env := senml.Envelope{
		BaseName: "transformer_1",
		Records: []senml.Record{
			{Name: "state", Kind: senml.Numeric, Value: 200},
			{Name: "current_A", Kind: senml.Numeric, Value: 150},
			{Name: "voltage_A", Kind: senml.Numeric, Value: 23000},
		},
	}
	if err := d.Dispatch(context.Background(), env); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	if len(store.inserted) != 1 {
		t.Fatalf("expected 1 measurement, got %d", len(store.inserted))
	}
	got := store.inserted[0]
	if got.DeviceID != 3 {
		t.Errorf("device id = %d, want 3", got.DeviceID)
	}
	if got.State != 2 {
		t.Errorf("state = %d, want 2", got.State)
	}
	if got.Ia != 1.5 {
		t.Errorf("Ia = %v, want 1.5", got.Ia)
	}
	if got.Va != 230.0 {
		t.Errorf("Va = %v, want 230.0", got.Va)
	}
	// Fields the envelope never mentioned stay at their zero value.
	if got.Ib != 0 || got.Ic != 0 || got.Vb != 0 || got.Vc != 0 {
		t.Errorf("absent fields not zero: %+v", got)
	}
}

func TestPowerSink_TrailingRecordsIgnored(t *testing.T) {
	store := &memPowerStore{}
	sink := NewPowerSink(store, nil, nil)

	records := []senml.Record{
		{Name: "power", Kind: senml.Numeric, Value: 12345},
		{Name: "power", Kind: senml.Numeric, Value: 99999},
	}
	if err := sink.Store(context.Background(), 7, records); err != nil {
		t.Fatalf("store: %v", err)
	}
	if len(store.inserted) != 1 {
		t.Fatalf("expected 1 measurement, got %d", len(store.inserted))
	}
	if store.inserted[0].Power != 123.45 {
		t.Errorf("power = %v, want 123.45", store.inserted[0].Power)
	}
}

func TestPowerSink_NonNumericFirstRecord(t *testing.T) {
	store := &memPowerStore{}
	sink := NewPowerSink(store, nil, nil)

	records := []senml.Record{
		{Name: "power", Kind: senml.StringValue, StringVal: "lots"},
	}
	if err := sink.Store(context.Background(), 7, records); !errors.Is(err, ErrNotNumeric) {
		t.Fatalf("expected ErrNotNumeric, got %v", err)
	}
	if len(store.inserted) != 0 {
		t.Errorf("measurement stored despite non-numeric value")
	}
}

func TestTransformerSink_MissingStateIsUnknown(t *testing.T) {
	store := &memTransformerStore{}
	sink := NewTransformerSink(store, nil, nil)

	records := []senml.Record{
		{Name: "voltage_B", Kind: senml.Numeric, Value: 22987},
	}
	if err := sink.Store(context.Background(), 3, records); err != nil {
		t.Fatalf("store: %v", err)
	}
	got := store.inserted[0]
	if got.State != StateUnknown {
		t.Errorf("state = %d, want %d", got.State, StateUnknown)
	}
	if got.Vb != 229.87 {
		t.Errorf("Vb = %v, want 229.87", got.Vb)
	}
}

func TestTransformerSink_UnrecognizedNamesSkipped(t *testing.T) {
	store := &memTransformerStore{}
	sink := NewTransformerSink(store, nil, nil)

	records := []senml.Record{
		{Name: "humidity", Kind: senml.Numeric, Value: 5500},
		{Name: "state", Kind: senml.Numeric, Value: 100},
		{Name: "current_A", Kind: senml.BoolValue, BoolVal: true},
	}
	if err := sink.Store(context.Background(), 3, records); err != nil {
		t.Fatalf("store: %v", err)
	}
	got := store.inserted[0]
	if got.State != 1 {
		t.Errorf("state = %d, want 1", got.State)
	}
	if got.Ia != 0 {
		t.Errorf("Ia = %v, want 0 (bool-valued record must be skipped)", got.Ia)
	}
}

// stubRecorder and stubPublisher verify the optional mirror hooks fire
// after a successful insert.
type stubRecorder struct {
	power        int
	transformers int
}

func (r *stubRecorder) RecordPower(int64, float64, time.Time) { r.power++ }
func (r *stubRecorder) RecordTransformer(*TransformerMeasurement) {
	r.transformers++
}

type stubPublisher struct {
	power        int
	transformers int
}

func (p *stubPublisher) PublishPower(*PowerMeasurement)             { p.power++ }
func (p *stubPublisher) PublishTransformer(*TransformerMeasurement) { p.transformers++ }

func TestSinks_MirrorHooks(t *testing.T) {
	rec := &stubRecorder{}
	pub := &stubPublisher{}

	power := NewPowerSink(&memPowerStore{}, rec, pub)
	records := []senml.Record{{Name: "power", Kind: senml.Numeric, Value: 100}}
	if err := power.Store(context.Background(), 7, records); err != nil {
		t.Fatalf("power store: %v", err)
	}

	tr := NewTransformerSink(&memTransformerStore{}, rec, pub)
	records = []senml.Record{{Name: "state", Kind: senml.Numeric, Value: 100}}
	if err := tr.Store(context.Background(), 3, records); err != nil {
		t.Fatalf("transformer store: %v", err)
	}

	if rec.power != 1 || rec.transformers != 1 {
		t.Errorf("recorder calls = %d/%d, want 1/1", rec.power, rec.transformers)
	}
	if pub.power != 1 || pub.transformers != 1 {
		t.Errorf("publisher calls = %d/%d, want 1/1", pub.power, pub.transformers)
	}
}

func TestPowerSink_InsertFailurePropagates(t *testing.T) {
	rec := &stubRecorder{}
	store := &memPowerStore{err: errors.New("disk full")}
	sink := NewPowerSink(store, rec, nil)

	records := []senml.Record{{Name: "power", Kind: senml.Numeric, Value: 100}}
	if err := sink.Store(context.Background(), 7, records); err == nil {
		t.Fatal("expected insert error")
	}
	if rec.power != 0 {
		t.Errorf("recorder fired despite failed insert")
	}
}
