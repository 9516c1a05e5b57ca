package observation

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sparkgrid/grid-core/internal/device"
	"github.com/sparkgrid/grid-core/internal/senml"
)

type fakeSubscription struct {
	mu        sync.Mutex
	cancelled int
	err       error
}

func (s *fakeSubscription) Cancel(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelled++
	return s.err
}

func (s *fakeSubscription) cancels() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

// fakeTransport records observe calls and exposes the handlers it was
// given so tests can inject notifications.
type fakeTransport struct {
	mu       sync.Mutex
	err      error
	calls    []string
	handlers []func([]byte)
	errFns   []func(error)
	subs     []*fakeSubscription
}

func (t *fakeTransport) Observe(_ context.Context, address, resource string,
	onNotify func(payload []byte), onError func(err error)) (Subscription, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return nil, t.err
	}
	sub := &fakeSubscription{}
	t.calls = append(t.calls, address+"/"+resource)
	t.handlers = append(t.handlers, onNotify)
	t.errFns = append(t.errFns, onError)
	t.subs = append(t.subs, sub)
	return sub, nil
}

func (t *fakeTransport) notify(i int, payload []byte) {
	t.mu.Lock()
	h := t.handlers[i]
	t.mu.Unlock()
	h(payload)
}

func (t *fakeTransport) failRelation(i int, err error) {
	t.mu.Lock()
	f := t.errFns[i]
	t.mu.Unlock()
	f(err)
}

type fakeDispatcher struct {
	mu        sync.Mutex
	envelopes []senml.Envelope
	err       error
}

func (d *fakeDispatcher) Dispatch(_ context.Context, env senml.Envelope) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.envelopes = append(d.envelopes, env)
	return d.err
}

func (d *fakeDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.envelopes)
}

func TestResourceFor(t *testing.T) {
	if r, err := ResourceFor(device.ClassPowerMeter); err != nil || r != "power_obs" {
		t.Errorf("power meter resource = %q, %v", r, err)
	}
	if r, err := ResourceFor(device.ClassTransformer); err != nil || r != "transformer_state_obs" {
		t.Errorf("transformer resource = %q, %v", r, err)
	}
	if _, err := ResourceFor(device.Class(99)); !errors.Is(err, ErrNoResource) {
		t.Errorf("expected ErrNoResource, got %v", err)
	}
}

func TestManager_OpenEstablishesRelation(t *testing.T) {
	transport := &fakeTransport{}
	m := NewManager(transport, &fakeDispatcher{})

	if err := m.Open(context.Background(), 7, "10.0.0.5", device.ClassPowerMeter); err != nil {
		t.Fatalf("open: %v", err)
	}

	if len(transport.calls) != 1 || transport.calls[0] != "10.0.0.5/power_obs" {
		t.Errorf("observe calls = %v", transport.calls)
	}
	state, ok := m.StateOf(7)
	if !ok || state != StateActive {
		t.Errorf("relation state = %v (tracked=%v), want active", state, ok)
	}
	if m.Count() != 1 {
		t.Errorf("relation count = %d, want 1", m.Count())
	}
}

func TestManager_OpenFailureLeavesNoRelation(t *testing.T) {
	transport := &fakeTransport{err: errors.New("no route to host")}
	m := NewManager(transport, &fakeDispatcher{})

	err := m.Open(context.Background(), 7, "10.0.0.5", device.ClassPowerMeter)
	if !errors.Is(err, ErrObserveFailed) {
		t.Fatalf("expected ErrObserveFailed, got %v", err)
	}
	if m.Count() != 0 {
		t.Errorf("relation count = %d after failed open", m.Count())
	}
}

func TestManager_NotificationDispatched(t *testing.T) {
	transport := &fakeTransport{}
	dispatcher := &fakeDispatcher{}
	m := NewManager(transport, dispatcher)

	if err := m.Open(context.Background(), 7, "10.0.0.5", device.ClassPowerMeter); err != nil {
		t.Fatalf("open: %v", err)
	}

	transport.notify(0, []byte(`{"bn":"house_1","e":[{"n":"power","v":650000}]}`))

	if dispatcher.count() != 1 {
		t.Fatalf("expected 1 dispatched envelope, got %d", dispatcher.count())
	}
	env := dispatcher.envelopes[0]
	if env.BaseName != "house_1" {
		t.Errorf("base name = %q", env.BaseName)
	}
	if len(env.Records) != 1 || env.Records[0].Value != 650000 {
		t.Errorf("records = %+v", env.Records)
	}
}

func TestManager_ReopenCancelsPrevious(t *testing.T) {
	transport := &fakeTransport{}
	m := NewManager(transport, &fakeDispatcher{})
	ctx := context.Background()

	if err := m.Open(ctx, 7, "10.0.0.5", device.ClassPowerMeter); err != nil {
		t.Fatalf("first open: %v", err)
	}
	if err := m.Open(ctx, 7, "10.0.0.9", device.ClassPowerMeter); err != nil {
		t.Fatalf("second open: %v", err)
	}

	if transport.subs[0].cancels() != 1 {
		t.Errorf("first subscription cancels = %d, want 1", transport.subs[0].cancels())
	}
	if transport.subs[1].cancels() != 0 {
		t.Errorf("second subscription cancelled prematurely")
	}
	if m.Count() != 1 {
		t.Errorf("relation count = %d, want 1", m.Count())
	}
}

func TestManager_CloseCancelsAndDropsLateNotifications(t *testing.T) {
	transport := &fakeTransport{}
	dispatcher := &fakeDispatcher{}
	m := NewManager(transport, dispatcher)
	ctx := context.Background()

	if err := m.Open(ctx, 7, "10.0.0.5", device.ClassPowerMeter); err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := m.Close(ctx, 7); err != nil {
		t.Fatalf("close: %v", err)
	}

	if transport.subs[0].cancels() != 1 {
		t.Errorf("subscription cancels = %d, want 1", transport.subs[0].cancels())
	}
	if m.Count() != 0 {
		t.Errorf("relation count = %d, want 0", m.Count())
	}

	// A notification still in flight after cancel must not reach the
	// dispatcher.
	transport.notify(0, []byte(`{"bn":"house_1","e":[{"n":"power","v":100}]}`))
	if dispatcher.count() != 0 {
		t.Errorf("late notification dispatched")
	}
}

func TestManager_CloseUnknownDevice(t *testing.T) {
	m := NewManager(&fakeTransport{}, &fakeDispatcher{})
	if err := m.Close(context.Background(), 42); !errors.Is(err, ErrNotObserved) {
		t.Fatalf("expected ErrNotObserved, got %v", err)
	}
}

func TestManager_CloseAll(t *testing.T) {
	transport := &fakeTransport{}
	m := NewManager(transport, &fakeDispatcher{})
	ctx := context.Background()

	if err := m.Open(ctx, 1, "10.0.0.1", device.ClassPowerMeter); err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := m.Open(ctx, 2, "10.0.0.2", device.ClassTransformer); err != nil {
		t.Fatalf("open: %v", err)
	}

	m.CloseAll(ctx)

	if m.Count() != 0 {
		t.Errorf("relation count = %d after CloseAll", m.Count())
	}
	for i, sub := range transport.subs {
		if sub.cancels() != 1 {
			t.Errorf("subscription %d cancels = %d, want 1", i, sub.cancels())
		}
	}
}

func TestManager_TransportErrorCancelsRelation(t *testing.T) {
	transport := &fakeTransport{}
	dispatcher := &fakeDispatcher{}
	m := NewManager(transport, dispatcher)

	if err := m.Open(context.Background(), 7, "10.0.0.5", device.ClassPowerMeter); err != nil {
		t.Fatalf("open: %v", err)
	}

	transport.failRelation(0, errors.New("peer unreachable"))

	state, ok := m.StateOf(7)
	if !ok || state != StateCancelled {
		t.Fatalf("relation state = %v (tracked=%v), want cancelled", state, ok)
	}
	if transport.subs[0].cancels() != 1 {
		t.Errorf("subscription cancels = %d, want 1", transport.subs[0].cancels())
	}

	// Notifications on the dead relation are never dispatched.
	transport.notify(0, []byte(`{"bn":"house_1","e":[{"n":"power","v":100}]}`))
	if dispatcher.count() != 0 {
		t.Errorf("notification dispatched after transport error")
	}

	// A fresh registration replaces the dead relation.
	if err := m.Open(context.Background(), 7, "10.0.0.6", device.ClassPowerMeter); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if state, _ := m.StateOf(7); state != StateActive {
		t.Errorf("relation state after reopen = %v, want active", state)
	}
}

func TestManager_DispatchErrorDoesNotPanic(t *testing.T) {
	transport := &fakeTransport{}
	dispatcher := &fakeDispatcher{err: errors.New("unknown device")}
	m := NewManager(transport, dispatcher)

	if err := m.Open(context.Background(), 7, "10.0.0.5", device.ClassPowerMeter); err != nil {
		t.Fatalf("open: %v", err)
	}
	transport.notify(0, []byte(`{"bn":"ghost","e":[{"n":"power","v":1}]}`))

	// The relation survives a dispatch failure.
	if state, ok := m.StateOf(7); !ok || state != StateActive {
		t.Errorf("relation state = %v after dispatch error", state)
	}
}
