package observation

import (
	"context"
	"fmt"
	"sync"

	"github.com/sparkgrid/grid-core/internal/device"
	"github.com/sparkgrid/grid-core/internal/senml"
)

// Logger defines the logging interface used by the Manager.
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

// Transport establishes observe relations against devices. onNotify is
// invoked per notification payload; onError is invoked when the transport
// can no longer sustain the relation.
type Transport interface {
	Observe(ctx context.Context, address, resource string,
		onNotify func(payload []byte), onError func(err error)) (Subscription, error)
}

// Dispatcher consumes the decoded envelopes delivered by notifications.
type Dispatcher interface {
	Dispatch(ctx context.Context, env senml.Envelope) error
}

// Manager owns all observe relations, keyed by device id.
//
// Open replaces any existing relation for the device: a re-registration
// usually means the device rebooted and its old relation is stale on our
// side only, so the old one is cancelled before the new observe is sent.
type Manager struct {
	transport  Transport
	dispatcher Dispatcher
	logger     Logger

	mu        sync.Mutex
	relations map[int64]*Relation
}

// NewManager creates a relation manager using transport for observes and
// dispatcher for decoded notifications.
func NewManager(transport Transport, dispatcher Dispatcher) *Manager {
	return &Manager{
		transport:  transport,
		dispatcher: dispatcher,
		logger:     noopLogger{},
		relations:  make(map[int64]*Relation),
	}
}

// SetLogger sets the logger for the manager.
func (m *Manager) SetLogger(logger Logger) {
	m.logger = logger
}

// Open establishes an observe relation for the device's class resource.
// If the device already has a relation it is cancelled first.
func (m *Manager) Open(ctx context.Context, deviceID int64, address string, class device.Class) error {
	resource, err := ResourceFor(class)
	if err != nil {
		return err
	}

	rel := &Relation{
		DeviceID: deviceID,
		Address:  address,
		Resource: resource,
		state:    StatePending,
	}

	m.mu.Lock()
	old := m.relations[deviceID]
	m.relations[deviceID] = rel
	m.mu.Unlock()

	if old != nil {
		m.teardown(ctx, old)
	}

	sub, err := m.transport.Observe(ctx, address, resource,
		func(payload []byte) { m.deliver(rel, payload) },
		func(err error) { m.fail(rel, err) },
	)
	if err != nil {
		m.mu.Lock()
		if m.relations[deviceID] == rel {
			delete(m.relations, deviceID)
		}
		m.mu.Unlock()
		return fmt.Errorf("%w: device %d at %s/%s: %v", ErrObserveFailed, deviceID, address, resource, err)
	}

	if !rel.activate(sub) {
		// Cancelled while the observe was in flight; undo it.
		if err := sub.Cancel(ctx); err != nil {
			m.logger.Warn("cancel of superseded relation failed", "device_id", deviceID, "error", err)
		}
		return nil
	}

	m.logger.Info("observe relation established",
		"device_id", deviceID, "address", address, "resource", resource)
	return nil
}

// Close cancels the device's relation.
func (m *Manager) Close(ctx context.Context, deviceID int64) error {
	m.mu.Lock()
	rel, ok := m.relations[deviceID]
	if ok {
		delete(m.relations, deviceID)
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %d", ErrNotObserved, deviceID)
	}
	m.teardown(ctx, rel)
	return nil
}

// CloseAll cancels every relation. Used at shutdown.
func (m *Manager) CloseAll(ctx context.Context) {
	m.mu.Lock()
	all := make([]*Relation, 0, len(m.relations))
	for _, rel := range m.relations {
		all = append(all, rel)
	}
	m.relations = make(map[int64]*Relation)
	m.mu.Unlock()

	for _, rel := range all {
		m.teardown(ctx, rel)
	}
}

// StateOf reports the relation state for a device.
func (m *Manager) StateOf(deviceID int64) (State, bool) {
	m.mu.Lock()
	rel, ok := m.relations[deviceID]
	m.mu.Unlock()
	if !ok {
		return StateCancelled, false
	}
	return rel.State(), true
}

// Count returns the number of tracked relations.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.relations)
}

func (m *Manager) teardown(ctx context.Context, rel *Relation) {
	sub, ok := rel.cancel()
	if !ok {
		return
	}
	if err := sub.Cancel(ctx); err != nil {
		m.logger.Warn("observe cancel failed",
			"device_id", rel.DeviceID, "resource", rel.Resource, "error", err)
		return
	}
	m.logger.Info("observe relation cancelled", "device_id", rel.DeviceID, "resource", rel.Resource)
}

// fail tears the relation down after a transport-reported error. The
// relation stays tracked, in Cancelled, so its end is visible; there is no
// automatic resubscribe — the device must re-register to resume.
func (m *Manager) fail(rel *Relation, cause error) {
	m.logger.Warn("observe relation failed",
		"device_id", rel.DeviceID, "resource", rel.Resource, "error", cause)
	m.teardown(context.Background(), rel)
}

// deliver decodes one notification payload and dispatches it. Notification
// handling must never panic the transport goroutine, so every failure is
// logged and swallowed here.
func (m *Manager) deliver(rel *Relation, payload []byte) {
	if !rel.deliverable() {
		m.logger.Debug("notification after cancel dropped", "device_id", rel.DeviceID)
		return
	}

	env := senml.Decode(payload)
	if err := m.dispatcher.Dispatch(context.Background(), env); err != nil {
		m.logger.Warn("notification dispatch failed",
			"device_id", rel.DeviceID, "resource", rel.Resource, "error", err)
	}
}
