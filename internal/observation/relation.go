package observation

import (
	"context"
	"sync"

	"github.com/sparkgrid/grid-core/internal/device"
)

// Observable resources exposed by the device classes.
const (
	ResourcePower            = "power_obs"
	ResourceTransformerState = "transformer_state_obs"
)

// ResourceFor maps a device class to the resource the server observes on it.
func ResourceFor(class device.Class) (string, error) {
	switch class {
	case device.ClassPowerMeter:
		return ResourcePower, nil
	case device.ClassTransformer:
		return ResourceTransformerState, nil
	default:
		return "", ErrNoResource
	}
}

// State is the lifecycle state of an observe relation.
type State int

const (
	// StatePending means the observe request is in flight.
	StatePending State = iota
	// StateActive means the device accepted the relation and notifications
	// are expected.
	StateActive
	// StateCancelled is terminal; notifications arriving afterwards are
	// dropped.
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateActive:
		return "active"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Subscription is a live observe relation held at the transport layer.
type Subscription interface {
	Cancel(ctx context.Context) error
}

// Relation tracks one device's observe relation.
type Relation struct {
	DeviceID int64
	Address  string
	Resource string

	mu    sync.Mutex
	state State
	sub   Subscription
}

// State returns the relation's current lifecycle state.
func (r *Relation) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// activate marks the relation active and attaches its subscription.
// No-op when the relation was cancelled while the observe was in flight;
// the caller must then cancel the subscription it just obtained.
func (r *Relation) activate(sub Subscription) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateCancelled {
		return false
	}
	r.state = StateActive
	r.sub = sub
	return true
}

// cancel transitions the relation to Cancelled and returns the
// subscription to tear down, if any. Idempotent.
func (r *Relation) cancel() (Subscription, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateCancelled {
		return nil, false
	}
	r.state = StateCancelled
	sub := r.sub
	r.sub = nil
	return sub, sub != nil
}

// deliverable reports whether a notification for this relation should
// still be dispatched. The first notification can arrive before the
// observe call returns, so Pending relations deliver too.
func (r *Relation) deliverable() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state != StateCancelled
}
