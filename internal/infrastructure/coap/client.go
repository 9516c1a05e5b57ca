package coap

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/plgd-dev/go-coap/v3/message"
	"github.com/plgd-dev/go-coap/v3/message/codes"
	"github.com/plgd-dev/go-coap/v3/message/pool"
	"github.com/plgd-dev/go-coap/v3/udp"
)

// Client sends confirmable requests to devices and opens observe
// relations. One Client serves all devices; each request or observation
// dials its own short-lived connection, matching the request pattern of
// constrained UDP endpoints.
type Client struct {
	devicePort int
	timeout    time.Duration
	logger     Logger
}

// NewClient creates a client targeting the given device UDP port with a
// per-request timeout.
func NewClient(devicePort int, timeout time.Duration) *Client {
	return &Client{
		devicePort: devicePort,
		timeout:    timeout,
		logger:     noopLogger{},
	}
}

// SetLogger sets the logger for the client.
func (c *Client) SetLogger(logger Logger) {
	c.logger = logger
}

func (c *Client) target(address string) string {
	return net.JoinHostPort(address, strconv.Itoa(c.devicePort))
}

// Put sends body to the device resource and succeeds only on a Changed
// acknowledgment.
func (c *Client) Put(ctx context.Context, address, resource string, body []byte) error {
	conn, err := udp.Dial(c.target(address))
	if err != nil {
		return fmt.Errorf("dial %s: %w", address, err)
	}
	defer conn.Close() //nolint:errcheck // Short-lived connection

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := conn.Put(ctx, resource, message.AppJSON, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", address, resource, err)
	}
	if resp.Code() != codes.Changed {
		return fmt.Errorf("%w: %s/%s answered %v", ErrNotChanged, address, resource, resp.Code())
	}
	return nil
}

// Get reads the device resource and succeeds only on a Content response.
func (c *Client) Get(ctx context.Context, address, resource string) ([]byte, error) {
	conn, err := udp.Dial(c.target(address))
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", address, err)
	}
	defer conn.Close() //nolint:errcheck // Short-lived connection

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := conn.Get(ctx, resource)
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", address, resource, err)
	}
	if resp.Code() != codes.Content {
		return nil, fmt.Errorf("%w: %s/%s answered %v", ErrNoContent, address, resource, resp.Code())
	}

	body, err := resp.ReadBody()
	if err != nil {
		return nil, fmt.Errorf("read body from %s/%s: %w", address, resource, err)
	}
	return body, nil
}

// observation is a live observe relation: its connection stays open for
// the relation's lifetime.
type observation struct {
	conn interface {
		Close() error
	}
	cancel func(ctx context.Context) error

	mu   sync.Mutex
	done bool
}

// Cancel deregisters the observation and closes its connection.
// Idempotent.
func (o *observation) Cancel(ctx context.Context) error {
	o.mu.Lock()
	if o.done {
		o.mu.Unlock()
		return nil
	}
	o.done = true
	o.mu.Unlock()

	err := o.cancel(ctx)
	if cerr := o.conn.Close(); err == nil {
		err = cerr
	}
	return err
}

func (o *observation) finished() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.done
}

// Observation is a cancellable observe relation.
type Observation interface {
	Cancel(ctx context.Context) error
}

// Observe opens an observe relation on the device resource. onNotify
// receives every notification payload; onError fires once if the
// connection dies while the observation is still wanted.
func (c *Client) Observe(ctx context.Context, address, resource string,
	onNotify func(payload []byte), onError func(err error)) (Observation, error) {
	conn, err := udp.Dial(c.target(address))
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", address, err)
	}

	openCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	obs, err := conn.Observe(openCtx, resource, func(msg *pool.Message) {
		body, err := msg.ReadBody()
		if err != nil {
			c.logger.Warn("unreadable notification", "address", address, "resource", resource, "error", err)
			return
		}
		onNotify(body)
	})
	if err != nil {
		conn.Close() //nolint:errcheck // Dial succeeded, observe did not
		return nil, fmt.Errorf("%w: %s/%s: %v", ErrObserveRejected, address, resource, err)
	}

	o := &observation{
		conn:   conn,
		cancel: func(ctx context.Context) error { return obs.Cancel(ctx) },
	}

	// Surface a dead connection to the owner unless it was cancelled on
	// purpose.
	go func() {
		<-conn.Context().Done()
		if !o.finished() {
			onError(fmt.Errorf("connection to %s lost", address))
		}
	}()

	return o, nil
}
