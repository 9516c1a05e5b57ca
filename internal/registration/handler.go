package registration

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sparkgrid/grid-core/internal/device"
)

// Logger defines the logging interface used by the Handler.
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

// ObservationOpener opens the class resource subscription for a freshly
// registered device.
type ObservationOpener interface {
	Open(ctx context.Context, deviceID int64, address string, class device.Class) error
}

// Announcer publishes registration events. A nil announcer disables it.
type Announcer interface {
	AnnounceRegistration(identity *device.Identity)
}

// Request is one device registration. SourceAddress is taken from the
// transport layer, never from the request body, so a device cannot claim
// another device's address.
type Request struct {
	FullName      string `json:"full_name"`
	Alias         string `json:"alias"`
	Class         int    `json:"type"`
	SourceAddress string `json:"-"`
}

// ParseRequest decodes a registration request body.
func ParseRequest(body []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return req, nil
}

// Response is the class-specific registration outcome. MaxPower is in
// watts (the stored kW value scaled by 1000) and, with Status, is only
// meaningful for power meters.
type Response struct {
	Identity *device.Identity
	MaxPower int64
	Status   bool
}

// responseBody is the wire shape of a power meter's registration reply.
type responseBody struct {
	FullName string `json:"full_name"`
	Alias    string `json:"alias"`
	Class    int    `json:"type"`
	MaxPower int64  `json:"max_power"`
	Status   bool   `json:"status"`
}

// Payload renders the response body. Transformers get a bare ack, so the
// payload is nil for them.
func (r *Response) Payload() ([]byte, error) {
	if r.Identity.Class != device.ClassPowerMeter {
		return nil, nil
	}
	return json.Marshal(responseBody{
		FullName: r.Identity.FullName,
		Alias:    r.Identity.Alias,
		Class:    int(r.Identity.Class),
		MaxPower: r.MaxPower,
		Status:   r.Status,
	})
}

// Handler admits devices: validate, upsert, cache, respond, subscribe.
type Handler struct {
	repo      device.Repository
	cache     *device.Cache
	opener    ObservationOpener
	announcer Announcer
	logger    Logger
}

// NewHandler creates a registration handler. announcer may be nil.
func NewHandler(repo device.Repository, cache *device.Cache, opener ObservationOpener, announcer Announcer) *Handler {
	return &Handler{
		repo:      repo,
		cache:     cache,
		opener:    opener,
		announcer: announcer,
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger for the handler.
func (h *Handler) SetLogger(logger Logger) {
	h.logger = logger
}

// Register admits one device: validate, upsert, cache, build response.
// The identity cache is updated before the response is built and before
// any subscription is opened, so a notification can never arrive for a
// device the dispatcher cannot resolve.
func (h *Handler) Register(ctx context.Context, req Request) (*Response, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	class := device.Class(req.Class)

	identity, err := h.repo.RegisterOrFetch(ctx, req.FullName, class, req.Alias, req.SourceAddress)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}

	h.cache.Insert(identity.FullName, identity.ID, identity.Class)

	resp := &Response{
		Identity: identity,
		MaxPower: int64(identity.MaxPower * 1000),
		Status:   identity.Enabled,
	}

	h.logger.Info("device registered",
		"device_id", identity.ID,
		"full_name", identity.FullName,
		"class", identity.Class.String(),
		"address", identity.Address)

	if h.announcer != nil {
		h.announcer.AnnounceRegistration(identity)
	}

	return resp, nil
}

// OpenSubscription asks the observation manager for the device's class
// resource. Called by the transport adapter once the registration response
// has been written, never before.
//
// A failure here leaves the device registered and answering direct reads;
// only the push channel is missing until it re-registers.
func (h *Handler) OpenSubscription(ctx context.Context, identity *device.Identity) {
	if err := h.opener.Open(ctx, identity.ID, identity.Address, identity.Class); err != nil {
		h.logger.Error("subscription after registration failed",
			"device_id", identity.ID, "error", err)
	}
}

func validate(req Request) error {
	if req.FullName == "" {
		return fmt.Errorf("%w: full_name is required", ErrInvalidRequest)
	}
	if req.Alias == "" {
		return fmt.Errorf("%w: alias is required", ErrInvalidRequest)
	}
	if !device.Class(req.Class).Valid() {
		return fmt.Errorf("%w: unknown device type %d", ErrInvalidRequest, req.Class)
	}
	if req.SourceAddress == "" {
		return fmt.Errorf("%w: no source address", ErrInvalidRequest)
	}
	return nil
}
