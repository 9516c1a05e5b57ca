package coap

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/plgd-dev/go-coap/v3/message"
	"github.com/plgd-dev/go-coap/v3/message/codes"
	"github.com/plgd-dev/go-coap/v3/mux"
	coapnet "github.com/plgd-dev/go-coap/v3/net"
	"github.com/plgd-dev/go-coap/v3/options"
	"github.com/plgd-dev/go-coap/v3/udp"
	udpserver "github.com/plgd-dev/go-coap/v3/udp/server"
)

// Logger defines the logging interface used by this package.
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

// Code is the outcome of a handled request, mapped onto CoAP response
// codes by the server.
type Code int

const (
	CodeContent Code = iota
	CodeCreated
	CodeChanged
	CodeBadRequest
	CodeUnsupportedFormat
	CodeNotFound
	CodeInternalError
)

func (c Code) wire() codes.Code {
	switch c {
	case CodeContent:
		return codes.Content
	case CodeCreated:
		return codes.Created
	case CodeChanged:
		return codes.Changed
	case CodeBadRequest:
		return codes.BadRequest
	case CodeUnsupportedFormat:
		return codes.UnsupportedMediaType
	case CodeNotFound:
		return codes.NotFound
	default:
		return codes.InternalServerError
	}
}

// Request is one inbound request as the domain handlers see it.
type Request struct {
	Path    string
	Payload []byte

	// SourceAddress is the peer's host, taken from the transport.
	SourceAddress string

	// JSON reports whether the request declared the JSON content format.
	JSON bool
}

// Response is what a domain handler returns. A nil Payload produces a
// bare response with only the code. After, when set, runs in its own
// goroutine once the response has been handed to the transport. Use it
// for follow-up work that must not precede the reply, such as opening
// an observe relation back to the peer.
type Response struct {
	Code    Code
	Payload []byte
	After   func()
}

// HandlerFunc handles one request for a registered resource.
type HandlerFunc func(ctx context.Context, req *Request) *Response

// Server is the device-facing CoAP endpoint.
type Server struct {
	addr     string
	router   *mux.Router
	server   *udpserver.Server
	listener *coapnet.UDPConn
	logger   Logger
}

// ServerConfig contains the listen settings for the CoAP server.
type ServerConfig struct {
	Host string
	Port int
}

// NewServer creates a CoAP server listening on the configured address.
// Resources must be registered with Handle before ListenAndServe.
func NewServer(cfg ServerConfig) *Server {
	return &Server{
		addr:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		router: mux.NewRouter(),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the server.
func (s *Server) SetLogger(logger Logger) {
	s.logger = logger
}

// Handle registers a handler for a resource path.
func (s *Server) Handle(path string, h HandlerFunc) {
	s.router.Handle(path, mux.HandlerFunc(func(w mux.ResponseWriter, m *mux.Message) {
		req := &Request{Path: path}

		if body, err := m.ReadBody(); err == nil {
			req.Payload = body
		}
		if cf, err := m.ContentFormat(); err == nil {
			req.JSON = cf == message.AppJSON
		}
		if addr := w.Conn().RemoteAddr(); addr != nil {
			req.SourceAddress = hostOnly(addr.String())
		}

		resp := h(m.Context(), req)
		if resp == nil {
			resp = &Response{Code: CodeInternalError}
		}

		if err := w.SetResponse(resp.Code.wire(), message.AppJSON, bytes.NewReader(resp.Payload)); err != nil {
			s.logger.Error("writing response failed", "path", path, "error", err)
		}

		if resp.After != nil {
			go resp.After()
		}
	}))
}

// ListenAndServe binds the UDP socket and serves until Stop is called.
func (s *Server) ListenAndServe() error {
	listener, err := coapnet.NewListenUDP("udp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	s.listener = listener
	s.server = udp.NewServer(options.WithMux(s.router))

	s.logger.Info("coap server listening", "address", s.addr)
	if err := s.server.Serve(listener); err != nil {
		return fmt.Errorf("coap serve: %w", err)
	}
	return nil
}

// Stop shuts the server down and closes the socket.
func (s *Server) Stop() {
	if s.server != nil {
		s.server.Stop()
	}
	if s.listener != nil {
		s.listener.Close() //nolint:errcheck // Best effort on shutdown
	}
}

// hostOnly strips the port from a host:port address. Addresses without a
// port pass through unchanged.
func hostOnly(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
