// Package api provides the HTTP REST API for SparkGrid Core.
//
// It exposes the device directory, stored telemetry, consumption reports,
// and grid control operations to operator tooling and dashboards. Device
// control requests are forwarded to the command coordinator, which talks
// CoAP to the devices themselves.
//
// The server follows the same lifecycle pattern as other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sparkgrid/grid-core/internal/audit"
	"github.com/sparkgrid/grid-core/internal/command"
	"github.com/sparkgrid/grid-core/internal/device"
	"github.com/sparkgrid/grid-core/internal/infrastructure/config"
	"github.com/sparkgrid/grid-core/internal/infrastructure/logging"
	"github.com/sparkgrid/grid-core/internal/measurement"
	"github.com/sparkgrid/grid-core/internal/observation"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config       config.APIConfig
	Logger       *logging.Logger
	Directory    device.Repository
	Power        measurement.PowerStore
	Transformers measurement.TransformerStore
	Commands     *command.Coordinator
	Observations *observation.Manager
	Audit        audit.Repository
	Version      string
}

// Server is the HTTP API server for SparkGrid Core.
//
// It manages the HTTP listener, routes, and middleware. The server is
// created with New() and started with Start().
type Server struct {
	cfg          config.APIConfig
	logger       *logging.Logger
	directory    device.Repository
	power        measurement.PowerStore
	transformers measurement.TransformerStore
	commands     *command.Coordinator
	observations *observation.Manager
	audit        audit.Repository
	version      string
	server       *http.Server
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Directory == nil {
		return nil, fmt.Errorf("device directory is required")
	}
	if deps.Power == nil || deps.Transformers == nil {
		return nil, fmt.Errorf("measurement stores are required")
	}
	// Commands and Observations are optional — read endpoints still
	// function when the CoAP side is not wired (tests, tooling).

	return &Server{
		cfg:          deps.Config,
		logger:       deps.Logger,
		directory:    deps.Directory,
		power:        deps.Power,
		transformers: deps.Transformers,
		commands:     deps.Commands,
		observations: deps.Observations,
		audit:        deps.Audit,
		version:      deps.Version,
	}, nil
}

// Start begins listening for HTTP connections.
//
// It sets up the router and launches the HTTP listener in a background
// goroutine. The server can be stopped with Close().
func (s *Server) Start(_ context.Context) error {
	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		err := s.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
