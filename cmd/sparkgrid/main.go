// SparkGrid Core - Smart Grid Telemetry Server
//
// This is the main entry point for the SparkGrid Core application.
// SparkGrid Core admits smart meters and transformers over CoAP,
// observes their telemetry resources, stores measurements in SQLite,
// and exposes the grid to operator tooling over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/sparkgrid/grid-core/migrations"

	"github.com/sparkgrid/grid-core/internal/api"
	"github.com/sparkgrid/grid-core/internal/audit"
	"github.com/sparkgrid/grid-core/internal/command"
	"github.com/sparkgrid/grid-core/internal/device"
	"github.com/sparkgrid/grid-core/internal/infrastructure/coap"
	"github.com/sparkgrid/grid-core/internal/infrastructure/config"
	"github.com/sparkgrid/grid-core/internal/infrastructure/database"
	"github.com/sparkgrid/grid-core/internal/infrastructure/influxdb"
	"github.com/sparkgrid/grid-core/internal/infrastructure/logging"
	"github.com/sparkgrid/grid-core/internal/infrastructure/mqtt"
	"github.com/sparkgrid/grid-core/internal/measurement"
	"github.com/sparkgrid/grid-core/internal/observation"
	"github.com/sparkgrid/grid-core/internal/registration"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// registrationResource is the CoAP resource path devices POST to.
const registrationResource = "registration"

// shutdownTimeout bounds the observe relation teardown on exit.
const shutdownTimeout = 5 * time.Second

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting SparkGrid Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Device directory, audit trail and identity cache
	deviceRepo := device.NewSQLiteRepository(db.DB)
	auditRepo := audit.NewSQLiteRepository(db.DB)
	cache := device.NewCache()
	if warmErr := cache.WarmUp(ctx, deviceRepo); warmErr != nil {
		return fmt.Errorf("warming identity cache: %w", warmErr)
	}
	log.Info("identity cache warmed", "devices", cache.Len())

	// Connect to MQTT broker (optional event bus)
	var bus *mqtt.EventBus
	if cfg.MQTT.Enabled {
		mqttClient, mqttErr := mqtt.Connect(cfg.MQTT)
		if mqttErr != nil {
			return fmt.Errorf("connecting to MQTT: %w", mqttErr)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})

		bus = mqtt.NewEventBus(mqttClient, byte(cfg.MQTT.QoS))
		bus.SetLogger(log)
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional telemetry mirror)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Interface-typed mirrors must stay nil when the backends are off.
	var recorder measurement.Recorder
	if influxClient != nil {
		recorder = influxClient
	}
	var publisher measurement.Publisher
	var announcer registration.Announcer
	if bus != nil {
		publisher = bus
		announcer = bus
	}

	// Measurement pipeline: stores, sinks, dispatcher
	powerStore := measurement.NewSQLitePowerStore(db.DB)
	transformerStore := measurement.NewSQLiteTransformerStore(db.DB)

	dispatcher := measurement.NewDispatcher(cache, map[device.Class]measurement.Sink{
		device.ClassPowerMeter:  measurement.NewPowerSink(powerStore, recorder, publisher),
		device.ClassTransformer: measurement.NewTransformerSink(transformerStore, recorder, publisher),
	})
	dispatcher.SetLogger(log)

	// CoAP client talks back to devices: commands, reads, observations
	coapClient := coap.NewClient(cfg.CoAP.DevicePort, cfg.GetRequestTimeout())
	coapClient.SetLogger(log)

	// Observation manager pushes notifications through the dispatcher
	observations := observation.NewManager(&coapTransport{client: coapClient}, dispatcher)
	observations.SetLogger(log)
	defer func() {
		teardownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		observations.CloseAll(teardownCtx)
	}()

	// Registration handler admits devices announcing themselves
	registrations := registration.NewHandler(deviceRepo, cache, observations, announcer)
	registrations.SetLogger(log)

	// CoAP server: the device-facing endpoint
	coapServer := coap.NewServer(coap.ServerConfig{
		Host: cfg.CoAP.Host,
		Port: cfg.CoAP.Port,
	})
	coapServer.SetLogger(log)
	coapServer.Handle(registrationResource, registrationHandler(registrations, auditRepo, log))

	go func() {
		if serveErr := coapServer.ListenAndServe(); serveErr != nil {
			log.Error("CoAP server error", "error", serveErr)
		}
	}()
	defer func() {
		log.Info("stopping CoAP server")
		coapServer.Stop()
	}()
	log.Info("CoAP server started", "host", cfg.CoAP.Host, "port", cfg.CoAP.Port)

	// Command coordinator drives device round trips from the API
	commands := command.NewCoordinator(deviceRepo, coapClient)
	commands.SetLogger(log)

	// HTTP API for operator tooling
	apiServer, err := api.New(api.Deps{
		Config:       cfg.API,
		Logger:       log,
		Directory:    deviceRepo,
		Power:        powerStore,
		Transformers: transformerStore,
		Commands:     commands,
		Observations: observations,
		Audit:        auditRepo,
		Version:      version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := apiServer.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "host", cfg.API.Host, "port", cfg.API.Port)

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. CoAP server
	// 3. Observe relations
	// 4. InfluxDB / MQTT (if enabled)
	// 5. Database

	log.Info("SparkGrid Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses SPARKGRID_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("SPARKGRID_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
func healthCheck(ctx context.Context, db *database.DB, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}

// registrationHandler adapts the registration domain handler to the CoAP
// server. The observe relation back to the device is opened via the
// response's After hook, strictly after the registration reply has gone
// out. Successful registrations land in the audit trail.
func registrationHandler(h *registration.Handler, auditRepo audit.Repository, log *logging.Logger) coap.HandlerFunc {
	return func(ctx context.Context, req *coap.Request) *coap.Response {
		if !req.JSON {
			return &coap.Response{Code: coap.CodeUnsupportedFormat}
		}

		parsed, err := registration.ParseRequest(req.Payload)
		if err != nil {
			return &coap.Response{Code: coap.CodeBadRequest}
		}
		parsed.SourceAddress = req.SourceAddress

		resp, err := h.Register(ctx, parsed)
		if err != nil {
			if errors.Is(err, registration.ErrInvalidRequest) {
				return &coap.Response{Code: coap.CodeBadRequest}
			}
			return &coap.Response{Code: coap.CodeInternalError}
		}

		payload, err := resp.Payload()
		if err != nil {
			return &coap.Response{Code: coap.CodeInternalError}
		}

		identity := resp.Identity
		return &coap.Response{
			Code:    coap.CodeCreated,
			Payload: payload,
			After: func() {
				// The request context dies with the exchange; the
				// subscription outlives it.
				h.OpenSubscription(context.Background(), identity)

				entry := &audit.Entry{
					Action:   audit.ActionRegister,
					DeviceID: identity.ID,
					Outcome:  audit.OutcomeOK,
					Source:   "coap",
					Details:  map[string]any{"full_name": identity.FullName, "address": identity.Address},
				}
				if auditErr := auditRepo.Create(context.Background(), entry); auditErr != nil {
					log.Warn("audit write failed", "device_id", identity.ID, "error", auditErr)
				}
			},
		}
	}
}

// coapTransport adapts the CoAP client's observe API to the observation
// manager's transport interface.
type coapTransport struct {
	client *coap.Client
}

// Observe implements observation.Transport.
func (t *coapTransport) Observe(ctx context.Context, address, resource string,
	onNotify func(payload []byte), onError func(err error)) (observation.Subscription, error) {
	obs, err := t.client.Observe(ctx, address, resource, onNotify, onError)
	if err != nil {
		return nil, err
	}
	return obs, nil
}
