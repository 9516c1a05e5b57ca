package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/audit", s.handleListAudit)

		// Device directory
		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetDevice)

				// Stored telemetry
				r.Get("/measurements", s.handleListMeasurements)
				r.Get("/reports/hourly", s.handleHourlyReport)
				r.Get("/reports/summary", s.handleConsumptionSummary)

				// Grid control (CoAP round trips)
				r.Get("/power", s.handleReadPower)
				r.Put("/status", s.handleSetStatus)
				r.Put("/max-power", s.handleSetMaxPower)
				r.Put("/transformer-settings", s.handleSetTransformerSettings)
			})
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{
		"status":  "ok",
		"version": s.version,
	}
	if s.observations != nil {
		resp["observed_devices"] = s.observations.Count()
	}
	writeJSON(w, http.StatusOK, resp)
}
