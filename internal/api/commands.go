package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sparkgrid/grid-core/internal/audit"
	"github.com/sparkgrid/grid-core/internal/command"
	"github.com/sparkgrid/grid-core/internal/device"
)

// handleReadPower performs a live CoAP read of a smart meter.
func (s *Server) handleReadPower(w http.ResponseWriter, r *http.Request) {
	if s.commands == nil {
		writeBadGateway(w, "device control is not available")
		return
	}

	id, err := parseDeviceID(r)
	if err != nil {
		writeBadRequest(w, "invalid device id")
		return
	}

	power, err := s.commands.ReadPower(r.Context(), id)
	if err != nil {
		s.writeCommandError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"device_id": id,
		"power_w":   power,
	})
}

// handleSetStatus enables or disables a smart meter.
func (s *Server) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	if s.commands == nil {
		writeBadGateway(w, "device control is not available")
		return
	}

	id, err := parseDeviceID(r)
	if err != nil {
		writeBadRequest(w, "invalid device id")
		return
	}

	var body struct {
		Enabled *bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Enabled == nil {
		writeBadRequest(w, "body must be {\"enabled\": true|false}")
		return
	}

	err = s.commands.SetEnabled(r.Context(), id, *body.Enabled)
	s.recordAudit(r, audit.ActionSetStatus, id, err, map[string]any{"enabled": *body.Enabled})
	if err != nil {
		s.writeCommandError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"device_id": id,
		"enabled":   *body.Enabled,
	})
}

// handleSetMaxPower changes a smart meter's contracted power limit.
func (s *Server) handleSetMaxPower(w http.ResponseWriter, r *http.Request) {
	if s.commands == nil {
		writeBadGateway(w, "device control is not available")
		return
	}

	id, err := parseDeviceID(r)
	if err != nil {
		writeBadRequest(w, "invalid device id")
		return
	}

	var body struct {
		MaxPowerKW *float64 `json:"max_power_kw"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.MaxPowerKW == nil {
		writeBadRequest(w, "body must be {\"max_power_kw\": <kW>}")
		return
	}

	err = s.commands.SetMaxPower(r.Context(), id, *body.MaxPowerKW)
	s.recordAudit(r, audit.ActionSetMaxPower, id, err, map[string]any{"max_power_kw": *body.MaxPowerKW})
	if err != nil {
		s.writeCommandError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"device_id":    id,
		"max_power_kw": *body.MaxPowerKW,
	})
}

// handleSetTransformerSettings pushes phase setpoints to a transformer.
func (s *Server) handleSetTransformerSettings(w http.ResponseWriter, r *http.Request) {
	if s.commands == nil {
		writeBadGateway(w, "device control is not available")
		return
	}

	id, err := parseDeviceID(r)
	if err != nil {
		writeBadRequest(w, "invalid device id")
		return
	}

	var sp command.Setpoints
	if err := json.NewDecoder(r.Body).Decode(&sp); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	err = s.commands.SetTransformerSetpoints(r.Context(), id, sp)
	s.recordAudit(r, audit.ActionSetSetpoints, id, err, nil)
	if err != nil {
		s.writeCommandError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"device_id": id,
		"setpoints": sp,
	})
}

// writeCommandError maps coordinator errors to HTTP responses.
func (s *Server) writeCommandError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, device.ErrNotFound):
		writeNotFound(w, "device not found")
	case errors.Is(err, command.ErrWrongClass):
		writeBadRequest(w, "device class does not support this command")
	case errors.Is(err, command.ErrStateInconsistent):
		// The device accepted the change but the directory write failed
		// and the rollback also failed. Operator intervention required.
		writeConflict(w, "device and directory are inconsistent")
	case errors.Is(err, command.ErrCommandRejected), errors.Is(err, command.ErrNoReading):
		writeBadGateway(w, err.Error())
	default:
		s.logger.Error("command failed", "error", err)
		writeInternalError(w, "command failed")
	}
}
