package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sparkgrid/grid-core/internal/device"
)

// deviceView is the wire representation of a directory entry.
type deviceView struct {
	ID          int64     `json:"id"`
	FullName    string    `json:"full_name"`
	Alias       string    `json:"alias"`
	Class       string    `json:"class"`
	Address     string    `json:"address"`
	Enabled     bool      `json:"enabled"`
	MaxPowerKW  float64   `json:"max_power_kw"`
	Observation string    `json:"observation,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (s *Server) deviceToView(identity *device.Identity) deviceView {
	v := deviceView{
		ID:         identity.ID,
		FullName:   identity.FullName,
		Alias:      identity.Alias,
		Class:      identity.Class.String(),
		Address:    identity.Address,
		Enabled:    identity.Enabled,
		MaxPowerKW: identity.MaxPower,
		CreatedAt:  identity.CreatedAt,
		UpdatedAt:  identity.UpdatedAt,
	}
	if s.observations != nil {
		if state, ok := s.observations.StateOf(identity.ID); ok {
			v.Observation = state.String()
		}
	}
	return v
}

// parseDeviceID reads the {id} URL parameter.
func parseDeviceID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// handleListDevices returns all registered devices.
//
// Query parameters:
//   - class: filter by device class (power_meter, transformer)
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	identities, err := s.directory.List(r.Context())
	if err != nil {
		writeInternalError(w, "failed to list devices")
		return
	}

	classFilter := r.URL.Query().Get("class")
	views := make([]deviceView, 0, len(identities))
	for i := range identities {
		if classFilter != "" && identities[i].Class.String() != classFilter {
			continue
		}
		views = append(views, s.deviceToView(&identities[i]))
	}

	writeJSON(w, http.StatusOK, map[string]any{"devices": views, "count": len(views)})
}

// handleGetDevice returns a single device by ID.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id, err := parseDeviceID(r)
	if err != nil {
		writeBadRequest(w, "invalid device id")
		return
	}

	identity, err := s.directory.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, device.ErrNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeInternalError(w, "failed to get device")
		return
	}

	writeJSON(w, http.StatusOK, s.deviceToView(identity))
}
