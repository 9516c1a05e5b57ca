package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/sparkgrid/grid-core/internal/device"
)

// defaultReportWindow is how far back the hourly report looks when the
// caller does not pass a since parameter.
const defaultReportWindow = 24 * time.Hour

// powerView is the wire representation of a stored smart-meter reading.
type powerView struct {
	ID         int64     `json:"id"`
	PowerW     float64   `json:"power_w"`
	RecordedAt time.Time `json:"recorded_at"`
}

// transformerView is the wire representation of a transformer snapshot.
type transformerView struct {
	ID         int64     `json:"id"`
	State      int       `json:"state"`
	CurrentA   float64   `json:"current_a"`
	CurrentB   float64   `json:"current_b"`
	CurrentC   float64   `json:"current_c"`
	VoltageA   float64   `json:"voltage_a"`
	VoltageB   float64   `json:"voltage_b"`
	VoltageC   float64   `json:"voltage_c"`
	RecordedAt time.Time `json:"recorded_at"`
}

// hourlyView is the wire representation of one report row.
type hourlyView struct {
	Hour    string  `json:"hour"`
	Average float64 `json:"average_w"`
	Peak    float64 `json:"peak_w"`
	Samples int     `json:"samples"`
}

// handleListMeasurements returns stored telemetry for a device, newest
// first. The response shape follows the device class.
//
// Query parameters:
//   - limit: maximum rows to return (default 100)
func (s *Server) handleListMeasurements(w http.ResponseWriter, r *http.Request) {
	id, err := parseDeviceID(r)
	if err != nil {
		writeBadRequest(w, "invalid device id")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeBadRequest(w, "invalid limit")
			return
		}
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

	switch identity.Class {
	case device.ClassPowerMeter:
		rows, err := s.power.ListByDevice(r.Context(), id, limit)
		if err != nil {
			writeInternalError(w, "failed to list measurements")
			return
		}
		views := make([]powerView, 0, len(rows))
		for _, m := range rows {
			views = append(views, powerView{ID: m.ID, PowerW: m.Power, RecordedAt: m.RecordedAt})
		}
		writeJSON(w, http.StatusOK, map[string]any{"measurements": views, "count": len(views)})

	case device.ClassTransformer:
		rows, err := s.transformers.ListByDevice(r.Context(), id, limit)
		if err != nil {
			writeInternalError(w, "failed to list measurements")
			return
		}
		views := make([]transformerView, 0, len(rows))
		for _, m := range rows {
			views = append(views, transformerView{
				ID:         m.ID,
				State:      m.State,
				CurrentA:   m.Ia,
				CurrentB:   m.Ib,
				CurrentC:   m.Ic,
				VoltageA:   m.Va,
				VoltageB:   m.Vb,
				VoltageC:   m.Vc,
				RecordedAt: m.RecordedAt,
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{"measurements": views, "count": len(views)})

	default:
		writeInternalError(w, "unknown device class")
	}
}

// handleHourlyReport returns per-hour consumption aggregates for a smart
// meter.
//
// Query parameters:
//   - since: RFC3339 start of the report window (default: last 24h)
func (s *Server) handleHourlyReport(w http.ResponseWriter, r *http.Request) {
	id, err := parseDeviceID(r)
	if err != nil {
		writeBadRequest(w, "invalid device id")
		return
	}

	since := time.Now().Add(-defaultReportWindow)
	if raw := r.URL.Query().Get("since"); raw != "" {
		since, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			writeBadRequest(w, "invalid since timestamp, want RFC3339")
			return
		}
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
	if identity.Class != device.ClassPowerMeter {
		writeBadRequest(w, "hourly reports are only available for power meters")
		return
	}

	report, err := s.power.HourlyReport(r.Context(), id, since)
	if err != nil {
		writeInternalError(w, "failed to build report")
		return
	}

	hours := make([]hourlyView, 0, len(report))
	for _, row := range report {
		hours = append(hours, hourlyView(row))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"device_id": id,
		"since":     since,
		"hours":     hours,
	})
}

// summaryView is the wire representation of a device's overall consumption.
type summaryView struct {
	AverageW float64    `json:"average_w"`
	PeakW    float64    `json:"peak_w"`
	Samples  int        `json:"samples"`
	First    *time.Time `json:"first_sample,omitempty"`
	Last     *time.Time `json:"last_sample,omitempty"`
}

// handleConsumptionSummary returns lifetime consumption aggregates for a
// smart meter.
func (s *Server) handleConsumptionSummary(w http.ResponseWriter, r *http.Request) {
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
	if identity.Class != device.ClassPowerMeter {
		writeBadRequest(w, "consumption summaries are only available for power meters")
		return
	}

	sum, err := s.power.Summary(r.Context(), id)
	if err != nil {
		writeInternalError(w, "failed to build summary")
		return
	}

	view := summaryView{AverageW: sum.Average, PeakW: sum.Peak, Samples: sum.Samples}
	if !sum.First.IsZero() {
		view.First = &sum.First
	}
	if !sum.Last.IsZero() {
		view.Last = &sum.Last
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"device_id": id,
		"summary":   view,
	})
}
