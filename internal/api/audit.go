package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/sparkgrid/grid-core/internal/audit"
	"github.com/sparkgrid/grid-core/internal/command"
)

// handleListAudit returns the audit trail, most recent first.
//
// Query parameters:
//   - action: filter by action (register, set_status, set_max_power, set_setpoints)
//   - device_id: filter by device
//   - limit, offset: pagination
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		writeNotFound(w, "audit trail is not enabled")
		return
	}

	filter := audit.Filter{
		Action: r.URL.Query().Get("action"),
	}
	if raw := r.URL.Query().Get("device_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeBadRequest(w, "invalid device_id")
			return
		}
		filter.DeviceID = id
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			writeBadRequest(w, "invalid limit")
			return
		}
		filter.Limit = limit
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil {
			writeBadRequest(w, "invalid offset")
			return
		}
		filter.Offset = offset
	}

	result, err := s.audit.List(r.Context(), filter)
	if err != nil {
		writeInternalError(w, "failed to list audit trail")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// recordAudit appends a command outcome to the audit trail. Best effort:
// a failed write is logged, never surfaced to the caller.
func (s *Server) recordAudit(r *http.Request, action string, deviceID int64, cmdErr error, details map[string]any) {
	if s.audit == nil {
		return
	}

	entry := &audit.Entry{
		Action:   action,
		DeviceID: deviceID,
		Outcome:  outcomeFor(cmdErr),
		Source:   "api",
		Details:  details,
	}
	if err := s.audit.Create(r.Context(), entry); err != nil {
		s.logger.Warn("audit write failed", "action", action, "device_id", deviceID, "error", err)
	}
}

// outcomeFor maps a coordinator error to an audit outcome.
func outcomeFor(err error) string {
	switch {
	case err == nil:
		return audit.OutcomeOK
	case errors.Is(err, command.ErrStateInconsistent):
		return audit.OutcomeInconsistent
	case errors.Is(err, command.ErrPersistFailed):
		return audit.OutcomeRolledBack
	default:
		return audit.OutcomeRejected
	}
}
