package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/aristath/medkiosk/internal/auditlog"
	"github.com/aristath/medkiosk/internal/events"
	"github.com/aristath/medkiosk/internal/ledger"
	"github.com/aristath/medkiosk/internal/presentation"
)

const defaultHistoryLimit = 50

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "medkiosk",
		"version": "1.0.0",
	})
}

// handleHistory returns recorded doses, newest first. A limit query
// parameter caps the count; limit=-1 returns everything.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid limit parameter")
			return
		}
		limit = parsed
	}

	records := s.ledger.Recent(limit)
	if records == nil {
		records = []ledger.DoseRecord{}
	}

	s.writeJSON(w, http.StatusOK, records)
}

// handleUpcoming returns the next scheduled dose, or 204 when none is due.
func (s *Server) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	upcoming := s.ledger.NextUpcoming(time.Now())
	if upcoming == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.writeJSON(w, http.StatusOK, upcoming)
}

// handleClearHistory wipes the dose history. The in-memory clear always
// stands, so the event and the history refresh go out even when the
// snapshot write fails; the display must not keep showing records that
// no longer exist.
func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	removed := s.ledger.Len()
	clearErr := s.ledger.Clear()

	s.bus.Publish(&events.HistoryClearedData{RecordsRemoved: removed})
	s.queue.Push(presentation.RefreshHistory(nil, nil))
	s.queue.Push(presentation.AppendLogLine("History cleared"))

	if clearErr != nil {
		s.writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"status":          "error",
			"records_removed": removed,
			"error":           "failed to persist cleared history: " + clearErr.Error(),
		})
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":          "ok",
		"records_removed": removed,
	})
}

// handleExportHistory writes a timestamped copy of the history snapshot.
func (s *Server) handleExportHistory(w http.ResponseWriter, r *http.Request) {
	path, err := s.ledger.Export(time.Now())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "export failed: "+err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"path":   path,
	})
}

// handleConfirm resolves a pending confirmation from the operator API.
func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Taken *bool `json:"taken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Taken == nil {
		s.writeError(w, http.StatusBadRequest, "body must be {\"taken\": true|false}")
		return
	}

	if !s.controller.Confirm(*body.Taken) {
		s.writeError(w, http.StatusConflict, "no confirmation pending")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleCancel abandons any in-progress selection.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	s.controller.Cancel()
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleWorkflowState reports the current selection state.
func (s *Server) handleWorkflowState(w http.ResponseWriter, r *http.Request) {
	state, pending := s.controller.Snapshot()
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"state":              state.String(),
		"pending_medication": pending,
	})
}

// handleStatus reports broadcaster connectivity and ledger totals.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.connMu.RLock()
	connected := s.connected
	endpoint := s.connEndpoint
	lastEvent := s.lastConnEvent
	s.connMu.RUnlock()

	status := map[string]interface{}{
		"broadcaster_connected": connected,
		"broadcaster_endpoint":  endpoint,
		"recorded_doses":        s.ledger.Len(),
		"uptime_seconds":        int64(time.Since(s.started).Seconds()),
	}
	if !lastEvent.IsZero() {
		status["last_connection_event"] = lastEvent
	}
	if s.renderSink != nil {
		status["renderer_enabled"] = s.renderSink.IsEnabled()
	}

	s.writeJSON(w, http.StatusOK, status)
}

// handleAuditRecent returns the most recent raw protocol events.
func (s *Server) handleAuditRecent(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid limit parameter")
			return
		}
		limit = parsed
	}

	entries, err := s.audit.Recent(limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "audit query failed: "+err.Error())
		return
	}
	if entries == nil {
		entries = []auditlog.Entry{}
	}

	s.writeJSON(w, http.StatusOK, entries)
}

// handleRendererEnable turns the HTTP render sink on.
func (s *Server) handleRendererEnable(w http.ResponseWriter, r *http.Request) {
	if s.renderSink == nil {
		s.writeError(w, http.StatusConflict, "no renderer configured")
		return
	}
	s.renderSink.Enable()
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleRendererDisable turns the HTTP render sink off.
func (s *Server) handleRendererDisable(w http.ResponseWriter, r *http.Request) {
	if s.renderSink == nil {
		s.writeError(w, http.StatusConflict, "no renderer configured")
		return
	}
	s.renderSink.Disable()
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes a JSON error response
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
