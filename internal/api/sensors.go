package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/antplus-core/internal/bridges/ant"
)

// featuresRequest is the body of POST /sensors/{name}/features.
type featuresRequest struct {
	Apply  uint8 `json:"apply"`
	Enable uint8 `json:"enable"`
}

// handleListChannels returns every radio channel slot.
func (s *Server) handleListChannels(w http.ResponseWriter, _ *http.Request) {
	snap := s.bridge.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"max_channels": snap.MaxChannels,
		"channels":     snap.Channels,
		"updated_at":   snap.UpdatedAt,
	})
}

// handleListSensors returns every configured sensor.
func (s *Server) handleListSensors(w http.ResponseWriter, _ *http.Request) {
	snap := s.bridge.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"sensors": snap.Sensors,
		"count":   len(snap.Sensors),
	})
}

// handleGetSensor returns one sensor with its latest page.
func (s *Server) handleGetSensor(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	status, ok := s.bridge.Sensor(name)
	if !ok {
		writeNotFound(w, "sensor not found")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// handleListPages returns recent journaled pages, newest first.
// Query: ?limit=N (journal default and cap apply).
func (s *Server) handleListPages(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if _, ok := s.bridge.Sensor(name); !ok {
		writeNotFound(w, "sensor not found")
		return
	}
	if s.pages == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "page journal not enabled")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeBadRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	entries, err := s.pages.Recent(r.Context(), name, limit)
	if err != nil {
		s.logger.Error("failed to read page journal", "sensor", name, "error", err)
		writeInternalError(w, "failed to read pages")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sensor": name,
		"pages":  entries,
		"count":  len(entries),
	})
}

// handleSetFeatures queues a feature command for the named monitor. The
// command is sent once the channel is tracking, so 202 means queued.
func (s *Server) handleSetFeatures(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req featuresRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	cmd, err := ant.CommandMessage{
		Command: ant.CommandSetFeatures,
		Apply:   req.Apply,
		Enable:  req.Enable,
	}.FeatureCommand()
	if err != nil {
		writeBadRequest(w, "apply must select at least one feature")
		return
	}

	switch err := s.bridge.QueueFeatureCommand(name, cmd); {
	case errors.Is(err, ant.ErrUnknownSensor):
		writeNotFound(w, "sensor not found")
	case errors.Is(err, ant.ErrCommandQueueFull):
		writeError(w, http.StatusConflict, ErrCodeConflict, "command queue full")
	case err != nil:
		s.logger.Error("failed to queue feature command", "sensor", name, "error", err)
		writeInternalError(w, "failed to queue command")
	default:
		writeJSON(w, http.StatusAccepted, map[string]any{
			"sensor": name,
			"apply":  req.Apply,
			"enable": req.Enable,
			"status": "queued",
		})
	}
}
