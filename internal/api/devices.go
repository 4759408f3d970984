package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/stbridge/media-bridge-core/internal/bridge"
	"github.com/stbridge/media-bridge-core/internal/capability"
	"github.com/stbridge/media-bridge-core/internal/intent"
	"github.com/stbridge/media-bridge-core/internal/player"
	"github.com/stbridge/media-bridge-core/internal/syncer"
)

// deviceSummary is one element of the device list response.
type deviceSummary struct {
	DeviceID     string          `json:"device_id"`
	Capabilities []capability.ID `json:"capabilities"`
	Derived      string          `json:"derived"`
}

// handleListDevices returns every attached device with its capability
// profile and derived state.
func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	ids := s.bridge.Devices()
	sort.Strings(ids)

	out := make([]deviceSummary, 0, len(ids))
	for _, id := range ids {
		prof, err := s.bridge.Profile(id)
		if err != nil {
			continue // detached between list and lookup
		}
		state, err := s.bridge.State(id)
		if err != nil {
			continue
		}
		out = append(out, deviceSummary{
			DeviceID:     id,
			Capabilities: prof.Capabilities(),
			Derived:      state.DerivedState(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": out})
}

// stateResponse is the device state response shape.
type stateResponse struct {
	DeviceID string                            `json:"device_id"`
	Derived  string                            `json:"derived"`
	Fields   map[player.FieldName]player.Field `json:"fields"`
	Pending  []syncer.PendingCommand           `json:"pending,omitempty"`
}

// handleGetState returns the full reconciled snapshot for one device,
// including per-field freshness so clients can render optimistic
// values differently from confirmed ones.
func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "id")

	state, err := s.bridge.State(deviceID)
	if err != nil {
		writeNotFound(w, "device not attached: "+deviceID)
		return
	}

	writeJSON(w, http.StatusOK, stateResponse{
		DeviceID: deviceID,
		Derived:  state.DerivedState(),
		Fields:   state.Fields,
	})
}

// handleGetHistory returns recent state snapshots for one device,
// newest first. Query parameter "limit" bounds the result.
func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeNotFound(w, "history store not configured")
		return
	}

	deviceID := chi.URLParam(r, "id")
	if _, err := s.bridge.State(deviceID); err != nil {
		writeNotFound(w, "device not attached: "+deviceID)
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

	entries, err := s.history.History(r.Context(), deviceID, limit)
	if err != nil {
		s.logger.Error("history query failed", "device_id", deviceID, "error", err)
		writeInternalError(w, "history query failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// handleDispatchIntent decodes an intent, routes it to the device's
// controller and reports accepted or rejected. Accepted means the
// command is queued and the state is optimistically updated; observe
// convergence through the state endpoint or the WebSocket feed.
func (s *Server) handleDispatchIntent(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "id")

	var in intent.Intent
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeBadRequest(w, "invalid intent payload: "+err.Error())
		return
	}
	if in.Kind == "" {
		writeBadRequest(w, "intent kind is required")
		return
	}

	err := s.bridge.Dispatch(deviceID, in)
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, map[string]any{
			"status": "accepted",
			"intent": in.String(),
		})
	case errors.Is(err, bridge.ErrUnknownDevice):
		writeNotFound(w, "device not attached: "+deviceID)
	case errors.Is(err, intent.ErrCapabilityNotSupported),
		errors.Is(err, intent.ErrUnknownBaseline),
		errors.Is(err, intent.ErrInvalidIntent):
		writeError(w, http.StatusUnprocessableEntity, ErrCodeRejected, err.Error())
	case errors.Is(err, syncer.ErrStopped):
		writeError(w, http.StatusServiceUnavailable, ErrCodeInternal, "device controller stopped")
	default:
		s.logger.Error("intent dispatch failed", "device_id", deviceID, "error", err)
		writeInternalError(w, "dispatch failed")
	}
}
