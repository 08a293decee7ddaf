package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/beacon-bridge/internal/device"
	"github.com/nerrad567/beacon-bridge/internal/history"
)

const (
	defaultHistoryLimit   = 50
	maxHistoryLimit       = 200
	serviceUnavailableKey = "service_unavailable"
)

// handleGetDeviceHistory returns recorded readings for a device, newest first.
//
// Query parameters:
//   - limit: number of entries (default 50, max 200)
func (s *Server) handleGetDeviceHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, serviceUnavailableKey, "reading history is not enabled")
		return
	}

	deviceID := chi.URLParam(r, "id")
	if deviceID == "" || len(deviceID) > maxQueryParamLen {
		writeBadRequest(w, "invalid device ID")
		return
	}

	limit, err := parseHistoryLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	if _, err := s.registry.Lookup(deviceID); err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeInternalError(w, "failed to get device")
		return
	}

	entries, err := s.history.History(r.Context(), deviceID, limit)
	if err != nil {
		s.logger.Error("failed to load reading history", "device_id", deviceID, "error", err)
		writeInternalError(w, "failed to load history")
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"device_id": deviceID,
		"entries":   entries,
		"count":     len(entries),
	})
}

// parseHistoryLimit parses the limit query parameter.
func parseHistoryLimit(raw string) (int, error) {
	if raw == "" {
		return defaultHistoryLimit, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, fmt.Errorf("invalid limit")
	}
	if limit > maxHistoryLimit {
		return 0, fmt.Errorf("limit exceeds maximum")
	}

	return limit, nil
}
