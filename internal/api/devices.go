package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/beacon-bridge/internal/device"
)

// maxQueryParamLen limits path and query parameter length.
const maxQueryParamLen = 100

// sensorResponse is the JSON form of one sensor.
type sensorResponse struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	DeviceID  string   `json:"device_id"`
	Metric    string   `json:"metric"`
	Unit      string   `json:"unit"`
	Value     *float64 `json:"value"`
	Available bool     `json:"available"`
}

// handleListDevices returns a snapshot of every monitored device.
//
// Query parameters:
//   - decoder: filter by decoder name (tilt, major)
//   - seen: true for devices with at least one reading, false for the rest
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	decoder := query.Get("decoder")
	if len(decoder) > maxQueryParamLen {
		writeBadRequest(w, "invalid decoder")
		return
	}

	var seen *bool
	if raw := query.Get("seen"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeBadRequest(w, "invalid seen filter")
			return
		}
		seen = &v
	}

	snaps := s.registry.Snapshots()
	filtered := snaps[:0]
	for _, snap := range snaps {
		if decoder != "" && snap.Decoder != decoder {
			continue
		}
		if seen != nil && snap.Seen() != *seen {
			continue
		}
		filtered = append(filtered, snap)
	}

	writeJSON(w, http.StatusOK, map[string]any{"devices": filtered, "count": len(filtered)})
}

// handleGetDevice returns the current snapshot of one device.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid device ID")
		return
	}

	snap, err := s.registry.Get(id)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeInternalError(w, "failed to get device")
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

// handleListSensors returns every sensor with its live value. Sensors whose
// metric has not been seen yet report available=false and a null value.
func (s *Server) handleListSensors(w http.ResponseWriter, _ *http.Request) {
	out := make([]sensorResponse, 0, len(s.sensors))
	for _, sn := range s.sensors {
		resp := sensorResponse{
			ID:       sn.ID(),
			Name:     sn.Name(),
			DeviceID: sn.Identity().ID,
			Metric:   string(sn.Metric()),
			Unit:     sn.Unit(),
		}
		if v, ok := sn.Value(); ok {
			resp.Value = &v
			resp.Available = true
		}
		out = append(out, resp)
	}

	writeJSON(w, http.StatusOK, map[string]any{"sensors": out, "count": len(out)})
}
