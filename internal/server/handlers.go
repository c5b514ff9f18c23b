// Tracklight - Live Fleet Tracking and Trip Replay
// Copyright 2026 Tracklight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tracklight/tracklight

package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tracklight/tracklight/internal/logging"
	ws "github.com/tracklight/tracklight/internal/websocket"
)

// writeJSON writes a JSON response with proper headers.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // HTTP response write errors are not recoverable
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error envelope.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReadyz reports ready once the live stream is connected. A
// gateway with no upstream connection can still serve its last state,
// but load balancers should know it is running on stale data.
func (s *Server) handleReadyz(w http.ResponseWriter, _ *http.Request) {
	if !s.store.Connected() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status": "degraded",
			"error":  s.store.LastError(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// stateResponse is the full read-only view of the live store.
type stateResponse struct {
	Connected bool        `json:"connected"`
	LastError string      `json:"lastError,omitempty"`
	Devices   interface{} `json:"devices"`
	Positions interface{} `json:"positions"`
	Geofences interface{} `json:"geofences"`
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, stateResponse{
		Connected: s.store.Connected(),
		LastError: s.store.LastError(),
		Devices:   s.store.Devices(),
		Positions: s.store.Positions(),
		Geofences: s.store.Geofences(),
	})
}

func (s *Server) handleDevices(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Devices())
}

func (s *Server) handlePositions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Positions())
}

func (s *Server) handleGeofences(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Geofences())
}

func (s *Server) handlePresence(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Presence())
}

// deviceTimersResponse carries the derived dwell chips for one device.
// Durations are reported in whole seconds; absent timers are null.
type deviceTimersResponse struct {
	DeviceID         int      `json:"deviceId"`
	StillSeconds     *int64   `json:"stillSeconds"`
	OfflineSeconds   *int64   `json:"offlineSeconds"`
	DwellSeconds     *int64   `json:"dwellSeconds,omitempty"`
	DistanceFromHome *float64 `json:"distanceFromHomeMeters,omitempty"`
}

func seconds(d time.Duration) *int64 {
	v := int64(d.Seconds())
	return &v
}

func (s *Server) handleDeviceTimers(w http.ResponseWriter, r *http.Request) {
	deviceID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid device id")
		return
	}
	if _, ok := s.store.Device(deviceID); !ok {
		writeError(w, http.StatusNotFound, "unknown device")
		return
	}

	resp := deviceTimersResponse{DeviceID: deviceID}
	if d, ok := s.store.StillFor(deviceID); ok {
		resp.StillSeconds = seconds(d)
	}
	if d, ok := s.store.OfflineFor(deviceID); ok {
		resp.OfflineSeconds = seconds(d)
	}
	if raw := r.URL.Query().Get("geofenceId"); raw != "" {
		geofenceID, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid geofence id")
			return
		}
		if d, ok := s.store.DwellIn(deviceID, geofenceID); ok {
			resp.DwellSeconds = seconds(d)
		}
	}
	if m, ok := s.store.DistanceFromHome(deviceID); ok {
		resp.DistanceFromHome = &m
	}

	writeJSON(w, http.StatusOK, resp)
}

// upgrader allows the configured CORS origins; a missing Origin header
// (non-browser client) is accepted since the gateway binds locally.
func (s *Server) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		HandshakeTimeout: 10 * time.Second,
		CheckOrigin:      s.checkOrigin,
	}
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.cfg.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	logging.Warn().Str("origin", origin).Msg("websocket connection rejected from unauthorized origin")
	return false
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := s.upgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := ws.NewClient(s.hub, conn)
	s.hub.Register <- client
	client.Start()
}
