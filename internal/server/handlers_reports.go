// Tracklight - Live Fleet Tracking and Trip Replay
// Copyright 2026 Tracklight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tracklight/tracklight

package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/tracklight/tracklight/internal/logging"
)

// reportRange parses the deviceId/from/to query parameters shared by
// all report endpoints. Timestamps are RFC 3339.
func reportRange(r *http.Request) (deviceID int, from, to time.Time, ok bool) {
	q := r.URL.Query()

	deviceID, err := strconv.Atoi(q.Get("deviceId"))
	if err != nil || deviceID <= 0 {
		return 0, time.Time{}, time.Time{}, false
	}
	from, err = time.Parse(time.RFC3339, q.Get("from"))
	if err != nil {
		return 0, time.Time{}, time.Time{}, false
	}
	to, err = time.Parse(time.RFC3339, q.Get("to"))
	if err != nil || !to.After(from) {
		return 0, time.Time{}, time.Time{}, false
	}
	return deviceID, from, to, true
}

func (s *Server) handleReportTrips(w http.ResponseWriter, r *http.Request) {
	deviceID, from, to, ok := reportRange(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "deviceId, from and to (RFC 3339) are required")
		return
	}

	trips, err := s.api.Trips(r.Context(), deviceID, from, to)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Int("device_id", deviceID).Msg("trips report failed")
		writeError(w, http.StatusBadGateway, "upstream report request failed")
		return
	}
	writeJSON(w, http.StatusOK, trips)
}

func (s *Server) handleReportStops(w http.ResponseWriter, r *http.Request) {
	deviceID, from, to, ok := reportRange(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "deviceId, from and to (RFC 3339) are required")
		return
	}

	stops, err := s.api.Stops(r.Context(), deviceID, from, to)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Int("device_id", deviceID).Msg("stops report failed")
		writeError(w, http.StatusBadGateway, "upstream report request failed")
		return
	}
	writeJSON(w, http.StatusOK, stops)
}

func (s *Server) handleReportSummary(w http.ResponseWriter, r *http.Request) {
	deviceID, from, to, ok := reportRange(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "deviceId, from and to (RFC 3339) are required")
		return
	}

	summary, err := s.api.Summary(r.Context(), deviceID, from, to)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Int("device_id", deviceID).Msg("summary report failed")
		writeError(w, http.StatusBadGateway, "upstream report request failed")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
