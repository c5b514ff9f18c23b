// Tracklight - Live Fleet Tracking and Trip Replay
// Copyright 2026 Tracklight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tracklight/tracklight

package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tracklight/tracklight/internal/replay"
)

// replayLoadRequest asks the controller to fetch and load a trip.
type replayLoadRequest struct {
	DeviceID int       `json:"deviceId"`
	From     time.Time `json:"from"`
	To       time.Time `json:"to"`
}

type replayPlayRequest struct {
	Multiplier float64 `json:"multiplier"`
}

type replaySeekRequest struct {
	Fraction float64 `json:"fraction"`
}

func (s *Server) handleReplayLoad(w http.ResponseWriter, r *http.Request) {
	var req replayLoadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.DeviceID <= 0 || req.From.IsZero() || req.To.IsZero() || !req.To.After(req.From) {
		writeError(w, http.StatusBadRequest, "deviceId, from and to are required; to must follow from")
		return
	}

	sessionID, err := s.replay.LoadTrip(r.Context(), req.DeviceID, req.From, req.To)
	if err != nil {
		switch {
		case errors.Is(err, replay.ErrEmptyRoute):
			writeError(w, http.StatusNotFound, "no positions recorded in that range")
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			writeError(w, http.StatusRequestTimeout, "request canceled")
		default:
			writeError(w, http.StatusBadGateway, "route fetch failed")
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"sessionId": sessionID})
}

func (s *Server) handleReplayStatus(w http.ResponseWriter, _ *http.Request) {
	status, ok := s.replay.Status()
	if !ok {
		writeError(w, http.StatusNotFound, "no active session")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleReplayDestroy(w http.ResponseWriter, _ *http.Request) {
	s.replay.Destroy()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReplayPlay(w http.ResponseWriter, r *http.Request) {
	var req replayPlayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.replayControl(w, s.replay.Play(req.Multiplier))
}

func (s *Server) handleReplayPause(w http.ResponseWriter, _ *http.Request) {
	s.replayControl(w, s.replay.Pause())
}

func (s *Server) handleReplaySeek(w http.ResponseWriter, r *http.Request) {
	var req replaySeekRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.replayControl(w, s.replay.Seek(req.Fraction))
}

func (s *Server) handleReplayStop(w http.ResponseWriter, _ *http.Request) {
	s.replayControl(w, s.replay.Stop())
}

// replayControl translates controller errors into the common response
// shape for the play/pause/seek/stop commands.
func (s *Server) replayControl(w http.ResponseWriter, err error) {
	if errors.Is(err, replay.ErrNoSession) {
		writeError(w, http.StatusNotFound, "no active session")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	status, _ := s.replay.Status()
	writeJSON(w, http.StatusOK, status)
}
