// Tracklight - Live Fleet Tracking and Trip Replay
// Copyright 2026 Tracklight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tracklight/tracklight

package store

import (
	"time"

	"github.com/tracklight/tracklight/internal/models"
)

// ChangeKind identifies what a Change notification describes.
type ChangeKind string

const (
	// ChangeSnapshot signals a full snapshot replace; consumers should
	// re-read everything they care about.
	ChangeSnapshot ChangeKind = "snapshot"

	// ChangePosition carries an upserted position.
	ChangePosition ChangeKind = "position"

	// ChangeDevice carries a patched device.
	ChangeDevice ChangeKind = "device"

	// ChangeAlert carries a derived alert record.
	ChangeAlert ChangeKind = "alert"

	// ChangeConnectivity signals a stream connectivity transition.
	ChangeConnectivity ChangeKind = "connectivity"

	// ChangeReplay carries an interpolated replay sample for display.
	ChangeReplay ChangeKind = "replay"
)

// Change is a notification delivered synchronously to subscribed
// listeners after each store mutation. Only the fields relevant to Kind
// are populated.
type Change struct {
	Kind      ChangeKind       `json:"kind"`
	Device    *models.Device   `json:"device,omitempty"`
	Position  *models.Position `json:"position,omitempty"`
	Alert     *Alert           `json:"alert,omitempty"`
	Replay    *ReplayMarker    `json:"replay,omitempty"`
	Connected *bool            `json:"connected,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// Alert types derived by the store on top of the server's event types.
const (
	AlertLowBattery = "lowBattery"
)

// Alert is a derived notification record. Alerts are delivered to
// listeners and counted, never retained.
type Alert struct {
	Type         string    `json:"type"`
	DeviceID     int       `json:"deviceId"`
	DeviceName   string    `json:"deviceName,omitempty"`
	GeofenceID   int       `json:"geofenceId,omitempty"`
	GeofenceName string    `json:"geofenceName,omitempty"`
	Time         time.Time `json:"time"`
	Message      string    `json:"message,omitempty"`
}

// ReplayMarker is the interpolated sample a replay controller writes back
// into the store so the UI can draw the moving marker.
type ReplayMarker struct {
	SessionID string  `json:"sessionId"`
	DeviceID  int     `json:"deviceId"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	SpeedKmH  float64 `json:"speedKmh"`
	Progress  float64 `json:"progress"`
}

// Listener receives store change notifications. Listeners are invoked
// synchronously in subscription order after the mutation commits; they
// must not block.
type Listener func(Change)
