// Tracklight - Live Fleet Tracking and Trip Replay
// Copyright 2026 Tracklight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tracklight/tracklight

// Package models defines the wire and domain types Tracklight shares with
// the tracking server: devices, positions, geofences, events, and the
// report shapes (trips, stops, summaries) consumed from the reporting API.
//
// JSON field names follow the server's camelCase convention exactly; these
// types are decoded straight off the wire with goccy/go-json.
package models

import "time"

// Device status values reported by the tracking server.
const (
	DeviceStatusOnline  = "online"
	DeviceStatusOffline = "offline"
	DeviceStatusUnknown = "unknown"
)

// Device is a tracked unit. Devices are replaced wholesale on snapshot
// load and patched field-by-field by stream updates.
type Device struct {
	ID         int       `json:"id"`
	Name       string    `json:"name"`
	UniqueID   string    `json:"uniqueId,omitempty"`
	Status     string    `json:"status"`
	LastUpdate time.Time `json:"lastUpdate,omitempty"`
	Category   string    `json:"category,omitempty"`
	Disabled   bool      `json:"disabled,omitempty"`
}

// Position is a single GPS fix for a device. The store keeps at most one
// Position per device id; GeofenceIDs is computed by the server and
// trusted as-is (this core performs no containment tests).
type Position struct {
	ID          int                `json:"id,omitempty"`
	DeviceID    int                `json:"deviceId"`
	FixTime     time.Time          `json:"fixTime"`
	Latitude    float64            `json:"latitude"`
	Longitude   float64            `json:"longitude"`
	Speed       float64            `json:"speed"`  // knots
	Course      float64            `json:"course"` // degrees, 0-360
	Altitude    float64            `json:"altitude,omitempty"`
	Accuracy    float64            `json:"accuracy,omitempty"` // meters
	Valid       bool               `json:"valid,omitempty"`
	Address     string             `json:"address,omitempty"` // opaque, reverse-geocoded upstream
	GeofenceIDs []int              `json:"geofenceIds,omitempty"`
	Attributes  PositionAttributes `json:"attributes,omitempty"`
}

// KnotsToKmH converts the wire speed unit to km/h.
const KnotsToKmH = 1.852

// SpeedKmH returns the fix speed converted from knots to km/h.
func (p *Position) SpeedKmH() float64 {
	return p.Speed * KnotsToKmH
}

// InsideGeofence reports whether the server flagged this fix as inside
// the given geofence.
func (p *Position) InsideGeofence(geofenceID int) bool {
	for _, id := range p.GeofenceIDs {
		if id == geofenceID {
			return true
		}
	}
	return false
}

// PositionAttributes is the typed view of the sparse attributes payload
// attached to each fix. Every field is optional; unknown wire keys are
// simply not represented.
type PositionAttributes struct {
	BatteryLevel  *float64 `json:"batteryLevel,omitempty"` // percent
	Ignition      *bool    `json:"ignition,omitempty"`
	Satellites    *int     `json:"sat,omitempty"`
	HDOP          *float64 `json:"hdop,omitempty"`
	Charge        *bool    `json:"charge,omitempty"`
	Motion        *bool    `json:"motion,omitempty"`
	Distance      *float64 `json:"distance,omitempty"`      // meters since previous fix
	TotalDistance *float64 `json:"totalDistance,omitempty"` // odometer, meters
}

// Geofence is a named spatial region. Immutable for the session once
// loaded; Area uses the server's compact latitude-first encoding parsed
// by the geo package.
type Geofence struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Area        string `json:"area"`
}

// Event types delivered by the server. Unknown types pass through
// untouched; the store only gives special treatment to the ones below.
const (
	EventGeofenceEnter   = "geofenceEnter"
	EventGeofenceExit    = "geofenceExit"
	EventDeviceOnline    = "deviceOnline"
	EventDeviceOffline   = "deviceOffline"
	EventDeviceUnknown   = "deviceUnknown"
	EventDeviceMoving    = "deviceMoving"
	EventDeviceStopped   = "deviceStopped"
	EventDeviceOverspeed = "deviceOverspeed"
	EventAlarm           = "alarm"
	EventIgnitionOn      = "ignitionOn"
	EventIgnitionOff     = "ignitionOff"
	EventPowerOn         = "powerOn"
	EventPowerOff        = "powerOff"
	EventMaintenance     = "maintenance"
)

// Event is a transient server notification. Events drive derived state in
// the store; they are not retained as a queryable log.
type Event struct {
	ID         int             `json:"id,omitempty"`
	Type       string          `json:"type"`
	DeviceID   int             `json:"deviceId"`
	PositionID int             `json:"positionId,omitempty"`
	GeofenceID int             `json:"geofenceId,omitempty"`
	EventTime  time.Time       `json:"eventTime"`
	Attributes EventAttributes `json:"attributes,omitempty"`
}

// EventAttributes carries the optional details some event types attach.
type EventAttributes struct {
	Speed      *float64 `json:"speed,omitempty"` // knots, on overspeed
	SpeedLimit *float64 `json:"speedLimit,omitempty"`
	Alarm      *string  `json:"alarm,omitempty"`
}

// Frame is one message from the live stream. Any subset of the keys may
// be present; absent keys decode to nil slices.
type Frame struct {
	Devices   []Device   `json:"devices,omitempty"`
	Positions []Position `json:"positions,omitempty"`
	Events    []Event    `json:"events,omitempty"`
}

// Empty reports whether the frame carried no payload at all.
func (f *Frame) Empty() bool {
	return len(f.Devices) == 0 && len(f.Positions) == 0 && len(f.Events) == 0
}
