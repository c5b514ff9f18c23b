// Tracklight - Live Fleet Tracking and Trip Replay
// Copyright 2026 Tracklight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tracklight/tracklight

package models

import "time"

// Trip is a derived, read-only report row produced by the server's
// reporting API and consumed as-is.
type Trip struct {
	DeviceID     int       `json:"deviceId"`
	DeviceName   string    `json:"deviceName,omitempty"`
	StartTime    time.Time `json:"startTime"`
	EndTime      time.Time `json:"endTime"`
	StartLat     float64   `json:"startLat,omitempty"`
	StartLon     float64   `json:"startLon,omitempty"`
	EndLat       float64   `json:"endLat,omitempty"`
	EndLon       float64   `json:"endLon,omitempty"`
	Distance     float64   `json:"distance"`     // meters
	Duration     int64     `json:"duration"`     // milliseconds
	MaxSpeed     float64   `json:"maxSpeed"`     // knots
	AverageSpeed float64   `json:"averageSpeed"` // knots
	StartAddress string    `json:"startAddress,omitempty"`
	EndAddress   string    `json:"endAddress,omitempty"`
}

// Stop is a derived stationary interval from the reporting API.
type Stop struct {
	DeviceID   int       `json:"deviceId"`
	DeviceName string    `json:"deviceName,omitempty"`
	StartTime  time.Time `json:"startTime"`
	EndTime    time.Time `json:"endTime"`
	Duration   int64     `json:"duration"` // milliseconds
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Address    string    `json:"address,omitempty"`
}

// Summary aggregates a device's activity over a reporting range.
type Summary struct {
	DeviceID     int     `json:"deviceId"`
	DeviceName   string  `json:"deviceName,omitempty"`
	Distance     float64 `json:"distance"`     // meters
	MaxSpeed     float64 `json:"maxSpeed"`     // knots
	AverageSpeed float64 `json:"averageSpeed"` // knots
	EngineHours  int64   `json:"engineHours,omitempty"`
	SpentFuel    float64 `json:"spentFuel,omitempty"`
}
