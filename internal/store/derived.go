// Tracklight - Live Fleet Tracking and Trip Replay
// Copyright 2026 Tracklight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tracklight/tracklight

package store

import (
	"strings"
	"time"

	"github.com/tracklight/tracklight/internal/geo"
)

// Presence maps each geofence id to the names of the devices whose
// current position lists that geofence. This is read straight off the
// positions' geofenceIds sets; no geometry is evaluated. Order within a
// slice is not guaranteed. Geofences nobody occupies map to an empty
// slice.
func (s *Store) Presence() map[int][]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[int][]string, len(s.geofences))
	for id := range s.geofences {
		out[id] = []string{}
	}

	for deviceID, p := range s.positions {
		device, ok := s.devices[deviceID]
		if !ok {
			continue
		}
		for _, geofenceID := range p.GeofenceIDs {
			if _, known := s.geofences[geofenceID]; !known {
				continue
			}
			out[geofenceID] = append(out[geofenceID], device.Name)
		}
	}
	return out
}

// homeNamePattern matches the geofence that counts as "home",
// case-insensitively.
const homeNamePattern = "home"

// DistanceFromHome returns the great-circle distance in meters from the
// device's current position to the center of the geofence whose name
// matches the home pattern. Returns ok=false when the device is already
// inside that geofence, when no home geofence exists, when its area is
// unparseable, or when the device has no position.
func (s *Store) DistanceFromHome(deviceID int) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.positions[deviceID]
	if !ok {
		return 0, false
	}

	homeID := -1
	for id, g := range s.geofences {
		if strings.Contains(strings.ToLower(g.Name), homeNamePattern) {
			homeID = id
			break
		}
	}
	if homeID == -1 {
		return 0, false
	}

	// Already home: the server flagged the fix as inside.
	if p.InsideGeofence(homeID) {
		return 0, false
	}

	center, ok := s.geometries[homeID].CenterPoint()
	if !ok {
		return 0, false
	}

	return geo.HaversineDistance(p.Latitude, p.Longitude, center.Lat, center.Lon), true
}

// StillFor returns how long the device has been continuously stationary.
// ok is false when the device is moving or has no stillness state.
func (s *Store) StillFor(deviceID int) (time.Duration, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	since, ok := s.stillSince[deviceID]
	if !ok {
		return 0, false
	}
	return s.now().Sub(since), true
}

// OfflineFor returns how long the device has been offline. ok is false
// when the device is not currently offline.
func (s *Store) OfflineFor(deviceID int) (time.Duration, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	since, ok := s.offlineSince[deviceID]
	if !ok {
		return 0, false
	}
	return s.now().Sub(since), true
}

// DwellIn returns how long the device has dwelled inside the geofence
// since its recorded arrival. ok is false when no arrival is on record.
func (s *Store) DwellIn(deviceID, geofenceID int) (time.Duration, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	arrival, ok := s.geofenceArrivals[deviceID][geofenceID]
	if !ok {
		return 0, false
	}
	return s.now().Sub(arrival), true
}
