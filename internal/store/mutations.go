// Tracklight - Live Fleet Tracking and Trip Replay
// Copyright 2026 Tracklight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tracklight/tracklight

package store

import (
	"fmt"
	"time"

	"github.com/tracklight/tracklight/internal/logging"
	"github.com/tracklight/tracklight/internal/metrics"
	"github.com/tracklight/tracklight/internal/models"
)

// ApplyPositionUpdate upserts the position for its device, recomputing
// the stillness timer and the low-battery hysteresis. An update whose
// fixTime is older than the stored fix for the same device is discarded,
// so a delayed out-of-order frame can never regress a displayed position.
func (s *Store) ApplyPositionUpdate(p models.Position) {
	s.mu.Lock()

	if prev, ok := s.positions[p.DeviceID]; ok && p.FixTime.Before(prev.FixTime) {
		metrics.StoreStalePositions.Inc()
		s.mu.Unlock()
		logging.Debug().
			Int("device_id", p.DeviceID).
			Time("fix_time", p.FixTime).
			Time("stored_fix_time", prev.FixTime).
			Msg("stale position discarded")
		return
	}

	s.positions[p.DeviceID] = p
	metrics.StorePositionUpdates.Inc()

	// Stillness timer: armed the first instant speed drops below the
	// threshold, cleared the instant it rises above.
	if p.SpeedKmH() < stillSpeedKmH {
		if _, armed := s.stillSince[p.DeviceID]; !armed {
			s.stillSince[p.DeviceID] = p.FixTime
		}
	} else {
		delete(s.stillSince, p.DeviceID)
	}

	changes := []Change{{Kind: ChangePosition, Position: &p}}
	if alert := s.checkLowBatteryLocked(p); alert != nil {
		changes = append(changes, Change{Kind: ChangeAlert, Alert: alert})
	}

	s.mu.Unlock()

	s.notify(changes...)
}

// checkLowBatteryLocked applies the low-battery hysteresis: an alert
// fires once when battery crosses to <= threshold and stays suppressed
// until a later update shows it above the threshold again. Must be
// called with the write lock held.
func (s *Store) checkLowBatteryLocked(p models.Position) *Alert {
	battery := p.Attributes.BatteryLevel
	if battery == nil {
		// No battery reading on this fix; hysteresis state is untouched.
		return nil
	}

	if *battery > lowBatteryThreshold {
		delete(s.batteryAlerted, p.DeviceID)
		return nil
	}

	if s.batteryAlerted[p.DeviceID] {
		return nil // already alerted, suppress repeats
	}
	s.batteryAlerted[p.DeviceID] = true

	name := s.devices[p.DeviceID].Name
	metrics.StoreAlerts.WithLabelValues(AlertLowBattery).Inc()
	return &Alert{
		Type:       AlertLowBattery,
		DeviceID:   p.DeviceID,
		DeviceName: name,
		Time:       p.FixTime,
		Message:    fmt.Sprintf("battery at %.0f%%", *battery),
	}
}

// ApplyDeviceStatusPatch merges partial device updates by id. A device
// transitioning into offline gets its offlineSince recorded; returning
// online clears it. Devices not present in the store are ignored.
func (s *Store) ApplyDeviceStatusPatch(devices []models.Device) {
	s.mu.Lock()

	var changes []Change
	for _, d := range devices {
		existing, ok := s.devices[d.ID]
		if !ok {
			continue
		}

		if d.Status != existing.Status {
			switch d.Status {
			case models.DeviceStatusOffline:
				s.offlineSince[d.ID] = s.now()
			case models.DeviceStatusOnline:
				delete(s.offlineSince, d.ID)
			}
		}

		merged := existing
		merged.Status = d.Status
		if d.Name != "" {
			merged.Name = d.Name
		}
		if !d.LastUpdate.IsZero() {
			merged.LastUpdate = d.LastUpdate
		}
		s.devices[d.ID] = merged

		patched := merged
		changes = append(changes, Change{Kind: ChangeDevice, Device: &patched})
	}

	s.mu.Unlock()

	if len(changes) > 0 {
		s.notify(changes...)
	}
}

// ApplyEvent routes a server event into derived state. Geofence enter and
// exit maintain the per-device arrival map and emit an alert; overspeed
// and alarm emit alerts without touching arrival state. Events that
// reference unknown devices or geofences are no-ops, never errors.
func (s *Store) ApplyEvent(e models.Event) {
	s.mu.Lock()

	device, ok := s.devices[e.DeviceID]
	if !ok {
		s.mu.Unlock()
		return
	}

	var alert *Alert
	switch e.Type {
	case models.EventGeofenceEnter, models.EventGeofenceExit:
		geofence, found := s.geofences[e.GeofenceID]
		if !found {
			s.mu.Unlock()
			return
		}
		if e.Type == models.EventGeofenceEnter {
			if s.geofenceArrivals[e.DeviceID] == nil {
				s.geofenceArrivals[e.DeviceID] = make(map[int]time.Time)
			}
			s.geofenceArrivals[e.DeviceID][e.GeofenceID] = e.EventTime
		} else {
			delete(s.geofenceArrivals[e.DeviceID], e.GeofenceID)
		}
		alert = &Alert{
			Type:         e.Type,
			DeviceID:     e.DeviceID,
			DeviceName:   device.Name,
			GeofenceID:   e.GeofenceID,
			GeofenceName: geofence.Name,
			Time:         e.EventTime,
		}

	case models.EventDeviceOverspeed, models.EventAlarm:
		alert = &Alert{
			Type:       e.Type,
			DeviceID:   e.DeviceID,
			DeviceName: device.Name,
			Time:       e.EventTime,
		}
	}

	if alert != nil {
		metrics.StoreAlerts.WithLabelValues(alert.Type).Inc()
	}

	s.mu.Unlock()

	if alert != nil {
		s.notify(Change{Kind: ChangeAlert, Alert: alert})
	}
}

// SetConnected records stream connectivity and notifies listeners on
// every transition. A successful connection clears the last error.
func (s *Store) SetConnected(connected bool) {
	s.mu.Lock()
	changed := s.connected != connected
	s.connected = connected
	if connected {
		s.lastError = ""
	}
	s.mu.Unlock()

	if connected {
		metrics.StreamConnected.Set(1)
	} else {
		metrics.StreamConnected.Set(0)
	}

	if changed {
		c := connected
		s.notify(Change{Kind: ChangeConnectivity, Connected: &c})
	}
}

// SetLastError records a transport-level error message. Non-fatal by
// design: the worst observable outcome is stale data plus this flag.
func (s *Store) SetLastError(msg string) {
	s.mu.Lock()
	s.lastError = msg
	s.mu.Unlock()

	connected := false
	s.notify(Change{Kind: ChangeConnectivity, Connected: &connected, Error: msg})
}

// ApplyReplayMarker publishes an interpolated replay sample to listeners
// so the UI can draw playback motion. It does not touch canonical state.
func (s *Store) ApplyReplayMarker(m ReplayMarker) {
	s.notify(Change{Kind: ChangeReplay, Replay: &m})
}
