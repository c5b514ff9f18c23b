// Tracklight - Live Fleet Tracking and Trip Replay
// Copyright 2026 Tracklight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tracklight/tracklight

// Package store holds the canonical in-memory view of the fleet: devices,
// their latest positions, geofences, and the derived timers and alert
// state computed from every mutation. It is the single source of truth
// for the UI gateway and the alert pipeline.
//
// The store is an explicit observable container: one instance is passed
// to the sync channel and the gateway, and registered listeners are
// invoked synchronously after each mutation. All state is rebuilt from a
// fresh snapshot on startup; nothing is persisted.
package store

import (
	"sync"
	"time"

	"github.com/tracklight/tracklight/internal/geo"
	"github.com/tracklight/tracklight/internal/metrics"
	"github.com/tracklight/tracklight/internal/models"
)

const (
	// lowBatteryThreshold arms the low-battery alert at or below this
	// percentage and disarms it above.
	lowBatteryThreshold = 20.0

	// stillSpeedKmH is the speed below which a device counts as stationary.
	stillSpeedKmH = 1.0
)

// Store is the live state container. All methods are safe for concurrent
// use; mutations are short and apply-then-return, so listeners observe a
// consistent state.
type Store struct {
	mu sync.RWMutex

	devices    map[int]models.Device
	positions  map[int]models.Position
	geofences  map[int]models.Geofence
	geometries map[int]*geo.Geometry // parsed once per snapshot; nil entries mean unparseable

	// Derived per-device timers and alert hysteresis.
	offlineSince     map[int]time.Time
	stillSince       map[int]time.Time
	geofenceArrivals map[int]map[int]time.Time // device id -> geofence id -> arrival instant
	batteryAlerted   map[int]bool              // device ids currently below the low-battery threshold

	connected bool
	lastError string

	listeners []Listener

	// now is the clock, swappable in tests.
	now func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		devices:          make(map[int]models.Device),
		positions:        make(map[int]models.Position),
		geofences:        make(map[int]models.Geofence),
		geometries:       make(map[int]*geo.Geometry),
		offlineSince:     make(map[int]time.Time),
		stillSince:       make(map[int]time.Time),
		geofenceArrivals: make(map[int]map[int]time.Time),
		batteryAlerted:   make(map[int]bool),
		now:              time.Now,
	}
}

// SetClock replaces the store's time source. Intended for tests.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Subscribe registers a listener for change notifications. Listeners are
// called synchronously after each mutation, in subscription order.
func (s *Store) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// notify dispatches changes to listeners. Must be called WITHOUT the
// lock held so listeners can read back from the store.
func (s *Store) notify(changes ...Change) {
	s.mu.RLock()
	listeners := make([]Listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.RUnlock()

	for _, l := range listeners {
		for _, c := range changes {
			l(c)
		}
	}
}

// LoadSnapshot atomically replaces the canonical devices, positions, and
// geofences. Derived timers and battery hysteresis survive the reload,
// except entries whose device no longer exists, which are pruned.
// Geofence areas are parsed here once; unparseable areas get a nil
// geometry and the geofence is still listed.
func (s *Store) LoadSnapshot(devices []models.Device, positions []models.Position, geofences []models.Geofence) {
	s.mu.Lock()

	s.devices = make(map[int]models.Device, len(devices))
	for _, d := range devices {
		s.devices[d.ID] = d
	}

	s.positions = make(map[int]models.Position, len(positions))
	for _, p := range positions {
		// A position whose device is absent from the snapshot is dropped;
		// no entity may be partially constructed.
		if _, ok := s.devices[p.DeviceID]; !ok {
			continue
		}
		s.positions[p.DeviceID] = p
	}

	s.geofences = make(map[int]models.Geofence, len(geofences))
	s.geometries = make(map[int]*geo.Geometry, len(geofences))
	for _, g := range geofences {
		s.geofences[g.ID] = g
		s.geometries[g.ID] = geo.ParseArea(g.Area)
	}

	s.pruneTimersLocked()

	metrics.StoreDevices.Set(float64(len(s.devices)))
	metrics.StoreSnapshotLoads.WithLabelValues("ok").Inc()

	s.mu.Unlock()

	s.notify(Change{Kind: ChangeSnapshot})
}

// pruneTimersLocked drops derived state owned by devices that no longer
// exist. Must be called with the write lock held.
func (s *Store) pruneTimersLocked() {
	for id := range s.offlineSince {
		if _, ok := s.devices[id]; !ok {
			delete(s.offlineSince, id)
		}
	}
	for id := range s.stillSince {
		if _, ok := s.devices[id]; !ok {
			delete(s.stillSince, id)
		}
	}
	for id := range s.geofenceArrivals {
		if _, ok := s.devices[id]; !ok {
			delete(s.geofenceArrivals, id)
		}
	}
	for id := range s.batteryAlerted {
		if _, ok := s.devices[id]; !ok {
			delete(s.batteryAlerted, id)
		}
	}
}

// Devices returns a copy of all devices.
func (s *Store) Devices() []models.Device {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Device, 0, len(s.devices))
	for _, d := range s.devices {
		out = append(out, d)
	}
	return out
}

// Device returns the device with the given id.
func (s *Store) Device(id int) (models.Device, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.devices[id]
	return d, ok
}

// Positions returns a copy of the current position of every device.
func (s *Store) Positions() []models.Position {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Position, 0, len(s.positions))
	for _, p := range s.positions {
		out = append(out, p)
	}
	return out
}

// Position returns the current position of the given device.
func (s *Store) Position(deviceID int) (models.Position, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.positions[deviceID]
	return p, ok
}

// Geofences returns a copy of all geofences.
func (s *Store) Geofences() []models.Geofence {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Geofence, 0, len(s.geofences))
	for _, g := range s.geofences {
		out = append(out, g)
	}
	return out
}

// Geofence returns the geofence with the given id.
func (s *Store) Geofence(id int) (models.Geofence, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.geofences[id]
	return g, ok
}

// Geometry returns the parsed geometry for a geofence, or nil when the
// area was unparseable or the id unknown.
func (s *Store) Geometry(geofenceID int) *geo.Geometry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.geometries[geofenceID]
}

// Connected reports the live stream connectivity flag.
func (s *Store) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// LastError returns the most recent transport error message, empty when
// the last operation succeeded.
func (s *Store) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}
