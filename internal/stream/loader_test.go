// Tracklight - Live Fleet Tracking and Trip Replay
// Copyright 2026 Tracklight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tracklight/tracklight

package stream

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tracklight/tracklight/internal/models"
	"github.com/tracklight/tracklight/internal/store"
)

// fakeAPI is a scriptable traccar.API for loader tests.
type fakeAPI struct {
	devices   []models.Device
	positions []models.Position
	geofences []models.Geofence

	devicesErr   error
	positionsErr error
	geofencesErr error

	block chan struct{} // when set, Devices blocks until closed
}

func (f *fakeAPI) Devices(ctx context.Context) ([]models.Device, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.devices, f.devicesErr
}

func (f *fakeAPI) Positions(ctx context.Context) ([]models.Position, error) {
	return f.positions, f.positionsErr
}

func (f *fakeAPI) Geofences(ctx context.Context) ([]models.Geofence, error) {
	return f.geofences, f.geofencesErr
}

func (f *fakeAPI) Trips(ctx context.Context, deviceID int, from, to time.Time) ([]models.Trip, error) {
	return nil, nil
}

func (f *fakeAPI) Stops(ctx context.Context, deviceID int, from, to time.Time) ([]models.Stop, error) {
	return nil, nil
}

func (f *fakeAPI) Route(ctx context.Context, deviceID int, from, to time.Time) ([]models.Position, error) {
	return nil, nil
}

func (f *fakeAPI) Events(ctx context.Context, deviceID int, from, to time.Time, types []string) ([]models.Event, error) {
	return nil, nil
}

func (f *fakeAPI) Summary(ctx context.Context, deviceID int, from, to time.Time) ([]models.Summary, error) {
	return nil, nil
}

func TestLoader_CommitsFullSnapshot(t *testing.T) {
	api := &fakeAPI{
		devices:   []models.Device{{ID: 1, Name: "truck-a", Status: models.DeviceStatusOnline}},
		positions: []models.Position{{DeviceID: 1, FixTime: fixTime, Latitude: 48, Longitude: 2}},
		geofences: []models.Geofence{{ID: 7, Name: "Depot", Area: "CIRCLE (48 2, 100)"}},
	}

	st := store.New()
	l := NewLoader(api, st)

	if err := l.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(st.Devices()) != 1 || len(st.Positions()) != 1 || len(st.Geofences()) != 1 {
		t.Errorf("snapshot not committed: %d/%d/%d",
			len(st.Devices()), len(st.Positions()), len(st.Geofences()))
	}
	if st.LastError() != "" {
		t.Errorf("unexpected error state: %q", st.LastError())
	}
}

func TestLoader_AnyFailureAbortsWholeLoad(t *testing.T) {
	api := &fakeAPI{
		devices:      []models.Device{{ID: 1, Name: "truck-a", Status: models.DeviceStatusOnline}},
		positionsErr: errors.New("boom"),
		geofences:    []models.Geofence{{ID: 7, Name: "Depot", Area: "CIRCLE (48 2, 100)"}},
	}

	st := store.New()
	l := NewLoader(api, st)

	if err := l.Load(context.Background()); err == nil {
		t.Fatal("expected load error")
	}

	// No partial snapshot: nothing committed, single error surfaced.
	if len(st.Devices()) != 0 || len(st.Geofences()) != 0 {
		t.Error("partial snapshot must never be committed")
	}
	if st.LastError() == "" {
		t.Error("expected error state on the store")
	}
}

// sequencedAPI blocks its first Devices call until released and labels
// results so the test can tell which load's snapshot landed.
type sequencedAPI struct {
	fakeAPI
	mu      sync.Mutex
	calls   int
	release chan struct{}
}

func (s *sequencedAPI) Devices(ctx context.Context) ([]models.Device, error) {
	s.mu.Lock()
	s.calls++
	first := s.calls == 1
	s.mu.Unlock()

	if first {
		select {
		case <-s.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return []models.Device{{ID: 1, Name: "stale", Status: models.DeviceStatusOnline}}, nil
	}
	return []models.Device{{ID: 2, Name: "fresh", Status: models.DeviceStatusOnline}}, nil
}

func TestLoader_StaleResponseDiscarded(t *testing.T) {
	api := &sequencedAPI{release: make(chan struct{})}

	st := store.New()
	l := NewLoader(api, st)

	done := make(chan error, 1)
	go func() { done <- l.Load(context.Background()) }()

	// Give the slow load time to claim its generation, then let a
	// fresher load complete first.
	waitFor(t, func() bool {
		api.mu.Lock()
		defer api.mu.Unlock()
		return api.calls >= 1
	}, "first load to start")

	if err := l.Load(context.Background()); err != nil {
		t.Fatalf("fresh load: %v", err)
	}

	// Let the slow load finish; its snapshot must be discarded.
	close(api.release)
	if err := <-done; err != nil {
		t.Fatalf("slow load: %v", err)
	}

	devices := st.Devices()
	if len(devices) != 1 || devices[0].Name != "fresh" {
		t.Errorf("stale snapshot overwrote fresh data: %+v", devices)
	}
}
