// Tracklight - Live Fleet Tracking and Trip Replay
// Copyright 2026 Tracklight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tracklight/tracklight

package stream

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/tracklight/tracklight/internal/logging"
	"github.com/tracklight/tracklight/internal/metrics"
	"github.com/tracklight/tracklight/internal/models"
	"github.com/tracklight/tracklight/internal/store"
	"github.com/tracklight/tracklight/internal/traccar"
)

// Loader performs the bulk snapshot load: devices, positions, and
// geofences fetched independently, committed to the store only when all
// three succeed. A Refresh may be issued while a previous load is still
// in flight; the generation token makes sure a stale response is
// discarded instead of overwriting fresher data.
type Loader struct {
	api   traccar.API
	store *store.Store

	generation atomic.Uint64
	commitMu   sync.Mutex
}

// NewLoader creates a bulk loader over the given API and store.
func NewLoader(api traccar.API, st *store.Store) *Loader {
	return &Loader{api: api, store: st}
}

// Load fetches the three entity listings and atomically replaces the
// store's canonical state. Any of the three reads failing aborts the
// whole load: no partial snapshot is ever committed, and the single
// error is recorded on the store.
func (l *Loader) Load(ctx context.Context) error {
	gen := l.generation.Add(1)

	var (
		wg        sync.WaitGroup
		devices   []models.Device
		positions []models.Position
		geofences []models.Geofence
		errDev    error
		errPos    error
		errGeo    error
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		devices, errDev = l.api.Devices(ctx)
	}()
	go func() {
		defer wg.Done()
		positions, errPos = l.api.Positions(ctx)
	}()
	go func() {
		defer wg.Done()
		geofences, errGeo = l.api.Geofences(ctx)
	}()
	wg.Wait()

	for _, err := range []error{errDev, errPos, errGeo} {
		if err != nil {
			metrics.StoreSnapshotLoads.WithLabelValues("error").Inc()
			msg := fmt.Sprintf("snapshot load failed: %v", err)
			l.store.SetLastError(msg)
			return fmt.Errorf("snapshot load: %w", err)
		}
	}

	// Commit under a lock so a stale response can never land after a
	// fresher one.
	l.commitMu.Lock()
	if l.generation.Load() != gen {
		l.commitMu.Unlock()
		logging.Debug().Uint64("generation", gen).Msg("stale snapshot discarded")
		return nil
	}
	l.store.LoadSnapshot(devices, positions, geofences)
	l.commitMu.Unlock()
	logging.Info().
		Int("devices", len(devices)).
		Int("positions", len(positions)).
		Int("geofences", len(geofences)).
		Msg("snapshot loaded")
	return nil
}

// Refresh re-runs the bulk load without touching the live stream.
func (l *Loader) Refresh(ctx context.Context) error {
	return l.Load(ctx)
}
