// Tracklight - Live Fleet Tracking and Trip Replay
// Copyright 2026 Tracklight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tracklight/tracklight

package replay

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tracklight/tracklight/internal/logging"
	"github.com/tracklight/tracklight/internal/metrics"
	"github.com/tracklight/tracklight/internal/models"
	"github.com/tracklight/tracklight/internal/store"
	"github.com/tracklight/tracklight/internal/traccar"
)

// ErrNoSession is returned by playback controls when no trip is loaded.
var ErrNoSession = errors.New("replay: no active session")

// ErrEmptyRoute is returned when the requested range holds no positions.
var ErrEmptyRoute = errors.New("replay: route has no positions")

// Controller owns the single active replay session. Loading a new trip
// destroys the previous session and cancels any route fetch still in
// flight, so at most one replay is ever producing samples.
type Controller struct {
	api      traccar.API
	store    *store.Store
	pointCap int

	clock        Clock
	newScheduler func() Scheduler

	mu          sync.Mutex
	session     *Session
	deviceID    int
	fetchCancel context.CancelFunc
	fetchGen    uint64
}

// NewController wires a controller against the upstream API and the
// live state store. Ticks fire at the given interval.
func NewController(api traccar.API, st *store.Store, pointCap int, tickInterval time.Duration) *Controller {
	return &Controller{
		api:      api,
		store:    st,
		pointCap: pointCap,
		clock:    time.Now,
		newScheduler: func() Scheduler {
			return NewTickScheduler(tickInterval)
		},
	}
}

// SetClock replaces the wall clock and scheduler factory. Test hook.
func (c *Controller) SetClock(clock Clock, newScheduler func() Scheduler) {
	c.clock = clock
	c.newScheduler = newScheduler
}

// LoadTrip fetches the device's route for the given range and replaces
// the active session with a new paused one positioned at the first fix.
// A concurrent LoadTrip cancels this one's fetch.
func (c *Controller) LoadTrip(ctx context.Context, deviceID int, from, to time.Time) (string, error) {
	fetchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	c.teardownLocked()
	c.fetchCancel = cancel
	c.fetchGen++
	gen := c.fetchGen
	c.mu.Unlock()

	positions, err := c.api.Route(fetchCtx, deviceID, from, to)
	if err != nil {
		logging.Error().Err(err).Int("device_id", deviceID).Msg("Route fetch failed")
		return "", err
	}
	if len(positions) == 0 {
		return "", ErrEmptyRoute
	}

	fixes := make([]Fix, 0, len(positions))
	for _, p := range positions {
		fixes = append(fixes, Fix{
			Lat:   p.Latitude,
			Lon:   p.Longitude,
			Speed: p.Speed,
			Time:  p.FixTime,
		})
	}
	if len(fixes) > c.pointCap {
		fixes = Downsample(fixes, c.pointCap)
		metrics.ReplayDownsampled.Inc()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fetchGen != gen {
		// A newer LoadTrip superseded this one while we were decoding.
		return "", context.Canceled
	}

	c.deviceID = deviceID
	c.fetchCancel = nil

	var sess *Session
	sess = NewSession(fixes, c.clock, c.newScheduler(), func(sample Sample) {
		c.store.ApplyReplayMarker(store.ReplayMarker{
			SessionID: sess.ID(),
			DeviceID:  deviceID,
			Latitude:  sample.Lat,
			Longitude: sample.Lon,
			SpeedKmH:  sample.Speed * models.KnotsToKmH,
			Progress:  sample.Progress,
		})
	})
	c.session = sess

	logging.Info().
		Str("session_id", sess.ID()).
		Int("device_id", deviceID).
		Int("points", len(fixes)).
		Msg("Replay session loaded")
	return sess.ID(), nil
}

// Play starts or resumes playback at the given speed multiplier.
func (c *Controller) Play(multiplier float64) error {
	s, err := c.active()
	if err != nil {
		return err
	}
	s.Play(multiplier)
	return nil
}

// Pause freezes playback without losing position.
func (c *Controller) Pause() error {
	s, err := c.active()
	if err != nil {
		return err
	}
	s.Pause()
	return nil
}

// Seek jumps to the given fraction of the route and emits that sample.
func (c *Controller) Seek(fraction float64) error {
	s, err := c.active()
	if err != nil {
		return err
	}
	s.Seek(fraction)
	return nil
}

// Stop rewinds the session to the first fix and pauses.
func (c *Controller) Stop() error {
	s, err := c.active()
	if err != nil {
		return err
	}
	s.Stop()
	return nil
}

// Destroy tears down the active session, if any.
func (c *Controller) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.teardownLocked()
}

// Status reports the active session's identity and playback position.
func (c *Controller) Status() (Status, bool) {
	c.mu.Lock()
	s := c.session
	deviceID := c.deviceID
	c.mu.Unlock()

	if s == nil {
		return Status{}, false
	}
	return Status{
		SessionID: s.ID(),
		DeviceID:  deviceID,
		State:     s.State(),
		Progress:  s.Progress(),
		RouteTime: s.RouteTime(),
	}, true
}

// Status is a point-in-time view of the active session.
type Status struct {
	SessionID string    `json:"sessionId"`
	DeviceID  int       `json:"deviceId"`
	State     State     `json:"state"`
	Progress  float64   `json:"progress"`
	RouteTime time.Time `json:"routeTime"`
}

func (c *Controller) active() (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil, ErrNoSession
	}
	return c.session, nil
}

func (c *Controller) teardownLocked() {
	if c.fetchCancel != nil {
		c.fetchCancel()
		c.fetchCancel = nil
	}
	if c.session != nil {
		c.session.Destroy()
		c.session = nil
	}
}
