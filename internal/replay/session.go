// Tracklight - Live Fleet Tracking and Trip Replay
// Copyright 2026 Tracklight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tracklight/tracklight

package replay

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tracklight/tracklight/internal/metrics"
)

// State is the lifecycle phase of a replay session.
type State string

const (
	StatePaused    State = "paused"
	StatePlaying   State = "playing"
	StateDestroyed State = "destroyed"
)

// Fix is one recorded point on the trip being replayed.
type Fix struct {
	Lat   float64
	Lon   float64
	Speed float64 // knots, as recorded
	Time  time.Time
}

// Sample is an interpolated playback position emitted on every tick and
// seek. Progress runs 0..1 over the route's time span.
type Sample struct {
	Lat      float64
	Lon      float64
	Speed    float64 // knots
	Progress float64
}

// Session replays a fixed point sequence against a scaled clock. Route
// time advances at multiplier times wall time while playing; pausing
// freezes route time exactly where it stood. All position output is
// derived from route time alone, so a given route time always yields
// the same sample regardless of how playback arrived there.
type Session struct {
	id    string
	clock Clock
	sched Scheduler

	// onSample receives every emitted sample. Called without the
	// session lock held.
	onSample func(Sample)

	mu         sync.Mutex
	fixes      []Fix
	t0, tn     time.Time
	state      State
	multiplier float64

	// Playback reference: at wall instant refWall, route time was
	// refRoute. Current route time while playing is
	// refRoute + (now-refWall)*multiplier.
	refWall  time.Time
	refRoute time.Time

	// routeTime is authoritative while paused.
	routeTime time.Time
}

// NewSession builds a paused session positioned at the first fix. The
// fix sequence must be non-empty; it is sorted by time if not already.
func NewSession(fixes []Fix, clock Clock, sched Scheduler, onSample func(Sample)) *Session {
	sorted := make([]Fix, len(fixes))
	copy(sorted, fixes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time.Before(sorted[j].Time)
	})

	s := &Session{
		id:       uuid.NewString(),
		clock:    clock,
		sched:    sched,
		onSample: onSample,
		fixes:    sorted,
		t0:       sorted[0].Time,
		tn:       sorted[len(sorted)-1].Time,
		state:    StatePaused,
	}
	s.routeTime = s.t0
	metrics.ReplaySessionsStarted.Inc()
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// RouteTime returns the current position on the route's time axis.
func (s *Session) RouteTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentRouteTimeLocked()
}

// Progress returns playback progress in [0,1].
func (s *Session) Progress() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progressAtLocked(s.currentRouteTimeLocked())
}

// Play starts or restarts playback at the given speed multiplier. The
// reference instant is re-established, so calling Play mid-playback
// changes speed without jumping position. A session already at the end
// of the route emits the terminal sample and stays paused. A
// single-point route completes instantly.
func (s *Session) Play(multiplier float64) {
	if multiplier <= 0 {
		multiplier = 1
	}

	s.mu.Lock()
	if s.state == StateDestroyed {
		s.mu.Unlock()
		return
	}

	rt := s.currentRouteTimeLocked()
	if !rt.Before(s.tn) {
		// Nothing left to play.
		s.routeTime = s.tn
		s.state = StatePaused
		sample := s.evaluateLocked(s.tn)
		s.mu.Unlock()
		s.emit(sample)
		return
	}

	s.refWall = s.clock()
	s.refRoute = rt
	s.routeTime = rt
	s.multiplier = multiplier
	s.state = StatePlaying
	s.mu.Unlock()

	s.sched.Start(s.tick)
}

// Pause freezes playback. The route time at the pause instant is
// retained exactly, so a subsequent Play resumes from the same point.
func (s *Session) Pause() {
	s.mu.Lock()
	if s.state != StatePlaying {
		s.mu.Unlock()
		return
	}
	s.routeTime = s.currentRouteTimeLocked()
	s.state = StatePaused
	s.mu.Unlock()

	s.sched.Stop()
}

// Seek jumps to the given fraction of the route's time span and emits
// the sample for that point immediately. Fractions outside [0,1] are
// clamped. If the session was playing it keeps playing from the new
// position at the same multiplier.
func (s *Session) Seek(fraction float64) {
	if fraction < 0 {
		fraction = 0
	} else if fraction > 1 {
		fraction = 1
	}

	s.mu.Lock()
	if s.state == StateDestroyed {
		s.mu.Unlock()
		return
	}

	span := s.tn.Sub(s.t0)
	rt := s.t0.Add(time.Duration(float64(span) * fraction))

	wasPlaying := s.state == StatePlaying
	multiplier := s.multiplier

	s.routeTime = rt
	s.state = StatePaused
	sample := s.evaluateLocked(rt)
	s.mu.Unlock()

	if wasPlaying {
		s.sched.Stop()
	}
	metrics.ReplaySeeks.Inc()
	s.emit(sample)

	if wasPlaying && rt.Before(s.tn) {
		s.Play(multiplier)
	}
}

// Stop halts playback and rewinds to the first fix.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.state == StateDestroyed {
		s.mu.Unlock()
		return
	}
	s.routeTime = s.t0
	s.state = StatePaused
	s.mu.Unlock()

	s.sched.Stop()
}

// Destroy ends the session permanently. All further calls are no-ops.
func (s *Session) Destroy() {
	s.mu.Lock()
	s.state = StateDestroyed
	s.mu.Unlock()

	s.sched.Stop()
}

// Evaluate returns the interpolated sample for an arbitrary route time,
// clamped to the route's span. It never mutates playback state.
func (s *Session) Evaluate(rt time.Time) Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evaluateLocked(rt)
}

// tick advances route time by the scaled wall-clock delta and emits a
// sample. Runs on the scheduler goroutine.
func (s *Session) tick() {
	s.mu.Lock()
	if s.state != StatePlaying {
		s.mu.Unlock()
		return
	}

	rt := s.currentRouteTimeLocked()
	finished := !rt.Before(s.tn)
	if finished {
		rt = s.tn
		s.routeTime = s.tn
		s.state = StatePaused
	}
	sample := s.evaluateLocked(rt)
	s.mu.Unlock()

	if finished {
		s.sched.Stop()
	}
	metrics.ReplayTicks.Inc()
	s.emit(sample)
}

func (s *Session) emit(sample Sample) {
	if s.onSample != nil {
		s.onSample(sample)
	}
}

func (s *Session) currentRouteTimeLocked() time.Time {
	if s.state != StatePlaying {
		return s.routeTime
	}
	elapsed := s.clock().Sub(s.refWall)
	rt := s.refRoute.Add(time.Duration(float64(elapsed) * s.multiplier))
	if rt.After(s.tn) {
		return s.tn
	}
	return rt
}

func (s *Session) progressAtLocked(rt time.Time) float64 {
	span := s.tn.Sub(s.t0)
	if span <= 0 {
		return 1
	}
	p := float64(rt.Sub(s.t0)) / float64(span)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// evaluateLocked interpolates the sample at the given route time. The
// bracketing fix pair is found by binary search; latitude, longitude
// and speed interpolate linearly within the pair.
func (s *Session) evaluateLocked(rt time.Time) Sample {
	if rt.Before(s.t0) {
		rt = s.t0
	} else if rt.After(s.tn) {
		rt = s.tn
	}

	progress := s.progressAtLocked(rt)

	n := len(s.fixes)
	if n == 1 || !rt.Before(s.tn) {
		last := s.fixes[n-1]
		return Sample{Lat: last.Lat, Lon: last.Lon, Speed: last.Speed, Progress: progress}
	}

	// First fix strictly after rt; the bracket is [i-1, i].
	i := sort.Search(n, func(k int) bool {
		return s.fixes[k].Time.After(rt)
	})
	if i == 0 {
		f := s.fixes[0]
		return Sample{Lat: f.Lat, Lon: f.Lon, Speed: f.Speed, Progress: progress}
	}

	a, b := s.fixes[i-1], s.fixes[i]
	gap := b.Time.Sub(a.Time)
	if gap <= 0 {
		return Sample{Lat: b.Lat, Lon: b.Lon, Speed: b.Speed, Progress: progress}
	}

	frac := float64(rt.Sub(a.Time)) / float64(gap)
	return Sample{
		Lat:      a.Lat + (b.Lat-a.Lat)*frac,
		Lon:      a.Lon + (b.Lon-a.Lon)*frac,
		Speed:    a.Speed + (b.Speed-a.Speed)*frac,
		Progress: progress,
	}
}
