// Tracklight - Live Fleet Tracking and Trip Replay
// Copyright 2026 Tracklight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tracklight/tracklight

package replay

import (
	"math"
	"sync"
	"testing"
	"time"
)

// manualClock is a settable Clock for deterministic playback tests.
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// manualScheduler exposes ticks as an explicit Fire call.
type manualScheduler struct {
	mu sync.Mutex
	fn func()
}

func (m *manualScheduler) Start(fn func()) {
	m.mu.Lock()
	m.fn = fn
	m.mu.Unlock()
}

func (m *manualScheduler) Stop() {
	m.mu.Lock()
	m.fn = nil
	m.mu.Unlock()
}

func (m *manualScheduler) Fire() {
	m.mu.Lock()
	fn := m.fn
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (m *manualScheduler) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fn != nil
}

type sampleSink struct {
	mu      sync.Mutex
	samples []Sample
}

func (s *sampleSink) record(sample Sample) {
	s.mu.Lock()
	s.samples = append(s.samples, sample)
	s.mu.Unlock()
}

func (s *sampleSink) all() []Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Sample, len(s.samples))
	copy(out, s.samples)
	return out
}

func (s *sampleSink) last(t *testing.T) Sample {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.samples) == 0 {
		t.Fatal("no samples emitted")
	}
	return s.samples[len(s.samples)-1]
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func twoFixRoute(start time.Time) []Fix {
	return []Fix{
		{Lat: 48.0, Lon: 2.0, Speed: 0, Time: start},
		{Lat: 48.01, Lon: 2.01, Speed: 10, Time: start.Add(60 * time.Second)},
	}
}

func TestSeekMidpointInterpolation(t *testing.T) {
	clock := newManualClock()
	sched := &manualScheduler{}
	sink := &sampleSink{}

	s := NewSession(twoFixRoute(clock.Now()), clock.Now, sched, sink.record)
	s.Seek(0.5)

	got := sink.last(t)
	if !almostEqual(got.Lat, 48.005) || !almostEqual(got.Lon, 2.005) {
		t.Errorf("midpoint = (%v, %v), want (48.005, 2.005)", got.Lat, got.Lon)
	}
	if !almostEqual(got.Speed, 5) {
		t.Errorf("midpoint speed = %v, want 5", got.Speed)
	}
	if !almostEqual(got.Progress, 0.5) {
		t.Errorf("midpoint progress = %v, want 0.5", got.Progress)
	}
}

func TestSeekEndpointsExact(t *testing.T) {
	clock := newManualClock()
	sched := &manualScheduler{}
	sink := &sampleSink{}

	fixes := twoFixRoute(clock.Now())
	s := NewSession(fixes, clock.Now, sched, sink.record)

	s.Seek(1)
	end := sink.last(t)
	if end.Lat != fixes[1].Lat || end.Lon != fixes[1].Lon || end.Progress != 1 {
		t.Errorf("seek(1) = %+v, want last fix with progress 1", end)
	}

	s.Seek(0)
	begin := sink.last(t)
	if begin.Lat != fixes[0].Lat || begin.Lon != fixes[0].Lon || begin.Progress != 0 {
		t.Errorf("seek(0) = %+v, want first fix with progress 0", begin)
	}
}

func TestSeekFractionClamped(t *testing.T) {
	clock := newManualClock()
	sched := &manualScheduler{}
	sink := &sampleSink{}

	fixes := twoFixRoute(clock.Now())
	s := NewSession(fixes, clock.Now, sched, sink.record)

	s.Seek(1.7)
	if got := sink.last(t); got.Progress != 1 {
		t.Errorf("seek(1.7) progress = %v, want 1", got.Progress)
	}
	s.Seek(-0.3)
	if got := sink.last(t); got.Progress != 0 {
		t.Errorf("seek(-0.3) progress = %v, want 0", got.Progress)
	}
}

func TestPlaybackAdvancesWithMultiplier(t *testing.T) {
	clock := newManualClock()
	sched := &manualScheduler{}
	sink := &sampleSink{}

	s := NewSession(twoFixRoute(clock.Now()), clock.Now, sched, sink.record)

	// At 10x, 3 wall seconds cover 30 route seconds: half the route.
	s.Play(10)
	clock.Advance(3 * time.Second)
	sched.Fire()

	got := sink.last(t)
	if !almostEqual(got.Progress, 0.5) {
		t.Errorf("progress after 3s at 10x = %v, want 0.5", got.Progress)
	}
	if !almostEqual(got.Lat, 48.005) {
		t.Errorf("lat = %v, want 48.005", got.Lat)
	}
}

func TestProgressNonDecreasingWhilePlaying(t *testing.T) {
	clock := newManualClock()
	sched := &manualScheduler{}
	sink := &sampleSink{}

	s := NewSession(twoFixRoute(clock.Now()), clock.Now, sched, sink.record)
	s.Play(1)

	for i := 0; i < 80; i++ {
		clock.Advance(time.Second)
		sched.Fire()
	}

	samples := sink.all()
	if len(samples) == 0 {
		t.Fatal("no samples emitted")
	}
	for i := 1; i < len(samples); i++ {
		if samples[i].Progress < samples[i-1].Progress {
			t.Fatalf("progress regressed at sample %d: %v -> %v",
				i, samples[i-1].Progress, samples[i].Progress)
		}
	}
	if last := samples[len(samples)-1]; last.Progress != 1 {
		t.Errorf("final progress = %v, want 1", last.Progress)
	}
}

func TestPlaybackFinishesAndStaysPaused(t *testing.T) {
	clock := newManualClock()
	sched := &manualScheduler{}
	sink := &sampleSink{}

	s := NewSession(twoFixRoute(clock.Now()), clock.Now, sched, sink.record)
	s.Play(1)
	clock.Advance(90 * time.Second)
	sched.Fire()

	if got := sink.last(t); got.Progress != 1 {
		t.Errorf("terminal progress = %v, want 1", got.Progress)
	}
	if s.State() != StatePaused {
		t.Errorf("state after finish = %v, want paused", s.State())
	}
	if sched.Running() {
		t.Error("scheduler still running after route end")
	}

	// Further wall time must not restart playback.
	before := len(sink.all())
	clock.Advance(time.Minute)
	sched.Fire()
	if got := len(sink.all()); got != before {
		t.Errorf("samples emitted after finish: %d -> %d", before, got)
	}
}

func TestPauseRetainsExactRouteTime(t *testing.T) {
	clock := newManualClock()
	sched := &manualScheduler{}
	sink := &sampleSink{}

	s := NewSession(twoFixRoute(clock.Now()), clock.Now, sched, sink.record)
	s.Play(1)
	clock.Advance(20 * time.Second)
	s.Pause()

	paused := s.RouteTime()
	clock.Advance(time.Hour)
	if got := s.RouteTime(); !got.Equal(paused) {
		t.Errorf("route time drifted while paused: %v -> %v", paused, got)
	}

	// Resuming continues from the retained point.
	s.Play(1)
	clock.Advance(10 * time.Second)
	sched.Fire()
	if got := sink.last(t); !almostEqual(got.Progress, 0.5) {
		t.Errorf("progress after pause+resume = %v, want 0.5", got.Progress)
	}
}

func TestPlayMidPlaybackChangesSpeedWithoutJump(t *testing.T) {
	clock := newManualClock()
	sched := &manualScheduler{}
	sink := &sampleSink{}

	s := NewSession(twoFixRoute(clock.Now()), clock.Now, sched, sink.record)
	s.Play(1)
	clock.Advance(12 * time.Second)

	// Re-establish reference at 2x; position must not jump.
	s.Play(2)
	sched.Fire()
	if got := sink.last(t); !almostEqual(got.Progress, 0.2) {
		t.Errorf("progress right after speed change = %v, want 0.2", got.Progress)
	}

	clock.Advance(9 * time.Second)
	sched.Fire()
	if got := sink.last(t); !almostEqual(got.Progress, 0.5) {
		t.Errorf("progress after 9s at 2x = %v, want 0.5", got.Progress)
	}
}

func TestSeekWhilePlayingKeepsPlaying(t *testing.T) {
	clock := newManualClock()
	sched := &manualScheduler{}
	sink := &sampleSink{}

	s := NewSession(twoFixRoute(clock.Now()), clock.Now, sched, sink.record)
	s.Play(1)
	s.Seek(0.25)

	if s.State() != StatePlaying {
		t.Fatalf("state after seek while playing = %v, want playing", s.State())
	}

	clock.Advance(15 * time.Second)
	sched.Fire()
	if got := sink.last(t); !almostEqual(got.Progress, 0.5) {
		t.Errorf("progress = %v, want 0.5", got.Progress)
	}
}

func TestStopRewindsToFirstFix(t *testing.T) {
	clock := newManualClock()
	sched := &manualScheduler{}
	sink := &sampleSink{}

	fixes := twoFixRoute(clock.Now())
	s := NewSession(fixes, clock.Now, sched, sink.record)
	s.Play(1)
	clock.Advance(30 * time.Second)
	s.Stop()

	if s.State() != StatePaused {
		t.Errorf("state after stop = %v, want paused", s.State())
	}
	if got := s.RouteTime(); !got.Equal(fixes[0].Time) {
		t.Errorf("route time after stop = %v, want %v", got, fixes[0].Time)
	}
	if sched.Running() {
		t.Error("scheduler still running after stop")
	}
}

func TestSinglePointRouteCompletesInstantly(t *testing.T) {
	clock := newManualClock()
	sched := &manualScheduler{}
	sink := &sampleSink{}

	fix := Fix{Lat: 51.5, Lon: -0.12, Speed: 4, Time: clock.Now()}
	s := NewSession([]Fix{fix}, clock.Now, sched, sink.record)
	s.Play(1)

	got := sink.last(t)
	if got.Lat != fix.Lat || got.Lon != fix.Lon || got.Progress != 1 {
		t.Errorf("single-point sample = %+v, want the fix with progress 1", got)
	}
	if s.State() != StatePaused {
		t.Errorf("state = %v, want paused", s.State())
	}
}

func TestDestroyedSessionIgnoresControls(t *testing.T) {
	clock := newManualClock()
	sched := &manualScheduler{}
	sink := &sampleSink{}

	s := NewSession(twoFixRoute(clock.Now()), clock.Now, sched, sink.record)
	s.Destroy()

	s.Play(1)
	s.Seek(0.5)
	s.Stop()

	if got := len(sink.all()); got != 0 {
		t.Errorf("destroyed session emitted %d samples", got)
	}
	if s.State() != StateDestroyed {
		t.Errorf("state = %v, want destroyed", s.State())
	}
}

func TestEvaluateIsPureAndClamped(t *testing.T) {
	clock := newManualClock()
	sched := &manualScheduler{}

	fixes := twoFixRoute(clock.Now())
	s := NewSession(fixes, clock.Now, sched, nil)

	before := fixes[0].Time.Add(-time.Minute)
	if got := s.Evaluate(before); got.Lat != fixes[0].Lat || got.Progress != 0 {
		t.Errorf("evaluate before start = %+v", got)
	}
	after := fixes[1].Time.Add(time.Minute)
	if got := s.Evaluate(after); got.Lat != fixes[1].Lat || got.Progress != 1 {
		t.Errorf("evaluate past end = %+v", got)
	}

	mid := fixes[0].Time.Add(30 * time.Second)
	a := s.Evaluate(mid)
	b := s.Evaluate(mid)
	if a != b {
		t.Errorf("evaluate not deterministic: %+v vs %+v", a, b)
	}
	if got := s.RouteTime(); !got.Equal(fixes[0].Time) {
		t.Errorf("evaluate moved route time to %v", got)
	}
}

func TestUnsortedFixesAreOrdered(t *testing.T) {
	clock := newManualClock()
	sched := &manualScheduler{}
	sink := &sampleSink{}

	start := clock.Now()
	fixes := []Fix{
		{Lat: 48.01, Lon: 2.01, Time: start.Add(60 * time.Second)},
		{Lat: 48.0, Lon: 2.0, Time: start},
	}
	s := NewSession(fixes, clock.Now, sched, sink.record)
	s.Seek(0)
	if got := sink.last(t); got.Lat != 48.0 {
		t.Errorf("first fix after sorting = %v, want 48.0", got.Lat)
	}
}
