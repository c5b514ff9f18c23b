// Tracklight - Live Fleet Tracking and Trip Replay
// Copyright 2026 Tracklight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tracklight/tracklight

package replay

import (
	"sync"
	"time"
)

// Scheduler repeatedly invokes a callback no more often than once per
// interval, with explicit start and cancel. It decouples the session's
// route-time math from whatever scheduling primitive the platform
// offers; tests substitute a manual implementation and drive ticks by
// hand.
type Scheduler interface {
	// Start begins invoking fn repeatedly. A second Start replaces the
	// previous callback.
	Start(fn func())

	// Stop cancels the pending callback. Safe to call when not started.
	Stop()
}

// Clock supplies wall-clock instants. Swappable in tests.
type Clock func() time.Time

// TickScheduler is the production Scheduler, driven by a time.Ticker on
// a dedicated goroutine.
type TickScheduler struct {
	interval time.Duration

	mu     sync.Mutex
	cancel chan struct{}
}

// NewTickScheduler creates a scheduler ticking at the given interval.
func NewTickScheduler(interval time.Duration) *TickScheduler {
	return &TickScheduler{interval: interval}
}

// Start begins ticking. Any previous run is stopped first.
func (s *TickScheduler) Start(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()

	cancel := make(chan struct{})
	s.cancel = cancel

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-cancel:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
}

// Stop cancels the tick goroutine. Idempotent.
func (s *TickScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *TickScheduler) stopLocked() {
	if s.cancel != nil {
		close(s.cancel)
		s.cancel = nil
	}
}
