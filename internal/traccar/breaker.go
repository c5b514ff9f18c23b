// Tracklight - Live Fleet Tracking and Trip Replay
// Copyright 2026 Tracklight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tracklight/tracklight

package traccar

import (
	"context"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tracklight/tracklight/internal/logging"
	"github.com/tracklight/tracklight/internal/metrics"
	"github.com/tracklight/tracklight/internal/models"
)

// BreakerClient wraps the REST client with a circuit breaker so a down
// or degraded tracking server fails fast instead of piling up timeouts.
// The breaker guards recovery timing only; data handling is unchanged.
type BreakerClient struct {
	client API
	cb     *gobreaker.CircuitBreaker[any]
}

// NewBreakerClient wraps client with a circuit breaker:
//   - opens after a 60% failure rate over at least 10 requests
//   - allows 3 trial requests in half-open state
//   - waits 2 minutes before attempting recovery
func NewBreakerClient(client API) *BreakerClient {
	const name = "tracking-server"

	metrics.CircuitBreakerState.WithLabelValues(name).Set(0) // closed

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			if failureRatio >= 0.6 {
				logging.Warn().
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Msg("circuit breaker opening")
				return true
			}
			return false
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", stateToString(from)).
				Str("to", stateToString(to)).
				Msg("circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, stateToString(from), stateToString(to)).Inc()
		},
	})

	return &BreakerClient{client: client, cb: cb}
}

func stateToString(s gobreaker.State) string {
	switch s {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// execute funnels a call through the breaker, preserving the typed result.
func execute[T any](cb *gobreaker.CircuitBreaker[any], fn func() (T, error)) (T, error) {
	res, err := cb.Execute(func() (any, error) { return fn() })
	if err != nil {
		var zero T
		return zero, err
	}
	return res.(T), nil
}

func (b *BreakerClient) Devices(ctx context.Context) ([]models.Device, error) {
	return execute(b.cb, func() ([]models.Device, error) { return b.client.Devices(ctx) })
}

func (b *BreakerClient) Positions(ctx context.Context) ([]models.Position, error) {
	return execute(b.cb, func() ([]models.Position, error) { return b.client.Positions(ctx) })
}

func (b *BreakerClient) Geofences(ctx context.Context) ([]models.Geofence, error) {
	return execute(b.cb, func() ([]models.Geofence, error) { return b.client.Geofences(ctx) })
}

func (b *BreakerClient) Trips(ctx context.Context, deviceID int, from, to time.Time) ([]models.Trip, error) {
	return execute(b.cb, func() ([]models.Trip, error) { return b.client.Trips(ctx, deviceID, from, to) })
}

func (b *BreakerClient) Stops(ctx context.Context, deviceID int, from, to time.Time) ([]models.Stop, error) {
	return execute(b.cb, func() ([]models.Stop, error) { return b.client.Stops(ctx, deviceID, from, to) })
}

func (b *BreakerClient) Route(ctx context.Context, deviceID int, from, to time.Time) ([]models.Position, error) {
	return execute(b.cb, func() ([]models.Position, error) { return b.client.Route(ctx, deviceID, from, to) })
}

func (b *BreakerClient) Events(ctx context.Context, deviceID int, from, to time.Time, types []string) ([]models.Event, error) {
	return execute(b.cb, func() ([]models.Event, error) { return b.client.Events(ctx, deviceID, from, to, types) })
}

func (b *BreakerClient) Summary(ctx context.Context, deviceID int, from, to time.Time) ([]models.Summary, error) {
	return execute(b.cb, func() ([]models.Summary, error) { return b.client.Summary(ctx, deviceID, from, to) })
}
