// Tracklight - Live Fleet Tracking and Trip Replay
// Copyright 2026 Tracklight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tracklight/tracklight

// Package metrics exposes Prometheus instrumentation for Tracklight:
// stream connectivity and frame handling, store mutations and alerts,
// replay engine activity, and upstream REST client behavior.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Stream Metrics

	StreamConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stream_connected",
			Help: "Whether the live stream connection is currently open (1) or down (0)",
		},
	)

	StreamReconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stream_reconnects_total",
			Help: "Total number of stream reconnect attempts",
		},
	)

	StreamFramesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stream_frames_total",
			Help: "Total number of stream frames received",
		},
	)

	StreamFramesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stream_frames_dropped_total",
			Help: "Total number of stream frames dropped",
		},
		[]string{"reason"}, // "malformed", "read_error"
	)

	// Store Metrics

	StorePositionUpdates = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "store_position_updates_total",
			Help: "Total number of position upserts applied to the store",
		},
	)

	StoreStalePositions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "store_stale_positions_total",
			Help: "Total number of position updates discarded for carrying an older fix time",
		},
	)

	StoreSnapshotLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_snapshot_loads_total",
			Help: "Total number of bulk snapshot loads",
		},
		[]string{"result"}, // "ok", "error"
	)

	StoreDevices = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "store_devices",
			Help: "Current number of devices in the store",
		},
	)

	StoreAlerts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_alerts_total",
			Help: "Total number of alerts emitted by the store",
		},
		[]string{"type"}, // "lowBattery", "geofenceEnter", ...
	)

	// Replay Metrics

	ReplaySessionsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "replay_sessions_started_total",
			Help: "Total number of replay sessions loaded",
		},
	)

	ReplayTicks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "replay_ticks_total",
			Help: "Total number of replay scheduler ticks evaluated",
		},
	)

	ReplaySeeks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "replay_seeks_total",
			Help: "Total number of replay seek operations",
		},
	)

	ReplayDownsampled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "replay_downsampled_total",
			Help: "Total number of route sequences downsampled before replay",
		},
	)

	// Upstream REST Client Metrics

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_request_duration_seconds",
			Help:    "Upstream tracking-server request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"endpoint"},
	)

	APIRequestErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_request_errors_total",
			Help: "Total number of upstream request failures",
		},
		[]string{"endpoint"},
	)

	// Circuit Breaker Metrics

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// UI Gateway Metrics

	WebSocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_clients",
			Help: "Current number of connected UI WebSocket clients",
		},
	)

	WebSocketMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of messages broadcast to UI clients",
		},
	)
)
