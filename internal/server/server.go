// Tracklight - Live Fleet Tracking and Trip Replay
// Copyright 2026 Tracklight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tracklight/tracklight

// Package server is the local HTTP/WebSocket gateway the dashboard UI
// connects to. It exposes read-only fleet state, health and metrics
// endpoints, the replay control surface, and the WebSocket upgrade
// endpoint. The gateway never writes to the tracking server.
package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tracklight/tracklight/internal/config"
	"github.com/tracklight/tracklight/internal/logging"
	"github.com/tracklight/tracklight/internal/replay"
	"github.com/tracklight/tracklight/internal/store"
	"github.com/tracklight/tracklight/internal/traccar"
	"github.com/tracklight/tracklight/internal/websocket"
)

// Server bundles the gateway handlers and their dependencies.
type Server struct {
	cfg    config.GatewayConfig
	store  *store.Store
	hub    *websocket.Hub
	replay *replay.Controller
	api    traccar.API
}

// New creates a gateway server over the live store, websocket hub,
// replay controller, and upstream API (used for report pass-through).
func New(cfg config.GatewayConfig, st *store.Store, hub *websocket.Hub, rc *replay.Controller, api traccar.API) *Server {
	return &Server{
		cfg:    cfg,
		store:  st,
		hub:    hub,
		replay: rc,
		api:    api,
	}
}

// Handler builds the chi router with the gateway's middleware stack.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(correlationID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         86400,
	}))

	// Unthrottled: probes and scrapes.
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	r.Handle("/metrics", promhttp.Handler())

	// Live push channel; rate limiting a long-lived upgrade is pointless.
	r.Get("/ws", s.handleWebSocket)

	r.Route("/api", func(r chi.Router) {
		if s.cfg.RateLimitReqs > 0 {
			r.Use(httprate.LimitByIP(s.cfg.RateLimitReqs, s.cfg.RateLimitWindow))
		}

		r.Get("/state", s.handleState)
		r.Get("/devices", s.handleDevices)
		r.Get("/positions", s.handlePositions)
		r.Get("/geofences", s.handleGeofences)
		r.Get("/presence", s.handlePresence)
		r.Get("/devices/{id}/timers", s.handleDeviceTimers)

		r.Route("/reports", func(r chi.Router) {
			r.Get("/trips", s.handleReportTrips)
			r.Get("/stops", s.handleReportStops)
			r.Get("/summary", s.handleReportSummary)
		})

		r.Route("/replay", func(r chi.Router) {
			r.Get("/", s.handleReplayStatus)
			r.Post("/", s.handleReplayLoad)
			r.Delete("/", s.handleReplayDestroy)
			r.Post("/play", s.handleReplayPlay)
			r.Post("/pause", s.handleReplayPause)
			r.Post("/seek", s.handleReplaySeek)
			r.Post("/stop", s.handleReplayStop)
		})
	})

	return r
}

// correlationID tags every request context with a short correlation ID
// so handler log lines for the same request can be grouped.
func correlationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.ContextWithNewCorrelationID(r.Context())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// HTTPServer wraps the router in an http.Server with the configured
// address and timeouts, ready for supervised ListenAndServe.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.Timeout,
		WriteTimeout: s.cfg.Timeout,
		IdleTimeout:  60 * time.Second,
	}
}
