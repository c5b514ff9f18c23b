// Tracklight - Live Fleet Tracking and Trip Replay
// Copyright 2026 Tracklight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tracklight/tracklight

// Package main is the entry point for the Tracklight gateway.
//
// Tracklight is a self-hosted live fleet dashboard core. It consumes a
// Traccar-compatible tracking server (bulk REST loads plus the
// /api/socket WebSocket stream), maintains an observable in-memory
// fleet state store with derived timers and alerts, and re-publishes
// everything to dashboard UIs over its own HTTP/WebSocket gateway. A
// deterministic trip replay engine plays recorded routes back at
// scaled speed.
//
// # Startup order
//
//  1. Configuration: Koanf v2 layered sources (defaults, config.yaml,
//     TRACKLIGHT_* environment variables; .env loaded best-effort)
//  2. Logging: zerolog, configured from the loaded settings
//  3. Upstream client: rate-limited REST client behind a circuit breaker
//  4. Store: observable live state with derived timers and alerts
//  5. Initial snapshot: bulk load of devices, positions, geofences
//  6. Supervisor tree: stream channel + websocket hub (sync layer),
//     HTTP gateway (api layer)
//
// # Configuration
//
// Minimal environment:
//
//	export TRACKLIGHT_UPSTREAM_URL=http://localhost:8082
//	export TRACKLIGHT_UPSTREAM_TOKEN=your-access-token
//	./tracklight
//
// The gateway binds 127.0.0.1:8117 by default. A config.yaml next to
// the binary (or CONFIG_PATH) overrides defaults; the internal/config
// package documents the full surface.
//
// # Signal handling
//
// SIGINT and SIGTERM trigger a graceful stop: the gateway drains
// in-flight requests (10s budget), the stream connection and dashboard
// sockets are closed, and the supervisor tree winds down.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tracklight/tracklight/internal/config"
	"github.com/tracklight/tracklight/internal/logging"
	"github.com/tracklight/tracklight/internal/replay"
	"github.com/tracklight/tracklight/internal/server"
	"github.com/tracklight/tracklight/internal/store"
	"github.com/tracklight/tracklight/internal/stream"
	"github.com/tracklight/tracklight/internal/supervisor"
	"github.com/tracklight/tracklight/internal/traccar"
	ws "github.com/tracklight/tracklight/internal/websocket"
)

func main() {
	// Best-effort .env load; absence is the normal production case.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("upstream", cfg.Upstream.URL).
		Str("gateway", cfg.Gateway.Host).
		Int("port", cfg.Gateway.Port).
		Msg("Starting Tracklight")

	// Upstream REST client: rate-limited, wrapped in a circuit breaker
	// so a dead tracking server fails fast instead of piling up requests.
	api := traccar.NewBreakerClient(traccar.NewClient(&cfg.Upstream))

	st := store.New()

	hub := ws.NewHub()
	st.Subscribe(hub.StoreListener())

	replayController := replay.NewController(api, st, cfg.Replay.PointCap, cfg.Replay.TickInterval)

	channel, err := stream.NewChannel(&cfg.Upstream, &cfg.Stream, st)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to build stream channel")
	}

	gateway := server.New(cfg.Gateway, st, hub, replayController, api)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initial bulk snapshot. A failure is not fatal: the stream channel
	// keeps reconnecting and the loader can be retried, so the gateway
	// comes up serving an empty store rather than refusing to start.
	loader := stream.NewLoader(api, st)
	loadCtx, loadCancel := context.WithTimeout(ctx, cfg.Upstream.Timeout)
	if err := loader.Load(loadCtx); err != nil {
		logging.Warn().Err(err).Msg("Initial snapshot failed; continuing with empty store")
	}
	loadCancel()

	tree, err := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	tree.AddSyncService(channel)
	tree.AddSyncService(hub)
	tree.AddAPIService(supervisor.NewHTTPService(gateway.HTTPServer(), 10*time.Second))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Drain until the supervisor closes the channel.
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	replayController.Destroy()

	if unstopped, _ := tree.UnstoppedServiceReport(); len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
		}
	}

	logging.Info().Msg("Tracklight stopped gracefully")
}
