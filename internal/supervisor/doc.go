// Tracklight - Live Fleet Tracking and Trip Replay
// Copyright 2026 Tracklight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tracklight/tracklight

/*
Package supervisor builds the suture/v4 supervision tree that keeps
Tracklight's long-running components alive.

Layout:

	tracklight (root)
	├── sync-layer
	│   ├── stream-channel (upstream WebSocket consumer)
	│   └── websocket-hub  (dashboard fan-out)
	└── api-layer
	    └── http-gateway   (chi router behind HTTPService)

Services implement suture.Service (Serve(ctx) error + fmt.Stringer).
The stream channel and hub already do; the HTTP server is adapted by
HTTPService, which translates context cancellation into a graceful
http.Server.Shutdown.

Failures restart only the owning layer. Supervisor events are logged
through sutureslog into the application's slog handler.
*/
package supervisor
