// Tracklight - Live Fleet Tracking and Trip Replay
// Copyright 2026 Tracklight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tracklight/tracklight

/*
Package websocket pushes live fleet state to connected dashboards.

The package implements a hub-and-spoke pattern on gorilla/websocket: a
single Hub subscribes to the live state store and fans every change out
to all connected dashboard clients.

Key Components:

  - Hub: central broker that manages client connections and broadcasts
  - Client: one dashboard connection with its read/write goroutines
  - Message: typed envelope for the different change kinds

Each client has two goroutines:
  - readPump: drains the connection, handles application pings
  - writePump: writes hub messages, sends protocol pings

Message Types:

  - snapshot: the store was replaced by a fresh bulk load
  - position: a device moved
  - device: a device's status or metadata changed
  - alert: a derived alert fired (low battery, overspeed, alarm)
  - connectivity: the upstream stream connected or dropped
  - replay: an interpolated trip replay sample

Usage:

	hub := websocket.NewHub()
	st.Subscribe(hub.StoreListener())
	supervisor.Add(hub) // hub.Serve(ctx) runs under supervision

	// upgrade endpoint
	mux.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
	    websocket.ServeWS(hub, w, r)
	})
*/
package websocket
