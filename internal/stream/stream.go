// Tracklight - Live Fleet Tracking and Trip Replay
// Copyright 2026 Tracklight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tracklight/tracklight

// Package stream is the sync channel between the tracking server and the
// live state store: a persistent WebSocket connection translating inbound
// frames into store mutations, plus the one-shot bulk loader that seeds
// the store with a full snapshot.
//
// The reconnect loop is an explicit retry state machine driven by the
// service context, not a fire-and-forget timer, so shutdown is
// deterministic and never leaks a pending reconnect.
package stream

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tracklight/tracklight/internal/config"
	"github.com/tracklight/tracklight/internal/logging"
	"github.com/tracklight/tracklight/internal/metrics"
	"github.com/tracklight/tracklight/internal/models"
	"github.com/tracklight/tracklight/internal/store"
)

// socketPath is the tracking server's stream endpoint.
const socketPath = "/api/socket"

// Channel maintains the live stream and applies its frames to the store.
// It implements suture.Service via Serve.
type Channel struct {
	wsURL            string
	token            string
	reconnectDelay   time.Duration
	handshakeTimeout time.Duration

	store *store.Store
}

// NewChannel builds a stream channel for the configured upstream. The
// WebSocket URL is derived from the REST base URL (http -> ws).
func NewChannel(upstream *config.UpstreamConfig, streamCfg *config.StreamConfig, st *store.Store) (*Channel, error) {
	wsURL, err := socketURL(upstream.URL)
	if err != nil {
		return nil, err
	}

	return &Channel{
		wsURL:            wsURL,
		token:            upstream.Token,
		reconnectDelay:   streamCfg.ReconnectDelay,
		handshakeTimeout: streamCfg.HandshakeTimeout,
		store:            st,
	}, nil
}

// socketURL converts the REST base URL into the stream endpoint URL.
func socketURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse upstream url: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
		// already a stream scheme
	default:
		return "", fmt.Errorf("unsupported upstream scheme %q", u.Scheme)
	}

	u.Path = socketPath
	return u.String(), nil
}

// String implements fmt.Stringer for supervisor logging.
func (c *Channel) String() string {
	return "stream-channel"
}

// Serve runs the connect/read/reconnect loop until ctx is canceled.
// Every connection loss marks the store disconnected and schedules a
// single reconnect after the fixed delay; the loop repeats indefinitely
// while the context lives.
func (c *Channel) Serve(ctx context.Context) error {
	for {
		err := c.runConnection(ctx)
		c.store.SetConnected(false)

		if ctx.Err() != nil {
			return ctx.Err()
		}

		logging.Warn().
			Err(err).
			Dur("retry_in", c.reconnectDelay).
			Msg("stream connection lost, reconnecting")

		select {
		case <-time.After(c.reconnectDelay):
			metrics.StreamReconnects.Inc()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// runConnection dials the stream and pumps frames until the connection
// drops or the context is canceled.
func (c *Channel) runConnection(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout:  c.handshakeTimeout,
		EnableCompression: true,
	}

	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}

	conn, resp, err := dialer.DialContext(ctx, c.wsURL, header)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return fmt.Errorf("stream dial failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("stream dial: %w", err)
	}

	c.store.SetConnected(true)
	logging.Info().Str("url", c.wsURL).Msg("stream connected")

	// Unblock the read loop on shutdown by closing the connection.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			_ = conn.Close()
			if ctx.Err() != nil {
				return ctx.Err()
			}
			metrics.StreamFramesDropped.WithLabelValues("read_error").Inc()
			return fmt.Errorf("stream read: %w", err)
		}
		c.handleFrame(data)
	}
}

// handleFrame parses one stream message defensively and applies its
// contents to the store. A malformed frame is dropped with a diagnostic;
// it must never interrupt an otherwise-live session.
func (c *Channel) handleFrame(data []byte) {
	metrics.StreamFramesTotal.Inc()

	var frame models.Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		metrics.StreamFramesDropped.WithLabelValues("malformed").Inc()
		logging.Warn().Err(err).Int("bytes", len(data)).Msg("malformed stream frame dropped")
		return
	}

	if len(frame.Devices) > 0 {
		c.store.ApplyDeviceStatusPatch(frame.Devices)
	}
	for _, p := range frame.Positions {
		c.store.ApplyPositionUpdate(p)
	}
	for _, e := range frame.Events {
		c.store.ApplyEvent(e)
	}
}
