// Tracklight - Live Fleet Tracking and Trip Replay
// Copyright 2026 Tracklight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tracklight/tracklight

// Package traccar implements the read-only REST client for the tracking
// server: entity listings for the bulk snapshot and the reporting
// endpoints (trips, stops, route, events, summary). Tracklight produces
// no endpoints of its own against this server; it is a pure consumer.
package traccar

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tracklight/tracklight/internal/config"
	"github.com/tracklight/tracklight/internal/metrics"
	"github.com/tracklight/tracklight/internal/models"
)

// maxErrorBodySize bounds how much of an error response is read for
// diagnostics, preventing unbounded allocation on large error pages.
const maxErrorBodySize = 64 * 1024 // 64KB

// readBodyForError reads at most maxErrorBodySize bytes of a response
// body for error reporting.
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("\n... (truncated)")...)
	}
	return body
}

// API is the interface every Tracklight component consumes the tracking
// server through. Implemented by Client, by BreakerClient for production
// resilience, and by mocks in tests.
//
// All methods accept a context for cancellation and return typed models
// decoded straight off the wire. They are safe for concurrent use.
type API interface {
	Devices(ctx context.Context) ([]models.Device, error)
	Positions(ctx context.Context) ([]models.Position, error)
	Geofences(ctx context.Context) ([]models.Geofence, error)
	Trips(ctx context.Context, deviceID int, from, to time.Time) ([]models.Trip, error)
	Stops(ctx context.Context, deviceID int, from, to time.Time) ([]models.Stop, error)
	Route(ctx context.Context, deviceID int, from, to time.Time) ([]models.Position, error)
	Events(ctx context.Context, deviceID int, from, to time.Time, types []string) ([]models.Event, error)
	Summary(ctx context.Context, deviceID int, from, to time.Time) ([]models.Summary, error)
}

// Client talks to the tracking server's REST API with bearer-token
// authentication and client-side rate limiting.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a REST client from the upstream configuration.
func NewClient(cfg *config.UpstreamConfig) *Client {
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}

	return &Client{
		baseURL: cfg.URL,
		token:   cfg.Token,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(limit, 1),
	}
}

// getJSON performs an authenticated GET against path and decodes the
// JSON response into out. The endpoint label feeds request metrics.
func (c *Client) getJSON(ctx context.Context, endpoint, path string, query url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request %s: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.APIRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.APIRequestErrors.WithLabelValues(endpoint).Inc()
		return fmt.Errorf("%s request: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.APIRequestErrors.WithLabelValues(endpoint).Inc()
		body := readBodyForError(resp.Body)
		return fmt.Errorf("%s returned HTTP %d: %s", endpoint, resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		metrics.APIRequestErrors.WithLabelValues(endpoint).Inc()
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return nil
}

// Devices lists all devices visible to the session.
func (c *Client) Devices(ctx context.Context) ([]models.Device, error) {
	var out []models.Device
	if err := c.getJSON(ctx, "devices", "/api/devices", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Positions lists the current position of every device.
func (c *Client) Positions(ctx context.Context) ([]models.Position, error) {
	var out []models.Position
	if err := c.getJSON(ctx, "positions", "/api/positions", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Geofences lists all geofences.
func (c *Client) Geofences(ctx context.Context) ([]models.Geofence, error) {
	var out []models.Geofence
	if err := c.getJSON(ctx, "geofences", "/api/geofences", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// rangeQuery builds the deviceId/from/to parameter set shared by every
// reporting endpoint.
func rangeQuery(deviceID int, from, to time.Time) url.Values {
	q := url.Values{}
	q.Set("deviceId", strconv.Itoa(deviceID))
	q.Set("from", from.UTC().Format(time.RFC3339))
	q.Set("to", to.UTC().Format(time.RFC3339))
	return q
}
