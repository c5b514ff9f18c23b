// Tracklight - Live Fleet Tracking and Trip Replay
// Copyright 2026 Tracklight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tracklight/tracklight

package traccar

import (
	"context"
	"time"

	"github.com/tracklight/tracklight/internal/models"
)

// Trips lists the derived trips of a device in a time range.
func (c *Client) Trips(ctx context.Context, deviceID int, from, to time.Time) ([]models.Trip, error) {
	var out []models.Trip
	if err := c.getJSON(ctx, "reports_trips", "/api/reports/trips", rangeQuery(deviceID, from, to), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Stops lists the derived stationary intervals of a device in a time range.
func (c *Client) Stops(ctx context.Context, deviceID int, from, to time.Time) ([]models.Stop, error) {
	var out []models.Stop
	if err := c.getJSON(ctx, "reports_stops", "/api/reports/stops", rangeQuery(deviceID, from, to), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Route lists the raw recorded positions of a device in a time range,
// oldest first. This is the input sequence for trip replay.
func (c *Client) Route(ctx context.Context, deviceID int, from, to time.Time) ([]models.Position, error) {
	var out []models.Position
	if err := c.getJSON(ctx, "reports_route", "/api/reports/route", rangeQuery(deviceID, from, to), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Events lists server events for a device in a time range, optionally
// filtered to the given event types.
func (c *Client) Events(ctx context.Context, deviceID int, from, to time.Time, types []string) ([]models.Event, error) {
	q := rangeQuery(deviceID, from, to)
	for _, t := range types {
		q.Add("type", t)
	}

	var out []models.Event
	if err := c.getJSON(ctx, "reports_events", "/api/reports/events", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Summary aggregates a device's activity over a time range.
func (c *Client) Summary(ctx context.Context, deviceID int, from, to time.Time) ([]models.Summary, error) {
	var out []models.Summary
	if err := c.getJSON(ctx, "reports_summary", "/api/reports/summary", rangeQuery(deviceID, from, to), &out); err != nil {
		return nil, err
	}
	return out, nil
}
