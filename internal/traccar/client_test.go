// Tracklight - Live Fleet Tracking and Trip Replay
// Copyright 2026 Tracklight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tracklight/tracklight

package traccar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tracklight/tracklight/internal/config"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(&config.UpstreamConfig{
		URL:     srv.URL,
		Token:   "test-token",
		Timeout: 5 * time.Second,
	})
}

func TestClient_Devices(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/devices" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("missing bearer token, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id": 1, "name": "truck-a", "status": "online"}]`))
	})

	devices, err := c.Devices(context.Background())
	if err != nil {
		t.Fatalf("Devices: %v", err)
	}
	if len(devices) != 1 || devices[0].Name != "truck-a" {
		t.Errorf("devices = %+v", devices)
	}
}

func TestClient_RouteQueryParams(t *testing.T) {
	from := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	to := from.Add(time.Hour)

	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("deviceId") != "42" {
			t.Errorf("deviceId = %q", q.Get("deviceId"))
		}
		if q.Get("from") != "2026-08-30T10:00:00Z" {
			t.Errorf("from = %q", q.Get("from"))
		}
		if q.Get("to") != "2026-08-30T11:00:00Z" {
			t.Errorf("to = %q", q.Get("to"))
		}
		_, _ = w.Write([]byte(`[{"deviceId": 42, "fixTime": "2026-08-30T10:30:00Z", "latitude": 48, "longitude": 2, "speed": 1, "course": 0}]`))
	})

	route, err := c.Route(context.Background(), 42, from, to)
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if len(route) != 1 || route[0].DeviceID != 42 {
		t.Errorf("route = %+v", route)
	}
}

func TestClient_EventsTypeFilter(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		types := r.URL.Query()["type"]
		if len(types) != 2 || types[0] != "geofenceEnter" || types[1] != "geofenceExit" {
			t.Errorf("type filter = %v", types)
		}
		_, _ = w.Write([]byte(`[]`))
	})

	_, err := c.Events(context.Background(), 1, time.Now().Add(-time.Hour), time.Now(),
		[]string{"geofenceEnter", "geofenceExit"})
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
}

func TestClient_HTTPErrorIncludesBody(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "token expired", http.StatusUnauthorized)
	})

	_, err := c.Positions(context.Background())
	if err == nil {
		t.Fatal("expected error for HTTP 401")
	}
	if !strings.Contains(err.Error(), "401") || !strings.Contains(err.Error(), "token expired") {
		t.Errorf("error lacks diagnostics: %v", err)
	}
}

func TestClient_MalformedJSON(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	})

	if _, err := c.Geofences(context.Background()); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestClient_ContextCancellation(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`[]`))
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := c.Devices(ctx); err == nil {
		t.Fatal("expected context deadline error")
	}
}

func TestBreakerClient_PassesThrough(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id": 3, "name": "Depot", "area": "CIRCLE (48 2, 100)"}]`))
	})

	b := NewBreakerClient(c)
	geofences, err := b.Geofences(context.Background())
	if err != nil {
		t.Fatalf("Geofences through breaker: %v", err)
	}
	if len(geofences) != 1 || geofences[0].Name != "Depot" {
		t.Errorf("geofences = %+v", geofences)
	}
}
