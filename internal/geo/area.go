// Tracklight - Live Fleet Tracking and Trip Replay
// Copyright 2026 Tracklight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tracklight/tracklight

package geo

import (
	"strconv"
	"strings"

	"github.com/tracklight/tracklight/internal/logging"
)

// GeometryType identifies the shape of a parsed geofence area.
type GeometryType string

const (
	GeometryCircle     GeometryType = "circle"
	GeometryPolygon    GeometryType = "polygon"
	GeometryLineString GeometryType = "linestring"
)

// Geometry is a parsed geofence area. Exactly one of the shape fields is
// meaningful, selected by Type: circles use Center and RadiusMeters,
// polygons and linestrings use Points.
//
// The wire encoding is latitude-first ("lat lon"), unlike generic WKT.
// A polygon has at least three vertices, a linestring at least two.
type Geometry struct {
	Type         GeometryType
	Center       Point
	RadiusMeters float64
	Points       []Point
}

// ParseArea parses the tracking server's compact area encoding:
//
//	CIRCLE (48.8566 2.3522, 150)
//	POLYGON ((48.1 2.1, 48.2 2.1, 48.2 2.2))
//	LINESTRING (48.1 2.1, 48.2 2.2)
//
// Malformed or unrecognized input returns nil after logging a diagnostic;
// callers must treat nil as "cannot render or measure this geofence" and
// carry on. ParseArea never panics.
func ParseArea(area string) *Geometry {
	trimmed := strings.TrimSpace(area)
	upper := strings.ToUpper(trimmed)

	var g *Geometry
	switch {
	case strings.HasPrefix(upper, "CIRCLE"):
		g = parseCircle(trimmed[len("CIRCLE"):])
	case strings.HasPrefix(upper, "POLYGON"):
		g = parsePolygon(trimmed[len("POLYGON"):])
	case strings.HasPrefix(upper, "LINESTRING"):
		g = parseLineString(trimmed[len("LINESTRING"):])
	}

	if g == nil {
		logging.Warn().Str("area", area).Msg("unparseable geofence area")
	}
	return g
}

// CenterPoint returns the representative center of a geometry: the circle
// center, or the arithmetic mean of the vertices. Returns false for a nil
// or empty geometry.
func (g *Geometry) CenterPoint() (Point, bool) {
	if g == nil {
		return Point{}, false
	}

	if g.Type == GeometryCircle {
		return g.Center, true
	}

	if len(g.Points) == 0 {
		return Point{}, false
	}
	var sumLat, sumLon float64
	for _, p := range g.Points {
		sumLat += p.Lat
		sumLon += p.Lon
	}
	n := float64(len(g.Points))
	return Point{Lat: sumLat / n, Lon: sumLon / n}, true
}

// parseCircle parses "(lat lon, radius)".
func parseCircle(body string) *Geometry {
	inner, ok := stripParens(body)
	if !ok {
		return nil
	}

	parts := strings.Split(inner, ",")
	if len(parts) != 2 {
		return nil
	}

	center, ok := parsePoint(parts[0])
	if !ok {
		return nil
	}

	radius, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil || radius <= 0 {
		return nil
	}

	return &Geometry{Type: GeometryCircle, Center: center, RadiusMeters: radius}
}

// parsePolygon parses "((lat lon, lat lon, ...))" with at least 3 vertices.
func parsePolygon(body string) *Geometry {
	outer, ok := stripParens(body)
	if !ok {
		return nil
	}
	inner, ok := stripParens(outer)
	if !ok {
		return nil
	}

	points, ok := parsePoints(inner)
	if !ok || len(points) < 3 {
		return nil
	}

	return &Geometry{Type: GeometryPolygon, Points: points}
}

// parseLineString parses "(lat lon, lat lon, ...)" with at least 2 vertices.
func parseLineString(body string) *Geometry {
	inner, ok := stripParens(body)
	if !ok {
		return nil
	}

	points, ok := parsePoints(inner)
	if !ok || len(points) < 2 {
		return nil
	}

	return &Geometry{Type: GeometryLineString, Points: points}
}

// stripParens removes one balanced pair of surrounding parentheses.
func stripParens(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '(' || s[len(s)-1] != ')' {
		return "", false
	}
	return s[1 : len(s)-1], true
}

// parsePoints parses a comma-separated list of "lat lon" pairs.
func parsePoints(s string) ([]Point, bool) {
	parts := strings.Split(s, ",")
	points := make([]Point, 0, len(parts))
	for _, part := range parts {
		p, ok := parsePoint(part)
		if !ok {
			return nil, false
		}
		points = append(points, p)
	}
	return points, true
}

// parsePoint parses a single latitude-first "lat lon" pair.
func parsePoint(s string) (Point, bool) {
	fields := strings.Fields(strings.TrimSpace(s))
	if len(fields) != 2 {
		return Point{}, false
	}

	lat, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return Point{}, false
	}
	lon, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return Point{}, false
	}

	return Point{Lat: lat, Lon: lon}, true
}
