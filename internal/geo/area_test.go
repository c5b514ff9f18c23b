// Tracklight - Live Fleet Tracking and Trip Replay
// Copyright 2026 Tracklight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tracklight/tracklight

package geo

import (
	"math"
	"testing"
)

func TestParseArea_Circle(t *testing.T) {
	g := ParseArea("CIRCLE (48.8566 2.3522, 150)")
	if g == nil {
		t.Fatal("expected circle, got nil")
	}
	if g.Type != GeometryCircle {
		t.Fatalf("expected circle type, got %s", g.Type)
	}
	if g.Center.Lat != 48.8566 || g.Center.Lon != 2.3522 {
		t.Errorf("wrong center: %+v", g.Center)
	}
	if g.RadiusMeters != 150 {
		t.Errorf("wrong radius: %f", g.RadiusMeters)
	}
}

func TestParseArea_Polygon(t *testing.T) {
	g := ParseArea("POLYGON ((48.1 2.1, 48.2 2.1, 48.2 2.2))")
	if g == nil {
		t.Fatal("expected polygon, got nil")
	}
	if g.Type != GeometryPolygon {
		t.Fatalf("expected polygon type, got %s", g.Type)
	}
	if len(g.Points) != 3 {
		t.Fatalf("expected 3 vertices, got %d", len(g.Points))
	}

	// Vertices keep wire order and latitude-first axes, no swap.
	want := []Point{{48.1, 2.1}, {48.2, 2.1}, {48.2, 2.2}}
	for i, p := range g.Points {
		if p != want[i] {
			t.Errorf("vertex %d = %+v, want %+v", i, p, want[i])
		}
	}
}

func TestParseArea_LineString(t *testing.T) {
	g := ParseArea("LINESTRING (48.1 2.1, 48.2 2.2, 48.3 2.3)")
	if g == nil {
		t.Fatal("expected linestring, got nil")
	}
	if g.Type != GeometryLineString {
		t.Fatalf("expected linestring type, got %s", g.Type)
	}
	if len(g.Points) != 3 {
		t.Errorf("expected 3 points, got %d", len(g.Points))
	}
}

func TestParseArea_Malformed(t *testing.T) {
	cases := []string{
		"",
		"TRIANGLE (1 2, 3 4, 5 6)",
		"CIRCLE 48.8566 2.3522, 150",
		"CIRCLE (48.8566, 150)",
		"CIRCLE (48.8566 2.3522, -5)",
		"CIRCLE (48.8566 2.3522, abc)",
		"POLYGON ((48.1 2.1, 48.2 2.1))",    // only 2 vertices
		"POLYGON (48.1 2.1, 48.2 2.1, 1 1)", // missing inner parens
		"LINESTRING (48.1 2.1)",             // only 1 point
		"LINESTRING (48.1 2.1, not numbers)",
		"POLYGON (())",
	}

	for _, area := range cases {
		if g := ParseArea(area); g != nil {
			t.Errorf("ParseArea(%q) = %+v, want nil", area, g)
		}
	}
}

func TestCenterPoint_Circle(t *testing.T) {
	g := ParseArea("CIRCLE (10 20, 30)")
	c, ok := g.CenterPoint()
	if !ok {
		t.Fatal("expected center for circle")
	}
	if c.Lat != 10 || c.Lon != 20 {
		t.Errorf("wrong center: %+v", c)
	}
}

func TestCenterPoint_PolygonMean(t *testing.T) {
	g := ParseArea("POLYGON ((0 0, 0 2, 2 2, 2 0))")
	c, ok := g.CenterPoint()
	if !ok {
		t.Fatal("expected center for polygon")
	}
	if math.Abs(c.Lat-1) > 1e-12 || math.Abs(c.Lon-1) > 1e-12 {
		t.Errorf("wrong vertex mean: %+v", c)
	}
}

func TestCenterPoint_Nil(t *testing.T) {
	var g *Geometry
	if _, ok := g.CenterPoint(); ok {
		t.Error("expected no center for nil geometry")
	}
}
