// Tracklight - Live Fleet Tracking and Trip Replay
// Copyright 2026 Tracklight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tracklight/tracklight

package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestCorrelationIDRoundTrip(t *testing.T) {
	ctx := ContextWithCorrelationID(context.Background(), "abc12345")
	if got := CorrelationIDFromContext(ctx); got != "abc12345" {
		t.Errorf("CorrelationIDFromContext = %q, want %q", got, "abc12345")
	}
	if got := CorrelationIDFromContext(context.Background()); got != "" {
		t.Errorf("empty context returned %q, want empty", got)
	}
}

func TestContextWithNewCorrelationIDUnique(t *testing.T) {
	a := CorrelationIDFromContext(ContextWithNewCorrelationID(context.Background()))
	b := CorrelationIDFromContext(ContextWithNewCorrelationID(context.Background()))
	if a == "" || b == "" {
		t.Fatal("generated correlation IDs should not be empty")
	}
	if a == b {
		t.Errorf("two generated IDs collided: %q", a)
	}
	if len(a) != 8 {
		t.Errorf("ID length = %d, want 8", len(a))
	}
}

func TestCtxEnrichesWithCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	orig := Logger()
	SetLogger(zerolog.New(&buf))
	defer SetLogger(orig)

	ctx := ContextWithCorrelationID(context.Background(), "deadbeef")
	Ctx(ctx).Info().Msg("tick")

	if out := buf.String(); !strings.Contains(out, `"correlation_id":"deadbeef"`) {
		t.Errorf("missing correlation_id in %q", out)
	}
}

func TestCtxPrefersContextLogger(t *testing.T) {
	var buf bytes.Buffer
	scoped := zerolog.New(&buf).With().Str("component", "loader").Logger()

	ctx := ContextWithLogger(context.Background(), scoped)
	Ctx(ctx).Info().Msg("snapshot loaded")

	if out := buf.String(); !strings.Contains(out, `"component":"loader"`) {
		t.Errorf("context logger not used; got %q", out)
	}
}
