// Tracklight - Live Fleet Tracking and Trip Replay
// Copyright 2026 Tracklight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tracklight/tracklight

package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestSlogHandlerWritesThroughZerolog(t *testing.T) {
	var buf bytes.Buffer
	zl := zerolog.New(&buf)

	logger := slog.New(NewSlogHandlerWithLogger(zl))
	logger.Info("supervisor started", "layer", "sync", "services", int64(2))

	out := buf.String()
	if !strings.Contains(out, `"message":"supervisor started"`) {
		t.Errorf("missing message in %q", out)
	}
	if !strings.Contains(out, `"layer":"sync"`) {
		t.Errorf("missing string attr in %q", out)
	}
	if !strings.Contains(out, `"services":2`) {
		t.Errorf("missing int attr in %q", out)
	}
}

func TestSlogHandlerLevels(t *testing.T) {
	var buf bytes.Buffer
	zl := zerolog.New(&buf)

	logger := slog.New(NewSlogHandlerWithLogger(zl))
	logger.Warn("restarting service")
	logger.Error("service failed")

	out := buf.String()
	if !strings.Contains(out, `"level":"warn"`) {
		t.Errorf("missing warn level in %q", out)
	}
	if !strings.Contains(out, `"level":"error"`) {
		t.Errorf("missing error level in %q", out)
	}
}

func TestSlogHandlerWithAttrsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	zl := zerolog.New(&buf)

	logger := slog.New(NewSlogHandlerWithLogger(zl)).
		With("component", "tree").
		WithGroup("suture")
	logger.Info("event", "type", "backoff")

	out := buf.String()
	if !strings.Contains(out, `"component":"tree"`) {
		t.Errorf("missing inherited attr in %q", out)
	}
	if !strings.Contains(out, `"suture.type":"backoff"`) {
		t.Errorf("missing group-prefixed attr in %q", out)
	}
}

func TestSlogHandlerEnabled(t *testing.T) {
	zl := zerolog.New(nil).Level(zerolog.WarnLevel)
	h := NewSlogHandlerWithLogger(zl)

	if h.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug enabled at warn level")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Error("error not enabled at warn level")
	}
}
