// Tracklight - Live Fleet Tracking and Trip Replay
// Copyright 2026 Tracklight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tracklight/tracklight

// Package config loads and validates Tracklight settings through Koanf v2
// with layered sources: struct defaults, an optional YAML file, and
// environment variables (highest priority).
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the root configuration for Tracklight.
type Config struct {
	Upstream UpstreamConfig `koanf:"upstream" validate:"required"`
	Stream   StreamConfig   `koanf:"stream"`
	Replay   ReplayConfig   `koanf:"replay"`
	Gateway  GatewayConfig  `koanf:"gateway"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// UpstreamConfig describes the tracking server Tracklight consumes.
type UpstreamConfig struct {
	// URL is the tracking server base URL, e.g. http://localhost:8082.
	URL string `koanf:"url" validate:"required,url"`

	// Token is the bearer token for the REST and stream endpoints.
	Token string `koanf:"token"`

	// Timeout bounds every REST request.
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`

	// RateLimit is the maximum REST requests per second (0 = unlimited).
	RateLimit float64 `koanf:"rate_limit" validate:"gte=0"`
}

// StreamConfig tunes the live WebSocket stream.
type StreamConfig struct {
	// ReconnectDelay is the fixed wait between reconnect attempts.
	ReconnectDelay time.Duration `koanf:"reconnect_delay" validate:"gt=0"`

	// HandshakeTimeout bounds the WebSocket dial.
	HandshakeTimeout time.Duration `koanf:"handshake_timeout" validate:"gt=0"`
}

// ReplayConfig tunes the trip replay engine.
type ReplayConfig struct {
	// PointCap is the maximum route points handed to the engine; longer
	// sequences are stride-downsampled first.
	PointCap int `koanf:"point_cap" validate:"gt=1"`

	// TickInterval is the minimum interval between replay scheduler ticks.
	TickInterval time.Duration `koanf:"tick_interval" validate:"gt=0"`
}

// GatewayConfig configures the local HTTP/WebSocket gateway the UI
// connects to.
type GatewayConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port" validate:"gt=0,lte=65535"`

	// Timeout bounds gateway request handling.
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`

	// CORSOrigins lists allowed origins for the browser UI.
	CORSOrigins []string `koanf:"cors_origins"`

	// RateLimitReqs is the per-client request budget per RateLimitWindow
	// (0 disables rate limiting).
	RateLimitReqs   int           `koanf:"rate_limit_reqs" validate:"gte=0"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window" validate:"gt=0"`
}

// LoggingConfig configures the logging package.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal panic disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with every default applied. Defaults are
// loaded first, then overridden by the config file and environment.
func defaultConfig() *Config {
	return &Config{
		Upstream: UpstreamConfig{
			URL:       "",
			Token:     "",
			Timeout:   30 * time.Second,
			RateLimit: 10,
		},
		Stream: StreamConfig{
			ReconnectDelay:   5 * time.Second,
			HandshakeTimeout: 10 * time.Second,
		},
		Replay: ReplayConfig{
			PointCap:     10000,
			TickInterval: 100 * time.Millisecond,
		},
		Gateway: GatewayConfig{
			Host:            "127.0.0.1",
			Port:            8117,
			Timeout:         30 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Validate checks the configuration against its struct tags.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
