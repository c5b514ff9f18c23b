// Tracklight - Live Fleet Tracking and Trip Replay
// Copyright 2026 Tracklight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tracklight/tracklight

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, in order.
// The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/tracklight/config.yaml",
	"/etc/tracklight/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// envPrefix is stripped from environment variables before mapping them
// onto config paths: TRACKLIGHT_UPSTREAM_URL -> upstream.url.
const envPrefix = "TRACKLIGHT_"

// Load builds the configuration from layered sources (highest wins):
//  1. Struct defaults
//  2. Optional YAML config file
//  3. TRACKLIGHT_-prefixed environment variables
//
// The result is validated before being returned.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider(envPrefix, ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file path, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// envKeyPaths maps multi-word environment variable suffixes to their
// config paths. Anything not listed falls back to the generic
// section_key -> section.key transform.
var envKeyPaths = map[string]string{
	"UPSTREAM_RATE_LIMIT":       "upstream.rate_limit",
	"STREAM_RECONNECT_DELAY":    "stream.reconnect_delay",
	"STREAM_HANDSHAKE_TIMEOUT":  "stream.handshake_timeout",
	"REPLAY_POINT_CAP":          "replay.point_cap",
	"REPLAY_TICK_INTERVAL":      "replay.tick_interval",
	"GATEWAY_CORS_ORIGINS":      "gateway.cors_origins",
	"GATEWAY_RATE_LIMIT_REQS":   "gateway.rate_limit_reqs",
	"GATEWAY_RATE_LIMIT_WINDOW": "gateway.rate_limit_window",
}

// envTransformFunc maps TRACKLIGHT_SECTION_KEY to section.key.
func envTransformFunc(key string) string {
	key = strings.TrimPrefix(key, envPrefix)
	if path, ok := envKeyPaths[key]; ok {
		return path
	}

	// Generic form: first underscore separates section from key.
	key = strings.ToLower(key)
	if idx := strings.Index(key, "_"); idx > 0 {
		return key[:idx] + "." + key[idx+1:]
	}
	return key
}

// sliceConfigPaths lists paths parsed as comma-separated slices when
// they arrive from the environment as plain strings.
var sliceConfigPaths = []string{
	"gateway.cors_origins",
}

// processSliceFields converts comma-separated strings to slices for the
// known slice fields. YAML-sourced values are already slices and pass
// through untouched.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}
