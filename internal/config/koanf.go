// Geopulse - Scholarly Readership Analytics and Geographic Visualization
// Copyright 2026 Mwangaza University Press
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mwangaza-press/geopulse

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

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
	"/etc/geopulse/config.yaml",
	"/etc/geopulse/config.yml",
}

// ConfigPathEnvVar overrides the config file search path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with all defaults applied. These are
// layered first, then overridden by the config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            4326,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			Environment:     "development",
		},
		Database: DatabaseConfig{
			Path:      "/data/geopulse.duckdb",
			MaxMemory: "1GB",
			Threads:   0, // 0 = runtime.NumCPU()
		},
		Heatmap: HeatmapConfig{
			GridDegrees:        0.1,
			ZoomThreshold:      10,
			RebuildInterval:    5 * time.Minute,
			RefreshMinInterval: 30 * time.Second,
			TileCacheTTL:       30 * time.Second,
			TileMaxAge:         60,
		},
		WebSocket: WebSocketConfig{
			HeartbeatInterval: 30 * time.Second,
			ClientBuffer:      64,
		},
		Security: SecurityConfig{
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   300,
			RateLimitWindow: time.Minute,
		},
		Citations: CitationsConfig{
			Enabled: true,
			BaseURL: "https://api.crossref.org",
			Mailto:  "",
			Timeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds configuration from layered sources:
//  1. built-in defaults
//  2. optional YAML config file
//  3. environment variables (highest priority)
func Load() (*Config, error) {
	k := koanf.New(".")

	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// GEOPULSE_DATABASE_PATH -> database.path, HTTP_PORT -> server.port, etc.
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
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
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first config file that exists, or "".
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

// sliceConfigPaths are config paths parsed as comma-separated slices when
// they arrive from env vars as plain strings.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
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

// configSections are the top-level config keys recognized in prefixed
// variables: GEOPULSE_<SECTION>_<FIELD> maps to <section>.<field> with
// the field spelled as its koanf tag (GEOPULSE_DATABASE_PATH,
// GEOPULSE_SECURITY_RATE_LIMIT_DISABLED, ...).
var configSections = []string{
	"server",
	"database",
	"heatmap",
	"websocket",
	"security",
	"citations",
	"logging",
}

// envTransformFunc maps environment variable names to koanf config paths.
// GEOPULSE_-prefixed names map structurally per configSections; the bare
// short names below are kept as aliases. Unmapped variables are dropped
// so arbitrary environment noise cannot leak into the configuration.
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	if rest, found := strings.CutPrefix(key, "geopulse_"); found {
		for _, section := range configSections {
			if field, ok := strings.CutPrefix(rest, section+"_"); ok && field != "" {
				return section + "." + field
			}
		}
		return ""
	}

	envMappings := map[string]string{
		// Server
		"http_host":         "server.host",
		"http_port":         "server.port",
		"http_read_timeout": "server.read_timeout",
		"http_write_timeout": "server.write_timeout",
		"http_idle_timeout": "server.idle_timeout",
		"shutdown_timeout":  "server.shutdown_timeout",
		"environment":       "server.environment",

		// Database
		"duckdb_path":       "database.path",
		"duckdb_max_memory": "database.max_memory",
		"duckdb_threads":    "database.threads",

		// Heatmap
		"heatmap_grid_degrees":         "heatmap.grid_degrees",
		"heatmap_zoom_threshold":       "heatmap.zoom_threshold",
		"heatmap_rebuild_interval":     "heatmap.rebuild_interval",
		"heatmap_refresh_min_interval": "heatmap.refresh_min_interval",
		"tile_cache_ttl":               "heatmap.tile_cache_ttl",
		"tile_max_age":                 "heatmap.tile_max_age",

		// WebSocket
		"ws_heartbeat_interval": "websocket.heartbeat_interval",
		"ws_client_buffer":      "websocket.client_buffer",

		// Security
		"cors_origins":        "security.cors_origins",
		"rate_limit_requests": "security.rate_limit_requests",
		"rate_limit_window":   "security.rate_limit_window",
		"disable_rate_limit":  "security.rate_limit_disabled",

		// Citations
		"citations_enabled":  "citations.enabled",
		"crossref_base_url":  "citations.base_url",
		"crossref_mailto":    "citations.mailto",
		"citations_timeout":  "citations.timeout",

		// Logging
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return ""
}
