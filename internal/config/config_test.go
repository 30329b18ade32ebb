// Geopulse - Scholarly Readership Analytics and Geographic Visualization
// Copyright 2026 Mwangaza University Press
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mwangaza-press/geopulse

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Server.Port != 4326 {
		t.Errorf("Server.Port = %d, want 4326", cfg.Server.Port)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want 0.0.0.0", cfg.Server.Host)
	}

	if cfg.Database.Path != "/data/geopulse.duckdb" {
		t.Errorf("Database.Path = %q, want /data/geopulse.duckdb", cfg.Database.Path)
	}
	if cfg.Database.InMemory() {
		t.Error("file-backed default should not report InMemory")
	}

	if cfg.Heatmap.GridDegrees != 0.1 {
		t.Errorf("Heatmap.GridDegrees = %g, want 0.1", cfg.Heatmap.GridDegrees)
	}
	if cfg.Heatmap.ZoomThreshold != 10 {
		t.Errorf("Heatmap.ZoomThreshold = %d, want 10", cfg.Heatmap.ZoomThreshold)
	}
	if cfg.Heatmap.RebuildInterval != 5*time.Minute {
		t.Errorf("Heatmap.RebuildInterval = %v, want 5m", cfg.Heatmap.RebuildInterval)
	}
	if cfg.Heatmap.TileMaxAge != 60 {
		t.Errorf("Heatmap.TileMaxAge = %d, want 60", cfg.Heatmap.TileMaxAge)
	}

	if cfg.WebSocket.HeartbeatInterval != 30*time.Second {
		t.Errorf("WebSocket.HeartbeatInterval = %v, want 30s", cfg.WebSocket.HeartbeatInterval)
	}

	if len(cfg.Security.CORSOrigins) != 1 || cfg.Security.CORSOrigins[0] != "*" {
		t.Errorf("Security.CORSOrigins = %v, want [*]", cfg.Security.CORSOrigins)
	}

	if !cfg.Citations.Enabled {
		t.Error("Citations.Enabled should be true by default")
	}
	if cfg.Citations.BaseURL != "https://api.crossref.org" {
		t.Errorf("Citations.BaseURL = %q, want https://api.crossref.org", cfg.Citations.BaseURL)
	}

	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"HTTP_PORT", "server.port"},
		{"HTTP_HOST", "server.host"},
		{"DUCKDB_PATH", "database.path"},
		{"DUCKDB_MAX_MEMORY", "database.max_memory"},
		{"HEATMAP_GRID_DEGREES", "heatmap.grid_degrees"},
		{"HEATMAP_ZOOM_THRESHOLD", "heatmap.zoom_threshold"},
		{"HEATMAP_REBUILD_INTERVAL", "heatmap.rebuild_interval"},
		{"TILE_CACHE_TTL", "heatmap.tile_cache_ttl"},
		{"WS_HEARTBEAT_INTERVAL", "websocket.heartbeat_interval"},
		{"CORS_ORIGINS", "security.cors_origins"},
		{"CROSSREF_MAILTO", "citations.mailto"},
		{"LOG_LEVEL", "logging.level"},
		// Prefixed names map structurally.
		{"GEOPULSE_DATABASE_PATH", "database.path"},
		{"GEOPULSE_SECURITY_RATE_LIMIT_DISABLED", "security.rate_limit_disabled"},
		{"GEOPULSE_SERVER_PORT", "server.port"},
		{"GEOPULSE_HEATMAP_GRID_DEGREES", "heatmap.grid_degrees"},
		{"GEOPULSE_CITATIONS_MAILTO", "citations.mailto"},
		// Unmapped variables must be dropped.
		{"PATH", ""},
		{"HOME", ""},
		{"RANDOM_VAR", ""},
		{"GEOPULSE_", ""},
		{"GEOPULSE_BOGUS_SECTION", ""},
	}

	for _, tt := range tests {
		if got := envTransformFunc(tt.input); got != tt.expected {
			t.Errorf("envTransformFunc(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("HEATMAP_ZOOM_THRESHOLD", "12")
	t.Setenv("CORS_ORIGINS", "https://journals.example.ac.tz, https://press.example.ac.tz")
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "nonexistent.yaml"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Heatmap.ZoomThreshold != 12 {
		t.Errorf("Heatmap.ZoomThreshold = %d, want 12", cfg.Heatmap.ZoomThreshold)
	}
	if len(cfg.Security.CORSOrigins) != 2 {
		t.Fatalf("CORSOrigins = %v, want 2 entries", cfg.Security.CORSOrigins)
	}
	if cfg.Security.CORSOrigins[1] != "https://press.example.ac.tz" {
		t.Errorf("CORSOrigins[1] = %q", cfg.Security.CORSOrigins[1])
	}
}

func TestLoadPrefixedEnvOverride(t *testing.T) {
	t.Setenv("GEOPULSE_DATABASE_PATH", ":memory:")
	t.Setenv("GEOPULSE_SECURITY_RATE_LIMIT_DISABLED", "true")
	t.Setenv("GEOPULSE_SERVER_PORT", "9000")
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "nonexistent.yaml"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Database.Path != ":memory:" {
		t.Errorf("Database.Path = %q, want :memory:", cfg.Database.Path)
	}
	if !cfg.Security.RateLimitDisabled {
		t.Error("RateLimitDisabled = false, want true")
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
server:
  port: 8181
heatmap:
  grid_degrees: 0.25
  rebuild_interval: 10m
citations:
  mailto: library@example.ac.tz
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8181 {
		t.Errorf("Server.Port = %d, want 8181", cfg.Server.Port)
	}
	if cfg.Heatmap.GridDegrees != 0.25 {
		t.Errorf("Heatmap.GridDegrees = %g, want 0.25", cfg.Heatmap.GridDegrees)
	}
	if cfg.Heatmap.RebuildInterval != 10*time.Minute {
		t.Errorf("Heatmap.RebuildInterval = %v, want 10m", cfg.Heatmap.RebuildInterval)
	}
	if cfg.Citations.Mailto != "library@example.ac.tz" {
		t.Errorf("Citations.Mailto = %q", cfg.Citations.Mailto)
	}
	// Defaults untouched by the file survive layering.
	if cfg.WebSocket.HeartbeatInterval != 30*time.Second {
		t.Errorf("WebSocket.HeartbeatInterval = %v, want 30s", cfg.WebSocket.HeartbeatInterval)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero port", func(c *Config) { c.Server.Port = 0 }},
		{"negative grid", func(c *Config) { c.Heatmap.GridDegrees = -0.1 }},
		{"zoom threshold above 22", func(c *Config) { c.Heatmap.ZoomThreshold = 23 }},
		{"rebuild interval too short", func(c *Config) { c.Heatmap.RebuildInterval = time.Second }},
		{"tile max-age outlives rebuild", func(c *Config) {
			c.Heatmap.RebuildInterval = 2 * time.Minute
			c.Heatmap.TileMaxAge = 300
		}},
		{"citations enabled without URL", func(c *Config) {
			c.Citations.Enabled = true
			c.Citations.BaseURL = ""
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate accepted invalid config")
			}
		})
	}
}
