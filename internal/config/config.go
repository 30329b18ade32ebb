// Geopulse - Scholarly Readership Analytics and Geographic Visualization
// Copyright 2026 Mwangaza University Press
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mwangaza-press/geopulse

// Package config loads and validates Geopulse configuration from layered
// sources: built-in defaults, an optional YAML file, and environment
// variables, in increasing order of precedence.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the Geopulse service.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Heatmap   HeatmapConfig   `koanf:"heatmap"`
	WebSocket WebSocketConfig `koanf:"websocket"`
	Security  SecurityConfig  `koanf:"security"`
	Citations CitationsConfig `koanf:"citations"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"`
}

// DatabaseConfig holds embedded DuckDB settings.
type DatabaseConfig struct {
	// Path is the database file path. Empty or ":memory:" selects an
	// in-memory database.
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	// Threads caps DuckDB worker threads. 0 means runtime.NumCPU().
	Threads int `koanf:"threads"`
}

// HeatmapConfig controls the spatial aggregation cache and tile serving.
type HeatmapConfig struct {
	// GridDegrees is the aggregation cell size in degrees.
	GridDegrees float64 `koanf:"grid_degrees"`
	// ZoomThreshold is the zoom level at which tiles switch from the
	// aggregation cache to raw events. Tiles at zoom < threshold read
	// the cache.
	ZoomThreshold int `koanf:"zoom_threshold"`
	// RebuildInterval is the period between automatic cache rebuilds.
	RebuildInterval time.Duration `koanf:"rebuild_interval"`
	// RefreshMinInterval throttles the manual rebuild endpoint.
	RefreshMinInterval time.Duration `koanf:"refresh_min_interval"`
	// TileCacheTTL bounds the in-process MVT cache entry lifetime.
	TileCacheTTL time.Duration `koanf:"tile_cache_ttl"`
	// TileMaxAge is the Cache-Control max-age for tile responses, seconds.
	TileMaxAge int `koanf:"tile_max_age"`
}

// WebSocketConfig holds live pulse settings.
type WebSocketConfig struct {
	HeartbeatInterval time.Duration `koanf:"heartbeat_interval"`
	// ClientBuffer is the per-client outbound frame buffer; a client
	// that falls this far behind is dropped.
	ClientBuffer int `koanf:"client_buffer"`
}

// SecurityConfig holds CORS and rate limiting settings. The readership
// endpoints are public append/read surfaces; there is no auth layer.
type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// CitationsConfig holds the Crossref proxy settings.
type CitationsConfig struct {
	Enabled bool   `koanf:"enabled"`
	BaseURL string `koanf:"base_url"`
	// Mailto joins the Crossref polite pool; requests carry it as a
	// query parameter.
	Mailto  string        `koanf:"mailto"`
	Timeout time.Duration `koanf:"timeout"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks cross-field constraints that the type system cannot.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port)
	}
	if c.Heatmap.GridDegrees <= 0 || c.Heatmap.GridDegrees > 10 {
		return fmt.Errorf("heatmap.grid_degrees must be in (0, 10], got %g", c.Heatmap.GridDegrees)
	}
	if c.Heatmap.ZoomThreshold < 0 || c.Heatmap.ZoomThreshold > 22 {
		return fmt.Errorf("heatmap.zoom_threshold must be 0-22, got %d", c.Heatmap.ZoomThreshold)
	}
	if c.Heatmap.RebuildInterval < time.Minute {
		return fmt.Errorf("heatmap.rebuild_interval must be at least 1m, got %s", c.Heatmap.RebuildInterval)
	}
	// Clients must never cache a tile past the generation it came from.
	if time.Duration(c.Heatmap.TileMaxAge)*time.Second >= c.Heatmap.RebuildInterval {
		return fmt.Errorf("heatmap.tile_max_age (%ds) must be shorter than heatmap.rebuild_interval (%s)",
			c.Heatmap.TileMaxAge, c.Heatmap.RebuildInterval)
	}
	if c.WebSocket.HeartbeatInterval < time.Second {
		return fmt.Errorf("websocket.heartbeat_interval must be at least 1s, got %s", c.WebSocket.HeartbeatInterval)
	}
	if c.WebSocket.ClientBuffer < 1 {
		return fmt.Errorf("websocket.client_buffer must be at least 1, got %d", c.WebSocket.ClientBuffer)
	}
	if c.Citations.Enabled && c.Citations.BaseURL == "" {
		return fmt.Errorf("citations.base_url is required when citations.enabled is true")
	}
	if !c.Security.RateLimitDisabled && c.Security.RateLimitReqs < 1 {
		return fmt.Errorf("security.rate_limit_requests must be at least 1, got %d", c.Security.RateLimitReqs)
	}
	return nil
}

// Addr returns the host:port the HTTP server binds.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// InMemory reports whether the database runs without a backing file.
func (c *DatabaseConfig) InMemory() bool {
	return c.Path == "" || c.Path == ":memory:"
}
