// Geopulse - Scholarly Readership Analytics and Geographic Visualization
// Copyright 2026 Mwangaza University Press
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mwangaza-press/geopulse

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/mwangaza-press/geopulse/internal/config"
)

// ChiMiddleware provides router-level middleware built from config:
// CORS via go-chi/cors and IP rate limiting via go-chi/httprate.
type ChiMiddleware struct {
	cfg  config.SecurityConfig
	cors func(http.Handler) http.Handler
}

// NewChiMiddleware builds the middleware factory from security config.
func NewChiMiddleware(cfg config.SecurityConfig) *ChiMiddleware {
	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		MaxAge:         86400,
	})

	return &ChiMiddleware{
		cfg:  cfg,
		cors: corsHandler,
	}
}

// CORS returns the configured CORS middleware.
func (m *ChiMiddleware) CORS() func(http.Handler) http.Handler {
	return m.cors
}

// RateLimitConfig defines one rate limit tier.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// Tile and health traffic is read-heavy and bursty: a single map pan
// fetches dozens of tiles, so those tiers stay permissive while the
// default tier guards the write and query endpoints.
var (
	RateLimitTiles  = RateLimitConfig{Requests: 2000, Window: time.Minute}
	RateLimitHealth = RateLimitConfig{Requests: 1000, Window: time.Minute}
)

// RateLimit returns the default per-IP rate limiter from config.
func (m *ChiMiddleware) RateLimit() func(http.Handler) http.Handler {
	if m.cfg.RateLimitDisabled {
		return passthrough
	}
	return httprate.LimitByIP(m.cfg.RateLimitReqs, m.cfg.RateLimitWindow)
}

// RateLimitCustom returns a per-IP rate limiter for a specific tier.
func (m *ChiMiddleware) RateLimitCustom(tier RateLimitConfig) func(http.Handler) http.Handler {
	if m.cfg.RateLimitDisabled {
		return passthrough
	}
	return httprate.LimitByIP(tier.Requests, tier.Window)
}

// RateLimitTiles returns the permissive tile-serving limiter.
func (m *ChiMiddleware) RateLimitTiles() func(http.Handler) http.Handler {
	return m.RateLimitCustom(RateLimitTiles)
}

// RateLimitHealth returns the monitoring-friendly health limiter.
func (m *ChiMiddleware) RateLimitHealth() func(http.Handler) http.Handler {
	return m.RateLimitCustom(RateLimitHealth)
}

func passthrough(next http.Handler) http.Handler {
	return next
}
