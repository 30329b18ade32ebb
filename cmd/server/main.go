// Geopulse - Scholarly Readership Analytics and Geographic Visualization
// Copyright 2026 Mwangaza University Press
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mwangaza-press/geopulse

// Package main is the entry point for the Geopulse server.
//
// Geopulse tracks readership of Mwangaza University Press journal
// articles and visualizes it on interactive maps: vector tiles for the
// heatmap, a WebSocket pulse for live hits, and an activity feed for
// the dashboard HUD.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: layered Koanf v2 sources (defaults, YAML, env)
//  2. Database: embedded DuckDB with the spatial extension
//  3. Geocoder: offline fallback resolver for events without coordinates
//  4. WebSocket Hub: real-time pulse broadcasts to dashboard clients
//  5. Citations: Crossref proxy behind a circuit breaker (optional)
//  6. HTTP Server: chi router with CORS, rate limiting, and Prometheus
//
// Long-running components run under a suture supervisor tree with three
// layers (data, messaging, api) so a crash in one restarts only that
// component.
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - Environment variables (GEOPULSE_ prefix)
//   - Config file (config.yaml)
//   - Built-in defaults
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM:
//   - Stops accepting new connections
//   - Waits for in-flight requests to complete (shutdown timeout)
//   - Closes pulse clients and the database connection
//
// # Port 4326
//
// The default port 4326 references EPSG:4326 (WGS 84), the coordinate
// system readership events are stored in.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mwangaza-press/geopulse/internal/api"
	"github.com/mwangaza-press/geopulse/internal/citations"
	"github.com/mwangaza-press/geopulse/internal/config"
	"github.com/mwangaza-press/geopulse/internal/database"
	"github.com/mwangaza-press/geopulse/internal/geocode"
	"github.com/mwangaza-press/geopulse/internal/logging"
	"github.com/mwangaza-press/geopulse/internal/supervisor"
	"github.com/mwangaza-press/geopulse/internal/supervisor/services"
	ws "github.com/mwangaza-press/geopulse/internal/websocket"
)

func main() {
	// Load configuration first to get logging settings.
	cfg, err := config.Load()
	if err != nil {
		// Default logger; config not yet available.
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().Msg("Starting Geopulse with supervisor tree")
	logging.Info().
		Str("db_path", cfg.Database.Path).
		Float64("grid_degrees", cfg.Heatmap.GridDegrees).
		Int("zoom_threshold", cfg.Heatmap.ZoomThreshold).
		Msg("Configuration loaded")

	db, err := database.New(&cfg.Database, cfg.Heatmap)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Bool("spatial", db.IsSpatialAvailable()).Msg("Database initialized")

	if !db.IsSpatialAvailable() {
		logging.Warn().Msg("Spatial extension unavailable, tile endpoints will return 503")
	}

	resolver := geocode.NewResolver()

	wsHub := ws.NewHub(cfg.WebSocket)

	// nil client means citation lookups are disabled; the handler maps
	// that to 503 UPSTREAM_UNAVAILABLE.
	citationsClient := citations.NewClient(cfg.Citations)
	if citationsClient.Enabled() {
		logging.Info().Str("mailto", cfg.Citations.Mailto).Msg("Crossref citation proxy enabled")
	} else {
		logging.Info().Msg("Citation lookups disabled (CITATIONS_ENABLED=false)")
	}

	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (GEOPULSE_SECURITY_RATE_LIMIT_DISABLED=true)")
		logging.Warn().Msg("This should only be used for local development and CI!")
	}

	handler := api.NewHandler(cfg, db, resolver, wsHub, citationsClient)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Bridge zerolog to slog for sutureslog compatibility.
	slogLogger := logging.NewSlogLogger()

	treeConfig := supervisor.DefaultTreeConfig()
	treeConfig.ShutdownTimeout = cfg.Server.ShutdownTimeout
	tree := supervisor.NewTree(slogLogger, treeConfig)

	tree.AddDataService(services.NewHeatmapRefresherService(db, cfg.Heatmap.RebuildInterval))
	tree.AddMessagingService(services.NewPulseHubService(wsHub))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("Services added to supervisor tree")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	start := time.Now()
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree error")
	}

	// Report any services that missed the shutdown timeout.
	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Dur("uptime", time.Since(start)).Msg("Geopulse stopped gracefully")
}
