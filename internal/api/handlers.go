// Geopulse - Scholarly Readership Analytics and Geographic Visualization
// Copyright 2026 Mwangaza University Press
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mwangaza-press/geopulse

// Package api implements the Geopulse HTTP surface: lenient readership
// ingestion, vector tile serving, the live pulse socket, activity and
// impact queries, the citation proxy, and operational endpoints.
package api

import (
	"golang.org/x/time/rate"

	"github.com/mwangaza-press/geopulse/internal/citations"
	"github.com/mwangaza-press/geopulse/internal/config"
	"github.com/mwangaza-press/geopulse/internal/database"
	"github.com/mwangaza-press/geopulse/internal/geocode"
	"github.com/mwangaza-press/geopulse/internal/websocket"
)

// Handler carries the dependencies shared by all endpoint methods.
type Handler struct {
	db        *database.DB
	cfg       *config.Config
	resolver  *geocode.Resolver
	hub       *websocket.Hub
	citations *citations.Client

	// refreshLimiter throttles the manual heatmap rebuild endpoint so a
	// misbehaving dashboard cannot queue back-to-back full-table scans.
	refreshLimiter *rate.Limiter
}

// NewHandler wires the endpoint dependencies. The citations client may
// be nil when the feature is disabled.
func NewHandler(cfg *config.Config, db *database.DB, resolver *geocode.Resolver, hub *websocket.Hub, cit *citations.Client) *Handler {
	minInterval := cfg.Heatmap.RefreshMinInterval
	limiter := rate.NewLimiter(rate.Every(minInterval), 1)

	return &Handler{
		db:             db,
		cfg:            cfg,
		resolver:       resolver,
		hub:            hub,
		citations:      cit,
		refreshLimiter: limiter,
	}
}
