// Geopulse - Scholarly Readership Analytics and Geographic Visualization
// Copyright 2026 Mwangaza University Press
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mwangaza-press/geopulse

package api

import (
	"net/http"
	"time"

	"github.com/mwangaza-press/geopulse/internal/logging"
	"github.com/mwangaza-press/geopulse/internal/models"
)

// HeatmapRefresh triggers an immediate aggregation cache rebuild.
//
// POST /api/v1/admin/heatmap/refresh
//
// Rebuilds scan the whole event log, so manual triggers are throttled
// to one per configured minimum interval; the periodic refresher is not
// affected by this limiter.
func (h *Handler) HeatmapRefresh(w http.ResponseWriter, r *http.Request) {
	if !h.refreshLimiter.Allow() {
		respondError(w, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED",
			"Heatmap refresh already ran recently, try again later", nil)
		return
	}

	start := time.Now()
	if err := h.db.RebuildHeatmap(r.Context()); err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Heatmap rebuild failed", err)
		return
	}

	cells, err := h.db.CountHeatmapCells(r.Context())
	if err != nil {
		// The rebuild itself succeeded; report it without the count.
		logging.Warn().Err(err).Msg("failed to count heatmap cells after rebuild")
	}

	respondData(w, map[string]interface{}{
		"status":      "rebuilt",
		"cells":       cells,
		"duration_ms": time.Since(start).Milliseconds(),
	}, start)
}

// Health reports liveness plus the state a dashboard needs to warn on:
// database reachability, spatial extension, and pulse fan-out.
//
// GET /api/v1/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	dbStatus := "up"
	status := "healthy"
	httpStatus := http.StatusOK
	if err := h.db.Ping(r.Context()); err != nil {
		dbStatus = "down"
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	events, _ := h.db.CountEvents(r.Context())

	respondJSON(w, httpStatus, &models.APIResponse{
		Status: status,
		Data: map[string]interface{}{
			"database":          dbStatus,
			"spatial_available": h.db.IsSpatialAvailable(),
			"pulse_clients":     h.hub.ClientCount(),
			"events_stored":     events,
			"data_version":      h.db.DataVersion(),
		},
		Metadata: models.Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}
