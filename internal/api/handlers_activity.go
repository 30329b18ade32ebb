// Geopulse - Scholarly Readership Analytics and Geographic Visualization
// Copyright 2026 Mwangaza University Press
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mwangaza-press/geopulse

package api

import (
	"net/http"
	"time"

	"github.com/mwangaza-press/geopulse/internal/database"
	"github.com/mwangaza-press/geopulse/internal/models"
)

// ActivityFeedRequest holds validated feed parameters.
type ActivityFeedRequest struct {
	Mode  string `validate:"oneof=recent random"`
	Limit int    `validate:"min=1,max=100"`
}

// ActivityFeed returns recent or randomly sampled readership events
// joined with article titles.
//
// GET /api/v1/activity/feed?mode=recent&limit=20
func (h *Handler) ActivityFeed(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("mode")
	if mode == "" {
		mode = database.FeedModeRecent
	}

	req := ActivityFeedRequest{
		Mode:  mode,
		Limit: getIntParam(r, "limit", 20),
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	start := time.Now()
	items, err := h.db.ActivityFeed(r.Context(), req.Mode, req.Limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to retrieve activity feed", err)
		return
	}
	if items == nil {
		items = []models.ActivityFeedItem{}
	}

	respondData(w, items, start)
}

// ImpactSummary returns the map HUD roll-up.
//
// GET /api/v1/metrics/impact-summary
func (h *Handler) ImpactSummary(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	summary, err := h.db.ImpactSummary(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to compute impact summary", err)
		return
	}

	respondData(w, summary, start)
}

// TopRegionsRequest holds validated leaderboard parameters.
type TopRegionsRequest struct {
	Limit int `validate:"min=1,max=50"`
}

// TopRegions returns the readership leaderboard by region.
//
// GET /api/v1/metrics/top-regions?limit=10
func (h *Handler) TopRegions(w http.ResponseWriter, r *http.Request) {
	req := TopRegionsRequest{Limit: getIntParam(r, "limit", 10)}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	start := time.Now()
	regions, err := h.db.TopRegions(r.Context(), req.Limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to retrieve top regions", err)
		return
	}
	if regions == nil {
		regions = []models.TopRegion{}
	}

	respondData(w, regions, start)
}
