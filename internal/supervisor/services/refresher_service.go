// Geopulse - Scholarly Readership Analytics and Geographic Visualization
// Copyright 2026 Mwangaza University Press
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mwangaza-press/geopulse

package services

import (
	"context"
	"time"

	"github.com/mwangaza-press/geopulse/internal/database"
	"github.com/mwangaza-press/geopulse/internal/logging"
)

// HeatmapRefresherService rebuilds the aggregation cache on a fixed
// interval. The first rebuild runs immediately on start so a fresh
// deployment serves low-zoom tiles without waiting a full period.
//
// A failed rebuild leaves the previous cache generation serving and is
// retried at the next tick; the service itself only exits on context
// cancellation, so the supervisor never thrashes on transient errors.
type HeatmapRefresherService struct {
	db       *database.DB
	interval time.Duration
}

// NewHeatmapRefresherService wraps the rebuild loop for the data layer.
func NewHeatmapRefresherService(db *database.DB, interval time.Duration) *HeatmapRefresherService {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &HeatmapRefresherService{db: db, interval: interval}
}

// Serve implements suture.Service.
func (s *HeatmapRefresherService) Serve(ctx context.Context) error {
	s.rebuild(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.rebuild(ctx)
		}
	}
}

func (s *HeatmapRefresherService) rebuild(ctx context.Context) {
	if err := s.db.RebuildHeatmap(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		logging.Error().Err(err).Msg("scheduled heatmap rebuild failed, previous generation stays live")
	}
}

// String identifies the service in supervisor logs.
func (s *HeatmapRefresherService) String() string {
	return "heatmap-refresher"
}
