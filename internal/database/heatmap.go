// Geopulse - Scholarly Readership Analytics and Geographic Visualization
// Copyright 2026 Mwangaza University Press
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mwangaza-press/geopulse

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/mwangaza-press/geopulse/internal/logging"
	"github.com/mwangaza-press/geopulse/internal/metrics"
)

// RebuildHeatmap regenerates the aggregation cache from scratch.
//
// Events with coordinates are snapped onto a grid of GridDegrees-sized
// cells (the cell center is the representative point) and summed per
// (cell, event_type, journal_id). The new generation is built into a
// staging table and swapped in inside one transaction, so concurrent
// tile reads see the old or the new generation, never a mix. On any
// error the transaction rolls back and the previous generation stays
// authoritative.
func (db *DB) RebuildHeatmap(ctx context.Context) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	grid := db.heatmap.GridDegrees

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		metrics.HeatmapRebuilds.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to begin rebuild transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS readership_heatmap_cache_staging`); err != nil {
		metrics.HeatmapRebuilds.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to drop stale staging table: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		CREATE TABLE readership_heatmap_cache_staging AS
		SELECT
			FLOOR(longitude / ?) * ? + ? / 2 AS cell_lng,
			FLOOR(latitude / ?) * ? + ? / 2 AS cell_lat,
			event_type,
			journal_id,
			SUM(weight)::BIGINT AS weight
		FROM readership_events
		WHERE latitude IS NOT NULL AND longitude IS NOT NULL
		GROUP BY 1, 2, 3, 4`,
		grid, grid, grid, grid, grid, grid,
	)
	if err != nil {
		metrics.HeatmapRebuilds.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to build staging table: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DROP TABLE readership_heatmap_cache`); err != nil {
		metrics.HeatmapRebuilds.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to drop previous generation: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `ALTER TABLE readership_heatmap_cache_staging RENAME TO readership_heatmap_cache`); err != nil {
		metrics.HeatmapRebuilds.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to swap in new generation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		metrics.HeatmapRebuilds.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to commit rebuild: %w", err)
	}

	elapsed := time.Since(start)
	metrics.HeatmapRebuilds.WithLabelValues("ok").Inc()
	metrics.HeatmapRebuildDuration.Observe(elapsed.Seconds())
	metrics.HeatmapLastSuccess.SetToCurrentTime()

	// Low-zoom tiles read the cache table; everything cached before the
	// swap is stale now.
	db.IncrementDataVersion()

	logging.Info().
		Dur("elapsed", elapsed).
		Float64("grid_degrees", grid).
		Msg("Heatmap cache rebuilt")
	return nil
}

// CountHeatmapCells returns the number of aggregated cells in the
// current generation.
func (db *DB) CountHeatmapCells(ctx context.Context) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var n int64
	if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM readership_heatmap_cache").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count heatmap cells: %w", err)
	}
	return n, nil
}
