// Geopulse - Scholarly Readership Analytics and Geographic Visualization
// Copyright 2026 Mwangaza University Press
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mwangaza-press/geopulse

package database

import (
	"context"
	"math"
	"testing"
)

func TestRebuildHeatmapEmpty(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	// Rebuilding with no events must succeed and leave an empty cache.
	if err := db.RebuildHeatmap(ctx); err != nil {
		t.Fatalf("RebuildHeatmap on empty log failed: %v", err)
	}
	n, err := db.CountHeatmapCells(ctx)
	if err != nil {
		t.Fatalf("CountHeatmapCells failed: %v", err)
	}
	if n != 0 {
		t.Errorf("cells = %d, want 0", n)
	}
}

func TestRebuildHeatmapAggregates(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	// Three events in the same 0.1-degree cell, one in another.
	for i := 0; i < 3; i++ {
		if err := db.InsertEvent(ctx, testEvent("view")); err != nil {
			t.Fatalf("InsertEvent failed: %v", err)
		}
	}
	far := testEvent("view")
	lat, lng := 51.5074, -0.1278
	far.Latitude, far.Longitude = &lat, &lng
	if err := db.InsertEvent(ctx, far); err != nil {
		t.Fatalf("InsertEvent failed: %v", err)
	}
	// No-location events never reach the cache.
	noLoc := testEvent("view")
	noLoc.Latitude, noLoc.Longitude = nil, nil
	if err := db.InsertEvent(ctx, noLoc); err != nil {
		t.Fatalf("InsertEvent failed: %v", err)
	}

	if err := db.RebuildHeatmap(ctx); err != nil {
		t.Fatalf("RebuildHeatmap failed: %v", err)
	}

	n, err := db.CountHeatmapCells(ctx)
	if err != nil {
		t.Fatalf("CountHeatmapCells failed: %v", err)
	}
	if n != 2 {
		t.Errorf("cells = %d, want 2", n)
	}

	var weight int64
	var cellLat, cellLng float64
	err = db.Conn().QueryRowContext(ctx, `
		SELECT cell_lat, cell_lng, weight FROM readership_heatmap_cache
		ORDER BY weight DESC LIMIT 1`).Scan(&cellLat, &cellLng, &weight)
	if err != nil {
		t.Fatalf("query cache: %v", err)
	}
	if weight != 3 {
		t.Errorf("cell weight = %d, want 3", weight)
	}
	// Cell center for -6.7924 on a 0.1 grid is -6.75.
	if math.Abs(cellLat-(-6.75)) > 1e-9 {
		t.Errorf("cell_lat = %g, want -6.75", cellLat)
	}
	if math.Abs(cellLng-39.25) > 1e-9 {
		t.Errorf("cell_lng = %g, want 39.25", cellLng)
	}
}

func TestRebuildHeatmapIdempotent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := db.InsertEvent(ctx, testEvent("download")); err != nil {
			t.Fatalf("InsertEvent failed: %v", err)
		}
	}

	if err := db.RebuildHeatmap(ctx); err != nil {
		t.Fatalf("first rebuild failed: %v", err)
	}
	var firstWeight int64
	if err := db.Conn().QueryRowContext(ctx,
		"SELECT SUM(weight) FROM readership_heatmap_cache").Scan(&firstWeight); err != nil {
		t.Fatalf("query cache: %v", err)
	}

	// Rebuilding from the same events reproduces identical totals;
	// nothing accumulates across generations.
	if err := db.RebuildHeatmap(ctx); err != nil {
		t.Fatalf("second rebuild failed: %v", err)
	}
	var secondWeight int64
	if err := db.Conn().QueryRowContext(ctx,
		"SELECT SUM(weight) FROM readership_heatmap_cache").Scan(&secondWeight); err != nil {
		t.Fatalf("query cache: %v", err)
	}

	if firstWeight != secondWeight || firstWeight != 5 {
		t.Errorf("weights = %d then %d, want 5 both times", firstWeight, secondWeight)
	}
}

func TestRebuildHeatmapBumpsDataVersion(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	before := db.DataVersion()
	if err := db.RebuildHeatmap(ctx); err != nil {
		t.Fatalf("RebuildHeatmap failed: %v", err)
	}
	if db.DataVersion() <= before {
		t.Error("rebuild must advance the data version")
	}
}

func TestRebuildHeatmapLeavesNoStaging(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if err := db.InsertEvent(ctx, testEvent("view")); err != nil {
		t.Fatalf("InsertEvent failed: %v", err)
	}
	if err := db.RebuildHeatmap(ctx); err != nil {
		t.Fatalf("RebuildHeatmap failed: %v", err)
	}

	var n int
	err := db.Conn().QueryRowContext(ctx, `
		SELECT COUNT(*) FROM information_schema.tables
		WHERE table_name = 'readership_heatmap_cache_staging'`).Scan(&n)
	if err != nil {
		t.Fatalf("query information_schema: %v", err)
	}
	if n != 0 {
		t.Error("staging table must not survive a successful rebuild")
	}
}
