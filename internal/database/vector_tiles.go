// Geopulse - Scholarly Readership Analytics and Geographic Visualization
// Copyright 2026 Mwangaza University Press
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mwangaza-press/geopulse

package database

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/mwangaza-press/geopulse/internal/metrics"
)

// TileBounds is the geographic envelope of a map tile.
type TileBounds struct {
	MinX float64
	MinY float64
	MaxX float64
	MaxY float64
}

// CalculateTileBounds converts XYZ tile coordinates to a WGS84 envelope
// using the Web Mercator projection (EPSG:3857).
func CalculateTileBounds(z, x, y int) TileBounds {
	n := math.Pow(2, float64(z))

	minLon := float64(x)/n*360.0 - 180.0
	maxLon := float64(x+1)/n*360.0 - 180.0

	minLatRad := math.Atan(math.Sinh(math.Pi * (1 - 2*float64(y+1)/n)))
	maxLatRad := math.Atan(math.Sinh(math.Pi * (1 - 2*float64(y)/n)))

	return TileBounds{
		MinX: minLon,
		MinY: minLatRad * 180.0 / math.Pi,
		MaxX: maxLon,
		MaxY: maxLatRad * 180.0 / math.Pi,
	}
}

// GenerateVectorTile builds the MVT for one tile, branching on zoom:
// below the configured threshold it reads pre-aggregated heatmap cells,
// at or above it reads raw events joined with article metadata so
// clients can show per-point labels. An empty tile returns (nil, nil).
//
// Generated tiles are cached in-process keyed by coordinates; entries
// expire on TTL or when the data version moves.
func (db *DB) GenerateVectorTile(ctx context.Context, z, x, y int) ([]byte, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if !db.spatialAvailable {
		return nil, ErrSpatialUnavailable
	}

	branch := "cache"
	if z >= db.heatmap.ZoomThreshold {
		branch = "raw"
	}

	cacheKey := fmt.Sprintf("tile:%d/%d/%d", z, x, y)
	if data, ok := db.getTileCached(cacheKey); ok {
		return data, nil
	}

	bounds := CalculateTileBounds(z, x, y)
	start := time.Now()

	var (
		mvt []byte
		err error
	)
	if branch == "cache" {
		mvt, err = db.generateHeatmapTile(ctx, bounds)
	} else {
		mvt, err = db.generateEventTile(ctx, bounds)
	}
	metrics.TileGenerationDuration.WithLabelValues(branch).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.TileRequests.WithLabelValues(branch, "error").Inc()
		return nil, err
	}
	if len(mvt) == 0 {
		metrics.TileRequests.WithLabelValues(branch, "empty").Inc()
		return nil, nil
	}

	metrics.TileRequests.WithLabelValues(branch, "ok").Inc()
	db.setTileCache(cacheKey, mvt)
	return mvt, nil
}

// generateHeatmapTile renders aggregated cells. Feature properties are
// weight, event_type, and journal_id; the client styles circle radius
// from weight.
func (db *DB) generateHeatmapTile(ctx context.Context, b TileBounds) ([]byte, error) {
	query := `
		SELECT ST_AsMVT(t.*, 'readership', 4096, 'geom') AS mvt
		FROM (
			SELECT
				ST_AsMVTGeom(
					ST_Point(cell_lng, cell_lat),
					ST_MakeEnvelope(?, ?, ?, ?, 4326),
					4096,
					64,
					false
				) AS geom,
				weight,
				event_type,
				journal_id
			FROM readership_heatmap_cache
			WHERE cell_lng BETWEEN ? AND ?
				AND cell_lat BETWEEN ? AND ?
		) AS t
		WHERE geom IS NOT NULL`

	var mvt []byte
	err := db.conn.QueryRowContext(ctx, query,
		b.MinX, b.MinY, b.MaxX, b.MaxY,
		b.MinX, b.MaxX, b.MinY, b.MaxY,
	).Scan(&mvt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate heatmap tile: %w", err)
	}
	return mvt, nil
}

// generateEventTile renders raw events with article labels. The
// per-tile sequential id lets the map client pick individual features;
// titles truncate to 80 characters to keep tiles small.
func (db *DB) generateEventTile(ctx context.Context, b TileBounds) ([]byte, error) {
	query := `
		WITH tile_events AS (
			SELECT
				e.longitude,
				e.latitude,
				e.weight,
				e.event_type,
				e.journal_id,
				e.city_name,
				e.region_name,
				e.country_name,
				LEFT(pa.title, 80) AS article_title,
				ROW_NUMBER() OVER () AS id
			FROM readership_events e
			LEFT JOIN platform_articles pa ON e.item_id = pa.item_id
			WHERE e.latitude IS NOT NULL
				AND e.longitude IS NOT NULL
				AND e.longitude BETWEEN ? AND ?
				AND e.latitude BETWEEN ? AND ?
		)
		SELECT ST_AsMVT(t.*, 'readership', 4096, 'geom') AS mvt
		FROM (
			SELECT
				ST_AsMVTGeom(
					ST_Point(longitude, latitude),
					ST_MakeEnvelope(?, ?, ?, ?, 4326),
					4096,
					64,
					false
				) AS geom,
				id,
				weight,
				event_type,
				journal_id,
				city_name AS city,
				region_name AS region,
				country_name AS country,
				article_title
			FROM tile_events
		) AS t
		WHERE geom IS NOT NULL`

	var mvt []byte
	err := db.conn.QueryRowContext(ctx, query,
		b.MinX, b.MaxX, b.MinY, b.MaxY,
		b.MinX, b.MinY, b.MaxX, b.MaxY,
	).Scan(&mvt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate event tile: %w", err)
	}
	return mvt, nil
}
