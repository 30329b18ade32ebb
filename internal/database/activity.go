// Geopulse - Scholarly Readership Analytics and Geographic Visualization
// Copyright 2026 Mwangaza University Press
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mwangaza-press/geopulse

package database

import (
	"context"
	"fmt"

	"github.com/mwangaza-press/geopulse/internal/models"
)

// Activity feed modes.
const (
	FeedModeRecent = "recent"
	FeedModeRandom = "random"
)

// ActivityFeed returns readership events joined with article titles.
// Mode "recent" orders by time descending; "random" samples uniformly,
// which the dashboard uses for its idle ticker animation.
func (db *DB) ActivityFeed(ctx context.Context, mode string, limit int) ([]models.ActivityFeedItem, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	order := "e.timestamp DESC"
	if mode == FeedModeRandom {
		order = "random()"
	}

	//nolint:gosec // order is one of two fixed strings, not user input
	query := fmt.Sprintf(`
		SELECT
			e.event_id, e.journal_id, e.item_id, pa.title,
			e.event_type, e.latitude, e.longitude,
			e.city_name, e.country_name, e.timestamp
		FROM readership_events e
		LEFT JOIN platform_articles pa ON e.item_id = pa.item_id
		ORDER BY %s
		LIMIT ?`, order)

	rows, err := db.conn.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity feed: %w", err)
	}
	defer closeQuietly(rows)

	items := make([]models.ActivityFeedItem, 0, limit)
	for rows.Next() {
		var it models.ActivityFeedItem
		if err := rows.Scan(
			&it.EventID, &it.JournalID, &it.ArticleID, &it.ArticleTitle,
			&it.EventType, &it.Lat, &it.Lng,
			&it.City, &it.Country, &it.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan feed row: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("feed iteration failed: %w", err)
	}
	return items, nil
}

// ImpactSummary computes the map HUD roll-up over the whole event log.
func (db *DB) ImpactSummary(ctx context.Context) (*models.ImpactSummary, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	s := &models.ImpactSummary{}
	err := db.conn.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(weight), 0),
			COUNT(DISTINCT item_id),
			COUNT(DISTINCT country_code),
			COALESCE(SUM(weight) FILTER (WHERE event_type = 'download'), 0),
			AVG(session_duration)
		FROM readership_events`,
	).Scan(&s.TotalHits, &s.DistinctArticles, &s.DistinctCountries, &s.TotalDownloads, &s.AvgSessionDuration)
	if err != nil {
		return nil, fmt.Errorf("failed to compute impact summary: %w", err)
	}
	return s, nil
}

// TopRegions returns the top regions by summed weight. The centroid is
// the mean position of the region's events, which keeps the marker
// inside the collection even when city names are missing.
func (db *DB) TopRegions(ctx context.Context, limit int) ([]models.TopRegion, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT
			country_name, city_name,
			SUM(weight) AS hits,
			AVG(latitude), AVG(longitude),
			MAX(timestamp)
		FROM readership_events
		WHERE latitude IS NOT NULL AND longitude IS NOT NULL
		GROUP BY country_name, city_name
		ORDER BY hits DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top regions: %w", err)
	}
	defer closeQuietly(rows)

	regions := make([]models.TopRegion, 0, limit)
	for rows.Next() {
		var r models.TopRegion
		if err := rows.Scan(&r.CountryName, &r.CityName, &r.Hits, &r.CenterLat, &r.CenterLng, &r.LastHit); err != nil {
			return nil, fmt.Errorf("failed to scan region row: %w", err)
		}
		regions = append(regions, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("top regions iteration failed: %w", err)
	}
	return regions, nil
}
