// Geopulse - Scholarly Readership Analytics and Geographic Visualization
// Copyright 2026 Mwangaza University Press
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mwangaza-press/geopulse

package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mwangaza-press/geopulse/internal/metrics"
	"github.com/mwangaza-press/geopulse/internal/models"
)

// InsertEvent appends one readership event. The caller has already
// assigned event_id and timestamp and resolved the location; this is a
// plain append with no retry, failures surface to the ingest endpoint.
func (db *DB) InsertEvent(ctx context.Context, e *models.ReadershipEvent) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	weight := e.Weight
	if weight <= 0 {
		weight = 1
	}

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO readership_events (
			event_id, journal_id, item_id, latitude, longitude, event_type,
			country_code, country_name, region_name, city_name,
			session_duration, weight, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.EventID, e.JournalID, e.ItemID, e.Latitude, e.Longitude, e.EventType,
		e.CountryCode, e.CountryName, e.RegionName, e.CityName,
		e.SessionDuration, weight, e.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert readership event: %w", err)
	}

	metrics.EventsIngested.WithLabelValues(e.EventType).Inc()

	// Raw-event tiles at high zoom read this table directly, so any
	// cached high-zoom tile is now stale.
	db.IncrementDataVersion()
	return nil
}

// CountEvents returns the number of stored events.
func (db *DB) CountEvents(ctx context.Context) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var n int64
	if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM readership_events").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return n, nil
}

// UpsertArticle inserts or replaces one catalogue row. Used by the
// platform export job and by tests.
func (db *DB) UpsertArticle(ctx context.Context, a *models.Article) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	_, err := db.conn.ExecContext(ctx, `
		INSERT OR REPLACE INTO platform_articles (item_id, journal_id, title, authors, doi)
		VALUES (?, ?, ?, ?, ?)`,
		a.ItemID, a.JournalID, a.Title, a.Authors, a.DOI,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert article %d: %w", a.ItemID, err)
	}
	return nil
}

// GetArticle fetches one catalogue row. Returns sql.ErrNoRows when the
// article is unknown.
func (db *DB) GetArticle(ctx context.Context, itemID int64) (*models.Article, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	a := &models.Article{}
	err := db.conn.QueryRowContext(ctx, `
		SELECT item_id, journal_id, title, authors, doi
		FROM platform_articles WHERE item_id = ?`, itemID,
	).Scan(&a.ItemID, &a.JournalID, &a.Title, &a.Authors, &a.DOI)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to fetch article %d: %w", itemID, err)
	}
	return a, nil
}
