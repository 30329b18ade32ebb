// Geopulse - Scholarly Readership Analytics and Geographic Visualization
// Copyright 2026 Mwangaza University Press
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mwangaza-press/geopulse

package database

import (
	"context"
	"fmt"
	"time"
)

// createTables creates the three core tables.
//
// readership_events is the append-only source of truth. Rows are never
// updated or deleted; correction means appending a compensating event.
//
// readership_heatmap_cache is derived wholesale from the events table by
// RebuildHeatmap and must never be written by anything else.
//
// platform_articles is a read-only join target seeded by the journal
// platform's export job; it is created here so joins and tests work
// against an empty catalogue.
func (db *DB) createTables() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS readership_events (
			event_id UUID PRIMARY KEY,
			journal_id BIGINT,
			item_id BIGINT,
			latitude DOUBLE,
			longitude DOUBLE,
			event_type VARCHAR NOT NULL DEFAULT 'view',
			country_code VARCHAR,
			country_name VARCHAR,
			region_name VARCHAR,
			city_name VARCHAR,
			session_duration INTEGER,
			weight INTEGER NOT NULL DEFAULT 1,
			timestamp TIMESTAMP NOT NULL DEFAULT current_timestamp
		)`,
		`CREATE TABLE IF NOT EXISTS readership_heatmap_cache (
			cell_lng DOUBLE NOT NULL,
			cell_lat DOUBLE NOT NULL,
			event_type VARCHAR NOT NULL,
			journal_id BIGINT,
			weight BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS platform_articles (
			item_id BIGINT PRIMARY KEY,
			journal_id BIGINT NOT NULL,
			title VARCHAR NOT NULL,
			authors VARCHAR,
			doi VARCHAR
		)`,
	}

	for _, stmt := range stmts {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

func (db *DB) createIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// The high-zoom tile branch range-scans coordinates; the feed scans
	// by time.
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_events_location ON readership_events (longitude, latitude)`,
		`CREATE INDEX IF NOT EXISTS idx_events_timestamp ON readership_events (timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_events_item ON readership_events (item_id)`,
	}

	for _, stmt := range indexes {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}
