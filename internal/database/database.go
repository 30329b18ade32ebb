// Geopulse - Scholarly Readership Analytics and Geographic Visualization
// Copyright 2026 Mwangaza University Press
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mwangaza-press/geopulse

// Package database wraps the embedded DuckDB instance holding the
// readership event log, the derived heatmap cache, and the article
// catalogue, and generates Mapbox vector tiles from them in-database.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/mwangaza-press/geopulse/internal/config"
	"github.com/mwangaza-press/geopulse/internal/logging"
)

// ErrSpatialUnavailable is returned by tile generation when the DuckDB
// spatial extension could not be loaded. The rest of the service keeps
// working without it.
var ErrSpatialUnavailable = fmt.Errorf("spatial extension not available")

// CachedTile is one entry of the in-process MVT cache.
type CachedTile struct {
	Data    []byte
	Version int64
	Expires time.Time
}

// DB wraps the DuckDB connection and provides all data access methods.
type DB struct {
	conn             *sql.DB
	cfg              *config.DatabaseConfig
	heatmap          config.HeatmapConfig
	spatialAvailable bool

	// Vector tile caching
	tileCache     map[string]CachedTile
	tileCacheMu   sync.RWMutex
	dataVersion   int64
	dataVersionMu sync.RWMutex
	tileCacheTTL  time.Duration
}

// New opens (or creates) the database, loads extensions, and initializes
// the schema.
func New(cfg *config.DatabaseConfig, heatmap config.HeatmapConfig) (*DB, error) {
	numThreads := cfg.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}

	path := cfg.Path
	if cfg.InMemory() {
		path = ""
	} else {
		// 0750 per gosec G301
		dbDir := filepath.Dir(path)
		if dbDir != "" && dbDir != "." {
			if err := os.MkdirAll(dbDir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dbDir, err)
			}
		}
	}

	// Auto-install/auto-load stay disabled so startup cannot hang on a
	// network fetch; installExtensions loads explicitly with timeouts.
	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s&autoinstall_known_extensions=false&autoload_known_extensions=false",
		path, numThreads, cfg.MaxMemory)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	tileTTL := heatmap.TileCacheTTL
	if tileTTL <= 0 {
		tileTTL = 30 * time.Second
	}

	db := &DB{
		conn:             conn,
		cfg:              cfg,
		heatmap:          heatmap,
		spatialAvailable: true,
		tileCache:        make(map[string]CachedTile),
		tileCacheTTL:     tileTTL,
	}

	db.configureConnectionPool()

	if err := db.initialize(); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return db, nil
}

// IsSpatialAvailable returns whether the spatial extension is loaded.
func (db *DB) IsSpatialAvailable() bool {
	return db.spatialAvailable
}

// SetSpatialAvailableForTesting overrides the spatial flag so unit tests
// can exercise the unavailable path without uninstalling the extension.
func (db *DB) SetSpatialAvailableForTesting(available bool) {
	db.spatialAvailable = available
}

// Conn returns the underlying SQL connection.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// GridDegrees returns the aggregation cell size.
func (db *DB) GridDegrees() float64 {
	return db.heatmap.GridDegrees
}

// ZoomThreshold returns the zoom at which tiles switch to raw events.
func (db *DB) ZoomThreshold() int {
	return db.heatmap.ZoomThreshold
}

// Ping checks if the database connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	if db.conn == nil {
		return fmt.Errorf("database connection is nil")
	}
	return db.conn.PingContext(ctx)
}

// Close flushes the WAL and closes the connection.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := db.conn.ExecContext(ctx, "CHECKPOINT"); err != nil {
		logging.Warn().Err(err).Msg("Failed to checkpoint database before close")
	}
	return db.conn.Close()
}

func (db *DB) initialize() error {
	if err := db.installExtensions(); err != nil {
		return err
	}
	if err := db.createTables(); err != nil {
		return err
	}
	return db.createIndexes()
}

func (db *DB) configureConnectionPool() {
	db.conn.SetMaxOpenConns(runtime.NumCPU())
	db.conn.SetMaxIdleConns(2)
	db.conn.SetConnMaxLifetime(time.Hour)
	db.conn.SetConnMaxIdleTime(5 * time.Minute)
}

// installExtensions loads the spatial extension. With
// DUCKDB_SPATIAL_OPTIONAL=true the service starts without it and tile
// generation returns ErrSpatialUnavailable instead.
func (db *DB) installExtensions() error {
	spatialOptional := os.Getenv("DUCKDB_SPATIAL_OPTIONAL") == "true"

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := db.conn.ExecContext(ctx, "INSTALL spatial;"); err != nil {
		logging.Debug().Err(err).Msg("INSTALL spatial failed, trying LOAD (may be pre-installed)")
	}
	if _, err := db.conn.ExecContext(ctx, "LOAD spatial;"); err != nil {
		if !spatialOptional {
			return fmt.Errorf("failed to load spatial extension (set DUCKDB_SPATIAL_OPTIONAL=true to run without tiles): %w", err)
		}
		db.spatialAvailable = false
		logging.Warn().Err(err).Msg("Spatial extension unavailable, vector tiles disabled")
		return nil
	}

	// Verify ST_* functions actually resolve.
	var one int
	if err := db.conn.QueryRowContext(ctx, "SELECT 1 WHERE ST_Point(0, 0) IS NOT NULL").Scan(&one); err != nil {
		if !spatialOptional {
			return fmt.Errorf("spatial extension loaded but not functional: %w", err)
		}
		db.spatialAvailable = false
		logging.Warn().Err(err).Msg("Spatial extension not functional, vector tiles disabled")
	}
	return nil
}

// ensureContext caps unbounded calls at 30 seconds.
func (db *DB) ensureContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return context.WithTimeout(context.Background(), 30*time.Second)
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		return context.WithTimeout(ctx, 30*time.Second)
	}
	return ctx, func() {}
}

func closeQuietly(c interface{ Close() error }) {
	if err := c.Close(); err != nil {
		logging.Debug().Err(err).Msg("Error closing resource")
	}
}
