// Geopulse - Scholarly Readership Analytics and Geographic Visualization
// Copyright 2026 Mwangaza University Press
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mwangaza-press/geopulse

package database

import (
	"time"

	"github.com/mwangaza-press/geopulse/internal/metrics"
)

// The in-process MVT cache absorbs map pans where many viewers request
// the same tiles between data changes. Entries are valid while they are
// inside their TTL AND carry the current data version; either ingest or
// a heatmap rebuild bumps the version and silently invalidates the lot.

// getTileCached retrieves a vector tile from cache if still valid.
func (db *DB) getTileCached(cacheKey string) ([]byte, bool) {
	db.tileCacheMu.RLock()
	tile, ok := db.tileCache[cacheKey]
	db.tileCacheMu.RUnlock()

	if !ok || time.Now().After(tile.Expires) {
		metrics.TileCacheMisses.Inc()
		return nil, false
	}

	if tile.Version != db.DataVersion() {
		metrics.TileCacheMisses.Inc()
		return nil, false
	}

	metrics.TileCacheHits.Inc()
	return tile.Data, true
}

// setTileCache stores a vector tile tagged with the current version.
func (db *DB) setTileCache(cacheKey string, data []byte) {
	version := db.DataVersion()

	db.tileCacheMu.Lock()
	db.tileCache[cacheKey] = CachedTile{
		Data:    data,
		Version: version,
		Expires: time.Now().Add(db.tileCacheTTL),
	}
	cacheSize := len(db.tileCache)
	db.tileCacheMu.Unlock()

	metrics.TileCacheSize.Set(float64(cacheSize))
}

// InvalidateTileCache clears all cached tiles immediately.
func (db *DB) InvalidateTileCache() {
	db.tileCacheMu.Lock()
	db.tileCache = make(map[string]CachedTile)
	db.tileCacheMu.Unlock()

	metrics.TileCacheSize.Set(0)
}

// DataVersion returns the current data version.
func (db *DB) DataVersion() int64 {
	db.dataVersionMu.RLock()
	defer db.dataVersionMu.RUnlock()
	return db.dataVersion
}

// IncrementDataVersion marks all cached tiles stale.
func (db *DB) IncrementDataVersion() {
	db.dataVersionMu.Lock()
	db.dataVersion++
	newVersion := db.dataVersion
	db.dataVersionMu.Unlock()

	metrics.TileCacheDataVersion.Set(float64(newVersion))
}
