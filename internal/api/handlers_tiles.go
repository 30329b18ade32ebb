// Geopulse - Scholarly Readership Analytics and Geographic Visualization
// Copyright 2026 Mwangaza University Press
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mwangaza-press/geopulse

package api

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mwangaza-press/geopulse/internal/database"
)

// TileCoordinates is a validated z/x/y triple.
type TileCoordinates struct {
	Z, X, Y int
}

// ParseTileCoordinates validates the z, x, y path segments. The y
// segment may carry a .mvt suffix.
func ParseTileCoordinates(zStr, xStr, yStr string) (*TileCoordinates, error) {
	z, err := strconv.Atoi(zStr)
	if err != nil {
		return nil, fmt.Errorf("invalid zoom level %q", zStr)
	}

	x, err := strconv.Atoi(xStr)
	if err != nil {
		return nil, fmt.Errorf("invalid x coordinate %q", xStr)
	}

	y, err := strconv.Atoi(strings.TrimSuffix(yStr, ".mvt"))
	if err != nil {
		return nil, fmt.Errorf("invalid y coordinate %q", yStr)
	}

	maxTile := int(math.Pow(2, float64(z))) - 1
	if z < 0 || z > 22 || x < 0 || x > maxTile || y < 0 || y > maxTile {
		return nil, fmt.Errorf("tile coordinates %d/%d/%d out of range", z, x, y)
	}

	return &TileCoordinates{Z: z, X: x, Y: y}, nil
}

// GetVectorTile serves one Mapbox vector tile.
//
// GET /api/v1/tiles/{z}/{x}/{y}.mvt
//
// Low zooms render the aggregation cache; at and above the zoom
// threshold the tile reads raw events with article labels. A tile with
// no features returns 204 so map clients skip the decode entirely.
func (h *Handler) GetVectorTile(w http.ResponseWriter, r *http.Request) {
	coords, err := ParseTileCoordinates(
		chi.URLParam(r, "z"),
		chi.URLParam(r, "x"),
		chi.URLParam(r, "y"),
	)
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}

	mvt, err := h.db.GenerateVectorTile(r.Context(), coords.Z, coords.X, coords.Y)
	if err != nil {
		if errors.Is(err, database.ErrSpatialUnavailable) {
			respondError(w, http.StatusServiceUnavailable, "EXTENSION_UNAVAILABLE",
				"Vector tiles require the DuckDB spatial extension", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "TILE_GENERATION_ERROR", "Failed to generate tile", err)
		return
	}

	if len(mvt) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.mapbox-vector-tile")
	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", h.cfg.Heatmap.TileMaxAge))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(mvt)
}
