// Geopulse - Scholarly Readership Analytics and Geographic Visualization
// Copyright 2026 Mwangaza University Press
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mwangaza-press/geopulse

package api

import (
	"testing"
)

func TestParseTileCoordinates(t *testing.T) {
	tests := []struct {
		name    string
		z, x, y string
		want    TileCoordinates
		wantErr bool
	}{
		{"world tile", "0", "0", "0", TileCoordinates{0, 0, 0}, false},
		{"mvt suffix", "10", "601", "530.mvt", TileCoordinates{10, 601, 530}, false},
		{"max zoom", "22", "0", "0", TileCoordinates{22, 0, 0}, false},
		{"zoom too deep", "23", "0", "0", TileCoordinates{}, true},
		{"negative zoom", "-1", "0", "0", TileCoordinates{}, true},
		{"x beyond grid", "2", "4", "0", TileCoordinates{}, true},
		{"y beyond grid", "2", "0", "4.mvt", TileCoordinates{}, true},
		{"non-numeric x", "2", "two", "0", TileCoordinates{}, true},
		{"empty y", "2", "0", "", TileCoordinates{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTileCoordinates(tt.z, tt.x, tt.y)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if *got != tt.want {
				t.Errorf("coords = %+v, want %+v", *got, tt.want)
			}
		})
	}
}
