// Geopulse - Scholarly Readership Analytics and Geographic Visualization
// Copyright 2026 Mwangaza University Press
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mwangaza-press/geopulse

package geocode

import (
	"testing"
)

func TestResolveCityHit(t *testing.T) {
	r := NewResolver()

	p := r.Resolve("TZ", "", "Dar es Salaam")
	if p.Lat != -6.7924 || p.Lng != 39.2083 {
		t.Errorf("Dar es Salaam = %+v, want (-6.7924, 39.2083)", p)
	}
	if r.LowConfidence(p) {
		t.Error("city-level fix must not report low confidence")
	}
}

func TestResolveNormalization(t *testing.T) {
	r := NewResolver()

	want := r.Resolve("TZ", "", "Dar es Salaam")
	variants := []struct {
		cc, city string
	}{
		{"tz", "dar es salaam"},
		{"Tz", "DAR ES SALAAM"},
		{" TZ ", "  Dar es Salaam  "},
	}
	for _, v := range variants {
		if got := r.Resolve(v.cc, "", v.city); got != want {
			t.Errorf("Resolve(%q, %q) = %+v, want %+v", v.cc, v.city, got, want)
		}
	}
}

func TestResolveFallbackOrdering(t *testing.T) {
	r := NewResolver()

	// Unknown city in a known country falls through to the centroid.
	p := r.Resolve("KE", "", "Eldoret")
	if p.Lat != -1.2864 || p.Lng != 36.8172 {
		t.Errorf("KE centroid = %+v, want (-1.2864, 36.8172)", p)
	}

	// Known city must beat the centroid even though both would match.
	p = r.Resolve("KE", "", "Nairobi")
	if p.Lat != -1.2921 {
		t.Errorf("Nairobi resolved to centroid: %+v", p)
	}

	// Unknown country, unknown city lands on the anchor.
	p = r.Resolve("XX", "", "Atlantis")
	if p != HomeAnchor {
		t.Errorf("unknown everything = %+v, want anchor %+v", p, HomeAnchor)
	}

	// No input at all still resolves.
	p = r.Resolve("", "", "")
	if p != HomeAnchor {
		t.Errorf("empty input = %+v, want anchor", p)
	}
}

func TestResolveDeterministic(t *testing.T) {
	r := NewResolver()
	first := r.Resolve("UG", "Central", "Kampala")
	for i := 0; i < 100; i++ {
		if got := r.Resolve("UG", "Central", "Kampala"); got != first {
			t.Fatalf("iteration %d: %+v != %+v", i, got, first)
		}
	}
}

func TestLowConfidence(t *testing.T) {
	r := NewResolver()

	if !r.LowConfidence(HomeAnchor) {
		t.Error("anchor must be low confidence")
	}
	if !r.LowConfidence(Point{0, 0}) {
		t.Error("null island must be low confidence")
	}
	if r.LowConfidence(Point{-6.7924, 39.2083}) {
		t.Error("real fix must not be low confidence")
	}
}

func TestCustomChainTerminates(t *testing.T) {
	// A chain where every strategy misses still returns the anchor.
	r := NewResolverWithChain(cityTable{})
	if p := r.Resolve("XX", "", "nowhere"); p != HomeAnchor {
		t.Errorf("exhausted chain = %+v, want anchor", p)
	}
}
