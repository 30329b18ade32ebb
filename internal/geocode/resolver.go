// Geopulse - Scholarly Readership Analytics and Geographic Visualization
// Copyright 2026 Mwangaza University Press
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mwangaza-press/geopulse

// Package geocode resolves (country, region, city) place names to
// coordinates using an ordered in-process fallback chain. The resolver
// is pure and deterministic: it always returns a point and never errors,
// so ingestion can store every event regardless of how vague its
// location fields are.
package geocode

import (
	"strings"
)

// Point is a WGS84 coordinate pair.
type Point struct {
	Lat float64
	Lng float64
}

// HomeAnchor is the final fallback: the geographic centroid of Tanzania,
// home region of the press. Events resolved here render at low opacity.
var HomeAnchor = Point{Lat: -6.3690, Lng: 34.8888}

// Strategy attempts one resolution step. It reports ok=false to pass
// the query to the next strategy in the chain.
type Strategy interface {
	Resolve(countryCode, region, city string) (Point, bool)
	Name() string
}

// Resolver runs an ordered strategy list; the first hit wins.
type Resolver struct {
	chain []Strategy
}

// NewResolver builds the default chain: city table, country centroid,
// home anchor. The chain always terminates because the anchor strategy
// never misses.
func NewResolver() *Resolver {
	return &Resolver{
		chain: []Strategy{
			cityTable{},
			countryCentroids{},
			anchor{},
		},
	}
}

// NewResolverWithChain builds a resolver from a custom strategy list.
// The caller must ensure the last strategy always resolves.
func NewResolverWithChain(chain ...Strategy) *Resolver {
	return &Resolver{chain: chain}
}

// Resolve maps place names to a coordinate. Matching is case-insensitive
// and ignores surrounding whitespace.
func (r *Resolver) Resolve(countryCode, region, city string) Point {
	cc := strings.ToUpper(strings.TrimSpace(countryCode))
	reg := strings.ToLower(strings.TrimSpace(region))
	ct := strings.ToLower(strings.TrimSpace(city))

	for _, s := range r.chain {
		if p, ok := s.Resolve(cc, reg, ct); ok {
			return p
		}
	}
	return HomeAnchor
}

// LowConfidence reports whether a point is a fallback marker rather than
// a real city-level fix: the home anchor, or the (0,0) null island that
// legacy feeds emit for unknown countries.
func (r *Resolver) LowConfidence(p Point) bool {
	return p == HomeAnchor || (p.Lat == 0 && p.Lng == 0)
}

type cityTable struct{}

func (cityTable) Name() string { return "city" }

func (cityTable) Resolve(cc, _, city string) (Point, bool) {
	if city == "" {
		return Point{}, false
	}
	p, ok := cities[cityKey{cc, city}]
	return p, ok
}

type countryCentroids struct{}

func (countryCentroids) Name() string { return "country" }

func (countryCentroids) Resolve(cc, _, _ string) (Point, bool) {
	if cc == "" {
		return Point{}, false
	}
	p, ok := centroids[cc]
	return p, ok
}

type anchor struct{}

func (anchor) Name() string { return "anchor" }

func (anchor) Resolve(_, _, _ string) (Point, bool) {
	return HomeAnchor, true
}
