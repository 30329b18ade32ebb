// Geopulse - Scholarly Readership Analytics and Geographic Visualization
// Copyright 2026 Mwangaza University Press
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mwangaza-press/geopulse

package geocode

// The embedded reference dataset: the cities our readership actually
// comes from, plus centroids for their countries. Keys are normalized
// to (upper country code, lower city name) before lookup.

type cityKey struct {
	cc   string
	city string
}

var cities = map[cityKey]Point{
	{"TZ", "dar es salaam"}: {-6.7924, 39.2083},
	{"TZ", "dodoma"}:        {-6.1630, 35.7516},
	{"TZ", "mwanza"}:        {-2.5167, 32.9000},
	{"TZ", "arusha"}:        {-3.3667, 36.6833},
	{"TZ", "mbeya"}:         {-8.9000, 33.4500},
	{"TZ", "morogoro"}:      {-6.8219, 37.6612},
	{"TZ", "tanga"}:         {-5.0667, 39.1000},
	{"TZ", "kahama"}:        {-3.8333, 32.6000},
	{"TZ", "tabora"}:        {-5.0167, 32.8167},
	{"TZ", "zanzibar city"}: {-6.1659, 39.2026},
	{"GB", "london"}:        {51.5074, -0.1278},
	{"US", "new york"}:      {40.7128, -74.0060},
	{"KE", "nairobi"}:       {-1.2921, 36.8219},
	{"ZA", "johannesburg"}:  {-26.2041, 28.0473},
	{"UG", "kampala"}:       {0.3136, 32.5811},
	{"CN", "beijing"}:       {39.9042, 116.4074},
	{"IN", "new delhi"}:     {28.6139, 77.2090},
}

var centroids = map[string]Point{
	"TZ": {-6.3690, 34.8888},
	"KE": {-1.2864, 36.8172},
	"UG": {1.3733, 32.2903},
	"GB": {54.7024, -3.2766},
	"US": {39.7837, -100.4459},
	"ZA": {-28.8166, 24.9916},
	"CN": {35.0000, 105.0000},
	"IN": {22.3511, 78.6677},
}
