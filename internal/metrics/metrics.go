// Geopulse - Scholarly Readership Analytics and Geographic Visualization
// Copyright 2026 Mwangaza University Press
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mwangaza-press/geopulse

// Package metrics defines the Prometheus collectors instrumenting the
// ingestion, tile, pulse, and rebuild paths. All collectors register via
// promauto on the default registry and are exposed at /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingestion metrics
	EventsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "readership_events_ingested_total",
			Help: "Total readership events stored, by event type",
		},
		[]string{"event_type"},
	)

	EventsGeocoded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "readership_events_geocoded_total",
			Help: "Events resolved through the geocoding chain, by confidence",
		},
		[]string{"confidence"}, // "city", "low"
	)

	// Vector tile metrics
	TileRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vector_tile_requests_total",
			Help: "Total vector tile requests, by query branch and outcome",
		},
		[]string{"branch", "outcome"}, // branch: "cache"/"raw"; outcome: "ok"/"empty"/"error"
	)

	TileGenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vector_tile_generation_seconds",
			Help:    "Vector tile generation duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"branch"},
	)

	// In-process MVT cache metrics
	TileCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tile_cache_hits_total",
			Help: "Total vector tile cache hits",
		},
	)

	TileCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tile_cache_misses_total",
			Help: "Total vector tile cache misses",
		},
	)

	TileCacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tile_cache_entries",
			Help: "Current number of cached vector tiles",
		},
	)

	TileCacheDataVersion = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tile_cache_data_version",
			Help: "Current tile cache data version (increments on data changes)",
		},
	)

	// Heatmap rebuild metrics
	HeatmapRebuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "heatmap_rebuild_duration_seconds",
			Help:    "Aggregation cache rebuild duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	HeatmapRebuilds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "heatmap_rebuilds_total",
			Help: "Total aggregation cache rebuilds, by outcome",
		},
		[]string{"outcome"}, // "ok", "error"
	)

	HeatmapLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "heatmap_last_rebuild_timestamp_seconds",
			Help: "Unix time of the last successful aggregation cache rebuild",
		},
	)

	// WebSocket pulse metrics
	WSConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pulse_connected_clients",
			Help: "Current number of connected pulse subscribers",
		},
	)

	WSBroadcasts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_broadcasts_total",
			Help: "Total pulse frames broadcast, by frame type",
		},
		[]string{"type"},
	)

	WSDroppedClients = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pulse_dropped_clients_total",
			Help: "Subscribers dropped for a full or closed send buffer",
		},
	)

	// API endpoint metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "endpoint"},
	)

	// Citation proxy metrics
	CitationLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "citation_lookups_total",
			Help: "Total Crossref citation lookups, by outcome",
		},
		[]string{"outcome"}, // "success", "failure", "rejected", "not_found", "no_doi"
	)

	CitationBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "citation_breaker_state",
			Help: "Crossref circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)
)

// RecordAPIRequest records one completed HTTP request.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
