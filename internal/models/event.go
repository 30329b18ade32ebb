// Geopulse - Scholarly Readership Analytics and Geographic Visualization
// Copyright 2026 Mwangaza University Press
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mwangaza-press/geopulse

// Package models defines the wire and storage types shared across the
// ingestion, tile, and pulse paths.
package models

import (
	"time"
)

// Event types accepted by the ingestion endpoint. Anything else
// normalizes to EventTypeView.
const (
	EventTypeView     = "view"
	EventTypeDownload = "download"
	EventTypeVisit    = "visit"
	// EventTypeHistoricalBaseline tags backfilled pre-launch traffic.
	// It flows through aggregation like any other type; scope filters
	// at query time decide whether it counts.
	EventTypeHistoricalBaseline = "historical_baseline"
)

// NormalizeEventType maps unknown or empty event types to the default.
func NormalizeEventType(s string) string {
	switch s {
	case EventTypeView, EventTypeDownload, EventTypeVisit, EventTypeHistoricalBaseline:
		return s
	default:
		return EventTypeView
	}
}

// ReadershipEvent is one stored row of the append-only event log.
// Latitude and Longitude are both set or both nil.
type ReadershipEvent struct {
	EventID         string    `json:"event_id"`
	JournalID       *int64    `json:"journal_id"`
	ItemID          *int64    `json:"article_id"`
	Latitude        *float64  `json:"lat"`
	Longitude       *float64  `json:"lng"`
	EventType       string    `json:"event_type"`
	CountryCode     *string   `json:"country_code,omitempty"`
	CountryName     *string   `json:"country_name,omitempty"`
	RegionName      *string   `json:"region_name,omitempty"`
	CityName        *string   `json:"city_name,omitempty"`
	SessionDuration *int64    `json:"session_duration,omitempty"`
	Weight          int64     `json:"weight"`
	Timestamp       time.Time `json:"timestamp"`
}

// HasLocation reports whether the event carries coordinates.
func (e *ReadershipEvent) HasLocation() bool {
	return e.Latitude != nil && e.Longitude != nil
}

// Pulse frame types pushed over the activity WebSocket.
const (
	FrameTypeHeartbeat     = "HEARTBEAT"
	FrameTypeReadershipHit = "READERSHIP_HIT"
)

// PulseFrame is one message on the live activity socket.
type PulseFrame struct {
	Type    string        `json:"type"`
	Payload *PulsePayload `json:"payload,omitempty"`
}

// PulsePayload carries the fields a map client needs to animate a hit.
type PulsePayload struct {
	JournalID *int64    `json:"journal_id"`
	ArticleID *int64    `json:"article_id"`
	Lat       *float64  `json:"lat"`
	Lng       *float64  `json:"lng"`
	EventType string    `json:"event_type"`
	City      *string   `json:"city,omitempty"`
	Country   *string   `json:"country,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// HeartbeatFrame returns the keepalive frame sent on the heartbeat tick.
func HeartbeatFrame() PulseFrame {
	return PulseFrame{Type: FrameTypeHeartbeat}
}

// HitFrame builds the broadcast frame for a freshly ingested event.
func HitFrame(e *ReadershipEvent) PulseFrame {
	return PulseFrame{
		Type: FrameTypeReadershipHit,
		Payload: &PulsePayload{
			JournalID: e.JournalID,
			ArticleID: e.ItemID,
			Lat:       e.Latitude,
			Lng:       e.Longitude,
			EventType: e.EventType,
			City:      e.CityName,
			Country:   e.CountryName,
			Timestamp: e.Timestamp,
		},
	}
}

// ActivityFeedItem is one row of the recent-activity feed, joined with
// article metadata where available.
type ActivityFeedItem struct {
	EventID      string    `json:"event_id"`
	JournalID    *int64    `json:"journal_id"`
	ArticleID    *int64    `json:"article_id"`
	ArticleTitle *string   `json:"article_title"`
	EventType    string    `json:"event_type"`
	Lat          *float64  `json:"lat"`
	Lng          *float64  `json:"lng"`
	City         *string   `json:"city"`
	Country      *string   `json:"country"`
	Timestamp    time.Time `json:"timestamp"`
}

// ImpactSummary is the map HUD roll-up.
type ImpactSummary struct {
	TotalHits          int64    `json:"total_hits"`
	DistinctArticles   int64    `json:"distinct_articles"`
	DistinctCountries  int64    `json:"distinct_countries"`
	TotalDownloads     int64    `json:"total_downloads"`
	AvgSessionDuration *float64 `json:"avg_session_duration"`
}

// TopRegion is one entry of the top-regions leaderboard.
type TopRegion struct {
	CountryName *string   `json:"country"`
	CityName    *string   `json:"city"`
	Hits        int64     `json:"hits"`
	CenterLat   float64   `json:"center_lat"`
	CenterLng   float64   `json:"center_lng"`
	LastHit     time.Time `json:"last_hit"`
}

// Article is one row of the platform article catalogue, the read-only
// join target for tile labels and citation lookups.
type Article struct {
	ItemID    int64   `json:"item_id"`
	JournalID int64   `json:"journal_id"`
	Title     string  `json:"title"`
	Authors   string  `json:"authors"`
	DOI       *string `json:"doi"`
}

// ArticleMetrics is the citation proxy response for one article.
// Citations is nil when the article has no DOI.
type ArticleMetrics struct {
	ArticleID int64   `json:"article_id"`
	DOI       *string `json:"doi"`
	Citations *int64  `json:"citations"`
	Source    string  `json:"source"`
}
