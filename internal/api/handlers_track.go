// Geopulse - Scholarly Readership Analytics and Geographic Visualization
// Copyright 2026 Mwangaza University Press
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mwangaza-press/geopulse

package api

import (
	"math/rand"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/mwangaza-press/geopulse/internal/logging"
	"github.com/mwangaza-press/geopulse/internal/metrics"
	"github.com/mwangaza-press/geopulse/internal/models"
)

// maxTrackBodySize bounds the ingest body; tracking beacons are tiny.
const maxTrackBodySize = 64 * 1024

// Track ingests one readership event.
//
// The endpoint is deliberately forgiving: every field is optional and
// numeric fields decode leniently, so a half-broken beacon still counts.
// The only rejection is a body that is not JSON at all. Raw coordinates
// win over place names; place names fall through the geocoding chain;
// an event with neither is stored without a location and counts only in
// non-spatial aggregates.
func (h *Handler) Track(w http.ResponseWriter, r *http.Request) {
	var req models.TrackRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxTrackBodySize))
	if err := decoder.Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Request body must be a JSON object", nil)
		return
	}

	event := h.buildEvent(&req)

	if err := h.db.InsertEvent(r.Context(), event); err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to store readership event", err)
		return
	}

	// Catalogue enrichment: a beacon that knows its article title keeps
	// the feed labels fresh without a separate export job.
	if req.ArticleTitle != "" && req.ArticleID.Set {
		h.upsertArticleFromBeacon(r, &req)
	}

	h.hub.BroadcastHit(event)

	respondRaw(w, http.StatusOK, models.TrackResponse{
		Status: "broadcasted",
		Event:  event,
	})
}

// buildEvent assembles the stored event from a lenient request.
func (h *Handler) buildEvent(req *models.TrackRequest) *models.ReadershipEvent {
	event := &models.ReadershipEvent{
		EventID:         uuid.New().String(),
		JournalID:       req.JournalID.Ptr(),
		ItemID:          req.ArticleID.Ptr(),
		EventType:       models.NormalizeEventType(req.EventType),
		SessionDuration: req.SessionDuration.Ptr(),
		Weight:          1,
		Timestamp:       time.Now().UTC(),
	}

	if req.CountryCode != "" {
		event.CountryCode = &req.CountryCode
	}
	if req.CountryName != "" {
		event.CountryName = &req.CountryName
	}
	if req.RegionName != "" {
		event.RegionName = &req.RegionName
	}
	if req.CityName != "" {
		event.CityName = &req.CityName
	}

	if req.HasCoordinates() && validCoordinates(req.Lat.Value, req.Lng.Value) {
		event.Latitude = req.Lat.Ptr()
		event.Longitude = req.Lng.Ptr()
		return event
	}

	// No usable coordinates and nothing to geocode: the location stays
	// null and the event is excluded from spatial tiling.
	if !req.HasPlaceNames() {
		return event
	}

	point := h.resolver.Resolve(req.CountryCode, req.RegionName, req.CityName)
	event.Latitude = &point.Lat
	event.Longitude = &point.Lng

	confidence := "city"
	if h.resolver.LowConfidence(point) {
		confidence = "low"
	}
	metrics.EventsGeocoded.WithLabelValues(confidence).Inc()

	return event
}

func validCoordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

func (h *Handler) upsertArticleFromBeacon(r *http.Request, req *models.TrackRequest) {
	article := &models.Article{
		ItemID: req.ArticleID.Value,
		Title:  req.ArticleTitle,
	}
	if req.JournalID.Set {
		article.JournalID = req.JournalID.Value
	}
	// Failures here must not affect the stored event.
	if err := h.db.UpsertArticle(r.Context(), article); err != nil {
		logging.Warn().Err(err).Int64("article_id", req.ArticleID.Value).Msg("failed to refresh article catalogue from beacon")
	}
}

// mockCities seed the demo pulse; they mirror the journal's real
// readership spread.
var mockCities = []struct {
	city, country, cc string
	lat, lng          float64
}{
	{"Dar es Salaam", "Tanzania", "TZ", -6.7924, 39.2083},
	{"Dodoma", "Tanzania", "TZ", -6.1630, 35.7516},
	{"Nairobi", "Kenya", "KE", -1.2921, 36.8219},
	{"Kampala", "Uganda", "UG", 0.3476, 32.5825},
	{"London", "United Kingdom", "GB", 51.5074, -0.1278},
	{"New York", "United States", "US", 40.7128, -74.0060},
	{"Johannesburg", "South Africa", "ZA", -26.2041, 28.0473},
	{"New Delhi", "India", "IN", 28.6139, 77.2090},
}

// TrackMock broadcasts synthetic readership hits without persisting
// them. Used by demos and by the front end's connection smoke test.
func (h *Handler) TrackMock(w http.ResponseWriter, r *http.Request) {
	count := getIntParam(r, "count", 1)
	if count < 1 {
		count = 1
	}
	if count > 50 {
		count = 50
	}

	eventTypes := []string{models.EventTypeView, models.EventTypeDownload, models.EventTypeVisit}
	for i := 0; i < count; i++ {
		c := mockCities[rand.Intn(len(mockCities))] //nolint:gosec // demo data, not security sensitive
		lat, lng := c.lat, c.lng
		city, country, cc := c.city, c.country, c.cc
		journalID := int64(1)
		articleID := int64(100 + rand.Intn(40)) //nolint:gosec // demo data

		h.hub.BroadcastHit(&models.ReadershipEvent{
			EventID:     uuid.New().String(),
			JournalID:   &journalID,
			ItemID:      &articleID,
			Latitude:    &lat,
			Longitude:   &lng,
			EventType:   eventTypes[rand.Intn(len(eventTypes))], //nolint:gosec // demo data
			CountryCode: &cc,
			CountryName: &country,
			CityName:    &city,
			Weight:      1,
			Timestamp:   time.Now().UTC(),
		})
	}

	respondRaw(w, http.StatusOK, map[string]interface{}{
		"status": "broadcasted",
		"count":  count,
	})
}
