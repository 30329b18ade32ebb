// Geopulse - Scholarly Readership Analytics and Geographic Visualization
// Copyright 2026 Mwangaza University Press
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mwangaza-press/geopulse

package database

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mwangaza-press/geopulse/internal/config"
	"github.com/mwangaza-press/geopulse/internal/models"
)

// testDBSemaphore limits concurrent database creation. Parallel DuckDB
// CGO calls can hang under CI resource pressure, so database tests are
// fully serialized: the semaphore is held for the whole test lifecycle
// and released via t.Cleanup.
var testDBSemaphore = make(chan struct{}, 1)

func testHeatmapConfig() config.HeatmapConfig {
	return config.HeatmapConfig{
		GridDegrees:        0.1,
		ZoomThreshold:      10,
		RebuildInterval:    5 * time.Minute,
		RefreshMinInterval: 30 * time.Second,
		TileCacheTTL:       30 * time.Second,
		TileMaxAge:         60,
	}
}

// setupTestDB creates an in-memory test database. Spatial is optional
// so the suite runs on machines without the extension; tile tests skip
// themselves when it is missing.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() {
		<-testDBSemaphore
	})

	t.Setenv("DUCKDB_SPATIAL_OPTIONAL", "true")

	cfg := &config.DatabaseConfig{
		Path:      ":memory:",
		MaxMemory: "1GB",
	}

	type result struct {
		db  *DB
		err error
	}
	resultCh := make(chan result, 1)
	go func() {
		db, err := New(cfg, testHeatmapConfig())
		resultCh <- result{db: db, err: err}
	}()

	select {
	case res := <-resultCh:
		if res.err != nil {
			t.Fatalf("Failed to create test database: %v", res.err)
		}
		t.Cleanup(func() {
			if err := res.db.Close(); err != nil {
				t.Logf("Failed to close test database: %v", err)
			}
		})
		return res.db
	case <-time.After(120 * time.Second):
		t.Fatalf("Timeout: database creation took longer than 120s")
		return nil
	}
}

// testEvent builds an event with coordinates in Dar es Salaam.
func testEvent(eventType string) *models.ReadershipEvent {
	lat, lng := -6.7924, 39.2083
	jid, iid := int64(3), int64(101)
	cc, cn, city := "TZ", "Tanzania", "Dar es Salaam"
	return &models.ReadershipEvent{
		EventID:     uuid.NewString(),
		JournalID:   &jid,
		ItemID:      &iid,
		Latitude:    &lat,
		Longitude:   &lng,
		EventType:   eventType,
		CountryCode: &cc,
		CountryName: &cn,
		CityName:    &city,
		Weight:      1,
		Timestamp:   time.Now().UTC(),
	}
}

func TestInsertAndCountEvents(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if err := db.InsertEvent(ctx, testEvent("view")); err != nil {
		t.Fatalf("InsertEvent failed: %v", err)
	}
	if err := db.InsertEvent(ctx, testEvent("download")); err != nil {
		t.Fatalf("InsertEvent failed: %v", err)
	}

	n, err := db.CountEvents(ctx)
	if err != nil {
		t.Fatalf("CountEvents failed: %v", err)
	}
	if n != 2 {
		t.Errorf("CountEvents = %d, want 2", n)
	}
}

func TestInsertEventWithoutLocation(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	// Events with no location info are still stored.
	ev := &models.ReadershipEvent{
		EventID:   uuid.NewString(),
		EventType: models.EventTypeView,
		Weight:    1,
		Timestamp: time.Now().UTC(),
	}
	if err := db.InsertEvent(ctx, ev); err != nil {
		t.Fatalf("InsertEvent without location failed: %v", err)
	}

	var lat sql.NullFloat64
	err := db.Conn().QueryRowContext(ctx,
		"SELECT latitude FROM readership_events WHERE event_id = ?", ev.EventID).Scan(&lat)
	if err != nil {
		t.Fatalf("query stored row: %v", err)
	}
	if lat.Valid {
		t.Errorf("latitude should be NULL, got %v", lat.Float64)
	}
}

func TestInsertEventBumpsDataVersion(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	before := db.DataVersion()
	if err := db.InsertEvent(ctx, testEvent("view")); err != nil {
		t.Fatalf("InsertEvent failed: %v", err)
	}
	if db.DataVersion() <= before {
		t.Error("InsertEvent must advance the data version")
	}
}

func TestArticleUpsertAndGet(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	doi := "10.1234/mjhs.2026.101"
	art := &models.Article{
		ItemID:    101,
		JournalID: 3,
		Title:     "Malaria Vector Control in Coastal Tanzania",
		Authors:   "A. Mushi; J. Kweka",
		DOI:       &doi,
	}
	if err := db.UpsertArticle(ctx, art); err != nil {
		t.Fatalf("UpsertArticle failed: %v", err)
	}

	got, err := db.GetArticle(ctx, 101)
	if err != nil {
		t.Fatalf("GetArticle failed: %v", err)
	}
	if got.Title != art.Title {
		t.Errorf("Title = %q, want %q", got.Title, art.Title)
	}
	if got.DOI == nil || *got.DOI != doi {
		t.Errorf("DOI = %v, want %q", got.DOI, doi)
	}

	if _, err := db.GetArticle(ctx, 999); err != sql.ErrNoRows {
		t.Errorf("missing article error = %v, want sql.ErrNoRows", err)
	}
}

func TestImpactSummary(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if err := db.InsertEvent(ctx, testEvent("view")); err != nil {
		t.Fatalf("InsertEvent failed: %v", err)
	}
	if err := db.InsertEvent(ctx, testEvent("download")); err != nil {
		t.Fatalf("InsertEvent failed: %v", err)
	}
	if err := db.InsertEvent(ctx, testEvent("download")); err != nil {
		t.Fatalf("InsertEvent failed: %v", err)
	}

	s, err := db.ImpactSummary(ctx)
	if err != nil {
		t.Fatalf("ImpactSummary failed: %v", err)
	}
	if s.TotalHits != 3 {
		t.Errorf("TotalHits = %d, want 3", s.TotalHits)
	}
	if s.TotalDownloads != 2 {
		t.Errorf("TotalDownloads = %d, want 2", s.TotalDownloads)
	}
	if s.DistinctArticles != 1 {
		t.Errorf("DistinctArticles = %d, want 1", s.DistinctArticles)
	}
	if s.DistinctCountries != 1 {
		t.Errorf("DistinctCountries = %d, want 1", s.DistinctCountries)
	}
}

func TestActivityFeed(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if err := db.UpsertArticle(ctx, &models.Article{
		ItemID: 101, JournalID: 3, Title: "Malaria Vector Control in Coastal Tanzania",
	}); err != nil {
		t.Fatalf("UpsertArticle failed: %v", err)
	}

	first := testEvent("view")
	first.Timestamp = time.Now().UTC().Add(-time.Hour)
	second := testEvent("download")
	if err := db.InsertEvent(ctx, first); err != nil {
		t.Fatalf("InsertEvent failed: %v", err)
	}
	if err := db.InsertEvent(ctx, second); err != nil {
		t.Fatalf("InsertEvent failed: %v", err)
	}

	items, err := db.ActivityFeed(ctx, FeedModeRecent, 10)
	if err != nil {
		t.Fatalf("ActivityFeed failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("feed length = %d, want 2", len(items))
	}
	if items[0].EventID != second.EventID {
		t.Error("recent mode must order newest first")
	}
	if items[0].ArticleTitle == nil || *items[0].ArticleTitle != "Malaria Vector Control in Coastal Tanzania" {
		t.Errorf("ArticleTitle = %v, want joined title", items[0].ArticleTitle)
	}

	sample, err := db.ActivityFeed(ctx, FeedModeRandom, 1)
	if err != nil {
		t.Fatalf("random feed failed: %v", err)
	}
	if len(sample) != 1 {
		t.Errorf("random feed length = %d, want 1", len(sample))
	}
}

func TestTopRegions(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := db.InsertEvent(ctx, testEvent("view")); err != nil {
			t.Fatalf("InsertEvent failed: %v", err)
		}
	}
	nairobi := testEvent("view")
	lat, lng := -1.2921, 36.8219
	cc, cn, city := "KE", "Kenya", "Nairobi"
	nairobi.Latitude, nairobi.Longitude = &lat, &lng
	nairobi.CountryCode, nairobi.CountryName, nairobi.CityName = &cc, &cn, &city
	if err := db.InsertEvent(ctx, nairobi); err != nil {
		t.Fatalf("InsertEvent failed: %v", err)
	}

	regions, err := db.TopRegions(ctx, 10)
	if err != nil {
		t.Fatalf("TopRegions failed: %v", err)
	}
	if len(regions) != 2 {
		t.Fatalf("regions = %d, want 2", len(regions))
	}
	if regions[0].CityName == nil || *regions[0].CityName != "Dar es Salaam" {
		t.Errorf("top region = %v, want Dar es Salaam", regions[0].CityName)
	}
	if regions[0].Hits != 3 {
		t.Errorf("top region hits = %d, want 3", regions[0].Hits)
	}
}

func TestPing(t *testing.T) {
	db := setupTestDB(t)
	if err := db.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}
