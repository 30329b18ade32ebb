// Geopulse - Scholarly Readership Analytics and Geographic Visualization
// Copyright 2026 Mwangaza University Press
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mwangaza-press/geopulse

package api

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mwangaza-press/geopulse/internal/citations"
	"github.com/mwangaza-press/geopulse/internal/metrics"
	"github.com/mwangaza-press/geopulse/internal/models"
)

// ArticleMetrics proxies citation counts for one catalogued article.
//
// GET /api/v1/articles/{id}/metrics
//
// An article without a DOI returns null citations rather than an error;
// a Crossref outage returns 503 so the dashboard can show a stale badge
// instead of a broken one.
func (h *Handler) ArticleMetrics(w http.ResponseWriter, r *http.Request) {
	itemID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || itemID < 1 {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Article id must be a positive integer", nil)
		return
	}

	start := time.Now()
	article, err := h.db.GetArticle(r.Context(), itemID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "NOT_FOUND", "Article not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load article", err)
		return
	}

	if article.DOI == nil || *article.DOI == "" {
		metrics.CitationLookups.WithLabelValues("no_doi").Inc()
		respondData(w, &models.ArticleMetrics{
			ArticleID: article.ItemID,
			DOI:       nil,
			Citations: nil,
			Source:    "none",
		}, start)
		return
	}

	if !h.citations.Enabled() {
		respondError(w, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE", "Citation lookups are disabled", nil)
		return
	}

	result, err := h.citations.Lookup(r.Context(), *article.DOI)
	if err != nil {
		switch {
		case errors.Is(err, citations.ErrUnavailable):
			respondError(w, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE", "Citation service temporarily unavailable", nil)
		case errors.Is(err, citations.ErrNotFound):
			// The DOI is real but unknown upstream; report zero data, not
			// an error, so the badge renders.
			respondData(w, &models.ArticleMetrics{
				ArticleID: article.ItemID,
				DOI:       article.DOI,
				Citations: nil,
				Source:    "crossref",
			}, start)
		default:
			respondError(w, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE", "Citation lookup failed", err)
		}
		return
	}

	result.ArticleID = article.ItemID
	respondData(w, result, start)
}
