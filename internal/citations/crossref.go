// Geopulse - Scholarly Readership Analytics and Geographic Visualization
// Copyright 2026 Mwangaza University Press
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mwangaza-press/geopulse

// Package citations proxies citation counts from the Crossref REST API.
// Lookups run behind a circuit breaker so a slow or failing upstream
// degrades article metrics instead of stalling the dashboard.
package citations

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/mwangaza-press/geopulse/internal/config"
	"github.com/mwangaza-press/geopulse/internal/logging"
	"github.com/mwangaza-press/geopulse/internal/metrics"
	"github.com/mwangaza-press/geopulse/internal/models"
)

const defaultBaseURL = "https://api.crossref.org"

// ErrUnavailable reports that the breaker is open or the upstream call
// was rejected; callers map it to 503 UPSTREAM_UNAVAILABLE.
var ErrUnavailable = errors.New("citations: upstream unavailable")

// ErrNotFound reports that Crossref has no record for the DOI.
var ErrNotFound = errors.New("citations: DOI not found")

// crossrefWork is the subset of the Crossref work message we read.
type crossrefWork struct {
	Message struct {
		DOI             string `json:"DOI"`
		IsReferencedBy  int64  `json:"is-referenced-by-count"`
		ReferencesCount int64  `json:"references-count"`
	} `json:"message"`
}

// Client fetches citation counts for DOIs. A nil *Client is valid and
// reports every lookup as unavailable, which lets the server run with
// citations disabled.
type Client struct {
	httpClient *http.Client
	baseURL    string
	mailto     string
	cb         *gobreaker.CircuitBreaker[*models.ArticleMetrics]
}

// NewClient builds a Crossref client from config. Returns nil when the
// citations feature is disabled.
//
// Breaker settings follow the upstream-proxy convention: max 3 requests
// half-open, 1 minute measurement window, 2 minute recovery timeout,
// opening at a 60% failure rate once 10 requests have been observed.
func NewClient(cfg config.CitationsConfig) *Client {
	if !cfg.Enabled {
		return nil
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	cbName := "crossref-api"
	metrics.CitationBreakerState.Set(0)

	cb := gobreaker.NewCircuitBreaker[*models.ArticleMetrics](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.6
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", stateToString(from)).
				Str("to", stateToString(to)).
				Msg("citation breaker state transition")
			metrics.CitationBreakerState.Set(stateToFloat(to))
		},
	})

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		mailto:     cfg.Mailto,
		cb:         cb,
	}
}

// Enabled reports whether citation lookups are active.
func (c *Client) Enabled() bool {
	return c != nil
}

// Lookup fetches the citation count for a DOI. A missing DOI returns
// ErrNotFound; breaker rejections return ErrUnavailable. Both leave the
// caller free to serve the article without citation data.
func (c *Client) Lookup(ctx context.Context, doi string) (*models.ArticleMetrics, error) {
	if c == nil {
		return nil, ErrUnavailable
	}

	result, err := c.cb.Execute(func() (*models.ArticleMetrics, error) {
		return c.fetchWork(ctx, doi)
	})
	if err != nil {
		switch {
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			metrics.CitationLookups.WithLabelValues("rejected").Inc()
			logging.Warn().Str("doi", doi).Msg("citation lookup rejected by open breaker")
			return nil, ErrUnavailable
		case errors.Is(err, ErrNotFound):
			metrics.CitationLookups.WithLabelValues("not_found").Inc()
			return nil, err
		default:
			metrics.CitationLookups.WithLabelValues("failure").Inc()
			return nil, err
		}
	}

	metrics.CitationLookups.WithLabelValues("success").Inc()
	return result, nil
}

func (c *Client) fetchWork(ctx context.Context, doi string) (*models.ArticleMetrics, error) {
	endpoint := fmt.Sprintf("%s/works/%s", c.baseURL, url.PathEscape(doi))
	if c.mailto != "" {
		// Identified requests route to the Crossref polite pool.
		endpoint += "?mailto=" + url.QueryEscape(c.mailto)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("citations: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("citations: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("citations: upstream status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("citations: read response: %w", err)
	}

	var work crossrefWork
	if err := json.Unmarshal(body, &work); err != nil {
		return nil, fmt.Errorf("citations: decode response: %w", err)
	}

	citations := work.Message.IsReferencedBy
	resolvedDOI := work.Message.DOI
	return &models.ArticleMetrics{
		DOI:       &resolvedDOI,
		Citations: &citations,
		Source:    "crossref",
	}, nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
