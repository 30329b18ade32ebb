// Geopulse - Scholarly Readership Analytics and Geographic Visualization
// Copyright 2026 Mwangaza University Press
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mwangaza-press/geopulse

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mwangaza-press/geopulse/internal/middleware"
)

// Router assembles the HTTP surface from the handler and middleware.
type Router struct {
	handler *Handler
	chiMW   *ChiMiddleware
}

// NewRouter builds the router from an assembled handler.
func NewRouter(handler *Handler) *Router {
	return &Router{
		handler: handler,
		chiMW:   NewChiMiddleware(handler.cfg.Security),
	}
}

// instrumented wraps one route with request ID tagging and Prometheus
// instrumentation under its route pattern.
func instrumented(pattern string, next http.HandlerFunc) http.HandlerFunc {
	return middleware.RequestID(middleware.PrometheusMetrics(pattern, next))
}

// Setup configures all routes.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()
	h := router.handler

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMW.CORS())

	// Operational surface, outside the versioned API.
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Health: permissive limit for monitoring probes.
		r.With(router.chiMW.RateLimitHealth()).
			Get("/health", instrumented("/api/v1/health", h.Health))

		// Tiles: bursty map traffic gets its own tier.
		r.With(router.chiMW.RateLimitTiles()).
			Get("/tiles/{z}/{x}/{y}.mvt", instrumented("/api/v1/tiles/{z}/{x}/{y}", h.GetVectorTile))

		// The pulse socket holds one long-lived connection per viewer;
		// the default limiter only gates the upgrade rate.
		r.With(router.chiMW.RateLimit()).
			Get("/activity/pulse", h.Pulse)

		// Everything else shares the default tier.
		r.Group(func(r chi.Router) {
			r.Use(router.chiMW.RateLimit())

			r.Post("/track", instrumented("/api/v1/track", h.Track))
			r.Post("/track/mock", instrumented("/api/v1/track/mock", h.TrackMock))
			r.Get("/activity/feed", instrumented("/api/v1/activity/feed", h.ActivityFeed))
			r.Get("/metrics/impact-summary", instrumented("/api/v1/metrics/impact-summary", h.ImpactSummary))
			r.Get("/metrics/top-regions", instrumented("/api/v1/metrics/top-regions", h.TopRegions))
			r.Get("/articles/{id}/metrics", instrumented("/api/v1/articles/{id}/metrics", h.ArticleMetrics))
			r.Post("/admin/heatmap/refresh", instrumented("/api/v1/admin/heatmap/refresh", h.HeatmapRefresh))
		})
	})

	return r
}
