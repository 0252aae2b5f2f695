// Playlens - Game Telemetry Analytics and Behavioral Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlens

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/playlens/internal/config"
	"github.com/tomtom215/playlens/internal/predict"
)

// Router assembles the HTTP handler tree.
type Router struct {
	handler *Handler
	mw      *Middleware
}

// NewRouter builds a router for the prediction service using the server
// section of the configuration.
func NewRouter(svc *predict.Service, cfg *config.Config) *Router {
	mwConfig := DefaultMiddlewareConfig()
	mwConfig.CORSAllowedOrigins = cfg.Server.CORSOrigins
	mwConfig.RateLimitRequests = cfg.Server.RateLimitReqs
	mwConfig.RateLimitWindow = cfg.Server.RateLimitWindow
	mwConfig.RateLimitDisabled = cfg.Server.RateLimitReqs <= 0

	return &Router{
		handler: NewHandler(svc, cfg),
		mw:      NewMiddleware(mwConfig),
	}
}

// Setup configures all HTTP routes.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to every route in order.
	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.mw.CORS())
	r.Use(RequestLogging())

	// Health endpoints get a permissive limiter so monitoring can poll
	// freely without eating the API budget.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.mw.RateLimitHealth())
		r.Get("/", router.handler.Health)
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.mw.RateLimit())
		r.Use(PrometheusMetrics())

		r.Post("/dataset", router.handler.DatasetUpload)
		r.Post("/train", router.handler.Train)

		r.Get("/users", router.handler.Users)
		r.Route("/users/{userID}", func(r chi.Router) {
			r.Get("/features", router.handler.UserFeatures)
			r.Get("/churn", router.handler.UserChurn)
			r.Get("/ltv", router.handler.UserLTV)
			r.Get("/segments", router.handler.UserSegments)
		})

		r.Get("/aggregate", router.handler.Aggregate)
		r.Get("/segments/clusters", router.handler.Clusters)
		r.Get("/churn/evaluation", router.handler.ChurnEvaluation)

		r.Get("/retention", router.handler.Retention)
		r.Get("/retention/curve", router.handler.RetentionCurve)
		r.Get("/forecast/revenue", router.handler.ForecastRevenue)
		r.Post("/forecast/whatif", router.handler.WhatIf)

		r.Get("/anomalies", router.handler.Anomalies)
		r.Post("/anomalies/detect", router.handler.AnomaliesDetect)
		r.Post("/anomalies/observe", router.handler.AnomaliesObserve)

		r.Get("/models", router.handler.Models)
		r.Get("/status", router.handler.Status)
	})

	// Prometheus scrape endpoint, outside the rate-limited API tree.
	r.Handle("/metrics", promhttp.Handler())

	return r
}
