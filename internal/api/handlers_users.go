// Playlens - Game Telemetry Analytics and Behavioral Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlens

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/playlens/internal/metrics"
)

// Users handles GET /api/v1/users.
func (h *Handler) Users(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	users, err := h.svc.Users()
	if err != nil {
		h.serviceError(rw, err)
		return
	}
	rw.SuccessWithMeta(users, &APIMeta{Count: len(users)})
}

// UserFeatures handles GET /api/v1/users/{userID}/features.
func (h *Handler) UserFeatures(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	f, err := h.svc.UserFeatures(chi.URLParam(r, "userID"))
	if err != nil {
		h.serviceError(rw, err)
		return
	}
	rw.Success(f)
}

// UserChurn handles GET /api/v1/users/{userID}/churn.
func (h *Handler) UserChurn(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	prediction, err := h.svc.PredictChurn(chi.URLParam(r, "userID"))
	metrics.RecordPrediction("churn", err)
	if err != nil {
		h.serviceError(rw, err)
		return
	}
	rw.Success(prediction)
}

// UserLTV handles GET /api/v1/users/{userID}/ltv.
func (h *Handler) UserLTV(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	prediction, err := h.svc.PredictLTV(chi.URLParam(r, "userID"))
	metrics.RecordPrediction("ltv", err)
	if err != nil {
		h.serviceError(rw, err)
		return
	}
	rw.Success(prediction)
}

// UserSegments handles GET /api/v1/users/{userID}/segments.
func (h *Handler) UserSegments(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	assignment, err := h.svc.Segments(chi.URLParam(r, "userID"))
	metrics.RecordPrediction("segmentation", err)
	if err != nil {
		h.serviceError(rw, err)
		return
	}
	rw.Success(assignment)
}

// Aggregate handles GET /api/v1/aggregate.
func (h *Handler) Aggregate(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	agg, err := h.svc.Aggregate()
	if err != nil {
		h.serviceError(rw, err)
		return
	}
	rw.Success(agg)
}

// Clusters handles GET /api/v1/segments/clusters.
func (h *Handler) Clusters(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	clusters := h.svc.Clusters()
	rw.SuccessWithMeta(clusters, &APIMeta{Count: len(clusters)})
}

// ChurnEvaluation handles GET /api/v1/churn/evaluation, scoring the
// classifier against the labels derived from the active dataset.
func (h *Handler) ChurnEvaluation(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	eval, err := h.svc.EvaluateChurn()
	if err != nil {
		h.serviceError(rw, err)
		return
	}
	rw.Success(eval)
}
