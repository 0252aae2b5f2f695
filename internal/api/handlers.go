// Playlens - Game Telemetry Analytics and Behavioral Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlens

package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/tomtom215/playlens/internal/config"
	"github.com/tomtom215/playlens/internal/logging"
	"github.com/tomtom215/playlens/internal/predict"
)

// Handler exposes the prediction service over HTTP.
type Handler struct {
	svc       *predict.Service
	cfg       *config.Config
	startTime time.Time
}

// NewHandler creates the API handler set.
func NewHandler(svc *predict.Service, cfg *config.Config) *Handler {
	return &Handler{
		svc:       svc,
		cfg:       cfg,
		startTime: time.Now(),
	}
}

// serviceError maps prediction service errors onto API responses.
func (h *Handler) serviceError(rw *ResponseWriter, err error) {
	switch {
	case errors.Is(err, predict.ErrNoDataset):
		rw.Error(http.StatusConflict, ErrCodeNoDataset, "No dataset loaded")
	case errors.Is(err, predict.ErrUnknownUser):
		rw.NotFound("Unknown user")
	case errors.Is(err, predict.ErrNotTrained):
		rw.Error(http.StatusConflict, ErrCodeModelNotTrained, "Model not trained")
	case errors.Is(err, predict.ErrTrainingInProgress):
		rw.Conflict("Training already in progress")
	default:
		logging.Ctx(rw.r.Context()).Error().Err(err).Msg("request failed")
		rw.InternalError("Internal error")
	}
}

// getIntParam extracts an integer query parameter with a default value
func getIntParam(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

// HealthStatus is the payload for the health endpoints.
type HealthStatus struct {
	Status        string  `json:"status"`
	DatasetLoaded bool    `json:"dataset_loaded"`
	Training      bool    `json:"training"`
	Uptime        float64 `json:"uptime_seconds"`
}

// Health handles GET /api/v1/health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	_, err := h.svc.Users()
	status := h.svc.Status()

	rw.Success(HealthStatus{
		Status:        "healthy",
		DatasetLoaded: err == nil,
		Training:      status.Training,
		Uptime:        time.Since(h.startTime).Seconds(),
	})
}

// HealthLive handles GET /api/v1/health/live. Returns 200 whenever the
// process can serve requests, regardless of dataset state.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]string{"status": "alive"})
}

// HealthReady handles GET /api/v1/health/ready. The service is ready as
// soon as the router is serving; a missing dataset is reported but not a
// readiness failure, since datasets arrive through this same API.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	_, err := h.svc.Users()
	rw.Success(map[string]interface{}{
		"status":         "ready",
		"dataset_loaded": err == nil,
	})
}

// Status handles GET /api/v1/status.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(h.svc.Status())
}

// Models handles GET /api/v1/models, listing persisted model versions.
func (h *Handler) Models(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	versions, err := h.svc.ModelVersions(r.Context())
	if err != nil {
		h.serviceError(rw, err)
		return
	}
	rw.SuccessWithMeta(versions, &APIMeta{Count: len(versions)})
}
