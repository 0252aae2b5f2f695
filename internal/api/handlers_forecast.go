// Playlens - Game Telemetry Analytics and Behavioral Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlens

package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/playlens/internal/metrics"
	"github.com/tomtom215/playlens/internal/predict/models"
)

// Retention handles GET /api/v1/retention?day=N.
func (h *Handler) Retention(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	req := RetentionRequest{Day: getIntParam(r, "day", 7)}
	if apiErr := validateRequest(&req); apiErr != nil {
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return
	}

	prediction, err := h.svc.PredictRetention(req.Day)
	metrics.RecordPrediction("retention", err)
	if err != nil {
		h.serviceError(rw, err)
		return
	}
	rw.Success(map[string]interface{}{
		"day":        req.Day,
		"prediction": prediction,
	})
}

// RetentionCurve handles GET /api/v1/retention/curve.
func (h *Handler) RetentionCurve(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	curve := h.svc.RetentionCurve()
	rw.SuccessWithMeta(curve, &APIMeta{Count: len(curve)})
}

// ForecastRevenue handles GET /api/v1/forecast/revenue?days=N.
func (h *Handler) ForecastRevenue(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	req := ForecastRequest{Days: getIntParam(r, "days", 7)}
	if apiErr := validateRequest(&req); apiErr != nil {
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return
	}

	forecast, err := h.svc.ForecastRevenue(req.Days)
	metrics.RecordPrediction("revenue", err)
	if err != nil {
		h.serviceError(rw, err)
		return
	}
	rw.SuccessWithMeta(forecast, &APIMeta{Count: len(forecast)})
}

// WhatIf handles POST /api/v1/forecast/whatif.
func (h *Handler) WhatIf(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req WhatIfRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rw.BadRequest("Invalid request body: " + err.Error())
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return
	}

	result, err := h.svc.WhatIf(models.WhatIfScenario{
		DAUChange:        req.DAUChange,
		ARPUChange:       req.ARPUChange,
		ConversionChange: req.ConversionChange,
	})
	metrics.RecordPrediction("revenue", err)
	if err != nil {
		h.serviceError(rw, err)
		return
	}
	rw.Success(result)
}

// Anomalies handles GET /api/v1/anomalies, returning recent detections.
func (h *Handler) Anomalies(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	history := h.svc.AnomalyHistory()
	rw.SuccessWithMeta(history, &APIMeta{Count: len(history)})
}

// AnomaliesDetect handles POST /api/v1/anomalies/detect, analyzing the
// aggregate metric series of the active dataset.
func (h *Handler) AnomaliesDetect(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	anomalies, err := h.svc.DetectAnomalies()
	if err != nil {
		h.serviceError(rw, err)
		return
	}
	for _, a := range anomalies {
		metrics.RecordAnomaly(a.Metric, string(a.Severity))
	}
	rw.SuccessWithMeta(anomalies, &APIMeta{Count: len(anomalies)})
}

// AnomaliesObserve handles POST /api/v1/anomalies/observe, feeding one
// live observation to the detector.
func (h *Handler) AnomaliesObserve(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req ObserveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rw.BadRequest("Invalid request body: " + err.Error())
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return
	}

	ts := time.Now()
	if req.Timestamp != "" {
		parsed, err := time.Parse(time.RFC3339, req.Timestamp)
		if err != nil {
			rw.BadRequest("Invalid timestamp")
			return
		}
		ts = parsed
	}

	anomaly := h.svc.ObserveMetric(req.Metric, req.Value, ts)
	if anomaly != nil {
		metrics.RecordAnomaly(anomaly.Metric, string(anomaly.Severity))
	}
	rw.Success(map[string]interface{}{
		"anomaly": anomaly,
	})
}
