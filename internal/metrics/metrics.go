// Playlens - Game Telemetry Analytics and Behavioral Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlens

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	HTTPActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_requests",
			Help: "Current number of active HTTP requests",
		},
	)

	HTTPRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Ingest Metrics
	DatasetLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dataset_loads_total",
			Help: "Total number of dataset load operations",
		},
		[]string{"format"}, // "csv", "json"
	)

	DatasetRows = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dataset_rows",
			Help:    "Number of rows in loaded datasets",
			Buckets: []float64{100, 500, 1000, 5000, 10000, 50000, 100000, 500000},
		},
	)

	DatasetUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dataset_users",
			Help: "Distinct users in the currently loaded dataset",
		},
	)

	DatasetLoadErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dataset_load_errors_total",
			Help: "Total number of failed dataset loads",
		},
		[]string{"format", "error_type"},
	)

	// Training Metrics
	TrainingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "model_training_duration_seconds",
			Help:    "Duration of model training in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		},
		[]string{"model"},
	)

	TrainingRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "model_training_runs_total",
			Help: "Total number of model training runs by outcome",
		},
		[]string{"model", "outcome"}, // "trained", "skipped", "failed"
	)

	TrainingLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "training_last_success_timestamp",
			Help: "Unix timestamp of the last successful training run",
		},
	)

	// Prediction Metrics
	PredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predictions_total",
			Help: "Total number of predictions served",
		},
		[]string{"model"},
	)

	PredictionErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prediction_errors_total",
			Help: "Total number of failed prediction requests",
		},
		[]string{"model", "error_type"},
	)

	// Anomaly Metrics
	AnomaliesDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anomalies_detected_total",
			Help: "Total number of anomalies detected",
		},
		[]string{"metric", "severity"},
	)

	// Model Store Metrics
	ModelStoreOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "model_store_operations_total",
			Help: "Total number of model store operations",
		},
		[]string{"operation", "outcome"}, // operation: "save", "load"
	)

	ModelStoreSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "model_store_size_bytes",
			Help: "Compressed size of the last saved model snapshot",
		},
		[]string{"model"},
	)
)

// RecordHTTPRequest records an HTTP request metric
func RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active HTTP requests
func TrackActiveRequest(inc bool) {
	if inc {
		HTTPActiveRequests.Inc()
	} else {
		HTTPActiveRequests.Dec()
	}
}

// RecordDatasetLoad records a dataset load and its size
func RecordDatasetLoad(format string, rows, users int, err error) {
	if err != nil {
		DatasetLoadErrors.WithLabelValues(format, errorType(err)).Inc()
		return
	}
	DatasetLoads.WithLabelValues(format).Inc()
	DatasetRows.Observe(float64(rows))
	DatasetUsers.Set(float64(users))
}

// RecordTraining records the outcome of a single model's training pass.
// A nil error counts as trained; callers report skipped models separately
// via RecordTrainingSkipped.
func RecordTraining(model string, duration time.Duration, err error) {
	TrainingDuration.WithLabelValues(model).Observe(duration.Seconds())
	if err != nil {
		TrainingRuns.WithLabelValues(model, "failed").Inc()
		return
	}
	TrainingRuns.WithLabelValues(model, "trained").Inc()
}

// RecordTrainingSkipped records a model that was skipped during a run,
// typically for lack of data.
func RecordTrainingSkipped(model string) {
	TrainingRuns.WithLabelValues(model, "skipped").Inc()
}

// RecordTrainingSuccess marks the completion of a full training run
func RecordTrainingSuccess() {
	TrainingLastSuccess.SetToCurrentTime()
}

// RecordPrediction records a served or failed prediction
func RecordPrediction(model string, err error) {
	if err != nil {
		PredictionErrors.WithLabelValues(model, errorType(err)).Inc()
		return
	}
	PredictionsTotal.WithLabelValues(model).Inc()
}

// RecordAnomaly records a detected anomaly by source metric and severity
func RecordAnomaly(metric, severity string) {
	AnomaliesDetected.WithLabelValues(metric, severity).Inc()
}

// RecordModelStoreOp records a model store save or load
func RecordModelStoreOp(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	ModelStoreOperations.WithLabelValues(operation, outcome).Inc()
}

// RecordModelSize records the compressed snapshot size for a model
func RecordModelSize(model string, sizeBytes int64) {
	ModelStoreSize.WithLabelValues(model).Set(float64(sizeBytes))
}

// errorType truncates an error message to a bounded label value to keep
// metric cardinality under control
func errorType(err error) string {
	msg := err.Error()
	if len(msg) > 50 {
		return msg[:50]
	}
	return msg
}
