// Playlens - Game Telemetry Analytics and Behavioral Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlens

/*
Package metrics provides Prometheus metrics collection and export for observability.

This package instruments the analytics pipeline using the Prometheus client
library, exposing metrics for monitoring ingestion, training, prediction
serving, and system health.

# Overview

The package provides metrics for:
  - HTTP request latency and throughput
  - Dataset ingestion volume
  - Model training duration and outcomes
  - Prediction serving counts per model
  - Anomaly detection results by severity
  - Model store save/load activity

# Metrics Endpoint

Metrics are exposed at the /metrics endpoint in Prometheus text format:

	curl http://localhost:8600/metrics

# Available Metrics

HTTP Metrics:
  - http_requests_total: Total HTTP requests (counter)
    Labels: method, endpoint, status_code
  - http_request_duration_seconds: Request latency (histogram)
    Labels: method, endpoint
  - http_active_requests: Active requests (gauge)
  - http_rate_limit_hits_total: Rate limit rejections (counter)
    Labels: endpoint

Ingest Metrics:
  - dataset_loads_total: Dataset load operations (counter)
    Labels: format (csv, json)
  - dataset_rows: Rows per loaded dataset (histogram)
  - dataset_users: Distinct users in the current dataset (gauge)
  - dataset_load_errors_total: Failed dataset loads (counter)
    Labels: format, error_type

Training Metrics:
  - model_training_duration_seconds: Per-model training duration (histogram)
    Labels: model (churn, ltv, retention, revenue, anomaly, segmentation)
  - model_training_runs_total: Training outcomes per model (counter)
    Labels: model, outcome (trained, skipped, failed)
  - training_last_success_timestamp: Unix timestamp of last successful run (gauge)

Prediction Metrics:
  - predictions_total: Predictions served (counter)
    Labels: model
  - prediction_errors_total: Failed prediction requests (counter)
    Labels: model, error_type

Anomaly Metrics:
  - anomalies_detected_total: Anomalies found during detection (counter)
    Labels: metric, severity (warning, critical)

Model Store Metrics:
  - model_store_operations_total: Store save/load operations (counter)
    Labels: operation (save, load), outcome (ok, error)
  - model_store_size_bytes: Compressed size of last saved snapshot (gauge)
    Labels: model

# Usage Example

Basic setup in main.go:

	import (
	    "github.com/prometheus/client_golang/prometheus/promhttp"
	)

	mux.Handle("/metrics", promhttp.Handler())

Recording a training run:

	start := time.Now()
	err := model.Train(samples)
	metrics.RecordTraining("churn", time.Since(start), err)

All metrics are registered with the default Prometheus registry via promauto
at package initialisation; no explicit Init call is required.
*/
package metrics
