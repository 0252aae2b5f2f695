// Playlens - Game Telemetry Analytics and Behavioral Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlens

/*
Package api provides the HTTP surface of the analytics service using the
Chi router.

# Overview

The package wires the prediction service behind a versioned REST API:

	POST /api/v1/dataset                     upload a telemetry dataset (CSV or JSON)
	POST /api/v1/train                       train all models over the active dataset
	GET  /api/v1/users                       list user ids in the active dataset
	GET  /api/v1/users/{userID}/features     extracted behavioral features
	GET  /api/v1/users/{userID}/churn        churn risk prediction
	GET  /api/v1/users/{userID}/ltv          lifetime value projection
	GET  /api/v1/users/{userID}/segments     segment and cluster assignment
	GET  /api/v1/aggregate                   dataset-wide metrics
	GET  /api/v1/segments/clusters           fitted behavioral clusters
	GET  /api/v1/retention?day=N             retention projection
	GET  /api/v1/retention/curve             observed retention curve
	GET  /api/v1/forecast/revenue?days=N     daily revenue forecast
	POST /api/v1/forecast/whatif             scenario projection
	GET  /api/v1/anomalies                   recent anomaly history
	POST /api/v1/anomalies/detect            batch detection over the dataset
	POST /api/v1/anomalies/observe           feed one live metric observation
	GET  /api/v1/models                      persisted model versions
	GET  /api/v1/status                      training status
	GET  /api/v1/health/live                 liveness probe
	GET  /api/v1/health/ready                readiness probe
	GET  /metrics                            Prometheus metrics

All responses share the APIResponse envelope with a success flag, payload,
error details, and request metadata.

# Middleware

The global stack adds request ids with logging context, real-IP
resolution, panic recovery, CORS, rate limiting via go-chi/httprate, and
Prometheus request instrumentation. CORS origins and rate limits come
from the server configuration.

# Request Validation

Handlers validate parsed parameters and bodies through the validation
package (go-playground/validator) before touching the prediction service.
Dataset uploads are size-capped with http.MaxBytesReader.

# Column Mappings

Dataset uploads may declare column mappings for exports whose column
names fall outside the built-in aliases, either as a query parameter
(?mappings=account_ref=user_id,logged_at=timestamp) or, for JSON, as an
envelope body {"rows": [...], "mappings": [...]}. Query mappings win
over envelope mappings for the same canonical role.
*/
package api
