// Playlens - Game Telemetry Analytics and Behavioral Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlens

// Package predict orchestrates the prediction models over a loaded
// telemetry dataset.
//
// The Service owns the feature extractor and the six models (churn, LTV,
// retention, revenue, anomaly, segmentation). Training runs the models
// concurrently and tolerates individual model failures: a model that
// cannot train (usually for lack of data) keeps its previous state and is
// reported in the training outcome rather than failing the run.
//
// Model state persists through a storage.Store; a model whose stored
// state is missing or corrupt simply starts untrained.
package predict
