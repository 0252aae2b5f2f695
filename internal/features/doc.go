// Playlens - Game Telemetry Analytics and Behavioral Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlens

// Package features turns raw telemetry rows into per-user and dataset-wide
// behavioral features.
//
// # Overview
//
// The package provides:
//   - Resolver: maps canonical semantic roles (user_id, timestamp, revenue,
//     level, duration, event_type, result) to raw column names using declared
//     mappings, built-in alias tables, and case-insensitive fallback matching
//   - Extractor: computes UserFeatures per distinct user, AggregateFeatures
//     across the dataset, and per-day time series for dau/revenue/sessions
//
// # Contract
//
// An Extractor is constructed once per dataset snapshot and is a pure
// function of that snapshot: extracting the same user twice yields identical
// results. A missing column is never an error; every aggregate treats it as
// contributing zero or being skipped.
//
// Extraction for a user with no rows returns the zero-valued feature record.
// Callers reporting data-health metrics must check row counts first so the
// default is not mistaken for a real inactive user.
package features
