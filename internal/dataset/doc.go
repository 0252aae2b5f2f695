// Playlens - Game Telemetry Analytics and Behavioral Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlens

// Package dataset defines the row-oriented dataset abstraction consumed by
// the feature extraction pipeline.
//
// A dataset is an immutable in-memory snapshot of tabular telemetry: a slice
// of rows, each a mapping from raw column name to a tagged scalar Value,
// plus declared column mappings that bind loosely-named raw columns to
// canonical semantic roles.
//
// # Value Semantics
//
// Raw telemetry exports are untyped: the same column may carry numbers,
// numeric strings, booleans, or nothing at all. Value models this as a
// tagged union (Number, String, Bool, Null) with null-safe coercions that
// report success via a boolean instead of returning errors. Absent or
// malformed cells always degrade to "no value" rather than failing a scan.
//
// # Loading
//
// LoadCSV and LoadJSON build snapshots from the two export formats game
// backends commonly produce. Cell types are sniffed on load: anything that
// parses as a number becomes a Number, "true"/"false" become Bool, empty
// cells become Null, and everything else stays a String.
package dataset
