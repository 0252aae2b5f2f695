// Playlens - Game Telemetry Analytics and Behavioral Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlens

// Package storage provides model persistence for the prediction models.
//
// Model state is gob-encoded, gzip-compressed, and written to BadgerDB
// under versioned keys. Each model's state is stored separately, allowing
// independent versioning and rollback to previous versions.
//
// # Storage Format
//
// Every stored version carries metadata including a SHA-256 checksum of
// the uncompressed state; a checksum mismatch on load is reported as
// corruption rather than silently accepted.
package storage
