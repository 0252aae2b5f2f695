// Playlens - Game Telemetry Analytics and Behavioral Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlens

// Package models implements the heuristic and statistical models that
// consume extracted behavioral features.
//
// # Model Family
//
//   - AnomalyModel: per-metric statistical profiles with z-score detection,
//     trend-break and pattern-change analysis over rolling windows
//   - ChurnPredictor: weighted scoring over named features with logistic
//     squashing, trained by stochastic gradient descent
//   - LTVPredictor: linear-combination lifetime value with decayed
//     projection horizons and payer segmentation
//   - RetentionPredictor: observed retention curve lookup with log-linear
//     extrapolation
//   - RevenueForecaster: additive trend plus day-of-week and month
//     seasonality, blended toward recent performance
//   - SegmentationModel: rule-based predefined segments plus k-means
//     clustering with k-means++ seeding
//
// # Thread Safety
//
// All models are safe for concurrent use. Training computes new parameters
// off to the side and swaps them in at the end under an exclusive lock;
// prediction reads under a shared lock and observes either the pre- or
// post-training state, never a partial one.
//
// # Error Handling
//
// The only error a model propagates is ErrInsufficientData from training.
// Missing features degrade to zero contributions and every ratio guards its
// denominator, so predictions are always finite.
package models
