// Playlens - Game Telemetry Analytics and Behavioral Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlens

package models

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrInsufficientData is returned by training methods when the sample count
// is below the model's configured minimum. The model's previous parameter
// state is left untouched.
var ErrInsufficientData = errors.New("insufficient data")

// insufficientData wraps ErrInsufficientData with the configured minimum.
func insufficientData(got, minimum int) error {
	return fmt.Errorf("%w: got %d samples, need at least %d", ErrInsufficientData, got, minimum)
}

// Factor explains part of a prediction.
type Factor struct {
	Name        string  `json:"name"`
	Impact      float64 `json:"impact"`
	Description string  `json:"description"`
}

// Range bounds a prediction.
type Range struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// Prediction is the common shape of a model output: a JSON-serializable
// plain record with no behavior.
type Prediction struct {
	Value      float64  `json:"value"`
	Confidence float64  `json:"confidence"`
	Range      Range    `json:"range"`
	Factors    []Factor `json:"factors,omitempty"`
}

// BaseModel provides the trained/version bookkeeping shared by all models.
// Embedders hold its mutex around their parameter state: training takes the
// write lock only for the final state swap, prediction takes the read lock.
type BaseModel struct {
	name          string
	trained       bool
	version       int
	lastTrainedAt time.Time
	mu            sync.RWMutex
}

// NewBaseModel creates bookkeeping state with the given model name.
func NewBaseModel(name string) BaseModel {
	return BaseModel{name: name}
}

// Name returns the model identifier.
func (b *BaseModel) Name() string {
	return b.name
}

// IsTrained returns whether the model has been trained.
func (b *BaseModel) IsTrained() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.trained
}

// Version returns the parameter-state version, incremented on every
// successful train or restore.
func (b *BaseModel) Version() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.version
}

// LastTrainedAt returns when the model was last trained.
func (b *BaseModel) LastTrainedAt() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastTrainedAt
}

// markTrained updates the trained state.
// Must be called while holding the write lock.
func (b *BaseModel) markTrained() {
	b.trained = true
	b.version++
	b.lastTrainedAt = time.Now()
}

// clamp01 bounds x to [0, 1].
func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// safeDiv returns a/b, or 0 when the denominator is zero. Every ratio in
// this package goes through a guard like this so downstream severity and
// segment logic only ever sees finite numbers.
func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}
