// Playlens - Game Telemetry Analytics and Behavioral Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlens

package models

import (
	"fmt"
	"math"
	"sort"
)

// RetentionPoint is one observed retention rate at a day offset.
type RetentionPoint struct {
	Day  int     `json:"day"`
	Rate float64 `json:"rate"` // [0, 1]
}

// RetentionConfig tunes the predictor.
type RetentionConfig struct {
	// MinPoints is the minimum number of observed offsets for training.
	MinPoints int
}

// DefaultRetentionConfig returns the standard tuning.
func DefaultRetentionConfig() RetentionConfig {
	return RetentionConfig{MinPoints: 2}
}

// RetentionPredictor projects retention at arbitrary day offsets from a
// sparse observed curve. Exact observed days return the observed value
// with full confidence; other days extrapolate a fitted power-law decay
// (rate ~ a * day^-b, the usual shape of game retention curves) with
// confidence decreasing the further the query sits from an observation.
type RetentionPredictor struct {
	BaseModel
	config RetentionConfig

	observed []RetentionPoint // sorted by day
	logA     float64          // power-law fit: ln(rate) = logA - b*ln(day)
	decayB   float64
	fitOK    bool
}

// NewRetentionPredictor creates a retention model.
func NewRetentionPredictor(cfg RetentionConfig) *RetentionPredictor {
	if cfg.MinPoints <= 0 {
		cfg.MinPoints = 2
	}
	return &RetentionPredictor{
		BaseModel: NewBaseModel("retention"),
		config:    cfg,
	}
}

// Train fits the decay curve through the observed points. Requires at
// least MinPoints observations with valid day offsets.
func (m *RetentionPredictor) Train(points []RetentionPoint) error {
	valid := make([]RetentionPoint, 0, len(points))
	for _, p := range points {
		if p.Day > 0 && p.Rate >= 0 && p.Rate <= 1 {
			valid = append(valid, p)
		}
	}
	if len(valid) < m.config.MinPoints {
		return fmt.Errorf("train retention: %w", insufficientData(len(valid), m.config.MinPoints))
	}
	sort.Slice(valid, func(i, j int) bool { return valid[i].Day < valid[j].Day })

	// Fit ln(rate) = logA - b*ln(day) over points with non-zero rates.
	var xs, ys []float64
	for _, p := range valid {
		if p.Rate > 0 {
			xs = append(xs, math.Log(float64(p.Day)))
			ys = append(ys, math.Log(p.Rate))
		}
	}

	logA, decayB, fitOK := 0.0, 0.0, false
	if len(xs) >= 2 {
		intercept, slope := olsFitXY(xs, ys)
		logA, decayB, fitOK = intercept, -slope, true
	}

	m.mu.Lock()
	m.observed = valid
	m.logA = logA
	m.decayB = decayB
	m.fitOK = fitOK
	m.markTrained()
	m.mu.Unlock()
	return nil
}

// Predict returns the retention rate at a day offset. An exactly observed
// day returns its value with full confidence.
func (m *RetentionPredictor) Predict(day int) Prediction {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if day <= 0 || len(m.observed) == 0 {
		return Prediction{Confidence: 0}
	}

	nearest := m.observed[0]
	for _, p := range m.observed {
		if p.Day == day {
			return Prediction{
				Value:      p.Rate,
				Confidence: 1,
				Range:      Range{Low: p.Rate, High: p.Rate},
			}
		}
		if absInt(p.Day-day) < absInt(nearest.Day-day) {
			nearest = p
		}
	}

	var rate float64
	if m.fitOK {
		rate = math.Exp(m.logA) * math.Pow(float64(day), -m.decayB)
	} else {
		// Degenerate curve (all-zero rates): carry the nearest
		// observation forward.
		rate = nearest.Rate
	}
	rate = clamp01(rate)

	distance := float64(absInt(nearest.Day - day))
	confidence := math.Max(0.3, 0.9-0.01*distance)
	margin := rate * (1 - confidence)

	return Prediction{
		Value:      rate,
		Confidence: confidence,
		Range:      Range{Low: clamp01(rate - margin), High: clamp01(rate + margin)},
	}
}

// Curve returns the observed retention points.
func (m *RetentionPredictor) Curve() []RetentionPoint {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]RetentionPoint, len(m.observed))
	copy(out, m.observed)
	return out
}

// olsFitXY fits y = intercept + slope*x over paired samples.
func olsFitXY(xs, ys []float64) (intercept, slope float64) {
	n := float64(len(xs))
	if n == 0 {
		return 0, 0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
		sumXY += xs[i] * ys[i]
		sumXX += xs[i] * xs[i]
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return sumY / n, 0
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n
	return intercept, slope
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// RetentionState is the serializable parameter state.
type RetentionState struct {
	Observed []RetentionPoint
	LogA     float64
	DecayB   float64
	FitOK    bool
}

// State snapshots the trainable parameter state.
func (m *RetentionPredictor) State() RetentionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st := RetentionState{
		Observed: make([]RetentionPoint, len(m.observed)),
		LogA:     m.logA,
		DecayB:   m.decayB,
		FitOK:    m.fitOK,
	}
	copy(st.Observed, m.observed)
	return st
}

// Restore replaces the parameter state with a previously saved snapshot.
// A snapshot with no observations is ignored.
func (m *RetentionPredictor) Restore(st RetentionState) {
	if len(st.Observed) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observed = make([]RetentionPoint, len(st.Observed))
	copy(m.observed, st.Observed)
	m.logA = st.LogA
	m.decayB = st.DecayB
	m.fitOK = st.FitOK
	m.markTrained()
}
