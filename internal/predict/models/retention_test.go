// Playlens - Game Telemetry Analytics and Behavioral Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlens

package models

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

// gameRetentionCurve is a typical shape: steep early drop, long tail.
func gameRetentionCurve() []RetentionPoint {
	return []RetentionPoint{
		{Day: 1, Rate: 0.40},
		{Day: 3, Rate: 0.25},
		{Day: 7, Rate: 0.15},
		{Day: 30, Rate: 0.08},
	}
}

func TestRetentionObservedDayFullConfidence(t *testing.T) {
	m := NewRetentionPredictor(DefaultRetentionConfig())
	if err := m.Train(gameRetentionCurve()); err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	for _, obs := range gameRetentionCurve() {
		p := m.Predict(obs.Day)
		if p.Value != obs.Rate {
			t.Errorf("day %d: Value = %v, want observed %v", obs.Day, p.Value, obs.Rate)
		}
		if p.Confidence != 1 {
			t.Errorf("day %d: Confidence = %v, want 1 for an observed day", obs.Day, p.Confidence)
		}
		if p.Range.Low != obs.Rate || p.Range.High != obs.Rate {
			t.Errorf("day %d: range [%v, %v] should collapse onto the observation",
				obs.Day, p.Range.Low, p.Range.High)
		}
	}
}

func TestRetentionExtrapolation(t *testing.T) {
	m := NewRetentionPredictor(DefaultRetentionConfig())
	if err := m.Train(gameRetentionCurve()); err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	tests := []struct {
		name string
		day  int
		// bounds on the extrapolated rate
		min, max float64
	}{
		{"interpolated day sits between neighbors", 5, 0.15, 0.25},
		{"day 14 between observed 7 and 30", 14, 0.08, 0.15},
		{"far tail keeps decaying", 90, 0, 0.08},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := m.Predict(tt.day)
			if p.Value < tt.min || p.Value > tt.max {
				t.Errorf("Predict(%d).Value = %v, want within [%v, %v]",
					tt.day, p.Value, tt.min, tt.max)
			}
			if p.Confidence >= 1 {
				t.Errorf("Predict(%d).Confidence = %v, must stay below 1 off the curve",
					tt.day, p.Confidence)
			}
			if !(p.Range.Low <= p.Value && p.Value <= p.Range.High) {
				t.Errorf("Predict(%d): range [%v, %v] does not bracket %v",
					tt.day, p.Range.Low, p.Range.High, p.Value)
			}
		})
	}
}

func TestRetentionConfidenceTracksDistance(t *testing.T) {
	m := NewRetentionPredictor(DefaultRetentionConfig())
	if err := m.Train(gameRetentionCurve()); err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	// One day past an observation: 0.9 - 0.01*1.
	if got := m.Predict(8).Confidence; math.Abs(got-0.89) > 1e-9 {
		t.Errorf("Predict(8).Confidence = %v, want 0.89", got)
	}
	// Further from any observation means less confidence.
	if near, far := m.Predict(32).Confidence, m.Predict(45).Confidence; far >= near {
		t.Errorf("confidence %v at day 45 not below %v at day 32", far, near)
	}
	// Distance is to the nearest observation in either direction.
	if got := m.Predict(29).Confidence; math.Abs(got-0.89) > 1e-9 {
		t.Errorf("Predict(29).Confidence = %v, want 0.89 (one day before day 30)", got)
	}
	// The floor holds far beyond the curve.
	if got := m.Predict(300).Confidence; got != 0.3 {
		t.Errorf("Predict(300).Confidence = %v, want the 0.3 floor", got)
	}
}

func TestRetentionMonotoneDecayOffCurve(t *testing.T) {
	m := NewRetentionPredictor(DefaultRetentionConfig())
	if err := m.Train(gameRetentionCurve()); err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	prev := math.Inf(1)
	for _, day := range []int{2, 5, 10, 20, 60, 120} {
		v := m.Predict(day).Value
		if v > prev {
			t.Errorf("fitted curve rose at day %d: %v > %v", day, v, prev)
		}
		if v < 0 || v > 1 {
			t.Errorf("day %d: rate %v outside [0, 1]", day, v)
		}
		prev = v
	}
}

func TestRetentionInvalidQueries(t *testing.T) {
	m := NewRetentionPredictor(DefaultRetentionConfig())

	// Untrained: nothing to answer with.
	if p := m.Predict(7); p.Confidence != 0 || p.Value != 0 {
		t.Errorf("untrained Predict(7) = %+v, want zero prediction", p)
	}

	if err := m.Train(gameRetentionCurve()); err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	for _, day := range []int{0, -1} {
		if p := m.Predict(day); p.Confidence != 0 {
			t.Errorf("Predict(%d).Confidence = %v, want 0", day, p.Confidence)
		}
	}
}

func TestRetentionTrainValidation(t *testing.T) {
	tests := []struct {
		name   string
		points []RetentionPoint
	}{
		{"empty", nil},
		{"single point", []RetentionPoint{{Day: 1, Rate: 0.4}}},
		{"invalid days filtered out", []RetentionPoint{
			{Day: 0, Rate: 0.5},
			{Day: -3, Rate: 0.5},
			{Day: 1, Rate: 0.4},
		}},
		{"out-of-range rates filtered out", []RetentionPoint{
			{Day: 1, Rate: 1.5},
			{Day: 3, Rate: -0.2},
			{Day: 7, Rate: 0.15},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewRetentionPredictor(DefaultRetentionConfig())
			err := m.Train(tt.points)
			if !errors.Is(err, ErrInsufficientData) {
				t.Fatalf("error = %v, want ErrInsufficientData", err)
			}
			if m.IsTrained() {
				t.Error("failed training must not mark the model trained")
			}
		})
	}
}

func TestRetentionZeroRateCurveFallsBack(t *testing.T) {
	m := NewRetentionPredictor(DefaultRetentionConfig())
	err := m.Train([]RetentionPoint{{Day: 1, Rate: 0}, {Day: 7, Rate: 0}})
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	// No log-space fit is possible, so unobserved days carry the nearest
	// observation forward.
	if p := m.Predict(3); p.Value != 0 {
		t.Errorf("Predict(3).Value = %v, want 0 carried from the curve", p.Value)
	}
}

func TestRetentionCurveSorted(t *testing.T) {
	m := NewRetentionPredictor(DefaultRetentionConfig())
	shuffled := []RetentionPoint{
		{Day: 30, Rate: 0.08},
		{Day: 1, Rate: 0.40},
		{Day: 7, Rate: 0.15},
	}
	if err := m.Train(shuffled); err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	want := []RetentionPoint{{Day: 1, Rate: 0.40}, {Day: 7, Rate: 0.15}, {Day: 30, Rate: 0.08}}
	if got := m.Curve(); !reflect.DeepEqual(got, want) {
		t.Errorf("Curve() = %v, want sorted %v", got, want)
	}
}

func TestRetentionStateRoundTrip(t *testing.T) {
	m := NewRetentionPredictor(DefaultRetentionConfig())
	if err := m.Train(gameRetentionCurve()); err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	restored := NewRetentionPredictor(DefaultRetentionConfig())
	restored.Restore(m.State())
	if !restored.IsTrained() {
		t.Fatal("restored model not marked trained")
	}

	for _, day := range []int{1, 5, 7, 14, 60} {
		if got, want := restored.Predict(day), m.Predict(day); !reflect.DeepEqual(got, want) {
			t.Errorf("day %d: restored prediction %+v, want %+v", day, got, want)
		}
	}
	if !reflect.DeepEqual(restored.Curve(), m.Curve()) {
		t.Error("restored curve differs from the original")
	}
}
