// Playlens - Game Telemetry Analytics and Behavioral Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlens

package models

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/tomtom215/playlens/internal/features"
)

var anomalyStart = time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

// dailySeries builds a daily series from the given values.
func dailySeries(values []float64) []features.TimePoint {
	points := make([]features.TimePoint, len(values))
	for i, v := range values {
		t := anomalyStart.AddDate(0, 0, i)
		points[i] = features.TimePoint{Date: t.Format("2006-01-02"), Time: t, Value: v}
	}
	return points
}

// steadySeries alternates 90/110: mean 100, std 10 exactly.
func steadySeries(n int) []features.TimePoint {
	values := make([]float64, n)
	for i := range values {
		if i%2 == 0 {
			values[i] = 90
		} else {
			values[i] = 110
		}
	}
	return dailySeries(values)
}

func TestDetectFirstObservationSeedsProfile(t *testing.T) {
	m := NewAnomalyModel(DefaultAnomalyConfig())

	if a := m.Detect("revenue", 500, anomalyStart); a != nil {
		t.Fatalf("first observation flagged anomalous: %+v", a)
	}

	p, ok := m.Profile("revenue")
	if !ok {
		t.Fatal("profile not created on first observation")
	}
	if p.Mean != 500 {
		t.Errorf("seed Mean = %v, want 500", p.Mean)
	}
	if p.Std != 100 {
		t.Errorf("seed Std = %v, want 0.2*value = 100", p.Std)
	}
}

func TestDetectNormalValueFoldsIntoProfile(t *testing.T) {
	m := NewAnomalyModel(DefaultAnomalyConfig())
	m.Detect("dau", 100, anomalyStart)

	before, _ := m.Profile("dau")
	if a := m.Detect("dau", 105, anomalyStart.Add(24*time.Hour)); a != nil {
		t.Fatalf("small deviation flagged: %+v", a)
	}
	after, _ := m.Profile("dau")

	if after.Mean == before.Mean {
		t.Error("normal value should EMA-update the mean")
	}
	if after.Samples != before.Samples+1 {
		t.Errorf("Samples = %d, want %d", after.Samples, before.Samples+1)
	}
	if after.Max != 105 {
		t.Errorf("Max = %v, want 105", after.Max)
	}
}

func TestDetectAnomalyDoesNotUpdateProfile(t *testing.T) {
	m := NewAnomalyModel(DefaultAnomalyConfig())
	if _, err := m.TrainMetric("dau", steadySeries(30)); err != nil {
		t.Fatalf("TrainMetric() error = %v", err)
	}

	before, _ := m.Profile("dau")
	a := m.Detect("dau", 1000, anomalyStart.AddDate(0, 0, 31))
	if a == nil {
		t.Fatal("extreme value not flagged")
	}
	after, _ := m.Profile("dau")

	if after.Mean != before.Mean || after.Std != before.Std || after.Samples != before.Samples {
		t.Error("anomalous value must not be folded into the profile")
	}
	if len(m.History()) != 1 {
		t.Errorf("history len = %d, want 1", len(m.History()))
	}
}

func TestDetectZScoreAndSeverity(t *testing.T) {
	// Spike on a trained profile with mean 100, std 10.
	tests := []struct {
		name         string
		value        float64
		wantNil      bool
		wantType     AnomalyType
		wantSeverity AnomalySeverity
	}{
		{name: "within threshold returns nil", value: 110, wantNil: true},
		{name: "large spike is critical", value: 200, wantType: AnomalySpike, wantSeverity: SeverityCritical},
		{name: "large drop", value: 20, wantType: AnomalyDrop, wantSeverity: SeverityCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewAnomalyModel(DefaultAnomalyConfig())
			if _, err := m.TrainMetric("dau", steadySeries(30)); err != nil {
				t.Fatalf("TrainMetric() error = %v", err)
			}

			a := m.Detect("dau", tt.value, anomalyStart.AddDate(0, 0, 31))
			if tt.wantNil {
				if a != nil {
					t.Fatalf("Detect(%v) = %+v, want nil", tt.value, a)
				}
				return
			}
			if a == nil {
				t.Fatalf("Detect(%v) = nil, want anomaly", tt.value)
			}
			if a.Type != tt.wantType {
				t.Errorf("Type = %v, want %v", a.Type, tt.wantType)
			}
			if a.Severity != tt.wantSeverity {
				t.Errorf("Severity = %v, want %v", a.Severity, tt.wantSeverity)
			}
			if a.Deviation <= 0 {
				t.Errorf("Deviation = %v, want > 0", a.Deviation)
			}
			if len(a.PossibleCauses) == 0 {
				t.Error("PossibleCauses empty")
			}
		})
	}
}

func TestSeverityMonotonicInZScore(t *testing.T) {
	order := map[AnomalySeverity]int{
		SeverityLow: 0, SeverityMedium: 1, SeverityHigh: 2, SeverityCritical: 3,
	}
	prev := -1
	for z := 0.0; z < 8; z += 0.1 {
		rank := order[severityForZScore(z)]
		if rank < prev {
			t.Fatalf("severity rank decreased at z=%v", z)
		}
		prev = rank
	}
	// Exact cutoffs.
	if severityForZScore(2.4) != SeverityLow {
		t.Error("z=2.4 should be low")
	}
	if severityForZScore(2.5) != SeverityMedium {
		t.Error("z=2.5 should be medium")
	}
	if severityForZScore(3) != SeverityHigh {
		t.Error("z=3 should be high")
	}
	if severityForZScore(4) != SeverityCritical {
		t.Error("z=4 should be critical")
	}
}

func TestTrainOnSteadyDataFlagsSpike(t *testing.T) {
	// 30 days of near-constant values (mean 100, std 10), then a 200.
	m := NewAnomalyModel(DefaultAnomalyConfig())
	if _, err := m.TrainMetric("dau", steadySeries(30)); err != nil {
		t.Fatalf("TrainMetric() error = %v", err)
	}

	a := m.Detect("dau", 200, anomalyStart.AddDate(0, 0, 31))
	if a == nil {
		t.Fatal("Detect(200) = nil, want spike anomaly")
	}
	if a.Type != AnomalySpike {
		t.Errorf("Type = %v, want spike", a.Type)
	}
	if a.Severity != SeverityHigh && a.Severity != SeverityCritical {
		t.Errorf("Severity = %v, want high or critical", a.Severity)
	}
}

func TestTrainMetricProfileShape(t *testing.T) {
	m := NewAnomalyModel(DefaultAnomalyConfig())
	profile, err := m.TrainMetric("dau", steadySeries(30))
	if err != nil {
		t.Fatalf("TrainMetric() error = %v", err)
	}

	if profile.Mean != 100 {
		t.Errorf("Mean = %v, want 100", profile.Mean)
	}
	if math.Abs(profile.Std-10) > 1e-9 {
		t.Errorf("Std = %v, want 10", profile.Std)
	}
	if profile.Min != 90 || profile.Max != 110 {
		t.Errorf("Min/Max = %v/%v, want 90/110", profile.Min, profile.Max)
	}

	// Daily points all land on hour 0: that slot carries the bucket mean,
	// every empty slot falls back to the global mean.
	if profile.HourOfDayMeans[0] != 100 {
		t.Errorf("HourOfDayMeans[0] = %v, want 100", profile.HourOfDayMeans[0])
	}
	for h := 1; h < 24; h++ {
		if profile.HourOfDayMeans[h] != profile.Mean {
			t.Errorf("empty hour slot %d = %v, want global mean", h, profile.HourOfDayMeans[h])
		}
	}
	// Every weekday observed at least four times over 30 days.
	for d, dm := range profile.DayOfWeekMeans {
		if dm < 90 || dm > 110 {
			t.Errorf("DayOfWeekMeans[%d] = %v, outside observed range", d, dm)
		}
	}
	if !m.IsTrained() {
		t.Error("model should be trained after TrainMetric")
	}
}

func TestTrainMetricInsufficientData(t *testing.T) {
	m := NewAnomalyModel(DefaultAnomalyConfig())
	_, err := m.TrainMetric("dau", steadySeries(13))
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("error = %v, want ErrInsufficientData", err)
	}
	if _, ok := m.Profile("dau"); ok {
		t.Error("failed training must not create a profile")
	}
}

func TestHistoryCap(t *testing.T) {
	cfg := DefaultAnomalyConfig()
	cfg.HistoryLimit = 5
	m := NewAnomalyModel(cfg)
	if _, err := m.TrainMetric("dau", steadySeries(30)); err != nil {
		t.Fatalf("TrainMetric() error = %v", err)
	}

	for i := 0; i < 10; i++ {
		ts := anomalyStart.AddDate(0, 0, 31+i)
		if a := m.Detect("dau", 1000+float64(i), ts); a == nil {
			t.Fatalf("Detect #%d not flagged", i)
		}
	}

	history := m.History()
	if len(history) != 5 {
		t.Fatalf("history len = %d, want 5", len(history))
	}
	// Oldest dropped first.
	if history[0].Value != 1005 {
		t.Errorf("history[0].Value = %v, want 1005", history[0].Value)
	}
}

func TestAnalyzeTimeSeriesTrendBreak(t *testing.T) {
	// Prior window hovers near 100 with tiny spread, recent window jumps
	// to 200: a clear level shift.
	values := make([]float64, 28)
	for i := 0; i < 14; i++ {
		values[i] = 100 + float64(i%2) // 100/101
	}
	for i := 14; i < 28; i++ {
		values[i] = 200 + float64(i%2)
	}

	m := NewAnomalyModel(DefaultAnomalyConfig())
	found := m.AnalyzeTimeSeries("dau", dailySeries(values))

	var sawTrendBreak bool
	for _, a := range found {
		if a.Type == AnomalyTrendBreak {
			sawTrendBreak = true
			if a.Deviation <= 2 {
				t.Errorf("trend break deviation = %v, want > 2", a.Deviation)
			}
		}
	}
	if !sawTrendBreak {
		t.Error("level shift not reported as trend break")
	}
}

func TestAnalyzeTimeSeriesPatternChange(t *testing.T) {
	// Quiet prior window, noisy recent window: variance ratio well past 3.
	values := make([]float64, 28)
	for i := 0; i < 14; i++ {
		values[i] = 100
	}
	for i := 14; i < 28; i++ {
		if i%2 == 0 {
			values[i] = 60
		} else {
			values[i] = 140
		}
	}

	m := NewAnomalyModel(DefaultAnomalyConfig())
	found := m.AnalyzeTimeSeries("dau", dailySeries(values))

	var sawPatternChange bool
	for _, a := range found {
		if a.Type == AnomalyPatternChange {
			sawPatternChange = true
		}
	}
	if !sawPatternChange {
		t.Error("variance blow-up not reported as pattern change")
	}
}

func TestAnalyzeTimeSeriesShortWindowsSkip(t *testing.T) {
	// 10 points: recent window takes them all, prior is empty, so both
	// structural checks must silently skip.
	values := make([]float64, 10)
	for i := range values {
		values[i] = 100
	}

	m := NewAnomalyModel(DefaultAnomalyConfig())
	found := m.AnalyzeTimeSeries("dau", dailySeries(values))
	for _, a := range found {
		if a.Type == AnomalyTrendBreak || a.Type == AnomalyPatternChange {
			t.Errorf("structural check ran with too few points: %+v", a)
		}
	}
}

func TestAnomalyStateRoundTrip(t *testing.T) {
	m := NewAnomalyModel(DefaultAnomalyConfig())
	if _, err := m.TrainMetric("dau", steadySeries(30)); err != nil {
		t.Fatalf("TrainMetric() error = %v", err)
	}
	ts := anomalyStart.AddDate(0, 0, 40)
	want := m.Detect("dau", 200, ts)
	if want == nil {
		t.Fatal("fixture should produce an anomaly")
	}

	restored := NewAnomalyModel(DefaultAnomalyConfig())
	restored.Restore(m.State())

	got := restored.Detect("dau", 200, ts)
	if got == nil {
		t.Fatal("restored model did not flag the same value")
	}
	if got.Deviation != want.Deviation || got.Severity != want.Severity || got.Type != want.Type {
		t.Errorf("restored detection differs: got %+v, want %+v", got, want)
	}
	if len(restored.History()) == 0 {
		t.Error("history not restored")
	}
}

func TestAnomalyRestoreEmptySnapshot(t *testing.T) {
	m := NewAnomalyModel(DefaultAnomalyConfig())
	m.Restore(AnomalyState{})

	if m.IsTrained() {
		t.Error("restoring a snapshot with no profiles must not mark the model trained")
	}
	if a := m.Detect("dau", 1e6, anomalyStart); a != nil {
		t.Errorf("untrained model flagged an anomaly: %+v", a)
	}
}
