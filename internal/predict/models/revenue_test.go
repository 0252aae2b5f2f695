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
	"time"

	"github.com/tomtom215/playlens/internal/features"
)

// revenueStart is a Monday, so weekday positions in generated series are
// known.
var revenueStart = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func dailyRevenue(start time.Time, values []float64) []features.TimePoint {
	points := make([]features.TimePoint, len(values))
	for i, v := range values {
		day := start.AddDate(0, 0, i)
		points[i] = features.TimePoint{
			Date:  day.Format("2006-01-02"),
			Time:  day,
			Value: v,
		}
	}
	return points
}

func flatRevenue(n int, level float64) []features.TimePoint {
	values := make([]float64, n)
	for i := range values {
		values[i] = level
	}
	return dailyRevenue(revenueStart, values)
}

func TestRevenueForecastShape(t *testing.T) {
	m := NewRevenueForecaster(DefaultRevenueConfig())
	if err := m.Train(flatRevenue(30, 100)); err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	forecasts := m.Forecast(7)
	if len(forecasts) != 7 {
		t.Fatalf("Forecast(7) returned %d entries", len(forecasts))
	}

	lastDate := revenueStart.AddDate(0, 0, 29)
	for i, f := range forecasts {
		if f.DaysAhead != i+1 {
			t.Errorf("forecast %d: DaysAhead = %d", i, f.DaysAhead)
		}
		if want := lastDate.AddDate(0, 0, i+1); !f.Date.Equal(want) {
			t.Errorf("forecast %d: Date = %v, want %v", i, f.Date, want)
		}
		if math.IsNaN(f.Value) || math.IsInf(f.Value, 0) || f.Value < 0 {
			t.Errorf("forecast %d: value %v not finite and non-negative", i, f.Value)
		}
		// Ranges are strict: the point estimate sits properly inside.
		if !(f.Range.Low < f.Value && f.Value < f.Range.High) {
			t.Errorf("forecast %d: range [%v, %v] does not strictly bracket %v",
				i, f.Range.Low, f.Range.High, f.Value)
		}
	}
}

func TestRevenueConfidenceDecays(t *testing.T) {
	m := NewRevenueForecaster(DefaultRevenueConfig())
	if err := m.Train(flatRevenue(30, 100)); err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	forecasts := m.Forecast(7)
	for i := 1; i < len(forecasts); i++ {
		if forecasts[i].Confidence >= forecasts[i-1].Confidence {
			t.Errorf("confidence not strictly decreasing at day %d: %v >= %v",
				i+1, forecasts[i].Confidence, forecasts[i-1].Confidence)
		}
	}
	if got := forecasts[0].Confidence; math.Abs(got-0.88) > 1e-9 {
		t.Errorf("day-1 confidence = %v, want 0.88", got)
	}
	if got := forecasts[6].Confidence; math.Abs(got-0.76) > 1e-9 {
		t.Errorf("day-7 confidence = %v, want 0.76", got)
	}

	// Far horizons floor at 0.3 rather than hitting zero.
	if got := confidenceForHorizon(100); got != 0.3 {
		t.Errorf("confidenceForHorizon(100) = %v, want the 0.3 floor", got)
	}
}

func TestRevenueTrendFollowed(t *testing.T) {
	values := make([]float64, 28)
	for i := range values {
		values[i] = 100 + 2*float64(i)
	}
	m := NewRevenueForecaster(DefaultRevenueConfig())
	if err := m.Train(dailyRevenue(revenueStart, values)); err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	forecasts := m.Forecast(7)
	var forecastSum float64
	for _, f := range forecasts {
		forecastSum += f.Value
	}
	recentMean := mean(values[21:])
	if forecastSum/7 <= recentMean {
		t.Errorf("rising series: mean forecast %v not above recent mean %v",
			forecastSum/7, recentMean)
	}
}

func TestRevenueWeekendSeasonality(t *testing.T) {
	// Four full weeks, weekends at double the weekday level.
	values := make([]float64, 28)
	for i := range values {
		switch revenueStart.AddDate(0, 0, i).Weekday() {
		case time.Saturday, time.Sunday:
			values[i] = 200
		default:
			values[i] = 100
		}
	}
	m := NewRevenueForecaster(DefaultRevenueConfig())
	if err := m.Train(dailyRevenue(revenueStart, values)); err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	var saturday, monday float64
	for _, f := range m.Forecast(7) {
		switch f.Date.Weekday() {
		case time.Saturday:
			saturday = f.Value
		case time.Monday:
			monday = f.Value
		}
	}
	if saturday == 0 || monday == 0 {
		t.Fatal("7-day forecast should cover every weekday")
	}
	if saturday <= monday {
		t.Errorf("saturday forecast %v not above monday %v despite weekend spikes",
			saturday, monday)
	}
}

func TestRevenueTrainInsufficientData(t *testing.T) {
	m := NewRevenueForecaster(DefaultRevenueConfig())
	before := m.State()

	err := m.Train(flatRevenue(13, 100))
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("error = %v, want ErrInsufficientData", err)
	}
	if m.IsTrained() {
		t.Error("failed training must not mark the model trained")
	}
	if m.State() != before {
		t.Error("failed training must leave the fit unchanged")
	}
}

func TestRevenueWhatIfCompounds(t *testing.T) {
	m := NewRevenueForecaster(DefaultRevenueConfig())
	if err := m.Train(flatRevenue(30, 100)); err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	tests := []struct {
		name       string
		scenario   WhatIfScenario
		wantFactor float64
	}{
		{"no change", WhatIfScenario{}, 1},
		{"dau only", WhatIfScenario{DAUChange: 0.10}, 1.10},
		{"conversion at half weight", WhatIfScenario{ConversionChange: 0.10}, 1.05},
		{
			"compounding",
			WhatIfScenario{DAUChange: 0.10, ARPUChange: 0.20, ConversionChange: 0.10},
			1.1 * 1.2 * 1.05,
		},
		{"downside", WhatIfScenario{DAUChange: -0.50}, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.WhatIf(tt.scenario)
			if math.Abs(got.ChangeFactor-tt.wantFactor) > 1e-9 {
				t.Errorf("ChangeFactor = %v, want %v", got.ChangeFactor, tt.wantFactor)
			}
			if want := got.BaselineDaily * got.ChangeFactor; math.Abs(got.ProjectedDaily-want) > 1e-9 {
				t.Errorf("ProjectedDaily = %v, want baseline*factor = %v", got.ProjectedDaily, want)
			}
		})
	}
}

func TestRevenueStateRoundTrip(t *testing.T) {
	m := NewRevenueForecaster(DefaultRevenueConfig())
	if err := m.Train(flatRevenue(30, 100)); err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	restored := NewRevenueForecaster(DefaultRevenueConfig())
	restored.Restore(m.State())

	if got, want := restored.Forecast(7), m.Forecast(7); !reflect.DeepEqual(got, want) {
		t.Errorf("restored forecasts differ:\ngot  %+v\nwant %+v", got, want)
	}
}

func TestRevenueRestoreGuardsZeroMultipliers(t *testing.T) {
	m := NewRevenueForecaster(DefaultRevenueConfig())
	m.Restore(RevenueState{Baseline: 100, LastDate: revenueStart})

	f := m.Forecast(1)
	if len(f) != 1 || f[0].Value <= 0 {
		t.Fatalf("zeroed multipliers must restore as 1.0, got forecast %+v", f)
	}
	if math.Abs(f[0].Value-100) > 1e-9 {
		t.Errorf("forecast value = %v, want the restored baseline 100", f[0].Value)
	}
}
