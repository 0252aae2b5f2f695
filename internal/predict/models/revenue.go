// Playlens - Game Telemetry Analytics and Behavioral Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlens

package models

import (
	"fmt"
	"math"
	"time"

	"github.com/tomtom215/playlens/internal/features"
)

// RevenueConfig tunes the forecaster.
type RevenueConfig struct {
	// MinDataPoints is the minimum history length for training.
	MinDataPoints int

	// RecentWeight blends the most-recent-7-day average into the
	// regression baseline. 0 = pure fit, 1 = pure recent average.
	RecentWeight float64

	// MonthlySeasonMinDays is the history length required before per-month
	// multipliers are learned; below it the defaults (1.0) are retained.
	MonthlySeasonMinDays int
}

// DefaultRevenueConfig returns the standard forecaster tuning.
func DefaultRevenueConfig() RevenueConfig {
	return RevenueConfig{
		MinDataPoints:        14,
		RecentWeight:         0.5,
		MonthlySeasonMinDays: 90,
	}
}

// RevenueForecast is one forecast day.
type RevenueForecast struct {
	Prediction
	DaysAhead int       `json:"days_ahead"`
	Date      time.Time `json:"date"`
}

// WhatIfScenario holds fractional changes to the revenue drivers
// (0.10 = +10%). Changes compound multiplicatively, conversion at half
// weight.
type WhatIfScenario struct {
	DAUChange        float64 `json:"dau_change"`
	ARPUChange       float64 `json:"arpu_change"`
	ConversionChange float64 `json:"conversion_change"`
}

// WhatIfResult projects a scenario against the current baseline.
type WhatIfResult struct {
	BaselineDaily  float64 `json:"baseline_daily"`
	ProjectedDaily float64 `json:"projected_daily"`
	ChangeFactor   float64 `json:"change_factor"`
}

// revenueParams is the fitted forecaster state.
type revenueParams struct {
	Baseline        float64 // blended level at the end of history
	TrendSlope      float64 // per-day OLS slope
	DowMultipliers  [7]float64
	MonthMultiplier [12]float64
	LastDate        time.Time
	HistoryDays     int
}

func defaultRevenueParams() revenueParams {
	p := revenueParams{}
	for i := range p.DowMultipliers {
		p.DowMultipliers[i] = 1
	}
	for i := range p.MonthMultiplier {
		p.MonthMultiplier[i] = 1
	}
	return p
}

// RevenueForecaster fits an additive trend with day-of-week and month
// seasonality over a daily revenue series:
//
//	forecast(d) = (baseline + slope*d) * dowMult(date) * monthMult(date)
type RevenueForecaster struct {
	BaseModel
	config RevenueConfig
	params revenueParams
}

// NewRevenueForecaster creates a forecaster.
func NewRevenueForecaster(cfg RevenueConfig) *RevenueForecaster {
	if cfg.MinDataPoints <= 0 {
		cfg.MinDataPoints = 14
	}
	if cfg.RecentWeight < 0 || cfg.RecentWeight > 1 {
		cfg.RecentWeight = 0.5
	}
	if cfg.MonthlySeasonMinDays <= 0 {
		cfg.MonthlySeasonMinDays = 90
	}
	return &RevenueForecaster{
		BaseModel: NewBaseModel("revenue"),
		config:    cfg,
		params:    defaultRevenueParams(),
	}
}

// Train fits the trend and seasonal multipliers over a daily series.
// Requires at least MinDataPoints days or fails with ErrInsufficientData,
// leaving the previous fit unchanged.
func (m *RevenueForecaster) Train(points []features.TimePoint) error {
	if len(points) < m.config.MinDataPoints {
		return fmt.Errorf("train revenue: %w", insufficientData(len(points), m.config.MinDataPoints))
	}

	values := pointValues(points)
	intercept, slope := olsFit(values)

	// Long-run fit at the end of history, blended toward the last week's
	// average to favor recent performance.
	fitEnd := intercept + slope*float64(len(values)-1)
	recent := values
	if len(recent) > 7 {
		recent = recent[len(recent)-7:]
	}
	w := m.config.RecentWeight
	baseline := (1-w)*fitEnd + w*mean(recent)
	if baseline < 0 {
		baseline = 0
	}

	params := defaultRevenueParams()
	params.Baseline = baseline
	params.TrendSlope = slope
	params.LastDate = points[len(points)-1].Time
	params.HistoryDays = len(points)

	overall := mean(values)
	if overall > 0 {
		var dowSums, dowCounts [7]float64
		for _, p := range points {
			dow := int(p.Time.Weekday())
			dowSums[dow] += p.Value
			dowCounts[dow]++
		}
		for i := range params.DowMultipliers {
			if dowCounts[i] > 0 {
				params.DowMultipliers[i] = (dowSums[i] / dowCounts[i]) / overall
			}
		}

		// Month seasonality needs enough history to mean anything.
		if len(points) >= m.config.MonthlySeasonMinDays {
			var monthSums, monthCounts [12]float64
			for _, p := range points {
				month := int(p.Time.Month()) - 1
				monthSums[month] += p.Value
				monthCounts[month]++
			}
			for i := range params.MonthMultiplier {
				if monthCounts[i] > 0 {
					params.MonthMultiplier[i] = (monthSums[i] / monthCounts[i]) / overall
				}
			}
		}
	}

	m.mu.Lock()
	m.params = params
	m.markTrained()
	m.mu.Unlock()
	return nil
}

// confidenceForHorizon decays linearly with forecast distance.
func confidenceForHorizon(daysAhead int) float64 {
	return math.Max(0.3, 0.9-0.02*float64(daysAhead))
}

// Forecast projects the next `days` days. Each forecast carries a strictly
// widening range and a confidence that decreases with distance.
func (m *RevenueForecaster) Forecast(days int) []RevenueForecast {
	if days <= 0 {
		return nil
	}

	m.mu.RLock()
	params := m.params
	m.mu.RUnlock()

	out := make([]RevenueForecast, 0, days)
	for d := 1; d <= days; d++ {
		date := params.LastDate.AddDate(0, 0, d)
		value := (params.Baseline + params.TrendSlope*float64(d)) *
			params.DowMultipliers[int(date.Weekday())] *
			params.MonthMultiplier[int(date.Month())-1]
		if value < 0 {
			value = 0
		}

		confidence := confidenceForHorizon(d)
		margin := value * (1 - confidence)
		if margin <= 0 {
			margin = 0.01
		}

		out = append(out, RevenueForecast{
			Prediction: Prediction{
				Value:      value,
				Confidence: confidence,
				Range:      Range{Low: value - margin, High: value + margin},
			},
			DaysAhead: d,
			Date:      date,
		})
	}
	return out
}

// WhatIf composes independent percentage changes multiplicatively:
// compounding, not additive. Conversion moves at half weight because it
// overlaps with ARPU.
func (m *RevenueForecaster) WhatIf(scenario WhatIfScenario) WhatIfResult {
	m.mu.RLock()
	baseline := m.params.Baseline
	m.mu.RUnlock()

	factor := (1 + scenario.DAUChange) *
		(1 + scenario.ARPUChange) *
		(1 + scenario.ConversionChange*0.5)

	return WhatIfResult{
		BaselineDaily:  baseline,
		ProjectedDaily: baseline * factor,
		ChangeFactor:   factor,
	}
}

// RevenueState is the serializable parameter state.
type RevenueState struct {
	Baseline        float64
	TrendSlope      float64
	DowMultipliers  [7]float64
	MonthMultiplier [12]float64
	LastDate        time.Time
	HistoryDays     int
}

// State snapshots the trainable parameter state.
func (m *RevenueForecaster) State() RevenueState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return RevenueState{
		Baseline:        m.params.Baseline,
		TrendSlope:      m.params.TrendSlope,
		DowMultipliers:  m.params.DowMultipliers,
		MonthMultiplier: m.params.MonthMultiplier,
		LastDate:        m.params.LastDate,
		HistoryDays:     m.params.HistoryDays,
	}
}

// Restore replaces the parameter state with a previously saved snapshot.
func (m *RevenueForecaster) Restore(st RevenueState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.params = revenueParams{
		Baseline:        st.Baseline,
		TrendSlope:      st.TrendSlope,
		DowMultipliers:  st.DowMultipliers,
		MonthMultiplier: st.MonthMultiplier,
		LastDate:        st.LastDate,
		HistoryDays:     st.HistoryDays,
	}
	// A zeroed snapshot must not zero out forecasts entirely.
	for i, mult := range m.params.DowMultipliers {
		if mult == 0 {
			m.params.DowMultipliers[i] = 1
		}
	}
	for i, mult := range m.params.MonthMultiplier {
		if mult == 0 {
			m.params.MonthMultiplier[i] = 1
		}
	}
	m.markTrained()
}
