// Playlens - Game Telemetry Analytics and Behavioral Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlens

package models

import (
	"fmt"
	"time"

	"github.com/tomtom215/playlens/internal/features"
)

// Sensitivity controls how readily values are flagged anomalous.
type Sensitivity string

const (
	SensitivityLow    Sensitivity = "low"
	SensitivityMedium Sensitivity = "medium"
	SensitivityHigh   Sensitivity = "high"
)

// threshold returns the z-score cutoff for this sensitivity. Higher
// sensitivity flags sooner.
func (s Sensitivity) threshold() float64 {
	switch s {
	case SensitivityHigh:
		return 2.0
	case SensitivityMedium:
		return 2.5
	default:
		return 3.0
	}
}

// AnomalyType classifies a detection.
type AnomalyType string

const (
	AnomalySpike         AnomalyType = "spike"
	AnomalyDrop          AnomalyType = "drop"
	AnomalyTrendBreak    AnomalyType = "trend_break"
	AnomalyPatternChange AnomalyType = "pattern_change"
)

// AnomalySeverity buckets the raw z-score deviation.
type AnomalySeverity string

const (
	SeverityLow      AnomalySeverity = "low"
	SeverityMedium   AnomalySeverity = "medium"
	SeverityHigh     AnomalySeverity = "high"
	SeverityCritical AnomalySeverity = "critical"
)

// severityForZScore applies the fixed cutoffs. Monotonic in zScore.
func severityForZScore(z float64) AnomalySeverity {
	switch {
	case z < 2.5:
		return SeverityLow
	case z < 3:
		return SeverityMedium
	case z < 4:
		return SeverityHigh
	default:
		return SeverityCritical
	}
}

// Anomaly is an immutable detection record.
type Anomaly struct {
	Metric         string          `json:"metric"`
	Timestamp      time.Time       `json:"timestamp"`
	Value          float64         `json:"value"`
	Expected       float64         `json:"expected"`
	ExpectedRange  Range           `json:"expected_range"`
	Deviation      float64         `json:"deviation"` // z-score
	Severity       AnomalySeverity `json:"severity"`
	Type           AnomalyType     `json:"type"`
	PossibleCauses []string        `json:"possible_causes,omitempty"`
}

// MetricProfile is the evolving statistical profile of one monitored
// metric. Profiles are stored by value in the model's map and replaced on
// update; detections never mutate a profile through a shared reference.
type MetricProfile struct {
	Metric         string      `json:"metric"`
	Mean           float64     `json:"mean"`
	Std            float64     `json:"std"`
	Min            float64     `json:"min"`
	Max            float64     `json:"max"`
	DayOfWeekMeans [7]float64  `json:"day_of_week_means"`
	HourOfDayMeans [24]float64 `json:"hour_of_day_means"`
	Trend          float64     `json:"trend"` // recent week / prior week ratio
	Volatility     float64     `json:"volatility"`
	Samples        int         `json:"samples"`
}

// AnomalyConfig tunes the detector.
type AnomalyConfig struct {
	// Sensitivity selects the z-score threshold: low=3.0, medium=2.5,
	// high=2.0.
	Sensitivity Sensitivity

	// Alpha is the EMA update rate for profile statistics.
	Alpha float64

	// SeasonalWeight blends the day-of-week/hour-of-day means into the
	// expected value.
	SeasonalWeight float64

	// MinDataPoints is the minimum series length for TrainMetric.
	MinDataPoints int

	// HistoryLimit caps the retained anomaly records, oldest dropped first.
	HistoryLimit int
}

// DefaultAnomalyConfig returns the standard detector tuning.
func DefaultAnomalyConfig() AnomalyConfig {
	return AnomalyConfig{
		Sensitivity:    SensitivityMedium,
		Alpha:          0.3,
		SeasonalWeight: 0.2,
		MinDataPoints:  14,
		HistoryLimit:   100,
	}
}

// seedStdFactor estimates spread for a single-sample seed profile.
const seedStdFactor = 0.2

// varianceFloor avoids divide-by-zero in pattern-change ratios.
const varianceFloor = 0.001

// AnomalyModel maintains per-metric statistical profiles and flags values
// that deviate beyond the sensitivity-controlled z-score threshold.
//
// Profiles are created lazily on first observation and never deleted, so
// the profile map grows with the number of distinct metric names.
type AnomalyModel struct {
	BaseModel
	config AnomalyConfig

	profiles map[string]MetricProfile
	history  []Anomaly
}

// NewAnomalyModel creates an anomaly detector.
func NewAnomalyModel(cfg AnomalyConfig) *AnomalyModel {
	if cfg.Sensitivity == "" {
		cfg.Sensitivity = SensitivityMedium
	}
	if cfg.Alpha <= 0 || cfg.Alpha > 1 {
		cfg.Alpha = 0.3
	}
	if cfg.SeasonalWeight < 0 || cfg.SeasonalWeight > 1 {
		cfg.SeasonalWeight = 0.2
	}
	if cfg.MinDataPoints <= 0 {
		cfg.MinDataPoints = 14
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 100
	}

	return &AnomalyModel{
		BaseModel: NewBaseModel("anomaly"),
		config:    cfg,
		profiles:  make(map[string]MetricProfile),
	}
}

// Detect evaluates one observation. The first observation of an unseen
// metric seeds its profile and is never anomalous. A normal value is folded
// into the profile via EMA and returns nil; an anomalous value leaves the
// profile untouched and returns a detection record.
func (m *AnomalyModel) Detect(metric string, value float64, ts time.Time) *Anomaly {
	m.mu.Lock()
	defer m.mu.Unlock()

	profile, ok := m.profiles[metric]
	if !ok {
		m.profiles[metric] = seedProfile(metric, value)
		return nil
	}

	expected := m.expectedValue(profile, ts)
	threshold := m.config.Sensitivity.threshold()

	var zScore float64
	if profile.Std != 0 {
		zScore = abs(value-expected) / profile.Std
	}

	if zScore < threshold {
		m.profiles[metric] = m.foldObservation(profile, value, ts)
		return nil
	}

	anomalyType := AnomalyDrop
	if value > expected {
		anomalyType = AnomalySpike
	}
	a := Anomaly{
		Metric:    metric,
		Timestamp: ts,
		Value:     value,
		Expected:  expected,
		ExpectedRange: Range{
			Low:  expected - threshold*profile.Std,
			High: expected + threshold*profile.Std,
		},
		Deviation:      zScore,
		Severity:       severityForZScore(zScore),
		Type:           anomalyType,
		PossibleCauses: generateCauses(metric, anomalyType),
	}
	m.appendHistory(a)
	return &a
}

func seedProfile(metric string, value float64) MetricProfile {
	p := MetricProfile{
		Metric:  metric,
		Mean:    value,
		Std:     seedStdFactor * abs(value),
		Min:     value,
		Max:     value,
		Trend:   1,
		Samples: 1,
	}
	for i := range p.DayOfWeekMeans {
		p.DayOfWeekMeans[i] = value
	}
	for i := range p.HourOfDayMeans {
		p.HourOfDayMeans[i] = value
	}
	return p
}

// expectedValue blends the overall EMA mean with the seasonal slot means.
func (m *AnomalyModel) expectedValue(p MetricProfile, ts time.Time) float64 {
	seasonal := (p.DayOfWeekMeans[int(ts.Weekday())] + p.HourOfDayMeans[ts.Hour()]) / 2
	w := m.config.SeasonalWeight
	return (1-w)*p.Mean + w*seasonal
}

// foldObservation EMA-updates the profile with a non-anomalous value.
// Std is tracked as an EMA of absolute deviation, not variance.
func (m *AnomalyModel) foldObservation(p MetricProfile, value float64, ts time.Time) MetricProfile {
	a := m.config.Alpha

	p.Mean = a*value + (1-a)*p.Mean
	p.Std = a*abs(value-p.Mean) + (1-a)*p.Std
	if value < p.Min {
		p.Min = value
	}
	if value > p.Max {
		p.Max = value
	}

	dow := int(ts.Weekday())
	p.DayOfWeekMeans[dow] = a*value + (1-a)*p.DayOfWeekMeans[dow]
	hour := ts.Hour()
	p.HourOfDayMeans[hour] = a*value + (1-a)*p.HourOfDayMeans[hour]

	p.Volatility = safeDiv(p.Std, abs(p.Mean))
	p.Samples++
	return p
}

func (m *AnomalyModel) appendHistory(a Anomaly) {
	m.history = append(m.history, a)
	if len(m.history) > m.config.HistoryLimit {
		m.history = m.history[len(m.history)-m.config.HistoryLimit:]
	}
}

// TrainMetric builds a full profile from a historical series. It requires
// at least MinDataPoints points or fails with ErrInsufficientData, leaving
// any existing profile unchanged.
func (m *AnomalyModel) TrainMetric(metric string, points []features.TimePoint) (MetricProfile, error) {
	if len(points) < m.config.MinDataPoints {
		return MetricProfile{}, fmt.Errorf("train metric %q: %w", metric, insufficientData(len(points), m.config.MinDataPoints))
	}

	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
	}

	profile := MetricProfile{
		Metric:  metric,
		Mean:    mean(values),
		Std:     stddev(values),
		Min:     values[0],
		Max:     values[0],
		Samples: len(values),
	}
	for _, v := range values {
		if v < profile.Min {
			profile.Min = v
		}
		if v > profile.Max {
			profile.Max = v
		}
	}

	// Seasonal slot means; empty slots fall back to the global mean.
	var dowSums, dowCounts [7]float64
	var hourSums, hourCounts [24]float64
	for _, p := range points {
		dow := int(p.Time.Weekday())
		dowSums[dow] += p.Value
		dowCounts[dow]++
		hour := p.Time.Hour()
		hourSums[hour] += p.Value
		hourCounts[hour]++
	}
	for i := range profile.DayOfWeekMeans {
		if dowCounts[i] > 0 {
			profile.DayOfWeekMeans[i] = dowSums[i] / dowCounts[i]
		} else {
			profile.DayOfWeekMeans[i] = profile.Mean
		}
	}
	for i := range profile.HourOfDayMeans {
		if hourCounts[i] > 0 {
			profile.HourOfDayMeans[i] = hourSums[i] / hourCounts[i]
		} else {
			profile.HourOfDayMeans[i] = profile.Mean
		}
	}

	// Recent week against the week before it.
	if len(values) >= 14 {
		recent := mean(values[len(values)-7:])
		prior := mean(values[len(values)-14 : len(values)-7])
		if prior != 0 {
			profile.Trend = recent / prior
		} else {
			profile.Trend = 1
		}
	} else {
		profile.Trend = 1
	}
	profile.Volatility = safeDiv(profile.Std, abs(profile.Mean))

	m.mu.Lock()
	m.profiles[metric] = profile
	m.markTrained()
	m.mu.Unlock()

	return profile, nil
}

// analysisWindow is the rolling window length for trend-break and
// pattern-change checks.
const analysisWindow = 14

// minWindowPoints is the minimum points per window; fewer silently skip
// the check.
const minWindowPoints = 7

// AnalyzeTimeSeries runs point-by-point detection over a series and then
// checks the tail for trend breaks and variance-pattern changes.
func (m *AnomalyModel) AnalyzeTimeSeries(metric string, points []features.TimePoint) []Anomaly {
	var found []Anomaly
	for _, p := range points {
		if a := m.Detect(metric, p.Value, p.Time); a != nil {
			found = append(found, *a)
		}
	}

	recent, prior := tailWindows(points)
	if len(recent) < minWindowPoints || len(prior) < minWindowPoints {
		return found
	}

	recentValues := pointValues(recent)
	priorValues := pointValues(prior)
	last := points[len(points)-1]

	// Trend break: recent mean departs from the prior mean by more than
	// two prior-window standard deviations.
	priorStd := stddev(priorValues)
	diff := abs(mean(recentValues) - mean(priorValues))
	if priorStd > 0 && diff > 2*priorStd {
		z := diff / priorStd
		a := Anomaly{
			Metric:         metric,
			Timestamp:      last.Time,
			Value:          mean(recentValues),
			Expected:       mean(priorValues),
			ExpectedRange:  Range{Low: mean(priorValues) - 2*priorStd, High: mean(priorValues) + 2*priorStd},
			Deviation:      z,
			Severity:       severityForZScore(z),
			Type:           AnomalyTrendBreak,
			PossibleCauses: generateCauses(metric, AnomalyTrendBreak),
		}
		m.mu.Lock()
		m.appendHistory(a)
		m.mu.Unlock()
		found = append(found, a)
	}

	// Pattern change: the variance ratio between windows moves past 3x in
	// either direction.
	priorVar := variance(priorValues)
	if priorVar < varianceFloor {
		priorVar = varianceFloor
	}
	recentVar := variance(recentValues)
	if recentVar < varianceFloor {
		recentVar = varianceFloor
	}
	ratio := recentVar / priorVar
	if ratio > 3 || ratio < 1.0/3 {
		a := Anomaly{
			Metric:         metric,
			Timestamp:      last.Time,
			Value:          recentVar,
			Expected:       priorVar,
			ExpectedRange:  Range{Low: priorVar / 3, High: priorVar * 3},
			Deviation:      ratio,
			Severity:       SeverityMedium,
			Type:           AnomalyPatternChange,
			PossibleCauses: generateCauses(metric, AnomalyPatternChange),
		}
		m.mu.Lock()
		m.appendHistory(a)
		m.mu.Unlock()
		found = append(found, a)
	}

	return found
}

// tailWindows splits the series tail into the last analysisWindow points
// and the analysisWindow points before them.
func tailWindows(points []features.TimePoint) (recent, prior []features.TimePoint) {
	n := len(points)
	recentStart := n - analysisWindow
	if recentStart < 0 {
		recentStart = 0
	}
	recent = points[recentStart:]

	priorStart := recentStart - analysisWindow
	if priorStart < 0 {
		priorStart = 0
	}
	prior = points[priorStart:recentStart]
	return recent, prior
}

func pointValues(points []features.TimePoint) []float64 {
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
	}
	return values
}

// Profile returns a copy of the profile for a metric.
func (m *AnomalyModel) Profile(metric string) (MetricProfile, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[metric]
	return p, ok
}

// History returns the retained anomaly records, oldest first.
func (m *AnomalyModel) History() []Anomaly {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Anomaly, len(m.history))
	copy(out, m.history)
	return out
}

// generateCauses returns fixed heuristic explanations per metric and
// anomaly type. Deliberately independent of the scoring math: the text is
// operator guidance, not a faithful decomposition of the z-score.
func generateCauses(metric string, t AnomalyType) []string {
	switch t {
	case AnomalySpike:
		switch metric {
		case "revenue":
			return []string{"promotional event or sale", "new content release", "whale purchase activity"}
		case "dau":
			return []string{"marketing campaign landing", "featured placement", "viral moment"}
		default:
			return []string{"external traffic event", "instrumentation change"}
		}
	case AnomalyDrop:
		switch metric {
		case "revenue":
			return []string{"payment provider outage", "store listing issue", "end of promotion"}
		case "dau":
			return []string{"service outage", "broken release", "competing launch"}
		default:
			return []string{"data pipeline gap", "tracking regression"}
		}
	case AnomalyTrendBreak:
		return []string{"sustained behavior shift", "recent release changed engagement"}
	case AnomalyPatternChange:
		return []string{"audience mix changed", "event cadence changed"}
	default:
		return nil
	}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// AnomalyState is the serializable parameter state.
type AnomalyState struct {
	Profiles map[string]MetricProfile
	History  []Anomaly
}

// State snapshots the trainable parameter state.
func (m *AnomalyModel) State() AnomalyState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st := AnomalyState{Profiles: make(map[string]MetricProfile, len(m.profiles))}
	for k, v := range m.profiles {
		st.Profiles[k] = v
	}
	st.History = make([]Anomaly, len(m.history))
	copy(st.History, m.history)
	return st
}

// Restore replaces the parameter state with a previously saved snapshot.
// A snapshot with no metric profiles is ignored; there is nothing to
// detect against, so the model must stay untrained.
func (m *AnomalyModel) Restore(st AnomalyState) {
	if len(st.Profiles) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles = make(map[string]MetricProfile, len(st.Profiles))
	for k, v := range st.Profiles {
		m.profiles[k] = v
	}
	m.history = make([]Anomaly, len(st.History))
	copy(m.history, st.History)
	m.markTrained()
}
