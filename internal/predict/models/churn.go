// Playlens - Game Telemetry Analytics and Behavioral Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlens

package models

import (
	"fmt"
	"sort"

	"github.com/tomtom215/playlens/internal/features"
)

// FeatureDirection states how a raw feature relates to churn risk.
type FeatureDirection int

const (
	// DirectionPositive: higher raw value increases churn risk.
	DirectionPositive FeatureDirection = iota
	// DirectionNegative: higher raw value decreases churn risk.
	DirectionNegative
)

// churnFeature is one scored feature: a learned weight, normalization
// statistics, an optional activation threshold, and a direction.
type churnFeature struct {
	ID        features.FeatureID
	Weight    float64
	Mean      float64
	Std       float64
	Threshold *float64 // nil = always active
	Direction FeatureDirection
}

// RiskLevel buckets a churn score.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

func riskForScore(score float64) RiskLevel {
	switch {
	case score < 0.4:
		return RiskLow
	case score < 0.6:
		return RiskMedium
	case score < 0.8:
		return RiskHigh
	default:
		return RiskCritical
	}
}

// ChurnSample is one labeled training example.
type ChurnSample struct {
	Features features.UserFeatures
	Churned  bool
}

// ChurnPrediction is the scored output for one user.
type ChurnPrediction struct {
	Prediction
	RiskLevel RiskLevel `json:"risk_level"`
}

// ChurnEvaluation summarizes classifier quality on a labeled set.
type ChurnEvaluation struct {
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	AUC       float64 `json:"auc"`
	Samples   int     `json:"samples"`
}

// ChurnConfig tunes training.
type ChurnConfig struct {
	MinSamples   int
	Epochs       int
	LearningRate float64
}

// DefaultChurnConfig returns the standard training parameters.
func DefaultChurnConfig() ChurnConfig {
	return ChurnConfig{
		MinSamples:   500,
		Epochs:       100,
		LearningRate: 0.01,
	}
}

func ptr(f float64) *float64 { return &f }

// defaultChurnFeatures is the fixed feature set with initial weights
// summing to 1 and normalization statistics from typical dashboard-scale
// telemetry. Training refits weights and statistics.
func defaultChurnFeatures() []churnFeature {
	return []churnFeature{
		{ID: features.FeatureSessionTrend, Weight: 0.20, Mean: 0, Std: 0.5, Direction: DirectionNegative},
		{ID: features.FeatureLastSessionHoursAgo, Weight: 0.18, Mean: 48, Std: 48, Threshold: ptr(48), Direction: DirectionPositive},
		{ID: features.FeatureFailureRate, Weight: 0.12, Mean: 0.3, Std: 0.2, Direction: DirectionPositive},
		{ID: features.FeatureStuckAtLevel, Weight: 0.10, Mean: 0.2, Std: 0.4, Direction: DirectionPositive},
		{ID: features.FeatureWeeklyActiveRatio, Weight: 0.15, Mean: 0.4, Std: 0.3, Direction: DirectionNegative},
		{ID: features.FeatureProgressionSpeed, Weight: 0.08, Mean: 1, Std: 1, Direction: DirectionNegative},
		{ID: features.FeatureDaysActive, Weight: 0.07, Mean: 14, Std: 10, Direction: DirectionNegative},
		{ID: features.FeatureIsPayer, Weight: 0.05, Mean: 0.15, Std: 0.36, Direction: DirectionNegative},
		{ID: features.FeatureDaysSinceLastPurchase, Weight: 0.05, Mean: 10, Std: 10, Threshold: ptr(14), Direction: DirectionPositive},
	}
}

// ChurnPredictor scores per-user churn risk from a fixed set of weighted
// behavioral features.
type ChurnPredictor struct {
	BaseModel
	config   ChurnConfig
	features []churnFeature
}

// NewChurnPredictor creates a churn model with default weights.
func NewChurnPredictor(cfg ChurnConfig) *ChurnPredictor {
	if cfg.MinSamples <= 0 {
		cfg.MinSamples = 500
	}
	if cfg.Epochs <= 0 {
		cfg.Epochs = 100
	}
	if cfg.LearningRate <= 0 {
		cfg.LearningRate = 0.01
	}
	return &ChurnPredictor{
		BaseModel: NewBaseModel("churn"),
		config:    cfg,
		features:  defaultChurnFeatures(),
	}
}

// normalized squashes a raw feature value through a z-score and logistic
// function into (0, 1). A zero Std yields the neutral 0.5.
func (cf churnFeature) normalized(raw float64) float64 {
	if cf.Std == 0 {
		return 0.5
	}
	return sigmoid((raw - cf.Mean) / cf.Std)
}

// active reports whether the feature contributes given its threshold: the
// raw value must cross the threshold in the direction that increases risk.
func (cf churnFeature) active(raw float64) bool {
	if cf.Threshold == nil {
		return true
	}
	if cf.Direction == DirectionPositive {
		return raw > *cf.Threshold
	}
	return raw < *cf.Threshold
}

// score computes the clamped weighted sum over the feature set.
func scoreChurn(feats []churnFeature, f features.UserFeatures) float64 {
	var score float64
	for _, cf := range feats {
		raw := features.FeatureValue(f, cf.ID)
		if !cf.active(raw) {
			continue
		}
		norm := cf.normalized(raw)
		if cf.Direction == DirectionPositive {
			score += norm * cf.Weight
		} else {
			score += (1 - norm) * cf.Weight
		}
	}
	return clamp01(score)
}

// Predict scores one user. The value is always within [0,1] and the risk
// level follows the documented bucket thresholds.
func (m *ChurnPredictor) Predict(f features.UserFeatures) ChurnPrediction {
	m.mu.RLock()
	feats := m.features
	trained := m.trained
	m.mu.RUnlock()

	score := scoreChurn(feats, f)

	confidence := 0.5
	if trained {
		// More confident the further the score sits from the decision
		// boundary.
		confidence = 0.6 + 0.3*abs(2*score-1)
	}
	margin := (1 - confidence) * 0.5

	return ChurnPrediction{
		Prediction: Prediction{
			Value:      score,
			Confidence: confidence,
			Range: Range{
				Low:  clamp01(score - margin),
				High: clamp01(score + margin),
			},
			Factors: churnFactors(f),
		},
		RiskLevel: riskForScore(score),
	}
}

// churnFactors derives explanatory factors from fixed threshold rules over
// the raw feature values. Deliberately decoupled from the learned weights:
// the explanation describes the user's behavior, not the scoring math.
func churnFactors(f features.UserFeatures) []Factor {
	var factors []Factor
	if f.SessionTrend < -0.3 {
		factors = append(factors, Factor{
			Name:        "Declining Activity",
			Impact:      0.8,
			Description: "session count is trending sharply down week over week",
		})
	}
	if f.LastSessionHoursAgo > 72 {
		factors = append(factors, Factor{
			Name:        "Long Absence",
			Impact:      0.7,
			Description: "no session in more than three days",
		})
	}
	if f.FailureRate > 0.5 {
		factors = append(factors, Factor{
			Name:        "High Failure Rate",
			Impact:      0.6,
			Description: "losing more than half of recent attempts",
		})
	}
	if f.StuckAtLevel {
		factors = append(factors, Factor{
			Name:        "Stuck At Level",
			Impact:      0.5,
			Description: "repeated failures with little recent play",
		})
	}
	if f.WeeklyActiveRatio < 0.2 {
		factors = append(factors, Factor{
			Name:        "Low Weekly Engagement",
			Impact:      0.6,
			Description: "active on fewer than two days in the past week",
		})
	}
	if f.IsPayer && f.DaysSinceLastPurchase > 30 {
		factors = append(factors, Factor{
			Name:        "Lapsed Payer",
			Impact:      0.4,
			Description: "previously paying user has not purchased in over a month",
		})
	}
	return factors
}

// Train fits feature weights by online stochastic gradient descent.
// Requires at least MinSamples labeled samples; on failure the previous
// weights are left unchanged.
func (m *ChurnPredictor) Train(samples []ChurnSample) error {
	if len(samples) < m.config.MinSamples {
		return fmt.Errorf("train churn: %w", insufficientData(len(samples), m.config.MinSamples))
	}

	// Work on a copy; the live state swaps only after the full epoch loop.
	m.mu.RLock()
	feats := make([]churnFeature, len(m.features))
	copy(feats, m.features)
	m.mu.RUnlock()

	fitNormalization(feats, samples)

	lr := m.config.LearningRate
	for epoch := 0; epoch < m.config.Epochs; epoch++ {
		for _, s := range samples {
			pred := scoreChurn(feats, s.Features)
			label := 0.0
			if s.Churned {
				label = 1
			}
			err := label - pred

			for i := range feats {
				raw := features.FeatureValue(s.Features, feats[i].ID)
				if !feats[i].active(raw) {
					continue
				}
				norm := feats[i].normalized(raw)
				sign := 1.0
				if feats[i].Direction == DirectionNegative {
					sign = -1
					norm = 1 - norm
				}
				feats[i].Weight = clamp01(feats[i].Weight + lr*err*norm*sign)
			}
		}
	}

	normalizeWeights(feats)

	m.mu.Lock()
	m.features = feats
	m.markTrained()
	m.mu.Unlock()
	return nil
}

// fitNormalization refits each feature's mean/std from the sample set.
// Degenerate features keep their previous std so normalization stays
// finite.
func fitNormalization(feats []churnFeature, samples []ChurnSample) {
	values := make([]float64, len(samples))
	for i := range feats {
		for j, s := range samples {
			values[j] = features.FeatureValue(s.Features, feats[i].ID)
		}
		m := mean(values)
		sd := stddev(values)
		feats[i].Mean = m
		if sd > 0 {
			feats[i].Std = sd
		}
	}
}

// normalizeWeights rescales weights to sum to 1. An all-zero weight vector
// resets to uniform.
func normalizeWeights(feats []churnFeature) {
	var total float64
	for _, cf := range feats {
		total += cf.Weight
	}
	if total == 0 {
		uniform := 1.0 / float64(len(feats))
		for i := range feats {
			feats[i].Weight = uniform
		}
		return
	}
	for i := range feats {
		feats[i].Weight /= total
	}
}

// Evaluate computes classification metrics at a 0.5 cutoff plus a
// rank-based AUC (Mann-Whitney pairwise comparison). An empty class
// defaults AUC to 0.5.
func (m *ChurnPredictor) Evaluate(samples []ChurnSample) ChurnEvaluation {
	eval := ChurnEvaluation{Samples: len(samples)}
	if len(samples) == 0 {
		eval.AUC = 0.5
		return eval
	}

	var tp, fp, tn, fn int
	var posScores, negScores []float64
	for _, s := range samples {
		score := m.Predict(s.Features).Value
		predicted := score >= 0.5
		switch {
		case predicted && s.Churned:
			tp++
		case predicted && !s.Churned:
			fp++
		case !predicted && !s.Churned:
			tn++
		default:
			fn++
		}
		if s.Churned {
			posScores = append(posScores, score)
		} else {
			negScores = append(negScores, score)
		}
	}

	eval.Accuracy = safeDiv(float64(tp+tn), float64(len(samples)))
	eval.Precision = safeDiv(float64(tp), float64(tp+fp))
	eval.Recall = safeDiv(float64(tp), float64(tp+fn))
	eval.F1 = safeDiv(2*eval.Precision*eval.Recall, eval.Precision+eval.Recall)
	eval.AUC = rankAUC(posScores, negScores)
	return eval
}

// rankAUC counts positive-ahead-of-negative pairs over total pairs, ties
// counting half. Either class empty yields the chance baseline 0.5.
func rankAUC(pos, neg []float64) float64 {
	if len(pos) == 0 || len(neg) == 0 {
		return 0.5
	}
	sort.Float64s(neg)

	var won float64
	for _, p := range pos {
		// Negatives strictly below p.
		below := sort.SearchFloat64s(neg, p)
		// Negatives equal to p.
		equalEnd := sort.Search(len(neg), func(i int) bool { return neg[i] > p })
		won += float64(below) + 0.5*float64(equalEnd-below)
	}
	return won / float64(len(pos)*len(neg))
}

// Weights returns the current feature weights keyed by feature name.
func (m *ChurnPredictor) Weights() map[string]float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]float64, len(m.features))
	for _, cf := range m.features {
		out[cf.ID.String()] = cf.Weight
	}
	return out
}

// ChurnFeatureState is one feature's serializable parameters.
type ChurnFeatureState struct {
	ID        int
	Weight    float64
	Mean      float64
	Std       float64
	Threshold *float64
	Direction int
}

// ChurnState is the serializable parameter state.
type ChurnState struct {
	Features []ChurnFeatureState
}

// State snapshots the trainable parameter state.
func (m *ChurnPredictor) State() ChurnState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st := ChurnState{Features: make([]ChurnFeatureState, len(m.features))}
	for i, cf := range m.features {
		var threshold *float64
		if cf.Threshold != nil {
			t := *cf.Threshold
			threshold = &t
		}
		st.Features[i] = ChurnFeatureState{
			ID:        int(cf.ID),
			Weight:    cf.Weight,
			Mean:      cf.Mean,
			Std:       cf.Std,
			Threshold: threshold,
			Direction: int(cf.Direction),
		}
	}
	return st
}

// Restore replaces the parameter state with a previously saved snapshot.
// An empty snapshot is ignored.
func (m *ChurnPredictor) Restore(st ChurnState) {
	if len(st.Features) == 0 {
		return
	}
	feats := make([]churnFeature, len(st.Features))
	for i, fs := range st.Features {
		var threshold *float64
		if fs.Threshold != nil {
			t := *fs.Threshold
			threshold = &t
		}
		feats[i] = churnFeature{
			ID:        features.FeatureID(fs.ID),
			Weight:    fs.Weight,
			Mean:      fs.Mean,
			Std:       fs.Std,
			Threshold: threshold,
			Direction: FeatureDirection(fs.Direction),
		}
	}
	m.mu.Lock()
	m.features = feats
	m.markTrained()
	m.mu.Unlock()
}
