// Playlens - Game Telemetry Analytics and Behavioral Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlens

package models

import (
	"fmt"
	"math"

	"github.com/tomtom215/playlens/internal/features"
)

// LTVSegment buckets users by projected 365-day value.
type LTVSegment string

const (
	SegmentWhale    LTVSegment = "whale"
	SegmentDolphin  LTVSegment = "dolphin"
	SegmentMinnow   LTVSegment = "minnow"
	SegmentNonPayer LTVSegment = "non_payer"
)

// Segment thresholds apply to the 365-day projection, not raw spend.
const (
	whaleThreshold   = 100
	dolphinThreshold = 20
	minnowThreshold  = 1
)

func segmentForProjection(projected365 float64) LTVSegment {
	switch {
	case projected365 >= whaleThreshold:
		return SegmentWhale
	case projected365 >= dolphinThreshold:
		return SegmentDolphin
	case projected365 >= minnowThreshold:
		return SegmentMinnow
	default:
		return SegmentNonPayer
	}
}

// ltvCoefficients are the linear-combination parameters. Fixed semantic
// defaults, nudged per-sample during training.
type ltvCoefficients struct {
	Intercept          float64
	PayerBonus         float64
	SpendMultiplier    float64 // per dollar already spent
	PurchaseMultiplier float64 // per purchase
	EngagementWeight   float64 // per weekly-active-ratio unit
	ActivityWeight     float64 // per active day

	// Conversion expectation for engaged non-payers.
	ConversionRate float64
	AvgPayerLTV    float64

	// DecayRate controls the exponential decay of the daily LTV rate in
	// horizon projections.
	DecayRate float64
}

func defaultLTVCoefficients() ltvCoefficients {
	return ltvCoefficients{
		Intercept:          0.5,
		PayerBonus:         5,
		SpendMultiplier:    1.2,
		PurchaseMultiplier: 0.8,
		EngagementWeight:   3,
		ActivityWeight:     0.05,
		ConversionRate:     0.05,
		AvgPayerLTV:        20,
		DecayRate:          0.01,
	}
}

// LTVSample is one labeled training example.
type LTVSample struct {
	Features  features.UserFeatures
	ActualLTV float64
}

// LTVPrediction is the projected lifetime value for one user.
type LTVPrediction struct {
	Prediction
	Projected30  float64    `json:"projected_30"`
	Projected90  float64    `json:"projected_90"`
	Projected365 float64    `json:"projected_365"`
	Segment      LTVSegment `json:"segment"`
}

// LTVConfig tunes training.
type LTVConfig struct {
	MinSamples   int
	Epochs       int
	LearningRate float64
}

// DefaultLTVConfig returns the standard training parameters.
func DefaultLTVConfig() LTVConfig {
	return LTVConfig{
		MinSamples:   100,
		Epochs:       100,
		LearningRate: 0.0001,
	}
}

// LTVPredictor projects per-user lifetime value with a linear-combination
// base and exponentially decayed horizon projections.
type LTVPredictor struct {
	BaseModel
	config LTVConfig
	coeffs ltvCoefficients
}

// NewLTVPredictor creates an LTV model with default coefficients.
func NewLTVPredictor(cfg LTVConfig) *LTVPredictor {
	if cfg.MinSamples <= 0 {
		cfg.MinSamples = 100
	}
	if cfg.Epochs <= 0 {
		cfg.Epochs = 100
	}
	if cfg.LearningRate <= 0 {
		cfg.LearningRate = 0.0001
	}
	return &LTVPredictor{
		BaseModel: NewBaseModel("ltv"),
		config:    cfg,
		coeffs:    defaultLTVCoefficients(),
	}
}

// baseLTV computes the annualized value estimate before horizon decay.
func baseLTV(c ltvCoefficients, f features.UserFeatures) float64 {
	value := c.Intercept +
		f.TotalSpend*c.SpendMultiplier +
		float64(f.PurchaseCount)*c.PurchaseMultiplier +
		f.WeeklyActiveRatio*c.EngagementWeight +
		float64(f.DaysActive)*c.ActivityWeight

	if f.IsPayer {
		value += c.PayerBonus
		// Recency multiplier: fresh payers project up, lapsed down.
		switch {
		case f.DaysSinceLastPurchase >= 0 && f.DaysSinceLastPurchase < 7:
			value *= 1.2
		case f.DaysSinceLastPurchase > 30:
			value *= 0.8
		}
	} else if f.DaysActive > 7 && f.WeeklyActiveRatio > 0.5 {
		// Engaged non-payers carry an expected-conversion term.
		value += c.ConversionRate * c.AvgPayerLTV
	}

	if value < 0 {
		return 0
	}
	return value
}

// project sums the exponentially decayed daily rate over a horizon and
// adds spend already earned.
func project(c ltvCoefficients, base, alreadySpent float64, days int) float64 {
	dailyRate := base / 365
	var total float64
	for d := 1; d <= days; d++ {
		total += dailyRate * math.Exp(-c.DecayRate*float64(d))
	}
	return alreadySpent + total
}

// Predict projects lifetime value for one user across the 30/90/365-day
// horizons and assigns the value segment from the 365-day projection.
func (m *LTVPredictor) Predict(f features.UserFeatures) LTVPrediction {
	m.mu.RLock()
	c := m.coeffs
	trained := m.trained
	m.mu.RUnlock()

	base := baseLTV(c, f)
	p30 := project(c, base, f.TotalSpend, 30)
	p90 := project(c, base, f.TotalSpend, 90)
	p365 := project(c, base, f.TotalSpend, 365)

	confidence := 0.5
	if trained {
		confidence = 0.75
	}
	if f.IsPayer {
		// Observed spend anchors the projection.
		confidence += 0.1
	}
	margin := p365 * (1 - confidence)

	return LTVPrediction{
		Prediction: Prediction{
			Value:      p365,
			Confidence: confidence,
			Range:      Range{Low: math.Max(0, p365-margin), High: p365 + margin},
			Factors:    ltvFactors(f),
		},
		Projected30:  p30,
		Projected90:  p90,
		Projected365: p365,
		Segment:      segmentForProjection(p365),
	}
}

// earlyPayerWindow is the first-week window in which purchases signal
// disproportionate long-term value.
const earlyPayerWindow = 7

// PredictEarlyLTV special-cases users who purchased within their first
// week: their base value carries a 2-2.5x multiplier, scaling with early
// spend, reflecting that early spenders are disproportionately valuable.
func (m *LTVPredictor) PredictEarlyLTV(f features.UserFeatures) LTVPrediction {
	if !f.IsPayer || f.DaysSinceFirstSession > earlyPayerWindow {
		return m.Predict(f)
	}

	m.mu.RLock()
	c := m.coeffs
	trained := m.trained
	m.mu.RUnlock()

	multiplier := 2 + 0.5*math.Min(1, f.TotalSpend/20)
	base := baseLTV(c, f) * multiplier
	p30 := project(c, base, f.TotalSpend, 30)
	p90 := project(c, base, f.TotalSpend, 90)
	p365 := project(c, base, f.TotalSpend, 365)

	// Early-window projection is inherently lower-confidence: little
	// behavior observed yet.
	confidence := 0.4
	if trained {
		confidence = 0.6
	}
	margin := p365 * (1 - confidence)

	factors := append(ltvFactors(f), Factor{
		Name:        "Early Spender",
		Impact:      0.9,
		Description: "purchased within the first week of play",
	})

	return LTVPrediction{
		Prediction: Prediction{
			Value:      p365,
			Confidence: confidence,
			Range:      Range{Low: math.Max(0, p365-margin), High: p365 + margin},
			Factors:    factors,
		},
		Projected30:  p30,
		Projected90:  p90,
		Projected365: p365,
		Segment:      segmentForProjection(p365),
	}
}

func ltvFactors(f features.UserFeatures) []Factor {
	var factors []Factor
	if f.IsPayer {
		factors = append(factors, Factor{
			Name:        "Existing Payer",
			Impact:      0.8,
			Description: "has already converted to paying",
		})
	}
	if f.DaysSinceLastPurchase >= 0 && f.DaysSinceLastPurchase < 7 {
		factors = append(factors, Factor{
			Name:        "Recent Purchase",
			Impact:      0.6,
			Description: "purchased within the last week",
		})
	}
	if !f.IsPayer && f.DaysActive > 7 && f.WeeklyActiveRatio > 0.5 {
		factors = append(factors, Factor{
			Name:        "Conversion Candidate",
			Impact:      0.5,
			Description: "sustained engagement without spend yet",
		})
	}
	if f.WeeklyActiveRatio >= 0.7 {
		factors = append(factors, Factor{
			Name:        "Highly Engaged",
			Impact:      0.4,
			Description: "active most days of the week",
		})
	}
	return factors
}

// Train nudges the linear coefficients toward observed lifetime values by
// simple per-sample gradient steps (not closed-form regression). Requires
// at least MinSamples; on failure the previous coefficients are unchanged.
func (m *LTVPredictor) Train(samples []LTVSample) error {
	if len(samples) < m.config.MinSamples {
		return fmt.Errorf("train ltv: %w", insufficientData(len(samples), m.config.MinSamples))
	}

	m.mu.RLock()
	c := m.coeffs
	m.mu.RUnlock()

	// Conversion expectation comes from the sample population, not the
	// gradient loop.
	var payers int
	var payerLTVTotal float64
	for _, s := range samples {
		if s.Features.IsPayer {
			payers++
			payerLTVTotal += s.ActualLTV
		}
	}
	if len(samples) > 0 {
		c.ConversionRate = float64(payers) / float64(len(samples))
	}
	if payers > 0 {
		c.AvgPayerLTV = payerLTVTotal / float64(payers)
	}

	lr := m.config.LearningRate
	for epoch := 0; epoch < m.config.Epochs; epoch++ {
		for _, s := range samples {
			f := s.Features
			pred := baseLTV(c, f)
			err := s.ActualLTV - pred

			c.Intercept += lr * err
			c.SpendMultiplier += lr * err * f.TotalSpend
			c.PurchaseMultiplier += lr * err * float64(f.PurchaseCount)
			c.EngagementWeight += lr * err * f.WeeklyActiveRatio
			c.ActivityWeight += lr * err * float64(f.DaysActive)
			if f.IsPayer {
				c.PayerBonus += lr * err
			}
		}
	}

	m.mu.Lock()
	m.coeffs = c
	m.markTrained()
	m.mu.Unlock()
	return nil
}

// LTVState is the serializable parameter state.
type LTVState struct {
	Intercept          float64
	PayerBonus         float64
	SpendMultiplier    float64
	PurchaseMultiplier float64
	EngagementWeight   float64
	ActivityWeight     float64
	ConversionRate     float64
	AvgPayerLTV        float64
	DecayRate          float64
}

// State snapshots the trainable parameter state.
func (m *LTVPredictor) State() LTVState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return LTVState{
		Intercept:          m.coeffs.Intercept,
		PayerBonus:         m.coeffs.PayerBonus,
		SpendMultiplier:    m.coeffs.SpendMultiplier,
		PurchaseMultiplier: m.coeffs.PurchaseMultiplier,
		EngagementWeight:   m.coeffs.EngagementWeight,
		ActivityWeight:     m.coeffs.ActivityWeight,
		ConversionRate:     m.coeffs.ConversionRate,
		AvgPayerLTV:        m.coeffs.AvgPayerLTV,
		DecayRate:          m.coeffs.DecayRate,
	}
}

// Restore replaces the parameter state with a previously saved snapshot.
func (m *LTVPredictor) Restore(st LTVState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.coeffs = ltvCoefficients{
		Intercept:          st.Intercept,
		PayerBonus:         st.PayerBonus,
		SpendMultiplier:    st.SpendMultiplier,
		PurchaseMultiplier: st.PurchaseMultiplier,
		EngagementWeight:   st.EngagementWeight,
		ActivityWeight:     st.ActivityWeight,
		ConversionRate:     st.ConversionRate,
		AvgPayerLTV:        st.AvgPayerLTV,
		DecayRate:          st.DecayRate,
	}
	if m.coeffs.DecayRate <= 0 {
		m.coeffs.DecayRate = 0.01
	}
	m.markTrained()
}
