// Playlens - Game Telemetry Analytics and Behavioral Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlens

package models

import (
	"errors"
	"math"
	"testing"

	"github.com/tomtom215/playlens/internal/features"
)

func TestLTVPredictSegments(t *testing.T) {
	tests := []struct {
		name string
		f    features.UserFeatures
		want LTVSegment
	}{
		{
			name: "zero non-payer",
			f:    features.UserFeatures{TotalSpend: 0, PurchaseCount: 0, DaysSinceLastPurchase: -1},
			want: SegmentNonPayer,
		},
		{
			name: "heavy spender projects whale",
			f: features.UserFeatures{
				TotalSpend: 150, PurchaseCount: 10, IsPayer: true,
				DaysSinceLastPurchase: 2, WeeklyActiveRatio: 0.8, DaysActive: 60,
			},
			want: SegmentWhale,
		},
		{
			name: "moderate spender projects dolphin",
			f: features.UserFeatures{
				TotalSpend: 30, PurchaseCount: 3, IsPayer: true,
				DaysSinceLastPurchase: 10, WeeklyActiveRatio: 0.5, DaysActive: 30,
			},
			want: SegmentDolphin,
		},
		{
			name: "small spender projects minnow",
			f: features.UserFeatures{
				TotalSpend: 3, PurchaseCount: 1, IsPayer: true,
				DaysSinceLastPurchase: 10, WeeklyActiveRatio: 0.3, DaysActive: 10,
			},
			want: SegmentMinnow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewLTVPredictor(DefaultLTVConfig())
			p := m.Predict(tt.f)
			if p.Segment != tt.want {
				t.Errorf("Segment = %v (projected365 = %v), want %v", p.Segment, p.Projected365, tt.want)
			}
			// The segment applies to the projection, and the record stays
			// internally consistent.
			if got := segmentForProjection(p.Projected365); got != p.Segment {
				t.Errorf("segment inconsistent with projection: %v vs %v", p.Segment, got)
			}
			if p.Value != p.Projected365 {
				t.Errorf("Value = %v, want the 365-day projection %v", p.Value, p.Projected365)
			}
		})
	}
}

func TestLTVNonPayerBelowOneIsNonPayer(t *testing.T) {
	m := NewLTVPredictor(DefaultLTVConfig())
	p := m.Predict(features.UserFeatures{TotalSpend: 0, PurchaseCount: 0, DaysSinceLastPurchase: -1})
	if p.Projected365 >= 1 {
		t.Fatalf("Projected365 = %v, fixture should project below 1", p.Projected365)
	}
	if p.Segment != SegmentNonPayer {
		t.Errorf("Segment = %v, want non_payer", p.Segment)
	}
}

func TestLTVProjectionsOrdered(t *testing.T) {
	m := NewLTVPredictor(DefaultLTVConfig())
	p := m.Predict(features.UserFeatures{
		TotalSpend: 50, PurchaseCount: 5, IsPayer: true,
		DaysSinceLastPurchase: 3, WeeklyActiveRatio: 0.7, DaysActive: 40,
	})

	if !(p.Projected30 < p.Projected90 && p.Projected90 < p.Projected365) {
		t.Errorf("projections not increasing: 30=%v 90=%v 365=%v",
			p.Projected30, p.Projected90, p.Projected365)
	}
	for _, v := range []float64{p.Projected30, p.Projected90, p.Projected365} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			t.Errorf("projection %v not finite and non-negative", v)
		}
	}
}

func TestLTVRecencyMultiplier(t *testing.T) {
	m := NewLTVPredictor(DefaultLTVConfig())
	base := features.UserFeatures{
		TotalSpend: 20, PurchaseCount: 2, IsPayer: true,
		WeeklyActiveRatio: 0.5, DaysActive: 20,
	}

	fresh := base
	fresh.DaysSinceLastPurchase = 2
	mid := base
	mid.DaysSinceLastPurchase = 15
	lapsed := base
	lapsed.DaysSinceLastPurchase = 45

	pf, pm, pl := m.Predict(fresh), m.Predict(mid), m.Predict(lapsed)
	if !(pf.Projected365 > pm.Projected365 && pm.Projected365 > pl.Projected365) {
		t.Errorf("recency ordering wrong: fresh=%v mid=%v lapsed=%v",
			pf.Projected365, pm.Projected365, pl.Projected365)
	}
}

func TestLTVEngagedNonPayerConversionTerm(t *testing.T) {
	m := NewLTVPredictor(DefaultLTVConfig())
	engaged := features.UserFeatures{
		DaysActive: 8, WeeklyActiveRatio: 0.6, DaysSinceLastPurchase: -1,
	}
	belowBar := features.UserFeatures{
		DaysActive: 8, WeeklyActiveRatio: 0.5, DaysSinceLastPurchase: -1,
	}

	pe, pb := m.Predict(engaged), m.Predict(belowBar)
	delta := pe.Projected365 - pb.Projected365
	// Crossing the 0.5 weekly-active bar adds the expected-conversion
	// term on top of the plain engagement-weight difference, so the gap
	// must exceed what the 0.1 ratio difference alone could explain.
	c := defaultLTVCoefficients()
	engagementOnly := 0.1 * c.EngagementWeight
	if delta <= engagementOnly {
		t.Errorf("conversion term missing: projected delta %v <= engagement-only base delta %v",
			delta, engagementOnly)
	}
}

func TestLTVEarlySpenderMultiplier(t *testing.T) {
	m := NewLTVPredictor(DefaultLTVConfig())
	earlyPayer := features.UserFeatures{
		TotalSpend: 10, PurchaseCount: 1, IsPayer: true,
		DaysSinceFirstSession: 3, DaysSinceLastPurchase: 1,
		WeeklyActiveRatio: 0.5, DaysActive: 3,
	}

	standard := m.Predict(earlyPayer)
	early := m.PredictEarlyLTV(earlyPayer)
	if early.Projected365 <= standard.Projected365 {
		t.Errorf("early projection %v not above standard %v",
			early.Projected365, standard.Projected365)
	}

	// Outside the first week PredictEarlyLTV falls back to Predict.
	veteran := earlyPayer
	veteran.DaysSinceFirstSession = 30
	if got, want := m.PredictEarlyLTV(veteran).Projected365, m.Predict(veteran).Projected365; got != want {
		t.Errorf("veteran early LTV = %v, want plain prediction %v", got, want)
	}
}

// ltvTrainingSet builds samples whose actual LTV is roughly proportional
// to observed spend.
func ltvTrainingSet(n int) []LTVSample {
	samples := make([]LTVSample, 0, n)
	for i := 0; i < n; i++ {
		spend := float64(i % 50)
		f := features.UserFeatures{
			TotalSpend:            spend,
			PurchaseCount:         i % 5,
			IsPayer:               spend > 0,
			DaysSinceLastPurchase: float64(i % 20),
			WeeklyActiveRatio:     float64(i%10) / 10,
			DaysActive:            i % 60,
		}
		if spend == 0 {
			f.DaysSinceLastPurchase = -1
		}
		samples = append(samples, LTVSample{Features: f, ActualLTV: spend*2 + 1})
	}
	return samples
}

func TestLTVTrainInsufficientData(t *testing.T) {
	m := NewLTVPredictor(DefaultLTVConfig())
	before := m.State()

	err := m.Train(ltvTrainingSet(99))
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("error = %v, want ErrInsufficientData", err)
	}
	if m.State() != before {
		t.Error("failed training must leave coefficients unchanged")
	}
}

func TestLTVTrainUpdatesPopulationStats(t *testing.T) {
	m := NewLTVPredictor(DefaultLTVConfig())
	if err := m.Train(ltvTrainingSet(200)); err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	if !m.IsTrained() {
		t.Fatal("model not marked trained")
	}

	st := m.State()
	// 49 of every 50 samples are payers.
	if st.ConversionRate < 0.9 {
		t.Errorf("ConversionRate = %v, want ~0.98 from the sample population", st.ConversionRate)
	}
	if st.AvgPayerLTV <= 0 {
		t.Errorf("AvgPayerLTV = %v, want > 0", st.AvgPayerLTV)
	}
}

func TestLTVStateRoundTrip(t *testing.T) {
	m := NewLTVPredictor(DefaultLTVConfig())
	if err := m.Train(ltvTrainingSet(200)); err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	restored := NewLTVPredictor(DefaultLTVConfig())
	restored.Restore(m.State())

	f := features.UserFeatures{
		TotalSpend: 40, PurchaseCount: 4, IsPayer: true,
		DaysSinceLastPurchase: 5, WeeklyActiveRatio: 0.6, DaysActive: 25,
	}
	want := m.Predict(f)
	got := restored.Predict(f)
	if got.Projected365 != want.Projected365 || got.Segment != want.Segment {
		t.Errorf("restored prediction differs: got %v/%v, want %v/%v",
			got.Projected365, got.Segment, want.Projected365, want.Segment)
	}
}
