// Playlens - Game Telemetry Analytics and Behavioral Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlens

package features

import (
	"reflect"
	"testing"
	"time"

	"github.com/tomtom215/playlens/internal/dataset"
)

// refNow is the fixed extraction clock used throughout these tests.
var refNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

// eventRow builds a telemetry row relative to refNow.
func eventRow(userID string, daysAgo float64, extra map[string]dataset.Value) dataset.Row {
	row := dataset.Row{
		"user_id":   dataset.String(userID),
		"timestamp": dataset.String(refNow.Add(-time.Duration(daysAgo * 24 * float64(time.Hour))).Format(time.RFC3339)),
	}
	for k, v := range extra {
		row[k] = v
	}
	return row
}

func newTestExtractor(rows []dataset.Row) *Extractor {
	return NewExtractor(&dataset.Dataset{Rows: rows}, WithNow(refNow))
}

func TestExtractUserFeaturesNoRows(t *testing.T) {
	e := newTestExtractor([]dataset.Row{eventRow("other", 1, nil)})

	f := e.ExtractUserFeatures("ghost")
	if f.RowCount != 0 {
		t.Fatalf("RowCount = %d, want 0", f.RowCount)
	}
	if f.SessionCount30d != 0 || f.TotalSpend != 0 || f.IsPayer {
		t.Errorf("default record not neutral: %+v", f)
	}
	if f.DaysSinceLastPurchase != -1 {
		t.Errorf("DaysSinceLastPurchase = %v, want -1 sentinel", f.DaysSinceLastPurchase)
	}
	if e.UserRowCount("ghost") != 0 {
		t.Error("UserRowCount(ghost) should be 0")
	}
}

func TestExtractUserFeaturesActivity(t *testing.T) {
	rows := []dataset.Row{
		eventRow("u1", 1, map[string]dataset.Value{"duration": dataset.Number(30)}),
		eventRow("u1", 2, map[string]dataset.Value{"duration": dataset.Number(20)}),
		eventRow("u1", 10, map[string]dataset.Value{"duration": dataset.Number(10)}),
		eventRow("u1", 40, nil), // outside the 30d window
	}
	e := newTestExtractor(rows)

	f := e.ExtractUserFeatures("u1")
	if f.SessionCount7d != 2 {
		t.Errorf("SessionCount7d = %d, want 2", f.SessionCount7d)
	}
	if f.SessionCount30d != 3 {
		t.Errorf("SessionCount30d = %d, want 3", f.SessionCount30d)
	}
	if f.SessionCount7d > f.SessionCount30d {
		t.Error("7d window leaked past 30d window")
	}
	// Two sessions this week, one the week before: trend = (2-1)/1 = 1.
	if f.SessionTrend != 1 {
		t.Errorf("SessionTrend = %v, want 1", f.SessionTrend)
	}
	if f.LastSessionHoursAgo != 24 {
		t.Errorf("LastSessionHoursAgo = %v, want 24", f.LastSessionHoursAgo)
	}
	if f.AvgSessionLength != 20 {
		t.Errorf("AvgSessionLength = %v, want 20", f.AvgSessionLength)
	}
	if f.TotalPlayTime != 60 {
		t.Errorf("TotalPlayTime = %v, want 60", f.TotalPlayTime)
	}
}

func TestExtractUserFeaturesProgression(t *testing.T) {
	rows := []dataset.Row{
		eventRow("u1", 10, map[string]dataset.Value{
			"level": dataset.Number(5), "event_type": dataset.String("level_attempt"), "result": dataset.String("win"),
		}),
		eventRow("u1", 5, map[string]dataset.Value{
			"level": dataset.Number(8), "event_type": dataset.String("level_attempt"), "result": dataset.String("fail"),
		}),
		eventRow("u1", 1, map[string]dataset.Value{
			"level": dataset.Number(7), "event_type": dataset.String("level_attempt"), "result": dataset.String("lose"),
		}),
		// Not an attempt: no attempt keyword anywhere.
		eventRow("u1", 1, map[string]dataset.Value{"event_type": dataset.String("purchase")}),
	}
	e := newTestExtractor(rows)

	f := e.ExtractUserFeatures("u1")
	if f.MaxLevel != 8 {
		t.Errorf("MaxLevel = %d, want 8", f.MaxLevel)
	}
	if f.CurrentLevel != 7 {
		t.Errorf("CurrentLevel = %d, want 7 (latest row with a level)", f.CurrentLevel)
	}
	if want := 2.0 / 3.0; f.FailureRate < want-1e-9 || f.FailureRate > want+1e-9 {
		t.Errorf("FailureRate = %v, want %v", f.FailureRate, want)
	}
	// 8 levels over 10 days.
	if f.ProgressionSpeed != 0.8 {
		t.Errorf("ProgressionSpeed = %v, want 0.8", f.ProgressionSpeed)
	}
}

func TestStuckAtLevelIsConjunction(t *testing.T) {
	tests := []struct {
		name     string
		daysAgo  []float64 // attempt event ages, all failing
		sessions int       // extra recent non-attempt sessions
		want     bool
	}{
		{name: "high failure and few sessions", daysAgo: []float64{10, 11}, sessions: 0, want: true},
		{name: "high failure but many recent sessions", daysAgo: []float64{10, 11}, sessions: 4, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rows []dataset.Row
			for _, age := range tt.daysAgo {
				rows = append(rows, eventRow("u1", age, map[string]dataset.Value{
					"event_type": dataset.String("level_attempt"),
					"result":     dataset.String("fail"),
				}))
			}
			for i := 0; i < tt.sessions; i++ {
				rows = append(rows, eventRow("u1", 0.5+float64(i)*0.1, map[string]dataset.Value{
					"event_type": dataset.String("session_start"),
				}))
			}
			e := newTestExtractor(rows)
			f := e.ExtractUserFeatures("u1")
			if f.FailureRate <= 0.5 {
				t.Fatalf("FailureRate = %v, fixture should exceed 0.5", f.FailureRate)
			}
			if f.StuckAtLevel != tt.want {
				t.Errorf("StuckAtLevel = %v, want %v (sessions7d=%d)", f.StuckAtLevel, tt.want, f.SessionCount7d)
			}
		})
	}
}

func TestExtractUserFeaturesMonetization(t *testing.T) {
	rows := []dataset.Row{
		eventRow("u1", 20, map[string]dataset.Value{"revenue": dataset.Number(9.99)}),
		eventRow("u1", 3, map[string]dataset.Value{"revenue": dataset.Number(4.99)}),
		eventRow("u1", 1, map[string]dataset.Value{"revenue": dataset.Number(0)}), // not a purchase
		eventRow("u1", 1, nil),
	}
	e := newTestExtractor(rows)

	f := e.ExtractUserFeatures("u1")
	if !f.IsPayer {
		t.Error("IsPayer = false, want true")
	}
	if f.PurchaseCount != 2 {
		t.Errorf("PurchaseCount = %d, want 2", f.PurchaseCount)
	}
	if want := 14.98; f.TotalSpend < want-1e-9 || f.TotalSpend > want+1e-9 {
		t.Errorf("TotalSpend = %v, want %v", f.TotalSpend, want)
	}
	if want := 7.49; f.AvgPurchaseValue < want-1e-6 || f.AvgPurchaseValue > want+1e-6 {
		t.Errorf("AvgPurchaseValue = %v, want %v", f.AvgPurchaseValue, want)
	}
	if f.DaysSinceLastPurchase != 3 {
		t.Errorf("DaysSinceLastPurchase = %v, want 3", f.DaysSinceLastPurchase)
	}
}

func TestExtractUserFeaturesMissingColumnsDegrade(t *testing.T) {
	// Rows with only a user id: no timestamp, revenue, level, or events.
	rows := []dataset.Row{
		{"user_id": dataset.String("u1")},
		{"user_id": dataset.String("u1")},
	}
	e := newTestExtractor(rows)

	f := e.ExtractUserFeatures("u1")
	if f.RowCount != 2 {
		t.Fatalf("RowCount = %d, want 2", f.RowCount)
	}
	if f.TotalSpend != 0 || f.FailureRate != 0 || f.DaysActive != 0 || f.LastSessionHoursAgo != 0 {
		t.Errorf("missing columns should degrade to zero, got %+v", f)
	}
}

func TestExtractUserFeaturesIdempotent(t *testing.T) {
	rows := []dataset.Row{
		eventRow("u1", 1, map[string]dataset.Value{"revenue": dataset.Number(4.99), "level": dataset.Number(3)}),
		eventRow("u1", 5, map[string]dataset.Value{"event_type": dataset.String("play")}),
	}
	e := newTestExtractor(rows)

	first := e.ExtractUserFeatures("u1")
	second := e.ExtractUserFeatures("u1")
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated extraction differs:\nfirst  = %+v\nsecond = %+v", first, second)
	}
}

func TestExtractAllUserFeaturesOrdered(t *testing.T) {
	rows := []dataset.Row{
		eventRow("charlie", 1, nil),
		eventRow("alice", 1, nil),
		eventRow("bob", 1, nil),
	}
	e := newTestExtractor(rows)

	all := e.ExtractAllUserFeatures()
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3", len(all))
	}
	for i, want := range []string{"alice", "bob", "charlie"} {
		if all[i].UserID != want {
			t.Errorf("all[%d].UserID = %q, want %q", i, all[i].UserID, want)
		}
	}
}

func TestExtractAggregateFeatures(t *testing.T) {
	rows := []dataset.Row{
		// u1: first seen 10 days ago, active exactly on day 1 and day 7 after.
		eventRow("u1", 10, nil),
		eventRow("u1", 9, nil),
		eventRow("u1", 3, map[string]dataset.Value{"revenue": dataset.Number(20)}),
		eventRow("u1", 0.5, nil),
		// u2: first seen 10 days ago, never returned.
		eventRow("u2", 10, nil),
	}
	e := newTestExtractor(rows)

	agg := e.ExtractAggregateFeatures()
	if agg.TotalUsers != 2 {
		t.Fatalf("TotalUsers = %d, want 2", agg.TotalUsers)
	}
	if agg.DAU != 1 {
		t.Errorf("DAU = %d, want 1", agg.DAU)
	}
	if agg.WAU != 1 {
		t.Errorf("WAU = %d, want 1", agg.WAU)
	}
	if agg.MAU != 2 {
		t.Errorf("MAU = %d, want 2", agg.MAU)
	}
	// u1 active on the exact day after first seen; u2 not. Exact-day
	// definition, not cumulative.
	if agg.RetentionD1 != 0.5 {
		t.Errorf("RetentionD1 = %v, want 0.5", agg.RetentionD1)
	}
	// u1 active 7 days after first seen (day 10 -> day 3).
	if agg.RetentionD7 != 0.5 {
		t.Errorf("RetentionD7 = %v, want 0.5", agg.RetentionD7)
	}
	// Nobody is eligible for D30 yet.
	if agg.RetentionD30 != 0 {
		t.Errorf("RetentionD30 = %v, want 0", agg.RetentionD30)
	}
	if agg.TotalRevenue != 20 {
		t.Errorf("TotalRevenue = %v, want 20", agg.TotalRevenue)
	}
	if agg.ARPU != 10 {
		t.Errorf("ARPU = %v, want 10", agg.ARPU)
	}
	if agg.ARPPU != 20 {
		t.Errorf("ARPPU = %v, want 20", agg.ARPPU)
	}
	if agg.PayerConversion != 0.5 {
		t.Errorf("PayerConversion = %v, want 0.5", agg.PayerConversion)
	}
}

func TestExtractTimeSeries(t *testing.T) {
	rows := []dataset.Row{
		eventRow("u1", 2, map[string]dataset.Value{"revenue": dataset.Number(5)}),
		eventRow("u2", 2, map[string]dataset.Value{"revenue": dataset.Number(3)}),
		eventRow("u1", 1, nil),
		{"user_id": dataset.String("u3")}, // no timestamp, skipped
	}
	e := newTestExtractor(rows)

	t.Run("revenue sums per day", func(t *testing.T) {
		points, err := e.ExtractTimeSeries(MetricRevenue)
		if err != nil {
			t.Fatalf("ExtractTimeSeries() error = %v", err)
		}
		if len(points) != 2 {
			t.Fatalf("len = %d, want 2", len(points))
		}
		if points[0].Date >= points[1].Date {
			t.Error("points not sorted ascending by date")
		}
		if points[0].Value != 8 {
			t.Errorf("day -2 revenue = %v, want 8", points[0].Value)
		}
		if points[1].Value != 0 {
			t.Errorf("day -1 revenue = %v, want 0", points[1].Value)
		}
	})

	t.Run("dau counts distinct users", func(t *testing.T) {
		points, err := e.ExtractTimeSeries(MetricDAU)
		if err != nil {
			t.Fatalf("ExtractTimeSeries() error = %v", err)
		}
		if len(points) != 2 {
			t.Fatalf("len = %d, want 2", len(points))
		}
		if points[0].Value != 2 {
			t.Errorf("day -2 dau = %v, want 2", points[0].Value)
		}
	})

	t.Run("sessions counts rows", func(t *testing.T) {
		points, err := e.ExtractTimeSeries(MetricSessions)
		if err != nil {
			t.Fatalf("ExtractTimeSeries() error = %v", err)
		}
		if points[0].Value != 2 || points[1].Value != 1 {
			t.Errorf("session counts = %v/%v, want 2/1", points[0].Value, points[1].Value)
		}
	})

	t.Run("unknown metric errors", func(t *testing.T) {
		if _, err := e.ExtractTimeSeries("unknown"); err == nil {
			t.Error("ExtractTimeSeries(unknown) should error")
		}
	})
}
