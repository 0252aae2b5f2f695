// Playlens - Game Telemetry Analytics and Behavioral Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlens

package features

import "time"

// UserFeatures is an immutable per-user behavioral snapshot as of extraction
// time. Re-extraction replaces the record; it is never updated in place.
//
// Sparse data can produce SessionCount7d > SessionCount30d (rows with
// unparseable timestamps fall out of the longer window differently).
// Downstream code must tolerate that rather than assume the inequality.
type UserFeatures struct {
	UserID   string `json:"user_id"`
	RowCount int    `json:"row_count"`

	// Activity
	SessionCount7d      int     `json:"session_count_7d"`
	SessionCount30d     int     `json:"session_count_30d"`
	SessionTrend        float64 `json:"session_trend"` // [-1, 1], negative = declining
	LastSessionHoursAgo float64 `json:"last_session_hours_ago"`
	AvgSessionLength    float64 `json:"avg_session_length"` // minutes
	TotalPlayTime       float64 `json:"total_play_time"`    // minutes

	// Progression
	CurrentLevel     int     `json:"current_level"`
	MaxLevel         int     `json:"max_level"`
	ProgressionSpeed float64 `json:"progression_speed"` // levels per day
	FailureRate      float64 `json:"failure_rate"`      // [0, 1]
	StuckAtLevel     bool    `json:"stuck_at_level"`

	// Monetization
	TotalSpend            float64 `json:"total_spend"`
	PurchaseCount         int     `json:"purchase_count"`
	AvgPurchaseValue      float64 `json:"avg_purchase_value"`
	DaysSinceLastPurchase float64 `json:"days_since_last_purchase"` // -1 = never purchased
	IsPayer               bool    `json:"is_payer"`

	// Engagement
	DaysActive            int            `json:"days_active"`
	DaysSinceFirstSession float64        `json:"days_since_first_session"`
	WeeklyActiveRatio     float64        `json:"weekly_active_ratio"` // active days / 7
	PeakHour              int            `json:"peak_hour"`           // 0-23
	EventCounts           map[string]int `json:"event_counts,omitempty"`
}

// AggregateFeatures is a dataset-wide snapshot, recomputed on every call.
type AggregateFeatures struct {
	TotalUsers int `json:"total_users"`
	TotalRows  int `json:"total_rows"`

	DAU int `json:"dau"`
	WAU int `json:"wau"`
	MAU int `json:"mau"`

	// Exact-day retention: a user counts as retained at day N only if it
	// was active exactly N days after its first session.
	RetentionD1  float64 `json:"retention_d1"`
	RetentionD7  float64 `json:"retention_d7"`
	RetentionD30 float64 `json:"retention_d30"`

	TotalRevenue    float64 `json:"total_revenue"`
	ARPU            float64 `json:"arpu"`
	ARPPU           float64 `json:"arppu"`
	PayerCount      int     `json:"payer_count"`
	PayerConversion float64 `json:"payer_conversion"`
}

// TimePoint is one calendar day of an extracted metric series.
type TimePoint struct {
	Date  string    `json:"date"` // 2006-01-02
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// Metric names accepted by ExtractTimeSeries.
const (
	MetricDAU      = "dau"
	MetricRevenue  = "revenue"
	MetricSessions = "sessions"
)
