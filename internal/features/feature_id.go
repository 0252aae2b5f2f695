// Playlens - Game Telemetry Analytics and Behavioral Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlens

package features

// FeatureID identifies a scalar feature extracted from UserFeatures.
// Models address features through this enum and the accessor table below
// instead of matching on field-name strings.
type FeatureID int

const (
	FeatureSessionCount7d FeatureID = iota
	FeatureSessionCount30d
	FeatureSessionTrend
	FeatureLastSessionHoursAgo
	FeatureAvgSessionLength
	FeatureTotalPlayTime
	FeatureProgressionSpeed
	FeatureFailureRate
	FeatureStuckAtLevel
	FeatureTotalSpend
	FeaturePurchaseCount
	FeatureAvgPurchaseValue
	FeatureDaysSinceLastPurchase
	FeatureIsPayer
	FeatureDaysActive
	FeatureDaysSinceFirstSession
	FeatureWeeklyActiveRatio
	numFeatures // sentinel, keep last
)

// String returns the canonical feature name.
func (id FeatureID) String() string {
	if id < 0 || id >= numFeatures {
		return "unknown"
	}
	return featureNames[id]
}

var featureNames = [numFeatures]string{
	FeatureSessionCount7d:        "sessionCount7d",
	FeatureSessionCount30d:       "sessionCount30d",
	FeatureSessionTrend:          "sessionTrend",
	FeatureLastSessionHoursAgo:   "lastSessionHoursAgo",
	FeatureAvgSessionLength:      "avgSessionLength",
	FeatureTotalPlayTime:         "totalPlayTime",
	FeatureProgressionSpeed:      "progressionSpeed",
	FeatureFailureRate:           "failureRate",
	FeatureStuckAtLevel:          "stuckAtLevel",
	FeatureTotalSpend:            "totalSpend",
	FeaturePurchaseCount:         "purchaseCount",
	FeatureAvgPurchaseValue:      "avgPurchaseValue",
	FeatureDaysSinceLastPurchase: "daysSinceLastPurchase",
	FeatureIsPayer:               "isPayer",
	FeatureDaysActive:            "daysActive",
	FeatureDaysSinceFirstSession: "daysSinceFirstSession",
	FeatureWeeklyActiveRatio:     "weeklyActiveRatio",
}

// featureAccessors maps each FeatureID to its typed extraction function.
// Booleans map to 1/0; "never purchased" maps to 0 so recency thresholds
// only ever fire for actual payers.
var featureAccessors = [numFeatures]func(UserFeatures) float64{
	FeatureSessionCount7d:      func(f UserFeatures) float64 { return float64(f.SessionCount7d) },
	FeatureSessionCount30d:     func(f UserFeatures) float64 { return float64(f.SessionCount30d) },
	FeatureSessionTrend:        func(f UserFeatures) float64 { return f.SessionTrend },
	FeatureLastSessionHoursAgo: func(f UserFeatures) float64 { return f.LastSessionHoursAgo },
	FeatureAvgSessionLength:    func(f UserFeatures) float64 { return f.AvgSessionLength },
	FeatureTotalPlayTime:       func(f UserFeatures) float64 { return f.TotalPlayTime },
	FeatureProgressionSpeed:    func(f UserFeatures) float64 { return f.ProgressionSpeed },
	FeatureFailureRate:         func(f UserFeatures) float64 { return f.FailureRate },
	FeatureStuckAtLevel: func(f UserFeatures) float64 {
		if f.StuckAtLevel {
			return 1
		}
		return 0
	},
	FeatureTotalSpend:    func(f UserFeatures) float64 { return f.TotalSpend },
	FeaturePurchaseCount: func(f UserFeatures) float64 { return float64(f.PurchaseCount) },
	FeatureAvgPurchaseValue: func(f UserFeatures) float64 {
		return f.AvgPurchaseValue
	},
	FeatureDaysSinceLastPurchase: func(f UserFeatures) float64 {
		if f.DaysSinceLastPurchase < 0 {
			return 0
		}
		return f.DaysSinceLastPurchase
	},
	FeatureIsPayer: func(f UserFeatures) float64 {
		if f.IsPayer {
			return 1
		}
		return 0
	},
	FeatureDaysActive:            func(f UserFeatures) float64 { return float64(f.DaysActive) },
	FeatureDaysSinceFirstSession: func(f UserFeatures) float64 { return f.DaysSinceFirstSession },
	FeatureWeeklyActiveRatio:     func(f UserFeatures) float64 { return f.WeeklyActiveRatio },
}

// FeatureValue extracts the scalar value of a feature from a user snapshot.
// Unknown ids return 0.
func FeatureValue(f UserFeatures, id FeatureID) float64 {
	if id < 0 || id >= numFeatures {
		return 0
	}
	return featureAccessors[id](f)
}
