// Playlens - Game Telemetry Analytics and Behavioral Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlens

package dataset

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind identifies which variant a Value holds.
type Kind int

const (
	// KindNull indicates an absent or unparseable cell.
	KindNull Kind = iota
	// KindNumber indicates a float64 value.
	KindNumber
	// KindString indicates a string value.
	KindString
	// KindBool indicates a boolean value.
	KindBool
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	default:
		return "unknown"
	}
}

// Value is a tagged scalar cell in a raw telemetry row.
// The zero Value is Null.
type Value struct {
	kind Kind
	num  float64
	str  string
	b    bool
}

// Null is the absent value.
var Null = Value{}

// Number creates a numeric value. NaN and infinities collapse to Null so
// downstream arithmetic never sees non-finite inputs.
func Number(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Null
	}
	return Value{kind: KindNumber, num: f}
}

// String creates a string value.
func String(s string) Value {
	return Value{kind: KindString, str: s}
}

// Bool creates a boolean value.
func Bool(b bool) Value {
	return Value{kind: KindBool, b: b}
}

// Kind returns the variant tag.
func (v Value) Kind() Kind {
	return v.kind
}

// IsNull reports whether the value is absent.
func (v Value) IsNull() bool {
	return v.kind == KindNull
}

// Float coerces the value to a float64. Numeric strings parse; booleans map
// to 1/0. The second return is false when no numeric reading exists.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.num, true
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.str), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	case KindBool:
		if v.b {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// Str coerces the value to a string. Numbers format with minimal digits,
// booleans as "true"/"false". Null yields ("", false).
func (v Value) Str() (string, bool) {
	switch v.kind {
	case KindString:
		return v.str, true
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64), true
	case KindBool:
		return strconv.FormatBool(v.b), true
	default:
		return "", false
	}
}

// Boolean coerces the value to a bool. Strings accept "true"/"false"
// case-insensitively; numbers are true when non-zero.
func (v Value) Boolean() (bool, bool) {
	switch v.kind {
	case KindBool:
		return v.b, true
	case KindString:
		switch strings.ToLower(strings.TrimSpace(v.str)) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
		return false, false
	case KindNumber:
		return v.num != 0, true
	default:
		return false, false
	}
}

// timeLayouts are tried in order when parsing string timestamps.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006",
}

// unixMillisThreshold distinguishes second from millisecond epochs.
// Values above it are treated as milliseconds (covers dates past 2286 in
// seconds, which telemetry never legitimately contains).
const unixMillisThreshold = 1e11

// Time coerces the value to a UTC timestamp. Numbers are unix epochs
// (seconds or milliseconds, auto-detected); strings try common layouts.
func (v Value) Time() (time.Time, bool) {
	switch v.kind {
	case KindNumber:
		return epochToTime(v.num)
	case KindString:
		s := strings.TrimSpace(v.str)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), true
			}
		}
		// Numeric strings carry epochs too.
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return epochToTime(f)
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}

func epochToTime(f float64) (time.Time, bool) {
	if f <= 0 {
		return time.Time{}, false
	}
	if f > unixMillisThreshold {
		return time.UnixMilli(int64(f)).UTC(), true
	}
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC(), true
}

// Sniff converts a raw cell string into its most specific Value.
// Empty cells become Null.
func Sniff(s string) Value {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Null
	}
	switch strings.ToLower(trimmed) {
	case "true":
		return Bool(true)
	case "false":
		return Bool(false)
	case "null", "nil", "na", "n/a":
		return Null
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return Number(f)
	}
	return String(s)
}
