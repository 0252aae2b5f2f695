// Playlens - Game Telemetry Analytics and Behavioral Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlens

package features

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tomtom215/playlens/internal/dataset"
)

// Keyword sets for failure-rate computation. A row is an attempt when its
// event_type or result contains an attempt keyword; among attempts, it is a
// failure when either column matches a fail keyword.
var (
	attemptKeywords = []string{"attempt", "play", "level"}
	failKeywords    = []string{"fail", "lose", "false"}
)

// Extractor computes behavioral features from a dataset snapshot.
//
// The per-user row index is built once at construction (O(N) over the full
// row set) so per-user extraction does not rescan the dataset. All methods
// are pure functions of the snapshot and the injected clock.
type Extractor struct {
	ds       *dataset.Dataset
	resolver *Resolver
	now      time.Time

	userRows map[string][]dataset.Row
	userIDs  []string
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithNow fixes the extraction reference time. Defaults to time.Now().
func WithNow(now time.Time) Option {
	return func(e *Extractor) { e.now = now.UTC() }
}

// NewExtractor builds an extractor over the given snapshot.
func NewExtractor(ds *dataset.Dataset, opts ...Option) *Extractor {
	e := &Extractor{
		ds:       ds,
		resolver: NewResolver(ds),
		now:      time.Now().UTC(),
		userRows: make(map[string][]dataset.Row),
	}
	for _, opt := range opts {
		opt(e)
	}

	userCol := e.resolver.Column(RoleUserID)
	if ds != nil && userCol != "" {
		for _, row := range ds.Rows {
			id, ok := row.Get(userCol).Str()
			if !ok || id == "" {
				continue
			}
			e.userRows[id] = append(e.userRows[id], row)
		}
	}
	e.userIDs = make([]string, 0, len(e.userRows))
	for id := range e.userRows {
		e.userIDs = append(e.userIDs, id)
	}
	sort.Strings(e.userIDs)

	return e
}

// Resolver exposes the column resolution built for this snapshot.
func (e *Extractor) Resolver() *Resolver {
	return e.resolver
}

// Now returns the extraction reference time.
func (e *Extractor) Now() time.Time {
	return e.now
}

// UserIDs returns all distinct resolved user ids, sorted.
func (e *Extractor) UserIDs() []string {
	out := make([]string, len(e.userIDs))
	copy(out, e.userIDs)
	return out
}

// UserRowCount returns the number of rows attributed to a user. Callers
// should consult this before treating a zero-valued feature record as a
// real inactive user.
func (e *Extractor) UserRowCount(userID string) int {
	return len(e.userRows[userID])
}

// ExtractUserFeatures computes the feature snapshot for one user. A user
// with no rows yields the zero-valued default record.
func (e *Extractor) ExtractUserFeatures(userID string) UserFeatures {
	f := UserFeatures{UserID: userID, DaysSinceLastPurchase: -1}
	rows := e.userRows[userID]
	if len(rows) == 0 {
		return f
	}
	f.RowCount = len(rows)

	e.fillActivity(&f, rows)
	e.fillProgression(&f, rows)
	e.fillMonetization(&f, rows)
	e.fillEngagement(&f, rows)

	// Conjunction: failing a lot AND barely playing. Either alone is not
	// being stuck.
	f.StuckAtLevel = f.FailureRate > 0.5 && f.SessionCount7d < 3

	return f
}

// ExtractAllUserFeatures computes feature snapshots for every distinct
// user, ordered by user id.
func (e *Extractor) ExtractAllUserFeatures() []UserFeatures {
	out := make([]UserFeatures, 0, len(e.userIDs))
	for _, id := range e.userIDs {
		out = append(out, e.ExtractUserFeatures(id))
	}
	return out
}

func (e *Extractor) fillActivity(f *UserFeatures, rows []dataset.Row) {
	var (
		last        time.Time
		recent7     int
		prior7      int
		count30     int
		durTotal    float64
		durCount    int
		durationCol = e.resolver.Column(RoleDuration)
	)

	cut7 := e.now.AddDate(0, 0, -7)
	cut14 := e.now.AddDate(0, 0, -14)
	cut30 := e.now.AddDate(0, 0, -30)

	for _, row := range rows {
		if ts, ok := e.rowTime(row); ok {
			if ts.After(last) {
				last = ts
			}
			if ts.After(cut7) {
				recent7++
			} else if ts.After(cut14) {
				prior7++
			}
			if ts.After(cut30) {
				count30++
			}
		}
		if d, ok := row.Get(durationCol).Float(); ok && d > 0 {
			durTotal += d
			durCount++
		}
	}

	f.SessionCount7d = recent7
	f.SessionCount30d = count30
	f.SessionTrend = trendRatio(recent7, prior7)
	if !last.IsZero() {
		f.LastSessionHoursAgo = e.now.Sub(last).Hours()
		if f.LastSessionHoursAgo < 0 {
			f.LastSessionHoursAgo = 0
		}
	}
	if durCount > 0 {
		f.AvgSessionLength = durTotal / float64(durCount)
	}
	f.TotalPlayTime = durTotal
}

// trendRatio compares recent activity against the prior window, clamped to
// [-1, 1]. A user active now but silent before trends fully up, and the
// reverse trends fully down.
func trendRatio(recent, prior int) float64 {
	switch {
	case prior == 0 && recent == 0:
		return 0
	case prior == 0:
		return 1
	}
	t := (float64(recent) - float64(prior)) / float64(prior)
	if t > 1 {
		t = 1
	}
	if t < -1 {
		t = -1
	}
	return t
}

func (e *Extractor) fillProgression(f *UserFeatures, rows []dataset.Row) {
	levelCol := e.resolver.Column(RoleLevel)
	eventCol := e.resolver.Column(RoleEventType)
	resultCol := e.resolver.Column(RoleResult)

	var (
		maxLevel  float64
		lastLevel float64
		lastTS    time.Time
		attempts  int
		failures  int
	)

	for _, row := range rows {
		if lvl, ok := row.Get(levelCol).Float(); ok {
			if lvl > maxLevel {
				maxLevel = lvl
			}
			ts, tok := e.rowTime(row)
			if !tok {
				// Rows without timestamps still advance "current" in
				// dataset order.
				lastLevel = lvl
			} else if !ts.Before(lastTS) {
				lastTS = ts
				lastLevel = lvl
			}
		}

		event, _ := row.Get(eventCol).Str()
		result, _ := row.Get(resultCol).Str()
		if matchesAny(event, attemptKeywords) || matchesAny(result, attemptKeywords) {
			attempts++
			if matchesAny(event, failKeywords) || matchesAny(result, failKeywords) {
				failures++
			}
		}
	}

	f.MaxLevel = int(maxLevel)
	f.CurrentLevel = int(lastLevel)
	if attempts > 0 {
		f.FailureRate = float64(failures) / float64(attempts)
	}

	days := e.daysSinceFirst(rows)
	if days < 1 {
		days = 1
	}
	f.ProgressionSpeed = maxLevel / days
}

func matchesAny(s string, keywords []string) bool {
	if s == "" {
		return false
	}
	lowered := strings.ToLower(s)
	for _, kw := range keywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

func (e *Extractor) fillMonetization(f *UserFeatures, rows []dataset.Row) {
	revenueCol := e.resolver.Column(RoleRevenue)

	var lastPurchase time.Time
	for _, row := range rows {
		amount, ok := row.Get(revenueCol).Float()
		if !ok || amount <= 0 {
			continue
		}
		f.TotalSpend += amount
		f.PurchaseCount++
		if ts, tok := e.rowTime(row); tok && ts.After(lastPurchase) {
			lastPurchase = ts
		}
	}

	if f.PurchaseCount > 0 {
		f.AvgPurchaseValue = f.TotalSpend / float64(f.PurchaseCount)
	}
	if !lastPurchase.IsZero() {
		f.DaysSinceLastPurchase = e.now.Sub(lastPurchase).Hours() / 24
		if f.DaysSinceLastPurchase < 0 {
			f.DaysSinceLastPurchase = 0
		}
	}
	f.IsPayer = f.TotalSpend > 0
}

func (e *Extractor) fillEngagement(f *UserFeatures, rows []dataset.Row) {
	eventCol := e.resolver.Column(RoleEventType)

	activeDays := make(map[string]struct{})
	active7 := make(map[string]struct{})
	hourCounts := [24]int{}
	cut7 := e.now.AddDate(0, 0, -7)

	for _, row := range rows {
		if ts, ok := e.rowTime(row); ok {
			day := ts.Format("2006-01-02")
			activeDays[day] = struct{}{}
			if ts.After(cut7) {
				active7[day] = struct{}{}
			}
			hourCounts[ts.Hour()]++
		}
		if event, ok := row.Get(eventCol).Str(); ok && event != "" {
			if f.EventCounts == nil {
				f.EventCounts = make(map[string]int)
			}
			f.EventCounts[event]++
		}
	}

	f.DaysActive = len(activeDays)
	f.DaysSinceFirstSession = e.daysSinceFirst(rows)
	f.WeeklyActiveRatio = float64(len(active7)) / 7

	peak, peakCount := 0, 0
	for hour, count := range hourCounts {
		if count > peakCount {
			peak, peakCount = hour, count
		}
	}
	f.PeakHour = peak
}

func (e *Extractor) daysSinceFirst(rows []dataset.Row) float64 {
	var first time.Time
	for _, row := range rows {
		if ts, ok := e.rowTime(row); ok && (first.IsZero() || ts.Before(first)) {
			first = ts
		}
	}
	if first.IsZero() {
		return 0
	}
	days := e.now.Sub(first).Hours() / 24
	if days < 0 {
		return 0
	}
	return days
}

func (e *Extractor) rowTime(row dataset.Row) (time.Time, bool) {
	return row.Get(e.resolver.Column(RoleTimestamp)).Time()
}

// ExtractAggregateFeatures computes the dataset-wide snapshot. Stateless:
// every call rescans the row set.
func (e *Extractor) ExtractAggregateFeatures() AggregateFeatures {
	agg := AggregateFeatures{
		TotalUsers: len(e.userIDs),
		TotalRows:  e.ds.Len(),
	}

	revenueCol := e.resolver.Column(RoleRevenue)
	cut1 := e.now.AddDate(0, 0, -1)
	cut7 := e.now.AddDate(0, 0, -7)
	cut30 := e.now.AddDate(0, 0, -30)

	type userSpan struct {
		first      time.Time
		activeDays map[string]struct{}
		spend      float64
	}
	spans := make(map[string]*userSpan, len(e.userIDs))

	var dau, wau, mau int
	for _, id := range e.userIDs {
		span := &userSpan{activeDays: make(map[string]struct{})}
		var last time.Time
		for _, row := range e.userRows[id] {
			if ts, ok := e.rowTime(row); ok {
				if span.first.IsZero() || ts.Before(span.first) {
					span.first = ts
				}
				if ts.After(last) {
					last = ts
				}
				span.activeDays[ts.Format("2006-01-02")] = struct{}{}
			}
			if amount, ok := row.Get(revenueCol).Float(); ok && amount > 0 {
				span.spend += amount
			}
		}
		spans[id] = span

		if last.After(cut1) {
			dau++
		}
		if last.After(cut7) {
			wau++
		}
		if last.After(cut30) {
			mau++
		}
		agg.TotalRevenue += span.spend
		if span.spend > 0 {
			agg.PayerCount++
		}
	}
	agg.DAU, agg.WAU, agg.MAU = dau, wau, mau

	retention := func(day int) float64 {
		eligible, retained := 0, 0
		for _, span := range spans {
			if span.first.IsZero() {
				continue
			}
			// Eligibility: first seen at least `day` days before now.
			if e.now.Sub(span.first).Hours()/24 < float64(day) {
				continue
			}
			eligible++
			target := span.first.AddDate(0, 0, day).Format("2006-01-02")
			if _, ok := span.activeDays[target]; ok {
				retained++
			}
		}
		if eligible == 0 {
			return 0
		}
		return float64(retained) / float64(eligible)
	}
	agg.RetentionD1 = retention(1)
	agg.RetentionD7 = retention(7)
	agg.RetentionD30 = retention(30)

	if agg.TotalUsers > 0 {
		agg.ARPU = agg.TotalRevenue / float64(agg.TotalUsers)
		agg.PayerConversion = float64(agg.PayerCount) / float64(agg.TotalUsers)
	}
	if agg.PayerCount > 0 {
		agg.ARPPU = agg.TotalRevenue / float64(agg.PayerCount)
	}

	return agg
}

// ExtractTimeSeries groups rows by calendar day and aggregates the named
// metric: revenue sums, dau counts distinct users, sessions counts rows.
// Results sort ascending by date.
func (e *Extractor) ExtractTimeSeries(metric string) ([]TimePoint, error) {
	switch metric {
	case MetricDAU, MetricRevenue, MetricSessions:
	default:
		return nil, fmt.Errorf("unknown metric %q", metric)
	}

	revenueCol := e.resolver.Column(RoleRevenue)
	userCol := e.resolver.Column(RoleUserID)

	sums := make(map[string]float64)
	dayUsers := make(map[string]map[string]struct{})

	for _, row := range e.ds.Rows {
		ts, ok := e.rowTime(row)
		if !ok {
			continue
		}
		day := ts.Format("2006-01-02")
		switch metric {
		case MetricRevenue:
			if amount, rok := row.Get(revenueCol).Float(); rok && amount > 0 {
				sums[day] += amount
			} else {
				sums[day] += 0
			}
		case MetricSessions:
			sums[day]++
		case MetricDAU:
			id, uok := row.Get(userCol).Str()
			if !uok || id == "" {
				continue
			}
			if dayUsers[day] == nil {
				dayUsers[day] = make(map[string]struct{})
			}
			dayUsers[day][id] = struct{}{}
		}
	}

	if metric == MetricDAU {
		for day, users := range dayUsers {
			sums[day] = float64(len(users))
		}
	}

	points := make([]TimePoint, 0, len(sums))
	for day, value := range sums {
		t, _ := time.Parse("2006-01-02", day)
		points = append(points, TimePoint{Date: day, Time: t.UTC(), Value: value})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date < points[j].Date })

	return points, nil
}

// ExtractRevenueDataPoints is the revenue series used by the forecaster.
func (e *Extractor) ExtractRevenueDataPoints() []TimePoint {
	points, _ := e.ExtractTimeSeries(MetricRevenue)
	return points
}
