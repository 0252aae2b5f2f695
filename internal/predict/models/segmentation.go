// Playlens - Game Telemetry Analytics and Behavioral Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlens

package models

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/tomtom215/playlens/internal/features"
)

// SegmentCriterion is one threshold/range/equality condition over a named
// feature. Nil bounds are unbounded.
type SegmentCriterion struct {
	Feature features.FeatureID
	Min     *float64
	Max     *float64
	Equals  *float64
}

func (c SegmentCriterion) matches(f features.UserFeatures) bool {
	v := features.FeatureValue(f, c.Feature)
	if c.Equals != nil {
		return v == *c.Equals
	}
	if c.Min != nil && v < *c.Min {
		return false
	}
	if c.Max != nil && v > *c.Max {
		return false
	}
	return true
}

// SegmentDef is a predefined segment: a conjunction of criteria with a
// priority used to pick the primary segment (lower number wins).
type SegmentDef struct {
	Name     string
	Priority int
	Criteria []SegmentCriterion
}

func (s SegmentDef) matches(f features.UserFeatures) bool {
	for _, c := range s.Criteria {
		if !c.matches(f) {
			return false
		}
	}
	return true
}

// defaultSegments returns the built-in segment catalog, ordered by
// priority.
func defaultSegments() []SegmentDef {
	return []SegmentDef{
		{Name: "whale", Priority: 1, Criteria: []SegmentCriterion{
			{Feature: features.FeatureTotalSpend, Min: ptr(100)},
			{Feature: features.FeatureIsPayer, Equals: ptr(1)},
		}},
		{Name: "dolphin", Priority: 2, Criteria: []SegmentCriterion{
			{Feature: features.FeatureTotalSpend, Min: ptr(20), Max: ptr(99.999)},
			{Feature: features.FeatureIsPayer, Equals: ptr(1)},
		}},
		{Name: "minnow", Priority: 3, Criteria: []SegmentCriterion{
			{Feature: features.FeatureTotalSpend, Min: ptr(1), Max: ptr(19.999)},
			{Feature: features.FeatureIsPayer, Equals: ptr(1)},
		}},
		{Name: "at_risk", Priority: 4, Criteria: []SegmentCriterion{
			{Feature: features.FeatureSessionTrend, Max: ptr(-0.3)},
		}},
		{Name: "stuck", Priority: 5, Criteria: []SegmentCriterion{
			{Feature: features.FeatureStuckAtLevel, Equals: ptr(1)},
		}},
		{Name: "newcomer", Priority: 6, Criteria: []SegmentCriterion{
			{Feature: features.FeatureDaysSinceFirstSession, Max: ptr(7)},
		}},
		{Name: "engaged", Priority: 7, Criteria: []SegmentCriterion{
			{Feature: features.FeatureWeeklyActiveRatio, Min: ptr(0.5)},
		}},
		{Name: "dormant", Priority: 8, Criteria: []SegmentCriterion{
			{Feature: features.FeatureLastSessionHoursAgo, Min: ptr(336)},
		}},
	}
}

// clusteringFeatures is the fixed standardized feature vector for k-means.
var clusteringFeatures = []features.FeatureID{
	features.FeatureSessionCount7d,
	features.FeatureWeeklyActiveRatio,
	features.FeatureAvgSessionLength,
	features.FeatureProgressionSpeed,
	features.FeatureTotalSpend,
	features.FeaturePurchaseCount,
	features.FeatureFailureRate,
}

// Cluster is one behavioral cluster from k-means.
type Cluster struct {
	ID      int       `json:"id"`
	Center  []float64 `json:"center"` // standardized space
	Size    int       `json:"size"`
	UserIDs []string  `json:"user_ids,omitempty"`
}

// SegmentationConfig tunes clustering.
type SegmentationConfig struct {
	K                    int
	MaxIterations        int
	ConvergenceThreshold float64
	Seed                 int64
}

// DefaultSegmentationConfig returns the standard clustering parameters.
func DefaultSegmentationConfig() SegmentationConfig {
	return SegmentationConfig{
		K:                    4,
		MaxIterations:        100,
		ConvergenceThreshold: 1e-4,
		Seed:                 42,
	}
}

// SegmentationModel assigns users to predefined rule-based segments and
// discovers behavioral clusters through k-means with k-means++ seeding.
type SegmentationModel struct {
	BaseModel
	config   SegmentationConfig
	segments []SegmentDef

	clusters []Cluster
	// Standardization statistics in clustering-feature order, captured at
	// train time so later assignments use the same space.
	featMeans []float64
	featStds  []float64
}

// NewSegmentationModel creates a segmentation model with the built-in
// segment catalog.
func NewSegmentationModel(cfg SegmentationConfig) *SegmentationModel {
	if cfg.K <= 0 {
		cfg.K = 4
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = 100
	}
	if cfg.ConvergenceThreshold <= 0 {
		cfg.ConvergenceThreshold = 1e-4
	}
	if cfg.Seed == 0 {
		cfg.Seed = 42
	}
	segments := defaultSegments()
	sort.Slice(segments, func(i, j int) bool { return segments[i].Priority < segments[j].Priority })
	return &SegmentationModel{
		BaseModel: NewBaseModel("segmentation"),
		config:    cfg,
		segments:  segments,
	}
}

// AssignPredefinedSegments returns every matching segment name in priority
// order.
func (m *SegmentationModel) AssignPredefinedSegments(f features.UserFeatures) []string {
	var matched []string
	for _, s := range m.segments {
		if s.matches(f) {
			matched = append(matched, s.Name)
		}
	}
	return matched
}

// GetPrimarySegment returns the highest-priority matching segment, "" when
// nothing matches.
func (m *SegmentationModel) GetPrimarySegment(f features.UserFeatures) string {
	for _, s := range m.segments {
		if s.matches(f) {
			return s.Name
		}
	}
	return ""
}

// Train clusters the population with k-means. Requires at least K users;
// on failure the previous clusters are left unchanged.
func (m *SegmentationModel) Train(users []features.UserFeatures) error {
	k := m.config.K
	if len(users) < k {
		return fmt.Errorf("train segmentation: %w", insufficientData(len(users), k))
	}

	vectors, means, stds := standardize(users)
	rng := rand.New(rand.NewSource(m.config.Seed)) //nolint:gosec // deterministic clustering, not crypto

	centers := seedKMeansPlusPlus(vectors, k, rng)
	assignments := make([]int, len(vectors))

	for iter := 0; iter < m.config.MaxIterations; iter++ {
		for i, v := range vectors {
			assignments[i] = nearestCenter(v, centers)
		}

		moved := updateCenters(centers, vectors, assignments, rng)
		if moved < m.config.ConvergenceThreshold {
			break
		}
	}

	clusters := make([]Cluster, k)
	for c := range clusters {
		clusters[c] = Cluster{ID: c, Center: centers[c]}
	}
	for i, c := range assignments {
		clusters[c].Size++
		clusters[c].UserIDs = append(clusters[c].UserIDs, users[i].UserID)
	}

	m.mu.Lock()
	m.clusters = clusters
	m.featMeans = means
	m.featStds = stds
	m.markTrained()
	m.mu.Unlock()
	return nil
}

// standardize builds z-scored vectors over the clustering features.
func standardize(users []features.UserFeatures) (vectors [][]float64, means, stds []float64) {
	dims := len(clusteringFeatures)
	means = make([]float64, dims)
	stds = make([]float64, dims)

	raw := make([][]float64, len(users))
	for i, u := range users {
		raw[i] = make([]float64, dims)
		for d, id := range clusteringFeatures {
			raw[i][d] = features.FeatureValue(u, id)
		}
	}

	column := make([]float64, len(users))
	for d := 0; d < dims; d++ {
		for i := range raw {
			column[i] = raw[i][d]
		}
		means[d] = mean(column)
		stds[d] = stddev(column)
		if stds[d] == 0 {
			stds[d] = 1 // constant dimension contributes nothing
		}
	}

	for i := range raw {
		for d := 0; d < dims; d++ {
			raw[i][d] = (raw[i][d] - means[d]) / stds[d]
		}
	}
	return raw, means, stds
}

// seedKMeansPlusPlus picks the first center uniformly at random and each
// subsequent center with probability proportional to squared distance from
// the nearest existing center.
func seedKMeansPlusPlus(vectors [][]float64, k int, rng *rand.Rand) [][]float64 {
	centers := make([][]float64, 0, k)
	centers = append(centers, cloneVector(vectors[rng.Intn(len(vectors))]))

	dists := make([]float64, len(vectors))
	for len(centers) < k {
		var total float64
		for i, v := range vectors {
			d := squaredDistance(v, centers[nearestCenter(v, centers)])
			dists[i] = d
			total += d
		}

		if total == 0 {
			// All points coincide with existing centers; fall back to
			// uniform choice.
			centers = append(centers, cloneVector(vectors[rng.Intn(len(vectors))]))
			continue
		}

		target := rng.Float64() * total
		var cum float64
		chosen := len(vectors) - 1
		for i, d := range dists {
			cum += d
			if cum >= target {
				chosen = i
				break
			}
		}
		centers = append(centers, cloneVector(vectors[chosen]))
	}
	return centers
}

// updateCenters recomputes each center as the mean of its members and
// returns the largest center movement. Empty clusters reseed from a random
// data point rather than being left empty.
func updateCenters(centers, vectors [][]float64, assignments []int, rng *rand.Rand) float64 {
	dims := len(centers[0])
	sums := make([][]float64, len(centers))
	counts := make([]int, len(centers))
	for c := range sums {
		sums[c] = make([]float64, dims)
	}
	for i, c := range assignments {
		counts[c]++
		for d := 0; d < dims; d++ {
			sums[c][d] += vectors[i][d]
		}
	}

	var maxMove float64
	for c := range centers {
		var next []float64
		if counts[c] == 0 {
			next = cloneVector(vectors[rng.Intn(len(vectors))])
		} else {
			next = make([]float64, dims)
			for d := 0; d < dims; d++ {
				next[d] = sums[c][d] / float64(counts[c])
			}
		}
		if move := math.Sqrt(squaredDistance(centers[c], next)); move > maxMove {
			maxMove = move
		}
		centers[c] = next
	}
	return maxMove
}

func nearestCenter(v []float64, centers [][]float64) int {
	best, bestDist := 0, math.Inf(1)
	for c, center := range centers {
		if d := squaredDistance(v, center); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

func squaredDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

func cloneVector(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}

// Clusters returns the fitted clusters.
func (m *SegmentationModel) Clusters() []Cluster {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Cluster, len(m.clusters))
	copy(out, m.clusters)
	return out
}

// AssignCluster returns the nearest fitted cluster id for a user, -1 when
// untrained.
func (m *SegmentationModel) AssignCluster(f features.UserFeatures) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.clusters) == 0 {
		return -1
	}

	v := make([]float64, len(clusteringFeatures))
	for d, id := range clusteringFeatures {
		v[d] = (features.FeatureValue(f, id) - m.featMeans[d]) / m.featStds[d]
	}

	centers := make([][]float64, len(m.clusters))
	for i, c := range m.clusters {
		centers[i] = c.Center
	}
	return m.clusters[nearestCenter(v, centers)].ID
}

// SegmentationState is the serializable parameter state.
type SegmentationState struct {
	Clusters  []Cluster
	FeatMeans []float64
	FeatStds  []float64
}

// State snapshots the trainable parameter state.
func (m *SegmentationModel) State() SegmentationState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st := SegmentationState{
		Clusters:  make([]Cluster, len(m.clusters)),
		FeatMeans: append([]float64(nil), m.featMeans...),
		FeatStds:  append([]float64(nil), m.featStds...),
	}
	copy(st.Clusters, m.clusters)
	return st
}

// Restore replaces the parameter state with a previously saved snapshot.
// A snapshot with no clusters is ignored.
func (m *SegmentationModel) Restore(st SegmentationState) {
	if len(st.Clusters) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clusters = make([]Cluster, len(st.Clusters))
	copy(m.clusters, st.Clusters)
	m.featMeans = append([]float64(nil), st.FeatMeans...)
	m.featStds = append([]float64(nil), st.FeatStds...)
	for len(m.featMeans) < len(clusteringFeatures) {
		m.featMeans = append(m.featMeans, 0)
	}
	for len(m.featStds) < len(clusteringFeatures) {
		m.featStds = append(m.featStds, 1)
	}
	for i, sd := range m.featStds {
		if sd == 0 {
			m.featStds[i] = 1
		}
	}
	m.markTrained()
}
