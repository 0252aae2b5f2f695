// Playlens - Game Telemetry Analytics and Behavioral Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlens

package predict

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/playlens/internal/dataset"
	"github.com/tomtom215/playlens/internal/features"
	"github.com/tomtom215/playlens/internal/logging"
	"github.com/tomtom215/playlens/internal/predict/models"
	"github.com/tomtom215/playlens/internal/predict/storage"
)

// anomalyMetrics are the aggregate series the anomaly model watches.
var anomalyMetrics = []string{
	features.MetricDAU,
	features.MetricRevenue,
	features.MetricSessions,
}

// Service owns the feature extractor and the prediction models.
type Service struct {
	config Config
	logger zerolog.Logger
	store  *storage.Store // nil disables persistence

	mu        sync.RWMutex // guards extractor
	extractor *features.Extractor

	churn        *models.ChurnPredictor
	ltv          *models.LTVPredictor
	retention    *models.RetentionPredictor
	revenue      *models.RevenueForecaster
	anomaly      *models.AnomalyModel
	segmentation *models.SegmentationModel

	trainMu  sync.Mutex
	statusMu sync.RWMutex
	status   TrainingStatus
}

// NewService creates a service with fresh untrained models. A nil store
// disables persistence.
func NewService(cfg Config, store *storage.Store) *Service {
	if cfg.ChurnInactiveHours <= 0 {
		cfg.ChurnInactiveHours = 336
	}
	return &Service{
		config:       cfg,
		logger:       logging.WithComponent("predict"),
		store:        store,
		churn:        models.NewChurnPredictor(cfg.Churn),
		ltv:          models.NewLTVPredictor(cfg.LTV),
		retention:    models.NewRetentionPredictor(cfg.Retention),
		revenue:      models.NewRevenueForecaster(cfg.Revenue),
		anomaly:      models.NewAnomalyModel(cfg.Anomaly),
		segmentation: models.NewSegmentationModel(cfg.Segmentation),
	}
}

// LoadDataset replaces the active dataset. The feature extractor and its
// per-user index are rebuilt; trained model state is retained.
func (s *Service) LoadDataset(ds *dataset.Dataset, opts ...features.Option) {
	extractor := features.NewExtractor(ds, opts...)

	s.mu.Lock()
	s.extractor = extractor
	s.mu.Unlock()

	s.logger.Info().
		Int("rows", ds.Len()).
		Int("users", len(extractor.UserIDs())).
		Msg("dataset loaded")
}

func (s *Service) currentExtractor() (*features.Extractor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.extractor == nil {
		return nil, ErrNoDataset
	}
	return s.extractor, nil
}

// userFeatures resolves a user against the active dataset.
func (s *Service) userFeatures(userID string) (features.UserFeatures, error) {
	ex, err := s.currentExtractor()
	if err != nil {
		return features.UserFeatures{}, err
	}
	if ex.UserRowCount(userID) == 0 {
		return features.UserFeatures{}, fmt.Errorf("user %q: %w", userID, ErrUnknownUser)
	}
	return ex.ExtractUserFeatures(userID), nil
}

// UserFeatures returns the extracted features for one user.
func (s *Service) UserFeatures(userID string) (features.UserFeatures, error) {
	return s.userFeatures(userID)
}

// Users returns the ids of all users in the active dataset.
func (s *Service) Users() ([]string, error) {
	ex, err := s.currentExtractor()
	if err != nil {
		return nil, err
	}
	return ex.UserIDs(), nil
}

// Aggregate returns dataset-wide metrics.
func (s *Service) Aggregate() (features.AggregateFeatures, error) {
	ex, err := s.currentExtractor()
	if err != nil {
		return features.AggregateFeatures{}, err
	}
	return ex.ExtractAggregateFeatures(), nil
}

// PredictChurn scores one user's churn risk.
func (s *Service) PredictChurn(userID string) (models.ChurnPrediction, error) {
	f, err := s.userFeatures(userID)
	if err != nil {
		return models.ChurnPrediction{}, err
	}
	return s.churn.Predict(f), nil
}

// PredictLTV projects one user's lifetime value. Users who purchased
// within their first week get the early-spender projection.
func (s *Service) PredictLTV(userID string) (models.LTVPrediction, error) {
	f, err := s.userFeatures(userID)
	if err != nil {
		return models.LTVPrediction{}, err
	}
	return s.ltv.PredictEarlyLTV(f), nil
}

// Segments assigns one user to predefined segments and, when clustering
// has been trained, a behavioral cluster.
func (s *Service) Segments(userID string) (SegmentAssignment, error) {
	f, err := s.userFeatures(userID)
	if err != nil {
		return SegmentAssignment{}, err
	}
	return SegmentAssignment{
		UserID:   userID,
		Primary:  s.segmentation.GetPrimarySegment(f),
		Segments: s.segmentation.AssignPredefinedSegments(f),
		Cluster:  s.segmentation.AssignCluster(f),
	}, nil
}

// Clusters returns the fitted behavioral clusters.
func (s *Service) Clusters() []models.Cluster {
	return s.segmentation.Clusters()
}

// PredictRetention projects the retention rate at a day offset.
func (s *Service) PredictRetention(day int) (models.Prediction, error) {
	if !s.retention.IsTrained() {
		return models.Prediction{}, fmt.Errorf("retention: %w", ErrNotTrained)
	}
	return s.retention.Predict(day), nil
}

// RetentionCurve returns the observed retention curve.
func (s *Service) RetentionCurve() []models.RetentionPoint {
	return s.retention.Curve()
}

// ForecastRevenue projects daily revenue over the next `days` days.
func (s *Service) ForecastRevenue(days int) ([]models.RevenueForecast, error) {
	if !s.revenue.IsTrained() {
		return nil, fmt.Errorf("revenue: %w", ErrNotTrained)
	}
	return s.revenue.Forecast(days), nil
}

// WhatIf projects a revenue scenario against the trained baseline.
func (s *Service) WhatIf(scenario models.WhatIfScenario) (models.WhatIfResult, error) {
	if !s.revenue.IsTrained() {
		return models.WhatIfResult{}, fmt.Errorf("revenue: %w", ErrNotTrained)
	}
	return s.revenue.WhatIf(scenario), nil
}

// DetectAnomalies analyzes the aggregate metric series for point
// anomalies, trend breaks, and pattern changes.
func (s *Service) DetectAnomalies() ([]models.Anomaly, error) {
	ex, err := s.currentExtractor()
	if err != nil {
		return nil, err
	}

	var out []models.Anomaly
	for _, metric := range anomalyMetrics {
		points, err := ex.ExtractTimeSeries(metric)
		if err != nil {
			s.logger.Warn().Str("metric", metric).Err(err).Msg("metric series unavailable")
			continue
		}
		out = append(out, s.anomaly.AnalyzeTimeSeries(metric, points)...)
	}
	return out, nil
}

// ObserveMetric feeds one live observation to the anomaly detector.
func (s *Service) ObserveMetric(metric string, value float64, ts time.Time) *models.Anomaly {
	return s.anomaly.Detect(metric, value, ts)
}

// AnomalyHistory returns recent anomalies, newest last.
func (s *Service) AnomalyHistory() []models.Anomaly {
	return s.anomaly.History()
}

// EvaluateChurn scores the churn classifier against the labels derived
// from the active dataset.
func (s *Service) EvaluateChurn() (models.ChurnEvaluation, error) {
	ex, err := s.currentExtractor()
	if err != nil {
		return models.ChurnEvaluation{}, err
	}
	if !s.churn.IsTrained() {
		return models.ChurnEvaluation{}, fmt.Errorf("churn: %w", ErrNotTrained)
	}
	return s.churn.Evaluate(s.churnSamples(ex.ExtractAllUserFeatures())), nil
}

// Status returns the current training status.
func (s *Service) Status() TrainingStatus {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return s.status
}

// churnSamples labels extracted features for churn training: a user is
// churned once inactive past the configured window.
func (s *Service) churnSamples(all []features.UserFeatures) []models.ChurnSample {
	samples := make([]models.ChurnSample, len(all))
	for i, f := range all {
		samples[i] = models.ChurnSample{
			Features: f,
			Churned:  f.LastSessionHoursAgo >= s.config.ChurnInactiveHours,
		}
	}
	return samples
}

// ltvSamples labels extracted features with observed spend.
func ltvSamples(all []features.UserFeatures) []models.LTVSample {
	samples := make([]models.LTVSample, len(all))
	for i, f := range all {
		samples[i] = models.LTVSample{Features: f, ActualLTV: f.TotalSpend}
	}
	return samples
}

// retentionPoints builds the observed curve from aggregate retention.
func retentionPoints(agg features.AggregateFeatures) []models.RetentionPoint {
	return []models.RetentionPoint{
		{Day: 1, Rate: agg.RetentionD1},
		{Day: 7, Rate: agg.RetentionD7},
		{Day: 30, Rate: agg.RetentionD30},
	}
}

// TrainAll trains every model concurrently over the active dataset.
// Individual model failures don't stop the run; each model's outcome is
// reported. Only one run may be active at a time.
func (s *Service) TrainAll(ctx context.Context) (TrainingReport, error) {
	if !s.trainMu.TryLock() {
		return TrainingReport{}, ErrTrainingInProgress
	}
	defer s.trainMu.Unlock()

	ex, err := s.currentExtractor()
	if err != nil {
		return TrainingReport{}, err
	}
	if err := ctx.Err(); err != nil {
		return TrainingReport{}, err
	}

	report := TrainingReport{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}

	s.setStatus(func(st *TrainingStatus) {
		st.Training = true
		st.LastRunID = report.RunID
		st.LastError = ""
	})

	logger := s.logger.With().Str("run_id", report.RunID).Logger()
	logger.Info().Msg("starting model training")

	allFeatures := ex.ExtractAllUserFeatures()
	agg := ex.ExtractAggregateFeatures()
	report.Users = agg.TotalUsers
	report.Rows = agg.TotalRows

	revenuePoints := ex.ExtractRevenueDataPoints()
	series := make(map[string][]features.TimePoint, len(anomalyMetrics))
	for _, metric := range anomalyMetrics {
		points, err := ex.ExtractTimeSeries(metric)
		if err != nil {
			logger.Warn().Str("metric", metric).Err(err).Msg("metric series unavailable")
			continue
		}
		series[metric] = points
	}

	jobs := []struct {
		name  string
		train func() error
	}{
		{"churn", func() error { return s.churn.Train(s.churnSamples(allFeatures)) }},
		{"ltv", func() error { return s.ltv.Train(ltvSamples(allFeatures)) }},
		{"retention", func() error { return s.retention.Train(retentionPoints(agg)) }},
		{"revenue", func() error { return s.revenue.Train(revenuePoints) }},
		{"segmentation", func() error { return s.segmentation.Train(allFeatures) }},
		{"anomaly", func() error { return s.trainAnomaly(series) }},
	}

	report.Outcomes = make([]ModelOutcome, len(jobs))
	var wg sync.WaitGroup
	for i, job := range jobs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			outcome := ModelOutcome{Model: job.name, Trained: true}
			if err := job.train(); err != nil {
				outcome.Trained = false
				outcome.Error = err.Error()
				logger.Warn().Str("model", job.name).Err(err).Msg("model training failed")
			} else {
				logger.Debug().Str("model", job.name).Msg("model training complete")
			}
			outcome.DurationMS = time.Since(start).Milliseconds()
			report.Outcomes[i] = outcome
		}()
	}
	wg.Wait()

	report.DurationMS = time.Since(report.StartedAt).Milliseconds()

	s.setStatus(func(st *TrainingStatus) {
		st.Training = false
		st.LastTrainedAt = time.Now()
		st.LastDurationMS = report.DurationMS
		st.Users = report.Users
		st.Rows = report.Rows
	})

	logger.Info().
		Int("users", report.Users).
		Int("rows", report.Rows).
		Int64("duration_ms", report.DurationMS).
		Msg("model training complete")
	return report, nil
}

// trainAnomaly trains per-metric profiles; one metric succeeding is
// enough for the model to count as trained.
func (s *Service) trainAnomaly(series map[string][]features.TimePoint) error {
	var firstErr error
	var trained int
	for metric, points := range series {
		if _, err := s.anomaly.TrainMetric(metric, points); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("metric %s: %w", metric, err)
			}
			continue
		}
		trained++
	}
	if trained == 0 {
		if firstErr != nil {
			return firstErr
		}
		return fmt.Errorf("anomaly: no metric series available")
	}
	return nil
}

func (s *Service) setStatus(update func(*TrainingStatus)) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	update(&s.status)
}

// SaveAll persists every trained model's state. Untrained models are
// skipped.
func (s *Service) SaveAll(ctx context.Context) error {
	if s.store == nil {
		return nil
	}

	var users int
	if ex, err := s.currentExtractor(); err == nil {
		users = len(ex.UserIDs())
	}

	type snapshot struct {
		name      string
		trained   bool
		trainedAt time.Time
		state     any
	}
	snapshots := []snapshot{
		{"churn", s.churn.IsTrained(), s.churn.LastTrainedAt(), s.churn.State()},
		{"ltv", s.ltv.IsTrained(), s.ltv.LastTrainedAt(), s.ltv.State()},
		{"retention", s.retention.IsTrained(), s.retention.LastTrainedAt(), s.retention.State()},
		{"revenue", s.revenue.IsTrained(), s.revenue.LastTrainedAt(), s.revenue.State()},
		{"anomaly", s.anomaly.IsTrained(), s.anomaly.LastTrainedAt(), s.anomaly.State()},
		{"segmentation", s.segmentation.IsTrained(), s.segmentation.LastTrainedAt(), s.segmentation.State()},
	}

	for _, snap := range snapshots {
		if !snap.trained {
			continue
		}
		version, err := s.store.Save(ctx, snap.name, 0, snap.state, storage.ModelMetadata{
			TrainedAt: snap.trainedAt,
			UserCount: users,
		})
		if err != nil {
			return fmt.Errorf("save %s: %w", snap.name, err)
		}
		s.logger.Debug().Str("model", snap.name).Int("version", version).Msg("model saved")
	}
	return nil
}

// LoadAll restores every model from its latest stored state. A model
// whose state is missing or corrupt starts untrained; this is logged,
// not fatal.
func (s *Service) LoadAll(ctx context.Context) error {
	if s.store == nil {
		return nil
	}

	restore := func(name string, load func() error) {
		if err := load(); err != nil {
			s.logger.Warn().Str("model", name).Err(err).Msg("stored model unavailable, starting untrained")
			return
		}
		s.logger.Debug().Str("model", name).Msg("model restored")
	}

	restore("churn", func() error {
		var st models.ChurnState
		if _, err := s.store.Load(ctx, "churn", 0, &st); err != nil {
			return err
		}
		s.churn.Restore(st)
		return nil
	})
	restore("ltv", func() error {
		var st models.LTVState
		if _, err := s.store.Load(ctx, "ltv", 0, &st); err != nil {
			return err
		}
		s.ltv.Restore(st)
		return nil
	})
	restore("retention", func() error {
		var st models.RetentionState
		if _, err := s.store.Load(ctx, "retention", 0, &st); err != nil {
			return err
		}
		s.retention.Restore(st)
		return nil
	})
	restore("revenue", func() error {
		var st models.RevenueState
		if _, err := s.store.Load(ctx, "revenue", 0, &st); err != nil {
			return err
		}
		s.revenue.Restore(st)
		return nil
	})
	restore("anomaly", func() error {
		var st models.AnomalyState
		if _, err := s.store.Load(ctx, "anomaly", 0, &st); err != nil {
			return err
		}
		s.anomaly.Restore(st)
		return nil
	})
	restore("segmentation", func() error {
		var st models.SegmentationState
		if _, err := s.store.Load(ctx, "segmentation", 0, &st); err != nil {
			return err
		}
		s.segmentation.Restore(st)
		return nil
	})
	return nil
}

// ModelVersions lists persisted model metadata.
func (s *Service) ModelVersions(ctx context.Context) ([]storage.ModelMetadata, error) {
	if s.store == nil {
		return nil, nil
	}
	return s.store.List(ctx)
}
