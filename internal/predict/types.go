// Playlens - Game Telemetry Analytics and Behavioral Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlens

package predict

import (
	"errors"
	"time"

	"github.com/tomtom215/playlens/internal/predict/models"
)

var (
	// ErrNoDataset is returned by operations that need telemetry before a
	// dataset has been loaded.
	ErrNoDataset = errors.New("no dataset loaded")

	// ErrUnknownUser is returned when a user id does not appear in the
	// loaded dataset.
	ErrUnknownUser = errors.New("unknown user")

	// ErrTrainingInProgress is returned when a training run is requested
	// while another is still running.
	ErrTrainingInProgress = errors.New("training already in progress")

	// ErrNotTrained is returned by operations that need a trained model.
	ErrNotTrained = errors.New("model not trained")
)

// Config tunes the service and its models.
type Config struct {
	// ChurnInactiveHours is the inactivity window after which a user is
	// labeled churned for training purposes.
	ChurnInactiveHours float64

	Churn        models.ChurnConfig
	LTV          models.LTVConfig
	Revenue      models.RevenueConfig
	Retention    models.RetentionConfig
	Segmentation models.SegmentationConfig
	Anomaly      models.AnomalyConfig
}

// DefaultConfig returns the standard service tuning.
func DefaultConfig() Config {
	return Config{
		ChurnInactiveHours: 336, // two weeks
		Churn:              models.DefaultChurnConfig(),
		LTV:                models.DefaultLTVConfig(),
		Revenue:            models.DefaultRevenueConfig(),
		Retention:          models.DefaultRetentionConfig(),
		Segmentation:       models.DefaultSegmentationConfig(),
		Anomaly:            models.DefaultAnomalyConfig(),
	}
}

// ModelOutcome reports one model's result within a training run.
type ModelOutcome struct {
	Model      string `json:"model"`
	Trained    bool   `json:"trained"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// TrainingReport summarizes one training run across all models.
type TrainingReport struct {
	RunID      string         `json:"run_id"`
	StartedAt  time.Time      `json:"started_at"`
	DurationMS int64          `json:"duration_ms"`
	Users      int            `json:"users"`
	Rows       int            `json:"rows"`
	Outcomes   []ModelOutcome `json:"outcomes"`
}

// TrainingStatus is the service's current training state.
type TrainingStatus struct {
	Training       bool      `json:"training"`
	LastRunID      string    `json:"last_run_id,omitempty"`
	LastTrainedAt  time.Time `json:"last_trained_at"`
	LastDurationMS int64     `json:"last_duration_ms"`
	LastError      string    `json:"last_error,omitempty"`
	Users          int       `json:"users"`
	Rows           int       `json:"rows"`
}

// SegmentAssignment is the segmentation output for one user.
type SegmentAssignment struct {
	UserID   string   `json:"user_id"`
	Primary  string   `json:"primary,omitempty"`
	Segments []string `json:"segments,omitempty"`

	// Cluster is the behavioral cluster id, -1 when clustering has not
	// been trained.
	Cluster int `json:"cluster"`
}
