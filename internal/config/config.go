// Playlens - Game Telemetry Analytics and Behavioral Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlens

// Package config loads and validates the Playlens configuration.
//
// Configuration is layered with koanf: built-in defaults, then an
// optional YAML config file, then environment variables. Environment
// variables take the highest precedence.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Storage  StorageConfig  `koanf:"storage"`
	Training TrainingConfig `koanf:"training"`
	Models   ModelsConfig   `koanf:"models"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`

	// ShutdownTimeout bounds the graceful drain of in-flight requests
	// when the server stops.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// MaxUploadBytes caps the request body size for dataset uploads.
	MaxUploadBytes int64 `koanf:"max_upload_bytes"`

	// RateLimitReqs requests per RateLimitWindow per client IP. Zero
	// disables rate limiting.
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`

	CORSOrigins []string `koanf:"cors_origins"`
}

// StorageConfig configures model persistence.
type StorageConfig struct {
	// Path is the BadgerDB directory. Ignored when InMemory is set.
	Path string `koanf:"path"`

	// InMemory runs BadgerDB without persistence; model state is lost on
	// restart.
	InMemory bool `koanf:"in_memory"`

	// KeepVersions is how many model versions to retain when pruning.
	KeepVersions int `koanf:"keep_versions"`
}

// TrainingConfig configures training orchestration.
type TrainingConfig struct {
	// Timeout bounds a full training run.
	Timeout time.Duration `koanf:"timeout"`

	// TrainOnLoad starts a training run whenever a dataset is loaded.
	TrainOnLoad bool `koanf:"train_on_load"`

	// ChurnInactiveHours is the inactivity window after which a user is
	// labeled churned for training.
	ChurnInactiveHours float64 `koanf:"churn_inactive_hours"`
}

// ModelsConfig carries per-model tuning.
type ModelsConfig struct {
	// ChurnMinSamples is the minimum labeled sample count for churn
	// training.
	ChurnMinSamples int `koanf:"churn_min_samples"`

	// LTVMinSamples is the minimum sample count for LTV training.
	LTVMinSamples int `koanf:"ltv_min_samples"`

	// AnomalySensitivity selects the detection threshold: low, medium,
	// or high.
	AnomalySensitivity string `koanf:"anomaly_sensitivity"`

	// SegmentClusters is the k for behavioral clustering.
	SegmentClusters int `koanf:"segment_clusters"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns the built-in defaults, applied before the config
// file and environment layers.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8600,
			Timeout:         30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxUploadBytes:  64 << 20, // 64MB
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Storage: StorageConfig{
			Path:         "/data/playlens",
			InMemory:     false,
			KeepVersions: 3,
		},
		Training: TrainingConfig{
			Timeout:            10 * time.Minute,
			TrainOnLoad:        true,
			ChurnInactiveHours: 336,
		},
		Models: ModelsConfig{
			ChurnMinSamples:    500,
			LTVMinSamples:      100,
			AnomalySensitivity: "medium",
			SegmentClusters:    4,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive")
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("server.max_upload_bytes must be positive")
	}
	if c.Server.RateLimitReqs < 0 {
		return fmt.Errorf("server.rate_limit_reqs must not be negative")
	}
	if !c.Storage.InMemory && c.Storage.Path == "" {
		return fmt.Errorf("storage.path required unless storage.in_memory is set")
	}
	if c.Storage.KeepVersions < 1 {
		return fmt.Errorf("storage.keep_versions must be at least 1")
	}
	if c.Training.Timeout <= 0 {
		return fmt.Errorf("training.timeout must be positive")
	}
	if c.Training.ChurnInactiveHours <= 0 {
		return fmt.Errorf("training.churn_inactive_hours must be positive")
	}
	switch c.Models.AnomalySensitivity {
	case "low", "medium", "high":
	default:
		return fmt.Errorf("models.anomaly_sensitivity %q not one of low, medium, high", c.Models.AnomalySensitivity)
	}
	if c.Models.SegmentClusters < 2 {
		return fmt.Errorf("models.segment_clusters must be at least 2")
	}
	return nil
}
