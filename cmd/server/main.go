// Playlens - Game Telemetry Analytics and Behavioral Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlens

// Package main is the entry point for the Playlens server application.
//
// Playlens is a self-hosted analytics engine for in-browser game telemetry.
// It ingests session-level telemetry datasets (CSV or JSON), extracts
// per-user and aggregate behavioral features, and trains a set of
// predictive models: churn risk, lifetime value, retention, revenue
// forecasting, anomaly detection, and behavioral segmentation.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: Load settings from environment variables and config files (Koanf v2)
//  2. Storage: Open BadgerDB for versioned model persistence
//  3. Prediction Service: Create models and restore the latest trained state
//  4. Supervisor Tree: Storage maintenance and HTTP server under suture v4
//  5. HTTP Server: REST API on port 8600 with Prometheus metrics
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest priority wins):
//   - Environment variables
//   - Config file (config.yaml, or CONFIG_PATH)
//   - Built-in defaults
//
// Common variables:
//   - HTTP_PORT: API listen port (default: 8600)
//   - BADGER_PATH: model store directory (default: /data/playlens)
//   - BADGER_IN_MEMORY=true: run without persistence (development)
//   - TRAIN_ON_LOAD=false: disable automatic training after dataset upload
//   - LOG_LEVEL, LOG_FORMAT: logging configuration
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM:
//   - Stops accepting new connections
//   - Waits for in-flight requests to complete (10s timeout)
//   - Closes the BadgerDB model store
//
// # Example Usage
//
// Development without persistence:
//
//	export BADGER_IN_MEMORY=true
//	export LOG_FORMAT=console
//	./playlens
//
// Production:
//
//	export BADGER_PATH=/data/playlens
//	export CORS_ORIGINS=https://dashboard.example.com
//	./playlens
//
// Docker:
//
//	docker run -d \
//	  -v playlens-data:/data/playlens \
//	  -p 8600:8600 \
//	  ghcr.io/tomtom215/playlens
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/playlens/internal/api"
	"github.com/tomtom215/playlens/internal/config"
	"github.com/tomtom215/playlens/internal/logging"
	"github.com/tomtom215/playlens/internal/predict"
	"github.com/tomtom215/playlens/internal/predict/models"
	"github.com/tomtom215/playlens/internal/predict/storage"
	"github.com/tomtom215/playlens/internal/supervisor"
	"github.com/tomtom215/playlens/internal/supervisor/services"
)

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		// Use default logger for config errors (config not yet available)
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize zerolog with configuration
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().Msg("Starting Playlens with supervisor tree")

	if cfg.Storage.InMemory {
		logging.Warn().Msg("Storage is in-memory (BADGER_IN_MEMORY=true) - trained models will be lost on restart")
	} else {
		logging.Info().
			Str("badger_path", cfg.Storage.Path).
			Int("keep_versions", cfg.Storage.KeepVersions).
			Msg("Configuration loaded")
	}

	// Open BadgerDB for model persistence
	var opts badger.Options
	if cfg.Storage.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(cfg.Storage.Path)
	}
	// Reduce logging verbosity
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open model store")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing model store")
		}
	}()

	store, err := storage.NewStore(db)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize model store")
	}
	logging.Info().Msg("Model store initialized successfully")

	// Build the prediction service from configured model tuning
	svc := predict.NewService(predictConfig(cfg), store)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Restore the latest trained model state, if any. A fresh store is not
	// an error; the service simply starts untrained.
	if err := svc.LoadAll(ctx); err != nil {
		logging.Warn().Err(err).Msg("Failed to restore trained models - starting untrained")
	}

	// Create structured logger for supervisor using our slog adapter
	// This bridges zerolog to slog for sutureslog compatibility
	slogLogger := logging.NewSlogLogger()

	// Create supervisor tree
	tree, err := supervisor.NewSupervisorTree(slogLogger, supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	// Storage layer: periodic model version pruning and value log GC.
	// GC does not apply to in-memory databases.
	var gcDB services.ValueLogGC
	if !cfg.Storage.InMemory {
		gcDB = db
	}
	tree.AddStorageService(services.NewStoreMaintenanceService(store, gcDB, services.MaintenanceConfig{
		KeepVersions: cfg.Storage.KeepVersions,
	}))
	logging.Info().Msg("Store maintenance service added to supervisor tree")

	router := api.NewRouter(svc, cfg)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	// API layer services
	tree.AddAPIService(services.NewAPIServerService(server, cfg.Server))
	logging.Info().Str("addr", server.Addr).Msg("API server service added")

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	// Wait for supervisor to finish (either from signal or error)
	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Wait for the error channel to close (supervisor finished)
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	// Report any services that failed to stop within timeout
	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}

// predictConfig maps the loaded configuration onto the prediction
// service tuning, starting from the model defaults.
func predictConfig(cfg *config.Config) predict.Config {
	pc := predict.DefaultConfig()
	pc.ChurnInactiveHours = cfg.Training.ChurnInactiveHours
	if cfg.Models.ChurnMinSamples > 0 {
		pc.Churn.MinSamples = cfg.Models.ChurnMinSamples
	}
	if cfg.Models.LTVMinSamples > 0 {
		pc.LTV.MinSamples = cfg.Models.LTVMinSamples
	}
	if cfg.Models.AnomalySensitivity != "" {
		pc.Anomaly.Sensitivity = models.Sensitivity(cfg.Models.AnomalySensitivity)
	}
	if cfg.Models.SegmentClusters > 1 {
		pc.Segmentation.K = cfg.Models.SegmentClusters
	}
	return pc
}
