// Playlens - Game Telemetry Analytics and Behavioral Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlens

package services

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/playlens/internal/logging"
	"github.com/tomtom215/playlens/internal/metrics"
)

// ModelPruner is the subset of the model store the maintenance service
// needs: enumerate stored models and drop stale versions.
//
// Satisfied by *storage.Store from internal/predict/storage.
type ModelPruner interface {
	ModelNames() []string
	Prune(ctx context.Context, name string, keepVersions int) error
}

// ValueLogGC runs BadgerDB value log garbage collection.
//
// Satisfied by *badger.DB. A nil ValueLogGC disables the GC pass, which
// is appropriate for in-memory databases.
type ValueLogGC interface {
	RunValueLogGC(discardRatio float64) error
}

// MaintenanceConfig tunes the periodic store maintenance.
type MaintenanceConfig struct {
	// Interval between maintenance passes. Default: 1h
	Interval time.Duration

	// KeepVersions is how many versions of each model to retain.
	// Default: 3
	KeepVersions int

	// GCRatio is the BadgerDB value log discard ratio. Default: 0.5
	GCRatio float64
}

// StoreMaintenanceService periodically prunes old model versions and runs
// BadgerDB value log garbage collection.
//
// Model training appends a new version on every run, so without pruning
// the store grows without bound. The GC pass reclaims the value log space
// freed by pruning.
type StoreMaintenanceService struct {
	store  ModelPruner
	db     ValueLogGC
	config MaintenanceConfig
	name   string
}

// NewStoreMaintenanceService creates a maintenance service over the model
// store. Pass a nil db to skip value log GC (in-memory BadgerDB).
func NewStoreMaintenanceService(store ModelPruner, db ValueLogGC, config MaintenanceConfig) *StoreMaintenanceService {
	if config.Interval <= 0 {
		config.Interval = time.Hour
	}
	if config.KeepVersions < 1 {
		config.KeepVersions = 3
	}
	if config.GCRatio <= 0 || config.GCRatio > 1 {
		config.GCRatio = 0.5
	}
	return &StoreMaintenanceService{
		store:  store,
		db:     db,
		config: config,
		name:   "store-maintenance",
	}
}

// Serve implements suture.Service.
//
// Runs one maintenance pass per interval until the context is canceled.
// A failed pass is logged and retried on the next tick rather than
// crashing the service; only context cancellation ends the loop.
func (s *StoreMaintenanceService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

// runOnce prunes every stored model, then runs value log GC.
func (s *StoreMaintenanceService) runOnce(ctx context.Context) {
	start := time.Now()
	pruned := 0

	for _, name := range s.store.ModelNames() {
		err := s.store.Prune(ctx, name, s.config.KeepVersions)
		metrics.RecordModelStoreOp("prune", err)
		if err != nil {
			logging.Warn().Err(err).Str("model", name).Msg("Model version pruning failed")
			continue
		}
		pruned++
	}

	s.runGC()

	logging.Debug().
		Int("models", pruned).
		Dur("duration", time.Since(start)).
		Msg("Store maintenance pass completed")
}

// runGC repeats value log GC until BadgerDB reports nothing left to
// rewrite. Each successful call rewrites at most one value log file.
func (s *StoreMaintenanceService) runGC() {
	if s.db == nil {
		return
	}
	for {
		err := s.db.RunValueLogGC(s.config.GCRatio)
		if errors.Is(err, badger.ErrNoRewrite) {
			return
		}
		if err != nil {
			logging.Warn().Err(err).Msg("Value log GC failed")
			return
		}
	}
}

// String implements fmt.Stringer for logging.
func (s *StoreMaintenanceService) String() string {
	return s.name
}
