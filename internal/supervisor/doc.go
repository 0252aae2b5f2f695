// Playlens - Game Telemetry Analytics and Behavioral Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlens

/*
Package supervisor provides process supervision for Playlens using suture v4.

This package implements a hierarchical supervisor tree that manages the lifecycle
of the long-running services in the application. It provides Erlang/OTP-style
supervision with automatic restart, failure isolation, and graceful shutdown.

# Overview

The supervisor tree organizes services into two layers for failure isolation:

	RootSupervisor ("playlens")
	├── StorageSupervisor ("storage-layer")
	│   └── StoreMaintenanceService
	└── APISupervisor ("api-layer")
	    └── APIServerService

This hierarchy ensures that a failure in storage maintenance (version
pruning, BadgerDB value log GC) never takes the HTTP API down with it, and
each layer restarts independently.

# Key Features

Automatic Restart:
  - Crashed services are automatically restarted
  - Exponential backoff prevents restart storms
  - Configurable failure thresholds and decay rates

Graceful Shutdown:
  - Context cancellation triggers orderly shutdown
  - Configurable shutdown timeout per service
  - UnstoppedServiceReport for debugging hangs

Structured Logging:
  - Integration with slog for structured events
  - Logs service starts, stops, failures, and restarts
  - Event hooks via sutureslog adapter

# Usage Example

Basic setup in main.go:

	import (
	    "github.com/tomtom215/playlens/internal/supervisor"
	    "github.com/tomtom215/playlens/internal/supervisor/services"
	)

	func main() {
	    logger := logging.NewSlogLogger()
	    tree, err := supervisor.NewSupervisorTree(logger, supervisor.DefaultTreeConfig())
	    if err != nil {
	        logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	    }

	    tree.AddStorageService(services.NewStoreMaintenanceService(store, db, maintCfg))
	    tree.AddAPIService(services.NewAPIServerService(server, cfg.Server))

	    ctx, cancel := context.WithCancel(context.Background())
	    defer cancel()
	    errCh := tree.ServeBackground(ctx)
	    ...
	}

# Failure Semantics

A service returning a non-nil error (other than suture.ErrDoNotRestart) is
restarted by its parent supervisor. When a layer's failure count exceeds
FailureThreshold, the layer enters FailureBackoff before attempting further
restarts. Failure counts decay at FailureDecay per second, so an occasional
crash never accumulates into a backoff.

Services are expected to honor context cancellation: Serve(ctx) must return
promptly (within ShutdownTimeout) once ctx is done, returning ctx.Err() for
a clean stop.
*/
package supervisor
