// Playlens - Game Telemetry Analytics and Behavioral Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlens

/*
Package services provides suture.Service wrappers for Playlens components.

Each wrapper adapts a component's natural lifecycle to suture's single
Serve(ctx) method so the supervisor tree can manage it: start the
component, block until the context is canceled, shut the component down,
and return ctx.Err() for a clean stop.

# Services

APIServerService wraps the REST API's *http.Server. It runs the blocking
ListenAndServe call in a goroutine, and on context cancellation performs
a graceful drain of in-flight requests bounded by the shutdown timeout
from the server configuration.

StoreMaintenanceService owns the periodic housekeeping of the BadgerDB
model store: pruning stale model versions down to the configured
retention and running value log garbage collection to reclaim the space.
A failed pass is logged and retried on the next tick; the service only
exits on context cancellation.

# Testing

Every wrapper depends on a small interface rather than the concrete
component (HTTPServer, ModelPruner, ValueLogGC), so the tests exercise
lifecycle behavior with in-package mocks and never open sockets or
databases.

# Error Handling

A wrapper returning a non-nil error causes suture to restart it with the
supervisor's backoff policy. Wrappers therefore distinguish fatal errors
(failed to bind the listen address) from routine ones (a single pruning
pass failing), returning only the former.
*/
package services
