// Playlens - Game Telemetry Analytics and Behavioral Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlens

package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/playlens/internal/config"
	"github.com/tomtom215/playlens/internal/logging"
)

// HTTPServer matches the *http.Server lifecycle methods the wrapper
// needs, so tests can substitute a stub without opening sockets.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// APIServerService runs the Playlens REST API as a supervised service.
//
// It translates http.Server's blocking ListenAndServe pattern into
// suture's context-aware Serve pattern: the listen loop runs in a
// goroutine, and context cancellation triggers a graceful drain of
// in-flight requests bounded by the configured shutdown timeout.
type APIServerService struct {
	server       HTTPServer
	addr         string
	drainTimeout time.Duration
	logger       zerolog.Logger
}

// NewAPIServerService wraps the API server. The listen address and the
// drain timeout come from the server configuration; a non-positive
// ShutdownTimeout falls back to 10s.
func NewAPIServerService(server HTTPServer, cfg config.ServerConfig) *APIServerService {
	drain := cfg.ShutdownTimeout
	if drain <= 0 {
		drain = 10 * time.Second
	}
	return &APIServerService{
		server:       server,
		addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		drainTimeout: drain,
		logger:       logging.WithComponent("api"),
	}
}

// Serve implements suture.Service.
//
// Returns nil on a clean external close, ctx.Err() after a graceful
// drain, or a wrapped error if the server fails to start or to drain.
// http.ErrServerClosed is the expected result of Shutdown and is never
// surfaced as a failure.
func (s *APIServerService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	s.logger.Info().Str("addr", s.addr).Msg("API server listening")

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("api server failed: %w", err)
		}
		return nil

	case <-ctx.Done():
		// The serve context is already canceled; the drain gets its own
		// deadline.
		drainCtx, cancel := context.WithTimeout(context.Background(), s.drainTimeout)
		defer cancel()

		s.logger.Info().Dur("drain_timeout", s.drainTimeout).Msg("API server draining")
		if err := s.server.Shutdown(drainCtx); err != nil {
			return fmt.Errorf("api server drain failed: %w", err)
		}

		// Wait for the listen goroutine to observe the close.
		<-errCh
		return ctx.Err()
	}
}

// String implements fmt.Stringer for supervisor logging.
func (s *APIServerService) String() string {
	return "playlens-api"
}
