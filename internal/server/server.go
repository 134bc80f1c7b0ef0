// Package server exposes the leaderboard views over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/yourorg/trader-leaderboard/internal/config"
	"github.com/yourorg/trader-leaderboard/internal/store"
	"github.com/yourorg/trader-leaderboard/internal/table"
	"github.com/yourorg/trader-leaderboard/internal/telemetry"
	"github.com/yourorg/trader-leaderboard/internal/wallet"
)

// Version is reported by /health and /status.
const Version = "1.0.0"

// Server is the HTTP front of the leaderboard.
type Server struct {
	cfg     config.Config
	store   *store.Store
	wallets *wallet.Manager
	metrics *telemetry.Metrics
	views   *registry
	policy  table.GatePolicy
	limiter *rate.Limiter

	startTime  time.Time
	httpServer *http.Server
}

// New creates a server over a loaded store. metrics may be nil.
func New(cfg config.Config, st *store.Store, wallets *wallet.Manager, metrics *telemetry.Metrics) (*Server, error) {
	if st == nil {
		return nil, errors.New("server: store is required")
	}
	if wallets == nil {
		return nil, errors.New("server: wallet manager is required")
	}
	policy, err := table.ParseGatePolicy(cfg.Views.GatedActions)
	if err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}

	s := &Server{
		cfg:       cfg,
		store:     st,
		wallets:   wallets,
		metrics:   metrics,
		views:     newRegistry(cfg.Views.TTL, cfg.Views.Capacity),
		policy:    policy,
		startTime: time.Now(),
	}
	s.views.onChange = metrics.SetViews
	if cfg.Server.RateLimitRPS > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.Server.RateLimitRPS), cfg.Server.RateLimitBurst)
	}

	logrus.WithFields(logrus.Fields{
		"port":          cfg.Server.Port,
		"gated_actions": cfg.Views.GatedActions,
		"view_capacity": cfg.Views.Capacity,
		"view_ttl":      cfg.Views.TTL,
		"metrics":       cfg.Server.EnableMetrics,
	}).Info("Server initialized")
	return s, nil
}

// Handler builds the routed handler with its middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	s.route(mux, "GET /health", s.handleHealth)
	s.route(mux, "GET /status", s.handleStatus)
	s.route(mux, "GET /metrics", s.handleMetrics)
	s.route(mux, "GET /circuit", s.handleCircuitStatus)
	s.route(mux, "POST /circuit/reset", s.handleCircuitReset)
	s.route(mux, "POST /api/refresh", s.handleRefresh)

	s.route(mux, "GET /api/traders", s.handleListTraders)
	s.route(mux, "GET /api/traders/{id}", s.handleGetTrader)
	s.route(mux, "GET /api/traders/{id}/trades", s.handleListTrades)

	s.route(mux, "POST /api/views", s.handleCreateView)
	s.route(mux, "GET /api/views/{id}", s.handleGetView)
	s.route(mux, "POST /api/views/{id}/actions", s.handleViewAction)
	s.route(mux, "DELETE /api/views/{id}", s.handleDeleteView)

	s.route(mux, "POST /api/wallet/challenge", s.handleWalletChallenge)
	s.route(mux, "POST /api/wallet/connect", s.handleWalletConnect)
	s.route(mux, "POST /api/wallet/disconnect", s.handleWalletDisconnect)
	s.route(mux, "GET /api/wallet/session", s.handleWalletSession)

	var h http.Handler = mux
	if s.cfg.Server.RequestTimeout > 0 {
		h = http.TimeoutHandler(h, s.cfg.Server.RequestTimeout, "request timed out")
	}
	h = rateLimitMiddleware(s.limiter, h)
	h = corsMiddleware(s.cfg.Server.AllowedOrigins, h)
	return requestIDMiddleware(h)
}

func (s *Server) route(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.Handle(pattern, s.instrument(pattern, h))
}

// gate builds the gate for a new view. Denials are counted and logged.
func (s *Server) gate() *table.Gate {
	return table.NewGate(s.policy).WithDeniedHook(func(action table.ActionType) {
		s.metrics.GateDenied(string(action))
		logrus.WithField("action", action).Debug("Gated action denied, wallet not connected")
	})
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         ":" + s.cfg.Server.Port,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logrus.Infof("Server starting on port %s", s.cfg.Server.Port)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("error starting server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logrus.Info("Server shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logrus.Info("Server stopped")
	return nil
}
