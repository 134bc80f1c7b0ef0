package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourorg/trader-leaderboard/internal/circuitbreaker"
	"github.com/yourorg/trader-leaderboard/internal/config"
	"github.com/yourorg/trader-leaderboard/internal/fetch"
	"github.com/yourorg/trader-leaderboard/internal/model"
	"github.com/yourorg/trader-leaderboard/internal/server"
	"github.com/yourorg/trader-leaderboard/internal/store"
	"github.com/yourorg/trader-leaderboard/internal/telemetry"
	"github.com/yourorg/trader-leaderboard/internal/wallet"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			setupLogging(cfg.Log)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	shutdownTracer := telemetry.InitTracer(cfg.OtelEndpoint)
	defer shutdownTracer()

	var metrics *telemetry.Metrics
	if cfg.Server.EnableMetrics {
		metrics = telemetry.NewMetrics()
	}

	st := newStore(cfg, metrics)
	loadCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	err := st.Load(loadCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("loading leaderboard: %w", err)
	}

	wallets, err := wallet.NewManager(cfg.Wallet)
	if err != nil {
		return err
	}
	srv, err := server.New(*cfg, st, wallets, metrics)
	if err != nil {
		return err
	}

	go st.Run(ctx, cfg.Data.RefreshInterval)
	return srv.Run(ctx)
}

// newStore wires the configured source and breaker into a store that
// reports every load attempt to metrics.
func newStore(cfg *config.Config, metrics *telemetry.Metrics) *store.Store {
	var breaker *circuitbreaker.CircuitBreaker
	if cfg.Breaker.Enabled {
		breaker = circuitbreaker.New(cfg.Breaker.Thresholds).
			WithResetDelay(cfg.Breaker.ResetDelay).
			WithTripCallback(func(reason string, traders []model.Trader) {
				logrus.WithFields(logrus.Fields{
					"reason":  reason,
					"traders": len(traders),
				}).Warn("Keeping previous leaderboard snapshot")
			})
	}

	source := fetch.NewSource(cfg.Data)
	logrus.WithField("source", source.Name()).Info("Trader source configured")

	return store.New(source, breaker).WithRefreshHook(func(snap *store.Snapshot, err error) {
		traders := 0
		if snap != nil {
			traders = snap.Len()
		}
		metrics.ObserveRefresh(traders, err)
		if breaker != nil {
			metrics.SetBreakerState(int(breaker.GetState()))
		}
	})
}
