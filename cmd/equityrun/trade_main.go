package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/equityrun/equityrun/internal/application"
	"github.com/equityrun/equityrun/internal/cache"
	"github.com/equityrun/equityrun/internal/config"
	"github.com/equityrun/equityrun/internal/feed"
	httpapi "github.com/equityrun/equityrun/internal/interfaces/http"
	"github.com/equityrun/equityrun/internal/notify"
	"github.com/equityrun/equityrun/internal/persistence"
	"github.com/equityrun/equityrun/internal/persistence/postgres"
	"github.com/equityrun/equityrun/internal/scheduler"
)

func newTradeCmd() *cobra.Command {
	var useStream bool
	cmd := &cobra.Command{
		Use:   "trade",
		Short: "Run the live paper-trading session",
		Long: `Starts the scheduler-driven paper-trading loop: fetch snapshots for the
watchlist, classify the regime, score signals, evaluate exits and entries,
persist and announce the results. Runs until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrade(useStream)
		},
	}
	cmd.Flags().BoolVar(&useStream, "stream", false, "consume the websocket feed instead of polling")
	return cmd
}

func runTrade(useStream bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	var regimes *cache.RegimeCache
	if cfg.Redis.Addr != "" {
		regimes, err = cache.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.TTL.D())
		if err != nil {
			return fmt.Errorf("regime cache: %w", err)
		}
		defer regimes.Close()
	}

	source, startFeed := buildSource(cfg, useStream)
	if startFeed != nil {
		go startFeed(ctx)
	}

	sess, err := application.NewSession(cfg, source, store, regimes, notify.LogNotifier{})
	if err != nil {
		return err
	}
	log.Info().Str("session", sess.ID()).Int("watchlist", len(cfg.Watchlist)).Msg("paper session ready")

	metrics := httpapi.NewMetrics()
	monitor := httpapi.NewServer(cfg.Monitor.ListenAddr, sess, store, metrics)
	go func() {
		if err := monitor.Start(); err != nil {
			log.Error().Err(err).Msg("monitor server stopped")
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = monitor.Shutdown(shutdownCtx)
	}()

	wasHalted := false
	cycle := func(ctx context.Context) error {
		start := time.Now()
		report, err := sess.RunCycle(ctx)
		if err != nil {
			return err
		}
		metrics.ObserveCycle(report, time.Since(start).Seconds())
		snap := sess.Engine().Snapshot(report.Timestamp)
		metrics.Equity.Set(snap.Equity)
		metrics.OpenPositions.Set(float64(snap.OpenPositions))
		metrics.DailyPnL.Set(snap.DailyPnL)
		if report.Halted && !wasHalted {
			metrics.Halts.Inc()
		}
		wasHalted = report.Halted
		return nil
	}

	sched := scheduler.New(
		scheduler.Job{
			Name:     "trade.cycle",
			Interval: cfg.Scheduler.CycleInterval.D(),
			Run:      cycle,
		},
		scheduler.Job{
			Name:     "regime.refresh",
			Interval: cfg.Scheduler.RegimeInterval.D(),
			Run: func(ctx context.Context) error {
				if err := sess.RefreshRegime(ctx); err != nil {
					return err
				}
				metrics.SetRegime(sess.Regime().Regime)
				return nil
			},
		},
	)
	sched.Start(ctx)

	log.Info().Msg("paper session stopped")
	return nil
}

func buildStore(ctx context.Context, cfg config.Config) (persistence.Store, error) {
	if cfg.Database.DSN == "" {
		log.Warn().Msg("no database configured, trades kept in memory only")
		return persistence.NewMemoryStore(), nil
	}
	store, err := postgres.New(cfg.Database.DSN, cfg.Database.QueryTimeout.D())
	if err != nil {
		return nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

func buildSource(cfg config.Config, useStream bool) (feed.Source, func(context.Context)) {
	if useStream && cfg.Feed.WSURL != "" {
		ws := feed.NewWSSource(cfg.Feed.WSURL)
		return ws, ws.Run
	}
	return feed.NewHTTPSource(feed.HTTPSourceConfig{
		BaseURL:    cfg.Feed.BaseURL,
		RatePerSec: cfg.Feed.RatePerSec,
		Burst:      cfg.Feed.Burst,
		Timeout:    cfg.Feed.Timeout.D(),
	}), nil
}
