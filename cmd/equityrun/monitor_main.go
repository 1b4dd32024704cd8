package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/equityrun/equityrun/internal/application"
	"github.com/equityrun/equityrun/internal/config"
	httpapi "github.com/equityrun/equityrun/internal/interfaces/http"
	"github.com/equityrun/equityrun/internal/notify"
)

func newMonitorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "monitor",
		Short: "Serve the read-only monitor endpoints without trading",
		Long: `Starts only the HTTP surface: health, metrics, latest regime, portfolio
status, and trade history from the configured store. No trading cycles run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMonitor()
		},
	}
}

func runMonitor() error {
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

	source, _ := buildSource(cfg, false)
	sess, err := application.NewSession(cfg, source, store, nil, notify.LogNotifier{})
	if err != nil {
		return err
	}

	monitor := httpapi.NewServer(cfg.Monitor.ListenAddr, sess, store, httpapi.NewMetrics())
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = monitor.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", cfg.Monitor.ListenAddr).Msg("monitor-only mode")
	return monitor.Start()
}
