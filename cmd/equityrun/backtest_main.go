package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/equityrun/equityrun/internal/backtest"
	"github.com/equityrun/equityrun/internal/config"
)

func newBacktestCmd() *cobra.Command {
	var seriesPath string
	var showTrades bool
	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Replay a snapshot series through the trading pipeline",
		Long: `Runs the regime, signal, and portfolio stages over a historical snapshot
series and prints the summary statistics. The run is deterministic for a
given series and config.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBacktest(seriesPath, showTrades)
		},
	}
	cmd.Flags().StringVar(&seriesPath, "series", "", "path to JSON snapshot series (required)")
	cmd.Flags().BoolVar(&showTrades, "trades", false, "print every trade, not just the summary")
	_ = cmd.MarkFlagRequired("series")
	return cmd
}

func runBacktest(seriesPath string, showTrades bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	series, err := backtest.LoadSeries(seriesPath)
	if err != nil {
		return err
	}
	log.Info().Int("batches", len(series)).Str("series", seriesPath).Msg("series loaded")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	driver := backtest.NewDriver(backtest.Config{
		Regime:    cfg.Regime,
		Signal:    cfg.Signals,
		Portfolio: cfg.Trading.Config,
	})
	result, err := driver.Run(ctx, series)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if showTrades {
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
		return nil
	}
	return enc.Encode(struct {
		RunID string           `json:"run_id"`
		Stats backtest.Summary `json:"stats"`
	}{result.RunID, result.Stats})
}
