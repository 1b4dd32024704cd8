package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/equityrun/equityrun/internal/config"
	"github.com/equityrun/equityrun/internal/domain/regime"
	"github.com/equityrun/equityrun/internal/feed"
)

func newRegimeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "regime",
		Short: "Classify the current market regime and print it",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegime()
		},
	}
}

func runRegime() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	source := feed.NewHTTPSource(feed.HTTPSourceConfig{
		BaseURL:    cfg.Feed.BaseURL,
		RatePerSec: cfg.Feed.RatePerSec,
		Burst:      cfg.Feed.Burst,
		Timeout:    cfg.Feed.Timeout.D(),
	})
	batch, err := source.Fetch(ctx, cfg.Watchlist)
	if err != nil {
		return err
	}

	state := regime.NewClassifier(cfg.Regime).Classify(batch)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(state)
}
