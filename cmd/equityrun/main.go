package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const (
	appName = "equityrun"
	version = "v1.2.0"
)

var configPath string

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Rule-based paper-trading engine for equities",
		Version: version,
		Long: `equityrun classifies the market regime from indicator snapshots, scores
rule-based entry signals, and runs a risk-managed paper portfolio. All
trading is simulated; there is no live order path.`,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config/equityrun.yaml", "path to YAML config")

	rootCmd.AddCommand(newTradeCmd())
	rootCmd.AddCommand(newBacktestCmd())
	rootCmd.AddCommand(newRegimeCmd())
	rootCmd.AddCommand(newMonitorCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
