// Package backtest replays historical snapshot batches through the same
// regime, signal, and portfolio code paths the live session uses. A run is
// deterministic: identical input series and config produce identical trades
// and stats.
package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/equityrun/equityrun/internal/domain/portfolio"
	"github.com/equityrun/equityrun/internal/domain/regime"
	"github.com/equityrun/equityrun/internal/domain/signal"
	"github.com/equityrun/equityrun/internal/domain/snapshot"
)

// Config bundles the three stage configs a run needs.
type Config struct {
	Regime    regime.Config    `yaml:"regime" json:"regime"`
	Signal    signal.Config    `yaml:"signals" json:"signals"`
	Portfolio portfolio.Config `yaml:"trading" json:"trading"`
}

// DefaultConfig composes the stage defaults.
func DefaultConfig() Config {
	return Config{
		Regime:    regime.DefaultConfig(),
		Signal:    signal.DefaultConfig(),
		Portfolio: portfolio.DefaultConfig(),
	}
}

// EquityPoint is one per-batch valuation of the simulated portfolio.
type EquityPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Equity    float64   `json:"equity"`
}

// Result is the full output of one run.
type Result struct {
	RunID   string                `json:"run_id"`
	Batches int                   `json:"batches"`
	Trades  []portfolio.Trade     `json:"trades"`
	Halts   []portfolio.HaltEvent `json:"halts"`
	Equity  []EquityPoint         `json:"equity"`
	Stats   Summary               `json:"stats"`
}

// Driver owns one backtest run. Each Run builds a fresh portfolio engine;
// drivers are reusable but not concurrent.
type Driver struct {
	cfg        Config
	classifier *regime.Classifier
	scorer     *signal.Scorer
}

// NewDriver builds a driver from the composed config.
func NewDriver(cfg Config) *Driver {
	return &Driver{
		cfg:        cfg,
		classifier: regime.NewClassifier(cfg.Regime),
		scorer:     signal.NewScorer(cfg.Signal),
	}
}

// Run replays the series in order. Batches must be strictly ascending in
// time; a regression is a hard error, as is any portfolio invariant
// violation surfaced by AdmitEntries. Day boundaries between batches
// trigger the engine's day roll.
func (d *Driver) Run(ctx context.Context, series []snapshot.Batch) (*Result, error) {
	engine, err := portfolio.NewEngine(d.cfg.Portfolio)
	if err != nil {
		return nil, err
	}

	res := &Result{RunID: uuid.NewString()}
	prev := make(map[string]snapshot.Snapshot)
	var lastTS time.Time

	log.Info().Str("run_id", res.RunID).Int("batches", len(series)).Msg("backtest started")

	for i, batch := range series {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("backtest cancelled at batch %d: %w", i, err)
		}
		if !lastTS.IsZero() && !batch.Timestamp.After(lastTS) {
			return nil, fmt.Errorf("batch %d timestamp %s not after %s", i, batch.Timestamp, lastTS)
		}
		if i > 0 && dayOf(batch.Timestamp) != dayOf(lastTS) {
			engine.RollDay(batch.Timestamp)
		}
		lastTS = batch.Timestamp

		state := d.classifier.Classify(batch)

		prices := make(map[string]float64, len(batch.Symbols))
		opposing := make(map[string]bool)
		var candidates []signal.Signal
		for _, sym := range batch.SortedSymbols() {
			curr := batch.Symbols[sym]
			prices[sym] = curr.Price

			p, ok := prev[sym]
			prev[sym] = curr
			if !ok {
				continue
			}
			sig := d.scorer.Score(curr, p, state)
			switch sig.Action {
			case signal.ActionSell:
				opposing[sym] = true
			case signal.ActionBuy:
				if !engine.HasPosition(sym) {
					candidates = append(candidates, sig)
				}
			}
		}

		engine.EvaluateExits(batch.Timestamp, prices, opposing)
		if _, err := engine.AdmitEntries(batch.Timestamp, candidates); err != nil {
			return nil, fmt.Errorf("batch %d: %w", i, err)
		}

		snap := engine.Snapshot(batch.Timestamp)
		res.Equity = append(res.Equity, EquityPoint{Timestamp: batch.Timestamp, Equity: snap.Equity})
		res.Batches++
	}

	res.Trades = engine.Trades()
	res.Halts = engine.HaltEvents()
	res.Stats = Summarize(d.cfg.Portfolio.InitialCapital, res.Trades, res.Equity)

	log.Info().
		Str("run_id", res.RunID).
		Int("trades", len(res.Trades)).
		Float64("return_pct", res.Stats.TotalReturnPct).
		Msg("backtest finished")
	return res, nil
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
