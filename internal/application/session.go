// Package application wires the domain stages into the live paper-trading
// session: fetch snapshots, classify the regime, score signals, run exits
// and entries, persist, announce.
package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/equityrun/equityrun/internal/cache"
	"github.com/equityrun/equityrun/internal/config"
	"github.com/equityrun/equityrun/internal/domain/portfolio"
	"github.com/equityrun/equityrun/internal/domain/regime"
	"github.com/equityrun/equityrun/internal/domain/signal"
	"github.com/equityrun/equityrun/internal/domain/snapshot"
	"github.com/equityrun/equityrun/internal/feed"
	"github.com/equityrun/equityrun/internal/notify"
	"github.com/equityrun/equityrun/internal/persistence"
)

// CycleReport summarizes one completed trading cycle.
type CycleReport struct {
	Timestamp time.Time
	Regime    regime.State
	Signals   int
	Opened    []portfolio.Trade
	Closed    []portfolio.Trade
	Halted    bool
	Skipped   int // symbols missing or invalid in the batch
}

// Session is one live paper-trading run. Construction enforces the
// paper-only gate: there is no order path in this program and a config
// claiming otherwise is refused outright.
type Session struct {
	id         string
	cfg        config.Config
	source     feed.Source
	engine     *portfolio.Engine
	classifier *regime.Classifier
	scorer     *signal.Scorer
	store      persistence.Store
	regimes    *cache.RegimeCache // optional
	notifier   notify.Notifier

	mu    sync.Mutex
	prev  map[string]snapshot.Snapshot
	day   time.Time
	state regime.State
}

// NewSession validates the config and assembles the pipeline. regimes may
// be nil when Redis is not configured.
func NewSession(cfg config.Config, source feed.Source, store persistence.Store, regimes *cache.RegimeCache, notifier notify.Notifier) (*Session, error) {
	if !cfg.Trading.PaperOnly {
		return nil, portfolio.ErrNotPaperMode
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("session config: %w", err)
	}
	engine, err := portfolio.NewEngine(cfg.Trading.Config)
	if err != nil {
		return nil, err
	}
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	if store == nil {
		store = persistence.NewMemoryStore()
	}
	s := &Session{
		id:         uuid.NewString(),
		cfg:        cfg,
		source:     source,
		engine:     engine,
		classifier: regime.NewClassifier(cfg.Regime),
		scorer:     signal.NewScorer(cfg.Signals),
		store:      store,
		regimes:    regimes,
		notifier:   notifier,
		prev:       make(map[string]snapshot.Snapshot),
	}
	s.warmStart()
	return s, nil
}

// warmStart seeds the regime view from the cache so the monitor surface
// answers with the last classification before the first cycle runs. A
// missing, stale, or unreadable entry just means a cold start.
func (s *Session) warmStart() {
	if s.regimes == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	state, err := s.regimes.Latest(ctx)
	switch {
	case err != nil:
		log.Warn().Err(err).Msg("regime cache read failed, starting cold")
	case state == nil:
		log.Debug().Msg("no cached regime, starting cold")
	case state.StaleAfter(time.Now(), s.cfg.Redis.TTL.D()):
		log.Debug().Time("as_of", state.Timestamp).Msg("cached regime stale, starting cold")
	default:
		s.state = *state
		log.Info().
			Str("regime", string(state.Regime)).
			Time("as_of", state.Timestamp).
			Msg("regime restored from cache")
	}
}

// ID is the session's run identifier.
func (s *Session) ID() string { return s.id }

// Engine exposes the portfolio engine to the monitor surface.
func (s *Session) Engine() *portfolio.Engine { return s.engine }

// Regime returns the most recent classification.
func (s *Session) Regime() regime.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// RunCycle executes one full trading cycle. A day change since the last
// cycle rolls the trading day first. Fetch failures abort the cycle; the
// portfolio is left exactly as it was.
func (s *Session) RunCycle(ctx context.Context) (CycleReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch, err := s.source.Fetch(ctx, s.cfg.Watchlist)
	if err != nil {
		return CycleReport{}, fmt.Errorf("fetch snapshots: %w", err)
	}
	now := batch.Timestamp

	if !s.day.IsZero() && dayOf(now) != dayOf(s.day) {
		if ev := s.engine.RollDay(now); ev != nil {
			s.persistHalt(ctx, *ev)
		}
	}
	s.day = now

	state := s.classifier.Classify(batch)
	s.state = state
	if s.regimes != nil {
		if err := s.regimes.Save(ctx, state); err != nil {
			log.Warn().Err(err).Msg("regime cache write failed")
		}
	}

	prices := make(map[string]float64, len(batch.Symbols))
	opposing := make(map[string]bool)
	var candidates []signal.Signal
	signals := 0
	for _, sym := range batch.SortedSymbols() {
		curr := batch.Symbols[sym]
		prices[sym] = curr.Price

		p, seen := s.prev[sym]
		s.prev[sym] = curr
		if !seen {
			continue
		}
		sig := s.scorer.Score(curr, p, state)
		switch sig.Action {
		case signal.ActionSell:
			signals++
			opposing[sym] = true
		case signal.ActionBuy:
			signals++
			if !s.engine.HasPosition(sym) {
				candidates = append(candidates, sig)
			}
		}
	}

	closed, halt := s.engine.EvaluateExits(now, prices, opposing)
	if halt != nil {
		s.persistHalt(ctx, *halt)
	}
	opened, err := s.engine.AdmitEntries(now, candidates)
	if err != nil {
		return CycleReport{}, fmt.Errorf("admit entries: %w", err)
	}

	for _, tr := range append(append([]portfolio.Trade{}, closed...), opened...) {
		if err := s.store.SaveTrade(ctx, tr); err != nil {
			log.Error().Err(err).Str("symbol", tr.Symbol).Msg("trade persist failed")
		}
		if err := s.notifier.SendText(notify.TradeText(tr)); err != nil {
			log.Warn().Err(err).Msg("trade notification failed")
		}
	}
	if err := s.store.SaveSnapshot(ctx, s.engine.Snapshot(now)); err != nil {
		log.Error().Err(err).Msg("portfolio snapshot persist failed")
	}

	report := CycleReport{
		Timestamp: now,
		Regime:    state,
		Signals:   signals,
		Opened:    opened,
		Closed:    closed,
		Halted:    s.engine.Halted(),
		Skipped:   len(s.cfg.Watchlist) - len(batch.Symbols),
	}
	log.Info().
		Str("session", s.id).
		Str("regime", string(state.Regime)).
		Int("signals", signals).
		Int("opened", len(opened)).
		Int("closed", len(closed)).
		Bool("halted", report.Halted).
		Msg("cycle complete")
	return report, nil
}

// RefreshRegime reclassifies the market without trading: fetch the
// watchlist, classify, refresh the cache. Keeps the monitor's regime view
// current between trading cycles.
func (s *Session) RefreshRegime(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch, err := s.source.Fetch(ctx, s.cfg.Watchlist)
	if err != nil {
		return fmt.Errorf("fetch snapshots: %w", err)
	}
	state := s.classifier.Classify(batch)
	s.state = state
	if s.regimes != nil {
		if err := s.regimes.Save(ctx, state); err != nil {
			log.Warn().Err(err).Msg("regime cache write failed")
		}
	}
	log.Debug().
		Str("regime", string(state.Regime)).
		Float64("confidence", state.Confidence).
		Msg("regime refreshed")
	return nil
}

func (s *Session) persistHalt(ctx context.Context, ev portfolio.HaltEvent) {
	if err := s.store.SaveHalt(ctx, ev); err != nil {
		log.Error().Err(err).Msg("halt persist failed")
	}
	if err := s.notifier.SendText(notify.HaltText(ev)); err != nil {
		log.Warn().Err(err).Msg("halt notification failed")
	}
}

// DailyTargetProgress reports realized daily pnl against the configured
// daily profit target, for the monitor surface.
func (s *Session) DailyTargetProgress(now time.Time) (pnl, target, pct float64) {
	snap := s.engine.Snapshot(now)
	target = s.cfg.Trading.DailyProfitTarget
	pnl = snap.DailyPnL
	if target > 0 {
		pct = pnl / target * 100
	}
	return pnl, target, pct
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
