package portfolio

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/equityrun/equityrun/internal/domain/signal"
)

// Engine is the single writer over portfolio state. Every public method
// takes the engine lock; callers never see partially applied transitions.
type Engine struct {
	mu  sync.Mutex
	cfg Config

	cash      float64
	positions map[string]*Position
	trades    []Trade
	halts     []HaltEvent

	dailyPnL      float64
	totalPnL      float64
	highWaterMark float64
	halted        bool
}

// NewEngine builds an engine with a fresh portfolio at the configured
// initial capital.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("portfolio config: %w", err)
	}
	return &Engine{
		cfg:           cfg,
		cash:          cfg.InitialCapital,
		positions:     make(map[string]*Position),
		highWaterMark: cfg.InitialCapital,
	}, nil
}

// EvaluateExits walks open positions in ascending symbol order and closes
// any whose exit condition fires. Precedence per position is fixed: stop
// loss, then target, then max holding age, then an opposing signal; exactly
// one reason is recorded per close. Prices update the position marks as a
// side effect; symbols missing from prices are evaluated at their last
// known price. Exits always run, halted or not.
func (e *Engine) EvaluateExits(now time.Time, prices map[string]float64, opposing map[string]bool) ([]Trade, *HaltEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()

	symbols := make([]string, 0, len(e.positions))
	for sym := range e.positions {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	var closed []Trade
	var halt *HaltEvent
	for _, sym := range symbols {
		pos := e.positions[sym]
		if price, ok := prices[sym]; ok && price > 0 {
			pos.CurrentPrice = price
		}
		price := pos.CurrentPrice
		if price <= 0 {
			continue
		}

		reason := ExitNone
		switch {
		case price <= pos.StopLoss:
			reason = ExitStopLoss
		case price >= pos.Target:
			reason = ExitTarget
		case pos.HoldingDays(now) >= e.cfg.MaxHoldingDays:
			reason = ExitMaxHolding
		case opposing[sym]:
			reason = ExitOpposingSignal
		}
		if reason == ExitNone {
			continue
		}

		trade, tripped := e.closeLocked(pos, price, reason, now)
		closed = append(closed, trade)
		if tripped != nil && halt == nil {
			halt = tripped
		}
	}
	return closed, halt
}

// closeLocked sells the full position at price less slippage, realizes pnl,
// and trips the daily-loss halt if the realized loss crosses the limit.
// Caller holds the lock.
func (e *Engine) closeLocked(pos *Position, price float64, reason ExitReason, now time.Time) (Trade, *HaltEvent) {
	fill := price * (1 - e.cfg.SlippagePct/100)
	gross := fill * float64(pos.Quantity)
	commission := gross * e.cfg.CommissionPct / 100
	pnl := (fill-pos.EntryPrice)*float64(pos.Quantity) - pos.EntryCommission - commission

	e.cash += gross - commission
	e.dailyPnL += pnl
	e.totalPnL += pnl
	delete(e.positions, pos.Symbol)

	trade := Trade{
		ID:             newTradeID(),
		Symbol:         pos.Symbol,
		Side:           SideSell,
		Quantity:       pos.Quantity,
		Price:          fill,
		Amount:         gross,
		Commission:     commission,
		PnL:            &pnl,
		Reason:         reason.String(),
		Timestamp:      now,
		PortfolioValue: e.equityLocked(),
	}
	e.trades = append(e.trades, trade)

	log.Info().
		Str("symbol", pos.Symbol).
		Int64("qty", pos.Quantity).
		Float64("pnl", pnl).
		Str("reason", reason.String()).
		Msg("position closed")

	var halt *HaltEvent
	if !e.halted && e.dailyPnL <= -e.cfg.MaxDailyLoss {
		e.halted = true
		ev := HaltEvent{Timestamp: now, DailyPnL: e.dailyPnL}
		e.halts = append(e.halts, ev)
		halt = &ev
		log.Warn().Float64("daily_pnl", e.dailyPnL).Msg("daily loss limit hit, entries halted")
	}
	return trade, halt
}

// AdmitEntries opens positions for BUY candidates, best confidence first
// with ascending symbol as the tie-break. Candidates must not include
// symbols that already hold a position; one slipping through is a hard
// error and aborts the batch. A candidate sized to zero shares is skipped
// without error. When the engine is halted no entries are admitted.
func (e *Engine) AdmitEntries(now time.Time, candidates []signal.Signal) ([]Trade, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.halted {
		if len(candidates) > 0 {
			log.Warn().Int("candidates", len(candidates)).Msg("entries refused, engine halted")
		}
		return nil, nil
	}

	ordered := make([]signal.Signal, 0, len(candidates))
	for _, sig := range candidates {
		if sig.Action == signal.ActionBuy {
			ordered = append(ordered, sig)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Confidence != ordered[j].Confidence {
			return ordered[i].Confidence > ordered[j].Confidence
		}
		return ordered[i].Symbol < ordered[j].Symbol
	})

	var opened []Trade
	for _, sig := range ordered {
		if _, exists := e.positions[sig.Symbol]; exists {
			return opened, fmt.Errorf("admit %s: %w", sig.Symbol, ErrDuplicatePosition)
		}
		if len(e.positions) >= e.cfg.MaxPositions {
			break
		}
		trade, err := e.openLocked(sig, now)
		if err != nil {
			return opened, err
		}
		if trade == nil {
			continue
		}
		opened = append(opened, *trade)
	}
	return opened, nil
}

// openLocked sizes and opens one position. Sizing risks a fixed percentage
// of cash against the stop distance, then caps the notional at the
// single-position limit and at available cash. Returns nil when the final
// quantity rounds to zero. Caller holds the lock.
func (e *Engine) openLocked(sig signal.Signal, now time.Time) (*Trade, error) {
	if sig.StopLoss >= sig.Price {
		return nil, fmt.Errorf("admit %s (stop %.2f, price %.2f): %w",
			sig.Symbol, sig.StopLoss, sig.Price, ErrStopOnWrongSide)
	}

	stopDistance := sig.Price - sig.StopLoss
	riskAmount := e.cash * e.cfg.RiskPerTradePct / 100
	qty := int64(math.Floor(riskAmount / stopDistance))

	fill := sig.Price * (1 + e.cfg.SlippagePct/100)
	maxNotional := e.cash * e.cfg.SinglePositionPct / 100
	if fill*float64(qty) > maxNotional {
		qty = int64(math.Floor(maxNotional / fill))
	}
	costPerShare := fill * (1 + e.cfg.CommissionPct/100)
	if costPerShare*float64(qty) > e.cash {
		qty = int64(math.Floor(e.cash / costPerShare))
	}
	if qty <= 0 {
		log.Debug().Str("symbol", sig.Symbol).Msg("entry sized to zero, skipped")
		return nil, nil
	}

	gross := fill * float64(qty)
	commission := gross * e.cfg.CommissionPct / 100
	e.cash -= gross + commission

	e.positions[sig.Symbol] = &Position{
		Symbol:          sig.Symbol,
		Quantity:        qty,
		EntryPrice:      fill,
		EntryTime:       now,
		StopLoss:        sig.StopLoss,
		Target:          sig.Target,
		EntryCommission: commission,
		CurrentPrice:    fill,
		Confidence:      sig.Confidence,
	}

	trade := Trade{
		ID:             newTradeID(),
		Symbol:         sig.Symbol,
		Side:           SideBuy,
		Quantity:       qty,
		Price:          fill,
		Amount:         gross,
		Commission:     commission,
		Reason:         strings.Join(sig.Reasons, "; "),
		Timestamp:      now,
		PortfolioValue: e.equityLocked(),
	}
	e.trades = append(e.trades, trade)

	log.Info().
		Str("symbol", sig.Symbol).
		Int64("qty", qty).
		Float64("fill", fill).
		Float64("confidence", sig.Confidence).
		Msg("position opened")
	return &trade, nil
}

// RollDay closes out the trading day: trips the halt if the day's realized
// loss breached the limit and nothing tripped it intra-day, then resets
// daily pnl, clears the halt for the new day, and advances the high-water
// mark. Returns the halt event when the roll itself tripped it.
func (e *Engine) RollDay(now time.Time) *HaltEvent {
	e.mu.Lock()
	defer e.mu.Unlock()

	var ev *HaltEvent
	if !e.halted && e.dailyPnL <= -e.cfg.MaxDailyLoss {
		event := HaltEvent{Timestamp: now, DailyPnL: e.dailyPnL}
		e.halts = append(e.halts, event)
		ev = &event
	}

	e.dailyPnL = 0
	e.halted = false
	if eq := e.equityLocked(); eq > e.highWaterMark {
		e.highWaterMark = eq
	}
	return ev
}

// equityLocked values the portfolio at last known prices. Caller holds the lock.
func (e *Engine) equityLocked() float64 {
	eq := e.cash
	for _, pos := range e.positions {
		eq += pos.CurrentPrice * float64(pos.Quantity)
	}
	return eq
}

// Snapshot returns a deep copy of current state for persistence and the
// monitor surface.
func (e *Engine) Snapshot(now time.Time) Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	positions := make([]Position, 0, len(e.positions))
	var unrealized float64
	for _, pos := range e.positions {
		positions = append(positions, *pos)
		unrealized += pos.UnrealizedPnL()
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i].Symbol < positions[j].Symbol })

	return Snapshot{
		Timestamp:     now,
		Cash:          e.cash,
		Equity:        e.equityLocked(),
		Positions:     positions,
		OpenPositions: len(positions),
		UnrealizedPnL: unrealized,
		DailyPnL:      e.dailyPnL,
		TotalPnL:      e.totalPnL,
		HighWaterMark: e.highWaterMark,
		Halted:        e.halted,
		TradeCount:    len(e.trades),
	}
}

// Trades returns a copy of the full trade log in append order.
func (e *Engine) Trades() []Trade {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Trade, len(e.trades))
	copy(out, e.trades)
	return out
}

// HaltEvents returns every halt recorded since construction.
func (e *Engine) HaltEvents() []HaltEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]HaltEvent, len(e.halts))
	copy(out, e.halts)
	return out
}

// Halted reports whether entries are currently blocked.
func (e *Engine) Halted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.halted
}

// HasPosition reports whether a symbol currently holds an open position.
// Sessions use it to keep held symbols out of the entry candidate set.
func (e *Engine) HasPosition(symbol string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.positions[symbol]
	return ok
}
