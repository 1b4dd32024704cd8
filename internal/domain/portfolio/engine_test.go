package portfolio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/equityrun/equityrun/internal/domain/signal"
)

var t0 = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

// frictionless returns a config with no commission or slippage and no
// single-position cap, so share math in tests stays exact.
func frictionless() Config {
	cfg := DefaultConfig()
	cfg.CommissionPct = 0
	cfg.SlippagePct = 0
	cfg.SinglePositionPct = 100
	return cfg
}

func buySignal(symbol string, confidence, price, stop, target float64) signal.Signal {
	return signal.Signal{
		Symbol:     symbol,
		Action:     signal.ActionBuy,
		Confidence: confidence,
		Conditions: 3,
		Price:      price,
		StopLoss:   stop,
		Target:     target,
		Reasons:    []string{"Strong uptrend"},
		Timestamp:  t0,
	}
}

func TestRiskSizing(t *testing.T) {
	e, err := NewEngine(frictionless())
	require.NoError(t, err)

	opened, err := e.AdmitEntries(t0, []signal.Signal{buySignal("RELIANCE", 80, 100, 96, 112)})
	require.NoError(t, err)
	require.Len(t, opened, 1)

	// 2% of 100000 risked against a 4-point stop distance.
	assert.Equal(t, int64(500), opened[0].Quantity)
	assert.Equal(t, SideBuy, opened[0].Side)
	assert.Nil(t, opened[0].PnL)

	snap := e.Snapshot(t0)
	assert.InDelta(t, 50000.0, snap.Cash, 0.001)
}

func TestSinglePositionCap(t *testing.T) {
	cfg := frictionless()
	cfg.SinglePositionPct = 20
	e, err := NewEngine(cfg)
	require.NoError(t, err)

	opened, err := e.AdmitEntries(t0, []signal.Signal{buySignal("RELIANCE", 80, 100, 96, 112)})
	require.NoError(t, err)
	require.Len(t, opened, 1)

	// Risk sizing wants 500 shares; the 20% notional cap trims it to 200.
	assert.Equal(t, int64(200), opened[0].Quantity)
}

func TestSnapshotReportsUnrealizedPnL(t *testing.T) {
	e, err := NewEngine(frictionless())
	require.NoError(t, err)

	_, err = e.AdmitEntries(t0, []signal.Signal{buySignal("RELIANCE", 80, 100, 96, 112)})
	require.NoError(t, err)

	// Mark to 104: above the stop, below the target, no exit fires.
	closed, _ := e.EvaluateExits(t0.Add(time.Hour), map[string]float64{"RELIANCE": 104}, nil)
	require.Empty(t, closed)

	snap := e.Snapshot(t0.Add(time.Hour))
	assert.InDelta(t, 2000.0, snap.UnrealizedPnL, 0.001) // 500 shares up 4 points
	require.Len(t, snap.Positions, 1)
	assert.InDelta(t, 2000.0, snap.Positions[0].UnrealizedPnL(), 0.001)
}

func TestEntryOrderingByConfidenceThenSymbol(t *testing.T) {
	cfg := frictionless()
	cfg.MaxPositions = 2
	e, err := NewEngine(cfg)
	require.NoError(t, err)

	opened, err := e.AdmitEntries(t0, []signal.Signal{
		buySignal("ZEEL", 70, 50, 48, 56),
		buySignal("AXISBANK", 70, 50, 48, 56),
		buySignal("TCS", 90, 100, 96, 112),
	})
	require.NoError(t, err)
	require.Len(t, opened, 2)

	// Highest confidence first, then ascending symbol among the 70s.
	assert.Equal(t, "TCS", opened[0].Symbol)
	assert.Equal(t, "AXISBANK", opened[1].Symbol)
	assert.False(t, e.HasPosition("ZEEL"))
}

func TestDuplicatePositionIsHardError(t *testing.T) {
	e, err := NewEngine(frictionless())
	require.NoError(t, err)

	_, err = e.AdmitEntries(t0, []signal.Signal{buySignal("RELIANCE", 80, 100, 96, 112)})
	require.NoError(t, err)

	_, err = e.AdmitEntries(t0, []signal.Signal{buySignal("RELIANCE", 90, 101, 97, 113)})
	require.ErrorIs(t, err, ErrDuplicatePosition)
}

func TestStopAboveEntryIsHardError(t *testing.T) {
	e, err := NewEngine(frictionless())
	require.NoError(t, err)

	_, err = e.AdmitEntries(t0, []signal.Signal{buySignal("RELIANCE", 80, 100, 104, 112)})
	require.ErrorIs(t, err, ErrStopOnWrongSide)
}

func TestZeroQuantityIsSilentSkip(t *testing.T) {
	cfg := frictionless()
	cfg.InitialCapital = 1000 // 2% risk = 20, stop distance 40 → 0 shares
	e, err := NewEngine(cfg)
	require.NoError(t, err)

	opened, err := e.AdmitEntries(t0, []signal.Signal{buySignal("MARUTI", 80, 9000, 8960, 9120)})
	require.NoError(t, err)
	assert.Empty(t, opened)
	assert.False(t, e.HasPosition("MARUTI"))
}

func TestMaxPositionsCap(t *testing.T) {
	cfg := frictionless()
	cfg.MaxPositions = 5
	e, err := NewEngine(cfg)
	require.NoError(t, err)

	candidates := []signal.Signal{
		buySignal("A", 95, 10, 9.6, 11.2),
		buySignal("B", 90, 10, 9.6, 11.2),
		buySignal("C", 85, 10, 9.6, 11.2),
		buySignal("D", 80, 10, 9.6, 11.2),
		buySignal("E", 75, 10, 9.6, 11.2),
		buySignal("F", 70, 10, 9.6, 11.2),
	}
	opened, err := e.AdmitEntries(t0, candidates)
	require.NoError(t, err)
	assert.Len(t, opened, 5)
	assert.False(t, e.HasPosition("F"))
}

func TestExitPrecedenceStopBeatsEverything(t *testing.T) {
	cfg := frictionless()
	cfg.MaxHoldingDays = 1
	e, err := NewEngine(cfg)
	require.NoError(t, err)

	_, err = e.AdmitEntries(t0, []signal.Signal{buySignal("RELIANCE", 80, 100, 96, 112)})
	require.NoError(t, err)

	// Ancient position, opposing signal, and a stop breach at once: the
	// stop names the close.
	later := t0.Add(5 * 24 * time.Hour)
	closed, _ := e.EvaluateExits(later, map[string]float64{"RELIANCE": 95}, map[string]bool{"RELIANCE": true})
	require.Len(t, closed, 1)
	assert.Equal(t, ExitStopLoss.String(), closed[0].Reason)
	require.NotNil(t, closed[0].PnL)
	assert.InDelta(t, -2500.0, *closed[0].PnL, 0.001) // (95-100) x 500
}

func TestExitTargetHit(t *testing.T) {
	e, err := NewEngine(frictionless())
	require.NoError(t, err)

	_, err = e.AdmitEntries(t0, []signal.Signal{buySignal("TCS", 80, 100, 96, 112)})
	require.NoError(t, err)

	closed, _ := e.EvaluateExits(t0.Add(time.Hour), map[string]float64{"TCS": 113}, nil)
	require.Len(t, closed, 1)
	assert.Equal(t, ExitTarget.String(), closed[0].Reason)
	assert.InDelta(t, 6500.0, *closed[0].PnL, 0.001)
}

func TestExitMaxHolding(t *testing.T) {
	e, err := NewEngine(frictionless())
	require.NoError(t, err)

	_, err = e.AdmitEntries(t0, []signal.Signal{buySignal("INFY", 80, 100, 96, 112)})
	require.NoError(t, err)

	// Price inside the stop/target band, position simply too old.
	closed, _ := e.EvaluateExits(t0.Add(11*24*time.Hour), map[string]float64{"INFY": 101}, nil)
	require.Len(t, closed, 1)
	assert.Equal(t, ExitMaxHolding.String(), closed[0].Reason)
}

func TestExitOpposingSignal(t *testing.T) {
	e, err := NewEngine(frictionless())
	require.NoError(t, err)

	_, err = e.AdmitEntries(t0, []signal.Signal{buySignal("SBIN", 80, 100, 96, 112)})
	require.NoError(t, err)

	closed, _ := e.EvaluateExits(t0.Add(time.Hour), map[string]float64{"SBIN": 101}, map[string]bool{"SBIN": true})
	require.Len(t, closed, 1)
	assert.Equal(t, ExitOpposingSignal.String(), closed[0].Reason)
}

func TestExitUsesLastKnownPriceWhenMissing(t *testing.T) {
	e, err := NewEngine(frictionless())
	require.NoError(t, err)

	_, err = e.AdmitEntries(t0, []signal.Signal{buySignal("ITC", 80, 100, 96, 112)})
	require.NoError(t, err)

	// No fresh quote: the entry fill is the last known mark, no exit fires.
	e.EvaluateExits(t0.Add(time.Minute), map[string]float64{}, nil)
	assert.True(t, e.HasPosition("ITC"))

	closed, _ := e.EvaluateExits(t0.Add(2*time.Minute), map[string]float64{"ITC": 95}, nil)
	require.Len(t, closed, 1)
	assert.Equal(t, ExitStopLoss.String(), closed[0].Reason)
}

func TestHaltBlocksEntriesButNotExits(t *testing.T) {
	cfg := frictionless()
	cfg.MaxDailyLoss = 2000
	e, err := NewEngine(cfg)
	require.NoError(t, err)

	_, err = e.AdmitEntries(t0, []signal.Signal{
		buySignal("RELIANCE", 90, 100, 96, 112),
		buySignal("TCS", 80, 200, 192, 224),
	})
	require.NoError(t, err)

	// Stop out RELIANCE for -5000, tripping the 2000 daily loss limit.
	closed, halt := e.EvaluateExits(t0.Add(time.Hour), map[string]float64{"RELIANCE": 90}, nil)
	require.Len(t, closed, 1)
	require.NotNil(t, halt)
	assert.True(t, e.Halted())

	// New entries are refused without error.
	opened, err := e.AdmitEntries(t0.Add(2*time.Hour), []signal.Signal{buySignal("INFY", 85, 50, 48, 56)})
	require.NoError(t, err)
	assert.Empty(t, opened)
	assert.False(t, e.HasPosition("INFY"))

	// Exits still run while halted.
	closed, _ = e.EvaluateExits(t0.Add(3*time.Hour), map[string]float64{"TCS": 230}, nil)
	require.Len(t, closed, 1)
	assert.Equal(t, ExitTarget.String(), closed[0].Reason)
}

func TestRollDayResetsHaltAndDailyPnL(t *testing.T) {
	cfg := frictionless()
	cfg.MaxDailyLoss = 2000
	e, err := NewEngine(cfg)
	require.NoError(t, err)

	_, err = e.AdmitEntries(t0, []signal.Signal{buySignal("RELIANCE", 90, 100, 96, 112)})
	require.NoError(t, err)
	_, halt := e.EvaluateExits(t0.Add(time.Hour), map[string]float64{"RELIANCE": 90}, nil)
	require.NotNil(t, halt)

	ev := e.RollDay(t0.Add(8 * time.Hour))
	assert.Nil(t, ev) // already recorded intra-day

	assert.False(t, e.Halted())
	snap := e.Snapshot(t0.Add(8 * time.Hour))
	assert.Zero(t, snap.DailyPnL)
	assert.InDelta(t, -5000.0, snap.TotalPnL, 0.001)
	assert.Len(t, e.HaltEvents(), 1)

	// Entries work again on the new day.
	opened, err := e.AdmitEntries(t0.Add(24*time.Hour), []signal.Signal{buySignal("INFY", 85, 50, 48, 56)})
	require.NoError(t, err)
	assert.Len(t, opened, 1)
}

func TestHighWaterMarkAdvancesOnRoll(t *testing.T) {
	e, err := NewEngine(frictionless())
	require.NoError(t, err)

	_, err = e.AdmitEntries(t0, []signal.Signal{buySignal("TCS", 80, 100, 96, 112)})
	require.NoError(t, err)
	e.EvaluateExits(t0.Add(time.Hour), map[string]float64{"TCS": 113}, nil)

	e.RollDay(t0.Add(8 * time.Hour))
	snap := e.Snapshot(t0.Add(8 * time.Hour))
	assert.InDelta(t, 106500.0, snap.HighWaterMark, 0.001)
}

// The accounting identity: cash plus open notional at entry prices equals
// initial capital plus realized pnl minus open entry commissions.
func checkIdentity(t *testing.T, e *Engine, initial float64) {
	t.Helper()
	snap := e.Snapshot(t0)

	openNotional, openComm := 0.0, 0.0
	for _, pos := range snap.Positions {
		openNotional += float64(pos.Quantity) * pos.EntryPrice
		openComm += pos.EntryCommission
	}
	realized := 0.0
	for _, tr := range e.Trades() {
		if tr.PnL != nil {
			realized += *tr.PnL
		}
	}
	assert.InDelta(t, initial+realized-openComm, snap.Cash+openNotional, 0.01)
}

func TestCashIdentityWithFrictions(t *testing.T) {
	cfg := DefaultConfig() // 0.05% commission, 0.05% slippage, 20% cap
	e, err := NewEngine(cfg)
	require.NoError(t, err)

	_, err = e.AdmitEntries(t0, []signal.Signal{
		buySignal("RELIANCE", 90, 100, 96, 112),
		buySignal("TCS", 85, 200, 192, 224),
		buySignal("INFY", 80, 50, 48, 56),
	})
	require.NoError(t, err)
	checkIdentity(t, e, cfg.InitialCapital)

	e.EvaluateExits(t0.Add(time.Hour), map[string]float64{"RELIANCE": 113, "TCS": 191}, nil)
	checkIdentity(t, e, cfg.InitialCapital)

	e.EvaluateExits(t0.Add(2*time.Hour), map[string]float64{"INFY": 57}, nil)
	checkIdentity(t, e, cfg.InitialCapital)
	assert.Empty(t, e.Snapshot(t0).Positions)
}

func TestTradeLogLegs(t *testing.T) {
	e, err := NewEngine(frictionless())
	require.NoError(t, err)

	_, err = e.AdmitEntries(t0, []signal.Signal{buySignal("LT", 80, 100, 96, 112)})
	require.NoError(t, err)
	e.EvaluateExits(t0.Add(time.Hour), map[string]float64{"LT": 113}, nil)

	trades := e.Trades()
	require.Len(t, trades, 2)
	assert.Nil(t, trades[0].PnL)
	require.NotNil(t, trades[1].PnL)
	assert.NotEmpty(t, trades[0].ID)
	assert.NotEqual(t, trades[0].ID, trades[1].ID)
}
