package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/equityrun/equityrun/internal/cache"
	"github.com/equityrun/equityrun/internal/config"
	"github.com/equityrun/equityrun/internal/domain/portfolio"
	"github.com/equityrun/equityrun/internal/domain/regime"
	"github.com/equityrun/equityrun/internal/domain/snapshot"
	"github.com/equityrun/equityrun/internal/persistence"
)

var cycleTime = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

// scriptedSource replays a fixed sequence of batches.
type scriptedSource struct {
	batches []snapshot.Batch
	calls   int
	err     error
}

func (s *scriptedSource) Fetch(_ context.Context, _ []string) (snapshot.Batch, error) {
	if s.err != nil {
		return snapshot.Batch{}, s.err
	}
	i := s.calls
	if i >= len(s.batches) {
		i = len(s.batches) - 1
	}
	s.calls++
	return s.batches[i], nil
}

type recordingNotifier struct {
	sent []string
}

func (r *recordingNotifier) SendText(text string) error {
	r.sent = append(r.sent, text)
	return nil
}

func bullishSnap(symbol string, price float64, ts time.Time) snapshot.Snapshot {
	return snapshot.Snapshot{
		Symbol:            symbol,
		Timestamp:         ts,
		Price:             price,
		TrendScore:        78,
		RSI:               55,
		SupertrendBullish: true,
		VolumeRatio:       1.0,
		EMAFast:           price * 0.98,
		EMAMid:            price * 0.97,
		EMASlow:           price * 0.95,
		ATR:               price * 0.02,
		MomentumPct:       4,
	}
}

func sessionBatch(ts time.Time, snaps ...snapshot.Snapshot) snapshot.Batch {
	b, _ := snapshot.NewBatch(ts, snaps)
	return b
}

func sessionConfig() config.Config {
	cfg := config.Default()
	cfg.Watchlist = []string{"RELIANCE", "TCS"}
	cfg.Trading.CommissionPct = 0
	cfg.Trading.SlippagePct = 0
	cfg.Trading.SinglePositionPct = 100
	return cfg
}

func TestNewSessionRefusesNonPaperConfig(t *testing.T) {
	cfg := sessionConfig()
	cfg.Trading.PaperOnly = false

	_, err := NewSession(cfg, &scriptedSource{}, nil, nil, nil)
	require.ErrorIs(t, err, portfolio.ErrNotPaperMode)
}

func TestRunCycleOpensPositions(t *testing.T) {
	src := &scriptedSource{batches: []snapshot.Batch{
		sessionBatch(cycleTime,
			bullishSnap("RELIANCE", 100, cycleTime),
			bullishSnap("TCS", 50, cycleTime)),
		sessionBatch(cycleTime.Add(5*time.Minute),
			bullishSnap("RELIANCE", 100, cycleTime.Add(5*time.Minute)),
			bullishSnap("TCS", 50, cycleTime.Add(5*time.Minute))),
	}}
	store := persistence.NewMemoryStore()
	notifier := &recordingNotifier{}

	sess, err := NewSession(sessionConfig(), src, store, nil, notifier)
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID())

	// First cycle: no previous snapshots, so no signals yet.
	report, err := sess.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, regime.Bull, report.Regime.Regime)
	assert.Empty(t, report.Opened)

	// Second cycle fires entries for both symbols.
	report, err = sess.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Len(t, report.Opened, 2)
	assert.True(t, sess.Engine().HasPosition("RELIANCE"))
	assert.True(t, sess.Engine().HasPosition("TCS"))
	assert.Len(t, notifier.sent, 2)

	trades, err := store.RecentTrades(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, trades, 2)
	snap, err := store.LatestSnapshot(context.Background())
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, 2, snap.OpenPositions)
}

func TestRunCycleHeldSymbolsNotReadmitted(t *testing.T) {
	mk := func(ts time.Time) snapshot.Batch {
		return sessionBatch(ts, bullishSnap("RELIANCE", 100, ts))
	}
	src := &scriptedSource{batches: []snapshot.Batch{
		mk(cycleTime),
		mk(cycleTime.Add(5 * time.Minute)),
		mk(cycleTime.Add(10 * time.Minute)),
	}}

	sess, err := NewSession(sessionConfig(), src, nil, nil, nil)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = sess.RunCycle(context.Background())
		require.NoError(t, err)
	}
	// One position, no duplicate-admission error across repeated signals.
	assert.True(t, sess.Engine().HasPosition("RELIANCE"))
	assert.Len(t, sess.Engine().Trades(), 1)
}

func TestRunCycleFetchErrorLeavesStateUntouched(t *testing.T) {
	sess, err := NewSession(sessionConfig(), &scriptedSource{err: errors.New("feed down")}, nil, nil, nil)
	require.NoError(t, err)

	_, err = sess.RunCycle(context.Background())
	require.Error(t, err)
	assert.Empty(t, sess.Engine().Trades())
}

func TestRunCycleRollsDayOnDateChange(t *testing.T) {
	day2 := cycleTime.Add(24 * time.Hour)
	src := &scriptedSource{batches: []snapshot.Batch{
		sessionBatch(cycleTime, bullishSnap("RELIANCE", 100, cycleTime)),
		sessionBatch(day2, bullishSnap("RELIANCE", 100, day2)),
	}}

	sess, err := NewSession(sessionConfig(), src, nil, nil, nil)
	require.NoError(t, err)

	_, err = sess.RunCycle(context.Background())
	require.NoError(t, err)
	_, err = sess.RunCycle(context.Background())
	require.NoError(t, err)

	snap := sess.Engine().Snapshot(day2)
	assert.Zero(t, snap.DailyPnL)
	assert.False(t, snap.Halted)
}

func cacheOver(t *testing.T, ttl time.Duration) *cache.RegimeCache {
	t.Helper()
	srv := miniredis.RunT(t)
	regimes, err := cache.Connect(context.Background(), srv.Addr(), "", 0, ttl)
	require.NoError(t, err)
	t.Cleanup(func() { regimes.Close() })
	return regimes
}

func TestNewSessionWarmStartsFromCachedRegime(t *testing.T) {
	cfg := sessionConfig()
	regimes := cacheOver(t, cfg.Redis.TTL.D())

	cached := regime.State{
		Regime:     regime.Bull,
		Confidence: 70,
		Composite:  72,
		Universe:   2,
		Timestamp:  time.Now().UTC(),
	}
	require.NoError(t, regimes.Save(context.Background(), cached))

	sess, err := NewSession(cfg, &scriptedSource{}, nil, regimes, nil)
	require.NoError(t, err)

	// The monitor view answers with the cached regime before any cycle runs.
	assert.Equal(t, regime.Bull, sess.Regime().Regime)
	assert.InDelta(t, 70.0, sess.Regime().Confidence, 0.001)
}

func TestNewSessionIgnoresStaleCachedRegime(t *testing.T) {
	cfg := sessionConfig()
	regimes := cacheOver(t, cfg.Redis.TTL.D())

	stale := regime.State{
		Regime:    regime.Bear,
		Timestamp: time.Now().UTC().Add(-time.Hour), // well past the 15m TTL
	}
	require.NoError(t, regimes.Save(context.Background(), stale))

	sess, err := NewSession(cfg, &scriptedSource{}, nil, regimes, nil)
	require.NoError(t, err)
	assert.Zero(t, sess.Regime())
}

func TestRefreshRegimeUpdatesStateWithoutTrading(t *testing.T) {
	src := &scriptedSource{batches: []snapshot.Batch{
		sessionBatch(cycleTime,
			bullishSnap("RELIANCE", 100, cycleTime),
			bullishSnap("TCS", 50, cycleTime)),
	}}

	sess, err := NewSession(sessionConfig(), src, nil, nil, nil)
	require.NoError(t, err)

	require.NoError(t, sess.RefreshRegime(context.Background()))
	assert.Equal(t, regime.Bull, sess.Regime().Regime)
	assert.Empty(t, sess.Engine().Trades())
}

func TestDailyTargetProgress(t *testing.T) {
	sess, err := NewSession(sessionConfig(), &scriptedSource{batches: []snapshot.Batch{
		sessionBatch(cycleTime, bullishSnap("RELIANCE", 100, cycleTime)),
	}}, nil, nil, nil)
	require.NoError(t, err)

	pnl, target, pct := sess.DailyTargetProgress(cycleTime)
	assert.Zero(t, pnl)
	assert.InDelta(t, 3000.0, target, 0.001)
	assert.Zero(t, pct)
}
