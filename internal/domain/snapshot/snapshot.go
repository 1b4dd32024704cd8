// Package snapshot defines the indicator snapshot contract shared by the
// regime classifier, the signal scorer, and the backtest driver. Snapshots
// arrive precomputed from the indicator service; nothing in this module
// calculates indicators from raw candles.
package snapshot

import (
	"fmt"
	"sort"
	"time"
)

// Snapshot is one symbol's indicator state at one instant.
type Snapshot struct {
	Symbol    string    `json:"symbol" db:"symbol"`
	Timestamp time.Time `json:"timestamp" db:"ts"`

	// Price is the reference price fills are derived from.
	Price float64 `json:"price" db:"price"`

	// TrendScore is a composite trend strength reading on a 0-100 scale.
	TrendScore float64 `json:"trend_score" db:"trend_score"`

	// RSI is the 14-period relative strength index, 0-100.
	RSI float64 `json:"rsi" db:"rsi"`

	// MACDBullish reports whether the MACD line sits above its signal line.
	MACDBullish bool `json:"macd_bullish" db:"macd_bullish"`

	// SupertrendBullish reports whether price trades above the supertrend line.
	SupertrendBullish bool `json:"supertrend_bullish" db:"supertrend_bullish"`

	// VolumeRatio is current volume over its 20-period average.
	VolumeRatio float64 `json:"volume_ratio" db:"volume_ratio"`

	// EMAFast, EMAMid, EMASlow are the 9/21/50-period exponential averages.
	EMAFast float64 `json:"ema_fast" db:"ema_fast"`
	EMAMid  float64 `json:"ema_mid" db:"ema_mid"`
	EMASlow float64 `json:"ema_slow" db:"ema_slow"`

	// ATR is the 14-period average true range in price units.
	ATR float64 `json:"atr" db:"atr"`

	// MomentumPct is the 10-period rate of change in percent.
	MomentumPct float64 `json:"momentum_pct" db:"momentum_pct"`
}

// Validate reports whether the snapshot is complete enough to trade on.
// Symbols with invalid snapshots are skipped for the cycle, never guessed at.
func (s Snapshot) Validate() error {
	switch {
	case s.Symbol == "":
		return fmt.Errorf("snapshot missing symbol")
	case s.Timestamp.IsZero():
		return fmt.Errorf("snapshot %s missing timestamp", s.Symbol)
	case s.Price <= 0:
		return fmt.Errorf("snapshot %s has non-positive price %.4f", s.Symbol, s.Price)
	case s.RSI < 0 || s.RSI > 100:
		return fmt.Errorf("snapshot %s has RSI %.2f outside [0,100]", s.Symbol, s.RSI)
	case s.TrendScore < 0 || s.TrendScore > 100:
		return fmt.Errorf("snapshot %s has trend score %.2f outside [0,100]", s.Symbol, s.TrendScore)
	case s.EMAFast <= 0 || s.EMAMid <= 0 || s.EMASlow <= 0:
		return fmt.Errorf("snapshot %s has non-positive EMA", s.Symbol)
	case s.ATR < 0:
		return fmt.Errorf("snapshot %s has negative ATR %.4f", s.Symbol, s.ATR)
	case s.VolumeRatio < 0:
		return fmt.Errorf("snapshot %s has negative volume ratio %.2f", s.Symbol, s.VolumeRatio)
	}
	return nil
}

// StopDistance returns the ATR-based unit used for stop and target offsets.
// Snapshots occasionally arrive with ATR zeroed during warmup; fall back to
// 2% of price so sizing never divides by zero.
func (s Snapshot) StopDistance() float64 {
	if s.ATR > 0 {
		return s.ATR
	}
	return s.Price * 0.02
}

// AboveKeyEMAs reports whether price holds above both fast and mid EMAs.
func (s Snapshot) AboveKeyEMAs() bool {
	return s.Price > s.EMAFast && s.Price > s.EMAMid
}

// BelowKeyEMAs reports whether price sits below both fast and mid EMAs.
func (s Snapshot) BelowKeyEMAs() bool {
	return s.Price < s.EMAFast && s.Price < s.EMAMid
}

// Batch is the set of snapshots for one evaluation instant, keyed by symbol.
// All snapshots in a batch share the same timestamp.
type Batch struct {
	Timestamp time.Time           `json:"timestamp"`
	Symbols   map[string]Snapshot `json:"symbols"`
}

// NewBatch builds a batch from a slice, dropping snapshots that fail
// validation and reporting how many were dropped.
func NewBatch(ts time.Time, snaps []Snapshot) (Batch, int) {
	b := Batch{Timestamp: ts, Symbols: make(map[string]Snapshot, len(snaps))}
	dropped := 0
	for _, s := range snaps {
		if err := s.Validate(); err != nil {
			dropped++
			continue
		}
		b.Symbols[s.Symbol] = s
	}
	return b, dropped
}

// SortedSymbols returns the batch's symbols in ascending order. Iteration
// over the engine pipeline always walks symbols in this order so runs over
// identical input produce identical output.
func (b Batch) SortedSymbols() []string {
	out := make([]string, 0, len(b.Symbols))
	for sym := range b.Symbols {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}
