// Package signal scores per-symbol entry and exit candidates from indicator
// snapshots. Each regime carries its own ordered rule table; a signal fires
// only when both the point score and the distinct-condition count clear
// their configured floors.
package signal

import (
	"time"

	"github.com/equityrun/equityrun/internal/domain/regime"
)

// Action is the direction a signal recommends.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionNone Action = "NONE"
)

// Signal is one scored recommendation for one symbol. Action None means the
// symbol was evaluated and nothing fired; callers treat it as absence.
type Signal struct {
	Symbol     string        `json:"symbol"`
	Action     Action        `json:"action"`
	Confidence float64       `json:"confidence"` // summed rule points, capped at 100
	Conditions int           `json:"conditions"` // distinct rules that matched
	Price      float64       `json:"price"`
	StopLoss   float64       `json:"stop_loss"`
	Target     float64       `json:"target"`
	Reasons    []string      `json:"reasons"`
	Regime     regime.Regime `json:"regime"`
	Timestamp  time.Time     `json:"timestamp"`
}

// Config holds the scorer's gates and stop geometry.
type Config struct {
	// MinScore is the minimum summed points before a signal fires.
	MinScore float64 `yaml:"min_score" json:"min_score"`
	// MinConditions is the minimum count of distinct matched rules.
	MinConditions int `yaml:"min_conditions" json:"min_conditions"`
	// StopATRMult and TargetATRMult size the stop and target as ATR multiples.
	StopATRMult   float64 `yaml:"stop_atr_mult" json:"stop_atr_mult"`
	TargetATRMult float64 `yaml:"target_atr_mult" json:"target_atr_mult"`
	// RangeBandATRMult widens the sideways support/resistance band around
	// the slow EMA.
	RangeBandATRMult float64 `yaml:"range_band_atr_mult" json:"range_band_atr_mult"`
}

// DefaultConfig returns the standard 60-point, three-condition gate with
// 2x ATR stops and 3x ATR targets.
func DefaultConfig() Config {
	return Config{
		MinScore:         60,
		MinConditions:    3,
		StopATRMult:      2.0,
		TargetATRMult:    3.0,
		RangeBandATRMult: 1.0,
	}
}
