// Package regime classifies the market as bull, bear, or sideways from a
// cross-section of indicator snapshots. The classifier is pure: same
// snapshots and config in, same state out.
package regime

import "time"

// Regime labels the market condition driving strategy selection.
type Regime string

const (
	Bull     Regime = "bull"
	Bear     Regime = "bear"
	Sideways Regime = "sideways"
)

// State is the output of one classification pass.
type State struct {
	Regime     Regime    `json:"regime"`
	Confidence float64   `json:"confidence"` // 0-100, distance from the decision boundary
	Composite  float64   `json:"composite"`  // weighted factor score, 0-100
	Factors    Factors   `json:"factors"`
	Universe   int       `json:"universe"` // symbols that contributed
	Timestamp  time.Time `json:"timestamp"`
}

// Factors are the normalized 0-100 readings the composite is built from.
type Factors struct {
	// Breadth is the percentage of symbols trading above their mid EMA.
	Breadth float64 `json:"breadth"`
	// AvgRSI is the mean RSI across the universe.
	AvgRSI float64 `json:"avg_rsi"`
	// Volatility is the mean ATR as a percentage of price, scaled to 0-100.
	// It enters the composite inverted: calm markets score bullish.
	Volatility float64 `json:"volatility"`
	// Momentum recenters the mean 10-period rate of change around 50.
	Momentum float64 `json:"momentum"`
}

// Weights allocate the composite across factors. They must sum to 1.
type Weights struct {
	Breadth    float64 `yaml:"breadth" json:"breadth"`
	AvgRSI     float64 `yaml:"avg_rsi" json:"avg_rsi"`
	Volatility float64 `yaml:"volatility" json:"volatility"`
	Momentum   float64 `yaml:"momentum" json:"momentum"`
}

// Sum returns the total weight, used by config validation.
func (w Weights) Sum() float64 {
	return w.Breadth + w.AvgRSI + w.Volatility + w.Momentum
}

// Config holds classifier thresholds and weights.
type Config struct {
	// BullThreshold and BearThreshold split the composite scale. Composite
	// above bull is bull, below bear is bear, between is sideways.
	BullThreshold float64 `yaml:"bull_threshold" json:"bull_threshold"`
	BearThreshold float64 `yaml:"bear_threshold" json:"bear_threshold"`
	Weights       Weights `yaml:"weights" json:"weights"`
}

// DefaultConfig returns the classifier defaults: 60/40 thresholds with
// breadth and momentum carrying most of the composite.
func DefaultConfig() Config {
	return Config{
		BullThreshold: 60,
		BearThreshold: 40,
		Weights: Weights{
			Breadth:    0.35,
			AvgRSI:     0.25,
			Volatility: 0.10,
			Momentum:   0.30,
		},
	}
}
