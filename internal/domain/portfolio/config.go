package portfolio

import "fmt"

// Config sets the engine's capital, risk, and cost parameters.
type Config struct {
	InitialCapital      float64 `yaml:"initial_capital" json:"initial_capital"`
	MaxPositions        int     `yaml:"max_positions" json:"max_positions"`
	MaxDailyLoss        float64 `yaml:"max_daily_loss" json:"max_daily_loss"` // absolute currency amount
	RiskPerTradePct     float64 `yaml:"max_risk_per_trade_pct" json:"max_risk_per_trade_pct"`
	SinglePositionPct   float64 `yaml:"max_single_position_pct" json:"max_single_position_pct"`
	CommissionPct       float64 `yaml:"commission_pct" json:"commission_pct"`
	SlippagePct         float64 `yaml:"slippage_pct" json:"slippage_pct"`
	MaxHoldingDays      int     `yaml:"max_holding_days" json:"max_holding_days"`
	DailyProfitTarget   float64 `yaml:"daily_profit_target" json:"daily_profit_target"`
}

// DefaultConfig returns the standard paper account: 100k capital, five
// position slots, 2% risk per trade with a 20% single-position cap.
func DefaultConfig() Config {
	return Config{
		InitialCapital:    100000,
		MaxPositions:      5,
		MaxDailyLoss:      2000,
		RiskPerTradePct:   2,
		SinglePositionPct: 20,
		CommissionPct:     0.05,
		SlippagePct:       0.05,
		MaxHoldingDays:    10,
		DailyProfitTarget: 3000,
	}
}

// Validate rejects configs the engine cannot run on.
func (c Config) Validate() error {
	switch {
	case c.InitialCapital <= 0:
		return fmt.Errorf("initial_capital must be positive, got %.2f", c.InitialCapital)
	case c.MaxPositions <= 0:
		return fmt.Errorf("max_positions must be positive, got %d", c.MaxPositions)
	case c.MaxDailyLoss <= 0:
		return fmt.Errorf("max_daily_loss must be positive, got %.2f", c.MaxDailyLoss)
	case c.RiskPerTradePct <= 0 || c.RiskPerTradePct > 100:
		return fmt.Errorf("max_risk_per_trade_pct %.2f outside (0,100]", c.RiskPerTradePct)
	case c.SinglePositionPct <= 0 || c.SinglePositionPct > 100:
		return fmt.Errorf("max_single_position_pct %.2f outside (0,100]", c.SinglePositionPct)
	case c.CommissionPct < 0 || c.SlippagePct < 0:
		return fmt.Errorf("commission_pct and slippage_pct must be non-negative")
	case c.MaxHoldingDays <= 0:
		return fmt.Errorf("max_holding_days must be positive, got %d", c.MaxHoldingDays)
	}
	return nil
}
