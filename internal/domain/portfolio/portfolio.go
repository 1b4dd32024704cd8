// Package portfolio holds the paper-trading state machine: cash, open
// positions, the trade log, daily loss control, and the exit/entry
// evaluation order. All mutation flows through the Engine, which serializes
// access with a single mutex.
package portfolio

import (
	"time"

	"github.com/google/uuid"
)

// Position is one open long holding. At most one position exists per symbol.
type Position struct {
	Symbol          string    `json:"symbol" db:"symbol"`
	Quantity        int64     `json:"quantity" db:"quantity"`
	EntryPrice      float64   `json:"entry_price" db:"entry_price"` // fill price, slippage included
	EntryTime       time.Time `json:"entry_time" db:"entry_time"`
	StopLoss        float64   `json:"stop_loss" db:"stop_loss"`
	Target          float64   `json:"target" db:"target"`
	EntryCommission float64   `json:"entry_commission" db:"entry_commission"`
	CurrentPrice    float64   `json:"current_price" db:"current_price"`
	Confidence      float64   `json:"confidence" db:"confidence"` // signal confidence at entry
}

// UnrealizedPnL values the position at its last known price, entry
// commission deducted.
func (p Position) UnrealizedPnL() float64 {
	return (p.CurrentPrice-p.EntryPrice)*float64(p.Quantity) - p.EntryCommission
}

// HoldingDays is the whole number of calendar days the position has been open.
func (p Position) HoldingDays(now time.Time) int {
	return int(now.Sub(p.EntryTime).Hours() / 24)
}

// TradeSide distinguishes entry and exit legs in the trade log.
type TradeSide string

const (
	SideBuy  TradeSide = "BUY"
	SideSell TradeSide = "SELL"
)

// Trade is one fill appended to the trade log. PnL is nil on entry legs and
// set on exits; a nil PnL is how consumers tell the legs apart.
type Trade struct {
	ID             string    `json:"id" db:"id"`
	Symbol         string    `json:"symbol" db:"symbol"`
	Side           TradeSide `json:"side" db:"side"`
	Quantity       int64     `json:"quantity" db:"quantity"`
	Price          float64   `json:"price" db:"price"` // fill price, slippage included
	Amount         float64   `json:"amount" db:"amount"`
	Commission     float64   `json:"commission" db:"commission"`
	PnL            *float64  `json:"pnl,omitempty" db:"pnl"`
	Reason         string    `json:"reason" db:"reason"`
	Timestamp      time.Time `json:"timestamp" db:"ts"`
	PortfolioValue float64   `json:"portfolio_value" db:"portfolio_value"`
}

// HaltEvent records a daily-loss circuit breaker trip.
type HaltEvent struct {
	Timestamp time.Time `json:"timestamp" db:"ts"`
	DailyPnL  float64   `json:"daily_pnl" db:"daily_pnl"`
}

// Snapshot is an immutable copy of portfolio state handed to persistence
// and the monitor surface. Mutating it never touches the live portfolio.
type Snapshot struct {
	Timestamp     time.Time  `json:"timestamp"`
	Cash          float64    `json:"cash"`
	Equity        float64    `json:"equity"` // cash plus positions at last known prices
	Positions     []Position `json:"positions"`
	OpenPositions int        `json:"open_positions"`
	UnrealizedPnL float64    `json:"unrealized_pnl"` // sum over open positions
	DailyPnL      float64    `json:"daily_pnl"`
	TotalPnL      float64    `json:"total_pnl"`
	HighWaterMark float64    `json:"high_water_mark"`
	Halted        bool       `json:"halted"`
	TradeCount    int        `json:"trade_count"`
}

func newTradeID() string {
	return uuid.NewString()
}
