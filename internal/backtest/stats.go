package backtest

import (
	"math"

	"github.com/equityrun/equityrun/internal/domain/portfolio"
)

// Summary aggregates a run's closed trades and equity curve.
type Summary struct {
	ClosedTrades int     `json:"closed_trades"`
	Wins         int     `json:"wins"`
	Losses       int     `json:"losses"`
	WinRatePct   float64 `json:"win_rate_pct"`
	GrossProfit  float64 `json:"gross_profit"`
	GrossLoss    float64 `json:"gross_loss"` // absolute value
	NetPnL       float64 `json:"net_pnl"`
	// ProfitFactor is gross profit over gross loss. Zero when no trades
	// closed; +Inf when every closed trade won.
	ProfitFactor   float64 `json:"profit_factor"`
	AvgWin         float64 `json:"avg_win"`
	AvgLoss        float64 `json:"avg_loss"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct"`
	TotalReturnPct float64 `json:"total_return_pct"`
	FinalEquity    float64 `json:"final_equity"`
}

// Summarize computes run statistics from the closed legs of the trade log
// and the per-batch equity curve.
func Summarize(initialCapital float64, trades []portfolio.Trade, equity []EquityPoint) Summary {
	var s Summary

	for _, tr := range trades {
		if tr.PnL == nil {
			continue
		}
		s.ClosedTrades++
		pnl := *tr.PnL
		s.NetPnL += pnl
		if pnl > 0 {
			s.Wins++
			s.GrossProfit += pnl
		} else {
			s.Losses++
			s.GrossLoss += -pnl
		}
	}

	if s.ClosedTrades > 0 {
		s.WinRatePct = float64(s.Wins) / float64(s.ClosedTrades) * 100
	}
	if s.Wins > 0 {
		s.AvgWin = s.GrossProfit / float64(s.Wins)
	}
	if s.Losses > 0 {
		s.AvgLoss = s.GrossLoss / float64(s.Losses)
	}
	switch {
	case s.GrossLoss > 0:
		s.ProfitFactor = s.GrossProfit / s.GrossLoss
	case s.GrossProfit > 0:
		s.ProfitFactor = math.Inf(1)
	}

	s.FinalEquity = initialCapital
	if len(equity) > 0 {
		s.FinalEquity = equity[len(equity)-1].Equity
	}
	if initialCapital > 0 {
		s.TotalReturnPct = (s.FinalEquity - initialCapital) / initialCapital * 100
	}
	s.MaxDrawdownPct = maxDrawdown(equity)
	return s
}

// maxDrawdown is the largest peak-to-trough equity decline in percent.
func maxDrawdown(equity []EquityPoint) float64 {
	var peak, worst float64
	for _, pt := range equity {
		if pt.Equity > peak {
			peak = pt.Equity
		}
		if peak > 0 {
			dd := (peak - pt.Equity) / peak * 100
			if dd > worst {
				worst = dd
			}
		}
	}
	return worst
}
