// Package notify announces fills, exits, and halts. The default sink is
// the structured log; chat transports plug in behind the same interface.
package notify

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/equityrun/equityrun/internal/domain/portfolio"
)

// Notifier delivers one-line announcements.
type Notifier interface {
	SendText(text string) error
}

// LogNotifier writes announcements to the application log.
type LogNotifier struct{}

func (LogNotifier) SendText(text string) error {
	log.Info().Str("channel", "notify").Msg(text)
	return nil
}

// TradeText formats a fill announcement.
func TradeText(tr portfolio.Trade) string {
	if tr.PnL != nil {
		return fmt.Sprintf("%s %s %dx%.2f pnl %.2f (%s)",
			tr.Side, tr.Symbol, tr.Quantity, tr.Price, *tr.PnL, tr.Reason)
	}
	return fmt.Sprintf("%s %s %dx%.2f", tr.Side, tr.Symbol, tr.Quantity, tr.Price)
}

// HaltText formats a daily-loss halt announcement.
func HaltText(ev portfolio.HaltEvent) string {
	return fmt.Sprintf("daily loss limit hit (%.2f), entries halted until next day", ev.DailyPnL)
}
