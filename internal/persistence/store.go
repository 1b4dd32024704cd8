// Package persistence defines the storage contract for trades, portfolio
// snapshots, and halt events, with a Postgres implementation and an
// in-memory fallback for running without a database.
package persistence

import (
	"context"

	"github.com/equityrun/equityrun/internal/domain/portfolio"
)

// Store is the sink the live session writes through and the monitor
// surface reads from.
type Store interface {
	// SaveTrade appends one fill to the trade log.
	SaveTrade(ctx context.Context, trade portfolio.Trade) error
	// RecentTrades returns the newest trades, most recent first.
	RecentTrades(ctx context.Context, limit int) ([]portfolio.Trade, error)
	// TradesBySymbol returns a symbol's trades, most recent first.
	TradesBySymbol(ctx context.Context, symbol string, limit int) ([]portfolio.Trade, error)
	// SaveSnapshot records the end-of-cycle portfolio state.
	SaveSnapshot(ctx context.Context, snap portfolio.Snapshot) error
	// LatestSnapshot returns the newest portfolio snapshot, or nil when
	// none has been written yet.
	LatestSnapshot(ctx context.Context) (*portfolio.Snapshot, error)
	// SaveHalt records a daily-loss halt.
	SaveHalt(ctx context.Context, event portfolio.HaltEvent) error
	// Close releases the underlying connection.
	Close() error
}
