// Package postgres implements the persistence.Store contract on Postgres
// via sqlx. Every query runs under the configured timeout.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/equityrun/equityrun/internal/domain/portfolio"
)

// Schema creates the tables the store writes to. Idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS trades (
    id              UUID PRIMARY KEY,
    symbol          TEXT NOT NULL,
    side            TEXT NOT NULL,
    quantity        BIGINT NOT NULL,
    price           DOUBLE PRECISION NOT NULL,
    amount          DOUBLE PRECISION NOT NULL,
    commission      DOUBLE PRECISION NOT NULL,
    pnl             DOUBLE PRECISION,
    reason          TEXT NOT NULL DEFAULT '',
    ts              TIMESTAMPTZ NOT NULL,
    portfolio_value DOUBLE PRECISION NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_trades_ts ON trades (ts DESC);
CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades (symbol, ts DESC);

CREATE TABLE IF NOT EXISTS portfolio_snapshots (
    ts              TIMESTAMPTZ PRIMARY KEY,
    cash            DOUBLE PRECISION NOT NULL,
    equity          DOUBLE PRECISION NOT NULL,
    daily_pnl       DOUBLE PRECISION NOT NULL,
    total_pnl       DOUBLE PRECISION NOT NULL,
    high_water_mark DOUBLE PRECISION NOT NULL,
    halted          BOOLEAN NOT NULL,
    positions       JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS halt_events (
    ts        TIMESTAMPTZ PRIMARY KEY,
    daily_pnl DOUBLE PRECISION NOT NULL
);
`

// Store is the Postgres-backed persistence.Store.
type Store struct {
	db      *sqlx.DB
	timeout time.Duration
}

// New connects to dsn and verifies the connection.
func New(dsn string, timeout time.Duration) (*Store, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Store{db: db, timeout: timeout}, nil
}

// NewWithDB wraps an existing connection, used by tests with sqlmock.
func NewWithDB(db *sqlx.DB, timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Store{db: db, timeout: timeout}
}

// EnsureSchema creates tables and indexes if missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *Store) SaveTrade(ctx context.Context, trade portfolio.Trade) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := `
		INSERT INTO trades (id, symbol, side, quantity, price, amount, commission, pnl, reason, ts, portfolio_value)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := s.db.ExecContext(ctx, query,
		trade.ID, trade.Symbol, string(trade.Side), trade.Quantity, trade.Price,
		trade.Amount, trade.Commission, trade.PnL, trade.Reason, trade.Timestamp,
		trade.PortfolioValue)
	if err != nil {
		return fmt.Errorf("insert trade %s: %w", trade.Symbol, err)
	}
	return nil
}

func (s *Store) RecentTrades(ctx context.Context, limit int) ([]portfolio.Trade, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if limit <= 0 {
		limit = 50
	}
	var trades []portfolio.Trade
	query := `
		SELECT id, symbol, side, quantity, price, amount, commission, pnl, reason, ts, portfolio_value
		FROM trades ORDER BY ts DESC LIMIT $1`
	if err := s.db.SelectContext(ctx, &trades, query, limit); err != nil {
		return nil, fmt.Errorf("select recent trades: %w", err)
	}
	return trades, nil
}

func (s *Store) TradesBySymbol(ctx context.Context, symbol string, limit int) ([]portfolio.Trade, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if limit <= 0 {
		limit = 50
	}
	var trades []portfolio.Trade
	query := `
		SELECT id, symbol, side, quantity, price, amount, commission, pnl, reason, ts, portfolio_value
		FROM trades WHERE symbol = $1 ORDER BY ts DESC LIMIT $2`
	if err := s.db.SelectContext(ctx, &trades, query, symbol, limit); err != nil {
		return nil, fmt.Errorf("select trades for %s: %w", symbol, err)
	}
	return trades, nil
}

func (s *Store) SaveSnapshot(ctx context.Context, snap portfolio.Snapshot) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	positions, err := json.Marshal(snap.Positions)
	if err != nil {
		return fmt.Errorf("marshal positions: %w", err)
	}
	query := `
		INSERT INTO portfolio_snapshots (ts, cash, equity, daily_pnl, total_pnl, high_water_mark, halted, positions)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (ts) DO UPDATE SET
			cash = EXCLUDED.cash, equity = EXCLUDED.equity,
			daily_pnl = EXCLUDED.daily_pnl, total_pnl = EXCLUDED.total_pnl,
			high_water_mark = EXCLUDED.high_water_mark, halted = EXCLUDED.halted,
			positions = EXCLUDED.positions`
	_, err = s.db.ExecContext(ctx, query,
		snap.Timestamp, snap.Cash, snap.Equity, snap.DailyPnL, snap.TotalPnL,
		snap.HighWaterMark, snap.Halted, positions)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

func (s *Store) LatestSnapshot(ctx context.Context) (*portfolio.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	row := struct {
		TS            time.Time `db:"ts"`
		Cash          float64   `db:"cash"`
		Equity        float64   `db:"equity"`
		DailyPnL      float64   `db:"daily_pnl"`
		TotalPnL      float64   `db:"total_pnl"`
		HighWaterMark float64   `db:"high_water_mark"`
		Halted        bool      `db:"halted"`
		Positions     []byte    `db:"positions"`
	}{}
	query := `
		SELECT ts, cash, equity, daily_pnl, total_pnl, high_water_mark, halted, positions
		FROM portfolio_snapshots ORDER BY ts DESC LIMIT 1`
	if err := s.db.GetContext(ctx, &row, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select latest snapshot: %w", err)
	}

	snap := portfolio.Snapshot{
		Timestamp:     row.TS,
		Cash:          row.Cash,
		Equity:        row.Equity,
		DailyPnL:      row.DailyPnL,
		TotalPnL:      row.TotalPnL,
		HighWaterMark: row.HighWaterMark,
		Halted:        row.Halted,
	}
	if len(row.Positions) > 0 {
		if err := json.Unmarshal(row.Positions, &snap.Positions); err != nil {
			return nil, fmt.Errorf("unmarshal positions: %w", err)
		}
	}
	snap.OpenPositions = len(snap.Positions)
	return &snap, nil
}

func (s *Store) SaveHalt(ctx context.Context, event portfolio.HaltEvent) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := `INSERT INTO halt_events (ts, daily_pnl) VALUES ($1, $2) ON CONFLICT (ts) DO NOTHING`
	if _, err := s.db.ExecContext(ctx, query, event.Timestamp, event.DailyPnL); err != nil {
		return fmt.Errorf("insert halt event: %w", err)
	}
	return nil
}

// Close closes the underlying pool.
func (s *Store) Close() error {
	return s.db.Close()
}
