package persistence

import (
	"context"
	"sync"

	"github.com/equityrun/equityrun/internal/domain/portfolio"
)

// MemoryStore keeps everything in process. It backs sessions configured
// without a database DSN and most tests.
type MemoryStore struct {
	mu        sync.RWMutex
	trades    []portfolio.Trade
	snapshots []portfolio.Snapshot
	halts     []portfolio.HaltEvent
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) SaveTrade(_ context.Context, trade portfolio.Trade) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trades = append(m.trades, trade)
	return nil
}

func (m *MemoryStore) RecentTrades(_ context.Context, limit int) ([]portfolio.Trade, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return lastN(m.trades, limit), nil
}

func (m *MemoryStore) TradesBySymbol(_ context.Context, symbol string, limit int) ([]portfolio.Trade, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var matched []portfolio.Trade
	for _, tr := range m.trades {
		if tr.Symbol == symbol {
			matched = append(matched, tr)
		}
	}
	return lastN(matched, limit), nil
}

func (m *MemoryStore) SaveSnapshot(_ context.Context, snap portfolio.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots = append(m.snapshots, snap)
	return nil
}

func (m *MemoryStore) LatestSnapshot(_ context.Context) (*portfolio.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.snapshots) == 0 {
		return nil, nil
	}
	snap := m.snapshots[len(m.snapshots)-1]
	return &snap, nil
}

func (m *MemoryStore) SaveHalt(_ context.Context, event portfolio.HaltEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.halts = append(m.halts, event)
	return nil
}

// Halts returns all recorded halt events, oldest first.
func (m *MemoryStore) Halts() []portfolio.HaltEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]portfolio.HaltEvent, len(m.halts))
	copy(out, m.halts)
	return out
}

func (m *MemoryStore) Close() error { return nil }

// lastN returns up to n newest items, newest first.
func lastN(trades []portfolio.Trade, n int) []portfolio.Trade {
	if n <= 0 || n > len(trades) {
		n = len(trades)
	}
	out := make([]portfolio.Trade, 0, n)
	for i := len(trades) - 1; i >= len(trades)-n; i-- {
		out = append(out, trades[i])
	}
	return out
}
