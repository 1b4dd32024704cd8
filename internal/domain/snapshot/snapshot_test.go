package snapshot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var batchTime = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func valid(symbol string) Snapshot {
	return Snapshot{
		Symbol:      symbol,
		Timestamp:   batchTime,
		Price:       100,
		TrendScore:  60,
		RSI:         55,
		VolumeRatio: 1.2,
		EMAFast:     99,
		EMAMid:      98,
		EMASlow:     95,
		ATR:         2,
		MomentumPct: 3,
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Snapshot)
		ok     bool
	}{
		{"complete", func(s *Snapshot) {}, true},
		{"zero ATR allowed", func(s *Snapshot) { s.ATR = 0 }, true},
		{"missing symbol", func(s *Snapshot) { s.Symbol = "" }, false},
		{"zero timestamp", func(s *Snapshot) { s.Timestamp = time.Time{} }, false},
		{"zero price", func(s *Snapshot) { s.Price = 0 }, false},
		{"RSI out of range", func(s *Snapshot) { s.RSI = 101 }, false},
		{"negative trend score", func(s *Snapshot) { s.TrendScore = -1 }, false},
		{"zero EMA", func(s *Snapshot) { s.EMAMid = 0 }, false},
		{"negative ATR", func(s *Snapshot) { s.ATR = -0.5 }, false},
		{"negative volume ratio", func(s *Snapshot) { s.VolumeRatio = -1 }, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := valid("RELIANCE")
			tc.mutate(&s)
			err := s.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestStopDistanceFallsBackWhenATRZero(t *testing.T) {
	s := valid("RELIANCE")
	assert.InDelta(t, 2.0, s.StopDistance(), 0.001)

	s.ATR = 0
	assert.InDelta(t, 2.0, s.StopDistance(), 0.001) // 2% of 100

	s.Price = 500
	assert.InDelta(t, 10.0, s.StopDistance(), 0.001)
}

func TestNewBatchDropsInvalidSnapshots(t *testing.T) {
	bad := valid("TCS")
	bad.Price = 0

	b, dropped := NewBatch(batchTime, []Snapshot{valid("RELIANCE"), bad, valid("INFY")})
	assert.Equal(t, 1, dropped)
	require.Len(t, b.Symbols, 2)
	assert.Contains(t, b.Symbols, "RELIANCE")
	assert.NotContains(t, b.Symbols, "TCS")
}

func TestSortedSymbolsAscending(t *testing.T) {
	b, _ := NewBatch(batchTime, []Snapshot{valid("TCS"), valid("INFY"), valid("RELIANCE")})
	assert.Equal(t, []string{"INFY", "RELIANCE", "TCS"}, b.SortedSymbols())
}
