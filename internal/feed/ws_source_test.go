package feed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/equityrun/equityrun/internal/domain/snapshot"
)

func validSnap(symbol string, price float64, ts time.Time) snapshot.Snapshot {
	return snapshot.Snapshot{
		Symbol:    symbol,
		Timestamp: ts,
		Price:     price,
		RSI:       50,
		EMAFast:   price,
		EMAMid:    price,
		EMASlow:   price,
		ATR:       price * 0.02,
	}
}

func TestWSSourceServesLatestFrames(t *testing.T) {
	src := NewWSSource("ws://feed.local/stream")
	ts1 := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	ts2 := ts1.Add(time.Minute)

	src.apply(frame{Timestamp: ts1, Snapshots: []snapshot.Snapshot{
		validSnap("RELIANCE", 2500, ts1),
		validSnap("TCS", 3600, ts1),
	}})
	src.apply(frame{Timestamp: ts2, Snapshots: []snapshot.Snapshot{
		validSnap("RELIANCE", 2510, ts2),
		{Symbol: "INFY"}, // incomplete, dropped
	}})

	batch, err := src.Fetch(context.Background(), []string{"RELIANCE", "TCS", "INFY", "SBIN"})
	require.NoError(t, err)

	assert.Len(t, batch.Symbols, 2)
	assert.InDelta(t, 2510.0, batch.Symbols["RELIANCE"].Price, 0.001)
	assert.InDelta(t, 3600.0, batch.Symbols["TCS"].Price, 0.001)
	assert.True(t, batch.Timestamp.Equal(ts2))
}
