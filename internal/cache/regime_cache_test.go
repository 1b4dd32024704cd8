package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/equityrun/equityrun/internal/domain/regime"
)

func testCache(t *testing.T, ttl time.Duration) (*miniredis.Miniredis, *RegimeCache) {
	t.Helper()
	srv := miniredis.RunT(t)
	c, err := Connect(context.Background(), srv.Addr(), "", 0, ttl)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return srv, c
}

func TestSaveThenLatestRoundTrip(t *testing.T) {
	_, c := testCache(t, time.Minute)

	want := regime.State{
		Regime:     regime.Bull,
		Confidence: 62.5,
		Composite:  71,
		Factors:    regime.Factors{Breadth: 80, AvgRSI: 58, Volatility: 35, Momentum: 66},
		Universe:   10,
		Timestamp:  time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, c.Save(context.Background(), want))

	got, err := c.Latest(context.Background())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want, *got)
}

func TestLatestMissIsNotAnError(t *testing.T) {
	_, c := testCache(t, time.Minute)

	got, err := c.Latest(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestLatestAfterExpiry(t *testing.T) {
	srv, c := testCache(t, time.Minute)

	require.NoError(t, c.Save(context.Background(), regime.State{
		Regime:    regime.Sideways,
		Timestamp: time.Now().UTC(),
	}))
	srv.FastForward(2 * time.Minute)

	got, err := c.Latest(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
}
