// Package cache keeps the latest regime classification in Redis so the
// monitor surface and a restarting session can reuse it without waiting
// for the next classification cycle.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/equityrun/equityrun/internal/domain/regime"
)

const regimeKey = "equityrun:regime:latest"

// RegimeCache stores one regime.State under a TTL.
type RegimeCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New builds a cache over an existing client. TTL at or below zero falls
// back to 15 minutes.
func New(rdb *redis.Client, ttl time.Duration) *RegimeCache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &RegimeCache{rdb: rdb, ttl: ttl}
}

// Connect dials Redis and verifies the connection before wrapping it.
func Connect(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RegimeCache, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return New(rdb, ttl), nil
}

// Save overwrites the cached state.
func (c *RegimeCache) Save(ctx context.Context, state regime.State) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal regime state: %w", err)
	}
	if err := c.rdb.Set(ctx, regimeKey, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache regime state: %w", err)
	}
	return nil
}

// Latest returns the cached state, or nil when the key is absent or expired.
func (c *RegimeCache) Latest(ctx context.Context) (*regime.State, error) {
	payload, err := c.rdb.Get(ctx, regimeKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("read cached regime: %w", err)
	}
	var state regime.State
	if err := json.Unmarshal(payload, &state); err != nil {
		return nil, fmt.Errorf("unmarshal cached regime: %w", err)
	}
	return &state, nil
}

// Close releases the client.
func (c *RegimeCache) Close() error {
	return c.rdb.Close()
}
