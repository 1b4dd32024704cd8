package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/equityrun/equityrun/internal/domain/snapshot"
)

// HTTPSource fetches snapshot batches from the indicator service REST API.
// Requests pass through a token-bucket rate limiter and a circuit breaker;
// a tripped breaker fails fast instead of hammering a struggling upstream.
type HTTPSource struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// HTTPSourceConfig tunes the client.
type HTTPSourceConfig struct {
	BaseURL    string
	RatePerSec float64
	Burst      int
	Timeout    time.Duration
}

// NewHTTPSource builds the client with sane fallbacks for zeroed fields.
func NewHTTPSource(cfg HTTPSourceConfig) *HTTPSource {
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 5
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 10
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "indicator-feed",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).
				Str("from", from.String()).Str("to", to.String()).
				Msg("feed breaker state change")
		},
	})

	return &HTTPSource{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.Burst),
		breaker: breaker,
	}
}

// Fetch requests one batch for the given symbols. Invalid snapshots in the
// response are dropped and logged, not fatal.
func (h *HTTPSource) Fetch(ctx context.Context, symbols []string) (snapshot.Batch, error) {
	if err := h.limiter.Wait(ctx); err != nil {
		return snapshot.Batch{}, fmt.Errorf("rate limit wait: %w", err)
	}

	result, err := h.breaker.Execute(func() (interface{}, error) {
		return h.fetchOnce(ctx, symbols)
	})
	if err != nil {
		return snapshot.Batch{}, err
	}
	return result.(snapshot.Batch), nil
}

func (h *HTTPSource) fetchOnce(ctx context.Context, symbols []string) (snapshot.Batch, error) {
	endpoint := fmt.Sprintf("%s/v1/snapshots?symbols=%s",
		h.baseURL, url.QueryEscape(strings.Join(symbols, ",")))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return snapshot.Batch{}, fmt.Errorf("build snapshot request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return snapshot.Batch{}, fmt.Errorf("fetch snapshots: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return snapshot.Batch{}, fmt.Errorf("snapshot feed returned %d", resp.StatusCode)
	}

	var payload struct {
		Timestamp time.Time           `json:"timestamp"`
		Snapshots []snapshot.Snapshot `json:"snapshots"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return snapshot.Batch{}, fmt.Errorf("decode snapshot payload: %w", err)
	}

	ts := payload.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	batch, dropped := snapshot.NewBatch(ts, payload.Snapshots)
	if dropped > 0 {
		log.Warn().Int("dropped", dropped).Msg("feed delivered incomplete snapshots")
	}
	return batch, nil
}
