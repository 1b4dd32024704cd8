package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/equityrun/equityrun/internal/domain/snapshot"
)

// WSSource maintains a websocket subscription to the indicator service and
// serves Fetch from the latest frames received. It reconnects with a fixed
// backoff until its context is cancelled.
type WSSource struct {
	url string

	mu     sync.RWMutex
	latest map[string]snapshot.Snapshot
	asOf   time.Time
}

// frame is one pushed snapshot update.
type frame struct {
	Timestamp time.Time           `json:"timestamp"`
	Snapshots []snapshot.Snapshot `json:"snapshots"`
}

// NewWSSource builds the source; Run must be started for data to flow.
func NewWSSource(wsURL string) *WSSource {
	return &WSSource{
		url:    wsURL,
		latest: make(map[string]snapshot.Snapshot),
	}
}

// Run reads frames until ctx is cancelled, reconnecting on error.
func (w *WSSource) Run(ctx context.Context) {
	const backoff = 5 * time.Second
	for {
		if err := w.readLoop(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn().Err(err).Str("url", w.url).Msg("feed stream dropped, reconnecting")
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
	}
}

func (w *WSSource) readLoop(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, w.url, nil)
	if err != nil {
		return fmt.Errorf("dial feed stream: %w", err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	log.Info().Str("url", w.url).Msg("feed stream connected")
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read feed frame: %w", err)
		}
		var f frame
		if err := json.Unmarshal(payload, &f); err != nil {
			log.Warn().Err(err).Msg("malformed feed frame skipped")
			continue
		}
		w.apply(f)
	}
}

func (w *WSSource) apply(f frame) {
	ts := f.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, s := range f.Snapshots {
		if s.Validate() != nil {
			continue
		}
		w.latest[s.Symbol] = s
	}
	if ts.After(w.asOf) {
		w.asOf = ts
	}
}

// Fetch assembles a batch from the most recent frames for the requested
// symbols. Symbols never seen on the stream are simply absent.
func (w *WSSource) Fetch(_ context.Context, symbols []string) (snapshot.Batch, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	batch := snapshot.Batch{
		Timestamp: w.asOf,
		Symbols:   make(map[string]snapshot.Snapshot, len(symbols)),
	}
	for _, sym := range symbols {
		if s, ok := w.latest[sym]; ok {
			batch.Symbols[sym] = s
		}
	}
	if batch.Timestamp.IsZero() {
		batch.Timestamp = time.Now().UTC()
	}
	return batch, nil
}
