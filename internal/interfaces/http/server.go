// Package http exposes the read-only monitor surface: health, Prometheus
// metrics, the latest regime, portfolio status, and recent trade history.
// There are no mutating endpoints; the trading loop cannot be driven from
// here.
package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/equityrun/equityrun/internal/application"
	"github.com/equityrun/equityrun/internal/persistence"
)

// Server serves the monitor endpoints for one live session.
type Server struct {
	session *application.Session
	store   persistence.Store
	metrics *Metrics
	httpSrv *http.Server
}

// NewServer wires the router. metrics may be shared with the trading loop.
func NewServer(addr string, session *application.Session, store persistence.Store, metrics *Metrics) *Server {
	s := &Server{session: session, store: store, metrics: metrics}

	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(metrics.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/regime", s.handleRegime).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/portfolio", s.handlePortfolio).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/trades", s.handleTrades).Methods(http.MethodGet)

	s.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	log.Info().Str("addr", s.httpSrv.Addr).Msg("monitor server listening")
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"session": s.session.ID(),
		"time":    time.Now().UTC(),
	})
}

func (s *Server) handleRegime(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Regime())
}

func (s *Server) handlePortfolio(w http.ResponseWriter, _ *http.Request) {
	now := time.Now().UTC()
	snap := s.session.Engine().Snapshot(now)
	pnl, target, pct := s.session.DailyTargetProgress(now)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"portfolio": snap,
		"daily_target": map[string]float64{
			"pnl":          pnl,
			"target":       target,
			"progress_pct": pct,
		},
	})
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 500 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be 1-500"})
			return
		}
		limit = parsed
	}

	var err error
	var trades interface{}
	if symbol := r.URL.Query().Get("symbol"); symbol != "" {
		trades, err = s.store.TradesBySymbol(r.Context(), symbol, limit)
	} else {
		trades, err = s.store.RecentTrades(r.Context(), limit)
	}
	if err != nil {
		log.Error().Err(err).Msg("trade history query failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "trade history unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, trades)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("response encode failed")
	}
}
