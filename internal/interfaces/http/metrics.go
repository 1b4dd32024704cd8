package http

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/equityrun/equityrun/internal/application"
	"github.com/equityrun/equityrun/internal/domain/regime"
)

// Metrics holds the Prometheus instruments for the trading loop.
type Metrics struct {
	registry *prometheus.Registry

	TradesOpened  prometheus.Counter
	TradesClosed  *prometheus.CounterVec
	Halts         prometheus.Counter
	Equity        prometheus.Gauge
	OpenPositions prometheus.Gauge
	DailyPnL      prometheus.Gauge
	RegimeState   *prometheus.GaugeVec
	CycleDuration prometheus.Histogram
}

// NewMetrics builds and registers all instruments on a private registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		TradesOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "equityrun_trades_opened_total",
			Help: "Total positions opened",
		}),
		TradesClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "equityrun_trades_closed_total",
			Help: "Total positions closed by exit reason",
		}, []string{"reason"}),
		Halts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "equityrun_halts_total",
			Help: "Total daily-loss halts",
		}),
		Equity: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "equityrun_equity",
			Help: "Portfolio equity at last known prices",
		}),
		OpenPositions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "equityrun_open_positions",
			Help: "Currently open positions",
		}),
		DailyPnL: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "equityrun_daily_pnl",
			Help: "Realized pnl for the current trading day",
		}),
		RegimeState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "equityrun_regime",
			Help: "Active regime (1 for the active label, 0 otherwise)",
		}, []string{"regime"}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "equityrun_cycle_duration_seconds",
			Help:    "Duration of one full trading cycle",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}
	registry.MustRegister(
		m.TradesOpened, m.TradesClosed, m.Halts, m.Equity,
		m.OpenPositions, m.DailyPnL, m.RegimeState, m.CycleDuration,
	)
	return m
}

// ObserveCycle folds one cycle report into the instruments.
func (m *Metrics) ObserveCycle(report application.CycleReport, seconds float64) {
	m.TradesOpened.Add(float64(len(report.Opened)))
	for _, tr := range report.Closed {
		m.TradesClosed.WithLabelValues(tr.Reason).Inc()
	}
	m.CycleDuration.Observe(seconds)
	m.SetRegime(report.Regime.Regime)
}

// SetRegime marks active as 1 and the other regime labels as 0.
func (m *Metrics) SetRegime(active regime.Regime) {
	for _, r := range []regime.Regime{regime.Bull, regime.Bear, regime.Sideways} {
		v := 0.0
		if r == active {
			v = 1
		}
		m.RegimeState.WithLabelValues(string(r)).Set(v)
	}
}
