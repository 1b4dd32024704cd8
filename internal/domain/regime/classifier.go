package regime

import (
	"math"
	"time"

	"github.com/equityrun/equityrun/internal/domain/snapshot"
)

// volatilityScale maps mean ATR% of price onto the 0-100 factor scale.
// 5% average true range saturates the factor.
const volatilityScale = 20.0

// momentumScale maps mean 10-period momentum% onto the +/-50 band around 50.
const momentumScale = 5.0

// Classifier turns a snapshot cross-section into a regime State.
type Classifier struct {
	cfg Config
}

// NewClassifier builds a classifier with the given thresholds and weights.
func NewClassifier(cfg Config) *Classifier {
	return &Classifier{cfg: cfg}
}

// Classify computes the regime for one evaluation instant. An empty universe
// yields Sideways with zero confidence and neutral factors.
func (c *Classifier) Classify(batch snapshot.Batch) State {
	st := State{
		Regime:    Sideways,
		Timestamp: batch.Timestamp,
		Factors:   Factors{Breadth: 50, AvgRSI: 50, Volatility: 50, Momentum: 50},
	}
	if len(batch.Symbols) == 0 {
		st.Composite = c.neutralComposite()
		return st
	}

	var above int
	var rsiSum, atrPctSum, momSum float64
	for _, sym := range batch.SortedSymbols() {
		s := batch.Symbols[sym]
		if s.Price > s.EMAMid {
			above++
		}
		rsiSum += s.RSI
		atrPctSum += s.StopDistance() / s.Price * 100
		momSum += s.MomentumPct
	}
	n := float64(len(batch.Symbols))

	st.Universe = len(batch.Symbols)
	st.Factors = Factors{
		Breadth:    float64(above) / n * 100,
		AvgRSI:     clamp(rsiSum/n, 0, 100),
		Volatility: clamp(atrPctSum/n*volatilityScale, 0, 100),
		Momentum:   clamp(50+momSum/n*momentumScale, 0, 100),
	}

	st.Composite = c.composite(st.Factors)
	st.Regime, st.Confidence = c.decide(st.Composite)
	return st
}

// composite blends the factors. Volatility enters inverted so that quiet
// tape pushes the composite up, not down.
func (c *Classifier) composite(f Factors) float64 {
	w := c.cfg.Weights
	score := w.Breadth*f.Breadth +
		w.AvgRSI*f.AvgRSI +
		w.Momentum*f.Momentum +
		w.Volatility*(100-f.Volatility)
	return clamp(score, 0, 100)
}

func (c *Classifier) neutralComposite() float64 {
	return c.composite(Factors{Breadth: 50, AvgRSI: 50, Volatility: 50, Momentum: 50})
}

// decide maps the composite onto a regime and a confidence. Confidence is
// the distance from the nearest threshold normalized to 0-100: a composite
// right on a boundary is a coin flip, the extremes are certain.
func (c *Classifier) decide(composite float64) (Regime, float64) {
	bull, bear := c.cfg.BullThreshold, c.cfg.BearThreshold
	switch {
	case composite >= bull:
		span := 100 - bull
		if span <= 0 {
			return Bull, 100
		}
		return Bull, clamp((composite-bull)/span*100, 0, 100)
	case composite <= bear:
		if bear <= 0 {
			return Bear, 100
		}
		return Bear, clamp((bear-composite)/bear*100, 0, 100)
	default:
		half := (bull - bear) / 2
		if half <= 0 {
			return Sideways, 0
		}
		dist := math.Min(composite-bear, bull-composite)
		return Sideways, clamp(dist/half*100, 0, 100)
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// StaleAfter reports whether a cached state is too old to act on.
func (s State) StaleAfter(now time.Time, ttl time.Duration) bool {
	return now.Sub(s.Timestamp) > ttl
}
