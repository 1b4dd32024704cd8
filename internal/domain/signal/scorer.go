package signal

import (
	"github.com/equityrun/equityrun/internal/domain/regime"
	"github.com/equityrun/equityrun/internal/domain/snapshot"
)

// Scorer evaluates one symbol at a time against the active regime's rule
// table. It holds no state between calls.
type Scorer struct {
	cfg Config
}

// NewScorer builds a scorer with the given gates.
func NewScorer(cfg Config) *Scorer {
	return &Scorer{cfg: cfg}
}

// Score evaluates curr against prev under the given regime state. prev must
// be an earlier snapshot of the same symbol; cross rules compare the two.
// The returned signal has Action None when nothing clears both gates.
func (s *Scorer) Score(curr, prev snapshot.Snapshot, st regime.State) Signal {
	none := Signal{
		Symbol:    curr.Symbol,
		Action:    ActionNone,
		Price:     curr.Price,
		Regime:    st.Regime,
		Timestamp: curr.Timestamp,
	}
	if curr.Validate() != nil || prev.Validate() != nil {
		return none
	}

	in := ruleInput{curr: curr, prev: prev}
	var action Action
	var points float64
	var conds int
	var reasons []string

	switch st.Regime {
	case regime.Bull:
		action = ActionBuy
		points, conds, reasons = evaluate(bullRules, in)
	case regime.Bear:
		action = ActionSell
		points, conds, reasons = evaluate(bearRules, in)
	default:
		// Range band around the slow EMA. Support and resistance are the
		// band edges; the scorer picks whichever side scores higher.
		band := s.cfg.RangeBandATRMult * curr.StopDistance()
		in.support = curr.EMASlow - band
		in.resist = curr.EMASlow + band

		buyPts, buyConds, buyReasons := evaluate(sidewaysBuyRules, in)
		sellPts, sellConds, sellReasons := evaluate(sidewaysSellRules, in)
		if buyPts >= sellPts {
			action, points, conds, reasons = ActionBuy, buyPts, buyConds, buyReasons
		} else {
			action, points, conds, reasons = ActionSell, sellPts, sellConds, sellReasons
		}
	}

	if points < s.cfg.MinScore || conds < s.cfg.MinConditions {
		return none
	}

	sig := Signal{
		Symbol:     curr.Symbol,
		Action:     action,
		Confidence: min100(points),
		Conditions: conds,
		Price:      curr.Price,
		Reasons:    reasons,
		Regime:     st.Regime,
		Timestamp:  curr.Timestamp,
	}
	sig.StopLoss, sig.Target = s.stopAndTarget(action, curr)
	return sig
}

// stopAndTarget places ATR-scaled exits around the reference price. Buys
// stop below and target above; sells mirror.
func (s *Scorer) stopAndTarget(action Action, snap snapshot.Snapshot) (stop, target float64) {
	dist := snap.StopDistance()
	if action == ActionSell {
		return snap.Price + s.cfg.StopATRMult*dist, snap.Price - s.cfg.TargetATRMult*dist
	}
	return snap.Price - s.cfg.StopATRMult*dist, snap.Price + s.cfg.TargetATRMult*dist
}

func min100(v float64) float64 {
	if v > 100 {
		return 100
	}
	return v
}
