package signal

import "github.com/equityrun/equityrun/internal/domain/snapshot"

// ruleInput is everything a rule may inspect: the current snapshot, the
// previous one for cross detection, and the sideways range band.
type ruleInput struct {
	curr    snapshot.Snapshot
	prev    snapshot.Snapshot
	support float64
	resist  float64
}

// rule is one scoring condition. Rules are evaluated in table order and each
// contributes its points at most once.
type rule struct {
	reason string
	points float64
	match  func(in ruleInput) bool
}

// emaBullCross fires on the bar where the fast EMA closes above the mid EMA
// after being at or below it.
func emaBullCross(in ruleInput) bool {
	return in.prev.EMAFast <= in.prev.EMAMid && in.curr.EMAFast > in.curr.EMAMid
}

func emaBearCross(in ruleInput) bool {
	return in.prev.EMAFast >= in.prev.EMAMid && in.curr.EMAFast < in.curr.EMAMid
}

func macdBullCross(in ruleInput) bool {
	return !in.prev.MACDBullish && in.curr.MACDBullish
}

func macdBearCross(in ruleInput) bool {
	return in.prev.MACDBullish && !in.curr.MACDBullish
}

const volumeSpikeRatio = 1.5

// bullRules score long entries in a bull regime. Order and points mirror the
// trend-following playbook: trend strength and EMA structure dominate,
// volume and positioning confirm.
var bullRules = []rule{
	{"Strong uptrend", 30, func(in ruleInput) bool { return in.curr.TrendScore >= 70 }},
	{"EMA bullish crossover", 25, emaBullCross},
	{"RSI in buy zone", 20, func(in ruleInput) bool { return in.curr.RSI >= 40 && in.curr.RSI <= 65 }},
	{"MACD bullish crossover", 15, macdBullCross},
	{"Supertrend bullish", 15, func(in ruleInput) bool { return in.curr.SupertrendBullish }},
	{"Volume spike", 10, func(in ruleInput) bool { return in.curr.VolumeRatio >= volumeSpikeRatio }},
	{"Above key EMAs", 10, func(in ruleInput) bool { return in.curr.AboveKeyEMAs() }},
}

// bearRules are the mirrored short-side table used in a bear regime. The
// portfolio is long-only, so these fire as exit pressure for open longs.
var bearRules = []rule{
	{"Strong downtrend", 30, func(in ruleInput) bool { return in.curr.TrendScore <= 30 }},
	{"EMA bearish crossover", 25, emaBearCross},
	{"RSI in sell zone", 20, func(in ruleInput) bool { return in.curr.RSI >= 35 && in.curr.RSI <= 60 }},
	{"MACD bearish crossover", 15, macdBearCross},
	{"Supertrend bearish", 15, func(in ruleInput) bool { return !in.curr.SupertrendBullish }},
	{"Volume spike", 10, func(in ruleInput) bool { return in.curr.VolumeRatio >= volumeSpikeRatio }},
	{"Below key EMAs", 10, func(in ruleInput) bool { return in.curr.BelowKeyEMAs() }},
}

// sidewaysBuyRules score mean-reversion longs near the bottom of the range.
var sidewaysBuyRules = []rule{
	{"Price at range support", 30, func(in ruleInput) bool { return in.curr.Price <= in.support }},
	{"RSI oversold", 25, func(in ruleInput) bool { return in.curr.RSI <= 35 }},
	{"RSI turning up", 15, func(in ruleInput) bool { return in.curr.RSI > in.prev.RSI }},
	{"MACD bullish crossover", 15, macdBullCross},
	{"Volume spike", 10, func(in ruleInput) bool { return in.curr.VolumeRatio >= volumeSpikeRatio }},
	{"Holding above slow EMA", 10, func(in ruleInput) bool { return in.curr.Price > in.curr.EMASlow }},
}

// sidewaysSellRules score fades near the top of the range.
var sidewaysSellRules = []rule{
	{"Price at range resistance", 30, func(in ruleInput) bool { return in.curr.Price >= in.resist }},
	{"RSI overbought", 25, func(in ruleInput) bool { return in.curr.RSI >= 65 }},
	{"RSI turning down", 15, func(in ruleInput) bool { return in.curr.RSI < in.prev.RSI }},
	{"MACD bearish crossover", 15, macdBearCross},
	{"Volume spike", 10, func(in ruleInput) bool { return in.curr.VolumeRatio >= volumeSpikeRatio }},
	{"Rejected below slow EMA", 10, func(in ruleInput) bool { return in.curr.Price < in.curr.EMASlow }},
}

// evaluate walks a table and returns summed points, matched count, and the
// reasons in table order.
func evaluate(table []rule, in ruleInput) (float64, int, []string) {
	var points float64
	var reasons []string
	for _, r := range table {
		if r.match(in) {
			points += r.points
			reasons = append(reasons, r.reason)
		}
	}
	return points, len(reasons), reasons
}
