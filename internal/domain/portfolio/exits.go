package portfolio

// ExitReason identifies why a position was closed. Reasons are evaluated in
// strict precedence order; the first trigger that fires names the close.
type ExitReason int

const (
	ExitNone ExitReason = iota
	ExitStopLoss
	ExitTarget
	ExitMaxHolding
	ExitOpposingSignal
)

// String returns the human-readable exit reason stored on the trade row.
func (r ExitReason) String() string {
	switch r {
	case ExitStopLoss:
		return "stop_loss"
	case ExitTarget:
		return "target_hit"
	case ExitMaxHolding:
		return "max_holding"
	case ExitOpposingSignal:
		return "opposing_signal"
	default:
		return "none"
	}
}
