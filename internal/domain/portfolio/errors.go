package portfolio

import "errors"

var (
	// ErrDuplicatePosition reports a BUY admitted for a symbol that already
	// has an open position. Callers are required to filter held symbols out
	// of the candidate set; seeing one here is a logic fault, not data noise.
	ErrDuplicatePosition = errors.New("position already open for symbol")

	// ErrStopOnWrongSide reports a long entry whose stop is at or above the
	// reference price, which would make the risk distance non-positive.
	ErrStopOnWrongSide = errors.New("stop loss not below entry price")

	// ErrNotPaperMode refuses to construct a live session when the config
	// does not explicitly opt into paper trading.
	ErrNotPaperMode = errors.New("paper_only is disabled; no live order path exists")
)
