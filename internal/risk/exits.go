package risk

// ExitRule evaluates an open position against its entry cost and the
// current price.
type ExitRule struct {
	StopLossPct   float64
	TakeProfitPct float64
}

// ExitSignal names which threshold fired, if any.
type ExitSignal string

const (
	ExitNone       ExitSignal = ""
	ExitStopLoss   ExitSignal = "STOP_LOSS"
	ExitTakeProfit ExitSignal = "TAKE_PROFIT"
)

// Evaluate returns the exit signal for a position with the given average
// cost at the given price. Thresholds are inclusive: a move of exactly
// the configured percentage triggers the exit.
func (r ExitRule) Evaluate(avgCost, price float64) (ExitSignal, float64) {
	if avgCost <= 0 {
		return ExitNone, 0
	}
	pctChange := (price - avgCost) / avgCost
	switch {
	case pctChange <= -r.StopLossPct:
		return ExitStopLoss, pctChange
	case pctChange >= r.TakeProfitPct:
		return ExitTakeProfit, pctChange
	default:
		return ExitNone, pctChange
	}
}
