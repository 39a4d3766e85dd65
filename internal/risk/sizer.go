// Package risk decides how much capital each new entry may commit and
// when an open position must be exited.
package risk

import (
	"fmt"
	"math"
)

// Sizer computes the cash amount to commit to a new entry given the
// available cash and total portfolio equity.
type Sizer interface {
	InvestmentAmount(cash, equity float64) float64
}

// FixedNotionalSizer commits a fixed notional per entry, capped at the
// available cash.
type FixedNotionalSizer struct {
	Notional float64
}

func (s FixedNotionalSizer) InvestmentAmount(cash, equity float64) float64 {
	return math.Min(s.Notional, cash)
}

// PercentEquitySizer commits a fraction of total equity per entry,
// capped at both the notional ceiling and available cash.
type PercentEquitySizer struct {
	Percent     float64
	MaxNotional float64
}

func (s PercentEquitySizer) InvestmentAmount(cash, equity float64) float64 {
	amount := equity * s.Percent
	if s.MaxNotional > 0 {
		amount = math.Min(amount, s.MaxNotional)
	}
	return math.Min(amount, cash)
}

// NewSizer builds the sizer named by method. "fixed" and "percent" are
// supported.
func NewSizer(method string, notional, percent float64) (Sizer, error) {
	switch method {
	case "fixed", "":
		return FixedNotionalSizer{Notional: notional}, nil
	case "percent":
		return PercentEquitySizer{Percent: percent, MaxNotional: notional}, nil
	default:
		return nil, fmt.Errorf("unknown sizing method %q", method)
	}
}
