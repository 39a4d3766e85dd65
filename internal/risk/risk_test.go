package risk

import (
	"math"
	"testing"
)

func TestFixedNotionalSizer(t *testing.T) {
	s := FixedNotionalSizer{Notional: 5000}

	if got := s.InvestmentAmount(100000, 100000); got != 5000 {
		t.Errorf("ample cash: got %v, want 5000", got)
	}
	if got := s.InvestmentAmount(3000, 100000); got != 3000 {
		t.Errorf("thin cash: got %v, want 3000", got)
	}
	if got := s.InvestmentAmount(0, 100000); got != 0 {
		t.Errorf("no cash: got %v, want 0", got)
	}
}

func TestPercentEquitySizer(t *testing.T) {
	s := PercentEquitySizer{Percent: 0.05, MaxNotional: 5000}

	if got := s.InvestmentAmount(100000, 80000); math.Abs(got-4000) > 1e-9 {
		t.Errorf("5%% of 80000: got %v, want 4000", got)
	}
	// Percent of a large book hits the notional ceiling.
	if got := s.InvestmentAmount(100000, 200000); got != 5000 {
		t.Errorf("capped: got %v, want 5000", got)
	}
	if got := s.InvestmentAmount(2000, 200000); got != 2000 {
		t.Errorf("cash-limited: got %v, want 2000", got)
	}
}

func TestNewSizer(t *testing.T) {
	if _, err := NewSizer("fixed", 5000, 0); err != nil {
		t.Errorf("fixed: %v", err)
	}
	if _, err := NewSizer("percent", 5000, 0.05); err != nil {
		t.Errorf("percent: %v", err)
	}
	if _, err := NewSizer("kelly", 5000, 0); err == nil {
		t.Error("expected error for unknown method")
	}
}

func TestExitRule_Thresholds(t *testing.T) {
	rule := ExitRule{StopLossPct: 0.02, TakeProfitPct: 0.04}

	tests := []struct {
		name  string
		price float64
		want  ExitSignal
	}{
		{"above stop holds", 98.1, ExitNone},
		{"exact stop fires", 98.0, ExitStopLoss},
		{"below stop fires", 97.9, ExitStopLoss},
		{"below take holds", 103.9, ExitNone},
		{"exact take fires", 104.0, ExitTakeProfit},
		{"above take fires", 104.1, ExitTakeProfit},
		{"flat holds", 100.0, ExitNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig, _ := rule.Evaluate(100, tt.price)
			if sig != tt.want {
				t.Errorf("price %v: got %q, want %q", tt.price, sig, tt.want)
			}
		})
	}
}

func TestExitRule_ZeroCost(t *testing.T) {
	rule := ExitRule{StopLossPct: 0.02, TakeProfitPct: 0.04}
	if sig, _ := rule.Evaluate(0, 100); sig != ExitNone {
		t.Errorf("zero cost basis must not trigger exits, got %q", sig)
	}
}
