package ledger

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func newTestLedger(t *testing.T, capital float64) *PaperLedger {
	t.Helper()
	path := filepath.Join(t.TempDir(), "portfolio.json")
	l, err := NewPaperLedger(path, capital, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewPaperLedger: %v", err)
	}
	return l
}

func TestPaperBuy_AverageCost(t *testing.T) {
	l := newTestLedger(t, 100000)

	if _, err := l.Buy("AAPL", 5000, 100); err != nil {
		t.Fatalf("first buy: %v", err)
	}
	if _, err := l.Buy("AAPL", 5000, 200); err != nil {
		t.Fatalf("second buy: %v", err)
	}

	pos, held, _ := l.Position("AAPL")
	if !held {
		t.Fatal("expected AAPL position")
	}
	// 50 shares at 100, then 25 shares at 200: 10000 / 75
	wantQty := 75.0
	wantAvg := 10000.0 / 75.0
	if math.Abs(pos.Quantity-wantQty) > 1e-9 {
		t.Errorf("quantity = %v, want %v", pos.Quantity, wantQty)
	}
	if math.Abs(pos.AvgCost-wantAvg) > 1e-9 {
		t.Errorf("avg cost = %v, want %v", pos.AvgCost, wantAvg)
	}

	cash, _ := l.Cash()
	if math.Abs(cash-90000) > 1e-9 {
		t.Errorf("cash = %v, want 90000", cash)
	}
}

func TestPaperBuy_InsufficientFundsLeavesStateUntouched(t *testing.T) {
	l := newTestLedger(t, 1000)

	_, err := l.Buy("AAPL", 5000, 100)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	cash, _ := l.Cash()
	if cash != 1000 {
		t.Errorf("cash mutated on rejected buy: %v", cash)
	}
	positions, _ := l.Positions()
	if len(positions) != 0 {
		t.Errorf("positions created on rejected buy: %v", positions)
	}
	history, _ := l.History()
	if len(history) != 0 {
		t.Errorf("history recorded on rejected buy: %v", history)
	}
}

func TestPaperSell_ClampAndClose(t *testing.T) {
	l := newTestLedger(t, 100000)

	if _, err := l.Buy("NVDA", 5000, 500); err != nil {
		t.Fatalf("buy: %v", err)
	}

	// 10 shares held, ask to sell 50: clamps to 10 and closes the position.
	trade, err := l.Sell("NVDA", 50, 600)
	if err != nil {
		t.Fatalf("sell: %v", err)
	}
	if math.Abs(trade.Quantity-10) > 1e-9 {
		t.Errorf("sold quantity = %v, want 10", trade.Quantity)
	}
	if math.Abs(trade.Notional-6000) > 1e-9 {
		t.Errorf("proceeds = %v, want 6000", trade.Notional)
	}

	if _, held, _ := l.Position("NVDA"); held {
		t.Error("position should be removed after full sell")
	}

	cash, _ := l.Cash()
	if math.Abs(cash-101000) > 1e-9 {
		t.Errorf("cash = %v, want 101000", cash)
	}
}

func TestPaperSell_DustRemoval(t *testing.T) {
	l := newTestLedger(t, 100000)

	if _, err := l.Buy("MSFT", 1000, 100); err != nil {
		t.Fatalf("buy: %v", err)
	}
	if _, err := l.Sell("MSFT", 10-5e-7, 100); err != nil {
		t.Fatalf("sell: %v", err)
	}

	if _, held, _ := l.Position("MSFT"); held {
		t.Error("sub-dust remainder should delete the position")
	}
}

func TestPaperSell_NoPosition(t *testing.T) {
	l := newTestLedger(t, 100000)

	_, err := l.Sell("TSLA", 10, 200)
	if !errors.Is(err, ErrNoPosition) {
		t.Fatalf("expected ErrNoPosition, got %v", err)
	}
}

func TestPaperLedger_CashConservation(t *testing.T) {
	l := newTestLedger(t, 100000)

	steps := []struct {
		action string
		ticker string
		a, b   float64
	}{
		{"buy", "AAPL", 5000, 178.5},
		{"buy", "MSFT", 5000, 412.3},
		{"buy", "AAPL", 2500, 182.1},
		{"sell", "AAPL", 15, 190.0},
		{"sell", "MSFT", 100, 405.0},
	}
	for _, s := range steps {
		var err error
		if s.action == "buy" {
			_, err = l.Buy(s.ticker, s.a, s.b)
		} else {
			_, err = l.Sell(s.ticker, s.a, s.b)
		}
		if err != nil {
			t.Fatalf("%s %s: %v", s.action, s.ticker, err)
		}
	}

	cash, _ := l.Cash()
	history, _ := l.History()

	recomputed := 100000.0
	for _, tr := range history {
		switch tr.Action {
		case "BUY":
			recomputed -= tr.Notional
		case "SELL":
			recomputed += tr.Notional
		}
	}
	if math.Abs(cash-recomputed) > 1e-9 {
		t.Errorf("cash %v does not match history replay %v", cash, recomputed)
	}
}

func TestPaperLedger_ReloadFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portfolio.json")

	l1, err := NewPaperLedger(path, 100000, zerolog.Nop())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := l1.Buy("GOOGL", 5000, 140); err != nil {
		t.Fatalf("buy: %v", err)
	}

	l2, err := NewPaperLedger(path, 0, zerolog.Nop())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}

	cash, _ := l2.Cash()
	if math.Abs(cash-95000) > 1e-9 {
		t.Errorf("reloaded cash = %v, want 95000", cash)
	}
	pos, held, _ := l2.Position("GOOGL")
	if !held {
		t.Fatal("reloaded ledger lost the GOOGL position")
	}
	if math.Abs(pos.AvgCost-140) > 1e-9 {
		t.Errorf("reloaded avg cost = %v, want 140", pos.AvgCost)
	}
	history, _ := l2.History()
	if len(history) != 1 {
		t.Errorf("reloaded history length = %d, want 1", len(history))
	}
}

func TestPaperLedger_EquityEstimate(t *testing.T) {
	l := newTestLedger(t, 100000)

	if _, err := l.Buy("AAPL", 10000, 100); err != nil {
		t.Fatalf("buy: %v", err)
	}

	equity, err := l.EquityEstimate(map[string]float64{"AAPL": 110})
	if err != nil {
		t.Fatalf("equity: %v", err)
	}
	if math.Abs(equity-101000) > 1e-9 {
		t.Errorf("equity = %v, want 101000", equity)
	}

	// No quote falls back to cost, so equity equals starting cash.
	equity, _ = l.EquityEstimate(nil)
	if math.Abs(equity-100000) > 1e-9 {
		t.Errorf("cost-valued equity = %v, want 100000", equity)
	}
}
