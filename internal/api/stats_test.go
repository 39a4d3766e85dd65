package api

import (
	"math"
	"testing"

	"equity-trading-bot/internal/ledger"
)

func TestComputeTradeStats_RealizedPnL(t *testing.T) {
	history := []ledger.Trade{
		{Action: "BUY", Ticker: "AAPL", Price: 100, Quantity: 50, Notional: 5000},
		{Action: "BUY", Ticker: "AAPL", Price: 200, Quantity: 25, Notional: 5000},
		// Blended cost is 10000/75. Selling all 75 at 150 realizes
		// 75*150 - 10000 = 1250.
		{Action: "SELL", Ticker: "AAPL", Price: 150, Quantity: 75, Notional: 11250},
		{Action: "BUY", Ticker: "MSFT", Price: 400, Quantity: 10, Notional: 4000},
		{Action: "SELL", Ticker: "MSFT", Price: 390, Quantity: 10, Notional: 3900},
	}

	stats := ComputeTradeStats(history)

	if stats.TotalTrades != 5 || stats.BuyCount != 3 || stats.SellCount != 2 {
		t.Errorf("counts wrong: %+v", stats)
	}
	if math.Abs(stats.RealizedPnL-1150) > 1e-9 {
		t.Errorf("realized pnl = %v, want 1150", stats.RealizedPnL)
	}
	if math.Abs(stats.GrossProfit-1250) > 1e-9 {
		t.Errorf("gross profit = %v, want 1250", stats.GrossProfit)
	}
	if math.Abs(stats.GrossLoss-100) > 1e-9 {
		t.Errorf("gross loss = %v, want 100", stats.GrossLoss)
	}
	if stats.WinCount != 1 || stats.LossCount != 1 {
		t.Errorf("win/loss = %d/%d, want 1/1", stats.WinCount, stats.LossCount)
	}
	if math.Abs(stats.WinRate-0.5) > 1e-9 {
		t.Errorf("win rate = %v, want 0.5", stats.WinRate)
	}
	if math.Abs(stats.BestTradePnL-1250) > 1e-9 {
		t.Errorf("best trade = %v, want 1250", stats.BestTradePnL)
	}
}

func TestComputeTradeStats_Empty(t *testing.T) {
	stats := ComputeTradeStats(nil)
	if stats.TotalTrades != 0 || stats.WinRate != 0 || stats.RealizedPnL != 0 {
		t.Errorf("empty history should produce zeroed stats: %+v", stats)
	}
}

func TestComputeTradeStats_SellWithoutBuyIgnored(t *testing.T) {
	history := []ledger.Trade{
		{Action: "SELL", Ticker: "TSLA", Price: 200, Quantity: 10, Notional: 2000},
	}
	stats := ComputeTradeStats(history)
	if stats.RealizedPnL != 0 {
		t.Errorf("orphan sell must not contribute pnl, got %v", stats.RealizedPnL)
	}
	if stats.TotalSold != 2000 {
		t.Errorf("orphan sell still counts toward volume, got %v", stats.TotalSold)
	}
}
