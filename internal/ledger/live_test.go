package ledger

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"equity-trading-bot/internal/market"
)

type fakeBroker struct {
	balances  market.Balances
	positions []market.BrokerPosition
	status    string
	orders    []placed
}

type placed struct {
	symbol   string
	side     market.OrderSide
	quantity float64
}

func (f *fakeBroker) GetQuote(symbol string) (*market.Quote, error) { return nil, nil }
func (f *fakeBroker) GetHistory(symbol string, start, end time.Time) ([]market.PriceBar, error) {
	return nil, nil
}
func (f *fakeBroker) GetNews(symbol string) ([]market.NewsItem, error) { return nil, nil }
func (f *fakeBroker) GetBalances() (*market.Balances, error)           { return &f.balances, nil }
func (f *fakeBroker) GetPositions() ([]market.BrokerPosition, error)   { return f.positions, nil }

func (f *fakeBroker) PlaceOrder(symbol string, side market.OrderSide, quantity float64) (*market.OrderResult, error) {
	f.orders = append(f.orders, placed{symbol, side, quantity})
	return &market.OrderResult{ID: 1, Status: f.status}, nil
}

func TestLiveLedger_ReadsDelegateToBroker(t *testing.T) {
	broker := &fakeBroker{
		balances: market.Balances{TotalCash: 25000, TotalEquity: 40000},
		positions: []market.BrokerPosition{
			{Symbol: "AAPL", Quantity: 50, CostBasis: 8000},
		},
	}
	l := NewLiveLedger(broker, zerolog.Nop())

	cash, err := l.Cash()
	if err != nil {
		t.Fatalf("cash: %v", err)
	}
	if cash != 25000 {
		t.Errorf("cash = %v, want 25000", cash)
	}

	pos, held, _ := l.Position("AAPL")
	if !held {
		t.Fatal("expected AAPL position")
	}
	if math.Abs(pos.AvgCost-160) > 1e-9 {
		t.Errorf("avg cost = %v, want 160", pos.AvgCost)
	}
}

func TestLiveLedger_AcceptedOrderRecorded(t *testing.T) {
	broker := &fakeBroker{
		balances: market.Balances{TotalCash: 25000},
		status:   "ok",
	}
	l := NewLiveLedger(broker, zerolog.Nop())

	trade, err := l.Buy("MSFT", 5000, 400)
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	if math.Abs(trade.Quantity-12.5) > 1e-9 {
		t.Errorf("quantity = %v, want 12.5", trade.Quantity)
	}

	if len(broker.orders) != 1 || broker.orders[0].side != market.SideBuy {
		t.Fatalf("unexpected orders: %+v", broker.orders)
	}
	history, _ := l.History()
	if len(history) != 1 {
		t.Errorf("history length = %d, want 1", len(history))
	}
}

func TestLiveLedger_RejectedOrderNotRecorded(t *testing.T) {
	broker := &fakeBroker{
		balances: market.Balances{TotalCash: 25000},
		positions: []market.BrokerPosition{
			{Symbol: "AAPL", Quantity: 50, CostBasis: 8000},
		},
		status: "rejected",
	}
	l := NewLiveLedger(broker, zerolog.Nop())

	if _, err := l.Buy("MSFT", 5000, 400); !errors.Is(err, ErrOrderRejected) {
		t.Fatalf("expected ErrOrderRejected, got %v", err)
	}
	if _, err := l.Sell("AAPL", 10, 170); !errors.Is(err, ErrOrderRejected) {
		t.Fatalf("expected ErrOrderRejected, got %v", err)
	}

	history, _ := l.History()
	if len(history) != 0 {
		t.Errorf("rejected orders must not enter the journal, got %d trades", len(history))
	}
}

func TestLiveLedger_SellClampsToHeld(t *testing.T) {
	broker := &fakeBroker{
		positions: []market.BrokerPosition{
			{Symbol: "AAPL", Quantity: 10, CostBasis: 1600},
		},
		status: "ok",
	}
	l := NewLiveLedger(broker, zerolog.Nop())

	trade, err := l.Sell("AAPL", 100, 170)
	if err != nil {
		t.Fatalf("sell: %v", err)
	}
	if math.Abs(trade.Quantity-10) > 1e-9 {
		t.Errorf("quantity = %v, want clamped 10", trade.Quantity)
	}
	if math.Abs(broker.orders[0].quantity-10) > 1e-9 {
		t.Errorf("broker received quantity %v, want 10", broker.orders[0].quantity)
	}
}

func TestLiveLedger_InsufficientFunds(t *testing.T) {
	broker := &fakeBroker{balances: market.Balances{TotalCash: 100}, status: "ok"}
	l := NewLiveLedger(broker, zerolog.Nop())

	if _, err := l.Buy("AAPL", 5000, 170); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if len(broker.orders) != 0 {
		t.Errorf("no order should reach the broker, got %+v", broker.orders)
	}
}
