package market

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// MockClient provides simulated market data for development and paper
// trading without credentials. Prices follow a small random walk around
// realistic base levels.
type MockClient struct {
	prices     map[string]float64
	lastUpdate time.Time
	nextOrder  int64
	mu         sync.RWMutex
}

// NewMockClient creates a new mock client
func NewMockClient() *MockClient {
	mc := &MockClient{
		lastUpdate: time.Now(),
		nextOrder:  1,
	}

	mc.prices = map[string]float64{
		"AAPL":  232.50,
		"NVDA":  176.80,
		"TSLA":  334.10,
		"AMD":   166.40,
		"MSFT":  504.20,
		"AMZN":  228.90,
		"GOOGL": 206.70,
		"META":  751.30,
		"NFLX":  1208.00,
		"INTC":  24.35,
		"QCOM":  158.10,
		"TXN":   192.60,
		"AVGO":  297.40,
		"MU":    118.20,
		"CSCO":  68.75,
		"ADBE":  352.90,
		"CRM":   256.30,
		"PYPL":  69.85,
		"UBER":  94.60,
		"ABNB":  127.40,
	}

	return mc
}

// updatePrices adds small random variations to simulate market movement
func (mc *MockClient) updatePrices() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if time.Since(mc.lastUpdate) < time.Second {
		return
	}

	for symbol, price := range mc.prices {
		// Random walk: -0.5% to +0.5% change
		change := (rand.Float64() - 0.5) * 0.01
		mc.prices[symbol] = price * (1 + change)
	}
	mc.lastUpdate = time.Now()
}

func (mc *MockClient) basePrice(symbol string) float64 {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	if p, ok := mc.prices[symbol]; ok {
		return p
	}
	return 100.0
}

// GetQuote returns a simulated quote
func (mc *MockClient) GetQuote(symbol string) (*Quote, error) {
	mc.updatePrices()
	price := mc.basePrice(symbol)

	return &Quote{
		Symbol: symbol,
		Last:   price,
		Bid:    price * 0.9995,
		Ask:    price * 1.0005,
		Volume: int64(1_000_000 + rand.Intn(9_000_000)),
	}, nil
}

// GetHistory returns a simulated daily price series ending near the current
// mock price, oldest bar first
func (mc *MockClient) GetHistory(symbol string, start, end time.Time) ([]PriceBar, error) {
	mc.updatePrices()
	last := mc.basePrice(symbol)

	days := int(end.Sub(start).Hours()/24) + 1
	if days < 1 {
		return nil, nil
	}

	// Walk backwards from the current price so the series converges on it
	closes := make([]float64, days)
	closes[days-1] = last
	for i := days - 2; i >= 0; i-- {
		change := (rand.Float64() - 0.5) * 0.03
		closes[i] = closes[i+1] / (1 + change)
	}

	bars := make([]PriceBar, 0, days)
	for i := 0; i < days; i++ {
		day := start.AddDate(0, 0, i)
		if day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			continue
		}
		c := closes[i]
		o := c * (1 + (rand.Float64()-0.5)*0.01)
		h := maxFloat(o, c) * (1 + rand.Float64()*0.005)
		l := minFloat(o, c) * (1 - rand.Float64()*0.005)
		bars = append(bars, PriceBar{
			Date:   day.Format("2006-01-02"),
			Open:   o,
			High:   h,
			Low:    l,
			Close:  c,
			Volume: int64(500_000 + rand.Intn(5_000_000)),
		})
	}
	return bars, nil
}

// GetNews returns canned headlines so the sentiment path stays exercisable
// offline
func (mc *MockClient) GetNews(symbol string) ([]NewsItem, error) {
	return []NewsItem{
		{Title: fmt.Sprintf("%s beats quarterly revenue estimates", symbol), Summary: "Mock Newswire"},
		{Title: fmt.Sprintf("Analysts raise price targets on %s", symbol), Summary: "Mock Newswire"},
		{Title: fmt.Sprintf("%s announces expanded buyback program", symbol), Summary: "Mock Newswire"},
	}, nil
}

// GetBalances returns a fixed sandbox balance
func (mc *MockClient) GetBalances() (*Balances, error) {
	return &Balances{TotalCash: 100000.0, TotalEquity: 100000.0}, nil
}

// GetPositions reports no brokerage holdings
func (mc *MockClient) GetPositions() ([]BrokerPosition, error) {
	return nil, nil
}

// PlaceOrder accepts every order with an incrementing ID
func (mc *MockClient) PlaceOrder(symbol string, side OrderSide, quantity float64) (*OrderResult, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("invalid quantity %f for %s", quantity, symbol)
	}

	mc.mu.Lock()
	id := mc.nextOrder
	mc.nextOrder++
	mc.mu.Unlock()

	return &OrderResult{ID: id, Status: "ok"}, nil
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
