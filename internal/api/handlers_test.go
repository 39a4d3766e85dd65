package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"equity-trading-bot/config"
	"equity-trading-bot/internal/ai/sentiment"
	"equity-trading-bot/internal/engine"
	"equity-trading-bot/internal/events"
	"equity-trading-bot/internal/ledger"
	"equity-trading-bot/internal/logging"
	"equity-trading-bot/internal/market"
	"equity-trading-bot/internal/risk"
	"equity-trading-bot/internal/strategy"
)

type staticClient struct {
	quotes map[string]float64
}

func (c *staticClient) GetQuote(symbol string) (*market.Quote, error) {
	if price, ok := c.quotes[symbol]; ok {
		return &market.Quote{Symbol: symbol, Last: price}, nil
	}
	return nil, nil
}

func (c *staticClient) GetHistory(symbol string, start, end time.Time) ([]market.PriceBar, error) {
	return nil, nil
}
func (c *staticClient) GetNews(symbol string) ([]market.NewsItem, error) { return nil, nil }
func (c *staticClient) GetBalances() (*market.Balances, error)          { return &market.Balances{}, nil }
func (c *staticClient) GetPositions() ([]market.BrokerPosition, error)  { return nil, nil }
func (c *staticClient) PlaceOrder(symbol string, side market.OrderSide, quantity float64) (*market.OrderResult, error) {
	return &market.OrderResult{ID: 1, Status: "ok"}, nil
}

type holdScorer struct{}

func (holdScorer) ScoreNews(ticker string, news []market.NewsItem) sentiment.Verdict {
	return sentiment.Neutral("test")
}

func newTestServer(t *testing.T, book ledger.Ledger, client market.Client) *Server {
	t.Helper()
	logger := logging.New(&logging.Config{Level: "ERROR", JSONFormat: true})
	fuser := strategy.NewFuser(strategy.FuserConfig{RSILower: 50, RSIUpper: 70, MinConfidence: 0.6}, holdScorer{})
	eng := engine.New(engine.Config{
		SMAPeriod:     20,
		RSIPeriod:     14,
		HistoryDays:   50,
		StopLossPct:   0.02,
		TakeProfitPct: 0.04,
		CycleInterval: time.Hour,
	}, client, book, fuser, risk.FixedNotionalSizer{Notional: 5000}, events.NewEventBus(), logger)

	return NewServer(config.ServerConfig{Port: 0}, book, eng, client, events.NewEventBus(), logger, false)
}

func newSeededBook(t *testing.T) *ledger.PaperLedger {
	t.Helper()
	book, err := ledger.NewPaperLedger(filepath.Join(t.TempDir(), "portfolio.json"), 100000, zerolog.Nop())
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	if _, err := book.Buy("AAPL", 5000, 100); err != nil {
		t.Fatalf("seed buy: %v", err)
	}
	return book
}

func doGET(t *testing.T, s *Server, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	var body map[string]interface{}
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode %s response: %v", path, err)
		}
	}
	return rec, body
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t, newSeededBook(t), &staticClient{})

	rec, body := doGET(t, s, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestHandlePortfolio(t *testing.T) {
	book := newSeededBook(t)
	s := newTestServer(t, book, &staticClient{quotes: map[string]float64{"AAPL": 110}})

	rec, body := doGET(t, s, "/api/portfolio")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if cash := body["cash"].(float64); cash != 95000 {
		t.Errorf("cash = %v, want 95000", cash)
	}
	// 50 shares marked at 110 on top of 95000 cash.
	if equity := body["equity"].(float64); equity != 100500 {
		t.Errorf("equity = %v, want 100500", equity)
	}
	positions := body["positions"].([]interface{})
	if len(positions) != 1 {
		t.Fatalf("positions = %v", positions)
	}
	holding := positions[0].(map[string]interface{})
	if pnl := holding["unrealized_pnl"].(float64); pnl != 500 {
		t.Errorf("unrealized pnl = %v, want 500", pnl)
	}
}

func TestHandleTrades_Limit(t *testing.T) {
	book := newSeededBook(t)
	for i := 0; i < 4; i++ {
		if _, err := book.Buy("MSFT", 100, 400); err != nil {
			t.Fatalf("buy: %v", err)
		}
	}
	s := newTestServer(t, book, &staticClient{})

	rec, body := doGET(t, s, "/api/trades?limit=2")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if count := body["count"].(float64); count != 2 {
		t.Errorf("count = %v, want 2", count)
	}
}

func TestHandleLastCycle_NoCycleYet(t *testing.T) {
	s := newTestServer(t, newSeededBook(t), &staticClient{})

	rec, _ := doGET(t, s, "/api/cycles/last")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 before any cycle", rec.Code)
	}
}

func TestHandleStats(t *testing.T) {
	book := newSeededBook(t)
	if _, err := book.Sell("AAPL", 50, 110); err != nil {
		t.Fatalf("sell: %v", err)
	}
	s := newTestServer(t, book, &staticClient{})

	rec, body := doGET(t, s, "/api/stats")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if pnl := body["realized_pnl"].(float64); pnl != 500 {
		t.Errorf("realized pnl = %v, want 500", pnl)
	}
}

func TestHandleRunCycle(t *testing.T) {
	book := newSeededBook(t)
	s := newTestServer(t, book, &staticClient{quotes: map[string]float64{"AAPL": 100}})

	req := httptest.NewRequest(http.MethodPost, "/api/cycles/run", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec, _ = doGET(t, s, "/api/cycles/last")
	if rec.Code != http.StatusOK {
		t.Errorf("last cycle should exist after manual run, status = %d", rec.Code)
	}
}
