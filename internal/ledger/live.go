package ledger

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"equity-trading-bot/internal/market"
)

// LiveLedger delegates portfolio state to the brokerage account. Reads go
// straight to the broker API; Buy and Sell place real market orders and
// only record a trade locally once the broker accepts it.
type LiveLedger struct {
	mu      sync.Mutex
	client  market.Client
	logger  zerolog.Logger
	history []Trade
	now     func() time.Time
}

func NewLiveLedger(client market.Client, logger zerolog.Logger) *LiveLedger {
	return &LiveLedger{
		client: client,
		logger: logger.With().Str("component", "LiveLedger").Logger(),
		now:    time.Now,
	}
}

func (l *LiveLedger) Cash() (float64, error) {
	bal, err := l.client.GetBalances()
	if err != nil {
		return 0, fmt.Errorf("fetch account balances: %w", err)
	}
	return bal.TotalCash, nil
}

func (l *LiveLedger) Positions() (map[string]Position, error) {
	brokerPositions, err := l.client.GetPositions()
	if err != nil {
		return nil, fmt.Errorf("fetch account positions: %w", err)
	}

	out := make(map[string]Position, len(brokerPositions))
	for _, bp := range brokerPositions {
		if bp.Quantity <= minPositionQty {
			continue
		}
		out[bp.Symbol] = Position{
			Ticker:   bp.Symbol,
			Quantity: bp.Quantity,
			AvgCost:  bp.CostBasis / bp.Quantity,
		}
	}
	return out, nil
}

func (l *LiveLedger) Position(ticker string) (Position, bool, error) {
	positions, err := l.Positions()
	if err != nil {
		return Position{}, false, err
	}
	pos, ok := positions[ticker]
	return pos, ok, nil
}

// History returns the trades placed through this ledger instance. The
// broker keeps the authoritative record; this is the session journal.
func (l *LiveLedger) History() ([]Trade, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Trade, len(l.history))
	copy(out, l.history)
	return out, nil
}

func (l *LiveLedger) Buy(ticker string, amount, price float64) (Trade, error) {
	if price <= 0 {
		return Trade{}, fmt.Errorf("invalid price %.4f for %s", price, ticker)
	}
	if amount <= 0 {
		return Trade{}, fmt.Errorf("invalid buy amount %.2f for %s", amount, ticker)
	}

	cash, err := l.Cash()
	if err != nil {
		return Trade{}, err
	}
	if amount > cash {
		return Trade{}, fmt.Errorf("buy %s for %.2f with %.2f available: %w",
			ticker, amount, cash, ErrInsufficientFunds)
	}

	quantity := amount / price
	result, err := l.client.PlaceOrder(ticker, market.SideBuy, quantity)
	if err != nil {
		return Trade{}, fmt.Errorf("place buy order for %s: %w", ticker, err)
	}
	if !result.Accepted() {
		l.logger.Warn().
			Str("ticker", ticker).
			Str("status", result.Status).
			Msg("Buy order rejected by broker")
		return Trade{}, fmt.Errorf("buy %s status %s: %w", ticker, result.Status, ErrOrderRejected)
	}

	trade := l.record("BUY", ticker, price, quantity, amount)
	l.logger.Info().
		Str("ticker", ticker).
		Int64("order_id", result.ID).
		Float64("quantity", quantity).
		Float64("notional", amount).
		Msg("Live BUY submitted")
	return trade, nil
}

func (l *LiveLedger) Sell(ticker string, quantity, price float64) (Trade, error) {
	if price <= 0 {
		return Trade{}, fmt.Errorf("invalid price %.4f for %s", price, ticker)
	}
	if quantity <= 0 {
		return Trade{}, fmt.Errorf("invalid sell quantity %.6f for %s", quantity, ticker)
	}

	pos, held, err := l.Position(ticker)
	if err != nil {
		return Trade{}, err
	}
	if !held {
		return Trade{}, fmt.Errorf("sell %s: %w", ticker, ErrNoPosition)
	}
	if quantity > pos.Quantity {
		quantity = pos.Quantity
	}

	result, err := l.client.PlaceOrder(ticker, market.SideSell, quantity)
	if err != nil {
		return Trade{}, fmt.Errorf("place sell order for %s: %w", ticker, err)
	}
	if !result.Accepted() {
		l.logger.Warn().
			Str("ticker", ticker).
			Str("status", result.Status).
			Msg("Sell order rejected by broker")
		return Trade{}, fmt.Errorf("sell %s status %s: %w", ticker, result.Status, ErrOrderRejected)
	}

	trade := l.record("SELL", ticker, price, quantity, quantity*price)
	l.logger.Info().
		Str("ticker", ticker).
		Int64("order_id", result.ID).
		Float64("quantity", quantity).
		Msg("Live SELL submitted")
	return trade, nil
}

func (l *LiveLedger) EquityEstimate(quotes map[string]float64) (float64, error) {
	cash, err := l.Cash()
	if err != nil {
		return 0, err
	}
	positions, err := l.Positions()
	if err != nil {
		return 0, err
	}

	equity := cash
	for ticker, pos := range positions {
		price, ok := quotes[ticker]
		if !ok || price <= 0 {
			price = pos.AvgCost
		}
		equity += pos.Quantity * price
	}
	return equity, nil
}

func (l *LiveLedger) record(action, ticker string, price, quantity, notional float64) Trade {
	trade := Trade{
		ID:        uuid.New().String(),
		Timestamp: l.now().UTC(),
		Action:    action,
		Ticker:    ticker,
		Price:     price,
		Quantity:  quantity,
		Notional:  notional,
	}

	l.mu.Lock()
	l.history = append(l.history, trade)
	l.mu.Unlock()
	return trade
}

var _ Ledger = (*LiveLedger)(nil)
