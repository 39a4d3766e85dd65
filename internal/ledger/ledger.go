// Package ledger tracks cash, open positions and trade history for the bot.
// Two backends implement the same interface: a file-backed paper ledger for
// simulation and a brokerage-delegating ledger for live trading.
package ledger

import (
	"errors"
	"time"
)

// Position is an open holding in a single ticker.
type Position struct {
	Ticker   string  `json:"ticker"`
	Quantity float64 `json:"quantity"`
	AvgCost  float64 `json:"avg_cost"`
}

// Trade is one executed fill, appended to the history in execution order.
type Trade struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"` // BUY or SELL
	Ticker    string    `json:"ticker"`
	Price     float64   `json:"price"`
	Quantity  float64   `json:"quantity"`
	Notional  float64   `json:"notional"`
}

// Positions smaller than this are treated as fully closed and removed.
const minPositionQty = 1e-6

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNoPosition        = errors.New("no position held")
	ErrOrderRejected     = errors.New("order rejected by broker")
)

// Ledger is the portfolio state shared by the paper and live backends.
// Buy spends a cash amount at the given price; Sell disposes of a share
// quantity, clamped to the held amount.
type Ledger interface {
	Cash() (float64, error)
	Positions() (map[string]Position, error)
	Position(ticker string) (Position, bool, error)
	History() ([]Trade, error)
	Buy(ticker string, amount, price float64) (Trade, error)
	Sell(ticker string, quantity, price float64) (Trade, error)
	EquityEstimate(quotes map[string]float64) (float64, error)
}
