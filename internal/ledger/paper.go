package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// portfolioState is the on-disk layout of the paper ledger.
type portfolioState struct {
	Cash      float64             `json:"cash"`
	Positions map[string]Position `json:"positions"`
	History   []Trade             `json:"history"`
}

// PaperLedger simulates fills against a JSON file. All mutations are
// serialized and persisted atomically before they are reported back,
// so a crash never leaves a trade applied in memory but missing on disk.
type PaperLedger struct {
	mu     sync.RWMutex
	path   string
	state  portfolioState
	logger zerolog.Logger
	now    func() time.Time
}

// NewPaperLedger loads the portfolio file at path, creating it with the
// given starting cash when it does not exist yet.
func NewPaperLedger(path string, initialCapital float64, logger zerolog.Logger) (*PaperLedger, error) {
	l := &PaperLedger{
		path:   path,
		logger: logger.With().Str("component", "PaperLedger").Logger(),
		now:    time.Now,
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &l.state); err != nil {
			return nil, fmt.Errorf("parse portfolio file %s: %w", path, err)
		}
		if l.state.Positions == nil {
			l.state.Positions = make(map[string]Position)
		}
		l.logger.Info().
			Float64("cash", l.state.Cash).
			Int("positions", len(l.state.Positions)).
			Int("trades", len(l.state.History)).
			Msg("Loaded existing portfolio")
	case os.IsNotExist(err):
		l.state = portfolioState{
			Cash:      initialCapital,
			Positions: make(map[string]Position),
			History:   []Trade{},
		}
		if err := l.persist(l.state); err != nil {
			return nil, err
		}
		l.logger.Info().
			Float64("cash", initialCapital).
			Str("path", path).
			Msg("Initialized new portfolio")
	default:
		return nil, fmt.Errorf("read portfolio file %s: %w", path, err)
	}

	return l, nil
}

func (l *PaperLedger) Cash() (float64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.Cash, nil
}

func (l *PaperLedger) Positions() (map[string]Position, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make(map[string]Position, len(l.state.Positions))
	for k, v := range l.state.Positions {
		out[k] = v
	}
	return out, nil
}

func (l *PaperLedger) Position(ticker string) (Position, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	pos, ok := l.state.Positions[ticker]
	return pos, ok, nil
}

func (l *PaperLedger) History() ([]Trade, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Trade, len(l.state.History))
	copy(out, l.state.History)
	return out, nil
}

// Buy spends amount of cash on ticker at price. Re-buying an existing
// position blends the average cost by notional.
func (l *PaperLedger) Buy(ticker string, amount, price float64) (Trade, error) {
	if price <= 0 {
		return Trade{}, fmt.Errorf("invalid price %.4f for %s", price, ticker)
	}
	if amount <= 0 {
		return Trade{}, fmt.Errorf("invalid buy amount %.2f for %s", amount, ticker)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if amount > l.state.Cash {
		l.logger.Warn().
			Str("ticker", ticker).
			Float64("amount", amount).
			Float64("cash", l.state.Cash).
			Msg("Buy rejected, insufficient funds")
		return Trade{}, fmt.Errorf("buy %s for %.2f with %.2f available: %w",
			ticker, amount, l.state.Cash, ErrInsufficientFunds)
	}

	quantity := amount / price
	pos, held := l.state.Positions[ticker]
	if held {
		totalQty := pos.Quantity + quantity
		pos.AvgCost = (pos.Quantity*pos.AvgCost + amount) / totalQty
		pos.Quantity = totalQty
	} else {
		pos = Position{Ticker: ticker, Quantity: quantity, AvgCost: price}
	}

	trade := Trade{
		ID:        uuid.New().String(),
		Timestamp: l.now().UTC(),
		Action:    "BUY",
		Ticker:    ticker,
		Price:     price,
		Quantity:  quantity,
		Notional:  amount,
	}

	next := l.cloneStateLocked()
	next.Cash -= amount
	next.Positions[ticker] = pos
	next.History = append(next.History, trade)

	// The in-memory state only advances once the snapshot is on disk.
	if err := l.persist(next); err != nil {
		return Trade{}, err
	}
	l.state = next

	l.logger.Info().
		Str("ticker", ticker).
		Float64("quantity", quantity).
		Float64("price", price).
		Float64("notional", amount).
		Float64("avg_cost", pos.AvgCost).
		Msg("BUY executed")
	return trade, nil
}

// Sell disposes of up to quantity shares of ticker at price. Requests
// beyond the held amount are clamped, and a position whose remainder
// falls below the dust threshold is removed.
func (l *PaperLedger) Sell(ticker string, quantity, price float64) (Trade, error) {
	if price <= 0 {
		return Trade{}, fmt.Errorf("invalid price %.4f for %s", price, ticker)
	}
	if quantity <= 0 {
		return Trade{}, fmt.Errorf("invalid sell quantity %.6f for %s", quantity, ticker)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	pos, held := l.state.Positions[ticker]
	if !held {
		return Trade{}, fmt.Errorf("sell %s: %w", ticker, ErrNoPosition)
	}

	if quantity > pos.Quantity {
		quantity = pos.Quantity
	}
	proceeds := quantity * price
	pos.Quantity -= quantity

	trade := Trade{
		ID:        uuid.New().String(),
		Timestamp: l.now().UTC(),
		Action:    "SELL",
		Ticker:    ticker,
		Price:     price,
		Quantity:  quantity,
		Notional:  proceeds,
	}

	next := l.cloneStateLocked()
	next.Cash += proceeds
	if pos.Quantity <= minPositionQty {
		delete(next.Positions, ticker)
	} else {
		next.Positions[ticker] = pos
	}
	next.History = append(next.History, trade)

	if err := l.persist(next); err != nil {
		return Trade{}, err
	}
	l.state = next

	l.logger.Info().
		Str("ticker", ticker).
		Float64("quantity", quantity).
		Float64("price", price).
		Float64("proceeds", proceeds).
		Float64("remaining", pos.Quantity).
		Msg("SELL executed")
	return trade, nil
}

// EquityEstimate values the portfolio at the supplied quotes. Positions
// without a quote are valued at their average cost.
func (l *PaperLedger) EquityEstimate(quotes map[string]float64) (float64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	equity := l.state.Cash
	for ticker, pos := range l.state.Positions {
		price, ok := quotes[ticker]
		if !ok || price <= 0 {
			price = pos.AvgCost
		}
		equity += pos.Quantity * price
	}
	return equity, nil
}

// cloneStateLocked copies the state with its own positions map so a
// failed persist leaves the committed state untouched. Callers must
// hold the lock.
func (l *PaperLedger) cloneStateLocked() portfolioState {
	next := l.state
	next.Positions = make(map[string]Position, len(l.state.Positions))
	for k, v := range l.state.Positions {
		next.Positions[k] = v
	}
	return next
}

// persist writes a state snapshot to a temp file in the target directory
// and renames it over the portfolio file.
func (l *PaperLedger) persist(state portfolioState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal portfolio: %w", err)
	}

	dir := filepath.Dir(l.path)
	tmp, err := os.CreateTemp(dir, ".portfolio-*.json")
	if err != nil {
		return fmt.Errorf("create temp portfolio file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp portfolio file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp portfolio file: %w", err)
	}
	if err := os.Rename(tmpName, l.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace portfolio file: %w", err)
	}
	return nil
}

var _ Ledger = (*PaperLedger)(nil)
