package database

import (
	"context"
	"fmt"
	"time"

	"equity-trading-bot/internal/ledger"
	"equity-trading-bot/internal/strategy"
)

// Repository provides journal access on top of the connection pool.
type Repository struct {
	db *DB
}

func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// DecisionRecord is a persisted decision row.
type DecisionRecord struct {
	ID        int       `json:"id"`
	CycleID   string    `json:"cycle_id"`
	Ticker    string    `json:"ticker"`
	Action    string    `json:"action"`
	Reason    string    `json:"reason"`
	DecidedAt time.Time `json:"decided_at"`
}

// CycleRecord is a persisted cycle summary row.
type CycleRecord struct {
	ID             string    `json:"id"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	TickersScanned int       `json:"tickers_scanned"`
	TickersSkipped int       `json:"tickers_skipped"`
	TradeCount     int       `json:"trade_count"`
}

// InsertTrade journals an executed trade.
func (r *Repository) InsertTrade(ctx context.Context, cycleID string, t ledger.Trade) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO trades (id, cycle_id, ticker, action, price, quantity, notional, executed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING`,
		t.ID, cycleID, t.Ticker, t.Action, t.Price, t.Quantity, t.Notional, t.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert trade %s: %w", t.ID, err)
	}
	return nil
}

// InsertDecision journals one decision from a cycle.
func (r *Repository) InsertDecision(ctx context.Context, cycleID string, d strategy.Decision) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO decisions (cycle_id, ticker, action, reason, decided_at)
		VALUES ($1, $2, $3, $4, $5)`,
		cycleID, d.Ticker, string(d.Action), d.Reason, d.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert decision for %s: %w", d.Ticker, err)
	}
	return nil
}

// InsertCycle journals a completed cycle summary.
func (r *Repository) InsertCycle(ctx context.Context, c CycleRecord) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO cycles (id, started_at, finished_at, tickers_scanned, tickers_skipped, trade_count)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`,
		c.ID, c.StartedAt, c.FinishedAt, c.TickersScanned, c.TickersSkipped, c.TradeCount,
	)
	if err != nil {
		return fmt.Errorf("insert cycle %s: %w", c.ID, err)
	}
	return nil
}

// ListTrades returns the most recent journaled trades, newest first.
func (r *Repository) ListTrades(ctx context.Context, limit int) ([]ledger.Trade, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, ticker, action, price, quantity, notional, executed_at
		FROM trades
		ORDER BY executed_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	var trades []ledger.Trade
	for rows.Next() {
		var t ledger.Trade
		if err := rows.Scan(&t.ID, &t.Ticker, &t.Action, &t.Price, &t.Quantity, &t.Notional, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// ListDecisions returns the most recent journaled decisions, newest first.
func (r *Repository) ListDecisions(ctx context.Context, limit int) ([]DecisionRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, cycle_id, ticker, action, reason, decided_at
		FROM decisions
		ORDER BY decided_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	var decisions []DecisionRecord
	for rows.Next() {
		var d DecisionRecord
		if err := rows.Scan(&d.ID, &d.CycleID, &d.Ticker, &d.Action, &d.Reason, &d.DecidedAt); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		decisions = append(decisions, d)
	}
	return decisions, rows.Err()
}
