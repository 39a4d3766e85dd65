// Package engine runs the trading cycle: exit checks on held positions
// first, then an entry scan over the remaining watchlist.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"equity-trading-bot/internal/events"
	"equity-trading-bot/internal/ledger"
	"equity-trading-bot/internal/logging"
	"equity-trading-bot/internal/market"
	"equity-trading-bot/internal/risk"
	"equity-trading-bot/internal/strategy"
)

// Config holds the cycle parameters.
type Config struct {
	Watchlist     []string
	SMAPeriod     int
	RSIPeriod     int
	HistoryDays   int
	StopLossPct   float64
	TakeProfitPct float64
	CycleInterval time.Duration
	WorkerCount   int
}

// CycleReport summarizes one completed cycle.
type CycleReport struct {
	ID             string              `json:"id"`
	StartTime      time.Time           `json:"start_time"`
	EndTime        time.Time           `json:"end_time"`
	Duration       time.Duration       `json:"duration"`
	TickersScanned int                 `json:"tickers_scanned"`
	TickersSkipped int                 `json:"tickers_skipped"`
	Decisions      []strategy.Decision `json:"decisions"`
	Trades         []ledger.Trade      `json:"trades"`
}

// Recorder receives each completed cycle report, typically to journal it
// to durable storage. Recording is best effort and must not block.
type Recorder interface {
	RecordCycle(ctx context.Context, report *CycleReport)
}

// Engine owns the cycle loop and wires market data, the decision fuser,
// sizing and the ledger together.
type Engine struct {
	config   Config
	client   market.Client
	book     ledger.Ledger
	fuser    *strategy.Fuser
	sizer    risk.Sizer
	exits    risk.ExitRule
	bus      *events.EventBus
	logger   *logging.Logger
	recorder Recorder

	stopChan chan struct{}
	wg       sync.WaitGroup
	mu       sync.RWMutex
	lastRun  *CycleReport
}

func New(
	config Config,
	client market.Client,
	book ledger.Ledger,
	fuser *strategy.Fuser,
	sizer risk.Sizer,
	bus *events.EventBus,
	logger *logging.Logger,
) *Engine {
	if config.WorkerCount <= 0 {
		config.WorkerCount = 4
	}
	return &Engine{
		config:   config,
		client:   client,
		book:     book,
		fuser:    fuser,
		sizer:    sizer,
		exits:    risk.ExitRule{StopLossPct: config.StopLossPct, TakeProfitPct: config.TakeProfitPct},
		bus:      bus,
		logger:   logger.WithComponent("engine"),
		stopChan: make(chan struct{}),
	}
}

// SetRecorder attaches a journal for completed cycles. Must be called
// before Start.
func (e *Engine) SetRecorder(r Recorder) {
	e.recorder = r
}

// Start begins the background cycle loop. The first cycle runs
// immediately.
func (e *Engine) Start(ctx context.Context) {
	e.wg.Add(1)
	go e.runLoop(ctx)
	e.logger.Info("Trading engine started", "interval", e.config.CycleInterval.String())
}

func (e *Engine) runLoop(ctx context.Context) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.config.CycleInterval)
	defer ticker.Stop()

	e.runAndLog(ctx)

	for {
		select {
		case <-ticker.C:
			e.runAndLog(ctx)
		case <-e.stopChan:
			e.logger.Info("Trading engine stopped")
			return
		case <-ctx.Done():
			e.logger.Info("Trading engine context cancelled")
			return
		}
	}
}

func (e *Engine) runAndLog(ctx context.Context) {
	if _, err := e.RunCycle(ctx); err != nil {
		e.logger.Error("Cycle aborted", "error", err.Error())
		e.bus.Publish(events.NewEvent(events.EventError, map[string]interface{}{
			"error": err.Error(),
		}))
	}
}

// Stop shuts the loop down and waits for an in-flight cycle to finish.
func (e *Engine) Stop() {
	close(e.stopChan)
	e.wg.Wait()
}

// LastReport returns the most recent completed cycle report.
func (e *Engine) LastReport() *CycleReport {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastRun
}

// RunCycle executes one full cycle. A ledger read failure aborts the
// cycle; failures scoped to a single ticker are logged and skipped.
func (e *Engine) RunCycle(ctx context.Context) (*CycleReport, error) {
	report := &CycleReport{
		ID:        uuid.New().String(),
		StartTime: time.Now().UTC(),
	}

	cash, err := e.book.Cash()
	if err != nil {
		return nil, fmt.Errorf("read cash at cycle start: %w", err)
	}
	e.logger.Info("Cycle started", "cycle_id", report.ID, "cash", cash)
	e.bus.Publish(events.NewEvent(events.EventCycleStarted, map[string]interface{}{
		"cycle_id": report.ID,
	}))

	quotes := make(map[string]float64)

	if err := e.exitCheck(report, quotes); err != nil {
		return nil, err
	}
	if err := e.entryScan(ctx, report, quotes); err != nil {
		return nil, err
	}

	report.EndTime = time.Now().UTC()
	report.Duration = report.EndTime.Sub(report.StartTime)

	e.mu.Lock()
	e.lastRun = report
	e.mu.Unlock()

	if e.recorder != nil {
		e.recorder.RecordCycle(ctx, report)
	}

	e.logger.Info("Cycle completed",
		"cycle_id", report.ID,
		"duration", report.Duration.String(),
		"decisions", len(report.Decisions),
		"trades", len(report.Trades),
		"skipped", report.TickersSkipped)
	e.bus.Publish(events.NewEvent(events.EventCycleCompleted, map[string]interface{}{
		"cycle_id": report.ID,
		"duration": report.Duration.String(),
		"trades":   len(report.Trades),
	}))
	return report, nil
}

// exitCheck evaluates every held position against the stop-loss and
// take-profit thresholds and closes those that breach them.
func (e *Engine) exitCheck(report *CycleReport, quotes map[string]float64) error {
	positions, err := e.book.Positions()
	if err != nil {
		return fmt.Errorf("read positions for exit check: %w", err)
	}

	for ticker, pos := range positions {
		quote, err := e.client.GetQuote(ticker)
		if err != nil || quote == nil {
			e.skipTicker(report, ticker, "exit_check", err)
			continue
		}
		quotes[ticker] = quote.Last

		signal, pctChange := e.exits.Evaluate(pos.AvgCost, quote.Last)
		if signal == risk.ExitNone {
			continue
		}

		reason := fmt.Sprintf("%s at %.2f%% from cost %.2f", signal, pctChange*100, pos.AvgCost)
		trade, err := e.book.Sell(ticker, pos.Quantity, quote.Last)
		if err != nil {
			e.logger.Error("Exit sell failed", "ticker", ticker, "error", err.Error())
			e.bus.Publish(events.NewEvent(events.EventOrderRejected, map[string]interface{}{
				"ticker": ticker,
				"side":   "SELL",
				"error":  err.Error(),
			}))
			continue
		}

		decision := strategy.Decision{
			Ticker:    ticker,
			Action:    strategy.ActionSell,
			Reason:    reason,
			Timestamp: trade.Timestamp,
		}
		report.Decisions = append(report.Decisions, decision)
		report.Trades = append(report.Trades, trade)

		eventType := events.EventStopLossHit
		if signal == risk.ExitTakeProfit {
			eventType = events.EventTakeProfitHit
		}
		e.logger.Info("Position exited",
			"ticker", ticker,
			"signal", string(signal),
			"pct_change", pctChange,
			"proceeds", trade.Notional)
		e.bus.Publish(events.NewEvent(eventType, map[string]interface{}{
			"ticker":     ticker,
			"pct_change": pctChange,
			"proceeds":   trade.Notional,
		}))
		e.publishTrade(trade, reason)
	}
	return nil
}

type tickerAnalysis struct {
	decision strategy.Decision
	price    float64
}

// entryScan analyzes the unheld watchlist concurrently and then executes
// the buys serially so sizing sees consistent cash.
func (e *Engine) entryScan(ctx context.Context, report *CycleReport, quotes map[string]float64) error {
	positions, err := e.book.Positions()
	if err != nil {
		return fmt.Errorf("read positions for entry scan: %w", err)
	}

	candidates := make([]string, 0, len(e.config.Watchlist))
	for _, ticker := range e.config.Watchlist {
		if _, held := positions[ticker]; !held {
			candidates = append(candidates, ticker)
		}
	}
	report.TickersScanned = len(candidates)

	tickerChan := make(chan string, len(candidates))
	resultChan := make(chan tickerAnalysis, len(candidates))
	var wg sync.WaitGroup

	for i := 0; i < e.config.WorkerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ticker := range tickerChan {
				select {
				case <-ctx.Done():
					return
				default:
				}
				analysis, ok := e.analyzeTicker(report, ticker)
				if ok {
					resultChan <- analysis
				}
			}
		}()
	}

	for _, ticker := range candidates {
		tickerChan <- ticker
	}
	close(tickerChan)

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	analyses := make([]tickerAnalysis, 0, len(candidates))
	for a := range resultChan {
		analyses = append(analyses, a)
	}

	for _, a := range analyses {
		report.Decisions = append(report.Decisions, a.decision)
		e.bus.Publish(events.NewEvent(events.EventDecisionMade, map[string]interface{}{
			"ticker": a.decision.Ticker,
			"action": string(a.decision.Action),
			"reason": a.decision.Reason,
		}))
		if a.decision.Action != strategy.ActionBuy {
			continue
		}
		e.executeBuy(report, a, quotes)
	}
	return nil
}

// analyzeTicker fetches history and news for one ticker and runs the
// decision fuser. A data failure skips the ticker for this cycle.
func (e *Engine) analyzeTicker(report *CycleReport, ticker string) (tickerAnalysis, bool) {
	end := time.Now()
	start := end.AddDate(0, 0, -e.config.HistoryDays)

	bars, err := e.client.GetHistory(ticker, start, end)
	if err != nil {
		e.skipTicker(report, ticker, "history", err)
		return tickerAnalysis{}, false
	}

	snap := strategy.ComputeSnapshot(bars, e.config.SMAPeriod, e.config.RSIPeriod)
	if quote, err := e.client.GetQuote(ticker); err == nil && quote != nil && quote.Last > 0 {
		snap.Price = quote.Last
	}

	var news []market.NewsItem
	if snap.Valid {
		// News is only worth fetching when the snapshot could pass the
		// momentum gate at all.
		news, err = e.client.GetNews(ticker)
		if err != nil {
			e.logger.Warn("News fetch failed, treating as no news", "ticker", ticker, "error", err.Error())
			news = nil
		}
	}

	decision := e.fuser.Decide(ticker, snap, news)
	return tickerAnalysis{decision: decision, price: snap.Price}, true
}

func (e *Engine) executeBuy(report *CycleReport, a tickerAnalysis, quotes map[string]float64) {
	ticker := a.decision.Ticker

	cash, err := e.book.Cash()
	if err != nil {
		e.logger.Error("Cash read failed, skipping buy", "ticker", ticker, "error", err.Error())
		return
	}
	equity, err := e.book.EquityEstimate(quotes)
	if err != nil {
		equity = cash
	}

	invest := e.sizer.InvestmentAmount(cash, equity)
	if invest <= a.price {
		e.logger.Info("Buy skipped, investment below share price",
			"ticker", ticker, "invest", invest, "price", a.price)
		return
	}

	trade, err := e.book.Buy(ticker, invest, a.price)
	if err != nil {
		e.logger.Warn("Buy failed", "ticker", ticker, "error", err.Error())
		e.bus.Publish(events.NewEvent(events.EventOrderRejected, map[string]interface{}{
			"ticker": ticker,
			"side":   "BUY",
			"error":  err.Error(),
		}))
		return
	}

	report.Trades = append(report.Trades, trade)
	e.logger.Info("Position opened",
		"ticker", ticker,
		"quantity", trade.Quantity,
		"price", trade.Price,
		"notional", trade.Notional,
		"reason", a.decision.Reason)
	e.publishTrade(trade, a.decision.Reason)
}

func (e *Engine) skipTicker(report *CycleReport, ticker, stage string, err error) {
	e.mu.Lock()
	report.TickersSkipped++
	e.mu.Unlock()

	msg := "no data"
	if err != nil {
		msg = err.Error()
	}
	e.logger.Warn("Ticker skipped", "ticker", ticker, "stage", stage, "error", msg)
	e.bus.Publish(events.NewEvent(events.EventTickerSkipped, map[string]interface{}{
		"ticker": ticker,
		"stage":  stage,
		"error":  msg,
	}))
}

func (e *Engine) publishTrade(trade ledger.Trade, reason string) {
	e.bus.Publish(events.NewEvent(events.EventTradeExecuted, map[string]interface{}{
		"trade_id": trade.ID,
		"ticker":   trade.Ticker,
		"action":   trade.Action,
		"price":    trade.Price,
		"quantity": trade.Quantity,
		"notional": trade.Notional,
		"reason":   reason,
	}))
}
