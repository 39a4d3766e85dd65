package database

import (
	"context"
	"time"

	"equity-trading-bot/internal/engine"
	"equity-trading-bot/internal/logging"
)

// Journal persists completed cycle reports. Failures are logged and
// swallowed so the trading loop never stalls on the audit database.
type Journal struct {
	repo   *Repository
	logger *logging.Logger
}

func NewJournal(repo *Repository, logger *logging.Logger) *Journal {
	return &Journal{repo: repo, logger: logger.WithComponent("journal")}
}

// RecordCycle writes the cycle summary, its decisions and its trades.
func (j *Journal) RecordCycle(ctx context.Context, report *engine.CycleReport) {
	writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err := j.repo.InsertCycle(writeCtx, CycleRecord{
		ID:             report.ID,
		StartedAt:      report.StartTime,
		FinishedAt:     report.EndTime,
		TickersScanned: report.TickersScanned,
		TickersSkipped: report.TickersSkipped,
		TradeCount:     len(report.Trades),
	})
	if err != nil {
		j.logger.Warn("Cycle journal write failed", "cycle_id", report.ID, "error", err.Error())
	}

	for _, d := range report.Decisions {
		if err := j.repo.InsertDecision(writeCtx, report.ID, d); err != nil {
			j.logger.Warn("Decision journal write failed", "ticker", d.Ticker, "error", err.Error())
		}
	}
	for _, t := range report.Trades {
		if err := j.repo.InsertTrade(writeCtx, report.ID, t); err != nil {
			j.logger.Warn("Trade journal write failed", "trade_id", t.ID, "error", err.Error())
		}
	}
}

var _ engine.Recorder = (*Journal)(nil)
