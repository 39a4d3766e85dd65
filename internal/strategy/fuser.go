package strategy

import (
	"fmt"
	"strings"
	"time"

	"equity-trading-bot/internal/ai/sentiment"
	"equity-trading-bot/internal/market"
)

// Action is the outcome of a decision
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// Decision is the pure output of the fuser or the exit rule. It carries no
// side effects; the reason states which gate was decisive.
type Decision struct {
	Ticker    string    `json:"ticker"`
	Action    Action    `json:"action"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// SentimentScorer is the capability the fuser queries for a news verdict.
// Implementations must degrade to a neutral verdict instead of failing.
type SentimentScorer interface {
	ScoreNews(ticker string, news []market.NewsItem) sentiment.Verdict
}

// FuserConfig holds the momentum-gate bands and the sentiment threshold
type FuserConfig struct {
	RSILower      float64
	RSIUpper      float64
	MinConfidence float64
}

// Fuser combines the technical snapshot with an LLM news verdict into a
// single trade decision. The momentum gate is evaluated first and
// short-circuits before any sentiment call.
type Fuser struct {
	config FuserConfig
	scorer SentimentScorer
}

// NewFuser creates a fuser with the given bands and sentiment source
func NewFuser(config FuserConfig, scorer SentimentScorer) *Fuser {
	return &Fuser{config: config, scorer: scorer}
}

// Decide returns BUY, or HOLD with a reason naming the decisive gate.
// Invalid snapshots (thin history) always hold.
func (f *Fuser) Decide(ticker string, snap Snapshot, news []market.NewsItem) Decision {
	now := time.Now().UTC()

	if !snap.Valid {
		return Decision{
			Ticker:    ticker,
			Action:    ActionHold,
			Reason:    fmt.Sprintf("insufficient history (%d bars)", snap.Bars),
			Timestamp: now,
		}
	}

	// Momentum gate: price above trend and RSI inside the band
	var failures []string
	if snap.Price <= snap.SMA {
		failures = append(failures, fmt.Sprintf("price %.2f at or below SMA %.2f", snap.Price, snap.SMA))
	}
	if snap.RSI <= f.config.RSILower {
		failures = append(failures, fmt.Sprintf("RSI %.1f at or below %.0f", snap.RSI, f.config.RSILower))
	}
	if snap.RSI >= f.config.RSIUpper {
		failures = append(failures, fmt.Sprintf("RSI %.1f at or above %.0f", snap.RSI, f.config.RSIUpper))
	}
	if len(failures) > 0 {
		return Decision{
			Ticker:    ticker,
			Action:    ActionHold,
			Reason:    "no momentum: " + strings.Join(failures, "; "),
			Timestamp: now,
		}
	}

	// Sentiment gate, reached only with momentum confirmed
	verdict := f.scorer.ScoreNews(ticker, news)

	if verdict.Label == sentiment.LabelBullish && verdict.Confidence > f.config.MinConfidence {
		return Decision{
			Ticker:    ticker,
			Action:    ActionBuy,
			Reason:    fmt.Sprintf("momentum + bullish news (%.2f): %s", verdict.Confidence, verdict.Reasoning),
			Timestamp: now,
		}
	}

	return Decision{
		Ticker:    ticker,
		Action:    ActionHold,
		Reason:    fmt.Sprintf("momentum good but sentiment uncertain (%s, %.2f)", verdict.Label, verdict.Confidence),
		Timestamp: now,
	}
}
