// Package sentiment scores news headlines for a ticker with an LLM and
// returns a structured verdict. Every failure path degrades to a neutral
// zero-confidence verdict: a broken sentiment source must never abort a
// trading cycle.
package sentiment

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"equity-trading-bot/internal/logging"
	"equity-trading-bot/internal/market"
)

// Label is the three-way sentiment classification
type Label string

const (
	LabelBullish Label = "BULLISH"
	LabelBearish Label = "BEARISH"
	LabelNeutral Label = "NEUTRAL"
)

// Verdict is the structured sentiment result for one ticker
type Verdict struct {
	Label      Label   `json:"sentiment"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// Neutral returns the defined fallback verdict
func Neutral(reason string) Verdict {
	return Verdict{Label: LabelNeutral, Confidence: 0, Reasoning: reason}
}

// Disabled is the scorer installed when LLM sentiment is switched off.
// Every ticker gets the neutral verdict, so the fusion rule never clears a
// buy.
type Disabled struct{}

// ScoreNews returns the neutral verdict without calling any LLM
func (Disabled) ScoreNews(ticker string, news []market.NewsItem) Verdict {
	return Neutral("sentiment disabled")
}

// Completer is the chat-completion capability the analyzer calls
type Completer interface {
	Complete(systemPrompt, userPrompt string) (string, error)
}

// AnalyzerConfig holds analyzer configuration
type AnalyzerConfig struct {
	MaxNewsItems    int           `json:"max_news_items"`
	CacheDuration   time.Duration `json:"cache_duration"`
	RateLimitPerMin int           `json:"rate_limit_per_min"`
}

// DefaultAnalyzerConfig returns default configuration
func DefaultAnalyzerConfig() *AnalyzerConfig {
	return &AnalyzerConfig{
		MaxNewsItems:    5,
		CacheDuration:   15 * time.Minute,
		RateLimitPerMin: 10,
	}
}

type cachedVerdict struct {
	verdict  Verdict
	cachedAt time.Time
}

// Analyzer scores ticker news via an LLM with per-ticker caching and a
// simple per-minute rate limit
type Analyzer struct {
	config *AnalyzerConfig
	llm    Completer
	logger *logging.Logger

	mu        sync.Mutex
	cache     map[string]cachedVerdict
	callTimes []time.Time
}

// NewAnalyzer creates a new sentiment analyzer
func NewAnalyzer(config *AnalyzerConfig, llm Completer, logger *logging.Logger) *Analyzer {
	if config == nil {
		config = DefaultAnalyzerConfig()
	}
	if logger == nil {
		logger = logging.WithComponent("sentiment")
	}
	return &Analyzer{
		config: config,
		llm:    llm,
		logger: logger,
		cache:  make(map[string]cachedVerdict),
	}
}

// ScoreNews returns a sentiment verdict for the ticker's headlines. An empty
// news set, a failed LLM call, or a malformed reply all yield the neutral
// fallback rather than an error.
func (a *Analyzer) ScoreNews(ticker string, news []market.NewsItem) Verdict {
	if len(news) == 0 {
		return Neutral("no news found")
	}

	if v, ok := a.cachedFor(ticker); ok {
		return v
	}

	if !a.allowCall() {
		a.logger.Warn("sentiment rate limit reached, returning neutral", "ticker", ticker)
		return Neutral("rate limited")
	}

	reply, err := a.llm.Complete(sentimentSystemPrompt, buildSentimentPrompt(ticker, news, a.config.MaxNewsItems))
	if err != nil {
		a.logger.Error("sentiment call failed", "ticker", ticker, "error", err)
		return Neutral("analysis failed")
	}

	verdict, err := parseVerdict(reply)
	if err != nil {
		a.logger.Error("malformed sentiment reply", "ticker", ticker, "error", err)
		return Neutral("analysis failed")
	}

	a.store(ticker, verdict)
	return verdict
}

func (a *Analyzer) cachedFor(ticker string) (Verdict, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	entry, ok := a.cache[ticker]
	if !ok || time.Since(entry.cachedAt) > a.config.CacheDuration {
		return Verdict{}, false
	}
	return entry.verdict, true
}

func (a *Analyzer) store(ticker string, v Verdict) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cache[ticker] = cachedVerdict{verdict: v, cachedAt: time.Now()}
}

// allowCall enforces the per-minute rate limit on LLM calls
func (a *Analyzer) allowCall() bool {
	if a.config.RateLimitPerMin <= 0 {
		return true
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	cutoff := time.Now().Add(-time.Minute)
	var recent []time.Time
	for _, t := range a.callTimes {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}
	if len(recent) >= a.config.RateLimitPerMin {
		a.callTimes = recent
		return false
	}
	a.callTimes = append(recent, time.Now())
	return true
}

// stripMarkdownCodeBlock removes markdown fences from LLM replies, which
// some models wrap around JSON despite instructions not to
func stripMarkdownCodeBlock(response string) string {
	response = strings.TrimSpace(response)

	re := regexp.MustCompile("(?s)^```(?:json)?\\s*\\n?(.*?)\\n?```$")
	if matches := re.FindStringSubmatch(response); len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}
	return response
}

// parseVerdict validates the LLM's JSON reply against the verdict contract
func parseVerdict(reply string) (Verdict, error) {
	cleaned := stripMarkdownCodeBlock(reply)

	var verdict Verdict
	if err := json.Unmarshal([]byte(cleaned), &verdict); err != nil {
		return Verdict{}, fmt.Errorf("invalid JSON: %w", err)
	}

	verdict.Label = Label(strings.ToUpper(string(verdict.Label)))
	switch verdict.Label {
	case LabelBullish, LabelBearish, LabelNeutral:
	default:
		return Verdict{}, fmt.Errorf("unknown sentiment label %q", verdict.Label)
	}

	if verdict.Confidence < 0 {
		verdict.Confidence = 0
	}
	if verdict.Confidence > 1 {
		verdict.Confidence = 1
	}
	return verdict, nil
}
