package sentiment

import (
	"fmt"
	"strings"

	"equity-trading-bot/internal/market"
)

const sentimentSystemPrompt = `You are a financial news analyst. You classify short-term sentiment for a single stock from recent headlines. Respond with JSON only, no markdown, no commentary.`

// buildSentimentPrompt renders the fixed prompt contract: at most maxItems
// headlines, a three-way label, and a 0-1 confidence.
func buildSentimentPrompt(ticker string, news []market.NewsItem, maxItems int) string {
	if maxItems <= 0 {
		maxItems = 5
	}
	if len(news) > maxItems {
		news = news[:maxItems]
	}

	var lines []string
	for _, item := range news {
		summary := item.Summary
		if summary == "" {
			summary = "No Summary"
		}
		lines = append(lines, fmt.Sprintf("- %s (%s)", item.Title, summary))
	}

	return fmt.Sprintf(`Analyze the sentiment of the following recent news headlines for the stock '%s'.
Determine if the sentiment is BULLISH, BEARISH, or NEUTRAL for the short-term price action (next 24 hours).

News:
%s

Return a JSON object with the following keys:
- "sentiment": "BULLISH", "BEARISH", or "NEUTRAL"
- "confidence": A score from 0.0 to 1.0
- "reasoning": A brief explanation.

Output only JSON.`, ticker, strings.Join(lines, "\n"))
}
