package strategy

import (
	"strings"
	"testing"

	"equity-trading-bot/internal/ai/sentiment"
	"equity-trading-bot/internal/market"
)

type stubScorer struct {
	verdict sentiment.Verdict
	calls   int
}

func (s *stubScorer) ScoreNews(ticker string, news []market.NewsItem) sentiment.Verdict {
	s.calls++
	return s.verdict
}

func defaultFuserConfig() FuserConfig {
	return FuserConfig{RSILower: 50, RSIUpper: 70, MinConfidence: 0.6}
}

func validSnapshot(price, sma, rsi float64) Snapshot {
	return Snapshot{Price: price, SMA: sma, RSI: rsi, Bars: 50, Valid: true}
}

func TestDecide_MomentumGate(t *testing.T) {
	tests := []struct {
		name     string
		snap     Snapshot
		wantHold bool
	}{
		{"passes inside band", validSnapshot(110, 100, 60), false},
		{"rsi at upper bound fails", validSnapshot(110, 100, 70), true},
		{"rsi above upper fails regardless of trend", validSnapshot(110, 100, 75), true},
		{"rsi at lower bound fails", validSnapshot(110, 100, 50), true},
		{"price below sma fails", validSnapshot(95, 100, 60), true},
		{"price equal to sma fails", validSnapshot(100, 100, 60), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scorer := &stubScorer{verdict: sentiment.Verdict{Label: sentiment.LabelBullish, Confidence: 0.9}}
			f := NewFuser(defaultFuserConfig(), scorer)

			d := f.Decide("AAPL", tt.snap, nil)
			if tt.wantHold {
				if d.Action != ActionHold {
					t.Errorf("expected HOLD, got %s (%s)", d.Action, d.Reason)
				}
				if scorer.calls != 0 {
					t.Errorf("sentiment must not be queried when the gate fails, got %d calls", scorer.calls)
				}
			} else {
				if d.Action != ActionBuy {
					t.Errorf("expected BUY, got %s (%s)", d.Action, d.Reason)
				}
				if scorer.calls != 1 {
					t.Errorf("expected exactly one sentiment call, got %d", scorer.calls)
				}
			}
		})
	}
}

func TestDecide_FusionRule(t *testing.T) {
	tests := []struct {
		name    string
		verdict sentiment.Verdict
		want    Action
	}{
		{"bullish above threshold buys", sentiment.Verdict{Label: sentiment.LabelBullish, Confidence: 0.61}, ActionBuy},
		{"bullish at threshold holds", sentiment.Verdict{Label: sentiment.LabelBullish, Confidence: 0.60}, ActionHold},
		{"bearish high confidence holds", sentiment.Verdict{Label: sentiment.LabelBearish, Confidence: 0.9}, ActionHold},
		{"neutral fallback holds", sentiment.Neutral("analysis failed"), ActionHold},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFuser(defaultFuserConfig(), &stubScorer{verdict: tt.verdict})

			d := f.Decide("AAPL", validSnapshot(110, 100, 60), nil)
			if d.Action != tt.want {
				t.Errorf("expected %s, got %s (%s)", tt.want, d.Action, d.Reason)
			}
		})
	}
}

func TestDecide_InvalidSnapshotHoldsWithoutSentiment(t *testing.T) {
	scorer := &stubScorer{verdict: sentiment.Verdict{Label: sentiment.LabelBullish, Confidence: 0.99}}
	f := NewFuser(defaultFuserConfig(), scorer)

	d := f.Decide("AAPL", Snapshot{Bars: 5}, nil)
	if d.Action != ActionHold {
		t.Errorf("expected HOLD on thin history, got %s", d.Action)
	}
	if scorer.calls != 0 {
		t.Errorf("sentiment must not be queried for invalid snapshots, got %d calls", scorer.calls)
	}
	if !strings.Contains(d.Reason, "insufficient history") {
		t.Errorf("reason should cite insufficient history, got %q", d.Reason)
	}
}

func TestDecide_ReasonNamesDecisiveGate(t *testing.T) {
	f := NewFuser(defaultFuserConfig(), &stubScorer{verdict: sentiment.Neutral("no news found")})

	hold := f.Decide("AAPL", validSnapshot(95, 100, 75), nil)
	if !strings.Contains(hold.Reason, "no momentum") {
		t.Errorf("expected momentum cited, got %q", hold.Reason)
	}
	if !strings.Contains(hold.Reason, "RSI") || !strings.Contains(hold.Reason, "SMA") {
		t.Errorf("expected both failing conditions cited, got %q", hold.Reason)
	}

	uncertain := f.Decide("AAPL", validSnapshot(110, 100, 60), nil)
	if !strings.Contains(uncertain.Reason, "sentiment") {
		t.Errorf("expected sentiment cited, got %q", uncertain.Reason)
	}
}
