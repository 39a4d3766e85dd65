package strategy

import (
	"sort"

	"equity-trading-bot/internal/market"
)

// Snapshot holds the latest indicator values for one ticker. Valid is false
// when the price series is too short to compute a full RSI window; callers
// must treat an invalid snapshot as non-actionable.
type Snapshot struct {
	Price  float64 `json:"price"`
	SMA    float64 `json:"sma"`
	RSI    float64 `json:"rsi"`
	Bars   int     `json:"bars"`
	Valid  bool    `json:"valid"`
}

// ComputeSnapshot derives the indicator snapshot from a daily bar series.
// Bars are sorted by date before computation rather than trusting the
// caller's ordering. Deterministic for identical input.
func ComputeSnapshot(bars []market.PriceBar, smaPeriod, rsiPeriod int) Snapshot {
	if len(bars) == 0 {
		return Snapshot{}
	}

	sorted := append([]market.PriceBar(nil), bars...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time().Before(sorted[j].Time())
	})

	closes := make([]float64, len(sorted))
	for i, b := range sorted {
		closes[i] = b.Close
	}

	snapshot := Snapshot{
		Price: closes[len(closes)-1],
		Bars:  len(closes),
	}

	// RSI needs rsiPeriod price changes, so rsiPeriod+1 closes
	if len(closes) < rsiPeriod+1 || len(closes) < smaPeriod {
		return snapshot
	}

	snapshot.SMA = CalculateSMA(closes, smaPeriod)
	snapshot.RSI = CalculateRSI(closes, rsiPeriod)
	snapshot.Valid = true
	return snapshot
}

// CalculateSMA calculates the Simple Moving Average over the last period
// closes
func CalculateSMA(closes []float64, period int) float64 {
	if period <= 0 || len(closes) < period {
		return 0
	}

	sum := 0.0
	for i := len(closes) - period; i < len(closes); i++ {
		sum += closes[i]
	}
	return sum / float64(period)
}

// CalculateRSI calculates the Relative Strength Index using simple averages
// of the last period price changes. A window with zero average loss yields
// 100; a flat window with no movement at all yields the neutral 50.
func CalculateRSI(closes []float64, period int) float64 {
	if period <= 0 || len(closes) < period+1 {
		return 50.0
	}

	gains := 0.0
	losses := 0.0
	for i := len(closes) - period; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains += change
		} else {
			losses += -change
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	if avgLoss == 0 {
		if avgGain == 0 {
			return 50.0
		}
		return 100.0
	}

	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}
