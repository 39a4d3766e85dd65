package strategy

import (
	"math"
	"testing"
	"time"

	"equity-trading-bot/internal/market"
)

func barsFromCloses(closes []float64) []market.PriceBar {
	start := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]market.PriceBar, len(closes))
	for i, c := range closes {
		bars[i] = market.PriceBar{
			Date:  start.AddDate(0, 0, i).Format("2006-01-02"),
			Close: c,
			Open:  c,
			High:  c,
			Low:   c,
		}
	}
	return bars
}

func TestCalculateSMA(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	sma := CalculateSMA(closes, 5)
	if sma != 8 {
		t.Errorf("expected SMA 8 (mean of last 5), got %f", sma)
	}

	if got := CalculateSMA(closes, 11); got != 0 {
		t.Errorf("expected 0 for short series, got %f", got)
	}
}

func TestCalculateRSI_AllGains(t *testing.T) {
	closes := []float64{100, 101, 102, 103, 104, 105, 106, 107, 108, 109, 110, 111, 112, 113, 114}

	rsi := CalculateRSI(closes, 14)
	if rsi != 100 {
		t.Errorf("expected RSI 100 for all gains, got %f", rsi)
	}
}

func TestCalculateRSI_Flat(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100
	}

	rsi := CalculateRSI(closes, 14)
	if rsi != 50 {
		t.Errorf("expected neutral 50 for a flat series, got %f", rsi)
	}
}

func TestCalculateRSI_MixedSeries(t *testing.T) {
	// Alternating +2/-1 over the window: avgGain = 1.0, avgLoss = 0.5,
	// RS = 2, RSI = 100 - 100/3
	closes := []float64{100}
	for i := 0; i < 7; i++ {
		closes = append(closes, closes[len(closes)-1]+2)
		closes = append(closes, closes[len(closes)-1]-1)
	}

	rsi := CalculateRSI(closes, 14)
	want := 100 - 100/3.0
	if math.Abs(rsi-want) > 1e-9 {
		t.Errorf("expected RSI %f, got %f", want, rsi)
	}
}

func TestCalculateRSI_ShortSeries(t *testing.T) {
	if got := CalculateRSI([]float64{1, 2, 3}, 14); got != 50 {
		t.Errorf("expected neutral 50 for short series, got %f", got)
	}
}

func TestComputeSnapshot_InsufficientData(t *testing.T) {
	bars := barsFromCloses([]float64{100, 101, 102})

	snap := ComputeSnapshot(bars, 20, 14)
	if snap.Valid {
		t.Error("expected invalid snapshot for 3 bars")
	}
	if snap.Price != 102 {
		t.Errorf("price should still reflect last close, got %f", snap.Price)
	}
}

func TestComputeSnapshot_SortsDefensively(t *testing.T) {
	closes := make([]float64, 25)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	bars := barsFromCloses(closes)

	// Reverse the slice; the snapshot must be identical to the sorted one
	reversed := make([]market.PriceBar, len(bars))
	for i, b := range bars {
		reversed[len(bars)-1-i] = b
	}

	want := ComputeSnapshot(bars, 20, 14)
	got := ComputeSnapshot(reversed, 20, 14)

	if !want.Valid || !got.Valid {
		t.Fatal("expected valid snapshots")
	}
	if got.Price != want.Price || got.SMA != want.SMA || got.RSI != want.RSI {
		t.Errorf("snapshot differs on unsorted input: %+v vs %+v", got, want)
	}
	if got.Price != 124 {
		t.Errorf("expected last close 124, got %f", got.Price)
	}
}

func TestComputeSnapshot_Deterministic(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 + float64(i%7)
	}
	bars := barsFromCloses(closes)

	first := ComputeSnapshot(bars, 20, 14)
	second := ComputeSnapshot(bars, 20, 14)
	if first != second {
		t.Errorf("snapshots differ across identical input: %+v vs %+v", first, second)
	}
}
