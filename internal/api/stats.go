package api

import (
	"equity-trading-bot/internal/ledger"
)

// TradeStats is the realized performance report derived from the trade
// history. Average cost is replayed in execution order, so realized P&L
// on each sell reflects the blended cost at that moment.
type TradeStats struct {
	TotalTrades  int     `json:"total_trades"`
	BuyCount     int     `json:"buy_count"`
	SellCount    int     `json:"sell_count"`
	WinCount     int     `json:"win_count"`
	LossCount    int     `json:"loss_count"`
	WinRate      float64 `json:"win_rate"`
	RealizedPnL  float64 `json:"realized_pnl"`
	GrossProfit  float64 `json:"gross_profit"`
	GrossLoss    float64 `json:"gross_loss"`
	TotalBought  float64 `json:"total_bought"`
	TotalSold    float64 `json:"total_sold"`
	BestTradePnL float64 `json:"best_trade_pnl"`
}

type costState struct {
	quantity float64
	avgCost  float64
}

// ComputeTradeStats replays the history and aggregates realized results.
func ComputeTradeStats(history []ledger.Trade) TradeStats {
	stats := TradeStats{TotalTrades: len(history)}
	book := make(map[string]*costState)

	for _, t := range history {
		switch t.Action {
		case "BUY":
			stats.BuyCount++
			stats.TotalBought += t.Notional

			state := book[t.Ticker]
			if state == nil {
				state = &costState{}
				book[t.Ticker] = state
			}
			totalQty := state.quantity + t.Quantity
			if totalQty > 0 {
				state.avgCost = (state.quantity*state.avgCost + t.Notional) / totalQty
			}
			state.quantity = totalQty

		case "SELL":
			stats.SellCount++
			stats.TotalSold += t.Notional

			state := book[t.Ticker]
			if state == nil {
				continue
			}
			pnl := (t.Price - state.avgCost) * t.Quantity
			stats.RealizedPnL += pnl
			if pnl >= 0 {
				stats.WinCount++
				stats.GrossProfit += pnl
			} else {
				stats.LossCount++
				stats.GrossLoss += -pnl
			}
			if pnl > stats.BestTradePnL {
				stats.BestTradePnL = pnl
			}

			state.quantity -= t.Quantity
			if state.quantity <= 0 {
				delete(book, t.Ticker)
			}
		}
	}

	if stats.SellCount > 0 {
		stats.WinRate = float64(stats.WinCount) / float64(stats.SellCount)
	}
	return stats
}
