package market

import "time"

// PriceBar represents one daily candle
type PriceBar struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// Time parses the bar date. Bars carry dates as YYYY-MM-DD strings on the
// wire; a zero time is returned for malformed dates so callers can sort
// them to the front instead of failing.
func (b PriceBar) Time() time.Time {
	t, err := time.Parse("2006-01-02", b.Date)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Quote represents the latest traded state of a ticker
type Quote struct {
	Symbol string  `json:"symbol"`
	Last   float64 `json:"last"`
	Bid    float64 `json:"bid"`
	Ask    float64 `json:"ask"`
	Volume int64   `json:"volume"`
}

// NewsItem is a single headline with optional summary
type NewsItem struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
	URL     string `json:"url"`
}

// Balances represents brokerage account cash state
type Balances struct {
	TotalCash   float64 `json:"total_cash"`
	TotalEquity float64 `json:"total_equity"`
}

// BrokerPosition is a holding as reported by the brokerage
type BrokerPosition struct {
	Symbol    string  `json:"symbol"`
	Quantity  float64 `json:"quantity"`
	CostBasis float64 `json:"cost_basis"` // Total cost, not per-share
}

// OrderSide is the direction of an order
type OrderSide string

const (
	SideBuy  OrderSide = "buy"
	SideSell OrderSide = "sell"
)

// OrderResult is the brokerage response to an order submission
type OrderResult struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

// Accepted reports whether the venue took the order.
func (r *OrderResult) Accepted() bool {
	return r != nil && (r.Status == "ok" || r.Status == "filled" || r.Status == "accepted")
}
