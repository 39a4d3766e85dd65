package market

import "time"

// Client defines the market-data and order-execution operations the engine
// depends on. GetQuote and GetHistory may legitimately return thin or empty
// data; callers treat that as "skip this ticker this cycle" rather than an
// error.
type Client interface {
	GetQuote(symbol string) (*Quote, error)
	GetHistory(symbol string, start, end time.Time) ([]PriceBar, error)
	GetNews(symbol string) ([]NewsItem, error)
	GetBalances() (*Balances, error)
	GetPositions() ([]BrokerPosition, error)
	PlaceOrder(symbol string, side OrderSide, quantity float64) (*OrderResult, error)
}

// Ensure both implementations satisfy the interface
var _ Client = (*TradierClient)(nil)
var _ Client = (*MockClient)(nil)
