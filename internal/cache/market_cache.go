package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"equity-trading-bot/internal/market"
)

// CachedClient decorates a market.Client with read-through caching for
// quotes, history and news. Order and account operations pass through
// untouched.
type CachedClient struct {
	upstream market.Client
	cache    *CacheService
}

func NewCachedClient(upstream market.Client, cache *CacheService) *CachedClient {
	return &CachedClient{upstream: upstream, cache: cache}
}

func (c *CachedClient) GetQuote(symbol string) (*market.Quote, error) {
	key := fmt.Sprintf(keyQuote, symbol)
	var quote market.Quote
	if c.readCached(key, &quote) {
		return &quote, nil
	}

	fresh, err := c.upstream.GetQuote(symbol)
	if err != nil {
		return nil, err
	}
	if fresh != nil {
		c.writeCached(key, fresh)
	}
	return fresh, nil
}

func (c *CachedClient) GetHistory(symbol string, start, end time.Time) ([]market.PriceBar, error) {
	key := fmt.Sprintf(keyHistory, symbol, start.Format("2006-01-02"), end.Format("2006-01-02"))
	var bars []market.PriceBar
	if c.readCached(key, &bars) {
		return bars, nil
	}

	fresh, err := c.upstream.GetHistory(symbol, start, end)
	if err != nil {
		return nil, err
	}
	if len(fresh) > 0 {
		c.writeCached(key, fresh)
	}
	return fresh, nil
}

func (c *CachedClient) GetNews(symbol string) ([]market.NewsItem, error) {
	key := fmt.Sprintf(keyNews, symbol)
	var news []market.NewsItem
	if c.readCached(key, &news) {
		return news, nil
	}

	fresh, err := c.upstream.GetNews(symbol)
	if err != nil {
		return nil, err
	}
	if len(fresh) > 0 {
		c.writeCached(key, fresh)
	}
	return fresh, nil
}

func (c *CachedClient) GetBalances() (*market.Balances, error) {
	return c.upstream.GetBalances()
}

func (c *CachedClient) GetPositions() ([]market.BrokerPosition, error) {
	return c.upstream.GetPositions()
}

func (c *CachedClient) PlaceOrder(symbol string, side market.OrderSide, quantity float64) (*market.OrderResult, error) {
	return c.upstream.PlaceOrder(symbol, side, quantity)
}

func (c *CachedClient) readCached(key string, out interface{}) bool {
	if !c.cache.IsHealthy() {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	raw, found, err := c.cache.Get(ctx, key)
	if err != nil || !found {
		return false
	}
	return json.Unmarshal([]byte(raw), out) == nil
}

func (c *CachedClient) writeCached(key string, v interface{}) {
	if !c.cache.IsHealthy() {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = c.cache.Set(ctx, key, string(data))
}

var _ market.Client = (*CachedClient)(nil)
