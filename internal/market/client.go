package market

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// TradierClient talks to the Tradier brokerage REST API. The same client is
// used for the sandbox and production environments; only the base URL and
// token differ. News is not part of the Tradier surface, so headlines come
// from the Yahoo Finance search endpoint instead.
type TradierClient struct {
	accessToken string
	accountID   string
	baseURL     string
	newsBaseURL string
	httpClient  *http.Client
}

const defaultNewsBaseURL = "https://query1.finance.yahoo.com"

// NewTradierClient creates a client for the given environment
func NewTradierClient(accessToken, accountID, baseURL string) *TradierClient {
	return &TradierClient{
		accessToken: accessToken,
		accountID:   accountID,
		baseURL:     strings.TrimRight(baseURL, "/"),
		newsBaseURL: defaultNewsBaseURL,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
}

// quoteEnvelope mirrors Tradier's /markets/quotes response shape
type quoteEnvelope struct {
	Quotes struct {
		Quote json.RawMessage `json:"quote"`
	} `json:"quotes"`
}

// GetQuote fetches the latest quote for a single symbol
func (c *TradierClient) GetQuote(symbol string) (*Quote, error) {
	params := url.Values{}
	params.Set("symbols", symbol)

	body, err := c.get("/markets/quotes", params)
	if err != nil {
		return nil, fmt.Errorf("error fetching quote for %s: %w", symbol, err)
	}

	var envelope quoteEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("error parsing quote response: %w", err)
	}
	if len(envelope.Quotes.Quote) == 0 {
		return nil, nil // Unknown symbol: absent, not an error
	}

	// Tradier returns an object for one symbol and an array for several
	var quote Quote
	if err := json.Unmarshal(envelope.Quotes.Quote, &quote); err != nil {
		var quotes []Quote
		if err2 := json.Unmarshal(envelope.Quotes.Quote, &quotes); err2 != nil || len(quotes) == 0 {
			return nil, fmt.Errorf("error parsing quote payload: %w", err)
		}
		quote = quotes[0]
	}

	if quote.Last <= 0 {
		return nil, nil
	}
	return &quote, nil
}

type historyEnvelope struct {
	History struct {
		Day json.RawMessage `json:"day"`
	} `json:"history"`
}

// GetHistory fetches daily bars for the given window, oldest first
func (c *TradierClient) GetHistory(symbol string, start, end time.Time) ([]PriceBar, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", "daily")
	params.Set("start", start.Format("2006-01-02"))
	params.Set("end", end.Format("2006-01-02"))

	body, err := c.get("/markets/history", params)
	if err != nil {
		return nil, fmt.Errorf("error fetching history for %s: %w", symbol, err)
	}

	var envelope historyEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("error parsing history response: %w", err)
	}
	if len(envelope.History.Day) == 0 {
		return nil, nil
	}

	var bars []PriceBar
	if err := json.Unmarshal(envelope.History.Day, &bars); err != nil {
		// A single trading day comes back as an object
		var bar PriceBar
		if err2 := json.Unmarshal(envelope.History.Day, &bar); err2 != nil {
			return nil, fmt.Errorf("error parsing history payload: %w", err)
		}
		bars = []PriceBar{bar}
	}

	return bars, nil
}

// yahooSearchResponse carries the news section of Yahoo's search endpoint
type yahooSearchResponse struct {
	News []struct {
		Title     string `json:"title"`
		Publisher string `json:"publisher"`
		Link      string `json:"link"`
	} `json:"news"`
}

// GetNews fetches recent headlines for a symbol. An empty slice is a valid
// result; sentiment scoring treats it as no evidence.
func (c *TradierClient) GetNews(symbol string) ([]NewsItem, error) {
	endpoint := fmt.Sprintf("%s/v1/finance/search?q=%s&newsCount=10&quotesCount=0",
		c.newsBaseURL, url.QueryEscape(symbol))

	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "equity-trading-bot/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error fetching news for %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("news API returned status %d", resp.StatusCode)
	}

	var parsed yahooSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("error parsing news response: %w", err)
	}

	items := make([]NewsItem, 0, len(parsed.News))
	for _, n := range parsed.News {
		items = append(items, NewsItem{
			Title:   n.Title,
			Summary: n.Publisher,
			URL:     n.Link,
		})
	}
	return items, nil
}

type balancesEnvelope struct {
	Balances Balances `json:"balances"`
}

// GetBalances fetches account cash and equity
func (c *TradierClient) GetBalances() (*Balances, error) {
	body, err := c.get(fmt.Sprintf("/accounts/%s/balances", c.accountID), nil)
	if err != nil {
		return nil, fmt.Errorf("error fetching balances: %w", err)
	}

	var envelope balancesEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("error parsing balances response: %w", err)
	}
	return &envelope.Balances, nil
}

type positionsEnvelope struct {
	Positions struct {
		Position json.RawMessage `json:"position"`
	} `json:"positions"`
}

// GetPositions fetches current brokerage holdings
func (c *TradierClient) GetPositions() ([]BrokerPosition, error) {
	body, err := c.get(fmt.Sprintf("/accounts/%s/positions", c.accountID), nil)
	if err != nil {
		return nil, fmt.Errorf("error fetching positions: %w", err)
	}

	var envelope positionsEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("error parsing positions response: %w", err)
	}
	if len(envelope.Positions.Position) == 0 || string(envelope.Positions.Position) == "null" {
		return nil, nil
	}

	var positions []BrokerPosition
	if err := json.Unmarshal(envelope.Positions.Position, &positions); err != nil {
		var single BrokerPosition
		if err2 := json.Unmarshal(envelope.Positions.Position, &single); err2 != nil {
			return nil, fmt.Errorf("error parsing positions payload: %w", err)
		}
		positions = []BrokerPosition{single}
	}
	return positions, nil
}

type orderEnvelope struct {
	Order OrderResult `json:"order"`
}

// PlaceOrder submits a market order for the given share quantity
func (c *TradierClient) PlaceOrder(symbol string, side OrderSide, quantity float64) (*OrderResult, error) {
	form := url.Values{}
	form.Set("class", "equity")
	form.Set("symbol", symbol)
	form.Set("side", string(side))
	form.Set("quantity", strconv.FormatFloat(quantity, 'f', -1, 64))
	form.Set("type", "market")
	form.Set("duration", "day")

	endpoint := fmt.Sprintf("%s/accounts/%s/orders", c.baseURL, c.accountID)
	req, err := http.NewRequest(http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error placing %s order for %s: %w", side, symbol, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading order response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("order API returned status %d: %s", resp.StatusCode, string(body))
	}

	var envelope orderEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("error parsing order response: %w", err)
	}
	return &envelope.Order, nil
}

// get performs an authenticated GET against the Tradier API
func (c *TradierClient) get(path string, params url.Values) ([]byte, error) {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
