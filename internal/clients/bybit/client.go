// Package bybit is a minimal REST client for the Bybit v5 API covering
// market data, order entry, and account balance.
package bybit

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	category   = "linear"
	recvWindow = "5000"

	maxAttempts = 3
	baseDelay   = 2 * time.Second
)

// Client is a Bybit v5 REST client
type Client struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	client     *http.Client
	retryDelay time.Duration
	log        zerolog.Logger
}

// NewClient creates a new Bybit client. API credentials may be empty when
// only public market-data endpoints are used.
func NewClient(baseURL, apiKey, apiSecret string, log zerolog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		retryDelay: baseDelay,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log.With().Str("client", "bybit").Logger(),
	}
}

// GetTicker returns the latest quote for a symbol. The call is retried with
// exponential backoff because quote fetches sit on every execution path.
func (c *Client) GetTicker(ctx context.Context, symbol string) (*Ticker, error) {
	var ticker *Ticker
	err := c.withRetry(ctx, func() error {
		t, err := c.fetchTicker(ctx, symbol)
		if err != nil {
			return err
		}
		ticker = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ticker, nil
}

func (c *Client) fetchTicker(ctx context.Context, symbol string) (*Ticker, error) {
	params := url.Values{}
	params.Set("category", category)
	params.Set("symbol", symbol)

	var result tickerResult
	if err := c.get(ctx, "/v5/market/tickers", params, &result); err != nil {
		return nil, err
	}
	if len(result.List) == 0 {
		return nil, fmt.Errorf("no ticker data for %s", symbol)
	}

	raw := result.List[0]
	ticker := &Ticker{Symbol: raw.Symbol}

	var err error
	if ticker.LastPrice, err = parseDecimal(raw.LastPrice); err != nil {
		return nil, err
	}
	if ticker.Bid, err = parseDecimal(raw.Bid1Price); err != nil {
		return nil, err
	}
	if ticker.Ask, err = parseDecimal(raw.Ask1Price); err != nil {
		return nil, err
	}
	if ticker.High24h, err = parseDecimal(raw.HighPrice24h); err != nil {
		return nil, err
	}
	if ticker.Low24h, err = parseDecimal(raw.LowPrice24h); err != nil {
		return nil, err
	}
	if ticker.Volume24h, err = parseDecimal(raw.Volume24h); err != nil {
		return nil, err
	}
	if ticker.PriceChange24hPcnt, err = parseDecimal(raw.Price24hPcnt); err != nil {
		return nil, err
	}

	c.log.Debug().Str("symbol", symbol).Str("last_price", ticker.LastPrice.String()).Msg("Ticker fetched")
	return ticker, nil
}

// GetKlines returns up to limit candlesticks for a symbol, oldest first.
// Interval uses Bybit notation: 1, 3, 5, 15, 30, 60, 120, 240, D, W, M.
func (c *Client) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]Kline, error) {
	params := url.Values{}
	params.Set("category", category)
	params.Set("symbol", symbol)
	params.Set("interval", interval)
	params.Set("limit", strconv.Itoa(limit))

	var result klineResult
	err := c.withRetry(ctx, func() error {
		return c.get(ctx, "/v5/market/kline", params, &result)
	})
	if err != nil {
		return nil, err
	}

	// Bybit returns newest first: [start, open, high, low, close, volume, turnover]
	klines := make([]Kline, 0, len(result.List))
	for i := len(result.List) - 1; i >= 0; i-- {
		row := result.List[i]
		if len(row) < 6 {
			return nil, fmt.Errorf("malformed kline row of length %d", len(row))
		}

		ts, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid kline timestamp %q: %w", row[0], err)
		}

		k := Kline{Timestamp: ts}
		if k.Open, err = parseDecimal(row[1]); err != nil {
			return nil, err
		}
		if k.High, err = parseDecimal(row[2]); err != nil {
			return nil, err
		}
		if k.Low, err = parseDecimal(row[3]); err != nil {
			return nil, err
		}
		if k.Close, err = parseDecimal(row[4]); err != nil {
			return nil, err
		}
		if k.Volume, err = parseDecimal(row[5]); err != nil {
			return nil, err
		}
		klines = append(klines, k)
	}

	c.log.Debug().Str("symbol", symbol).Str("interval", interval).Int("count", len(klines)).Msg("Klines fetched")
	return klines, nil
}

// PlaceOrder submits an order to the exchange and returns its order id
func (c *Client) PlaceOrder(ctx context.Context, symbol, side, orderType string, qty decimal.Decimal, price, stopLoss, takeProfit *decimal.Decimal) (string, error) {
	body := map[string]string{
		"category":  category,
		"symbol":    symbol,
		"side":      capitalize(side),
		"orderType": capitalize(orderType),
		"qty":       qty.String(),
	}
	if price != nil {
		body["price"] = price.String()
	}
	if stopLoss != nil {
		body["stopLoss"] = stopLoss.String()
	}
	if takeProfit != nil {
		body["takeProfit"] = takeProfit.String()
	}

	var result OrderResult
	if err := c.post(ctx, "/v5/order/create", body, &result); err != nil {
		c.log.Error().Err(err).Str("symbol", symbol).Msg("Order placement failed")
		return "", err
	}

	c.log.Info().
		Str("symbol", symbol).
		Str("side", side).
		Str("order_type", orderType).
		Str("qty", qty.String()).
		Str("order_id", result.OrderID).
		Msg("Order placed")
	return result.OrderID, nil
}

// CancelOrder cancels an order on the exchange by its exchange order id
func (c *Client) CancelOrder(ctx context.Context, symbol, orderID string) error {
	body := map[string]string{
		"category": category,
		"symbol":   symbol,
		"orderId":  orderID,
	}

	var result OrderResult
	if err := c.post(ctx, "/v5/order/cancel", body, &result); err != nil {
		return err
	}

	c.log.Info().Str("symbol", symbol).Str("order_id", orderID).Msg("Order cancelled")
	return nil
}

// GetWalletBalance returns the unified account balance
func (c *Client) GetWalletBalance(ctx context.Context) (*WalletBalance, error) {
	params := url.Values{}
	params.Set("accountType", "UNIFIED")

	var result walletResult
	if err := c.getSigned(ctx, "/v5/account/wallet-balance", params, &result); err != nil {
		return nil, err
	}
	if len(result.List) == 0 {
		return nil, fmt.Errorf("no wallet balance data")
	}

	raw := result.List[0]
	balance := &WalletBalance{}

	var err error
	if balance.TotalEquity, err = parseDecimal(raw.TotalEquity); err != nil {
		return nil, err
	}
	if balance.TotalWalletBalance, err = parseDecimal(raw.TotalWalletBalance); err != nil {
		return nil, err
	}
	if balance.TotalPerpUPL, err = parseDecimal(raw.TotalPerpUPL); err != nil {
		return nil, err
	}
	return balance, nil
}

// withRetry calls fn up to maxAttempts times with exponential backoff,
// respecting context cancellation between attempts.
func (c *Client) withRetry(ctx context.Context, fn func() error) error {
	var err error
	delay := c.retryDelay

	for attempt := 0; attempt < maxAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}

		if attempt < maxAttempts-1 {
			c.log.Warn().Err(err).Int("attempt", attempt+1).Msg("Request failed, retrying")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
	}

	return err
}

func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	return c.do(req, result)
}

func (c *Client) getSigned(ctx context.Context, path string, params url.Values, result interface{}) error {
	query := params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	c.sign(req, query)
	return c.do(req, result)
}

func (c *Client) post(ctx context.Context, path string, body map[string]string, result interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.sign(req, string(payload))
	return c.do(req, result)
}

// sign adds the v5 authentication headers: the signature is an HMAC-SHA256
// over timestamp + api key + recv window + payload.
func (c *Client) sign(req *http.Request, payload string) {
	timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)

	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	mac.Write([]byte(timestamp + c.apiKey + recvWindow + payload))
	signature := hex.EncodeToString(mac.Sum(nil))

	req.Header.Set("X-BAPI-API-KEY", c.apiKey)
	req.Header.Set("X-BAPI-TIMESTAMP", timestamp)
	req.Header.Set("X-BAPI-RECV-WINDOW", recvWindow)
	req.Header.Set("X-BAPI-SIGN-TYPE", "2")
	req.Header.Set("X-BAPI-SIGN", signature)
}

func (c *Client) do(req *http.Request, result interface{}) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(data))
	}

	var envelope apiResponse
	if err := json.Unmarshal(data, &envelope); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if envelope.RetCode != 0 {
		return fmt.Errorf("bybit error %d: %s", envelope.RetCode, envelope.RetMsg)
	}

	if result != nil {
		if err := json.Unmarshal(envelope.Result, result); err != nil {
			return fmt.Errorf("failed to decode result: %w", err)
		}
	}
	return nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}
