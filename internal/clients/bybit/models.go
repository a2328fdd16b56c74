package bybit

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Ticker holds the latest quote for a symbol
type Ticker struct {
	Symbol             string          `json:"symbol"`
	LastPrice          decimal.Decimal `json:"last_price"`
	Bid                decimal.Decimal `json:"bid_price"`
	Ask                decimal.Decimal `json:"ask_price"`
	High24h            decimal.Decimal `json:"high_24h"`
	Low24h             decimal.Decimal `json:"low_24h"`
	Volume24h          decimal.Decimal `json:"volume_24h"`
	PriceChange24hPcnt decimal.Decimal `json:"price_change_24h_percent"`
}

// Kline is a single candlestick
type Kline struct {
	Timestamp int64           `json:"timestamp"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    decimal.Decimal `json:"volume"`
}

// WalletBalance is a snapshot of the unified account
type WalletBalance struct {
	TotalEquity        decimal.Decimal `json:"total_equity"`
	TotalWalletBalance decimal.Decimal `json:"total_wallet_balance"`
	TotalPerpUPL       decimal.Decimal `json:"total_perp_upl"`
}

// OrderResult is the exchange acknowledgment for a placed order
type OrderResult struct {
	OrderID     string `json:"orderId"`
	OrderLinkID string `json:"orderLinkId"`
}

// apiResponse is the envelope every v5 endpoint returns
type apiResponse struct {
	RetCode int             `json:"retCode"`
	RetMsg  string          `json:"retMsg"`
	Result  json.RawMessage `json:"result"`
}

type tickerResult struct {
	List []struct {
		Symbol       string `json:"symbol"`
		LastPrice    string `json:"lastPrice"`
		Bid1Price    string `json:"bid1Price"`
		Ask1Price    string `json:"ask1Price"`
		HighPrice24h string `json:"highPrice24h"`
		LowPrice24h  string `json:"lowPrice24h"`
		Volume24h    string `json:"volume24h"`
		Price24hPcnt string `json:"price24hPcnt"`
	} `json:"list"`
}

type klineResult struct {
	List [][]string `json:"list"`
}

type walletResult struct {
	List []struct {
		TotalEquity        string `json:"totalEquity"`
		TotalWalletBalance string `json:"totalWalletBalance"`
		TotalPerpUPL       string `json:"totalPerpUPL"`
	} `json:"list"`
}

// parseDecimal converts an exchange price/quantity string; empty becomes zero
func parseDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal %q: %w", s, err)
	}
	return d, nil
}
