package bybit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewClient(srv.URL, "test-key", "test-secret", zerolog.Nop())
	client.retryDelay = time.Millisecond
	return client
}

func envelope(result interface{}) []byte {
	raw, _ := json.Marshal(result)
	payload, _ := json.Marshal(map[string]interface{}{
		"retCode": 0,
		"retMsg":  "OK",
		"result":  json.RawMessage(raw),
	})
	return payload
}

func TestGetTicker(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v5/market/tickers", r.URL.Path)
		assert.Equal(t, "linear", r.URL.Query().Get("category"))
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))

		w.Write(envelope(map[string]interface{}{
			"list": []map[string]string{{
				"symbol":       "BTCUSDT",
				"lastPrice":    "50123.45",
				"bid1Price":    "50123.40",
				"ask1Price":    "50123.50",
				"highPrice24h": "51000",
				"lowPrice24h":  "49000",
				"volume24h":    "12345.6",
				"price24hPcnt": "0.0234",
			}},
		}))
	})

	ticker, err := client.GetTicker(context.Background(), "BTCUSDT")
	require.NoError(t, err)

	assert.Equal(t, "BTCUSDT", ticker.Symbol)
	assert.True(t, ticker.LastPrice.Equal(decimal.RequireFromString("50123.45")))
	assert.True(t, ticker.Bid.Equal(decimal.RequireFromString("50123.40")))
	assert.True(t, ticker.High24h.Equal(decimal.RequireFromString("51000")))
}

func TestGetTicker_RetriesOnFailure(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write(envelope(map[string]interface{}{
			"list": []map[string]string{{"symbol": "BTCUSDT", "lastPrice": "50000"}},
		}))
	})

	ticker, err := client.GetTicker(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	assert.True(t, ticker.LastPrice.Equal(decimal.RequireFromString("50000")))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestGetTicker_GivesUpAfterMaxAttempts(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.GetTicker(context.Background(), "BTCUSDT")
	require.Error(t, err)
	assert.Equal(t, int32(maxAttempts), atomic.LoadInt32(&calls))
}

func TestGetTicker_APIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		payload, _ := json.Marshal(map[string]interface{}{
			"retCode": 10001,
			"retMsg":  "params error",
			"result":  map[string]interface{}{},
		})
		w.Write(payload)
	})

	_, err := client.GetTicker(context.Background(), "BTCUSDT")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "params error")
}

func TestGetKlines_ReversesToOldestFirst(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v5/market/kline", r.URL.Path)
		assert.Equal(t, "60", r.URL.Query().Get("interval"))

		// Bybit serves newest first.
		w.Write(envelope(map[string]interface{}{
			"list": [][]string{
				{"1700003600000", "102", "103", "101", "102.5", "20", "2050"},
				{"1700000000000", "100", "101", "99", "100.5", "10", "1005"},
			},
		}))
	})

	klines, err := client.GetKlines(context.Background(), "BTCUSDT", "60", 2)
	require.NoError(t, err)
	require.Len(t, klines, 2)

	assert.Equal(t, int64(1700000000000), klines[0].Timestamp)
	assert.Equal(t, int64(1700003600000), klines[1].Timestamp)
	assert.True(t, klines[0].Close.Equal(decimal.RequireFromString("100.5")))
	assert.True(t, klines[1].Close.Equal(decimal.RequireFromString("102.5")))
}

func TestPlaceOrder(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v5/order/create", r.URL.Path)

		// Signed requests carry the v5 auth headers.
		assert.Equal(t, "test-key", r.Header.Get("X-BAPI-API-KEY"))
		assert.NotEmpty(t, r.Header.Get("X-BAPI-SIGN"))
		assert.NotEmpty(t, r.Header.Get("X-BAPI-TIMESTAMP"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "BTCUSDT", body["symbol"])
		assert.Equal(t, "Buy", body["side"])
		assert.Equal(t, "Market", body["orderType"])
		assert.Equal(t, "0.1", body["qty"])

		w.Write(envelope(map[string]string{"orderId": "abc-123"}))
	})

	orderID, err := client.PlaceOrder(context.Background(),
		"BTCUSDT", "buy", "market", decimal.RequireFromString("0.1"), nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "abc-123", orderID)
}

func TestCancelOrder(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v5/order/cancel", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "abc-123", body["orderId"])

		w.Write(envelope(map[string]string{"orderId": "abc-123"}))
	})

	err := client.CancelOrder(context.Background(), "BTCUSDT", "abc-123")
	require.NoError(t, err)
}

func TestGetWalletBalance(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v5/account/wallet-balance", r.URL.Path)
		assert.Equal(t, "UNIFIED", r.URL.Query().Get("accountType"))
		assert.NotEmpty(t, r.Header.Get("X-BAPI-SIGN"))

		w.Write(envelope(map[string]interface{}{
			"list": []map[string]string{{
				"totalEquity":        "10250.75",
				"totalWalletBalance": "10000",
				"totalPerpUPL":       "250.75",
			}},
		}))
	})

	balance, err := client.GetWalletBalance(context.Background())
	require.NoError(t, err)

	assert.True(t, balance.TotalEquity.Equal(decimal.RequireFromString("10250.75")))
	assert.True(t, balance.TotalWalletBalance.Equal(decimal.RequireFromString("10000")))
	assert.True(t, balance.TotalPerpUPL.Equal(decimal.RequireFromString("250.75")))
}
