package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"futurebot/internal/clients/bybit"
	"futurebot/internal/trading"
	"futurebot/pkg/formulas"
)

// handleTicker handles GET /api/market/ticker/{symbol}
func (s *Server) handleTicker(w http.ResponseWriter, r *http.Request) {
	symbol := trading.NormalizeSymbol(chi.URLParam(r, "symbol"))

	ticker, err := s.market.GetTicker(r.Context(), symbol)
	if err != nil {
		s.log.Error().Err(err).Str("symbol", symbol).Msg("Ticker fetch failed")
		s.writeError(w, http.StatusBadGateway, "failed to fetch ticker")
		return
	}

	s.writeJSON(w, http.StatusOK, ticker)
}

// handleKlines handles GET /api/market/klines/{symbol}
func (s *Server) handleKlines(w http.ResponseWriter, r *http.Request) {
	symbol := trading.NormalizeSymbol(chi.URLParam(r, "symbol"))
	interval := r.URL.Query().Get("interval")
	if interval == "" {
		interval = "60"
	}
	limit := queryInt(r, "limit", 200)
	if limit > 1000 {
		limit = 1000
	}

	klines, err := s.market.GetKlines(r.Context(), symbol, interval, limit)
	if err != nil {
		s.log.Error().Err(err).Str("symbol", symbol).Msg("Klines fetch failed")
		s.writeError(w, http.StatusBadGateway, "failed to fetch klines")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"symbol":   symbol,
		"interval": interval,
		"klines":   klines,
	})
}

// handleIndicators handles GET /api/market/indicators/{symbol}. It computes
// technical indicators and risk metrics from daily candles.
func (s *Server) handleIndicators(w http.ResponseWriter, r *http.Request) {
	symbol := trading.NormalizeSymbol(chi.URLParam(r, "symbol"))

	klines, err := s.market.GetKlines(r.Context(), symbol, "D", 200)
	if err != nil {
		s.log.Error().Err(err).Str("symbol", symbol).Msg("Klines fetch failed")
		s.writeError(w, http.StatusBadGateway, "failed to fetch klines")
		return
	}
	if len(klines) == 0 {
		s.writeError(w, http.StatusNotFound, "no market data for symbol")
		return
	}

	highs, lows, closes := klineSeries(klines)
	returns := formulas.Returns(closes)

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"symbol":       symbol,
		"candles":      len(klines),
		"rsi_14":       formulas.RSI(closes, 14),
		"sma_20":       formulas.SMA(closes, 20),
		"sma_50":       formulas.SMA(closes, 50),
		"ema_20":       formulas.EMA(closes, 20),
		"atr_14":       formulas.ATR(highs, lows, closes, 14),
		"momentum_30d": formulas.Momentum(closes, 30),
		"volatility":   formulas.Volatility(closes),
		"sharpe":       formulas.SharpeRatio(returns, 0, formulas.PeriodsPerYear),
		"max_drawdown": formulas.MaxDrawdown(closes),
	})
}

// klineSeries converts candles into float64 slices oldest first, the layout
// the indicator calculations expect.
func klineSeries(klines []bybit.Kline) (highs, lows, closes []float64) {
	highs = make([]float64, len(klines))
	lows = make([]float64, len(klines))
	closes = make([]float64, len(klines))
	for i, k := range klines {
		highs[i], _ = k.High.Float64()
		lows[i], _ = k.Low.Float64()
		closes[i], _ = k.Close.Float64()
	}
	return highs, lows, closes
}
