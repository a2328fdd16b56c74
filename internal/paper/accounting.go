package paper

import (
	"context"

	"github.com/shopspring/decimal"

	"futurebot/internal/events"
	"futurebot/internal/portfolio"
)

// RefreshPrices re-marks every open position at the latest market price.
// Quotes are fetched without holding the engine mutex; a failed fetch for
// one symbol is logged and skipped so the rest still refresh.
func (e *Engine) RefreshPrices(ctx context.Context) {
	e.mu.Lock()
	symbols := make([]string, 0, len(e.positions))
	for symbol := range e.positions {
		symbols = append(symbols, symbol)
	}
	e.mu.Unlock()

	for _, symbol := range symbols {
		ticker, err := e.quotes.GetTicker(ctx, symbol)
		if err != nil {
			e.log.Warn().Err(err).Str("symbol", symbol).Msg("Price refresh failed")
			e.emit(events.PriceRefreshFailed, map[string]interface{}{
				"symbol": symbol,
				"error":  err.Error(),
			})
			continue
		}

		e.mu.Lock()
		if pos, ok := e.positions[symbol]; ok {
			pos.MarkPrice(ticker.LastPrice)
			e.persistUpdate(pos)
		}
		e.mu.Unlock()
	}
}

// Equity returns cash balance plus the unrealized P&L of all open positions.
func (e *Engine) Equity() decimal.Decimal {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.equityLocked()
}

func (e *Engine) equityLocked() decimal.Decimal {
	equity := e.balance
	for _, pos := range e.positions {
		equity = equity.Add(pos.UnrealizedPnL)
	}
	return equity
}

// GetStats summarizes account performance at the current marks.
func (e *Engine) GetStats() portfolio.Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	equity := e.equityLocked()

	totalPnL := decimal.Zero
	for _, pos := range e.positions {
		totalPnL = totalPnL.Add(pos.RealizedPnL).Add(pos.UnrealizedPnL)
	}

	roi := decimal.Zero
	if !e.initialBalance.IsZero() {
		roi = equity.Sub(e.initialBalance).
			Div(e.initialBalance).
			Mul(decimal.NewFromInt(100))
	}

	return portfolio.Stats{
		InitialBalance: e.initialBalance,
		Balance:        e.balance,
		Equity:         equity,
		TotalPnL:       totalPnL,
		ROIPercent:     roi,
		OpenPositions:  len(e.positions),
	}
}
