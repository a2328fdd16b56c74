package paper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"futurebot/internal/events"
	"futurebot/internal/portfolio"
	"futurebot/internal/trading"
)

// marketSlippage is the fixed adverse slippage applied to market orders.
// Deterministic so runs are reproducible.
var marketSlippage = decimal.NewFromFloat(0.0005)

// ExecuteOrder simulates execution of an order. Failures never surface as
// errors: the order comes back REJECTED with the reason in its notes, and
// the ledger is untouched. A successful fill transitions the order to FILLED
// and applies it to the ledger atomically.
func (e *Engine) ExecuteOrder(ctx context.Context, order *trading.Order) *trading.Order {
	ticker, err := e.quotes.GetTicker(ctx, order.Symbol)
	if err != nil {
		return e.reject(order, fmt.Sprintf("execution error: %v", err))
	}

	execPrice, err := executionPrice(order.Type, order.Side, ticker.LastPrice, order.Price)
	if err != nil {
		return e.reject(order, err.Error())
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// A buy that opens or adds exposure must be funded by the cash balance.
	// Buys that cover an existing short reduce exposure and are exempt.
	existing := e.positions[order.Symbol]
	if order.Side == trading.SideBuy && (existing == nil || existing.Side == portfolio.SideLong) {
		cost := execPrice.Mul(order.Quantity)
		if cost.GreaterThan(e.balance) {
			e.log.Warn().
				Int64("order_id", order.ID).
				Str("required", cost.String()).
				Str("available", e.balance.String()).
				Msg("Order rejected: insufficient balance")
			return e.reject(order, "insufficient balance")
		}
	}

	now := time.Now().UTC()
	order.Status = trading.StatusFilled
	order.FilledQuantity = order.Quantity
	order.AverageFillPrice = &execPrice
	order.FilledAt = &now
	order.ExchangeOrderID = syntheticOrderID()

	e.applyFill(order, execPrice)

	e.log.Info().
		Int64("order_id", order.ID).
		Str("symbol", order.Symbol).
		Str("side", string(order.Side)).
		Str("quantity", order.Quantity.String()).
		Str("price", execPrice.String()).
		Msg("Paper order executed")
	e.emit(events.OrderFilled, map[string]interface{}{
		"order_id": order.ID,
		"symbol":   order.Symbol,
		"price":    execPrice.String(),
	})

	return order
}

// executionPrice computes a deterministic fill price. Market orders pay
// fixed adverse slippage; limit orders fill immediately at the better of
// limit and market price; other types fill at market.
func executionPrice(orderType trading.OrderType, side trading.OrderSide, marketPrice decimal.Decimal, limitPrice *decimal.Decimal) (decimal.Decimal, error) {
	switch orderType {
	case trading.TypeMarket:
		slip := marketPrice.Mul(marketSlippage)
		if side == trading.SideBuy {
			return marketPrice.Add(slip), nil
		}
		return marketPrice.Sub(slip), nil

	case trading.TypeLimit:
		if limitPrice == nil {
			return decimal.Zero, fmt.Errorf("limit orders require a price")
		}
		if side == trading.SideBuy {
			return decimal.Min(*limitPrice, marketPrice), nil
		}
		return decimal.Max(*limitPrice, marketPrice), nil

	default:
		return marketPrice, nil
	}
}

// reject marks an order rejected with the reason in its notes. Safe to call
// with or without the engine mutex held; it only touches the order.
func (e *Engine) reject(order *trading.Order, reason string) *trading.Order {
	order.Status = trading.StatusRejected
	order.Notes = reason
	e.emit(events.OrderRejected, map[string]interface{}{
		"order_id": order.ID,
		"symbol":   order.Symbol,
		"reason":   reason,
	})
	return order
}

func syntheticOrderID() string {
	return "paper_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:16]
}
