package paper

import (
	"time"

	"github.com/shopspring/decimal"

	"futurebot/internal/events"
	"futurebot/internal/portfolio"
	"futurebot/internal/trading"
)

// applyFill applies a filled order to the ledger: open, add to, reduce or
// close the position for the order's symbol and move the cash balance.
// Caller must hold e.mu.
func (e *Engine) applyFill(order *trading.Order, execPrice decimal.Decimal) {
	existing := e.positions[order.Symbol]

	switch {
	case existing == nil:
		e.openPosition(order, execPrice)
	case sameDirection(order.Side, existing.Side):
		e.addToPosition(existing, order, execPrice)
	default:
		e.reducePosition(existing, order, execPrice)
	}
}

func sameDirection(side trading.OrderSide, posSide portfolio.PositionSide) bool {
	if side == trading.SideBuy {
		return posSide == portfolio.SideLong
	}
	return posSide == portfolio.SideShort
}

// openPosition opens a new position. A buy opens a long and spends cash;
// a sell opens a short and credits the proceeds.
func (e *Engine) openPosition(order *trading.Order, execPrice decimal.Decimal) {
	side := portfolio.SideLong
	notional := execPrice.Mul(order.Quantity)
	if order.Side == trading.SideBuy {
		e.balance = e.balance.Sub(notional)
	} else {
		side = portfolio.SideShort
		e.balance = e.balance.Add(notional)
	}

	now := time.Now().UTC()
	pos := &portfolio.Position{
		Symbol:         order.Symbol,
		Side:           side,
		Quantity:       order.Quantity,
		EntryPrice:     execPrice,
		Leverage:       order.Leverage,
		StopLoss:       order.StopLoss,
		TakeProfit:     order.TakeProfit,
		StrategyName:   order.StrategyName,
		IsOpen:         true,
		IsPaperTrading: true,
		OpenedAt:       now,
		UpdatedAt:      now,
	}
	pos.MarkPrice(execPrice)
	e.positions[order.Symbol] = pos

	if e.store != nil {
		if err := e.store.Create(pos); err != nil {
			e.log.Error().Err(err).Str("symbol", pos.Symbol).Msg("Failed to persist opened position")
		}
	}

	e.log.Info().
		Str("symbol", pos.Symbol).
		Str("side", string(pos.Side)).
		Str("quantity", pos.Quantity.String()).
		Str("entry_price", pos.EntryPrice.String()).
		Msg("Position opened")
	e.emit(events.PositionOpened, map[string]interface{}{
		"symbol":      pos.Symbol,
		"side":        string(pos.Side),
		"quantity":    pos.Quantity.String(),
		"entry_price": pos.EntryPrice.String(),
	})
}

// addToPosition increases an existing position, recomputing the entry price
// as the quantity-weighted average of the old and new fills.
func (e *Engine) addToPosition(pos *portfolio.Position, order *trading.Order, execPrice decimal.Decimal) {
	notional := execPrice.Mul(order.Quantity)
	if order.Side == trading.SideBuy {
		e.balance = e.balance.Sub(notional)
	} else {
		e.balance = e.balance.Add(notional)
	}

	oldValue := pos.EntryPrice.Mul(pos.Quantity)
	newQuantity := pos.Quantity.Add(order.Quantity)
	pos.EntryPrice = oldValue.Add(notional).Div(newQuantity)
	pos.Quantity = newQuantity
	pos.UpdatedAt = time.Now().UTC()
	pos.MarkPrice(execPrice)

	e.persistUpdate(pos)

	e.log.Info().
		Str("symbol", pos.Symbol).
		Str("quantity", pos.Quantity.String()).
		Str("entry_price", pos.EntryPrice.String()).
		Msg("Position increased")
}

// reducePosition closes all or part of a position with an opposing order.
// Quantity beyond the open position is ignored, so a sell can never flip a
// long into a short.
func (e *Engine) reducePosition(pos *portfolio.Position, order *trading.Order, execPrice decimal.Decimal) {
	closeQty := decimal.Min(order.Quantity, pos.Quantity)

	pnl := execPrice.Sub(pos.EntryPrice).Mul(closeQty)
	if pos.Side == portfolio.SideShort {
		pnl = pnl.Neg()
	}

	notional := execPrice.Mul(closeQty)
	if pos.Side == portfolio.SideLong {
		// Selling long inventory returns the proceeds to cash.
		e.balance = e.balance.Add(notional)
	} else {
		// Buying back a short spends cash.
		e.balance = e.balance.Sub(notional)
	}

	pos.RealizedPnL = pos.RealizedPnL.Add(pnl)
	pos.UpdatedAt = time.Now().UTC()

	if closeQty.Equal(pos.Quantity) {
		e.closePosition(pos, execPrice, pnl)
		return
	}

	pos.Quantity = pos.Quantity.Sub(closeQty)
	pos.MarkPrice(execPrice)
	e.persistUpdate(pos)

	e.log.Info().
		Str("symbol", pos.Symbol).
		Str("closed_quantity", closeQty.String()).
		Str("remaining", pos.Quantity.String()).
		Str("realized_pnl", pnl.String()).
		Msg("Position reduced")
	e.emit(events.PositionReduced, map[string]interface{}{
		"symbol":       pos.Symbol,
		"quantity":     closeQty.String(),
		"realized_pnl": pnl.String(),
	})
}

func (e *Engine) closePosition(pos *portfolio.Position, execPrice decimal.Decimal, pnl decimal.Decimal) {
	now := time.Now().UTC()
	pos.CurrentPrice = execPrice
	pos.UnrealizedPnL = decimal.Zero
	pos.IsOpen = false
	pos.ClosedAt = &now
	delete(e.positions, pos.Symbol)

	e.persistUpdate(pos)

	e.log.Info().
		Str("symbol", pos.Symbol).
		Str("exit_price", execPrice.String()).
		Str("realized_pnl", pos.RealizedPnL.String()).
		Msg("Position closed")
	e.emit(events.PositionClosed, map[string]interface{}{
		"symbol":       pos.Symbol,
		"exit_price":   execPrice.String(),
		"realized_pnl": pos.RealizedPnL.String(),
	})
}

func (e *Engine) persistUpdate(pos *portfolio.Position) {
	if e.store == nil {
		return
	}
	if err := e.store.Update(pos); err != nil {
		e.log.Error().Err(err).Str("symbol", pos.Symbol).Msg("Failed to persist position update")
	}
}
