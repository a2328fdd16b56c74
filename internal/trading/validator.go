package trading

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Validator enforces order well-formedness and account risk limits before
// anything is persisted or routed for execution.
type Validator struct {
	maxPositionSizeUSD decimal.Decimal
	maxOpenPositions   int
	maxLeverage        int
}

func NewValidator(maxPositionSizeUSD decimal.Decimal, maxOpenPositions, maxLeverage int) *Validator {
	return &Validator{
		maxPositionSizeUSD: maxPositionSizeUSD,
		maxOpenPositions:   maxOpenPositions,
		maxLeverage:        maxLeverage,
	}
}

// Validate checks an order against structural rules first, then risk limits.
// The first failure wins. openPositions is the current number of open
// positions in the account.
func (v *Validator) Validate(order *Order, openPositions int) error {
	if order.Symbol == "" {
		return &ValidationError{Reason: "symbol is required"}
	}
	if !order.Side.Valid() {
		return &ValidationError{Reason: fmt.Sprintf("invalid order side: %s", order.Side)}
	}
	if !order.Type.Valid() {
		return &ValidationError{Reason: fmt.Sprintf("invalid order type: %s", order.Type)}
	}
	if !order.Quantity.IsPositive() {
		return &ValidationError{Reason: "quantity must be positive"}
	}
	if order.Type.RequiresPrice() {
		if order.Price == nil || !order.Price.IsPositive() {
			return &ValidationError{Reason: fmt.Sprintf("%s orders require a positive price", order.Type)}
		}
	}
	if order.Leverage < 1 {
		return &ValidationError{Reason: "leverage must be at least 1"}
	}
	if v.maxLeverage > 0 && order.Leverage > v.maxLeverage {
		return &ValidationError{Reason: fmt.Sprintf("leverage %d exceeds maximum %d", order.Leverage, v.maxLeverage)}
	}

	// Notional cap applies only when the order carries a price; market
	// orders have no known notional until execution.
	if v.maxPositionSizeUSD.IsPositive() && order.Price != nil {
		notional := order.Quantity.Mul(*order.Price)
		if notional.GreaterThan(v.maxPositionSizeUSD) {
			return &ValidationError{
				Reason: fmt.Sprintf("order notional %s exceeds maximum position size %s",
					notional.StringFixed(2), v.maxPositionSizeUSD.StringFixed(2)),
			}
		}
	}

	// Buys open or grow exposure; sells only ever reduce it, so the open
	// position cap gates buys alone.
	if v.maxOpenPositions > 0 && order.Side == SideBuy && openPositions >= v.maxOpenPositions {
		return &ValidationError{
			Reason: fmt.Sprintf("open position limit reached (%d)", v.maxOpenPositions),
		}
	}

	return nil
}
