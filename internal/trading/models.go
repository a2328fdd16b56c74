package trading

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderSide is the direction of an order
type OrderSide string

// OrderType is the execution style of an order
type OrderType string

// OrderStatus is the lifecycle state of an order
type OrderStatus string

const (
	SideBuy  OrderSide = "buy"
	SideSell OrderSide = "sell"
)

const (
	TypeMarket     OrderType = "market"
	TypeLimit      OrderType = "limit"
	TypeStopMarket OrderType = "stop_market"
	TypeStopLimit  OrderType = "stop_limit"
)

const (
	StatusPending         OrderStatus = "pending"
	StatusFilled          OrderStatus = "filled"
	StatusPartiallyFilled OrderStatus = "partially_filled"
	StatusCancelled       OrderStatus = "cancelled"
	StatusRejected        OrderStatus = "rejected"
	StatusExpired         OrderStatus = "expired"
)

// Valid reports whether the side is buy or sell
func (s OrderSide) Valid() bool {
	return s == SideBuy || s == SideSell
}

// Valid reports whether the type is a supported order type
func (t OrderType) Valid() bool {
	switch t {
	case TypeMarket, TypeLimit, TypeStopMarket, TypeStopLimit:
		return true
	}
	return false
}

// Terminal reports whether the status admits no further transitions
func (s OrderStatus) Terminal() bool {
	switch s {
	case StatusFilled, StatusPartiallyFilled, StatusCancelled, StatusRejected, StatusExpired:
		return true
	}
	return false
}

// RequiresPrice reports whether the order type needs a limit price
func (t OrderType) RequiresPrice() bool {
	return t == TypeLimit || t == TypeStopLimit
}

// Order represents a trading order
type Order struct {
	ID               int64            `json:"id"`
	ExchangeOrderID  string           `json:"exchange_order_id,omitempty"`
	Symbol           string           `json:"symbol"`
	Side             OrderSide        `json:"side"`
	Type             OrderType        `json:"order_type"`
	Status           OrderStatus      `json:"status"`
	Quantity         decimal.Decimal  `json:"quantity"`
	FilledQuantity   decimal.Decimal  `json:"filled_quantity"`
	Price            *decimal.Decimal `json:"price,omitempty"`
	AverageFillPrice *decimal.Decimal `json:"average_fill_price,omitempty"`
	StopPrice        *decimal.Decimal `json:"stop_price,omitempty"`
	StopLoss         *decimal.Decimal `json:"stop_loss,omitempty"`
	TakeProfit       *decimal.Decimal `json:"take_profit,omitempty"`
	Leverage         int              `json:"leverage"`
	IsPaperTrading   bool             `json:"is_paper_trading"`
	StrategyName     string           `json:"strategy_name,omitempty"`
	Notes            string           `json:"notes,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
	FilledAt         *time.Time       `json:"filled_at,omitempty"`
}

// NormalizeSymbol uppercases and trims a trading pair symbol
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
