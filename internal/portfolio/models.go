package portfolio

import (
	"time"

	"github.com/shopspring/decimal"
)

// PositionSide is the direction of an open position
type PositionSide string

const (
	SideLong  PositionSide = "long"
	SideShort PositionSide = "short"
)

// Position represents exposure in a single symbol. Among open positions the
// symbol is unique; a closed position is immutable history.
type Position struct {
	ID               int64            `json:"id"`
	Symbol           string           `json:"symbol"`
	Side             PositionSide     `json:"side"`
	Quantity         decimal.Decimal  `json:"quantity"`
	EntryPrice       decimal.Decimal  `json:"entry_price"`
	CurrentPrice     decimal.Decimal  `json:"current_price"`
	Leverage         int              `json:"leverage"`
	UnrealizedPnL    decimal.Decimal  `json:"unrealized_pnl"`
	RealizedPnL      decimal.Decimal  `json:"realized_pnl"`
	StopLoss         *decimal.Decimal `json:"stop_loss,omitempty"`
	TakeProfit       *decimal.Decimal `json:"take_profit,omitempty"`
	LiquidationPrice *decimal.Decimal `json:"liquidation_price,omitempty"`
	IsOpen           bool             `json:"is_open"`
	IsPaperTrading   bool             `json:"is_paper_trading"`
	StrategyName     string           `json:"strategy_name,omitempty"`
	OpenedAt         time.Time        `json:"opened_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
	ClosedAt         *time.Time       `json:"closed_at,omitempty"`
}

// MarkPrice recomputes the unrealized P&L from the current price. It is
// always derived from (current, entry, quantity, side), never adjusted
// incrementally.
func (p *Position) MarkPrice(price decimal.Decimal) {
	p.CurrentPrice = price
	diff := price.Sub(p.EntryPrice)
	if p.Side == SideShort {
		diff = diff.Neg()
	}
	p.UnrealizedPnL = diff.Mul(p.Quantity)
}

// Stats summarizes account performance
type Stats struct {
	InitialBalance decimal.Decimal `json:"initial_balance"`
	Balance        decimal.Decimal `json:"current_balance"`
	Equity         decimal.Decimal `json:"total_equity"`
	TotalPnL       decimal.Decimal `json:"total_pnl"`
	ROIPercent     decimal.Decimal `json:"roi_percent"`
	OpenPositions  int             `json:"open_positions"`
}
