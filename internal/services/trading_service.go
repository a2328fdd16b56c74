// Package services contains the orchestration layer that ties order
// validation, persistence and execution routing together.
package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"futurebot/internal/clients/bybit"
	"futurebot/internal/events"
	"futurebot/internal/paper"
	"futurebot/internal/portfolio"
	"futurebot/internal/trading"
)

// TradingService orchestrates the order lifecycle: validate, persist,
// route to the paper engine or the live exchange, record the outcome.
type TradingService struct {
	orders       *trading.OrderRepository
	positions    *portfolio.PositionRepository
	validator    *trading.Validator
	engine       *paper.Engine
	exchange     *bybit.Client
	events       *events.Manager
	paperTrading bool
	log          zerolog.Logger
}

func NewTradingService(
	orders *trading.OrderRepository,
	positions *portfolio.PositionRepository,
	validator *trading.Validator,
	engine *paper.Engine,
	exchange *bybit.Client,
	ev *events.Manager,
	paperTrading bool,
	log zerolog.Logger,
) *TradingService {
	return &TradingService{
		orders:       orders,
		positions:    positions,
		validator:    validator,
		engine:       engine,
		exchange:     exchange,
		events:       ev,
		paperTrading: paperTrading,
		log:          log.With().Str("service", "trading").Logger(),
	}
}

// CreateOrderRequest is the payload for placing a new order.
type CreateOrderRequest struct {
	Symbol       string            `json:"symbol"`
	Side         trading.OrderSide `json:"side"`
	Type         trading.OrderType `json:"order_type"`
	Quantity     decimal.Decimal   `json:"quantity"`
	Price        *decimal.Decimal  `json:"price,omitempty"`
	StopPrice    *decimal.Decimal  `json:"stop_price,omitempty"`
	StopLoss     *decimal.Decimal  `json:"stop_loss,omitempty"`
	TakeProfit   *decimal.Decimal  `json:"take_profit,omitempty"`
	Leverage     int               `json:"leverage,omitempty"`
	StrategyName string            `json:"strategy_name,omitempty"`
}

// CreateOrder validates and places an order. Validation failures return a
// *trading.ValidationError with nothing persisted. Execution failures never
// surface as errors: the order is stored as REJECTED with the reason in its
// notes.
func (s *TradingService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*trading.Order, error) {
	order := &trading.Order{
		Symbol:         trading.NormalizeSymbol(req.Symbol),
		Side:           req.Side,
		Type:           req.Type,
		Status:         trading.StatusPending,
		Quantity:       req.Quantity,
		Price:          req.Price,
		StopPrice:      req.StopPrice,
		StopLoss:       req.StopLoss,
		TakeProfit:     req.TakeProfit,
		Leverage:       req.Leverage,
		IsPaperTrading: s.paperTrading,
		StrategyName:   req.StrategyName,
	}
	if order.Leverage == 0 {
		order.Leverage = 1
	}

	openCount, err := s.openPositionCount()
	if err != nil {
		return nil, err
	}
	if err := s.validator.Validate(order, openCount); err != nil {
		s.log.Warn().Err(err).Str("symbol", order.Symbol).Msg("Order rejected by validation")
		return nil, err
	}

	if err := s.orders.Create(order); err != nil {
		return nil, fmt.Errorf("failed to persist order: %w", err)
	}
	s.emit(events.OrderCreated, map[string]interface{}{
		"order_id": order.ID,
		"symbol":   order.Symbol,
		"side":     string(order.Side),
	})

	if s.paperTrading {
		order = s.engine.ExecuteOrder(ctx, order)
	} else {
		s.executeLive(ctx, order)
	}

	if err := s.orders.Update(order); err != nil {
		return nil, fmt.Errorf("failed to persist order outcome: %w", err)
	}
	return order, nil
}

// executeLive submits the order to the exchange. A submission failure marks
// the order rejected rather than returning an error, matching paper-mode
// behavior.
func (s *TradingService) executeLive(ctx context.Context, order *trading.Order) {
	exchangeID, err := s.exchange.PlaceOrder(ctx,
		order.Symbol,
		string(order.Side),
		string(order.Type),
		order.Quantity,
		order.Price,
		order.StopLoss,
		order.TakeProfit,
	)
	if err != nil {
		s.log.Error().Err(err).Int64("order_id", order.ID).Msg("Live order submission failed")
		order.Status = trading.StatusRejected
		order.Notes = fmt.Sprintf("exchange error: %v", err)
		s.emit(events.OrderRejected, map[string]interface{}{
			"order_id": order.ID,
			"symbol":   order.Symbol,
			"reason":   order.Notes,
		})
		return
	}

	// Live fills arrive asynchronously; the order stays pending with the
	// exchange id attached.
	order.ExchangeOrderID = exchangeID
	s.log.Info().
		Int64("order_id", order.ID).
		Str("exchange_order_id", exchangeID).
		Msg("Live order submitted")
}

// CancelOrder cancels a pending order. Orders in any other status return a
// *trading.InvalidStateError.
func (s *TradingService) CancelOrder(ctx context.Context, id int64) (*trading.Order, error) {
	order, err := s.orders.GetByID(id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, &trading.NotFoundError{Kind: "order", ID: id}
	}
	if order.Status != trading.StatusPending {
		return nil, &trading.InvalidStateError{Status: order.Status}
	}

	if !s.paperTrading && order.ExchangeOrderID != "" {
		// Best effort: a failed exchange cancel is logged but does not
		// block the local state change.
		if err := s.exchange.CancelOrder(ctx, order.Symbol, order.ExchangeOrderID); err != nil {
			s.log.Error().Err(err).Int64("order_id", order.ID).Msg("Exchange cancel failed")
		}
	}

	order.Status = trading.StatusCancelled
	if err := s.orders.Update(order); err != nil {
		return nil, fmt.Errorf("failed to persist cancellation: %w", err)
	}
	s.emit(events.OrderCancelled, map[string]interface{}{
		"order_id": order.ID,
		"symbol":   order.Symbol,
	})
	return order, nil
}

// GetOrder returns an order by id
func (s *TradingService) GetOrder(id int64) (*trading.Order, error) {
	order, err := s.orders.GetByID(id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, &trading.NotFoundError{Kind: "order", ID: id}
	}
	return order, nil
}

// GetOrders returns orders newest first with pagination and optional filters
func (s *TradingService) GetOrders(skip, limit int, symbol string, status trading.OrderStatus) ([]trading.Order, int, error) {
	return s.orders.GetAll(skip, limit, symbol, status)
}

// GetOpenPositions returns all currently open positions
func (s *TradingService) GetOpenPositions() ([]portfolio.Position, error) {
	if s.paperTrading {
		return s.engine.OpenPositions(), nil
	}
	return s.positions.GetOpen()
}

// GetPositionHistory returns closed positions with pagination
func (s *TradingService) GetPositionHistory(skip, limit int) ([]portfolio.Position, error) {
	open := false
	return s.positions.GetAll(skip, limit, &open)
}

// GetPortfolioStats summarizes account performance. Paper mode reads the
// engine's ledger; live mode reads the exchange wallet.
func (s *TradingService) GetPortfolioStats(ctx context.Context) (portfolio.Stats, error) {
	if s.paperTrading {
		return s.engine.GetStats(), nil
	}

	wallet, err := s.exchange.GetWalletBalance(ctx)
	if err != nil {
		return portfolio.Stats{}, fmt.Errorf("failed to fetch wallet balance: %w", err)
	}
	open, err := s.positions.GetOpen()
	if err != nil {
		return portfolio.Stats{}, err
	}
	return portfolio.Stats{
		Balance:       wallet.TotalWalletBalance,
		Equity:        wallet.TotalEquity,
		TotalPnL:      wallet.TotalPerpUPL,
		OpenPositions: len(open),
	}, nil
}

func (s *TradingService) openPositionCount() (int, error) {
	if s.paperTrading {
		return len(s.engine.OpenPositions()), nil
	}
	open, err := s.positions.GetOpen()
	if err != nil {
		return 0, fmt.Errorf("failed to load open positions: %w", err)
	}
	return len(open), nil
}

func (s *TradingService) emit(eventType events.EventType, data map[string]interface{}) {
	if s.events != nil {
		s.events.Emit(eventType, "trading", data)
	}
}
