package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"futurebot/internal/clients/bybit"
	"futurebot/internal/database"
	"futurebot/internal/events"
	"futurebot/internal/paper"
	"futurebot/internal/portfolio"
	"futurebot/internal/trading"
)

type fakeQuotes struct {
	prices map[string]decimal.Decimal
	err    error
}

func (f *fakeQuotes) GetTicker(ctx context.Context, symbol string) (*bybit.Ticker, error) {
	if f.err != nil {
		return nil, f.err
	}
	price, ok := f.prices[symbol]
	if !ok {
		return nil, fmt.Errorf("no quote for %s", symbol)
	}
	return &bybit.Ticker{Symbol: symbol, LastPrice: price}, nil
}

type serviceFixture struct {
	service   *TradingService
	orders    *trading.OrderRepository
	positions *portfolio.PositionRepository
	engine    *paper.Engine
	quotes    *fakeQuotes
}

func setupService(t *testing.T) *serviceFixture {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { db.Close() })

	orderRepo := trading.NewOrderRepository(db.Conn(), zerolog.Nop())
	positionRepo := portfolio.NewPositionRepository(db.Conn(), zerolog.Nop())

	quotes := &fakeQuotes{prices: map[string]decimal.Decimal{
		"BTCUSDT": decimal.RequireFromString("50000"),
	}}
	eventManager := events.NewManager(100, zerolog.Nop())
	engine := paper.NewEngine(decimal.RequireFromString("10000"), quotes, positionRepo, eventManager, zerolog.Nop())

	validator := trading.NewValidator(decimal.RequireFromString("100000"), 5, 10)
	service := NewTradingService(orderRepo, positionRepo, validator, engine, nil, eventManager, true, zerolog.Nop())

	return &serviceFixture{
		service:   service,
		orders:    orderRepo,
		positions: positionRepo,
		engine:    engine,
		quotes:    quotes,
	}
}

func marketBuy(symbol, quantity string) CreateOrderRequest {
	return CreateOrderRequest{
		Symbol:   symbol,
		Side:     trading.SideBuy,
		Type:     trading.TypeMarket,
		Quantity: decimal.RequireFromString(quantity),
	}
}

func TestCreateOrder_PaperFillPersistsOrderAndPosition(t *testing.T) {
	fx := setupService(t)

	order, err := fx.service.CreateOrder(context.Background(), marketBuy("btcusdt", "0.1"))
	require.NoError(t, err)

	assert.Equal(t, "BTCUSDT", order.Symbol)
	assert.Equal(t, trading.StatusFilled, order.Status)
	assert.Equal(t, 1, order.Leverage)
	require.NotNil(t, order.AverageFillPrice)
	assert.True(t, order.AverageFillPrice.Equal(decimal.RequireFromString("50025")))

	// Outcome is persisted.
	stored, err := fx.orders.GetByID(order.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, trading.StatusFilled, stored.Status)

	// The position is mirrored into the database.
	open, err := fx.positions.GetOpen()
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "BTCUSDT", open[0].Symbol)
}

func TestCreateOrder_ValidationFailurePersistsNothing(t *testing.T) {
	fx := setupService(t)

	_, err := fx.service.CreateOrder(context.Background(), marketBuy("BTCUSDT", "0"))

	var validationErr *trading.ValidationError
	require.True(t, errors.As(err, &validationErr))

	_, total, err := fx.orders.GetAll(0, 50, "", "")
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}

func TestCreateOrder_ExecutionFailureStoredAsRejected(t *testing.T) {
	fx := setupService(t)
	fx.quotes.err = fmt.Errorf("connection refused")

	order, err := fx.service.CreateOrder(context.Background(), marketBuy("BTCUSDT", "0.1"))
	require.NoError(t, err)

	assert.Equal(t, trading.StatusRejected, order.Status)
	assert.Contains(t, order.Notes, "execution error")

	stored, err := fx.orders.GetByID(order.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, trading.StatusRejected, stored.Status)
	assert.Contains(t, stored.Notes, "execution error")
}

func TestCreateOrder_OpenPositionLimit(t *testing.T) {
	fx := setupService(t)

	for i := 0; i < 5; i++ {
		symbol := fmt.Sprintf("SYM%dUSDT", i)
		fx.quotes.prices[symbol] = decimal.RequireFromString("10")
		_, err := fx.service.CreateOrder(context.Background(), marketBuy(symbol, "1"))
		require.NoError(t, err)
	}

	fx.quotes.prices["ETHUSDT"] = decimal.RequireFromString("3000")
	_, err := fx.service.CreateOrder(context.Background(), marketBuy("ETHUSDT", "0.1"))

	var validationErr *trading.ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Contains(t, validationErr.Error(), "open position limit")
}

func TestCancelOrder(t *testing.T) {
	fx := setupService(t)

	pending := &trading.Order{
		Symbol:         "BTCUSDT",
		Side:           trading.SideBuy,
		Type:           trading.TypeStopMarket,
		Status:         trading.StatusPending,
		Quantity:       decimal.RequireFromString("0.1"),
		Leverage:       1,
		IsPaperTrading: true,
	}
	require.NoError(t, fx.orders.Create(pending))

	cancelled, err := fx.service.CancelOrder(context.Background(), pending.ID)
	require.NoError(t, err)
	assert.Equal(t, trading.StatusCancelled, cancelled.Status)

	// A second cancel hits the terminal status.
	_, err = fx.service.CancelOrder(context.Background(), pending.ID)
	var stateErr *trading.InvalidStateError
	require.True(t, errors.As(err, &stateErr))
}

func TestCancelOrder_NotFound(t *testing.T) {
	fx := setupService(t)

	_, err := fx.service.CancelOrder(context.Background(), 42)

	var notFoundErr *trading.NotFoundError
	require.True(t, errors.As(err, &notFoundErr))
}

func TestGetOrder_NotFound(t *testing.T) {
	fx := setupService(t)

	_, err := fx.service.GetOrder(42)

	var notFoundErr *trading.NotFoundError
	require.True(t, errors.As(err, &notFoundErr))
}

func TestGetPortfolioStats_PaperMode(t *testing.T) {
	fx := setupService(t)

	_, err := fx.service.CreateOrder(context.Background(), marketBuy("BTCUSDT", "0.1"))
	require.NoError(t, err)

	stats, err := fx.service.GetPortfolioStats(context.Background())
	require.NoError(t, err)

	assert.True(t, stats.InitialBalance.Equal(decimal.RequireFromString("10000")))
	assert.True(t, stats.Balance.Equal(decimal.RequireFromString("4997.5")))
	assert.Equal(t, 1, stats.OpenPositions)
}

func TestGetOpenPositions_PaperMode(t *testing.T) {
	fx := setupService(t)

	_, err := fx.service.CreateOrder(context.Background(), marketBuy("BTCUSDT", "0.1"))
	require.NoError(t, err)

	positions, err := fx.service.GetOpenPositions()
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, "BTCUSDT", positions[0].Symbol)
	assert.Equal(t, portfolio.SideLong, positions[0].Side)
}
