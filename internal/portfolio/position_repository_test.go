package portfolio

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"futurebot/internal/database"
)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, db.Migrate())

	t.Cleanup(func() { db.Close() })
	return db
}

func newPosition(symbol string) *Position {
	now := time.Now().UTC()
	return &Position{
		Symbol:         symbol,
		Side:           SideLong,
		Quantity:       decimal.RequireFromString("0.1"),
		EntryPrice:     decimal.RequireFromString("50000"),
		CurrentPrice:   decimal.RequireFromString("50000"),
		Leverage:       1,
		UnrealizedPnL:  decimal.Zero,
		RealizedPnL:    decimal.Zero,
		IsOpen:         true,
		IsPaperTrading: true,
		OpenedAt:       now,
		UpdatedAt:      now,
	}
}

func TestPositionRepository_CreateAndGetBySymbol(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPositionRepository(db.Conn(), zerolog.Nop())

	pos := newPosition("BTCUSDT")
	require.NoError(t, repo.Create(pos))
	assert.Greater(t, pos.ID, int64(0))

	got, err := repo.GetBySymbol("BTCUSDT")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, SideLong, got.Side)
	assert.True(t, got.Quantity.Equal(decimal.RequireFromString("0.1")))
	assert.True(t, got.EntryPrice.Equal(decimal.RequireFromString("50000")))
	assert.True(t, got.IsOpen)
}

func TestPositionRepository_GetBySymbolMissing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPositionRepository(db.Conn(), zerolog.Nop())

	got, err := repo.GetBySymbol("BTCUSDT")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPositionRepository_Update(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPositionRepository(db.Conn(), zerolog.Nop())

	pos := newPosition("BTCUSDT")
	require.NoError(t, repo.Create(pos))

	pos.Quantity = decimal.RequireFromString("0.2")
	pos.EntryPrice = decimal.RequireFromString("51000")
	pos.UnrealizedPnL = decimal.RequireFromString("-12.5")
	require.NoError(t, repo.Update(pos))

	got, err := repo.GetByID(pos.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.True(t, got.Quantity.Equal(decimal.RequireFromString("0.2")))
	assert.True(t, got.EntryPrice.Equal(decimal.RequireFromString("51000")))
	assert.True(t, got.UnrealizedPnL.Equal(decimal.RequireFromString("-12.5")))
}

func TestPositionRepository_Close(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPositionRepository(db.Conn(), zerolog.Nop())

	pos := newPosition("BTCUSDT")
	require.NoError(t, repo.Create(pos))
	require.NoError(t, repo.Close(pos.ID))

	got, err := repo.GetByID(pos.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, got.IsOpen)
	require.NotNil(t, got.ClosedAt)

	open, err := repo.GetBySymbol("BTCUSDT")
	require.NoError(t, err)
	assert.Nil(t, open)
}

func TestPositionRepository_GetOpen(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPositionRepository(db.Conn(), zerolog.Nop())

	btc := newPosition("BTCUSDT")
	require.NoError(t, repo.Create(btc))

	eth := newPosition("ETHUSDT")
	require.NoError(t, repo.Create(eth))
	require.NoError(t, repo.Close(eth.ID))

	open, err := repo.GetOpen()
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "BTCUSDT", open[0].Symbol)
}

func TestPositionRepository_GetAllFiltersByOpen(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPositionRepository(db.Conn(), zerolog.Nop())

	btc := newPosition("BTCUSDT")
	require.NoError(t, repo.Create(btc))

	eth := newPosition("ETHUSDT")
	require.NoError(t, repo.Create(eth))
	require.NoError(t, repo.Close(eth.ID))

	all, err := repo.GetAll(0, 50, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	closed := false
	history, err := repo.GetAll(0, 50, &closed)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "ETHUSDT", history[0].Symbol)
}

func TestPositionRepository_OneOpenPositionPerSymbol(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPositionRepository(db.Conn(), zerolog.Nop())

	require.NoError(t, repo.Create(newPosition("BTCUSDT")))
	// A second open position for the same symbol violates the unique index.
	assert.Error(t, repo.Create(newPosition("BTCUSDT")))
}

func TestPosition_MarkPrice(t *testing.T) {
	long := newPosition("BTCUSDT")
	long.MarkPrice(decimal.RequireFromString("51000"))
	assert.True(t, long.UnrealizedPnL.Equal(decimal.RequireFromString("100")))

	short := newPosition("BTCUSDT")
	short.Side = SideShort
	short.MarkPrice(decimal.RequireFromString("51000"))
	assert.True(t, short.UnrealizedPnL.Equal(decimal.RequireFromString("-100")))
}
