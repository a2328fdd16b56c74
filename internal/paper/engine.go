// Package paper simulates order execution against live market quotes without
// touching the exchange's order-entry endpoints. It owns the account balance
// and the in-memory ledger of open positions.
package paper

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"futurebot/internal/clients/bybit"
	"futurebot/internal/events"
	"futurebot/internal/portfolio"
)

// QuoteProvider supplies current market quotes
type QuoteProvider interface {
	GetTicker(ctx context.Context, symbol string) (*bybit.Ticker, error)
}

// PositionStore mirrors ledger mutations into persistence. The in-memory
// ledger remains the source of truth; store failures are logged, not fatal.
type PositionStore interface {
	Create(position *portfolio.Position) error
	Update(position *portfolio.Position) error
}

// Engine is the paper trading engine. All balance and position mutations are
// serialized under one mutex: the balance is shared across symbols, so
// per-symbol locking would not be enough.
type Engine struct {
	mu             sync.Mutex
	balance        decimal.Decimal
	initialBalance decimal.Decimal
	positions      map[string]*portfolio.Position

	quotes QuoteProvider
	store  PositionStore
	events *events.Manager
	log    zerolog.Logger
}

// NewEngine creates a paper trading engine with the given starting balance
func NewEngine(initialBalance decimal.Decimal, quotes QuoteProvider, store PositionStore, ev *events.Manager, log zerolog.Logger) *Engine {
	e := &Engine{
		balance:        initialBalance,
		initialBalance: initialBalance,
		positions:      make(map[string]*portfolio.Position),
		quotes:         quotes,
		store:          store,
		events:         ev,
		log:            log.With().Str("component", "paper_engine").Logger(),
	}
	e.log.Info().Str("balance", initialBalance.String()).Msg("Paper trading engine initialized")
	return e
}

// Balance returns the current cash balance
func (e *Engine) Balance() decimal.Decimal {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.balance
}

// Position returns a copy of the open position for a symbol, or nil
func (e *Engine) Position(symbol string) *portfolio.Position {
	e.mu.Lock()
	defer e.mu.Unlock()

	pos, ok := e.positions[symbol]
	if !ok {
		return nil
	}
	cp := *pos
	return &cp
}

// OpenPositions returns copies of all open positions
func (e *Engine) OpenPositions() []portfolio.Position {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]portfolio.Position, 0, len(e.positions))
	for _, pos := range e.positions {
		out = append(out, *pos)
	}
	return out
}

// RestorePositions seeds the ledger from persisted open positions, used at
// startup so a restart does not orphan the position table.
func (e *Engine) RestorePositions(positions []portfolio.Position) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range positions {
		pos := positions[i]
		e.positions[pos.Symbol] = &pos
	}
	e.log.Info().Int("count", len(positions)).Msg("Open positions restored")
}

func (e *Engine) emit(eventType events.EventType, data map[string]interface{}) {
	if e.events != nil {
		e.events.Emit(eventType, "paper", data)
	}
}
