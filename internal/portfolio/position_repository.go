package portfolio

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// PositionRepository handles position database operations
type PositionRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewPositionRepository creates a new position repository
func NewPositionRepository(db *sql.DB, log zerolog.Logger) *PositionRepository {
	return &PositionRepository{
		db:  db,
		log: log.With().Str("repo", "position").Logger(),
	}
}

const positionColumns = `id, symbol, side, quantity, entry_price, current_price,
	leverage, unrealized_pnl, realized_pnl, stop_loss, take_profit,
	liquidation_price, is_open, is_paper_trading, strategy_name,
	opened_at, updated_at, closed_at`

// Create inserts a new position and assigns its id
func (r *PositionRepository) Create(position *Position) error {
	now := time.Now().UTC()
	position.OpenedAt = now
	position.UpdatedAt = now
	position.Symbol = strings.ToUpper(strings.TrimSpace(position.Symbol))

	result, err := r.db.Exec(`
		INSERT INTO positions
		(symbol, side, quantity, entry_price, current_price, leverage,
		 unrealized_pnl, realized_pnl, stop_loss, take_profit,
		 liquidation_price, is_open, is_paper_trading, strategy_name,
		 opened_at, updated_at, closed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		position.Symbol,
		string(position.Side),
		position.Quantity.String(),
		position.EntryPrice.String(),
		position.CurrentPrice.String(),
		position.Leverage,
		position.UnrealizedPnL.String(),
		position.RealizedPnL.String(),
		nullDecimal(position.StopLoss),
		nullDecimal(position.TakeProfit),
		nullDecimal(position.LiquidationPrice),
		position.IsOpen,
		position.IsPaperTrading,
		nullString(position.StrategyName),
		position.OpenedAt.Format(time.RFC3339Nano),
		position.UpdatedAt.Format(time.RFC3339Nano),
		nullTime(position.ClosedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert position: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get position id: %w", err)
	}
	position.ID = id

	r.log.Info().Int64("position_id", position.ID).Str("symbol", position.Symbol).Msg("Position created")
	return nil
}

// Update persists the mutable fields of an existing position
func (r *PositionRepository) Update(position *Position) error {
	position.UpdatedAt = time.Now().UTC()

	_, err := r.db.Exec(`
		UPDATE positions SET
			quantity = ?,
			entry_price = ?,
			current_price = ?,
			unrealized_pnl = ?,
			realized_pnl = ?,
			is_open = ?,
			updated_at = ?,
			closed_at = ?
		WHERE id = ?`,
		position.Quantity.String(),
		position.EntryPrice.String(),
		position.CurrentPrice.String(),
		position.UnrealizedPnL.String(),
		position.RealizedPnL.String(),
		position.IsOpen,
		position.UpdatedAt.Format(time.RFC3339Nano),
		nullTime(position.ClosedAt),
		position.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update position: %w", err)
	}

	r.log.Debug().Int64("position_id", position.ID).Msg("Position updated")
	return nil
}

// GetByID returns a position by id, or nil if not found
func (r *PositionRepository) GetByID(id int64) (*Position, error) {
	rows, err := r.db.Query("SELECT "+positionColumns+" FROM positions WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("failed to query position: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanPosition(rows)
}

// GetBySymbol returns the open position for a symbol, or nil if none
func (r *PositionRepository) GetBySymbol(symbol string) (*Position, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	rows, err := r.db.Query("SELECT "+positionColumns+" FROM positions WHERE symbol = ? AND is_open = 1", symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to query position by symbol: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanPosition(rows)
}

// GetOpen returns all open positions
func (r *PositionRepository) GetOpen() ([]Position, error) {
	rows, err := r.db.Query("SELECT " + positionColumns + " FROM positions WHERE is_open = 1")
	if err != nil {
		return nil, fmt.Errorf("failed to query open positions: %w", err)
	}
	defer rows.Close()

	var positions []Position
	for rows.Next() {
		pos, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		positions = append(positions, *pos)
	}
	return positions, rows.Err()
}

// GetAll returns positions newest first with pagination. isOpen filters by
// open state when non-nil.
func (r *PositionRepository) GetAll(skip, limit int, isOpen *bool) ([]Position, error) {
	query := "SELECT " + positionColumns + " FROM positions"
	var args []interface{}
	if isOpen != nil {
		query += " WHERE is_open = ?"
		args = append(args, *isOpen)
	}
	query += " ORDER BY opened_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, skip)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	var positions []Position
	for rows.Next() {
		pos, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		positions = append(positions, *pos)
	}
	return positions, rows.Err()
}

// Close marks a position closed and stamps closed_at
func (r *PositionRepository) Close(id int64) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	result, err := r.db.Exec(
		"UPDATE positions SET is_open = 0, closed_at = ?, updated_at = ? WHERE id = ?",
		now, now, id,
	)
	if err != nil {
		return fmt.Errorf("failed to close position: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	r.log.Info().Int64("position_id", id).Int64("rows_affected", rowsAffected).Msg("Position closed")
	return nil
}

// scanPosition scans a database row into a Position
func scanPosition(rows *sql.Rows) (*Position, error) {
	var p Position
	var side string
	var quantity, entryPrice, unrealizedPnL, realizedPnL string
	var currentPrice, stopLoss, takeProfit, liquidationPrice sql.NullString
	var strategyName sql.NullString
	var openedAt, updatedAt string
	var closedAt sql.NullString

	err := rows.Scan(
		&p.ID,
		&p.Symbol,
		&side,
		&quantity,
		&entryPrice,
		&currentPrice,
		&p.Leverage,
		&unrealizedPnL,
		&realizedPnL,
		&stopLoss,
		&takeProfit,
		&liquidationPrice,
		&p.IsOpen,
		&p.IsPaperTrading,
		&strategyName,
		&openedAt,
		&updatedAt,
		&closedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan position: %w", err)
	}

	p.Side = PositionSide(side)
	p.StrategyName = strategyName.String

	if p.Quantity, err = decimal.NewFromString(quantity); err != nil {
		return nil, fmt.Errorf("invalid quantity %q: %w", quantity, err)
	}
	if p.EntryPrice, err = decimal.NewFromString(entryPrice); err != nil {
		return nil, fmt.Errorf("invalid entry_price %q: %w", entryPrice, err)
	}
	if currentPrice.Valid {
		if p.CurrentPrice, err = decimal.NewFromString(currentPrice.String); err != nil {
			return nil, fmt.Errorf("invalid current_price %q: %w", currentPrice.String, err)
		}
	}
	if p.UnrealizedPnL, err = decimal.NewFromString(unrealizedPnL); err != nil {
		return nil, fmt.Errorf("invalid unrealized_pnl %q: %w", unrealizedPnL, err)
	}
	if p.RealizedPnL, err = decimal.NewFromString(realizedPnL); err != nil {
		return nil, fmt.Errorf("invalid realized_pnl %q: %w", realizedPnL, err)
	}
	if p.StopLoss, err = scanDecimal(stopLoss); err != nil {
		return nil, err
	}
	if p.TakeProfit, err = scanDecimal(takeProfit); err != nil {
		return nil, err
	}
	if p.LiquidationPrice, err = scanDecimal(liquidationPrice); err != nil {
		return nil, err
	}

	if p.OpenedAt, err = time.Parse(time.RFC3339Nano, openedAt); err != nil {
		return nil, fmt.Errorf("invalid opened_at %q: %w", openedAt, err)
	}
	if p.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("invalid updated_at %q: %w", updatedAt, err)
	}
	if closedAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, closedAt.String)
		if err != nil {
			return nil, fmt.Errorf("invalid closed_at %q: %w", closedAt.String, err)
		}
		p.ClosedAt = &t
	}

	p.Symbol = strings.ToUpper(strings.TrimSpace(p.Symbol))
	return &p, nil
}

// Helper functions for nullable columns

func nullString(val string) sql.NullString {
	if val == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: val, Valid: true}
}

func nullDecimal(val *decimal.Decimal) sql.NullString {
	if val == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: val.String(), Valid: true}
}

func nullTime(val *time.Time) sql.NullString {
	if val == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: val.Format(time.RFC3339Nano), Valid: true}
}

func scanDecimal(val sql.NullString) (*decimal.Decimal, error) {
	if !val.Valid {
		return nil, nil
	}
	d, err := decimal.NewFromString(val.String)
	if err != nil {
		return nil, fmt.Errorf("invalid decimal %q: %w", val.String, err)
	}
	return &d, nil
}
