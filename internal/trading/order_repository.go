package trading

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// OrderRepository handles order database operations
type OrderRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *sql.DB, log zerolog.Logger) *OrderRepository {
	return &OrderRepository{
		db:  db,
		log: log.With().Str("repo", "order").Logger(),
	}
}

const orderColumns = `id, exchange_order_id, symbol, side, order_type, status,
	quantity, filled_quantity, price, average_fill_price, stop_price,
	stop_loss, take_profit, leverage, is_paper_trading, strategy_name,
	notes, created_at, updated_at, filled_at`

// Create inserts a new order and assigns its id
func (r *OrderRepository) Create(order *Order) error {
	now := time.Now().UTC()
	order.CreatedAt = now
	order.UpdatedAt = now

	result, err := r.db.Exec(`
		INSERT INTO orders
		(exchange_order_id, symbol, side, order_type, status, quantity,
		 filled_quantity, price, average_fill_price, stop_price, stop_loss,
		 take_profit, leverage, is_paper_trading, strategy_name, notes,
		 created_at, updated_at, filled_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullString(order.ExchangeOrderID),
		order.Symbol,
		string(order.Side),
		string(order.Type),
		string(order.Status),
		order.Quantity.String(),
		order.FilledQuantity.String(),
		nullDecimal(order.Price),
		nullDecimal(order.AverageFillPrice),
		nullDecimal(order.StopPrice),
		nullDecimal(order.StopLoss),
		nullDecimal(order.TakeProfit),
		order.Leverage,
		order.IsPaperTrading,
		nullString(order.StrategyName),
		nullString(order.Notes),
		order.CreatedAt.Format(time.RFC3339Nano),
		order.UpdatedAt.Format(time.RFC3339Nano),
		nullTime(order.FilledAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get order id: %w", err)
	}
	order.ID = id

	r.log.Info().Int64("order_id", order.ID).Str("symbol", order.Symbol).Msg("Order created")
	return nil
}

// Update persists the mutable fields of an existing order
func (r *OrderRepository) Update(order *Order) error {
	order.UpdatedAt = time.Now().UTC()

	_, err := r.db.Exec(`
		UPDATE orders SET
			exchange_order_id = ?,
			status = ?,
			filled_quantity = ?,
			average_fill_price = ?,
			notes = ?,
			updated_at = ?,
			filled_at = ?
		WHERE id = ?`,
		nullString(order.ExchangeOrderID),
		string(order.Status),
		order.FilledQuantity.String(),
		nullDecimal(order.AverageFillPrice),
		nullString(order.Notes),
		order.UpdatedAt.Format(time.RFC3339Nano),
		nullTime(order.FilledAt),
		order.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}

	r.log.Info().Int64("order_id", order.ID).Str("status", string(order.Status)).Msg("Order updated")
	return nil
}

// GetByID returns an order by id, or nil if not found
func (r *OrderRepository) GetByID(id int64) (*Order, error) {
	rows, err := r.db.Query("SELECT "+orderColumns+" FROM orders WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("failed to query order: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}

	order, err := scanOrder(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan order: %w", err)
	}
	return order, nil
}

// GetActive returns all pending orders, optionally filtered by symbol
func (r *OrderRepository) GetActive(symbol string) ([]Order, error) {
	query := "SELECT " + orderColumns + " FROM orders WHERE status = ?"
	args := []interface{}{string(StatusPending)}
	if symbol != "" {
		query += " AND symbol = ?"
		args = append(args, NormalizeSymbol(symbol))
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query active orders: %w", err)
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *order)
	}
	return orders, rows.Err()
}

// GetAll returns orders newest first with pagination and optional filters,
// along with the total count matching the filters.
func (r *OrderRepository) GetAll(skip, limit int, symbol string, status OrderStatus) ([]Order, int, error) {
	where := " WHERE 1=1"
	var args []interface{}
	if symbol != "" {
		where += " AND symbol = ?"
		args = append(args, NormalizeSymbol(symbol))
	}
	if status != "" {
		where += " AND status = ?"
		args = append(args, string(status))
	}

	var total int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM orders"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	query := "SELECT " + orderColumns + " FROM orders" + where +
		" ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, skip)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *order)
	}
	return orders, total, rows.Err()
}

// scanOrder scans a database row into an Order
func scanOrder(rows *sql.Rows) (*Order, error) {
	var o Order
	var exchangeOrderID, strategyName, notes sql.NullString
	var quantity, filledQuantity string
	var price, avgFillPrice, stopPrice, stopLoss, takeProfit sql.NullString
	var createdAt, updatedAt string
	var filledAt sql.NullString
	var side, orderType, status string

	err := rows.Scan(
		&o.ID,
		&exchangeOrderID,
		&o.Symbol,
		&side,
		&orderType,
		&status,
		&quantity,
		&filledQuantity,
		&price,
		&avgFillPrice,
		&stopPrice,
		&stopLoss,
		&takeProfit,
		&o.Leverage,
		&o.IsPaperTrading,
		&strategyName,
		&notes,
		&createdAt,
		&updatedAt,
		&filledAt,
	)
	if err != nil {
		return nil, err
	}

	o.Side = OrderSide(side)
	o.Type = OrderType(orderType)
	o.Status = OrderStatus(status)
	o.ExchangeOrderID = exchangeOrderID.String
	o.StrategyName = strategyName.String
	o.Notes = notes.String

	if o.Quantity, err = decimal.NewFromString(quantity); err != nil {
		return nil, fmt.Errorf("invalid quantity %q: %w", quantity, err)
	}
	if o.FilledQuantity, err = decimal.NewFromString(filledQuantity); err != nil {
		return nil, fmt.Errorf("invalid filled_quantity %q: %w", filledQuantity, err)
	}
	if o.Price, err = scanDecimal(price); err != nil {
		return nil, err
	}
	if o.AverageFillPrice, err = scanDecimal(avgFillPrice); err != nil {
		return nil, err
	}
	if o.StopPrice, err = scanDecimal(stopPrice); err != nil {
		return nil, err
	}
	if o.StopLoss, err = scanDecimal(stopLoss); err != nil {
		return nil, err
	}
	if o.TakeProfit, err = scanDecimal(takeProfit); err != nil {
		return nil, err
	}

	if o.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("invalid created_at %q: %w", createdAt, err)
	}
	if o.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("invalid updated_at %q: %w", updatedAt, err)
	}
	if filledAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, filledAt.String)
		if err != nil {
			return nil, fmt.Errorf("invalid filled_at %q: %w", filledAt.String, err)
		}
		o.FilledAt = &t
	}

	return &o, nil
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
