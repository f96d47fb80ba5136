package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rwallach/sentinel/internal/domain"
)

// OrderStore implements domain.OrderStore using PostgreSQL.
type OrderStore struct {
	pool *pgxpool.Pool
}

func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

// ListOpenByPosition returns the position's orders still live on the
// exchange. Terminal statuses are excluded at the query level.
func (s *OrderStore) ListOpenByPosition(ctx context.Context, positionID string) ([]domain.Order, error) {
	const query = `
		SELECT id, position_id, user_id, exchange, exchange_order_id, symbol,
			side, quantity, filled_quantity, avg_fill_price, status,
			created_at, updated_at
		FROM orders
		WHERE position_id = $1
		  AND status NOT IN ('FILLED', 'CANCELED', 'REJECTED', 'EXPIRED')
		ORDER BY created_at ASC`

	rows, err := s.pool.Query(ctx, query, positionID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list open orders for %s: %w", positionID, err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		var o domain.Order
		var status string

		if err := rows.Scan(
			&o.ID, &o.PositionID, &o.UserID, &o.Exchange, &o.ExchangeOrderID, &o.Symbol,
			&o.Side, &o.Quantity, &o.FilledQuantity, &o.AvgFillPrice, &status,
			&o.CreatedAt, &o.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan order: %w", err)
		}
		o.Status = domain.OrderStatus(status)
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list open orders for %s: %w", positionID, err)
	}
	return orders, nil
}

// Update persists the reconciler-owned fields of an order.
func (s *OrderStore) Update(ctx context.Context, o domain.Order) error {
	const query = `
		UPDATE orders SET
			status          = $2,
			filled_quantity = $3,
			avg_fill_price  = $4,
			updated_at      = NOW()
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query, o.ID, string(o.Status), o.FilledQuantity, o.AvgFillPrice)
	if err != nil {
		return fmt.Errorf("postgres: update order %s: %w", o.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
