package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rwallach/sentinel/internal/domain"
)

// TradeStore implements domain.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *pgxpool.Pool
}

func NewTradeStore(pool *pgxpool.Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// ListByUser returns every trade for the user. Risk aggregation needs both
// open legs and trades closed today, so no status filter is applied here; the
// aggregators partition by status and close date themselves.
func (s *TradeStore) ListByUser(ctx context.Context, userID string) ([]domain.Trade, error) {
	const query = `
		SELECT id, user_id, position_id, exchange, symbol, market, side,
			invested_amount, realized_pnl, unrealized_pnl, status,
			opened_at, closed_at
		FROM trades
		WHERE user_id = $1
		ORDER BY opened_at ASC`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades for %s: %w", userID, err)
	}
	defer rows.Close()

	var trades []domain.Trade
	for rows.Next() {
		var t domain.Trade
		var positionID *string
		var market, side, status string

		if err := rows.Scan(
			&t.ID, &t.UserID, &positionID, &t.Exchange, &t.Symbol, &market, &side,
			&t.InvestedAmount, &t.RealizedPnL, &t.UnrealizedPnL, &status,
			&t.OpenedAt, &t.ClosedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan trade: %w", err)
		}
		if positionID != nil {
			t.PositionID = *positionID
		}
		t.Market = domain.MarketType(market)
		t.Side = domain.PositionSide(side)
		t.Status = domain.TradeStatus(status)
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list trades for %s: %w", userID, err)
	}
	return trades, nil
}
