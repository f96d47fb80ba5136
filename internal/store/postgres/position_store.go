package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rwallach/sentinel/internal/domain"
)

// PositionStore implements domain.PositionStore using PostgreSQL.
type PositionStore struct {
	pool *pgxpool.Pool
}

// NewPositionStore creates a new PositionStore backed by the given connection pool.
func NewPositionStore(pool *pgxpool.Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

const positionSelectCols = `id, user_id, exchange, market, symbol, side,
	entry_price, quantity, leverage, liquidation_price, current_price,
	realized_pnl, unrealized_pnl, risk_state, status, close_reason,
	opened_at, updated_at, closed_at`

func scanPositionRow(row pgx.Row) (domain.Position, error) {
	var p domain.Position
	var market, side, status string

	err := row.Scan(
		&p.ID, &p.UserID, &p.Exchange, &market, &p.Symbol, &side,
		&p.EntryPrice, &p.Quantity, &p.Leverage, &p.LiquidationPrice, &p.CurrentPrice,
		&p.RealizedPnL, &p.UnrealizedPnL, &p.Risk, &status, &p.CloseReason,
		&p.OpenedAt, &p.UpdatedAt, &p.ClosedAt,
	)
	if err != nil {
		return domain.Position{}, err
	}
	p.Market = domain.MarketType(market)
	p.Side = domain.PositionSide(side)
	p.Status = domain.PositionStatus(status)
	return p, nil
}

// ListOpen returns up to limit positions still under engine management,
// oldest update first so positions deferred by a previous run come back
// before freshly touched ones.
func (s *PositionStore) ListOpen(ctx context.Context, limit int) ([]domain.Position, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM positions
		WHERE status IN ('open', 'closing')
		ORDER BY updated_at ASC
		LIMIT $1`, positionSelectCols)

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list open positions: %w", err)
	}
	defer rows.Close()

	var positions []domain.Position
	for rows.Next() {
		p, err := scanPositionRow(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan position: %w", err)
		}
		positions = append(positions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list open positions: %w", err)
	}
	return positions, nil
}

// GetByID fetches a single position.
func (s *PositionStore) GetByID(ctx context.Context, id string) (domain.Position, error) {
	query := fmt.Sprintf(`SELECT %s FROM positions WHERE id = $1`, positionSelectCols)

	p, err := scanPositionRow(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Position{}, domain.ErrNotFound
		}
		return domain.Position{}, fmt.Errorf("postgres: get position %s: %w", id, err)
	}
	return p, nil
}

// Update persists the engine-owned fields of a position in one write. Entry
// data and sizing are owned by the trading subsystem and left untouched.
func (s *PositionStore) Update(ctx context.Context, p domain.Position) error {
	const query = `
		UPDATE positions SET
			current_price  = $2,
			realized_pnl   = $3,
			unrealized_pnl = $4,
			risk_state     = $5,
			status         = $6,
			close_reason   = $7,
			closed_at      = $8,
			updated_at     = NOW()
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query,
		p.ID,
		p.CurrentPrice, p.RealizedPnL, p.UnrealizedPnL,
		p.Risk, string(p.Status), p.CloseReason, p.ClosedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: update position %s: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MarkClosing flips an open position to closing with the given reason. The
// status predicate makes the transition a one-way gate: a position already
// closing, closed or failed never matches.
func (s *PositionStore) MarkClosing(ctx context.Context, id, reason string) error {
	const query = `
		UPDATE positions SET
			status       = 'closing',
			close_reason = $2,
			updated_at   = NOW()
		WHERE id = $1 AND status = 'open'`

	tag, err := s.pool.Exec(ctx, query, id, reason)
	if err != nil {
		return fmt.Errorf("postgres: mark position %s closing: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPositionNotOpen
	}
	return nil
}
