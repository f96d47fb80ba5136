package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rwallach/sentinel/internal/domain"
)

// RiskLimitStore implements domain.RiskLimitStore using PostgreSQL.
type RiskLimitStore struct {
	pool *pgxpool.Pool
}

func NewRiskLimitStore(pool *pgxpool.Pool) *RiskLimitStore {
	return &RiskLimitStore{pool: pool}
}

// GetByUser returns the user's risk limit row. A user with no row gets
// domain.ErrNotFound, never implicit defaults.
func (s *RiskLimitStore) GetByUser(ctx context.Context, userID string) (domain.RiskLimits, error) {
	const query = `
		SELECT user_id, max_daily_loss, max_daily_loss_pct, max_drawdown_pct,
			max_exposure, max_exposure_pct, max_exposure_per_symbol,
			max_open_trades, updated_at
		FROM risk_limits
		WHERE user_id = $1`

	var l domain.RiskLimits
	err := s.pool.QueryRow(ctx, query, userID).Scan(
		&l.UserID, &l.MaxDailyLoss, &l.MaxDailyLossPct, &l.MaxDrawdownPct,
		&l.MaxExposure, &l.MaxExposurePct, &l.MaxExposurePerSymbol,
		&l.MaxOpenTrades, &l.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.RiskLimits{}, domain.ErrNotFound
		}
		return domain.RiskLimits{}, fmt.Errorf("postgres: get risk limits for %s: %w", userID, err)
	}
	return l, nil
}
