package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rwallach/sentinel/internal/domain"
)

// AccountStore implements domain.AccountStore using PostgreSQL.
type AccountStore struct {
	pool *pgxpool.Pool
}

func NewAccountStore(pool *pgxpool.Pool) *AccountStore {
	return &AccountStore{pool: pool}
}

// GetByUser returns the user's equity reference row.
func (s *AccountStore) GetByUser(ctx context.Context, userID string) (domain.RiskAccount, error) {
	const query = `
		SELECT user_id, equity, peak_equity, starting_equity, updated_at
		FROM risk_accounts
		WHERE user_id = $1`

	var a domain.RiskAccount
	err := s.pool.QueryRow(ctx, query, userID).Scan(
		&a.UserID, &a.Equity, &a.PeakEquity, &a.StartingEquity, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.RiskAccount{}, domain.ErrNotFound
		}
		return domain.RiskAccount{}, fmt.Errorf("postgres: get account for %s: %w", userID, err)
	}
	return a, nil
}

// UpdatePeak raises the stored peak equity. The predicate guarantees the
// peak never moves down, even under concurrent writers.
func (s *AccountStore) UpdatePeak(ctx context.Context, userID string, peak float64) error {
	const query = `
		UPDATE risk_accounts SET
			peak_equity = $2,
			updated_at  = NOW()
		WHERE user_id = $1 AND peak_equity < $2`

	if _, err := s.pool.Exec(ctx, query, userID, peak); err != nil {
		return fmt.Errorf("postgres: update peak equity for %s: %w", userID, err)
	}
	return nil
}
