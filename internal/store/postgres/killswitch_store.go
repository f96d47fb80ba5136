package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rwallach/sentinel/internal/domain"
)

// KillSwitchStore implements domain.KillSwitchStore using PostgreSQL.
type KillSwitchStore struct {
	pool *pgxpool.Pool
}

func NewKillSwitchStore(pool *pgxpool.Pool) *KillSwitchStore {
	return &KillSwitchStore{pool: pool}
}

// Find returns the active switch with the most specific scope covering the
// given (user, exchange, symbol). An empty column is a wildcard, so the
// system-wide switch (all columns empty) matches everything and is used only
// when nothing narrower exists. Nil means no active switch covers the scope.
func (s *KillSwitchStore) Find(ctx context.Context, userID, exchange, symbol string) (*domain.KillSwitchState, error) {
	const query = `
		SELECT id, user_id, exchange, symbol, active, reason, triggered_by,
			triggered_at, cooldown_seconds, expires_at, updated_at
		FROM kill_switches
		WHERE active
		  AND (user_id  = $1 OR user_id  = '')
		  AND (exchange = $2 OR exchange = '')
		  AND (symbol   = $3 OR symbol   = '')
		ORDER BY (user_id <> '')::int + (exchange <> '')::int + (symbol <> '')::int DESC
		LIMIT 1`

	var k domain.KillSwitchState
	var triggeredBy string
	var cooldownSeconds int64

	err := s.pool.QueryRow(ctx, query, userID, exchange, symbol).Scan(
		&k.ID, &k.UserID, &k.Exchange, &k.Symbol, &k.Active, &k.Reason, &triggeredBy,
		&k.TriggeredAt, &cooldownSeconds, &k.ExpiresAt, &k.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres: find kill switch: %w", err)
	}
	k.TriggeredBy = domain.KillSwitchTrigger(triggeredBy)
	k.Cooldown = time.Duration(cooldownSeconds) * time.Second
	return &k, nil
}

// Upsert writes the switch, replacing any existing switch for the same scope.
func (s *KillSwitchStore) Upsert(ctx context.Context, k domain.KillSwitchState) error {
	const query = `
		INSERT INTO kill_switches (
			id, user_id, exchange, symbol, active, reason, triggered_by,
			triggered_at, cooldown_seconds, expires_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		ON CONFLICT (user_id, exchange, symbol) DO UPDATE SET
			id               = EXCLUDED.id,
			active           = EXCLUDED.active,
			reason           = EXCLUDED.reason,
			triggered_by     = EXCLUDED.triggered_by,
			triggered_at     = EXCLUDED.triggered_at,
			cooldown_seconds = EXCLUDED.cooldown_seconds,
			expires_at       = EXCLUDED.expires_at,
			updated_at       = NOW()`

	_, err := s.pool.Exec(ctx, query,
		k.ID, k.UserID, k.Exchange, k.Symbol, k.Active, k.Reason, string(k.TriggeredBy),
		k.TriggeredAt, int64(k.Cooldown/time.Second), k.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert kill switch %s: %w", k.ID, err)
	}
	return nil
}

// Deactivate clears the active flag on the switch with the given ID.
func (s *KillSwitchStore) Deactivate(ctx context.Context, id string) error {
	const query = `
		UPDATE kill_switches SET
			active     = FALSE,
			updated_at = NOW()
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("postgres: deactivate kill switch %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
