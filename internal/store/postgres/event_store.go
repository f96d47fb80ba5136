package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rwallach/sentinel/internal/domain"
)

// EventStore implements domain.EventStore using PostgreSQL. The event log is
// append-only; rows only ever leave through DeleteArchived after archival.
type EventStore struct {
	pool *pgxpool.Pool
}

func NewEventStore(pool *pgxpool.Pool) *EventStore {
	return &EventStore{pool: pool}
}

// Append inserts one event row.
func (s *EventStore) Append(ctx context.Context, ev domain.Event) error {
	const query = `
		INSERT INTO events (user_id, position_id, type, reason, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	createdAt := ev.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	detail := ev.Detail
	if detail == nil {
		detail = map[string]any{}
	}

	_, err := s.pool.Exec(ctx, query,
		ev.UserID, ev.PositionID, ev.Type, ev.Reason, detail, createdAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: append event %s: %w", ev.Type, err)
	}
	return nil
}

// List returns events newest first, filtered by the time window in opts.
func (s *EventStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.Event, error) {
	query := `
		SELECT id, user_id, position_id, type, reason, detail, created_at
		FROM events`
	var args []any
	var conds []string

	if opts.Since != nil {
		args = append(args, *opts.Since)
		conds = append(conds, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if opts.Until != nil {
		args = append(args, *opts.Until)
		conds = append(conds, fmt.Sprintf("created_at < $%d", len(args)))
	}
	for i, c := range conds {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += " ORDER BY created_at DESC"
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list events: %w", err)
	}
	defer rows.Close()
	return scanEventRows(rows)
}

// ListBefore returns up to limit events older than cutoff, oldest first, for
// the archiver's batch uploads.
func (s *EventStore) ListBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.Event, error) {
	const query = `
		SELECT id, user_id, position_id, type, reason, detail, created_at
		FROM events
		WHERE created_at < $1
		ORDER BY created_at ASC, id ASC
		LIMIT $2`

	rows, err := s.pool.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list events before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	defer rows.Close()
	return scanEventRows(rows)
}

// DeleteArchived removes the rows a ListBefore batch returned, identified by
// the batch's last row. The compound predicate mirrors the (created_at, id)
// ordering, so rows sharing the final timestamp but listed in a later batch
// survive. Callers archive before they prune.
func (s *EventStore) DeleteArchived(ctx context.Context, lastCreatedAt time.Time, lastID int64) (int64, error) {
	const query = `
		DELETE FROM events
		WHERE created_at < $1 OR (created_at = $1 AND id <= $2)`

	tag, err := s.pool.Exec(ctx, query, lastCreatedAt, lastID)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete archived events through id %d: %w", lastID, err)
	}
	return tag.RowsAffected(), nil
}

func scanEventRows(rows pgx.Rows) ([]domain.Event, error) {
	var events []domain.Event
	for rows.Next() {
		var ev domain.Event
		if err := rows.Scan(
			&ev.ID, &ev.UserID, &ev.PositionID, &ev.Type, &ev.Reason, &ev.Detail, &ev.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate events: %w", err)
	}
	return events, nil
}
