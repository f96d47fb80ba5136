package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and time filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// PositionStore persists positions. The engine owns the risk-state sub-object,
// PnL fields and status; everything else is written by other subsystems.
type PositionStore interface {
	// ListOpen returns up to limit positions in status open or closing,
	// oldest update first so stragglers are picked up ahead of fresh rows.
	ListOpen(ctx context.Context, limit int) ([]Position, error)
	GetByID(ctx context.Context, id string) (Position, error)
	// Update persists the engine-owned fields of the position in one write.
	Update(ctx context.Context, pos Position) error
	// MarkClosing flips an open position to closing with the given reason.
	// It only matches rows still in status open, which makes the transition
	// a one-way gate even across concurrent or repeated runs.
	MarkClosing(ctx context.Context, id, reason string) error
}

// TradeStore reads trade legs for per-user risk aggregation.
type TradeStore interface {
	ListByUser(ctx context.Context, userID string) ([]Trade, error)
}

// OrderStore persists mirrored exchange orders.
type OrderStore interface {
	ListOpenByPosition(ctx context.Context, positionID string) ([]Order, error)
	Update(ctx context.Context, order Order) error
}

// RiskLimitStore reads per-user risk limit configuration.
type RiskLimitStore interface {
	GetByUser(ctx context.Context, userID string) (RiskLimits, error)
}

// AccountStore reads and maintains the per-user equity reference.
type AccountStore interface {
	GetByUser(ctx context.Context, userID string) (RiskAccount, error)
	// UpdatePeak raises the stored peak equity. Implementations must never
	// lower it; the guard lives in the query, not the caller.
	UpdatePeak(ctx context.Context, userID string, peak float64) error
}

// KillSwitchStore persists kill switch state.
type KillSwitchStore interface {
	// Find returns the most specific active switch matching the scope,
	// falling back to the system-wide switch. Nil means no switch exists.
	Find(ctx context.Context, userID, exchange, symbol string) (*KillSwitchState, error)
	Upsert(ctx context.Context, state KillSwitchState) error
	// Deactivate clears the active flag on the switch with the given ID.
	Deactivate(ctx context.Context, id string) error
}

// EventStore persists the append-only event log.
type EventStore interface {
	Append(ctx context.Context, event Event) error
	List(ctx context.Context, opts ListOpts) ([]Event, error)
	// ListBefore and DeleteArchived support cold-storage archival. ListBefore
	// orders rows by (created_at, id) ascending so a batch is always a clean
	// prefix; DeleteArchived removes exactly that prefix, keyed by the last
	// uploaded row.
	ListBefore(ctx context.Context, cutoff time.Time, limit int) ([]Event, error)
	DeleteArchived(ctx context.Context, lastCreatedAt time.Time, lastID int64) (int64, error)
}
