package domain

import "time"

// Event types appended to the engine's event log. Alerting and notification
// collaborators consume these; the engine never reads them back except for
// archival.
const (
	EventPositionUpdated    = "position_updated"
	EventCloseTriggered     = "close_triggered"
	EventPartialTPExecuted  = "partial_tp_executed"
	EventTrailingMoved      = "trailing_stop_moved"
	EventBreakEvenActivated = "break_even_activated"
	EventOrderUpdated       = "order_updated"
	EventReviewRequired     = "review_required"
	EventRiskAlert          = "risk_alert"
	EventKillSwitchTripped  = "kill_switch_tripped"
	EventKillSwitchReset    = "kill_switch_reset"
)

// Event is one append-only event log row.
type Event struct {
	ID         int64          `json:"id"`
	UserID     string         `json:"user_id,omitempty"`
	PositionID string         `json:"position_id,omitempty"`
	Type       string         `json:"type"`
	Reason     string         `json:"reason,omitempty"`
	Detail     map[string]any `json:"detail,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}
