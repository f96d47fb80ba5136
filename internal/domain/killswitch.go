package domain

import "time"

// KillSwitchTrigger records who activated a kill switch. Only automatic
// triggers are bound by the cooldown before reset.
type KillSwitchTrigger string

const (
	KillSwitchAutomatic KillSwitchTrigger = "automatic"
	KillSwitchManual    KillSwitchTrigger = "manual"
	KillSwitchAdmin     KillSwitchTrigger = "admin"
)

// KillSwitchState is a hard-stop flag scoped to (user, exchange, symbol).
// Empty scope fields act as wildcards; all three empty means system-wide.
type KillSwitchState struct {
	ID          string
	UserID      string
	Exchange    string
	Symbol      string
	Active      bool
	Reason      string
	TriggeredBy KillSwitchTrigger
	TriggeredAt time.Time
	Cooldown    time.Duration
	ExpiresAt   *time.Time
	UpdatedAt   time.Time
}

// CanReset reports whether the switch may be reset at the given time. Manual
// and admin triggers can always be reset; automatic triggers only once their
// cooldown has elapsed.
func (k KillSwitchState) CanReset(now time.Time) bool {
	if k.TriggeredBy != KillSwitchAutomatic {
		return true
	}
	return k.ExpiresAt != nil && !now.Before(*k.ExpiresAt)
}
