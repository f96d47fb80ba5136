package risk

import (
	"time"

	"github.com/rwallach/sentinel/internal/domain"
)

// KillSwitchActive reports whether the given switch currently blocks trading.
// A nil or inactive switch does not; neither does one whose cooldown expiry
// has passed; the caller is responsible for then resetting the stored state.
func KillSwitchActive(state *domain.KillSwitchState, now time.Time) bool {
	if state == nil || !state.Active {
		return false
	}
	if state.ExpiresAt != nil && !now.Before(*state.ExpiresAt) {
		return false
	}
	return true
}
