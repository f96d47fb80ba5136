package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rwallach/sentinel/internal/domain"
)

func TestKillSwitchActive(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	soon := now.Add(10 * time.Minute)
	past := now.Add(-1 * time.Minute)

	tests := []struct {
		name  string
		state *domain.KillSwitchState
		want  bool
	}{
		{"nil state", nil, false},
		{"inactive", &domain.KillSwitchState{Active: false}, false},
		{"active without expiry", &domain.KillSwitchState{Active: true}, true},
		{"active, expiry ahead", &domain.KillSwitchState{Active: true, ExpiresAt: &soon}, true},
		{"active, expiry passed", &domain.KillSwitchState{Active: true, ExpiresAt: &past}, false},
		{"active, expiry exactly now", &domain.KillSwitchState{Active: true, ExpiresAt: &now}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KillSwitchActive(tt.state, now))
		})
	}
}

func TestKillSwitchCooldownReset(t *testing.T) {
	triggered := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	expires := triggered.Add(30 * time.Minute)

	auto := domain.KillSwitchState{
		Active:      true,
		TriggeredBy: domain.KillSwitchAutomatic,
		TriggeredAt: triggered,
		Cooldown:    30 * time.Minute,
		ExpiresAt:   &expires,
	}

	// Reset attempted 5 minutes in: rejected.
	assert.False(t, auto.CanReset(triggered.Add(5*time.Minute)))
	// After 31 minutes the cooldown has elapsed and the switch reads inactive.
	assert.True(t, auto.CanReset(triggered.Add(31*time.Minute)))
	assert.False(t, KillSwitchActive(&auto, triggered.Add(31*time.Minute)))

	manual := auto
	manual.TriggeredBy = domain.KillSwitchManual
	assert.True(t, manual.CanReset(triggered.Add(time.Second)))

	admin := auto
	admin.TriggeredBy = domain.KillSwitchAdmin
	assert.True(t, admin.CanReset(triggered.Add(time.Second)))
}
