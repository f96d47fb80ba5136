package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrPriceUnavailable   = errors.New("price unavailable")
	ErrLimitsMissing      = errors.New("risk limits not configured")
	ErrLockHeld           = errors.New("lock already held")
	ErrKillSwitchCooldown = errors.New("kill switch cooldown active")
	ErrPositionNotOpen    = errors.New("position not open")
)
