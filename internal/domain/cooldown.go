package domain

import (
	"time"
)

// CooldownReasonLeave tags the lockout installed when a player voluntarily
// leaves the pool.
const CooldownReasonLeave = "leave"

// Cooldown is a timed re-admission lockout for one player. At most one row
// exists per player; an expired cooldown is treated as absent everywhere.
type Cooldown struct {
	PlayerID  int64     `json:"player_id"`
	ExpiresAt time.Time `json:"expires_at"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

// Remaining returns the time left until expiry, zero if already expired.
func (c *Cooldown) Remaining(now time.Time) time.Duration {
	if c == nil || !c.ExpiresAt.After(now) {
		return 0
	}
	return c.ExpiresAt.Sub(now)
}
