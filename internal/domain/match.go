package domain

import (
	"time"
)

// MatchStatus is the lifecycle state of a match session. The absence of any
// open match is the idle state; closed is terminal.
type MatchStatus string

const (
	StatusOpen   MatchStatus = "open"
	StatusClosed MatchStatus = "closed"
)

// Pool sizing. Capacity is fixed: a session fills at exactly ten members
// and splits into two teams of five.
const (
	PoolCapacity = 10
	TeamSize     = PoolCapacity / 2
)

// Match is one round of pool-filling and team formation. At most one match
// has status open at any time, process-wide.
type Match struct {
	ID              int64       `json:"id"`
	Status          MatchStatus `json:"status"`
	AnnouncementRef string      `json:"announcement_ref,omitempty"`
	BalancedAt      *time.Time  `json:"balanced_at,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	ClosedAt        *time.Time  `json:"closed_at,omitempty"`
}

// PoolMember is a player currently joined to a session, with the player
// fields the gateway renders.
type PoolMember struct {
	PlayerID    int64     `json:"player_id"`
	ExternalID  string    `json:"external_id"`
	Handle      string    `json:"handle,omitempty"`
	DisplayName string    `json:"display_name"`
	JoinedAt    time.Time `json:"joined_at"`
}

// TeamSlot is one player's entry in a computed team, carrying the skill
// value that the split was weighed with.
type TeamSlot struct {
	PlayerID    int64   `json:"player_id"`
	DisplayName string  `json:"display_name"`
	Skill       float64 `json:"skill"`
}

// TeamAssignment is the result of one balancing event: two disjoint teams
// of TeamSize players, their skill sums and the absolute difference.
type TeamAssignment struct {
	MatchID   int64      `json:"match_id"`
	TeamA     []TeamSlot `json:"team_a"`
	TeamB     []TeamSlot `json:"team_b"`
	SumA      float64    `json:"sum_a"`
	SumB      float64    `json:"sum_b"`
	Diff      float64    `json:"diff"`
	CreatedAt time.Time  `json:"created_at"`
}

// JoinResult reports a successful admission. Assignment is set only when
// this join filled the pool and triggered balancing.
type JoinResult struct {
	MatchID    int64           `json:"match_id"`
	Count      int             `json:"count"`
	Capacity   int             `json:"capacity"`
	Assignment *TeamAssignment `json:"assignment,omitempty"`
}

// LeaveResult reports a successful departure and the re-admission lockout
// installed by it.
type LeaveResult struct {
	MatchID       int64     `json:"match_id"`
	Count         int       `json:"count"`
	CooldownUntil time.Time `json:"cooldown_until"`
}

// SessionView is the gateway-facing snapshot of the open session and its
// pool, cheap to re-render after every change.
type SessionView struct {
	Match    Match        `json:"match"`
	Count    int          `json:"count"`
	Capacity int          `json:"capacity"`
	Members  []PoolMember `json:"members"`
}

// JoinRequest is the body of a join call. Player fields follow PlayerRef;
// the admission path upserts the player before any pool check.
type JoinRequest struct {
	ExternalID  string `json:"external_id"`
	Handle      string `json:"handle,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// AnnouncementRequest sets the gateway's reference to its pinned
// announcement message for the open session.
type AnnouncementRequest struct {
	Ref string `json:"ref"`
}
