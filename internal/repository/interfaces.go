package repository

import (
	"context"
	"time"

	"pugpool/internal/domain"
)

// PlayerRepository defines the interface for player identity operations
type PlayerRepository interface {
	// GetOrCreate upserts a player by external id, refreshing handle and
	// display name, and returns the stored record
	GetOrCreate(ctx context.Context, ref domain.PlayerRef) (*domain.Player, error)

	// GetByExternalID retrieves a player, nil when unknown
	GetByExternalID(ctx context.Context, externalID string) (*domain.Player, error)

	// List returns all registered players ordered by display name
	List(ctx context.Context) ([]domain.Player, error)
}

// MatchRepository defines the interface for session and membership storage
type MatchRepository interface {
	// Create inserts a new open match
	Create(ctx context.Context) (*domain.Match, error)

	// GetOpen retrieves the single open match, nil when idle
	GetOpen(ctx context.Context) (*domain.Match, error)

	// Close marks an open match closed and returns the updated row, nil
	// when it was not open anymore
	Close(ctx context.Context, matchID int64) (*domain.Match, error)

	// AddMember inserts a pool membership and returns its join time
	AddMember(ctx context.Context, matchID, playerID int64) (time.Time, error)

	// RemoveMember deletes a membership; false when none existed
	RemoveMember(ctx context.Context, matchID, playerID int64) (bool, error)

	// ListMembers returns the pool in join order with player fields
	ListMembers(ctx context.Context, matchID int64) ([]domain.PoolMember, error)

	// CountMembers returns the current pool size
	CountMembers(ctx context.Context, matchID int64) (int, error)

	// SetAnnouncementRef stores the gateway's pinned-message reference
	SetAnnouncementRef(ctx context.Context, matchID int64, ref string) error

	// SaveAssignment records a balancing result and stamps the match
	SaveAssignment(ctx context.Context, assignment *domain.TeamAssignment) error
}

// CooldownRepository defines the interface for re-admission lockouts
type CooldownRepository interface {
	// Upsert installs or replaces the player's cooldown
	Upsert(ctx context.Context, playerID int64, expiresAt time.Time, reason string) error

	// Active returns the player's unexpired cooldown, nil when absent or
	// already expired
	Active(ctx context.Context, playerID int64, now time.Time) (*domain.Cooldown, error)

	// DeleteExpired removes expired rows and returns how many went away
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// StatsRepository defines the interface for performance history
type StatsRepository interface {
	// InsertLine records one stat line
	InsertLine(ctx context.Context, line *domain.StatLine) error

	// Aggregates returns a player's averages, nil when no lines exist
	Aggregates(ctx context.Context, playerID int64) (*domain.StatAggregates, error)

	// RecentLines returns the newest lines, most recent first
	RecentLines(ctx context.Context, playerID int64, limit int) ([]domain.StatLine, error)

	// LeaderboardAggregates returns averages for every player with at
	// least one recorded line
	LeaderboardAggregates(ctx context.Context) ([]domain.StatAggregates, error)

	// SkillProvider supplies balancing weights
	SkillProvider
}

// SkillProvider yields the balancing weight for a player. The second
// return is false when the player has no recorded history.
type SkillProvider interface {
	AverageSkill(ctx context.Context, playerID int64) (float64, bool, error)
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Player   PlayerRepository
	Match    MatchRepository
	Cooldown CooldownRepository
	Stats    StatsRepository
}
