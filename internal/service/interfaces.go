package service

import (
	"context"

	"pugpool/internal/domain"
)

// PoolService defines the interface for session lifecycle and pool
// admission operations
type PoolService interface {
	// OpenSession creates a new open session; fails when one is open already
	OpenSession(ctx context.Context) (*domain.Match, error)

	// CloseSession closes the current open session
	CloseSession(ctx context.Context) (*domain.Match, error)

	// Current returns the open session and its pool
	Current(ctx context.Context) (*domain.SessionView, error)

	// Join admits a player into the open pool; the join that fills the pool
	// triggers balancing and carries the assignment in its result
	Join(ctx context.Context, req *domain.JoinRequest) (*domain.JoinResult, error)

	// Leave removes a player from the pool and installs the leave cooldown
	Leave(ctx context.Context, externalID string) (*domain.LeaveResult, error)

	// SetAnnouncement stores the gateway's pinned-message reference on the
	// open session
	SetAnnouncement(ctx context.Context, ref string) (*domain.Match, error)
}

// RosterService defines the interface for player identity operations
type RosterService interface {
	// Register upserts a player record
	Register(ctx context.Context, req *domain.RegisterPlayerRequest) (*domain.Player, error)

	// Get retrieves one player by external id
	Get(ctx context.Context, externalID string) (*domain.Player, error)

	// List returns every registered player
	List(ctx context.Context) ([]domain.Player, error)
}

// StatsService defines the interface for performance history operations
type StatsService interface {
	// RecordLine ingests one stat line for a player
	RecordLine(ctx context.Context, externalID string, req *domain.StatLineRequest) (*domain.StatLine, error)

	// Summary returns a player's averages, rating and recent lines
	Summary(ctx context.Context, externalID string) (*domain.PlayerStatsSummary, error)

	// Leaderboard returns the top players by rating
	Leaderboard(ctx context.Context) ([]domain.LeaderboardEntry, error)
}

// SweeperService defines the interface for the cooldown housekeeping loop
type SweeperService interface {
	// Start begins periodic sweeps of expired cooldown rows
	Start(ctx context.Context) error

	// Stop gracefully shuts the sweep loop down
	Stop(ctx context.Context) error
}

// TokenService defines the interface for gateway service-token validation
type TokenService interface {
	// Enabled reports whether token validation is configured
	Enabled() bool

	// ValidateServiceToken checks a bearer token and returns its claims
	ValidateServiceToken(ctx context.Context, token string) (*domain.GatewayClaims, error)
}

// Services aggregates all service interfaces
type Services struct {
	Pool    PoolService
	Roster  RosterService
	Stats   StatsService
	Sweeper SweeperService
	Token   TokenService
}
