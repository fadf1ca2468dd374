package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"pugpool/internal/domain"
	"pugpool/internal/repository"
	"pugpool/pkg/balancer"
	apperrors "pugpool/pkg/errors"
	"pugpool/pkg/logger"
	"pugpool/pkg/names"
	"pugpool/pkg/redis"

	"github.com/jackc/pgx/v5/pgconn"
)

// poolService serializes session lifecycle and pool admission. All
// operations that read-then-write membership run under one mutex, so two
// joins racing near capacity cannot both see room, and the balancing
// trigger fires once per fill.
type poolService struct {
	playerRepo    repository.PlayerRepository
	matchRepo     repository.MatchRepository
	cooldownRepo  repository.CooldownRepository
	skills        repository.SkillProvider
	redis         *redis.Client
	logger        *logger.Logger
	leaveCooldown time.Duration

	mu sync.Mutex
}

// NewPoolService creates a new pool service
func NewPoolService(
	playerRepo repository.PlayerRepository,
	matchRepo repository.MatchRepository,
	cooldownRepo repository.CooldownRepository,
	skills repository.SkillProvider,
	redisClient *redis.Client,
	logger *logger.Logger,
	leaveCooldown time.Duration,
) PoolService {
	return &poolService{
		playerRepo:    playerRepo,
		matchRepo:     matchRepo,
		cooldownRepo:  cooldownRepo,
		skills:        skills,
		redis:         redisClient,
		logger:        logger,
		leaveCooldown: leaveCooldown,
	}
}

// OpenSession creates a new open session; fails when one is open already
func (s *poolService) OpenSession(ctx context.Context) (*domain.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.matchRepo.GetOpen(ctx)
	if err != nil {
		return nil, apperrors.NewStorageUnavailableError(err)
	}
	if existing != nil {
		return nil, apperrors.NewAlreadyOpenError()
	}

	match, err := s.matchRepo.Create(ctx)
	if err != nil {
		// The partial unique index on open status catches a race with
		// another instance
		if isUniqueViolation(err) {
			return nil, apperrors.NewAlreadyOpenError()
		}
		return nil, apperrors.NewStorageUnavailableError(err)
	}

	s.invalidateSessionView(ctx)

	s.logger.WithField("match_id", match.ID).Info("Session opened")
	return match, nil
}

// CloseSession closes the current open session. Remaining memberships are
// abandoned with it, not migrated.
func (s *poolService) CloseSession(ctx context.Context) (*domain.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	open, err := s.matchRepo.GetOpen(ctx)
	if err != nil {
		return nil, apperrors.NewStorageUnavailableError(err)
	}
	if open == nil {
		return nil, apperrors.NewNotOpenError()
	}

	closed, err := s.matchRepo.Close(ctx, open.ID)
	if err != nil {
		return nil, apperrors.NewStorageUnavailableError(err)
	}
	if closed == nil {
		return nil, apperrors.NewNotOpenError()
	}

	s.invalidateSessionView(ctx)

	s.logger.WithField("match_id", closed.ID).Info("Session closed")
	return closed, nil
}

// Current returns the open session with its pool, cached briefly for the
// gateway's frequent re-renders
func (s *poolService) Current(ctx context.Context) (*domain.SessionView, error) {
	cacheKey := s.redis.KeyBuilder.KeySessionView()
	cached, err := s.redis.Get(ctx, cacheKey)
	if err == nil && cached != "" {
		var view domain.SessionView
		if err := json.Unmarshal([]byte(cached), &view); err == nil {
			return &view, nil
		}
	}

	match, err := s.matchRepo.GetOpen(ctx)
	if err != nil {
		return nil, apperrors.NewStorageUnavailableError(err)
	}
	if match == nil {
		return nil, apperrors.NewNoActiveSessionError()
	}

	members, err := s.matchRepo.ListMembers(ctx, match.ID)
	if err != nil {
		return nil, apperrors.NewStorageUnavailableError(err)
	}

	view := &domain.SessionView{
		Match:    *match,
		Count:    len(members),
		Capacity: domain.PoolCapacity,
		Members:  members,
	}

	if data, err := json.Marshal(view); err == nil {
		_ = s.redis.Set(ctx, cacheKey, string(data), redis.TTLSessionView)
	}

	return view, nil
}

// Join admits a player into the open pool. The player record is upserted
// first; admission checks then run in a fixed order inside the critical
// section: session, cooldown, membership, capacity.
func (s *poolService) Join(ctx context.Context, req *domain.JoinRequest) (*domain.JoinResult, error) {
	if req == nil {
		return nil, apperrors.NewInvalidInputError("join request is required", nil)
	}
	if !names.ValidExternalID(req.ExternalID) {
		return nil, apperrors.NewInvalidInputError("invalid external id", map[string]interface{}{
			"external_id": req.ExternalID,
		})
	}

	handle := ""
	if req.Handle != "" {
		normalized, err := names.NormalizeHandle(req.Handle)
		if err != nil {
			return nil, apperrors.NewInvalidInputError("invalid handle", map[string]interface{}{
				"handle": req.Handle,
			})
		}
		handle = normalized
	}

	displayName := names.DisplayNameFrom(req.DisplayName, handle)
	if displayName == "" {
		return nil, apperrors.NewInvalidInputError("display name or handle is required", nil)
	}

	player, err := s.playerRepo.GetOrCreate(ctx, domain.PlayerRef{
		ExternalID:  req.ExternalID,
		Handle:      handle,
		DisplayName: displayName,
	})
	if err != nil {
		return nil, apperrors.NewStorageUnavailableError(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	match, err := s.matchRepo.GetOpen(ctx)
	if err != nil {
		return nil, apperrors.NewStorageUnavailableError(err)
	}
	if match == nil {
		return nil, apperrors.NewNoActiveSessionError()
	}

	// Short TTL guard against gateway double-submits. When Redis is down we
	// fall through to the membership check, which gives the same answer.
	guarded := false
	lockKey := s.redis.KeyBuilder.KeyJoinLock(match.ID, player.ExternalID)
	acquired, lockErr := s.redis.SetNX(ctx, lockKey, "1", redis.TTLJoinLock)
	switch {
	case lockErr != nil:
		s.logger.WithError(lockErr).Warn("Join guard unavailable, relying on membership check")
	case !acquired:
		return nil, apperrors.NewAlreadyJoinedError()
	default:
		guarded = true
	}

	result, err := s.admit(ctx, match, player)
	if err != nil {
		// Release the guard so a rejected player can retry once the
		// rejection cause clears
		if guarded {
			if delErr := s.redis.Delete(ctx, lockKey); delErr != nil {
				s.logger.WithError(delErr).Warn("Failed to release join guard")
			}
		}
		return nil, err
	}

	s.invalidateSessionView(ctx)

	s.logger.WithFields(map[string]interface{}{
		"match_id":    match.ID,
		"external_id": player.ExternalID,
		"count":       result.Count,
	}).Info("Player joined pool")

	return result, nil
}

// admit runs the ordered admission checks and the insert for one join,
// with the mutex already held
func (s *poolService) admit(ctx context.Context, match *domain.Match, player *domain.Player) (*domain.JoinResult, error) {
	now := time.Now()

	cooldown, err := s.cooldownRepo.Active(ctx, player.ID, now)
	if err != nil {
		return nil, apperrors.NewStorageUnavailableError(err)
	}
	if cooldown != nil {
		return nil, apperrors.NewOnCooldownError(cooldown.Remaining(now))
	}

	members, err := s.matchRepo.ListMembers(ctx, match.ID)
	if err != nil {
		return nil, apperrors.NewStorageUnavailableError(err)
	}
	for _, member := range members {
		if member.PlayerID == player.ID {
			return nil, apperrors.NewAlreadyJoinedError()
		}
	}
	if len(members) >= domain.PoolCapacity {
		return nil, apperrors.NewPoolFullError()
	}

	joinedAt, err := s.matchRepo.AddMember(ctx, match.ID, player.ID)
	if err != nil {
		// The (match, player) unique constraint backstops a concurrent
		// insert from another instance
		if isUniqueViolation(err) {
			return nil, apperrors.NewAlreadyJoinedError()
		}
		return nil, apperrors.NewStorageUnavailableError(err)
	}

	members = append(members, domain.PoolMember{
		PlayerID:    player.ID,
		ExternalID:  player.ExternalID,
		Handle:      player.Handle,
		DisplayName: player.DisplayName,
		JoinedAt:    joinedAt,
	})

	result := &domain.JoinResult{
		MatchID:  match.ID,
		Count:    len(members),
		Capacity: domain.PoolCapacity,
	}

	if len(members) == domain.PoolCapacity {
		result.Assignment = s.balancePool(ctx, match, members)
	}

	return result, nil
}

// balancePool splits a full pool into two teams. Skill lookups never fail
// it (they fall back to the default weight), so a full pool always yields
// an assignment. Persisting the assignment is best effort.
func (s *poolService) balancePool(ctx context.Context, match *domain.Match, members []domain.PoolMember) *domain.TeamAssignment {
	entries := s.skillEntries(ctx, members)

	split, err := balancer.Split(entries, domain.TeamSize)
	if err != nil {
		s.logger.WithError(err).WithField("match_id", match.ID).Error("Balancing failed for full pool")
		return nil
	}

	assignment := &domain.TeamAssignment{
		MatchID: match.ID,
		TeamA:   teamSlots(split.TeamA),
		TeamB:   teamSlots(split.TeamB),
		SumA:    split.SumA,
		SumB:    split.SumB,
		Diff:    split.Diff,
	}

	if err := s.matchRepo.SaveAssignment(ctx, assignment); err != nil {
		s.logger.WithError(err).WithField("match_id", match.ID).Error("Failed to persist team assignment")
	}

	s.logger.WithFields(map[string]interface{}{
		"match_id": match.ID,
		"sum_a":    assignment.SumA,
		"sum_b":    assignment.SumB,
		"diff":     assignment.Diff,
	}).Info("Pool full, teams balanced")

	return assignment
}

// skillEntries resolves each member's balancing weight. A member with no
// history gets the default; if the stats store errors at all, the whole
// pool falls back to the default so balancing stays neutral instead of
// weighing half-fetched numbers.
func (s *poolService) skillEntries(ctx context.Context, members []domain.PoolMember) []balancer.Entry {
	entries := make([]balancer.Entry, len(members))
	for i, member := range members {
		entries[i] = balancer.Entry{
			PlayerID: member.PlayerID,
			Name:     member.DisplayName,
			Skill:    domain.DefaultSkill,
		}
	}

	for i, member := range members {
		skill, ok, err := s.skills.AverageSkill(ctx, member.PlayerID)
		if err != nil {
			s.logger.WithError(err).Warn("Skill lookup failed, balancing whole pool on default skill")
			for j := range entries {
				entries[j].Skill = domain.DefaultSkill
			}
			return entries
		}
		if ok {
			entries[i].Skill = skill
		}
	}

	return entries
}

// Leave removes a player from the open pool and installs the leave
// cooldown. Leaving twice reports NotInPool the second time.
func (s *poolService) Leave(ctx context.Context, externalID string) (*domain.LeaveResult, error) {
	if !names.ValidExternalID(externalID) {
		return nil, apperrors.NewInvalidInputError("invalid external id", map[string]interface{}{
			"external_id": externalID,
		})
	}

	player, err := s.playerRepo.GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, apperrors.NewStorageUnavailableError(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	match, err := s.matchRepo.GetOpen(ctx)
	if err != nil {
		return nil, apperrors.NewStorageUnavailableError(err)
	}
	if match == nil {
		return nil, apperrors.NewNoActiveSessionError()
	}
	if player == nil {
		return nil, apperrors.NewNotInPoolError()
	}

	removed, err := s.matchRepo.RemoveMember(ctx, match.ID, player.ID)
	if err != nil {
		return nil, apperrors.NewStorageUnavailableError(err)
	}
	if !removed {
		return nil, apperrors.NewNotInPoolError()
	}

	until := time.Now().Add(s.leaveCooldown)
	if err := s.cooldownRepo.Upsert(ctx, player.ID, until, domain.CooldownReasonLeave); err != nil {
		return nil, apperrors.NewStorageUnavailableError(err)
	}

	count, err := s.matchRepo.CountMembers(ctx, match.ID)
	if err != nil {
		return nil, apperrors.NewStorageUnavailableError(err)
	}

	// Drop the departed player's join guard so the guard cannot outlive the
	// membership it protected
	if delErr := s.redis.Delete(ctx, s.redis.KeyBuilder.KeyJoinLock(match.ID, externalID)); delErr != nil {
		s.logger.WithError(delErr).Warn("Failed to release join guard")
	}
	s.invalidateSessionView(ctx)

	s.logger.WithFields(map[string]interface{}{
		"match_id":       match.ID,
		"external_id":    externalID,
		"count":          count,
		"cooldown_until": until,
	}).Info("Player left pool")

	return &domain.LeaveResult{
		MatchID:       match.ID,
		Count:         count,
		CooldownUntil: until,
	}, nil
}

// SetAnnouncement stores the gateway's pinned-message reference on the
// open session
func (s *poolService) SetAnnouncement(ctx context.Context, ref string) (*domain.Match, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, apperrors.NewInvalidInputError("announcement ref is required", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	match, err := s.matchRepo.GetOpen(ctx)
	if err != nil {
		return nil, apperrors.NewStorageUnavailableError(err)
	}
	if match == nil {
		return nil, apperrors.NewNoActiveSessionError()
	}

	if err := s.matchRepo.SetAnnouncementRef(ctx, match.ID, ref); err != nil {
		return nil, apperrors.NewStorageUnavailableError(err)
	}
	match.AnnouncementRef = ref

	s.invalidateSessionView(ctx)

	return match, nil
}

// invalidateSessionView drops the cached gateway snapshot after any
// mutation; the next read rebuilds it
func (s *poolService) invalidateSessionView(ctx context.Context) {
	if err := s.redis.Delete(ctx, s.redis.KeyBuilder.KeySessionView()); err != nil {
		s.logger.WithError(err).Warn("Failed to invalidate session view cache")
	}
}

// teamSlots converts balancer output into the domain shape
func teamSlots(entries []balancer.Entry) []domain.TeamSlot {
	slots := make([]domain.TeamSlot, len(entries))
	for i, entry := range entries {
		slots[i] = domain.TeamSlot{
			PlayerID:    entry.PlayerID,
			DisplayName: entry.Name,
			Skill:       entry.Skill,
		}
	}
	return slots
}

// isUniqueViolation reports whether err is a PostgreSQL unique violation
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
