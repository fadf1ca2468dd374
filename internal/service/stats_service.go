package service

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"strings"

	"pugpool/internal/domain"
	"pugpool/internal/repository"
	apperrors "pugpool/pkg/errors"
	"pugpool/pkg/logger"
	"pugpool/pkg/names"
	"pugpool/pkg/redis"
)

const (
	// LeaderboardSize caps the rating ladder at the podium plus runners-up
	LeaderboardSize = 10
	// RecentLinesLimit bounds the history shown in a player summary
	RecentLinesLimit = 5
)

// statsService handles performance history: ingestion, per-player
// summaries and the rating leaderboard
type statsService struct {
	statsRepo  repository.StatsRepository
	playerRepo repository.PlayerRepository
	redis      *redis.Client
	logger     *logger.Logger
}

// NewStatsService creates a new stats service
func NewStatsService(statsRepo repository.StatsRepository, playerRepo repository.PlayerRepository, redisClient *redis.Client, logger *logger.Logger) StatsService {
	return &statsService{
		statsRepo:  statsRepo,
		playerRepo: playerRepo,
		redis:      redisClient,
		logger:     logger,
	}
}

// RecordLine ingests one stat line for a player
func (s *statsService) RecordLine(ctx context.Context, externalID string, req *domain.StatLineRequest) (*domain.StatLine, error) {
	if req == nil {
		return nil, apperrors.NewInvalidInputError("stat line is required", nil)
	}
	if !names.ValidExternalID(externalID) {
		return nil, apperrors.NewInvalidInputError("invalid external id", map[string]interface{}{
			"external_id": externalID,
		})
	}
	if req.Kills < 0 || req.Deaths < 0 || req.Assists < 0 {
		return nil, apperrors.NewInvalidInputError("kills, deaths and assists cannot be negative", nil)
	}
	if req.ADR < domain.MinADR || req.ADR > domain.MaxADR {
		return nil, apperrors.NewInvalidInputError("adr out of range", map[string]interface{}{
			"min": domain.MinADR,
			"max": domain.MaxADR,
		})
	}

	player, err := s.playerRepo.GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, apperrors.NewStorageUnavailableError(err)
	}
	if player == nil {
		return nil, apperrors.NewNotFoundError("player not found")
	}

	line := &domain.StatLine{
		PlayerID: player.ID,
		Kills:    req.Kills,
		Deaths:   req.Deaths,
		Assists:  req.Assists,
		ADR:      req.ADR,
		MapName:  strings.TrimSpace(req.MapName),
	}

	if err := s.statsRepo.InsertLine(ctx, line); err != nil {
		return nil, apperrors.NewStorageUnavailableError(err)
	}

	// Summaries and the leaderboard are stale now
	if err := s.redis.InvalidatePattern(ctx, s.redis.KeyBuilder.PatternStats()); err != nil {
		s.logger.WithError(err).Warn("Failed to invalidate stats caches")
	}

	s.logger.WithFields(map[string]interface{}{
		"external_id": externalID,
		"adr":         line.ADR,
		"map":         line.MapName,
	}).Info("Stat line recorded")

	return line, nil
}

// Summary returns a player's averages, derived rating and recent lines
func (s *statsService) Summary(ctx context.Context, externalID string) (*domain.PlayerStatsSummary, error) {
	if !names.ValidExternalID(externalID) {
		return nil, apperrors.NewInvalidInputError("invalid external id", map[string]interface{}{
			"external_id": externalID,
		})
	}

	cacheKey := s.redis.KeyBuilder.KeyPlayerSummary(externalID)
	cached, err := s.redis.Get(ctx, cacheKey)
	if err == nil && cached != "" {
		var summary domain.PlayerStatsSummary
		if err := json.Unmarshal([]byte(cached), &summary); err == nil {
			return &summary, nil
		}
	}

	player, err := s.playerRepo.GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, apperrors.NewStorageUnavailableError(err)
	}
	if player == nil {
		return nil, apperrors.NewNotFoundError("player not found")
	}

	agg, err := s.statsRepo.Aggregates(ctx, player.ID)
	if err != nil {
		return nil, apperrors.NewStorageUnavailableError(err)
	}
	if agg == nil {
		return nil, apperrors.NewNotFoundError("no recorded stats for player")
	}

	recent, err := s.statsRepo.RecentLines(ctx, player.ID, RecentLinesLimit)
	if err != nil {
		return nil, apperrors.NewStorageUnavailableError(err)
	}

	summary := &domain.PlayerStatsSummary{
		StatAggregates: *agg,
		Rating:         rating(agg),
		Recent:         recent,
	}

	if data, err := json.Marshal(summary); err == nil {
		_ = s.redis.Set(ctx, cacheKey, string(data), redis.TTLPlayerSummary)
	}

	return summary, nil
}

// Leaderboard returns the top players ordered by rating
func (s *statsService) Leaderboard(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	cacheKey := s.redis.KeyBuilder.KeyLeaderboard()
	cached, err := s.redis.Get(ctx, cacheKey)
	if err == nil && cached != "" {
		var entries []domain.LeaderboardEntry
		if err := json.Unmarshal([]byte(cached), &entries); err == nil {
			return entries, nil
		}
	}

	aggs, err := s.statsRepo.LeaderboardAggregates(ctx)
	if err != nil {
		return nil, apperrors.NewStorageUnavailableError(err)
	}

	entries := make([]domain.LeaderboardEntry, 0, len(aggs))
	for i := range aggs {
		agg := &aggs[i]
		entries = append(entries, domain.LeaderboardEntry{
			PlayerID:    agg.PlayerID,
			DisplayName: agg.DisplayName,
			Matches:     agg.Matches,
			AvgADR:      agg.AvgADR,
			Rating:      rating(agg),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Rating != entries[j].Rating {
			return entries[i].Rating > entries[j].Rating
		}
		return entries[i].DisplayName < entries[j].DisplayName
	})

	if len(entries) > LeaderboardSize {
		entries = entries[:LeaderboardSize]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}

	if data, err := json.Marshal(entries); err == nil {
		_ = s.redis.Set(ctx, cacheKey, string(data), redis.TTLLeaderboard)
	}

	return entries, nil
}

// rating derives the ladder score from a player's averages, rounded to one
// decimal. The deaths divisor is floored at one so a deathless history
// cannot blow the score up.
func rating(agg *domain.StatAggregates) float64 {
	deaths := agg.AvgDeaths
	if deaths < 1 {
		deaths = 1
	}

	score := agg.AvgADR/100 + (agg.AvgKills*0.3)/(deaths*0.2) + agg.AvgAssists*0.1
	return math.Round(score*10) / 10
}
