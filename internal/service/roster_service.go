package service

import (
	"context"

	"pugpool/internal/domain"
	"pugpool/internal/repository"
	apperrors "pugpool/pkg/errors"
	"pugpool/pkg/logger"
	"pugpool/pkg/names"
)

// rosterService handles player identity. Registration is an upsert; the
// same upsert also runs implicitly on every join.
type rosterService struct {
	playerRepo repository.PlayerRepository
	logger     *logger.Logger
}

// NewRosterService creates a new roster service
func NewRosterService(playerRepo repository.PlayerRepository, logger *logger.Logger) RosterService {
	return &rosterService{
		playerRepo: playerRepo,
		logger:     logger,
	}
}

// Register upserts a player record
func (s *rosterService) Register(ctx context.Context, req *domain.RegisterPlayerRequest) (*domain.Player, error) {
	if req == nil {
		return nil, apperrors.NewInvalidInputError("registration request is required", nil)
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

	s.logger.WithFields(map[string]interface{}{
		"external_id":  player.ExternalID,
		"display_name": player.DisplayName,
	}).Info("Player registered")

	return player, nil
}

// Get retrieves one player by external id
func (s *rosterService) Get(ctx context.Context, externalID string) (*domain.Player, error) {
	if !names.ValidExternalID(externalID) {
		return nil, apperrors.NewInvalidInputError("invalid external id", map[string]interface{}{
			"external_id": externalID,
		})
	}

	player, err := s.playerRepo.GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, apperrors.NewStorageUnavailableError(err)
	}
	if player == nil {
		return nil, apperrors.NewNotFoundError("player not found")
	}

	return player, nil
}

// List returns every registered player
func (s *rosterService) List(ctx context.Context) ([]domain.Player, error) {
	players, err := s.playerRepo.List(ctx)
	if err != nil {
		return nil, apperrors.NewStorageUnavailableError(err)
	}

	return players, nil
}
