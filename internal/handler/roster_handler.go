package handler

import (
	"encoding/json"
	"net/http"

	"pugpool/internal/domain"
	"pugpool/internal/service"
	apperrors "pugpool/pkg/errors"
	"pugpool/pkg/logger"

	"github.com/go-chi/chi/v5"
)

// RosterHandler handles player identity requests
type RosterHandler struct {
	rosterService service.RosterService
	logger        *logger.Logger
}

// NewRosterHandler creates a new roster handler
func NewRosterHandler(rosterService service.RosterService, logger *logger.Logger) *RosterHandler {
	return &RosterHandler{
		rosterService: rosterService,
		logger:        logger,
	}
}

// Register handles POST /api/v1/players
func (h *RosterHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterPlayerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, apperrors.NewInvalidInputError("invalid request body", nil))
		return
	}

	player, err := h.rosterService.Register(r.Context(), &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeSuccess(w, h.logger, http.StatusCreated, player)
}

// Get handles GET /api/v1/players/{externalID}
func (h *RosterHandler) Get(w http.ResponseWriter, r *http.Request) {
	externalID := chi.URLParam(r, "externalID")

	player, err := h.rosterService.Get(r.Context(), externalID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeSuccess(w, h.logger, http.StatusOK, player)
}

// List handles GET /api/v1/players
func (h *RosterHandler) List(w http.ResponseWriter, r *http.Request) {
	players, err := h.rosterService.List(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeSuccess(w, h.logger, http.StatusOK, map[string]interface{}{
		"players": players,
		"count":   len(players),
	})
}
