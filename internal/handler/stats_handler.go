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

// StatsHandler handles performance history requests
type StatsHandler struct {
	statsService service.StatsService
	logger       *logger.Logger
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(statsService service.StatsService, logger *logger.Logger) *StatsHandler {
	return &StatsHandler{
		statsService: statsService,
		logger:       logger,
	}
}

// RecordLine handles POST /api/v1/players/{externalID}/stats
func (h *StatsHandler) RecordLine(w http.ResponseWriter, r *http.Request) {
	externalID := chi.URLParam(r, "externalID")

	var req domain.StatLineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, apperrors.NewInvalidInputError("invalid request body", nil))
		return
	}

	line, err := h.statsService.RecordLine(r.Context(), externalID, &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeSuccess(w, h.logger, http.StatusCreated, line)
}

// GetSummary handles GET /api/v1/players/{externalID}/stats
func (h *StatsHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	externalID := chi.URLParam(r, "externalID")

	summary, err := h.statsService.Summary(r.Context(), externalID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeSuccess(w, h.logger, http.StatusOK, summary)
}

// GetLeaderboard handles GET /api/v1/leaderboard
func (h *StatsHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.statsService.Leaderboard(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeSuccess(w, h.logger, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
}
