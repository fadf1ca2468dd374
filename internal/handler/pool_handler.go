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

// PoolHandler handles session lifecycle and pool admission requests
type PoolHandler struct {
	poolService service.PoolService
	logger      *logger.Logger
}

// NewPoolHandler creates a new pool handler
func NewPoolHandler(poolService service.PoolService, logger *logger.Logger) *PoolHandler {
	return &PoolHandler{
		poolService: poolService,
		logger:      logger,
	}
}

// OpenSession handles POST /api/v1/sessions
func (h *PoolHandler) OpenSession(w http.ResponseWriter, r *http.Request) {
	match, err := h.poolService.OpenSession(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeSuccess(w, h.logger, http.StatusCreated, match)
}

// CloseSession handles DELETE /api/v1/sessions/current
func (h *PoolHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	match, err := h.poolService.CloseSession(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeSuccess(w, h.logger, http.StatusOK, match)
}

// GetCurrent handles GET /api/v1/sessions/current
func (h *PoolHandler) GetCurrent(w http.ResponseWriter, r *http.Request) {
	view, err := h.poolService.Current(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeSuccess(w, h.logger, http.StatusOK, view)
}

// Join handles POST /api/v1/sessions/current/members
func (h *PoolHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req domain.JoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, apperrors.NewInvalidInputError("invalid request body", nil))
		return
	}

	result, err := h.poolService.Join(r.Context(), &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeSuccess(w, h.logger, http.StatusCreated, result)
}

// Leave handles DELETE /api/v1/sessions/current/members/{externalID}
func (h *PoolHandler) Leave(w http.ResponseWriter, r *http.Request) {
	externalID := chi.URLParam(r, "externalID")

	result, err := h.poolService.Leave(r.Context(), externalID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeSuccess(w, h.logger, http.StatusOK, result)
}

// SetAnnouncement handles PUT /api/v1/sessions/current/announcement
func (h *PoolHandler) SetAnnouncement(w http.ResponseWriter, r *http.Request) {
	var req domain.AnnouncementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, apperrors.NewInvalidInputError("invalid request body", nil))
		return
	}

	match, err := h.poolService.SetAnnouncement(r.Context(), req.Ref)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeSuccess(w, h.logger, http.StatusOK, match)
}
