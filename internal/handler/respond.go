package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	apperrors "pugpool/pkg/errors"
	"pugpool/pkg/logger"
)

// writeSuccess writes the success envelope around data
func writeSuccess(w http.ResponseWriter, log *logger.Logger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]interface{}{
		"success": true,
		"data":    data,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.WithError(err).Error("Failed to encode response")
	}
}

// writeError writes an error response to the client. Rejections the pool
// hands out as part of normal play (full pool, cooldowns, duplicates) are
// routine, so only server-side failures log at error level.
func writeError(w http.ResponseWriter, log *logger.Logger, err error) {
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		appErr = apperrors.NewInternalError("unexpected error", err)
	}

	if appErr.StatusCode >= http.StatusInternalServerError {
		log.WithError(appErr).Error("Request failed")
	} else {
		log.WithError(appErr).Debug("Request rejected")
	}

	if retry, ok := appErr.Details["retry_after_seconds"].(int64); ok {
		w.Header().Set("Retry-After", strconv.FormatInt(retry, 10))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode)

	if err := json.NewEncoder(w).Encode(apperrors.NewErrorResponse(appErr)); err != nil {
		log.WithError(err).Error("Failed to encode error response")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
