package errors

import (
	goerrors "errors"
	"fmt"
	"math"
	"net/http"
	"time"
)

// ErrorType classifies every failure the service reports. The pool and
// session kinds form a closed set: callers can rely on getting exactly one
// of these, never a new ad-hoc kind.
type ErrorType string

const (
	// Session lifecycle
	ErrorTypeAlreadyOpen     ErrorType = "already_open"
	ErrorTypeNotOpen         ErrorType = "not_open"
	ErrorTypeNoActiveSession ErrorType = "no_active_session"

	// Pool admission
	ErrorTypeOnCooldown    ErrorType = "on_cooldown"
	ErrorTypeAlreadyJoined ErrorType = "already_joined"
	ErrorTypePoolFull      ErrorType = "pool_full"
	ErrorTypeNotInPool     ErrorType = "not_in_pool"

	// Input and infrastructure
	ErrorTypeInvalidInput       ErrorType = "invalid_input"
	ErrorTypeStorageUnavailable ErrorType = "storage_unavailable"
	ErrorTypeUnauthorized       ErrorType = "unauthorized"
	ErrorTypeNotFound           ErrorType = "not_found"
	ErrorTypeInternal           ErrorType = "internal"
)

// AppError is a structured application error carrying its kind and the HTTP
// status the boundary layer should answer with.
type AppError struct {
	Type       ErrorType              `json:"type"`
	Message    string                 `json:"message"`
	StatusCode int                    `json:"status_code"`
	Internal   error                  `json:"-"`
	Details    map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Internal.Error())
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Internal
}

// AsAppError unwraps err to an *AppError if one is in its chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if goerrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsType reports whether err carries an AppError of the given kind.
func IsType(err error, t ErrorType) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Type == t
}

// NewAlreadyOpenError reports that an open session already exists.
func NewAlreadyOpenError() *AppError {
	return &AppError{
		Type:       ErrorTypeAlreadyOpen,
		Message:    "a session is already open",
		StatusCode: http.StatusConflict,
	}
}

// NewNotOpenError reports that the target session is not the current open one.
func NewNotOpenError() *AppError {
	return &AppError{
		Type:       ErrorTypeNotOpen,
		Message:    "session is not open",
		StatusCode: http.StatusConflict,
	}
}

// NewNoActiveSessionError reports that no session is accepting joins.
func NewNoActiveSessionError() *AppError {
	return &AppError{
		Type:       ErrorTypeNoActiveSession,
		Message:    "no active session",
		StatusCode: http.StatusNotFound,
	}
}

// NewOnCooldownError reports a join blocked by an unexpired leave cooldown.
// The remaining wait is rounded up to whole seconds in the details.
func NewOnCooldownError(remaining time.Duration) *AppError {
	seconds := int64(math.Ceil(remaining.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	return &AppError{
		Type:       ErrorTypeOnCooldown,
		Message:    fmt.Sprintf("on cooldown for another %ds", seconds),
		StatusCode: http.StatusTooManyRequests,
		Details: map[string]interface{}{
			"retry_after_seconds": seconds,
		},
	}
}

// NewAlreadyJoinedError reports a duplicate join attempt.
func NewAlreadyJoinedError() *AppError {
	return &AppError{
		Type:       ErrorTypeAlreadyJoined,
		Message:    "player is already in the pool",
		StatusCode: http.StatusConflict,
	}
}

// NewPoolFullError reports a join against a pool at capacity.
func NewPoolFullError() *AppError {
	return &AppError{
		Type:       ErrorTypePoolFull,
		Message:    "pool is full",
		StatusCode: http.StatusConflict,
	}
}

// NewNotInPoolError reports a leave for a player with no membership.
func NewNotInPoolError() *AppError {
	return &AppError{
		Type:       ErrorTypeNotInPool,
		Message:    "player is not in the pool",
		StatusCode: http.StatusNotFound,
	}
}

// NewInvalidInputError creates an input validation error
func NewInvalidInputError(message string, details map[string]interface{}) *AppError {
	return &AppError{
		Type:       ErrorTypeInvalidInput,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Details:    details,
	}
}

// NewStorageUnavailableError wraps a storage failure. These are the only
// errors a caller may reasonably retry.
func NewStorageUnavailableError(internal error) *AppError {
	return &AppError{
		Type:       ErrorTypeStorageUnavailable,
		Message:    "storage unavailable",
		StatusCode: http.StatusServiceUnavailable,
		Internal:   internal,
	}
}

// NewUnauthorizedError creates an authentication error
func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

// NewInternalError creates a new internal server error
func NewInternalError(message string, internal error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Internal:   internal,
	}
}

// ErrorResponse is the JSON envelope every error leaves the service in.
type ErrorResponse struct {
	Success bool `json:"success"`
	Error   struct {
		Type      ErrorType              `json:"type"`
		Message   string                 `json:"message"`
		Details   map[string]interface{} `json:"details,omitempty"`
		Timestamp string                 `json:"timestamp"`
	} `json:"error"`
}

// NewErrorResponse builds the envelope for appErr, stamped with the
// current time.
func NewErrorResponse(appErr *AppError) *ErrorResponse {
	resp := &ErrorResponse{}
	resp.Error.Type = appErr.Type
	resp.Error.Message = appErr.Message
	resp.Error.Details = appErr.Details
	resp.Error.Timestamp = time.Now().UTC().Format(time.RFC3339)
	return resp
}
