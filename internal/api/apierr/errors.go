package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/pongarena/internal/model"
	"github.com/mcoot/pongarena/internal/services/auth"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest      = "INVALID_REQUEST"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodePlayerNotFound      = "PLAYER_NOT_FOUND"
	CodeNickTaken           = "NICK_TAKEN"
	CodeInvalidNick         = "INVALID_NICK"
	CodeInvalidFaction      = "INVALID_FACTION"
	CodeIdentityUnavailable = "IDENTITY_UNAVAILABLE"
	CodeInvalidQueueMode    = "INVALID_QUEUE_MODE"
	CodeNotConnected        = "NOT_CONNECTED"
	CodeAlreadyInMatch      = "ALREADY_IN_MATCH"
	CodeSelfInvite          = "SELF_INVITE"
	CodeInviteNotFound      = "INVITE_NOT_FOUND"
	CodeInvalidDecision     = "INVALID_DECISION"
	CodeMatchNotFound       = "MATCH_NOT_FOUND"
	CodeInvalidState        = "INVALID_STATE"
	CodeUsernameExists      = "USERNAME_EXISTS"
	CodeInvalidCredentials  = "INVALID_CREDENTIALS"
	CodeUnknownMessage      = "UNKNOWN_MESSAGE"
	CodeInternalError       = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// Describe returns the status and client-facing error for err. The
// socket layer uses it so both transports report the same codes.
func Describe(err error) (int, APIError) {
	he := toHTTPError(err)
	return he.status, he.apiError
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	// Check for specific error types
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	// Map model errors
	switch {
	case errors.Is(err, model.ErrPlayerNotFound):
		return &httpError{http.StatusNotFound, APIError{CodePlayerNotFound, "Player not found"}}
	case errors.Is(err, model.ErrNickTaken):
		return &httpError{http.StatusConflict, APIError{CodeNickTaken, "Nick is already taken"}}
	case errors.Is(err, model.ErrInvalidNick):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidNick, "Nick must be 1 to 24 characters"}}
	case errors.Is(err, model.ErrInvalidFaction):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidFaction, "Faction must be potatoes or tomatoes"}}
	case errors.Is(err, model.ErrIdentityUnavailable):
		return &httpError{http.StatusNotFound, APIError{CodeIdentityUnavailable, "Player not found"}}
	case errors.Is(err, model.ErrInvalidQueueMode):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidQueueMode, "Mode must be ranked or casual"}}
	case errors.Is(err, model.ErrNotConnected):
		return &httpError{http.StatusConflict, APIError{CodeNotConnected, "A live connection is required"}}
	case errors.Is(err, model.ErrAlreadyInMatch):
		return &httpError{http.StatusConflict, APIError{CodeAlreadyInMatch, "Already in a match"}}
	case errors.Is(err, model.ErrSelfInvite):
		return &httpError{http.StatusBadRequest, APIError{CodeSelfInvite, "Cannot invite yourself"}}
	case errors.Is(err, model.ErrInviteNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeInviteNotFound, "Invite not found"}}
	case errors.Is(err, model.ErrInvalidDecision):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidDecision, "Action must be accept or decline"}}
	case errors.Is(err, model.ErrMatchNotFound), errors.Is(err, model.ErrNotParticipant):
		return &httpError{http.StatusNotFound, APIError{CodeMatchNotFound, "Not in a match"}}
	case errors.Is(err, model.ErrInvalidState):
		return &httpError{http.StatusConflict, APIError{CodeInvalidState, "Match is not running"}}

	// Map auth errors
	case errors.Is(err, auth.ErrInvalidCredentials):
		return &httpError{http.StatusUnauthorized, APIError{CodeInvalidCredentials, "Invalid username or password"}}
	case errors.Is(err, auth.ErrInvalidSession):
		return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Invalid or expired session"}}
	case errors.Is(err, auth.ErrUsernameExists):
		return &httpError{http.StatusConflict, APIError{CodeUsernameExists, "Username already exists"}}

	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Authentication required"}}
}

// NewUnknownMessageError reports an unsupported socket message type
func NewUnknownMessageError(messageType string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeUnknownMessage, "Unknown message type: " + messageType}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
