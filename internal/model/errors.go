package model

import "errors"

// Common errors used across the application
var (
	// Player errors
	ErrPlayerNotFound = errors.New("player not found")
	ErrNickTaken      = errors.New("nick is already taken")
	ErrInvalidNick    = errors.New("nick must be 1 to 24 characters")
	ErrInvalidFaction = errors.New("invalid faction")

	// Identity lookup failed while building a pairing
	ErrIdentityUnavailable = errors.New("identity unavailable")

	// Matchmaking errors
	ErrInvalidQueueMode = errors.New("invalid queue mode")
	ErrNotConnected     = errors.New("player has no live connection")
	ErrAlreadyInMatch   = errors.New("player is already in a match")
	ErrSelfInvite       = errors.New("cannot invite yourself")
	ErrInviteNotFound   = errors.New("invite not found")
	ErrInvalidDecision  = errors.New("invalid invite decision")

	// Match errors
	ErrMatchNotFound  = errors.New("match not found")
	ErrInvalidState   = errors.New("operation not valid in current match state")
	ErrNotParticipant = errors.New("connection is not a participant in this match")

	// Connection errors
	ErrStaleConnection = errors.New("connection is no longer current")
	ErrSendBufferFull  = errors.New("connection send buffer full")
)
