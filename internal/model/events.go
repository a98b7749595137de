package model

import "time"

// EventType identifies the type of event
type EventType string

const (
	// Connection events
	EventConnected EventType = "connected"
	EventAck       EventType = "ack"
	EventError     EventType = "error"
	EventPong      EventType = "pong"

	// Matchmaking events
	EventMatchFound        EventType = "match_found"
	EventMatchmakingStatus EventType = "matchmaking_status"
	EventInviteReceived    EventType = "invite_received"
	EventInviteAccepted    EventType = "invite_accepted"
	EventInviteDeclined    EventType = "invite_declined"

	// Match events
	EventMatchSnapshot EventType = "match_snapshot"
	EventMatchEnded    EventType = "match_ended"
)

// Event is a message pushed to a single connection
type Event struct {
	Type      EventType
	Timestamp time.Time
	Payload   any // Type-specific data
}

// NewEvent builds an event stamped with the given time
func NewEvent(t EventType, at time.Time, payload any) Event {
	return Event{Type: t, Timestamp: at, Payload: payload}
}

// ConnectedPayload confirms a socket was authenticated and registered
type ConnectedPayload struct {
	ConnID   ConnID   `json:"conn_id"`
	PlayerID PlayerID `json:"player_id"`
	Nick     string   `json:"nick"`
}

// MatchFoundPayload announces a pairing
type MatchFoundPayload struct {
	RoomID     RoomID    `json:"room_id"`
	Kind       MatchKind `json:"kind"`
	OpponentID PlayerID  `json:"opponent_id"`
	Opponent   string    `json:"opponent_nick"`
}

// MatchmakingStatus values
const (
	MatchmakingWaiting = "waiting"
	MatchmakingQueued  = "queued"
	MatchmakingLeft    = "left"
)

// MatchmakingStatusPayload reports queue membership changes
type MatchmakingStatusPayload struct {
	Status string    `json:"status"`
	Mode   QueueMode `json:"mode,omitempty"`
}

// InviteReceivedPayload is sent to an invite's target
type InviteReceivedPayload struct {
	SenderID     PlayerID `json:"sender_id"`
	SenderNick   string   `json:"sender_nick"`
	SenderAvatar string   `json:"sender_avatar"`
}

// InviteAcceptedPayload is sent to the sender when the target accepts
type InviteAcceptedPayload struct {
	RoomID     RoomID   `json:"room_id"`
	OpponentID PlayerID `json:"opponent_id"`
}

// InviteDeclinedPayload is sent to the sender when the target declines
type InviteDeclinedPayload struct {
	Nick string `json:"nick"`
}

// FinalScore is the score pair in a match end notice
type FinalScore struct {
	Player1 int `json:"player1"`
	Player2 int `json:"player2"`
}

// MatchEndedPayload is the terminal notice for a match.
// Each connection receives at most one per match.
type MatchEndedPayload struct {
	RoomID     RoomID        `json:"room_id"`
	WinnerID   PlayerID      `json:"winner_id"`
	FinalScore FinalScore    `json:"final_score"`
	Reason     OutcomeReason `json:"reason"`
}

// AckPayload acknowledges an inbound socket command
type AckPayload struct {
	For    string `json:"for"`
	Result any    `json:"result,omitempty"`
}

// ErrorPayload reports a failed inbound socket command
type ErrorPayload struct {
	For     string `json:"for,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
