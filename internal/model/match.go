package model

import "time"

// RoomID uniquely identifies an active match room
type RoomID string

// ConnID identifies one live client connection
type ConnID string

// MatchKind records how a match was formed
type MatchKind string

const (
	MatchKindRanked       MatchKind = "ranked"
	MatchKindCasualInvite MatchKind = "casual_invite"
	MatchKindCasualFIFO   MatchKind = "casual_fifo"
)

// MatchState represents the lifecycle of a match
type MatchState string

const (
	MatchStatePending  MatchState = "pending"
	MatchStateRunning  MatchState = "running"
	MatchStateFinished MatchState = "finished"
	MatchStateAborted  MatchState = "aborted"
)

// IsTerminal reports whether no further transitions are possible
func (s MatchState) IsTerminal() bool {
	return s == MatchStateFinished || s == MatchStateAborted
}

// OutcomeReason explains how a match ended
type OutcomeReason string

const (
	OutcomeReasonWin     OutcomeReason = "win"
	OutcomeReasonForfeit OutcomeReason = "forfeit"
)

// MatchRoom is the binding of two participants to one engine.
// Participant snapshots are taken when the room is created.
type MatchRoom struct {
	ID           RoomID
	Kind         MatchKind
	Participant1 Identity
	Participant2 Identity
	CreatedAt    time.Time
}

// HasParticipant reports whether the player is in this room
func (r MatchRoom) HasParticipant(id PlayerID) bool {
	return r.Participant1.ID == id || r.Participant2.ID == id
}

// MatchOutcome is the final record handed to persistence
type MatchOutcome struct {
	MatchID        RoomID
	Kind           MatchKind
	Participant1ID PlayerID
	Participant2ID PlayerID
	Score1         int
	Score2         int
	WinnerID       PlayerID
	Reason         OutcomeReason
	EndedAt        time.Time
}

// LoserID returns the participant who did not win
func (o MatchOutcome) LoserID() PlayerID {
	if o.WinnerID == o.Participant1ID {
		return o.Participant2ID
	}
	return o.Participant1ID
}

// Input is a directional paddle intent: -1 up, 0 stop, 1 down
type Input struct {
	Direction int
}

// Valid reports whether the input is well-formed
func (i Input) Valid() bool {
	return i.Direction >= -1 && i.Direction <= 1
}

// PowerUpKind identifies a power-up effect
type PowerUpKind string

const (
	PowerUpBigPaddle  PowerUpKind = "BIG_PADDLE"
	PowerUpShield     PowerUpKind = "SHIELD"
	PowerUpSpeedBoost PowerUpKind = "SPEED_BOOST"
)

// PowerUpKinds lists every kind in spawn-selection order
var PowerUpKinds = []PowerUpKind{PowerUpBigPaddle, PowerUpShield, PowerUpSpeedBoost}

// BallView is the ball as sent to clients
type BallView struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	VX     float64 `json:"vx"`
	VY     float64 `json:"vy"`
	Radius float64 `json:"radius"`
}

// SlotView is one participant's side as sent to clients
type SlotView struct {
	PlayerID PlayerID `json:"player_id"`
	Nick     string   `json:"nick"`
	Faction  Faction  `json:"faction,omitempty"`
	X        float64  `json:"x"`
	Y        float64  `json:"y"`
	Width    float64  `json:"width"`
	Height   float64  `json:"height"`
	Score    int      `json:"score"`
	Shield   bool     `json:"shield"`
	Boosted  bool     `json:"boosted"`
}

// PowerUpView is an uncollected power-up on the table
type PowerUpView struct {
	Kind PowerUpKind `json:"kind"`
	X    float64     `json:"x"`
	Y    float64     `json:"y"`
	Size float64     `json:"size"`
}

// Snapshot is the per-tick match state pushed to both participants.
// Tick increases strictly; clients drop anything not newer than
// what they last applied.
type Snapshot struct {
	RoomID      RoomID       `json:"room_id"`
	Tick        uint64       `json:"tick"`
	State       MatchState   `json:"state"`
	TableWidth  float64      `json:"table_width"`
	TableHeight float64      `json:"table_height"`
	Ball        BallView     `json:"ball"`
	Slot1       SlotView     `json:"player1"`
	Slot2       SlotView     `json:"player2"`
	PowerUp     *PowerUpView `json:"power_up,omitempty"`
}
