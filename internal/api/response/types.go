package response

import (
	"time"

	"github.com/mcoot/pongarena/internal/model"
	"github.com/mcoot/pongarena/internal/services/auth"
	"github.com/mcoot/pongarena/internal/services/matchmaking"
	"github.com/mcoot/pongarena/internal/services/results"
)

// Player represents a player in API responses
type Player struct {
	ID         string `json:"id"`
	Nick       string `json:"nick"`
	Avatar     string `json:"avatar"`
	Faction    string `json:"faction"`
	SkillScore int    `json:"skill_score"`
	IsGuest    bool   `json:"is_guest"`
}

// PlayerFromModel converts a model.Identity to a response Player
func PlayerFromModel(i model.Identity) Player {
	return Player{
		ID:         string(i.ID),
		Nick:       i.Nick,
		Avatar:     i.AvatarOrDefault(),
		Faction:    string(i.Faction),
		SkillScore: i.SkillScore,
		IsGuest:    i.IsGuest,
	}
}

// AuthResponse is the response for authentication endpoints
type AuthResponse struct {
	Player       Player    `json:"player"`
	SessionToken string    `json:"session_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// AuthResponseFromSession creates an AuthResponse from a session
func AuthResponseFromSession(s *auth.Session) AuthResponse {
	return AuthResponse{
		Player:       PlayerFromModel(s.Identity),
		SessionToken: s.Token,
		ExpiresAt:    s.ExpiresAt,
	}
}

// MatchResult is one entry of a player's match history, seen from that player
type MatchResult struct {
	ID            string    `json:"id"`
	MatchID       string    `json:"match_id"`
	Kind          string    `json:"kind"`
	OpponentID    string    `json:"opponent_id"`
	Won           bool      `json:"won"`
	Score         int       `json:"score"`
	OpponentScore int       `json:"opponent_score"`
	Reason        string    `json:"reason"`
	SkillDelta    int       `json:"skill_delta"`
	EndedAt       time.Time `json:"ended_at"`
}

// MatchResultFromModel converts a stored result to the viewer's perspective
func MatchResultFromModel(r *model.MatchResult, viewer model.PlayerID) MatchResult {
	o := r.Outcome
	out := MatchResult{
		ID:         string(r.ID),
		MatchID:    string(o.MatchID),
		Kind:       string(o.Kind),
		Won:        o.WinnerID == viewer,
		Reason:     string(o.Reason),
		SkillDelta: r.DeltaFor(viewer),
		EndedAt:    o.EndedAt,
	}
	if o.Participant1ID == viewer {
		out.OpponentID = string(o.Participant2ID)
		out.Score, out.OpponentScore = o.Score1, o.Score2
	} else {
		out.OpponentID = string(o.Participant1ID)
		out.Score, out.OpponentScore = o.Score2, o.Score1
	}
	return out
}

// MatchHistoryResponse lists a player's recent matches, newest first
type MatchHistoryResponse struct {
	PlayerID string        `json:"player_id"`
	Matches  []MatchResult `json:"matches"`
}

// LeaderboardResponse lists the top players by skill
type LeaderboardResponse struct {
	Entries []results.LeaderboardEntry `json:"entries"`
}

// QueueLeftResponse reports whether leaving removed any queue entry
type QueueLeftResponse struct {
	Left bool `json:"left"`
}

// InviteSentResponse confirms a stored invite
type InviteSentResponse struct {
	TargetID  string    `json:"target_id"`
	CreatedAt time.Time `json:"created_at"`
}

// InvitesResponse lists invites waiting for the caller
type InvitesResponse struct {
	Invites []matchmaking.IncomingInvite `json:"invites"`
}

// HealthResponse reports liveness and current load
type HealthResponse struct {
	Status        string `json:"status"`
	PlayersOnline int    `json:"players_online"`
	ActiveMatches int    `json:"active_matches"`
}
