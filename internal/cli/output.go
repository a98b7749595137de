package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Println(string(data))
	} else {
		fmt.Println(msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case Player:
		o.printPlayer(v)
	case AuthResult:
		o.printAuthResult(v)
	case LeaderboardResult:
		o.printLeaderboard(v)
	case HistoryResult:
		o.printHistory(v)
	case InvitesResult:
		o.printInvites(v)
	case InviteSentResult:
		fmt.Printf("Invite sent to %s\n", v.TargetID)
	case QueueLeftResult:
		if v.Left {
			fmt.Println("Left the queue")
		} else {
			fmt.Println("Not queued")
		}
	case RespondResult:
		fmt.Printf("Invite %sd\n", v.Decision)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// Player response type (matches API)
type Player struct {
	ID         string `json:"id"`
	Nick       string `json:"nick"`
	Avatar     string `json:"avatar"`
	Faction    string `json:"faction"`
	SkillScore int    `json:"skill_score"`
	IsGuest    bool   `json:"is_guest"`
}

// AuthResult combines player and token
type AuthResult struct {
	Player       Player    `json:"player"`
	SessionToken string    `json:"session_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// LeaderboardEntry response type
type LeaderboardEntry struct {
	Rank       int    `json:"rank"`
	PlayerID   string `json:"player_id"`
	Nick       string `json:"nick"`
	Faction    string `json:"faction"`
	SkillScore int    `json:"skill_score"`
}

// LeaderboardResult response type
type LeaderboardResult struct {
	Entries []LeaderboardEntry `json:"entries"`
}

// MatchEntry is one match from a player's history
type MatchEntry struct {
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

// HistoryResult response type
type HistoryResult struct {
	PlayerID string       `json:"player_id"`
	Matches  []MatchEntry `json:"matches"`
}

// Invite is a pending invite addressed to the caller
type Invite struct {
	SenderID   string    `json:"sender_id"`
	SenderNick string    `json:"sender_nick"`
	CreatedAt  time.Time `json:"created_at"`
}

// InvitesResult response type
type InvitesResult struct {
	Invites []Invite `json:"invites"`
}

// InviteSentResult response type
type InviteSentResult struct {
	TargetID  string    `json:"target_id"`
	CreatedAt time.Time `json:"created_at"`
}

// QueueLeftResult response type
type QueueLeftResult struct {
	Left bool `json:"left"`
}

// RespondResult response type
type RespondResult struct {
	Decision   string `json:"decision"`
	RoomID     string `json:"room_id,omitempty"`
	OpponentID string `json:"opponent_id,omitempty"`
}

// HealthResult response type
type HealthResult struct {
	Status        string `json:"status"`
	PlayersOnline int    `json:"players_online"`
	ActiveMatches int    `json:"active_matches"`
}

func (o *Output) printPlayer(p Player) {
	guestStr := "no"
	if p.IsGuest {
		guestStr = "yes"
	}
	fmt.Printf("Player: %s (%s)\n", p.Nick, p.ID)
	fmt.Printf("Faction: %s\n", p.Faction)
	fmt.Printf("Skill: %d\n", p.SkillScore)
	fmt.Printf("Guest: %s\n", guestStr)
}

func (o *Output) printAuthResult(a AuthResult) {
	o.printPlayer(a.Player)
	fmt.Printf("Token: %s\n", a.SessionToken)
}

func (o *Output) printLeaderboard(l LeaderboardResult) {
	if len(l.Entries) == 0 {
		fmt.Println("No players yet")
		return
	}
	for _, e := range l.Entries {
		fmt.Printf("%3d. %-24s %6d  %s\n", e.Rank, e.Nick, e.SkillScore, e.Faction)
	}
}

func (o *Output) printHistory(h HistoryResult) {
	if len(h.Matches) == 0 {
		fmt.Printf("No matches for %s\n", h.PlayerID)
		return
	}
	for _, m := range h.Matches {
		result := "lost"
		if m.Won {
			result = "won"
		}
		fmt.Printf("%s  %-13s %-4s %d-%d vs %s (%s, %+d)\n",
			m.EndedAt.Local().Format("2006-01-02 15:04"),
			m.Kind, result, m.Score, m.OpponentScore, m.OpponentID, m.Reason, m.SkillDelta)
	}
}

func (o *Output) printInvites(i InvitesResult) {
	if len(i.Invites) == 0 {
		fmt.Println("No pending invites")
		return
	}
	for _, inv := range i.Invites {
		fmt.Printf("  - %s (%s) at %s\n", inv.SenderNick, inv.SenderID,
			inv.CreatedAt.Local().Format("15:04:05"))
	}
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Printf("Status: %s\n", h.Status)
	fmt.Printf("Online: %d players, %d matches\n", h.PlayersOnline, h.ActiveMatches)
}
