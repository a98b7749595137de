package model

import (
	"net/url"
	"time"
)

// PlayerID uniquely identifies a player across the system
type PlayerID string

// Faction is the team a player plays for
type Faction string

const (
	FactionPotatoes Faction = "potatoes"
	FactionTomatoes Faction = "tomatoes"
)

// Valid reports whether f is a known faction
func (f Faction) Valid() bool {
	return f == FactionPotatoes || f == FactionTomatoes
}

// Identity is the profile the rest of the system sees for a player.
// Queues and matches hold copies, so later profile edits never reach
// an entry or match that already captured one.
type Identity struct {
	ID         PlayerID
	Nick       string
	SkillScore int
	Avatar     string
	Faction    Faction
	IsGuest    bool // true for unregistered players
	CreatedAt  time.Time
}

// AvatarOrDefault returns the avatar URL, falling back to a generated one
func (i Identity) AvatarOrDefault() string {
	if i.Avatar != "" {
		return i.Avatar
	}
	return "https://ui-avatars.com/api/?name=" + url.QueryEscape(i.Nick) + "&background=random"
}

// Credential holds login data for a registered player
// Stored separately for security (password never in memory with session)
type Credential struct {
	PlayerID     PlayerID
	Username     string // login username (immutable)
	PasswordHash string // bcrypt hash
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
