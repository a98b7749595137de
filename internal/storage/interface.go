package storage

import (
	"context"
	"strings"

	"github.com/mcoot/pongarena/internal/model"
)

// Storage defines the interface for data persistence
type Storage interface {
	// Identity operations. Nicks are unique ignoring case.
	SaveIdentity(ctx context.Context, identity *model.Identity) error
	GetIdentity(ctx context.Context, id model.PlayerID) (*model.Identity, error)
	GetIdentityByNick(ctx context.Context, nick string) (*model.Identity, error)
	// AdjustSkillScore adds delta to the stored score, flooring at zero,
	// and returns the new score
	AdjustSkillScore(ctx context.Context, id model.PlayerID, delta int) (int, error)
	// TopIdentities returns identities by descending skill score
	TopIdentities(ctx context.Context, limit int) ([]*model.Identity, error)

	// Credential operations
	SaveCredential(ctx context.Context, cred *model.Credential) error
	GetCredentialByUsername(ctx context.Context, username string) (*model.Credential, error)

	// Match result operations
	SaveMatchResult(ctx context.Context, result *model.MatchResult) error
	// GetMatchResults returns a player's results, newest first
	GetMatchResults(ctx context.Context, playerID model.PlayerID, limit int) ([]*model.MatchResult, error)

	Close() error
}

// NormalizeNick returns the form of a nick used for uniqueness checks
func NormalizeNick(nick string) string {
	return strings.ToLower(strings.TrimSpace(nick))
}

// ClampScore applies the zero floor to a skill score
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	return score
}
