package redis

import (
	"fmt"

	"github.com/mcoot/pongarena/internal/model"
	"github.com/mcoot/pongarena/internal/storage"
)

// Key prefix for all pong data
const keyPrefix = "pong"

// identityKey returns the Redis key for an Identity
func identityKey(id model.PlayerID) string {
	return fmt.Sprintf("%s:identity:%s", keyPrefix, id)
}

// nickIndexKey returns the Redis key for the nick -> player_id index
func nickIndexKey(nick string) string {
	return fmt.Sprintf("%s:idx:nick:%s", keyPrefix, storage.NormalizeNick(nick))
}

// credentialKey returns the Redis key for a Credential
func credentialKey(username string) string {
	return fmt.Sprintf("%s:credential:%s", keyPrefix, username)
}

// leaderboardKey returns the Redis key for the skill score ZSET
func leaderboardKey() string {
	return fmt.Sprintf("%s:leaderboard", keyPrefix)
}

// matchResultKey returns the Redis key for a MatchResult
func matchResultKey(id model.MatchResultID) string {
	return fmt.Sprintf("%s:match:%s", keyPrefix, id)
}

// playerMatchesKey returns the Redis key for a player's result LIST, newest first
func playerMatchesKey(id model.PlayerID) string {
	return fmt.Sprintf("%s:idx:player_matches:%s", keyPrefix, id)
}
