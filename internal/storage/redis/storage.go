package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/pongarena/internal/model"
	"github.com/mcoot/pongarena/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Identity operations

func (s *Storage) SaveIdentity(ctx context.Context, identity *model.Identity) error {
	data, err := json.Marshal(identity)
	if err != nil {
		return err
	}

	owner, err := s.client.Get(ctx, nickIndexKey(identity.Nick)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	if err == nil && model.PlayerID(owner) != identity.ID {
		return model.ErrNickTaken
	}

	prev, err := s.GetIdentity(ctx, identity.ID)
	if err != nil && !errors.Is(err, model.ErrPlayerNotFound) {
		return err
	}

	// Apply TTL only for guest identities
	var ttl time.Duration
	if identity.IsGuest {
		ttl = s.cfg.GuestIdentityTTL
	}

	pipe := s.client.TxPipeline()
	if prev != nil && storage.NormalizeNick(prev.Nick) != storage.NormalizeNick(identity.Nick) {
		pipe.Del(ctx, nickIndexKey(prev.Nick))
	}
	pipe.Set(ctx, identityKey(identity.ID), data, ttl)
	pipe.Set(ctx, nickIndexKey(identity.Nick), string(identity.ID), ttl)
	pipe.ZAdd(ctx, leaderboardKey(), redis.Z{Score: float64(identity.SkillScore), Member: string(identity.ID)})
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetIdentity(ctx context.Context, id model.PlayerID) (*model.Identity, error) {
	data, err := s.client.Get(ctx, identityKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}

	var identity model.Identity
	if err := json.Unmarshal(data, &identity); err != nil {
		return nil, err
	}
	return &identity, nil
}

func (s *Storage) GetIdentityByNick(ctx context.Context, nick string) (*model.Identity, error) {
	// Look up player ID from nick index
	playerIDStr, err := s.client.Get(ctx, nickIndexKey(nick)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}

	return s.GetIdentity(ctx, model.PlayerID(playerIDStr))
}

// AdjustSkillScore updates the identity record and the leaderboard in one
// optimistic transaction, retrying when the record changes underneath it
func (s *Storage) AdjustSkillScore(ctx context.Context, id model.PlayerID, delta int) (int, error) {
	key := identityKey(id)
	var score int

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return model.ErrPlayerNotFound
			}
			return err
		}

		var identity model.Identity
		if err := json.Unmarshal(data, &identity); err != nil {
			return err
		}
		identity.SkillScore = storage.ClampScore(identity.SkillScore + delta)
		score = identity.SkillScore

		updated, err := json.Marshal(&identity)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SetArgs(ctx, key, updated, redis.SetArgs{KeepTTL: true})
			pipe.ZAdd(ctx, leaderboardKey(), redis.Z{Score: float64(score), Member: string(id)})
			return nil
		})
		return err
	}

	for i := 0; i < s.cfg.MaxTxRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return 0, err
		}
		return score, nil
	}
	return 0, fmt.Errorf("adjust skill score for %s: %w", id, redis.TxFailedErr)
}

// leaderboardPage is how many ZSET members TopIdentities reads per round trip
const leaderboardPage = 50

// TopIdentities reads the leaderboard ZSET. Members whose identity has
// expired are skipped and pruned from the set.
func (s *Storage) TopIdentities(ctx context.Context, limit int) ([]*model.Identity, error) {
	out := make([]*model.Identity, 0)
	var (
		stale  []any
		offset int64
	)

	for limit <= 0 || len(out) < limit {
		ids, err := s.client.ZRevRange(ctx, leaderboardKey(), offset, offset+leaderboardPage-1).Result()
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			break
		}
		offset += int64(len(ids))

		for _, id := range ids {
			identity, err := s.GetIdentity(ctx, model.PlayerID(id))
			if errors.Is(err, model.ErrPlayerNotFound) {
				stale = append(stale, id)
				continue
			}
			if err != nil {
				return nil, err
			}
			out = append(out, identity)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}

	if len(stale) > 0 {
		if err := s.client.ZRem(ctx, leaderboardKey(), stale...).Err(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Credential operations

func (s *Storage) SaveCredential(ctx context.Context, cred *model.Credential) error {
	data, err := json.Marshal(cred)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, credentialKey(cred.Username), data, 0).Err() // No TTL
}

func (s *Storage) GetCredentialByUsername(ctx context.Context, username string) (*model.Credential, error) {
	data, err := s.client.Get(ctx, credentialKey(username)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}

	var cred model.Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, err
	}
	return &cred, nil
}

// Match result operations

func (s *Storage) SaveMatchResult(ctx context.Context, result *model.MatchResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}

	// Use pipeline for atomic save + index update
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, matchResultKey(result.ID), data, 0)
	for _, id := range []model.PlayerID{result.Outcome.Participant1ID, result.Outcome.Participant2ID} {
		pipe.LPush(ctx, playerMatchesKey(id), string(result.ID))
		if s.cfg.MatchHistoryLimit > 0 {
			pipe.LTrim(ctx, playerMatchesKey(id), 0, s.cfg.MatchHistoryLimit-1)
		}
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetMatchResults(ctx context.Context, playerID model.PlayerID, limit int) ([]*model.MatchResult, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}

	ids, err := s.client.LRange(ctx, playerMatchesKey(playerID), 0, stop).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*model.MatchResult{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = matchResultKey(model.MatchResultID(id))
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	results := make([]*model.MatchResult, 0, len(values))
	for _, v := range values {
		if v == nil {
			continue
		}
		str, ok := v.(string)
		if !ok {
			continue
		}
		var result model.MatchResult
		if err := json.Unmarshal([]byte(str), &result); err != nil {
			return nil, err
		}
		results = append(results, &result)
	}
	return results, nil
}
