package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/mcoot/pongarena/internal/model"
	"github.com/mcoot/pongarena/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	identities    map[model.PlayerID]*model.Identity
	nickIndex     map[string]model.PlayerID
	credentials   map[string]*model.Credential
	results       map[model.MatchResultID]*model.MatchResult
	playerResults map[model.PlayerID][]model.MatchResultID
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		identities:    make(map[model.PlayerID]*model.Identity),
		nickIndex:     make(map[string]model.PlayerID),
		credentials:   make(map[string]*model.Credential),
		results:       make(map[model.MatchResultID]*model.MatchResult),
		playerResults: make(map[model.PlayerID][]model.MatchResultID),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Close is a no-op for memory storage
func (s *Storage) Close() error {
	return nil
}

// Identity operations

func (s *Storage) SaveIdentity(ctx context.Context, identity *model.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	nick := storage.NormalizeNick(identity.Nick)
	if owner, ok := s.nickIndex[nick]; ok && owner != identity.ID {
		return model.ErrNickTaken
	}

	if prev, ok := s.identities[identity.ID]; ok {
		delete(s.nickIndex, storage.NormalizeNick(prev.Nick))
	}

	stored := *identity
	s.identities[identity.ID] = &stored
	s.nickIndex[nick] = identity.ID
	return nil
}

func (s *Storage) GetIdentity(ctx context.Context, id model.PlayerID) (*model.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	identity, ok := s.identities[id]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	out := *identity
	return &out, nil
}

func (s *Storage) GetIdentityByNick(ctx context.Context, nick string) (*model.Identity, error) {
	s.mu.RLock()
	id, ok := s.nickIndex[storage.NormalizeNick(nick)]
	s.mu.RUnlock()
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	return s.GetIdentity(ctx, id)
}

func (s *Storage) AdjustSkillScore(ctx context.Context, id model.PlayerID, delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	identity, ok := s.identities[id]
	if !ok {
		return 0, model.ErrPlayerNotFound
	}
	identity.SkillScore = storage.ClampScore(identity.SkillScore + delta)
	return identity.SkillScore, nil
}

func (s *Storage) TopIdentities(ctx context.Context, limit int) ([]*model.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Identity, 0, len(s.identities))
	for _, identity := range s.identities {
		cp := *identity
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SkillScore != out[j].SkillScore {
			return out[i].SkillScore > out[j].SkillScore
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Credential operations

func (s *Storage) SaveCredential(ctx context.Context, cred *model.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *cred
	s.credentials[cred.Username] = &stored
	return nil
}

func (s *Storage) GetCredentialByUsername(ctx context.Context, username string) (*model.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cred, ok := s.credentials[username]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	out := *cred
	return &out, nil
}

// Match result operations

func (s *Storage) SaveMatchResult(ctx context.Context, result *model.MatchResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *result
	s.results[result.ID] = &stored
	for _, id := range []model.PlayerID{result.Outcome.Participant1ID, result.Outcome.Participant2ID} {
		s.playerResults[id] = append(s.playerResults[id], result.ID)
	}
	return nil
}

func (s *Storage) GetMatchResults(ctx context.Context, playerID model.PlayerID, limit int) ([]*model.MatchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.playerResults[playerID]
	out := make([]*model.MatchResult, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		cp := *s.results[ids[i]]
		out = append(out, &cp)
	}
	return out, nil
}
