// Package auth issues bearer session tokens for guest and registered players.
package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/pongarena/internal/dependencies/clock"
	"github.com/mcoot/pongarena/internal/model"
	"github.com/mcoot/pongarena/internal/storage"
)

// Errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidSession     = errors.New("invalid or expired session")
	ErrUsernameExists     = errors.New("username already exists")
)

// MaxNickLength is the longest nick a player may choose
const MaxNickLength = 24

// tokenLength is the nanoid length of a session token
const tokenLength = 32

// Session represents an authenticated session
type Session struct {
	Token     string
	PlayerID  model.PlayerID
	Identity  model.Identity // snapshot at login
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Profile holds the player-chosen parts of an identity
type Profile struct {
	Nick    string
	Avatar  string
	Faction model.Faction
}

// Service handles authentication and session management
type Service struct {
	storage storage.Storage
	clock   clock.Clock

	mu       sync.RWMutex
	sessions map[string]*Session

	sessionDuration   time.Duration
	initialSkillScore int
}

// Config holds configuration for the auth service
type Config struct {
	SessionDuration   time.Duration
	InitialSkillScore int
}

// DefaultConfig returns default auth configuration
func DefaultConfig() Config {
	return Config{
		SessionDuration:   24 * time.Hour,
		InitialSkillScore: 1000,
	}
}

// New creates a new AuthService
func New(storage storage.Storage, clock clock.Clock, cfg Config) *Service {
	if cfg.SessionDuration == 0 {
		cfg.SessionDuration = DefaultConfig().SessionDuration
	}
	return &Service{
		storage:           storage,
		clock:             clock,
		sessions:          make(map[string]*Session),
		sessionDuration:   cfg.SessionDuration,
		initialSkillScore: cfg.InitialSkillScore,
	}
}

// CreateGuest creates an unregistered identity and session
func (s *Service) CreateGuest(ctx context.Context, profile Profile) (*Session, error) {
	identity, err := s.newIdentity(profile, true)
	if err != nil {
		return nil, err
	}

	if err := s.storage.SaveIdentity(ctx, identity); err != nil {
		return nil, err
	}

	return s.createSession(identity)
}

// Register creates a registered identity with a password and a session
func (s *Service) Register(ctx context.Context, username, password string, profile Profile) (*Session, error) {
	// Check if username exists
	_, err := s.storage.GetCredentialByUsername(ctx, username)
	if err == nil {
		return nil, ErrUsernameExists
	}
	if !errors.Is(err, model.ErrPlayerNotFound) {
		return nil, err
	}

	if profile.Nick == "" {
		profile.Nick = username
	}
	identity, err := s.newIdentity(profile, false)
	if err != nil {
		return nil, err
	}

	// Hash password
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	cred := &model.Credential{
		PlayerID:     identity.ID,
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// Identity first so a taken nick leaves no orphan credential
	if err := s.storage.SaveIdentity(ctx, identity); err != nil {
		return nil, err
	}

	if err := s.storage.SaveCredential(ctx, cred); err != nil {
		return nil, err
	}

	return s.createSession(identity)
}

// Login authenticates a registered player and creates a session
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	cred, err := s.storage.GetCredentialByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, model.ErrPlayerNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	identity, err := s.storage.GetIdentity(ctx, cred.PlayerID)
	if err != nil {
		return nil, err
	}

	return s.createSession(identity)
}

// ValidateSession checks if a session token is valid and returns the session
func (s *Service) ValidateSession(token string) (*Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[token]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrInvalidSession
	}

	if s.clock.Now().After(session.ExpiresAt) {
		s.mu.Lock()
		delete(s.sessions, token)
		s.mu.Unlock()
		return nil, ErrInvalidSession
	}

	return session, nil
}

// Authenticate validates a token and loads the player's current identity
func (s *Service) Authenticate(ctx context.Context, token string) (model.Identity, error) {
	session, err := s.ValidateSession(token)
	if err != nil {
		return model.Identity{}, err
	}
	identity, err := s.storage.GetIdentity(ctx, session.PlayerID)
	if err != nil {
		if errors.Is(err, model.ErrPlayerNotFound) {
			// Guest identity expired underneath the session
			s.InvalidateSession(token)
			return model.Identity{}, ErrInvalidSession
		}
		return model.Identity{}, err
	}
	return *identity, nil
}

// InvalidateSession removes a session
func (s *Service) InvalidateSession(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

func (s *Service) newIdentity(profile Profile, guest bool) (*model.Identity, error) {
	nick := strings.TrimSpace(profile.Nick)
	if nick == "" || utf8.RuneCountInString(nick) > MaxNickLength {
		return nil, model.ErrInvalidNick
	}

	faction := profile.Faction
	if faction == "" {
		faction = model.FactionPotatoes
	}
	if !faction.Valid() {
		return nil, model.ErrInvalidFaction
	}

	return &model.Identity{
		ID:         model.PlayerID("p_" + uuid.NewString()),
		Nick:       nick,
		SkillScore: s.initialSkillScore,
		Avatar:     profile.Avatar,
		Faction:    faction,
		IsGuest:    guest,
		CreatedAt:  s.clock.Now(),
	}, nil
}

// createSession creates a new session for a player
func (s *Service) createSession(identity *model.Identity) (*Session, error) {
	id, err := gonanoid.New(tokenLength)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()

	session := &Session{
		Token:     "sess_" + id,
		PlayerID:  identity.ID,
		Identity:  *identity,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionDuration),
	}

	s.mu.Lock()
	s.sessions[session.Token] = session
	s.mu.Unlock()

	return session, nil
}

// CleanExpiredSessions removes expired sessions (call periodically)
func (s *Service) CleanExpiredSessions() int {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for token, session := range s.sessions {
		if now.After(session.ExpiresAt) {
			delete(s.sessions, token)
			removed++
		}
	}
	return removed
}
