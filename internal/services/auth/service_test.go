package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/pongarena/internal/dependencies/mocks"
	"github.com/mcoot/pongarena/internal/model"
	"github.com/mcoot/pongarena/internal/storage/memory"
)

type ServiceSuite struct {
	suite.Suite
	storage *memory.Storage
	clock   *mocks.MockClock
	service *Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.service = New(s.storage, s.clock, DefaultConfig())
	s.ctx = context.Background()
}

// CreateGuest tests

func (s *ServiceSuite) TestCreateGuestSucceeds() {
	session, err := s.service.CreateGuest(s.ctx, Profile{Nick: "Alice", Faction: model.FactionTomatoes})
	s.Require().NoError(err)

	s.True(strings.HasPrefix(session.Token, "sess_"))
	s.True(strings.HasPrefix(string(session.PlayerID), "p_"))
	s.Equal("Alice", session.Identity.Nick)
	s.Equal(model.FactionTomatoes, session.Identity.Faction)
	s.Equal(1000, session.Identity.SkillScore)
	s.True(session.Identity.IsGuest)
}

func (s *ServiceSuite) TestCreateGuestPersistsIdentity() {
	session, _ := s.service.CreateGuest(s.ctx, Profile{Nick: "Alice"})

	identity, err := s.storage.GetIdentity(s.ctx, session.PlayerID)
	s.Require().NoError(err)
	s.Equal("Alice", identity.Nick)
	s.Equal(model.FactionPotatoes, identity.Faction)
}

func (s *ServiceSuite) TestCreateGuestValidatesProfile() {
	_, err := s.service.CreateGuest(s.ctx, Profile{Nick: "   "})
	s.ErrorIs(err, model.ErrInvalidNick)

	_, err = s.service.CreateGuest(s.ctx, Profile{Nick: strings.Repeat("x", MaxNickLength+1)})
	s.ErrorIs(err, model.ErrInvalidNick)

	_, err = s.service.CreateGuest(s.ctx, Profile{Nick: "Alice", Faction: "carrots"})
	s.ErrorIs(err, model.ErrInvalidFaction)
}

func (s *ServiceSuite) TestCreateGuestRejectsTakenNick() {
	_, err := s.service.CreateGuest(s.ctx, Profile{Nick: "Alice"})
	s.Require().NoError(err)

	_, err = s.service.CreateGuest(s.ctx, Profile{Nick: "alice"})
	s.ErrorIs(err, model.ErrNickTaken)
}

// Register tests

func (s *ServiceSuite) TestRegisterSucceeds() {
	session, err := s.service.Register(s.ctx, "alice", "password123", Profile{Nick: "Alice"})
	s.Require().NoError(err)

	s.NotEmpty(session.Token)
	s.Equal("Alice", session.Identity.Nick)
	s.False(session.Identity.IsGuest)
}

func (s *ServiceSuite) TestRegisterDefaultsNickToUsername() {
	session, err := s.service.Register(s.ctx, "alice", "password123", Profile{})
	s.Require().NoError(err)
	s.Equal("alice", session.Identity.Nick)
}

func (s *ServiceSuite) TestRegisterPersistsHashedCredential() {
	_, _ = s.service.Register(s.ctx, "alice", "password123", Profile{Nick: "Alice"})

	cred, err := s.storage.GetCredentialByUsername(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal("alice", cred.Username)
	s.NotEmpty(cred.PasswordHash)
	s.NotEqual("password123", cred.PasswordHash) // Should be hashed
}

func (s *ServiceSuite) TestRegisterFailsIfUsernameExists() {
	_, _ = s.service.Register(s.ctx, "alice", "password123", Profile{Nick: "Alice"})

	_, err := s.service.Register(s.ctx, "alice", "different", Profile{Nick: "Alice2"})
	s.ErrorIs(err, ErrUsernameExists)
}

func (s *ServiceSuite) TestRegisterTakenNickLeavesNoCredential() {
	_, _ = s.service.CreateGuest(s.ctx, Profile{Nick: "Alice"})

	_, err := s.service.Register(s.ctx, "alice", "password123", Profile{Nick: "Alice"})

	s.ErrorIs(err, model.ErrNickTaken)
	_, err = s.storage.GetCredentialByUsername(s.ctx, "alice")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

// Login tests

func (s *ServiceSuite) TestLoginSucceeds() {
	registered, _ := s.service.Register(s.ctx, "alice", "password123", Profile{Nick: "Alice"})

	session, err := s.service.Login(s.ctx, "alice", "password123")
	s.Require().NoError(err)

	s.NotEqual(registered.Token, session.Token)
	s.Equal(registered.PlayerID, session.PlayerID)
}

func (s *ServiceSuite) TestLoginFailsWithWrongPassword() {
	_, _ = s.service.Register(s.ctx, "alice", "password123", Profile{Nick: "Alice"})

	_, err := s.service.Login(s.ctx, "alice", "wrongpassword")
	s.ErrorIs(err, ErrInvalidCredentials)
}

func (s *ServiceSuite) TestLoginFailsWithUnknownUser() {
	_, err := s.service.Login(s.ctx, "nobody", "password123")
	s.ErrorIs(err, ErrInvalidCredentials)
}

// ValidateSession tests

func (s *ServiceSuite) TestValidateSessionFailsWithInvalidToken() {
	_, err := s.service.ValidateSession("invalid_token")
	s.ErrorIs(err, ErrInvalidSession)
}

func (s *ServiceSuite) TestValidateSessionFailsWhenExpired() {
	session, _ := s.service.CreateGuest(s.ctx, Profile{Nick: "Alice"})

	// Advance time past expiration
	s.clock.Advance(25 * time.Hour)

	_, err := s.service.ValidateSession(session.Token)
	s.ErrorIs(err, ErrInvalidSession)
}

func (s *ServiceSuite) TestInvalidateSessionRemovesSession() {
	session, _ := s.service.CreateGuest(s.ctx, Profile{Nick: "Alice"})

	s.service.InvalidateSession(session.Token)

	_, err := s.service.ValidateSession(session.Token)
	s.ErrorIs(err, ErrInvalidSession)
}

// Authenticate tests

func (s *ServiceSuite) TestAuthenticateReturnsCurrentIdentity() {
	session, _ := s.service.CreateGuest(s.ctx, Profile{Nick: "Alice"})
	_, err := s.storage.AdjustSkillScore(s.ctx, session.PlayerID, 50)
	s.Require().NoError(err)

	identity, err := s.service.Authenticate(s.ctx, session.Token)

	s.Require().NoError(err)
	s.Equal(1050, identity.SkillScore)
	s.Equal(1000, session.Identity.SkillScore)
}

func (s *ServiceSuite) TestAuthenticateFailsWithInvalidToken() {
	_, err := s.service.Authenticate(s.ctx, "invalid_token")
	s.ErrorIs(err, ErrInvalidSession)
}

// CleanExpiredSessions tests

func (s *ServiceSuite) TestCleanExpiredSessionsRemovesExpired() {
	session1, _ := s.service.CreateGuest(s.ctx, Profile{Nick: "Alice"})

	// Advance time so session1 expires
	s.clock.Advance(25 * time.Hour)

	// Create a new session (not expired)
	session2, _ := s.service.CreateGuest(s.ctx, Profile{Nick: "Bob"})

	s.Equal(1, s.service.CleanExpiredSessions())

	// session1 should be gone
	_, err := s.service.ValidateSession(session1.Token)
	s.ErrorIs(err, ErrInvalidSession)

	// session2 should still be valid
	_, err = s.service.ValidateSession(session2.Token)
	s.NoError(err)
}
