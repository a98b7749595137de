// Package storagetest holds behaviour every storage backend must share.
package storagetest

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/pongarena/internal/model"
	"github.com/mcoot/pongarena/internal/storage"
)

// Epoch is the fixed creation time used by fixtures
var Epoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// Suite runs the shared storage checks. Backends embed it and set
// Storage in their SetupTest.
type Suite struct {
	suite.Suite
	Storage storage.Storage
	Ctx     context.Context
}

// Identity builds a fixture identity
func Identity(id, nick string, skill int) *model.Identity {
	return &model.Identity{
		ID:         model.PlayerID(id),
		Nick:       nick,
		SkillScore: skill,
		Faction:    model.FactionPotatoes,
		CreatedAt:  Epoch,
	}
}

// Result builds a fixture match result ending at the given offset
func Result(id string, p1, p2 model.PlayerID, offset time.Duration) *model.MatchResult {
	return &model.MatchResult{
		ID: model.MatchResultID(id),
		Outcome: model.MatchOutcome{
			MatchID:        model.RoomID("ranked_1_" + string(p1) + "_" + string(p2)),
			Kind:           model.MatchKindRanked,
			Participant1ID: p1,
			Participant2ID: p2,
			Score1:         5,
			Score2:         3,
			WinnerID:       p1,
			Reason:         model.OutcomeReasonWin,
			EndedAt:        Epoch.Add(offset),
		},
		SkillDelta1: 25,
		SkillDelta2: -20,
		RecordedAt:  Epoch.Add(offset),
	}
}

// Identity tests

func (s *Suite) TestSaveAndGetIdentity() {
	identity := Identity("p-alice", "alice", 1500)
	identity.Avatar = "https://example.com/a.png"
	identity.IsGuest = true

	s.Require().NoError(s.Storage.SaveIdentity(s.Ctx, identity))

	got, err := s.Storage.GetIdentity(s.Ctx, "p-alice")
	s.Require().NoError(err)
	s.Equal("alice", got.Nick)
	s.Equal(1500, got.SkillScore)
	s.Equal("https://example.com/a.png", got.Avatar)
	s.Equal(model.FactionPotatoes, got.Faction)
	s.True(got.IsGuest)
	s.True(Epoch.Equal(got.CreatedAt))
}

func (s *Suite) TestGetIdentityNotFound() {
	_, err := s.Storage.GetIdentity(s.Ctx, "missing")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *Suite) TestGetIdentityByNickIgnoresCase() {
	s.Require().NoError(s.Storage.SaveIdentity(s.Ctx, Identity("p-alice", "Alice", 1500)))

	got, err := s.Storage.GetIdentityByNick(s.Ctx, "ALICE")
	s.Require().NoError(err)
	s.Equal(model.PlayerID("p-alice"), got.ID)

	_, err = s.Storage.GetIdentityByNick(s.Ctx, "bob")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *Suite) TestSaveIdentityRejectsTakenNick() {
	s.Require().NoError(s.Storage.SaveIdentity(s.Ctx, Identity("p-alice", "alice", 1500)))

	err := s.Storage.SaveIdentity(s.Ctx, Identity("p-other", "Alice", 1000))

	s.ErrorIs(err, model.ErrNickTaken)
}

func (s *Suite) TestSaveIdentityRenameReleasesOldNick() {
	s.Require().NoError(s.Storage.SaveIdentity(s.Ctx, Identity("p-alice", "alice", 1500)))
	s.Require().NoError(s.Storage.SaveIdentity(s.Ctx, Identity("p-alice", "alicia", 1500)))

	_, err := s.Storage.GetIdentityByNick(s.Ctx, "alice")
	s.ErrorIs(err, model.ErrPlayerNotFound)
	s.NoError(s.Storage.SaveIdentity(s.Ctx, Identity("p-other", "alice", 1000)))
}

func (s *Suite) TestAdjustSkillScore() {
	s.Require().NoError(s.Storage.SaveIdentity(s.Ctx, Identity("p-alice", "alice", 1500)))

	score, err := s.Storage.AdjustSkillScore(s.Ctx, "p-alice", 25)
	s.Require().NoError(err)
	s.Equal(1525, score)

	got, err := s.Storage.GetIdentity(s.Ctx, "p-alice")
	s.Require().NoError(err)
	s.Equal(1525, got.SkillScore)
}

func (s *Suite) TestAdjustSkillScoreFloorsAtZero() {
	s.Require().NoError(s.Storage.SaveIdentity(s.Ctx, Identity("p-alice", "alice", 10)))

	score, err := s.Storage.AdjustSkillScore(s.Ctx, "p-alice", -50)

	s.Require().NoError(err)
	s.Equal(0, score)
}

func (s *Suite) TestAdjustSkillScoreNotFound() {
	_, err := s.Storage.AdjustSkillScore(s.Ctx, "missing", 10)
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *Suite) TestTopIdentitiesOrdersBySkill() {
	s.Require().NoError(s.Storage.SaveIdentity(s.Ctx, Identity("p-low", "low", 900)))
	s.Require().NoError(s.Storage.SaveIdentity(s.Ctx, Identity("p-high", "high", 2000)))
	s.Require().NoError(s.Storage.SaveIdentity(s.Ctx, Identity("p-mid", "mid", 1500)))
	_, err := s.Storage.AdjustSkillScore(s.Ctx, "p-low", 1200)
	s.Require().NoError(err)

	top, err := s.Storage.TopIdentities(s.Ctx, 2)

	s.Require().NoError(err)
	s.Require().Len(top, 2)
	s.Equal(model.PlayerID("p-low"), top[0].ID)
	s.Equal(2100, top[0].SkillScore)
	s.Equal(model.PlayerID("p-high"), top[1].ID)
}

// Credential tests

func (s *Suite) TestSaveAndGetCredential() {
	cred := &model.Credential{
		PlayerID:     "p-alice",
		Username:     "alice",
		PasswordHash: "hash",
		CreatedAt:    Epoch,
		UpdatedAt:    Epoch,
	}
	s.Require().NoError(s.Storage.SaveIdentity(s.Ctx, Identity("p-alice", "alice", 1000)))
	s.Require().NoError(s.Storage.SaveCredential(s.Ctx, cred))

	got, err := s.Storage.GetCredentialByUsername(s.Ctx, "alice")
	s.Require().NoError(err)
	s.Equal(model.PlayerID("p-alice"), got.PlayerID)
	s.Equal("hash", got.PasswordHash)

	_, err = s.Storage.GetCredentialByUsername(s.Ctx, "bob")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

// Match result tests

func (s *Suite) TestSaveAndGetMatchResults() {
	s.Require().NoError(s.Storage.SaveIdentity(s.Ctx, Identity("p-alice", "alice", 1000)))
	s.Require().NoError(s.Storage.SaveIdentity(s.Ctx, Identity("p-bob", "bob", 1000)))
	s.Require().NoError(s.Storage.SaveIdentity(s.Ctx, Identity("p-carol", "carol", 1000)))

	s.Require().NoError(s.Storage.SaveMatchResult(s.Ctx, Result("m1", "p-alice", "p-bob", time.Minute)))
	s.Require().NoError(s.Storage.SaveMatchResult(s.Ctx, Result("m2", "p-carol", "p-alice", 2*time.Minute)))

	results, err := s.Storage.GetMatchResults(s.Ctx, "p-alice", 10)
	s.Require().NoError(err)
	s.Require().Len(results, 2)
	s.Equal(model.MatchResultID("m2"), results[0].ID)
	s.Equal(model.MatchResultID("m1"), results[1].ID)

	first := results[1]
	s.Equal(model.MatchKindRanked, first.Outcome.Kind)
	s.Equal(5, first.Outcome.Score1)
	s.Equal(3, first.Outcome.Score2)
	s.Equal(model.PlayerID("p-alice"), first.Outcome.WinnerID)
	s.Equal(model.OutcomeReasonWin, first.Outcome.Reason)
	s.Equal(25, first.DeltaFor("p-alice"))
	s.Equal(-20, first.DeltaFor("p-bob"))
	s.True(Epoch.Add(time.Minute).Equal(first.Outcome.EndedAt))

	bob, err := s.Storage.GetMatchResults(s.Ctx, "p-bob", 10)
	s.Require().NoError(err)
	s.Len(bob, 1)
}

func (s *Suite) TestGetMatchResultsLimit() {
	for i, id := range []string{"m1", "m2", "m3"} {
		r := Result(id, "p-alice", "p-bob", time.Duration(i)*time.Minute)
		s.Require().NoError(s.Storage.SaveMatchResult(s.Ctx, r))
	}

	results, err := s.Storage.GetMatchResults(s.Ctx, "p-alice", 2)

	s.Require().NoError(err)
	s.Require().Len(results, 2)
	s.Equal(model.MatchResultID("m3"), results[0].ID)
}

func (s *Suite) TestGetMatchResultsEmpty() {
	results, err := s.Storage.GetMatchResults(s.Ctx, "p-nobody", 10)
	s.Require().NoError(err)
	s.Empty(results)
}
