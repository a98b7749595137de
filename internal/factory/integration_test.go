package factory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/pongarena/internal/model"
	"github.com/mcoot/pongarena/internal/services/auth"
	"github.com/mcoot/pongarena/internal/services/engine"
	"github.com/mcoot/pongarena/internal/services/matchmaking"
	"github.com/mcoot/pongarena/internal/testutil"
)

type IntegrationSuite struct {
	suite.Suite
	app *TestApp
	ctx context.Context
}

func TestIntegrationSuite(t *testing.T) {
	suite.Run(t, new(IntegrationSuite))
}

func (s *IntegrationSuite) SetupTest() {
	engineCfg := engine.DefaultConfig()
	engineCfg.TickInterval = 0
	engineCfg.PowerUpsEnabled = false
	engineCfg.WinScore = 1

	s.app = NewTestAppWithConfig(Config{EngineConfig: &engineCfg})
	s.ctx = context.Background()
}

func (s *IntegrationSuite) TearDownTest() {
	s.Require().NoError(s.app.Close())
}

// connectGuest creates a guest and attaches a fake socket for it
func (s *IntegrationSuite) connectGuest(nick string) (model.Identity, *testutil.FakeConn) {
	session, err := s.app.AuthService.CreateGuest(s.ctx, auth.Profile{Nick: nick})
	s.Require().NoError(err)

	conn := testutil.NewFakeConn("conn-" + nick)
	s.app.Supervisor.Connect(conn, session.Identity)
	return session.Identity, conn
}

// playOut ticks the room's engine until it leaves RUNNING
func (s *IntegrationSuite) playOut(roomID model.RoomID) {
	eng, ok := s.app.Rooms.Engine(roomID)
	s.Require().True(ok)
	for i := 0; i < 1000 && eng.State() == model.MatchStateRunning; i++ {
		eng.Tick()
	}
	s.Require().NotEqual(model.MatchStateRunning, eng.State())
}

// Test: Ranked pairing through to a recorded, rated result
func (s *IntegrationSuite) TestRankedMatchFlow() {
	alice, aliceConn := s.connectGuest("alice")
	bob, bobConn := s.connectGuest("bob")

	// Step 1: Alice queues alone
	res, err := s.app.Matchmaking.JoinQueue(s.ctx, alice.ID, model.QueueModeRanked)
	s.Require().NoError(err)
	s.Equal(matchmaking.StatusQueued, res.Status)

	// Step 2: Bob joins and is paired with Alice
	res, err = s.app.Matchmaking.JoinQueue(s.ctx, bob.ID, model.QueueModeRanked)
	s.Require().NoError(err)
	s.Equal(matchmaking.StatusMatchFound, res.Status)
	s.Equal(alice.ID, res.OpponentID)

	_, ok := aliceConn.Last(model.EventMatchFound)
	s.True(ok)
	_, ok = bobConn.Last(model.EventMatchFound)
	s.True(ok)

	// Step 3: Bob moves away from the ball, Alice scores the only point
	s.Require().NoError(s.app.Supervisor.Input(bobConn.ID(), model.Input{Direction: -1}))
	s.playOut(res.RoomID)

	ended, ok := aliceConn.Last(model.EventMatchEnded)
	s.Require().True(ok)
	payload := ended.Payload.(model.MatchEndedPayload)
	s.Equal(alice.ID, payload.WinnerID)
	s.Equal(model.OutcomeReasonWin, payload.Reason)

	// Step 4: The room is released and ratings moved
	s.False(s.app.Rooms.InMatch(alice.ID))
	s.False(s.app.Rooms.InMatch(bob.ID))

	board, err := s.app.Results.Leaderboard(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(board, 2)
	s.Equal(alice.ID, board[0].PlayerID)
	s.Equal(1025, board[0].SkillScore)
	s.Equal(980, board[1].SkillScore)

	history, err := s.app.Results.History(s.ctx, bob.ID, 10)
	s.Require().NoError(err)
	s.Require().Len(history, 1)
	s.Equal(-20, history[0].DeltaFor(bob.ID))
}

// Test: Disconnecting mid-match forfeits a casual match without rating change
func (s *IntegrationSuite) TestCasualForfeitFlow() {
	alice, aliceConn := s.connectGuest("alice")
	bob, bobConn := s.connectGuest("bob")

	res, err := s.app.Matchmaking.JoinQueue(s.ctx, alice.ID, model.QueueModeCasual)
	s.Require().NoError(err)
	s.Equal(matchmaking.StatusWaiting, res.Status)

	res, err = s.app.Matchmaking.JoinQueue(s.ctx, bob.ID, model.QueueModeCasual)
	s.Require().NoError(err)
	s.Require().Equal(matchmaking.StatusMatchFound, res.Status)

	s.app.Supervisor.Disconnect(aliceConn)

	ended, ok := bobConn.Last(model.EventMatchEnded)
	s.Require().True(ok)
	payload := ended.Payload.(model.MatchEndedPayload)
	s.Equal(bob.ID, payload.WinnerID)
	s.Equal(model.OutcomeReasonForfeit, payload.Reason)

	history, err := s.app.Results.History(s.ctx, alice.ID, 10)
	s.Require().NoError(err)
	s.Require().Len(history, 1)
	s.Equal(model.MatchKindCasualFIFO, history[0].Outcome.Kind)
	s.Equal(0, history[0].DeltaFor(alice.ID))

	identity, err := s.app.Directory.Lookup(s.ctx, alice.ID)
	s.Require().NoError(err)
	s.Equal(1000, identity.SkillScore)
}

// Test: Invite accepted by nick starts a match and notifies the sender
func (s *IntegrationSuite) TestInviteFlow() {
	alice, aliceConn := s.connectGuest("alice")
	bob, bobConn := s.connectGuest("bob")

	_, err := s.app.Matchmaking.SendInvite(s.ctx, alice.ID, "BOB")
	s.Require().NoError(err)

	received, ok := bobConn.Last(model.EventInviteReceived)
	s.Require().True(ok)
	s.Equal("alice", received.Payload.(model.InviteReceivedPayload).SenderNick)

	incoming := s.app.Matchmaking.IncomingInvites(s.ctx, bob.ID)
	s.Require().Len(incoming, 1)
	s.Equal(alice.ID, incoming[0].SenderID)

	result, err := s.app.Matchmaking.RespondInvite(s.ctx, bob.ID, "alice", model.InviteAccept)
	s.Require().NoError(err)
	s.Equal(alice.ID, result.OpponentID)

	accepted, ok := aliceConn.Last(model.EventInviteAccepted)
	s.Require().True(ok)
	s.Equal(result.RoomID, accepted.Payload.(model.InviteAcceptedPayload).RoomID)

	room, ok := s.app.Rooms.Room(result.RoomID)
	s.Require().True(ok)
	s.Equal(model.MatchKindCasualInvite, room.Kind)
	s.Equal(alice.ID, room.Participant1.ID)
	s.Empty(s.app.Matchmaking.IncomingInvites(s.ctx, bob.ID))
}

// Test: A reconnect replaces the live connection without ending the match
func (s *IntegrationSuite) TestReconnectSupersedes() {
	alice, first := s.connectGuest("alice")

	second := testutil.NewFakeConn("conn-alice-2")
	superseded := s.app.Supervisor.Connect(second, alice)
	s.Require().NotNil(superseded)
	s.Equal(first.ID(), superseded.ID())

	s.app.Supervisor.Disconnect(first)

	s.True(s.app.Sessions.IsLive(alice.ID))
	conn, ok := s.app.Sessions.ConnFor(alice.ID)
	s.Require().True(ok)
	s.Equal(second.ID(), conn.ID())
}
