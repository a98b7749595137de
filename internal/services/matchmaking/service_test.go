package matchmaking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/pongarena/internal/dependencies/mocks"
	"github.com/mcoot/pongarena/internal/model"
	"github.com/mcoot/pongarena/internal/services/engine"
	"github.com/mcoot/pongarena/internal/services/session"
	"github.com/mcoot/pongarena/internal/testutil"
)

type fakeDirectory struct {
	identities map[model.PlayerID]model.Identity
	onLookup   func(id model.PlayerID)
}

func (d *fakeDirectory) Lookup(_ context.Context, id model.PlayerID) (model.Identity, error) {
	if d.onLookup != nil {
		d.onLookup(id)
	}
	identity, ok := d.identities[id]
	if !ok {
		return model.Identity{}, model.ErrIdentityUnavailable
	}
	return identity, nil
}

func (d *fakeDirectory) LookupByNick(_ context.Context, nick string) (model.Identity, error) {
	for _, identity := range d.identities {
		if strings.EqualFold(identity.Nick, nick) {
			return identity, nil
		}
	}
	return model.Identity{}, model.ErrIdentityUnavailable
}

type createdRoom struct {
	id     model.RoomID
	kind   model.MatchKind
	p1, p2 engine.Participant
}

type fakeRooms struct {
	mu      sync.Mutex
	created []createdRoom
	playing map[model.PlayerID]bool
	err     error
}

func (r *fakeRooms) CreateRoom(_ context.Context, kind model.MatchKind, p1, p2 engine.Participant) (model.RoomID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return "", r.err
	}
	id := model.RoomID(fmt.Sprintf("%s_%d_%s_%s", kind, len(r.created)+1, p1.Identity.ID, p2.Identity.ID))
	r.created = append(r.created, createdRoom{id: id, kind: kind, p1: p1, p2: p2})
	r.playing[p1.Identity.ID] = true
	r.playing[p2.Identity.ID] = true
	return id, nil
}

func (r *fakeRooms) InMatch(id model.PlayerID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.playing[id]
}

type ServiceSuite struct {
	suite.Suite
	clock     *mocks.MockClock
	directory *fakeDirectory
	sessions  *session.Registry
	rooms     *fakeRooms
	service   *Service
	ctx       context.Context

	conns map[model.PlayerID]*testutil.FakeConn
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.directory = &fakeDirectory{identities: map[model.PlayerID]model.Identity{
		"p-alice": {ID: "p-alice", Nick: "alice", SkillScore: 1500},
		"p-bob":   {ID: "p-bob", Nick: "bob", SkillScore: 1600, Avatar: "https://example.com/bob.png"},
		"p-carol": {ID: "p-carol", Nick: "carol", SkillScore: 50000},
		"p-dave":  {ID: "p-dave", Nick: "dave", SkillScore: 1700},
	}}
	logger := testutil.NopLogger()
	s.sessions = session.NewRegistry(logger)
	s.rooms = &fakeRooms{playing: make(map[model.PlayerID]bool)}
	s.service = New(DefaultConfig(), s.directory, s.sessions, s.rooms, s.clock, logger)
	s.ctx = context.Background()
	s.conns = make(map[model.PlayerID]*testutil.FakeConn)
}

func (s *ServiceSuite) connect(id model.PlayerID) *testutil.FakeConn {
	conn := testutil.NewFakeConn("conn-" + string(id))
	identity, _ := s.directory.Lookup(s.ctx, id)
	s.sessions.Register(conn, identity)
	s.conns[id] = conn
	return conn
}

// Ranked

func (s *ServiceSuite) TestRankedPairsWithinTolerance() {
	alice := s.connect("p-alice")
	bob := s.connect("p-bob")

	first, err := s.service.JoinQueue(s.ctx, "p-alice", model.QueueModeRanked)
	s.Require().NoError(err)
	s.Equal(StatusQueued, first.Status)

	second, err := s.service.JoinQueue(s.ctx, "p-bob", model.QueueModeRanked)
	s.Require().NoError(err)
	s.Equal(StatusMatchFound, second.Status)
	s.Equal(model.PlayerID("p-alice"), second.OpponentID)

	aliceFound, ok := alice.Last(model.EventMatchFound)
	s.Require().True(ok)
	bobFound, ok := bob.Last(model.EventMatchFound)
	s.Require().True(ok)

	ap := aliceFound.Payload.(model.MatchFoundPayload)
	bp := bobFound.Payload.(model.MatchFoundPayload)
	s.Equal(ap.RoomID, bp.RoomID)
	s.Equal(second.RoomID, ap.RoomID)
	s.Equal(model.PlayerID("p-bob"), ap.OpponentID)
	s.Equal("alice", bp.Opponent)

	s.Equal(0, s.service.Ranked().Len())
	s.Require().Len(s.rooms.created, 1)
	s.Equal(model.MatchKindRanked, s.rooms.created[0].kind)
	s.Equal(model.PlayerID("p-alice"), s.rooms.created[0].p1.Identity.ID)
}

func (s *ServiceSuite) TestRankedQueuedSendsStatus() {
	alice := s.connect("p-alice")

	_, err := s.service.JoinQueue(s.ctx, "p-alice", model.QueueModeRanked)
	s.Require().NoError(err)

	evt, ok := alice.Last(model.EventMatchmakingStatus)
	s.Require().True(ok)
	s.Equal(model.MatchmakingStatusPayload{Status: model.MatchmakingQueued, Mode: model.QueueModeRanked}, evt.Payload)
}

func (s *ServiceSuite) TestRankedOutsideToleranceStaysQueued() {
	s.connect("p-alice")
	s.connect("p-carol")

	_, _ = s.service.JoinQueue(s.ctx, "p-alice", model.QueueModeRanked)
	res, err := s.service.JoinQueue(s.ctx, "p-carol", model.QueueModeRanked)

	s.Require().NoError(err)
	s.Equal(StatusQueued, res.Status)
	s.Equal(2, s.service.Ranked().Len())
}

func (s *ServiceSuite) TestRankedJoinTwiceKeepsOneEntry() {
	s.connect("p-alice")

	_, _ = s.service.JoinQueue(s.ctx, "p-alice", model.QueueModeRanked)
	_, _ = s.service.JoinQueue(s.ctx, "p-alice", model.QueueModeRanked)

	s.Equal(1, s.service.Ranked().Len())
}

func (s *ServiceSuite) TestRankedSkipsDisconnectedEntries() {
	ghost := s.connect("p-alice")
	s.connect("p-bob")
	s.connect("p-dave")
	_, _ = s.service.JoinQueue(s.ctx, "p-alice", model.QueueModeRanked)
	s.sessions.Unregister(ghost)

	res, err := s.service.JoinQueue(s.ctx, "p-bob", model.QueueModeRanked)
	s.Require().NoError(err)
	s.Equal(StatusQueued, res.Status)
	s.False(s.service.Ranked().Contains("p-alice"))

	res, err = s.service.JoinQueue(s.ctx, "p-dave", model.QueueModeRanked)
	s.Require().NoError(err)
	s.Equal(StatusMatchFound, res.Status)
	s.Equal(model.PlayerID("p-bob"), res.OpponentID)
}

func (s *ServiceSuite) TestJoinRequiresConnection() {
	_, err := s.service.JoinQueue(s.ctx, "p-alice", model.QueueModeRanked)
	s.ErrorIs(err, model.ErrNotConnected)
}

func (s *ServiceSuite) TestJoinFailsWhenSocketClosesDuringLookup() {
	alice := s.connect("p-alice")
	s.connect("p-bob")
	_, err := s.service.JoinQueue(s.ctx, "p-bob", model.QueueModeRanked)
	s.Require().NoError(err)
	s.directory.onLookup = func(model.PlayerID) { s.sessions.Unregister(alice) }

	_, err = s.service.JoinQueue(s.ctx, "p-alice", model.QueueModeRanked)

	s.ErrorIs(err, model.ErrNotConnected)
	s.False(s.service.Ranked().Contains("p-alice"))
	s.True(s.service.Ranked().Contains("p-bob"))
	s.Empty(s.rooms.created)
}

func (s *ServiceSuite) TestJoinRejectsInvalidMode() {
	s.connect("p-alice")
	_, err := s.service.JoinQueue(s.ctx, "p-alice", model.QueueMode("tournament"))
	s.ErrorIs(err, model.ErrInvalidQueueMode)
}

func (s *ServiceSuite) TestJoinRejectsPlayerInMatch() {
	s.connect("p-alice")
	s.rooms.playing["p-alice"] = true

	_, err := s.service.JoinQueue(s.ctx, "p-alice", model.QueueModeCasual)
	s.ErrorIs(err, model.ErrAlreadyInMatch)
}

func (s *ServiceSuite) TestJoinAbortsWhenIdentityUnavailable() {
	conn := testutil.NewFakeConn("conn-ghost")
	s.sessions.Register(conn, model.Identity{ID: "p-ghost", Nick: "ghost"})

	_, err := s.service.JoinQueue(s.ctx, "p-ghost", model.QueueModeRanked)

	s.ErrorIs(err, model.ErrIdentityUnavailable)
	s.Equal(0, s.service.Ranked().Len())
}

func (s *ServiceSuite) TestRoomFailureRestoresQueue() {
	s.connect("p-alice")
	s.connect("p-bob")
	_, _ = s.service.JoinQueue(s.ctx, "p-alice", model.QueueModeRanked)
	s.rooms.err = errors.New("boom")

	_, err := s.service.JoinQueue(s.ctx, "p-bob", model.QueueModeRanked)

	s.Error(err)
	s.True(s.service.Ranked().Contains("p-alice"))
	s.True(s.service.Ranked().Contains("p-bob"))
}

// Casual

func (s *ServiceSuite) TestCasualRoomFailureKeepsOccupant() {
	alice := s.connect("p-alice")
	s.connect("p-carol")
	_, err := s.service.JoinQueue(s.ctx, "p-alice", model.QueueModeCasual)
	s.Require().NoError(err)
	s.rooms.err = errors.New("boom")

	_, err = s.service.JoinQueue(s.ctx, "p-carol", model.QueueModeCasual)

	s.Error(err)
	waiter, ok := s.service.Casual().Waiting()
	s.Require().True(ok)
	s.Equal(model.PlayerID("p-alice"), waiter.PlayerID)
	s.Equal(alice.ID(), waiter.Conn.ID())

	s.rooms.err = nil
	res, err := s.service.JoinQueue(s.ctx, "p-carol", model.QueueModeCasual)
	s.Require().NoError(err)
	s.Equal(StatusMatchFound, res.Status)
	s.Equal(model.PlayerID("p-alice"), res.OpponentID)
}

func (s *ServiceSuite) TestCasualFirstWaitsThenPairs() {
	alice := s.connect("p-alice")
	carol := s.connect("p-carol")

	res, err := s.service.JoinQueue(s.ctx, "p-alice", model.QueueModeCasual)
	s.Require().NoError(err)
	s.Equal(StatusWaiting, res.Status)
	evt, ok := alice.Last(model.EventMatchmakingStatus)
	s.Require().True(ok)
	s.Equal(model.MatchmakingWaiting, evt.Payload.(model.MatchmakingStatusPayload).Status)

	res, err = s.service.JoinQueue(s.ctx, "p-carol", model.QueueModeCasual)
	s.Require().NoError(err)
	s.Equal(StatusMatchFound, res.Status)
	s.Equal(model.PlayerID("p-alice"), res.OpponentID)

	s.NotEmpty(alice.EventsOfType(model.EventMatchFound))
	s.NotEmpty(carol.EventsOfType(model.EventMatchFound))
	s.Equal(model.MatchKindCasualFIFO, s.rooms.created[0].kind)
	_, waiting := s.service.Casual().Waiting()
	s.False(waiting)
}

func (s *ServiceSuite) TestCasualStaleOccupantIsReplaced() {
	old := s.connect("p-alice")
	_, _ = s.service.JoinQueue(s.ctx, "p-alice", model.QueueModeCasual)
	s.sessions.Unregister(old)
	s.connect("p-bob")

	res, err := s.service.JoinQueue(s.ctx, "p-bob", model.QueueModeCasual)

	s.Require().NoError(err)
	s.Equal(StatusWaiting, res.Status)
	w, ok := s.service.Casual().Waiting()
	s.Require().True(ok)
	s.Equal(model.PlayerID("p-bob"), w.PlayerID)
	s.Empty(s.rooms.created)
}

func (s *ServiceSuite) TestJoiningOneQueueLeavesTheOther() {
	s.connect("p-alice")

	_, _ = s.service.JoinQueue(s.ctx, "p-alice", model.QueueModeCasual)
	_, _ = s.service.JoinQueue(s.ctx, "p-alice", model.QueueModeRanked)

	_, waiting := s.service.Casual().Waiting()
	s.False(waiting)
	s.True(s.service.Ranked().Contains("p-alice"))

	_, _ = s.service.JoinQueue(s.ctx, "p-alice", model.QueueModeCasual)
	s.False(s.service.Ranked().Contains("p-alice"))
}

func (s *ServiceSuite) TestLeaveQueue() {
	alice := s.connect("p-alice")
	_, _ = s.service.JoinQueue(s.ctx, "p-alice", model.QueueModeRanked)

	s.True(s.service.LeaveQueue(s.ctx, "p-alice"))
	s.False(s.service.Ranked().Contains("p-alice"))
	evt, ok := alice.Last(model.EventMatchmakingStatus)
	s.Require().True(ok)
	s.Equal(model.MatchmakingLeft, evt.Payload.(model.MatchmakingStatusPayload).Status)

	s.False(s.service.LeaveQueue(s.ctx, "p-alice"))
}

// Invites

func (s *ServiceSuite) TestSendInviteNotifiesTarget() {
	s.connect("p-bob")
	alice := s.connect("p-alice")

	invite, err := s.service.SendInvite(s.ctx, "p-bob", "alice")

	s.Require().NoError(err)
	s.Equal(model.PlayerID("p-alice"), invite.TargetID)
	evt, ok := alice.Last(model.EventInviteReceived)
	s.Require().True(ok)
	s.Equal(model.InviteReceivedPayload{
		SenderID:     "p-bob",
		SenderNick:   "bob",
		SenderAvatar: "https://example.com/bob.png",
	}, evt.Payload)
}

func (s *ServiceSuite) TestSendInviteToOfflineTargetStillRecords() {
	s.connect("p-alice")

	_, err := s.service.SendInvite(s.ctx, "p-alice", "bob")

	s.Require().NoError(err)
	incoming := s.service.IncomingInvites(s.ctx, "p-bob")
	s.Require().Len(incoming, 1)
	s.Equal("alice", incoming[0].SenderNick)
	s.Equal("https://ui-avatars.com/api/?name=alice&background=random", incoming[0].SenderAvatar)
}

func (s *ServiceSuite) TestSendInviteErrors() {
	_, err := s.service.SendInvite(s.ctx, "p-alice", "alice")
	s.ErrorIs(err, model.ErrSelfInvite)

	_, err = s.service.SendInvite(s.ctx, "p-alice", "nobody")
	s.ErrorIs(err, model.ErrIdentityUnavailable)
}

func (s *ServiceSuite) TestDeclineNotifiesSenderAndConsumesInvite() {
	alice := s.connect("p-alice")
	s.connect("p-bob")
	_, _ = s.service.SendInvite(s.ctx, "p-alice", "bob")

	res, err := s.service.RespondInvite(s.ctx, "p-bob", "alice", model.InviteDecline)
	s.Require().NoError(err)
	s.Equal(model.InviteDecline, res.Decision)

	evt, ok := alice.Last(model.EventInviteDeclined)
	s.Require().True(ok)
	s.Equal(model.InviteDeclinedPayload{Nick: "bob"}, evt.Payload)

	_, err = s.service.RespondInvite(s.ctx, "p-bob", "alice", model.InviteAccept)
	s.ErrorIs(err, model.ErrInviteNotFound)
	s.Empty(s.rooms.created)
}

func (s *ServiceSuite) TestAcceptCreatesRoomAndNotifiesSender() {
	alice := s.connect("p-alice")
	s.connect("p-bob")
	_, _ = s.service.SendInvite(s.ctx, "p-alice", "bob")

	res, err := s.service.RespondInvite(s.ctx, "p-bob", "alice", model.InviteAccept)

	s.Require().NoError(err)
	s.NotEmpty(res.RoomID)
	s.Equal(model.PlayerID("p-alice"), res.OpponentID)

	evt, ok := alice.Last(model.EventInviteAccepted)
	s.Require().True(ok)
	s.Equal(model.InviteAcceptedPayload{RoomID: res.RoomID, OpponentID: "p-bob"}, evt.Payload)

	s.Require().Len(s.rooms.created, 1)
	s.Equal(model.MatchKindCasualInvite, s.rooms.created[0].kind)
	s.Equal(model.PlayerID("p-alice"), s.rooms.created[0].p1.Identity.ID)
}

func (s *ServiceSuite) TestAcceptPurgesBothPlayersEverywhere() {
	s.connect("p-alice")
	s.connect("p-bob")
	s.connect("p-dave")
	_, _ = s.service.JoinQueue(s.ctx, "p-alice", model.QueueModeRanked)
	_, _ = s.service.SendInvite(s.ctx, "p-dave", "bob")
	_, _ = s.service.SendInvite(s.ctx, "p-alice", "bob")
	_, _ = s.service.SendInvite(s.ctx, "p-alice", "dave")

	_, err := s.service.RespondInvite(s.ctx, "p-bob", "alice", model.InviteAccept)

	s.Require().NoError(err)
	s.False(s.service.Ranked().Contains("p-alice"))
	s.Empty(s.service.IncomingInvites(s.ctx, "p-bob"))
	s.Empty(s.service.IncomingInvites(s.ctx, "p-dave"))
	s.Equal(0, s.service.Invites().Len())
}

func (s *ServiceSuite) TestAcceptRequiresResponderConnection() {
	s.connect("p-alice")
	_, _ = s.service.SendInvite(s.ctx, "p-alice", "bob")

	_, err := s.service.RespondInvite(s.ctx, "p-bob", "alice", model.InviteAccept)

	s.ErrorIs(err, model.ErrNotConnected)
	s.Len(s.service.IncomingInvites(s.ctx, "p-bob"), 1)
}

func (s *ServiceSuite) TestRespondRejectsInvalidDecision() {
	_, err := s.service.RespondInvite(s.ctx, "p-bob", "alice", model.InviteDecision("maybe"))
	s.ErrorIs(err, model.ErrInvalidDecision)
}

func (s *ServiceSuite) TestRankedPairingClearsInvites() {
	s.connect("p-alice")
	s.connect("p-bob")
	_, _ = s.service.SendInvite(s.ctx, "p-alice", "bob")

	_, _ = s.service.JoinQueue(s.ctx, "p-alice", model.QueueModeRanked)
	_, _ = s.service.JoinQueue(s.ctx, "p-bob", model.QueueModeRanked)

	s.Equal(0, s.service.Invites().Len())
}

func (s *ServiceSuite) TestConcurrentRankedJoinsNeverDoubleClaim() {
	ids := []model.PlayerID{"p-alice", "p-bob", "p-dave"}
	for _, id := range ids {
		s.connect(id)
	}
	_, _ = s.service.JoinQueue(s.ctx, "p-alice", model.QueueModeRanked)

	var wg sync.WaitGroup
	for _, id := range ids[1:] {
		wg.Add(1)
		go func(id model.PlayerID) {
			defer wg.Done()
			_, _ = s.service.JoinQueue(s.ctx, id, model.QueueModeRanked)
		}(id)
	}
	wg.Wait()

	s.Len(s.rooms.created, 1)
	s.Equal(1, s.service.Ranked().Len())
}
